package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, s := range []string{"", "0", "-1", "abc", "1.5"} {
		_, err = ParseID(s)
		assert.EqualError(t, err, "id is not valid", s)
	}
}

func TestParsePageRequest(t *testing.T) {
	config := PaginationConfig{DefaultSize: 20, MaxSize: 50}
	testCases := []struct {
		name     string
		query    string
		expected PageRequest
		err      string
	}{
		{"defaults", "", PageRequest{Number: 0, Size: 20}, ""},
		{"explicit", "page=2&size=10", PageRequest{Number: 2, Size: 10}, ""},
		{"capped size", "size=500", PageRequest{Number: 0, Size: 50}, ""},
		{"negative page", "page=-1", PageRequest{}, "page is not valid"},
		{"zero size", "size=0", PageRequest{}, "size is not valid"},
		{"not a number", "page=x", PageRequest{}, "page is not valid"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := url.ParseQuery(tc.query)
			require.NoError(t, err)
			page, err := ParsePageRequest(q, config)
			if tc.err != "" {
				assert.EqualError(t, err, tc.err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, page)
		})
	}
}

func TestHasSearchParams(t *testing.T) {
	assert.False(t, HasSearchParams(url.Values{}))
	assert.False(t, HasSearchParams(url.Values{"sort": {"title"}}))
	assert.True(t, HasSearchParams(url.Values{"title": {""}}))
	assert.True(t, HasSearchParams(url.Values{"page": {"1"}}))
}

func TestErrorStatus(t *testing.T) {
	testCases := []struct {
		err     error
		status  int
		message string
	}{
		{missingFieldError("title"), http.StatusBadRequest, "title is required"},
		{fmt.Errorf("%w: book id is required", ErrInvalidArgument), http.StatusBadRequest, "invalid argument: book id is required"},
		{ErrDuplicateIsbn, http.StatusBadRequest, "isbn already exists"},
		{ErrBookAlreadyLoaned, http.StatusBadRequest, "book already loaned"},
		{ErrBookNotFound, http.StatusNotFound, "book does not exist"},
		{fmt.Errorf("wrapped: %w", ErrLoanNotFound), http.StatusNotFound, "loan does not exist"},
		{ErrBookHasLoans, http.StatusConflict, "book has loans"},
		{ErrLoanAlreadyReturned, http.StatusConflict, "loan already returned"},
		{os.ErrClosed, http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range testCases {
		status, message := ErrorStatus(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.message, message, tc.err.Error())
	}
}

func TestGetRequestSourceIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "192.0.2.1", GetRequestSourceIP(req))

	req.Header.Set("X-Forwarded-For", "bad, 10.0.0.2, 10.0.0.3")
	assert.Equal(t, "10.0.0.2", GetRequestSourceIP(req))

	req.Header.Set("X-Real-IP", "10.0.0.1")
	assert.Equal(t, "10.0.0.1", GetRequestSourceIP(req))
}

func TestIDsHandler(t *testing.T) {
	idh := NewIDsHandler()
	id := idh.Generate(RequestIDPrefix)
	assert.True(t, strings.HasPrefix(id, "r:"))
	assert.True(t, idh.IsValid(RequestIDPrefix, id))
	assert.False(t, idh.IsValid("b", id))
	assert.False(t, idh.IsValid(RequestIDPrefix, "r:not-a-uuid"))
	assert.NotEqual(t, id, idh.Generate(RequestIDPrefix))
}

func TestNewLoanDTO(t *testing.T) {
	loan := Loan{
		ID:       3,
		Book:     Book{ID: 1, Title: "Dune", Author: "Frank Herbert", Isbn: "111"},
		Customer: "alice",
		LoanDate: time.Date(2023, 7, 2, 18, 30, 0, 0, time.UTC),
	}
	dto := NewLoanDTO(loan)
	assert.Equal(t, "111", dto.Isbn)
	assert.Equal(t, "2023-07-02", dto.LoanDate)
	require.NotNil(t, dto.Book)
	assert.Equal(t, "Dune", dto.Book.Title)

	assert.Equal(t, "", NewLoanDTO(Loan{}).LoanDate)
	assert.Equal(t, time.Date(2023, 7, 2, 0, 0, 0, 0, time.UTC), StartOfDay(loan.LoanDate))
}

func TestPageTotalPages(t *testing.T) {
	assert.Equal(t, 0, NewPage[int](nil, 0, PageRequest{Size: 10}).TotalPages())
	assert.Equal(t, 1, NewPage([]int{1}, 10, PageRequest{Size: 10}).TotalPages())
	assert.Equal(t, 2, NewPage([]int{1}, 11, PageRequest{Size: 10}).TotalPages())
	assert.Equal(t, 0, NewPage([]int{1}, 11, PageRequest{}).TotalPages())
	assert.NotNil(t, NewPage[int](nil, 0, PageRequest{}).Content)
}

// TestRSyncWrite ensures log files are created and rotated on max size.
func TestRSyncWrite(t *testing.T) {
	clock := NewMockClocker()
	folder := filepath.Join(t.TempDir(), "logs")
	rsw := NewRSyncWriter(&Config{LogFolder: folder, LogMaxSize: 1}, clock)
	defer rsw.Close()

	_, err := rsw.Write([]byte("first line\n"))
	require.NoError(t, err)
	assert.FileExists(t, CreateLogFilePath(folder, false, clock.Now()))

	clock.Add(time.Second)
	_, err = rsw.Write(make([]byte, megabyte))
	require.NoError(t, err)
	assert.FileExists(t, CreateLogFilePath(folder, false, clock.Now()))

	_, err = rsw.Write(make([]byte, megabyte+1))
	assert.Error(t, err)
	assert.NoError(t, rsw.Sync())
}

func TestCreateLogFilePath(t *testing.T) {
	ts := time.Date(2023, 7, 2, 13, 4, 5, 0, time.UTC)
	assert.Equal(t, filepath.Join("logs", "library.20230702.130405.prod.log"), CreateLogFilePath("logs", true, ts))
	assert.Equal(t, filepath.Join("logs", "library.20230702.130405.dev.log"), CreateLogFilePath("logs", false, ts))
}
