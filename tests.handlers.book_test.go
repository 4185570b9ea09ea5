package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestAPIHandler returns an api handler built on mocked
// storages with the default pagination settings.
func newTestAPIHandler(books BookStorage, loans LoanStorage) *APIHandler {
	config := &Config{Pagination: PaginationConfig{DefaultSize: 20, MaxSize: 100}}
	clock := NewMockClocker()
	return NewAPIHandler(
		zap.NewNop(),
		config,
		&Statistics{started: clock.Now()},
		clock,
		NewMockUIDHandler("abc", true),
		NewBookService(zap.NewNop(), config, books),
		NewLoanService(zap.NewNop(), config, clock, loans),
	)
}

// readResponse ensures the json content type and returns the response body.
func readResponse(t *testing.T, w *httptest.ResponseRecorder) (int, string) {
	t.Helper()
	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, "application/json; charset=UTF-8", res.Header.Get("Content-Type"))
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(data)
}

func idParam(id string) httprouter.Params {
	return httprouter.Params{{Key: "id", Value: id}}
}

// TestStatusHandler ensures api handler can provides its status.
func TestStatusHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	api := newTestAPIHandler(nil, nil)
	api.Status(w, req, httprouter.Params{})
	status, body := readResponse(t, w)
	assert.Equal(t, http.StatusOK, status)

	m := make(map[string]interface{})
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	_, ok := m["requestid"]
	assert.True(t, ok)
	assert.Equal(t, "up & running since 0 mins", m["status"])
	assert.Equal(t, "Hello. Library api is available. Enjoy :)", m["message"])
}

// TestCreateBookHandler ensures api handler can create a book.
//
//nolint:funlen
func TestCreateBookHandler(t *testing.T) {
	mockRepo := &MockBookStorage{
		ExistsByIsbnFunc: func(ctx context.Context, isbn string) (bool, error) {
			return isbn == "978-0141439518", nil
		},
		SaveFunc: func(ctx context.Context, book Book) (Book, error) {
			book.ID = 1
			return book, nil
		},
	}
	api := newTestAPIHandler(mockRepo, nil)

	t.Run("should pass: valid payload", func(t *testing.T) {
		payload := []byte(`{"title":"Dune", "author":"Frank Herbert", "isbn":"978-0441013593"}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/books", bytes.NewBuffer(payload))
		w := httptest.NewRecorder()
		api.CreateBook(w, req, httprouter.Params{})
		status, body := readResponse(t, w)
		assert.Equal(t, http.StatusCreated, status)
		expected := `{"requestid":"", "status":201, "message":"Book created successfully.",
		"data":{"id":1, "title":"Dune", "author":"Frank Herbert", "isbn":"978-0441013593"}}`
		assert.JSONEq(t, expected, body)
	})

	t.Run("should fail: duplicate isbn", func(t *testing.T) {
		payload := []byte(`{"title":"Emma", "author":"Jane Austen", "isbn":"978-0141439518"}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/books", bytes.NewBuffer(payload))
		w := httptest.NewRecorder()
		api.CreateBook(w, req, httprouter.Params{})
		status, body := readResponse(t, w)
		assert.Equal(t, http.StatusBadRequest, status)
		expected := `{"requestid":"", "status":400, "message":"isbn already exists", "data":"isbn already exists"}`
		assert.JSONEq(t, expected, body)
	})

	t.Run("should fail: storage insertion failure", func(t *testing.T) {
		failing := &MockBookStorage{
			ExistsByIsbnFunc: func(ctx context.Context, isbn string) (bool, error) {
				return false, nil
			},
			SaveFunc: func(ctx context.Context, book Book) (Book, error) {
				return book, errors.New("storage failure")
			},
		}
		api := newTestAPIHandler(failing, nil)
		payload := []byte(`{"title":"Dune", "author":"Frank Herbert", "isbn":"978-0441013593"}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/books", bytes.NewBuffer(payload))
		w := httptest.NewRecorder()
		api.CreateBook(w, req, httprouter.Params{})
		status, body := readResponse(t, w)
		assert.Equal(t, http.StatusInternalServerError, status)
		expected := `{"requestid":"", "status":500, "message":"internal error",
		"data":{"id":0, "title":"Dune", "author":"Frank Herbert", "isbn":"978-0441013593"}}`
		assert.JSONEq(t, expected, body)
	})

	t.Run("should fail: invalid payload", func(t *testing.T) {
		payload := []byte(`{"title":1, "author":"Frank Herbert", "isbn":"978-0441013593"}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/books", bytes.NewBuffer(payload))
		w := httptest.NewRecorder()
		api.CreateBook(w, req, httprouter.Params{})
		status, body := readResponse(t, w)
		assert.Equal(t, http.StatusBadRequest, status)
		expected := `{"requestid":"", "status":400, "message":"failed to create the book",
		"data":{"id":0, "title":"", "author":"Frank Herbert", "isbn":"978-0441013593"}}`
		assert.JSONEq(t, expected, body)
	})

	t.Run("should fail: required field in payload", func(t *testing.T) {
		testCases := []struct {
			name     string
			payload  []byte
			expected string
		}{
			{
				name:     "empty title",
				payload:  []byte(`{"title":"", "author":"Frank Herbert", "isbn":"978-0441013593"}`),
				expected: `{"requestid":"", "status":400, "message":"failed to create the book", "data":"title is required"}`,
			},
			{
				name:     "missing author",
				payload:  []byte(`{"title":"Dune", "isbn":"978-0441013593"}`),
				expected: `{"requestid":"", "status":400, "message":"failed to create the book", "data":"author is required"}`,
			},
			{
				name:     "blank isbn",
				payload:  []byte(`{"title":"Dune", "author":"Frank Herbert", "isbn":"  "}`),
				expected: `{"requestid":"", "status":400, "message":"failed to create the book", "data":"isbn is required"}`,
			},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				req := httptest.NewRequest(http.MethodPost, "/v1/books", bytes.NewBuffer(tc.payload))
				w := httptest.NewRecorder()
				api.CreateBook(w, req, httprouter.Params{})
				status, body := readResponse(t, w)
				assert.Equal(t, http.StatusBadRequest, status)
				assert.JSONEq(t, tc.expected, body)
			})
		}
	})
}

func TestGetAllBooksHandler(t *testing.T) {
	var gotCriteria BookCriteria
	var gotPage PageRequest
	mockRepo := &MockBookStorage{
		FindAllFunc: func(ctx context.Context) ([]Book, error) {
			return []Book{
				{ID: 1, Title: "Dune", Author: "Frank Herbert", Isbn: "111"},
				{ID: 2, Title: "Emma", Author: "Jane Austen", Isbn: "222"},
			}, nil
		},
		FindByExampleFunc: func(ctx context.Context, criteria BookCriteria, page PageRequest) ([]Book, int64, error) {
			gotCriteria, gotPage = criteria, page
			return []Book{{ID: 1, Title: "Dune", Author: "Frank Herbert", Isbn: "111"}}, 3, nil
		},
	}
	api := newTestAPIHandler(mockRepo, nil)

	t.Run("should pass: list all", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/books", nil)
		w := httptest.NewRecorder()
		api.GetAllBooks(w, req, httprouter.Params{})
		status, body := readResponse(t, w)
		assert.Equal(t, http.StatusOK, status)
		expected := `{"requestid":"", "status":200, "message":"All books fetched successfully.", "total":2,
		"data":[{"id":1, "title":"Dune", "author":"Frank Herbert", "isbn":"111"},
		{"id":2, "title":"Emma", "author":"Jane Austen", "isbn":"222"}]}`
		assert.JSONEq(t, expected, body)
	})

	t.Run("should pass: search with criteria", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/books?title=DUN&author=herb&page=1&size=1", nil)
		w := httptest.NewRecorder()
		api.GetAllBooks(w, req, httprouter.Params{})
		status, body := readResponse(t, w)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, BookCriteria{Title: "DUN", Author: "herb"}, gotCriteria)
		assert.Equal(t, PageRequest{Number: 1, Size: 1}, gotPage)
		expected := `{"requestid":"", "status":200, "message":"Books searched successfully.", "total":3,
		"data":{"content":[{"id":1, "title":"Dune", "author":"Frank Herbert", "isbn":"111"}],
		"totalElements":3, "totalPages":3, "pageNumber":1, "pageSize":1}}`
		assert.JSONEq(t, expected, body)
	})

	t.Run("should pass: size capped to max", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/books?size=1000", nil)
		w := httptest.NewRecorder()
		api.GetAllBooks(w, req, httprouter.Params{})
		status, _ := readResponse(t, w)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, PageRequest{Number: 0, Size: 100}, gotPage)
	})

	t.Run("should fail: invalid page size", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/books?size=abc", nil)
		w := httptest.NewRecorder()
		api.GetAllBooks(w, req, httprouter.Params{})
		status, body := readResponse(t, w)
		assert.Equal(t, http.StatusBadRequest, status)
		expected := `{"requestid":"", "status":400, "message":"failed to search books", "data":"size is not valid"}`
		assert.JSONEq(t, expected, body)
	})
}

func TestGetOneBookHandler(t *testing.T) {
	mockRepo := &MockBookStorage{
		FindByIDFunc: func(ctx context.Context, id int64) (Book, error) {
			if id == 1 {
				return Book{ID: 1, Title: "Dune", Author: "Frank Herbert", Isbn: "111"}, nil
			}
			return Book{}, ErrBookNotFound
		},
	}
	api := newTestAPIHandler(mockRepo, nil)

	testCases := []struct {
		name     string
		id       string
		status   int
		expected string
	}{
		{
			name:     "existing book",
			id:       "1",
			status:   http.StatusOK,
			expected: `{"requestid":"", "status":200, "message":"Book fetched successfully.", "data":{"id":1, "title":"Dune", "author":"Frank Herbert", "isbn":"111"}}`,
		},
		{
			name:     "missing book",
			id:       "2",
			status:   http.StatusNotFound,
			expected: `{"requestid":"", "status":404, "message":"book does not exist", "data":{"id":0, "title":"", "author":"", "isbn":""}}`,
		},
		{
			name:     "invalid id",
			id:       "abc",
			status:   http.StatusBadRequest,
			expected: `{"requestid":"", "status":400, "message":"book id provided is not valid", "data":{"id":0, "title":"", "author":"", "isbn":""}}`,
		},
		{
			name:     "negative id",
			id:       "-4",
			status:   http.StatusBadRequest,
			expected: `{"requestid":"", "status":400, "message":"book id provided is not valid", "data":{"id":0, "title":"", "author":"", "isbn":""}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/books/"+tc.id, nil)
			w := httptest.NewRecorder()
			api.GetOneBook(w, req, idParam(tc.id))
			status, body := readResponse(t, w)
			assert.Equal(t, tc.status, status)
			assert.JSONEq(t, tc.expected, body)
		})
	}
}

func TestUpdateBookHandler(t *testing.T) {
	var updated Book
	mockRepo := &MockBookStorage{
		FindByIDFunc: func(ctx context.Context, id int64) (Book, error) {
			if id == 1 {
				return Book{ID: 1, Title: "Dune", Author: "Frank Herbert", Isbn: "111"}, nil
			}
			return Book{}, ErrBookNotFound
		},
		UpdateFunc: func(ctx context.Context, book Book) (Book, error) {
			updated = book
			return book, nil
		},
	}
	api := newTestAPIHandler(mockRepo, nil)

	t.Run("should pass: isbn is kept", func(t *testing.T) {
		payload := []byte(`{"title":"Dune Messiah", "author":"F. Herbert", "isbn":"999"}`)
		req := httptest.NewRequest(http.MethodPut, "/v1/books/1", bytes.NewBuffer(payload))
		w := httptest.NewRecorder()
		api.UpdateBook(w, req, idParam("1"))
		status, body := readResponse(t, w)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, Book{ID: 1, Title: "Dune Messiah", Author: "F. Herbert", Isbn: "111"}, updated)
		expected := `{"requestid":"", "status":200, "message":"Book updated successfully.",
		"data":{"id":1, "title":"Dune Messiah", "author":"F. Herbert", "isbn":"111"}}`
		assert.JSONEq(t, expected, body)
	})

	t.Run("should fail: missing book", func(t *testing.T) {
		payload := []byte(`{"title":"Dune Messiah", "author":"F. Herbert"}`)
		req := httptest.NewRequest(http.MethodPut, "/v1/books/5", bytes.NewBuffer(payload))
		w := httptest.NewRecorder()
		api.UpdateBook(w, req, idParam("5"))
		status, _ := readResponse(t, w)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("should fail: empty title", func(t *testing.T) {
		payload := []byte(`{"title":"", "author":"F. Herbert"}`)
		req := httptest.NewRequest(http.MethodPut, "/v1/books/1", bytes.NewBuffer(payload))
		w := httptest.NewRecorder()
		api.UpdateBook(w, req, idParam("1"))
		status, body := readResponse(t, w)
		assert.Equal(t, http.StatusBadRequest, status)
		expected := `{"requestid":"", "status":400, "message":"failed to update the book", "data":"title is required"}`
		assert.JSONEq(t, expected, body)
	})
}

func TestDeleteOneBookHandler(t *testing.T) {
	mockRepo := &MockBookStorage{
		FindByIDFunc: func(ctx context.Context, id int64) (Book, error) {
			switch id {
			case 1, 2:
				return Book{ID: id, Title: "Dune", Author: "Frank Herbert", Isbn: "111"}, nil
			default:
				return Book{}, ErrBookNotFound
			}
		},
		DeleteFunc: func(ctx context.Context, id int64) error {
			if id == 2 {
				return ErrBookHasLoans
			}
			return nil
		},
	}
	api := newTestAPIHandler(mockRepo, nil)

	testCases := []struct {
		name     string
		id       string
		status   int
		expected string
	}{
		{
			name:     "deleted",
			id:       "1",
			status:   http.StatusOK,
			expected: `{"requestid":"", "status":200, "message":"Book deleted successfully.", "data":{"id":1, "title":"Dune", "author":"Frank Herbert", "isbn":"111"}}`,
		},
		{
			name:     "book with loans",
			id:       "2",
			status:   http.StatusConflict,
			expected: `{"requestid":"", "status":409, "message":"book has loans", "data":{"id":2, "title":"Dune", "author":"Frank Herbert", "isbn":"111"}}`,
		},
		{
			name:     "missing book",
			id:       "3",
			status:   http.StatusNotFound,
			expected: `{"requestid":"", "status":404, "message":"book does not exist", "data":{"id":0, "title":"", "author":"", "isbn":""}}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/v1/books/"+tc.id, nil)
			w := httptest.NewRecorder()
			api.DeleteOneBook(w, req, idParam(tc.id))
			status, body := readResponse(t, w)
			assert.Equal(t, tc.status, status)
			assert.JSONEq(t, tc.expected, body)
		})
	}
}
