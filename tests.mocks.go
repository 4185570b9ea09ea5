package main

import (
	"context"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

type MockBookStorage struct {
	ExistsByIsbnFunc  func(ctx context.Context, isbn string) (bool, error)
	SaveFunc          func(ctx context.Context, book Book) (Book, error)
	UpdateFunc        func(ctx context.Context, book Book) (Book, error)
	FindAllFunc       func(ctx context.Context) ([]Book, error)
	FindByIDFunc      func(ctx context.Context, id int64) (Book, error)
	FindByIsbnFunc    func(ctx context.Context, isbn string) (Book, error)
	DeleteFunc        func(ctx context.Context, id int64) error
	FindByExampleFunc func(ctx context.Context, criteria BookCriteria, page PageRequest) ([]Book, int64, error)
}

// ExistsByIsbn mocks the isbn uniqueness lookup by the repository.
func (m *MockBookStorage) ExistsByIsbn(ctx context.Context, isbn string) (bool, error) {
	return m.ExistsByIsbnFunc(ctx, isbn)
}

// Save mocks the behavior of book creation by the repository.
func (m *MockBookStorage) Save(ctx context.Context, book Book) (Book, error) {
	return m.SaveFunc(ctx, book)
}

// Update mocks the behavior of updating a book by the repository.
func (m *MockBookStorage) Update(ctx context.Context, book Book) (Book, error) {
	return m.UpdateFunc(ctx, book)
}

// FindAll mocks the behavior of retrieving all books by the repository.
func (m *MockBookStorage) FindAll(ctx context.Context) ([]Book, error) {
	return m.FindAllFunc(ctx)
}

// FindByID mocks the behavior of retrieving a book by the repository.
func (m *MockBookStorage) FindByID(ctx context.Context, id int64) (Book, error) {
	return m.FindByIDFunc(ctx, id)
}

func (m *MockBookStorage) FindByIsbn(ctx context.Context, isbn string) (Book, error) {
	return m.FindByIsbnFunc(ctx, isbn)
}

// Delete mocks the behavior of deleting a book by the repository.
func (m *MockBookStorage) Delete(ctx context.Context, id int64) error {
	return m.DeleteFunc(ctx, id)
}

func (m *MockBookStorage) FindByExample(ctx context.Context, criteria BookCriteria, page PageRequest) ([]Book, int64, error) {
	return m.FindByExampleFunc(ctx, criteria, page)
}

type MockLoanStorage struct {
	ExistsOutstandingLoanFunc func(ctx context.Context, book Book) (bool, error)
	SaveFunc                  func(ctx context.Context, loan Loan) (Loan, error)
	UpdateFunc                func(ctx context.Context, loan Loan) (Loan, error)
	FindByIDFunc              func(ctx context.Context, id int64) (Loan, error)
	FindByIsbnOrCustomerFunc  func(ctx context.Context, isbn, customer string, page PageRequest) ([]Loan, int64, error)
}

// ExistsOutstandingLoan mocks the open loan lookup by the repository.
func (m *MockLoanStorage) ExistsOutstandingLoan(ctx context.Context, book Book) (bool, error) {
	return m.ExistsOutstandingLoanFunc(ctx, book)
}

// Save mocks the behavior of loan creation by the repository.
func (m *MockLoanStorage) Save(ctx context.Context, loan Loan) (Loan, error) {
	return m.SaveFunc(ctx, loan)
}

func (m *MockLoanStorage) Update(ctx context.Context, loan Loan) (Loan, error) {
	return m.UpdateFunc(ctx, loan)
}

func (m *MockLoanStorage) FindByID(ctx context.Context, id int64) (Loan, error) {
	return m.FindByIDFunc(ctx, id)
}

func (m *MockLoanStorage) FindByIsbnOrCustomer(ctx context.Context, isbn, customer string, page PageRequest) ([]Loan, int64, error) {
	return m.FindByIsbnOrCustomerFunc(ctx, isbn, customer, page)
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// Add moves the mocked time forward.
func (mck *MockClocker) Add(d time.Duration) {
	mck.MockNow = mck.MockNow.Add(d)
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}
