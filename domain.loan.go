package main

import (
	"context"
	"time"
)

// LoanDateLayout is the layout used to expose loan dates.
const LoanDateLayout = "2006-01-02"

// Loan represents a book lent to a customer. A loan is open as
// long as Returned is false. A book has at most one open loan.
type Loan struct {
	ID       int64     `json:"id"`
	Book     Book      `json:"book"`
	Customer string    `json:"customer"`
	LoanDate time.Time `json:"loanDate"`
	Returned bool      `json:"returned"`
}

// IsOpen reports whether the loan is still outstanding.
func (l Loan) IsOpen() bool {
	return !l.Returned
}

// LoanCriteria filters loans by the isbn of the lent book OR by the customer.
type LoanCriteria struct {
	Isbn     string `json:"isbn"`
	Customer string `json:"customer"`
}

// LoanStorage defines possible operations on loan entity.
type LoanStorage interface {
	ExistsOutstandingLoan(ctx context.Context, book Book) (bool, error)
	Save(ctx context.Context, loan Loan) (Loan, error)
	Update(ctx context.Context, loan Loan) (Loan, error)
	FindByID(ctx context.Context, id int64) (Loan, error)
	FindByIsbnOrCustomer(ctx context.Context, isbn, customer string, page PageRequest) ([]Loan, int64, error)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
