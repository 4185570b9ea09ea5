package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type LoanServiceProvider interface {
	Save(ctx context.Context, loan Loan) (Loan, error)
	FindByID(ctx context.Context, id int64) (Loan, bool, error)
	Update(ctx context.Context, loan *Loan) (Loan, error)
	Find(ctx context.Context, criteria LoanCriteria, page PageRequest) (Page[Loan], error)
}

type LoanService struct {
	logger  *zap.Logger
	config  *Config
	clock   Clocker
	storage LoanStorage
}

func NewLoanService(logger *zap.Logger, config *Config, clock Clocker, storage LoanStorage) LoanServiceProvider {
	return &LoanService{
		logger:  logger,
		config:  config,
		clock:   clock,
		storage: storage,
	}
}

// Save opens a new loan for the referenced book. It fails if the book
// still has an outstanding loan. The storage repeats that check in the
// same transaction as the insertion.
func (ls *LoanService) Save(ctx context.Context, loan Loan) (Loan, error) {
	if loan.Book.ID <= 0 {
		return loan, fmt.Errorf("%w: loaned book id is required", ErrInvalidArgument)
	}

	loaned, err := ls.storage.ExistsOutstandingLoan(ctx, loan.Book)
	if err != nil {
		return loan, err
	}
	if loaned {
		ls.logger.Info("service: book already loaned", zap.Int64("book.id", loan.Book.ID), zap.String("loan.customer", loan.Customer))
		return loan, ErrBookAlreadyLoaned
	}

	loan.ID = 0
	loan.Returned = false
	loan.LoanDate = StartOfDay(ls.clock.Now())
	return ls.storage.Save(ctx, loan)
}

func (ls *LoanService) FindByID(ctx context.Context, id int64) (Loan, bool, error) {
	if id <= 0 {
		return Loan{}, false, fmt.Errorf("%w: loan id is required", ErrInvalidArgument)
	}
	return found(ls.storage.FindByID(ctx, id))
}

// Update persists the returned flag of a loan. A returned loan
// is final and cannot be opened again.
func (ls *LoanService) Update(ctx context.Context, loan *Loan) (Loan, error) {
	if loan == nil {
		return Loan{}, fmt.Errorf("%w: loan is required", ErrInvalidArgument)
	}
	if loan.ID <= 0 {
		return *loan, fmt.Errorf("%w: loan id is required", ErrInvalidArgument)
	}

	current, err := ls.storage.FindByID(ctx, loan.ID)
	if err != nil {
		return *loan, err
	}
	if current.Returned && !loan.Returned {
		return current, ErrLoanAlreadyReturned
	}
	return ls.storage.Update(ctx, *loan)
}

// Find returns loans whose book isbn equals the criteria isbn
// or whose customer equals the criteria customer.
func (ls *LoanService) Find(ctx context.Context, criteria LoanCriteria, page PageRequest) (Page[Loan], error) {
	if err := page.Validate(); err != nil {
		return Page[Loan]{}, err
	}
	if criteria.Isbn == "" && criteria.Customer == "" {
		return NewPage([]Loan{}, 0, page), nil
	}
	loans, total, err := ls.storage.FindByIsbnOrCustomer(ctx, criteria.Isbn, criteria.Customer, page)
	if err != nil {
		return Page[Loan]{}, err
	}
	return NewPage(loans, total, page), nil
}

// found turns storage not found errors into a false flag.
func found[T any](v T, err error) (T, bool, error) {
	if errors.Is(err, ErrBookNotFound) || errors.Is(err, ErrLoanNotFound) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		return v, false, err
	}
	return v, true, nil
}
