package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// loanRow is a loan joined with its book as read from the database.
type loanRow struct {
	ID       int64     `db:"id"`
	Customer string    `db:"customer"`
	LoanDate time.Time `db:"loan_date"`
	Returned bool      `db:"returned"`
	BookID   int64     `db:"book_id"`
	Title    string    `db:"title"`
	Author   string    `db:"author"`
	Isbn     string    `db:"isbn"`
}

func (r loanRow) toLoan() Loan {
	return Loan{
		ID:       r.ID,
		Customer: r.Customer,
		LoanDate: r.LoanDate,
		Returned: r.Returned,
		Book: Book{
			ID:     r.BookID,
			Title:  r.Title,
			Author: r.Author,
			Isbn:   r.Isbn,
		},
	}
}

type sqlLoanStorage struct {
	sqlStore
}

// NewSQLLoanStorage provides a loan storage backed by a sql database.
func NewSQLLoanStorage(logger *zap.Logger, db *sqlx.DB) LoanStorage {
	return &sqlLoanStorage{newSQLStore(logger, db)}
}

// loansWithBooks selects loans joined with their books.
func (s *sqlLoanStorage) loansWithBooks() *goqu.SelectDataset {
	return s.dialect.From(goqu.T(tableLoans).As("l")).
		Join(goqu.T(tableBooks).As("b"), goqu.On(goqu.I("l."+colBookID).Eq(goqu.I("b."+colID)))).
		Prepared(true)
}

func (s *sqlLoanStorage) ExistsOutstandingLoan(ctx context.Context, book Book) (bool, error) {
	return s.existsOutstanding(ctx, s.db, book.ID)
}

func (s *sqlLoanStorage) existsOutstanding(ctx context.Context, q sqlx.QueryerContext, bookID int64) (bool, error) {
	query, args, err := s.dialect.From(tableLoans).
		Select(goqu.COUNT("*")).
		Where(goqu.C(colBookID).Eq(bookID), goqu.C(colReturned).IsFalse()).
		Prepared(true).ToSQL()
	if err != nil {
		return false, err
	}
	var count int64
	if err = sqlx.GetContext(ctx, q, &count, query, args...); err != nil {
		return false, fmt.Errorf("failed to count outstanding loans: %w", err)
	}
	return count > 0, nil
}

// Save checks for an outstanding loan and inserts the new one in a single
// transaction. The partial unique index rejects a concurrent insertion.
func (s *sqlLoanStorage) Save(ctx context.Context, loan Loan) (Loan, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return loan, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	loaned, err := s.existsOutstanding(ctx, tx, loan.Book.ID)
	if err != nil {
		return loan, err
	}
	if loaned {
		return loan, ErrBookAlreadyLoaned
	}

	ds := s.dialect.Insert(tableLoans).
		Rows(goqu.Record{
			colBookID:   loan.Book.ID,
			colCustomer: loan.Customer,
			colLoanDate: loan.LoanDate,
			colReturned: false,
		}).
		Prepared(true)

	if s.returning {
		query, args, err := ds.Returning(colID).ToSQL()
		if err != nil {
			return loan, err
		}
		s.logQuery("loans.save", query, args)
		err = tx.QueryRowxContext(ctx, query, args...).Scan(&loan.ID)
		if err != nil {
			return loan, s.mapInsertError(err)
		}
	} else {
		query, args, err := ds.ToSQL()
		if err != nil {
			return loan, err
		}
		s.logQuery("loans.save", query, args)
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return loan, s.mapInsertError(err)
		}
		if loan.ID, err = res.LastInsertId(); err != nil {
			return loan, err
		}
	}

	if err = tx.Commit(); err != nil {
		return loan, s.mapInsertError(err)
	}
	loan.Returned = false
	return loan, nil
}

func (s *sqlLoanStorage) mapInsertError(err error) error {
	switch {
	case isUniqueViolation(err):
		return ErrBookAlreadyLoaned
	case isForeignKeyViolation(err):
		return ErrBookNotFound
	default:
		return fmt.Errorf("failed to save loan: %w", err)
	}
}

// Update persists the returned flag only.
func (s *sqlLoanStorage) Update(ctx context.Context, loan Loan) (Loan, error) {
	query, args, err := s.dialect.Update(tableLoans).
		Set(goqu.Record{colReturned: loan.Returned}).
		Where(goqu.C(colID).Eq(loan.ID)).
		Prepared(true).ToSQL()
	if err != nil {
		return loan, err
	}
	s.logQuery("loans.update", query, args)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return loan, ErrBookAlreadyLoaned
		}
		return loan, fmt.Errorf("failed to update loan: %w", err)
	}
	if err = checkAffected(res, ErrLoanNotFound); err != nil {
		return loan, err
	}
	return s.FindByID(ctx, loan.ID)
}

func (s *sqlLoanStorage) FindByID(ctx context.Context, id int64) (Loan, error) {
	query, args, err := s.loansWithBooks().
		Select(loanColumns()...).
		Where(goqu.I("l." + colID).Eq(id)).
		ToSQL()
	if err != nil {
		return Loan{}, err
	}
	var row loanRow
	err = s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return Loan{}, ErrLoanNotFound
	}
	if err != nil {
		return Loan{}, fmt.Errorf("failed to fetch loan: %w", err)
	}
	return row.toLoan(), nil
}

// FindByIsbnOrCustomer returns loans whose book has exactly the isbn or whose
// customer is exactly the customer. Empty values are not used as filters.
func (s *sqlLoanStorage) FindByIsbnOrCustomer(ctx context.Context, isbn, customer string, page PageRequest) ([]Loan, int64, error) {
	var filters []goqu.Expression
	if isbn != "" {
		filters = append(filters, goqu.I("b."+colIsbn).Eq(isbn))
	}
	if customer != "" {
		filters = append(filters, goqu.I("l."+colCustomer).Eq(customer))
	}
	if len(filters) == 0 {
		return []Loan{}, 0, nil
	}

	ds := s.loansWithBooks().Where(goqu.Or(filters...))

	query, args, err := ds.Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err = s.db.GetContext(ctx, &total, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count loans: %w", err)
	}
	if total == 0 || page.Offset() >= int(total) {
		return []Loan{}, total, nil
	}

	query, args, err = ds.Select(loanColumns()...).
		Order(goqu.I("l." + colID).Asc()).
		Limit(uint(page.Size)).
		Offset(uint(page.Offset())).
		ToSQL()
	if err != nil {
		return nil, 0, err
	}
	s.logQuery("loans.search", query, args)

	var rows []loanRow
	if err = s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to search loans: %w", err)
	}
	loans := make([]Loan, 0, len(rows))
	for _, row := range rows {
		loans = append(loans, row.toLoan())
	}
	return loans, total, nil
}

func loanColumns() []interface{} {
	return []interface{}{
		goqu.I("l." + colID).As(colID),
		goqu.I("l." + colCustomer).As(colCustomer),
		goqu.I("l." + colLoanDate).As(colLoanDate),
		goqu.I("l." + colReturned).As(colReturned),
		goqu.I("b." + colID).As(colBookID),
		goqu.I("b." + colTitle).As(colTitle),
		goqu.I("b." + colAuthor).As(colAuthor),
		goqu.I("b." + colIsbn).As(colIsbn),
	}
}
