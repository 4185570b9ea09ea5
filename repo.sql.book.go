package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var bookColumns = []interface{}{colID, colTitle, colAuthor, colIsbn}

type sqlBookStorage struct {
	sqlStore
}

// NewSQLBookStorage provides a book storage backed by a sql database.
func NewSQLBookStorage(logger *zap.Logger, db *sqlx.DB) BookStorage {
	return &sqlBookStorage{newSQLStore(logger, db)}
}

func (s *sqlBookStorage) ExistsByIsbn(ctx context.Context, isbn string) (bool, error) {
	query, args, err := s.dialect.From(tableBooks).
		Select(goqu.COUNT("*")).
		Where(goqu.C(colIsbn).Eq(isbn)).
		Prepared(true).ToSQL()
	if err != nil {
		return false, err
	}
	var count int64
	if err = s.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("failed to count books by isbn: %w", err)
	}
	return count > 0, nil
}

func (s *sqlBookStorage) Save(ctx context.Context, book Book) (Book, error) {
	ds := s.dialect.Insert(tableBooks).
		Rows(goqu.Record{colTitle: book.Title, colAuthor: book.Author, colIsbn: book.Isbn}).
		Prepared(true)

	var err error
	if s.returning {
		var query string
		var args []interface{}
		if query, args, err = ds.Returning(colID).ToSQL(); err != nil {
			return book, err
		}
		s.logQuery("books.save", query, args)
		err = s.db.QueryRowxContext(ctx, query, args...).Scan(&book.ID)
	} else {
		book.ID, err = s.insert(ctx, ds)
	}

	if err != nil {
		if isUniqueViolation(err) {
			return book, ErrDuplicateIsbn
		}
		return book, fmt.Errorf("failed to save book: %w", err)
	}
	return book, nil
}

func (s *sqlBookStorage) insert(ctx context.Context, ds *goqu.InsertDataset) (int64, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, err
	}
	s.logQuery("books.save", query, args)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Update changes the title and the author. The isbn is immutable.
func (s *sqlBookStorage) Update(ctx context.Context, book Book) (Book, error) {
	query, args, err := s.dialect.Update(tableBooks).
		Set(goqu.Record{colTitle: book.Title, colAuthor: book.Author}).
		Where(goqu.C(colID).Eq(book.ID)).
		Prepared(true).ToSQL()
	if err != nil {
		return book, err
	}
	s.logQuery("books.update", query, args)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return book, fmt.Errorf("failed to update book: %w", err)
	}
	if err = checkAffected(res, ErrBookNotFound); err != nil {
		return book, err
	}
	return s.FindByID(ctx, book.ID)
}

func (s *sqlBookStorage) FindAll(ctx context.Context) ([]Book, error) {
	query, args, err := s.dialect.From(tableBooks).
		Select(bookColumns...).
		Order(goqu.C(colID).Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}
	books := []Book{}
	if err = s.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch books: %w", err)
	}
	return books, nil
}

func (s *sqlBookStorage) FindByID(ctx context.Context, id int64) (Book, error) {
	return s.findOne(ctx, goqu.C(colID).Eq(id))
}

func (s *sqlBookStorage) FindByIsbn(ctx context.Context, isbn string) (Book, error) {
	return s.findOne(ctx, goqu.C(colIsbn).Eq(isbn))
}

func (s *sqlBookStorage) findOne(ctx context.Context, where goqu.Expression) (Book, error) {
	query, args, err := s.dialect.From(tableBooks).
		Select(bookColumns...).
		Where(where).
		Limit(1).
		Prepared(true).ToSQL()
	if err != nil {
		return Book{}, err
	}
	var book Book
	err = s.db.GetContext(ctx, &book, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, ErrBookNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("failed to fetch book: %w", err)
	}
	return book, nil
}

// Delete removes a book. It fails with ErrBookHasLoans
// when any loan still references the book.
func (s *sqlBookStorage) Delete(ctx context.Context, id int64) error {
	query, args, err := s.dialect.Delete(tableBooks).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	s.logQuery("books.delete", query, args)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrBookHasLoans
		}
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return checkAffected(res, ErrBookNotFound)
}

// FindByExample matches every non-empty criteria field as a
// case-insensitive substring and returns the requested page
// ordered by id along with the total number of matches.
func (s *sqlBookStorage) FindByExample(ctx context.Context, criteria BookCriteria, page PageRequest) ([]Book, int64, error) {
	ds := s.dialect.From(tableBooks).Prepared(true)
	if criteria.Title != "" {
		ds = ds.Where(s.containsIgnoreCase(colTitle, criteria.Title))
	}
	if criteria.Author != "" {
		ds = ds.Where(s.containsIgnoreCase(colAuthor, criteria.Author))
	}
	if criteria.Isbn != "" {
		ds = ds.Where(s.containsIgnoreCase(colIsbn, criteria.Isbn))
	}

	query, args, err := ds.Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err = s.db.GetContext(ctx, &total, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}
	if total == 0 || page.Offset() >= int(total) {
		return []Book{}, total, nil
	}

	query, args, err = ds.Select(bookColumns...).
		Order(goqu.C(colID).Asc()).
		Limit(uint(page.Size)).
		Offset(uint(page.Offset())).
		ToSQL()
	if err != nil {
		return nil, 0, err
	}
	s.logQuery("books.search", query, args)

	books := []Book{}
	if err = s.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to search books: %w", err)
	}
	return books, total, nil
}
