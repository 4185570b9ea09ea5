package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type BookServiceProvider interface {
	Save(ctx context.Context, book Book) (Book, error)
	FindAll(ctx context.Context) ([]Book, error)
	FindByID(ctx context.Context, id int64) (Book, bool, error)
	FindByIsbn(ctx context.Context, isbn string) (Book, bool, error)
	Update(ctx context.Context, book *Book) (Book, error)
	Delete(ctx context.Context, book *Book) error
	Find(ctx context.Context, criteria BookCriteria, page PageRequest) (Page[Book], error)
}

type BookService struct {
	logger  *zap.Logger
	config  *Config
	storage BookStorage
}

func NewBookService(logger *zap.Logger, config *Config, storage BookStorage) BookServiceProvider {
	return &BookService{
		logger:  logger,
		config:  config,
		storage: storage,
	}
}

// Save persists a new book unless another book already uses its isbn.
func (bs *BookService) Save(ctx context.Context, book Book) (Book, error) {
	exists, err := bs.storage.ExistsByIsbn(ctx, book.Isbn)
	if err != nil {
		return book, err
	}
	if exists {
		bs.logger.Info("service: book isbn already exists", zap.String("book.isbn", book.Isbn))
		return book, ErrDuplicateIsbn
	}
	book.ID = 0
	return bs.storage.Save(ctx, book)
}

func (bs *BookService) FindAll(ctx context.Context) ([]Book, error) {
	return bs.storage.FindAll(ctx)
}

// FindByID fetches a book. A missing book is reported with
// a false flag and no error.
func (bs *BookService) FindByID(ctx context.Context, id int64) (Book, bool, error) {
	if id <= 0 {
		return Book{}, false, fmt.Errorf("%w: book id is required", ErrInvalidArgument)
	}
	return found(bs.storage.FindByID(ctx, id))
}

func (bs *BookService) FindByIsbn(ctx context.Context, isbn string) (Book, bool, error) {
	return found(bs.storage.FindByIsbn(ctx, isbn))
}

// Update persists the title and the author of an existing book.
func (bs *BookService) Update(ctx context.Context, book *Book) (Book, error) {
	if book == nil {
		return Book{}, fmt.Errorf("%w: book is required", ErrInvalidArgument)
	}
	if book.ID <= 0 {
		return *book, fmt.Errorf("%w: book id is required", ErrInvalidArgument)
	}
	return bs.storage.Update(ctx, *book)
}

func (bs *BookService) Delete(ctx context.Context, book *Book) error {
	if book == nil || book.ID <= 0 {
		return fmt.Errorf("%w: book with id is required", ErrInvalidArgument)
	}
	return bs.storage.Delete(ctx, book.ID)
}

// Find runs a case-insensitive contains search where
// all non-empty criteria fields must match.
func (bs *BookService) Find(ctx context.Context, criteria BookCriteria, page PageRequest) (Page[Book], error) {
	if err := page.Validate(); err != nil {
		return Page[Book]{}, err
	}
	books, total, err := bs.storage.FindByExample(ctx, criteria, page)
	if err != nil {
		return Page[Book]{}, err
	}
	return NewPage(books, total, page), nil
}
