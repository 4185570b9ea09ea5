package main

import "context"

// Book represents a catalog entry. The ID is assigned by
// the storage on creation and never changes afterwards.
type Book struct {
	ID     int64  `json:"id" db:"id"`
	Title  string `json:"title" db:"title"`
	Author string `json:"author" db:"author"`
	Isbn   string `json:"isbn" db:"isbn"`
}

// BookCriteria is a partially filled book used as search example.
// Empty fields act as wildcards, others must be contained in the
// corresponding stored field regardless of the case.
type BookCriteria struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Isbn   string `json:"isbn"`
}

// IsEmpty tells if no field is set on the criteria.
func (c BookCriteria) IsEmpty() bool {
	return c.Title == "" && c.Author == "" && c.Isbn == ""
}

// BookStorage defines possible operations on book entity.
type BookStorage interface {
	ExistsByIsbn(ctx context.Context, isbn string) (bool, error)
	Save(ctx context.Context, book Book) (Book, error)
	Update(ctx context.Context, book Book) (Book, error)
	FindAll(ctx context.Context) ([]Book, error)
	FindByID(ctx context.Context, id int64) (Book, error)
	FindByIsbn(ctx context.Context, isbn string) (Book, error)
	Delete(ctx context.Context, id int64) error
	FindByExample(ctx context.Context, criteria BookCriteria, page PageRequest) ([]Book, int64, error)
}
