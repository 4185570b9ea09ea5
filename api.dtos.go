package main

// BookDTO is the book representation exchanged over the api.
type BookDTO struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Isbn   string `json:"isbn"`
}

// LoanDTO is the loan representation exchanged over the api.
type LoanDTO struct {
	ID       int64    `json:"id"`
	Isbn     string   `json:"isbn"`
	Customer string   `json:"customer"`
	LoanDate string   `json:"loanDate"`
	Returned bool     `json:"returned"`
	Book     *BookDTO `json:"book,omitempty"`
}

// LoanRequest is the payload to borrow a book.
type LoanRequest struct {
	Isbn     string `json:"isbn"`
	Customer string `json:"customer"`
}

// LoanReturnedRequest is the payload to mark a loan as returned.
type LoanReturnedRequest struct {
	Returned *bool `json:"returned"`
}

// PageDTO is the paginated result sent by search endpoints.
type PageDTO[T any] struct {
	Content    []T   `json:"content"`
	Total      int64 `json:"totalElements"`
	TotalPages int   `json:"totalPages"`
	PageNumber int   `json:"pageNumber"`
	PageSize   int   `json:"pageSize"`
}

func NewBookDTO(book Book) BookDTO {
	return BookDTO{
		ID:     book.ID,
		Title:  book.Title,
		Author: book.Author,
		Isbn:   book.Isbn,
	}
}

func NewBookDTOs(books []Book) []BookDTO {
	dtos := make([]BookDTO, 0, len(books))
	for _, book := range books {
		dtos = append(dtos, NewBookDTO(book))
	}
	return dtos
}

func (dto BookDTO) ToBook() Book {
	return Book{
		ID:     dto.ID,
		Title:  dto.Title,
		Author: dto.Author,
		Isbn:   dto.Isbn,
	}
}

// NewLoanDTO maps a loan and embeds its book.
func NewLoanDTO(loan Loan) LoanDTO {
	book := NewBookDTO(loan.Book)
	dto := LoanDTO{
		ID:       loan.ID,
		Isbn:     loan.Book.Isbn,
		Customer: loan.Customer,
		Returned: loan.Returned,
		Book:     &book,
	}
	if !loan.LoanDate.IsZero() {
		dto.LoanDate = loan.LoanDate.Format(LoanDateLayout)
	}
	return dto
}

func NewLoanDTOs(loans []Loan) []LoanDTO {
	dtos := make([]LoanDTO, 0, len(loans))
	for _, loan := range loans {
		dtos = append(dtos, NewLoanDTO(loan))
	}
	return dtos
}

// NewPageDTO maps the content of a page with the given function.
func NewPageDTO[T, D any](page Page[T], mapper func([]T) []D) PageDTO[D] {
	return PageDTO[D]{
		Content:    mapper(page.Content),
		Total:      page.Total,
		TotalPages: page.TotalPages(),
		PageNumber: page.PageNumber,
		PageSize:   page.PageSize,
	}
}
