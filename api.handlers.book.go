package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// CreateBook godoc
// @Summary      Create a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Param        book  body      BookDTO  true  "book to create"
// @Success      201   {object}  APIResponse
// @Failure      400   {object}  APIError
// @Router       /v1/books [post]
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var dto BookDTO
	if err := DecodeRequestBody(r, &dto); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to create the book", dto, err)
		return
	}

	if err := ValidateBookRequestBody(&dto); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to create the book", err.Error(), err)
		return
	}

	book, err := api.bookService.Save(r.Context(), dto.ToBook())
	if err != nil {
		api.sendServiceError(w, r, err, dto)
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to create book", zap.Int64("book.id", book.ID))
	api.send(w, r, http.StatusCreated, "Book created successfully.", nil, NewBookDTO(book))
}

// GetAllBooks godoc
// @Summary      List or search books
// @Description  Without query parameters all books are returned. Any of title, author,
// @Description  isbn, page or size switches to a paginated case-insensitive search.
// @Tags         books
// @Produce      json
// @Param        title   query     string  false  "title contains"
// @Param        author  query     string  false  "author contains"
// @Param        isbn    query     string  false  "isbn contains"
// @Param        page    query     int     false  "zero-based page number"
// @Param        size    query     int     false  "page size"
// @Success      200     {object}  APIResponse
// @Failure      400     {object}  APIError
// @Router       /v1/books [get]
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if HasSearchParams(r.URL.Query()) {
		api.SearchBooks(w, r, ps)
		return
	}

	books, err := api.bookService.FindAll(r.Context())
	if err != nil {
		api.sendError(w, r, http.StatusInternalServerError, "failed to get all books", []BookDTO{}, err)
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to get all books")
	total := int64(len(books))
	api.send(w, r, http.StatusOK, "All books fetched successfully.", &total, NewBookDTOs(books))
}

// SearchBooks runs a paginated search where every provided field must be
// contained in the corresponding book field regardless of the case.
func (api *APIHandler) SearchBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	page, err := ParsePageRequest(q, api.config.Pagination)
	if err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to search books", err.Error(), err)
		return
	}
	criteria := BookCriteria{
		Title:  q.Get("title"),
		Author: q.Get("author"),
		Isbn:   q.Get("isbn"),
	}

	result, err := api.bookService.Find(r.Context(), criteria, page)
	if err != nil {
		api.sendError(w, r, http.StatusInternalServerError, "failed to search books", EmptyData, err)
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to search books", zap.Int64("search.total", result.Total))
	api.send(w, r, http.StatusOK, "Books searched successfully.", &result.Total, NewPageDTO(result, NewBookDTOs))
}

// GetOneBook godoc
// @Summary      Get a book
// @Tags         books
// @Produce      json
// @Param        id   path      int  true  "book id"
// @Success      200  {object}  APIResponse
// @Failure      400  {object}  APIError
// @Failure      404  {object}  APIError
// @Router       /v1/books/{id} [get]
func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	book, ok := api.lookupBook(w, r, ps)
	if !ok {
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to get book", zap.Int64("book.id", book.ID))
	api.send(w, r, http.StatusOK, "Book fetched successfully.", nil, NewBookDTO(book))
}

// UpdateBook godoc
// @Summary      Update the title and the author of a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Param        id    path      int      true  "book id"
// @Param        book  body      BookDTO  true  "new values"
// @Success      200   {object}  APIResponse
// @Failure      400   {object}  APIError
// @Failure      404   {object}  APIError
// @Router       /v1/books/{id} [put]
func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var dto BookDTO
	if err := DecodeRequestBody(r, &dto); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to update the book", dto, err)
		return
	}

	book, ok := api.lookupBook(w, r, ps)
	if !ok {
		return
	}

	// the isbn identifies the book and is kept as stored.
	book.Title = dto.Title
	book.Author = dto.Author
	if err := ValidateBookRequestBody(&BookDTO{Title: book.Title, Author: book.Author, Isbn: book.Isbn}); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to update the book", err.Error(), err)
		return
	}

	book, err := api.bookService.Update(r.Context(), &book)
	if err != nil {
		api.sendServiceError(w, r, err, dto)
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to update book", zap.Int64("book.id", book.ID))
	api.send(w, r, http.StatusOK, "Book updated successfully.", nil, NewBookDTO(book))
}

// DeleteOneBook godoc
// @Summary      Delete a book
// @Tags         books
// @Produce      json
// @Param        id   path      int  true  "book id"
// @Success      200  {object}  APIResponse
// @Failure      404  {object}  APIError
// @Failure      409  {object}  APIError
// @Router       /v1/books/{id} [delete]
func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	book, ok := api.lookupBook(w, r, ps)
	if !ok {
		return
	}

	if err := api.bookService.Delete(r.Context(), &book); err != nil {
		api.sendServiceError(w, r, err, NewBookDTO(book))
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to delete book", zap.Int64("book.id", book.ID))
	api.send(w, r, http.StatusOK, "Book deleted successfully.", nil, NewBookDTO(book))
}

// lookupBook loads the book referenced by the id path parameter.
// It sends the error response and returns false on failure.
func (api *APIHandler) lookupBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (Book, bool) {
	id, err := ParseID(ps.ByName("id"))
	if err != nil {
		api.sendError(w, r, http.StatusBadRequest, "book id provided is not valid", BookDTO{}, err)
		return Book{}, false
	}

	book, found, err := api.bookService.FindByID(r.Context(), id)
	if err != nil {
		api.sendError(w, r, http.StatusInternalServerError, "failed to get the book", BookDTO{}, err)
		return Book{}, false
	}
	if !found {
		api.sendError(w, r, http.StatusNotFound, "book does not exist", BookDTO{}, ErrBookNotFound)
		return Book{}, false
	}
	return book, true
}
