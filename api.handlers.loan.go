package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// CreateLoan godoc
// @Summary      Borrow a book
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        loan  body      LoanRequest  true  "isbn of the book and customer"
// @Success      201   {object}  APIResponse
// @Failure      400   {object}  APIError
// @Failure      404   {object}  APIError
// @Router       /v1/loans [post]
func (api *APIHandler) CreateLoan(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req LoanRequest
	if err := DecodeRequestBody(r, &req); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to create the loan", req, err)
		return
	}

	if err := ValidateLoanRequestBody(&req); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to create the loan", err.Error(), err)
		return
	}

	book, found, err := api.bookService.FindByIsbn(r.Context(), req.Isbn)
	if err != nil {
		api.sendError(w, r, http.StatusInternalServerError, "failed to create the loan", req, err)
		return
	}
	if !found {
		api.sendError(w, r, http.StatusNotFound, "book does not exist", req, ErrBookNotFound)
		return
	}

	loan, err := api.loanService.Save(r.Context(), Loan{Book: book, Customer: req.Customer})
	if err != nil {
		api.sendServiceError(w, r, err, req)
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to create loan",
		zap.Int64("loan.id", loan.ID),
		zap.Int64("book.id", book.ID),
	)
	api.send(w, r, http.StatusCreated, "Loan created successfully.", nil, NewLoanDTO(loan))
}

// ReturnLoan godoc
// @Summary      Update the returned flag of a loan
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        id    path      int                  true  "loan id"
// @Param        loan  body      LoanReturnedRequest  true  "returned flag"
// @Success      200   {object}  APIResponse
// @Failure      400   {object}  APIError
// @Failure      404   {object}  APIError
// @Failure      409   {object}  APIError
// @Router       /v1/loans/{id} [patch]
func (api *APIHandler) ReturnLoan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := ParseID(ps.ByName("id"))
	if err != nil {
		api.sendError(w, r, http.StatusBadRequest, "loan id provided is not valid", EmptyData, err)
		return
	}

	var req LoanReturnedRequest
	if err = DecodeRequestBody(r, &req); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to update the loan", EmptyData, err)
		return
	}
	if err = ValidateLoanReturnedRequestBody(&req); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to update the loan", err.Error(), err)
		return
	}

	loan, found, err := api.loanService.FindByID(r.Context(), id)
	if err != nil {
		api.sendError(w, r, http.StatusInternalServerError, "failed to update the loan", EmptyData, err)
		return
	}
	if !found {
		api.sendError(w, r, http.StatusNotFound, "loan does not exist", EmptyData, ErrLoanNotFound)
		return
	}

	loan.Returned = *req.Returned
	loan, err = api.loanService.Update(r.Context(), &loan)
	if err != nil {
		api.sendServiceError(w, r, err, NewLoanDTO(loan))
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to update loan",
		zap.Int64("loan.id", loan.ID),
		zap.Bool("loan.returned", loan.Returned),
	)
	api.send(w, r, http.StatusOK, "Loan updated successfully.", nil, NewLoanDTO(loan))
}

// SearchLoans godoc
// @Summary      Search loans
// @Description  Returns the loans of the book with the isbn OR of the customer.
// @Tags         loans
// @Produce      json
// @Param        isbn      query     string  false  "isbn of the book"
// @Param        customer  query     string  false  "customer name"
// @Param        page      query     int     false  "zero-based page number"
// @Param        size      query     int     false  "page size"
// @Success      200       {object}  APIResponse
// @Failure      400       {object}  APIError
// @Router       /v1/loans [get]
func (api *APIHandler) SearchLoans(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	page, err := ParsePageRequest(q, api.config.Pagination)
	if err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to search loans", err.Error(), err)
		return
	}
	criteria := LoanCriteria{
		Isbn:     q.Get("isbn"),
		Customer: q.Get("customer"),
	}

	result, err := api.loanService.Find(r.Context(), criteria, page)
	if err != nil {
		api.sendError(w, r, http.StatusInternalServerError, "failed to search loans", EmptyData, err)
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to search loans", zap.Int64("search.total", result.Total))
	api.send(w, r, http.StatusOK, "Loans searched successfully.", &result.Total, NewPageDTO(result, NewLoanDTOs))
}
