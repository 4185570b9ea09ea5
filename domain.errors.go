package main

import "errors"

var (
	ErrDuplicateIsbn       = errors.New("isbn already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrBookAlreadyLoaned   = errors.New("book already loaned")
	ErrBookNotFound        = errors.New("book not found")
	ErrLoanNotFound        = errors.New("loan not found")
	ErrBookHasLoans        = errors.New("book has loans")
	ErrLoanAlreadyReturned = errors.New("loan already returned")
)
