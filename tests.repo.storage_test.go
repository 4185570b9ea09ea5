package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This file contains the behavior expected from every storage engine.

var testLoanDate = time.Date(2023, 7, 2, 0, 0, 0, 0, time.UTC)

func seedBooks(t *testing.T, books BookStorage) []Book {
	t.Helper()
	seeds := []Book{
		{Title: "Dune", Author: "Frank Herbert", Isbn: "978-0441013593"},
		{Title: "Dune Messiah", Author: "Frank Herbert", Isbn: "978-0593098233"},
		{Title: "Emma", Author: "Jane Austen", Isbn: "978-0141439587"},
		{Title: "100% Pure_Fiction", Author: "Anonymous", Isbn: "000-0000000001"},
	}
	saved := make([]Book, 0, len(seeds))
	for _, b := range seeds {
		book, err := books.Save(context.Background(), b)
		require.NoError(t, err)
		require.Greater(t, book.ID, int64(0))
		saved = append(saved, book)
	}
	return saved
}

//nolint:funlen
func testBookStorage(t *testing.T, books BookStorage) {
	ctx := context.Background()
	seeded := seedBooks(t, books)

	t.Run("Save Duplicate Isbn", func(t *testing.T) {
		_, err := books.Save(ctx, Book{Title: "Other", Author: "Other", Isbn: seeded[0].Isbn})
		assert.ErrorIs(t, err, ErrDuplicateIsbn)
	})

	t.Run("Exists By Isbn", func(t *testing.T) {
		exists, err := books.ExistsByIsbn(ctx, seeded[2].Isbn)
		assert.NoError(t, err)
		assert.True(t, exists)
		exists, err = books.ExistsByIsbn(ctx, "unknown")
		assert.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Find Existent Book", func(t *testing.T) {
		book, err := books.FindByID(ctx, seeded[0].ID)
		assert.NoError(t, err)
		assert.Equal(t, seeded[0], book)
		book, err = books.FindByIsbn(ctx, seeded[1].Isbn)
		assert.NoError(t, err)
		assert.Equal(t, seeded[1], book)
	})

	t.Run("Find NonExistent Book", func(t *testing.T) {
		_, err := books.FindByID(ctx, 9999)
		assert.ErrorIs(t, err, ErrBookNotFound)
		_, err = books.FindByIsbn(ctx, "unknown")
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("Find All Books", func(t *testing.T) {
		all, err := books.FindAll(ctx)
		assert.NoError(t, err)
		assert.Equal(t, seeded, all)
	})

	t.Run("Find By Example", func(t *testing.T) {
		testCases := []struct {
			name     string
			criteria BookCriteria
			page     PageRequest
			expected []Book
			total    int64
		}{
			{"case insensitive title", BookCriteria{Title: "dUnE"}, PageRequest{Size: 10}, seeded[:2], 2},
			{"all fields must match", BookCriteria{Title: "dune", Author: "austen"}, PageRequest{Size: 10}, []Book{}, 0},
			{"title and author", BookCriteria{Title: "messiah", Author: "HERBERT"}, PageRequest{Size: 10}, seeded[1:2], 1},
			{"isbn substring", BookCriteria{Isbn: "0141"}, PageRequest{Size: 10}, seeded[2:3], 1},
			{"empty criteria", BookCriteria{}, PageRequest{Size: 10}, seeded, 4},
			{"first page", BookCriteria{}, PageRequest{Number: 0, Size: 3}, seeded[:3], 4},
			{"last page", BookCriteria{}, PageRequest{Number: 1, Size: 3}, seeded[3:], 4},
			{"page out of range", BookCriteria{}, PageRequest{Number: 5, Size: 3}, []Book{}, 4},
			{"percent is literal", BookCriteria{Title: "100%"}, PageRequest{Size: 10}, seeded[3:], 1},
			{"underscore is literal", BookCriteria{Title: "e_f"}, PageRequest{Size: 10}, seeded[3:], 1},
			{"percent wildcard not expanded", BookCriteria{Title: "d%e"}, PageRequest{Size: 10}, []Book{}, 0},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				found, total, err := books.FindByExample(ctx, tc.criteria, tc.page)
				require.NoError(t, err)
				assert.Equal(t, tc.total, total)
				assert.Equal(t, tc.expected, found)
			})
		}
	})

	t.Run("Find By Example Folds Non Ascii", func(t *testing.T) {
		book, err := books.Save(ctx, Book{Title: "ÉCOLE DES FEMMES", Author: "Molière", Isbn: "979-1041902238"})
		require.NoError(t, err)
		defer func() {
			require.NoError(t, books.Delete(ctx, book.ID))
		}()

		found, total, err := books.FindByExample(ctx, BookCriteria{Title: "école", Author: "MOLIÈRE"}, PageRequest{Size: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, []Book{book}, found)
	})

	t.Run("Update Existent Book", func(t *testing.T) {
		book, err := books.Update(ctx, Book{ID: seeded[2].ID, Title: "Emma (Penguin)", Author: "J. Austen", Isbn: "ignored"})
		assert.NoError(t, err)
		assert.Equal(t, Book{ID: seeded[2].ID, Title: "Emma (Penguin)", Author: "J. Austen", Isbn: seeded[2].Isbn}, book)
		book, err = books.FindByID(ctx, seeded[2].ID)
		assert.NoError(t, err)
		assert.Equal(t, "Emma (Penguin)", book.Title)
	})

	t.Run("Update NonExistent Book", func(t *testing.T) {
		_, err := books.Update(ctx, Book{ID: 9999, Title: "x", Author: "y"})
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("Delete Existent Book", func(t *testing.T) {
		err := books.Delete(ctx, seeded[3].ID)
		assert.NoError(t, err)
		_, err = books.FindByID(ctx, seeded[3].ID)
		assert.ErrorIs(t, err, ErrBookNotFound)
		exists, err := books.ExistsByIsbn(ctx, seeded[3].Isbn)
		assert.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Delete NonExistent Book", func(t *testing.T) {
		err := books.Delete(ctx, seeded[3].ID)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})
}

//nolint:funlen
func testLoanStorage(t *testing.T, books BookStorage, loans LoanStorage) {
	ctx := context.Background()
	seeded := seedBooks(t, books)
	dune, messiah, emma := seeded[0], seeded[1], seeded[2]

	var first Loan

	t.Run("Save Loan", func(t *testing.T) {
		loaned, err := loans.ExistsOutstandingLoan(ctx, dune)
		require.NoError(t, err)
		assert.False(t, loaned)

		first, err = loans.Save(ctx, Loan{Book: dune, Customer: "alice", LoanDate: testLoanDate})
		require.NoError(t, err)
		assert.Greater(t, first.ID, int64(0))
		assert.False(t, first.Returned)

		loaned, err = loans.ExistsOutstandingLoan(ctx, dune)
		require.NoError(t, err)
		assert.True(t, loaned)
	})

	t.Run("Save Loan Of Loaned Book", func(t *testing.T) {
		_, err := loans.Save(ctx, Loan{Book: dune, Customer: "bob", LoanDate: testLoanDate})
		assert.ErrorIs(t, err, ErrBookAlreadyLoaned)
	})

	t.Run("Save Loan Of NonExistent Book", func(t *testing.T) {
		_, err := loans.Save(ctx, Loan{Book: Book{ID: 9999}, Customer: "bob", LoanDate: testLoanDate})
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("Find Loan", func(t *testing.T) {
		loan, err := loans.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, dune, loan.Book)
		assert.Equal(t, "alice", loan.Customer)
		assert.Equal(t, "2023-07-02", loan.LoanDate.Format(LoanDateLayout))
		assert.False(t, loan.Returned)

		_, err = loans.FindByID(ctx, 9999)
		assert.ErrorIs(t, err, ErrLoanNotFound)
	})

	t.Run("Delete Loaned Book", func(t *testing.T) {
		err := books.Delete(ctx, dune.ID)
		assert.ErrorIs(t, err, ErrBookHasLoans)
	})

	t.Run("Return Loan", func(t *testing.T) {
		loan, err := loans.Update(ctx, Loan{ID: first.ID, Returned: true})
		require.NoError(t, err)
		assert.True(t, loan.Returned)
		assert.Equal(t, dune, loan.Book)

		loaned, err := loans.ExistsOutstandingLoan(ctx, dune)
		require.NoError(t, err)
		assert.False(t, loaned)

		_, err = loans.Update(ctx, Loan{ID: 9999, Returned: true})
		assert.ErrorIs(t, err, ErrLoanNotFound)
	})

	t.Run("Loan Returned Book Again", func(t *testing.T) {
		loan, err := loans.Save(ctx, Loan{Book: dune, Customer: "bob", LoanDate: testLoanDate})
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, loan.ID)
	})

	t.Run("Delete Book With Returned Loans", func(t *testing.T) {
		err := books.Delete(ctx, dune.ID)
		assert.ErrorIs(t, err, ErrBookHasLoans)
	})

	t.Run("Find By Isbn Or Customer", func(t *testing.T) {
		_, err := loans.Save(ctx, Loan{Book: messiah, Customer: "alice", LoanDate: testLoanDate})
		require.NoError(t, err)
		_, err = loans.Save(ctx, Loan{Book: emma, Customer: "carol", LoanDate: testLoanDate})
		require.NoError(t, err)

		customers := func(found []Loan) []string {
			names := make([]string, 0, len(found))
			for _, l := range found {
				names = append(names, l.Customer+"/"+l.Book.Title)
			}
			return names
		}

		testCases := []struct {
			name     string
			isbn     string
			customer string
			page     PageRequest
			expected []string
			total    int64
		}{
			{"by isbn", dune.Isbn, "", PageRequest{Size: 10}, []string{"alice/Dune", "bob/Dune"}, 2},
			{"by customer", "", "alice", PageRequest{Size: 10}, []string{"alice/Dune", "alice/Dune Messiah"}, 2},
			{"isbn or customer", emma.Isbn, "bob", PageRequest{Size: 10}, []string{"bob/Dune", "carol/Emma"}, 2},
			{"exact customer only", "", "ALICE", PageRequest{Size: 10}, []string{}, 0},
			{"paginated", dune.Isbn, "alice", PageRequest{Number: 1, Size: 2}, []string{"alice/Dune Messiah"}, 3},
			{"no criteria", "", "", PageRequest{Size: 10}, []string{}, 0},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				found, total, err := loans.FindByIsbnOrCustomer(ctx, tc.isbn, tc.customer, tc.page)
				require.NoError(t, err)
				assert.Equal(t, tc.total, total)
				assert.Equal(t, tc.expected, customers(found))
			})
		}
	})
}
