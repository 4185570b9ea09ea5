package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

var (
	bucketBooks     = []byte("books")
	bucketBooksIsbn = []byte("books.isbn")
	bucketLoans     = []byte("loans")
	bucketLoansOpen = []byte("loans.open")
)

// loanRecord is the stored form of a loan. The book is
// referenced by id and joined back on reads.
type loanRecord struct {
	ID       int64     `json:"id"`
	BookID   int64     `json:"bookId"`
	Customer string    `json:"customer"`
	LoanDate time.Time `json:"loanDate"`
	Returned bool      `json:"returned"`
}

// GetBoltDBClient setup the database and the buckets then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketBooks, bucketBooksIsbn, bucketLoans, bucketLoansOpen} {
			if _, errB := tx.CreateBucketIfNotExists(name); errB != nil {
				return fmt.Errorf("failed to create %s bucket: %v", name, errB)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set up buckets: %v", err)
	}
	return db, nil
}

// itob returns an 8-byte big endian representation of v
// so keys are iterated in id order.
func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func getBook(tx *bolt.Tx, id int64) (Book, error) {
	var book Book
	data := tx.Bucket(bucketBooks).Get(itob(id))
	if data == nil {
		return book, ErrBookNotFound
	}
	err := storeCodec.Unmarshal(data, &book)
	return book, err
}

func putBook(tx *bolt.Tx, book Book) error {
	data, err := storeCodec.Marshal(book)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketBooks).Put(itob(book.ID), data)
}

type boltBookStorage struct {
	logger *zap.Logger
	client *bolt.DB
}

// NewBoltBookStorage provides an instance of bolt-based book storage.
func NewBoltBookStorage(logger *zap.Logger, client *bolt.DB) BookStorage {
	return &boltBookStorage{
		logger: logger,
		client: client,
	}
}

func (bs *boltBookStorage) ExistsByIsbn(_ context.Context, isbn string) (bool, error) {
	var exists bool
	err := bs.client.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(bucketBooksIsbn).Get([]byte(isbn)) != nil
		return nil
	})
	return exists, err
}

// Save inserts a new book record and its isbn index entry.
func (bs *boltBookStorage) Save(_ context.Context, book Book) (Book, error) {
	err := bs.client.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(bucketBooksIsbn)
		if index.Get([]byte(book.Isbn)) != nil {
			return ErrDuplicateIsbn
		}
		seq, err := tx.Bucket(bucketBooks).NextSequence()
		if err != nil {
			return err
		}
		book.ID = int64(seq)
		if err = putBook(tx, book); err != nil {
			return err
		}
		return index.Put([]byte(book.Isbn), itob(book.ID))
	})
	return book, err
}

// Update replaces the title and the author of a stored book.
func (bs *boltBookStorage) Update(_ context.Context, book Book) (Book, error) {
	var updated Book
	err := bs.client.Update(func(tx *bolt.Tx) error {
		current, err := getBook(tx, book.ID)
		if err != nil {
			return err
		}
		current.Title = book.Title
		current.Author = book.Author
		updated = current
		return putBook(tx, current)
	})
	if err != nil {
		return book, err
	}
	return updated, nil
}

func (bs *boltBookStorage) FindAll(_ context.Context) ([]Book, error) {
	books := []Book{}
	err := bs.client.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBooks).ForEach(func(_, v []byte) error {
			var book Book
			if err := storeCodec.Unmarshal(v, &book); err != nil {
				return err
			}
			books = append(books, book)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

func (bs *boltBookStorage) FindByID(_ context.Context, id int64) (Book, error) {
	var book Book
	err := bs.client.View(func(tx *bolt.Tx) error {
		var err error
		book, err = getBook(tx, id)
		return err
	})
	return book, err
}

func (bs *boltBookStorage) FindByIsbn(_ context.Context, isbn string) (Book, error) {
	var book Book
	err := bs.client.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketBooksIsbn).Get([]byte(isbn))
		if id == nil {
			return ErrBookNotFound
		}
		var err error
		book, err = getBook(tx, btoi(id))
		return err
	})
	return book, err
}

// Delete removes a book record unless a loan references it.
func (bs *boltBookStorage) Delete(_ context.Context, id int64) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		book, err := getBook(tx, id)
		if err != nil {
			return err
		}
		err = tx.Bucket(bucketLoans).ForEach(func(_, v []byte) error {
			var record loanRecord
			if err := storeCodec.Unmarshal(v, &record); err != nil {
				return err
			}
			if record.BookID == id {
				return ErrBookHasLoans
			}
			return nil
		})
		if err != nil {
			return err
		}
		if err = tx.Bucket(bucketBooksIsbn).Delete([]byte(book.Isbn)); err != nil {
			return err
		}
		return tx.Bucket(bucketBooks).Delete(itob(id))
	})
}

// FindByExample scans the books in id order and keeps those
// matching every non-empty criteria field.
func (bs *boltBookStorage) FindByExample(ctx context.Context, criteria BookCriteria, page PageRequest) ([]Book, int64, error) {
	books, err := bs.FindAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	matches := make([]Book, 0, len(books))
	for _, book := range books {
		if matchesBook(book, criteria) {
			matches = append(matches, book)
		}
	}
	return paginate(matches, page), int64(len(matches)), nil
}

func matchesBook(book Book, criteria BookCriteria) bool {
	return containsFold(book.Title, criteria.Title) &&
		containsFold(book.Author, criteria.Author) &&
		containsFold(book.Isbn, criteria.Isbn)
}

// containsFold reports whether substr is within s ignoring the case.
// An empty substr always matches.
func containsFold(s, substr string) bool {
	return substr == "" || strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

type boltLoanStorage struct {
	logger *zap.Logger
	client *bolt.DB
}

// NewBoltLoanStorage provides an instance of bolt-based loan storage.
func NewBoltLoanStorage(logger *zap.Logger, client *bolt.DB) LoanStorage {
	return &boltLoanStorage{
		logger: logger,
		client: client,
	}
}

func (ls *boltLoanStorage) ExistsOutstandingLoan(_ context.Context, book Book) (bool, error) {
	var exists bool
	err := ls.client.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(bucketLoansOpen).Get(itob(book.ID)) != nil
		return nil
	})
	return exists, err
}

// Save inserts a new loan. The outstanding loan check and the
// insertion happen in the same read-write transaction.
func (ls *boltLoanStorage) Save(_ context.Context, loan Loan) (Loan, error) {
	err := ls.client.Update(func(tx *bolt.Tx) error {
		book, err := getBook(tx, loan.Book.ID)
		if err != nil {
			return err
		}
		open := tx.Bucket(bucketLoansOpen)
		if open.Get(itob(book.ID)) != nil {
			return ErrBookAlreadyLoaned
		}
		loans := tx.Bucket(bucketLoans)
		seq, err := loans.NextSequence()
		if err != nil {
			return err
		}
		loan.ID = int64(seq)
		loan.Book = book
		loan.Returned = false
		if err = putLoan(tx, loan); err != nil {
			return err
		}
		return open.Put(itob(book.ID), itob(loan.ID))
	})
	return loan, err
}

// Update persists the returned flag and keeps the open loans index in sync.
func (ls *boltLoanStorage) Update(_ context.Context, loan Loan) (Loan, error) {
	var updated Loan
	err := ls.client.Update(func(tx *bolt.Tx) error {
		current, err := getLoan(tx, loan.ID)
		if err != nil {
			return err
		}
		open := tx.Bucket(bucketLoansOpen)
		key := itob(current.Book.ID)
		if loan.Returned {
			if err = open.Delete(key); err != nil {
				return err
			}
		} else if current.Returned {
			if open.Get(key) != nil {
				return ErrBookAlreadyLoaned
			}
			if err = open.Put(key, itob(current.ID)); err != nil {
				return err
			}
		}
		current.Returned = loan.Returned
		updated = current
		return putLoan(tx, current)
	})
	if err != nil {
		return loan, err
	}
	return updated, nil
}

func (ls *boltLoanStorage) FindByID(_ context.Context, id int64) (Loan, error) {
	var loan Loan
	err := ls.client.View(func(tx *bolt.Tx) error {
		var err error
		loan, err = getLoan(tx, id)
		return err
	})
	return loan, err
}

// FindByIsbnOrCustomer scans the loans in id order and keeps those whose
// book isbn or customer equals the given non-empty values.
func (ls *boltLoanStorage) FindByIsbnOrCustomer(_ context.Context, isbn, customer string, page PageRequest) ([]Loan, int64, error) {
	if isbn == "" && customer == "" {
		return []Loan{}, 0, nil
	}
	matches := []Loan{}
	err := ls.client.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLoans).ForEach(func(k, _ []byte) error {
			loan, err := getLoan(tx, btoi(k))
			if err != nil {
				return err
			}
			if (isbn != "" && loan.Book.Isbn == isbn) || (customer != "" && loan.Customer == customer) {
				matches = append(matches, loan)
			}
			return nil
		})
	})
	if err != nil {
		return nil, 0, err
	}
	return paginate(matches, page), int64(len(matches)), nil
}

func getLoan(tx *bolt.Tx, id int64) (Loan, error) {
	data := tx.Bucket(bucketLoans).Get(itob(id))
	if data == nil {
		return Loan{}, ErrLoanNotFound
	}
	var record loanRecord
	if err := storeCodec.Unmarshal(data, &record); err != nil {
		return Loan{}, err
	}
	book, err := getBook(tx, record.BookID)
	if err != nil {
		return Loan{}, fmt.Errorf("loan %d references a missing book: %w", id, err)
	}
	return Loan{
		ID:       record.ID,
		Book:     book,
		Customer: record.Customer,
		LoanDate: record.LoanDate,
		Returned: record.Returned,
	}, nil
}

func putLoan(tx *bolt.Tx, loan Loan) error {
	data, err := storeCodec.Marshal(loanRecord{
		ID:       loan.ID,
		BookID:   loan.Book.ID,
		Customer: loan.Customer,
		LoanDate: loan.LoanDate,
		Returned: loan.Returned,
	})
	if err != nil {
		return err
	}
	return tx.Bucket(bucketLoans).Put(itob(loan.ID), data)
}
