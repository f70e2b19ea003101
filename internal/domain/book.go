// Package domain contains the core entities and lending rules of the library.
package domain

import (
	"slices"
	"time"
)

// Lending limits and stock thresholds.
const (
	// MaxBorrowsPerUser is the number of books a user may hold at once, across all titles.
	MaxBorrowsPerUser = 2
	// LowStockThreshold is the stock level at or below which a title is reported as low.
	LowStockThreshold = 2
	// OutOfStockLevel is the stock level at which a title cannot be borrowed.
	OutOfStockLevel = 0
	// FirstBookID is the first counter value handed out to created books.
	// Lower ids belong to the seed catalog.
	FirstBookID = 6
)

// BorrowStatus is the state of a single borrow record.
type BorrowStatus string

const (
	// BorrowStatusBorrowed marks an active borrow.
	BorrowStatusBorrowed BorrowStatus = "borrowed"
	// BorrowStatusReturned marks a completed borrow.
	BorrowStatusReturned BorrowStatus = "returned"
)

// Availability classifies a title's current stock for display.
type Availability string

const (
	AvailabilityAvailable  Availability = "available"
	AvailabilityLowStock   Availability = "low_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
)

// BorrowRecord is one borrow of one copy of a book.
// Records are never removed; returning a book flips the record in place.
type BorrowRecord struct {
	UserID       string       `json:"userId"`
	UserName     string       `json:"userName"`
	BorrowedDate time.Time    `json:"borrowedDate"`
	Status       BorrowStatus `json:"status"`
	ReturnDate   *time.Time   `json:"returnDate,omitempty"` // set only when returned
}

// IsActive reports whether the copy is still out on loan.
func (r BorrowRecord) IsActive() bool {
	return r.Status == BorrowStatusBorrowed
}

// Book is a catalog title together with its stock and borrow audit trail.
type Book struct {
	Timestamps
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Author      string         `json:"author"`
	ISBN        string         `json:"isbn"`
	Stock       int            `json:"stock"`
	TotalCopies int            `json:"totalCopies"`
	BorrowedBy  []BorrowRecord `json:"borrowedBy"`
	ImageURL    string         `json:"imageUrl,omitempty"`
}

// NewBook creates a book whose stock and total copies both equal copies.
func NewBook(bookID, title, author, isbn string, copies int, imageURL string, now time.Time) *Book {
	b := &Book{
		ID:          bookID,
		Title:       title,
		Author:      author,
		ISBN:        isbn,
		Stock:       copies,
		TotalCopies: copies,
		BorrowedBy:  []BorrowRecord{},
		ImageURL:    imageURL,
	}
	b.InitTimestamps(now)
	return b
}

// ActiveBorrowCount returns the number of copies currently on loan.
func (b *Book) ActiveBorrowCount() int {
	n := 0
	for _, r := range b.BorrowedBy {
		if r.IsActive() {
			n++
		}
	}
	return n
}

// ActiveRecordIndex returns the index of the earliest active record held by
// userID, or -1. At most one can exist, since a second borrow of the same
// title by the same user is rejected.
func (b *Book) ActiveRecordIndex(userID string) int {
	return slices.IndexFunc(b.BorrowedBy, func(r BorrowRecord) bool {
		return r.UserID == userID && r.IsActive()
	})
}

// MaxStock returns the highest stock the book can hold given its active loans.
func (b *Book) MaxStock() int {
	return b.TotalCopies - b.ActiveBorrowCount()
}

// Availability classifies the current stock level.
func (b *Book) Availability() Availability {
	switch {
	case b.Stock <= OutOfStockLevel:
		return AvailabilityOutOfStock
	case b.Stock <= LowStockThreshold:
		return AvailabilityLowStock
	default:
		return AvailabilityAvailable
	}
}

// Consistent reports whether stock and loans fit within the owned copies.
func (b *Book) Consistent() bool {
	active := b.ActiveBorrowCount()
	return b.Stock >= 0 && active <= b.TotalCopies && b.Stock+active <= b.TotalCopies
}

// Clone returns a deep copy of the book.
func (b *Book) Clone() *Book {
	if b == nil {
		return nil
	}
	c := *b
	c.BorrowedBy = make([]BorrowRecord, len(b.BorrowedBy))
	for i, r := range b.BorrowedBy {
		c.BorrowedBy[i] = r
		if r.ReturnDate != nil {
			t := *r.ReturnDate
			c.BorrowedBy[i].ReturnDate = &t
		}
	}
	return &c
}
