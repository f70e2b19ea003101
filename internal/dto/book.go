// Package dto provides Data Transfer Objects for API responses and SSE events.
//
// DTOs carry derived display fields next to the stored entity so clients can
// render a book without recomputing its stock state.
package dto

import "github.com/libraryhub/library-server/internal/domain"

// Book is the client-facing representation of a book.
type Book struct {
	*domain.Book // Embeds all stored fields

	Availability  domain.Availability `json:"availability" doc:"available, low_stock or out_of_stock"`
	BorrowedCount int                 `json:"borrowedCount" doc:"Copies currently on loan"`
}

// NewBook builds the client view of b.
func NewBook(b *domain.Book) Book {
	return Book{
		Book:          b,
		Availability:  b.Availability(),
		BorrowedCount: b.ActiveBorrowCount(),
	}
}

// NewBooks converts a list of books, never returning nil.
func NewBooks(books []*domain.Book) []Book {
	out := make([]Book, 0, len(books))
	for _, b := range books {
		out = append(out, NewBook(b))
	}
	return out
}

// Lending is the outcome of a borrow or return.
type Lending struct {
	Book Book         `json:"book"`
	User *domain.User `json:"user"`
}

// NewLending builds the client view of a lending outcome.
func NewLending(book *domain.Book, user *domain.User) Lending {
	return Lending{Book: NewBook(book), User: user}
}
