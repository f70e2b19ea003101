// Package sse implements Server-Sent Events for real-time catalog and lending updates.
package sse

import (
	"time"

	"github.com/libraryhub/library-server/internal/domain"
	"github.com/libraryhub/library-server/internal/dto"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventBookCreated represents a book creation event.
	EventBookCreated EventType = "book.created"
	// EventBookUpdated represents a stock or metadata change.
	EventBookUpdated EventType = "book.updated"
	// EventBookDeleted represents a book deletion event.
	EventBookDeleted EventType = "book.deleted"

	// EventBookBorrowed represents a copy leaving the shelf.
	EventBookBorrowed EventType = "book.borrowed"
	// EventBookReturned represents a copy coming back.
	EventBookReturned EventType = "book.returned"

	// EventHistoryAppended represents a new ledger entry.
	// Only sent to admin users.
	EventHistoryAppended EventType = "history.appended"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// UserID restricts delivery to one user's connections, plus admins.
	// Empty means broadcast.
	UserID string `json:"-"`
}

// BookEventData is the payload for book.created and book.updated.
type BookEventData struct {
	Book dto.Book `json:"book"`
}

// BookDeletedEventData is the payload for book.deleted.
type BookDeletedEventData struct {
	BookID    string    `json:"bookId"`
	DeletedAt time.Time `json:"deletedAt"`
}

// LendingEventData is the payload for book.borrowed and book.returned.
type LendingEventData = dto.Lending

// NewBookCreatedEvent creates a book.created event.
func NewBookCreatedEvent(book *domain.Book) Event {
	return Event{
		Type:      EventBookCreated,
		Data:      BookEventData{Book: dto.NewBook(book)},
		Timestamp: time.Now(),
	}
}

// NewBookUpdatedEvent creates a book.updated event.
func NewBookUpdatedEvent(book *domain.Book) Event {
	return Event{
		Type:      EventBookUpdated,
		Data:      BookEventData{Book: dto.NewBook(book)},
		Timestamp: time.Now(),
	}
}

// NewBookDeletedEvent creates a book.deleted event.
func NewBookDeletedEvent(bookID string, deletedAt time.Time) Event {
	return Event{
		Type:      EventBookDeleted,
		Data:      BookDeletedEventData{BookID: bookID, DeletedAt: deletedAt},
		Timestamp: time.Now(),
	}
}

// NewBookBorrowedEvent creates a book.borrowed event.
func NewBookBorrowedEvent(book *domain.Book, user *domain.User) Event {
	return Event{
		Type:      EventBookBorrowed,
		Data:      dto.NewLending(book, user),
		Timestamp: time.Now(),
	}
}

// NewBookReturnedEvent creates a book.returned event.
func NewBookReturnedEvent(book *domain.Book, user *domain.User) Event {
	return Event{
		Type:      EventBookReturned,
		Data:      dto.NewLending(book, user),
		Timestamp: time.Now(),
	}
}

// NewHistoryAppendedEvent creates a history.appended event.
func NewHistoryAppendedEvent(entry domain.HistoryEntry) Event {
	return Event{
		Type:      EventHistoryAppended,
		Data:      entry,
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Data:      map[string]any{},
		Timestamp: time.Now(),
	}
}
