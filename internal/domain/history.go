package domain

import (
	"slices"
	"time"
)

// HistoryAction names the lending event an entry records.
type HistoryAction string

const (
	ActionBorrowed HistoryAction = "borrowed"
	ActionReturned HistoryAction = "returned"
)

// HistoryEntry is one line of the global, append-only borrow ledger.
type HistoryEntry struct {
	ID           string        `json:"id"`
	Seq          uint64        `json:"seq"` // ledger position, assigned on append
	UserID       string        `json:"userId"`
	UserName     string        `json:"userName"`
	BookID       string        `json:"bookId"`
	BookTitle    string        `json:"bookTitle"`
	BorrowedDate time.Time     `json:"borrowedDate"`
	ReturnDate   *time.Time    `json:"returnDate,omitempty"`
	Action       HistoryAction `json:"action"`
	Status       BorrowStatus  `json:"status"`
}

// MostRecentFirst returns a reversed copy of a ledger held in append order.
func MostRecentFirst(entries []HistoryEntry) []HistoryEntry {
	out := slices.Clone(entries)
	slices.Reverse(out)
	if out == nil {
		out = []HistoryEntry{}
	}
	return out
}
