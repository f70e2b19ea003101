// Package id generates identifiers for books, ledger entries and connections.
package id

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "sse-V1StGXR8_Z5jdHi6B-myT").
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// NewEntryID returns a random UUID for a history ledger entry.
func NewEntryID() string {
	return uuid.NewString()
}

// Book formats a catalog counter value as a book ID.
// Book IDs are decimal strings so the seeded catalog keeps ids "1" through "5".
func Book(n int) string {
	return strconv.Itoa(n)
}

// ParseBook returns the counter value of a book ID.
// ok is false for IDs that are not positive decimal integers.
func ParseBook(bookID string) (n int, ok bool) {
	n, err := strconv.Atoi(bookID)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// CompareBooks orders book IDs numerically, falling back to string order
// for IDs that are not counter values.
func CompareBooks(a, b string) int {
	na, okA := ParseBook(a)
	nb, okB := ParseBook(b)
	switch {
	case okA && okB:
		return na - nb
	case okA:
		return -1
	case okB:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
