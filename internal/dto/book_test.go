package dto

import (
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libraryhub/library-server/internal/domain"
)

func TestNewBook_DerivedFields(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	book := domain.NewBook("3", "1984", "George Orwell", "9780451524935", 2, "", now)
	book.BorrowedBy = append(book.BorrowedBy, domain.BorrowRecord{
		UserID: "u1", UserName: "Ada", BorrowedDate: now, Status: domain.BorrowStatusBorrowed,
	})
	book.Stock = 1

	view := NewBook(book)
	assert.Equal(t, domain.AvailabilityLowStock, view.Availability)
	assert.Equal(t, 1, view.BorrowedCount)

	raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(view)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, jsoniter.Unmarshal(raw, &fields))
	assert.Equal(t, "3", fields["id"], "stored fields are flattened")
	assert.Equal(t, "low_stock", fields["availability"])
	assert.EqualValues(t, 1, fields["borrowedCount"])
}

func TestNewBooks_NeverNil(t *testing.T) {
	assert.NotNil(t, NewBooks(nil))
	assert.Empty(t, NewBooks(nil))
}
