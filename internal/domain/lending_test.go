package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/libraryhub/library-server/internal/errors"
)

var testNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestBook(stock, total int) *Book {
	b := NewBook("7", "Dune", "Frank Herbert", "9780441013593", total, "", testNow)
	b.Stock = stock
	return b
}

func intPtr(n int) *int { return &n }

func TestDecideBorrow(t *testing.T) {
	atLimit := NewUser("u1", "Ana", testNow)
	atLimit.BorrowedBooks = []string{"1", "3"}

	alreadyHolding := newTestBook(2, 3)
	alreadyHolding.BorrowedBy = []BorrowRecord{{UserID: "u1", Status: BorrowStatusBorrowed, BorrowedDate: testNow}}

	tests := []struct {
		name    string
		book    *Book
		user    *User
		wantErr *domainerrors.Error
	}{
		{"first borrow by unknown user", newTestBook(1, 1), nil, nil},
		{"out of stock", newTestBook(0, 1), nil, domainerrors.ErrOutOfStock},
		{"already borrowed", alreadyHolding, NewUser("u1", "Ana", testNow), domainerrors.ErrAlreadyBorrowed},
		{"limit reached", newTestBook(3, 3), atLimit, domainerrors.ErrBorrowLimitReached},
		// Stock is checked before the per-user rules.
		{"out of stock wins over limit", newTestBook(0, 3), atLimit, domainerrors.ErrOutOfStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DecideBorrow(tt.book, tt.user, "u1")
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApplyBorrow_CreatesUserAndRecord(t *testing.T) {
	book := newTestBook(1, 1)

	user, entry := ApplyBorrow(book, nil, "u1", "Ana", testNow)

	assert.Equal(t, 0, book.Stock)
	require.Len(t, book.BorrowedBy, 1)
	assert.Equal(t, BorrowStatusBorrowed, book.BorrowedBy[0].Status)
	assert.Nil(t, book.BorrowedBy[0].ReturnDate)
	assert.Equal(t, []string{"7"}, user.BorrowedBooks)
	assert.Equal(t, "Ana", user.Name)
	assert.Equal(t, ActionBorrowed, entry.Action)
	assert.Equal(t, "Dune", entry.BookTitle)
	assert.Equal(t, testNow, entry.BorrowedDate)
	assert.True(t, book.Consistent())
}

func TestBorrowThenReturn_RestoresStock(t *testing.T) {
	book := newTestBook(2, 2)

	user, borrowed := ApplyBorrow(book, nil, "u1", "Ana", testNow)
	require.Equal(t, 1, book.Stock)

	idx, err := DecideReturn(book, user, "u1")
	require.NoError(t, err)

	later := testNow.Add(48 * time.Hour)
	returned := ApplyReturn(book, user, idx, later)

	assert.Equal(t, 2, book.Stock)
	assert.Empty(t, user.BorrowedBooks)
	require.Len(t, book.BorrowedBy, 1, "record stays as audit trail")
	assert.Equal(t, BorrowStatusReturned, book.BorrowedBy[0].Status)
	require.NotNil(t, book.BorrowedBy[0].ReturnDate)
	assert.Equal(t, later, *book.BorrowedBy[0].ReturnDate)

	assert.Equal(t, borrowed.BorrowedDate, returned.BorrowedDate)
	assert.Equal(t, ActionReturned, returned.Action)
	assert.Equal(t, BorrowStatusReturned, returned.Status)
	assert.Equal(t, "Ana", returned.UserName)
}

func TestDecideReturn(t *testing.T) {
	book := newTestBook(1, 2)
	book.BorrowedBy = []BorrowRecord{
		{UserID: "u2", Status: BorrowStatusBorrowed},
		{UserID: "u1", Status: BorrowStatusReturned},
	}

	t.Run("unknown user", func(t *testing.T) {
		_, err := DecideReturn(book, nil, "u9")
		assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)
	})

	t.Run("already returned", func(t *testing.T) {
		_, err := DecideReturn(book, NewUser("u1", "Ana", testNow), "u1")
		assert.ErrorIs(t, err, domainerrors.ErrNotBorrowed)
	})

	t.Run("earliest active record wins", func(t *testing.T) {
		idx, err := DecideReturn(book, NewUser("u2", "Ben", testNow), "u2")
		require.NoError(t, err)
		assert.Equal(t, 0, idx)
	})
}

func TestApplyStockUpdate(t *testing.T) {
	oneOnLoan := func(stock, total int) *Book {
		b := newTestBook(stock, total)
		b.BorrowedBy = []BorrowRecord{{UserID: "u1", Status: BorrowStatusBorrowed}}
		return b
	}

	tests := []struct {
		name      string
		book      *Book
		stock     int
		total     *int
		wantErr   *domainerrors.Error
		wantStock int
		wantTotal int
	}{
		{"negative stock", newTestBook(1, 1), -1, nil, domainerrors.ErrInvalidStock, 1, 1},
		{"negative total", newTestBook(1, 1), 0, intPtr(-1), domainerrors.ErrInvalidTotal, 1, 1},
		{"total below borrowed", oneOnLoan(2, 3), 5, intPtr(0), domainerrors.ErrTotalBelowBorrowed, 2, 3},
		{"stock exceeds available", newTestBook(5, 5), 10, intPtr(5), domainerrors.ErrStockExceedsAvailable, 5, 5},
		{"stock exceeds ceiling without total", oneOnLoan(1, 2), 2, nil, domainerrors.ErrStockExceedsAvailable, 1, 2},
		{"raise total and stock together", newTestBook(2, 2), 6, intPtr(6), nil, 6, 6},
		{"stock within ceiling", oneOnLoan(0, 3), 2, nil, nil, 2, 3},
		{"total equal to borrowed", oneOnLoan(0, 3), 0, intPtr(1), nil, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ApplyStockUpdate(tt.book, tt.stock, tt.total, testNow)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStock, tt.book.Stock)
			assert.Equal(t, tt.wantTotal, tt.book.TotalCopies)
			assert.True(t, tt.book.Consistent())
		})
	}
}

func TestApplyStockUpdate_TotalCheckedBeforeStock(t *testing.T) {
	// A total of 3 covers the single loan, so only the stock ceiling of 2 is violated.
	b := newTestBook(2, 3)
	b.BorrowedBy = []BorrowRecord{{UserID: "u1", Status: BorrowStatusBorrowed}}

	err := ApplyStockUpdate(b, 5, intPtr(3), testNow)
	assert.ErrorIs(t, err, domainerrors.ErrStockExceedsAvailable)

	b = newTestBook(0, 1)
	b.BorrowedBy = []BorrowRecord{
		{UserID: "u1", Status: BorrowStatusBorrowed},
		{UserID: "u2", Status: BorrowStatusBorrowed},
	}
	err = ApplyStockUpdate(b, 5, intPtr(1), testNow)
	assert.ErrorIs(t, err, domainerrors.ErrTotalBelowBorrowed)
}

func TestDecideDelete(t *testing.T) {
	assert.NoError(t, DecideDelete(newTestBook(1, 1)))

	b := newTestBook(0, 1)
	b.BorrowedBy = []BorrowRecord{{UserID: "u1", Status: BorrowStatusBorrowed}}
	assert.ErrorIs(t, DecideDelete(b), domainerrors.ErrHasActiveBorrows)

	b.BorrowedBy[0].Status = BorrowStatusReturned
	assert.NoError(t, DecideDelete(b))
}
