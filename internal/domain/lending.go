package domain

import (
	"fmt"
	"time"

	domainerrors "github.com/libraryhub/library-server/internal/errors"
)

// Lending rules are split into pure Decide functions, which inspect state and
// report the first rule violated, and Apply functions, which mutate private
// copies of the records once a decision has passed. Callers hold the record
// locks for the duration of both.

// DecideBorrow checks whether userID may borrow book.
// user is nil when the user has never borrowed before.
//
// Rules, in order:
//
//	ERROR: OUT_OF_STOCK if no copy is on the shelf
//	ERROR: ALREADY_BORROWED if the user already holds a copy of this title
//	ERROR: BORROW_LIMIT_REACHED if the user already holds MaxBorrowsPerUser books
func DecideBorrow(book *Book, user *User, userID string) error {
	if book.Stock <= OutOfStockLevel {
		return domainerrors.ErrOutOfStock.WithDetails(map[string]any{"bookId": book.ID})
	}

	if book.ActiveRecordIndex(userID) >= 0 {
		return domainerrors.ErrAlreadyBorrowed.WithDetails(map[string]any{"bookId": book.ID})
	}

	if user != nil && user.AtLimit() {
		return &domainerrors.Error{
			Code:    domainerrors.CodeBorrowLimitReached,
			Message: fmt.Sprintf("you have reached the maximum borrow limit (%d books)", MaxBorrowsPerUser),
			Details: map[string]any{"limit": MaxBorrowsPerUser, "borrowedBooks": user.BorrowedBooks},
		}
	}

	return nil
}

// ApplyBorrow lends one copy of book to the user and returns the updated user
// (created when user is nil) and the ledger entry to append.
func ApplyBorrow(book *Book, user *User, userID, userName string, now time.Time) (*User, HistoryEntry) {
	record := BorrowRecord{
		UserID:       userID,
		UserName:     userName,
		BorrowedDate: now,
		Status:       BorrowStatusBorrowed,
	}
	book.BorrowedBy = append(book.BorrowedBy, record)
	book.Stock--
	book.Touch(now)

	if user == nil {
		user = NewUser(userID, userName, now)
	}
	if userName != "" {
		user.Name = userName
	}
	user.addBook(book.ID)

	return user, HistoryEntry{
		UserID:       userID,
		UserName:     userName,
		BookID:       book.ID,
		BookTitle:    book.Title,
		BorrowedDate: now,
		Action:       ActionBorrowed,
		Status:       BorrowStatusBorrowed,
	}
}

// DecideReturn checks whether userID may return book and returns the index of
// the borrow record to close.
//
//	ERROR: USER_NOT_FOUND if the user has never borrowed
//	ERROR: NOT_BORROWED if the user holds no active copy of this title
func DecideReturn(book *Book, user *User, userID string) (int, error) {
	if user == nil {
		return -1, domainerrors.UserNotFoundf("user %s not found", userID)
	}

	idx := book.ActiveRecordIndex(userID)
	if idx < 0 {
		return -1, domainerrors.ErrNotBorrowed.WithDetails(map[string]any{"bookId": book.ID})
	}
	return idx, nil
}

// ApplyReturn closes the borrow record at idx and returns the ledger entry to
// append. The entry carries the original borrow date and name.
func ApplyReturn(book *Book, user *User, idx int, now time.Time) HistoryEntry {
	returned := now
	record := &book.BorrowedBy[idx]
	record.Status = BorrowStatusReturned
	record.ReturnDate = &returned
	book.Stock++
	book.Touch(now)

	user.removeBook(book.ID)

	return HistoryEntry{
		UserID:       record.UserID,
		UserName:     record.UserName,
		BookID:       book.ID,
		BookTitle:    book.Title,
		BorrowedDate: record.BorrowedDate,
		ReturnDate:   &returned,
		Action:       ActionReturned,
		Status:       BorrowStatusReturned,
	}
}

// ApplyStockUpdate sets the shelf stock, and optionally the owned copies, of
// a private copy of book. totalCopies is applied before stock is checked, so
// both can be raised in one call. On error the copy must be discarded.
//
// Rules, in order:
//
//	ERROR: INVALID_STOCK if stock < 0
//	ERROR: INVALID_TOTAL if totalCopies < 0
//	ERROR: TOTAL_BELOW_BORROWED if totalCopies < active loans
//	ERROR: STOCK_EXCEEDS_AVAILABLE if stock > totalCopies - active loans
func ApplyStockUpdate(book *Book, stock int, totalCopies *int, now time.Time) error {
	if stock < 0 {
		return domainerrors.ErrInvalidStock
	}

	active := book.ActiveBorrowCount()

	if totalCopies != nil {
		if *totalCopies < 0 {
			return domainerrors.ErrInvalidTotal
		}
		if *totalCopies < active {
			return &domainerrors.Error{
				Code:    domainerrors.CodeTotalBelowBorrowed,
				Message: fmt.Sprintf("total copies cannot be less than currently borrowed count (%d)", active),
				Details: map[string]any{"borrowed": active},
			}
		}
		book.TotalCopies = *totalCopies
	}

	if maxStock := book.TotalCopies - active; stock > maxStock {
		return &domainerrors.Error{
			Code:    domainerrors.CodeStockExceedsAvailable,
			Message: fmt.Sprintf("cannot set stock higher than %d (%d copies are currently borrowed)", maxStock, active),
			Details: map[string]any{"maxStock": maxStock, "borrowed": active},
		}
	}

	book.Stock = stock
	book.Touch(now)
	return nil
}

// DecideDelete checks whether book may be removed from the catalog.
func DecideDelete(book *Book) error {
	if n := book.ActiveBorrowCount(); n > 0 {
		return domainerrors.ErrHasActiveBorrows.WithDetails(map[string]any{"borrowed": n})
	}
	return nil
}
