package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/libraryhub/library-server/internal/domain"
	"github.com/libraryhub/library-server/internal/store"
	"github.com/libraryhub/library-server/internal/validation"
)

// LendingService moves copies between the shelf and borrowers.
type LendingService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewLendingService creates a new lending service.
func NewLendingService(store *store.Store, logger *slog.Logger) *LendingService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LendingService{
		store:     store,
		validator: validation.New(),
		logger:    logger,
	}
}

// BorrowRequest identifies who borrows which book.
type BorrowRequest struct {
	UserID   string `json:"userId" validate:"notblank"`
	BookID   string `json:"bookId" validate:"notblank"`
	UserName string `json:"userName" validate:"notblank"`
}

// ReturnRequest identifies who returns which book.
type ReturnRequest struct {
	UserID string `json:"userId" validate:"notblank"`
	BookID string `json:"bookId" validate:"notblank"`
}

// LendingResult is the state of the book and borrower after a borrow or return.
type LendingResult struct {
	Book *domain.Book `json:"book"`
	User *domain.User `json:"user"`
}

// Borrow lends one copy of a book to a user, registering the user on their
// first successful borrow.
//
// Checks, in order: required fields, book exists, a copy is on the shelf,
// the user holds no copy of this title, the user is under the borrow limit.
func (s *LendingService) Borrow(ctx context.Context, req BorrowRequest) (*LendingResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(req.UserID)
	bookID := strings.TrimSpace(req.BookID)
	userName := strings.TrimSpace(req.UserName)

	book, user, err := s.store.Lend(ctx, bookID, userID, store.LendOptions{Register: true}, func(tx *store.LendTx) error {
		if err := domain.DecideBorrow(tx.Book, tx.User, userID); err != nil {
			return err
		}
		user, entry := domain.ApplyBorrow(tx.Book, tx.User, userID, userName, tx.Now)
		tx.User = user
		tx.Append(entry)
		return nil
	})
	if err != nil {
		s.logger.Debug("borrow rejected", "book_id", bookID, "user_id", userID, "error", err)
		return nil, err
	}

	s.logger.Info("book borrowed",
		"book_id", book.ID,
		"user_id", user.ID,
		"stock", book.Stock)
	return &LendingResult{Book: book, User: user}, nil
}

// Return closes the user's active borrow of a book and puts the copy back
// on the shelf.
//
// Checks, in order: required fields, book exists, user is registered, the
// user holds a copy of this title.
func (s *LendingService) Return(ctx context.Context, req ReturnRequest) (*LendingResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(req.UserID)
	bookID := strings.TrimSpace(req.BookID)

	book, user, err := s.store.Lend(ctx, bookID, userID, store.LendOptions{}, func(tx *store.LendTx) error {
		idx, err := domain.DecideReturn(tx.Book, tx.User, userID)
		if err != nil {
			return err
		}
		tx.Append(domain.ApplyReturn(tx.Book, tx.User, idx, tx.Now))
		return nil
	})
	if err != nil {
		s.logger.Debug("return rejected", "book_id", bookID, "user_id", userID, "error", err)
		return nil, err
	}

	s.logger.Info("book returned",
		"book_id", book.ID,
		"user_id", user.ID,
		"stock", book.Stock)
	return &LendingResult{Book: book, User: user}, nil
}
