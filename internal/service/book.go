// Package service implements the lending engine: catalog management,
// borrowing and returning, and the admin views over the ledger.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/libraryhub/library-server/internal/domain"
	domainerrors "github.com/libraryhub/library-server/internal/errors"
	"github.com/libraryhub/library-server/internal/normalize"
	"github.com/libraryhub/library-server/internal/store"
	"github.com/libraryhub/library-server/internal/validation"
)

// Searcher resolves a free-text query to book ids, best match first.
type Searcher interface {
	Search(ctx context.Context, q string, limit int) ([]string, error)
}

// BookService orchestrates catalog operations.
type BookService struct {
	store     *store.Store
	search    Searcher
	validator *validation.Validator
	logger    *slog.Logger
}

// NewBookService creates a new book service.
// search may be nil, in which case SearchBooks scans the catalog.
func NewBookService(store *store.Store, search Searcher, logger *slog.Logger) *BookService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BookService{
		store:     store,
		search:    search,
		validator: validation.New(),
		logger:    logger,
	}
}

// CreateBookRequest contains the fields of a new catalog entry.
type CreateBookRequest struct {
	Title    string `json:"title" validate:"notblank,max=500"`
	Author   string `json:"author" validate:"notblank,max=500"`
	ISBN     string `json:"isbn" validate:"notblank,max=32"`
	Stock    *int   `json:"stock" validate:"required"`
	ImageURL string `json:"imageUrl,omitempty" validate:"omitempty,http_url,max=2048"`
}

// UpdateStockRequest sets shelf stock and, optionally, the owned copies.
type UpdateStockRequest struct {
	Stock       *int `json:"stock"`
	TotalCopies *int `json:"totalCopies,omitempty"`
}

// ListBooks returns the whole catalog in insertion order.
func (s *BookService) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// GetBook returns a single book.
func (s *BookService) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	return s.store.GetBook(ctx, bookID)
}

// BorrowedBy returns the books userID currently holds, in borrow order.
// A user who has never borrowed holds nothing.
func (s *BookService) BorrowedBy(ctx context.Context, userID string) ([]*domain.Book, error) {
	user, err := s.store.GetUser(ctx, userID)
	if domainerrors.Is(err, domainerrors.ErrUserNotFound) {
		return []*domain.Book{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return s.store.GetBooks(ctx, user.BorrowedBooks)
}

// CreateBook adds a title to the catalog with stock and total copies both
// set to the requested stock.
//
// Validation order: missing fields, negative stock, isbn format, then isbn
// uniqueness.
func (s *BookService) CreateBook(ctx context.Context, req CreateBookRequest) (*domain.Book, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if *req.Stock < 0 {
		return nil, domainerrors.ErrInvalidStock
	}
	// Uniqueness is checked on the normalized form, which must not be empty.
	if normalize.ISBN(req.ISBN) == "" {
		return nil, domainerrors.ValidationWithDetails("validation failed",
			map[string]string{"isbn": "must contain digits"})
	}

	draft := domain.NewBook("",
		normalize.Text(req.Title),
		normalize.Text(req.Author),
		strings.TrimSpace(req.ISBN),
		*req.Stock,
		strings.TrimSpace(req.ImageURL),
		s.store.Now(),
	)

	book, err := s.store.CreateBook(ctx, draft)
	if err != nil {
		return nil, err
	}

	s.logger.Info("book created",
		"book_id", book.ID,
		"isbn", book.ISBN,
		"stock", book.Stock)
	return book, nil
}

// UpdateStock sets a book's shelf stock and optionally its owned copies.
// Both changes apply together or not at all.
func (s *BookService) UpdateStock(ctx context.Context, bookID string, req UpdateStockRequest) (*domain.Book, error) {
	book, err := s.store.UpdateBook(ctx, bookID, func(b *domain.Book) error {
		if req.Stock == nil {
			return domainerrors.ErrInvalidStock
		}
		return domain.ApplyStockUpdate(b, *req.Stock, req.TotalCopies, s.store.Now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock updated",
		"book_id", book.ID,
		"stock", book.Stock,
		"total_copies", book.TotalCopies)
	return book, nil
}

// DeleteBook removes a title that has no copies out on loan.
func (s *BookService) DeleteBook(ctx context.Context, bookID string) error {
	if err := s.store.DeleteBook(ctx, bookID, domain.DecideDelete); err != nil {
		return err
	}
	s.logger.Info("book deleted", "book_id", bookID)
	return nil
}

// Seed installs the starter catalog on a store that has never held books.
func (s *BookService) Seed(ctx context.Context) (bool, error) {
	seeded, err := s.store.Seed(ctx)
	if err != nil {
		return false, fmt.Errorf("seed catalog: %w", err)
	}
	return seeded, nil
}
