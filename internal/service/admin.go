package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/libraryhub/library-server/internal/domain"
	"github.com/libraryhub/library-server/internal/store"
)

// AdminService serves the ledger, registry and statistics views.
type AdminService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(store *store.Store, logger *slog.Logger) *AdminService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AdminService{
		store:  store,
		logger: logger,
	}
}

// History returns the borrow ledger, most recent entry first.
func (s *AdminService) History(ctx context.Context) ([]domain.HistoryEntry, error) {
	entries, err := s.store.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return entries, nil
}

// ListUsers returns every registered borrower in registration order.
func (s *AdminService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
