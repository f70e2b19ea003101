package service

import (
	"context"
	"fmt"

	"github.com/libraryhub/library-server/internal/domain"
)

// Statistics computes library-wide totals from the current catalog and registry.
func (s *AdminService) Statistics(ctx context.Context) (domain.Statistics, error) {
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("list books: %w", err)
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("list users: %w", err)
	}

	stats := domain.ComputeStatistics(books, users)
	s.logger.Debug("computed statistics",
		"total_books", stats.TotalBooks,
		"borrowed_books", stats.BorrowedBooks)
	return stats, nil
}
