package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/libraryhub/library-server/internal/domain"
	"github.com/libraryhub/library-server/internal/normalize"
)

// SearchBooks returns the books whose title, author or isbn match query,
// best match first. A blank query returns the whole catalog.
func (s *BookService) SearchBooks(ctx context.Context, query string) ([]*domain.Book, error) {
	if strings.TrimSpace(query) == "" {
		return s.ListBooks(ctx)
	}

	if s.search == nil {
		return s.scanBooks(ctx, query)
	}

	ids, err := s.search.Search(ctx, query, 0)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}

	// The index can briefly lag a delete; GetBooks skips ids that are gone.
	books, err := s.store.GetBooks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load search results: %w", err)
	}

	s.logger.Debug("searched books", "query", query, "results", len(books))
	return books, nil
}

// scanBooks filters the catalog by case- and accent-insensitive substring.
func (s *BookService) scanBooks(ctx context.Context, query string) ([]*domain.Book, error) {
	books, err := s.ListBooks(ctx)
	if err != nil {
		return nil, err
	}

	folded := normalize.Fold(query)
	isbn := ""
	if normalize.LooksLikeISBN(query) {
		isbn = normalize.ISBN(query)
	}

	matches := make([]*domain.Book, 0, len(books))
	for _, b := range books {
		switch {
		case strings.Contains(normalize.Fold(b.Title), folded),
			strings.Contains(normalize.Fold(b.Author), folded),
			isbn != "" && strings.Contains(normalize.ISBN(b.ISBN), isbn):
			matches = append(matches, b)
		}
	}
	return matches, nil
}
