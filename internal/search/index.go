package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/libraryhub/library-server/internal/domain"
	"github.com/libraryhub/library-server/internal/store"
)

// Index wraps an in-memory Bleve index of the catalog.
//
// Thread safety: All public methods are safe for concurrent use.
// The mutex protects against index swaps during Rebuild.
type Index struct {
	index  bleve.Index
	logger *slog.Logger
	mu     sync.RWMutex
}

var _ store.SearchIndexer = (*Index)(nil)

// Options configures the search index.
type Options struct {
	Logger *slog.Logger // Logger for operations (uses discard if nil)
}

// NewIndex creates an empty in-memory index.
// The store is the source of truth, so the index is rebuilt on every start.
func NewIndex(opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	index, err := newMemIndex()
	if err != nil {
		return nil, err
	}

	return &Index{index: index, logger: logger}, nil
}

func newMemIndex() (bleve.Index, error) {
	indexMapping, err := buildIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("build mapping: %w", err)
	}
	index, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return index, nil
}

// Close closes the index and releases resources.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexBook adds or replaces a book in the index.
func (s *Index) IndexBook(_ context.Context, book *domain.Book) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := NewDocument(book)
	return s.index.Index(doc.ID, doc.ToMap())
}

// DeleteBook removes a book from the index.
func (s *Index) DeleteBook(_ context.Context, bookID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(bookID)
}

// IndexBooks indexes books in batches.
func (s *Index) IndexBooks(books []*domain.Book) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexBatch(s.index, books)
}

func indexBatch(index bleve.Index, books []*domain.Book) error {
	const batchSize = 500

	for i := 0; i < len(books); i += batchSize {
		end := min(i+batchSize, len(books))

		batch := index.NewBatch()
		for _, b := range books[i:end] {
			doc := NewDocument(b)
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}

		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// DocumentCount returns the total number of indexed documents.
func (s *Index) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild replaces the index contents with books.
//
// The new index is built before the swap, so searches keep working on the
// old one until it is ready.
func (s *Index) Rebuild(books []*domain.Book) error {
	fresh, err := newMemIndex()
	if err != nil {
		return err
	}
	if err := indexBatch(fresh, books); err != nil {
		_ = fresh.Close()
		return err
	}

	s.mu.Lock()
	old := s.index
	s.index = fresh
	s.mu.Unlock()

	if err := old.Close(); err != nil {
		s.logger.Warn("failed to close previous search index", "error", err)
	}
	s.logger.Info("rebuilt search index", "books", len(books))
	return nil
}
