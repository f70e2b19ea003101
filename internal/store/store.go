// Package store holds the catalog, the user registry and the borrow ledger.
//
// State lives in memory and is written through to a Persister before any
// change becomes visible, so a failed write leaves memory untouched. Each
// book and each user has its own lock; operations that touch both acquire
// the book first, then the user, then the ledger.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/libraryhub/library-server/internal/domain"
	"github.com/libraryhub/library-server/internal/id"
	"github.com/libraryhub/library-server/internal/normalize"
)

// EventEmitter is the interface for emitting SSE events.
// Store uses this to broadcast changes without depending on SSE implementation details.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// NewNoopEmitter creates a new no-op emitter for testing.
func NewNoopEmitter() EventEmitter {
	return NoopEmitter{}
}

// SearchIndexer is the interface for updating the search index.
// Only catalog membership changes are indexed; stock lives in the store.
type SearchIndexer interface {
	IndexBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, bookID string) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexBook is a no-op.
func (NoopSearchIndexer) IndexBook(context.Context, *domain.Book) error { return nil }

// DeleteBook is a no-op.
func (NoopSearchIndexer) DeleteBook(context.Context, string) error { return nil }

type bookEntry struct {
	mu      sync.RWMutex
	book    *domain.Book
	removed bool
}

type userEntry struct {
	mu   sync.Mutex
	user *domain.User // nil until the first successful borrow
	refs int          // registering borrowers holding the slot; guarded by Store.usersMu
}

// Store is the in-memory catalog, registry and ledger.
type Store struct {
	logger    *slog.Logger
	persister Persister
	clock     func() time.Time

	// SSE event emitter for broadcasting changes.
	eventEmitter EventEmitter

	// Set via SetSearchIndexer after store creation to avoid circular dependencies.
	searchIndexer SearchIndexer

	catalogMu  sync.RWMutex
	books      map[string]*bookEntry
	order      []string          // insertion order
	isbns      map[string]string // normalized isbn -> book id
	nextBookID int
	seeded     bool

	usersMu   sync.RWMutex
	users     map[string]*userEntry
	userOrder []string // registration order

	// ledgerMu also guards nextUserSeq: registrations commit with the ledger.
	ledgerMu    sync.RWMutex
	history     []domain.HistoryEntry
	nextSeq     uint64
	nextUserSeq uint64
}

// New creates an empty store backed by persister.
// Call Load before serving requests.
func New(persister Persister, logger *slog.Logger, emitter EventEmitter) *Store {
	if persister == nil {
		persister = NoopPersister{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if emitter == nil {
		emitter = NewNoopEmitter()
	}
	return &Store{
		logger:        logger,
		persister:     persister,
		clock:         time.Now,
		eventEmitter:  emitter,
		searchIndexer: NoopSearchIndexer{},
		books:         make(map[string]*bookEntry),
		isbns:         make(map[string]string),
		nextBookID:    domain.FirstBookID,
		users:         make(map[string]*userEntry),
		nextSeq:       1,
		nextUserSeq:   1,
	}
}

// SetSearchIndexer sets the search indexer for keeping search in sync.
func (s *Store) SetSearchIndexer(indexer SearchIndexer) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.searchIndexer = indexer
}

// SetClock replaces the time source. Intended for tests.
func (s *Store) SetClock(clock func() time.Time) {
	s.clock = clock
}

// Now returns the current time from the store's clock.
func (s *Store) Now() time.Time {
	return s.clock()
}

// Load replaces in-memory state with the persisted snapshot.
func (s *Store) Load(ctx context.Context) error {
	snap, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	s.books = make(map[string]*bookEntry, len(snap.Books))
	s.order = s.order[:0]
	s.isbns = make(map[string]string, len(snap.Books))
	s.nextBookID = max(snap.NextBookID, domain.FirstBookID)
	s.seeded = snap.NextBookID > 0

	books := slices.Clone(snap.Books)
	slices.SortStableFunc(books, func(a, b *domain.Book) int { return id.CompareBooks(a.ID, b.ID) })
	for _, b := range books {
		s.books[b.ID] = &bookEntry{book: b}
		s.order = append(s.order, b.ID)
		s.isbns[normalize.ISBN(b.ISBN)] = b.ID
		if n, ok := id.ParseBook(b.ID); ok && n >= s.nextBookID {
			s.nextBookID = n + 1
		}
	}

	s.users = make(map[string]*userEntry, len(snap.Users))
	s.userOrder = s.userOrder[:0]
	s.nextUserSeq = 1
	for _, u := range snap.Users {
		s.users[u.ID] = &userEntry{user: u}
		s.userOrder = append(s.userOrder, u.ID)
		s.nextUserSeq = max(s.nextUserSeq, u.RegistrationSeq+1)
	}

	s.history = slices.Clone(snap.History)
	s.nextSeq = 1
	if n := len(s.history); n > 0 {
		s.nextSeq = s.history[n-1].Seq + 1
	}

	s.logger.Info("store loaded",
		"books", len(s.books),
		"users", len(s.users),
		"history", len(s.history),
		"next_book_id", s.nextBookID)
	return nil
}

// Seed installs the starter catalog if the store has never been initialized.
// Returns true when books were added.
func (s *Store) Seed(ctx context.Context) (bool, error) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()

	if s.seeded || len(s.books) > 0 {
		return false, nil
	}

	books := domain.SeedBooks(s.clock())
	change := &Change{PutBooks: books, NextBookID: domain.FirstBookID}
	if err := s.persister.Commit(ctx, change); err != nil {
		return false, fmt.Errorf("seed catalog: %w", err)
	}

	for _, b := range books {
		s.books[b.ID] = &bookEntry{book: b}
		s.order = append(s.order, b.ID)
		s.isbns[normalize.ISBN(b.ISBN)] = b.ID
		s.indexBook(ctx, b)
	}
	s.nextBookID = domain.FirstBookID
	s.seeded = true

	s.logger.Info("seed catalog installed", "books", len(books))
	return true, nil
}

// Close flushes and closes the persister.
func (s *Store) Close() error {
	s.logger.Info("closing store")
	return s.persister.Close()
}

// indexBook must be called with catalogMu held so index updates keep catalog order.
func (s *Store) indexBook(ctx context.Context, b *domain.Book) {
	if err := s.searchIndexer.IndexBook(ctx, b); err != nil {
		s.logger.Error("failed to index book", "book_id", b.ID, "error", err)
	}
}
