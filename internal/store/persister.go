package store

import (
	"context"

	"github.com/libraryhub/library-server/internal/domain"
)

// Persister durably records store changes.
// Commit must apply a Change atomically: all of it or none of it.
type Persister interface {
	Load(ctx context.Context) (*Snapshot, error)
	Commit(ctx context.Context, change *Change) error
	Close() error
}

// Snapshot is the full persisted state.
type Snapshot struct {
	Books      []*domain.Book
	Users      []*domain.User        // registration order
	History    []domain.HistoryEntry // append order
	NextBookID int                   // 0 when the store has never been initialized
}

// Change is one atomic unit of work produced by a store operation.
type Change struct {
	PutBooks      []*domain.Book
	DeleteBookIDs []string
	PutUsers      []*domain.User
	AppendHistory []domain.HistoryEntry
	NextBookID    int // 0 leaves the counter unchanged
}

// NoopPersister keeps nothing. Used by the memory driver and in tests.
type NoopPersister struct{}

// Load returns an empty, uninitialized snapshot.
func (NoopPersister) Load(context.Context) (*Snapshot, error) { return &Snapshot{}, nil }

// Commit discards the change.
func (NoopPersister) Commit(context.Context, *Change) error { return nil }

// Close is a no-op.
func (NoopPersister) Close() error { return nil }
