// Package kv persists the library store in a Badger key-value database.
package kv

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	jsoniter "github.com/json-iterator/go"

	"github.com/libraryhub/library-server/internal/domain"
	"github.com/libraryhub/library-server/internal/id"
	"github.com/libraryhub/library-server/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Key prefixes.
const (
	bookPrefix    = "book:"
	userPrefix    = "user:"
	historyPrefix = "history:"
	nextBookIDKey = "meta:next_book_id"
)

// Persister implements store.Persister on Badger.
type Persister struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ store.Persister = (*Persister)(nil)

// Options configures Open.
type Options struct {
	ReadOnly bool
	InMemory bool
}

// Open opens (or creates) a Badger database at path.
func Open(path string, logger *slog.Logger, o Options) (*Persister, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup
	opts.ReadOnly = o.ReadOnly
	if o.InMemory {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path, "read_only", o.ReadOnly)
	}
	return &Persister{db: db, logger: logger}, nil
}

// Close gracefully closes the database.
func (p *Persister) Close() error {
	if p.logger != nil {
		p.logger.Info("Closing badger database")
	}
	return p.db.Close()
}

func bookKey(bookID string) []byte { return []byte(bookPrefix + bookID) }
func userKey(userID string) []byte { return []byte(userPrefix + userID) }

// userRecord is the stored form of a user. The registration sequence is
// kept beside the user because it never appears in API output.
type userRecord struct {
	User domain.User `json:"user"`
	Seq  uint64      `json:"seq"`
}

// historyKey zero-pads seq so lexical key order is ledger order.
func historyKey(seq uint64) []byte { return fmt.Appendf(nil, "%s%020d", historyPrefix, seq) }

// Commit writes a change in a single Badger transaction.
func (p *Persister) Commit(ctx context.Context, change *store.Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return p.db.Update(func(txn *badger.Txn) error {
		for _, b := range change.PutBooks {
			if err := setJSON(txn, bookKey(b.ID), b); err != nil {
				return fmt.Errorf("put book %s: %w", b.ID, err)
			}
		}
		for _, bookID := range change.DeleteBookIDs {
			if err := txn.Delete(bookKey(bookID)); err != nil {
				return fmt.Errorf("delete book %s: %w", bookID, err)
			}
		}
		for _, u := range change.PutUsers {
			if err := setJSON(txn, userKey(u.ID), userRecord{User: *u, Seq: u.RegistrationSeq}); err != nil {
				return fmt.Errorf("put user %s: %w", u.ID, err)
			}
		}
		for _, e := range change.AppendHistory {
			if err := setJSON(txn, historyKey(e.Seq), e); err != nil {
				return fmt.Errorf("append history %d: %w", e.Seq, err)
			}
		}
		if change.NextBookID > 0 {
			if err := txn.Set([]byte(nextBookIDKey), []byte(strconv.Itoa(change.NextBookID))); err != nil {
				return fmt.Errorf("set next book id: %w", err)
			}
		}
		return nil
	})
}

// Load reads the full persisted state.
func (p *Persister) Load(ctx context.Context) (*store.Snapshot, error) {
	snap := &store.Snapshot{}

	err := p.db.View(func(txn *badger.Txn) error {
		var err error
		if snap.Books, err = scanPrefix[domain.Book](ctx, txn, bookPrefix); err != nil {
			return fmt.Errorf("scan books: %w", err)
		}
		records, err := scanPrefix[userRecord](ctx, txn, userPrefix)
		if err != nil {
			return fmt.Errorf("scan users: %w", err)
		}
		snap.Users = make([]*domain.User, len(records))
		for i, r := range records {
			u := r.User
			u.RegistrationSeq = r.Seq
			snap.Users[i] = &u
		}
		entries, err := scanPrefix[domain.HistoryEntry](ctx, txn, historyPrefix)
		if err != nil {
			return fmt.Errorf("scan history: %w", err)
		}
		snap.History = make([]domain.HistoryEntry, len(entries))
		for i, e := range entries {
			snap.History[i] = *e
		}

		item, err := txn.Get([]byte(nextBookIDKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			n, err := strconv.Atoi(string(val))
			if err != nil {
				return fmt.Errorf("parse next book id: %w", err)
			}
			snap.NextBookID = n
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(snap.Books, func(a, b *domain.Book) int { return id.CompareBooks(a.ID, b.ID) })
	slices.SortStableFunc(snap.Users, func(a, b *domain.User) int {
		return cmp.Compare(a.RegistrationSeq, b.RegistrationSeq)
	})
	return snap, nil
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return txn.Set(key, data)
}

func scanPrefix[T any](ctx context.Context, txn *badger.Txn, prefix string) ([]*T, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []*T
	for it.Rewind(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var v T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		}); err != nil {
			return nil, fmt.Errorf("decode %s: %w", it.Item().Key(), err)
		}
		out = append(out, &v)
	}
	return out, nil
}
