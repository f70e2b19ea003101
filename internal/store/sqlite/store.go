// Package sqlite persists the library store in a SQLite database.
// Queries are built with goqu and executed through sqlx.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	"github.com/libraryhub/library-server/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Table names.
const (
	tableBooks   = "books"
	tableUsers   = "users"
	tableHistory = "history"
	tableMeta    = "meta"
)

const metaNextBookID = "next_book_id"

// Persister implements store.Persister on SQLite.
type Persister struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
	logger  *slog.Logger
}

var _ store.Persister = (*Persister)(nil)

// Open creates or opens a SQLite database at the given path.
// It configures WAL mode, sets pragmas, and applies the schema.
func Open(path string, logger *slog.Logger) (*Persister, error) {
	raw, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One writer at a time is a SQLite limitation.
	raw.SetMaxOpenConns(1)
	raw.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := raw.Exec(pragma); err != nil {
			raw.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := raw.Exec(schemaSQL); err != nil {
		raw.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger != nil {
		logger.Info("SQLite database opened", "path", path)
	}

	return &Persister{
		db:      sqlx.NewDb(raw, "sqlite"),
		dialect: goqu.Dialect("sqlite3"),
		logger:  logger,
	}, nil
}

// Close closes the underlying database connection.
func (p *Persister) Close() error {
	return p.db.Close()
}

// Commit applies a change in a single transaction.
func (p *Persister) Commit(ctx context.Context, change *store.Change) (err error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, b := range change.PutBooks {
		row, err := toBookRow(b)
		if err != nil {
			return err
		}
		if err := p.upsert(ctx, tx, tableBooks, "id", row, bookUpdate); err != nil {
			return fmt.Errorf("put book %s: %w", b.ID, err)
		}
	}

	if len(change.DeleteBookIDs) > 0 {
		query, args, err := p.dialect.Delete(tableBooks).
			Where(goqu.C("id").In(change.DeleteBookIDs)).
			Prepared(true).ToSQL()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete books: %w", err)
		}
	}

	for _, u := range change.PutUsers {
		row, err := toUserRow(u)
		if err != nil {
			return err
		}
		if err := p.upsert(ctx, tx, tableUsers, "id", row, userUpdate); err != nil {
			return fmt.Errorf("put user %s: %w", u.ID, err)
		}
	}

	if len(change.AppendHistory) > 0 {
		rows := make([]any, len(change.AppendHistory))
		for i, e := range change.AppendHistory {
			rows[i] = toHistoryRow(e)
		}
		query, args, err := p.dialect.Insert(tableHistory).Rows(rows...).Prepared(true).ToSQL()
		if err != nil {
			return fmt.Errorf("build history insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
	}

	if change.NextBookID > 0 {
		row := metaRow{Key: metaNextBookID, Value: fmt.Sprint(change.NextBookID)}
		if err := p.upsert(ctx, tx, tableMeta, "key", row, goqu.Record{"value": goqu.I("excluded.value")}); err != nil {
			return fmt.Errorf("set next book id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (p *Persister) upsert(ctx context.Context, tx *sqlx.Tx, table, key string, row any, update goqu.Record) error {
	query, args, err := p.dialect.Insert(table).
		Rows(row).
		OnConflict(goqu.DoUpdate(key, update)).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// Load reads the full persisted state.
func (p *Persister) Load(ctx context.Context) (*store.Snapshot, error) {
	snap := &store.Snapshot{}

	var books []bookRow
	if err := p.selectAll(ctx, &books, p.dialect.From(tableBooks).Select(&bookRow{})); err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	for _, r := range books {
		b, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode book %s: %w", r.ID, err)
		}
		snap.Books = append(snap.Books, b)
	}
	sortBooks(snap.Books)

	var users []userRow
	if err := p.selectAll(ctx, &users, p.dialect.From(tableUsers).Select(&userRow{}).
		Order(goqu.C("registration_seq").Asc())); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, r := range users {
		u, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode user %s: %w", r.ID, err)
		}
		snap.Users = append(snap.Users, u)
	}

	var history []historyRow
	if err := p.selectAll(ctx, &history, p.dialect.From(tableHistory).Select(&historyRow{}).
		Order(goqu.C("seq").Asc())); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	for _, r := range history {
		e, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode history %d: %w", r.Seq, err)
		}
		snap.History = append(snap.History, e)
	}

	var meta []metaRow
	if err := p.selectAll(ctx, &meta, p.dialect.From(tableMeta).Select(&metaRow{}).
		Where(goqu.C("key").Eq(metaNextBookID))); err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	if len(meta) == 1 {
		if _, err := fmt.Sscan(meta[0].Value, &snap.NextBookID); err != nil {
			return nil, fmt.Errorf("parse next book id: %w", err)
		}
	}

	return snap, nil
}

func (p *Persister) selectAll(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build select: %w", err)
	}
	return p.db.SelectContext(ctx, dest, query, args...)
}
