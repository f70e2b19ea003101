package sqlite

import (
	"fmt"
	"slices"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/libraryhub/library-server/internal/domain"
	"github.com/libraryhub/library-server/internal/id"
)

// bookRow mirrors the books table. The borrow trail is a JSON column.
type bookRow struct {
	ID          string `db:"id"`
	Title       string `db:"title"`
	Author      string `db:"author"`
	ISBN        string `db:"isbn"`
	Stock       int    `db:"stock"`
	TotalCopies int    `db:"total_copies"`
	BorrowedBy  string `db:"borrowed_by"`
	ImageURL    string `db:"image_url"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

var bookUpdate = goqu.Record{
	"title":        goqu.I("excluded.title"),
	"author":       goqu.I("excluded.author"),
	"isbn":         goqu.I("excluded.isbn"),
	"stock":        goqu.I("excluded.stock"),
	"total_copies": goqu.I("excluded.total_copies"),
	"borrowed_by":  goqu.I("excluded.borrowed_by"),
	"image_url":    goqu.I("excluded.image_url"),
	"updated_at":   goqu.I("excluded.updated_at"),
}

func toBookRow(b *domain.Book) (bookRow, error) {
	records := b.BorrowedBy
	if records == nil {
		records = []domain.BorrowRecord{}
	}
	trail, err := json.Marshal(records)
	if err != nil {
		return bookRow{}, fmt.Errorf("marshal borrow trail of %s: %w", b.ID, err)
	}
	return bookRow{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		ISBN:        b.ISBN,
		Stock:       b.Stock,
		TotalCopies: b.TotalCopies,
		BorrowedBy:  string(trail),
		ImageURL:    b.ImageURL,
		CreatedAt:   formatTime(b.CreatedAt),
		UpdatedAt:   formatTime(b.UpdatedAt),
	}, nil
}

func (r bookRow) toDomain() (*domain.Book, error) {
	b := &domain.Book{
		ID:          r.ID,
		Title:       r.Title,
		Author:      r.Author,
		ISBN:        r.ISBN,
		Stock:       r.Stock,
		TotalCopies: r.TotalCopies,
		ImageURL:    r.ImageURL,
	}
	if err := json.Unmarshal([]byte(r.BorrowedBy), &b.BorrowedBy); err != nil {
		return nil, err
	}
	if b.BorrowedBy == nil {
		b.BorrowedBy = []domain.BorrowRecord{}
	}

	var err error
	if b.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return nil, err
	}
	return b, nil
}

func sortBooks(books []*domain.Book) {
	slices.SortStableFunc(books, func(a, b *domain.Book) int { return id.CompareBooks(a.ID, b.ID) })
}

type userRow struct {
	ID            string `db:"id"`
	Name          string `db:"name"`
	BorrowedBooks string `db:"borrowed_books"`
	RegisteredAt  string `db:"registered_at"`
	Seq           uint64 `db:"registration_seq"`
}

var userUpdate = goqu.Record{
	"name":           goqu.I("excluded.name"),
	"borrowed_books": goqu.I("excluded.borrowed_books"),
}

func toUserRow(u *domain.User) (userRow, error) {
	held := u.BorrowedBooks
	if held == nil {
		held = []string{}
	}
	data, err := json.Marshal(held)
	if err != nil {
		return userRow{}, fmt.Errorf("marshal borrowed books of %s: %w", u.ID, err)
	}
	return userRow{
		ID:            u.ID,
		Name:          u.Name,
		BorrowedBooks: string(data),
		RegisteredAt:  formatTime(u.RegisteredAt),
		Seq:           u.RegistrationSeq,
	}, nil
}

func (r userRow) toDomain() (*domain.User, error) {
	u := &domain.User{ID: r.ID, Name: r.Name, RegistrationSeq: r.Seq}
	if err := json.Unmarshal([]byte(r.BorrowedBooks), &u.BorrowedBooks); err != nil {
		return nil, err
	}
	if u.BorrowedBooks == nil {
		u.BorrowedBooks = []string{}
	}
	var err error
	if u.RegisteredAt, err = parseTime(r.RegisteredAt); err != nil {
		return nil, err
	}
	return u, nil
}

type historyRow struct {
	Seq          uint64  `db:"seq"`
	ID           string  `db:"id"`
	UserID       string  `db:"user_id"`
	UserName     string  `db:"user_name"`
	BookID       string  `db:"book_id"`
	BookTitle    string  `db:"book_title"`
	BorrowedDate string  `db:"borrowed_date"`
	ReturnDate   *string `db:"return_date"`
	Action       string  `db:"action"`
	Status       string  `db:"status"`
}

func toHistoryRow(e domain.HistoryEntry) historyRow {
	row := historyRow{
		Seq:          e.Seq,
		ID:           e.ID,
		UserID:       e.UserID,
		UserName:     e.UserName,
		BookID:       e.BookID,
		BookTitle:    e.BookTitle,
		BorrowedDate: formatTime(e.BorrowedDate),
		Action:       string(e.Action),
		Status:       string(e.Status),
	}
	if e.ReturnDate != nil {
		s := formatTime(*e.ReturnDate)
		row.ReturnDate = &s
	}
	return row
}

func (r historyRow) toDomain() (domain.HistoryEntry, error) {
	e := domain.HistoryEntry{
		ID:        r.ID,
		Seq:       r.Seq,
		UserID:    r.UserID,
		UserName:  r.UserName,
		BookID:    r.BookID,
		BookTitle: r.BookTitle,
		Action:    domain.HistoryAction(r.Action),
		Status:    domain.BorrowStatus(r.Status),
	}
	var err error
	if e.BorrowedDate, err = parseTime(r.BorrowedDate); err != nil {
		return e, err
	}
	if r.ReturnDate != nil {
		t, err := parseTime(*r.ReturnDate)
		if err != nil {
			return e, err
		}
		e.ReturnDate = &t
	}
	return e, nil
}

type metaRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
