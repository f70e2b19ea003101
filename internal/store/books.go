package store

import (
	"context"

	"github.com/libraryhub/library-server/internal/domain"
	domainerrors "github.com/libraryhub/library-server/internal/errors"
	"github.com/libraryhub/library-server/internal/id"
	"github.com/libraryhub/library-server/internal/normalize"
	"github.com/libraryhub/library-server/internal/sse"
)

// GetBook returns a copy of the book with the given id.
func (s *Store) GetBook(_ context.Context, bookID string) (*domain.Book, error) {
	e := s.lookupBook(bookID)
	if e == nil {
		return nil, domainerrors.NotFoundf("book %s not found", bookID)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.removed {
		return nil, domainerrors.NotFoundf("book %s not found", bookID)
	}
	return e.book.Clone(), nil
}

// GetBookByISBN returns a copy of the book with the given isbn, in any formatting.
func (s *Store) GetBookByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	s.catalogMu.RLock()
	bookID, ok := s.isbns[normalize.ISBN(isbn)]
	s.catalogMu.RUnlock()

	if !ok {
		return nil, domainerrors.NotFoundf("no book with isbn %s", isbn)
	}
	return s.GetBook(ctx, bookID)
}

// ListBooks returns copies of all books in insertion order.
func (s *Store) ListBooks(_ context.Context) ([]*domain.Book, error) {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()

	books := make([]*domain.Book, 0, len(s.order))
	for _, bookID := range s.order {
		e := s.books[bookID]
		e.mu.RLock()
		books = append(books, e.book.Clone())
		e.mu.RUnlock()
	}
	return books, nil
}

// GetBooks returns copies of the books with the given ids, skipping unknown ids.
// Results follow the order of ids.
func (s *Store) GetBooks(ctx context.Context, ids []string) ([]*domain.Book, error) {
	books := make([]*domain.Book, 0, len(ids))
	for _, bookID := range ids {
		b, err := s.GetBook(ctx, bookID)
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, nil
}

// CreateBook assigns the next book id to draft and adds it to the catalog.
// Returns DUPLICATE_ISBN if another book has the same normalized isbn.
func (s *Store) CreateBook(ctx context.Context, draft *domain.Book) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()

	key := normalize.ISBN(draft.ISBN)
	if existing, ok := s.isbns[key]; ok {
		return nil, domainerrors.ErrDuplicateIsbn.WithDetails(map[string]any{"isbn": draft.ISBN, "bookId": existing})
	}

	book := draft.Clone()
	book.ID = id.Book(s.nextBookID)
	if book.BorrowedBy == nil {
		book.BorrowedBy = []domain.BorrowRecord{}
	}
	if book.CreatedAt.IsZero() {
		book.InitTimestamps(s.clock())
	}

	change := &Change{PutBooks: []*domain.Book{book}, NextBookID: s.nextBookID + 1}
	if err := s.persister.Commit(ctx, change); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to save book")
	}

	s.books[book.ID] = &bookEntry{book: book}
	s.order = append(s.order, book.ID)
	s.isbns[key] = book.ID
	s.nextBookID++
	s.seeded = true

	s.indexBook(ctx, book)
	s.eventEmitter.Emit(sse.NewBookCreatedEvent(book.Clone()))

	s.logger.Debug("book created", "book_id", book.ID, "isbn", book.ISBN)
	return book.Clone(), nil
}

// UpdateBook applies fn to a private copy of the book under the book's write
// lock. The copy replaces the stored book only if fn and the persister succeed.
func (s *Store) UpdateBook(ctx context.Context, bookID string, fn func(b *domain.Book) error) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e := s.lookupBook(bookID)
	if e == nil {
		return nil, domainerrors.NotFoundf("book %s not found", bookID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return nil, domainerrors.NotFoundf("book %s not found", bookID)
	}

	updated := e.book.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}

	if err := s.persister.Commit(ctx, &Change{PutBooks: []*domain.Book{updated}}); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to save book")
	}
	e.book = updated

	s.eventEmitter.Emit(sse.NewBookUpdatedEvent(updated.Clone()))
	return updated.Clone(), nil
}

// DeleteBook removes a book from the catalog after check approves it.
// check runs under the catalog and book write locks.
func (s *Store) DeleteBook(ctx context.Context, bookID string, check func(b *domain.Book) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()

	e, ok := s.books[bookID]
	if !ok {
		return domainerrors.NotFoundf("book %s not found", bookID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if check != nil {
		if err := check(e.book); err != nil {
			return err
		}
	}

	if err := s.persister.Commit(ctx, &Change{DeleteBookIDs: []string{bookID}}); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to delete book")
	}

	e.removed = true
	delete(s.books, bookID)
	delete(s.isbns, normalize.ISBN(e.book.ISBN))
	for i, oid := range s.order {
		if oid == bookID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	if err := s.searchIndexer.DeleteBook(ctx, bookID); err != nil {
		s.logger.Error("failed to remove book from index", "book_id", bookID, "error", err)
	}
	s.eventEmitter.Emit(sse.NewBookDeletedEvent(bookID, s.clock()))

	s.logger.Debug("book deleted", "book_id", bookID)
	return nil
}

// CountBooks returns the number of catalog entries.
func (s *Store) CountBooks() int {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	return len(s.books)
}

func (s *Store) lookupBook(bookID string) *bookEntry {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	return s.books[bookID]
}
