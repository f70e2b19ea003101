package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libraryhub/library-server/internal/domain"
	domainerrors "github.com/libraryhub/library-server/internal/errors"
	"github.com/libraryhub/library-server/internal/sse"
)

var testNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

// recordingPersister remembers every committed change and can be told to fail.
type recordingPersister struct {
	mu      sync.Mutex
	changes []*Change
	fail    atomic.Bool
	snap    *Snapshot
}

func (p *recordingPersister) Load(context.Context) (*Snapshot, error) {
	if p.snap != nil {
		return p.snap, nil
	}
	return &Snapshot{}, nil
}

func (p *recordingPersister) Commit(_ context.Context, c *Change) error {
	if p.fail.Load() {
		return errors.New("disk on fire")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
	return nil
}

func (p *recordingPersister) Close() error { return nil }

// recordingEmitter collects emitted events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []any
}

func (e *recordingEmitter) Emit(event any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func newTestStore(t *testing.T) (*Store, *recordingPersister) {
	t.Helper()
	p := &recordingPersister{}
	s := New(p, nil, nil)
	s.SetClock(func() time.Time { return testNow })
	require.NoError(t, s.Load(context.Background()))
	return s, p
}

func newSeededStore(t *testing.T) *Store {
	t.Helper()
	s, _ := newTestStore(t)
	seeded, err := s.Seed(context.Background())
	require.NoError(t, err)
	require.True(t, seeded)
	return s
}

// borrow runs the borrow rules the way the lending engine does.
func borrow(s *Store, bookID, userID, userName string) (*domain.Book, *domain.User, error) {
	return s.Lend(context.Background(), bookID, userID, LendOptions{Register: true}, func(tx *LendTx) error {
		if err := domain.DecideBorrow(tx.Book, tx.User, userID); err != nil {
			return err
		}
		user, entry := domain.ApplyBorrow(tx.Book, tx.User, userID, userName, tx.Now)
		tx.User = user
		tx.Append(entry)
		return nil
	})
}

func giveBack(s *Store, bookID, userID string) (*domain.Book, *domain.User, error) {
	return s.Lend(context.Background(), bookID, userID, LendOptions{}, func(tx *LendTx) error {
		idx, err := domain.DecideReturn(tx.Book, tx.User, userID)
		if err != nil {
			return err
		}
		tx.Append(domain.ApplyReturn(tx.Book, tx.User, idx, tx.Now))
		return nil
	})
}

func TestStore_SeedOnce(t *testing.T) {
	s := newSeededStore(t)

	books, err := s.ListBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 5)
	assert.Equal(t, "The Great Gatsby", books[0].Title)

	seeded, err := s.Seed(context.Background())
	require.NoError(t, err)
	assert.False(t, seeded, "second seed is a no-op")
}

func TestStore_CreateBook_AssignsCounterIDs(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	first, err := s.CreateBook(ctx, domain.NewBook("", "Dune", "Frank Herbert", "9780441013593", 2, "", testNow))
	require.NoError(t, err)
	assert.Equal(t, "6", first.ID)

	second, err := s.CreateBook(ctx, domain.NewBook("", "Emma", "Jane Austen", "9780141439587", 1, "", testNow))
	require.NoError(t, err)
	assert.Equal(t, "7", second.ID)

	// Deleted ids are never reused.
	require.NoError(t, s.DeleteBook(ctx, "7", nil))
	third, err := s.CreateBook(ctx, domain.NewBook("", "Persuasion", "Jane Austen", "9780141439686", 1, "", testNow))
	require.NoError(t, err)
	assert.Equal(t, "8", third.ID)
}

func TestStore_CreateBook_DuplicateIsbn(t *testing.T) {
	s := newSeededStore(t)

	_, err := s.CreateBook(context.Background(), domain.NewBook("", "Gatsby again", "F. Scott Fitzgerald", "978-0-7432-7356-5", 1, "", testNow))

	assert.ErrorIs(t, err, domainerrors.ErrDuplicateIsbn)
	assert.Equal(t, 5, s.CountBooks())
}

func TestStore_GetBookByISBN(t *testing.T) {
	s := newSeededStore(t)

	b, err := s.GetBookByISBN(context.Background(), "978-0451524935")
	require.NoError(t, err)
	assert.Equal(t, "3", b.ID)

	_, err = s.GetBookByISBN(context.Background(), "0000")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestStore_ReadsReturnCopies(t *testing.T) {
	s := newSeededStore(t)

	b, err := s.GetBook(context.Background(), "1")
	require.NoError(t, err)
	b.Stock = 99

	again, err := s.GetBook(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 3, again.Stock)
}

func TestStore_UpdateBook_ErrorLeavesStateUnchanged(t *testing.T) {
	s := newSeededStore(t)

	_, err := s.UpdateBook(context.Background(), "1", func(b *domain.Book) error {
		b.TotalCopies = 100
		return domainerrors.ErrStockExceedsAvailable
	})
	require.ErrorIs(t, err, domainerrors.ErrStockExceedsAvailable)

	b, _ := s.GetBook(context.Background(), "1")
	assert.Equal(t, 5, b.TotalCopies)
}

func TestStore_PersisterFailureLeavesStateUnchanged(t *testing.T) {
	s, p := newTestStore(t)
	_, err := s.Seed(context.Background())
	require.NoError(t, err)

	p.fail.Store(true)

	_, _, err = borrow(s, "1", "u1", "Ana")
	require.ErrorIs(t, err, domainerrors.ErrInternal)

	b, _ := s.GetBook(context.Background(), "1")
	assert.Equal(t, 3, b.Stock)
	assert.Empty(t, b.BorrowedBy)

	_, err = s.GetUser(context.Background(), "u1")
	assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)

	history, _ := s.History(context.Background())
	assert.Empty(t, history)

	err = s.DeleteBook(context.Background(), "4", nil)
	require.Error(t, err)
	assert.Equal(t, 5, s.CountBooks())
}

func TestStore_Lend_CommitsOneChange(t *testing.T) {
	s, p := newTestStore(t)
	_, _ = s.Seed(context.Background())
	before := len(p.changes)

	book, user, err := borrow(s, "1", "u1", "Ana")
	require.NoError(t, err)

	assert.Equal(t, 2, book.Stock)
	assert.Equal(t, []string{"1"}, user.BorrowedBooks)

	require.Len(t, p.changes, before+1)
	c := p.changes[len(p.changes)-1]
	assert.Len(t, c.PutBooks, 1)
	assert.Len(t, c.PutUsers, 1)
	require.Len(t, c.AppendHistory, 1)
	assert.Equal(t, uint64(1), c.AppendHistory[0].Seq)
	assert.NotEmpty(t, c.AppendHistory[0].ID)
}

func TestStore_Lend_EmitsEvents(t *testing.T) {
	emitter := &recordingEmitter{}
	s := New(nil, nil, emitter)
	_, _ = s.Seed(context.Background())

	_, _, err := borrow(s, "3", "u1", "Ana")
	require.NoError(t, err)

	require.Len(t, emitter.events, 2)
	assert.Equal(t, sse.EventBookBorrowed, emitter.events[0].(sse.Event).Type)
	assert.Equal(t, sse.EventHistoryAppended, emitter.events[1].(sse.Event).Type)
}

func TestStore_ReturnUnknownUser(t *testing.T) {
	s := newSeededStore(t)

	_, _, err := giveBack(s, "1", "ghost")
	assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)

	users, _ := s.ListUsers(context.Background())
	assert.Empty(t, users)
}

func TestStore_UnknownBook(t *testing.T) {
	s := newSeededStore(t)

	_, _, err := borrow(s, "404", "u1", "Ana")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = s.UpdateBook(context.Background(), "404", func(*domain.Book) error { return nil })
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	assert.ErrorIs(t, s.DeleteBook(context.Background(), "404", nil), domainerrors.ErrNotFound)
}

func TestStore_ListUsers_RegistrationOrder(t *testing.T) {
	s := newSeededStore(t)

	_, _, err := borrow(s, "1", "zed", "Zed")
	require.NoError(t, err)
	_, _, err = borrow(s, "3", "amy", "Amy")
	require.NoError(t, err)
	// A failed borrow does not register the user.
	_, _, err = borrow(s, "2", "bob", "Bob")
	require.ErrorIs(t, err, domainerrors.ErrOutOfStock)

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "zed", users[0].ID)
	assert.Equal(t, "amy", users[1].ID)
}

func TestStore_HistoryMostRecentFirst(t *testing.T) {
	s := newSeededStore(t)

	_, _, err := borrow(s, "1", "u1", "Ana")
	require.NoError(t, err)
	s.SetClock(func() time.Time { return testNow.Add(time.Hour) })
	_, _, err = giveBack(s, "1", "u1")
	require.NoError(t, err)

	history, err := s.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.ActionReturned, history[0].Action)
	assert.Equal(t, domain.ActionBorrowed, history[1].Action)
	assert.Equal(t, history[1].BorrowedDate, history[0].BorrowedDate)

	// Reading twice does not flip the stored order.
	again, _ := s.History(context.Background())
	assert.Equal(t, history, again)
}

func TestStore_LoadRestoresSnapshot(t *testing.T) {
	returned := testNow.Add(time.Hour)
	p := &recordingPersister{snap: &Snapshot{
		Books: []*domain.Book{
			domain.NewBook("10", "Later", "B", "222", 1, "", testNow),
			domain.NewBook("2", "Earlier", "A", "111", 1, "", testNow),
		},
		Users: []*domain.User{domain.NewUser("u1", "Ana", testNow)},
		History: []domain.HistoryEntry{
			{Seq: 1, Action: domain.ActionBorrowed},
			{Seq: 2, Action: domain.ActionReturned, ReturnDate: &returned},
		},
		NextBookID: 8,
	}}
	s := New(p, nil, nil)
	require.NoError(t, s.Load(context.Background()))

	books, _ := s.ListBooks(context.Background())
	require.Len(t, books, 2)
	assert.Equal(t, "2", books[0].ID, "books load in id order")

	seeded, err := s.Seed(context.Background())
	require.NoError(t, err)
	assert.False(t, seeded, "initialized stores are never reseeded")

	created, err := s.CreateBook(context.Background(), domain.NewBook("", "New", "C", "333", 1, "", testNow))
	require.NoError(t, err)
	assert.Equal(t, "11", created.ID, "counter skips past loaded ids")

	_, _, err = borrow(s, "2", "u2", "Ben")
	require.NoError(t, err)
	history, _ := s.History(context.Background())
	assert.Equal(t, uint64(3), history[0].Seq)
}

func TestStore_ConcurrentBorrowsRespectStock(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	// Book 5 has a single copy on the shelf.
	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, _, err := borrow(s, "5", fmt.Sprintf("u%d", i), "Reader"); err == nil {
				succeeded.Add(1)
			} else {
				assert.ErrorIs(t, err, domainerrors.ErrOutOfStock)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	b, _ := s.GetBook(ctx, "5")
	assert.Equal(t, 0, b.Stock)
	assert.True(t, b.Consistent())
}

func TestStore_ConcurrentBorrowsRespectUserLimit(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	// One user races for four different titles.
	titles := []string{"1", "3", "4", "5"}
	var wg sync.WaitGroup
	for _, bookID := range titles {
		wg.Add(1)
		go func(bookID string) {
			defer wg.Done()
			_, _, _ = borrow(s, bookID, "u1", "Ana")
		}(bookID)
	}
	wg.Wait()

	user, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, user.BorrowedBooks, domain.MaxBorrowsPerUser)

	books, _ := s.ListBooks(ctx)
	held := 0
	for _, b := range books {
		if b.ActiveRecordIndex("u1") >= 0 {
			held++
			assert.True(t, user.HasBorrowed(b.ID))
		}
	}
	assert.Equal(t, domain.MaxBorrowsPerUser, held)
}

func TestStore_ConcurrentBorrowReturnKeepsInvariants(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("u%d", i%4)
			for j := range 25 {
				bookID := []string{"1", "3", "4", "5"}[(i+j)%4]
				if _, _, err := borrow(s, bookID, userID, "Reader"); err == nil {
					_, _, _ = giveBack(s, bookID, userID)
				}
				_, _ = s.ListBooks(ctx)
			}
		}(i)
	}
	wg.Wait()

	books, _ := s.ListBooks(ctx)
	for _, b := range books {
		assert.True(t, b.Consistent(), "book %s", b.ID)
		assert.Equal(t, 0, b.ActiveBorrowCount())
	}
	users, _ := s.ListUsers(ctx)
	for _, u := range users {
		assert.Empty(t, u.BorrowedBooks)
	}

	history, _ := s.History(ctx)
	for i := 1; i < len(history); i++ {
		assert.Greater(t, history[i-1].Seq, history[i].Seq)
	}
}

func TestStore_DeleteWhileBorrowing(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	var borrowErr, deleteErr error
	go func() {
		defer wg.Done()
		_, _, borrowErr = borrow(s, "4", "u1", "Ana")
	}()
	go func() {
		defer wg.Done()
		deleteErr = s.DeleteBook(ctx, "4", domain.DecideDelete)
	}()
	wg.Wait()

	// Exactly one ordering happened: delete first (borrow sees NotFound) or
	// borrow first (delete sees the active loan).
	if deleteErr == nil {
		assert.ErrorIs(t, borrowErr, domainerrors.ErrNotFound)
	} else {
		assert.NoError(t, borrowErr)
		assert.ErrorIs(t, deleteErr, domainerrors.ErrHasActiveBorrows)
	}
}

func TestStore_FailedFirstBorrowLeavesNoSlot(t *testing.T) {
	s := newSeededStore(t)

	for i := range 50 {
		_, _, err := borrow(s, "2", fmt.Sprintf("ghost-%d", i), "Ghost")
		require.ErrorIs(t, err, domainerrors.ErrOutOfStock)
	}

	s.usersMu.RLock()
	assert.Empty(t, s.users)
	s.usersMu.RUnlock()

	_, err := s.GetUser(context.Background(), "ghost-0")
	assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)
}

func TestStore_FailedCommitLeavesNoSlot(t *testing.T) {
	s, p := newTestStore(t)
	_, err := s.CreateBook(context.Background(), domain.NewBook("", "Dune", "Frank Herbert", "9780441013593", 2, "", testNow))
	require.NoError(t, err)

	p.fail.Store(true)
	_, _, err = borrow(s, "6", "u1", "Ana")
	require.Error(t, err)

	s.usersMu.RLock()
	assert.NotContains(t, s.users, "u1")
	s.usersMu.RUnlock()
}

func TestStore_ConcurrentFirstBorrowsKeepSlot(t *testing.T) {
	s := newSeededStore(t)

	// Half the attempts fail on an out-of-stock title while others succeed,
	// all for the same new user.
	var wg sync.WaitGroup
	for i := range 40 {
		bookID := "2"
		if i%2 == 0 {
			bookID = "3"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = borrow(s, bookID, "u1", "Ana")
		}()
	}
	wg.Wait()

	user, err := s.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, user.BorrowedBooks)

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)

	s.usersMu.RLock()
	assert.Zero(t, s.users["u1"].refs)
	s.usersMu.RUnlock()
}

func TestStore_RegistrationSeq(t *testing.T) {
	p := &recordingPersister{snap: &Snapshot{
		Books: domain.SeedBooks(testNow),
		Users: []*domain.User{
			{ID: "amy", BorrowedBooks: []string{}, RegisteredAt: testNow, RegistrationSeq: 1},
			{ID: "zed", BorrowedBooks: []string{}, RegisteredAt: testNow, RegistrationSeq: 4},
		},
		NextBookID: domain.FirstBookID,
	}}
	s := New(p, nil, nil)
	s.SetClock(func() time.Time { return testNow })
	require.NoError(t, s.Load(context.Background()))

	_, _, err := borrow(s, "1", "bob", "Bob")
	require.NoError(t, err)
	// An existing user keeps the sequence it registered with.
	_, _, err = borrow(s, "3", "amy", "Amy")
	require.NoError(t, err)

	require.Len(t, p.changes, 2)
	assert.Equal(t, uint64(5), p.changes[0].PutUsers[0].RegistrationSeq)
	assert.Equal(t, uint64(1), p.changes[1].PutUsers[0].RegistrationSeq)

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, []string{"amy", "zed", "bob"}, []string{users[0].ID, users[1].ID, users[2].ID})
}
