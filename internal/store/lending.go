package store

import (
	"context"
	"time"

	"github.com/libraryhub/library-server/internal/domain"
	domainerrors "github.com/libraryhub/library-server/internal/errors"
	"github.com/libraryhub/library-server/internal/id"
	"github.com/libraryhub/library-server/internal/sse"
)

// LendTx is the working set of a borrow or return.
// Book and User are private copies; User is nil if the user is not registered.
type LendTx struct {
	Book    *domain.Book
	User    *domain.User
	Now     time.Time
	entries []domain.HistoryEntry
	action  domain.HistoryAction
}

// Append queues a ledger entry to be written with the transaction.
func (tx *LendTx) Append(entry domain.HistoryEntry) {
	tx.entries = append(tx.entries, entry)
	tx.action = entry.Action
}

// LendOptions controls how Lend resolves the user record.
type LendOptions struct {
	// Register reserves a registry slot for an unknown user, so concurrent
	// first borrows by the same user serialize on one lock. The user only
	// becomes visible once fn sets tx.User and the change commits.
	Register bool
}

// Lend runs fn with the book and user locked, in that order, and commits
// the resulting book, user and ledger entries as one change.
// It returns copies of the committed book and user.
func (s *Store) Lend(ctx context.Context, bookID, userID string, opts LendOptions, fn func(tx *LendTx) error) (*domain.Book, *domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	be := s.lookupBook(bookID)
	if be == nil {
		return nil, nil, domainerrors.NotFoundf("book %s not found", bookID)
	}

	be.mu.Lock()
	defer be.mu.Unlock()
	if be.removed {
		return nil, nil, domainerrors.NotFoundf("book %s not found", bookID)
	}

	ue := s.lookupUser(userID, opts.Register)
	var current *domain.User
	if ue != nil {
		ue.mu.Lock()
		defer ue.mu.Unlock()
		if opts.Register {
			defer s.releaseSlot(userID, ue)
		}
		current = ue.user
	}

	tx := &LendTx{
		Book: be.book.Clone(),
		User: current.Clone(),
		Now:  s.clock(),
	}
	if err := fn(tx); err != nil {
		return nil, nil, err
	}
	if tx.User != nil && ue == nil {
		return nil, nil, domainerrors.Internal("user registered without a registry slot")
	}

	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	registering := tx.User != nil && ue.user == nil
	if registering {
		tx.User.RegistrationSeq = s.nextUserSeq
	} else if tx.User != nil {
		tx.User.RegistrationSeq = ue.user.RegistrationSeq
	}

	seq := s.nextSeq
	for i := range tx.entries {
		tx.entries[i].ID = id.NewEntryID()
		tx.entries[i].Seq = seq
		seq++
	}

	change := &Change{
		PutBooks:      []*domain.Book{tx.Book},
		AppendHistory: tx.entries,
	}
	if tx.User != nil {
		change.PutUsers = []*domain.User{tx.User}
	}
	if err := s.persister.Commit(ctx, change); err != nil {
		return nil, nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to save lending change")
	}

	be.book = tx.Book
	if registering {
		s.usersMu.Lock()
		s.userOrder = append(s.userOrder, userID)
		s.usersMu.Unlock()
		s.nextUserSeq++
	}
	if tx.User != nil {
		ue.user = tx.User
	}
	s.history = append(s.history, tx.entries...)
	s.nextSeq = seq

	book, user := tx.Book.Clone(), tx.User.Clone()
	switch tx.action {
	case domain.ActionBorrowed:
		s.eventEmitter.Emit(sse.NewBookBorrowedEvent(book, user))
	case domain.ActionReturned:
		s.eventEmitter.Emit(sse.NewBookReturnedEvent(book, user))
	default:
		s.eventEmitter.Emit(sse.NewBookUpdatedEvent(book))
	}
	for _, entry := range tx.entries {
		s.eventEmitter.Emit(sse.NewHistoryAppendedEvent(entry))
	}

	return tx.Book.Clone(), tx.User.Clone(), nil
}

// lookupUser returns the registry slot for userID. With register set, a
// missing slot is created empty and the caller holds a reference to it
// until releaseSlot.
func (s *Store) lookupUser(userID string, register bool) *userEntry {
	if !register {
		s.usersMu.RLock()
		defer s.usersMu.RUnlock()
		return s.users[userID]
	}

	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	ue := s.users[userID]
	if ue == nil {
		ue = &userEntry{}
		s.users[userID] = ue
	}
	ue.refs++
	return ue
}

// releaseSlot drops a registering caller's reference to a slot. The caller
// holds ue.mu. A slot that never gained a user is removed once no other
// borrower holds it.
func (s *Store) releaseSlot(userID string, ue *userEntry) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	ue.refs--
	if ue.refs == 0 && ue.user == nil && s.users[userID] == ue {
		delete(s.users, userID)
	}
}

// GetUser returns a copy of a registered user.
func (s *Store) GetUser(_ context.Context, userID string) (*domain.User, error) {
	ue := s.lookupUser(userID, false)
	if ue == nil {
		return nil, domainerrors.UserNotFoundf("user %s not found", userID)
	}

	ue.mu.Lock()
	defer ue.mu.Unlock()
	if ue.user == nil {
		return nil, domainerrors.UserNotFoundf("user %s not found", userID)
	}
	return ue.user.Clone(), nil
}

// ListUsers returns copies of all registered users in registration order.
func (s *Store) ListUsers(_ context.Context) ([]*domain.User, error) {
	s.usersMu.RLock()
	entries := make([]*userEntry, 0, len(s.userOrder))
	for _, userID := range s.userOrder {
		entries = append(entries, s.users[userID])
	}
	s.usersMu.RUnlock()

	// Registry locks are taken after usersMu is released: Lend holds a user
	// lock while it appends to userOrder.
	users := make([]*domain.User, 0, len(entries))
	for _, ue := range entries {
		ue.mu.Lock()
		if ue.user != nil {
			users = append(users, ue.user.Clone())
		}
		ue.mu.Unlock()
	}
	return users, nil
}

// History returns the ledger, most recent entry first.
func (s *Store) History(_ context.Context) ([]domain.HistoryEntry, error) {
	s.ledgerMu.RLock()
	defer s.ledgerMu.RUnlock()
	return domain.MostRecentFirst(s.history), nil
}
