package domain

import (
	"slices"
	"time"
)

// Role represents the caller's permission level.
type Role string

const (
	// RoleAdmin grants catalog management and ledger access.
	RoleAdmin Role = "admin"
	// RoleMember grants borrowing for oneself.
	RoleMember Role = "member"
)

// Identity is the verified caller supplied by the upstream identity provider.
type Identity struct {
	UserID string
	Name   string
	Role   Role
}

// IsAdmin returns true if the caller has administrative privileges.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// User is a registry entry, created on a user's first successful borrow.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name,omitempty"`
	BorrowedBooks []string  `json:"borrowedBooks"`
	RegisteredAt  time.Time `json:"registeredAt"`

	// RegistrationSeq orders the registry. Assigned by the store on registration.
	RegistrationSeq uint64 `json:"-"`
}

// NewUser creates an empty registry entry.
func NewUser(userID, name string, now time.Time) *User {
	return &User{
		ID:            userID,
		Name:          name,
		BorrowedBooks: []string{},
		RegisteredAt:  now,
	}
}

// HasBorrowed reports whether bookID is currently on loan to the user.
func (u *User) HasBorrowed(bookID string) bool {
	return slices.Contains(u.BorrowedBooks, bookID)
}

// ActiveCount returns the number of books the user currently holds.
func (u *User) ActiveCount() int {
	return len(u.BorrowedBooks)
}

// AtLimit reports whether the user may not borrow another book.
func (u *User) AtLimit() bool {
	return u.ActiveCount() >= MaxBorrowsPerUser
}

func (u *User) addBook(bookID string) {
	if !u.HasBorrowed(bookID) {
		u.BorrowedBooks = append(u.BorrowedBooks, bookID)
	}
}

func (u *User) removeBook(bookID string) {
	u.BorrowedBooks = slices.DeleteFunc(u.BorrowedBooks, func(id string) bool {
		return id == bookID
	})
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.BorrowedBooks = slices.Clone(u.BorrowedBooks)
	if c.BorrowedBooks == nil {
		c.BorrowedBooks = []string{}
	}
	return &c
}
