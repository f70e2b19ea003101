// Package search provides full-text search over the catalog using Bleve.
// The index holds titles, authors and ISBNs only; stock and borrow state are
// always read from the store.
package search

import (
	"github.com/libraryhub/library-server/internal/domain"
	"github.com/libraryhub/library-server/internal/normalize"
)

// Document is the indexed form of a catalog book.
type Document struct {
	ID     string
	Title  string // folded
	Author string // folded
	ISBN   string // digits and check character only
}

// NewDocument builds the index document for a book.
func NewDocument(b *domain.Book) *Document {
	return &Document{
		ID:     b.ID,
		Title:  normalize.Fold(b.Title),
		Author: normalize.Fold(b.Author),
		ISBN:   normalize.ISBN(b.ISBN),
	}
}

// ToMap converts the document to a map whose keys match the index mapping.
func (d *Document) ToMap() map[string]any {
	return map[string]any{
		fieldID:          d.ID,
		fieldTitle:       d.Title,
		fieldAuthor:      d.Author,
		fieldTitleExact:  d.Title,
		fieldAuthorExact: d.Author,
		fieldISBN:        d.ISBN,
	}
}
