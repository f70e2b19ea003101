package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/libraryhub/library-server/internal/logger"
	"github.com/libraryhub/library-server/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex builds the in-memory Bleve index from the loaded catalog
// and wires it to the store for incremental updates.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	index, err := search.NewIndex(search.Options{Logger: log.Component("search")})
	if err != nil {
		return nil, err
	}

	books, err := storeHandle.ListBooks(context.Background())
	if err != nil {
		_ = index.Close()
		return nil, err
	}
	if err := index.Rebuild(books); err != nil {
		_ = index.Close()
		return nil, err
	}

	// Wire to store for automatic indexing
	storeHandle.SetSearchIndexer(index)

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{Index: index}, nil
}
