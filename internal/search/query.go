package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/libraryhub/library-server/internal/normalize"
)

// Search returns the ids of books matching q, best match first.
// Title, author and ISBN are matched case- and accent-insensitively, and any
// substring of a title or author matches. An empty query matches nothing.
func (s *Index) Search(ctx context.Context, q string, limit int) ([]string, error) {
	searchQuery := buildSearchQuery(q)
	if searchQuery == nil {
		return []string{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		count, err := s.index.DocCount()
		if err != nil {
			return nil, fmt.Errorf("count documents: %w", err)
		}
		limit = max(int(count), 1)
	}

	searchRequest := bleve.NewSearchRequestOptions(searchQuery, limit, 0, false)
	searchRequest.SortBy([]string{"-_score", "_id"})

	result, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// buildSearchQuery combines word, fuzzy, prefix and substring clauses with OR.
// Returns nil when q has nothing to search for.
func buildSearchQuery(q string) query.Query {
	folded := normalize.Fold(q)
	// Wildcard metacharacters are not part of any title.
	folded = strings.NewReplacer("*", "", "?", "").Replace(folded)
	if folded == "" {
		return nil
	}

	var textQueries []query.Query

	titleMatch := bleve.NewMatchQuery(folded)
	titleMatch.SetField(fieldTitle)
	titleMatch.SetBoost(3.0)
	textQueries = append(textQueries, titleMatch)

	authorMatch := bleve.NewMatchQuery(folded)
	authorMatch.SetField(fieldAuthor)
	authorMatch.SetBoost(2.0)
	textQueries = append(textQueries, authorMatch)

	// Fuzzy and prefix clauses only make sense for a single term.
	if !strings.Contains(folded, " ") {
		fuzzyQuery := bleve.NewFuzzyQuery(folded)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField(fieldTitle)
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		if len(folded) >= 2 {
			for _, field := range []string{fieldTitle, fieldAuthor} {
				prefixQuery := bleve.NewPrefixQuery(folded)
				prefixQuery.SetField(field)
				prefixQuery.SetBoost(0.5)
				textQueries = append(textQueries, prefixQuery)
			}
		}
	}

	for _, field := range []string{fieldTitleExact, fieldAuthorExact} {
		substring := bleve.NewWildcardQuery("*" + folded + "*")
		substring.SetField(field)
		substring.SetBoost(0.3)
		textQueries = append(textQueries, substring)
	}

	if normalize.LooksLikeISBN(q) {
		isbn := bleve.NewWildcardQuery("*" + normalize.ISBN(q) + "*")
		isbn.SetField(fieldISBN)
		isbn.SetBoost(4.0)
		textQueries = append(textQueries, isbn)
	}

	return bleve.NewDisjunctionQuery(textQueries...)
}
