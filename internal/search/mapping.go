package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Index field names.
const (
	fieldID          = "id"
	fieldTitle       = "title"
	fieldAuthor      = "author"
	fieldTitleExact  = "title_exact"
	fieldAuthorExact = "author_exact"
	fieldISBN        = "isbn"
)

// wordsAnalyzer tokenizes on word boundaries and lowercases. No stemming and
// no stop words, so "the" and "1984" stay searchable.
const wordsAnalyzer = "words"

// buildIndexMapping creates the Bleve index mapping for catalog documents.
//
// Title and author are indexed twice: as words for match, fuzzy and prefix
// queries, and as a single keyword term for substring (wildcard) queries.
func buildIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(wordsAnalyzer, map[string]any{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, err
	}
	indexMapping.DefaultAnalyzer = wordsAnalyzer

	docMapping := bleve.NewDocumentMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = wordsAnalyzer
	titleFieldMapping.Store = false
	docMapping.AddFieldMappingsAt(fieldTitle, titleFieldMapping)

	authorFieldMapping := bleve.NewTextFieldMapping()
	authorFieldMapping.Analyzer = wordsAnalyzer
	authorFieldMapping.Store = false
	docMapping.AddFieldMappingsAt(fieldAuthor, authorFieldMapping)

	for _, field := range []string{fieldID, fieldTitleExact, fieldAuthorExact, fieldISBN} {
		keywordFieldMapping := bleve.NewTextFieldMapping()
		keywordFieldMapping.Analyzer = keyword.Name
		keywordFieldMapping.Store = false
		docMapping.AddFieldMappingsAt(field, keywordFieldMapping)
	}

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping, nil
}
