// Package search maintains the in-memory fuzzy search index over the movie
// catalog, backing the searchMovies action.
package search

import (
	"context"
	"strconv"
	"strings"

	bleve "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/exfatt/films-server/database/model"
)

// Index is the Bleve-based movie search index.
type Index struct {
	index bleve.Index
}

// document is what we store in Bleve per movie.
type document struct {
	ID string `json:"id"`
	// Title as typed, analyzed for fuzzy matching.
	Title string `json:"title"`
	// TitleExact is a helper field to make exact title matches rank first.
	TitleExact  string   `json:"title_exact"`
	Description string   `json:"description"`
	Genres      []string `json:"genres"`
	Hashtags    []string `json:"hashtags"`
	Year        int      `json:"year"`
}

// New creates a new in-memory index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{index: idx}, nil
}

// buildIndexMapping builds the Bleve index field mapping configuration.
func buildIndexMapping() mapping.IndexMapping {
	m := bleve.NewIndexMapping()

	doc := bleve.NewDocumentMapping()

	// text mapping for title, description, hashtags
	text := bleve.NewTextFieldMapping()
	text.Store = false
	text.Index = true

	// keyword mapping for exact matches like ids
	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"
	keyword.Store = true
	keyword.Index = true

	doc.AddFieldMappingsAt("id", keyword)
	doc.AddFieldMappingsAt("title", text)
	doc.AddFieldMappingsAt("title_exact", keyword)
	doc.AddFieldMappingsAt("description", text)
	doc.AddFieldMappingsAt("genres", text)
	doc.AddFieldMappingsAt("hashtags", text)

	m.DefaultMapping = doc
	return m
}

// Add indexes or re-indexes a movie.
func (x *Index) Add(ctx context.Context, m *model.Movie) error {
	return x.index.Index(strconv.FormatInt(m.ID, 10), makeDocument(m))
}

// AddBatch indexes a slice of movies in a single batch.
func (x *Index) AddBatch(ctx context.Context, movies []model.Movie) error {
	batch := x.index.NewBatch()
	for i := range movies {
		id := strconv.FormatInt(movies[i].ID, 10)
		if err := batch.Index(id, makeDocument(&movies[i])); err != nil {
			return err
		}
	}
	if batch.Size() > 0 {
		return x.index.Batch(batch)
	}
	return nil
}

// Delete removes a movie from the index.
func (x *Index) Delete(ctx context.Context, movieID int64) error {
	return x.index.Delete(strconv.FormatInt(movieID, 10))
}

// Close closes the underlying index.
func (x *Index) Close() error {
	return x.index.Close()
}

func makeDocument(m *model.Movie) document {
	lowered := strings.ToLower(m.Title)
	return document{
		ID:          strconv.FormatInt(m.ID, 10),
		Title:       m.Title,
		TitleExact:  lowered,
		Description: m.Description,
		Genres:      m.Genre,
		Hashtags:    m.Hashtags,
		Year:        m.Year,
	}
}

// Search runs a fuzzy search across title, description, genres and hashtags
// and returns matching movie ids, best first.
func (x *Index) Search(ctx context.Context, searchTerm string, size int) ([]int64, error) {
	searchTerm = strings.ToLower(strings.TrimSpace(searchTerm))
	if searchTerm == "" {
		return nil, nil
	}

	// Weights for boosting certain query types and fields.
	const (
		boostTitleExact  = 50.0 // strongest: exact match on title_exact field
		boostTitlePhrase = 12.0 // very strong: exact phrase in title
		boostTitlePrefix = 6.0  // strong: prefix on whole query against title
		boostTitleField  = 3.0  // fuzzy/prefix on title tokens
		boostOtherFields = 1.0  // default for other fields
	)

	boolQuery := bleve.NewBooleanQuery()

	// Exact title match bubbles to the top.
	termExact := bleve.NewTermQuery(searchTerm)
	termExact.SetField("title_exact")
	termExact.SetBoost(boostTitleExact)
	boolQuery.AddShould(termExact)

	// Exact phrase in the title.
	matchPhrase := bleve.NewMatchPhraseQuery(searchTerm)
	matchPhrase.SetField("title")
	matchPhrase.SetBoost(boostTitlePhrase)
	boolQuery.AddShould(matchPhrase)

	// Prefix on the full query, helps when users type the start of a title.
	prefixFull := bleve.NewPrefixQuery(searchTerm)
	prefixFull.SetField("title")
	prefixFull.SetBoost(boostTitlePrefix)
	boolQuery.AddShould(prefixFull)

	// Token-wise fuzzy + prefix queries across fields.
	for _, tok := range strings.Fields(searchTerm) {
		fuzz := 1
		if len(tok) >= 6 {
			fuzz = 2
		}

		for _, f := range []string{"title", "description", "genres", "hashtags"} {
			boost := boostOtherFields
			if f == "title" {
				boost = boostTitleField
			}

			fq := bleve.NewFuzzyQuery(tok)
			fq.SetField(f)
			fq.SetFuzziness(fuzz)
			fq.SetBoost(boost)
			boolQuery.AddShould(fq)

			pq := bleve.NewPrefixQuery(tok)
			pq.SetField(f)
			pq.SetBoost(boost)
			boolQuery.AddShould(pq)
		}
	}

	boolQuery.SetMinShould(1)

	req := bleve.NewSearchRequestOptions(boolQuery, size, 0, false)
	req.Fields = []string{"id"}
	req.SortBy([]string{"-_score"})

	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}

	var foundIDs []int64
	for _, h := range res.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		foundIDs = append(foundIDs, id)
	}
	return foundIDs, nil
}
