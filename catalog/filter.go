// Package catalog implements the in-memory movie catalog view: filtering,
// genre aggregation and the seed fixtures.
package catalog

import (
	"slices"
	"strings"

	"github.com/exfatt/films-server/database/model"
)

// Tab identifies the active navigation tab.
type Tab string

const (
	TabHome    Tab = "home"
	TabCatalog Tab = "catalog"
	TabSaved   Tab = "saved"
)

// AllGenres is the sentinel genre selection that matches every movie.
const AllGenres = "Все"

// Filter returns the movies matching the search query, genre selection and
// active tab. The match is:
//   - title contains query, case-insensitively
//   - genre is the AllGenres sentinel, or a member of the movie's genre tags
//   - tab is not TabSaved, or the movie is saved
//
// The result preserves the relative order of the input and never aliases it.
// Filter is pure: same inputs give the same output, the input is not touched.
func Filter(movies []model.Movie, query, genre string, tab Tab) []model.Movie {
	q := strings.ToLower(query)

	result := make([]model.Movie, 0, len(movies))
	for _, m := range movies {
		if q != "" && !strings.Contains(strings.ToLower(m.Title), q) {
			continue
		}
		if genre != "" && genre != AllGenres && !slices.Contains(m.Genre, genre) {
			continue
		}
		if tab == TabSaved && !m.IsSaved {
			continue
		}
		result = append(result, m)
	}
	return result
}

// Genres returns a genre to movie-count aggregation over the collection.
// Empty genre tags are skipped.
func Genres(movies []model.Movie) map[string]int {
	gc := make(map[string]int)
	for _, m := range movies {
		for _, g := range m.Genre {
			if g == "" {
				continue
			}
			gc[g]++
		}
	}
	return gc
}
