package models

import "strings"

// TypeFilter restricts search results to one source.
type TypeFilter string

const (
	TypeFilterAll   TypeFilter = "all"
	TypeFilterMovie TypeFilter = "movie"
	TypeFilterTV    TypeFilter = "tv"
)

func ParseTypeFilter(value string) (TypeFilter, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "all":
		return TypeFilterAll, true
	case "movie", "movies":
		return TypeFilterMovie, true
	case "tv", "series", "shows":
		return TypeFilterTV, true
	}
	return "", false
}

// Matches reports whether a result from source passes the filter.
func (f TypeFilter) Matches(source ContentType) bool {
	switch f {
	case TypeFilterMovie:
		return source == ContentTypeMovie
	case TypeFilterTV:
		return source == ContentTypeTV
	default:
		return true
	}
}

// SortKey orders search results. All keys sort descending.
type SortKey string

const (
	SortPopularity SortKey = "popularity"
	SortRating     SortKey = "rating"
	SortDate       SortKey = "date"
)

func ParseSortKey(value string) (SortKey, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "popularity":
		return SortPopularity, true
	case "rating", "vote_average":
		return SortRating, true
	case "date", "release_date":
		return SortDate, true
	}
	return "", false
}

// SearchResult is a raw result tagged with the source that produced it.
type SearchResult struct {
	Item   ContentItem
	Source ContentType
}

// SearchState is a read-only snapshot of a search session. FilteredResults is
// always derived from RawResults and the active facets at snapshot time.
type SearchState struct {
	Query           string         `json:"query"`
	RawResults      []SearchResult `json:"-"`
	FilteredResults []SearchResult `json:"-"`
	TypeFilter      TypeFilter     `json:"typeFilter"`
	Genres          []int          `json:"genres"`
	SortKey         SortKey        `json:"sortKey"`
	CurrentPage     int            `json:"currentPage"`
	TotalPages      int            `json:"totalPages"`
	IsLoading       bool           `json:"isLoading"`
	HasSearched     bool           `json:"hasSearched"`
	MovieCount      int            `json:"movieCount"`
	TVCount         int            `json:"tvCount"`
	TotalCount      int            `json:"totalCount"`
}
