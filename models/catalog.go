package models

import (
	"strconv"
	"strings"
	"time"
)

// ContentType distinguishes the two catalog dimensions.
type ContentType string

const (
	ContentTypeMovie ContentType = "movie"
	ContentTypeTV    ContentType = "tv"
)

// ParseContentType accepts the loose spellings used by clients ("series", "shows", "films").
func ParseContentType(value string) (ContentType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "movie", "movies", "film", "films":
		return ContentTypeMovie, true
	case "tv", "series", "show", "shows":
		return ContentTypeTV, true
	default:
		return "", false
	}
}

// FetchMode selects which remote listing a feed draws from.
type FetchMode string

const (
	FetchTrending FetchMode = "trending"
	FetchTopRated FetchMode = "top_rated"
	FetchPopular  FetchMode = "popular"
	FetchGenre    FetchMode = "genre"
)

// ParseFetchMode maps a request value to a FetchMode. Empty means trending.
func ParseFetchMode(value string) (FetchMode, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "trending":
		return FetchTrending, true
	case "top_rated", "toprated", "top-rated":
		return FetchTopRated, true
	case "popular":
		return FetchPopular, true
	case "genre", "discover":
		return FetchGenre, true
	default:
		return "", false
	}
}

// Criteria determines which remote query a feed issues. It is comparable with ==.
type Criteria struct {
	FetchMode   FetchMode   `json:"fetchMode"`
	GenreID     string      `json:"genreId,omitempty"`
	ContentType ContentType `json:"contentType"`
}

// Resolve returns the criteria actually dispatched: a genre feed without a genre
// id degrades to popular.
func (c Criteria) Resolve() Criteria {
	if c.ContentType == "" {
		c.ContentType = ContentTypeMovie
	}
	if c.FetchMode == "" {
		c.FetchMode = FetchTrending
	}
	if c.FetchMode == FetchGenre && strings.TrimSpace(c.GenreID) == "" {
		c.FetchMode = FetchPopular
		c.GenreID = ""
	}
	return c
}

// Movie mirrors the fields of a TMDB movie list entry.
type Movie struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview,omitempty"`
	PosterPath   string  `json:"poster_path,omitempty"`
	BackdropPath string  `json:"backdrop_path,omitempty"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count,omitempty"`
	GenreIDs     []int   `json:"genre_ids,omitempty"`
}

// TVShow mirrors the fields of a TMDB tv list entry.
type TVShow struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview,omitempty"`
	PosterPath   string  `json:"poster_path,omitempty"`
	BackdropPath string  `json:"backdrop_path,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int     `json:"vote_count,omitempty"`
	GenreIDs     []int   `json:"genre_ids,omitempty"`
}

// ContentItem is a tagged variant over Movie and TVShow. Exactly one of Movie or
// Show is set, matching Kind. Items are treated as immutable once built.
type ContentItem struct {
	Kind  ContentType
	Movie *Movie
	Show  *TVShow
}

// ItemKey identifies an item; two items are equal when their keys are.
type ItemKey struct {
	Kind ContentType
	ID   int64
}

func NewMovieItem(m Movie) ContentItem {
	return ContentItem{Kind: ContentTypeMovie, Movie: &m}
}

func NewTVItem(s TVShow) ContentItem {
	return ContentItem{Kind: ContentTypeTV, Show: &s}
}

func (c ContentItem) Key() ItemKey {
	return ItemKey{Kind: c.Kind, ID: c.ID()}
}

func (c ContentItem) ID() int64 {
	switch {
	case c.Movie != nil:
		return c.Movie.ID
	case c.Show != nil:
		return c.Show.ID
	}
	return 0
}

// Title returns the movie title or the show name.
func (c ContentItem) Title() string {
	switch {
	case c.Movie != nil:
		return c.Movie.Title
	case c.Show != nil:
		return c.Show.Name
	}
	return ""
}

// Date returns release_date for movies and first_air_date for shows, unparsed.
func (c ContentItem) Date() string {
	switch {
	case c.Movie != nil:
		return c.Movie.ReleaseDate
	case c.Show != nil:
		return c.Show.FirstAirDate
	}
	return ""
}

// ReleaseTime parses Date. ok is false when the date is missing or malformed.
func (c ContentItem) ReleaseTime() (time.Time, bool) {
	value := strings.TrimSpace(c.Date())
	if value == "" {
		return time.Time{}, false
	}
	if len(value) > 10 {
		value = value[:10]
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Year extracts the four digit year from Date, or 0.
func (c ContentItem) Year() int {
	value := strings.TrimSpace(c.Date())
	if len(value) < 4 {
		return 0
	}
	year, err := strconv.Atoi(value[:4])
	if err != nil {
		return 0
	}
	return year
}

func (c ContentItem) Overview() string {
	switch {
	case c.Movie != nil:
		return c.Movie.Overview
	case c.Show != nil:
		return c.Show.Overview
	}
	return ""
}

func (c ContentItem) PosterPath() string {
	switch {
	case c.Movie != nil:
		return c.Movie.PosterPath
	case c.Show != nil:
		return c.Show.PosterPath
	}
	return ""
}

func (c ContentItem) BackdropPath() string {
	switch {
	case c.Movie != nil:
		return c.Movie.BackdropPath
	case c.Show != nil:
		return c.Show.BackdropPath
	}
	return ""
}

func (c ContentItem) Popularity() float64 {
	switch {
	case c.Movie != nil:
		return c.Movie.Popularity
	case c.Show != nil:
		return c.Show.Popularity
	}
	return 0
}

func (c ContentItem) VoteAverage() float64 {
	switch {
	case c.Movie != nil:
		return c.Movie.VoteAverage
	case c.Show != nil:
		return c.Show.VoteAverage
	}
	return 0
}

func (c ContentItem) GenreIDs() []int {
	switch {
	case c.Movie != nil:
		return c.Movie.GenreIDs
	case c.Show != nil:
		return c.Show.GenreIDs
	}
	return nil
}

// HasAnyGenre reports whether the item carries at least one genre from selected.
func (c ContentItem) HasAnyGenre(selected map[int]struct{}) bool {
	for _, id := range c.GenreIDs() {
		if _, ok := selected[id]; ok {
			return true
		}
	}
	return false
}

// Page is one page of a remote listing. Pages are 1-based.
type Page struct {
	Items      []ContentItem
	TotalPages int
}

// Genre is a facet label from the genre directory.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
