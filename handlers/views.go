package handlers

import (
	"reelstream/models"
	"reelstream/services/catalog"
	"reelstream/services/feed"
)

// ItemView is the wire shape of one poster card.
type ItemView struct {
	ID          int64              `json:"id"`
	MediaType   models.ContentType `json:"mediaType"`
	Badge       string             `json:"badge"`
	Title       string             `json:"title"`
	Year        int                `json:"year,omitempty"`
	Overview    string             `json:"overview,omitempty"`
	PosterURL   string             `json:"posterUrl,omitempty"`
	BackdropURL string             `json:"backdropUrl,omitempty"`
	Rating      float64            `json:"rating"`
	Popularity  float64            `json:"popularity"`
	GenreIDs    []int              `json:"genreIds,omitempty"`
	DetailPath  string             `json:"detailPath"`
}

// FeedView is a row snapshot as returned to clients.
type FeedView struct {
	ID  string         `json:"id"`
	Row feed.RowConfig `json:"row"`
	models.FeedState
	Items   []ItemView `json:"items"`
	HasMore bool       `json:"hasMore"`
}

// SearchView is a search snapshot; Results holds the filtered, sorted list.
type SearchView struct {
	ID string `json:"id"`
	models.SearchState
	Results []ItemView `json:"results"`
	HasMore bool       `json:"hasMore"`
}

// Views renders engine snapshots with absolute image URLs.
type Views struct {
	ImageBaseURL string
	PosterSize   string
	BackdropSize string
}

func NewViews(imageBaseURL string) Views {
	return Views{
		ImageBaseURL: imageBaseURL,
		PosterSize:   catalog.PosterSize,
		BackdropSize: catalog.BackdropSize,
	}
}

func badge(kind models.ContentType) string {
	if kind == models.ContentTypeTV {
		return "TV"
	}
	return "Movie"
}

func (v Views) Item(item models.ContentItem) ItemView {
	return ItemView{
		ID:          item.ID(),
		MediaType:   item.Kind,
		Badge:       badge(item.Kind),
		Title:       item.Title(),
		Year:        item.Year(),
		Overview:    item.Overview(),
		PosterURL:   catalog.ImageURL(v.ImageBaseURL, item.PosterPath(), v.PosterSize),
		BackdropURL: catalog.ImageURL(v.ImageBaseURL, item.BackdropPath(), v.BackdropSize),
		Rating:      item.VoteAverage(),
		Popularity:  item.Popularity(),
		GenreIDs:    item.GenreIDs(),
		DetailPath:  feed.DetailPath(item),
	}
}

func (v Views) Feed(id string, row feed.RowConfig, state models.FeedState) FeedView {
	items := make([]ItemView, 0, len(state.Items))
	for _, item := range state.Items {
		items = append(items, v.Item(item))
	}
	return FeedView{ID: id, Row: row, FeedState: state, Items: items, HasMore: state.HasMore()}
}

func (v Views) Search(id string, state models.SearchState) SearchView {
	results := make([]ItemView, 0, len(state.FilteredResults))
	for _, r := range state.FilteredResults {
		results = append(results, v.Item(r.Item))
	}
	return SearchView{
		ID:          id,
		SearchState: state,
		Results:     results,
		HasMore:     state.Query != "" && state.CurrentPage < state.TotalPages,
	}
}
