package search

import (
	"sort"

	"reelstream/models"
)

// Project derives the visible result list: filter by source and genre, then
// sort. raw is never modified.
func Project(raw []models.SearchResult, typeFilter models.TypeFilter, genres []int, key models.SortKey) []models.SearchResult {
	return Sort(Filter(raw, typeFilter, genres), key)
}

// Filter keeps results whose source passes typeFilter and, when genres is
// non-empty, that share at least one genre with the selection.
func Filter(raw []models.SearchResult, typeFilter models.TypeFilter, genres []int) []models.SearchResult {
	var selected map[int]struct{}
	if len(genres) > 0 {
		selected = make(map[int]struct{}, len(genres))
		for _, id := range genres {
			selected[id] = struct{}{}
		}
	}

	out := make([]models.SearchResult, 0, len(raw))
	for _, r := range raw {
		if !typeFilter.Matches(r.Source) {
			continue
		}
		if selected != nil && !r.Item.HasAnyGenre(selected) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Sort returns a stably sorted copy, descending by key. Results without a
// usable date sort last under SortDate.
func Sort(results []models.SearchResult, key models.SortKey) []models.SearchResult {
	out := append([]models.SearchResult(nil), results...)
	switch key {
	case models.SortRating:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Item.VoteAverage() > out[j].Item.VoteAverage()
		})
	case models.SortDate:
		sort.SliceStable(out, func(i, j int) bool {
			ti, okI := out[i].Item.ReleaseTime()
			tj, okJ := out[j].Item.ReleaseTime()
			switch {
			case okI && okJ:
				return ti.After(tj)
			default:
				return okI && !okJ
			}
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Item.Popularity() > out[j].Item.Popularity()
		})
	}
	return out
}

// tag labels a page of items with the source that produced it.
func tag(items []models.ContentItem, source models.ContentType) []models.SearchResult {
	out := make([]models.SearchResult, 0, len(items))
	for _, item := range items {
		out = append(out, models.SearchResult{Item: item, Source: source})
	}
	return out
}
