package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"reelstream/models"
	"reelstream/services/search"
	"reelstream/services/sessions"
	"reelstream/utils"
)

type searchSession interface {
	QueryChanged(text string)
	Search(query string)
	Clear()
	FilterChanged(filter models.TypeFilter)
	ToggleGenre(id int)
	SetGenres(ids []int)
	ClearGenres()
	SortChanged(key models.SortKey)
	LoadMoreRequested() bool
	State() models.SearchState
	Subscribe() (<-chan models.SearchState, func())
	Close()
}

var _ searchSession = (*search.Aggregator)(nil)

// SearchFactory builds a fresh aggregator.
type SearchFactory func() searchSession

type SearchHandler struct {
	Sessions *sessions.Registry[searchSession]
	New      SearchFactory
	Views    Views
	upgrader *websocket.Upgrader
}

func NewSearchHandler(registry *sessions.Registry[searchSession], factory SearchFactory, views Views, origins utils.OriginPolicy) *SearchHandler {
	return &SearchHandler{Sessions: registry, New: factory, Views: views, upgrader: newUpgrader(origins)}
}

func NewSearchRegistry(idle time.Duration) *sessions.Registry[searchSession] {
	return sessions.NewRegistry[searchSession]("search", idle)
}

// AggregatorFactory adapts search.NewAggregator to a SearchFactory.
func AggregatorFactory(source search.Source, opts search.Options) SearchFactory {
	return func() searchSession {
		return search.NewAggregator(source, opts)
	}
}

type searchActionResponse struct {
	Accepted bool       `json:"accepted"`
	Search   SearchView `json:"search"`
}

// Create opens a search session. A query in the body (or ?q=) runs
// immediately without waiting for the debounce window.
func (h *SearchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query      string `json:"query"`
		TypeFilter string `json:"typeFilter"`
		Genres     []int  `json:"genres"`
		SortKey    string `json:"sortKey"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Query == "" {
		body.Query = r.URL.Query().Get("q")
	}
	filter, ok := models.ParseTypeFilter(body.TypeFilter)
	if !ok {
		jsonError(w, "typeFilter must be all, movie or tv", http.StatusBadRequest)
		return
	}
	key, ok := models.ParseSortKey(body.SortKey)
	if !ok {
		jsonError(w, "sortKey must be popularity, rating or date", http.StatusBadRequest)
		return
	}

	agg := h.New()
	info, err := h.Sessions.Create(agg)
	if err != nil {
		agg.Close()
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	agg.FilterChanged(filter)
	agg.SortChanged(key)
	if len(body.Genres) > 0 {
		agg.SetGenres(body.Genres)
	}
	if strings.TrimSpace(body.Query) != "" {
		agg.Search(body.Query)
	}

	writeJSON(w, http.StatusCreated, h.Views.Search(info.ID, agg.State()))
}

func (h *SearchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, agg, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Views.Search(id, agg.State()))
}

// UpdateQuery feeds typed text through the debouncer, or runs it at once when
// immediate is set.
func (h *SearchHandler) UpdateQuery(w http.ResponseWriter, r *http.Request) {
	id, agg, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		Query     string `json:"query"`
		Immediate bool   `json:"immediate"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Immediate {
		agg.Search(body.Query)
	} else {
		agg.QueryChanged(body.Query)
	}
	writeJSON(w, http.StatusAccepted, h.Views.Search(id, agg.State()))
}

func (h *SearchHandler) ClearQuery(w http.ResponseWriter, r *http.Request) {
	id, agg, ok := h.lookup(w, r)
	if !ok {
		return
	}
	agg.Clear()
	writeJSON(w, http.StatusOK, h.Views.Search(id, agg.State()))
}

func (h *SearchHandler) UpdateFilter(w http.ResponseWriter, r *http.Request) {
	id, agg, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		Type string `json:"type"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	filter, valid := models.ParseTypeFilter(body.Type)
	if !valid {
		jsonError(w, "type must be all, movie or tv", http.StatusBadRequest)
		return
	}
	agg.FilterChanged(filter)
	writeJSON(w, http.StatusOK, h.Views.Search(id, agg.State()))
}

// UpdateGenres toggles a single genre when toggle is present, otherwise
// replaces the selection. An empty selection clears it.
func (h *SearchHandler) UpdateGenres(w http.ResponseWriter, r *http.Request) {
	id, agg, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		Genres []int `json:"genres"`
		Toggle *int  `json:"toggle"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	switch {
	case body.Toggle != nil:
		agg.ToggleGenre(*body.Toggle)
	case len(body.Genres) == 0:
		agg.ClearGenres()
	default:
		agg.SetGenres(body.Genres)
	}
	writeJSON(w, http.StatusOK, h.Views.Search(id, agg.State()))
}

func (h *SearchHandler) UpdateSort(w http.ResponseWriter, r *http.Request) {
	id, agg, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		SortKey string `json:"sortKey"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	key, valid := models.ParseSortKey(body.SortKey)
	if !valid {
		jsonError(w, "sortKey must be popularity, rating or date", http.StatusBadRequest)
		return
	}
	agg.SortChanged(key)
	writeJSON(w, http.StatusOK, h.Views.Search(id, agg.State()))
}

func (h *SearchHandler) LoadMore(w http.ResponseWriter, r *http.Request) {
	id, agg, ok := h.lookup(w, r)
	if !ok {
		return
	}
	dispatched := agg.LoadMoreRequested()
	writeJSON(w, http.StatusOK, searchActionResponse{Accepted: dispatched, Search: h.Views.Search(id, agg.State())})
}

func (h *SearchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Remove(mux.Vars(r)["id"]); err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Watch streams search snapshots over a websocket.
func (h *SearchHandler) Watch(w http.ResponseWriter, r *http.Request) {
	id, agg, ok := h.lookup(w, r)
	if !ok {
		return
	}
	updates, unsubscribe := agg.Subscribe()
	streamSnapshots(w, r, h.upgrader, updates, unsubscribe, func(state models.SearchState) any {
		return h.Views.Search(id, state)
	})
}

func (h *SearchHandler) lookup(w http.ResponseWriter, r *http.Request) (string, searchSession, bool) {
	id := mux.Vars(r)["id"]
	agg, err := h.Sessions.Get(id)
	if err != nil {
		status := http.StatusNotFound
		if errors.Is(err, sessions.ErrSessionExpired) {
			status = http.StatusGone
		}
		jsonError(w, err.Error(), status)
		return "", nil, false
	}
	return id, agg, true
}
