package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"reelstream/models"
	"reelstream/services/feed"
	"reelstream/services/sessions"
	"reelstream/utils"
)

type feedController interface {
	Start()
	Configure(mode models.FetchMode, genreID string) bool
	OnScroll(pos models.ScrollPosition) bool
	LoadMore() bool
	Config() feed.RowConfig
	State() models.FeedState
	Subscribe() (<-chan models.FeedState, func())
	Close()
}

var _ feedController = (*feed.Controller)(nil)

// FeedFactory builds an unstarted controller for a row.
type FeedFactory func(cfg feed.RowConfig) feedController

type FeedsHandler struct {
	Sessions *sessions.Registry[feedController]
	New      FeedFactory
	Views    Views
	upgrader *websocket.Upgrader
}

func NewFeedsHandler(registry *sessions.Registry[feedController], factory FeedFactory, views Views, origins utils.OriginPolicy) *FeedsHandler {
	return &FeedsHandler{Sessions: registry, New: factory, Views: views, upgrader: newUpgrader(origins)}
}

// NewFeedRegistry returns a registry typed for FeedsHandler.
func NewFeedRegistry(idle time.Duration) *sessions.Registry[feedController] {
	return sessions.NewRegistry[feedController]("feed", idle)
}

// ControllerFactory adapts feed.NewController to a FeedFactory.
func ControllerFactory(source feed.Source, opts feed.Options) FeedFactory {
	return func(cfg feed.RowConfig) feedController {
		return feed.NewController(cfg, source, opts)
	}
}

type feedActionResponse struct {
	Accepted bool     `json:"accepted"`
	Feed     FeedView `json:"feed"`
}

func (h *FeedsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title       string `json:"title"`
		ContentType string `json:"contentType"`
		FetchMode   string `json:"fetchMode"`
		GenreID     string `json:"genreId"`
		Large       bool   `json:"large"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	kind, ok := models.ParseContentType(body.ContentType)
	if !ok {
		jsonError(w, "contentType must be movie or tv", http.StatusBadRequest)
		return
	}
	mode, ok := models.ParseFetchMode(body.FetchMode)
	if !ok {
		jsonError(w, "fetchMode must be trending, top_rated, popular or genre", http.StatusBadRequest)
		return
	}

	ctrl := h.New(feed.RowConfig{
		Title:       strings.TrimSpace(body.Title),
		ContentType: kind,
		FetchMode:   mode,
		GenreID:     strings.TrimSpace(body.GenreID),
		Large:       body.Large,
	})
	info, err := h.Sessions.Create(ctrl)
	if err != nil {
		ctrl.Close()
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	ctrl.Start()

	writeJSON(w, http.StatusCreated, h.view(info.ID, ctrl))
}

func (h *FeedsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.view(id, ctrl))
}

func (h *FeedsHandler) UpdateCriteria(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		FetchMode string `json:"fetchMode"`
		GenreID   string `json:"genreId"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	var mode models.FetchMode
	if strings.TrimSpace(body.FetchMode) != "" {
		parsed, valid := models.ParseFetchMode(body.FetchMode)
		if !valid {
			jsonError(w, "fetchMode must be trending, top_rated, popular or genre", http.StatusBadRequest)
			return
		}
		mode = parsed
	}

	changed := ctrl.Configure(mode, body.GenreID)
	writeJSON(w, http.StatusOK, feedActionResponse{Accepted: changed, Feed: h.view(id, ctrl)})
}

func (h *FeedsHandler) LoadMore(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	dispatched := ctrl.LoadMore()
	writeJSON(w, http.StatusOK, feedActionResponse{Accepted: dispatched, Feed: h.view(id, ctrl)})
}

func (h *FeedsHandler) Scroll(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var pos models.ScrollPosition
	if !decodeBody(w, r, &pos) {
		return
	}
	dispatched := ctrl.OnScroll(pos)
	writeJSON(w, http.StatusOK, feedActionResponse{Accepted: dispatched, Feed: h.view(id, ctrl)})
}

func (h *FeedsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Remove(mux.Vars(r)["id"]); err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Watch streams row snapshots over a websocket.
func (h *FeedsHandler) Watch(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	row := ctrl.Config()
	updates, unsubscribe := ctrl.Subscribe()
	streamSnapshots(w, r, h.upgrader, updates, unsubscribe, func(state models.FeedState) any {
		return h.Views.Feed(id, row, state)
	})
}

func (h *FeedsHandler) view(id string, ctrl feedController) FeedView {
	return h.Views.Feed(id, ctrl.Config(), ctrl.State())
}

func (h *FeedsHandler) lookup(w http.ResponseWriter, r *http.Request) (string, feedController, bool) {
	id := mux.Vars(r)["id"]
	ctrl, err := h.Sessions.Get(id)
	if err != nil {
		status := http.StatusNotFound
		if errors.Is(err, sessions.ErrSessionExpired) {
			status = http.StatusGone
		}
		jsonError(w, err.Error(), status)
		return "", nil, false
	}
	return id, ctrl, true
}
