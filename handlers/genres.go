package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"reelstream/models"
	"reelstream/services/catalog"
)

type genreDirectory interface {
	ListGenres(ctx context.Context, kind models.ContentType) ([]models.Genre, error)
	AllGenres(ctx context.Context) ([]models.Genre, error)
}

var _ genreDirectory = (*catalog.Directory)(nil)

type GenresHandler struct {
	Directory genreDirectory
}

func NewGenresHandler(directory genreDirectory) *GenresHandler {
	return &GenresHandler{Directory: directory}
}

// List serves GET /api/genres?type=movie|tv|all. Without a type the merged
// movie and TV list is returned.
func (h *GenresHandler) List(w http.ResponseWriter, r *http.Request) {
	typ := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type")))

	var (
		genres []models.Genre
		err    error
	)
	if typ == "" || typ == "all" {
		genres, err = h.Directory.AllGenres(r.Context())
	} else {
		kind, ok := models.ParseContentType(typ)
		if !ok {
			jsonError(w, "type must be movie, tv or all", http.StatusBadRequest)
			return
		}
		genres, err = h.Directory.ListGenres(r.Context(), kind)
	}
	if err != nil {
		log.Printf("[http] genres type=%q failed: %v", typ, err)
		status := http.StatusBadGateway
		if errors.Is(err, catalog.ErrNotConfigured) {
			status = http.StatusServiceUnavailable
		}
		jsonError(w, err.Error(), status)
		return
	}
	if genres == nil {
		genres = []models.Genre{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"genres": genres})
}
