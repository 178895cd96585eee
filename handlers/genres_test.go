package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"reelstream/models"
	"reelstream/services/catalog"
)

type fakeGenreDirectory struct {
	byKind map[models.ContentType][]models.Genre
	all    []models.Genre
	err    error

	lastKind models.ContentType
	allCalls int
}

func (f *fakeGenreDirectory) ListGenres(_ context.Context, kind models.ContentType) ([]models.Genre, error) {
	f.lastKind = kind
	return f.byKind[kind], f.err
}

func (f *fakeGenreDirectory) AllGenres(_ context.Context) ([]models.Genre, error) {
	f.allCalls++
	return f.all, f.err
}

func decodeGenres(t *testing.T, rec *httptest.ResponseRecorder) []models.Genre {
	t.Helper()
	var body struct {
		Genres []models.Genre `json:"genres"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body.Genres
}

func TestGenresList_ByType(t *testing.T) {
	dir := &fakeGenreDirectory{byKind: map[models.ContentType][]models.Genre{
		models.ContentTypeTV: {{ID: 10759, Name: "Action & Adventure"}},
	}}
	h := NewGenresHandler(dir)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/genres?type=series", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if dir.lastKind != models.ContentTypeTV {
		t.Errorf("expected tv lookup, got %q", dir.lastKind)
	}
	genres := decodeGenres(t, rec)
	if len(genres) != 1 || genres[0].ID != 10759 {
		t.Errorf("unexpected genres %+v", genres)
	}
}

func TestGenresList_AllByDefault(t *testing.T) {
	dir := &fakeGenreDirectory{all: []models.Genre{{ID: 28, Name: "Action"}, {ID: 18, Name: "Drama"}}}
	h := NewGenresHandler(dir)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/genres", nil))
	if dir.allCalls != 1 {
		t.Fatalf("expected merged lookup, got %d calls", dir.allCalls)
	}
	if genres := decodeGenres(t, rec); len(genres) != 2 {
		t.Errorf("expected 2 genres, got %d", len(genres))
	}
}

func TestGenresList_EmptyIsArray(t *testing.T) {
	h := NewGenresHandler(&fakeGenreDirectory{})
	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/genres?type=movie", nil))
	if rec.Body.String() != "{\"genres\":[]}\n" {
		t.Errorf("expected empty array, got %q", rec.Body.String())
	}
}

func TestGenresList_Errors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		err    error
		status int
	}{
		{"bad type", "?type=podcast", nil, http.StatusBadRequest},
		{"upstream failure", "?type=movie", fmt.Errorf("list movie genres: %w", &catalog.NetworkError{Op: "genres", StatusCode: 503}), http.StatusBadGateway},
		{"not configured", "", fmt.Errorf("list movie genres: %w", catalog.ErrNotConfigured), http.StatusServiceUnavailable},
		{"other", "?type=tv", errors.New("boom"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewGenresHandler(&fakeGenreDirectory{err: tt.err})
			rec := httptest.NewRecorder()
			h.List(rec, httptest.NewRequest(http.MethodGet, "/api/genres"+tt.query, nil))
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
		})
	}
}
