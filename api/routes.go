package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"reelstream/handlers"
)

// Routes bundles the handlers mounted under /api.
type Routes struct {
	Feeds   *handlers.FeedsHandler
	Search  *handlers.SearchHandler
	Genres  *handlers.GenresHandler
	Version *handlers.VersionHandler
}

// Register mounts the feed, search and genre endpoints on r. Calls that can
// trigger catalog traffic go through limiter; a nil limiter disables limiting.
func Register(r *mux.Router, routes Routes, limiter *IPRateLimiter, accessToken string) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(RequestLogger)
	api.Use(TokenAuthMiddleware(accessToken))

	feeds := routes.Feeds
	api.HandleFunc("/feeds", Limit(limiter, feeds.Create)).Methods(http.MethodPost)
	api.HandleFunc("/feeds/{id}", feeds.Get).Methods(http.MethodGet)
	api.HandleFunc("/feeds/{id}", feeds.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/feeds/{id}/criteria", Limit(limiter, feeds.UpdateCriteria)).Methods(http.MethodPut)
	api.HandleFunc("/feeds/{id}/more", Limit(limiter, feeds.LoadMore)).Methods(http.MethodPost)
	api.HandleFunc("/feeds/{id}/scroll", Limit(limiter, feeds.Scroll)).Methods(http.MethodPost)
	api.HandleFunc("/feeds/{id}/watch", feeds.Watch).Methods(http.MethodGet)

	search := routes.Search
	api.HandleFunc("/search", Limit(limiter, search.Create)).Methods(http.MethodPost)
	api.HandleFunc("/search/{id}", search.Get).Methods(http.MethodGet)
	api.HandleFunc("/search/{id}", search.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/search/{id}/query", Limit(limiter, search.UpdateQuery)).Methods(http.MethodPut)
	api.HandleFunc("/search/{id}/query", search.ClearQuery).Methods(http.MethodDelete)
	api.HandleFunc("/search/{id}/filter", search.UpdateFilter).Methods(http.MethodPut)
	api.HandleFunc("/search/{id}/genres", search.UpdateGenres).Methods(http.MethodPut)
	api.HandleFunc("/search/{id}/sort", search.UpdateSort).Methods(http.MethodPut)
	api.HandleFunc("/search/{id}/more", Limit(limiter, search.LoadMore)).Methods(http.MethodPost)
	api.HandleFunc("/search/{id}/watch", search.Watch).Methods(http.MethodGet)

	api.HandleFunc("/genres", Limit(limiter, routes.Genres.List)).Methods(http.MethodGet)
	if routes.Version != nil {
		api.HandleFunc("/version", routes.Version.GetVersion).Methods(http.MethodGet)
	}
}
