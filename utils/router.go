package utils

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter constructs the base router: CORS for every route plus /health.
func NewRouter(policy OriginPolicy) *mux.Router {
	r := mux.NewRouter()
	r.Use(CORS(policy))
	// Preflights only reach the middleware if some route matches OPTIONS.
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	return r
}
