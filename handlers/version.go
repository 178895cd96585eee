package handlers

import (
	"net/http"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"reelstream/config"
)

// Version is overridden at build time with -ldflags "-X reelstream/handlers.Version=...".
var Version = ""

// versionFiles are probed, in order, when no build-time version was injected.
var versionFiles = []string{"version.txt", "/app/version.txt"}

// VersionHandler reports the server version together with the engine tuning a
// client needs to mirror locally (debounce, minimum query length, page ceiling).
type VersionHandler struct {
	fs       afero.Fs
	settings config.Settings

	once    sync.Once
	version string
}

type VersionResponse struct {
	Version        string `json:"version"`
	DebounceMillis int    `json:"debounceMillis"`
	MinQueryLength int    `json:"minQueryLength"`
	MaxPage        int    `json:"maxPage"`
	ImageBaseURL   string `json:"imageBaseUrl"`
}

func NewVersionHandler(fs afero.Fs, settings config.Settings) *VersionHandler {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &VersionHandler{fs: fs, settings: settings}
}

// resolve reads the version once; the build-time value wins over version.txt.
func (h *VersionHandler) resolve() string {
	h.once.Do(func() {
		if Version != "" {
			h.version = Version
			return
		}
		for _, path := range versionFiles {
			data, err := afero.ReadFile(h.fs, path)
			if err == nil && strings.TrimSpace(string(data)) != "" {
				h.version = strings.TrimSpace(string(data))
				return
			}
		}
		h.version = "unknown"
	})
	return h.version
}

func (h *VersionHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version:        h.resolve(),
		DebounceMillis: h.settings.Search.DebounceMillis,
		MinQueryLength: h.settings.Search.MinQueryLength,
		MaxPage:        h.settings.Feed.MaxPage,
		ImageBaseURL:   h.settings.Catalog.ImageBaseURL,
	})
}
