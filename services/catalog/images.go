package catalog

import "strings"

const (
	defaultImageBaseURL = "https://image.tmdb.org/t/p"
	PosterSize          = "w500"
	BackdropSize        = "w1280"
)

// ImageURL joins a TMDB image path onto the image CDN. Empty paths stay empty.
func ImageURL(baseURL, path, size string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultImageBaseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return baseURL + "/" + size + path
}
