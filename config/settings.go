package config

import "time"

// Settings is the persisted server configuration.
type Settings struct {
	Server  ServerSettings  `json:"server" yaml:"server"`
	Catalog CatalogSettings `json:"catalog" yaml:"catalog"`
	Search  SearchSettings  `json:"search" yaml:"search"`
	Feed    FeedSettings    `json:"feed" yaml:"feed"`
	Log     LogSettings     `json:"log" yaml:"log"`
}

type ServerSettings struct {
	Listen string `json:"listen" yaml:"listen"`
	// Requests per minute allowed per client IP on mutating endpoints. 0 disables limiting.
	RateLimitPerMinute int `json:"rateLimitPerMinute" yaml:"rateLimitPerMinute"`
	RateLimitBurst     int `json:"rateLimitBurst" yaml:"rateLimitBurst"`
	// Feed and search sessions untouched for this long are closed.
	SessionIdleMinutes int `json:"sessionIdleMinutes" yaml:"sessionIdleMinutes"`
	// When set, API calls must present it as a bearer token or ?token= parameter.
	AccessToken string `json:"accessToken,omitempty" yaml:"accessToken,omitempty"`
	// Public browser origins allowed in addition to LAN origins.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
}

func (s ServerSettings) SessionIdle() time.Duration {
	return time.Duration(s.SessionIdleMinutes) * time.Minute
}

// CatalogSettings configures the TMDB client.
type CatalogSettings struct {
	BaseURL      string `json:"baseUrl" yaml:"baseUrl"`
	ImageBaseURL string `json:"imageBaseUrl" yaml:"imageBaseUrl"`
	APIKey       string `json:"apiKey" yaml:"apiKey"`
	ReadToken    string `json:"readToken,omitempty" yaml:"readToken,omitempty"`
	Language     string `json:"language" yaml:"language"`
	TimeoutSecs  int    `json:"timeoutSeconds" yaml:"timeoutSeconds"`
	// Outbound requests per second against the catalog API.
	RequestsPerSecond float64 `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	RetryAttempts     int     `json:"retryAttempts" yaml:"retryAttempts"`
}

func (c CatalogSettings) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

type SearchSettings struct {
	DebounceMillis int `json:"debounceMillis" yaml:"debounceMillis"`
	MinQueryLength int `json:"minQueryLength" yaml:"minQueryLength"`
}

func (s SearchSettings) Debounce() time.Duration {
	return time.Duration(s.DebounceMillis) * time.Millisecond
}

type FeedSettings struct {
	// Pixels from the right edge that count as "near the edge" for scroll-triggered loads.
	EdgeThreshold float64 `json:"edgeThreshold" yaml:"edgeThreshold"`
	MaxPage       int     `json:"maxPage" yaml:"maxPage"`
}

type LogSettings struct {
	File       string `json:"file,omitempty" yaml:"file,omitempty"`
	MaxSizeMB  int    `json:"maxSizeMb" yaml:"maxSizeMb"`
	MaxBackups int    `json:"maxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `json:"maxAgeDays" yaml:"maxAgeDays"`
}

// DefaultSettings returns the configuration used for any field left unset.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Listen:             ":7777",
			RateLimitPerMinute: 240,
			RateLimitBurst:     40,
			SessionIdleMinutes: 30,
		},
		Catalog: CatalogSettings{
			BaseURL:           "https://api.themoviedb.org/3",
			ImageBaseURL:      "https://image.tmdb.org/t/p",
			Language:          "en-US",
			TimeoutSecs:       15,
			RequestsPerSecond: 20,
			RetryAttempts:     2,
		},
		Search: SearchSettings{
			DebounceMillis: 500,
			MinQueryLength: 2,
		},
		Feed: FeedSettings{
			EdgeThreshold: 100,
			MaxPage:       500,
		},
		Log: LogSettings{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// applyDefaults fills zero values from DefaultSettings.
func (s *Settings) applyDefaults() {
	d := DefaultSettings()
	if s.Server.Listen == "" {
		s.Server.Listen = d.Server.Listen
	}
	if s.Server.RateLimitBurst <= 0 {
		s.Server.RateLimitBurst = d.Server.RateLimitBurst
	}
	if s.Server.SessionIdleMinutes <= 0 {
		s.Server.SessionIdleMinutes = d.Server.SessionIdleMinutes
	}
	if s.Catalog.BaseURL == "" {
		s.Catalog.BaseURL = d.Catalog.BaseURL
	}
	if s.Catalog.ImageBaseURL == "" {
		s.Catalog.ImageBaseURL = d.Catalog.ImageBaseURL
	}
	if s.Catalog.Language == "" {
		s.Catalog.Language = d.Catalog.Language
	}
	if s.Catalog.TimeoutSecs <= 0 {
		s.Catalog.TimeoutSecs = d.Catalog.TimeoutSecs
	}
	if s.Catalog.RequestsPerSecond <= 0 {
		s.Catalog.RequestsPerSecond = d.Catalog.RequestsPerSecond
	}
	if s.Catalog.RetryAttempts <= 0 {
		s.Catalog.RetryAttempts = d.Catalog.RetryAttempts
	}
	if s.Search.DebounceMillis <= 0 {
		s.Search.DebounceMillis = d.Search.DebounceMillis
	}
	if s.Search.MinQueryLength <= 0 {
		s.Search.MinQueryLength = d.Search.MinQueryLength
	}
	if s.Feed.EdgeThreshold <= 0 {
		s.Feed.EdgeThreshold = d.Feed.EdgeThreshold
	}
	if s.Feed.MaxPage <= 0 {
		s.Feed.MaxPage = d.Feed.MaxPage
	}
	if s.Log.MaxSizeMB <= 0 {
		s.Log.MaxSizeMB = d.Log.MaxSizeMB
	}
	if s.Log.MaxBackups <= 0 {
		s.Log.MaxBackups = d.Log.MaxBackups
	}
	if s.Log.MaxAgeDays <= 0 {
		s.Log.MaxAgeDays = d.Log.MaxAgeDays
	}
}
