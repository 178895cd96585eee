package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"reelstream/config"
	"reelstream/models"
)

// MaxPage is the highest page the catalog API serves for any listing.
const MaxPage = 500

// API is the catalog surface the feed and search engines depend on.
type API interface {
	Fetch(ctx context.Context, kind models.ContentType, mode models.FetchMode, page int, opts Options) (models.Page, error)
	Search(ctx context.Context, kind models.ContentType, query string, page int) (models.Page, error)
	Genres(ctx context.Context, kind models.ContentType) ([]models.Genre, error)
}

// Options carries optional listing parameters.
type Options struct {
	GenreID string
}

// Client is a minimal TMDB v3 client covering list, discover, search and genre endpoints.
type Client struct {
	baseURL   string
	apiKey    string
	readToken string
	language  string
	httpc     *http.Client
	limiter   *rate.Limiter

	attempts   uint
	retryDelay time.Duration
}

var _ API = (*Client)(nil)

func NewClient(cfg config.CatalogSettings, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: cfg.Timeout()}
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 20
	}
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.themoviedb.org/3"
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		readToken:  strings.TrimSpace(cfg.ReadToken),
		language:   normalizeLanguage(cfg.Language),
		httpc:      httpc,
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		attempts:   uint(attempts),
		retryDelay: 250 * time.Millisecond,
	}
}

func (c *Client) isConfigured() bool {
	return c.apiKey != "" || c.readToken != ""
}

// normalizeLanguage canonicalises a language setting to TMDB's xx-YY form.
// Regions default to US when the tag does not name one.
func normalizeLanguage(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "en-US"
	}
	tag, err := language.Parse(value)
	if err != nil {
		return "en-US"
	}
	base, _ := tag.Base()
	region, conf := tag.Region()
	if conf != language.Exact {
		return base.String() + "-US"
	}
	return base.String() + "-" + region.String()
}

// listEndpoint returns the path and extra query for a listing. Trending ignores
// the page number; callers only ever ask it for page 1.
func listEndpoint(kind models.ContentType, mode models.FetchMode, opts Options) (string, url.Values) {
	q := url.Values{}
	switch mode {
	case models.FetchTrending:
		return fmt.Sprintf("/trending/%s/week", kind), q
	case models.FetchTopRated:
		return fmt.Sprintf("/%s/top_rated", kind), q
	case models.FetchGenre:
		if genre := strings.TrimSpace(opts.GenreID); genre != "" {
			q.Set("with_genres", genre)
			q.Set("sort_by", "popularity.desc")
			return fmt.Sprintf("/discover/%s", kind), q
		}
	}
	return fmt.Sprintf("/%s/popular", kind), q
}

// Fetch returns one page of a listing.
func (c *Client) Fetch(ctx context.Context, kind models.ContentType, mode models.FetchMode, page int, opts Options) (models.Page, error) {
	if page < 1 || page > MaxPage {
		return models.Page{}, fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}
	path, q := listEndpoint(kind, mode, opts)
	if mode != models.FetchTrending {
		q.Set("page", strconv.Itoa(page))
	}
	return c.fetchPage(ctx, kind, path, q)
}

// Search runs a full-text search against one catalog dimension.
func (c *Client) Search(ctx context.Context, kind models.ContentType, query string, page int) (models.Page, error) {
	if page < 1 || page > MaxPage {
		return models.Page{}, fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("include_adult", "false")
	return c.fetchPage(ctx, kind, fmt.Sprintf("/search/%s", kind), q)
}

// Genres lists the genre directory for one dimension.
func (c *Client) Genres(ctx context.Context, kind models.ContentType) ([]models.Genre, error) {
	var resp struct {
		Genres []models.Genre `json:"genres"`
	}
	if err := c.get(ctx, fmt.Sprintf("/genre/%s/list", kind), url.Values{}, &resp); err != nil {
		return nil, err
	}
	return resp.Genres, nil
}

type listResponse struct {
	Page       int             `json:"page"`
	Results    json.RawMessage `json:"results"`
	TotalPages int             `json:"total_pages"`
}

func (c *Client) fetchPage(ctx context.Context, kind models.ContentType, path string, q url.Values) (models.Page, error) {
	var resp listResponse
	if err := c.get(ctx, path, q, &resp); err != nil {
		return models.Page{}, err
	}
	items, err := decodeItems(kind, resp.Results)
	if err != nil {
		return models.Page{}, &NetworkError{Op: path, Err: fmt.Errorf("decode results: %w", err)}
	}
	total := resp.TotalPages
	if total > MaxPage {
		total = MaxPage
	}
	if total < 0 {
		total = 0
	}
	return models.Page{Items: items, TotalPages: total}, nil
}

func decodeItems(kind models.ContentType, raw json.RawMessage) ([]models.ContentItem, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []models.ContentItem{}, nil
	}
	switch kind {
	case models.ContentTypeTV:
		var shows []models.TVShow
		if err := json.Unmarshal(raw, &shows); err != nil {
			return nil, err
		}
		items := make([]models.ContentItem, 0, len(shows))
		for _, s := range shows {
			items = append(items, models.NewTVItem(s))
		}
		return items, nil
	default:
		var movies []models.Movie
		if err := json.Unmarshal(raw, &movies); err != nil {
			return nil, err
		}
		items := make([]models.ContentItem, 0, len(movies))
		for _, m := range movies {
			items = append(items, models.NewMovieItem(m))
		}
		return items, nil
	}
}

// get performs a throttled GET with retries for transient failures and decodes the JSON body.
func (c *Client) get(ctx context.Context, path string, q url.Values, target any) error {
	if !c.isConfigured() {
		return ErrNotConfigured
	}
	if c.language != "" {
		q.Set("language", c.language)
	}
	if c.readToken == "" {
		q.Set("api_key", c.apiKey)
	}
	endpoint := c.baseURL + path + "?" + q.Encode()

	err := retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			return c.do(ctx, path, endpoint, target)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var netErr *NetworkError
			return errors.As(err, &netErr) && netErr.retryable()
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[catalog] retrying %s attempt=%d err=%v", path, n+1, err)
		}),
	)
	if err != nil {
		var netErr *NetworkError
		if errors.As(err, &netErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &NetworkError{Op: path, Err: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, path, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("Accept", "application/json")
	if c.readToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.readToken)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Unrecoverable(ctx.Err())
		}
		return &NetworkError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &NetworkError{Op: path, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return &NetworkError{Op: path, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
