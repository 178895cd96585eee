package feed

import (
	"fmt"
	"strings"
	"sync"

	"reelstream/models"
)

// DefaultEdgeThreshold is how close (in pixels) the viewport must be to the
// right edge of a row before another page is requested.
const DefaultEdgeThreshold = 100

// RowConfig describes one content row. Title, ContentType and Large are fixed
// for the row's lifetime; FetchMode and GenreID may change via Configure.
type RowConfig struct {
	Title       string             `json:"title"`
	ContentType models.ContentType `json:"contentType"`
	FetchMode   models.FetchMode   `json:"fetchMode"`
	GenreID     string             `json:"genreId,omitempty"`
	Large       bool               `json:"large,omitempty"`
}

func (c RowConfig) criteria() models.Criteria {
	return models.Criteria{FetchMode: c.FetchMode, GenreID: strings.TrimSpace(c.GenreID), ContentType: c.ContentType}
}

// Options tunes a Controller. Zero values use the defaults.
type Options struct {
	EdgeThreshold float64
	MaxPage       int
}

// Controller drives one row: it turns row configuration into fetch criteria and
// scroll positions into page loads. Fetch failures never escape; the row just
// stops growing.
type Controller struct {
	fetcher       *PagedFetcher
	edgeThreshold float64

	mu  sync.Mutex
	cfg RowConfig
}

func NewController(cfg RowConfig, source Source, opts Options) *Controller {
	if cfg.ContentType == "" {
		cfg.ContentType = models.ContentTypeMovie
	}
	if cfg.FetchMode == "" {
		cfg.FetchMode = models.FetchTrending
	}
	threshold := opts.EdgeThreshold
	if threshold <= 0 {
		threshold = DefaultEdgeThreshold
	}
	label := fmt.Sprintf("row=%q", cfg.Title)
	return &Controller{
		fetcher:       NewPagedFetcher(source, label, opts.MaxPage),
		edgeThreshold: threshold,
		cfg:           cfg,
	}
}

// Start issues the first page for the configured criteria.
func (c *Controller) Start() {
	c.mu.Lock()
	criteria := c.cfg.criteria()
	c.mu.Unlock()
	c.fetcher.SetCriteria(criteria)
}

// Configure changes the fetch mode and genre. The row resets only if the
// resulting criteria differ from the current ones.
func (c *Controller) Configure(mode models.FetchMode, genreID string) bool {
	c.mu.Lock()
	if mode == "" {
		mode = c.cfg.FetchMode
	}
	c.cfg.FetchMode = mode
	c.cfg.GenreID = strings.TrimSpace(genreID)
	criteria := c.cfg.criteria()
	c.mu.Unlock()
	return c.fetcher.SetCriteria(criteria)
}

// NearRightEdge reports whether a scroll position is within threshold of the end.
func NearRightEdge(pos models.ScrollPosition, threshold float64) bool {
	return pos.Left+pos.ClientWidth >= pos.ScrollWidth-threshold
}

// OnScroll loads the next page when the row is scrolled near its right edge.
// Repeated calls while a page is loading are absorbed by the fetcher.
func (c *Controller) OnScroll(pos models.ScrollPosition) bool {
	if !NearRightEdge(pos, c.edgeThreshold) {
		return false
	}
	return c.fetcher.LoadMore()
}

// LoadMore requests the next page regardless of scroll position.
func (c *Controller) LoadMore() bool {
	return c.fetcher.LoadMore()
}

// Config returns the row configuration, including the current mode and genre.
func (c *Controller) Config() RowConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// State returns a snapshot of the row.
func (c *Controller) State() models.FeedState {
	return c.fetcher.State()
}

// Subscribe streams row snapshots; see PagedFetcher.Subscribe.
func (c *Controller) Subscribe() (<-chan models.FeedState, func()) {
	return c.fetcher.Subscribe()
}

// Wait blocks until the row has no request outstanding.
func (c *Controller) Wait() {
	c.fetcher.Wait()
}

// Close stops the row. Late results are ignored.
func (c *Controller) Close() {
	c.fetcher.Close()
}

// DetailPath is the navigation target for an item in a row.
func DetailPath(item models.ContentItem) string {
	if item.Kind == models.ContentTypeTV {
		return fmt.Sprintf("/tv/%d", item.ID())
	}
	return fmt.Sprintf("/movie/%d", item.ID())
}
