package search

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sourcegraph/conc/pool"

	"reelstream/internal/watch"
	"reelstream/models"
)

const (
	DefaultDebounce       = 500 * time.Millisecond
	DefaultMinQueryLength = 2
)

// Source is the per-dimension search call.
type Source interface {
	Search(ctx context.Context, kind models.ContentType, query string, page int) (models.Page, error)
}

// Timer is the part of *time.Timer the debouncer uses.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules fn after d. time.AfterFunc satisfies it through a small adapter.
type AfterFunc func(d time.Duration, fn func()) Timer

func realAfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

type Options struct {
	Debounce       time.Duration
	MinQueryLength int
	// AfterFunc replaces the wall-clock timer, mainly for tests.
	AfterFunc AfterFunc
}

// Aggregator merges movie and TV search results for one query and projects
// them through client-side facets.
//
// Each query change bumps a generation counter. Dual fetches are tagged with
// the generation that issued them; completions from an older generation are
// dropped, so a slow response for a previous query never reaches the results.
type Aggregator struct {
	source    Source
	debounce  time.Duration
	minLength int
	afterFunc AfterFunc

	mu     sync.Mutex
	idle   *sync.Cond
	base   context.Context
	stop   context.CancelFunc
	closed bool

	timer       Timer
	timerSeq    uint64
	pendingText string
	lastEmitted string
	emitted     bool

	generation  uint64
	genCtx      context.Context
	cancel      context.CancelFunc
	query       string
	hasSearched bool
	raw         []models.SearchResult
	typeFilter  models.TypeFilter
	genres      []int
	sortKey     models.SortKey
	currentPage int
	totalPages  int
	isLoading   bool
	pending     int

	hub *watch.Hub[models.SearchState]
}

func NewAggregator(source Source, opts Options) *Aggregator {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = DefaultMinQueryLength
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	base, stop := context.WithCancel(context.Background())
	a := &Aggregator{
		source:      source,
		debounce:    opts.Debounce,
		minLength:   opts.MinQueryLength,
		afterFunc:   opts.AfterFunc,
		base:        base,
		stop:        stop,
		typeFilter:  models.TypeFilterAll,
		sortKey:     models.SortPopularity,
		currentPage: 1,
		totalPages:  1,
		hub:         watch.NewHub[models.SearchState](),
	}
	a.idle = sync.NewCond(&a.mu)
	return a
}

// QueryChanged feeds raw input text. The text is acted on only after the input
// has been quiet for the debounce window, and only if it differs from the last
// text acted on.
func (a *Aggregator) QueryChanged(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timerSeq++
	seq := a.timerSeq
	a.pendingText = text
	a.timer = a.afterFunc(a.debounce, func() { a.flush(seq) })
}

func (a *Aggregator) flush(seq uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || seq != a.timerSeq {
		return
	}
	a.timer = nil
	text := a.pendingText
	if a.emitted && text == a.lastEmitted {
		return
	}
	a.lastEmitted = text
	a.emitted = true
	a.applyQueryLocked(text)
}

// Search runs query immediately, bypassing the debounce window. It is the entry
// point for deep links that arrive with a query already filled in.
func (a *Aggregator) Search(query string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.cancelTimerLocked()
	a.lastEmitted = query
	a.emitted = true
	a.applyQueryLocked(query)
}

// Clear abandons the current query and returns to the never-searched state.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.cancelTimerLocked()
	a.lastEmitted = ""
	a.emitted = true
	a.supersedeLocked()
	a.resetLocked()
	a.publishLocked()
}

func (a *Aggregator) cancelTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.timerSeq++
}

// supersedeLocked starts a new generation; anything in flight becomes stale.
func (a *Aggregator) supersedeLocked() {
	a.generation++
	if a.cancel != nil {
		a.cancel()
	}
	a.genCtx, a.cancel = context.WithCancel(a.base)
}

func (a *Aggregator) resetLocked() {
	a.query = ""
	a.hasSearched = false
	a.raw = nil
	a.currentPage = 1
	a.totalPages = 1
	a.isLoading = false
}

func (a *Aggregator) applyQueryLocked(text string) {
	term := strings.TrimSpace(text)
	a.supersedeLocked()
	if utf8.RuneCountInString(term) < a.minLength {
		a.resetLocked()
		a.publishLocked()
		return
	}

	a.query = term
	a.hasSearched = true
	a.raw = nil
	a.currentPage = 1
	a.totalPages = 1
	a.isLoading = true
	a.dispatchLocked(1)
	a.publishLocked()
}

// LoadMoreRequested fetches the next page from both sources and appends it.
// It does nothing without an active query, while a fetch is outstanding, or
// once the last page has been reached.
func (a *Aggregator) LoadMoreRequested() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.query == "" || a.isLoading || a.currentPage >= a.totalPages {
		return false
	}
	a.isLoading = true
	a.dispatchLocked(a.currentPage + 1)
	a.publishLocked()
	return true
}

// FilterChanged sets the source facet. No fetch is issued.
func (a *Aggregator) FilterChanged(filter models.TypeFilter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.typeFilter = filter
	a.publishLocked()
}

// ToggleGenre adds id to the genre facet, or removes it if already selected.
func (a *Aggregator) ToggleGenre(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, g := range a.genres {
		if g == id {
			a.genres = append(a.genres[:i:i], a.genres[i+1:]...)
			a.publishLocked()
			return
		}
	}
	a.genres = append(a.genres, id)
	a.publishLocked()
}

// SetGenres replaces the genre facet.
func (a *Aggregator) SetGenres(ids []int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	seen := make(map[int]struct{}, len(ids))
	genres := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		genres = append(genres, id)
	}
	a.genres = genres
	a.publishLocked()
}

func (a *Aggregator) ClearGenres() {
	a.SetGenres(nil)
}

// SortChanged sets the ordering of the projected results. No fetch is issued.
func (a *Aggregator) SortChanged(key models.SortKey) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sortKey = key
	a.publishLocked()
}

func (a *Aggregator) dispatchLocked(page int) {
	a.pending++
	go a.run(a.genCtx, a.generation, a.query, page)
}

func (a *Aggregator) run(ctx context.Context, generation uint64, query string, page int) {
	movies, shows, err := a.fetchBoth(ctx, query, page)
	a.complete(generation, query, page, movies, shows, err)
}

// fetchBoth searches both sources concurrently; either failure fails the pair.
func (a *Aggregator) fetchBoth(ctx context.Context, query string, page int) (models.Page, models.Page, error) {
	var movies, shows models.Page
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		movies, err = a.source.Search(ctx, models.ContentTypeMovie, query, page)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		shows, err = a.source.Search(ctx, models.ContentTypeTV, query, page)
		return err
	})
	if err := p.Wait(); err != nil {
		return models.Page{}, models.Page{}, err
	}
	return movies, shows, nil
}

func (a *Aggregator) complete(generation uint64, query string, page int, movies, shows models.Page, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	defer a.idle.Broadcast()
	a.pending--

	if a.closed || generation != a.generation {
		return
	}
	a.isLoading = false
	if err != nil {
		log.Printf("[search] query=%q page=%d failed: %v", query, page, err)
		if page == 1 {
			// Let the same text through the debouncer again so it can be retried.
			a.emitted = false
			a.lastEmitted = ""
		}
		a.publishLocked()
		return
	}

	results := append(tag(movies.Items, models.ContentTypeMovie), tag(shows.Items, models.ContentTypeTV)...)
	if page == 1 {
		a.raw = results
		a.totalPages = max(movies.TotalPages, shows.TotalPages)
	} else {
		a.raw = append(a.raw, results...)
	}
	a.currentPage = page
	a.publishLocked()
}

// State returns a snapshot. FilteredResults is recomputed from the raw results
// and the current facets on every call.
func (a *Aggregator) State() models.SearchState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Aggregator) snapshotLocked() models.SearchState {
	raw := append([]models.SearchResult(nil), a.raw...)
	state := models.SearchState{
		Query:           a.query,
		RawResults:      raw,
		FilteredResults: Project(raw, a.typeFilter, a.genres, a.sortKey),
		TypeFilter:      a.typeFilter,
		Genres:          append([]int{}, a.genres...),
		SortKey:         a.sortKey,
		CurrentPage:     a.currentPage,
		TotalPages:      a.totalPages,
		IsLoading:       a.isLoading,
		HasSearched:     a.hasSearched,
		TotalCount:      len(raw),
	}
	for _, r := range raw {
		if r.Source == models.ContentTypeMovie {
			state.MovieCount++
		} else {
			state.TVCount++
		}
	}
	return state
}

func (a *Aggregator) publishLocked() {
	if a.hub.Len() == 0 {
		return
	}
	a.hub.Publish(a.snapshotLocked())
}

// Subscribe streams snapshots; see watch.Hub for delivery semantics.
func (a *Aggregator) Subscribe() (<-chan models.SearchState, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hub.Subscribe(a.snapshotLocked())
}

// Wait blocks until no dual fetch is outstanding.
func (a *Aggregator) Wait() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for a.pending > 0 {
		a.idle.Wait()
	}
}

// Close stops the debouncer, cancels outstanding fetches and detaches subscribers.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	a.cancelTimerLocked()
	a.stop()
	a.hub.Close()
}
