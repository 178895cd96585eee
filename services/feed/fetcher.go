package feed

import (
	"context"
	"log"
	"sync"

	"reelstream/internal/watch"
	"reelstream/models"
	"reelstream/services/catalog"
)

// Source is the catalog listing call a fetcher pages through.
type Source interface {
	Fetch(ctx context.Context, kind models.ContentType, mode models.FetchMode, page int, opts catalog.Options) (models.Page, error)
}

// PagedFetcher owns one accumulating result list for a changeable Criteria.
//
// Every criteria change starts a new epoch. Fetches are tagged with the epoch
// that issued them and their results are dropped if the epoch has moved on by
// the time they complete, so a slow response for old criteria can never leak
// into the current list.
type PagedFetcher struct {
	source  Source
	label   string
	maxPage int

	mu       sync.Mutex
	idle     *sync.Cond
	base     context.Context
	stop     context.CancelFunc
	started  bool
	closed   bool
	criteria models.Criteria
	epoch    uint64
	epochCtx context.Context
	cancel   context.CancelFunc
	state    models.FeedState
	seen     map[models.ItemKey]struct{}
	pending  int

	hub *watch.Hub[models.FeedState]
}

// NewPagedFetcher builds an idle fetcher. Nothing is fetched until SetCriteria.
// maxPage <= 0 uses catalog.MaxPage.
func NewPagedFetcher(source Source, label string, maxPage int) *PagedFetcher {
	if maxPage <= 0 || maxPage > catalog.MaxPage {
		maxPage = catalog.MaxPage
	}
	base, stop := context.WithCancel(context.Background())
	f := &PagedFetcher{
		source:  source,
		label:   label,
		maxPage: maxPage,
		base:    base,
		stop:    stop,
		state:   initialState(models.Criteria{}, maxPage),
		seen:    make(map[models.ItemKey]struct{}),
		hub:     watch.NewHub[models.FeedState](),
	}
	f.idle = sync.NewCond(&f.mu)
	return f
}

// SetCriteria switches the fetcher to c and loads its first page. Returns false
// when c equals the current criteria, in which case nothing changes.
func (f *PagedFetcher) SetCriteria(c models.Criteria) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || (f.started && c == f.criteria) {
		return false
	}
	if f.cancel != nil {
		f.cancel()
	}
	f.started = true
	f.criteria = c
	f.epoch++
	f.epochCtx, f.cancel = context.WithCancel(f.base)
	f.state = initialState(c, f.maxPage)
	f.seen = make(map[models.ItemKey]struct{})

	if !f.loadMoreLocked() {
		f.publishLocked()
	}
	return true
}

// LoadMore requests the next page. It returns true only when a request was
// dispatched; it is a no-op while a request is outstanding or once the last
// page has been loaded.
func (f *PagedFetcher) LoadMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadMoreLocked()
}

func (f *PagedFetcher) loadMoreLocked() bool {
	if f.closed || !f.started || f.state.IsLoading {
		return false
	}
	if f.state.CurrentPage > 0 && f.state.CurrentPage >= f.state.TotalPages {
		return false
	}

	page := f.state.CurrentPage + 1
	if page > f.maxPage {
		// Past the ceiling the request short-circuits to an empty page; the
		// remote total is left as reported.
		return false
	}

	f.state.IsLoading = true
	f.pending++
	go f.dispatch(f.epochCtx, f.epoch, f.criteria.Resolve(), page)
	f.publishLocked()
	return true
}

func initialState(c models.Criteria, maxPage int) models.FeedState {
	state := models.InitialFeedState(c)
	state.PageCeiling = maxPage
	return state
}

func (f *PagedFetcher) dispatch(ctx context.Context, epoch uint64, criteria models.Criteria, page int) {
	resp, err := f.source.Fetch(ctx, criteria.ContentType, criteria.FetchMode, page, catalog.Options{GenreID: criteria.GenreID})
	f.complete(epoch, criteria, page, resp, err)
}

func (f *PagedFetcher) complete(epoch uint64, criteria models.Criteria, page int, resp models.Page, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer f.idle.Broadcast()
	f.pending--

	if f.closed || epoch != f.epoch {
		return
	}

	f.state.IsLoading = false
	if err != nil {
		log.Printf("[feed] %s fetch failed mode=%s type=%s page=%d err=%v", f.label, criteria.FetchMode, criteria.ContentType, page, err)
		f.publishLocked()
		return
	}

	for _, item := range resp.Items {
		key := item.Key()
		if _, dup := f.seen[key]; dup {
			continue
		}
		f.seen[key] = struct{}{}
		f.state.Items = append(f.state.Items, item)
	}

	total := resp.TotalPages
	if total <= 0 {
		total = f.state.TotalPages
	}
	if criteria.FetchMode == models.FetchTrending {
		// Trending listings are served as a single page.
		total = 1
	}
	if total < page {
		total = page
	}
	f.state.CurrentPage = page
	f.state.TotalPages = total
	if page == f.maxPage && total > page {
		log.Printf("[feed] %s reached page ceiling %d of %d", f.label, f.maxPage, total)
	}
	f.publishLocked()
}

// State returns a snapshot of the current feed.
func (f *PagedFetcher) State() models.FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Clone()
}

// Criteria returns the criteria of the current epoch.
func (f *PagedFetcher) Criteria() models.Criteria {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.criteria
}

// Subscribe returns a channel that always holds the most recent snapshot. Slow
// readers skip intermediate states rather than blocking the fetcher. The
// returned func unsubscribes and closes the channel.
func (f *PagedFetcher) Subscribe() (<-chan models.FeedState, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hub.Subscribe(f.state.Clone())
}

func (f *PagedFetcher) publishLocked() {
	if f.hub.Len() == 0 {
		return
	}
	f.hub.Publish(f.state.Clone())
}

// Wait blocks until no dispatched request is outstanding, including requests
// whose results will be discarded.
func (f *PagedFetcher) Wait() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.pending > 0 {
		f.idle.Wait()
	}
}

// Close cancels outstanding requests and detaches subscribers. Results that
// arrive afterwards are ignored.
func (f *PagedFetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.stop()
	f.hub.Close()
}
