package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"reelstream/models"
	"reelstream/services/catalog"
)

type fetchReply struct {
	page models.Page
	err  error
}

type pendingFetch struct {
	kind  models.ContentType
	mode  models.FetchMode
	page  int
	opts  catalog.Options
	reply chan fetchReply
}

func (p *pendingFetch) respond(page models.Page, err error) {
	p.reply <- fetchReply{page: page, err: err}
}

// gatedSource hands every request to the test, which decides when and how it completes.
type gatedSource struct {
	calls chan *pendingFetch
}

func newGatedSource() *gatedSource {
	return &gatedSource{calls: make(chan *pendingFetch, 32)}
}

func (s *gatedSource) Fetch(_ context.Context, kind models.ContentType, mode models.FetchMode, page int, opts catalog.Options) (models.Page, error) {
	call := &pendingFetch{kind: kind, mode: mode, page: page, opts: opts, reply: make(chan fetchReply, 1)}
	s.calls <- call
	r := <-call.reply
	return r.page, r.err
}

func (s *gatedSource) next(t *testing.T) *pendingFetch {
	t.Helper()
	select {
	case call := <-s.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a fetch")
		return nil
	}
}

func (s *gatedSource) requireIdle(t *testing.T) {
	t.Helper()
	select {
	case call := <-s.calls:
		t.Fatalf("unexpected fetch page=%d mode=%s", call.page, call.mode)
	default:
	}
}

func movieItems(startID, n int) []models.ContentItem {
	items := make([]models.ContentItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, models.NewMovieItem(models.Movie{ID: int64(startID + i), Title: "movie"}))
	}
	return items
}

func tvItems(startID, n int) []models.ContentItem {
	items := make([]models.ContentItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, models.NewTVItem(models.TVShow{ID: int64(startID + i), Name: "show"}))
	}
	return items
}

var popularMovies = models.Criteria{FetchMode: models.FetchPopular, ContentType: models.ContentTypeMovie}

func TestPopularFeedAccumulatesPages(t *testing.T) {
	src := newGatedSource()
	f := NewPagedFetcher(src, "test", 0)
	defer f.Close()

	require.True(t, f.SetCriteria(popularMovies))
	first := src.next(t)
	require.Equal(t, 1, first.page)
	require.Equal(t, models.FetchPopular, first.mode)
	require.True(t, f.State().IsLoading)
	first.respond(models.Page{Items: movieItems(1, 20), TotalPages: 10}, nil)
	f.Wait()

	state := f.State()
	require.Len(t, state.Items, 20)
	require.Equal(t, 1, state.CurrentPage)
	require.Equal(t, 10, state.TotalPages)
	require.False(t, state.IsLoading)

	require.True(t, f.LoadMore())
	second := src.next(t)
	require.Equal(t, 2, second.page)
	second.respond(models.Page{Items: movieItems(21, 20), TotalPages: 10}, nil)
	f.Wait()

	state = f.State()
	require.Len(t, state.Items, 40)
	require.Equal(t, 2, state.CurrentPage)
	require.Equal(t, int64(1), state.Items[0].ID())
	require.Equal(t, int64(40), state.Items[39].ID())
}

func TestLoadMoreWhileLoadingIsNoop(t *testing.T) {
	src := newGatedSource()
	f := NewPagedFetcher(src, "test", 0)
	defer f.Close()

	f.SetCriteria(popularMovies)
	call := src.next(t)

	before := f.State()
	for i := 0; i < 5; i++ {
		require.False(t, f.LoadMore())
	}
	require.Equal(t, before, f.State())
	src.requireIdle(t)

	call.respond(models.Page{Items: movieItems(1, 3), TotalPages: 2}, nil)
	f.Wait()
	require.Len(t, f.State().Items, 3)
}

func TestLoadMoreWhenExhaustedIsNoop(t *testing.T) {
	src := newGatedSource()
	f := NewPagedFetcher(src, "test", 0)
	defer f.Close()

	f.SetCriteria(popularMovies)
	src.next(t).respond(models.Page{Items: movieItems(1, 5), TotalPages: 1}, nil)
	f.Wait()

	before := f.State()
	require.False(t, f.LoadMore())
	require.Equal(t, before, f.State())
	src.requireIdle(t)
}

func TestLoadMoreBeforeCriteriaIsNoop(t *testing.T) {
	src := newGatedSource()
	f := NewPagedFetcher(src, "test", 0)
	defer f.Close()

	require.False(t, f.LoadMore())
	src.requireIdle(t)
	require.Equal(t, 0, f.State().CurrentPage)
}

func TestStaleResultsAreDiscardedAfterCriteriaChange(t *testing.T) {
	src := newGatedSource()
	f := NewPagedFetcher(src, "test", 0)
	defer f.Close()

	f.SetCriteria(popularMovies)
	stale := src.next(t)

	topRatedTV := models.Criteria{FetchMode: models.FetchTopRated, ContentType: models.ContentTypeTV}
	require.True(t, f.SetCriteria(topRatedTV))
	current := src.next(t)
	require.Equal(t, models.ContentTypeTV, current.kind)
	require.Equal(t, 1, current.page)

	state := f.State()
	require.Empty(t, state.Items)
	require.Equal(t, topRatedTV, state.Criteria)

	current.respond(models.Page{Items: tvItems(100, 2), TotalPages: 3}, nil)
	// The superseded request lands last and must not touch the new epoch.
	stale.respond(models.Page{Items: movieItems(1, 20), TotalPages: 10}, nil)
	f.Wait()

	state = f.State()
	require.Len(t, state.Items, 2)
	for _, item := range state.Items {
		require.Equal(t, models.ContentTypeTV, item.Kind)
	}
	require.Equal(t, 1, state.CurrentPage)
	require.Equal(t, 3, state.TotalPages)
	require.False(t, state.IsLoading)
}

func TestStaleResultDoesNotClearLoadingOfNewEpoch(t *testing.T) {
	src := newGatedSource()
	f := NewPagedFetcher(src, "test", 0)
	defer f.Close()

	f.SetCriteria(popularMovies)
	stale := src.next(t)
	f.SetCriteria(models.Criteria{FetchMode: models.FetchTopRated, ContentType: models.ContentTypeMovie})
	current := src.next(t)

	stale.respond(models.Page{}, errors.New("late failure"))
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.pending == 1
	}, time.Second, 5*time.Millisecond)
	require.True(t, f.State().IsLoading)
	require.False(t, f.LoadMore())

	current.respond(models.Page{Items: movieItems(1, 1), TotalPages: 1}, nil)
	f.Wait()
	require.False(t, f.State().IsLoading)
}

func TestSetCriteriaSameValueIsNoop(t *testing.T) {
	src := newGatedSource()
	f := NewPagedFetcher(src, "test", 0)
	defer f.Close()

	require.True(t, f.SetCriteria(popularMovies))
	src.next(t).respond(models.Page{Items: movieItems(1, 4), TotalPages: 5}, nil)
	f.Wait()

	require.False(t, f.SetCriteria(models.Criteria{FetchMode: models.FetchPopular, ContentType: models.ContentTypeMovie}))
	src.requireIdle(t)
	require.Len(t, f.State().Items, 4)
}

func TestFailureKeepsStateAndAllowsRetry(t *testing.T) {
	src := newGatedSource()
	f := NewPagedFetcher(src, "test", 0)
	defer f.Close()

	f.SetCriteria(popularMovies)
	src.next(t).respond(models.Page{Items: movieItems(1, 5), TotalPages: 4}, nil)
	f.Wait()

	require.True(t, f.LoadMore())
	failed := src.next(t)
	require.Equal(t, 2, failed.page)
	failed.respond(models.Page{}, &catalog.NetworkError{Op: "/movie/popular", StatusCode: 503, Err: errors.New("unavailable")})
	f.Wait()

	state := f.State()
	require.False(t, state.IsLoading)
	require.Len(t, state.Items, 5)
	require.Equal(t, 1, state.CurrentPage)

	require.True(t, f.LoadMore())
	retry := src.next(t)
	require.Equal(t, 2, retry.page)
	retry.respond(models.Page{Items: movieItems(6, 5), TotalPages: 4}, nil)
	f.Wait()
	require.Len(t, f.State().Items, 10)
}

func TestGenreWithoutIDFallsBackToPopular(t *testing.T) {
	src := newGatedSource()
	f := NewPagedFetcher(src, "test", 0)
	defer f.Close()

	f.SetCriteria(models.Criteria{FetchMode: models.FetchGenre, ContentType: models.ContentTypeTV})
	call := src.next(t)
	require.Equal(t, models.FetchPopular, call.mode)
	require.Empty(t, call.opts.GenreID)
	call.respond(models.Page{}, nil)

	f.SetCriteria(models.Criteria{FetchMode: models.FetchGenre, GenreID: "35", ContentType: models.ContentTypeTV})
	call = src.next(t)
	require.Equal(t, models.FetchGenre, call.mode)
	require.Equal(t, "35", call.opts.GenreID)
	call.respond(models.Page{}, nil)
	f.Wait()
}

func TestTrendingIsSinglePage(t *testing.T) {
	src := newGatedSource()
	f := NewPagedFetcher(src, "test", 0)
	defer f.Close()

	f.SetCriteria(models.Criteria{FetchMode: models.FetchTrending, ContentType: models.ContentTypeMovie})
	src.next(t).respond(models.Page{Items: movieItems(1, 20), TotalPages: 500}, nil)
	f.Wait()

	state := f.State()
	require.Equal(t, 1, state.CurrentPage)
	require.Equal(t, 1, state.TotalPages)
	require.False(t, f.LoadMore())
	src.requireIdle(t)
}

func TestZeroTotalPagesKeepsPrevious(t *testing.T) {
	src := newGatedSource()
	f := NewPagedFetcher(src, "test", 0)
	defer f.Close()

	f.SetCriteria(popularMovies)
	src.next(t).respond(models.Page{Items: nil, TotalPages: 0}, nil)
	f.Wait()

	state := f.State()
	require.Equal(t, 1, state.CurrentPage)
	require.Equal(t, 1, state.TotalPages)
	require.LessOrEqual(t, state.CurrentPage, state.TotalPages)
}

func TestPageCeilingStopsFeed(t *testing.T) {
	src := newGatedSource()
	f := NewPagedFetcher(src, "test", 2)
	defer f.Close()

	f.SetCriteria(popularMovies)
	src.next(t).respond(models.Page{Items: movieItems(1, 2), TotalPages: 900}, nil)
	f.Wait()
	require.True(t, f.LoadMore())
	src.next(t).respond(models.Page{Items: movieItems(3, 2), TotalPages: 900}, nil)
	f.Wait()

	require.False(t, f.LoadMore())
	src.requireIdle(t)
	state := f.State()
	require.Equal(t, 2, state.CurrentPage)
	require.Equal(t, 900, state.TotalPages, "the remote total is not rewritten at the ceiling")
	require.False(t, state.IsLoading)
	require.False(t, state.HasMore())
	require.Len(t, state.Items, 4)
	require.False(t, f.LoadMore())
	src.requireIdle(t)
}

func TestDuplicateItemsAcrossPagesAreDropped(t *testing.T) {
	src := newGatedSource()
	f := NewPagedFetcher(src, "test", 0)
	defer f.Close()

	f.SetCriteria(popularMovies)
	src.next(t).respond(models.Page{Items: movieItems(1, 3), TotalPages: 3}, nil)
	f.Wait()
	f.LoadMore()
	// Remote ordering shifted between pages: ids 3 and 4 overlap.
	src.next(t).respond(models.Page{Items: movieItems(3, 3), TotalPages: 3}, nil)
	f.Wait()

	state := f.State()
	require.Len(t, state.Items, 5)
	ids := make([]int64, 0, len(state.Items))
	for _, item := range state.Items {
		ids = append(ids, item.ID())
	}
	require.Equal(t, []int64{1, 2, 3, 4, 5}, ids)
}

func TestSubscribeDeliversLatestSnapshot(t *testing.T) {
	src := newGatedSource()
	f := NewPagedFetcher(src, "test", 0)

	updates, unsubscribe := f.Subscribe()
	initial := <-updates
	require.Equal(t, 0, initial.CurrentPage)

	f.SetCriteria(popularMovies)
	src.next(t).respond(models.Page{Items: movieItems(1, 7), TotalPages: 2}, nil)
	f.Wait()

	var last models.FeedState
	require.Eventually(t, func() bool {
		select {
		case last = <-updates:
		default:
		}
		return last.CurrentPage == 1
	}, time.Second, 5*time.Millisecond)
	require.Len(t, last.Items, 7)

	unsubscribe()
	_, open := <-updates
	require.False(t, open)
	f.Close()
}

func TestCloseIgnoresLateResults(t *testing.T) {
	src := newGatedSource()
	f := NewPagedFetcher(src, "test", 0)

	f.SetCriteria(popularMovies)
	call := src.next(t)
	f.Close()
	call.respond(models.Page{Items: movieItems(1, 3), TotalPages: 1}, nil)
	f.Wait()

	require.Empty(t, f.State().Items)
	require.False(t, f.LoadMore())
	require.False(t, f.SetCriteria(models.Criteria{FetchMode: models.FetchTopRated, ContentType: models.ContentTypeMovie}))
}
