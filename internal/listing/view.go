// Package listing drives a paginated, searchable list: typing is debounced,
// a newer request cancels the one in flight, and a late response for a
// superseded query is dropped.
package listing

import (
	"context"
	"errors"
	"sync"
	"time"

	"tokoku/client/internal/clock"
	"tokoku/client/internal/debounce"
	"tokoku/client/internal/domain"
	"tokoku/client/internal/logger"
)

// Fetcher loads one page of a list endpoint.
type Fetcher[T any] func(ctx context.Context, q domain.ListQuery) (domain.Page[T], error)

type Options struct {
	Name   string
	Delay  time.Duration
	After  clock.AfterFunc
	Logger *logger.Logger
	// OnChange runs after every applied page, outside the view's lock.
	OnChange func()
}

type View[T any] struct {
	mu       sync.Mutex
	name     string
	fetch    Fetcher[T]
	log      *logger.Logger
	onChange func()
	search   *debounce.Debouncer

	root    context.Context
	closeFn context.CancelFunc

	query   domain.ListQuery
	page    domain.Page[T]
	gen     uint64
	cancel  context.CancelFunc
	loading bool
	closed  bool
}

func New[T any](fetch Fetcher[T], opts Options) *View[T] {
	if opts.Delay <= 0 {
		opts.Delay = 500 * time.Millisecond
	}
	root, closeFn := context.WithCancel(context.Background())
	q := domain.ListQuery{}.Normalize()
	return &View[T]{
		name:     opts.Name,
		fetch:    fetch,
		log:      opts.Logger,
		onChange: opts.OnChange,
		search:   debounce.New(opts.After, opts.Delay),
		root:     root,
		closeFn:  closeFn,
		query:    q,
		page:     domain.EmptyPage[T](q),
	}
}

// Load fetches q now. It reports false when the response was discarded
// because a newer load started or the view closed. Fetch errors are logged
// and yield an empty page.
func (v *View[T]) Load(ctx context.Context, q domain.ListQuery) (domain.Page[T], bool) {
	q = q.Normalize()

	v.mu.Lock()
	if v.closed {
		page := v.page
		v.mu.Unlock()
		return page, false
	}
	if v.cancel != nil {
		v.cancel()
	}
	v.gen++
	gen := v.gen
	reqCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(v.root, cancel)
	v.cancel = cancel
	v.query = q
	v.loading = true
	v.mu.Unlock()

	page, err := v.fetch(reqCtx, q)
	stop()
	cancel()

	v.mu.Lock()
	if gen != v.gen || v.closed {
		current := v.page
		v.mu.Unlock()
		return current, false
	}
	v.cancel = nil
	v.loading = false
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			v.log.Warn(ctx, "list fetch failed: "+v.name, err)
		}
		page = domain.EmptyPage[T](q)
	}
	if page.Data == nil {
		page.Data = []T{}
	}
	v.page = page
	onChange := v.onChange
	v.mu.Unlock()

	if onChange != nil {
		onChange()
	}
	return page, true
}

// Search schedules a debounced load of page 1 for text.
func (v *View[T]) Search(text string) {
	v.mu.Lock()
	q := v.query
	v.mu.Unlock()
	q.Search = text
	q.Page = 1
	v.search.Trigger(func() {
		v.Load(v.root, q)
	})
}

// SetPage loads another page of the current query immediately.
func (v *View[T]) SetPage(ctx context.Context, page int) (domain.Page[T], bool) {
	v.mu.Lock()
	q := v.query
	v.mu.Unlock()
	q.Page = page
	return v.Load(ctx, q)
}

// Reload repeats the current query.
func (v *View[T]) Reload(ctx context.Context) (domain.Page[T], bool) {
	v.mu.Lock()
	q := v.query
	v.mu.Unlock()
	return v.Load(ctx, q)
}

func (v *View[T]) Page() domain.Page[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

func (v *View[T]) Query() domain.ListQuery {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

func (v *View[T]) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// Close stops the debouncer and cancels the request in flight.
func (v *View[T]) Close() {
	v.search.Stop()
	v.mu.Lock()
	v.closed = true
	v.loading = false
	v.mu.Unlock()
	v.closeFn()
}
