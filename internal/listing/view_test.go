package listing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokoku/client/internal/clock"
	"tokoku/client/internal/domain"
)

func pageOf(items ...string) domain.Page[string] {
	return domain.Page[string]{Data: items, Pagination: domain.Pagination{Page: 1, Limit: 25, Total: len(items), TotalPages: 1}}
}

func TestStaleResponseIsDropped(t *testing.T) {
	slowStarted := make(chan struct{})
	releaseSlow := make(chan struct{})

	fetch := func(ctx context.Context, q domain.ListQuery) (domain.Page[string], error) {
		if q.Search == "lama" {
			close(slowStarted)
			<-releaseSlow
			return pageOf("stale"), nil
		}
		return pageOf("fresh"), nil
	}
	v := New(fetch, Options{Name: "products"})
	defer v.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	var slowApplied bool
	go func() {
		defer wg.Done()
		_, slowApplied = v.Load(context.Background(), domain.ListQuery{Search: "lama"})
	}()
	<-slowStarted

	page, applied := v.Load(context.Background(), domain.ListQuery{Search: "baru"})
	require.True(t, applied)
	assert.Equal(t, []string{"fresh"}, page.Data)

	close(releaseSlow)
	wg.Wait()
	assert.False(t, slowApplied)
	assert.Equal(t, []string{"fresh"}, v.Page().Data)
}

func TestNewerLoadCancelsInFlight(t *testing.T) {
	started := make(chan struct{})
	var firstErr error
	fetch := func(ctx context.Context, q domain.ListQuery) (domain.Page[string], error) {
		if q.Page == 1 {
			close(started)
			<-ctx.Done()
			firstErr = ctx.Err()
			return domain.Page[string]{}, ctx.Err()
		}
		return pageOf("page-2"), nil
	}
	v := New(fetch, Options{})
	defer v.Close()

	done := make(chan struct{})
	go func() {
		v.Load(context.Background(), domain.ListQuery{Page: 1})
		close(done)
	}()
	<-started
	v.Load(context.Background(), domain.ListQuery{Page: 2})
	<-done

	assert.ErrorIs(t, firstErr, context.Canceled)
	assert.Equal(t, []string{"page-2"}, v.Page().Data)
}

func TestFetchErrorYieldsEmptyPage(t *testing.T) {
	fetch := func(ctx context.Context, q domain.ListQuery) (domain.Page[string], error) {
		return domain.Page[string]{}, errors.New("HTTP 500")
	}
	v := New(fetch, Options{})
	defer v.Close()

	page, applied := v.Load(context.Background(), domain.ListQuery{Page: 3, Limit: 10})
	require.True(t, applied)
	assert.Empty(t, page.Data)
	assert.NotNil(t, page.Data)
	assert.Equal(t, 3, page.Pagination.Page)
	assert.Equal(t, 10, page.Pagination.Limit)
}

func TestSearchIsDebounced(t *testing.T) {
	fake := &clock.Fake{}
	var mu sync.Mutex
	var queries []string
	fetch := func(ctx context.Context, q domain.ListQuery) (domain.Page[string], error) {
		mu.Lock()
		queries = append(queries, q.Search)
		mu.Unlock()
		return pageOf(q.Search), nil
	}
	v := New(fetch, Options{After: fake.AfterFunc, Delay: 500 * time.Millisecond})
	defer v.Close()

	v.Search("t")
	fake.Advance(100 * time.Millisecond)
	v.Search("te")
	fake.Advance(100 * time.Millisecond)
	v.Search("telur")
	fake.Advance(500 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"telur"}, queries)
	assert.Equal(t, 1, v.Query().Page)
}

func TestClosedViewIgnoresLoads(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context, q domain.ListQuery) (domain.Page[string], error) {
		calls++
		return pageOf("x"), nil
	}
	v := New(fetch, Options{})
	v.Close()
	_, applied := v.Load(context.Background(), domain.ListQuery{})
	assert.False(t, applied)
	assert.Equal(t, 0, calls)
}
