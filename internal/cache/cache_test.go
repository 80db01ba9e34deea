package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseKeyRoundTrip(t *testing.T) {
	for _, k := range []Key{DocumentKey("d1"), DownloadURLKey("d1"), ApplicationKey("a1"), DocumentListKey("a1")} {
		got, err := ParseKey(k.String())
		require.NoError(t, err)
		require.Equal(t, k, got)
	}
	_, err := ParseKey("document")
	require.Error(t, err)
	_, err = ParseKey("session:abc")
	require.Error(t, err)
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", map[string]int{"v": 1}, time.Minute))
	var got map[string]int
	require.NoError(t, s.Get(ctx, "k", &got))
	require.Equal(t, 1, got["v"])

	now = now.Add(time.Minute)
	require.ErrorIs(t, s.Get(ctx, "k", &got), ErrMiss)
}

func TestFetchCachesAndCollapses(t *testing.T) {
	c := New(NewMemoryStore(), NewMemoryBus(nil), nil)
	ctx := context.Background()
	key := ApplicationKey("app-1")

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "loaded", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 5)
	errs := make([]error, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = Fetch(ctx, c, key, time.Minute, load)
		}(i)
	}
	// Let the goroutines pile up on the in-flight load.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.EqualValues(t, 1, calls.Load())
	for i, r := range results {
		require.NoError(t, errs[i])
		require.Equal(t, "loaded", r)
	}

	v, err := Fetch(ctx, c, key, time.Minute, func(context.Context) (string, error) {
		return "", errors.New("should be served from cache")
	})
	require.NoError(t, err)
	require.Equal(t, "loaded", v)
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	c := New(NewMemoryStore(), NewMemoryBus(nil), nil)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := Fetch(ctx, c, DocumentListKey("a"), time.Minute, func(context.Context) ([]string, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	got, err := Fetch(ctx, c, DocumentListKey("a"), time.Minute, func(context.Context) ([]string, error) {
		return []string{"x"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, got)
}

func TestInvalidateDropsEntryAndNotifiesSubscribers(t *testing.T) {
	bus := NewMemoryBus(nil)
	c := New(NewMemoryStore(), bus, nil)
	ctx := context.Background()

	first, cancelFirst := bus.Subscribe()
	defer cancelFirst()
	second, cancelSecond := bus.Subscribe()
	defer cancelSecond()

	_, err := Fetch(ctx, c, ApplicationKey("app-1"), time.Minute, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(ctx, ApplicationKey("app-1"), DocumentKey("doc-1")))
	for _, ch := range []<-chan Key{first, second} {
		require.Equal(t, ApplicationKey("app-1"), <-ch)
		require.Equal(t, DocumentKey("doc-1"), <-ch)
	}

	v, err := Fetch(ctx, c, ApplicationKey("app-1"), time.Minute, func(context.Context) (int, error) { return 2, nil })
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

func TestMemoryBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewMemoryBus(nil)
	ch, cancel := bus.Subscribe()
	cancel()
	cancel()
	_, ok := <-ch
	require.False(t, ok)
	require.NoError(t, bus.Publish(context.Background(), DocumentKey("d")))
}

func TestInvalidateDuringLoadKeepsStaleValueOut(t *testing.T) {
	c := New(NewMemoryStore(), NewMemoryBus(nil), nil)
	ctx := context.Background()
	key := DocumentListKey("app-1")

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan string)
	go func() {
		v, err := Fetch(ctx, c, key, time.Minute, func(context.Context) (string, error) {
			close(started)
			<-release
			return "stale", nil
		})
		require.NoError(t, err)
		done <- v
	}()

	<-started
	require.NoError(t, c.Invalidate(ctx, key))
	close(release)
	require.Equal(t, "stale", <-done)

	v, err := Fetch(ctx, c, key, time.Minute, func(context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	require.Equal(t, "fresh", v)
}

func TestSharedLoadSurvivesFirstCallerCancel(t *testing.T) {
	c := New(NewMemoryStore(), NewMemoryBus(nil), nil)
	key := DocumentKey("d1")

	first, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	load := func(ctx context.Context) (string, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "loaded", nil
	}

	type result struct {
		v   string
		err error
	}
	firstDone := make(chan result, 1)
	go func() {
		v, err := Fetch(first, c, key, time.Minute, load)
		firstDone <- result{v, err}
	}()
	<-started

	secondDone := make(chan result, 1)
	go func() {
		v, err := Fetch(context.Background(), c, key, time.Minute, load)
		secondDone <- result{v, err}
	}()
	// Give the second caller time to join the in-flight load.
	time.Sleep(50 * time.Millisecond)
	cancel()
	close(release)

	for _, ch := range []chan result{firstDone, secondDone} {
		r := <-ch
		require.NoError(t, r.err)
		require.Equal(t, "loaded", r.v)
	}
}
