package goSession

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/tokenstore"
)

type gatedAPI struct {
	srv     *httptest.Server
	hits    atomic.Int64
	entered chan struct{}
	release chan struct{}
}

func newGatedAPI(t *testing.T) *gatedAPI {
	t.Helper()
	g := &gatedAPI{
		entered: make(chan struct{}, 64),
		release: make(chan struct{}),
	}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.hits.Add(1)
		g.entered <- struct{}{}
		<-g.release
		_, _ = io.WriteString(w, votesBody)
	}))
	t.Cleanup(func() {
		select {
		case <-g.release:
		default:
			close(g.release)
		}
		g.srv.Close()
	})
	return g
}

func newGatedStore(t *testing.T, g *gatedAPI, tokens tokenstore.Store, mutate func(*Config)) *Store {
	t.Helper()
	cfg := defaultConfig()
	cfg.API.BaseURL = g.srv.URL
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}
	store, err := New().WithConfig(cfg).WithTokenStore(tokens).WithHTTPClient(g.srv.Client()).Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func waitEntered(t *testing.T, g *gatedAPI) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the api")
	}
}

func TestLogoutDuringLoginFetchDropsResult(t *testing.T) {
	g := newGatedAPI(t)
	tokens := tokenstore.NewMemory()
	store := newGatedStore(t, g, tokens, nil)

	done := make(chan error, 1)
	go func() {
		done <- store.Login(context.Background(), "abc123")
	}()
	waitEntered(t, g)

	logoutDone := make(chan error, 1)
	go func() { logoutDone <- store.Logout(context.Background()) }()
	select {
	case err := <-logoutDone:
		if err != nil {
			t.Fatalf("logout failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("logout must not wait for an in-flight fetch")
	}

	close(g.release)
	if err := <-done; !errors.Is(err, ErrSessionSuperseded) {
		t.Fatalf("expected ErrSessionSuperseded, got %v", err)
	}

	if store.IsLoggedIn() {
		t.Fatal("logout must win over the stale login")
	}
	assertEmptySnapshot(t, store.Snapshot())
	if has, _ := tokenstore.Has(context.Background(), tokens); has {
		t.Fatal("token must stay removed")
	}
	if got := store.MetricsSnapshot().Counters[MetricFetchSuperseded]; got != 1 {
		t.Fatalf("expected fetch_superseded=1, got %d", got)
	}
}

func TestRollbackSkippedWhenLaterLoginWins(t *testing.T) {
	var calls atomic.Int64
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			entered <- struct{}{}
			<-release
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, votesBody)
	}))
	defer srv.Close()

	cfg := defaultConfig()
	cfg.API.BaseURL = srv.URL
	cfg.Session.RollbackLoginOnFetchFailure = true
	cfg.Session.CoalesceFetches = false
	tokens := tokenstore.NewMemory()
	store, err := New().WithConfig(cfg).WithTokenStore(tokens).WithHTTPClient(srv.Client()).Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer store.Close()

	first := make(chan error, 1)
	go func() { first <- store.Login(context.Background(), "first") }()
	<-entered

	if err := store.Login(context.Background(), "second"); err != nil {
		t.Fatalf("second login failed: %v", err)
	}
	close(release)
	if err := <-first; err == nil {
		t.Fatal("expected first login to fail")
	}

	if !store.IsLoggedIn() {
		t.Fatal("rollback of a stale login must not undo the newer one")
	}
	if tok, _ := tokens.Get(context.Background()); tok != "second" {
		t.Fatalf("expected newer token kept, got %q", tok)
	}
}

func TestConcurrentFetchesShareOneRequest(t *testing.T) {
	g := newGatedAPI(t)
	store := newGatedStore(t, g, tokenstore.NewMemoryWithToken("abc123"), nil)

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := store.FetchUserVotesAndRatings(context.Background())
			results <- err
		}()
	}

	waitEntered(t, g)
	time.Sleep(200 * time.Millisecond)
	close(g.release)
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Fatalf("unexpected fetch error: %v", err)
		}
	}
	if got := g.hits.Load(); got != 1 {
		t.Fatalf("expected one shared request, got %d", got)
	}
	if got := store.MetricsSnapshot().Counters[MetricFetchSuccess]; got != n {
		t.Fatalf("expected %d fetch successes, got %d", n, got)
	}
}

func TestCanceledCallerDoesNotFailSharedFetch(t *testing.T) {
	g := newGatedAPI(t)
	store := newGatedStore(t, g, tokenstore.NewMemoryWithToken("abc123"), nil)

	ctx1, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	first := make(chan error, 1)
	go func() {
		_, err := store.FetchUserVotesAndRatings(ctx1)
		first <- err
	}()
	waitEntered(t, g)

	second := make(chan error, 1)
	go func() {
		_, err := store.FetchUserVotesAndRatings(context.Background())
		second <- err
	}()
	time.Sleep(200 * time.Millisecond)

	cancel1()
	select {
	case err := <-first:
		if !errors.Is(err, ErrNetwork) || !errors.Is(err, context.Canceled) {
			t.Fatalf("expected canceled network error for first caller, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("canceled caller kept waiting on the shared request")
	}

	select {
	case err := <-second:
		t.Fatalf("second caller returned before the api answered: %v", err)
	default:
	}

	close(g.release)
	select {
	case err := <-second:
		if err != nil {
			t.Fatalf("second caller must not inherit the cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never completed")
	}

	if got := g.hits.Load(); got != 1 {
		t.Fatalf("expected one shared request, got %d", got)
	}
	if got := len(store.Snapshot().ResultVotes); got != 1 {
		t.Fatalf("expected committed snapshot, got %d result votes", got)
	}
}

func TestCanceledContextSkipsSharedFetch(t *testing.T) {
	g := newGatedAPI(t)
	store := newGatedStore(t, g, tokenstore.NewMemoryWithToken("abc123"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.FetchUserVotesAndRatings(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := g.hits.Load(); got != 0 {
		t.Fatalf("expected no request for a canceled context, got %d", got)
	}
}

func TestConcurrentFetchesWithoutCoalescing(t *testing.T) {
	g := newGatedAPI(t)
	close(g.release)
	store := newGatedStore(t, g, tokenstore.NewMemoryWithToken("abc123"), func(c *Config) {
		c.Session.CoalesceFetches = false
	})

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := store.FetchUserVotesAndRatings(context.Background()); err != nil {
				t.Errorf("fetch failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := g.hits.Load(); got != n {
		t.Fatalf("expected %d requests, got %d", n, got)
	}
}

func TestConcurrentOperationsKeepFlagConsistent(t *testing.T) {
	api := newFakeAPI(t)
	tokens := tokenstore.NewMemory()
	store := newTestStore(t, api, tokens, nil)

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			ctx := context.Background()
			for j := 0; j < 20; j++ {
				switch (i + j) % 4 {
				case 0:
					_ = store.Login(ctx, "abc123")
				case 1:
					_ = store.Logout(ctx)
				case 2:
					_ = store.CheckLoginStatus(ctx)
				default:
					_, _ = store.FetchUserVotesAndRatings(ctx)
				}
			}
		}(i)
	}
	wg.Wait()

	if err := store.CheckLoginStatus(context.Background()); err != nil {
		t.Fatalf("final check failed: %v", err)
	}
	has, err := tokenstore.Has(context.Background(), tokens)
	if err != nil {
		t.Fatal(err)
	}
	if has != store.IsLoggedIn() {
		t.Fatalf("flag %v disagrees with durable token presence %v", store.IsLoggedIn(), has)
	}
}
