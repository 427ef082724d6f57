//go:build integration
// +build integration

package test

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/tokenstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	_ "modernc.org/sqlite"
)

type votesAPI struct {
	srv  *httptest.Server
	hits atomic.Int64
}

func newVotesAPI(t *testing.T) *votesAPI {
	t.Helper()
	api := &votesAPI{}
	api.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer abc123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"unknown token"}`)
			return
		}
		_, _ = io.WriteString(w, `{"resultVotes":[1],"warningVotes":[],"resultRatings":[],"warningRatings":[]}`)
	}))
	t.Cleanup(api.srv.Close)
	return api
}

type namedBackend struct {
	name string
	open func(t *testing.T) tokenstore.Store
}

func integrationBackends() []namedBackend {
	return []namedBackend{
		{name: "memory", open: func(t *testing.T) tokenstore.Store { return tokenstore.NewMemory() }},
		{name: "file", open: func(t *testing.T) tokenstore.Store {
			f, err := tokenstore.NewFile(t.TempDir(), "jwt")
			if err != nil {
				t.Fatalf("file store: %v", err)
			}
			return f
		}},
		{name: "redis", open: func(t *testing.T) tokenstore.Store {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })
			return tokenstore.NewRedis(rdb, "gosession", "jwt", 0)
		}},
		{name: "sqlite", open: func(t *testing.T) tokenstore.Store {
			db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "session.db"))
			if err != nil {
				t.Fatalf("sqlite open: %v", err)
			}
			t.Cleanup(func() { _ = db.Close() })
			s, err := tokenstore.NewSQL(db, tokenstore.DialectSQLite, "jwt")
			if err != nil {
				t.Fatalf("sqlite store: %v", err)
			}
			if err := s.EnsureSchema(context.Background()); err != nil {
				t.Fatalf("sqlite schema: %v", err)
			}
			return s
		}},
	}
}

func buildStore(t *testing.T, api *votesAPI, tokens tokenstore.Store) *goSession.Store {
	t.Helper()
	store, err := goSession.New().
		WithAPIBase(api.srv.URL).
		WithTokenStore(tokens).
		WithHTTPClient(api.srv.Client()).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}
