//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/tokenstore"
)

func TestSessionLifecycleAcrossBackends(t *testing.T) {
	for _, b := range integrationBackends() {
		t.Run(b.name, func(t *testing.T) {
			api := newVotesAPI(t)
			tokens := b.open(t)
			store := buildStore(t, api, tokens)
			ctx := context.Background()

			if err := store.CheckLoginStatus(ctx); err != nil {
				t.Fatalf("initial check: %v", err)
			}
			if store.IsLoggedIn() || api.hits.Load() != 0 {
				t.Fatal("empty storage must leave the store logged out without a request")
			}

			if err := store.Login(ctx, "abc123"); err != nil {
				t.Fatalf("login: %v", err)
			}
			if got := store.Snapshot().ResultVotes; len(got) != 1 || got[0].String() != "1" {
				t.Fatalf("expected resultVotes [1], got %v", got)
			}

			// a second store over the same backend restores the session
			restored := buildStore(t, api, tokens)
			if err := restored.CheckLoginStatus(ctx); err != nil {
				t.Fatalf("restore check: %v", err)
			}
			if !restored.IsLoggedIn() || restored.Snapshot().Len() != 1 {
				t.Fatal("expected restored session with snapshot")
			}

			if err := store.Logout(ctx); err != nil {
				t.Fatalf("logout: %v", err)
			}
			if _, err := tokens.Get(ctx); !errors.Is(err, tokenstore.ErrNotFound) {
				t.Fatalf("expected token removed, got %v", err)
			}
			if !store.Snapshot().IsEmpty() {
				t.Fatal("expected empty snapshot after logout")
			}
		})
	}
}

func TestRejectedTokenStaysLoggedInAcrossBackends(t *testing.T) {
	for _, b := range integrationBackends() {
		t.Run(b.name, func(t *testing.T) {
			api := newVotesAPI(t)
			tokens := b.open(t)
			store := buildStore(t, api, tokens)

			err := store.Login(context.Background(), "unknown")
			var apiErr *goSession.APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != 401 {
				t.Fatalf("expected 401 api error, got %v", err)
			}
			if string(apiErr.Body) != `{"message":"unknown token"}` {
				t.Fatalf("expected body carried, got %q", apiErr.Body)
			}
			if !store.IsLoggedIn() {
				t.Fatal("login must stay in place after a rejected fetch")
			}
			if has, _ := tokenstore.Has(context.Background(), tokens); !has {
				t.Fatal("token must stay stored")
			}
		})
	}
}
