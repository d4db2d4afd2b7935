package igdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fakeIGDB serves the OAuth token endpoint and /games in one mux.
func fakeIGDB(t *testing.T, games string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var tokenCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "client_credentials" {
			t.Errorf("wrong grant_type: %q", r.PostForm.Get("grant_type"))
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-123", "expires_in": 3600})
	})
	mux.HandleFunc("/v4/games", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Client-ID") == "" {
			http.Error(w, "missing client id", http.StatusBadRequest)
			return
		}
		w.Write([]byte(games))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &tokenCalls
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient("cid", "secret",
		WithBaseURLs(srv.URL+"/v4", srv.URL+"/oauth2/token"),
		WithHTTPClient(srv.Client()),
	)
}

func TestFetchBatchTransformsPayload(t *testing.T) {
	payload := `[{
		"id": 1000,
		"name": "Outer Wilds",
		"slug": "outer-wilds",
		"summary": "open world mystery",
		"first_release_date": 1559001600,
		"total_rating": 92.7,
		"total_rating_count": 512,
		"cover": {"url": "//images.igdb.com/igdb/image/upload/t_thumb/co1r7h.jpg"},
		"franchises": [{"name": "Outer Wilds"}, {"name": "Second"}],
		"collections": [{"name": "Mobius Digital"}]
	}]`
	srv, _ := fakeIGDB(t, payload)
	c := newTestClient(srv)

	games, err := c.FetchBatch(context.Background(), []int64{1000})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("expected 1 game, got %d", len(games))
	}
	g := games[0]
	if g.ID != 1000 || g.Name != "Outer Wilds" || g.Slug != "outer-wilds" {
		t.Fatalf("identity fields wrong: %+v", g)
	}
	want := "https://images.igdb.com/igdb/image/upload/t_1080p/co1r7h.jpg"
	if g.CoverURL != want {
		t.Fatalf("cover url not rewritten: %q", g.CoverURL)
	}
	if g.FranchiseName != "Outer Wilds" || g.CollectionName != "Mobius Digital" {
		t.Fatalf("expected first franchise/collection: %+v", g)
	}
	if g.FirstReleaseDate == nil || g.FirstReleaseDate.Unix() != 1559001600 {
		t.Fatalf("release date wrong: %v", g.FirstReleaseDate)
	}
	if g.Rating != 92.7 || g.TotalRatingCount != 512 {
		t.Fatalf("rating fields wrong: %+v", g)
	}
}

func TestFetchBatchOmitsMissingFields(t *testing.T) {
	srv, _ := fakeIGDB(t, `[{"id": 7, "name": "Mystery"}]`)
	c := newTestClient(srv)

	games, err := c.FetchBatch(context.Background(), []int64{7})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	g := games[0]
	if g.CoverURL != "" || g.FranchiseName != "" || g.FirstReleaseDate != nil {
		t.Fatalf("expected zero-value optional fields: %+v", g)
	}
}

func TestTokenCachedAcrossBatches(t *testing.T) {
	srv, tokenCalls := fakeIGDB(t, `[]`)
	c := newTestClient(srv)

	for i := 0; i < 3; i++ {
		if _, err := c.FetchBatch(context.Background(), []int64{1}); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if n := tokenCalls.Load(); n != 1 {
		t.Fatalf("expected 1 token request, got %d", n)
	}
}

func TestFetchBatchEmptyIDs(t *testing.T) {
	srv, tokenCalls := fakeIGDB(t, `[]`)
	c := newTestClient(srv)

	games, err := c.FetchBatch(context.Background(), nil)
	if err != nil || games != nil {
		t.Fatalf("expected nil,nil for empty ids: %v %v", games, err)
	}
	if tokenCalls.Load() != 0 {
		t.Fatalf("empty fetch must not hit the network")
	}
}

func TestFetchBatchSurfacesAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-123", "expires_in": 3600})
	})
	mux.HandleFunc("/v4/games", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"rate limited"}`, http.StatusTooManyRequests)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := newTestClient(srv)
	_, err := c.FetchBatch(context.Background(), []int64{1})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestTokenRefreshAfterExpiry(t *testing.T) {
	srv, tokenCalls := fakeIGDB(t, `[]`)
	c := newTestClient(srv)

	if _, err := c.FetchBatch(context.Background(), []int64{1}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	c.mu.Lock()
	c.tokenExpiry = time.Now().Add(-time.Second)
	c.mu.Unlock()
	if _, err := c.FetchBatch(context.Background(), []int64{1}); err != nil {
		t.Fatalf("fetch after expiry: %v", err)
	}
	if n := tokenCalls.Load(); n != 2 {
		t.Fatalf("expected refresh, got %d token requests", n)
	}
}
