// Package igdb pulls game metadata from the IGDB API into the local catalog.
package igdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gamerack/gamerack/internal/ports"
)

const (
	defaultAPIURL   = "https://api.igdb.com/v4"
	defaultOAuthURL = "https://id.twitch.tv/oauth2/token"

	// BatchSize is the IGDB per-request id limit.
	BatchSize = 500
)

// Client is a minimal IGDB API client authenticated via Twitch app
// credentials.
type Client struct {
	clientID     string
	clientSecret string
	apiURL       string
	oauthURL     string
	httpc        *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type ClientOption func(*Client)

// WithBaseURLs overrides the API and OAuth endpoints (tests).
func WithBaseURLs(api, oauth string) ClientOption {
	return func(c *Client) { c.apiURL, c.oauthURL = api, oauth }
}

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpc = h }
}

func NewClient(clientID, clientSecret string, opts ...ClientOption) *Client {
	c := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		apiURL:       defaultAPIURL,
		oauthURL:     defaultOAuthURL,
		httpc:        &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// igdbGame is the subset of the IGDB game payload the catalog keeps.
type igdbGame struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Slug             string  `json:"slug"`
	Summary          string  `json:"summary"`
	FirstReleaseDate int64   `json:"first_release_date"`
	TotalRating      float64 `json:"total_rating"`
	TotalRatingCount int     `json:"total_rating_count"`
	Cover            struct {
		URL string `json:"url"`
	} `json:"cover"`
	Franchises []struct {
		Name string `json:"name"`
	} `json:"franchises"`
	Collections []struct {
		Name string `json:"name"`
	} `json:"collections"`
}

// FetchBatch pulls up to BatchSize games by id.
func (c *Client) FetchBatch(ctx context.Context, ids []int64) ([]*ports.Game, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > BatchSize {
		ids = ids[:BatchSize]
	}
	tok, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	strIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		strIDs = append(strIDs, strconv.FormatInt(id, 10))
	}
	query := fmt.Sprintf(
		"fields name,slug,summary,cover.url,first_release_date,total_rating,total_rating_count,franchises.name,collections.name;\nwhere id = (%s);\nlimit %d;",
		strings.Join(strIDs, ","), BatchSize,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/games", strings.NewReader(query))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("igdb request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("igdb status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw []igdbGame
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("igdb decode: %w", err)
	}
	out := make([]*ports.Game, 0, len(raw))
	for i := range raw {
		out = append(out, transform(&raw[i]))
	}
	return out, nil
}

// accessToken returns a cached Twitch app token, refreshing when expired.
// Serialized so concurrent batch workers share one refresh.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("oauth request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oauth status %d", resp.StatusCode)
	}
	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("oauth decode: %w", err)
	}
	c.token = body.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn-60) * time.Second)
	return c.token, nil
}

// transform maps the IGDB payload onto the catalog schema: full-size https
// cover URLs, first franchise/collection name only.
func transform(g *igdbGame) *ports.Game {
	out := &ports.Game{
		ID:               g.ID,
		Name:             g.Name,
		Slug:             g.Slug,
		Summary:          g.Summary,
		Rating:           g.TotalRating,
		TotalRatingCount: g.TotalRatingCount,
	}
	if g.FirstReleaseDate > 0 {
		t := time.Unix(g.FirstReleaseDate, 0).UTC()
		out.FirstReleaseDate = &t
	}
	if g.Cover.URL != "" {
		u := strings.Replace(g.Cover.URL, "//images.igdb.com", "https://images.igdb.com", 1)
		out.CoverURL = strings.Replace(u, "t_thumb", "t_1080p", 1)
	}
	if len(g.Franchises) > 0 {
		out.FranchiseName = g.Franchises[0].Name
	}
	if len(g.Collections) > 0 {
		out.CollectionName = g.Collections[0].Name
	}
	return out
}
