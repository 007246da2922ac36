// Package musicapi holds the thin HTTP clients for the external catalog and
// video APIs the backfill pools enrich from.
package musicapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrMissingCredentials indicates the client cannot run because required
// credentials were never configured. Callers treat it as a pre-flight abort,
// not a per-item failure.
var ErrMissingCredentials = errors.New("missing external api credentials")

const (
	defaultCatalogBaseURL = "https://api.spotify.com/v1"
	defaultTokenURL       = "https://accounts.spotify.com/api/token"
)

// Track is one track of an album as reported by the external catalog.
type Track struct {
	ExternalID string
	Title      string
	Position   int
	DurationMs int
}

// AlbumClientConfig configures the external catalog client.
type AlbumClientConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenURL     string
	Timeout      time.Duration
}

// AlbumClient fetches album track lists using client-credentials auth.
type AlbumClient struct {
	cfg        AlbumClientConfig
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewAlbumClient builds an AlbumClient. Missing credentials are reported by
// Configured / at call time, not here, so construction never fails.
func NewAlbumClient(cfg AlbumClientConfig) *AlbumClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultCatalogBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &AlbumClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether client credentials are present.
func (c *AlbumClient) Configured() bool {
	return c.cfg.ClientID != "" && c.cfg.ClientSecret != ""
}

// GetAlbumTracks fetches the track list for one album by its external ID.
func (c *AlbumClient) GetAlbumTracks(ctx context.Context, albumExternalID string) ([]Track, error) {
	if !c.Configured() {
		return nil, ErrMissingCredentials
	}
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/albums/%s/tracks?limit=50", c.cfg.BaseURL, url.PathEscape(albumExternalID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build album tracks request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("album tracks request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("album tracks request: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Items []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			TrackNumber int    `json:"track_number"`
			DurationMs  int    `json:"duration_ms"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode album tracks: %w", err)
	}

	tracks := make([]Track, 0, len(payload.Items))
	for _, item := range payload.Items {
		tracks = append(tracks, Track{
			ExternalID: item.ID,
			Title:      item.Name,
			Position:   item.TrackNumber,
			DurationMs: item.DurationMs,
		})
	}
	return tracks, nil
}

// token returns a cached access token, refreshing it when absent or expired.
func (c *AlbumClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.accessToken = payload.AccessToken
	// Refresh one minute early to avoid using a token at its expiry edge.
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}
