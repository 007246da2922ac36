package musicapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultVideoBaseURL = "https://www.googleapis.com/youtube/v3"

// Video is one search result from the video API.
type Video struct {
	ID      string
	Title   string
	Channel string
}

// VideoClientConfig configures the YouTube search client.
type VideoClientConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// VideoClient searches YouTube for official track videos.
type VideoClient struct {
	cfg        VideoClientConfig
	httpClient *http.Client
}

// NewVideoClient builds a VideoClient.
func NewVideoClient(cfg VideoClientConfig) *VideoClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultVideoBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &VideoClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether an API key is present.
func (c *VideoClient) Configured() bool {
	return c.cfg.APIKey != ""
}

// SearchVideos queries the video API for a track, optionally scoped by album,
// returning up to maxResults candidates in API ranking order.
func (c *VideoClient) SearchVideos(ctx context.Context, artist, track, album string, maxResults int) ([]Video, error) {
	if !c.Configured() {
		return nil, ErrMissingCredentials
	}
	if maxResults <= 0 {
		maxResults = 3
	}

	terms := []string{artist, track}
	if album != "" {
		terms = append(terms, album)
	}
	q := url.Values{
		"part":       {"snippet"},
		"type":       {"video"},
		"q":          {strings.Join(terms, " ")},
		"maxResults": {strconv.Itoa(maxResults)},
		"key":        {c.cfg.APIKey},
	}

	endpoint := fmt.Sprintf("%s/search?%s", c.cfg.BaseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build video search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("video search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("video search request: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode video search: %w", err)
	}

	videos := make([]Video, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, Video{
			ID:      item.ID.VideoID,
			Title:   item.Snippet.Title,
			Channel: item.Snippet.ChannelTitle,
		})
	}
	return videos, nil
}
