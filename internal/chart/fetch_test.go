package chart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchEntriesParsesServedPage(t *testing.T) {
	t.Parallel()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(chartBlock(1, "Served Song", "Served Artist")))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{
		BaseURL:   srv.URL,
		UserAgent: "chartpulse-test/1.0",
		Timeout:   2 * time.Second,
	})

	date := time.Date(2024, time.January, 6, 0, 0, 0, 0, time.UTC)
	entries, err := f.FetchEntries(context.Background(), "hot-100", date)
	require.NoError(t, err)
	require.Equal(t, "/charts/hot-100/2024-01-06/", gotPath)
	require.Len(t, entries, 1)
	require.Equal(t, Entry{Rank: 1, Title: "Served Song", Artist: "Served Artist"}, entries[0])
}

func TestFetchEntriesServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{BaseURL: srv.URL, Timeout: 2 * time.Second})
	_, err := f.FetchEntries(context.Background(), "hot-100", time.Now())
	require.Error(t, err)
}

func TestFetchEntriesCanceledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(FetcherConfig{BaseURL: srv.URL, Timeout: 2 * time.Second})
	_, err := f.FetchEntries(ctx, "hot-100", time.Now())
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}
