package samk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t testing.TB, url string, timeout time.Duration) *Client {
	client, err := NewClient(ClientOptions{
		Url:                     url,
		Timeout:                 timeout,
		DisableCloudflareBypass: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.NotEmpty(t, r.Header.Get("user-agent"))
		w.Header().Set("content-type", "text/html; charset=utf-8")
		w.Write([]byte(page(chart("Bazén", "42"))))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second*5)
	html, err := client.Fetch(context.Background())
	require.NoError(t, err)

	value, ok := Extract(html)
	require.True(t, ok)
	require.Equal(t, 42, value)
}

func TestFetchStatus(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second*5)
	_, err := client.Fetch(context.Background())

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	require.Equal(t, FetchStatus, ferr.Kind)
	require.Equal(t, http.StatusServiceUnavailable, ferr.Status)
	require.False(t, errors.Is(err, ErrFetchCancelled))
	// no retries within a fetch
	require.Equal(t, int32(1), requests.Load())
}

func TestFetchTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := newTestClient(t, url, time.Second*5)
	_, err := client.Fetch(context.Background())

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	require.Equal(t, FetchTransport, ferr.Kind)
	require.False(t, errors.Is(err, ErrFetchCancelled))
}

func TestFetchTimeoutIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Millisecond*100)
	_, err := client.Fetch(context.Background())

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	require.Equal(t, FetchTransport, ferr.Kind)
	require.False(t, errors.Is(err, ErrFetchCancelled))
}

func TestFetchCancelled(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	begin := time.Now()
	_, err := client.Fetch(ctx)
	require.ErrorIs(t, err, ErrFetchCancelled)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(begin), time.Second*5)
}

func TestClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second*5)
	_, err := client.Fetch(context.Background())
	require.NoError(t, err)

	client.Close()
	client.Close()

	_, err = client.Fetch(context.Background())
	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	require.Equal(t, FetchTransport, ferr.Kind)
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(ClientOptions{})
	require.NoError(t, err)
	defer client.Close()
	require.Equal(t, DefaultUrl, client.Url())

	_, err = NewClient(ClientOptions{Url: "ftp://samk.cz"})
	require.Error(t, err)
}
