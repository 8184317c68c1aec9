package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spacesedan/photobot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unsplashSearchBody = `{
  "total": 1,
  "total_pages": 1,
  "results": [{
    "id": "abc123",
    "description": null,
    "alt_description": "green hills at dawn",
    "width": 4000,
    "height": 3000,
    "likes": 42,
    "urls": {"raw": "https://images.unsplash.com/raw", "full": "https://images.unsplash.com/full", "regular": "https://images.unsplash.com/regular", "small": "https://images.unsplash.com/small", "thumb": "https://images.unsplash.com/thumb"},
    "links": {"html": "https://unsplash.com/photos/abc123", "download": "https://unsplash.com/photos/abc123/download", "download_location": "%s/photos/abc123/download"},
    "user": {"name": "Ada Park", "username": "adapark", "links": {"html": "https://unsplash.com/@adapark"}}
  }]
}`

func fastRetries(r *retryer) {
	r.backoff = time.Millisecond
}

func TestUnsplashSearch(t *testing.T) {
	var downloads atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Client-ID test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "v1", r.Header.Get("Accept-Version"))

		switch r.URL.Path {
		case "/search/photos":
			assert.Equal(t, "nature", r.URL.Query().Get("query"))
			assert.Equal(t, "10", r.URL.Query().Get("per_page"))
			assert.Equal(t, "squarish", r.URL.Query().Get("orientation"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(fmt.Sprintf(unsplashSearchBody, srv.URL)))
		case "/photos/abc123/download":
			downloads.Add(1)
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewUnsplashClient(srv.URL, "test-key", time.Second)
	photos, err := client.Search(context.Background(), "nature", 10)
	require.NoError(t, err)
	require.Len(t, photos, 1)

	photo := photos[0]
	assert.Equal(t, "abc123", photo.SourceID)
	assert.Equal(t, PROVIDER_UNSPLASH, photo.Provider)
	assert.Equal(t, "green hills at dawn", photo.Description)
	assert.Equal(t, "https://images.unsplash.com/regular", photo.PostURL())
	assert.Equal(t, "Ada Park", photo.Attribution.Name)
	assert.Equal(t, "unsplash:abc123", photo.DedupeKey())

	require.NoError(t, client.TrackDownload(context.Background(), photo))
	assert.Equal(t, int32(1), downloads.Load())
}

func TestUnsplashRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Rate Limit Exceeded"))
	}))
	defer srv.Close()

	_, err := NewUnsplashClient(srv.URL, "k", time.Second).Search(context.Background(), "city", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrExternalFetch)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestUnsplashMissingKey(t *testing.T) {
	_, err := NewUnsplashClient("http://unused", "", time.Second).Search(context.Background(), "city", 5)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestPexelsSearchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pexels-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/search", r.URL.Path)
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"page":1,"per_page":15,"total_results":1,"photos":[{
			"id": 2014422, "width": 3024, "height": 3024, "url": "https://www.pexels.com/photo/2014422/",
			"alt": "Brown rock formation", "photographer": "Joey Farina", "photographer_url": "https://www.pexels.com/@joey",
			"src": {"original": "https://images.pexels.com/o.jpeg", "large2x": "https://images.pexels.com/l2.jpeg", "large": "https://images.pexels.com/l.jpeg", "medium": "https://images.pexels.com/m.jpeg", "small": "https://images.pexels.com/s.jpeg", "tiny": "https://images.pexels.com/t.jpeg"}
		}]}`))
	}))
	defer srv.Close()

	client := NewPexelsClient(srv.URL, "pexels-key", time.Second)
	fastRetries(&client.retryer)

	photos, err := client.Search(context.Background(), "mountains", 15)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "2014422", photos[0].SourceID)
	assert.Equal(t, PROVIDER_PEXELS, photos[0].Provider)
	assert.Equal(t, "https://images.pexels.com/l.jpeg", photos[0].PostURL())
	assert.Equal(t, "Joey Farina", photos[0].Attribution.Name)
}

func TestPexelsSearchGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewPexelsClient(srv.URL, "k", time.Second)
	fastRetries(&client.retryer)

	_, err := client.Search(context.Background(), "ocean", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrExternalFetch)
	assert.Equal(t, int32(MAX_RETRIES), calls.Load())
}
