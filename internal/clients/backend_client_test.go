package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spacesedan/photobot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePost() models.CreatePostRequest {
	return models.CreatePostRequest{
		Content: "Golden hour over the ocean\n\n#ocean #sunset #beautiful #amazing #instagood",
		Images:  []string{"https://images.unsplash.com/regular"},
		BotMetadata: models.BotMetadata{
			BotUser: models.BotUser{Username: "luna_stone", Name: "Luna Stone", Bio: "Visual storyteller", Avatar: "https://a.example/1.png", BotType: "photographer"},
			Topic:   "ocean",
		},
		PostType:    "photo",
		Mood:        "upbeat",
		TimeContext: models.TimeContext{PostingTime: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), Scheduled: true},
	}
}

func TestBackendCreatePost(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		wantID string
	}{
		{"created with string id", http.StatusCreated, `{"id":"post-1","message":"ok"}`, "post-1"},
		{"ok with numeric id", http.StatusOK, `{"id":17}`, "17"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, BACKEND_CREATE_POST_PATH, r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var got map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				meta := got["bot_metadata"].(map[string]any)
				user := meta["bot_user"].(map[string]any)
				assert.Equal(t, "photographer", user["botType"])
				assert.Equal(t, "ocean", meta["topic"])

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			res, err := NewBackendClient(srv.URL+"/", time.Second).CreatePost(context.Background(), samplePost())
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, res.ID)
		})
	}
}

func TestBackendCreatePostRejected(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"db down"}`))
	}))
	defer srv.Close()

	_, err := NewBackendClient(srv.URL, time.Second).CreatePost(context.Background(), samplePost())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrSubmission)
	assert.Equal(t, int32(1), calls.Load(), "submissions are not retried")
}

func TestBackendCreatePostUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewBackendClient(url, 200*time.Millisecond).CreatePost(context.Background(), samplePost())
	assert.ErrorIs(t, err, models.ErrSubmission)
}

func TestBackendHealth(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, BACKEND_HEALTH_PATH, r.URL.Path)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	client := NewBackendClient(srv.URL, time.Second)
	assert.True(t, client.Health(context.Background()))
	healthy.Store(false)
	assert.False(t, client.Health(context.Background()))
}
