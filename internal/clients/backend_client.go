package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spacesedan/photobot/internal/models"
)

const (
	BACKEND_CREATE_POST_PATH = "/api/bot/create-post"
	BACKEND_HEALTH_PATH      = "/health"
)

// BackendClient submits composed posts to the social backend. Submissions are
// never retried here; a failed post is recorded by the caller and dropped.
type BackendClient struct {
	Client  *http.Client
	BaseURL string
}

func NewBackendClient(baseURL string, timeout time.Duration) *BackendClient {
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	slog.Info("[BackendClient] Initializing Client",
		slog.String("base_url", baseURL),
		slog.Duration("timeout", timeout))
	return &BackendClient{
		Client:  &http.Client{Timeout: timeout},
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (b *BackendClient) CreatePost(ctx context.Context, post models.CreatePostRequest) (models.CreatePostResponse, error) {
	var result models.CreatePostResponse

	body, err := json.Marshal(post)
	if err != nil {
		return result, fmt.Errorf("[BackendClient] failed to marshal post: %w: %w", models.ErrSubmission, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+BACKEND_CREATE_POST_PATH, bytes.NewReader(body))
	if err != nil {
		return result, fmt.Errorf("[BackendClient] failed to build request: %w: %w", models.ErrSubmission, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", USER_AGENT)

	start := time.Now()
	res, err := b.Client.Do(req)
	if err != nil {
		return result, fmt.Errorf("[BackendClient] request failed: %w: %w", models.ErrSubmission, err)
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return result, fmt.Errorf("[BackendClient] failed to read response: %w: %w", models.ErrSubmission, err)
	}

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		slog.Warn("[BackendClient] Post rejected",
			slog.Int("statusCode", res.StatusCode),
			getPreview(respBody))
		return result, fmt.Errorf("[BackendClient] unexpected status %d: %w", res.StatusCode, models.ErrSubmission)
	}

	var raw struct {
		ID      any    `json:"id"`
		Message string `json:"message"`
	}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &raw); err != nil {
			slog.Error("[BackendClient] Failed to unmarshal response",
				slog.String("error", err.Error()),
				getPreview(respBody))
			return result, fmt.Errorf("[BackendClient] failed to parse response: %w: %w", models.ErrSubmission, err)
		}
	}
	if raw.ID != nil {
		result.ID = fmt.Sprint(raw.ID)
	}
	result.Message = raw.Message

	slog.Info("[BackendClient] Post created",
		slog.String("post_id", result.ID),
		slog.Duration("elapsed", time.Since(start)))
	return result, nil
}

// Health reports whether GET /health answers 200.
func (b *BackendClient) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL+BACKEND_HEALTH_PATH, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", USER_AGENT)

	res, err := b.Client.Do(req)
	if err != nil {
		slog.Debug("[BackendClient] Health check failed", slog.String("error", err.Error()))
		return false
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	return res.StatusCode == http.StatusOK
}
