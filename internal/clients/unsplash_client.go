package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spacesedan/photobot/internal/models"
)

const UNSPLASH_MAX_PER_PAGE = 30

type UnsplashClient struct {
	retryer
	BaseURL   string
	AccessKey string
}

func NewUnsplashClient(baseURL, accessKey string, timeout time.Duration) *UnsplashClient {
	if baseURL == "" {
		baseURL = UNSPLASH_API_BASE
	}
	return &UnsplashClient{
		retryer:   newRetryer("UnsplashClient", timeout),
		BaseURL:   strings.TrimRight(baseURL, "/"),
		AccessKey: accessKey,
	}
}

func (u *UnsplashClient) Name() string { return PROVIDER_UNSPLASH }

func (u *UnsplashClient) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Client-ID "+u.AccessKey)
	req.Header.Set("Accept-Version", "v1")
	req.Header.Set("User-Agent", USER_AGENT)
}

// Search returns up to perPage photos for the query.
func (u *UnsplashClient) Search(ctx context.Context, query string, perPage int) ([]models.CandidatePhoto, error) {
	if u.AccessKey == "" {
		return nil, fmt.Errorf("[UnsplashClient] access key is missing: %w", models.ErrConfiguration)
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > UNSPLASH_MAX_PER_PAGE {
		perPage = UNSPLASH_MAX_PER_PAGE
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("orientation", "squarish")
	endpoint := u.BaseURL + "/search/photos?" + params.Encode()

	start := time.Now()
	res, err := u.doWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		u.authorize(req)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("[UnsplashClient] search %q: %w: %w", query, models.ErrExternalFetch, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("[UnsplashClient] failed to read response: %w: %w", models.ErrExternalFetch, err)
	}

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusTooManyRequests:
		slog.Warn("[UnsplashClient] Rate limit exceeded", slog.Int("statusCode", res.StatusCode))
		return nil, fmt.Errorf("[UnsplashClient] status %d: %w: %w", res.StatusCode, models.ErrExternalFetch, ErrRateLimited)
	default:
		slog.Warn("[UnsplashClient] Unexpected response",
			slog.Int("statusCode", res.StatusCode), getPreview(body))
		return nil, fmt.Errorf("[UnsplashClient] unexpected status %d: %w", res.StatusCode, models.ErrExternalFetch)
	}

	var response models.UnsplashSearchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		slog.Error("[UnsplashClient] Failed to parse JSON response",
			slog.String("error", err.Error()), getPreview(body))
		return nil, fmt.Errorf("[UnsplashClient] failed to parse response: %w: %w", models.ErrExternalFetch, err)
	}

	photos := make([]models.CandidatePhoto, 0, len(response.Results))
	for _, p := range response.Results {
		photos = append(photos, unsplashToCandidate(p))
	}

	slog.Info("[UnsplashClient] Search complete",
		slog.String("query", query),
		slog.Int("results", len(photos)),
		slog.Duration("elapsed", time.Since(start)))
	return photos, nil
}

// TrackDownload pings the download endpoint Unsplash requires when a photo is used.
func (u *UnsplashClient) TrackDownload(ctx context.Context, photo models.CandidatePhoto) error {
	if photo.Provider != PROVIDER_UNSPLASH || photo.DownloadLocation == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photo.DownloadLocation, nil)
	if err != nil {
		return fmt.Errorf("[UnsplashClient] failed to build download request: %w", err)
	}
	u.authorize(req)

	res, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("[UnsplashClient] download tracking failed: %w", err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("[UnsplashClient] download tracking returned status %d", res.StatusCode)
	}
	slog.Debug("[UnsplashClient] Download tracked", slog.String("photo_id", photo.SourceID))
	return nil
}

func unsplashToCandidate(p models.UnsplashPhoto) models.CandidatePhoto {
	description := p.Description
	if description == "" {
		description = p.AltDescription
	}
	return models.CandidatePhoto{
		SourceID:    p.ID,
		Provider:    PROVIDER_UNSPLASH,
		Description: description,
		URLs: models.PhotoURLs{
			Raw:     p.URLs.Raw,
			Full:    p.URLs.Full,
			Regular: p.URLs.Regular,
			Small:   p.URLs.Small,
			Thumb:   p.URLs.Thumb,
		},
		Attribution: models.PhotoAttribution{
			Name:       p.User.Name,
			Username:   p.User.Username,
			ProfileURL: p.User.Links.HTML,
		},
		Width:            p.Width,
		Height:           p.Height,
		Likes:            p.Likes,
		HTMLURL:          p.Links.HTML,
		DownloadLocation: p.Links.DownloadLocation,
	}
}
