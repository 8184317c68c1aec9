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

const PEXELS_MAX_PER_PAGE = 80

type PexelsClient struct {
	retryer
	BaseURL string
	APIKey  string
}

func NewPexelsClient(baseURL, apiKey string, timeout time.Duration) *PexelsClient {
	if baseURL == "" {
		baseURL = PEXELS_API_BASE
	}
	return &PexelsClient{
		retryer: newRetryer("PexelsClient", timeout),
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
	}
}

func (p *PexelsClient) Name() string { return PROVIDER_PEXELS }

func (p *PexelsClient) Search(ctx context.Context, query string, perPage int) ([]models.CandidatePhoto, error) {
	if p.APIKey == "" {
		return nil, fmt.Errorf("[PexelsClient] API key is missing: %w", models.ErrConfiguration)
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > PEXELS_MAX_PER_PAGE {
		perPage = PEXELS_MAX_PER_PAGE
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(perPage))
	endpoint := p.BaseURL + "/v1/search?" + params.Encode()

	start := time.Now()
	res, err := p.doWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", p.APIKey)
		req.Header.Set("User-Agent", USER_AGENT)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("[PexelsClient] search %q: %w: %w", query, models.ErrExternalFetch, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("[PexelsClient] failed to read response: %w: %w", models.ErrExternalFetch, err)
	}

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusTooManyRequests:
		slog.Warn("[PexelsClient] Rate limit exceeded", slog.Int("statusCode", res.StatusCode))
		return nil, fmt.Errorf("[PexelsClient] status %d: %w: %w", res.StatusCode, models.ErrExternalFetch, ErrRateLimited)
	default:
		slog.Warn("[PexelsClient] Unexpected response",
			slog.Int("statusCode", res.StatusCode), getPreview(body))
		return nil, fmt.Errorf("[PexelsClient] unexpected status %d: %w", res.StatusCode, models.ErrExternalFetch)
	}

	var response models.PexelsSearchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		slog.Error("[PexelsClient] Failed to parse JSON response",
			slog.String("error", err.Error()), getPreview(body))
		return nil, fmt.Errorf("[PexelsClient] failed to parse response: %w: %w", models.ErrExternalFetch, err)
	}

	photos := make([]models.CandidatePhoto, 0, len(response.Photos))
	for _, photo := range response.Photos {
		photos = append(photos, pexelsToCandidate(photo))
	}

	slog.Info("[PexelsClient] Search complete",
		slog.String("query", query),
		slog.Int("results", len(photos)),
		slog.Duration("elapsed", time.Since(start)))
	return photos, nil
}

func pexelsToCandidate(p models.PexelsPhoto) models.CandidatePhoto {
	return models.CandidatePhoto{
		SourceID:    strconv.FormatInt(p.ID, 10),
		Provider:    PROVIDER_PEXELS,
		Description: p.Alt,
		URLs: models.PhotoURLs{
			Raw:     p.Src.Original,
			Full:    p.Src.Large2x,
			Regular: p.Src.Large,
			Small:   p.Src.Medium,
			Thumb:   p.Src.Tiny,
		},
		Attribution: models.PhotoAttribution{
			Name:       p.Photographer,
			ProfileURL: p.PhotographerURL,
		},
		Width:   p.Width,
		Height:  p.Height,
		HTMLURL: p.URL,
	}
}
