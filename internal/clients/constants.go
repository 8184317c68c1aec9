package clients

import (
	"errors"
	"time"
)

const (
	MAX_RETRIES     = 3
	INITIAL_BACKOFF = 1 * time.Second
	MAX_BACKOFF     = 8 * time.Second
	DEFAULT_TIMEOUT = 10 * time.Second
	USER_AGENT      = "photobot-client/1.0 (+https://github.com/spacesedan/photobot)"
)

const (
	UNSPLASH_API_BASE = "https://api.unsplash.com"
	PEXELS_API_BASE   = "https://api.pexels.com"
)

const (
	PROVIDER_UNSPLASH = "unsplash"
	PROVIDER_PEXELS   = "pexels"
)

// ErrRateLimited marks a 403/429 from an image provider.
var ErrRateLimited = errors.New("rate limited")
