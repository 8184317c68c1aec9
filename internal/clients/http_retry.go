package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// retryer re-sends idempotent requests on transport errors and 5xx responses
// with a doubling backoff.
type retryer struct {
	name    string
	client  *http.Client
	retries int
	backoff time.Duration
}

func newRetryer(name string, timeout time.Duration) retryer {
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	return retryer{
		name:    name,
		client:  &http.Client{Timeout: timeout},
		retries: MAX_RETRIES,
		backoff: INITIAL_BACKOFF,
	}
}

func (r retryer) doWithRetry(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	backoff := r.backoff
	retries := r.retries
	if retries < 1 {
		retries = 1
	}

	for attempt := 1; attempt <= retries; attempt++ {
		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := r.client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		lastErr = fmt.Errorf("%s", errMsg(err, resp))

		slog.Warn("["+r.name+"] Request failed, will retry",
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()))

		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > MAX_BACKOFF {
			backoff = MAX_BACKOFF
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", retries, lastErr)
}

func errMsg(err error, resp *http.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return "unknown error"
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}
