package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"plantshop/internal"
	"plantshop/internal/config"
)

// Client reads the remote plant catalog API.
type Client struct {
	baseURL     string
	maxAttempts int
	httpClient  *http.Client
	limiter     *RateLimiter
	sleep       func(ctx context.Context, d time.Duration) error
}

// envelope covers every response shape the API uses: lists come under
// "plants" or "data", details under "plant" or "data".
type envelope struct {
	Status     *bool                `json:"status"`
	Message    string               `json:"message"`
	Plants     []internal.RawRecord `json:"plants"`
	Plant      internal.RawRecord   `json:"plant"`
	Categories []internal.RawRecord `json:"categories"`
	Data       json.RawMessage      `json:"data"`
}

func NewClient(cfg config.Config) *Client {
	attempts := cfg.CatalogMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &Client{
		baseURL:     cfg.CatalogAPIBaseURL,
		maxAttempts: attempts,
		httpClient:  &http.Client{Timeout: cfg.CatalogTimeout},
		limiter:     NewRateLimiter(cfg.CatalogRateLimitRPS),
		sleep:       sleepContext,
	}
}

func (c *Client) FetchAllItems(ctx context.Context) ([]internal.RawRecord, error) {
	env, err := c.fetch(ctx, "plants")
	if err != nil {
		return nil, err
	}
	return env.list()
}

func (c *Client) FetchItemsByCategory(ctx context.Context, categoryID string) ([]internal.RawRecord, error) {
	if internal.IsAllCategory(categoryID) {
		return c.FetchAllItems(ctx)
	}
	env, err := c.fetch(ctx, "category/"+url.PathEscape(categoryID))
	if err != nil {
		return nil, err
	}
	return env.list()
}

func (c *Client) FetchCategories(ctx context.Context) ([]internal.Category, error) {
	env, err := c.fetch(ctx, "categories")
	if err != nil {
		return nil, err
	}
	out := make([]internal.Category, 0, len(env.Categories))
	for _, raw := range env.Categories {
		if cat, ok := toCategory(raw); ok {
			out = append(out, cat)
		}
	}
	return out, nil
}

func (c *Client) FetchItemDetail(ctx context.Context, id string) (internal.RawRecord, error) {
	env, err := c.fetch(ctx, "plant/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	if env.Plant != nil {
		return env.Plant, nil
	}
	var record internal.RawRecord
	if len(env.Data) > 0 && decodeJSON(env.Data, &record) == nil && record != nil {
		return record, nil
	}
	return nil, fmt.Errorf("plant %s: %w", id, ErrNotFound)
}

func (e envelope) list() ([]internal.RawRecord, error) {
	if e.Plants != nil {
		return e.Plants, nil
	}
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return []internal.RawRecord{}, nil
	}
	var records []internal.RawRecord
	if err := decodeJSON(e.Data, &records); err != nil {
		return nil, fmt.Errorf("decode plant list: %w", err)
	}
	return records, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) (envelope, error) {
	u, err := url.Parse(strings.TrimRight(c.baseURL, "/") + "/" + endpoint)
	if err != nil {
		return envelope{}, err
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(250*(1<<(attempt-2))+rand.Intn(100)) * time.Millisecond
			if err := c.sleep(ctx, backoff); err != nil {
				return envelope{}, err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return envelope{}, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return envelope{}, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return envelope{}, ctx.Err()
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) {
				lastErr = fmt.Errorf("catalog status %d", resp.StatusCode)
				continue
			}
			if resp.StatusCode == http.StatusNotFound {
				return envelope{}, fmt.Errorf("%s: %w", endpoint, ErrNotFound)
			}
			return envelope{}, fmt.Errorf("catalog api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		var env envelope
		if err := decodeJSON(body, &env); err != nil {
			return envelope{}, fmt.Errorf("decode %s: %w", endpoint, err)
		}
		if env.Status != nil && !*env.Status {
			return envelope{}, fmt.Errorf("catalog api unsuccessful: %s", env.Message)
		}
		return env, nil
	}

	if lastErr == nil {
		lastErr = errors.New("catalog request failed")
	}
	return envelope{}, lastErr
}

// decodeJSON keeps numbers as json.Number so large ids survive.
func decodeJSON(blob []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.UseNumber()
	return dec.Decode(v)
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
