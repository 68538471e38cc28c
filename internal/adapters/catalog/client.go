// internal/adapters/catalog/client.go
package catalog

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"reserve_catalog/internal/adapters/observability"
	"reserve_catalog/internal/domain"
)

// maxBody caps any single response, photos included.
const maxBody = 10 << 20

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("catalog base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Public API (tries current endpoints first, falls back to legacy variants) ----

// ListIDs accepts either a bare array or {"items": [...]}, where entries are
// ids or objects carrying an id.
func (c *Client) ListIDs(ctx context.Context) ([]string, error) {
	candidates := []string{
		c.base + "/reserves",
		c.base + "/reserve/list", // legacy
	}
	var raw any
	if err := c.getFirst(ctx, "list", candidates, &raw); err != nil {
		return nil, err
	}
	if obj, ok := raw.(map[string]any); ok {
		raw = obj["items"]
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("catalog: unexpected list payload %T", raw)
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if id := idOf(it); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c *Client) GetReserve(ctx context.Context, id string) (map[string]any, error) {
	candidates := []string{
		fmt.Sprintf("%s/reserves/%s", c.base, url.PathEscape(id)), // preferred
		fmt.Sprintf("%s/reserve/%s", c.base, url.PathEscape(id)),  // legacy
	}
	var out map[string]any
	return out, c.getFirst(ctx, "reserve", candidates, &out)
}

// Download fetches a photo and returns its bytes and content type.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, string, error) {
	body, hdr, err := c.fetch(ctx, "photo", rawURL, "image/*")
	if err != nil {
		return nil, "", err
	}
	ct := hdr.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(body)
	}
	return body, ct, nil
}

func idOf(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any:
		for _, k := range []string{"id", "reserve_id", "code"} {
			if s := idOf(t[k]); s != "" {
				return s
			}
		}
	}
	return ""
}

// ---- Internals ----

var (
	ErrNotFound     = fmt.Errorf("catalog: %w", domain.ErrNotFound)
	ErrUnauthorized = fmt.Errorf("catalog: unauthorized: %w", domain.ErrAccessDenied)
	ErrForbidden    = fmt.Errorf("catalog: forbidden: %w", domain.ErrAccessDenied)
)

func (c *Client) getFirst(ctx context.Context, endpoint string, urls []string, out any) error {
	var last error
	for _, u := range urls {
		body, _, err := c.fetch(ctx, endpoint, u, "application/json")
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				last = err
				continue // try next pattern
			}
			return err // non-404: stop early
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("catalog: decode %s: %w", endpoint, err)
		}
		return nil
	}
	if last != nil {
		return last
	}
	return errors.New("no candidate URL succeeded")
}

// fetch performs a GET with client-side rate limiting and retries, returning
// the body of a 2xx response. Retries on 429 and transient 5xx, honoring
// Retry-After when provided.
// The API key is sent only to the catalogue's own origin.
func (c *Client) fetch(ctx context.Context, endpoint, rawURL, accept string) ([]byte, http.Header, error) {
	withKey := c.key != "" && c.sameOrigin(rawURL)
	var lastErr error
	for i := 0; i < 4; i++ {
		// client-side rate limiting, per attempt
		if err := c.rl.Wait(ctx); err != nil {
			return nil, nil, err
		}

		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, nil, err
		}
		if withKey {
			req.Header.Set("X-API-Key", c.key)
		}
		req.Header.Set("Accept", accept)
		req.Header.Set("User-Agent", "reserve-catalog/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("catalog", endpoint, 0, time.Since(start))
			// network error or context canceled
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			lastErr = err
			// context-aware sleep before retry
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			return nil, nil, lastErr
		}
		observability.ObserveExternal("catalog", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusNonAuthoritativeInfo:
			b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
			resp.Body.Close()
			if err != nil {
				return nil, nil, err
			}
			if len(b) > maxBody {
				return nil, nil, fmt.Errorf("catalog: body exceeds %d bytes", maxBody)
			}
			return b, resp.Header, nil

		case http.StatusNotFound:
			resp.Body.Close()
			return nil, nil, ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return nil, nil, ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return nil, nil, ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			return nil, nil, lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return nil, nil, lastErr
}

func (c *Client) sameOrigin(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	base, err := url.Parse(c.base)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, base.Scheme) && strings.EqualFold(u.Host, base.Host)
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns 200ms, 400ms, 800ms... plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
