// Package client is a Go SDK for the reserve catalogue HTTP API, including
// the multi-image upload workflow used when creating a reserve.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reserve_catalog/internal/domain"
)

// APIError is a problem response returned by the service. It unwraps to the
// matching domain sentinel so callers can use errors.Is.
type APIError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Title)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusBadRequest:
		return domain.ErrValidation
	case http.StatusUnauthorized:
		if e.Title == "Access Denied" {
			return domain.ErrAccessDenied
		}
		return domain.ErrUnauthorized
	}
	return nil
}

type Client struct {
	base  string
	token string
	hc    *http.Client
}

// New returns a client for base. token is sent as a bearer token when set.
// Calls are never retried; bound them with ctx or hc's timeout.
func New(base, token string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{base: strings.TrimRight(base, "/"), token: token, hc: hc}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(b, apiErr)
		apiErr.Status = resp.StatusCode
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) ListReserves(ctx context.Context, f domain.ReserveFilter) ([]domain.ReserveView, error) {
	q := url.Values{}
	if f.Query != "" {
		q.Set("q", f.Query)
	}
	if f.Region != "" {
		q.Set("region", f.Region)
	}
	if f.Sort != "" {
		q.Set("sort", string(f.Sort))
	}
	path := "/v1/reserves"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []domain.ReserveView
	return out, c.do(ctx, http.MethodGet, path, nil, &out)
}

func (c *Client) GetReserve(ctx context.Context, id string) (domain.ReserveView, error) {
	var out domain.ReserveView
	return out, c.do(ctx, http.MethodGet, "/v1/reserves/"+url.PathEscape(id), nil, &out)
}

func (c *Client) Regions(ctx context.Context) ([]string, error) {
	var out []string
	return out, c.do(ctx, http.MethodGet, "/v1/regions", nil, &out)
}

// Reviews lists a reserve's reviews, newest first. limit <= 0 uses the server default.
func (c *Client) Reviews(ctx context.Context, reserveID string, limit int) ([]domain.Review, error) {
	path := "/v1/reserves/" + url.PathEscape(reserveID) + "/reviews"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []domain.Review
	return out, c.do(ctx, http.MethodGet, path, nil, &out)
}

func (c *Client) CreateReview(ctx context.Context, reserveID string, in domain.ReviewInput) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/reserves/"+url.PathEscape(reserveID)+"/reviews", in, &out)
	return out.ID, err
}

func (c *Client) CreateReserve(ctx context.Context, in domain.ReserveInput) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/reserves", in, &out)
	return out.ID, err
}

func (c *Client) GenerateUploadURL(ctx context.Context) (domain.UploadTarget, error) {
	var out domain.UploadTarget
	return out, c.do(ctx, http.MethodPost, "/v1/uploads", nil, &out)
}

// SetMainImage points a reserve's main image at an already uploaded blob.
func (c *Client) SetMainImage(ctx context.Context, reserveID, blobRef string) (string, error) {
	var out struct {
		BlobRef string `json:"blobRef"`
	}
	err := c.do(ctx, http.MethodPut, "/v1/reserves/"+url.PathEscape(reserveID)+"/image",
		map[string]string{"blobRef": blobRef}, &out)
	return out.BlobRef, err
}
