package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/sync/errgroup"

	"reserve_catalog/internal/domain"
)

// uploadWorkers bounds concurrent uploads for one batch.
const uploadWorkers = 4

var ErrUploadRejected = errors.New("upload rejected by blob store")

// Image is one file to upload.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Upload sends data to a presigned target. The bearer token is not sent;
// the target URL carries its own authorization.
func (c *Client) Upload(ctx context.Context, t domain.UploadTarget, img Image) error {
	method := t.Method
	if method == "" {
		method = http.MethodPut
	}
	req, err := http.NewRequestWithContext(ctx, method, t.URL, bytes.NewReader(img.Data))
	if err != nil {
		return err
	}
	for k, vs := range t.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if img.ContentType != "" {
		req.Header.Set("Content-Type", img.ContentType)
	}
	req.ContentLength = int64(len(img.Data))

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrUploadRejected, resp.StatusCode)
	}
	return nil
}

// UploadImage requests a fresh target, uploads img and returns its blob ref.
func (c *Client) UploadImage(ctx context.Context, img Image) (string, error) {
	t, err := c.GenerateUploadURL(ctx)
	if err != nil {
		return "", fmt.Errorf("upload target for %s: %w", img.Name, err)
	}
	if err := c.Upload(ctx, t, img); err != nil {
		return "", fmt.Errorf("upload %s: %w", img.Name, err)
	}
	return t.BlobRef, nil
}

// UploadImages uploads all images concurrently and returns their refs in
// input order. The first failure cancels the remaining uploads and is
// returned; refs already uploaded are abandoned.
func (c *Client) UploadImages(ctx context.Context, imgs []Image) ([]string, error) {
	refs := make([]string, len(imgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadWorkers)
	for i := range imgs {
		i := i
		g.Go(func() error {
			ref, err := c.UploadImage(gctx, imgs[i])
			if err != nil {
				return err
			}
			refs[i] = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

// CreateReserveWithImages uploads the optional main image and the additional
// images, waits for every upload, then creates the reserve with the refs.
// Nothing is created if any upload fails.
func (c *Client) CreateReserveWithImages(ctx context.Context, in domain.ReserveInput, main *Image, extra []Image) (string, error) {
	all := make([]Image, 0, len(extra)+1)
	if main != nil {
		all = append(all, *main)
	}
	all = append(all, extra...)

	refs, err := c.UploadImages(ctx, all)
	if err != nil {
		return "", err
	}
	if main != nil {
		in.ImageRef = &refs[0]
		refs = refs[1:]
	}
	if len(refs) > 0 {
		in.AdditionalImages = append(in.AdditionalImages, refs...)
	}
	return c.CreateReserve(ctx, in)
}

// AttachMainImage uploads img and makes it the reserve's main image.
func (c *Client) AttachMainImage(ctx context.Context, reserveID string, img Image) (string, error) {
	ref, err := c.UploadImage(ctx, img)
	if err != nil {
		return "", err
	}
	return c.SetMainImage(ctx, reserveID, ref)
}
