package domain

import (
	"context"
	"io"
)

type ReserveRepository interface {
	// Write paths
	InsertReserve(ctx context.Context, r Reserve) error
	UpsertImportedReserve(ctx context.Context, source, sourceID string, r Reserve) (string, error)
	SetReserveImage(ctx context.Context, id, blobRef string) error
	InsertReview(ctx context.Context, rv Review) error
	LogMiss(ctx context.Context, source, sourceID string, status int, reason string) error

	// Read paths
	GetReserve(ctx context.Context, id string) (Reserve, error)
	ListReserves(ctx context.Context) ([]Reserve, error)
	ListRegions(ctx context.Context) ([]string, error)
	ListReviews(ctx context.Context, reserveID string, pg PageQuery) ([]Review, error)
}

// BlobStore issues upload targets and resolves blob refs to fetchable URLs.
// ResolveURL returns ErrNotFound when the blob does not exist.
type BlobStore interface {
	GenerateUploadURL(ctx context.Context) (UploadTarget, error)
	ResolveURL(ctx context.Context, blobRef string) (string, error)
	Put(ctx context.Context, r io.Reader, contentType string) (string, error)
}

// CatalogClient reads reserve records from an external catalogue.
type CatalogClient interface {
	ListIDs(ctx context.Context) ([]string, error)
	GetReserve(ctx context.Context, id string) (map[string]any, error)
	Download(ctx context.Context, url string) ([]byte, string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type PageQuery struct {
	Limit int
}

const (
	DefaultReviewLimit = 50
	MaxReviewLimit     = 200
)
