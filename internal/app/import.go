package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"reserve_catalog/internal/domain"
)

// maxMirroredPhotos caps how many catalogue photos are copied per reserve.
const maxMirroredPhotos = 6

type ImportService struct {
	catalog domain.CatalogClient
	repo    domain.ReserveRepository
	blobs   domain.BlobStore
	cache   domain.Cache
	source  string

	Now func() time.Time
}

func NewImportService(c domain.CatalogClient, r domain.ReserveRepository, b domain.BlobStore, cache domain.Cache, source string) *ImportService {
	return &ImportService{catalog: c, repo: r, blobs: b, cache: cache, source: source, Now: time.Now}
}

// ImportReserve copies one catalogue record into the store. Records that are
// missing, forbidden or invalid are logged as misses and skipped.
func (s *ImportService) ImportReserve(ctx context.Context, sourceID string) error {
	p, err := s.catalog.GetReserve(ctx, sourceID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.logMiss(ctx, sourceID, 404, "not found")
			return nil
		case errors.Is(err, domain.ErrAccessDenied):
			s.logMiss(ctx, sourceID, 403, "forbidden")
			return nil
		}
		return err
	}

	in, photos := mapCatalogReserve(p)
	now := s.Now().UTC()
	if err := in.Validate(now.Year()); err != nil {
		s.logMiss(ctx, sourceID, 422, err.Error())
		return nil
	}

	refs := s.mirrorPhotos(ctx, sourceID, photos)
	if len(refs) > 0 {
		in.ImageRef = &refs[0]
		in.AdditionalImages = refs[1:]
	}

	id, err := s.repo.UpsertImportedReserve(ctx, s.source, sourceID, newReserve(uuid.NewString(), in, now))
	if err != nil {
		return fmt.Errorf("upsert reserve %s: %w", sourceID, err)
	}

	if s.cache != nil {
		_ = s.cache.Del(ctx, reserveKey(id))
		_ = s.cache.Del(ctx, regionsKey())
	}
	return nil
}

func (s *ImportService) logMiss(ctx context.Context, sourceID string, status int, reason string) {
	if err := s.repo.LogMiss(ctx, s.source, sourceID, status, reason); err != nil {
		log.Error().Err(err).Str("source_id", sourceID).Int("status", status).Msg("record import miss failed")
	}
}

// mirrorPhotos copies remote photos into the blob store. Failures are
// best-effort: a photo that cannot be copied is skipped.
func (s *ImportService) mirrorPhotos(ctx context.Context, sourceID string, urls []string) []string {
	if s.blobs == nil || len(urls) == 0 {
		return nil
	}
	if len(urls) > maxMirroredPhotos {
		urls = urls[:maxMirroredPhotos]
	}
	refs := make([]string, 0, len(urls))
	for _, u := range urls {
		data, ct, err := s.catalog.Download(ctx, u)
		if err != nil {
			log.Warn().Err(err).Str("source_id", sourceID).Str("url", u).Msg("photo download failed")
			continue
		}
		ref, err := s.blobs.Put(ctx, bytes.NewReader(data), ct)
		if err != nil {
			log.Warn().Err(err).Str("source_id", sourceID).Msg("photo store failed")
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}
