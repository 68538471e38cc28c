package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"reserve_catalog/internal/domain"
)

// resolveWorkers bounds concurrent blob lookups while building a listing.
const resolveWorkers = 8

type QueryService struct {
	repo     domain.ReserveRepository
	blobs    domain.BlobStore
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.ReserveRepository, b domain.BlobStore, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, blobs: b, cache: c, cacheTTL: ttl}
}

// ListReserves returns every reserve with images resolved, narrowed and
// ordered by f. Unresolvable images are left empty instead of failing the listing.
func (s *QueryService) ListReserves(ctx context.Context, f domain.ReserveFilter) ([]domain.ReserveView, error) {
	if _, ok := domain.IdentityFromContext(ctx); !ok {
		return nil, domain.ErrAccessDenied
	}
	rs, err := s.repo.ListReserves(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]domain.ReserveView, len(rs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveWorkers)
	for i := range rs {
		i := i
		g.Go(func() error {
			views[i] = s.resolve(gctx, rs[i])
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return domain.FilterReserves(views, f), nil
}

func (s *QueryService) GetReserve(ctx context.Context, id string) (domain.ReserveView, error) {
	if _, ok := domain.IdentityFromContext(ctx); !ok {
		return domain.ReserveView{}, domain.ErrAccessDenied
	}
	rec, err := s.reserve(ctx, id)
	if err != nil {
		return domain.ReserveView{}, err
	}
	return s.resolve(ctx, rec), nil
}

// GetReserveImage resolves only the main image. Unlike GetReserve a missing
// image is an error here.
func (s *QueryService) GetReserveImage(ctx context.Context, id string) (string, error) {
	if _, ok := domain.IdentityFromContext(ctx); !ok {
		return "", domain.ErrAccessDenied
	}
	rec, err := s.reserve(ctx, id)
	if err != nil {
		return "", err
	}
	if rec.ImageRef == nil {
		return "", fmt.Errorf("reserve %s has no image: %w", id, domain.ErrNotFound)
	}
	return s.blobs.ResolveURL(ctx, *rec.ImageRef)
}

func (s *QueryService) GetUniqueRegions(ctx context.Context) ([]string, error) {
	key := regionsKey()
	var out []string
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	all, err := s.repo.ListRegions(ctx)
	if err != nil {
		return nil, err
	}
	out = domain.UniqueRegions(all)
	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

// GetReserveReviews returns reviews for a reserve, most recent first.
func (s *QueryService) GetReserveReviews(ctx context.Context, reserveID string, pg domain.PageQuery) ([]domain.Review, error) {
	if _, ok := domain.IdentityFromContext(ctx); !ok {
		return nil, domain.ErrAccessDenied
	}
	if pg.Limit <= 0 || pg.Limit > domain.MaxReviewLimit {
		pg.Limit = domain.DefaultReviewLimit
	}

	key := reviewsKey(reserveID, pg.Limit)
	cacheable := isCachedReviewLimit(pg.Limit)
	var out []domain.Review
	if cacheable {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}

	rs, err := s.repo.ListReviews(ctx, reserveID, pg)
	if err != nil {
		return nil, err
	}

	// copy so the cached value never aliases the repo's backing array
	out = make([]domain.Review, len(rs))
	copy(out, rs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if cacheable {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}

// reserve reads the stored record through the cache.
func (s *QueryService) reserve(ctx context.Context, id string) (domain.Reserve, error) {
	key := reserveKey(id)
	var rec domain.Reserve
	if ok, _ := s.cache.Get(ctx, key, &rec); ok {
		return rec, nil
	}
	rec, err := s.repo.GetReserve(ctx, id)
	if err != nil {
		return domain.Reserve{}, err
	}
	_ = s.cache.Set(ctx, key, rec, int(s.cacheTTL.Seconds()))
	return rec, nil
}

func (s *QueryService) resolve(ctx context.Context, r domain.Reserve) domain.ReserveView {
	v := domain.ReserveView{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Region:      r.Region,
		YearFounded: r.YearFounded,
		Flora:       r.Flora,
		Fauna:       r.Fauna,
		Location:    r.Location,
		CreatedAt:   r.CreatedAt,
	}
	if r.ImageRef != nil {
		v.ImageURL = s.resolveOne(ctx, r.ID, *r.ImageRef)
	}
	if len(r.AdditionalImages) > 0 {
		v.AdditionalImageURLs = make([]*string, len(r.AdditionalImages))
		for i, ref := range r.AdditionalImages {
			v.AdditionalImageURLs[i] = s.resolveOne(ctx, r.ID, ref)
		}
	}
	return v
}

func (s *QueryService) resolveOne(ctx context.Context, reserveID, ref string) *string {
	u, err := s.blobs.ResolveURL(ctx, ref)
	if err != nil {
		ev := log.Warn()
		if !errors.Is(err, domain.ErrNotFound) {
			ev = log.Error()
		}
		ev.Err(err).Str("reserve", reserveID).Str("blob", ref).Msg("image resolve failed")
		return nil
	}
	return &u
}
