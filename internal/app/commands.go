package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"reserve_catalog/internal/domain"
)

type CommandService struct {
	repo  domain.ReserveRepository
	blobs domain.BlobStore
	cache domain.Cache

	// Now and NewID are replaceable in tests.
	Now   func() time.Time
	NewID func() string
}

func NewCommandService(r domain.ReserveRepository, b domain.BlobStore, c domain.Cache) *CommandService {
	return &CommandService{
		repo:  r,
		blobs: b,
		cache: c,
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

// CreateReserve validates and inserts a reserve, returning its id.
// Additional image refs are stored as given; they are not checked against the blob store.
func (s *CommandService) CreateReserve(ctx context.Context, in domain.ReserveInput) (string, error) {
	if _, ok := domain.IdentityFromContext(ctx); !ok {
		return "", domain.ErrUnauthorized
	}
	now := s.Now().UTC()
	if err := in.Validate(now.Year()); err != nil {
		return "", err
	}

	rec := newReserve(s.NewID(), in, now)
	if err := s.repo.InsertReserve(ctx, rec); err != nil {
		return "", fmt.Errorf("insert reserve: %w", err)
	}
	if s.cache != nil {
		s.invalidateRegions(ctx)
	}
	log.Info().Str("reserve", rec.ID).Str("region", rec.Region).Msg("reserve created")
	return rec.ID, nil
}

func (s *CommandService) GenerateUploadURL(ctx context.Context) (domain.UploadTarget, error) {
	if _, ok := domain.IdentityFromContext(ctx); !ok {
		return domain.UploadTarget{}, domain.ErrUnauthorized
	}
	return s.blobs.GenerateUploadURL(ctx)
}

// UploadReserveImage replaces the main image of a reserve with an uploaded blob.
// Both the reserve and the blob must exist.
func (s *CommandService) UploadReserveImage(ctx context.Context, reserveID, blobRef string) (string, error) {
	if _, ok := domain.IdentityFromContext(ctx); !ok {
		return "", domain.ErrUnauthorized
	}
	if strings.TrimSpace(blobRef) == "" {
		return "", &domain.ValidationError{Field: "blobRef", Reason: "must not be empty"}
	}
	if _, err := s.repo.GetReserve(ctx, reserveID); err != nil {
		return "", err
	}
	if _, err := s.blobs.ResolveURL(ctx, blobRef); err != nil {
		return "", fmt.Errorf("blob %s: %w", blobRef, err)
	}
	if err := s.repo.SetReserveImage(ctx, reserveID, blobRef); err != nil {
		return "", err
	}
	if s.cache != nil {
		s.invalidateReserve(ctx, reserveID)
	}
	return blobRef, nil
}

// CreateReview stores a review authored by the calling identity.
func (s *CommandService) CreateReview(ctx context.Context, reserveID string, in domain.ReviewInput) (string, error) {
	who, ok := domain.IdentityFromContext(ctx)
	if !ok {
		return "", domain.ErrUnauthorized
	}
	if err := in.Validate(); err != nil {
		return "", err
	}
	if _, err := s.repo.GetReserve(ctx, reserveID); err != nil {
		return "", err
	}

	name := strings.TrimSpace(who.Name)
	if name == "" {
		name = domain.DefaultAuthorName
	}
	rv := domain.Review{
		ID:         s.NewID(),
		ReserveID:  reserveID,
		AuthorID:   who.Subject,
		AuthorName: name,
		Rating:     in.Rating,
		Text:       in.Text,
		CreatedAt:  s.Now().UTC(),
	}
	if err := s.repo.InsertReview(ctx, rv); err != nil {
		return "", fmt.Errorf("insert review: %w", err)
	}
	if s.cache != nil {
		s.invalidateReviews(ctx, reserveID)
	}
	return rv.ID, nil
}

func newReserve(id string, in domain.ReserveInput, now time.Time) domain.Reserve {
	return domain.Reserve{
		ID:               id,
		Name:             strings.TrimSpace(in.Name),
		Description:      strings.TrimSpace(in.Description),
		Region:           strings.TrimSpace(in.Region),
		YearFounded:      in.YearFounded,
		Flora:            trimAll(in.Flora),
		Fauna:            trimAll(in.Fauna),
		ImageRef:         in.ImageRef,
		AdditionalImages: in.AdditionalImages,
		Location:         in.Location,
		CreatedAt:        now,
	}
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

func (s *CommandService) invalidateReserve(ctx context.Context, id string) {
	_ = s.cache.Del(ctx, reserveKey(id))
}

func (s *CommandService) invalidateRegions(ctx context.Context) {
	_ = s.cache.Del(ctx, regionsKey())
}

func (s *CommandService) invalidateReviews(ctx context.Context, reserveID string) {
	for _, lim := range cachedReviewLimits {
		_ = s.cache.Del(ctx, reviewsKey(reserveID, lim))
	}
}
