package app_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"reserve_catalog/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	mu       sync.Mutex
	reserves map[string]domain.Reserve
	order    []string
	reviews  []domain.Review
	imported map[string]string
	misses   []string
}

func newFakeRepo(rs ...domain.Reserve) *fakeRepo {
	f := &fakeRepo{reserves: map[string]domain.Reserve{}, imported: map[string]string{}}
	for _, r := range rs {
		_ = f.InsertReserve(context.Background(), r)
	}
	return f
}

func (f *fakeRepo) InsertReserve(ctx context.Context, r domain.Reserve) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserves[r.ID] = r
	f.order = append(f.order, r.ID)
	return nil
}

func (f *fakeRepo) UpsertImportedReserve(ctx context.Context, source, sourceID string, r domain.Reserve) (string, error) {
	f.mu.Lock()
	key := source + "|" + sourceID
	if id, ok := f.imported[key]; ok {
		r.ID = id
		f.reserves[id] = r
		f.mu.Unlock()
		return id, nil
	}
	f.imported[key] = r.ID
	f.mu.Unlock()
	return r.ID, f.InsertReserve(ctx, r)
}

func (f *fakeRepo) SetReserveImage(ctx context.Context, id, blobRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reserves[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.ImageRef = &blobRef
	f.reserves[id] = r
	return nil
}

func (f *fakeRepo) InsertReview(ctx context.Context, rv domain.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews = append(f.reviews, rv)
	return nil
}

func (f *fakeRepo) LogMiss(ctx context.Context, source, sourceID string, status int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.misses = append(f.misses, fmt.Sprintf("%s:%d", sourceID, status))
	return nil
}

func (f *fakeRepo) GetReserve(ctx context.Context, id string) (domain.Reserve, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reserves[id]
	if !ok {
		return domain.Reserve{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) ListReserves(ctx context.Context) ([]domain.Reserve, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Reserve, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.reserves[id])
	}
	return out, nil
}

func (f *fakeRepo) ListRegions(ctx context.Context) ([]string, error) {
	rs, _ := f.ListReserves(ctx)
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Region)
	}
	return out, nil
}

// ListReviews returns matches in insertion order; the service sorts.
func (f *fakeRepo) ListReviews(ctx context.Context, reserveID string, pg domain.PageQuery) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Review
	for _, rv := range f.reviews {
		if rv.ReserveID == reserveID {
			out = append(out, rv)
		}
	}
	if len(out) > pg.Limit {
		out = out[:pg.Limit]
	}
	return out, nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string]string // ref -> url
	puts    int
}

func newFakeBlobs(refs ...string) *fakeBlobs {
	b := &fakeBlobs{objects: map[string]string{}}
	for _, r := range refs {
		b.objects[r] = "https://blobs.test/" + r
	}
	return b
}

func (b *fakeBlobs) GenerateUploadURL(ctx context.Context) (domain.UploadTarget, error) {
	return domain.UploadTarget{URL: "https://blobs.test/upload/new", Method: "PUT", BlobRef: "new"}, nil
}

func (b *fakeBlobs) ResolveURL(ctx context.Context, ref string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.objects[ref]
	if !ok {
		return "", domain.ErrNotFound
	}
	return u, nil
}

func (b *fakeBlobs) Put(ctx context.Context, r io.Reader, contentType string) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.puts++
	ref := fmt.Sprintf("put-%d", b.puts)
	b.objects[ref] = "https://blobs.test/" + ref
	return ref, nil
}

type fakeCache struct {
	mu    sync.Mutex
	store map[string]any
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.Reserve:
		*d = v.(domain.Reserve)
	case *[]string:
		*d = v.([]string)
	case *[]domain.Review:
		*d = v.([]domain.Review)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

func (c *fakeCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.store))
	for k := range c.store {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func authed() context.Context {
	return domain.WithIdentity(context.Background(), domain.Identity{Subject: "user-1", Name: "Ana"})
}

func ptr[T any](v T) *T { return &v }
