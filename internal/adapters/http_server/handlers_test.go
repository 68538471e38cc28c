package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reserve_catalog/internal/domain"
)

type fakeVerifier struct{}

func (fakeVerifier) Verify(token string) (domain.Identity, error) {
	if token != "good" {
		return domain.Identity{}, errors.New("bad token")
	}
	return domain.Identity{Subject: "u-1", Name: "Ada"}, nil
}

type fakeService struct {
	reserves    map[string]domain.ReserveView
	regions     []string
	reviews     []domain.Review
	gotFilter   domain.ReserveFilter
	gotLimit    int
	gotReserve  domain.ReserveInput
	gotReview   domain.ReviewInput
	gotBlobRef  string
	createErr   error
	reviewsCall int
}

func authed(ctx context.Context) bool {
	_, ok := domain.IdentityFromContext(ctx)
	return ok
}

func (f *fakeService) ListReserves(ctx context.Context, flt domain.ReserveFilter) ([]domain.ReserveView, error) {
	if !authed(ctx) {
		return nil, domain.ErrAccessDenied
	}
	f.gotFilter = flt
	var out []domain.ReserveView
	for _, v := range f.reserves {
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeService) GetReserve(ctx context.Context, id string) (domain.ReserveView, error) {
	if !authed(ctx) {
		return domain.ReserveView{}, domain.ErrAccessDenied
	}
	v, ok := f.reserves[id]
	if !ok {
		return domain.ReserveView{}, domain.ErrNotFound
	}
	return v, nil
}

func (f *fakeService) GetReserveImage(ctx context.Context, id string) (string, error) {
	v, err := f.GetReserve(ctx, id)
	if err != nil {
		return "", err
	}
	if v.ImageURL == nil {
		return "", domain.ErrNotFound
	}
	return *v.ImageURL, nil
}

func (f *fakeService) GetUniqueRegions(context.Context) ([]string, error) { return f.regions, nil }

func (f *fakeService) GetReserveReviews(ctx context.Context, id string, pg domain.PageQuery) ([]domain.Review, error) {
	if !authed(ctx) {
		return nil, domain.ErrAccessDenied
	}
	f.reviewsCall++
	f.gotLimit = pg.Limit
	return f.reviews, nil
}

func (f *fakeService) CreateReserve(ctx context.Context, in domain.ReserveInput) (string, error) {
	if !authed(ctx) {
		return "", domain.ErrUnauthorized
	}
	if f.createErr != nil {
		return "", f.createErr
	}
	f.gotReserve = in
	return "r-new", nil
}

func (f *fakeService) GenerateUploadURL(ctx context.Context) (domain.UploadTarget, error) {
	if !authed(ctx) {
		return domain.UploadTarget{}, domain.ErrUnauthorized
	}
	return domain.UploadTarget{URL: "https://blobs.test/put", Method: http.MethodPut, BlobRef: "blob-1"}, nil
}

func (f *fakeService) UploadReserveImage(ctx context.Context, id, ref string) (string, error) {
	if !authed(ctx) {
		return "", domain.ErrUnauthorized
	}
	if _, ok := f.reserves[id]; !ok {
		return "", domain.ErrNotFound
	}
	f.gotBlobRef = ref
	return ref, nil
}

func (f *fakeService) CreateReview(ctx context.Context, id string, in domain.ReviewInput) (string, error) {
	if !authed(ctx) {
		return "", domain.ErrUnauthorized
	}
	if err := in.Validate(); err != nil {
		return "", err
	}
	f.gotReview = in
	return "rv-new", nil
}

func newTestServer(f *fakeService) http.Handler {
	s := New(fakeVerifier{}, time.Second)
	s.MountHandlers(&Handlers{Q: f, C: f})
	return s.Mux()
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) problem {
	t.Helper()
	var p problem
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	return p
}

func sample() *fakeService {
	img := "https://blobs.test/main"
	return &fakeService{
		reserves: map[string]domain.ReserveView{
			"r-1": {ID: "r-1", Name: "Kronotsky", Region: "Kamchatka", ImageURL: &img},
			"r-2": {ID: "r-2", Name: "Baikal", Region: "Siberia"},
		},
		regions: []string{"Kamchatka", "Siberia"},
		reviews: []domain.Review{{ID: "rv-1", ReserveID: "r-1", Rating: 5, Text: "wow"}},
	}
}

func TestRegions_Public(t *testing.T) {
	rec := do(t, newTestServer(sample()), http.MethodGet, "/v1/regions", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var got []string
	_ = json.NewDecoder(rec.Body).Decode(&got)
	if len(got) != 2 || got[0] != "Kamchatka" {
		t.Fatalf("unexpected regions: %v", got)
	}
}

func TestListReserves_RequiresIdentity(t *testing.T) {
	rec := do(t, newTestServer(sample()), http.MethodGet, "/v1/reserves", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", rec.Code)
	}
	if p := decodeProblem(t, rec); p.Title != "Access Denied" {
		t.Fatalf("title %q", p.Title)
	}
}

func TestInvalidToken_Rejected(t *testing.T) {
	rec := do(t, newTestServer(sample()), http.MethodGet, "/v1/regions", "forged", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestListReserves_PassesFilter(t *testing.T) {
	f := sample()
	rec := do(t, newTestServer(f), http.MethodGet, "/v1/reserves?q=kro&region=Kamchatka&sort=dateAdded", "good", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	want := domain.ReserveFilter{Query: "kro", Region: "Kamchatka", Sort: domain.SortByDateAdded}
	if f.gotFilter != want {
		t.Fatalf("filter %+v", f.gotFilter)
	}
}

func TestListReserves_UnknownSort(t *testing.T) {
	rec := do(t, newTestServer(sample()), http.MethodGet, "/v1/reserves?sort=rating", "good", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestGetReserve_NoETag(t *testing.T) {
	rec := do(t, newTestServer(sample()), http.MethodGet, "/v1/reserves/r-1", "good", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if etag := rec.Header().Get("ETag"); etag != "" {
		t.Fatalf("detail carries presigned URLs and must not be tagged, got %q", etag)
	}
}

func TestListReviews_ETagRoundTrip(t *testing.T) {
	h := newTestServer(sample())
	rec := do(t, h, http.MethodGet, "/v1/reserves/r-1/reviews", "good", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/reserves/r-1/reviews", nil)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("If-None-Match", etag)
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rec2.Code)
	}
}

func TestGetReserve_NotFound(t *testing.T) {
	rec := do(t, newTestServer(sample()), http.MethodGet, "/v1/reserves/nope", "good", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type %q", ct)
	}
}

func TestGetReserveImage(t *testing.T) {
	h := newTestServer(sample())
	rec := do(t, h, http.MethodGet, "/v1/reserves/r-1/image", "good", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var got map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&got)
	if got["url"] != "https://blobs.test/main" {
		t.Fatalf("unexpected body %v", got)
	}

	if rec := do(t, h, http.MethodGet, "/v1/reserves/r-2/image", "good", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("reserve without image: status %d", rec.Code)
	}
}

func TestCreateReserve(t *testing.T) {
	f := sample()
	h := newTestServer(f)
	in := domain.ReserveInput{Name: "Altai", Description: "d", Region: "Altai", YearFounded: 1967}

	if rec := do(t, h, http.MethodPost, "/v1/reserves", "", in); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create: status %d", rec.Code)
	} else if p := decodeProblem(t, rec); p.Title != "Unauthorized" {
		t.Fatalf("title %q", p.Title)
	}

	rec := do(t, h, http.MethodPost, "/v1/reserves", "good", in)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/v1/reserves/r-new" {
		t.Fatalf("location %q", loc)
	}
	if f.gotReserve.Name != "Altai" {
		t.Fatalf("input not forwarded: %+v", f.gotReserve)
	}
}

func TestCreateReserve_ValidationAndBadJSON(t *testing.T) {
	f := sample()
	f.createErr = &domain.ValidationError{Field: "yearFounded", Reason: "out of range"}
	h := newTestServer(f)

	rec := do(t, h, http.MethodPost, "/v1/reserves", "good", domain.ReserveInput{Name: "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/v1/reserves", "good", map[string]any{"bogus": 1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: status %d", rec.Code)
	}
}

func TestPutReserveImage(t *testing.T) {
	f := sample()
	rec := do(t, newTestServer(f), http.MethodPut, "/v1/reserves/r-2/image", "good", imageRequest{BlobRef: "blob-9"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if f.gotBlobRef != "blob-9" {
		t.Fatalf("blob ref %q", f.gotBlobRef)
	}
}

func TestUploads(t *testing.T) {
	rec := do(t, newTestServer(sample()), http.MethodPost, "/v1/uploads", "good", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var got domain.UploadTarget
	_ = json.NewDecoder(rec.Body).Decode(&got)
	if got.BlobRef != "blob-1" || got.Method != http.MethodPut {
		t.Fatalf("unexpected target %+v", got)
	}
}

func TestListReviews_Limit(t *testing.T) {
	f := sample()
	h := newTestServer(f)

	if rec := do(t, h, http.MethodGet, "/v1/reserves/r-1/reviews", "good", nil); rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if f.gotLimit != domain.DefaultReviewLimit {
		t.Fatalf("default limit %d", f.gotLimit)
	}

	do(t, h, http.MethodGet, "/v1/reserves/r-1/reviews?limit=100", "good", nil)
	if f.gotLimit != 100 {
		t.Fatalf("limit %d", f.gotLimit)
	}

	for _, bad := range []string{"0", "201", "abc"} {
		rec := do(t, h, http.MethodGet, "/v1/reserves/r-1/reviews?limit="+bad, "good", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("limit=%s: status %d", bad, rec.Code)
		}
	}
	if f.reviewsCall != 2 {
		t.Fatalf("invalid limits must not reach the service, calls=%d", f.reviewsCall)
	}
}

func TestCreateReview(t *testing.T) {
	f := sample()
	h := newTestServer(f)

	rec := do(t, h, http.MethodPost, "/v1/reserves/r-1/reviews", "good", domain.ReviewInput{Rating: 6, Text: "too good"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/v1/reserves/r-1/reviews", "good", domain.ReviewInput{Rating: 4, Text: "lovely"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d", rec.Code)
	}
	var got idResponse
	_ = json.NewDecoder(rec.Body).Decode(&got)
	if got.ID != "rv-new" || f.gotReview.Rating != 4 {
		t.Fatalf("unexpected: %+v %+v", got, f.gotReview)
	}
}
