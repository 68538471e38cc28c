// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"reserve_catalog/internal/domain"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

type ReserveQueries interface {
	ListReserves(ctx context.Context, f domain.ReserveFilter) ([]domain.ReserveView, error)
	GetReserve(ctx context.Context, id string) (domain.ReserveView, error)
	GetReserveImage(ctx context.Context, id string) (string, error)
	GetUniqueRegions(ctx context.Context) ([]string, error)
	GetReserveReviews(ctx context.Context, reserveID string, pg domain.PageQuery) ([]domain.Review, error)
}

type ReserveCommands interface {
	CreateReserve(ctx context.Context, in domain.ReserveInput) (string, error)
	GenerateUploadURL(ctx context.Context) (domain.UploadTarget, error)
	UploadReserveImage(ctx context.Context, reserveID, blobRef string) (string, error)
	CreateReview(ctx context.Context, reserveID string, in domain.ReviewInput) (string, error)
}

type Handlers struct {
	Q ReserveQueries
	C ReserveCommands
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type idResponse struct {
	ID string `json:"id"`
}

type imageRequest struct {
	BlobRef string `json:"blobRef"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/regions", h.listRegions)
	s.mux.Post("/v1/uploads", h.createUpload)

	s.mux.Route("/v1/reserves", func(r chi.Router) {
		r.Get("/", h.listReserves)
		r.Post("/", h.createReserve)
		r.Get("/{id}", h.getReserve)
		r.Get("/{id}/image", h.getReserveImage)
		r.Put("/{id}/image", h.putReserveImage)
		r.Get("/{id}/reviews", h.listReviews)
		r.Post("/{id}/reviews", h.createReview)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeProblem(w, http.StatusBadRequest, "Invalid Request", ve.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrAccessDenied):
		writeProblem(w, http.StatusUnauthorized, "Access Denied", "sign in to view reserves")
	case errors.Is(err, domain.ErrUnauthorized):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "sign in to make changes")
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusGatewayTimeout, "Timeout", "")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON writes v with status. With etag set, a matching If-None-Match
// short-circuits to 304.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any, etag bool) {
	tag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	if etag && tag != "" {
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == tag {
			w.Header().Set("ETag", tag) // include ETag on 304
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", tag)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return false
	}
	return true
}

func (h *Handlers) listRegions(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.GetUniqueRegions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []string{}
	}
	writeJSON(w, r, http.StatusOK, out, true)
}

func (h *Handlers) listReserves(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sortBy, err := domain.ParseSort(q.Get("sort"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Q.ListReserves(r.Context(), domain.ReserveFilter{
		Query:  q.Get("q"),
		Region: q.Get("region"),
		Sort:   sortBy,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []domain.ReserveView{}
	}
	writeJSON(w, r, http.StatusOK, out, false)
}

func (h *Handlers) createReserve(w http.ResponseWriter, r *http.Request) {
	var in domain.ReserveInput
	if !decodeBody(w, r, &in) {
		return
	}
	id, err := h.C.CreateReserve(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/reserves/"+id)
	writeJSON(w, r, http.StatusCreated, idResponse{ID: id}, false)
}

func (h *Handlers) getReserve(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.GetReserve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	// no ETag: image URLs are presigned per request, so the body never repeats
	writeJSON(w, r, http.StatusOK, out, false)
}

func (h *Handlers) getReserveImage(w http.ResponseWriter, r *http.Request) {
	url, err := h.Q.GetReserveImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"url": url}, false)
}

func (h *Handlers) putReserveImage(w http.ResponseWriter, r *http.Request) {
	var in imageRequest
	if !decodeBody(w, r, &in) {
		return
	}
	ref, err := h.C.UploadReserveImage(r.Context(), chi.URLParam(r, "id"), in.BlobRef)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, imageRequest{BlobRef: ref}, false)
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	limit := domain.DefaultReviewLimit
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > domain.MaxReviewLimit {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}

	// Newest first; aligns with DB index on (reserve_id, created_at, id)
	out, err := h.Q.GetReserveReviews(r.Context(), chi.URLParam(r, "id"), domain.PageQuery{Limit: limit})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []domain.Review{}
	}
	writeJSON(w, r, http.StatusOK, out, true)
}

func (h *Handlers) createReview(w http.ResponseWriter, r *http.Request) {
	var in domain.ReviewInput
	if !decodeBody(w, r, &in) {
		return
	}
	id, err := h.C.CreateReview(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, idResponse{ID: id}, false)
}

func (h *Handlers) createUpload(w http.ResponseWriter, r *http.Request) {
	t, err := h.C.GenerateUploadURL(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, t, false)
}
