package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"reserve_catalog/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valJSONList(xs []string) any {
	if len(xs) == 0 {
		return nil
	}
	b, _ := json.Marshal(xs)
	return string(b)
}

func jsonList(xs []string) string {
	if xs == nil {
		xs = []string{}
	}
	b, _ := json.Marshal(xs)
	return string(b)
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// additionalImagesArg is the position of additional_images in reserveArgs.
const additionalImagesArg = 8

func reserveArgs(r domain.Reserve) []any {
	var lat, lon, addr, dir any
	if l := r.Location; l != nil {
		lat, lon, addr, dir = l.Latitude, l.Longitude, l.Address, l.Directions
	}
	return []any{
		r.ID,
		r.Name,
		r.Description,
		r.Region,
		r.YearFounded,
		jsonList(r.Flora),
		jsonList(r.Fauna),
		valStr(r.ImageRef),
		valJSONList(r.AdditionalImages),
		lat, lon, addr, dir,
		r.CreatedAt.UTC(),
	}
}

func (r *Repo) InsertReserve(ctx context.Context, rec domain.Reserve) error {
	_, err := r.db.ExecContext(ctx, insertReserveSQL, reserveArgs(rec)...)
	return err
}

// UpsertImportedReserve inserts or refreshes a catalogue record and returns
// the id of the stored row, which is stable across re-imports.
//
// Images are replaced as a set: a record carrying a main image overwrites the
// gallery too (possibly with an empty one); a record without images keeps
// what the previous import stored.
func (r *Repo) UpsertImportedReserve(ctx context.Context, source, sourceID string, rec domain.Reserve) (string, error) {
	args := reserveArgs(rec)
	if rec.ImageRef != nil {
		args[additionalImagesArg] = jsonList(rec.AdditionalImages)
	}
	args = append(args, source, sourceID)
	if _, err := r.db.ExecContext(ctx, upsertImportedReserveSQL, args...); err != nil {
		return "", err
	}
	var id string
	if err := r.db.QueryRowContext(ctx, importedReserveIDSQL, source, sourceID).Scan(&id); err != nil {
		return "", fmt.Errorf("read back imported reserve: %w", err)
	}
	return id, nil
}

func (r *Repo) SetReserveImage(ctx context.Context, id, blobRef string) error {
	res, err := r.db.ExecContext(ctx, setReserveImageSQL, blobRef, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	// MySQL reports 0 affected rows when the value is unchanged; tell that
	// apart from a missing row.
	var one int
	if err := r.db.QueryRowContext(ctx, reserveExistsSQL, id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *Repo) InsertReview(ctx context.Context, rv domain.Review) error {
	_, err := r.db.ExecContext(ctx, insertReviewSQL,
		rv.ID,
		rv.ReserveID,
		rv.AuthorID,
		rv.AuthorName,
		rv.Rating,
		rv.Text,
		rv.CreatedAt.UTC(),
	)
	return err
}

func (r *Repo) LogMiss(ctx context.Context, source, sourceID string, status int, reason string) error {
	reason = truncateRunes(reason, maxMissReason)
	_, err := r.db.ExecContext(ctx, insertMissSQL, source, sourceID, status, reason)
	return err
}

// maxMissReason matches import_misses.reason, VARCHAR(512) in characters.
const maxMissReason = 512

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReserve(row rowScanner) (domain.Reserve, error) {
	var rec domain.Reserve
	var floraJSON, faunaJSON, extraJSON []byte
	var imageRef, addr, dir sql.NullString
	var lat, lon sql.NullFloat64

	if err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Description,
		&rec.Region,
		&rec.YearFounded,
		&floraJSON, &faunaJSON,
		&imageRef,
		&extraJSON,
		&lat, &lon,
		&addr, &dir,
		&rec.CreatedAt,
	); err != nil {
		return domain.Reserve{}, err
	}

	_ = json.Unmarshal(floraJSON, &rec.Flora)
	_ = json.Unmarshal(faunaJSON, &rec.Fauna)
	if len(extraJSON) > 0 {
		_ = json.Unmarshal(extraJSON, &rec.AdditionalImages)
	}
	if imageRef.Valid {
		s := imageRef.String
		rec.ImageRef = &s
	}
	if lat.Valid && lon.Valid {
		rec.Location = &domain.Location{
			Latitude:   lat.Float64,
			Longitude:  lon.Float64,
			Address:    addr.String,
			Directions: dir.String,
		}
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func (r *Repo) GetReserve(ctx context.Context, id string) (domain.Reserve, error) {
	rec, err := scanReserve(r.db.QueryRowContext(ctx, getReserveSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reserve{}, domain.ErrNotFound
		}
		return domain.Reserve{}, err
	}
	return rec, nil
}

func (r *Repo) ListReserves(ctx context.Context) ([]domain.Reserve, error) {
	rows, err := r.db.QueryContext(ctx, listReservesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reserve
	for rows.Next() {
		rec, err := scanReserve(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repo) ListRegions(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listRegionsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var region string
		if err := rows.Scan(&region); err != nil {
			return nil, err
		}
		out = append(out, region)
	}
	return out, rows.Err()
}

func (r *Repo) ListReviews(ctx context.Context, reserveID string, pg domain.PageQuery) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, listReviewsSQL, reserveID, pg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.ReserveID,
			&rv.AuthorID,
			&rv.AuthorName,
			&rv.Rating,
			&rv.Text,
			&rv.CreatedAt,
		); err != nil {
			return nil, err
		}
		rv.CreatedAt = rv.CreatedAt.UTC()
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
