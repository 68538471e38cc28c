package mysql

const reserveColumns = `
  id, name, description, region, year_founded, flora, fauna,
  image_ref, additional_images, lat, lon, address, directions, created_at`

const insertReserveSQL = `
INSERT INTO reserves
  (id, name, description, region, year_founded, flora, fauna,
   image_ref, additional_images, lat, lon, address, directions, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Imported rows are keyed by (import_source, source_id); created_at and id
// survive re-imports.
const upsertImportedReserveSQL = `
INSERT INTO reserves
  (id, name, description, region, year_founded, flora, fauna,
   image_ref, additional_images, lat, lon, address, directions, created_at,
   import_source, source_id)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name              = VALUES(name),
  description       = VALUES(description),
  region            = VALUES(region),
  year_founded      = VALUES(year_founded),
  flora             = VALUES(flora),
  fauna             = VALUES(fauna),
  image_ref         = COALESCE(VALUES(image_ref), reserves.image_ref),
  additional_images = IF(VALUES(image_ref) IS NULL, reserves.additional_images, VALUES(additional_images)),
  lat               = VALUES(lat),
  lon               = VALUES(lon),
  address           = VALUES(address),
  directions        = VALUES(directions)
`

const importedReserveIDSQL = `SELECT id FROM reserves WHERE import_source = ? AND source_id = ?`

const setReserveImageSQL = `UPDATE reserves SET image_ref = ? WHERE id = ?`

const reserveExistsSQL = `SELECT 1 FROM reserves WHERE id = ?`

// Note: `text` is reserved; keep it quoted everywhere.
const insertReviewSQL = "INSERT INTO reviews\n  (id, reserve_id, user_id, user_name, rating, `text`, created_at)\nVALUES (?, ?, ?, ?, ?, ?, ?)"

const insertMissSQL = `
INSERT INTO import_misses (source, source_id, http_status, reason)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  http_status = VALUES(http_status),
  reason      = VALUES(reason),
  seen_at     = CURRENT_TIMESTAMP
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const getReserveSQL = `SELECT` + reserveColumns + `
FROM reserves
WHERE id = ?`

// Insertion order; regions are de-duplicated in first-seen order by the caller.
const listReservesSQL = `SELECT` + reserveColumns + `
FROM reserves
ORDER BY created_at, id`

const listRegionsSQL = `SELECT region FROM reserves ORDER BY created_at, id`

// Newest first; aligns with idx_reviews_reserve (reserve_id, created_at, id).
const listReviewsSQL = "SELECT id, reserve_id, user_id, user_name, rating, `text`, created_at\n" +
	"FROM reviews\n" +
	"WHERE reserve_id = ?\n" +
	"ORDER BY created_at DESC, id DESC\n" +
	"LIMIT ?"
