package cache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
)

// DAO provides row level access to the album_art table.
type DAO struct {
	db *DB
}

// NewDAO creates a new DAO instance.
func NewDAO(db *DB) *DAO {
	return &DAO{db: db}
}

const entryColumns = `id, title, artist, provenance, uri, file_path, mime_type, file_size, checksum, location, tombstone, last_attempt, created_at, updated_at`

func (dao *DAO) conn() (*sql.DB, error) {
	db := dao.db.DB()
	if db == nil {
		return nil, fmt.Errorf("database not open")
	}
	return db, nil
}

// GetEntry retrieves the entry with id, or nil when there is none.
func (dao *DAO) GetEntry(ctx context.Context, id string) (*artwork.Entry, error) {
	db, err := dao.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM album_art WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UpsertEntry inserts or replaces an entry. created_at is preserved.
func (dao *DAO) UpsertEntry(ctx context.Context, e *artwork.Entry) error {
	db, err := dao.conn()
	if err != nil {
		return err
	}

	now := time.Now().Format(time.RFC3339)
	_, err = db.ExecContext(ctx, `
		INSERT INTO album_art (id, title, artist, provenance, uri, file_path, mime_type, file_size, checksum, location, tombstone, last_attempt, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist,
			provenance = excluded.provenance,
			uri = excluded.uri,
			file_path = excluded.file_path,
			mime_type = excluded.mime_type,
			file_size = excluded.file_size,
			checksum = excluded.checksum,
			location = COALESCE(NULLIF(excluded.location, ''), album_art.location),
			tombstone = excluded.tombstone,
			last_attempt = excluded.last_attempt,
			updated_at = excluded.updated_at
	`,
		e.ID, e.Title, e.Artist, string(e.Provenance),
		nullString(e.URI), nullString(e.FilePath), nullString(e.MimeType), e.FileSize, nullString(e.Checksum),
		e.Location, boolInt(e.Tombstone), millis(e.LastAttempt), now, now,
	)
	return err
}

// TouchEntry stamps last_attempt without changing anything else.
func (dao *DAO) TouchEntry(ctx context.Context, id string, at time.Time) error {
	db, err := dao.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `UPDATE album_art SET last_attempt = ? WHERE id = ?`, millis(at), id)
	return err
}

// ExpiredTombstones returns up to limit tombstones last attempted before
// olderThan, oldest first.
func (dao *DAO) ExpiredTombstones(ctx context.Context, olderThan time.Time, limit int) ([]artwork.Entry, error) {
	db, err := dao.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM album_art
		WHERE tombstone = 1 AND last_attempt < ?
		ORDER BY last_attempt ASC
		LIMIT ?
	`, millis(olderThan), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// TombstonesUnder returns the tombstones whose location is below dir, either
// as a plain path or as a file:// URI.
func (dao *DAO) TombstonesUnder(ctx context.Context, dir string) ([]artwork.Entry, error) {
	db, err := dao.conn()
	if err != nil {
		return nil, err
	}

	dir = strings.TrimSuffix(dir, "/")
	plain := likePrefix(dir + "/")
	uri := likePrefix(artwork.FileURI(dir) + "/")

	rows, err := db.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM album_art
		WHERE tombstone = 1 AND (location LIKE ? ESCAPE '\' OR location LIKE ? ESCAPE '\')
	`, plain, uri)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// DeleteEntry removes the entry with id.
func (dao *DAO) DeleteEntry(ctx context.Context, id string) error {
	db, err := dao.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM album_art WHERE id = ?`, id)
	return err
}

// CountChecksum returns how many entries reference a stored file.
func (dao *DAO) CountChecksum(ctx context.Context, checksum string) (int, error) {
	db, err := dao.conn()
	if err != nil {
		return 0, err
	}
	var n int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM album_art WHERE checksum = ?`, checksum).Scan(&n)
	return n, err
}

// CollectStats fills the row counts of Stats.
func (dao *DAO) CollectStats(ctx context.Context) (*Stats, error) {
	db, err := dao.conn()
	if err != nil {
		return nil, err
	}

	stats := &Stats{ByProvenance: make(map[string]int)}
	var last sql.NullInt64
	err = db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN tombstone = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN tombstone = 0 AND file_path IS NULL AND uri IS NOT NULL THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT checksum),
			MAX(last_attempt)
		FROM album_art
	`).Scan(&stats.Entries, &stats.Tombstones, &stats.HotLinks, &stats.Files, &last)
	if err != nil {
		return nil, err
	}
	stats.WithArt = stats.Entries - stats.Tombstones
	if last.Valid && last.Int64 > 0 {
		stats.LastAttempt = time.UnixMilli(last.Int64)
	}

	rows, err := db.QueryContext(ctx, `SELECT provenance, COUNT(*) FROM album_art GROUP BY provenance`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var prov string
		var n int
		if err := rows.Scan(&prov, &n); err != nil {
			return nil, err
		}
		stats.ByProvenance[prov] = n
	}
	return stats, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*artwork.Entry, error) {
	e := &artwork.Entry{}
	var prov string
	var uri, filePath, mimeType, checksum, location sql.NullString
	var fileSize sql.NullInt64
	var tombstone int
	var lastAttempt int64
	var createdAt, updatedAt sql.NullString

	err := s.Scan(
		&e.ID, &e.Title, &e.Artist, &prov, &uri, &filePath, &mimeType, &fileSize,
		&checksum, &location, &tombstone, &lastAttempt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Provenance = artwork.Provenance(prov)
	e.URI = uri.String
	e.FilePath = filePath.String
	e.MimeType = mimeType.String
	e.FileSize = int(fileSize.Int64)
	e.Checksum = checksum.String
	e.Location = location.String
	e.Tombstone = tombstone != 0
	if lastAttempt > 0 {
		e.LastAttempt = time.UnixMilli(lastAttempt)
	}
	if createdAt.Valid {
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt.String)
	}
	if updatedAt.Valid {
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt.String)
	}
	return e, nil
}

func scanEntries(rows *sql.Rows) ([]artwork.Entry, error) {
	var out []artwork.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix builds a LIKE pattern matching strings starting with prefix.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
