package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jonzo97/mchp-fpga-mcp/internal/core/domain"
)

type ManifestRepository struct {
	db *sql.DB
}

func NewManifestRepository(db *sql.DB) *ManifestRepository {
	return &ManifestRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ManifestRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across scanner/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS manifest_entries (
	checksum TEXT PRIMARY KEY,
	doc_id TEXT NOT NULL,
	version TEXT NOT NULL,
	source_url TEXT,
	size_bytes BIGINT NOT NULL,
	page_count INTEGER,
	status TEXT NOT NULL,
	notes TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_manifest_entries_status ON manifest_entries(status);
CREATE INDEX IF NOT EXISTS idx_manifest_entries_doc_id ON manifest_entries(doc_id, version);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Upsert is a single atomic statement keyed by checksum. On conflict it
// refreshes the mutable fields but leaves status and created_at alone, so
// restaging byte-identical content never regresses the lifecycle. A NULL
// incoming page count does not erase a known one.
func (r *ManifestRepository) Upsert(ctx context.Context, entry domain.ManifestEntry) (domain.ManifestEntry, error) {
	now := time.Now().UTC()

	row := r.db.QueryRowContext(ctx, `
INSERT INTO manifest_entries (
	checksum, doc_id, version, source_url, size_bytes, page_count, status, notes, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
ON CONFLICT (checksum) DO UPDATE SET
	doc_id = EXCLUDED.doc_id,
	version = EXCLUDED.version,
	source_url = EXCLUDED.source_url,
	size_bytes = EXCLUDED.size_bytes,
	page_count = COALESCE(EXCLUDED.page_count, manifest_entries.page_count),
	notes = COALESCE(NULLIF(EXCLUDED.notes, ''), manifest_entries.notes),
	updated_at = EXCLUDED.updated_at
RETURNING checksum, doc_id, version, source_url, size_bytes, page_count, status, notes, created_at, updated_at
`,
		entry.Checksum, entry.DocID, entry.Version, nullString(entry.SourceURL),
		entry.SizeBytes, nullInt(entry.PageCount), string(domain.StatusStaged), nullString(entry.Notes), now,
	)

	committed, err := scanEntry(row)
	if err != nil {
		return domain.ManifestEntry{}, fmt.Errorf("upsert manifest entry: %w", err)
	}
	return committed, nil
}

// UpdateStatus is a read-modify-write executed as one UPDATE; postgres row
// locking serializes racing workers. Empty notes keep the previous value.
func (r *ManifestRepository) UpdateStatus(ctx context.Context, checksum string, status domain.ManifestStatus, notes string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE manifest_entries
SET status = $2, notes = COALESCE(NULLIF($3, ''), notes), updated_at = $4
WHERE checksum = $1
`, checksum, string(status), notes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update manifest status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update manifest status rows: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrManifestNotFound, "update manifest status", fmt.Errorf("checksum %s", checksum))
	}
	return nil
}

func (r *ManifestRepository) GetByChecksum(ctx context.Context, checksum string) (*domain.ManifestEntry, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT checksum, doc_id, version, source_url, size_bytes, page_count, status, notes, created_at, updated_at
FROM manifest_entries
WHERE checksum = $1
`, checksum)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrManifestNotFound, "get manifest entry", fmt.Errorf("checksum %s", checksum))
		}
		return nil, fmt.Errorf("scan manifest entry: %w", err)
	}
	return &entry, nil
}

// ListByStatus queries fresh on every call; each row reflects committed
// state at read time rather than a cached snapshot.
func (r *ManifestRepository) ListByStatus(ctx context.Context, status domain.ManifestStatus) ([]domain.ManifestEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT checksum, doc_id, version, source_url, size_bytes, page_count, status, notes, created_at, updated_at
FROM manifest_entries
WHERE status = $1
ORDER BY created_at
`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list manifest entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.ManifestEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan manifest entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate manifest entries: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (domain.ManifestEntry, error) {
	var entry domain.ManifestEntry
	var sourceURL, notes sql.NullString
	var pageCount sql.NullInt64
	var status string

	err := row.Scan(
		&entry.Checksum, &entry.DocID, &entry.Version, &sourceURL,
		&entry.SizeBytes, &pageCount, &status, &notes,
		&entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return domain.ManifestEntry{}, err
	}

	entry.SourceURL = sourceURL.String
	entry.Notes = notes.String
	entry.Status = domain.ManifestStatus(status)
	if pageCount.Valid {
		n := int(pageCount.Int64)
		entry.PageCount = &n
	}
	return entry, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
