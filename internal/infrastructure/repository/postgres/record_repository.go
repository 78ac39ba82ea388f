package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fieldsight/location-engine/internal/core/domain"
)

type RecordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082202)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS maintenance_records (
	id TEXT PRIMARY KEY,
	business_id TEXT,
	location_id TEXT,
	business_name TEXT NOT NULL,
	business_type TEXT NOT NULL,
	lat DOUBLE PRECISION,
	lon DOUBLE PRECISION,
	description TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_maintenance_records_business_id ON maintenance_records(business_id);
CREATE INDEX IF NOT EXISTS idx_maintenance_records_created_at ON maintenance_records(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RecordRepository) Create(ctx context.Context, record *domain.MaintenanceRecord) error {
	var lat, lon sql.NullFloat64
	if record.Coordinate != nil {
		lat = sql.NullFloat64{Float64: record.Coordinate.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: record.Coordinate.Lon, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO maintenance_records (id, business_id, location_id, business_name, business_type, lat, lon, description, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		record.ID, record.BusinessID, record.LocationID, record.BusinessName, string(record.BusinessType),
		lat, lon, record.Description, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert maintenance record: %w", err)
	}
	return nil
}

func (r *RecordRepository) GetByID(ctx context.Context, id string) (*domain.MaintenanceRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, business_id, location_id, business_name, business_type, lat, lon, description, created_at
FROM maintenance_records
WHERE id = $1
`, id)

	record, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRecordNotFound, "get maintenance record", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan maintenance record: %w", err)
	}
	return record, nil
}

func (r *RecordRepository) ListAll(ctx context.Context) ([]domain.MaintenanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, business_id, location_id, business_name, business_type, lat, lon, description, created_at
FROM maintenance_records
ORDER BY created_at DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list maintenance records: %w", err)
	}
	defer rows.Close()

	var records []domain.MaintenanceRecord
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan maintenance record: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate maintenance records: %w", err)
	}
	return records, nil
}

func (r *RecordRepository) SaveMatch(ctx context.Context, recordID, locationID string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE maintenance_records
SET location_id = $2
WHERE id = $1
`, recordID, locationID)
	if err != nil {
		return fmt.Errorf("save record match: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save record match rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrRecordNotFound, "save record match", fmt.Errorf("id %s", recordID))
	}
	return nil
}

func scanRecord(scan func(dest ...any) error) (*domain.MaintenanceRecord, error) {
	var record domain.MaintenanceRecord
	var businessType string
	var lat, lon sql.NullFloat64

	err := scan(
		&record.ID, &record.BusinessID, &record.LocationID, &record.BusinessName, &businessType,
		&lat, &lon, &record.Description, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.BusinessType = domain.BusinessType(businessType)
	if lat.Valid && lon.Valid {
		record.Coordinate = &domain.Coordinate{Lat: lat.Float64, Lon: lon.Float64}
	}
	return &record, nil
}
