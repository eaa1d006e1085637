package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lncpro/rosteraudit/internal/domain"
)

// The cache is a single named row; the count column is written alongside
// the payload so a partial write can be detected on load.
const licenseCacheDocument = "licencias_federacion"

type licenseCacheRepository struct {
	pool *pgxpool.Pool
}

// NewLicenseCacheRepository creates a license cache repository over a pgx pool.
func NewLicenseCacheRepository(pool *pgxpool.Pool) LicenseCacheRepository {
	return &licenseCacheRepository{pool: pool}
}

func (r *licenseCacheRepository) Save(ctx context.Context, records []domain.LicenseRecord, fetchedAt time.Time) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal license records: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO licencias_cache (name, timestamp, count, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET timestamp = EXCLUDED.timestamp,
		    count = EXCLUDED.count,
		    data = EXCLUDED.data`,
		licenseCacheDocument, fetchedAt, len(records), data)
	if err != nil {
		return fmt.Errorf("save license cache: %w", err)
	}
	return nil
}

func (r *licenseCacheRepository) Load(ctx context.Context) ([]domain.LicenseRecord, time.Time, error) {
	var (
		fetchedAt time.Time
		count     int
		data      []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT timestamp, count, data FROM licencias_cache WHERE name = $1`,
		licenseCacheDocument).Scan(&fetchedAt, &count, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, time.Time{}, fmt.Errorf("load license cache: %w", ErrNotFound)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load license cache: %w", err)
	}

	var records []domain.LicenseRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, time.Time{}, fmt.Errorf("unmarshal license records: %w", err)
	}
	if len(records) < count {
		return nil, time.Time{}, fmt.Errorf("cache holds %d of %d records: %w", len(records), count, ErrIncompleteCache)
	}
	return records, fetchedAt, nil
}
