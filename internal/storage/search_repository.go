package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fleveque/sauce-service/internal/model"
)

// DefaultListLimit caps ListByURL when the caller passes a non-positive limit.
const DefaultListLimit = 50

// SearchRepository stores one audit row per source check.
// The search path only writes; reads serve the admin endpoints.
type SearchRepository interface {
	Create(ctx context.Context, rec *model.SearchRecord) error
	Count(ctx context.Context) (int64, error)
	StatsBySource(ctx context.Context) ([]model.SourceStats, error)
	ListByURL(ctx context.Context, rawURL string, limit int) ([]model.SearchRecord, error)
}

type sqliteSearchRepository struct {
	db *sqlx.DB
}

// NewSearchRepository creates a SQLite-backed SearchRepository.
func NewSearchRepository(db *sqlx.DB) SearchRepository {
	return &sqliteSearchRepository{db: db}
}

func (r *sqliteSearchRepository) Create(ctx context.Context, rec *model.SearchRecord) error {
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO searches (request_id, source, url, item_count, success, error_kind, duration_ms)
		VALUES (:request_id, :source, :url, :item_count, :success, :error_kind, :duration_ms)
	`, rec)
	if err != nil {
		return fmt.Errorf("creating search record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	rec.ID = id
	return nil
}

func (r *sqliteSearchRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM searches")
	return count, err
}

func (r *sqliteSearchRepository) StatsBySource(ctx context.Context) ([]model.SourceStats, error) {
	stats := []model.SourceStats{}
	err := r.db.SelectContext(ctx, &stats, `
		SELECT source,
		       COUNT(*) AS total,
		       COALESCE(SUM(success), 0) AS succeeded,
		       COALESCE(AVG(duration_ms), 0) AS avg_duration_ms
		FROM searches
		GROUP BY source
		ORDER BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("aggregating search stats: %w", err)
	}
	return stats, nil
}

// ListByURL returns the newest records for rawURL first.
func (r *sqliteSearchRepository) ListByURL(ctx context.Context, rawURL string, limit int) ([]model.SearchRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	records := []model.SearchRecord{}
	err := r.db.SelectContext(ctx, &records,
		"SELECT * FROM searches WHERE url = ? ORDER BY id DESC LIMIT ?",
		rawURL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing searches for %s: %w", rawURL, err)
	}
	return records, nil
}
