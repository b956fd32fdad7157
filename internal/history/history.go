package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ggorockee/partfinder/internal/logger"
	"github.com/ggorockee/partfinder/pkg/models"
)

// RecentLimit number of entries shown by the history command
const RecentLimit = 5

// Store append-only search_history table
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a history store over db
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

const insertRecord = `
	INSERT INTO search_history (user_id, query, part_type, price_filter, city, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
`

// Record appends one search. CreatedAt is stamped when zero.
func (s *Store) Record(ctx context.Context, rec models.HistoryRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, insertRecord,
		rec.UserID, rec.Query, string(rec.PartType), string(rec.Price), rec.City, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: record search: %v", models.ErrCacheIO, err)
	}
	return nil
}

const selectRecent = `
	SELECT query, part_type, price_filter, city, created_at
	FROM search_history
	WHERE user_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT $2
`

// Recent returns up to limit searches of userID, newest first
func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]models.HistoryRecord, error) {
	log := logger.GetLogger("history")

	if limit <= 0 {
		limit = RecentLimit
	}

	rows, err := s.db.QueryContext(ctx, selectRecent, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query history: %v", models.ErrCacheIO, err)
	}
	defer rows.Close()

	records := []models.HistoryRecord{}
	for rows.Next() {
		rec := models.HistoryRecord{UserID: userID}
		var partType, price string
		if err := rows.Scan(&rec.Query, &partType, &price, &rec.City, &rec.CreatedAt); err != nil {
			log.Warnf("Failed to scan history row: %v", err)
			continue
		}
		rec.PartType = models.ParsePartType(partType)
		rec.Price = models.ParsePriceFilter(price)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate history: %v", models.ErrCacheIO, err)
	}

	return records, nil
}
