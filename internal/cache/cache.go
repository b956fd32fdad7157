package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ggorockee/partfinder/internal/logger"
	"github.com/ggorockee/partfinder/pkg/models"
)

// DefaultTTL freshness window of a cached catalog result
const DefaultTTL = time.Hour

// Store part_cache table. Entries are never evicted; a stale entry is
// reported as absent and overwritten by the next Put.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a cache store over db
func New(db *sql.DB, ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{db: db, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL freshness window
func (s *Store) TTL() time.Duration {
	return s.ttl
}

const selectEntry = `
	SELECT listings, marketplace_link, created_at
	FROM part_cache
	WHERE query = $1 AND part_type = $2 AND price_filter = $3 AND city = $4
`

// Lookup returns the fresh entry for key. Missing, stale and unreadable
// entries all report false.
func (s *Store) Lookup(ctx context.Context, key models.CacheKey) (*models.CacheEntry, bool) {
	log := logger.GetLogger("cache")

	entry, err := s.get(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Infof("[part_cache] MISS %s", key)
			return nil, false
		}
		log.Warnf("[part_cache] Query error: %v", err)
		return nil, false
	}

	if !entry.Fresh(s.now(), s.ttl) {
		log.Infof("[part_cache] MISS %s (stale, created_at=%v)", key, entry.CreatedAt)
		return nil, false
	}

	log.Infof("[part_cache] HIT %s (created_at=%v)", key, entry.CreatedAt)
	return entry, true
}

func (s *Store) get(ctx context.Context, key models.CacheKey) (*models.CacheEntry, error) {
	var (
		raw  []byte
		link string
		at   time.Time
	)
	err := s.db.QueryRowContext(ctx, selectEntry,
		key.Query, string(key.PartType), string(key.Price), key.City,
	).Scan(&raw, &link, &at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrCacheIO, err)
	}

	listings, err := models.DecodeListings(raw)
	if err != nil {
		return nil, err
	}

	return &models.CacheEntry{
		Key:             key,
		Listings:        listings,
		MarketplaceLink: link,
		CreatedAt:       at,
	}, nil
}

const upsertEntry = `
	INSERT INTO part_cache (query, part_type, price_filter, city, listings, marketplace_link, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (query, part_type, price_filter, city) DO UPDATE
	SET listings = EXCLUDED.listings,
		marketplace_link = EXCLUDED.marketplace_link,
		created_at = EXCLUDED.created_at
`

// Put upserts the entry for key stamped with the current time. The
// single-statement upsert keeps concurrent writers for one key last-write-wins.
func (s *Store) Put(ctx context.Context, key models.CacheKey, listings []models.Listing, marketplaceLink string) error {
	log := logger.GetLogger("cache")

	raw, err := models.EncodeListings(listings)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, upsertEntry,
		key.Query, string(key.PartType), string(key.Price), key.City,
		raw, marketplaceLink, s.now(),
	)
	if err != nil {
		return fmt.Errorf("%w: put part cache: %v", models.ErrCacheIO, err)
	}

	log.Infof("[part_cache] PUT %s (%d listings)", key, len(listings))
	return nil
}
