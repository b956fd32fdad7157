package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ggorockee/partfinder/internal/catalog"
	"github.com/ggorockee/partfinder/internal/logger"
	"github.com/ggorockee/partfinder/internal/telemetry"
	"github.com/ggorockee/partfinder/pkg/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

const (
	// NoResultsBlock shown when the catalog returned nothing
	NoResultsBlock = "🔍 Нет на Drom"
	maxAnalogs     = 2
)

// Cache catalog result cache
type Cache interface {
	Lookup(ctx context.Context, key models.CacheKey) (*models.CacheEntry, bool)
	Put(ctx context.Context, key models.CacheKey, listings []models.Listing, marketplaceLink string) error
}

// Catalog catalog source client
type Catalog interface {
	Query(ctx context.Context, q models.SearchQuery) catalog.Result
}

// Analogs cross-reference resolver
type Analogs interface {
	Resolve(partNumber string) []string
}

// History search log
type History interface {
	Record(ctx context.Context, rec models.HistoryRecord) error
}

// Orchestrator runs one part lookup end to end
type Orchestrator struct {
	cache       Cache
	catalog     Catalog
	analogs     Analogs
	history     History
	telemetry   *telemetry.Telemetry
	defaultCity string

	group singleflight.Group
}

// Deps collaborators of the orchestrator. Telemetry may be nil.
type Deps struct {
	Cache       Cache
	Catalog     Catalog
	Analogs     Analogs
	History     History
	Telemetry   *telemetry.Telemetry
	DefaultCity string
}

// New creates an orchestrator
func New(d Deps) *Orchestrator {
	tel := d.Telemetry
	if tel == nil {
		tel = telemetry.NewNoOp()
	}
	return &Orchestrator{
		cache:       d.Cache,
		catalog:     d.Catalog,
		analogs:     d.Analogs,
		history:     d.History,
		telemetry:   tel,
		defaultCity: d.DefaultCity,
	}
}

// Search looks up rawQuery in city with no filters
func (o *Orchestrator) Search(ctx context.Context, userID, rawQuery, city string) models.DisplayResult {
	return o.SearchQuery(ctx, userID, models.SearchQuery{
		RawText:  rawQuery,
		PartType: models.PartTypeAny,
		Price:    models.PriceAny,
		City:     city,
	})
}

// SearchQuery runs a lookup. It never fails: collaborator errors degrade to
// the placeholder block and the marketplace link is always present.
func (o *Orchestrator) SearchQuery(ctx context.Context, userID string, q models.SearchQuery) models.DisplayResult {
	requestID := uuid.NewString()
	log := logger.GetLogger("search").With("request_id", requestID, "user_id", userID)

	q = q.Normalize(o.defaultCity)
	key := q.Key()

	ctx, span := o.telemetry.StartSpan(ctx, "search")
	defer span.End()
	span.SetAttributes(
		attribute.String("request_id", requestID),
		attribute.String("query", q.RawText),
		attribute.String("city", q.City),
	)

	start := time.Now()
	log.Infof("Search %s", key)

	listings, link := o.listings(ctx, q)

	result := models.DisplayResult{
		Blocks:          FormatListings(listings),
		MarketplaceLink: link,
	}
	if block, ok := o.analogBlock(q.RawText); ok {
		result.Blocks = append(result.Blocks, block)
	}

	if o.history != nil {
		err := o.history.Record(ctx, models.HistoryRecord{
			UserID:   userID,
			Query:    q.RawText,
			PartType: q.PartType,
			Price:    q.Price,
			City:     q.City,
		})
		if err != nil {
			log.Warnf("Failed to record search history: %v", err)
		}
	}

	o.telemetry.RecordSearch(ctx, time.Since(start), q.City)
	log.Infof("Search %s done: %d listings in %v", key, len(listings), time.Since(start))
	return result
}

type lookup struct {
	listings []models.Listing
	link     string
}

// listings serves from the cache or the catalog. Concurrent misses for one
// key share a single catalog request.
func (o *Orchestrator) listings(ctx context.Context, q models.SearchQuery) ([]models.Listing, string) {
	key := q.Key()

	if o.cache != nil {
		entry, hit := o.cache.Lookup(ctx, key)
		o.telemetry.RecordCacheLookup(ctx, hit)
		if hit {
			link := entry.MarketplaceLink
			if link == "" {
				link = catalog.MarketplaceLink(q.City, q.RawText)
			}
			return entry.Listings, link
		}
	}

	v, _, _ := o.group.Do(key.String(), func() (interface{}, error) {
		res := o.catalog.Query(ctx, q)
		if res.Fetched && o.cache != nil {
			if err := o.cache.Put(ctx, key, res.Listings, res.MarketplaceLink); err != nil {
				logger.GetLogger("search").Warnf("Failed to cache %s: %v", key, err)
			}
		}
		return lookup{listings: res.Listings, link: res.MarketplaceLink}, nil
	})

	l := v.(lookup)
	if l.link == "" {
		l.link = catalog.MarketplaceLink(q.City, q.RawText)
	}
	return l.listings, l.link
}

func (o *Orchestrator) analogBlock(partNumber string) (string, bool) {
	if o.analogs == nil {
		return "", false
	}
	refs := o.analogs.Resolve(partNumber)
	if len(refs) == 0 {
		return "", false
	}
	if len(refs) > maxAnalogs {
		refs = refs[:maxAnalogs]
	}
	lines := make([]string, 0, len(refs)+1)
	lines = append(lines, "🔁 **Аналоги:**")
	for _, r := range refs {
		lines = append(lines, "🔁 "+r)
	}
	return strings.Join(lines, "\n"), true
}

// FormatListings display blocks for listings, or the placeholder block
func FormatListings(listings []models.Listing) []string {
	if len(listings) == 0 {
		return []string{NoResultsBlock}
	}
	blocks := make([]string, 0, len(listings))
	for _, l := range listings {
		blocks = append(blocks, FormatListing(l))
	}
	return blocks
}

// FormatListing one listing in chat markup
func FormatListing(l models.Listing) string {
	return fmt.Sprintf("🔧 **%s**\n💵 %s\n🔗 [Смотреть](<%s>)", l.Title, l.Price, l.URL)
}
