package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ggorockee/partfinder/internal/analogs"
	"github.com/ggorockee/partfinder/internal/catalog"
	"github.com/ggorockee/partfinder/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCache in-memory Cache with the same freshness rule as the postgres store
type memCache struct {
	mu      sync.Mutex
	entries map[models.CacheKey]models.CacheEntry
	now     func() time.Time
	puts    int
	failPut bool
}

func newMemCache() *memCache {
	return &memCache{entries: map[models.CacheKey]models.CacheEntry{}, now: time.Now}
}

func (m *memCache) Lookup(_ context.Context, key models.CacheKey) (*models.CacheEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || !e.Fresh(m.now(), time.Hour) {
		return nil, false
	}
	return &e, true
}

func (m *memCache) Put(_ context.Context, key models.CacheKey, listings []models.Listing, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.failPut {
		return models.ErrCacheIO
	}
	m.entries[key] = models.CacheEntry{Key: key, Listings: listings, MarketplaceLink: link, CreatedAt: m.now()}
	return nil
}

type stubCatalog struct {
	calls    int32
	listings []models.Listing
	fetched  bool
	delay    time.Duration
}

func (s *stubCatalog) Query(_ context.Context, q models.SearchQuery) catalog.Result {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return catalog.Result{
		Listings:        s.listings,
		MarketplaceLink: catalog.MarketplaceLink(q.City, q.RawText),
		Fetched:         s.fetched,
	}
}

type recHistory struct {
	mu      sync.Mutex
	records []models.HistoryRecord
	err     error
}

func (h *recHistory) Record(_ context.Context, rec models.HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	return h.err
}

type staticAnalogs map[string][]string

func (s staticAnalogs) Resolve(p string) []string {
	return s[strings.ToUpper(p)]
}

var injector = models.Listing{Title: "Форсунка BOSCH", Price: "4 500 ₽", URL: "https://moskva.drom.ru/auto/parts/1.html"}

func TestSearchEndToEnd(t *testing.T) {
	cache := newMemCache()
	cat := &stubCatalog{listings: []models.Listing{injector}, fetched: true}
	hist := &recHistory{}
	o := New(Deps{
		Cache:   cache,
		Catalog: cat,
		Analogs: staticAnalogs{"0445120012": {"DENSO 123456", "STANDART BS-778", "THIRD 1"}},
		History: hist,
	})

	res := o.Search(context.Background(), "1", "0445120012", "Москва")

	require.Len(t, res.Blocks, 2)
	assert.Contains(t, res.Blocks[0], "Форсунка BOSCH")
	assert.Contains(t, res.Blocks[0], "4 500 ₽")

	last := res.Blocks[len(res.Blocks)-1]
	assert.Contains(t, last, "DENSO 123456")
	assert.Contains(t, last, "STANDART BS-778")
	assert.NotContains(t, last, "THIRD 1")

	assert.Contains(t, res.MarketplaceLink, "moskva.avito.ru")
	assert.Contains(t, res.MarketplaceLink, "q=0445120012")

	require.Len(t, hist.records, 1)
	assert.Equal(t, "1", hist.records[0].UserID)
	assert.Equal(t, "Москва", hist.records[0].City)
	assert.Equal(t, 1, cache.puts)
}

func TestSearchServesSecondCallFromCache(t *testing.T) {
	cache := newMemCache()
	cat := &stubCatalog{listings: []models.Listing{injector}, fetched: true}
	o := New(Deps{Cache: cache, Catalog: cat, History: &recHistory{}})

	first := o.Search(context.Background(), "1", " 0445120012 ", "Москва")
	second := o.Search(context.Background(), "2", "0445120012", "мск")

	assert.Equal(t, int32(1), atomic.LoadInt32(&cat.calls))
	assert.Equal(t, first, second)
}

func TestSearchStaleEntryRefetches(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cache := newMemCache()
	cache.now = func() time.Time { return now }
	cat := &stubCatalog{listings: []models.Listing{injector}, fetched: true}
	o := New(Deps{Cache: cache, Catalog: cat})

	o.Search(context.Background(), "1", "X12345", "Москва")
	now = now.Add(61 * time.Minute)
	o.Search(context.Background(), "1", "X12345", "Москва")

	assert.Equal(t, int32(2), atomic.LoadInt32(&cat.calls))
}

func TestSearchNoListingsUsesPlaceholder(t *testing.T) {
	cache := newMemCache()
	cat := &stubCatalog{fetched: false}
	hist := &recHistory{err: errors.New("db down")}
	o := New(Deps{Cache: cache, Catalog: cat, History: hist, DefaultCity: "Новосибирск"})

	res := o.Search(context.Background(), "1", "nothing", "")

	assert.Equal(t, []string{NoResultsBlock}, res.Blocks)
	assert.Contains(t, res.MarketplaceLink, "novosibirsk.avito.ru")
	// failed fetches are not cached, history is still attempted
	assert.Equal(t, 0, cache.puts)
	assert.Len(t, hist.records, 1)
}

func TestSearchCacheWriteFailureDegrades(t *testing.T) {
	cache := newMemCache()
	cache.failPut = true
	cat := &stubCatalog{listings: []models.Listing{injector}, fetched: true}
	o := New(Deps{Cache: cache, Catalog: cat})

	res := o.Search(context.Background(), "1", "0445120012", "Москва")
	assert.Contains(t, res.Blocks[0], "Форсунка BOSCH")
}

func TestSearchCoalescesConcurrentMisses(t *testing.T) {
	cache := newMemCache()
	cat := &stubCatalog{listings: []models.Listing{injector}, fetched: true, delay: 50 * time.Millisecond}
	o := New(Deps{Cache: cache, Catalog: cat})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Search(context.Background(), "1", "0445120012", "Москва")
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&cat.calls), int32(2))
}

func TestSearchWithBuiltinAnalogs(t *testing.T) {
	o := New(Deps{
		Cache:   newMemCache(),
		Catalog: &stubCatalog{fetched: true},
		Analogs: analogs.New(),
	})

	res := o.Search(context.Background(), "1", "bosch 0445120012", "Казань")
	require.Len(t, res.Blocks, 2)
	assert.Equal(t, NoResultsBlock, res.Blocks[0])
	assert.Equal(t, "🔁 **Аналоги:**\n🔁 DENSO 123456\n🔁 STANDART BS-778", res.Blocks[1])
}

func TestFormatListing(t *testing.T) {
	assert.Equal(t,
		"🔧 **Форсунка BOSCH**\n💵 4 500 ₽\n🔗 [Смотреть](<https://moskva.drom.ru/auto/parts/1.html>)",
		FormatListing(injector))
}
