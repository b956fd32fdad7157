package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ggorockee/partfinder/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixturePage = `<html><body>
<div class="b-advItem">
  <a class="b-advItem__title" href="/auto/parts/1.html"> Форсунка BOSCH 0445120012 </a>
  <div class="b-advItem__price">4&nbsp;500 ₽</div>
</div>
<div class="b-advItem">
  <a class="b-advItem__title" href="https://moskva.drom.ru/auto/parts/2.html">Форсунка б/у</a>
</div>
<div class="b-advItem">
  <a class="b-advItem__title" href="/auto/parts/3.html">Форсунка дизельная</a>
  <div class="b-advItem__price">12 000 ₽</div>
</div>
<div class="b-advItem">
  <a class="b-advItem__title" href="/auto/parts/4.html">Форсунка восстановленная</a>
  <div class="b-advItem__price">7 800 ₽</div>
</div>
</body></html>`

type stubFetcher struct {
	html string
	err  error
	urls []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	return f.html, f.err
}

func TestParseListingsAnyPriceCapsBlocks(t *testing.T) {
	listings, err := ParseListings(fixturePage, "https://moskva.drom.ru/auto/parts/?q=x", 3, models.PriceAny)
	require.NoError(t, err)

	// second block lacks a price and the fourth is beyond the cap
	require.Len(t, listings, 2)
	assert.Equal(t, models.Listing{
		Title: "Форсунка BOSCH 0445120012",
		Price: "4 500 ₽",
		URL:   "https://moskva.drom.ru/auto/parts/1.html",
	}, listings[0])
	assert.Equal(t, "Форсунка дизельная", listings[1].Title)
}

func TestParseListingsPriceFilter(t *testing.T) {
	base := "https://moskva.drom.ru/auto/parts/?q=x"

	under, err := ParseListings(fixturePage, base, 3, models.PriceUnder5000)
	require.NoError(t, err)
	require.Len(t, under, 1)
	assert.Equal(t, "4 500 ₽", under[0].Price)

	mid, err := ParseListings(fixturePage, base, 3, models.Price5000To10000)
	require.NoError(t, err)
	require.Len(t, mid, 1)
	assert.Equal(t, "https://moskva.drom.ru/auto/parts/4.html", mid[0].URL)

	over, err := ParseListings(fixturePage, base, 3, models.PriceOver10000)
	require.NoError(t, err)
	require.Len(t, over, 1)
	assert.Equal(t, "12 000 ₽", over[0].Price)
}

func TestParseListingsNoBlocks(t *testing.T) {
	listings, err := ParseListings("<html><body><p>ничего</p></body></html>", "https://x.drom.ru/", 3, models.PriceAny)
	require.NoError(t, err)
	assert.NotNil(t, listings)
	assert.Empty(t, listings)
}

func TestRubles(t *testing.T) {
	n, ok := Rubles("12 500 ₽")
	assert.True(t, ok)
	assert.Equal(t, 12500, n)

	_, ok = Rubles("договорная")
	assert.False(t, ok)
}

func TestQueryBuildsSourceAndMarketplaceURLs(t *testing.T) {
	f := &stubFetcher{html: fixturePage}
	c := NewClient(f, Options{}, nil)

	res := c.Query(context.Background(), models.SearchQuery{
		RawText:  "0445120012",
		PartType: models.PartTypeOriginal,
		Price:    models.PriceAny,
		City:     "Москва",
	})

	assert.True(t, res.Fetched)
	assert.Len(t, res.Listings, 2)
	require.Len(t, f.urls, 1)
	assert.True(t, strings.HasPrefix(f.urls[0], "https://moskva.drom.ru/auto/parts/?q="))
	assert.Contains(t, f.urls[0], "0445120012")
	assert.Contains(t, res.MarketplaceLink, "moskva.avito.ru")
	assert.Contains(t, res.MarketplaceLink, "q=0445120012")
}

func TestQueryFetchFailureYieldsEmpty(t *testing.T) {
	f := &stubFetcher{err: errors.New("boom")}
	c := NewClient(f, Options{}, nil)

	res := c.Query(context.Background(), models.SearchQuery{RawText: "X", City: "Казань"})

	assert.False(t, res.Fetched)
	assert.NotNil(t, res.Listings)
	assert.Empty(t, res.Listings)
	assert.Contains(t, res.MarketplaceLink, "kazan.avito.ru")
}

func TestQueryOverHTTP(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(fixturePage))
	}))
	defer srv.Close()

	c := NewClient(NewHTTPFetcher(2*time.Second, "partfinder-test"), Options{
		CityURL: func(string) string { return srv.URL },
	}, nil)

	res := c.Query(context.Background(), models.SearchQuery{
		RawText:  "0445120012",
		PartType: models.PartTypeUsedOEM,
		City:     "Новосибирск",
	})

	assert.True(t, res.Fetched)
	assert.Equal(t, "0445120012 контрактная", gotQuery)
	assert.Equal(t, "partfinder-test", gotUA)
	require.Len(t, res.Listings, 2)
	assert.Equal(t, srv.URL+"/auto/parts/1.html", res.Listings[0].URL)
}

func TestHTTPFetcherNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(time.Second, "ua").Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNetwork)
}

func TestMarketplaceLinkUnknownCityUsesDefault(t *testing.T) {
	link := MarketplaceLink("Тверь", "A B")
	assert.Equal(t, "https://novosibirsk.avito.ru/all/avtozapchasti_i_aksessuary?q=A+B", link)
}
