package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/ggorockee/partfinder/internal/logger"
	"github.com/ggorockee/partfinder/internal/telemetry"
	"github.com/ggorockee/partfinder/pkg/models"
)

const (
	sourceName     = "drom"
	sourcePath     = "/auto/parts/"
	itemSelector   = "div.b-advItem"
	titleSelector  = "a.b-advItem__title"
	priceSelector  = "div.b-advItem__price"
	defaultMax     = 3
	defaultTimeout = 10 * time.Second
)

// partTypeKeywords words added to the source query for a part type filter
var partTypeKeywords = map[models.PartType]string{
	models.PartTypeOriginal:    "оригинал",
	models.PartTypeAftermarket: "аналог",
	models.PartTypeUsedOEM:     "контрактная",
}

// Result catalog lookup result
type Result struct {
	Listings        []models.Listing
	MarketplaceLink string
	// Fetched is false when the source could not be reached or parsed
	Fetched bool
}

// Options client tuning
type Options struct {
	MaxListings int
	Timeout     time.Duration
	// CityURL overrides the per-city source origin
	CityURL func(city string) string
}

// Client catalog source client
type Client struct {
	fetcher     Fetcher
	maxListings int
	timeout     time.Duration
	cityURL     func(city string) string
	telemetry   *telemetry.Telemetry
}

// NewClient creates a catalog client. tel may be nil.
func NewClient(fetcher Fetcher, opts Options, tel *telemetry.Telemetry) *Client {
	c := &Client{
		fetcher:     fetcher,
		maxListings: opts.MaxListings,
		timeout:     opts.Timeout,
		cityURL:     opts.CityURL,
		telemetry:   tel,
	}
	if c.maxListings <= 0 {
		c.maxListings = defaultMax
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.cityURL == nil {
		c.cityURL = CityURL
	}
	return c
}

// CityURL origin of the catalog source for city
func CityURL(city string) string {
	return fmt.Sprintf("https://%s.drom.ru", Subdomain(city))
}

// SourceURL search page URL for text in city
func (c *Client) SourceURL(city, text string) string {
	return c.cityURL(city) + sourcePath + "?" + url.Values{"q": {text}}.Encode()
}

// Query looks q up on the catalog source. It never returns an error:
// network and parse failures yield an empty listing sequence.
// The marketplace link is always set.
func (c *Client) Query(ctx context.Context, q models.SearchQuery) Result {
	log := logger.GetLogger("catalog." + sourceName)

	result := Result{
		Listings:        []models.Listing{},
		MarketplaceLink: MarketplaceLink(q.City, q.RawText),
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	pageURL := c.SourceURL(q.City, sourceText(q))
	start := time.Now()

	listings, err := c.fetchListings(ctx, pageURL, q.Price)

	if c.telemetry != nil {
		c.telemetry.RecordCatalogFetch(ctx, time.Since(start), len(listings), models.ErrorClass(err))
	}

	if err != nil {
		log.Warnf("Catalog lookup failed (%s): %v", pageURL, err)
		return result
	}

	log.Infof("Catalog lookup %s: %d listings", pageURL, len(listings))
	result.Listings = listings
	result.Fetched = true
	return result
}

func (c *Client) fetchListings(ctx context.Context, pageURL string, price models.PriceFilter) ([]models.Listing, error) {
	html, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return ParseListings(html, pageURL, c.maxListings, price)
}

// sourceText free text sent to the source, including the part type keyword
func sourceText(q models.SearchQuery) string {
	if kw, ok := partTypeKeywords[q.PartType]; ok {
		return q.RawText + " " + kw
	}
	return q.RawText
}

// ParseListings extracts at most limit listings from a catalog page.
// With PriceAny only the first limit blocks are considered and blocks missing
// a title or price are skipped. Other price filters skip listings whose price
// falls outside the band and keep scanning until limit are collected.
// A page without listing blocks yields an empty slice, not an error.
func ParseListings(html, pageURL string, limit int, price models.PriceFilter) ([]models.Listing, error) {
	price = models.ParsePriceFilter(string(price))

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: page url: %v", models.ErrParse, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrParse, err)
	}

	listings := []models.Listing{}
	doc.Find(itemSelector).EachWithBreak(func(i int, item *goquery.Selection) bool {
		if price == models.PriceAny && i >= limit {
			return false
		}

		title := item.Find(titleSelector).First()
		priceNode := item.Find(priceSelector).First()
		if title.Length() == 0 || priceNode.Length() == 0 {
			return true
		}

		priceText := cleanText(priceNode.Text())
		if price != models.PriceAny {
			rubles, ok := Rubles(priceText)
			if !ok || !price.Accepts(rubles) {
				return true
			}
		}

		href, _ := title.Attr("href")
		link, err := base.Parse(href)
		if err != nil {
			return true
		}

		listings = append(listings, models.Listing{
			Title: cleanText(title.Text()),
			Price: priceText,
			URL:   link.String(),
		})
		return len(listings) < limit
	})

	return listings, nil
}

// Rubles reads the digits of a display price ("12 500 ₽" -> 12500)
func Rubles(price string) (int, bool) {
	var b strings.Builder
	for _, r := range price {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

// cleanText collapses whitespace, nbsp included
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
