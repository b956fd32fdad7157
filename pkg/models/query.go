package models

import (
	"fmt"
	"strings"
)

// PartType part type filter
type PartType string

const (
	PartTypeAny         PartType = "any"
	PartTypeOriginal    PartType = "original"
	PartTypeAftermarket PartType = "aftermarket"
	PartTypeUsedOEM     PartType = "used_oem"
)

// partTypeLabels menu labels shown to the user
var partTypeLabels = map[PartType]string{
	PartTypeAny:         "Любые",
	PartTypeOriginal:    "Оригинал",
	PartTypeAftermarket: "Аналог",
	PartTypeUsedOEM:     "Контрактные",
}

// Label returns the menu label of the part type.
func (p PartType) Label() string {
	if label, ok := partTypeLabels[p]; ok {
		return label
	}
	return partTypeLabels[PartTypeAny]
}

// Valid reports whether p is one of the known part types.
func (p PartType) Valid() bool {
	_, ok := partTypeLabels[p]
	return ok
}

// ParsePartType parses a stored or button value, falling back to PartTypeAny.
func ParsePartType(s string) PartType {
	p := PartType(strings.ToLower(strings.TrimSpace(s)))
	if p.Valid() {
		return p
	}
	return PartTypeAny
}

// PriceFilter price band filter
type PriceFilter string

const (
	PriceAny         PriceFilter = "any"
	PriceUnder5000   PriceFilter = "under_5000"
	Price5000To10000 PriceFilter = "5000_10000"
	PriceOver10000   PriceFilter = "over_10000"
)

var priceLabels = map[PriceFilter]string{
	PriceAny:         "Любая цена",
	PriceUnder5000:   "До 5000 ₽",
	Price5000To10000: "5000-10000 ₽",
	PriceOver10000:   "От 10000 ₽",
}

// Label returns the menu label of the price filter.
func (p PriceFilter) Label() string {
	if label, ok := priceLabels[p]; ok {
		return label
	}
	return priceLabels[PriceAny]
}

// Valid reports whether p is one of the known price filters.
func (p PriceFilter) Valid() bool {
	_, ok := priceLabels[p]
	return ok
}

// Accepts reports whether a price in rubles passes the filter.
// Bounds are inclusive for the middle band.
func (p PriceFilter) Accepts(rubles int) bool {
	switch p {
	case PriceUnder5000:
		return rubles < 5000
	case Price5000To10000:
		return rubles >= 5000 && rubles <= 10000
	case PriceOver10000:
		return rubles > 10000
	default:
		return true
	}
}

// ParsePriceFilter parses a stored or button value, falling back to PriceAny.
func ParsePriceFilter(s string) PriceFilter {
	p := PriceFilter(strings.ToLower(strings.TrimSpace(s)))
	if p.Valid() {
		return p
	}
	return PriceAny
}

// SearchQuery a single part lookup request
type SearchQuery struct {
	RawText  string
	PartType PartType
	Price    PriceFilter
	City     string
}

// CacheKey identity of a cached lookup (query, part type, price filter, city)
type CacheKey struct {
	Query    string
	PartType PartType
	Price    PriceFilter
	City     string
}

// String key string for logs
func (k CacheKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.Query, k.PartType, k.Price, k.City)
}

// Normalize returns a copy with trimmed, uppercased text, a canonical city
// and valid filters. defaultCity is used when the city is empty.
func (q SearchQuery) Normalize(defaultCity string) SearchQuery {
	city := NormalizeCity(q.City)
	if city == "" {
		city = NormalizeCity(defaultCity)
	}
	return SearchQuery{
		RawText:  NormalizeQuery(q.RawText),
		PartType: ParsePartType(string(q.PartType)),
		Price:    ParsePriceFilter(string(q.Price)),
		City:     city,
	}
}

// Key builds the cache key. Call Normalize first so keys are stable.
func (q SearchQuery) Key() CacheKey {
	return CacheKey{
		Query:    q.RawText,
		PartType: q.PartType,
		Price:    q.Price,
		City:     q.City,
	}
}

// NormalizeQuery trims, collapses inner whitespace and uppercases free text.
func NormalizeQuery(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), " "))
}

// cityAliases short names accepted for known cities
var cityAliases = map[string]string{
	"спб":   "Санкт-Петербург",
	"питер": "Санкт-Петербург",
	"мск":   "Москва",
}

// NormalizeCity trims a city name and resolves known aliases.
func NormalizeCity(city string) string {
	city = strings.TrimSpace(city)
	if canonical, ok := cityAliases[strings.ToLower(city)]; ok {
		return canonical
	}
	return city
}
