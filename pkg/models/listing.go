package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Listing one catalog listing summary
type Listing struct {
	Title string `json:"title"`
	Price string `json:"price"`
	URL   string `json:"url"`
}

// CacheEntry part_cache table entry
type CacheEntry struct {
	Key             CacheKey
	Listings        []Listing
	MarketplaceLink string
	CreatedAt       time.Time
}

// Fresh reports whether the entry is younger than ttl at now.
func (e *CacheEntry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CreatedAt) < ttl
}

// listingsDocumentVersion current version of the stored listings document
const listingsDocumentVersion = 1

// listingsDocument versioned JSON stored in part_cache.listings
type listingsDocument struct {
	Version  int       `json:"version"`
	Listings []Listing `json:"listings"`
}

// EncodeListings serializes listings into the versioned cache document.
func EncodeListings(listings []Listing) ([]byte, error) {
	if listings == nil {
		listings = []Listing{}
	}
	data, err := json.Marshal(listingsDocument{Version: listingsDocumentVersion, Listings: listings})
	if err != nil {
		return nil, fmt.Errorf("%w: encode listings: %v", ErrCacheIO, err)
	}
	return data, nil
}

// DecodeListings parses a document written by EncodeListings.
func DecodeListings(data []byte) ([]Listing, error) {
	var doc listingsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode listings: %v", ErrCacheIO, err)
	}
	if doc.Version != listingsDocumentVersion {
		return nil, fmt.Errorf("%w: unsupported listings version %d", ErrCacheIO, doc.Version)
	}
	if doc.Listings == nil {
		doc.Listings = []Listing{}
	}
	return doc.Listings, nil
}

// HistoryRecord search_history table record
type HistoryRecord struct {
	UserID    string
	Query     string
	PartType  PartType
	Price     PriceFilter
	City      string
	CreatedAt time.Time
}

// DisplayResult formatted search result for the chat
type DisplayResult struct {
	Blocks          []string
	MarketplaceLink string
}
