// Package market defines the shared product model, work-item schema and
// extraction contract used by the collection and sourcing pipelines.
package market

import (
	"context"
	"fmt"
	"strings"

	"github.com/jaeho-dev/marketscout/internal/browser/session"
)

// Platform identifies a supported marketplace.
type Platform string

const (
	PlatformNaver   Platform = "NAVER"
	PlatformAuction Platform = "AUCTION"
)

// ParsePlatform maps a relay-supplied platform token onto a Platform.
// Matching is case-insensitive and tolerates surrounding whitespace.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NAVER", "SMARTSTORE":
		return PlatformNaver, nil
	case "AUCTION":
		return PlatformAuction, nil
	default:
		return "", fmt.Errorf("unsupported platform %q", s)
	}
}

// Product is a single listing extracted from a marketplace page.
// Code is the platform-native identifier and acts as the dedupe key.
type Product struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	SalePrice       int    `json:"salePrice"`
	DiscountedPrice int    `json:"discountedPrice"`
	DiscountRate    int    `json:"discountRate"`
	DeliveryFee     int    `json:"deliveryFee"`
	FreeDelivery    bool   `json:"freeDelivery"`
	CrossBorder     bool   `json:"crossBorder"`
	CategoryID      string `json:"categoryId"`
	ImageURL        string `json:"imageUrl"`
	ProductURL      string `json:"productUrl"`
	StoreName       string `json:"storeName"`
}

// EffectivePrice is the price a buyer actually pays: the discounted price
// when one exists, the plain sale price otherwise.
func (p Product) EffectivePrice() int {
	if p.DiscountedPrice > 0 {
		return p.DiscountedPrice
	}
	return p.SalePrice
}

// PriceRange is an inclusive price window. A non-positive bound leaves
// that side open.
type PriceRange struct {
	Min int
	Max int
}

// Contains reports whether price falls inside the range. Both bounds are
// inclusive.
func (r PriceRange) Contains(price int) bool {
	if r.Min > 0 && price < r.Min {
		return false
	}
	if r.Max > 0 && price > r.Max {
		return false
	}
	return true
}

// WorkItem is one unit of collection work handed down by the relay.
type WorkItem struct {
	ID          string
	TargetURL   string
	StoreName   string
	Platform    Platform
	Price       PriceRange
	IncludeBest bool
	IncludeNew  bool
}

// ExtractRequest carries the per-page parameters an extractor needs.
type ExtractRequest struct {
	URL         string
	StoreName   string
	Keyword     string
	Price       PriceRange
	IncludeBest bool
	IncludeNew  bool

	// FetchOnly asks the extractor to retrieve listing data without
	// rendering a full results page, used when the interactive surface
	// is blocked.
	FetchOnly bool
}

// Result holds the products one extraction produced plus an optional
// human-readable note about the page state.
type Result struct {
	Products []Product
	Message  string
}

// Extractor turns a marketplace page into products.
type Extractor interface {
	Platform() Platform
	Extract(ctx context.Context, tab *session.Tab, req ExtractRequest) (*Result, error)
}
