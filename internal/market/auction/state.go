package auction

import (
	"regexp"
	"strconv"
	"strings"

	json "github.com/json-iterator/go"

	"github.com/jaeho-dev/marketscout/internal/market"
)

// Card types that carry a real listing. Anything else in a row is an ad
// slot, a banner or a layout shim.
var listingCardTypes = map[string]bool{
	"ItemCard":        true,
	"BigItemCard":     true,
	"GalleryItemCard": true,
}

const overseasBadge = "OVERSEAS"

type searchState struct {
	Regions map[string][]regionModule `json:"regions"`
}

type regionModule struct {
	Rows []moduleRow `json:"rows"`
}

type moduleRow struct {
	Type string   `json:"type"`
	Item listItem `json:"item"`
}

type listItem struct {
	ItemNo string `json:"itemNo"`
	Title  string `json:"title"`
	Price  struct {
		BinPrice      int `json:"binPrice"`
		DiscountPrice int `json:"discountPrice"`
		DiscountRate  int `json:"discountRate"`
	} `json:"price"`
	SellCount int `json:"sellCount"`
	Delivery  struct {
		Free    bool   `json:"isFree"`
		FeeText string `json:"feeText"`
		Tag     string `json:"tag"`
	} `json:"delivery"`
	Seller struct {
		Badge string `json:"badge"`
	} `json:"seller"`
	ImageURL     string `json:"imageUrl"`
	LandingURL   string `json:"landingUrl"`
	CategoryCode string `json:"categoryCode"`
}

// feePattern matches the first thousands-grouped amount inside a
// delivery fee label such as "배송비 3,000원".
var feePattern = regexp.MustCompile(`\d{1,3}(?:,\d{3})*`)

// deliveryFee resolves the fee through three tiers: the free flag wins
// outright, then the tagged fee string, then the legacy tag. An amount
// that cannot be read parses as zero.
func deliveryFee(item listItem) (fee int, free bool) {
	if item.Delivery.Free {
		return 0, true
	}
	if f, ok := feeFromLabel(item.Delivery.FeeText); ok {
		return f, f == 0
	}
	if f, ok := feeFromLabel(item.Delivery.Tag); ok {
		return f, f == 0
	}
	return 0, false
}

func feeFromLabel(label string) (int, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, false
	}
	if strings.Contains(label, "무료") {
		return 0, true
	}
	m := feePattern.FindString(label)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseSearchState decodes the search-results state blob and returns the
// listings that represent live products inside the request's price
// window. Only recognized card types with at least one recorded sale
// survive.
func ParseSearchState(raw []byte, req market.ExtractRequest) (*market.Result, error) {
	if len(raw) == 0 || strings.TrimSpace(string(raw)) == "null" {
		return nil, &market.ExtractionError{
			Platform: market.PlatformAuction,
			Reason:   "page rendered without search state",
			Err:      market.ErrNoStateBlob,
		}
	}

	var state searchState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, &market.ExtractionError{
			Platform: market.PlatformAuction,
			Reason:   "malformed search state",
			Err:      err,
		}
	}

	var products []market.Product
	for _, modules := range state.Regions {
		for _, mod := range modules {
			for _, row := range mod.Rows {
				if !listingCardTypes[row.Type] {
					continue
				}
				item := row.Item
				if item.ItemNo == "" || item.SellCount <= 0 {
					continue
				}
				fee, free := deliveryFee(item)
				products = append(products, market.Product{
					Code:            item.ItemNo,
					Name:            item.Title,
					SalePrice:       item.Price.BinPrice,
					DiscountedPrice: item.Price.DiscountPrice,
					DiscountRate:    item.Price.DiscountRate,
					DeliveryFee:     fee,
					FreeDelivery:    free,
					CrossBorder:     item.Seller.Badge == overseasBadge,
					CategoryID:      item.CategoryCode,
					ImageURL:        item.ImageURL,
					ProductURL:      item.LandingURL,
					StoreName:       req.StoreName,
				})
			}
		}
	}

	products = market.Dedupe(products)
	products = market.FilterByPrice(products, req.Price)
	products = market.FilterByName(products, req.Keyword)

	return &market.Result{Products: products}, nil
}
