package naver

import (
	"fmt"
	"strings"

	json "github.com/json-iterator/go"

	"github.com/jaeho-dev/marketscout/internal/market"
)

// Widget identifiers found in the embedded store state. Each listing
// section the storefront renders hangs off one of these keys.
const (
	widgetWholeProduct    = "WHOLE_PRODUCT"
	widgetCategoryProduct = "CATEGORY_PRODUCT"
	widgetBestRealtime    = "BEST_PRODUCT_REALTIME"
	widgetBestDaily       = "BEST_PRODUCT_DAILY"
	widgetBestWeekly      = "BEST_PRODUCT_WEEKLY"
	widgetBestMonthly     = "BEST_PRODUCT_MONTHLY"
	widgetNewProduct      = "NEW_PRODUCT"
	widgetReviewProduct   = "REVIEW_PRODUCT"
)

type preloadedState struct {
	Category struct {
		Tree map[string]categoryNode `json:"categoryTree"`
	} `json:"category"`
	Widgets map[string]widgetContent `json:"widgetContents"`
}

type categoryNode struct {
	Name string `json:"name"`
}

type widgetContent struct {
	Products []storeProduct `json:"simpleProducts"`
}

type storeProduct struct {
	ProductNo string `json:"productNo"`
	Name      string `json:"name"`
	SalePrice int    `json:"salePrice"`
	Benefits  struct {
		DiscountedSalePrice int `json:"discountedSalePrice"`
		DiscountedRatio     int `json:"discountedRatio"`
	} `json:"benefitsView"`
	Delivery struct {
		BaseFee int  `json:"baseFee"`
		Free    bool `json:"freeDelivery"`
	} `json:"productDeliveryInfo"`
	Category struct {
		CategoryID string `json:"categoryId"`
	} `json:"category"`
	RepresentativeImageURL string `json:"representativeImageUrl"`
}

// widgetAllowList builds the set of listing sections the request wants.
// The whole-product and category sections always participate; best and
// new sections join only when the work item opted in.
func widgetAllowList(req market.ExtractRequest) map[string]bool {
	allow := map[string]bool{
		widgetWholeProduct:    true,
		widgetCategoryProduct: true,
	}
	if req.IncludeBest {
		allow[widgetBestRealtime] = true
		allow[widgetBestDaily] = true
		allow[widgetBestWeekly] = true
		allow[widgetBestMonthly] = true
	}
	if req.IncludeNew {
		allow[widgetNewProduct] = true
	}
	return allow
}

// ParsePreloadedState decodes the storefront state blob and returns the
// listings matching the request's sections, price window and keyword.
//
// A store with an empty category tree has suspended operations; that is
// reported as an empty result with an explanatory message, not an error.
func ParsePreloadedState(raw []byte, req market.ExtractRequest) (*market.Result, error) {
	if len(raw) == 0 || strings.TrimSpace(string(raw)) == "null" {
		return nil, &market.ExtractionError{
			Platform: market.PlatformNaver,
			Reason:   "page rendered without store state",
			Err:      market.ErrNoStateBlob,
		}
	}

	var state preloadedState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, &market.ExtractionError{
			Platform: market.PlatformNaver,
			Reason:   "malformed store state",
			Err:      err,
		}
	}

	if len(state.Category.Tree) == 0 {
		return &market.Result{Message: "store not operating"}, nil
	}

	allow := widgetAllowList(req)
	var products []market.Product
	for id, widget := range state.Widgets {
		if !allow[id] {
			continue
		}
		for _, sp := range widget.Products {
			if sp.ProductNo == "" || strings.TrimSpace(sp.Name) == "" {
				continue
			}
			products = append(products, market.Product{
				Code:            sp.ProductNo,
				Name:            sp.Name,
				SalePrice:       sp.SalePrice,
				DiscountedPrice: sp.Benefits.DiscountedSalePrice,
				DiscountRate:    sp.Benefits.DiscountedRatio,
				DeliveryFee:     sp.Delivery.BaseFee,
				FreeDelivery:    sp.Delivery.Free || sp.Delivery.BaseFee == 0,
				CategoryID:      sp.Category.CategoryID,
				ImageURL:        sp.RepresentativeImageURL,
				ProductURL:      productURL(req.StoreName, sp.ProductNo),
				StoreName:       req.StoreName,
			})
		}
	}

	products = market.Dedupe(products)
	products = market.FilterByPrice(products, req.Price)
	products = market.FilterByName(products, req.Keyword)

	return &market.Result{Products: products}, nil
}

func productURL(store, productNo string) string {
	return fmt.Sprintf("https://smartstore.naver.com/%s/products/%s", store, productNo)
}
