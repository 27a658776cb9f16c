package models

// Strategy tiers that can produce a product URL.
const (
	TierCatalogPath = "catalog-path"
	TierSiteSearch  = "site-search"
	TierWebSearch   = "web-search"
	TierNone        = "none"
)

// Resolution is the catalog location found for one product name. Empty
// fields mean nothing was found; a miss is never an error.
type Resolution struct {
	ProductURL string `json:"product_url"`
	ImageURL   string `json:"image_url"`
	Tier       string `json:"tier"`
}

func (r Resolution) Miss() bool {
	return r.ProductURL == ""
}
