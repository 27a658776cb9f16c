package models

// ProductRecommendation is parsed from the model response. ProductURL and
// ImageURL are empty until the resolver fills them; empty means unresolved.
type ProductRecommendation struct {
	Name       string   `json:"name"`
	Summary    string   `json:"summary"`
	ProductURL string   `json:"product_url,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
	Price      string   `json:"price"`
	WhyFit     []string `json:"why_fit"`
}

type RecommendationSet struct {
	Rationale string                  `json:"rationale"`
	Products  []ProductRecommendation `json:"products"`
}

const (
	MinProducts = 2
	MaxProducts = 4
)

// ProductNames returns product names in recommendation order.
func (s *RecommendationSet) ProductNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Products))
	for _, p := range s.Products {
		names = append(names, p.Name)
	}
	return names
}

func (s *RecommendationSet) Empty() bool {
	return s == nil || len(s.Products) == 0
}
