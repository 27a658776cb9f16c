package dto

import "room-advisor/internal/models"

type RecommendationRequest struct {
	RoomType  string `json:"room_type" example:"Small"`
	Platform  string `json:"platform" example:"Teams"`
	NeedsText string `json:"needs_text" example:"dual displays, ceiling mic"`
}

func (r RecommendationRequest) ToInput() models.UserInput {
	return models.UserInput{
		RoomType:  models.RoomType(r.RoomType),
		Platform:  models.Platform(r.Platform),
		NeedsText: r.NeedsText,
	}
}

type ProductResponse struct {
	Name            string   `json:"name"`
	Summary         string   `json:"summary"`
	ProductURL      *string  `json:"product_url"`
	ImageURL        *string  `json:"image_url"`
	DisplayImageURL string   `json:"display_image_url"`
	Price           string   `json:"price"`
	WhyFit          []string `json:"why_fit"`
}

type RecommendationResponse struct {
	SessionID string            `json:"session_id"`
	Input     InputResponse     `json:"input"`
	Rationale string            `json:"rationale"`
	Products  []ProductResponse `json:"products"`
}

type InputResponse struct {
	RoomType  string `json:"room_type"`
	Platform  string `json:"platform"`
	NeedsText string `json:"needs_text"`
}

// NewRecommendationResponse converts a set for the browser. Unresolved
// URLs are null; products without an image display placeholderURL.
func NewRecommendationResponse(sessionID string, input models.UserInput, set *models.RecommendationSet, placeholderURL string) RecommendationResponse {
	resp := RecommendationResponse{
		SessionID: sessionID,
		Input: InputResponse{
			RoomType:  string(input.RoomType),
			Platform:  string(input.Platform),
			NeedsText: input.NeedsText,
		},
		Products: []ProductResponse{},
	}
	if set == nil {
		return resp
	}

	resp.Rationale = set.Rationale
	for _, p := range set.Products {
		item := ProductResponse{
			Name:            p.Name,
			Summary:         p.Summary,
			DisplayImageURL: placeholderURL,
			Price:           p.Price,
			WhyFit:          p.WhyFit,
		}
		if item.Price == "" {
			item.Price = "Request quote"
		}
		if item.WhyFit == nil {
			item.WhyFit = []string{}
		}
		if p.ProductURL != "" {
			u := p.ProductURL
			item.ProductURL = &u
		}
		if p.ImageURL != "" {
			u := p.ImageURL
			item.ImageURL = &u
			item.DisplayImageURL = u
		}
		resp.Products = append(resp.Products, item)
	}
	return resp
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}
