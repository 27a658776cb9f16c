package models

import "time"

// Session holds the recommendation state of one visitor between the
// recommend, lead and export steps.
type Session struct {
	ID        string             `json:"id"`
	Input     UserInput          `json:"input"`
	Set       *RecommendationSet `json:"set,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}
