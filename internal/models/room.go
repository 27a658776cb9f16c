package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type RoomType string

const (
	RoomTypeHuddle RoomType = "Huddle"
	RoomTypeSmall  RoomType = "Small"
	RoomTypeMedium RoomType = "Medium"
	RoomTypeLarge  RoomType = "Large"
)

type Platform string

const (
	PlatformTeams Platform = "Teams"
	PlatformZoom  Platform = "Zoom"
	PlatformAudio Platform = "Audio"
	PlatformOther Platform = "Other"
)

// MaxNeedsLength bounds the free-text needs forwarded to the model.
const MaxNeedsLength = 2000

// UserInput is captured once per recommendation request and not mutated afterwards.
type UserInput struct {
	RoomType  RoomType `json:"room_type"`
	Platform  Platform `json:"platform"`
	NeedsText string   `json:"needs_text"`
}

func (in UserInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.RoomType, validation.Required,
			validation.In(RoomTypeHuddle, RoomTypeSmall, RoomTypeMedium, RoomTypeLarge)),
		validation.Field(&in.Platform, validation.Required,
			validation.In(PlatformTeams, PlatformZoom, PlatformAudio, PlatformOther)),
		validation.Field(&in.NeedsText, validation.Length(0, MaxNeedsLength)),
	)
}
