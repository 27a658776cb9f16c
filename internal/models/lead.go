package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Contact is what a visitor types into the quote form.
type Contact struct {
	Name    string `json:"contact_name"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
	Notes   string `json:"notes"`
}

func (c Contact) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&c.Email, validation.Required, is.Email),
		validation.Field(&c.Company, validation.Length(0, 200)),
		validation.Field(&c.Phone, validation.Length(0, 50)),
		validation.Field(&c.Notes, validation.Length(0, 2000)),
	)
}

// Lead is appended to the ledger once and never modified.
type Lead struct {
	ID        string
	Contact   Contact
	Input     UserInput
	Products  []string
	Snapshot  string // recommendation set as JSON
	CreatedAt time.Time
}
