package dto

import "room-advisor/internal/models"

type LeadRequest struct {
	ContactName string `json:"contact_name" example:"Jane Doe"`
	Email       string `json:"email" example:"jane@example.com"`
	Company     string `json:"company"`
	Phone       string `json:"phone"`
	Notes       string `json:"notes"`
}

func (r LeadRequest) ToContact() models.Contact {
	return models.Contact{
		Name:    r.ContactName,
		Email:   r.Email,
		Company: r.Company,
		Phone:   r.Phone,
		Notes:   r.Notes,
	}
}

type LeadResponse struct {
	LeadID  string `json:"lead_id"`
	Message string `json:"message"`
}

type LeadCountResponse struct {
	Count int `json:"count"`
}
