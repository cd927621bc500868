// Package settings owns the single company profile used on documents and the dashboard.
package settings

import "time"

// DefaultTradeName is shown until the profile is saved for the first time.
const DefaultTradeName = "Grafica"

// Company is the company profile. Exactly one row exists.
type Company struct {
	TradeName       string    `json:"trade_name" validate:"required,max=120"`
	LegalName       string    `json:"legal_name" validate:"max=200"`
	CNPJ            string    `json:"cnpj"`
	Email           string    `json:"email" validate:"omitempty,email"`
	WhatsApp        string    `json:"whatsapp"`
	Instagram       string    `json:"instagram"`
	Website         string    `json:"website" validate:"omitempty,url"`
	PostalCode      string    `json:"postal_code"`
	Street          string    `json:"street"`
	Number          string    `json:"number"`
	District        string    `json:"district"`
	Complement      string    `json:"complement"`
	City            string    `json:"city"`
	State           string    `json:"state" validate:"omitempty,len=2"`
	LogoLargeURL    string    `json:"logo_large_url" validate:"omitempty,url"`
	LogoSmallURL    string    `json:"logo_small_url" validate:"omitempty,url"`
	LogoDocumentURL string    `json:"logo_document_url" validate:"omitempty,url"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Public is the subset exposed without authentication.
type Public struct {
	TradeName    string `json:"trade_name"`
	LogoLargeURL string `json:"logo_large_url"`
}

// Defaults returns the profile used before anything is stored.
func Defaults() Company {
	return Company{TradeName: DefaultTradeName}
}

// Public returns the unauthenticated view of the profile.
func (c Company) Public() Public {
	return Public{TradeName: c.TradeName, LogoLargeURL: c.LogoLargeURL}
}
