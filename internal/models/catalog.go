package models

import "fmt"

// CurrencySymbol prefixes every rendered price.
const CurrencySymbol = "R$"

type Professional struct {
	ID        int64  `yaml:"id" json:"id"`
	Name      string `yaml:"name" json:"name"`
	Specialty string `yaml:"specialty" json:"specialty"`
	AvatarURL string `yaml:"avatar_url" json:"avatar_url,omitempty"`
	IsActive  bool   `yaml:"is_active" json:"is_active"`
}

type Service struct {
	ID              int64  `yaml:"id" json:"id"`
	Name            string `yaml:"name" json:"name"`
	Description     string `yaml:"description" json:"description,omitempty"`
	DurationMinutes int    `yaml:"duration_minutes" json:"duration_minutes"`
	PriceCents      int64  `yaml:"price_cents" json:"price_cents"`
	ProfessionalID  int64  `yaml:"professional_id" json:"professional_id"`
	IsActive        bool   `yaml:"is_active" json:"is_active"`
}

// Catalog is the seed document for professionals and their services.
type Catalog struct {
	Professionals []Professional `yaml:"professionals"`
	Services      []Service      `yaml:"services"`
}

func (s Service) PriceLabel() string {
	return FormatPrice(s.PriceCents)
}

func (s Service) DurationLabel() string {
	return fmt.Sprintf("%d min", s.DurationMinutes)
}

// FormatPrice renders cents as "R$ 45,00".
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s %d,%02d", sign, CurrencySymbol, cents/100, cents%100)
}
