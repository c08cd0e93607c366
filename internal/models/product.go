package models

import "github.com/shopspring/decimal"

// Product is a printable item from the static catalog.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Shipping    decimal.Decimal `json:"shipping"` // Flat shipping cost per order
	Size        string          `json:"size"`
	Image       string          `json:"image"`
}
