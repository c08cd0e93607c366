package services

import (
	"fmt"

	"printshop/internal/models"

	"github.com/shopspring/decimal"
)

// Surcharges per customization option. Options not listed cost nothing.
var (
	paperSurcharges = map[string]decimal.Decimal{
		"premium": decimal.NewFromInt(5),
		"photo":   decimal.NewFromInt(10),
	}
	finishSurcharges = map[string]decimal.Decimal{
		"glossy":    decimal.NewFromInt(3),
		"laminated": decimal.NewFromInt(8),
	}
	borderSurcharges = map[string]decimal.Decimal{
		"white": decimal.NewFromInt(2),
		"black": decimal.NewFromInt(2),
	}
)

// Price is the computed cost of an order.
type Price struct {
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
	Shipping  decimal.Decimal
	Total     decimal.Decimal
}

// PriceOrder computes unit price, subtotal, shipping and total. Shipping is a
// flat per-order amount taken from the product.
func PriceOrder(product *models.Product, quantity int, custom *models.Customizations) (Price, error) {
	if product == nil {
		return Price{}, ErrProductNotFound
	}
	if quantity <= 0 {
		return Price{}, fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}

	unit := product.Price
	if custom != nil {
		unit = unit.Add(surcharge(paperSurcharges, custom.PaperQuality)).
			Add(surcharge(finishSurcharges, custom.Finish)).
			Add(surcharge(borderSurcharges, custom.Border))
	}
	unit = unit.Round(2)
	subtotal := unit.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
	shipping := product.Shipping.Round(2)

	return Price{
		UnitPrice: unit,
		Subtotal:  subtotal,
		Shipping:  shipping,
		Total:     subtotal.Add(shipping),
	}, nil
}

func surcharge(table map[string]decimal.Decimal, option string) decimal.Decimal {
	if v, ok := table[option]; ok {
		return v
	}
	return decimal.Zero
}
