package repositories

import (
	"printshop/internal/models"

	"github.com/shopspring/decimal"
)

// CatalogProductRepository serves the fixed print catalog from memory.
type CatalogProductRepository struct {
	products []models.Product
	byID     map[string]int
}

// NewCatalogProductRepository creates a repository over the given products.
func NewCatalogProductRepository(products []models.Product) *CatalogProductRepository {
	byID := make(map[string]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}
	return &CatalogProductRepository{products: products, byID: byID}
}

// NewDefaultCatalog returns the shop's three boarding-pass print sizes.
func NewDefaultCatalog() *CatalogProductRepository {
	return NewCatalogProductRepository([]models.Product{
		{
			ID:          "boarding-pass-small",
			Name:        "Small Boarding Pass Print",
			Description: `High-quality boarding pass print in small size (8.5" x 3.5")`,
			Price:       decimal.RequireFromString("15.99"),
			Shipping:    decimal.RequireFromString("5.99"),
			Size:        `Small (8.5" x 3.5")`,
			Image:       "/images/boarding-pass-small.jpg",
		},
		{
			ID:          "boarding-pass-medium",
			Name:        "Medium Boarding Pass Print",
			Description: `High-quality boarding pass print in medium size (11" x 4.25")`,
			Price:       decimal.RequireFromString("24.99"),
			Shipping:    decimal.RequireFromString("7.99"),
			Size:        `Medium (11" x 4.25")`,
			Image:       "/images/boarding-pass-medium.jpg",
		},
		{
			ID:          "boarding-pass-large",
			Name:        "Large Boarding Pass Print",
			Description: `High-quality boarding pass print in large size (16" x 6")`,
			Price:       decimal.RequireFromString("34.99"),
			Shipping:    decimal.RequireFromString("9.99"),
			Size:        `Large (16" x 6")`,
			Image:       "/images/boarding-pass-large.jpg",
		},
	})
}

// GetAll returns all products in catalog order.
func (r *CatalogProductRepository) GetAll() ([]models.Product, error) {
	return append([]models.Product(nil), r.products...), nil
}

// GetByID returns a product by its ID, or nil when the catalog has no such product.
func (r *CatalogProductRepository) GetByID(id string) (*models.Product, error) {
	i, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	product := r.products[i]
	return &product, nil
}
