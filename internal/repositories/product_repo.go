package repositories

import (
	"printshop/internal/models"
)

// ProductRepository defines the interface for product data access.
// The catalog is read-only.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
}
