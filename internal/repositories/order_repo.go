package repositories

import (
	"context"

	"printshop/internal/models"
)

// OrderRepository defines the interface for order data access.
// Missing orders are reported as a nil order and a nil error.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) (string, error)
	CreateGuest(ctx context.Context, order *models.Order) (string, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	Update(ctx context.Context, id string, changes models.OrderChanges) error
	GetUserOrders(ctx context.Context, userID string) ([]models.Order, error)
	GetAll(ctx context.Context) ([]models.Order, error)
	GetGuestOrders(ctx context.Context) ([]models.Order, error)
	CountAll(ctx context.Context) (int64, error)
	CountGuest(ctx context.Context) (int64, error)
}
