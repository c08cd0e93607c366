package repositories

import (
	"context"

	"printshop/internal/models"
)

// UserRepository defines the interface for user data access.
// Missing users are reported as a nil user and a nil error.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (string, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id string, changes models.UserChanges) error
	GetAllAdmins(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
}
