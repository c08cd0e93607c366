package services

import (
	"context"
	"fmt"
	"log"

	"printshop/internal/models"
)

// DefaultAdminPermissions are granted to new admins when none are given.
var DefaultAdminPermissions = []string{"orders", "users", "settings"}

// NewAdmin is the input of CreateAdmin.
type NewAdmin struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Permissions []string
}

func requireSuperAdmin(caller models.Actor) error {
	if !caller.IsAdmin() || !caller.Permissions.IsSuperAdmin() {
		return ErrPermissionDenied
	}
	return nil
}

// CreateAdmin adds an active admin account. Only super admins may call it and
// the super admin permission cannot be handed out.
func (s *AdminService) CreateAdmin(ctx context.Context, caller models.Actor, input NewAdmin) (*models.User, error) {
	if err := requireSuperAdmin(caller); err != nil {
		return nil, err
	}
	perms := models.NewPermissionSet(input.Permissions...)
	if len(perms) == 0 {
		perms = models.NewPermissionSet(DefaultAdminPermissions...)
	}
	if perms.IsSuperAdmin() {
		return nil, ErrSuperAdminProtected
	}

	existing, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrEmailTaken, models.NormalizeEmail(input.Email))
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	admin := &models.User{
		Email:       input.Email,
		Password:    hash,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Role:        models.RoleAdmin,
		Permissions: perms,
		IsActive:    true,
	}
	if _, err := s.userRepo.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	admin.Password = ""
	return admin, nil
}

// ListAdmins returns every admin account without password hashes.
func (s *AdminService) ListAdmins(ctx context.Context, caller models.Actor) ([]models.User, error) {
	if err := requireSuperAdmin(caller); err != nil {
		return nil, err
	}
	return s.userRepo.GetAllAdmins(ctx)
}

// UpdatePermissions replaces the permissions of an admin.
func (s *AdminService) UpdatePermissions(ctx context.Context, caller models.Actor, adminID string, permissions []string) (*models.User, error) {
	if err := requireSuperAdmin(caller); err != nil {
		return nil, err
	}
	perms := models.NewPermissionSet(permissions...)
	if perms.IsSuperAdmin() {
		return nil, ErrSuperAdminProtected
	}
	target, err := s.editableAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, target.ID, models.UserChanges{Permissions: perms}); err != nil {
		return nil, fmt.Errorf("failed to update permissions of %s: %w", target.ID, err)
	}
	target.Permissions = perms
	return target, nil
}

// Deactivate disables an admin account. Super admins and the caller's own
// account are refused.
func (s *AdminService) Deactivate(ctx context.Context, caller models.Actor, adminID string) error {
	if err := requireSuperAdmin(caller); err != nil {
		return err
	}
	if adminID == caller.UserID {
		return ErrSelfDeactivation
	}
	return s.setActive(ctx, adminID, false)
}

// Activate re-enables an admin account.
func (s *AdminService) Activate(ctx context.Context, caller models.Actor, adminID string) error {
	if err := requireSuperAdmin(caller); err != nil {
		return err
	}
	return s.setActive(ctx, adminID, true)
}

func (s *AdminService) setActive(ctx context.Context, adminID string, active bool) error {
	target, err := s.editableAdmin(ctx, adminID)
	if err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, target.ID, models.UserChanges{IsActive: &active}); err != nil {
		return fmt.Errorf("failed to update admin %s: %w", target.ID, err)
	}
	return nil
}

// editableAdmin loads an admin that normal admin operations may modify.
func (s *AdminService) editableAdmin(ctx context.Context, adminID string) (*models.User, error) {
	target, err := s.userRepo.GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if target == nil || target.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, adminID)
	}
	if target.Permissions.IsSuperAdmin() {
		return nil, ErrSuperAdminProtected
	}
	target.Password = ""
	return target, nil
}

// EnsureSuperAdmin creates the super admin account on first start. It does
// nothing when email is empty or the account already exists.
func (s *AdminService) EnsureSuperAdmin(ctx context.Context, email, password, firstName, lastName string) error {
	if email == "" {
		return nil
	}
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up super admin: %w", err)
	}
	if existing != nil {
		if !existing.Permissions.IsSuperAdmin() {
			log.Printf("Warning: %s exists but does not hold %s", existing.Email, models.PermissionSuperAdmin)
		}
		return nil
	}
	if password == "" {
		return fmt.Errorf("super admin password is required to create %s", email)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	_, err = s.userRepo.Create(ctx, &models.User{
		Email:       email,
		Password:    hash,
		FirstName:   firstName,
		LastName:    lastName,
		Role:        models.RoleAdmin,
		Permissions: models.NewPermissionSet(models.PermissionSuperAdmin),
		IsActive:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to create super admin: %w", err)
	}
	log.Printf("Created super admin %s", models.NormalizeEmail(email))
	return nil
}
