package repositories

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"printshop/internal/models"
	"printshop/pkg/docstore"
)

const (
	usersSet      = "users"
	emailIndexKey = "users:by_email"
)

func userKey(id string) string {
	if strings.HasPrefix(id, "user:") {
		return id
	}
	return "user:" + id
}

// DocstoreUserRepository stores users as field-maps in a docstore.Store.
type DocstoreUserRepository struct {
	store docstore.Store
	now   func() time.Time
}

// NewDocstoreUserRepository creates a new DocstoreUserRepository.
func NewDocstoreUserRepository(store docstore.Store) *DocstoreUserRepository {
	return NewDocstoreUserRepositoryWithClock(store, time.Now)
}

// NewDocstoreUserRepositoryWithClock creates a repository that stamps times from now.
func NewDocstoreUserRepositoryWithClock(store docstore.Store, now func() time.Time) *DocstoreUserRepository {
	return &DocstoreUserRepository{store: store, now: now}
}

// Create writes a new user, adds it to the "users" set and records its email
// in the email index.
func (r *DocstoreUserRepository) Create(ctx context.Context, user *models.User) (string, error) {
	now := r.now()
	if user.ID == "" {
		user.ID = newID("user", now)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.Email = models.NormalizeEmail(user.Email)

	fields, err := userToFields(user)
	if err != nil {
		return "", fmt.Errorf("failed to encode user: %w", err)
	}
	if err := r.store.WriteIndexed(ctx, userKey(user.ID), fields, user.ID, usersSet); err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}
	if err := r.store.WriteFields(ctx, emailIndexKey, map[string]string{user.Email: user.ID}); err != nil {
		return "", fmt.Errorf("failed to index user email: %w", err)
	}
	return user.ID, nil
}

// GetByID loads a user, or returns nil when it does not exist.
func (r *DocstoreUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	fields, err := r.store.ReadFields(ctx, userKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return userFromFields(id, fields), nil
}

// GetByEmail resolves a user through the email index, falling back to a full
// scan of the "users" set for records written without an index entry.
func (r *DocstoreUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)

	index, err := r.store.ReadFields(ctx, emailIndexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read email index: %w", err)
	}
	if id, ok := index[email]; ok {
		user, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if user != nil && user.Email == email {
			return user, nil
		}
	}

	ids, err := r.store.ListSet(ctx, usersSet)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	for _, id := range ids {
		user, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if user != nil && user.Email == email {
			return user, nil
		}
	}
	return nil, nil
}

// Update merges changes into the stored user.
func (r *DocstoreUserRepository) Update(ctx context.Context, id string, changes models.UserChanges) error {
	fields, err := userChangesToFields(changes)
	if err != nil {
		return fmt.Errorf("failed to encode user changes: %w", err)
	}
	if len(fields) == 0 {
		return nil
	}
	if err := r.store.WriteFields(ctx, userKey(id), fields); err != nil {
		return fmt.Errorf("failed to update user %s: %w", id, err)
	}
	return nil
}

// GetAllAdmins returns every admin user with the password hash stripped.
func (r *DocstoreUserRepository) GetAllAdmins(ctx context.Context) ([]models.User, error) {
	ids, err := r.store.ListSet(ctx, usersSet)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	var admins []models.User
	for _, id := range ids {
		user, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if user == nil || user.Role != models.RoleAdmin {
			continue
		}
		user.Password = ""
		admins = append(admins, *user)
	}
	return admins, nil
}

// Count returns the cardinality of the "users" set.
func (r *DocstoreUserRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.store.SetCardinality(ctx, usersSet)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func userToFields(u *models.User) (map[string]string, error) {
	perms, err := encodeJSON(u.Permissions.List())
	if err != nil {
		return nil, err
	}
	fields := map[string]string{
		"id":          u.ID,
		"email":       u.Email,
		"password":    u.Password,
		"firstName":   u.FirstName,
		"lastName":    u.LastName,
		"role":        string(u.Role),
		"permissions": perms,
		"isActive":    strconv.FormatBool(u.IsActive),
		"createdAt":   formatTime(u.CreatedAt),
	}
	setTime(fields, "lastLogin", u.LastLogin)
	return fields, nil
}

func userFromFields(id string, f map[string]string) *models.User {
	u := &models.User{
		ID:        f["id"],
		Email:     models.NormalizeEmail(f["email"]),
		Password:  f["password"],
		FirstName: f["firstName"],
		LastName:  f["lastName"],
		Role:      models.Role(f["role"]),
		IsActive:  true,
		LastLogin: parseTimePtr(f["lastLogin"]),
		CreatedAt: parseTime(f["createdAt"]),
	}
	if u.ID == "" {
		u.ID = strings.TrimPrefix(id, "user:")
	}
	if v, ok := f["isActive"]; ok {
		u.IsActive = parseBool(v)
	}
	var perms []string
	decodeJSON(f["permissions"], &perms)
	u.Permissions = models.NewPermissionSet(perms...)
	return u
}

func userChangesToFields(c models.UserChanges) (map[string]string, error) {
	fields := make(map[string]string)
	if c.FirstName != nil {
		fields["firstName"] = *c.FirstName
	}
	if c.LastName != nil {
		fields["lastName"] = *c.LastName
	}
	if c.Role != nil {
		fields["role"] = string(*c.Role)
	}
	if c.Permissions != nil {
		perms, err := encodeJSON(c.Permissions.List())
		if err != nil {
			return nil, err
		}
		fields["permissions"] = perms
	}
	if c.IsActive != nil {
		fields["isActive"] = strconv.FormatBool(*c.IsActive)
	}
	setTime(fields, "lastLogin", c.LastLogin)
	return fields, nil
}
