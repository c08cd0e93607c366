package models

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Role separates customers from administrators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// PermissionSuperAdmin grants every permission and protects its holder from
// being edited through normal admin operations.
const PermissionSuperAdmin = "super_admin"

// PermissionSet is a set of permission names. It is encoded as a sorted JSON array.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from names, ignoring blanks.
func NewPermissionSet(names ...string) PermissionSet {
	set := make(PermissionSet, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

// IsSuperAdmin reports whether the set holds the super admin sentinel.
func (p PermissionSet) IsSuperAdmin() bool {
	_, ok := p[PermissionSuperAdmin]
	return ok
}

// Has reports whether the set grants name. super_admin grants everything.
func (p PermissionSet) Has(name string) bool {
	if p.IsSuperAdmin() {
		return true
	}
	_, ok := p[name]
	return ok
}

// List returns the permissions sorted by name.
func (p PermissionSet) List() []string {
	out := make([]string, 0, len(p))
	for name := range p {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (p PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.List())
}

func (p *PermissionSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*p = NewPermissionSet(names...)
	return nil
}

// User represents a registered customer or an administrator.
type User struct {
	ID          string        `json:"id"`
	Email       string        `json:"email"`
	Password    string        `json:"-"` // bcrypt hash, never serialized
	FirstName   string        `json:"firstName"`
	LastName    string        `json:"lastName"`
	Role        Role          `json:"role"`
	Permissions PermissionSet `json:"permissions"`
	IsActive    bool          `json:"isActive"`
	LastLogin   *time.Time    `json:"lastLogin,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserChanges is a partial update. Nil fields are left untouched.
type UserChanges struct {
	FirstName   *string
	LastName    *string
	Role        *Role
	Permissions PermissionSet
	IsActive    *bool
	LastLogin   *time.Time
}

// UserSummary is the projection of a user exposed next to orders.
type UserSummary struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Summary strips everything but identity and name.
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

// Actor is the authenticated caller handed to the core by the auth layer.
type Actor struct {
	UserID      string
	Email       string
	Role        Role
	Permissions PermissionSet
	IsActive    bool
}

// IsAdmin reports whether the actor is an active administrator.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin && a.IsActive
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
