package middleware_test

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"os"
	"testing"

	"printshop/internal/middleware"
	"printshop/internal/models"
	"printshop/internal/repositories"
	"printshop/internal/services"
	"printshop/pkg/docstore"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type env struct {
	app   *fiber.App
	users *repositories.DocstoreUserRepository
	auth  *services.AuthService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	users := repositories.NewDocstoreUserRepository(docstore.NewMemoryStore())
	auth := services.NewAuthService(users, "test_secret", 0, 0)
	app := fiber.New()

	whoami := func(c *fiber.Ctx) error {
		actor, ok := middleware.ActorFrom(c)
		if !ok {
			return c.SendString("guest")
		}
		return c.SendString(actor.UserID)
	}
	app.Get("/me", middleware.AuthRequired(auth), whoami)
	app.Get("/maybe", middleware.OptionalAuth(auth), whoami)
	app.Get("/admin", middleware.AuthRequired(auth), middleware.AdminRequired(), whoami)
	app.Get("/orders", middleware.AuthRequired(auth), middleware.RequirePermission("orders"), whoami)
	return &env{app: app, users: users, auth: auth}
}

// login registers email, applies changes and returns the user id and a token.
func (e *env) login(t *testing.T, email string, changes models.UserChanges) (string, string) {
	t.Helper()
	ctx := context.Background()
	_, err := e.auth.Register(ctx, services.RegisterInput{Email: email, Password: "password123"})
	require.NoError(t, err)
	user, err := e.users.GetByEmail(ctx, email)
	require.NoError(t, err)
	require.NoError(t, e.users.Update(ctx, user.ID, changes))

	token, _, err := e.auth.Login(ctx, email, "password123")
	require.NoError(t, err)
	return user.ID, token
}

func (e *env) call(t *testing.T, path, header string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t)
	userID, token := e.login(t, "ada@example.com", models.UserChanges{})

	status, body := e.call(t, "/me", "Bearer "+token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, userID, body)

	status, _ = e.call(t, "/me", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	status, body = e.call(t, "/me", token)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Contains(t, body, "Bearer <token>")
	status, _ = e.call(t, "/me", "Bearer not-a-token")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestOptionalAuth(t *testing.T) {
	e := newEnv(t)
	userID, token := e.login(t, "ada@example.com", models.UserChanges{})

	_, body := e.call(t, "/maybe", "")
	assert.Equal(t, "guest", body)
	_, body = e.call(t, "/maybe", "Bearer "+token)
	assert.Equal(t, userID, body)
	status, _ := e.call(t, "/maybe", "Bearer garbage")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAdminAndPermissionGates(t *testing.T) {
	e := newEnv(t)
	admin := models.RoleAdmin
	_, customerToken := e.login(t, "c@example.com", models.UserChanges{})
	_, opsToken := e.login(t, "ops@example.com", models.UserChanges{Role: &admin, Permissions: models.NewPermissionSet("orders")})
	_, supportToken := e.login(t, "support@example.com", models.UserChanges{Role: &admin, Permissions: models.NewPermissionSet("users")})
	_, rootToken := e.login(t, "root@example.com", models.UserChanges{Role: &admin, Permissions: models.NewPermissionSet(models.PermissionSuperAdmin)})

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"customer is not admin", "/admin", customerToken, fiber.StatusForbidden},
		{"admin passes", "/admin", opsToken, fiber.StatusOK},
		{"permission held", "/orders", opsToken, fiber.StatusOK},
		{"permission missing", "/orders", supportToken, fiber.StatusForbidden},
		{"super admin holds everything", "/orders", rootToken, fiber.StatusOK},
		{"customer lacks permission", "/orders", customerToken, fiber.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := e.call(t, tt.path, "Bearer "+tt.token)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestRevocationAppliesImmediately(t *testing.T) {
	e := newEnv(t)
	admin := models.RoleAdmin
	userID, token := e.login(t, "ops@example.com", models.UserChanges{Role: &admin, Permissions: models.NewPermissionSet("orders")})

	status, _ := e.call(t, "/orders", "Bearer "+token)
	require.Equal(t, fiber.StatusOK, status)

	require.NoError(t, e.users.Update(context.Background(), userID, models.UserChanges{Permissions: models.NewPermissionSet("users")}))
	status, _ = e.call(t, "/orders", "Bearer "+token)
	assert.Equal(t, fiber.StatusForbidden, status)

	inactive := false
	require.NoError(t, e.users.Update(context.Background(), userID, models.UserChanges{IsActive: &inactive}))
	status, body := e.call(t, "/me", "Bearer "+token)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Contains(t, body, "deactivated")
}
