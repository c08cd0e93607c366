package middleware

import (
	"errors"
	"log"
	"strings"

	"printshop/internal/models"
	"printshop/internal/services"

	"github.com/gofiber/fiber/v2"
)

const actorKey = "actor"

// ActorFrom returns the caller stored by AuthRequired or OptionalAuth.
func ActorFrom(c *fiber.Ctx) (models.Actor, bool) {
	actor, ok := c.Locals(actorKey).(models.Actor)
	return actor, ok
}

// authenticate resolves the bearer token into an actor. It writes the error
// response itself and reports whether the chain may continue.
func authenticate(c *fiber.Ctx, authService *services.AuthService, authHeader string) (bool, error) {
	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") {
		return false, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authorization header format must be 'Bearer <token>'",
		})
	}

	claims, err := authService.ValidateToken(parts[1])
	if err != nil {
		log.Printf("JWT validation failed: %v", err)
		return false, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid or expired token",
			"error":   err.Error(),
		})
	}

	actor, err := authService.Identity(c.UserContext(), claims)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) || errors.Is(err, services.ErrInvalidCredentials) {
			return false, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}
		log.Printf("Failed to resolve identity: %v", err)
		return false, c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "Failed to resolve identity",
			"error":   err.Error(),
		})
	}
	if !actor.IsActive {
		return false, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Account is deactivated",
		})
	}

	c.Locals(actorKey, actor)
	c.Locals("user_id", actor.UserID)
	return true, nil
}

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}
		if ok, err := authenticate(c, authService, authHeader); !ok {
			return err
		}
		return c.Next()
	}
}

// OptionalAuth identifies the caller when a token is sent and lets guests
// through otherwise. A token that is sent must be valid.
func OptionalAuth(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Next()
		}
		if ok, err := authenticate(c, authService, authHeader); !ok {
			return err
		}
		return c.Next()
	}
}

// AdminRequired lets only active admins through. It must run after AuthRequired.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFrom(c)
		if !ok || !actor.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Admin access required",
			})
		}
		return c.Next()
	}
}

// RequirePermission lets through admins holding permission. super_admin
// holds every permission.
func RequirePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFrom(c)
		if !ok || !actor.IsAdmin() || !actor.Permissions.Has(permission) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Insufficient permissions",
			})
		}
		return c.Next()
	}
}
