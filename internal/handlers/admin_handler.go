package handlers

import (
	"strings"
	"time"

	"printshop/internal/middleware"
	"printshop/internal/models"
	"printshop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AdminHandler serves the back office: order management, stats and admin accounts.
type AdminHandler struct {
	admin       *services.AdminService
	orders      *services.OrderService
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin *services.AdminService, orders *services.OrderService, authService *services.AuthService) *AdminHandler {
	return &AdminHandler{
		admin:       admin,
		orders:      orders,
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the admin routes. Every route needs an active admin;
// order routes additionally need the "orders" permission.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	auth := middleware.AuthRequired(h.authService)
	adminOnly := middleware.AdminRequired()
	canOrders := middleware.RequirePermission("orders")

	adminRoutes := router.Group("/admin")
	adminRoutes.Get("/stats", auth, adminOnly, h.HandleStats)

	adminRoutes.Get("/orders", auth, adminOnly, canOrders, h.HandleListOrders)
	adminRoutes.Get("/orders/:id", auth, adminOnly, canOrders, h.HandleGetOrder)
	adminRoutes.Put("/orders/:id/status", auth, adminOnly, canOrders, h.HandleUpdateStatus)
	adminRoutes.Post("/orders/:id/advance", auth, adminOnly, canOrders, h.HandleAdvance)
	adminRoutes.Put("/orders/:id/tracking", auth, adminOnly, canOrders, h.HandleTracking)
	adminRoutes.Post("/orders/:id/email", auth, adminOnly, canOrders, h.HandleSendEmail)

	adminRoutes.Get("/admins", auth, adminOnly, h.HandleListAdmins)
	adminRoutes.Post("/admins", auth, adminOnly, h.HandleCreateAdmin)
	adminRoutes.Put("/admins/:id/permissions", auth, adminOnly, h.HandleUpdatePermissions)
	adminRoutes.Post("/admins/:id/deactivate", auth, adminOnly, h.HandleDeactivate)
	adminRoutes.Post("/admins/:id/activate", auth, adminOnly, h.HandleActivate)
}

// HandleListOrders lists orders, filtered by ?status= and paginated by ?page=&limit=.
func (h *AdminHandler) HandleListOrders(c *fiber.Ctx) error {
	page, err := h.admin.ListOrders(c.UserContext(), services.OrderFilter{
		Status:   models.OrderStatus(strings.ToLower(c.Query("status"))),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("limit", 20),
	})
	if err != nil {
		return respondError(c, "Could not retrieve orders", err)
	}
	return c.JSON(page)
}

// HandleGetOrder returns one enriched order.
func (h *AdminHandler) HandleGetOrder(c *fiber.Ctx) error {
	order, err := h.admin.GetOrderDetail(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not retrieve order", err)
	}
	return c.JSON(order)
}

// StatusRequest sets an order status.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// HandleUpdateStatus moves an order to the requested status.
func (h *AdminHandler) HandleUpdateStatus(c *fiber.Ctx) error {
	var req StatusRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}
	actor, _ := middleware.ActorFrom(c)

	status := models.OrderStatus(strings.ToLower(req.Status))
	order, err := h.orders.TransitionStatus(c.UserContext(), c.Params("id"), status, actor)
	if err != nil {
		return respondError(c, "Could not update order status", err)
	}
	return c.JSON(fiber.Map{
		"message": "Order status updated to " + string(order.Status),
		"order":   order,
	})
}

// HandleAdvance moves an order one step along the lifecycle.
func (h *AdminHandler) HandleAdvance(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)
	order, err := h.orders.Advance(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return respondError(c, "Could not advance order", err)
	}
	return c.JSON(fiber.Map{
		"message": "Order status updated to " + string(order.Status),
		"order":   order,
	})
}

// TrackingRequest attaches shipment details to an order.
type TrackingRequest struct {
	TrackingNumber    string     `json:"trackingNumber" validate:"required"`
	Carrier           string     `json:"carrier"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
}

// HandleTracking records a tracking number and marks the order shipped.
func (h *AdminHandler) HandleTracking(c *fiber.Ctx) error {
	var req TrackingRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}
	actor, _ := middleware.ActorFrom(c)

	order, err := h.orders.AttachTracking(c.UserContext(), c.Params("id"), services.TrackingUpdate{
		TrackingNumber:    req.TrackingNumber,
		Carrier:           req.Carrier,
		EstimatedDelivery: req.EstimatedDelivery,
	}, actor)
	if err != nil {
		return respondError(c, "Could not update tracking", err)
	}
	return c.JSON(fiber.Map{
		"message": "Tracking information updated",
		"order":   order,
	})
}

// EmailRequest is a custom message to an order's customer.
type EmailRequest struct {
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// HandleSendEmail sends a custom email to the customer of an order.
func (h *AdminHandler) HandleSendEmail(c *fiber.Ctx) error {
	var req EmailRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	sent, err := h.admin.SendCustomEmail(c.UserContext(), c.Params("id"), req.Subject, req.Message)
	if err != nil {
		return respondError(c, "Could not send email", err)
	}
	if !sent {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message": "Email could not be delivered",
			"sent":    false,
		})
	}
	return c.JSON(fiber.Map{
		"message": "Email sent successfully",
		"sent":    true,
	})
}

// HandleStats returns dashboard statistics.
func (h *AdminHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.admin.ComputeStats(c.UserContext())
	if err != nil {
		return respondError(c, "Could not compute stats", err)
	}
	return c.JSON(stats)
}

// HandleListAdmins lists admin accounts.
func (h *AdminHandler) HandleListAdmins(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)
	admins, err := h.admin.ListAdmins(c.UserContext(), actor)
	if err != nil {
		return respondError(c, "Could not retrieve admins", err)
	}
	return c.JSON(admins)
}

// CreateAdminRequest is the body of an admin creation.
type CreateAdminRequest struct {
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=8"`
	FirstName   string   `json:"firstName" validate:"required"`
	LastName    string   `json:"lastName"`
	Permissions []string `json:"permissions"`
}

// HandleCreateAdmin creates an admin account.
func (h *AdminHandler) HandleCreateAdmin(c *fiber.Ctx) error {
	var req CreateAdminRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}
	actor, _ := middleware.ActorFrom(c)

	admin, err := h.admin.CreateAdmin(c.UserContext(), actor, services.NewAdmin{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Permissions: req.Permissions,
	})
	if err != nil {
		return respondError(c, "Could not create admin", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Admin created successfully",
		"admin":   admin,
	})
}

// PermissionsRequest replaces an admin's permissions.
type PermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required"`
}

// HandleUpdatePermissions replaces an admin's permissions.
func (h *AdminHandler) HandleUpdatePermissions(c *fiber.Ctx) error {
	var req PermissionsRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}
	actor, _ := middleware.ActorFrom(c)

	admin, err := h.admin.UpdatePermissions(c.UserContext(), actor, c.Params("id"), req.Permissions)
	if err != nil {
		return respondError(c, "Could not update permissions", err)
	}
	return c.JSON(fiber.Map{
		"message": "Permissions updated successfully",
		"admin":   admin,
	})
}

// HandleDeactivate disables an admin account.
func (h *AdminHandler) HandleDeactivate(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)
	if err := h.admin.Deactivate(c.UserContext(), actor, c.Params("id")); err != nil {
		return respondError(c, "Could not deactivate admin", err)
	}
	return c.JSON(fiber.Map{"message": "Admin deactivated successfully"})
}

// HandleActivate re-enables an admin account.
func (h *AdminHandler) HandleActivate(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFrom(c)
	if err := h.admin.Activate(c.UserContext(), actor, c.Params("id")); err != nil {
		return respondError(c, "Could not activate admin", err)
	}
	return c.JSON(fiber.Map{"message": "Admin activated successfully"})
}
