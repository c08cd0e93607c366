package handlers

import (
	"printshop/internal/middleware"
	"printshop/internal/models"
	"printshop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles checkout, payment and customer order requests.
type OrderHandler struct {
	service     *services.OrderService
	authService *services.AuthService
	validate    *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, authService *services.AuthService) *OrderHandler {
	return &OrderHandler{
		service:     service,
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the payment and order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	optional := middleware.OptionalAuth(h.authService)
	required := middleware.AuthRequired(h.authService)

	paymentRoutes := router.Group("/payment")
	paymentRoutes.Post("/create-order", optional, h.HandleCreateOrder)
	paymentRoutes.Post("/capture", optional, h.HandleCapture)
	paymentRoutes.Get("/status/:orderId", optional, h.HandlePaymentStatus)

	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", required, h.HandleGetMyOrders)
	orderRoutes.Get("/:id", optional, h.HandleGetOrderByID)
	orderRoutes.Get("/:id/tracking", optional, h.HandleTracking)
}

// CreateOrderRequest is the checkout request body. GuestEmail is only read
// when the caller is not logged in.
type CreateOrderRequest struct {
	ProductID           string                     `json:"productId" validate:"required"`
	Quantity            int                        `json:"quantity" validate:"required,min=1,max=100"`
	ShippingAddress     models.Address             `json:"shippingAddress"`
	BoardingPassDetails models.BoardingPassDetails `json:"boardingPassDetails"`
	Customizations      *models.Customizations     `json:"customizations"`
	GuestEmail          string                     `json:"guestEmail" validate:"omitempty,email"`
}

// HandleCreateOrder prices the order, stores it and returns the payment approval URL.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	buyer := services.Buyer{GuestEmail: req.GuestEmail}
	if actor := currentActor(c); actor != nil {
		buyer = services.Buyer{UserID: actor.UserID}
	}

	result, err := h.service.InitiateCheckout(c.UserContext(), buyer, services.CheckoutRequest{
		ProductID:           req.ProductID,
		Quantity:            req.Quantity,
		ShippingAddress:     req.ShippingAddress,
		BoardingPassDetails: req.BoardingPassDetails,
		Customizations:      req.Customizations,
	})
	if err != nil {
		return respondError(c, "Could not create order", err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// CaptureRequest is sent after the buyer approved the payment.
type CaptureRequest struct {
	OrderID   string `json:"orderId" validate:"required"`
	PayerID   string `json:"payerId"`
	PaymentID string `json:"paymentId"`
}

// HandleCapture captures an approved payment.
func (h *OrderHandler) HandleCapture(c *fiber.Ctx) error {
	var req CaptureRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	order, err := h.service.CompleteCheckout(c.UserContext(), req.OrderID, req.PayerID, req.PaymentID, currentActor(c))
	if err != nil {
		return respondError(c, "Payment capture failed", err)
	}
	return c.JSON(fiber.Map{
		"message": "Payment completed successfully",
		"order":   order,
	})
}

// HandlePaymentStatus reports the payment state of an order.
func (h *OrderHandler) HandlePaymentStatus(c *fiber.Ctx) error {
	view, err := h.service.GetPaymentStatus(c.UserContext(), c.Params("orderId"), currentActor(c))
	if err != nil {
		return respondError(c, "Could not retrieve payment status", err)
	}
	return c.JSON(view)
}

// HandleGetMyOrders lists the caller's orders.
func (h *OrderHandler) HandleGetMyOrders(c *fiber.Ctx) error {
	actor := currentActor(c)
	orders, err := h.service.ListUserOrders(c.UserContext(), actor.UserID)
	if err != nil {
		return respondError(c, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID returns one order to its owner. Guests pass their email
// as the "email" query parameter.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrderForOwner(c.UserContext(), c.Params("id"), currentActor(c), c.Query("email"))
	if err != nil {
		return respondError(c, "Could not retrieve order", err)
	}
	return c.JSON(order)
}

// HandleTracking returns the shipment timeline of an order.
func (h *OrderHandler) HandleTracking(c *fiber.Ctx) error {
	view, err := h.service.GetTrackingView(c.UserContext(), c.Params("id"), currentActor(c), c.Query("email"))
	if err != nil {
		return respondError(c, "Could not retrieve tracking information", err)
	}
	return c.JSON(view)
}
