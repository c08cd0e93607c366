package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"printshop/internal/models"
	"printshop/internal/repositories"
	"printshop/pkg/rabbitmq"

	"github.com/shopspring/decimal"
)

// PaymentGateway is the external payment processor.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req models.PaymentIntentRequest) (*models.PaymentIntent, error)
	Capture(ctx context.Context, externalRef, payerRef string) (*models.PaymentCapture, error)
}

// Notifier delivers customer notifications. Callers treat failures as non-fatal.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// EventPublisher publishes raw messages onto a named queue.
type EventPublisher interface {
	Publish(queue string, body []byte) error
}

// OrderConfig holds the tunables of the order lifecycle.
type OrderConfig struct {
	Currency       string
	FrontendURL    string
	PaymentTimeout time.Duration
	NotifyTimeout  time.Duration
}

// Buyer identifies who is checking out: a registered user or a guest.
type Buyer struct {
	UserID     string
	GuestEmail string
}

// CheckoutRequest is the input of InitiateCheckout.
type CheckoutRequest struct {
	ProductID           string
	Quantity            int
	ShippingAddress     models.Address
	BoardingPassDetails models.BoardingPassDetails
	Customizations      *models.Customizations
}

// CheckoutResult tells the caller where to send the buyer for approval.
type CheckoutResult struct {
	OrderID     string          `json:"orderId"`
	ApprovalURL string          `json:"approvalUrl"`
	PaymentID   string          `json:"paymentId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// PaymentStatusView is the payment summary of an order.
type PaymentStatusView struct {
	OrderID       string               `json:"orderId"`
	Status        models.OrderStatus   `json:"status"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	TotalAmount   decimal.Decimal      `json:"totalAmount"`
}

// TrackingUpdate carries shipment details set by an admin.
type TrackingUpdate struct {
	TrackingNumber    string
	Carrier           string
	EstimatedDelivery *time.Time
}

// OrderService runs the order lifecycle: checkout, capture, status changes
// and tracking.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	userRepo    repositories.UserRepository
	gateway     PaymentGateway
	notifier    Notifier
	publisher   EventPublisher
	cfg         OrderConfig
	now         func() time.Time
}

// NewOrderService creates a new OrderService. notifier and publisher may be nil.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	userRepo repositories.UserRepository,
	gateway PaymentGateway,
	notifier Notifier,
	publisher EventPublisher,
	cfg OrderConfig,
) *OrderService {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = 30 * time.Second
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		gateway:     gateway,
		notifier:    notifier,
		publisher:   publisher,
		cfg:         cfg,
		now:         time.Now,
	}
}

// SetClock replaces the time source used for derived timestamps.
func (s *OrderService) SetClock(now func() time.Time) {
	s.now = now
}

// InitiateCheckout prices and persists a pending order, then asks the payment
// gateway for an approval URL. If the gateway fails the order is left
// cancelled with a failed payment.
func (s *OrderService) InitiateCheckout(ctx context.Context, buyer Buyer, req CheckoutRequest) (*CheckoutResult, error) {
	product, err := s.productRepo.GetByID(req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", req.ProductID, err)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, req.ProductID)
	}

	custom := req.Customizations
	if custom == nil {
		custom = req.BoardingPassDetails.Customizations
	}
	price, err := PriceOrder(product, req.Quantity, custom)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ProductID:           product.ID,
		Quantity:            req.Quantity,
		Subtotal:            price.Subtotal,
		Shipping:            price.Shipping,
		TotalAmount:         price.Total,
		ShippingAddress:     req.ShippingAddress,
		BoardingPassDetails: req.BoardingPassDetails,
		Customizations:      custom,
		Status:              models.StatusPending,
		PaymentStatus:       models.PaymentPending,
	}

	var orderID string
	if buyer.UserID != "" {
		order.UserID = buyer.UserID
		orderID, err = s.orderRepo.Create(ctx, order)
	} else {
		order.GuestEmail = models.NormalizeEmail(buyer.GuestEmail)
		orderID, err = s.orderRepo.CreateGuest(ctx, order)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	s.publishCreated(order)

	intent, err := s.createIntent(ctx, order, product, price)
	if err != nil {
		s.markPaymentFailed(ctx, orderID)
		return nil, err
	}

	paymentID := intent.ExternalRef
	if err := s.orderRepo.Update(ctx, orderID, models.OrderChanges{PaymentID: &paymentID}); err != nil {
		return nil, fmt.Errorf("failed to record payment reference for order %s: %w", orderID, err)
	}

	return &CheckoutResult{
		OrderID:     orderID,
		ApprovalURL: intent.ApprovalURL,
		PaymentID:   paymentID,
		TotalAmount: price.Total,
	}, nil
}

func (s *OrderService) createIntent(ctx context.Context, order *models.Order, product *models.Product, price Price) (*models.PaymentIntent, error) {
	payCtx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()

	frontend := strings.TrimRight(s.cfg.FrontendURL, "/")
	intent, err := s.gateway.CreateIntent(payCtx, models.PaymentIntentRequest{
		ReferenceID: order.ID,
		Currency:    s.cfg.Currency,
		Subtotal:    price.Subtotal,
		Shipping:    price.Shipping,
		Total:       price.Total,
		Items: []models.LineItem{{
			Name:      product.Name,
			UnitPrice: price.UnitPrice,
			Quantity:  order.Quantity,
		}},
		Description:     product.Name,
		SuccessRedirect: fmt.Sprintf("%s/payment/success?orderId=%s", frontend, order.ID),
		CancelRedirect:  fmt.Sprintf("%s/payment/cancel?orderId=%s", frontend, order.ID),
	})
	if err != nil {
		return nil, gatewayError(payCtx, "create payment", err)
	}
	if intent == nil || intent.ApprovalURL == "" {
		return nil, fmt.Errorf("%w: no approval url returned", ErrPaymentGatewayFailure)
	}
	return intent, nil
}

// CompleteCheckout captures the payment of an order. A failed capture
// cancels the order; a successful one moves it to processing and sends the
// order confirmation.
func (s *OrderService) CompleteCheckout(ctx context.Context, orderID, payerRef, paymentRef string, requester *models.Actor) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Guest() && !ownsOrder(order, requester) {
		return nil, ErrPermissionDenied
	}
	if order.PaymentStatus == models.PaymentCompleted {
		return nil, ErrPaymentAlreadyProcessed
	}
	if order.Status == models.StatusCancelled {
		return nil, fmt.Errorf("%w: order %s is cancelled", ErrInvalidTransition, order.ID)
	}
	if paymentRef == "" {
		paymentRef = order.PaymentID
	}
	if order.PaymentID != "" && paymentRef != order.PaymentID {
		return nil, fmt.Errorf("%w: payment reference does not match order %s", ErrPermissionDenied, order.ID)
	}

	capture, err := s.capture(ctx, paymentRef, payerRef)
	if err != nil {
		s.markPaymentFailed(ctx, order.ID)
		return nil, err
	}

	now := s.now()
	completed := models.PaymentCompleted
	changes := models.OrderChanges{
		PaymentStatus: &completed,
		TransactionID: &capture.TransactionID,
		PaidAt:        &now,
	}
	if order.Status == models.StatusPending {
		processing := models.StatusProcessing
		changes.Status = &processing
	}
	// Guests may check out without an email; the payer's address is collected here.
	if order.Guest() && order.GuestEmail == "" && capture.PayerEmail != "" {
		email := models.NormalizeEmail(capture.PayerEmail)
		changes.GuestEmail = &email
	}
	if err := s.orderRepo.Update(ctx, order.ID, changes); err != nil {
		return nil, fmt.Errorf("failed to record payment for order %s: %w", order.ID, err)
	}
	changes.Apply(order)

	s.notify(ctx, models.Notification{
		To:          s.recipient(ctx, order),
		Kind:        models.NotifyOrderConfirmation,
		OrderID:     order.ID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount.StringFixed(2),
		OrderedAt:   order.CreatedAt,
	})
	return order, nil
}

func (s *OrderService) capture(ctx context.Context, paymentRef, payerRef string) (*models.PaymentCapture, error) {
	payCtx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()

	capture, err := s.gateway.Capture(payCtx, paymentRef, payerRef)
	if err != nil {
		return nil, gatewayError(payCtx, "capture payment", err)
	}
	if capture == nil || capture.TransactionID == "" {
		return nil, fmt.Errorf("%w: capture returned no transaction", ErrPaymentGatewayFailure)
	}
	return capture, nil
}

// markPaymentFailed moves an order to cancelled with a failed payment. Errors
// are logged since the caller already reports the gateway failure.
func (s *OrderService) markPaymentFailed(ctx context.Context, orderID string) {
	cancelled := models.StatusCancelled
	failed := models.PaymentFailed
	err := s.orderRepo.Update(context.WithoutCancel(ctx), orderID, models.OrderChanges{
		Status:        &cancelled,
		PaymentStatus: &failed,
	})
	if err != nil {
		log.Printf("Failed to mark order %s as payment failed: %v", orderID, err)
	}
}

func gatewayError(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, ErrPaymentGatewayTimeout, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrPaymentGatewayFailure, err)
}

// TransitionStatus is the generic admin status setter. Any legal status may
// be set while the order is not terminal; setting the current status again is
// a no-op.
func (s *OrderService) TransitionStatus(ctx context.Context, orderID string, status models.OrderStatus, actor models.Actor) (*models.Order, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, status)
}

// Advance moves an order one step along pending, processing, printing,
// shipped, delivered.
func (s *OrderService) Advance(ctx context.Context, orderID string, actor models.Actor) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	next, ok := order.Status.Next()
	if !ok {
		return nil, fmt.Errorf("%w: %s has no next status", ErrInvalidTransition, order.Status)
	}
	return s.transition(ctx, order, next)
}

func (s *OrderService) transition(ctx context.Context, order *models.Order, status models.OrderStatus) (*models.Order, error) {
	if order.Status == status {
		return order, nil
	}
	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
	}

	changes := s.stampTransition(order, status)
	if err := s.orderRepo.Update(ctx, order.ID, changes); err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", order.ID, err)
	}
	changes.Apply(order)

	s.notify(ctx, models.Notification{
		To:             s.recipient(ctx, order),
		Kind:           models.NotifyStatusUpdate,
		OrderID:        order.ID,
		Status:         order.Status,
		TrackingNumber: order.TrackingNumber,
		Carrier:        order.Carrier,
		OrderedAt:      order.CreatedAt,
	})
	return order, nil
}

// stampTransition derives the timestamps and tracking number that come with
// entering status. Timestamps already set are never rewritten.
func (s *OrderService) stampTransition(order *models.Order, status models.OrderStatus) models.OrderChanges {
	now := s.now()
	changes := models.OrderChanges{Status: &status}
	switch status {
	case models.StatusPrinting:
		if order.ProductionStarted == nil {
			changes.ProductionStarted = &now
		}
	case models.StatusShipped:
		if order.ShippedAt == nil {
			changes.ShippedAt = &now
		}
		if order.TrackingNumber == "" {
			tracking := GenerateTrackingNumber(now)
			changes.TrackingNumber = &tracking
		}
	case models.StatusDelivered:
		if order.DeliveredAt == nil {
			changes.DeliveredAt = &now
		}
	}
	return changes
}

// GenerateTrackingNumber returns "TRK" followed by the unix time in milliseconds.
func GenerateTrackingNumber(now time.Time) string {
	return fmt.Sprintf("TRK%d", now.UnixMilli())
}

// AttachTracking records shipment details and marks the order shipped.
func (s *OrderService) AttachTracking(ctx context.Context, orderID string, update TrackingUpdate, actor models.Actor) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	tracking := strings.TrimSpace(update.TrackingNumber)
	if tracking == "" {
		return nil, ErrTrackingNumberRequired
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: order %s is %s", ErrInvalidTransition, order.ID, order.Status)
	}

	shipped := models.StatusShipped
	changes := models.OrderChanges{
		Status:         &shipped,
		TrackingNumber: &tracking,
	}
	if order.ShippedAt == nil {
		now := s.now()
		changes.ShippedAt = &now
	}
	if update.Carrier != "" {
		changes.Carrier = &update.Carrier
	}
	if update.EstimatedDelivery != nil {
		changes.EstimatedDelivery = update.EstimatedDelivery
	}
	if err := s.orderRepo.Update(ctx, order.ID, changes); err != nil {
		return nil, fmt.Errorf("failed to update tracking for order %s: %w", order.ID, err)
	}
	changes.Apply(order)

	s.notify(ctx, models.Notification{
		To:             s.recipient(ctx, order),
		Kind:           models.NotifyTracking,
		OrderID:        order.ID,
		Status:         order.Status,
		TrackingNumber: order.TrackingNumber,
		Carrier:        order.Carrier,
		OrderedAt:      order.CreatedAt,
	})
	return order, nil
}

// GetTrackingView returns the status and the four fixed milestones of an
// order, each completed once its timestamp is set. Registered
// orders are visible to their owner, guest orders to whoever presents the
// guest email. Admins see every order.
func (s *OrderService) GetTrackingView(ctx context.Context, orderID string, requester *models.Actor, guestEmail string) (*models.TrackingView, error) {
	order, err := s.GetOrderForOwner(ctx, orderID, requester, guestEmail)
	if err != nil {
		return nil, err
	}

	view := &models.TrackingView{
		OrderID:           order.ID,
		Status:            order.Status,
		TrackingNumber:    order.TrackingNumber,
		Carrier:           order.Carrier,
		EstimatedDelivery: order.EstimatedDelivery,
	}
	if order.TrackingNumber == "" {
		view.Message = "Tracking information not yet available"
	}

	created := order.CreatedAt
	view.TrackingSteps = []models.TrackingStep{
		{Status: "Order Confirmed", Date: &created, Completed: true},
		{Status: "In Production", Date: order.ProductionStarted, Completed: order.ProductionStarted != nil},
		{Status: "Shipped", Date: order.ShippedAt, Completed: order.ShippedAt != nil},
		{Status: "Delivered", Date: order.DeliveredAt, Completed: order.DeliveredAt != nil},
	}
	return view, nil
}

// GetPaymentStatus reports the payment state of an order to its owner.
func (s *OrderService) GetPaymentStatus(ctx context.Context, orderID string, requester *models.Actor) (*PaymentStatusView, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Guest() && !ownsOrder(order, requester) {
		return nil, ErrPermissionDenied
	}
	return &PaymentStatusView{
		OrderID:       order.ID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		TotalAmount:   order.TotalAmount,
	}, nil
}

// GetOrderForOwner loads an order the requester is allowed to see.
func (s *OrderService) GetOrderForOwner(ctx context.Context, orderID string, requester *models.Actor, guestEmail string) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ownsOrder(order, requester) {
		return order, nil
	}
	if order.Guest() && order.GuestEmail != "" && order.GuestEmail == models.NormalizeEmail(guestEmail) {
		return order, nil
	}
	return nil, ErrPermissionDenied
}

// ListUserOrders returns a user's orders, newest first, with their product.
func (s *OrderService) ListUserOrders(ctx context.Context, userID string) ([]models.EnrichedOrder, error) {
	orders, err := s.orderRepo.GetUserOrders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for user %s: %w", userID, err)
	}
	out := make([]models.EnrichedOrder, 0, len(orders))
	for _, order := range orders {
		enriched := models.EnrichedOrder{Order: order}
		if product, err := s.productRepo.GetByID(order.ProductID); err == nil {
			enriched.Product = product
		}
		out = append(out, enriched)
	}
	return out, nil
}

func (s *OrderService) loadOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return order, nil
}

// ownsOrder reports whether requester is the order's registered owner or an admin.
func ownsOrder(order *models.Order, requester *models.Actor) bool {
	if requester == nil {
		return false
	}
	if requester.IsAdmin() {
		return true
	}
	return !order.Guest() && requester.UserID == order.UserID
}

// recipient resolves the customer email of an order: the guest email, or the
// owning user's email. An empty result means nobody can be notified.
func (s *OrderService) recipient(ctx context.Context, order *models.Order) string {
	return resolveRecipient(ctx, s.userRepo, order)
}

func resolveRecipient(ctx context.Context, users repositories.UserRepository, order *models.Order) string {
	if order.Guest() {
		return order.GuestEmail
	}
	if users == nil {
		return ""
	}
	user, err := users.GetByID(ctx, order.UserID)
	if err != nil {
		log.Printf("Failed to resolve customer of order %s: %v", order.ID, err)
		return ""
	}
	if user == nil {
		return ""
	}
	return user.Email
}

func (s *OrderService) notify(ctx context.Context, n models.Notification) {
	deliver(ctx, s.notifier, s.cfg.NotifyTimeout, n)
}

// deliver sends n with a bounded timeout and only logs failures.
func deliver(ctx context.Context, notifier Notifier, timeout time.Duration, n models.Notification) error {
	if notifier == nil {
		return nil
	}
	if n.To == "" {
		log.Printf("Skipping %s notification for order %s: no recipient", n.Kind, n.OrderID)
		return ErrNoRecipient
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := notifier.Notify(notifyCtx, n); err != nil {
		log.Printf("Warning: failed to send %s notification for order %s: %v", n.Kind, n.OrderID, err)
		return err
	}
	return nil
}

// orderCreatedEvent is the body published on the order events queue.
type orderCreatedEvent struct {
	Event   string             `json:"event"`
	OrderID string             `json:"orderId"`
	UserID  string             `json:"userId,omitempty"`
	IsGuest bool               `json:"isGuest"`
	Status  models.OrderStatus `json:"status"`
	Total   string             `json:"total"`
}

func (s *OrderService) publishCreated(order *models.Order) {
	if s.publisher == nil {
		return
	}
	body, err := json.Marshal(orderCreatedEvent{
		Event:   "order.created",
		OrderID: order.ID,
		UserID:  order.UserID,
		IsGuest: order.Guest(),
		Status:  order.Status,
		Total:   order.TotalAmount.StringFixed(2),
	})
	if err != nil {
		log.Printf("Failed to marshal order created event: %v", err)
		return
	}
	if err := s.publisher.Publish(rabbitmq.QueueOrderEvents, body); err != nil {
		log.Printf("Warning: Failed to publish order created event for order %s: %v", order.ID, err)
	}
}
