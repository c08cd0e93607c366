package repositories

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"printshop/internal/models"
	"printshop/pkg/docstore"
)

const (
	ordersSet      = "orders"
	guestOrdersSet = "guest_orders"
)

func orderKey(id string) string {
	if strings.HasPrefix(id, "order:") {
		return id
	}
	return "order:" + id
}

func userOrdersSet(userID string) string {
	return "user:" + userID + ":orders"
}

// DocstoreOrderRepository stores orders as field-maps in a docstore.Store.
type DocstoreOrderRepository struct {
	store docstore.Store
	now   func() time.Time
}

// NewDocstoreOrderRepository creates a new DocstoreOrderRepository.
func NewDocstoreOrderRepository(store docstore.Store) *DocstoreOrderRepository {
	return NewDocstoreOrderRepositoryWithClock(store, time.Now)
}

// NewDocstoreOrderRepositoryWithClock creates a repository that stamps times from now.
func NewDocstoreOrderRepositoryWithClock(store docstore.Store, now func() time.Time) *DocstoreOrderRepository {
	return &DocstoreOrderRepository{store: store, now: now}
}

// Create persists a registered user's order and indexes it under "orders" and
// the user's own order set.
func (r *DocstoreOrderRepository) Create(ctx context.Context, order *models.Order) (string, error) {
	if order.UserID == "" {
		return "", fmt.Errorf("registered order requires a user id")
	}
	order.IsGuest = false
	return r.create(ctx, order, ordersSet, userOrdersSet(order.UserID))
}

// CreateGuest persists an order without an owning user and indexes it under "guest_orders".
func (r *DocstoreOrderRepository) CreateGuest(ctx context.Context, order *models.Order) (string, error) {
	order.UserID = ""
	order.IsGuest = true
	return r.create(ctx, order, guestOrdersSet)
}

func (r *DocstoreOrderRepository) create(ctx context.Context, order *models.Order, sets ...string) (string, error) {
	now := r.now()
	if order.ID == "" {
		order.ID = newID("order", now)
	}
	if order.Status == "" {
		order.Status = models.StatusPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.PaymentPending
	}
	order.CreatedAt = now
	order.UpdatedAt = now

	fields, err := orderToFields(order)
	if err != nil {
		return "", fmt.Errorf("failed to encode order: %w", err)
	}
	if err := r.store.WriteIndexed(ctx, orderKey(order.ID), fields, order.ID, sets...); err != nil {
		return "", fmt.Errorf("failed to create order: %w", err)
	}
	return order.ID, nil
}

// GetByID loads an order, or returns nil when it does not exist.
func (r *DocstoreOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	fields, err := r.store.ReadFields(ctx, orderKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return orderFromFields(id, fields), nil
}

// Update merges changes into the stored order and bumps updatedAt.
func (r *DocstoreOrderRepository) Update(ctx context.Context, id string, changes models.OrderChanges) error {
	fields := orderChangesToFields(changes)
	fields["updatedAt"] = formatTime(r.now())
	if err := r.store.WriteFields(ctx, orderKey(id), fields); err != nil {
		return fmt.Errorf("failed to update order %s: %w", id, err)
	}
	return nil
}

// GetUserOrders returns a user's orders, newest first.
func (r *DocstoreOrderRepository) GetUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return r.hydrateSet(ctx, userOrdersSet(userID))
}

// GetAll returns every registered order, newest first.
func (r *DocstoreOrderRepository) GetAll(ctx context.Context) ([]models.Order, error) {
	return r.hydrateSet(ctx, ordersSet)
}

// GetGuestOrders returns every guest order, newest first.
func (r *DocstoreOrderRepository) GetGuestOrders(ctx context.Context) ([]models.Order, error) {
	return r.hydrateSet(ctx, guestOrdersSet)
}

// CountAll returns the cardinality of the registered order index.
func (r *DocstoreOrderRepository) CountAll(ctx context.Context) (int64, error) {
	n, err := r.store.SetCardinality(ctx, ordersSet)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return n, nil
}

// CountGuest returns the cardinality of the guest order index.
func (r *DocstoreOrderRepository) CountGuest(ctx context.Context) (int64, error) {
	n, err := r.store.SetCardinality(ctx, guestOrdersSet)
	if err != nil {
		return 0, fmt.Errorf("failed to count guest orders: %w", err)
	}
	return n, nil
}

// hydrateSet loads every order listed in setKey. Ids whose field-map is gone
// are skipped.
func (r *DocstoreOrderRepository) hydrateSet(ctx context.Context, setKey string) ([]models.Order, error) {
	ids, err := r.store.ListSet(ctx, setKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", setKey, err)
	}
	orders := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		order, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if order == nil {
			log.Printf("Skipping unresolvable order %s in %s", id, setKey)
			continue
		}
		orders = append(orders, *order)
	}
	SortByCreatedDesc(orders)
	return orders, nil
}

// SortByCreatedDesc orders newest first, keeping the incoming order for ties.
func SortByCreatedDesc(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func orderToFields(o *models.Order) (map[string]string, error) {
	fields := map[string]string{
		"id":            o.ID,
		"isGuest":       strconv.FormatBool(o.IsGuest),
		"productId":     o.ProductID,
		"quantity":      strconv.Itoa(o.Quantity),
		"subtotal":      formatMoney(o.Subtotal),
		"shipping":      formatMoney(o.Shipping),
		"totalAmount":   formatMoney(o.TotalAmount),
		"status":        string(o.Status),
		"paymentStatus": string(o.PaymentStatus),
		"createdAt":     formatTime(o.CreatedAt),
		"updatedAt":     formatTime(o.UpdatedAt),
	}
	setIfPresent(fields, "userId", o.UserID)
	setIfPresent(fields, "guestEmail", o.GuestEmail)
	setIfPresent(fields, "paypalPaymentId", o.PaymentID)
	setIfPresent(fields, "paypalTransactionId", o.TransactionID)
	setIfPresent(fields, "trackingNumber", o.TrackingNumber)
	setIfPresent(fields, "carrier", o.Carrier)
	setTime(fields, "paidAt", o.PaidAt)
	setTime(fields, "estimatedDelivery", o.EstimatedDelivery)
	setTime(fields, "productionStarted", o.ProductionStarted)
	setTime(fields, "shippedAt", o.ShippedAt)
	setTime(fields, "deliveredAt", o.DeliveredAt)

	address, err := encodeJSON(o.ShippingAddress)
	if err != nil {
		return nil, err
	}
	fields["shippingAddress"] = address

	details, err := encodeJSON(o.BoardingPassDetails)
	if err != nil {
		return nil, err
	}
	fields["boardingPassDetails"] = details

	if o.Customizations != nil {
		custom, err := encodeJSON(o.Customizations)
		if err != nil {
			return nil, err
		}
		fields["customizations"] = custom
	}
	return fields, nil
}

func orderFromFields(id string, f map[string]string) *models.Order {
	o := &models.Order{
		ID:                f["id"],
		UserID:            f["userId"],
		IsGuest:           parseBool(f["isGuest"]),
		GuestEmail:        f["guestEmail"],
		ProductID:         f["productId"],
		Subtotal:          parseMoney(f["subtotal"]),
		Shipping:          parseMoney(f["shipping"]),
		TotalAmount:       parseMoney(f["totalAmount"]),
		Status:            models.OrderStatus(f["status"]),
		PaymentStatus:     models.PaymentStatus(f["paymentStatus"]),
		PaymentID:         f["paypalPaymentId"],
		TransactionID:     f["paypalTransactionId"],
		PaidAt:            parseTimePtr(f["paidAt"]),
		TrackingNumber:    f["trackingNumber"],
		Carrier:           f["carrier"],
		EstimatedDelivery: parseTimePtr(f["estimatedDelivery"]),
		ProductionStarted: parseTimePtr(f["productionStarted"]),
		ShippedAt:         parseTimePtr(f["shippedAt"]),
		DeliveredAt:       parseTimePtr(f["deliveredAt"]),
		CreatedAt:         parseTime(f["createdAt"]),
		UpdatedAt:         parseTime(f["updatedAt"]),
	}
	if o.ID == "" {
		o.ID = strings.TrimPrefix(id, "order:")
	}
	o.Quantity, _ = strconv.Atoi(f["quantity"])
	if o.UserID == "" {
		o.IsGuest = true
	}

	decodeJSON(f["shippingAddress"], &o.ShippingAddress)
	decodeJSON(f["boardingPassDetails"], &o.BoardingPassDetails)
	var custom models.Customizations
	if decodeJSON(f["customizations"], &custom) {
		o.Customizations = &custom
	}
	return o
}

func orderChangesToFields(c models.OrderChanges) map[string]string {
	fields := make(map[string]string)
	if c.Status != nil {
		fields["status"] = string(*c.Status)
	}
	if c.PaymentStatus != nil {
		fields["paymentStatus"] = string(*c.PaymentStatus)
	}
	if c.PaymentID != nil {
		fields["paypalPaymentId"] = *c.PaymentID
	}
	if c.TransactionID != nil {
		fields["paypalTransactionId"] = *c.TransactionID
	}
	if c.GuestEmail != nil {
		fields["guestEmail"] = *c.GuestEmail
	}
	if c.TrackingNumber != nil {
		fields["trackingNumber"] = *c.TrackingNumber
	}
	if c.Carrier != nil {
		fields["carrier"] = *c.Carrier
	}
	setTime(fields, "paidAt", c.PaidAt)
	setTime(fields, "estimatedDelivery", c.EstimatedDelivery)
	setTime(fields, "productionStarted", c.ProductionStarted)
	setTime(fields, "shippedAt", c.ShippedAt)
	setTime(fields, "deliveredAt", c.DeliveredAt)
	return fields
}
