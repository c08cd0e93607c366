package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"printshop/internal/models"
	"printshop/internal/repositories"

	"github.com/shopspring/decimal"
)

// RevenueBasis selects which orders count as completed for revenue.
type RevenueBasis string

const (
	// RevenueByOrderStatus counts orders whose fulfillment reached delivered.
	// No order status is named completed, so delivered is read as completed;
	// paid orders still in production are left out.
	RevenueByOrderStatus RevenueBasis = "order_status"
	// RevenueByPaymentStatus counts orders whose payment was captured.
	RevenueByPaymentStatus RevenueBasis = "payment_status"
)

const (
	defaultPageSize  = 20
	maxPageSize      = 100
	recentOrderCount = 10
)

// AdminConfig holds the tunables of the admin surface.
type AdminConfig struct {
	RevenueBasis  RevenueBasis
	NotifyTimeout time.Duration
}

// OrderFilter selects a page of the merged order list.
type OrderFilter struct {
	Status   models.OrderStatus
	Page     int
	PageSize int
}

// OrderPage is one page of enriched orders.
type OrderPage struct {
	Orders     []models.EnrichedOrder `json:"orders"`
	TotalCount int                    `json:"totalCount"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"pageSize"`
	TotalPages int                    `json:"totalPages"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalOrders     int64                  `json:"totalOrders"`
	TotalUsers      int64                  `json:"totalUsers"`
	TotalRevenue    decimal.Decimal        `json:"totalRevenue"`
	PendingOrders   int                    `json:"pendingOrders"`
	CompletedOrders int                    `json:"completedOrders"`
	RevenueBasis    RevenueBasis           `json:"revenueBasis"`
	RecentOrders    []models.EnrichedOrder `json:"recentOrders"`
}

// AdminService serves the admin dashboard: merged order listings, stats,
// customer emails and admin account management.
type AdminService struct {
	orderRepo   repositories.OrderRepository
	userRepo    repositories.UserRepository
	productRepo repositories.ProductRepository
	notifier    Notifier
	cfg         AdminConfig
}

// NewAdminService creates a new AdminService.
func NewAdminService(
	orderRepo repositories.OrderRepository,
	userRepo repositories.UserRepository,
	productRepo repositories.ProductRepository,
	notifier Notifier,
	cfg AdminConfig,
) *AdminService {
	if cfg.RevenueBasis == "" {
		cfg.RevenueBasis = RevenueByOrderStatus
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}
	return &AdminService{
		orderRepo:   orderRepo,
		userRepo:    userRepo,
		productRepo: productRepo,
		notifier:    notifier,
		cfg:         cfg,
	}
}

// ParseRevenueBasis validates a configured revenue basis.
func ParseRevenueBasis(s string) (RevenueBasis, error) {
	switch basis := RevenueBasis(strings.ToLower(strings.TrimSpace(s))); basis {
	case "":
		return RevenueByOrderStatus, nil
	case RevenueByOrderStatus, RevenueByPaymentStatus:
		return basis, nil
	}
	return "", fmt.Errorf("unknown revenue basis %q", s)
}

// allOrders merges registered and guest orders, newest first.
func (s *AdminService) allOrders(ctx context.Context) ([]models.Order, error) {
	registered, err := s.orderRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	guests, err := s.orderRepo.GetGuestOrders(ctx)
	if err != nil {
		return nil, err
	}
	merged := append(registered, guests...)
	repositories.SortByCreatedDesc(merged)
	return merged, nil
}

// ListOrders filters, paginates and enriches the merged order list.
func (s *AdminService) ListOrders(ctx context.Context, filter OrderFilter) (*OrderPage, error) {
	if filter.Status != "" && filter.Status != "all" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, filter.Status)
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	orders, err := s.allOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if filter.Status != "" && filter.Status != "all" {
		filtered := orders[:0]
		for _, o := range orders {
			if o.Status == filter.Status {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}

	total := len(orders)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	enriched, err := s.enrich(ctx, orders[start:end])
	if err != nil {
		return nil, err
	}
	return &OrderPage{
		Orders:     enriched,
		TotalCount: total,
		Page:       page,
		PageSize:   size,
		TotalPages: (total + size - 1) / size,
	}, nil
}

// GetOrderDetail returns one enriched order.
func (s *AdminService) GetOrderDetail(ctx context.Context, orderID string) (*models.EnrichedOrder, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	enriched, err := s.enrich(ctx, []models.Order{*order})
	if err != nil {
		return nil, err
	}
	return &enriched[0], nil
}

// ComputeStats summarizes orders, users and revenue.
func (s *AdminService) ComputeStats(ctx context.Context) (*Stats, error) {
	registered, err := s.orderRepo.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	guests, err := s.orderRepo.CountGuest(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.allOrders(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalOrders:  registered + guests,
		TotalUsers:   users,
		TotalRevenue: decimal.Zero,
		RevenueBasis: s.cfg.RevenueBasis,
	}
	for _, o := range orders {
		if o.Status == models.StatusPending {
			stats.PendingOrders++
		}
		if s.completed(o) {
			stats.CompletedOrders++
			stats.TotalRevenue = stats.TotalRevenue.Add(o.TotalAmount)
		}
	}
	stats.TotalRevenue = stats.TotalRevenue.Round(2)

	recent := orders
	if len(recent) > recentOrderCount {
		recent = recent[:recentOrderCount]
	}
	stats.RecentOrders, err = s.enrich(ctx, recent)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *AdminService) completed(o models.Order) bool {
	if s.cfg.RevenueBasis == RevenueByPaymentStatus {
		return o.PaymentStatus == models.PaymentCompleted
	}
	return o.Status == models.StatusDelivered
}

// SendCustomEmail sends an admin-written message to the order's customer.
// A delivery failure is logged and reported as sent=false.
func (s *AdminService) SendCustomEmail(ctx context.Context, orderID, subject, message string) (bool, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return false, err
	}
	if order == nil {
		return false, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	to := resolveRecipient(ctx, s.userRepo, order)
	if to == "" {
		return false, ErrNoRecipient
	}
	if s.notifier == nil {
		return false, nil
	}
	err = deliver(ctx, s.notifier, s.cfg.NotifyTimeout, models.Notification{
		To:        to,
		Kind:      models.NotifyCustom,
		OrderID:   order.ID,
		Status:    order.Status,
		Subject:   subject,
		Message:   message,
		OrderedAt: order.CreatedAt,
	})
	return err == nil, nil
}

// enrich joins each order with its product and customer.
func (s *AdminService) enrich(ctx context.Context, orders []models.Order) ([]models.EnrichedOrder, error) {
	out := make([]models.EnrichedOrder, 0, len(orders))
	users := make(map[string]*models.User)
	for _, order := range orders {
		e := models.EnrichedOrder{Order: order}
		product, err := s.productRepo.GetByID(order.ProductID)
		if err != nil {
			log.Printf("Failed to load product %s for order %s: %v", order.ProductID, order.ID, err)
		}
		e.Product = product

		if order.Guest() {
			e.CustomerName = order.ShippingAddress.FullName
			if e.CustomerName == "" {
				e.CustomerName = "Guest Customer"
			}
			e.CustomerEmail = order.GuestEmail
			out = append(out, e)
			continue
		}

		user, cached := users[order.UserID]
		if !cached {
			user, err = s.userRepo.GetByID(ctx, order.UserID)
			if err != nil {
				return nil, err
			}
			users[order.UserID] = user
		}
		if user == nil {
			e.CustomerName = "Unknown"
		} else {
			e.User = user.Summary()
			e.CustomerName = user.FullName()
			e.CustomerEmail = user.Email
		}
		out = append(out, e)
	}
	return out, nil
}
