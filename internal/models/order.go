package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusPrinting   OrderStatus = "printing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// AllStatuses lists every legal status in lifecycle order.
var AllStatuses = []OrderStatus{
	StatusPending, StatusProcessing, StatusPrinting, StatusShipped, StatusDelivered, StatusCancelled,
}

// IsValid reports whether s is one of the six legal statuses.
func (s OrderStatus) IsValid() bool {
	for _, legal := range AllStatuses {
		if s == legal {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition may leave s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Next returns the following status along the fulfillment path, or false when
// s has no successor.
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case StatusPending:
		return StatusProcessing, true
	case StatusProcessing:
		return StatusPrinting, true
	case StatusPrinting:
		return StatusShipped, true
	case StatusShipped:
		return StatusDelivered, true
	}
	return "", false
}

// PaymentStatus tracks the payment independently of fulfillment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Address is a postal shipping address.
type Address struct {
	FullName string `json:"fullName" validate:"required"`
	Street   string `json:"street" validate:"required"`
	City     string `json:"city" validate:"required"`
	State    string `json:"state"`
	Zip      string `json:"zip" validate:"required"`
	Country  string `json:"country" validate:"required"`
}

// Customizations are the print options, each priced by a fixed surcharge table.
type Customizations struct {
	PaperQuality string `json:"paperQuality,omitempty"`
	Finish       string `json:"finish,omitempty"`
	Border       string `json:"border,omitempty"`
}

// BoardingPassDetails references the uploaded asset and the selected options.
type BoardingPassDetails struct {
	FileID         string          `json:"fileId,omitempty"`
	FileURL        string          `json:"fileUrl,omitempty"`
	PassengerName  string          `json:"passengerName,omitempty"`
	FlightNumber   string          `json:"flightNumber,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Customizations *Customizations `json:"customizations,omitempty"`
}

// Order is a single-product print order, owned by a user or a guest.
type Order struct {
	ID                  string              `json:"id"`
	UserID              string              `json:"userId,omitempty"`
	IsGuest             bool                `json:"isGuest"`
	GuestEmail          string              `json:"guestEmail,omitempty"`
	ProductID           string              `json:"productId"`
	Quantity            int                 `json:"quantity"`
	Subtotal            decimal.Decimal     `json:"subtotal"`
	Shipping            decimal.Decimal     `json:"shipping"`
	TotalAmount         decimal.Decimal     `json:"totalAmount"`
	ShippingAddress     Address             `json:"shippingAddress"`
	BoardingPassDetails BoardingPassDetails `json:"boardingPassDetails"`
	Customizations      *Customizations     `json:"customizations,omitempty"`
	Status              OrderStatus         `json:"status"`
	PaymentStatus       PaymentStatus       `json:"paymentStatus"`
	PaymentID           string              `json:"paymentId,omitempty"`     // External payment reference
	TransactionID       string              `json:"transactionId,omitempty"` // External capture id
	PaidAt              *time.Time          `json:"paidAt,omitempty"`
	TrackingNumber      string              `json:"trackingNumber,omitempty"`
	Carrier             string              `json:"carrier,omitempty"`
	EstimatedDelivery   *time.Time          `json:"estimatedDelivery,omitempty"`
	ProductionStarted   *time.Time          `json:"productionStarted,omitempty"`
	ShippedAt           *time.Time          `json:"shippedAt,omitempty"`
	DeliveredAt         *time.Time          `json:"deliveredAt,omitempty"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

// Guest reports whether the order has no owning user.
func (o *Order) Guest() bool {
	return o.IsGuest || o.UserID == ""
}

// OrderChanges is a partial order update. Nil fields are left untouched.
type OrderChanges struct {
	Status            *OrderStatus
	PaymentStatus     *PaymentStatus
	PaymentID         *string
	TransactionID     *string
	PaidAt            *time.Time
	GuestEmail        *string
	TrackingNumber    *string
	Carrier           *string
	EstimatedDelivery *time.Time
	ProductionStarted *time.Time
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
}

// Apply copies the set fields of c onto o.
func (c OrderChanges) Apply(o *Order) {
	if c.Status != nil {
		o.Status = *c.Status
	}
	if c.PaymentStatus != nil {
		o.PaymentStatus = *c.PaymentStatus
	}
	if c.PaymentID != nil {
		o.PaymentID = *c.PaymentID
	}
	if c.TransactionID != nil {
		o.TransactionID = *c.TransactionID
	}
	if c.PaidAt != nil {
		o.PaidAt = c.PaidAt
	}
	if c.GuestEmail != nil {
		o.GuestEmail = *c.GuestEmail
	}
	if c.TrackingNumber != nil {
		o.TrackingNumber = *c.TrackingNumber
	}
	if c.Carrier != nil {
		o.Carrier = *c.Carrier
	}
	if c.EstimatedDelivery != nil {
		o.EstimatedDelivery = c.EstimatedDelivery
	}
	if c.ProductionStarted != nil {
		o.ProductionStarted = c.ProductionStarted
	}
	if c.ShippedAt != nil {
		o.ShippedAt = c.ShippedAt
	}
	if c.DeliveredAt != nil {
		o.DeliveredAt = c.DeliveredAt
	}
}

// EnrichedOrder is an order joined with its product and customer at read time.
type EnrichedOrder struct {
	Order
	Product       *Product     `json:"product"`
	User          *UserSummary `json:"user"`
	CustomerName  string       `json:"customerName"`
	CustomerEmail string       `json:"customerEmail,omitempty"`
}

// TrackingStep is one milestone of the simulated shipment timeline.
type TrackingStep struct {
	Status    string     `json:"status"`
	Date      *time.Time `json:"date"`
	Completed bool       `json:"completed"`
}

// TrackingView is what a customer sees when tracking an order.
type TrackingView struct {
	OrderID           string         `json:"orderId"`
	Status            OrderStatus    `json:"status"`
	TrackingNumber    string         `json:"trackingNumber,omitempty"`
	Carrier           string         `json:"carrier,omitempty"`
	EstimatedDelivery *time.Time     `json:"estimatedDelivery,omitempty"`
	Message           string         `json:"message,omitempty"`
	TrackingSteps     []TrackingStep `json:"trackingSteps"`
}
