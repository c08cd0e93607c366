package models

import "time"

// NotificationKind selects the message template.
type NotificationKind string

const (
	NotifyOrderConfirmation NotificationKind = "order_confirmation"
	NotifyStatusUpdate      NotificationKind = "status_update"
	NotifyTracking          NotificationKind = "tracking"
	NotifyCustom            NotificationKind = "custom"
)

// Notification is a customer message. It is serialized as-is onto the
// notification queue.
type Notification struct {
	To             string           `json:"to"`
	Kind           NotificationKind `json:"kind"`
	OrderID        string           `json:"orderId"`
	Status         OrderStatus      `json:"status,omitempty"`
	TotalAmount    string           `json:"totalAmount,omitempty"`
	TrackingNumber string           `json:"trackingNumber,omitempty"`
	Carrier        string           `json:"carrier,omitempty"`
	Subject        string           `json:"subject,omitempty"`
	Message        string           `json:"message,omitempty"`
	OrderedAt      time.Time        `json:"orderedAt"`
}
