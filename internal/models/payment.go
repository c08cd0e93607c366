package models

import "github.com/shopspring/decimal"

// LineItem is one purchased line as presented to the payment processor.
type LineItem struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// PaymentIntentRequest asks the processor to authorize an amount.
type PaymentIntentRequest struct {
	ReferenceID     string // Our order id
	Currency        string
	Subtotal        decimal.Decimal
	Shipping        decimal.Decimal
	Total           decimal.Decimal
	Items           []LineItem
	Description     string
	SuccessRedirect string
	CancelRedirect  string
}

// PaymentIntent is the processor's answer to an authorization request.
type PaymentIntent struct {
	ExternalRef string
	ApprovalURL string
}

// PaymentCapture is the result of a successful capture.
type PaymentCapture struct {
	TransactionID string
	PayerEmail    string // Reported by the processor, may be empty
}
