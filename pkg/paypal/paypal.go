package paypal

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"printshop/internal/models"

	sdk "github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
)

// ErrNotApproved is returned when PayPal answers without an approve link.
var ErrNotApproved = errors.New("paypal order has no approval link")

// Config holds PayPal credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	Mode         string // sandbox or live
	BaseURL      string // Overrides Mode when set
	BrandName    string
}

// APIError is a non-2xx answer from PayPal.
type APIError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal: %d %s: %s", e.StatusCode, e.Name, e.Message)
}

// Client adapts the PayPal v2 Checkout Orders API to the payment gateway
// used by the order service. Token caching is left to the SDK.
type Client struct {
	api       *sdk.Client
	brandName string
}

// NewClient creates a new PayPal client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	base := cfg.BaseURL
	if base == "" {
		base = sdk.APIBaseSandBox
		if cfg.Mode == "live" {
			base = sdk.APIBaseLive
		}
	}
	api, err := sdk.NewClient(cfg.ClientID, cfg.ClientSecret, base)
	if err != nil {
		return nil, fmt.Errorf("failed to create paypal client: %w", err)
	}
	if httpClient != nil {
		api.Client = httpClient
	}
	if cfg.BrandName == "" {
		cfg.BrandName = "Boarding Pass Prints"
	}
	return &Client{api: api, brandName: cfg.BrandName}, nil
}

func amountOf(currency string, d decimal.Decimal) *sdk.Money {
	return &sdk.Money{Currency: currency, Value: d.StringFixed(2)}
}

// CreateIntent creates a PayPal order with intent CAPTURE and returns its id
// and the buyer approval link.
func (c *Client) CreateIntent(ctx context.Context, req models.PaymentIntentRequest) (*models.PaymentIntent, error) {
	unit := sdk.PurchaseUnitRequest{
		ReferenceID: req.ReferenceID,
		Description: req.Description,
		Amount: &sdk.PurchaseUnitAmount{
			Currency: req.Currency,
			Value:    req.Total.StringFixed(2),
			Breakdown: &sdk.PurchaseUnitAmountBreakdown{
				ItemTotal: amountOf(req.Currency, req.Subtotal),
				Shipping:  amountOf(req.Currency, req.Shipping),
			},
		},
	}
	for _, li := range req.Items {
		unit.Items = append(unit.Items, sdk.Item{
			Name:       li.Name,
			UnitAmount: amountOf(req.Currency, li.UnitPrice),
			Quantity:   fmt.Sprint(li.Quantity),
		})
	}

	order, err := c.api.CreateOrder(ctx, sdk.OrderIntentCapture, []sdk.PurchaseUnitRequest{unit}, nil, &sdk.ApplicationContext{
		BrandName:          c.brandName,
		UserAction:         sdk.UserActionPayNow,
		ShippingPreference: sdk.ShippingPreferenceNoShipping,
		ReturnURL:          req.SuccessRedirect,
		CancelURL:          req.CancelRedirect,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create paypal order: %w", apiError(err))
	}
	for _, l := range order.Links {
		if l.Rel == "approve" {
			return &models.PaymentIntent{ExternalRef: order.ID, ApprovalURL: l.Href}, nil
		}
	}
	return nil, fmt.Errorf("%w: order %s", ErrNotApproved, order.ID)
}

// Capture captures an approved PayPal order. PayPal identifies the payer from
// the approval itself, so payerRef is not sent.
func (c *Client) Capture(ctx context.Context, externalRef, payerRef string) (*models.PaymentCapture, error) {
	resp, err := c.api.CaptureOrder(ctx, externalRef, sdk.CaptureOrderRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to capture paypal order %s: %w", externalRef, apiError(err))
	}
	if resp.Status != "COMPLETED" {
		return nil, fmt.Errorf("paypal order %s not captured: status %s", externalRef, resp.Status)
	}
	if len(resp.PurchaseUnits) == 0 || resp.PurchaseUnits[0].Payments == nil || len(resp.PurchaseUnits[0].Payments.Captures) == 0 {
		return nil, fmt.Errorf("paypal order %s has no capture", externalRef)
	}

	capture := &models.PaymentCapture{TransactionID: resp.PurchaseUnits[0].Payments.Captures[0].ID}
	if resp.Payer != nil {
		capture.PayerEmail = resp.Payer.EmailAddress
	}
	return capture, nil
}

// apiError turns the SDK's error response into an APIError. Transport errors
// such as deadlines are returned unchanged.
func apiError(err error) error {
	var resp *sdk.ErrorResponse
	if !errors.As(err, &resp) {
		return err
	}
	apiErr := &APIError{Name: resp.Name, Message: resp.Message}
	if resp.Response != nil {
		apiErr.StatusCode = resp.Response.StatusCode
	}
	return apiErr
}
