package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"printshop/internal/models"
	"printshop/pkg/mailer"
)

// Sender delivers a rendered email.
type Sender interface {
	Send(msg mailer.Message) error
}

var statusMessages = map[models.OrderStatus]string{
	models.StatusProcessing: "Your order is being processed",
	models.StatusPrinting:   "Your boarding pass is being printed",
	models.StatusShipped:    "Your order has been shipped",
	models.StatusDelivered:  "Your order has been delivered",
	models.StatusCancelled:  "Your order has been cancelled",
}

const layout = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">{{block "body" .}}{{end}}</div>`

var bodies = map[models.NotificationKind]string{
	models.NotifyOrderConfirmation: `{{define "body"}}
<h2>Order Confirmation</h2>
<p><strong>Order ID:</strong> {{.N.OrderID}}</p>
<p><strong>Total Amount:</strong> ${{.N.TotalAmount}}</p>
<p><strong>Status:</strong> {{.N.Status}}</p>
<p><strong>Order Date:</strong> {{.N.OrderedAt.Format "Jan 2, 2006"}}</p>
<ul>
<li>We'll start processing your boarding pass print immediately</li>
<li>You'll receive tracking information once your order ships</li>
<li>Estimated delivery: 3-5 business days</li>
</ul>
<p><a href="{{.OrderURL}}">Track Your Order</a></p>
{{end}}`,
	models.NotifyStatusUpdate: `{{define "body"}}
<h2>Order Status Update</h2>
<h3>Order #{{.N.OrderID}}</h3>
<p><strong>{{.StatusMessage}}</strong></p>
{{if and (eq .N.Status "shipped") .N.TrackingNumber}}<p><strong>Tracking Number:</strong> {{.N.TrackingNumber}}</p>{{end}}
<p><a href="{{.OrderURL}}">View Order Details</a></p>
{{end}}`,
	models.NotifyTracking: `{{define "body"}}
<h2>Your Order Has Shipped!</h2>
<p><strong>Order ID:</strong> {{.N.OrderID}}</p>
<p><strong>Tracking Number:</strong> {{.N.TrackingNumber}}</p>
<p><strong>Carrier:</strong> {{if .N.Carrier}}{{.N.Carrier}}{{else}}Standard Shipping{{end}}</p>
<p><a href="{{.OrderURL}}/tracking">Track Package</a></p>
{{end}}`,
	models.NotifyCustom: `{{define "body"}}
<h2>{{.N.Subject}}</h2>
<div>{{range $i, $line := .Lines}}{{if $i}}<br>{{end}}{{$line}}{{end}}</div>
{{if .N.OrderID}}<p><strong>Related Order:</strong> {{.N.OrderID}}</p>{{end}}
<p>Best regards,<br>Boarding Pass Print Team</p>
{{end}}`,
}

type view struct {
	N             models.Notification
	OrderURL      string
	StatusMessage string
	Lines         []string
}

// EmailNotifier renders notifications as HTML and sends them by email.
type EmailNotifier struct {
	sender      Sender
	frontendURL string
	templates   map[models.NotificationKind]*template.Template
}

// NewEmailNotifier parses the templates once.
func NewEmailNotifier(sender Sender, frontendURL string) (*EmailNotifier, error) {
	templates := make(map[models.NotificationKind]*template.Template, len(bodies))
	for kind, body := range bodies {
		t, err := template.Must(template.New("layout").Parse(layout)).Parse(body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", kind, err)
		}
		templates[kind] = t
	}
	return &EmailNotifier{
		sender:      sender,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		templates:   templates,
	}, nil
}

// Render builds the email for n.
func (e *EmailNotifier) Render(n models.Notification) (mailer.Message, error) {
	t, ok := e.templates[n.Kind]
	if !ok {
		return mailer.Message{}, fmt.Errorf("unknown notification kind %q", n.Kind)
	}
	v := view{
		N:             n,
		OrderURL:      e.frontendURL + "/orders/" + n.OrderID,
		StatusMessage: statusMessages[n.Status],
		Lines:         strings.Split(n.Message, "\n"),
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		return mailer.Message{}, fmt.Errorf("failed to render %s email: %w", n.Kind, err)
	}
	return mailer.Message{To: n.To, Subject: subject(n), HTML: buf.String()}, nil
}

func subject(n models.Notification) string {
	switch n.Kind {
	case models.NotifyOrderConfirmation:
		return "Order Confirmation - Order #" + n.OrderID
	case models.NotifyStatusUpdate:
		return "Order Update - Order #" + n.OrderID
	case models.NotifyTracking:
		return "Your Order Has Shipped - Tracking #" + n.TrackingNumber
	default:
		return n.Subject
	}
}

// Notify renders and sends n. It gives up when ctx is done; the send itself
// keeps running in the background until the SMTP call returns.
func (e *EmailNotifier) Notify(ctx context.Context, n models.Notification) error {
	msg, err := e.Render(n)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- e.sender.Send(msg)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("email to %s for order %s: %w", n.To, n.OrderID, ctx.Err())
	}
}
