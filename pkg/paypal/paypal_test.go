package paypal_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"printshop/internal/models"
	"printshop/pkg/paypal"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePayPal serves the subset of the API the client uses.
func fakePayPal(t *testing.T, captureStatus int) (*httptest.Server, *int32) {
	t.Helper()
	var tokenCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok-1", "expires_in": 3600})
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "CAPTURE", body["intent"])
		appCtx := body["application_context"].(map[string]interface{})
		assert.Equal(t, "https://shop.example.com/payment/success?orderId=order_1", appCtx["return_url"])
		unit := body["purchase_units"].([]interface{})[0].(map[string]interface{})
		amount := unit["amount"].(map[string]interface{})
		assert.Equal(t, "37.97", amount["value"])
		assert.Equal(t, "USD", amount["currency_code"])
		breakdown := amount["breakdown"].(map[string]interface{})
		assert.Equal(t, "31.98", breakdown["item_total"].(map[string]interface{})["value"])
		assert.Equal(t, "5.99", breakdown["shipping"].(map[string]interface{})["value"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "PP-ORDER-1",
			"status": "CREATED",
			"links": []map[string]string{
				{"rel": "self", "href": "https://api.example/self"},
				{"rel": "approve", "href": "https://paypal.example/approve?token=PP-ORDER-1"},
			},
		})
	})
	mux.HandleFunc("/v2/checkout/orders/PP-ORDER-1/capture", func(w http.ResponseWriter, r *http.Request) {
		if captureStatus != http.StatusCreated {
			w.WriteHeader(captureStatus)
			_ = json.NewEncoder(w).Encode(map[string]string{"name": "UNPROCESSABLE_ENTITY", "message": "instrument declined"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"PP-ORDER-1","status":"COMPLETED","payer":{"email_address":"buyer@example.com"},"purchase_units":[{"payments":{"captures":[{"id":"CAPTURE-9","status":"COMPLETED"}]}}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &tokenCalls
}

func intentRequest() models.PaymentIntentRequest {
	return models.PaymentIntentRequest{
		ReferenceID: "order_1",
		Currency:    "USD",
		Subtotal:    decimal.RequireFromString("31.98"),
		Shipping:    decimal.RequireFromString("5.99"),
		Total:       decimal.RequireFromString("37.97"),
		Items: []models.LineItem{
			{Name: "Small Boarding Pass Print", UnitPrice: decimal.RequireFromString("15.99"), Quantity: 2},
		},
		SuccessRedirect: "https://shop.example.com/payment/success?orderId=order_1",
		CancelRedirect:  "https://shop.example.com/payment/cancel?orderId=order_1",
	}
}

func TestClient_CreateAndCapture(t *testing.T) {
	srv, tokenCalls := fakePayPal(t, http.StatusCreated)
	client, err := paypal.NewClient(paypal.Config{ClientID: "client", ClientSecret: "secret", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)
	ctx := context.Background()

	intent, err := client.CreateIntent(ctx, intentRequest())
	require.NoError(t, err)
	assert.Equal(t, "PP-ORDER-1", intent.ExternalRef)
	assert.Equal(t, "https://paypal.example/approve?token=PP-ORDER-1", intent.ApprovalURL)

	capture, err := client.Capture(ctx, "PP-ORDER-1", "PAYER-1")
	require.NoError(t, err)
	assert.Equal(t, "CAPTURE-9", capture.TransactionID)
	assert.Equal(t, "buyer@example.com", capture.PayerEmail)

	assert.Equal(t, int32(1), atomic.LoadInt32(tokenCalls), "token is cached")
}

func TestClient_CaptureDeclined(t *testing.T) {
	srv, _ := fakePayPal(t, http.StatusUnprocessableEntity)
	client, err := paypal.NewClient(paypal.Config{ClientID: "client", ClientSecret: "secret", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	_, err = client.Capture(context.Background(), "PP-ORDER-1", "PAYER-1")
	var apiErr *paypal.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "instrument declined", apiErr.Message)
}

func TestClient_BadCredentials(t *testing.T) {
	srv, _ := fakePayPal(t, http.StatusCreated)
	client, err := paypal.NewClient(paypal.Config{ClientID: "client", ClientSecret: "wrong", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	_, err = client.CreateIntent(context.Background(), intentRequest())
	var apiErr *paypal.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := paypal.NewClient(paypal.Config{Mode: "live"}, nil)
	assert.Error(t, err)
}

func TestClient_DeadlineSurfaces(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer slow.Close()
	client, err := paypal.NewClient(paypal.Config{ClientID: "client", ClientSecret: "secret", BaseURL: slow.URL}, slow.Client())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Capture(ctx, "PP-ORDER-1", "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
