package repositories_test

import (
	"context"
	"testing"
	"time"

	"printshop/internal/models"
	"printshop/internal/repositories"
	"printshop/pkg/docstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock returns a clock that advances one minute per call.
func stepClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func sampleOrder() *models.Order {
	return &models.Order{
		ProductID:   "boarding-pass-small",
		Quantity:    2,
		Subtotal:    decimal.RequireFromString("31.98"),
		Shipping:    decimal.RequireFromString("5.99"),
		TotalAmount: decimal.RequireFromString("37.97"),
		ShippingAddress: models.Address{
			FullName: "Ada Lovelace",
			Street:   "12 St James's Square",
			City:     "London",
			Zip:      "SW1Y 4JH",
			Country:  "GB",
		},
		BoardingPassDetails: models.BoardingPassDetails{
			FileID:        "file_1_abc",
			PassengerName: "ADA LOVELACE",
			FlightNumber:  "BA117",
			Customizations: &models.Customizations{
				PaperQuality: "premium",
				Finish:       "glossy",
			},
		},
		Customizations: &models.Customizations{PaperQuality: "premium", Finish: "glossy"},
	}
}

func TestOrderRepository_CreateAndGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewDocstoreOrderRepository(docstore.NewMemoryStore())

	input := sampleOrder()
	input.UserID = "user_1_abc"
	id, err := repo.Create(ctx, input)
	require.NoError(t, err)
	assert.Regexp(t, `^order_\d+_[0-9a-f]{9}$`, id)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, "user_1_abc", got.UserID)
	assert.False(t, got.Guest())
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)
	assert.Equal(t, input.ShippingAddress, got.ShippingAddress)
	assert.Equal(t, input.BoardingPassDetails, got.BoardingPassDetails)
	assert.Equal(t, input.Customizations, got.Customizations)
	assert.True(t, input.TotalAmount.Equal(got.TotalAmount))
	assert.Equal(t, 2, got.Quantity)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestOrderRepository_GuestOrdersUseSeparateIndex(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewDocstoreOrderRepository(docstore.NewMemoryStore())

	guest := sampleOrder()
	guest.GuestEmail = "guest@example.com"
	guestID, err := repo.CreateGuest(ctx, guest)
	require.NoError(t, err)

	registered := sampleOrder()
	registered.UserID = "user_1_abc"
	_, err = repo.Create(ctx, registered)
	require.NoError(t, err)

	guests, err := repo.GetGuestOrders(ctx)
	require.NoError(t, err)
	require.Len(t, guests, 1)
	assert.Equal(t, guestID, guests[0].ID)
	assert.True(t, guests[0].Guest())
	assert.Equal(t, "guest@example.com", guests[0].GuestEmail)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	n, err := repo.CountGuest(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestOrderRepository_RegisteredOrderRequiresUser(t *testing.T) {
	repo := repositories.NewDocstoreOrderRepository(docstore.NewMemoryStore())
	_, err := repo.Create(context.Background(), sampleOrder())
	assert.Error(t, err)
}

func TestOrderRepository_MissingOrderIsNil(t *testing.T) {
	repo := repositories.NewDocstoreOrderRepository(docstore.NewMemoryStore())
	got, err := repo.GetByID(context.Background(), "order_0_nothing")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestOrderRepository_MalformedJSONDecodesAsEmpty(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	repo := repositories.NewDocstoreOrderRepository(store)

	err := store.WriteIndexed(ctx, "order:legacy", map[string]string{
		"id":                  "legacy",
		"status":              "processing",
		"shippingAddress":     "{not json",
		"boardingPassDetails": "",
		"customizations":      "[1,2",
		"totalAmount":         "12.50",
	}, "legacy", "guest_orders")
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "legacy")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.Address{}, got.ShippingAddress)
	assert.Equal(t, models.BoardingPassDetails{}, got.BoardingPassDetails)
	assert.Nil(t, got.Customizations)
	assert.Equal(t, "12.5", got.TotalAmount.String())
}

func TestOrderRepository_ListingsSortNewestFirstAndSkipDangling(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	repo := repositories.NewDocstoreOrderRepositoryWithClock(store, stepClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))

	var ids []string
	for i := 0; i < 3; i++ {
		o := sampleOrder()
		o.UserID = "user_1_abc"
		id, err := repo.Create(ctx, o)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, store.AddToSet(ctx, "user:user_1_abc:orders", "order_gone"))

	orders, err := repo.GetUserOrders(ctx, "user_1_abc")
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{orders[0].ID, orders[1].ID, orders[2].ID})
}

func TestOrderRepository_UpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewDocstoreOrderRepository(docstore.NewMemoryStore())

	o := sampleOrder()
	o.UserID = "user_1_abc"
	id, err := repo.Create(ctx, o)
	require.NoError(t, err)

	status := models.StatusShipped
	tracking := "TRK1"
	shippedAt := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, repo.Update(ctx, id, models.OrderChanges{
		Status:         &status,
		TrackingNumber: &tracking,
		ShippedAt:      &shippedAt,
	}))

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, got.Status)
	assert.Equal(t, "TRK1", got.TrackingNumber)
	require.NotNil(t, got.ShippedAt)
	assert.True(t, shippedAt.Equal(*got.ShippedAt))
	assert.Equal(t, o.ShippingAddress, got.ShippingAddress, "untouched fields survive the merge")
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)
}

func TestOrderRepository_PropagatesStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	repo := repositories.NewDocstoreOrderRepository(store)
	store.SetAvailable(false)

	_, err := repo.GetByID(ctx, "x")
	assert.ErrorIs(t, err, docstore.ErrStoreUnavailable)
	_, err = repo.GetAll(ctx)
	assert.ErrorIs(t, err, docstore.ErrStoreUnavailable)
	o := sampleOrder()
	_, err = repo.CreateGuest(ctx, o)
	assert.ErrorIs(t, err, docstore.ErrStoreUnavailable)
}
