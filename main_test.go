package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"printshop/internal/config"
	"printshop/internal/notifications"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// testConfig is a self-contained configuration: memory store, log notifier.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("NOTIFY_MODE", "log")
	t.Setenv("UPLOAD_DIR", t.TempDir())
	t.Setenv("SUPER_ADMIN_EMAIL", "root@example.com")
	t.Setenv("SUPER_ADMIN_PASSWORD", "rootpassword")
	t.Setenv("PAYPAL_CLIENT_ID", "test-client")
	t.Setenv("PAYPAL_CLIENT_SECRET", "test-secret")
	return config.Load()
}

func TestServerStartupAndHealthCheck(t *testing.T) {
	a, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	t.Run("HealthCheck", func(t *testing.T) {
		resp, err := a.Fiber.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "memory", body["store"])
		assert.Equal(t, "disabled", body["rabbitMQ"])
	})

	t.Run("CatalogIsPublic", func(t *testing.T) {
		resp, err := a.Fiber.Test(httptest.NewRequest(http.MethodGet, "/api/v1/products", nil), -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("AdminRoutesNeedToken", func(t *testing.T) {
		resp, err := a.Fiber.Test(httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil), -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("SuperAdminSeeded", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/admin/login",
			strings.NewReader(`{"email":"root@example.com","password":"rootpassword"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := a.Fiber.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestNewAppRejectsBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.RevenueBasis = "gross"
	_, err := NewApp(context.Background(), cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.NotifyMode = "carrier-pigeon"
	_, err = NewApp(context.Background(), cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.PayPalClientSecret = ""
	_, err = NewApp(context.Background(), cfg)
	assert.Error(t, err, "payments need credentials")
}

func TestOpenStore(t *testing.T) {
	cfg := testConfig(t)

	t.Run("Redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg.StoreDriver = "redis"
		cfg.RedisURL = "redis://" + mr.Addr()
		store, err := openStore(context.Background(), cfg)
		require.NoError(t, err)
		defer store.Close()
		require.NoError(t, store.AddToSet(context.Background(), "smoke", "a"))
		n, err := store.SetCardinality(context.Background(), "smoke")
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("SQLite", func(t *testing.T) {
		cfg.StoreDriver = "sqlite"
		cfg.DatabaseDSN = "file:main_test?mode=memory&cache=shared"
		store, err := openStore(context.Background(), cfg)
		require.NoError(t, err)
		assert.NoError(t, store.Close())
	})

	t.Run("Unsupported", func(t *testing.T) {
		cfg.StoreDriver = "mongo"
		_, err := openStore(context.Background(), cfg)
		assert.Error(t, err)
	})
}

func TestSetupNotifier(t *testing.T) {
	cfg := testConfig(t)

	n, err := setupNotifier(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, notifications.LogNotifier{}, n)

	cfg.NotifyMode = "direct"
	n, err = setupNotifier(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, notifications.LogNotifier{}, n, "no SMTP host falls back to logging")

	cfg.SMTPHost = "smtp.example.com"
	n, err = setupNotifier(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &notifications.EmailNotifier{}, n)

	cfg.NotifyMode = "queue"
	_, err = setupNotifier(cfg, nil)
	assert.Error(t, err, "queue mode needs a broker")
}
