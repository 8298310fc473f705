//go:build integration && postgres

package httpapi

import (
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	app "github.com/bgfactura/invoicing/internal/app"
	"github.com/bgfactura/invoicing/internal/app/runtime"
	"github.com/bgfactura/invoicing/internal/app/services/auth"
	"github.com/bgfactura/invoicing/internal/app/storage/postgres"
	"github.com/bgfactura/invoicing/internal/config"
	"github.com/bgfactura/invoicing/internal/logging"
	"github.com/bgfactura/invoicing/internal/platform/migrations"
)

// Integration test against Postgres to ensure migrations and core flows work with persistence.
func TestIntegrationPostgres(t *testing.T) {
	_ = godotenv.Load() // allow .env for local runs
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping Postgres integration")
	}

	db, err := runtime.OpenDatabase(config.DatabaseConfig{DSN: dsn, MaxOpenConns: 5})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, migrations.Apply(db))

	store := postgres.New(db)
	application, err := app.New(app.Stores{
		Users:     store,
		Companies: store,
		Clients:   store,
		Products:  store,
		Documents: store,
		Expenses:  store,
		Banking:   store,
	}, app.Options{Auth: auth.Config{Secret: testSecret, BcryptCost: 4}}, logging.NewDiscard())
	require.NoError(t, err)
	h, err := NewHandler(application, Options{AuthRateLimit: 600, AuthRateBurst: 100, Version: "it", DB: db}, logging.NewDiscard())
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", gjson.Get(rec.Body.String(), "database").String())

	email := fmt.Sprintf("it-%s@example.bg", uuid.NewString()[:8])
	eik := fmt.Sprintf("%09d", time.Now().UnixNano()%1_000_000_000)
	token := registerOwner(t, h, email, eik)
	clientID := createClient(t, h, token)

	first := createInvoice(t, h, token, clientID)
	second := createInvoice(t, h, token, clientID)
	assert.NotEqual(t, gjson.Get(first, "documentNumber").String(), gjson.Get(second, "documentNumber").String())
	assert.Equal(t, 120.0, gjson.Get(second, "total").Float())
	assert.Len(t, gjson.Get(second, "items").Array(), 1)

	id := gjson.Get(second, "id").Int()
	rec = do(t, h, http.MethodGet, "/api/documents/"+itoa(id), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Beta EOOD", gjson.Get(rec.Body.String(), "client.name").String())

	rec = do(t, h, http.MethodGet, "/api/documents/"+itoa(id)+"/pdf", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/clients/"+itoa(clientID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "client deactivated (has associated documents)", gjson.Get(rec.Body.String(), "message").String())
}
