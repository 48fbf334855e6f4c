package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"retail-backend/internal/apperror"
	"retail-backend/internal/auth"
	"retail-backend/internal/models"
	"retail-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestApp(t *testing.T, svc *Service) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apperror.ErrorHandler(zaptest.NewLogger(t))})
	api := app.Group("/api", auth.JWTMiddleware(testSecret))
	api.Get("/inventory", ListItemsHandler(svc))
	api.Get("/inventory/:id", GetItemHandler(svc))

	ownerOnly := auth.RequireRole(models.RoleOwner)
	api.Post("/inventory/import", ownerOnly, ImportHandler(svc))
	api.Post("/inventory", ownerOnly, CreateItemHandler(svc))
	api.Put("/inventory/:id", ownerOnly, UpdateItemHandler(svc))
	api.Delete("/inventory/:id", ownerOnly, DeleteItemHandler(svc))
	return app
}

func tokenFor(t *testing.T, acc models.Account) string {
	token, err := auth.GenerateToken(testSecret, time.Hour, &acc)
	require.NoError(t, err)
	return token
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)

	out := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestInventoryHandlers(t *testing.T) {
	f := newFixture(t)
	app := newTestApp(t, f.svc)
	ownerTok := tokenFor(t, f.owner)
	staffTok := tokenFor(t, f.staff)

	status, body := call(t, app, http.MethodPost, "/api/inventory", ownerTok, map[string]any{
		"storeId": f.store.ID, "name": "Milk", "sku": "M-1", "category": "dairy", "price": 1.5, "stock": 10,
	})
	require.Equal(t, http.StatusCreated, status, body)
	id := uint(body["id"].(float64))

	status, body = call(t, app, http.MethodPost, "/api/inventory", ownerTok, map[string]any{
		"storeId": f.store.ID, "name": "Milk", "sku": "M-1", "category": "dairy", "price": 1.5,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, msgSKUTaken, body["error"])

	status, _ = call(t, app, http.MethodPost, "/api/inventory", staffTok, map[string]any{
		"storeId": f.store.ID, "name": "Eggs", "category": "dairy", "price": 1,
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = call(t, app, http.MethodGet, fmt.Sprintf("/api/inventory?storeId=%d&search=mil&limit=5", f.store.ID), staffTok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])
	assert.EqualValues(t, 1, body["page"])
	assert.EqualValues(t, 1, body["totalPages"])
	assert.Len(t, body["items"], 1)

	status, _ = call(t, app, http.MethodGet, "/api/inventory?storeId=abc", staffTok, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = call(t, app, http.MethodPost, "/api/inventory/import", ownerTok, map[string]any{
		"storeId": f.store.ID,
		"rows": []map[string]any{
			{"sku": "M-1", "stock": 5},
			{"sku": "B-1", "name": "Bread", "category": "bakery", "price": 0.8, "stock": 3},
			{"sku": "", "stock": 1},
		},
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 1, body["created"])
	assert.EqualValues(t, 1, body["merged"])
	assert.EqualValues(t, 1, body["failed"])
	assert.Equal(t, 15, testutil.Stock(t, f.db, id))

	status, body = call(t, app, http.MethodPut, fmt.Sprintf("/api/inventory/%d", id), ownerTok, map[string]any{"price": 2})
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["price"])

	status, body = call(t, app, http.MethodDelete, fmt.Sprintf("/api/inventory/%d", id), ownerTok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "item deleted", body["message"])

	status, _ = call(t, app, http.MethodGet, fmt.Sprintf("/api/inventory/%d", id), staffTok, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
