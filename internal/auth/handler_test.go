package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"retail-backend/internal/apperror"
	"retail-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestApp(t *testing.T, svc *Service) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apperror.ErrorHandler(zaptest.NewLogger(t))})
	app.Post("/api/auth/register", RegisterHandler(svc))
	app.Post("/api/auth/login", LoginHandler(svc))

	protected := app.Group("/api", JWTMiddleware(testSecret))
	protected.Get("/auth/me", MeHandler(svc))
	protected.Get("/owner-only", RequireRole(models.RoleOwner), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)

	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t, newTestService(t))

	status, body := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Olivia", "email": "olivia@example.com", "phone": "5551234",
		"password": "pw-123456", "confirmPassword": "pw-123456",
		"role": "admin", "storeName": "Corner", "address": "Main st 1",
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "Corner", body["store"].(map[string]any)["name"])

	status, body = doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Olivia", "email": "olivia@example.com", "phone": "5551234",
		"password": "pw-123456", "confirmPassword": "pw-123456", "role": "staff",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "user already exists", body["error"])

	status, body = doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "X", "email": "x@example.com", "phone": "1", "password": "a", "confirmPassword": "a", "role": "boss",
	})
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, body = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "olivia@example.com", "password": "pw-123456",
	})
	require.Equal(t, http.StatusOK, status)
	token := body["token"].(string)

	status, body = doJSON(t, app, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "owner", body["role"])

	status, _ = doJSON(t, app, http.MethodGet, "/api/owner-only", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRequireRoleRejectsStaff(t *testing.T) {
	app := newTestApp(t, newTestService(t))

	token, err := GenerateToken(testSecret, time.Hour, &models.Account{ID: 9, Role: models.RoleStaff})
	require.NoError(t, err)

	status, body := doJSON(t, app, http.MethodGet, "/api/owner-only", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.NotEmpty(t, body["error"])
}
