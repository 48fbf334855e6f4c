package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("join: %w", Conflict("already joined"))

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindConflict))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindInternal))
}

func TestStatus(t *testing.T) {
	cases := map[Kind]int{
		KindUnauthorized:    fiber.StatusUnauthorized,
		KindForbidden:       fiber.StatusForbidden,
		KindNotFound:        fiber.StatusNotFound,
		KindInvalidArgument: fiber.StatusBadRequest,
		KindConflict:        fiber.StatusBadRequest,
		KindInternal:        fiber.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, Status(kind), string(kind))
	}
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zaptest.NewLogger(t))})
	app.Get("/missing", func(c *fiber.Ctx) error { return NotFound("item not found") })
	app.Get("/storage", func(c *fiber.Ctx) error {
		return Internal(errors.New("connection reset"), "could not load items")
	})
	app.Get("/fiber", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "tea") })

	cases := []struct {
		path   string
		status int
		msg    string
	}{
		{"/missing", fiber.StatusNotFound, "item not found"},
		{"/storage", fiber.StatusInternalServerError, "could not load items"},
		{"/fiber", fiber.StatusTeapot, "tea"},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest("GET", tc.path, nil))
		require.NoError(t, err)
		assert.Equal(t, tc.status, resp.StatusCode, tc.path)

		body, _ := io.ReadAll(resp.Body)
		var out map[string]string
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Equal(t, tc.msg, out["error"], tc.path)
	}
}
