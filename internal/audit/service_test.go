package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"retail-backend/internal/access"
	"retail-backend/internal/apperror"
	"retail-backend/internal/auth"
	"retail-backend/internal/models"
	"retail-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func TestWriteLogSnapshots(t *testing.T) {
	db := testutil.NewDB(t)
	rec := NewRecorder(zaptest.NewLogger(t))
	owner := testutil.CreateOwner(t, db, "olivia")
	store := testutil.CreateStore(t, db, owner, "corner")

	err := db.Transaction(func(tx *gorm.DB) error {
		return rec.WriteLog(tx, LogOptions{
			StoreID:     store.ID,
			AccountID:   owner.ID,
			EntityType:  "inventory_item",
			EntityID:    7,
			Action:      models.AuditActionUpdate,
			Description: "price changed",
			Before:      map[string]float64{"price": 1},
			After:       map[string]float64{"price": 2},
		})
	})
	require.NoError(t, err)

	var entry models.AuditLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "olivia", entry.AccountName)
	assert.JSONEq(t, `{"price":1}`, entry.BeforeData)
	assert.JSONEq(t, `{"price":2}`, entry.AfterData)

	// a rolled back change leaves no entry behind
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := rec.WriteLog(tx, LogOptions{StoreID: store.ID, AccountID: owner.ID, Action: models.AuditActionDelete}); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	var n int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	// channels cannot be encoded
	assert.Equal(t, "null", rec.snapshot(make(chan int)))
	assert.Equal(t, "null", rec.snapshot(nil))
}

func seed(t *testing.T, db *gorm.DB, store models.Store, actor models.Account, entityType string, n int) {
	rec := NewRecorder(zaptest.NewLogger(t))
	for i := 0; i < n; i++ {
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return rec.WriteLog(tx, LogOptions{
				StoreID:    store.ID,
				AccountID:  actor.ID,
				EntityType: entityType,
				EntityID:   uint(i + 1),
				Action:     models.AuditActionCreate,
			})
		}))
	}
}

func TestListIsOwnerOnly(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db, access.NewChecker(db))
	ctx := context.Background()

	owner := testutil.CreateOwner(t, db, "olivia")
	staff := testutil.CreateStaff(t, db, "fred")
	store := testutil.CreateStore(t, db, owner, "corner")
	other := testutil.CreateStore(t, db, owner, "other")
	testutil.AttachStaff(t, db, store, staff)

	seed(t, db, store, owner, "inventory_item", 2)
	seed(t, db, store, staff, "sale", 1)
	seed(t, db, other, owner, "sale", 3)

	logs, err := svc.List(ctx, testutil.Principal(owner), store.ID, "")
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "sale", logs[0].EntityType)
	assert.Equal(t, "fred", logs[0].AccountName)

	logs, err = svc.List(ctx, testutil.Principal(owner), store.ID, "inventory_item")
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	_, err = svc.List(ctx, testutil.Principal(staff), store.ID, "")
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = svc.List(ctx, testutil.Principal(owner), 404, "")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestListAuditLogsHandler(t *testing.T) {
	const secret = "0123456789abcdef0123456789abcdef"
	db := testutil.NewDB(t)
	svc := NewService(db, access.NewChecker(db))
	owner := testutil.CreateOwner(t, db, "olivia")
	store := testutil.CreateStore(t, db, owner, "corner")
	seed(t, db, store, owner, "sale", 2)

	app := fiber.New(fiber.Config{ErrorHandler: apperror.ErrorHandler(zaptest.NewLogger(t))})
	app.Get("/api/audit-logs", auth.JWTMiddleware(secret), ListAuditLogsHandler(svc))

	token, err := auth.GenerateToken(secret, time.Hour, &owner)
	require.NoError(t, err)

	get := func(path string) (int, []byte) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		raw, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, raw
	}

	status, raw := get(fmt.Sprintf("/api/audit-logs?storeId=%d&entityType=sale", store.ID))
	require.Equal(t, http.StatusOK, status, string(raw))
	var logs []AuditLogResponse
	require.NoError(t, json.Unmarshal(raw, &logs))
	assert.Len(t, logs, 2)
	assert.Equal(t, "create", logs[0].Action)

	status, _ = get("/api/audit-logs")
	assert.Equal(t, http.StatusBadRequest, status)
}
