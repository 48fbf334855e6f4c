package joinrequest

import (
	"context"
	"sync"
	"testing"

	"retail-backend/internal/access"
	"retail-backend/internal/apperror"
	"retail-backend/internal/audit"
	"retail-backend/internal/models"
	"retail-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db := testutil.NewDB(t)
	logger := zaptest.NewLogger(t)
	return NewService(db, access.NewChecker(db), audit.NewRecorder(logger), logger), db
}

func pendingCount(t *testing.T, db *gorm.DB, staffID, storeID uint) int64 {
	var n int64
	require.NoError(t, db.Model(&models.JoinRequest{}).
		Where("staff_id = ? AND store_id = ? AND status = ?", staffID, storeID, models.JoinRequestPending).
		Count(&n).Error)
	return n
}

func TestSinglePendingAndReRequest(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	owner := testutil.CreateOwner(t, db, "olivia")
	staff := testutil.CreateStaff(t, db, "sam")
	store := testutil.CreateStore(t, db, owner, "corner")
	staffP := testutil.Principal(staff)

	first, err := svc.SendRequest(ctx, staffP, store.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JoinRequestPending, first.Status)

	_, err = svc.SendRequest(ctx, staffP, store.ID)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	assert.EqualValues(t, 1, pendingCount(t, db, staff.ID, store.ID))

	_, err = svc.SetStatus(ctx, testutil.Principal(owner), first.ID, models.JoinRequestRejected)
	require.NoError(t, err)

	third, err := svc.SendRequest(ctx, staffP, store.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
	assert.EqualValues(t, 1, pendingCount(t, db, staff.ID, store.ID))

	mine, err := svc.ListMine(ctx, staffP)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, third.ID, mine[0].ID)
	require.NotNil(t, mine[0].Store)
	assert.Equal(t, "corner", mine[0].Store.Name)
}

func TestConcurrentSendRequestLeavesOnePending(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	owner := testutil.CreateOwner(t, db, "olivia")
	staff := testutil.CreateStaff(t, db, "sam")
	store := testutil.CreateStore(t, db, owner, "corner")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SendRequest(ctx, testutil.Principal(staff), store.ID)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.EqualValues(t, 1, pendingCount(t, db, staff.ID, store.ID))
}

func TestSendRequestRules(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	owner := testutil.CreateOwner(t, db, "olivia")
	staff := testutil.CreateStaff(t, db, "sam")
	store := testutil.CreateStore(t, db, owner, "corner")

	_, err := svc.SendRequest(ctx, testutil.Principal(owner), store.ID)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = svc.SendRequest(ctx, testutil.Principal(staff), 4242)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	testutil.AttachStaff(t, db, store, staff)
	_, err = svc.SendRequest(ctx, testutil.Principal(staff), store.ID)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestSetStatus(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	owner := testutil.CreateOwner(t, db, "olivia")
	intruder := testutil.CreateOwner(t, db, "oscar")
	testutil.CreateStore(t, db, intruder, "rival")
	staff := testutil.CreateStaff(t, db, "sam")
	store := testutil.CreateStore(t, db, owner, "corner")
	ownerP := testutil.Principal(owner)

	req, err := svc.SendRequest(ctx, testutil.Principal(staff), store.ID)
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, ownerP, 999, models.JoinRequestApproved)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, err = svc.SetStatus(ctx, ownerP, req.ID, models.JoinRequestPending)
	assert.Equal(t, apperror.KindInvalidArgument, apperror.KindOf(err))

	_, err = svc.SetStatus(ctx, ownerP, req.ID, "maybe")
	assert.Equal(t, apperror.KindInvalidArgument, apperror.KindOf(err))

	_, err = svc.SetStatus(ctx, testutil.Principal(intruder), req.ID, models.JoinRequestApproved)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	approved, err := svc.SetStatus(ctx, ownerP, req.ID, models.JoinRequestApproved)
	require.NoError(t, err)
	assert.Equal(t, models.JoinRequestApproved, approved.Status)

	// terminal states are final, including re-applying the same status
	_, err = svc.SetStatus(ctx, ownerP, req.ID, models.JoinRequestApproved)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	_, err = svc.SetStatus(ctx, ownerP, req.ID, models.JoinRequestRejected)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	// approval does not attach
	var acc models.Account
	require.NoError(t, db.First(&acc, staff.ID).Error)
	assert.Nil(t, acc.StoreID)
	onRoster, err := access.NewChecker(db).IsOnRoster(ctx, store.ID, staff.ID)
	require.NoError(t, err)
	assert.False(t, onRoster)
}

func TestListPending(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	owner := testutil.CreateOwner(t, db, "olivia")
	storeless := testutil.CreateOwner(t, db, "nora")
	a := testutil.CreateStore(t, db, owner, "a")
	b := testutil.CreateStore(t, db, owner, "b")
	other := testutil.CreateStore(t, db, testutil.CreateOwner(t, db, "oscar"), "other")
	sam := testutil.CreateStaff(t, db, "sam")
	sue := testutil.CreateStaff(t, db, "sue")

	for _, s := range []struct {
		staff models.Account
		store models.Store
	}{{sam, a}, {sue, b}, {sue, other}} {
		_, err := svc.SendRequest(ctx, testutil.Principal(s.staff), s.store.ID)
		require.NoError(t, err)
	}

	ownerP := testutil.Principal(owner)
	all, err := svc.ListPending(ctx, ownerP, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].Staff)

	onlyB, err := svc.ListPending(ctx, ownerP, &b.ID)
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.Equal(t, "sue", onlyB[0].Staff.Name)

	_, err = svc.ListPending(ctx, ownerP, &other.ID)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = svc.ListPending(ctx, testutil.Principal(storeless), nil)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = svc.ListPending(ctx, testutil.Principal(sam), nil)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}
