// Package access decides whether a principal may act on a store.
package access

import (
	"context"
	"errors"

	"retail-backend/internal/apperror"
	"retail-backend/internal/models"

	"gorm.io/gorm"
)

// Principal is the already-authenticated caller.
type Principal struct {
	AccountID uint
	Role      models.Role
}

type Relation int

const (
	// Owner: the store's owner only.
	Owner Relation = iota
	// Member: the owner or an account on the store's roster.
	Member
)

func (r Relation) String() string {
	if r == Owner {
		return "owner"
	}
	return "member"
}

type Checker struct {
	db *gorm.DB
}

func NewChecker(db *gorm.DB) *Checker {
	return &Checker{db: db}
}

// Authorize loads the store and checks rel. It never writes.
func (c *Checker) Authorize(ctx context.Context, p Principal, storeID uint, rel Relation) (*models.Store, error) {
	var store models.Store
	if err := c.db.WithContext(ctx).First(&store, "id = ?", storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("store not found")
		}
		return nil, apperror.Internal(err, "could not load store")
	}

	if store.OwnerID == p.AccountID {
		return &store, nil
	}
	if rel == Owner {
		return nil, apperror.Forbidden("only the store owner can do this")
	}

	onRoster, err := c.IsOnRoster(ctx, storeID, p.AccountID)
	if err != nil {
		return nil, err
	}
	if !onRoster {
		return nil, apperror.Forbidden("you are not a member of this store")
	}
	return &store, nil
}

func (c *Checker) IsOnRoster(ctx context.Context, storeID, accountID uint) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).Model(&models.StoreStaff{}).
		Where("store_id = ? AND account_id = ?", storeID, accountID).
		Count(&count).Error
	if err != nil {
		return false, apperror.Internal(err, "could not load store staff")
	}
	return count > 0, nil
}

// OwnedStoreIDs lists the stores p owns.
func (c *Checker) OwnedStoreIDs(ctx context.Context, p Principal) ([]uint, error) {
	var ids []uint
	err := c.db.WithContext(ctx).Model(&models.Store{}).
		Where("owner_id = ?", p.AccountID).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, apperror.Internal(err, "could not load stores")
	}
	return ids, nil
}

// MemberStoreIDs lists every store p owns or is on the roster of.
func (c *Checker) MemberStoreIDs(ctx context.Context, p Principal) ([]uint, error) {
	owned, err := c.OwnedStoreIDs(ctx, p)
	if err != nil {
		return nil, err
	}

	var staffed []uint
	err = c.db.WithContext(ctx).Model(&models.StoreStaff{}).
		Where("account_id = ?", p.AccountID).
		Order("store_id").
		Pluck("store_id", &staffed).Error
	if err != nil {
		return nil, apperror.Internal(err, "could not load store staff")
	}

	seen := make(map[uint]bool, len(owned)+len(staffed))
	ids := make([]uint, 0, len(owned)+len(staffed))
	for _, id := range append(owned, staffed...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// RequireRole rejects callers whose account role is not role.
func RequireRole(p Principal, role models.Role) error {
	if p.AccountID == 0 {
		return apperror.Unauthorized("not authenticated")
	}
	if p.Role != role {
		return apperror.Forbidden("access restricted to " + string(role) + " accounts")
	}
	return nil
}

// HideScope turns a Forbidden answer into NotFound so callers cannot probe for objects
// that belong to other stores.
func HideScope(err error, msg string) error {
	if apperror.Is(err, apperror.KindForbidden) || apperror.Is(err, apperror.KindNotFound) {
		return apperror.NotFound(msg)
	}
	return err
}
