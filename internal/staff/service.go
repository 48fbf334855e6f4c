// Package staff keeps store rosters and the staff account's store attachment in step.
package staff

import (
	"context"
	"errors"
	"fmt"

	"retail-backend/internal/access"
	"retail-backend/internal/apperror"
	"retail-backend/internal/audit"
	"retail-backend/internal/database"
	"retail-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const entityStoreStaff = "store_staff"

type Member struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	StoreID *uint  `json:"storeId"`
}

type Service struct {
	db     *gorm.DB
	access *access.Checker
	audit  *audit.Recorder
	logger *zap.Logger
}

func NewService(db *gorm.DB, checker *access.Checker, recorder *audit.Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, access: checker, audit: recorder, logger: logger}
}

// Join puts the calling staff account on the store roster and clears their pending request for it.
// A staff account works at one store at a time.
func (s *Service) Join(ctx context.Context, p access.Principal, storeID uint) (*models.Store, error) {
	if err := access.RequireRole(p, models.RoleStaff); err != nil {
		return nil, err
	}

	var store models.Store
	if err := s.db.WithContext(ctx).First(&store, "id = ?", storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("store not found")
		}
		return nil, apperror.Internal(err, "could not load store")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []models.StoreStaff
		if err := tx.Where("account_id = ?", p.AccountID).Find(&current).Error; err != nil {
			return apperror.Internal(err, "could not load store staff")
		}
		if len(current) > 0 {
			if current[0].StoreID == storeID {
				return apperror.Conflict("you are already part of this store staff")
			}
			return apperror.Conflict("you already work at another store")
		}

		if err := tx.Create(&models.StoreStaff{StoreID: storeID, AccountID: p.AccountID}).Error; err != nil {
			// idx_store_staff_account: a racing join to any store lost
			if database.IsDuplicateKey(err) {
				return apperror.Conflict("you already work at a store")
			}
			return apperror.Internal(err, "could not join store")
		}

		res := tx.Model(&models.Account{}).Where("id = ?", p.AccountID).Update("store_id", storeID)
		if res.Error != nil {
			return apperror.Internal(res.Error, "could not update account")
		}
		if res.RowsAffected == 0 {
			return apperror.Unauthorized("account no longer exists")
		}

		if err := tx.Where("staff_id = ? AND store_id = ? AND status = ?", p.AccountID, storeID, models.JoinRequestPending).
			Delete(&models.JoinRequest{}).Error; err != nil {
			return apperror.Internal(err, "could not clean up join requests")
		}

		return s.audit.WriteLog(tx, audit.LogOptions{
			StoreID:     storeID,
			AccountID:   p.AccountID,
			EntityType:  entityStoreStaff,
			EntityID:    p.AccountID,
			Action:      models.AuditActionJoin,
			Description: fmt.Sprintf("joined %q", store.Name),
		})
	})
	if err != nil {
		return nil, apperror.OrInternal(err, "could not join store")
	}

	s.logger.Info("staff joined store", zap.Uint("account_id", p.AccountID), zap.Uint("store_id", storeID))
	return &store, nil
}

// ownedStore checks ownership and reports a store the caller does not own as missing.
func (s *Service) ownedStore(ctx context.Context, p access.Principal, storeID uint) (*models.Store, error) {
	store, err := s.access.Authorize(ctx, p, storeID, access.Owner)
	if err != nil {
		return nil, access.HideScope(err, "store not found")
	}
	return store, nil
}

func (s *Service) Fire(ctx context.Context, p access.Principal, storeID, staffID uint) error {
	store, err := s.ownedStore(ctx, p, storeID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("store_id = ? AND account_id = ?", storeID, staffID).Delete(&models.StoreStaff{})
		if res.Error != nil {
			return apperror.Internal(res.Error, "could not update store staff")
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound("staff member not part of your store")
		}

		if err := tx.Model(&models.Account{}).
			Where("id = ? AND store_id = ?", staffID, storeID).
			Update("store_id", nil).Error; err != nil {
			return apperror.Internal(err, "could not update account")
		}

		return s.audit.WriteLog(tx, audit.LogOptions{
			StoreID:     storeID,
			AccountID:   p.AccountID,
			EntityType:  entityStoreStaff,
			EntityID:    staffID,
			Action:      models.AuditActionFire,
			Description: fmt.Sprintf("staff %d removed from %q", staffID, store.Name),
		})
	})
	if err != nil {
		return apperror.OrInternal(err, "could not fire staff member")
	}

	s.logger.Info("staff fired", zap.Uint("account_id", staffID), zap.Uint("store_id", storeID))
	return nil
}

func (s *Service) ListStaff(ctx context.Context, p access.Principal, storeID uint) ([]Member, error) {
	if _, err := s.ownedStore(ctx, p, storeID); err != nil {
		return nil, err
	}

	var accounts []models.Account
	err := s.db.WithContext(ctx).
		Joins("JOIN store_staff ON store_staff.account_id = accounts.id").
		Where("store_staff.store_id = ?", storeID).
		Order("accounts.name").
		Find(&accounts).Error
	if err != nil {
		return nil, apperror.Internal(err, "could not list staff")
	}

	members := make([]Member, 0, len(accounts))
	for _, a := range accounts {
		members = append(members, Member{ID: a.ID, Name: a.Name, Email: a.Email, Phone: a.Phone, StoreID: a.StoreID})
	}
	return members, nil
}
