// Package joinrequest moves staff requests to join a store from pending to approved or rejected.
package joinrequest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"retail-backend/internal/access"
	"retail-backend/internal/apperror"
	"retail-backend/internal/audit"
	"retail-backend/internal/database"
	"retail-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	entityJoinRequest = "join_request"
	msgAlreadySent    = "you already sent a request to this store"
)

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

func (s *Service) SendRequest(ctx context.Context, p access.Principal, storeID uint) (*models.JoinRequest, error) {
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

	onRoster, err := s.access.IsOnRoster(ctx, storeID, p.AccountID)
	if err != nil {
		return nil, err
	}
	if onRoster {
		return nil, apperror.Conflict("you are already part of this store staff")
	}

	var pending int64
	err = s.db.WithContext(ctx).Model(&models.JoinRequest{}).
		Where("staff_id = ? AND store_id = ? AND status = ?", p.AccountID, storeID, models.JoinRequestPending).
		Count(&pending).Error
	if err != nil {
		return nil, apperror.Internal(err, "could not check join requests")
	}
	if pending > 0 {
		return nil, apperror.Conflict(msgAlreadySent)
	}

	req := models.JoinRequest{StaffID: p.AccountID, StoreID: storeID, Status: models.JoinRequestPending}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// idx_join_requests_pending turns a racing duplicate into a unique violation
		if err := tx.Create(&req).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return apperror.Conflict(msgAlreadySent)
			}
			return apperror.Internal(err, "could not create join request")
		}
		return s.audit.WriteLog(tx, audit.LogOptions{
			StoreID:     storeID,
			AccountID:   p.AccountID,
			EntityType:  entityJoinRequest,
			EntityID:    req.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("join request sent to %q", store.Name),
			After:       req,
		})
	})
	if err != nil {
		return nil, apperror.OrInternal(err, "could not create join request")
	}

	req.Store = &store
	s.logger.Info("join request sent", zap.Uint("request_id", req.ID), zap.Uint("store_id", storeID))
	return &req, nil
}

// ListMine returns every request the caller has sent, newest first.
func (s *Service) ListMine(ctx context.Context, p access.Principal) ([]models.JoinRequest, error) {
	if err := access.RequireRole(p, models.RoleStaff); err != nil {
		return nil, err
	}

	var reqs []models.JoinRequest
	err := s.db.WithContext(ctx).Preload("Store").
		Where("staff_id = ?", p.AccountID).
		Order("created_at DESC").Order("id DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, apperror.Internal(err, "could not list join requests")
	}
	return reqs, nil
}

// ListPending returns pending requests for one store, or for every store the caller owns when
// storeID is nil.
func (s *Service) ListPending(ctx context.Context, p access.Principal, storeID *uint) ([]models.JoinRequest, error) {
	if err := access.RequireRole(p, models.RoleOwner); err != nil {
		return nil, err
	}

	owned, err := s.access.OwnedStoreIDs(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return nil, apperror.Forbidden("you do not own any store")
	}

	scope := owned
	if storeID != nil {
		if _, err := s.access.Authorize(ctx, p, *storeID, access.Owner); err != nil {
			return nil, err
		}
		scope = []uint{*storeID}
	}

	var reqs []models.JoinRequest
	err = s.db.WithContext(ctx).Preload("Staff").Preload("Store").
		Where("store_id IN ? AND status = ?", scope, models.JoinRequestPending).
		Order("created_at DESC").Order("id DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, apperror.Internal(err, "could not list join requests")
	}
	return reqs, nil
}

// SetStatus resolves a pending request. Approved and rejected are final: resolving a request
// twice is a Conflict. Approval does not put the staff member on the roster.
func (s *Service) SetStatus(ctx context.Context, p access.Principal, requestID uint, status models.JoinRequestStatus) (*models.JoinRequest, error) {
	if !status.Terminal() {
		return nil, apperror.InvalidArgument("invalid status")
	}

	var req models.JoinRequest
	if err := s.db.WithContext(ctx).First(&req, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("request not found")
		}
		return nil, apperror.Internal(err, "could not load join request")
	}

	if _, err := s.access.Authorize(ctx, p, req.StoreID, access.Owner); err != nil {
		if apperror.Is(err, apperror.KindForbidden) {
			return nil, apperror.Forbidden("not authorized")
		}
		return nil, err
	}

	if req.Status.Terminal() {
		return nil, apperror.Conflict(fmt.Sprintf("request already %s", req.Status))
	}

	before := req
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.JoinRequest{}).
			Where("id = ? AND status = ?", requestID, models.JoinRequestPending).
			Updates(map[string]any{"status": status, "updated_at": time.Now()})
		if res.Error != nil {
			return apperror.Internal(res.Error, "could not update join request")
		}
		if res.RowsAffected == 0 {
			return apperror.Conflict("request already resolved")
		}
		if err := tx.First(&req, "id = ?", requestID).Error; err != nil {
			return apperror.Internal(err, "could not reload join request")
		}
		return s.audit.WriteLog(tx, audit.LogOptions{
			StoreID:     req.StoreID,
			AccountID:   p.AccountID,
			EntityType:  entityJoinRequest,
			EntityID:    req.ID,
			Action:      models.AuditActionStatus,
			Description: fmt.Sprintf("join request %s", status),
			Before:      before,
			After:       req,
		})
	})
	if err != nil {
		return nil, apperror.OrInternal(err, "could not update join request")
	}

	s.logger.Info("join request resolved", zap.Uint("request_id", req.ID), zap.String("status", string(status)))
	return &req, nil
}
