// Package store manages the stores themselves: opening one and looking them up.
package store

import (
	"context"
	"errors"
	"strings"

	"retail-backend/internal/access"
	"retail-backend/internal/apperror"
	"retail-backend/internal/audit"
	"retail-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const entityStore = "store"

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

// Create opens a new store owned by the caller.
func (s *Service) Create(ctx context.Context, p access.Principal, name, address string) (*models.Store, error) {
	if err := access.RequireRole(p, models.RoleOwner); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	if name == "" || address == "" {
		return nil, apperror.InvalidArgument("store name and address are required")
	}

	store := models.Store{Name: name, Address: address, OwnerID: p.AccountID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&store).Error; err != nil {
			return apperror.Internal(err, "could not create store")
		}
		return s.audit.WriteLog(tx, audit.LogOptions{
			StoreID:     store.ID,
			AccountID:   p.AccountID,
			EntityType:  entityStore,
			EntityID:    store.ID,
			Action:      models.AuditActionCreate,
			Description: "store " + store.Name + " opened",
			After:       store,
		})
	})
	if err != nil {
		return nil, apperror.OrInternal(err, "could not create store")
	}

	s.logger.Info("store created", zap.Uint("store_id", store.ID), zap.Uint("owner_id", p.AccountID))
	return &store, nil
}

// ListAll is the directory staff browse before asking to join. Owners are preloaded.
func (s *Service) ListAll(ctx context.Context, p access.Principal) ([]models.Store, error) {
	if err := access.RequireRole(p, models.RoleStaff); err != nil {
		return nil, err
	}
	var stores []models.Store
	if err := s.db.WithContext(ctx).Preload("Owner").Order("name, id").Find(&stores).Error; err != nil {
		return nil, apperror.Internal(err, "could not list stores")
	}
	return stores, nil
}

func (s *Service) MyStores(ctx context.Context, p access.Principal) ([]models.Store, error) {
	if err := access.RequireRole(p, models.RoleOwner); err != nil {
		return nil, err
	}
	var stores []models.Store
	if err := s.db.WithContext(ctx).Where("owner_id = ?", p.AccountID).Order("id").Find(&stores).Error; err != nil {
		return nil, apperror.Internal(err, "could not list stores")
	}
	return stores, nil
}

// Get is open to any signed-in account; only name and address are exposed by the handler.
func (s *Service) Get(ctx context.Context, storeID uint) (*models.Store, error) {
	var store models.Store
	if err := s.db.WithContext(ctx).First(&store, "id = ?", storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("store not found")
		}
		return nil, apperror.Internal(err, "could not load store")
	}
	return &store, nil
}
