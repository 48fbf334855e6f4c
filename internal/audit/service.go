package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"retail-backend/internal/access"
	"retail-backend/internal/apperror"
	"retail-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LogOptions struct {
	StoreID     uint
	AccountID   uint
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// Recorder writes audit entries with the caller's transaction, so an entry exists exactly when
// the change it describes was committed.
type Recorder struct {
	logger *zap.Logger
}

func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{logger: logger}
}

func (r *Recorder) WriteLog(tx *gorm.DB, opts LogOptions) error {
	var name string
	if err := tx.Model(&models.Account{}).Select("name").
		Where("id = ?", opts.AccountID).Scan(&name).Error; err != nil {
		return fmt.Errorf("could not resolve audit actor: %w", err)
	}

	entry := models.AuditLog{
		StoreID:     opts.StoreID,
		AccountID:   opts.AccountID,
		AccountName: name,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  r.snapshot(opts.Before),
		AfterData:   r.snapshot(opts.After),
	}

	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("could not save audit log: %w", err)
	}
	return nil
}

// snapshot encodes v as JSON; "null" when there is nothing to record.
func (r *Recorder) snapshot(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		r.logger.Warn("audit snapshot not encodable", zap.Error(err))
		return "null"
	}
	return string(b)
}

type Service struct {
	db     *gorm.DB
	access *access.Checker
}

func NewService(db *gorm.DB, checker *access.Checker) *Service {
	return &Service{db: db, access: checker}
}

// List returns a store's history, newest first. Only the store owner may read it.
func (s *Service) List(ctx context.Context, p access.Principal, storeID uint, entityType string) ([]models.AuditLog, error) {
	if _, err := s.access.Authorize(ctx, p, storeID, access.Owner); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Where("store_id = ?", storeID)
	if entityType != "" {
		q = q.Where("entity_type = ?", entityType)
	}

	var logs []models.AuditLog
	if err := q.Order("created_at DESC").Order("id DESC").Find(&logs).Error; err != nil {
		return nil, apperror.Internal(err, "could not list audit logs")
	}
	return logs, nil
}
