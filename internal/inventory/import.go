package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"retail-backend/internal/access"
	"retail-backend/internal/apperror"
	"retail-backend/internal/audit"
	"retail-backend/internal/database"
	"retail-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ImportAction string

const (
	ImportCreated ImportAction = "created"
	ImportMerged  ImportAction = "merged"
	ImportFailed  ImportAction = "failed"
)

// ImportRow is one line of a bulk import. Name, Category and Price may be left out when the sku
// already exists; Stock is always added to what is on hand.
type ImportRow struct {
	SKU      string
	Name     *string
	Category *string
	Price    *float64
	Stock    int
}

type ImportOutcome struct {
	Row    int          `json:"row"`
	SKU    string       `json:"sku"`
	Action ImportAction `json:"action"`
	ItemID uint         `json:"itemId,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// MergeBySku applies every row on its own. A failing row is reported and does not undo rows
// that were already applied.
func (s *Service) MergeBySku(ctx context.Context, p access.Principal, storeID uint, rows []ImportRow) ([]ImportOutcome, error) {
	if _, err := s.access.Authorize(ctx, p, storeID, access.Owner); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperror.InvalidArgument("no rows to import")
	}

	outcomes := make([]ImportOutcome, 0, len(rows))
	for i, row := range rows {
		outcome := ImportOutcome{Row: i + 1, SKU: strings.TrimSpace(row.SKU)}

		itemID, action, err := s.mergeRow(ctx, p, storeID, row)
		if err != nil {
			if apperror.KindOf(err) == apperror.KindInternal {
				s.logger.Error("import row failed", zap.Int("row", outcome.Row), zap.Error(err))
			}
			outcome.Action = ImportFailed
			outcome.Error = publicMessage(err)
		} else {
			outcome.Action = action
			outcome.ItemID = itemID
		}
		outcomes = append(outcomes, outcome)
	}

	s.logger.Info("inventory import finished", zap.Uint("store_id", storeID), zap.Int("rows", len(rows)))
	return outcomes, nil
}

func (s *Service) mergeRow(ctx context.Context, p access.Principal, storeID uint, row ImportRow) (uint, ImportAction, error) {
	sku := strings.TrimSpace(row.SKU)
	if sku == "" {
		return 0, "", apperror.InvalidArgument("sku is required")
	}
	if row.Stock < 0 {
		return 0, "", apperror.InvalidArgument("stock must be a non-negative integer")
	}
	if row.Price != nil && !validPrice(*row.Price) {
		return 0, "", apperror.InvalidArgument("price must be a non-negative number")
	}

	var (
		itemID uint
		action ImportAction
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.InventoryItem
		err := tx.Where("store_id = ? AND sku = ?", storeID, sku).First(&existing).Error
		switch {
		case err == nil:
			itemID, action = existing.ID, ImportMerged
			return s.mergeExisting(tx, p, &existing, row)
		case errors.Is(err, gorm.ErrRecordNotFound):
			action = ImportCreated
			id, err := s.createFromRow(tx, p, storeID, sku, row)
			itemID = id
			return err
		default:
			return apperror.Internal(err, "could not look up sku")
		}
	})
	if err != nil {
		return 0, "", err
	}
	return itemID, action, nil
}

func (s *Service) mergeExisting(tx *gorm.DB, p access.Principal, existing *models.InventoryItem, row ImportRow) error {
	updates := map[string]any{"stock": gorm.Expr("stock + ?", row.Stock)}
	if row.Name != nil && strings.TrimSpace(*row.Name) != "" {
		updates["name"] = strings.TrimSpace(*row.Name)
	}
	if row.Category != nil && strings.TrimSpace(*row.Category) != "" {
		updates["category"] = strings.TrimSpace(*row.Category)
	}
	if row.Price != nil {
		updates["price"] = *row.Price
	}

	if err := tx.Model(&models.InventoryItem{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return apperror.Internal(err, "could not merge item")
	}

	var after models.InventoryItem
	if err := tx.First(&after, "id = ?", existing.ID).Error; err != nil {
		return apperror.Internal(err, "could not reload item")
	}
	return s.audit.WriteLog(tx, audit.LogOptions{
		StoreID:     existing.StoreID,
		AccountID:   p.AccountID,
		EntityType:  entityItem,
		EntityID:    existing.ID,
		Action:      models.AuditActionImport,
		Description: fmt.Sprintf("import added %d to %q", row.Stock, after.Name),
		Before:      existing,
		After:       after,
	})
}

func (s *Service) createFromRow(tx *gorm.DB, p access.Principal, storeID uint, sku string, row ImportRow) (uint, error) {
	if row.Price == nil {
		return 0, apperror.InvalidArgument("price is required for new items")
	}
	item := models.InventoryItem{
		StoreID: storeID,
		SKU:     &sku,
		Price:   *row.Price,
		Stock:   row.Stock,
	}
	if row.Name != nil {
		item.Name = strings.TrimSpace(*row.Name)
	}
	if row.Category != nil {
		item.Category = strings.TrimSpace(*row.Category)
	}
	if err := validateItem(&item); err != nil {
		return 0, err
	}

	if err := tx.Create(&item).Error; err != nil {
		if database.IsDuplicateKey(err) {
			// another import created the sku between the lookup and the insert
			return 0, apperror.Conflict(msgSKUTaken)
		}
		return 0, apperror.Internal(err, "could not create item")
	}
	if err := s.audit.WriteLog(tx, audit.LogOptions{
		StoreID:     storeID,
		AccountID:   p.AccountID,
		EntityType:  entityItem,
		EntityID:    item.ID,
		Action:      models.AuditActionImport,
		Description: fmt.Sprintf("import created %q", item.Name),
		After:       item,
	}); err != nil {
		return 0, err
	}
	return item.ID, nil
}

func publicMessage(err error) string {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}
