package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"retail-backend/internal/access"
	"retail-backend/internal/apperror"
	"retail-backend/internal/audit"
	"retail-backend/internal/database"
	"retail-backend/internal/models"
	"retail-backend/internal/pagination"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	entityItem      = "inventory_item"
	msgItemNotFound = "item not found"
	msgSKUTaken     = "sku already exists in this store"
)

type CreateItemInput struct {
	Name     string
	SKU      *string
	Category string
	Price    float64
	Stock    int
}

// ItemPatch holds the fields to change; nil means keep.
type ItemPatch struct {
	Name     *string
	SKU      *string
	Category *string
	Price    *float64
	Stock    *int
}

type ItemFilter struct {
	Search   string
	Category string
	MinStock *int
	MaxStock *int
	SortBy   string
	Order    string
	Page     int
	Limit    int
}

type ItemList struct {
	Items      []models.InventoryItem
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

var sortColumns = map[string]string{
	"createdAt": "created_at",
	"name":      "name",
	"price":     "price",
	"stock":     "stock",
	"category":  "category",
}

type Service struct {
	db          *gorm.DB
	access      *access.Checker
	audit       *audit.Recorder
	logger      *zap.Logger
	pageSizeMax int
}

func NewService(db *gorm.DB, checker *access.Checker, recorder *audit.Recorder, logger *zap.Logger, pageSizeMax int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSizeMax <= 0 {
		pageSizeMax = 100
	}
	return &Service{db: db, access: checker, audit: recorder, logger: logger, pageSizeMax: pageSizeMax}
}

func normalizeSKU(sku *string) *string {
	if sku == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*sku)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func validPrice(p float64) bool {
	return p >= 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}

func validateItem(item *models.InventoryItem) error {
	if item.Name == "" {
		return apperror.InvalidArgument("name is required")
	}
	if item.Category == "" {
		return apperror.InvalidArgument("category is required")
	}
	if !validPrice(item.Price) {
		return apperror.InvalidArgument("price must be a non-negative number")
	}
	if item.Stock < 0 {
		return apperror.InvalidArgument("stock must be a non-negative integer")
	}
	return nil
}

func (s *Service) CreateItem(ctx context.Context, p access.Principal, storeID uint, in CreateItemInput) (*models.InventoryItem, error) {
	if _, err := s.access.Authorize(ctx, p, storeID, access.Owner); err != nil {
		return nil, err
	}

	item := models.InventoryItem{
		StoreID:  storeID,
		Name:     strings.TrimSpace(in.Name),
		SKU:      normalizeSKU(in.SKU),
		Category: strings.TrimSpace(in.Category),
		Price:    in.Price,
		Stock:    in.Stock,
	}
	if err := validateItem(&item); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&item).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return apperror.Conflict(msgSKUTaken)
			}
			return apperror.Internal(err, "could not create item")
		}
		return s.audit.WriteLog(tx, audit.LogOptions{
			StoreID:     storeID,
			AccountID:   p.AccountID,
			EntityType:  entityItem,
			EntityID:    item.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("item %q created", item.Name),
			After:       item,
		})
	})
	if err != nil {
		return nil, apperror.OrInternal(err, "could not create item")
	}

	s.logger.Info("item created", zap.Uint("item_id", item.ID), zap.Uint("store_id", storeID))
	return &item, nil
}

func (s *Service) ListItems(ctx context.Context, p access.Principal, storeID uint, f ItemFilter) (*ItemList, error) {
	if _, err := s.access.Authorize(ctx, p, storeID, access.Member); err != nil {
		return nil, err
	}

	page, err := pagination.Bounds(f.Page, f.Limit, s.pageSizeMax)
	if err != nil {
		return nil, err
	}
	if f.MinStock != nil && f.MaxStock != nil && *f.MinStock > *f.MaxStock {
		return nil, apperror.InvalidArgument("minStock cannot exceed maxStock")
	}

	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = "createdAt"
	}
	column, ok := sortColumns[sortBy]
	if !ok {
		return nil, apperror.InvalidArgument("unknown sortBy " + sortBy)
	}
	desc, err := pagination.Descending(f.Order)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Model(&models.InventoryItem{}).Where("store_id = ?", storeID)
	if search := strings.TrimSpace(f.Search); search != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, database.ContainsPattern(search))
	}
	if category := strings.TrimSpace(f.Category); category != "" {
		q = q.Where(`LOWER(category) LIKE ? ESCAPE '\'`, database.ContainsPattern(category))
	}
	if f.MinStock != nil {
		q = q.Where("stock >= ?", *f.MinStock)
	}
	if f.MaxStock != nil {
		q = q.Where("stock <= ?", *f.MaxStock)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, apperror.Internal(err, "could not count items")
	}

	var items []models.InventoryItem
	err = q.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc}).
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&items).Error
	if err != nil {
		return nil, apperror.Internal(err, "could not list items")
	}

	return &ItemList{
		Items:      items,
		Total:      total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages(total),
	}, nil
}

func (s *Service) loadItem(ctx context.Context, itemID uint) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := s.db.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound(msgItemNotFound)
		}
		return nil, apperror.Internal(err, "could not load item")
	}
	return &item, nil
}

// scopedItem loads the item and checks rel on its store. Items outside the caller's scope
// are reported as missing.
func (s *Service) scopedItem(ctx context.Context, p access.Principal, itemID uint, rel access.Relation) (*models.InventoryItem, error) {
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.Authorize(ctx, p, item.StoreID, rel); err != nil {
		return nil, access.HideScope(err, msgItemNotFound)
	}
	return item, nil
}

func (s *Service) GetItem(ctx context.Context, p access.Principal, itemID uint) (*models.InventoryItem, error) {
	return s.scopedItem(ctx, p, itemID, access.Member)
}

func (s *Service) UpdateItem(ctx context.Context, p access.Principal, itemID uint, patch ItemPatch) (*models.InventoryItem, error) {
	before, err := s.scopedItem(ctx, p, itemID, access.Owner)
	if err != nil {
		return nil, err
	}

	after := *before
	updates := map[string]any{}
	if patch.Name != nil {
		after.Name = strings.TrimSpace(*patch.Name)
		updates["name"] = after.Name
	}
	if patch.SKU != nil {
		after.SKU = normalizeSKU(patch.SKU)
		updates["sku"] = after.SKU
	}
	if patch.Category != nil {
		after.Category = strings.TrimSpace(*patch.Category)
		updates["category"] = after.Category
	}
	if patch.Price != nil {
		after.Price = *patch.Price
		updates["price"] = after.Price
	}
	if patch.Stock != nil {
		after.Stock = *patch.Stock
		updates["stock"] = after.Stock
	}
	if err := validateItem(&after); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return before, nil
	}

	// Only the patched columns are written so a concurrent sale's decrement is not overwritten.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.InventoryItem{}).Where("id = ?", itemID).Updates(updates)
		if res.Error != nil {
			if database.IsDuplicateKey(res.Error) {
				return apperror.Conflict(msgSKUTaken)
			}
			return apperror.Internal(res.Error, "could not update item")
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound(msgItemNotFound)
		}
		if err := tx.First(&after, "id = ?", itemID).Error; err != nil {
			return apperror.Internal(err, "could not reload item")
		}
		return s.audit.WriteLog(tx, audit.LogOptions{
			StoreID:     before.StoreID,
			AccountID:   p.AccountID,
			EntityType:  entityItem,
			EntityID:    itemID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("item %q updated", after.Name),
			Before:      before,
			After:       after,
		})
	})
	if err != nil {
		return nil, apperror.OrInternal(err, "could not update item")
	}

	s.logger.Info("item updated", zap.Uint("item_id", itemID))
	return &after, nil
}

func (s *Service) DeleteItem(ctx context.Context, p access.Principal, itemID uint) error {
	item, err := s.scopedItem(ctx, p, itemID, access.Owner)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.InventoryItem{}, "id = ?", itemID)
		if res.Error != nil {
			return apperror.Internal(res.Error, "could not delete item")
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound(msgItemNotFound)
		}
		return s.audit.WriteLog(tx, audit.LogOptions{
			StoreID:     item.StoreID,
			AccountID:   p.AccountID,
			EntityType:  entityItem,
			EntityID:    itemID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("item %q deleted", item.Name),
			Before:      item,
		})
	})
	if err != nil {
		return apperror.OrInternal(err, "could not delete item")
	}

	s.logger.Info("item deleted", zap.Uint("item_id", itemID))
	return nil
}
