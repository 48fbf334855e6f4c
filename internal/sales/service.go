// Package sales records multi-line sales and takes the sold quantities out of inventory.
package sales

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"retail-backend/internal/access"
	"retail-backend/internal/apperror"
	"retail-backend/internal/audit"
	"retail-backend/internal/database"
	"retail-backend/internal/models"
	"retail-backend/internal/pagination"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	entitySale      = "sale"
	msgSaleNotFound = "sale not found"
)

type LineInput struct {
	ItemID   uint
	Quantity int
}

type CreateSaleInput struct {
	CustomerName string
	Items        []LineInput
}

type SaleFilter struct {
	StoreID      *uint
	CustomerName string
	DateFrom     *time.Time
	DateTo       *time.Time
	MinTotal     *float64
	MaxTotal     *float64
	SortBy       string
	Order        string
	Page         int
	Limit        int
}

type SaleList struct {
	Sales      []models.Sale
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

var sortColumns = map[string]string{
	"date":         "date",
	"totalAmount":  "total_amount",
	"customerName": "customer_name",
}

type Service struct {
	db          *gorm.DB
	access      *access.Checker
	audit       *audit.Recorder
	logger      *zap.Logger
	pageSizeMax int
	now         func() time.Time
}

func NewService(db *gorm.DB, checker *access.Checker, recorder *audit.Recorder, logger *zap.Logger, pageSizeMax int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSizeMax <= 0 {
		pageSizeMax = 100
	}
	return &Service{
		db:          db,
		access:      checker,
		audit:       recorder,
		logger:      logger,
		pageSizeMax: pageSizeMax,
		now:         time.Now,
	}
}

func validateSale(in *CreateSaleInput) error {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	if in.CustomerName == "" {
		return apperror.InvalidArgument("customer name is required")
	}
	if len(in.Items) == 0 {
		return apperror.InvalidArgument("a sale needs at least one item")
	}
	for i, line := range in.Items {
		if line.ItemID == 0 {
			return apperror.InvalidArgument(fmt.Sprintf("line %d: item id is required", i+1))
		}
		if line.Quantity < 1 {
			return apperror.InvalidArgument(fmt.Sprintf("line %d: quantity must be at least 1", i+1))
		}
	}
	return nil
}

// mergeLines folds repeated items into one line and orders the lines by item id, so every
// transaction locks inventory rows in the same order.
func mergeLines(lines []LineInput) []LineInput {
	merged := make([]LineInput, 0, len(lines))
	index := make(map[uint]int, len(lines))
	for _, l := range lines {
		if i, ok := index[l.ItemID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ItemID] = len(merged)
		merged = append(merged, l)
	}
	slices.SortFunc(merged, func(a, b LineInput) int { return cmp.Compare(a.ItemID, b.ItemID) })
	return merged
}

// CreateSale takes every line out of stock and stores the sale in one transaction. Each
// decrement is conditional on enough stock being left, so concurrent sales can never push stock
// below zero; if any line falls short nothing is applied. Prices come from the inventory rows
// and the total is computed here.
func (s *Service) CreateSale(ctx context.Context, p access.Principal, storeID uint, in CreateSaleInput) (*models.Sale, error) {
	if _, err := s.access.Authorize(ctx, p, storeID, access.Member); err != nil {
		return nil, err
	}
	if err := validateSale(&in); err != nil {
		return nil, err
	}
	lines := mergeLines(in.Items)

	sale := models.Sale{
		StoreID:      storeID,
		CreatedByID:  p.AccountID,
		CustomerName: in.CustomerName,
		Date:         s.now().UTC(),
		Items:        make([]models.SaleLine, 0, len(lines)),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		total := decimal.Zero

		for _, line := range lines {
			var item models.InventoryItem
			if err := tx.Where("id = ? AND store_id = ?", line.ItemID, storeID).First(&item).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperror.NotFound(fmt.Sprintf("item %d not found in this store", line.ItemID))
				}
				return apperror.Internal(err, "could not load item")
			}

			res := tx.Model(&models.InventoryItem{}).
				Where("id = ? AND store_id = ? AND stock >= ?", item.ID, storeID, line.Quantity).
				Update("stock", gorm.Expr("stock - ?", line.Quantity))
			if res.Error != nil {
				return apperror.Internal(res.Error, "could not update stock")
			}
			if res.RowsAffected == 0 {
				s.logger.Warn("sale rejected, not enough stock",
					zap.Uint("store_id", storeID),
					zap.Uint("item_id", item.ID),
					zap.Int("requested", line.Quantity))
				return apperror.InvalidArgument("not enough stock for " + item.Name)
			}

			price := decimal.NewFromFloat(item.Price)
			lineTotal := price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
			total = total.Add(lineTotal)

			sale.Items = append(sale.Items, models.SaleLine{
				ItemID:      item.ID,
				ItemName:    item.Name,
				Quantity:    line.Quantity,
				PriceAtSale: item.Price,
				LineTotal:   lineTotal.InexactFloat64(),
			})
		}

		sale.TotalAmount = total.Round(2).InexactFloat64()
		if err := tx.Create(&sale).Error; err != nil {
			return apperror.Internal(err, "could not save sale")
		}

		return s.audit.WriteLog(tx, audit.LogOptions{
			StoreID:     storeID,
			AccountID:   p.AccountID,
			EntityType:  entitySale,
			EntityID:    sale.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("sale to %q, %d lines, total %s", sale.CustomerName, len(sale.Items), total.StringFixed(2)),
			After:       sale,
		})
	})
	if err != nil {
		return nil, apperror.OrInternal(err, "could not create sale")
	}

	s.logger.Info("sale created",
		zap.Uint("sale_id", sale.ID),
		zap.Uint("store_id", storeID),
		zap.Float64("total", sale.TotalAmount))
	return &sale, nil
}

// ListSales searches the sales of every store the caller belongs to, or of f.StoreID.
// Owners also get the creator of each sale.
func (s *Service) ListSales(ctx context.Context, p access.Principal, f SaleFilter) (*SaleList, error) {
	var scope []uint
	if f.StoreID != nil {
		if _, err := s.access.Authorize(ctx, p, *f.StoreID, access.Member); err != nil {
			return nil, err
		}
		scope = []uint{*f.StoreID}
	} else {
		ids, err := s.access.MemberStoreIDs(ctx, p)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, apperror.Forbidden("you are not a member of any store")
		}
		scope = ids
	}

	page, err := pagination.Bounds(f.Page, f.Limit, s.pageSizeMax)
	if err != nil {
		return nil, err
	}
	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = "date"
	}
	column, ok := sortColumns[sortBy]
	if !ok {
		return nil, apperror.InvalidArgument("unknown sortBy " + sortBy)
	}
	desc, err := pagination.Descending(f.Order)
	if err != nil {
		return nil, err
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return nil, apperror.InvalidArgument("dateFrom cannot be after dateTo")
	}
	if f.MinTotal != nil && f.MaxTotal != nil && *f.MinTotal > *f.MaxTotal {
		return nil, apperror.InvalidArgument("minTotal cannot exceed maxTotal")
	}

	q := s.db.WithContext(ctx).Model(&models.Sale{}).Where("store_id IN ?", scope)
	if name := strings.TrimSpace(f.CustomerName); name != "" {
		q = q.Where(`LOWER(customer_name) LIKE ? ESCAPE '\'`, database.ContainsPattern(name))
	}
	// dates are stored in UTC; SQLite compares them as text
	if f.DateFrom != nil {
		q = q.Where("date >= ?", f.DateFrom.UTC())
	}
	if f.DateTo != nil {
		q = q.Where("date <= ?", f.DateTo.UTC())
	}
	if f.MinTotal != nil {
		q = q.Where("total_amount >= ?", *f.MinTotal)
	}
	if f.MaxTotal != nil {
		q = q.Where("total_amount <= ?", *f.MaxTotal)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, apperror.Internal(err, "could not count sales")
	}

	q = q.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
	if p.Role == models.RoleOwner {
		q = q.Preload("CreatedBy")
	}

	var sales []models.Sale
	err = q.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc}).
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&sales).Error
	if err != nil {
		return nil, apperror.Internal(err, "could not list sales")
	}

	return &SaleList{
		Sales:      sales,
		Total:      total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages(total),
	}, nil
}

// GetSale returns one sale to a member of its store; anyone else gets NotFound.
func (s *Service) GetSale(ctx context.Context, p access.Principal, saleID uint) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&sale, "id = ?", saleID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound(msgSaleNotFound)
		}
		return nil, apperror.Internal(err, "could not load sale")
	}

	store, err := s.access.Authorize(ctx, p, sale.StoreID, access.Member)
	if err != nil {
		return nil, access.HideScope(err, msgSaleNotFound)
	}

	if store.OwnerID == p.AccountID {
		var creator models.Account
		if err := s.db.WithContext(ctx).First(&creator, sale.CreatedByID).Error; err == nil {
			sale.CreatedBy = &creator
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Internal(err, "could not load sale creator")
		}
	}
	return &sale, nil
}
