// Package testutil gives package tests an isolated in-memory database and a few fixtures.
package testutil

import (
	"fmt"
	"testing"

	"retail-backend/internal/access"
	"retail-backend/internal/database"
	"retail-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with the production schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func CreateAccount(t *testing.T, db *gorm.DB, name string, role models.Role) models.Account {
	t.Helper()
	acc := models.Account{
		Name:         name,
		Email:        fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		Phone:        "+15550000000",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(&acc).Error)
	return acc
}

func CreateOwner(t *testing.T, db *gorm.DB, name string) models.Account {
	return CreateAccount(t, db, name, models.RoleOwner)
}

func CreateStaff(t *testing.T, db *gorm.DB, name string) models.Account {
	return CreateAccount(t, db, name, models.RoleStaff)
}

func CreateStore(t *testing.T, db *gorm.DB, owner models.Account, name string) models.Store {
	t.Helper()
	s := models.Store{Name: name, Address: name + " street 1", OwnerID: owner.ID}
	require.NoError(t, db.Create(&s).Error)
	return s
}

// AttachStaff puts staff on the store roster the way a completed join does.
func AttachStaff(t *testing.T, db *gorm.DB, store models.Store, staff models.Account) {
	t.Helper()
	require.NoError(t, db.Create(&models.StoreStaff{StoreID: store.ID, AccountID: staff.ID}).Error)
	require.NoError(t, db.Model(&models.Account{}).Where("id = ?", staff.ID).
		Update("store_id", store.ID).Error)
}

func CreateItem(t *testing.T, db *gorm.DB, storeID uint, name, sku string, price float64, stock int) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		StoreID:  storeID,
		Name:     name,
		Category: "general",
		Price:    price,
		Stock:    stock,
	}
	if sku != "" {
		item.SKU = &sku
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}

func Principal(acc models.Account) access.Principal {
	return access.Principal{AccountID: acc.ID, Role: acc.Role}
}

func Stock(t *testing.T, db *gorm.DB, itemID uint) int {
	t.Helper()
	var item models.InventoryItem
	require.NoError(t, db.First(&item, itemID).Error)
	return item.Stock
}
