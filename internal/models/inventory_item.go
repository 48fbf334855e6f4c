package models

import "time"

// InventoryItem: a store's catalog entry and its stock on hand.
// SKU is optional; when present it is unique within the store.
type InventoryItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StoreID   uint      `gorm:"uniqueIndex:idx_inventory_store_sku;index;not null" json:"store_id"`
	Name      string    `gorm:"size:200;not null;index" json:"name"`
	SKU       *string   `gorm:"column:sku;size:64;uniqueIndex:idx_inventory_store_sku" json:"sku"`
	Category  string    `gorm:"size:100;not null;index" json:"category"`
	Price     float64   `gorm:"not null" json:"price"`
	Stock     int       `gorm:"not null" json:"stock"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
