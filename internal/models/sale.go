package models

import "time"

// Sale is append-only. Lines keep their own price and name so history does not depend on the
// inventory item still existing.
type Sale struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	StoreID      uint       `gorm:"index;not null" json:"store_id"`
	CreatedByID  uint       `gorm:"index;not null" json:"created_by_id"`
	CreatedBy    *Account   `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	CustomerName string     `gorm:"size:150;not null;index" json:"customer_name"`
	TotalAmount  float64    `gorm:"not null;index" json:"total_amount"`
	Date         time.Time  `gorm:"index;not null" json:"date"`
	Items        []SaleLine `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt    time.Time  `json:"created_at"`
}

type SaleLine struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	SaleID      uint    `gorm:"index;not null" json:"sale_id"`
	ItemID      uint    `gorm:"index;not null" json:"item_id"` // weak reference, no FK
	ItemName    string  `gorm:"size:200;not null" json:"item_name"`
	Quantity    int     `gorm:"not null" json:"quantity"`
	PriceAtSale float64 `gorm:"not null" json:"price_at_sale"`
	LineTotal   float64 `gorm:"not null" json:"line_total"`
}
