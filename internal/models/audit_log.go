package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionStatus AuditAction = "status"
	AuditActionJoin   AuditAction = "join"
	AuditActionFire   AuditAction = "fire"
	AuditActionImport AuditAction = "import"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// Which store's history this entry belongs to
	StoreID uint `gorm:"index;not null" json:"store_id"`

	// Who did it
	AccountID   uint   `gorm:"index;not null" json:"account_id"`
	AccountName string `gorm:"size:100" json:"account_name"` // denormalized

	// What was touched ("inventory_item", "sale", "join_request", "store_staff")
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	// Before and after snapshots as JSON text
	BeforeData string `gorm:"type:text" json:"before_data"`
	AfterData  string `gorm:"type:text" json:"after_data"`
}
