package models

import "time"

type Store struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Address   string    `gorm:"size:255;not null" json:"address"`
	OwnerID   uint      `gorm:"index;not null" json:"owner_id"`
	Owner     *Account  `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Staff []StoreStaff `gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE" json:"-"`
}

// StoreStaff is one entry of a store's roster. An account is on at most one roster.
type StoreStaff struct {
	ID        uint `gorm:"primaryKey"`
	StoreID   uint `gorm:"uniqueIndex:idx_store_staff_member;not null"`
	AccountID uint `gorm:"uniqueIndex:idx_store_staff_member;uniqueIndex:idx_store_staff_account;not null"`
	Account   Account
	CreatedAt time.Time
}

func (StoreStaff) TableName() string { return "store_staff" }
