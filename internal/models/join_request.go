package models

import "time"

type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "pending"
	JoinRequestApproved JoinRequestStatus = "approved"
	JoinRequestRejected JoinRequestStatus = "rejected"
)

func (s JoinRequestStatus) Terminal() bool {
	return s == JoinRequestApproved || s == JoinRequestRejected
}

// JoinRequest: a staff account asking to be put on a store's roster.
// At most one pending request per (staff, store); enforced by idx_join_requests_pending.
type JoinRequest struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	StaffID   uint              `gorm:"index;not null" json:"staff_id"`
	Staff     *Account          `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
	StoreID   uint              `gorm:"index;not null" json:"store_id"`
	Store     *Store            `json:"store,omitempty"`
	Status    JoinRequestStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
