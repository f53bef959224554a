package models

import "time"

// PaymentRecord is the idempotency ledger entry for a processor payment.
// Its presence is the authority for "already applied": it is inserted at
// most once per PaymentID and only the diagnostic columns change later.
type PaymentRecord struct {
	PaymentID       string     `gorm:"primaryKey;type:varchar(191)" json:"payment_id"`
	Provider        string     `gorm:"type:varchar(20);not null;default:'daimo';index" json:"provider"`
	EventType       string     `gorm:"type:varchar(100);not null;default:''" json:"event_type"`
	Status          string     `gorm:"type:varchar(32);not null;index" json:"status"`
	UserID          string     `gorm:"type:varchar(64);not null;index" json:"user_id"`
	PlanID          string     `gorm:"type:varchar(50);not null" json:"plan_id"`
	Amount          string     `gorm:"type:varchar(50);default:''" json:"amount"`
	Currency        string     `gorm:"type:varchar(16);default:''" json:"currency"`
	RawPayload      string     `gorm:"type:longtext;not null" json:"raw_payload"`
	ProcessedAt     *time.Time `gorm:"type:datetime;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
