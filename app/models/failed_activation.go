package models

import "time"

// FailedActivation records a payment that was accepted from the processor but
// could not be applied, for manual reconciliation by an administrator.
type FailedActivation struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	PaymentID  string     `gorm:"type:varchar(191);not null;default:'';index" json:"payment_id"`
	UserID     string     `gorm:"type:varchar(64);not null;default:'';index" json:"user_id"`
	PlanID     string     `gorm:"type:varchar(50);not null;default:''" json:"plan_id"`
	Reason     string     `gorm:"type:varchar(50);not null;index" json:"reason"`
	Error      string     `gorm:"type:text" json:"error"`
	RawPayload string     `gorm:"type:longtext" json:"raw_payload"`
	ResolvedAt *time.Time `gorm:"type:datetime;default:null;index" json:"resolved_at,omitempty"`
	ResolvedBy string     `gorm:"type:varchar(100);default:''" json:"resolved_by"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}
