package models

import "time"

const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// ManualReviewRequest holds a proof-of-payment submission for a tier that
// cannot be auto-approved. PendingUserID carries the user id only while the
// request is pending; its unique index allows one outstanding review per user.
type ManualReviewRequest struct {
	ID               string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID           string     `gorm:"type:varchar(64);not null;index" json:"user_id"`
	PendingUserID    *string    `gorm:"type:varchar(64);uniqueIndex:ux_manual_review_pending_user" json:"-"`
	PlanID           string     `gorm:"type:varchar(50);not null" json:"plan_id"`
	ProofArtifactRef string     `gorm:"type:varchar(512);not null" json:"proof_artifact_ref"`
	ProofContentType string     `gorm:"type:varchar(100);default:''" json:"proof_content_type"`
	Status           string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	SubmittedAt      time.Time  `gorm:"type:datetime;not null" json:"submitted_at"`
	DecidedAt        *time.Time `gorm:"type:datetime;default:null" json:"decided_at,omitempty"`
	DecidedBy        string     `gorm:"type:varchar(100);default:''" json:"decided_by"`
	DecisionNote     string     `gorm:"type:text" json:"decision_note"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsPending reports whether an administrator decision is still outstanding.
func (r *ManualReviewRequest) IsPending() bool {
	return r.Status == ReviewStatusPending
}
