package billing

import "errors"

var (
	ErrAuthentication      = errors.New("webhook authentication failed")
	ErrInvalidPayload      = errors.New("invalid webhook payload")
	ErrDuplicateDelivery   = errors.New("payment already processed")
	ErrUnknownPlan         = errors.New("unknown plan")
	ErrUserNotFound        = errors.New("user not found")
	ErrAutoApproveTier     = errors.New("plan is auto-approved and does not take manual review")
	ErrDuplicateSubmission = errors.New("a manual review is already pending for this user")
	ErrReviewNotFound      = errors.New("manual review request not found")
	ErrAlreadyDecided      = errors.New("manual review request already decided")
	ErrInvalidOutcome      = errors.New("invalid review outcome")
	ErrFailureNotFound     = errors.New("failed activation not found or already resolved")
	ErrStoreWrite          = errors.New("record store write failed")
)

// Kind maps an error to the stable reason string used in failure records,
// metrics labels and API responses.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthentication):
		return "authentication_failure"
	case errors.Is(err, ErrInvalidPayload):
		return "invalid_payload"
	case errors.Is(err, ErrDuplicateDelivery):
		return "duplicate_delivery"
	case errors.Is(err, ErrUnknownPlan):
		return "unknown_plan"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrAutoApproveTier):
		return "auto_approve_tier"
	case errors.Is(err, ErrDuplicateSubmission):
		return "duplicate_submission"
	case errors.Is(err, ErrReviewNotFound):
		return "review_not_found"
	case errors.Is(err, ErrAlreadyDecided):
		return "already_decided"
	case errors.Is(err, ErrInvalidOutcome):
		return "invalid_outcome"
	case errors.Is(err, ErrFailureNotFound):
		return "failure_not_found"
	case errors.Is(err, ErrStoreWrite):
		return "store_write_failure"
	default:
		return "internal_error"
	}
}
