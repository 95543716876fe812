package request

// CreateRecurringGroupRequest creates a group manually, outside detection.
type CreateRecurringGroupRequest struct {
	Name            string   `json:"name"`
	MerchantPattern string   `json:"merchant_pattern"`
	ExpectedAmount  *float64 `json:"expected_amount,omitempty"`
	AmountVariance  *float64 `json:"amount_variance,omitempty"`
	Frequency       string   `json:"frequency"`
	CategoryID      *string  `json:"category_id,omitempty"`
}

// UpdateRecurringGroupRequest patches a group. Nil fields are untouched.
type UpdateRecurringGroupRequest struct {
	Name            *string  `json:"name,omitempty"`
	MerchantPattern *string  `json:"merchant_pattern,omitempty"`
	ExpectedAmount  *float64 `json:"expected_amount,omitempty"`
	AmountVariance  *float64 `json:"amount_variance,omitempty"`
	Frequency       *string  `json:"frequency,omitempty"`
	CategoryID      *string  `json:"category_id,omitempty"`
	IsActive        *bool    `json:"is_active,omitempty"`
}

// ApplyDetectionRequest consumes one result of a detection session by index.
type ApplyDetectionRequest struct {
	SessionID string `json:"session_id"`
	Index     int    `json:"index"`
}

// MarkRecurringRequest links a transaction into a group. Exactly one of
// GroupID or CreateNew must be provided.
type MarkRecurringRequest struct {
	GroupID   *string                      `json:"group_id,omitempty"`
	CreateNew *CreateRecurringGroupRequest `json:"create_new,omitempty"`
}
