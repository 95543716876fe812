package request

// UpdateAlertRequest patches alert lifecycle state. Nil fields are untouched.
type UpdateAlertRequest struct {
	IsRead      *bool   `json:"is_read,omitempty"`
	IsDismissed *bool   `json:"is_dismissed,omitempty"`
	ActionTaken *string `json:"action_taken,omitempty"`
}

// UpdateAlertSettingsRequest patches the singleton alert settings. Nil
// fields are untouched. ClearLargePurchaseThreshold removes the absolute
// threshold so the multiplier rule alone applies.
type UpdateAlertSettingsRequest struct {
	LargePurchaseThreshold      *float64 `json:"large_purchase_threshold,omitempty"`
	ClearLargePurchaseThreshold bool     `json:"clear_large_purchase_threshold,omitempty"`
	LargePurchaseMultiplier     *float64 `json:"large_purchase_multiplier,omitempty"`
	UnusualMerchantThreshold    *float64 `json:"unusual_merchant_threshold,omitempty"`
	SubscriptionReviewDays      *int     `json:"subscription_review_days,omitempty"`
	AnnualChargeWarningDays     *int     `json:"annual_charge_warning_days,omitempty"`
	AlertsEnabled               *bool    `json:"alerts_enabled,omitempty"`
}
