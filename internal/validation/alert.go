package validation

import (
	"github.com/spendah/spendah-backend/internal/api/request"
)

// ValidateUpdateAlertSettings validates a settings patch.
func ValidateUpdateAlertSettings(req request.UpdateAlertSettingsRequest) error {
	errors := make(map[string]string)

	if req.LargePurchaseThreshold != nil && *req.LargePurchaseThreshold <= 0 {
		errors["large_purchase_threshold"] = "large_purchase_threshold must be positive"
	}
	if req.LargePurchaseThreshold != nil && req.ClearLargePurchaseThreshold {
		errors["large_purchase_threshold"] = "cannot set and clear large_purchase_threshold together"
	}
	if req.LargePurchaseMultiplier != nil && *req.LargePurchaseMultiplier <= 0 {
		errors["large_purchase_multiplier"] = "large_purchase_multiplier must be positive"
	}
	if req.UnusualMerchantThreshold != nil && *req.UnusualMerchantThreshold <= 0 {
		errors["unusual_merchant_threshold"] = "unusual_merchant_threshold must be positive"
	}
	if req.SubscriptionReviewDays != nil && *req.SubscriptionReviewDays <= 0 {
		errors["subscription_review_days"] = "subscription_review_days must be positive"
	}
	if req.AnnualChargeWarningDays != nil && *req.AnnualChargeWarningDays <= 0 {
		errors["annual_charge_warning_days"] = "annual_charge_warning_days must be positive"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
