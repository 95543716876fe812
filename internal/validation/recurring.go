package validation

import (
	"fmt"
	"strings"

	"github.com/spendah/spendah-backend/internal/api/request"
	"github.com/spendah/spendah-backend/internal/model"
)

// ValidateCreateRecurringGroup validates a manual group creation request.
func ValidateCreateRecurringGroup(req request.CreateRecurringGroupRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Name) == "" {
		errors["name"] = "name is required"
	}
	if strings.TrimSpace(req.MerchantPattern) == "" {
		errors["merchant_pattern"] = "merchant_pattern is required"
	}
	if !model.ValidFrequencies[model.Frequency(req.Frequency)] {
		errors["frequency"] = fmt.Sprintf("invalid frequency: %s", req.Frequency)
	}
	if req.AmountVariance != nil && *req.AmountVariance < 0 {
		errors["amount_variance"] = "amount_variance cannot be negative"
	}
	if req.CategoryID != nil {
		if err := ValidateUUID(*req.CategoryID); err != nil {
			errors["category_id"] = err.Error()
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateUpdateRecurringGroup validates a group patch. All fields are
// optional but must be well-formed when present.
func ValidateUpdateRecurringGroup(req request.UpdateRecurringGroupRequest) error {
	errors := make(map[string]string)

	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		errors["name"] = "name cannot be empty"
	}
	if req.MerchantPattern != nil && strings.TrimSpace(*req.MerchantPattern) == "" {
		errors["merchant_pattern"] = "merchant_pattern cannot be empty"
	}
	if req.Frequency != nil && !model.ValidFrequencies[model.Frequency(*req.Frequency)] {
		errors["frequency"] = fmt.Sprintf("invalid frequency: %s", *req.Frequency)
	}
	if req.AmountVariance != nil && *req.AmountVariance < 0 {
		errors["amount_variance"] = "amount_variance cannot be negative"
	}
	if req.CategoryID != nil && *req.CategoryID != "" {
		if err := ValidateUUID(*req.CategoryID); err != nil {
			errors["category_id"] = err.Error()
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateMarkRecurring validates a mark request: exactly one of group_id
// or create_new.
func ValidateMarkRecurring(req request.MarkRecurringRequest) error {
	if req.GroupID == nil && req.CreateNew == nil {
		return &Error{Fields: map[string]string{
			"group_id": "one of group_id or create_new is required",
		}}
	}
	if req.GroupID != nil && req.CreateNew != nil {
		return &Error{Fields: map[string]string{
			"group_id": "group_id and create_new are mutually exclusive",
		}}
	}
	if req.GroupID != nil {
		return ValidateUUID(*req.GroupID)
	}
	return ValidateCreateRecurringGroup(*req.CreateNew)
}

// ValidateApplyDetection validates a detection apply request.
func ValidateApplyDetection(req request.ApplyDetectionRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.SessionID) == "" {
		errors["session_id"] = "session_id is required"
	}
	if req.Index < 0 {
		errors["index"] = "index cannot be negative"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
