package validation

import (
	"fmt"
	"strings"

	"github.com/spendah/spendah-backend/internal/api/request"
	"github.com/spendah/spendah-backend/internal/model"
)

// ValidAccountTypes contains the allowed account type values.
var ValidAccountTypes = map[model.AccountType]bool{
	model.AccountCredit: true,
	model.AccountDebit:  true,
	model.AccountBank:   true,
	model.AccountCash:   true,
	model.AccountOther:  true,
}

// ValidateCreateAccount validates an account creation request.
func ValidateCreateAccount(req request.CreateAccountRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Name) == "" {
		errors["name"] = "name is required"
	}
	if !ValidAccountTypes[model.AccountType(req.Type)] {
		errors["type"] = fmt.Sprintf("invalid account type: %s", req.Type)
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
