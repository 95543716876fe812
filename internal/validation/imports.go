package validation

import (
	"github.com/spendah/spendah-backend/internal/api/request"
	"github.com/spendah/spendah-backend/internal/model"
)

// ValidateConfirmImport validates an import confirmation request.
// The account reference must be a valid UUID. The mapping itself is
// optional (a learned or detected format may fill it in), but when
// provided it must describe a usable row: a date column, a description
// column, and either a single amount column or a debit/credit pair that
// matches the declared amount style.
func ValidateConfirmImport(req request.ConfirmImportRequest) error {
	if err := ValidateUUID(req.AccountID); err != nil {
		return err
	}

	errors := make(map[string]string)

	if req.AmountStyle != "" && !model.ValidAmountStyles[model.AmountStyle(req.AmountStyle)] {
		errors["amount_style"] = "invalid amount style: " + req.AmountStyle
	}
	if req.SkipRows != nil && *req.SkipRows < 0 {
		errors["skip_rows"] = "skip_rows cannot be negative"
	}
	if req.SaveFormat && req.FormatName == "" {
		errors["format_name"] = "format_name is required when save_format is set"
	}

	if m := req.ColumnMapping; m != nil {
		if m.DateColumn == nil {
			errors["column_mapping.date_column"] = "date_column is required"
		}
		if m.DescriptionColumn == nil {
			errors["column_mapping.description_column"] = "description_column is required"
		}
		if req.AmountStyle == string(model.AmountSeparateColumns) {
			if m.DebitColumn == nil || m.CreditColumn == nil {
				errors["column_mapping"] = "separate_columns style requires debit_column and credit_column"
			}
		} else if m.AmountColumn == nil && (m.DebitColumn == nil || m.CreditColumn == nil) {
			errors["column_mapping.amount_column"] = "amount_column is required"
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
