package request

// ColumnMappingRequest mirrors the user-confirmable column mapping. Indexes
// are zero-based file column positions.
type ColumnMappingRequest struct {
	DateColumn        *int `json:"date_column"`
	AmountColumn      *int `json:"amount_column,omitempty"`
	DescriptionColumn *int `json:"description_column"`
	CategoryColumn    *int `json:"category_column,omitempty"`
	DebitColumn       *int `json:"debit_column,omitempty"`
	CreditColumn      *int `json:"credit_column,omitempty"`
	BalanceColumn     *int `json:"balance_column,omitempty"`
}

// ConfirmImportRequest finalizes a pending upload. ColumnMapping,
// DateFormat, and AmountStyle may be omitted to accept the detected format;
// they are required when detection confidence was below 0.5.
type ConfirmImportRequest struct {
	AccountID     string                `json:"account_id"`
	ColumnMapping *ColumnMappingRequest `json:"column_mapping,omitempty"`
	DateFormat    string                `json:"date_format,omitempty"`
	AmountStyle   string                `json:"amount_style,omitempty"`
	SkipRows      *int                  `json:"skip_rows,omitempty"`
	SaveFormat    bool                  `json:"save_format,omitempty"`
	FormatName    string                `json:"format_name,omitempty"`
}
