package request

// CreateAccountRequest creates a new account.
type CreateAccountRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// UpdateTransactionRequest patches the mutable fields of a transaction.
// Nil fields are untouched.
type UpdateTransactionRequest struct {
	CleanMerchant *string `json:"clean_merchant,omitempty"`
	CategoryID    *string `json:"category_id,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}
