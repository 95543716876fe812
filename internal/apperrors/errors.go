package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrAccountNotFound indicates that an account with the given ID does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrRecurringGroupNotFound indicates that a recurring group with the given ID does not exist.
	ErrRecurringGroupNotFound = errors.New("recurring group not found")

	// ErrAlertNotFound indicates that an alert with the given ID does not exist.
	ErrAlertNotFound = errors.New("alert not found")

	// ErrImportNotFound indicates that a pending or logged import does not exist or has expired.
	ErrImportNotFound = errors.New("import not found")

	// ErrLearnedFormatNotFound indicates no saved format matches the file fingerprint.
	ErrLearnedFormatNotFound = errors.New("learned format not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrStaleDetectionIndex indicates a detection result was applied against an
	// outdated or already-consumed detection session. The caller must re-run detection.
	ErrStaleDetectionIndex = errors.New("detection session is stale, re-run detection")

	// ErrInvalidGroupState indicates an operation referenced a recurring group in a
	// state that does not permit it, such as marking a transaction into a deleted group.
	ErrInvalidGroupState = errors.New("invalid recurring group state")

	// ErrMappingAmbiguous indicates format detection confidence is too low to apply
	// the column mapping without explicit user confirmation.
	ErrMappingAmbiguous = errors.New("column mapping is ambiguous, confirmation required")

	// ErrUnsupportedFileType indicates the uploaded file is not a supported format.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrRowParse indicates a single row could not be parsed. Row-scoped: the
	// surrounding batch continues and collects the message.
	ErrRowParse = errors.New("row could not be parsed")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrEmptyID indicates that a required ID parameter is empty or missing.
	ErrEmptyID = errors.New("ID cannot be empty")

	// ErrInvalidFrequency indicates a frequency value outside the allowed set.
	ErrInvalidFrequency = errors.New("invalid frequency")

	// ErrInvalidAmountStyle indicates an amount style value outside the allowed set.
	ErrInvalidAmountStyle = errors.New("invalid amount style")

	// ErrMissingColumnMapping indicates the confirm request lacks a usable mapping.
	ErrMissingColumnMapping = errors.New("column mapping is incomplete")
)

// External collaborator errors represent failures of optional capabilities.
var (
	// ErrHintUnavailable indicates the external AI hint capability failed or timed
	// out. Callers fall back to heuristic results; this is never fatal.
	ErrHintUnavailable = errors.New("hint capability unavailable")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
// These errors indicate that an operation failed, but not due to missing entities or validation issues.
var (
	// Import operation errors
	ErrFailedToSaveUpload      = errors.New("failed to save uploaded file")
	ErrFailedToPreviewFile     = errors.New("failed to preview file")
	ErrFailedToProcessImport   = errors.New("failed to process import")
	ErrFailedToRetrieveImports = errors.New("failed to retrieve import history")

	// Transaction operation errors
	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")
	ErrFailedToUpdateTransaction    = errors.New("failed to update transaction")

	// Recurring operation errors
	ErrFailedToRetrieveGroups = errors.New("failed to retrieve recurring groups")
	ErrFailedToDetectPatterns = errors.New("failed to detect recurring patterns")
	ErrFailedToApplyDetection = errors.New("failed to apply detection result")

	// Alert operation errors
	ErrFailedToRetrieveAlerts   = errors.New("failed to retrieve alerts")
	ErrFailedToUpdateAlert      = errors.New("failed to update alert")
	ErrFailedToRetrieveSettings = errors.New("failed to retrieve alert settings")
	ErrFailedToUpdateSettings   = errors.New("failed to update alert settings")
	ErrFailedToEvaluateAlerts   = errors.New("failed to evaluate alerts")

	// Review operation errors
	ErrFailedToRunReview       = errors.New("failed to run subscription review")
	ErrFailedToProjectRenewals = errors.New("failed to project upcoming renewals")

	// Account operation errors
	ErrFailedToRetrieveAccounts = errors.New("failed to retrieve accounts")
	ErrFailedToDeleteAccount    = errors.New("failed to delete account")
)

// Data integrity errors represent inconsistencies or corruption in the data.
var (
	// ErrDataInconsistency indicates that the data is in an inconsistent state
	// (e.g., a transaction references a recurring group that no longer exists).
	ErrDataInconsistency = errors.New("data inconsistency detected")

	// ErrMissingRequiredField indicates that a required field is missing or empty.
	ErrMissingRequiredField = errors.New("missing required field")
)
