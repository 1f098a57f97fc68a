package constants

// Common error messages
const (
	ErrInvalidJSONShort = "Invalid JSON"
	ErrColunaRequired   = "coluna is required"
	ErrSessionNotFound  = "batch session not found"
	ErrWizardNotFound   = "wizard not found"
	ErrEscopoInvalido   = "scope field is not batch-editable"
)

// Content Types
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "Content-Type"
)
