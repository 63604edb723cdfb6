package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrMissingQuery     = NewDomainError(ErrCodeValidation, "query text or query vector is required")
	ErrMissingDocuments = NewDomainError(ErrCodeValidation, "at least one document is required")
	ErrMissingIDs       = NewDomainError(ErrCodeValidation, "at least one document id is required")
	ErrInvalidRunStatus = NewDomainError(ErrCodeValidation, "invalid ingestion run status")
)

// Configuration errors surface before any network call is attempted.
var (
	ErrVectorStoreURLMissing  = NewDomainError(ErrCodeConfiguration, "vector store url is not configured")
	ErrVectorStorePoolMissing = NewDomainError(ErrCodeConfiguration, "vector store database pool is not configured")
)

// Not found errors
var (
	ErrObservableNotFound = NewDomainError(ErrCodeNotFound, "observable not found")
	ErrRunNotFound        = NewDomainError(ErrCodeNotFound, "ingestion run not found")
	ErrSourceNotFound     = NewDomainError(ErrCodeNotFound, "source not found")
)
