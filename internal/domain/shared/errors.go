package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrDivisionByZero      = NewDomainError("DIVISION_BY_ZERO", "Division by a zero divisor")
)

// IsTransient reports whether an error is worth retrying as a whole
// transaction. Sequence allocation conflicts fall in this category: the
// caller should roll back and rerun the finalize transaction rather than
// treat the failure as fatal.
func IsTransient(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrConcurrencyConflict.Code
	}
	return false
}
