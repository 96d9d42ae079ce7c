package shared

// ErrorKind classifies a domain error so the boundary can map it to a
// transport status without inspecting individual codes.
type ErrorKind string

const (
	// KindValidation indicates malformed or out-of-range input
	KindValidation ErrorKind = "validation"
	// KindPrecondition indicates the operation is not allowed in the
	// current state of the aggregate
	KindPrecondition ErrorKind = "precondition"
	// KindNotFound indicates a referenced entity does not exist
	KindNotFound ErrorKind = "not_found"
	// KindConsistency indicates a stored invariant no longer holds
	KindConsistency ErrorKind = "consistency"
	// KindConflict indicates a concurrent modification was detected
	KindConflict ErrorKind = "conflict"
)

// DomainError represents a domain-level error with a stable machine code
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidation, code, message)
}

// NewPreconditionError creates a precondition (invalid state) error
func NewPreconditionError(code, message string) *DomainError {
	return NewDomainError(KindPrecondition, code, message)
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(code, message string) *DomainError {
	return NewDomainError(KindNotFound, code, message)
}

// NewConsistencyViolation creates a consistency-violation error
func NewConsistencyViolation(code, message string) *DomainError {
	return NewDomainError(KindConsistency, code, message)
}

// NewConflictError creates a concurrency-conflict error
func NewConflictError(code, message string) *DomainError {
	return NewDomainError(KindConflict, code, message)
}

// Common domain errors
var (
	ErrNotFound            = NewNotFoundError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewValidationError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewConflictError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewPreconditionError("INVALID_STATE", "Operation not allowed in current state")
)
