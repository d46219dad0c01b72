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
	ErrNotFound           = NewDomainError("NOT_FOUND", "Resource not found")
	ErrDuplicateID        = NewDomainError("DUPLICATE_ID", "A record with this ID already exists")
	ErrInvalidTransition  = NewDomainError("INVALID_TRANSITION", "Status is terminal and cannot change")
	ErrPersistenceFailure = NewDomainError("PERSISTENCE_FAILURE", "Durable store could not complete the commit")
)
