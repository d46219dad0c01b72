package dto

import "net/http"

// General error codes
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
)

// Domain error codes surfaced by the review pipeline
const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeDuplicateID        = "DUPLICATE_ID"
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodePersistenceFailure = "PERSISTENCE_FAILURE"
	ErrCodeMissingReason      = "MISSING_REASON"
	ErrCodeMissingApprover    = "MISSING_APPROVER"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes. Validation
// codes raised while constructing a proposal map to 400; conflicts on the
// lifecycle map to 409.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,

	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeDuplicateID:        http.StatusConflict,
	ErrCodeInvalidTransition:  http.StatusConflict,
	ErrCodeValidationFailed:   http.StatusUnprocessableEntity,
	ErrCodePersistenceFailure: http.StatusInternalServerError,
	ErrCodeMissingReason:      http.StatusBadRequest,
	ErrCodeMissingApprover:    http.StatusUnauthorized,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,

	// Structural codes from proposal and correction constructors
	"INVALID_CLIENT":        http.StatusBadRequest,
	"INVALID_DOCUMENT_TYPE": http.StatusBadRequest,
	"INVALID_CONFIDENCE":    http.StatusBadRequest,
	"INVALID_AMOUNT":        http.StatusBadRequest,
	"INVALID_LINE":          http.StatusBadRequest,
	"UNBALANCED_LINES":      http.StatusBadRequest,
	"TOTAL_MISMATCH":        http.StatusBadRequest,
	"INVALID_STATUS":        http.StatusBadRequest,
	"INVALID_BOOKING_ID":    http.StatusBadRequest,
	"INVALID_KONTO":         http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
