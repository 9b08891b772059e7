package dto

import (
	"net/http"
	"strings"
)

// API error codes. Codes reported for a domain error are ERR_ followed by the
// domain code, so clients can match either.
const (
	ErrCodeInternal        = "ERR_INTERNAL"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeInvalidInput        = "ERR_INVALID_INPUT"
	ErrCodeInvalidShipping     = "ERR_INVALID_SHIPPING"

	// checkout rejections
	ErrCodeEmptyCart          = "ERR_EMPTY_CART"
	ErrCodeUsageLimitExceeded = "ERR_USAGE_LIMIT_EXCEEDED"
	ErrCodeRequestInProgress  = "ERR_REQUEST_IN_PROGRESS"
)

// domainStatus lists domain codes that do not answer with the default status
var domainStatus = map[string]int{
	"NOT_FOUND":             http.StatusNotFound,
	"ALREADY_EXISTS":        http.StatusConflict,
	"CONCURRENCY_CONFLICT":  http.StatusConflict,
	"DUPLICATE_TRANSACTION": http.StatusConflict,
	"UNAUTHORIZED":          http.StatusUnauthorized,
	"FORBIDDEN":             http.StatusForbidden,
	"INVALID_STATE":         http.StatusUnprocessableEntity,
	"USAGE_LIMIT_EXCEEDED":  http.StatusConflict,
	"REQUEST_IN_PROGRESS":   http.StatusConflict,
}

// FromDomainCode maps a domain error code to the API code and HTTP status.
// INVALID_* codes describe bad input and answer 400; any other rule the
// domain refuses answers 422.
func FromDomainCode(code string) (string, int) {
	apiCode := "ERR_" + code
	if status, ok := domainStatus[code]; ok {
		return apiCode, status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return apiCode, http.StatusBadRequest
	}
	return apiCode, http.StatusUnprocessableEntity
}
