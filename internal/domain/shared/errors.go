package shared

import "errors"

// DomainError is a rejection the buyer can act on. Code is stable and travels
// to the API as ERR_<Code>; Message is shown as is.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError with the same code, so a rejection with a more
// specific message still satisfies errors.Is(err, ErrNotFound).
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	return errors.As(target, &de) && de.Code == e.Code
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

var (
	ErrNotFound           = NewDomainError("NOT_FOUND", "Resource not found")
	ErrEmptyCart          = NewDomainError("EMPTY_CART", "Cart has no priceable items")
	ErrUsageLimitExceeded = NewDomainError("USAGE_LIMIT_EXCEEDED", "Promotion usage limit reached")
	ErrRequestInProgress  = NewDomainError("REQUEST_IN_PROGRESS", "A request with this idempotency key is still being processed")
)

// IsDomainError reports whether err wraps a DomainError with the given code
func IsDomainError(err error, code string) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}
