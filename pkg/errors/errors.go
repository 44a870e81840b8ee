package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeRateLimit    Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"

	// Purchase workflow codes.
	CodeAlreadyOwned      Code = "ALREADY_OWNED"
	CodeEmptyCart         Code = "EMPTY_CART"
	CodeDuplicatePurchase Code = "DUPLICATE_PURCHASE"
	CodeNotPurchased      Code = "NOT_PURCHASED"
	CodeSessionNotFound   Code = "SESSION_NOT_FOUND"
	CodeExpiredSession    Code = "SESSION_EXPIRED"

	// Transient payment-provider failures; callers may retry.
	CodeProviderUnavailable Code = "PROVIDER_UNAVAILABLE"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:   {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
	CodeUnauthorized: {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required"},
	CodeForbidden:    {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied"},
	CodeNotFound:     {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
	CodeConflict:     {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected"},
	CodeRateLimit:    {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded"},
	CodeInternal:     {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
	CodeDependency:   {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},

	CodeAlreadyOwned: {HTTPStatus: http.StatusConflict, PublicMessage: "photo already purchased", DetailsAllowed: true},
	CodeEmptyCart:    {HTTPStatus: http.StatusBadRequest, PublicMessage: "cart is empty"},
	// Duplicate purchases are swallowed during reconciliation; the metadata
	// only matters if one ever escapes to the HTTP boundary.
	CodeDuplicatePurchase: {HTTPStatus: http.StatusConflict, PublicMessage: "purchase already recorded", DetailsAllowed: true},
	CodeNotPurchased:      {HTTPStatus: http.StatusForbidden, PublicMessage: "photo not purchased"},
	CodeSessionNotFound:   {HTTPStatus: http.StatusNotFound, PublicMessage: "checkout session not found"},
	CodeExpiredSession:    {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "checkout session expired", DetailsAllowed: true},

	CodeProviderUnavailable: {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "payment provider unavailable", Retryable: true},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether err resolves to a typed error with the given code.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
