// Package apperrors defines the typed, recoverable error taxonomy the
// core returns to its callers. Anything not wrapped in *Error is a
// durability fault and fatal for the request that hit it.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidRequest     Code = "INVALID_REQUEST"
	CodeNotFound           Code = "NOT_FOUND"
	CodeUnknownSeat        Code = "UNKNOWN_SEAT"
	CodeSeatUnavailable    Code = "SEAT_UNAVAILABLE"
	CodeSeatLockedByOther  Code = "SEAT_LOCKED_BY_OTHER"
	CodeLockNotHeld        Code = "LOCK_NOT_HELD"
	CodeLockExpired        Code = "LOCK_EXPIRED"
	CodeBookingClosed      Code = "BOOKING_CLOSED"
	CodeResaleWindowClosed Code = "RESALE_WINDOW_CLOSED"
	CodeNotPayable         Code = "NOT_PAYABLE"
	CodeOrderMismatch      Code = "ORDER_MISMATCH"
	CodeSignatureInvalid   Code = "SIGNATURE_INVALID"
	CodeInsufficientFunds  Code = "INSUFFICIENT_FUNDS"
	CodeAlreadyListed      Code = "ALREADY_LISTED"
	CodeCannotBuyOwn       Code = "CANNOT_BUY_OWN"
	CodeAlreadyTransferred Code = "ALREADY_TRANSFERRED"
)

type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the taxonomy code from err, if it carries one.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

var httpStatus = map[Code]int{
	CodeInvalidRequest:     http.StatusBadRequest,
	CodeNotFound:           http.StatusNotFound,
	CodeUnknownSeat:        http.StatusBadRequest,
	CodeSeatUnavailable:    http.StatusConflict,
	CodeSeatLockedByOther:  http.StatusConflict,
	CodeLockNotHeld:        http.StatusConflict,
	CodeLockExpired:        http.StatusConflict,
	CodeBookingClosed:      http.StatusUnprocessableEntity,
	CodeResaleWindowClosed: http.StatusUnprocessableEntity,
	CodeNotPayable:         http.StatusUnprocessableEntity,
	CodeOrderMismatch:      http.StatusBadRequest,
	CodeSignatureInvalid:   http.StatusBadRequest,
	CodeInsufficientFunds:  http.StatusPaymentRequired,
	CodeAlreadyListed:      http.StatusConflict,
	CodeCannotBuyOwn:       http.StatusForbidden,
	CodeAlreadyTransferred: http.StatusConflict,
}

// HTTPStatus maps a taxonomy code to the status the boundary layer
// should answer with.
func (c Code) HTTPStatus() int {
	if s, ok := httpStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}
