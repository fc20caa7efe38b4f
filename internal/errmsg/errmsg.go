package errmsg

import (
	"errors"
	"net/http"
)

type HTTPError struct {
	Code    int
	Message error
}

func NewHTTPError(code int, message error) HTTPError {
	return HTTPError{Code: code, Message: message}
}

func (e *HTTPError) Error() string {
	return e.Message.Error()
}

var (
	ErrRequestPayloadEmpty = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request payload is empty"),
	)

	ErrRequestPayloadInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request payload is invalid"),
	)
)

var (
	ErrUserAlreadyExists = NewHTTPError(
		http.StatusConflict,
		errors.New("user already exists"),
	)

	ErrUserNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("user not found"),
	)

	ErrUserCredentialsInvalid = NewHTTPError(
		http.StatusUnauthorized,
		errors.New("user credentials invalid"),
	)

	ErrUserRoleForbidden = NewHTTPError(
		http.StatusForbidden,
		errors.New("user role has no access to this resource"),
	)
)

var (
	ErrBillNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("bill not found"),
	)

	ErrBillAlreadyExists = NewHTTPError(
		http.StatusConflict,
		errors.New("bill already exists"),
	)

	ErrBillPayloadInvalid = NewHTTPError(
		http.StatusUnprocessableEntity,
		errors.New("bill payload is invalid"),
	)

	ErrBillDecisionInvalid = NewHTTPError(
		http.StatusUnprocessableEntity,
		errors.New("bill decision is invalid"),
	)
)

var (
	ErrReceiptNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("receipt not found"),
	)

	ErrReceiptFormatInvalid = NewHTTPError(
		http.StatusUnprocessableEntity,
		errors.New("Formats acceptés : jpg, jpeg et png"),
	)
)
