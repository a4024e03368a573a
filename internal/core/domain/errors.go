package domain

import (
	"fmt"
	"net/http"
)

// ErrorCode is the stable machine-readable kind of an AppError. It is the
// "code" field of every JSON error body.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "not_found"
	ErrCodeGateLocked   ErrorCode = "gate_locked"
	ErrCodeServiceError ErrorCode = "service_error"
	ErrCodeBadRequest   ErrorCode = "bad_request"
)

type codeInfo struct {
	status int
	title  string
}

var codes = map[ErrorCode]codeInfo{
	ErrCodeNotFound:     {http.StatusNotFound, "Not Found"},
	ErrCodeGateLocked:   {http.StatusUnauthorized, "Locked"},
	ErrCodeServiceError: {http.StatusInternalServerError, "Avatar Proxy Error"},
	ErrCodeBadRequest:   {http.StatusBadRequest, "Bad Request"},
}

// HTTPStatus maps the code to a response status. Unknown codes are 500.
func (c ErrorCode) HTTPStatus() int {
	if info, ok := codes[c]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// PageTitle is the heading of the HTML error page for the code.
func (c ErrorCode) PageTitle() string {
	if info, ok := codes[c]; ok {
		return info.title
	}
	return "Error"
}

// AppError carries a code and a message that is safe to show to callers.
// Cause is kept for logs and errors.Is, never rendered.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Cause }

// JSONErrorResponse is the body written for errors on /api/ paths:
// {"error":{"code":"...","message":"..."}}.
type JSONErrorResponse struct {
	Error struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	} `json:"error"`
}

// NewJSONErrorResponse builds the API body for err.
func NewJSONErrorResponse(err *AppError) JSONErrorResponse {
	var resp JSONErrorResponse
	resp.Error.Code = err.Code
	resp.Error.Message = err.Message
	return resp
}

func NotFoundError(what string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s was not found", what)}
}

func BadRequestError(message string) *AppError {
	return &AppError{Code: ErrCodeBadRequest, Message: message}
}

// GateLockedError rejects a missing or invalid gate unlock. cause is logged only.
func GateLockedError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeGateLocked, Message: message, Cause: cause}
}

func ServiceError(message string) *AppError {
	return &AppError{Code: ErrCodeServiceError, Message: message}
}
