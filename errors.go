package caddyavatarproxy

import (
	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
)

// Re-export error types from domain package
type ErrorCode = domain.ErrorCode
type AppError = domain.AppError
type JSONErrorResponse = domain.JSONErrorResponse

const (
	ErrCodeNotFound     = domain.ErrCodeNotFound
	ErrCodeGateLocked   = domain.ErrCodeGateLocked
	ErrCodeServiceError = domain.ErrCodeServiceError
	ErrCodeBadRequest   = domain.ErrCodeBadRequest
)

var (
	NotFoundError        = domain.NotFoundError
	BadRequestError      = domain.BadRequestError
	GateLockedError      = domain.GateLockedError
	ServiceError         = domain.ServiceError
	NewJSONErrorResponse = domain.NewJSONErrorResponse
)
