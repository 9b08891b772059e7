package handler

import "github.com/marketplace/backend/internal/interfaces/http/dto"

// APIResponse is the response envelope with a typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// HealthData reports dependency status
type HealthData struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Uptime  string            `json:"uptime"`
	Version string            `json:"version"`
}

// ErrorResponse is the failure envelope, for API docs
type ErrorResponse struct {
	Success bool          `json:"success" example:"false"`
	Error   dto.ErrorInfo `json:"error"`
}
