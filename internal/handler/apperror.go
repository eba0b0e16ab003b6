package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrInvalidToken   = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Webhook token is invalid or missing"}
	ErrInvalidRequest = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrMalformedEvent = &AppError{http.StatusBadRequest, "MALFORMED_EVENT", "Payment event payload is malformed"}
	ErrRefundFailed   = &AppError{http.StatusBadRequest, "REFUND_NOTIFICATION_FAILED", "Failed to process the refund notification"}
	ErrInternalError  = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}
)
