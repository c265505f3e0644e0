package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AppError carries the HTTP status a handler should answer with
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func appError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func BadRequestError(message string, err error) *AppError {
	return appError(http.StatusBadRequest, message, err)
}

func UnauthorizedError(message string, err error) *AppError {
	return appError(http.StatusUnauthorized, message, err)
}

func NotFoundError(message string, err error) *AppError {
	return appError(http.StatusNotFound, message, err)
}

func ConflictError(message string, err error) *AppError {
	return appError(http.StatusConflict, message, err)
}

// BadGatewayError wraps a failed call to the payment gateway
func BadGatewayError(message string, err error) *AppError {
	return appError(http.StatusBadGateway, message, err)
}

// WrapError adds context to err, keeping it inspectable with errors.Is/As
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// RespondError answers with the status of an AppError found in err's chain.
// Anything else is logged and becomes a bare 500.
func RespondError(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		LogError("Unhandled error (request %s): %v", c.GetString(RequestIDKey), err)
		InternalServerError(c, "Internal server error", nil)
		return
	}
	var detail interface{}
	if appErr.Err != nil && (appErr.Code < http.StatusInternalServerError || appErr.Code == http.StatusBadGateway) {
		detail = appErr.Err.Error()
	}
	Error(c, appErr.Code, appErr.Message, detail)
}
