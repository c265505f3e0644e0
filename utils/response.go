package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StandardResponse is the JSON envelope of every API response
type StandardResponse struct {
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

func respond(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, StandardResponse{Status: "success", Message: message, Data: data})
}

// errorBody builds the error envelope; the request id lets support find the log lines
func errorBody(c *gin.Context, message string, detail interface{}) StandardResponse {
	resp := StandardResponse{
		Status:    "error",
		Message:   message,
		RequestID: c.GetString(RequestIDKey),
	}
	if detail != nil {
		resp.Data = gin.H{"error": detail}
	}
	return resp
}

// Success sends a 200 response
func Success(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusOK, message, data)
}

// Created sends a 201 response
func Created(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusCreated, message, data)
}

// Error sends an error response with an optional detail
func Error(c *gin.Context, statusCode int, message string, err interface{}) {
	c.JSON(statusCode, errorBody(c, message, err))
}

func BadRequest(c *gin.Context, message string, err interface{}) {
	Error(c, http.StatusBadRequest, message, err)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message, nil)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}

func Conflict(c *gin.Context, message string, err interface{}) {
	Error(c, http.StatusConflict, message, err)
}

// ValidationError sends a 422 with the field errors
func ValidationError(c *gin.Context, message string, err interface{}) {
	Error(c, http.StatusUnprocessableEntity, message, err)
}

func InternalServerError(c *gin.Context, message string, err interface{}) {
	Error(c, http.StatusInternalServerError, message, err)
}

// BadGateway reports a failure returned by the payment gateway
func BadGateway(c *gin.Context, message string, err interface{}) {
	Error(c, http.StatusBadGateway, message, err)
}

// PlainText sends a bare text body. The gateway notify endpoint answers in text, not JSON.
func PlainText(c *gin.Context, statusCode int, body string) {
	c.Data(statusCode, "text/plain; charset=utf-8", []byte(body))
}
