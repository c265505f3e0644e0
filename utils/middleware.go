package utils

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "RequestID"

// LoggerMiddleware writes one request log line per call, except for skipPaths
func LoggerMiddleware(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if skip[path] {
			return
		}
		LogRequest(c.Request.Method, path, c.ClientIP(), c.GetString(RequestIDKey), c.Writer.Status(), time.Since(start))
		if len(c.Errors) > 0 {
			LogDebug("Request %s errors: %s", c.GetString(RequestIDKey), c.Errors.String())
		}
	}
}

// CORSMiddleware allows the listed origins; "*" allows any
func CORSMiddleware(allowed []string) gin.HandlerFunc {
	allowAll := false
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		origins[o] = true
	}
	return func(c *gin.Context) {
		h := c.Writer.Header()
		if origin := c.GetHeader("Origin"); origin != "" {
			switch {
			case allowAll:
				h.Set("Access-Control-Allow-Origin", "*")
			case origins[origin]:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		h.Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RecoveryMiddleware turns a panic into a generic 500, logging the stack and calling alert when set
func RecoveryMiddleware(alert func(c *gin.Context, recovered interface{})) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				LogErrorWithStack(fmt.Errorf("panic in %s %s: %v", c.Request.Method, c.Request.URL.Path, rec), debug.Stack())
				if alert != nil {
					alert(c, rec)
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(c, "Internal server error", nil))
			}
		}()
		c.Next()
	}
}

// RequestIDMiddleware propagates X-Request-ID or assigns a new one
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// SecurityHeadersMiddleware sets the API security headers. Responses carry balances and
// payment data, so nothing is cached.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
