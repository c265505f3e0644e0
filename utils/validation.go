package utils

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// FieldValidationError represents a validation error for a specific field
type FieldValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldValidationErrors represents multiple field validation errors
type FieldValidationErrors []FieldValidationError

// Error implements the error interface
func (e FieldValidationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

var (
	emailRegex     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	orderIDRegex   = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)
	codeRegex      = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)
	referenceRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{4,64}$`)
	htmlTagRegex   = regexp.MustCompile(`<[^>]*>`)
)

// SanitizeString trims input, strips HTML tags and escapes what is left
func SanitizeString(input string) string {
	return html.EscapeString(htmlTagRegex.ReplaceAllString(strings.TrimSpace(input), ""))
}

// ValidateEmail validates email format
func ValidateEmail(email string) (bool, string) {
	if email == "" {
		return false, "Email is required"
	}
	if !emailRegex.MatchString(email) {
		return false, "Invalid email format"
	}
	return true, ""
}

// ValidateOrderID checks a gateway order id before it is used as the ledger key
func ValidateOrderID(orderID string) (bool, string) {
	if !orderIDRegex.MatchString(orderID) {
		return false, "order_id must be 1-100 characters of letters, digits, '-' or '_'"
	}
	return true, ""
}

// ValidateCode checks an optional referral or discount code; empty is valid
func ValidateCode(code string) (bool, string) {
	if code == "" || codeRegex.MatchString(code) {
		return true, ""
	}
	return false, "codes must be 3-32 characters of letters, digits, '-' or '_'"
}

// ValidateReference checks a bank transfer reference
func ValidateReference(ref string) (bool, string) {
	if !referenceRegex.MatchString(ref) {
		return false, "reference must be 4-64 characters of letters, digits, '-' or '_'"
	}
	return true, ""
}

// ValidateAmounts checks a sale's original and final amounts
func ValidateAmounts(original, final decimal.Decimal) FieldValidationErrors {
	var errs FieldValidationErrors
	if !final.IsPositive() {
		errs = append(errs, FieldValidationError{Field: "final_amount", Message: "must be greater than zero"})
	}
	if original.IsNegative() {
		errs = append(errs, FieldValidationError{Field: "original_amount", Message: "must not be negative"})
	}
	if !original.IsZero() && final.GreaterThan(original) {
		errs = append(errs, FieldValidationError{Field: "final_amount", Message: "must not exceed original_amount"})
	}
	return errs
}
