package payhere

import (
	"strconv"
	"strings"

	"github.com/Govind-619/StudyHub/models"
)

// Gateway status codes sent in the status_code notification field
const (
	StatusSuccess     = 2
	StatusPending     = 0
	StatusCancelled   = -1
	StatusFailed      = -2
	StatusChargedBack = -3
)

// MapStatus converts a PayHere status_code into a local payment status.
// Unknown or malformed codes map to failed.
func MapStatus(statusCode string) (int, string) {
	code, err := strconv.Atoi(strings.TrimSpace(statusCode))
	if err != nil {
		return 0, models.PaymentStatusFailed
	}
	switch code {
	case StatusSuccess:
		return code, models.PaymentStatusSuccess
	case StatusPending:
		return code, models.PaymentStatusPending
	case StatusCancelled:
		return code, models.PaymentStatusCancelled
	case StatusChargedBack:
		return code, models.PaymentStatusChargedBack
	default:
		return code, models.PaymentStatusFailed
	}
}
