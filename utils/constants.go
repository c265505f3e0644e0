package utils

import "time"

const (
	AppName    = "StudyHub"
	APIVersion = "v1"

	// refund confirmation codes
	OTPLength     = 6
	OTPExpiration = 10 * time.Minute

	DefaultPaginationLimit = 20
	MaxPaginationLimit     = 100
)
