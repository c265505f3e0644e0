// Package payhere talks to the PayHere payment gateway: checkout hashes,
// notification signature checks and the merchant REST API used for refunds.
package payhere

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"
)

// md5Upper returns the upper-case hex MD5 digest of s, the form PayHere uses everywhere.
func md5Upper(s string) string {
	sum := md5.Sum([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// FormatAmount renders an amount with exactly two decimal places.
// Both the checkout hash and the gateway's notification signature are computed over this form.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// CheckoutHash is the value the browser sends to PayHere when a checkout starts:
// UPPER(MD5(merchant_id + order_id + amount + currency + UPPER(MD5(secret)))).
func CheckoutHash(merchantID, orderID string, amount decimal.Decimal, currency, merchantSecret string) string {
	return md5Upper(merchantID + orderID + FormatAmount(amount) + currency + md5Upper(merchantSecret))
}

// NotificationSignature computes the md5sig PayHere attaches to a payment notification.
// amount is used exactly as received.
func NotificationSignature(merchantID, orderID, amount, currency, statusCode, merchantSecret string) string {
	return md5Upper(merchantID + orderID + amount + currency + statusCode + md5Upper(merchantSecret))
}

// VerifyNotification reports whether receivedSignature matches the notification fields.
// The comparison ignores case. It never fails loudly: any mismatch, including an amount
// that is not formatted with two decimals, yields false.
func VerifyNotification(merchantID, orderID, amount, currency, statusCode, merchantSecret, receivedSignature string) bool {
	if merchantSecret == "" || receivedSignature == "" {
		return false
	}
	expected := NotificationSignature(merchantID, orderID, amount, currency, statusCode, merchantSecret)
	received := strings.ToUpper(strings.TrimSpace(receivedSignature))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}
