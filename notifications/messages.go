package notifications

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func SaleMessage(orderID string, amount, commission decimal.Decimal, creatorCode string) string {
	msg := fmt.Sprintf("💰 <b>New sale</b>\nOrder: <code>%s</code>\nAmount: %s", Escape(orderID), amount.StringFixed(2))
	if creatorCode != "" {
		msg += fmt.Sprintf("\nCreator: %s\nCommission: %s", Escape(creatorCode), commission.StringFixed(2))
	}
	return msg
}

func SignatureFailureMessage(orderID, merchantID, ip string) string {
	return fmt.Sprintf("🚨 <b>Invalid payment signature</b>\nOrder: <code>%s</code>\nMerchant: %s\nIP: %s",
		Escape(orderID), Escape(merchantID), Escape(ip))
}

func RefundMessage(orderID string, amount decimal.Decimal, reason, admin string) string {
	return fmt.Sprintf("↩️ <b>Refund issued</b>\nOrder: <code>%s</code>\nAmount: %s\nReason: %s\nBy: %s",
		Escape(orderID), amount.StringFixed(2), Escape(reason), Escape(admin))
}

func TierChangeMessage(code string, fromLevel, toLevel int) string {
	kind := "promoted"
	if toLevel < fromLevel {
		kind = "demoted"
	}
	return fmt.Sprintf("📈 Creator <b>%s</b> %s: tier %d → %d", Escape(code), kind, fromLevel, toLevel)
}

func PanicMessage(method, path string, recovered interface{}) string {
	return fmt.Sprintf("🔥 <b>Unhandled error</b>\n%s %s\n<code>%s</code>",
		Escape(method), Escape(path), Escape(fmt.Sprint(recovered)))
}
