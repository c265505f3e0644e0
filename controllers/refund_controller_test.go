package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/Govind-619/StudyHub/events"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refundGateway struct {
	reply   string
	refunds int32
}

func (g *refundGateway) start(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/merchant/v1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":600}`))
	})
	mux.HandleFunc("/merchant/v1/payment/refund", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&g.refunds, 1)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "320025071812345", body["payment_id"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(g.reply))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

var otpPattern = regexp.MustCompile(`>(\d{6})<`)

func requestOTP(t *testing.T, env *testEnv, token string) string {
	t.Helper()
	w := env.doJSON(t, http.MethodPost, "/v1/admin/refunds/otp", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m := otpPattern.FindStringSubmatch(env.mailer.last())
	require.Len(t, m, 2)
	return m[1]
}

// confirmedPayment runs a payment through the notify flow
func confirmedPayment(t *testing.T, env *testEnv, orderID string) models.Payment {
	t.Helper()
	buyer := testutil.CreateUser(t, env.db, models.RoleStudent)
	env.pendingPayment(t, orderID, buyer.ID, "1000", "")
	require.Equal(t, http.StatusOK, env.notify(orderID, "1000.00", "2", "").Code)
	return env.payment(t, orderID)
}

func TestRefundSuccess(t *testing.T) {
	gw := &refundGateway{reply: `{"status":1,"msg":"Successfully submitted the refund request","data":null}`}
	env := newTestEnv(t, gw.start(t).URL)
	admin := testutil.CreateUser(t, env.db, models.RoleAdmin)
	token := env.token(t, admin)
	payment := confirmedPayment(t, env, "ORD-400")

	otp := requestOTP(t, env, token)
	w := env.doJSON(t, http.MethodPost, "/v1/admin/refunds", token, map[string]interface{}{
		"payment_id": payment.ID,
		"otp":        otp,
		"reason":     "duplicate charge",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	payment = env.payment(t, "ORD-400")
	assert.Equal(t, models.PaymentStatusRefunded, payment.Status)
	assert.Equal(t, "duplicate charge", payment.RefundReason)
	require.NotNil(t, payment.EnrollmentID)
	var enrollment models.Enrollment
	require.NoError(t, env.db.First(&enrollment, *payment.EnrollmentID).Error)
	assert.False(t, enrollment.IsActive)
	assert.Len(t, env.events.OfType(events.PaymentRefunded), 1)

	// the ledger row is untouched
	assert.Equal(t, int64(1), env.attributionCount(t, "ORD-400"))

	// the OTP is single use
	w = env.doJSON(t, http.MethodPost, "/v1/admin/refunds", token, map[string]interface{}{
		"payment_id": payment.ID,
		"otp":        otp,
		"reason":     "again",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&gw.refunds))
}

func TestRefundGatewayRejectionLeavesStateUntouched(t *testing.T) {
	gw := &refundGateway{reply: `{"status":-1,"msg":"Payment already refunded"}`}
	env := newTestEnv(t, gw.start(t).URL)
	admin := testutil.CreateUser(t, env.db, models.RoleAdmin)
	token := env.token(t, admin)
	payment := confirmedPayment(t, env, "ORD-401")

	w := env.doJSON(t, http.MethodPost, "/v1/admin/refunds", token, map[string]interface{}{
		"payment_id": payment.ID,
		"otp":        requestOTP(t, env, token),
		"reason":     "customer request",
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Payment already refunded")
	assert.Equal(t, models.PaymentStatusSuccess, env.payment(t, "ORD-401").Status)
}

func TestRefundWrongOTP(t *testing.T) {
	gw := &refundGateway{reply: `{"status":1,"msg":"ok"}`}
	env := newTestEnv(t, gw.start(t).URL)
	admin := testutil.CreateUser(t, env.db, models.RoleAdmin)
	token := env.token(t, admin)
	payment := confirmedPayment(t, env, "ORD-402")

	otp := requestOTP(t, env, token)
	wrong := "000000"
	if otp == wrong {
		wrong = "111111"
	}
	w := env.doJSON(t, http.MethodPost, "/v1/admin/refunds", token, map[string]interface{}{
		"payment_id": payment.ID,
		"otp":        wrong,
		"reason":     "customer request",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, atomic.LoadInt32(&gw.refunds))
}

func TestRefundOTPSurvivesInvalidPayment(t *testing.T) {
	gw := &refundGateway{reply: `{"status":1,"msg":"ok"}`}
	env := newTestEnv(t, gw.start(t).URL)
	admin := testutil.CreateUser(t, env.db, models.RoleAdmin)
	token := env.token(t, admin)
	payment := confirmedPayment(t, env, "ORD-403")

	otp := requestOTP(t, env, token)
	w := env.doJSON(t, http.MethodPost, "/v1/admin/refunds", token, map[string]interface{}{
		"payment_id": 9999,
		"otp":        otp,
		"reason":     "typo in id",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, atomic.LoadInt32(&gw.refunds))

	// the same code still works once the right payment is named
	w = env.doJSON(t, http.MethodPost, "/v1/admin/refunds", token, map[string]interface{}{
		"payment_id": payment.ID,
		"otp":        otp,
		"reason":     "customer request",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.PaymentStatusRefunded, env.payment(t, "ORD-403").Status)
}
