package controllers

import (
	"net/http"
	"testing"

	"github.com/Govind-619/StudyHub/events"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifySuccessConfirmsAndAttributes(t *testing.T) {
	env := newTestEnv(t, "")
	buyer := testutil.CreateUser(t, env.db, models.RoleStudent)
	creator := testutil.CreateCreator(t, env.db, "ALICE", nil)
	env.pendingPayment(t, "ORD-100", buyer.ID, "1000", "alice")

	w := env.notify("ORD-100", "1000.00", "2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	payment := env.payment(t, "ORD-100")
	assert.Equal(t, models.PaymentStatusSuccess, payment.Status)
	assert.Equal(t, "320025071812345", payment.GatewayPaymentID)
	require.NotNil(t, payment.EnrollmentID)

	var enrollment models.Enrollment
	require.NoError(t, env.db.First(&enrollment, *payment.EnrollmentID).Error)
	assert.True(t, enrollment.IsActive)
	assert.Equal(t, buyer.ID, enrollment.UserID)

	var row models.PaymentAttribution
	require.NoError(t, env.db.Where("order_id = ?", "ORD-100").First(&row).Error)
	require.NotNil(t, row.CreatorID)
	assert.Equal(t, creator.ID, *row.CreatorID)
	assert.True(t, row.CreatorCommissionAmount.Equal(decimal.NewFromInt(80)), "got %s", row.CreatorCommissionAmount)
	assert.Equal(t, models.SourceWebhook, row.Source)
	assert.Len(t, env.events.OfType(events.AttributionCreated), 1)
}

func TestNotifyRetryIsIdempotent(t *testing.T) {
	env := newTestEnv(t, "")
	buyer := testutil.CreateUser(t, env.db, models.RoleStudent)
	creator := testutil.CreateCreator(t, env.db, "ALICE", nil)
	env.pendingPayment(t, "ORD-101", buyer.ID, "1000", "ALICE")

	for i := 0; i < 3; i++ {
		w := env.notify("ORD-101", "1000.00", "2", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
	}

	assert.Equal(t, int64(1), env.attributionCount(t, "ORD-101"))

	var fresh models.CreatorProfile
	require.NoError(t, env.db.First(&fresh, creator.ID).Error)
	assert.Equal(t, int64(1), fresh.LifetimePaidUsers)
	assert.True(t, fresh.AvailableBalance.Equal(decimal.NewFromInt(80)), "got %s", fresh.AvailableBalance)

	var enrollments int64
	env.db.Model(&models.Enrollment{}).Where("user_id = ?", buyer.ID).Count(&enrollments)
	assert.Equal(t, int64(1), enrollments)
}

func TestNotifyInvalidSignature(t *testing.T) {
	env := newTestEnv(t, "")
	buyer := testutil.CreateUser(t, env.db, models.RoleStudent)
	env.pendingPayment(t, "ORD-102", buyer.ID, "1000", "")

	w := env.notify("ORD-102", "1000.00", "2", "00000000000000000000000000000000")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid signature", w.Body.String())

	payment := env.payment(t, "ORD-102")
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)
	assert.Equal(t, "signature invalid", payment.FailureReason)
	assert.Zero(t, env.attributionCount(t, "ORD-102"))
}

func TestNotifyTamperedAmountFailsSignature(t *testing.T) {
	env := newTestEnv(t, "")
	buyer := testutil.CreateUser(t, env.db, models.RoleStudent)
	env.pendingPayment(t, "ORD-103", buyer.ID, "1000", "")

	// signed for 1.00, posted as 1000.00
	forged := env.notifyWithSignedAmount("ORD-103", "1000.00", "1.00")
	assert.Equal(t, http.StatusBadRequest, forged.Code)
	assert.Zero(t, env.attributionCount(t, "ORD-103"))
}

func TestNotifyUnknownOrderIsAcknowledged(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.notify("ORD-404", "500.00", "2", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.Zero(t, env.attributionCount(t, "ORD-404"))
}

func TestNotifyNonSuccessStatuses(t *testing.T) {
	cases := []struct {
		code   string
		status string
	}{
		{"0", models.PaymentStatusPending},
		{"-1", models.PaymentStatusCancelled},
		{"-2", models.PaymentStatusFailed},
		{"-3", models.PaymentStatusChargedBack},
	}
	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			env := newTestEnv(t, "")
			buyer := testutil.CreateUser(t, env.db, models.RoleStudent)
			env.pendingPayment(t, "ORD-200", buyer.ID, "1000", "")

			w := env.notify("ORD-200", "1000.00", tc.code, "")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.status, env.payment(t, "ORD-200").Status)
			assert.Zero(t, env.attributionCount(t, "ORD-200"))
		})
	}
}

func TestNotifyLateFailureDoesNotDowngradeSuccess(t *testing.T) {
	env := newTestEnv(t, "")
	buyer := testutil.CreateUser(t, env.db, models.RoleStudent)
	env.pendingPayment(t, "ORD-201", buyer.ID, "1000", "")

	require.Equal(t, http.StatusOK, env.notify("ORD-201", "1000.00", "2", "").Code)
	require.Equal(t, http.StatusOK, env.notify("ORD-201", "1000.00", "-2", "").Code)
	assert.Equal(t, models.PaymentStatusSuccess, env.payment(t, "ORD-201").Status)

	require.Equal(t, http.StatusOK, env.notify("ORD-201", "1000.00", "-3", "").Code)
	assert.Equal(t, models.PaymentStatusChargedBack, env.payment(t, "ORD-201").Status)
}

func TestNotifyAmountMismatch(t *testing.T) {
	env := newTestEnv(t, "")
	buyer := testutil.CreateUser(t, env.db, models.RoleStudent)
	env.pendingPayment(t, "ORD-202", buyer.ID, "1000", "")

	w := env.notify("ORD-202", "10.00", "2", "")
	assert.Equal(t, http.StatusOK, w.Code)

	payment := env.payment(t, "ORD-202")
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)
	assert.Equal(t, "amount mismatch", payment.FailureReason)
	assert.Zero(t, env.attributionCount(t, "ORD-202"))
}
