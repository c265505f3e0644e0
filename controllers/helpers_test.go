package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Govind-619/StudyHub/commission"
	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/events"
	"github.com/Govind-619/StudyHub/jobs"
	"github.com/Govind-619/StudyHub/middleware"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/notifications"
	"github.com/Govind-619/StudyHub/payhere"
	"github.com/Govind-619/StudyHub/testutil"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testJWTSecret      = "test-secret"
	testMerchantID     = "1211149"
	testMerchantSecret = "sandbox-secret"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type captureMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *captureMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, body)
	return nil
}

func (m *captureMailer) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1]
}

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	events *events.RecordingPublisher
	mailer *captureMailer
}

// newTestEnv wires the handlers against a fresh database. gatewayURL may be empty.
func newTestEnv(t *testing.T, gatewayURL string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t)
	testutil.SeedTiers(t, db)
	config.DB = db

	env := &testEnv{
		db:     db,
		events: &events.RecordingPublisher{},
		mailer: &captureMailer{},
	}
	cfg := &config.Config{
		JWTSecret:   testJWTSecret,
		DefaultMode: payhere.ModeSandbox,
		Currency:    "LKR",
	}
	engine := commission.NewEngine(db, commission.DefaultConfig(),
		commission.WithClock(func() time.Time { return testNow }),
		commission.WithPublisher(env.events),
	)
	sandbox := config.PayHereCredentials{
		MerchantID:     testMerchantID,
		MerchantSecret: testMerchantSecret,
		AppID:          "app-id",
		AppSecret:      "app-secret",
		BaseURL:        gatewayURL,
	}
	Init(Dependencies{
		Config:    cfg,
		Engine:    engine,
		Gateway:   payhere.NewClient(config.PayHereCredentials{}, sandbox, nil, time.Minute, 5*time.Second),
		Jobs:      jobs.NewRunner(engine, jobs.NewLocalLocker(), time.Minute),
		Notifier:  notifications.NopNotifier{},
		Publisher: env.events,
		Mailer:    env.mailer,
	})

	r := gin.New()
	r.POST("/payhere/notify", PayHereNotify)
	r.POST("/v1/login", Login)
	user := r.Group("/v1", middleware.AuthMiddleware(testJWTSecret))
	user.POST("/logout", Logout)
	user.POST("/payments/generate-hash", GenerateCheckoutHash)
	user.POST("/payments/finalize-payment-user", FinalizePaymentUser)
	user.POST("/join-requests", SubmitJoinRequest)
	creator := r.Group("/v1/creator", middleware.AuthMiddleware(testJWTSecret), middleware.CreatorMiddleware())
	creator.GET("/dashboard", CreatorDashboard)
	creator.POST("/withdrawals", RequestWithdrawal)
	admin := r.Group("/v1/admin", middleware.AuthMiddleware(testJWTSecret), middleware.AdminMiddleware())
	admin.POST("/payments/finalize", AdminFinalizePayment)
	admin.POST("/join-requests/:id/approve", ApproveJoinRequest)
	admin.POST("/join-requests/:id/reject", RejectJoinRequest)
	admin.POST("/refunds/otp", RequestRefundOTP)
	admin.POST("/refunds", RefundPayment)
	admin.PUT("/commission/tiers", ReplaceCommissionTiers)
	admin.POST("/commission/recalculate-stats", RecalculateStats)
	admin.PATCH("/cmo-payouts/:id", UpdateCMOPayout)
	admin.POST("/withdrawals/:id/approve", ApproveWithdrawal)
	admin.GET("/withdrawals", ListWithdrawals)
	admin.GET("/users", GetUsers)
	admin.PATCH("/users/:id/block", BlockUser)
	admin.POST("/creators", CreateCreator)
	admin.GET("/creators", ListCreators)
	admin.PATCH("/creators/:id", UpdateCreator)
	admin.POST("/cmos", CreateCMO)
	admin.POST("/discount-codes", CreateDiscountCode)
	admin.PATCH("/discount-codes/:id/toggle", ToggleDiscountCode)
	admin.GET("/settings/payment-mode", GetPaymentMode)
	admin.PUT("/settings/payment-mode", UpdatePaymentMode)
	admin.GET("/reports/commissions.xlsx", DownloadCommissionReportExcel)
	admin.GET("/reports/commissions.pdf", DownloadCommissionReportPDF)
	env.router = r
	return env
}

func (e *testEnv) token(t *testing.T, user models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(&user, testJWTSecret)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload string
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = string(raw)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(req)
}

// post sends a raw JSON body; safe to call from goroutines
func (e *testEnv) post(path, token, body string) int {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return e.do(req).Code
}

// notify posts a signed notification; a non-empty badSig replaces the signature
func (e *testEnv) notify(orderID, amount, status, badSig string) *httptest.ResponseRecorder {
	sig := payhere.NotificationSignature(testMerchantID, orderID, amount, "LKR", status, testMerchantSecret)
	if badSig != "" {
		sig = badSig
	}
	return e.postNotification(orderID, amount, status, sig)
}

// notifyWithSignedAmount signs signedAmount but posts amount
func (e *testEnv) notifyWithSignedAmount(orderID, amount, signedAmount string) *httptest.ResponseRecorder {
	sig := payhere.NotificationSignature(testMerchantID, orderID, signedAmount, "LKR", "2", testMerchantSecret)
	return e.postNotification(orderID, amount, "2", sig)
}

func (e *testEnv) postNotification(orderID, amount, status, sig string) *httptest.ResponseRecorder {
	form := url.Values{
		"merchant_id":      {testMerchantID},
		"order_id":         {orderID},
		"payment_id":       {"320025071812345"},
		"payhere_amount":   {amount},
		"payhere_currency": {"LKR"},
		"status_code":      {status},
		"md5sig":           {sig},
		"method":           {"VISA"},
		"status_message":   {"Successfully completed"},
		"custom_1":         {"gold"},
		"custom_2":         {"new"},
	}
	req := httptest.NewRequest(http.MethodPost, "/payhere/notify", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e *testEnv) pendingPayment(t *testing.T, orderID string, userID uint, amount, refCreator string) models.Payment {
	t.Helper()
	payment := models.Payment{
		OrderID:        orderID,
		UserID:         userID,
		Amount:         decimal.RequireFromString(amount),
		OriginalAmount: decimal.RequireFromString(amount),
		Currency:       "LKR",
		Tier:           "gold",
		PaymentType:    models.PaymentTypeNew,
		RefCreator:     refCreator,
		Status:         models.PaymentStatusPending,
		Sandbox:        true,
	}
	require.NoError(t, e.db.Create(&payment).Error)
	return payment
}

func (e *testEnv) payment(t *testing.T, orderID string) models.Payment {
	t.Helper()
	var p models.Payment
	require.NoError(t, e.db.Where("order_id = ?", orderID).First(&p).Error)
	return p
}

func (e *testEnv) attributionCount(t *testing.T, orderID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.PaymentAttribution{}).Where("order_id = ?", orderID).Count(&n).Error)
	return n
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}
