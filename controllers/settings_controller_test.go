package controllers

import (
	"net/http"
	"testing"

	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/payhere"
	"github.com/Govind-619/StudyHub/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentModeSwitch(t *testing.T) {
	env := newTestEnv(t, "")
	token := env.token(t, testutil.CreateUser(t, env.db, models.RoleAdmin))

	w := env.doJSON(t, http.MethodGet, "/v1/admin/settings/payment-mode", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, payhere.ModeSandbox, decodeData(t, w)["mode"])

	w = env.doJSON(t, http.MethodPut, "/v1/admin/settings/payment-mode", token, map[string]string{"mode": "staging"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// live credentials are not configured in the test env
	w = env.doJSON(t, http.MethodPut, "/v1/admin/settings/payment-mode", token, map[string]string{"mode": "LIVE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(t, http.MethodPut, "/v1/admin/settings/payment-mode", token, map[string]string{"mode": " sandbox "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.doJSON(t, http.MethodPut, "/v1/admin/settings/payment-mode", token, map[string]string{"mode": "sandbox"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var setting models.AppSetting
	require.NoError(t, env.db.First(&setting, "key = ?", models.SettingPaymentMode).Error)
	assert.Equal(t, payhere.ModeSandbox, setting.Value)
}
