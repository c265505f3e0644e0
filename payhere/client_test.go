package payhere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Govind-619/StudyHub/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	tokenCalls  int32
	refundCalls int32
	lastRefund  refundRequest
	refundReply string
}

func (f *fakeGateway) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/merchant/v1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "app-id" || pass != "app-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":600}`))
	})
	mux.HandleFunc("/merchant/v1/payment/refund", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.refundCalls, 1)
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":-1,"msg":"unauthorized"}`))
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastRefund))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.refundReply))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	sandbox := config.PayHereCredentials{
		MerchantID: "1211149", MerchantSecret: "secret",
		AppID: "app-id", AppSecret: "app-secret", BaseURL: srv.URL,
	}
	live := config.PayHereCredentials{MerchantID: "2000001", BaseURL: srv.URL}
	return NewClient(live, sandbox, srv.Client(), time.Minute, 5*time.Second)
}

func TestRefundSuccessCachesToken(t *testing.T) {
	gw := &fakeGateway{refundReply: `{"status":1,"msg":"Successfully submitted refund request","data":125821}`}
	client := newTestClient(gw.server(t))

	res, err := client.Refund(context.Background(), ModeSandbox, "320025071278", "duplicate charge")
	require.NoError(t, err)
	assert.Equal(t, "Successfully submitted refund request", res.Message)
	assert.Equal(t, "125821", res.Data)
	assert.Equal(t, "320025071278", gw.lastRefund.PaymentID)
	assert.Equal(t, "duplicate charge", gw.lastRefund.Description)

	_, err = client.Refund(context.Background(), ModeSandbox, "320025071279", "again")
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&gw.tokenCalls))
	assert.EqualValues(t, 2, atomic.LoadInt32(&gw.refundCalls))
}

func TestRefundGatewayRejection(t *testing.T) {
	gw := &fakeGateway{refundReply: `{"status":-1,"msg":"Payment already refunded"}`}
	client := newTestClient(gw.server(t))

	_, err := client.Refund(context.Background(), ModeSandbox, "320025071278", "dup")
	require.Error(t, err)
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, -1, gwErr.Status)
	assert.Equal(t, "Payment already refunded", gwErr.Message)
}

func TestRefundMissingCredentials(t *testing.T) {
	gw := &fakeGateway{}
	client := newTestClient(gw.server(t))

	_, err := client.Refund(context.Background(), ModeLive, "320025071278", "dup")
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.EqualValues(t, 0, atomic.LoadInt32(&gw.tokenCalls))
}

func TestCredentialsForMerchant(t *testing.T) {
	client := NewClient(
		config.PayHereCredentials{MerchantID: "L1"},
		config.PayHereCredentials{MerchantID: "S1"},
		nil, time.Minute, time.Second)

	creds, mode, err := client.CredentialsForMerchant("S1", ModeLive)
	require.NoError(t, err)
	assert.Equal(t, ModeSandbox, mode)
	assert.Equal(t, "S1", creds.MerchantID)

	creds, mode, err = client.CredentialsForMerchant("unknown", ModeLive)
	require.NoError(t, err)
	assert.Equal(t, ModeLive, mode)
	assert.Equal(t, "L1", creds.MerchantID)

	_, _, err = client.CredentialsForMerchant("", "staging")
	assert.ErrorIs(t, err, ErrUnknownMode)
}
