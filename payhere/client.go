package payhere

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Payment modes
const (
	ModeLive    = "live"
	ModeSandbox = "sandbox"
)

var (
	ErrUnknownMode       = errors.New("unknown payment mode")
	ErrMissingCredential = errors.New("payment gateway credentials are not configured")
)

// GatewayError is a refusal returned by the PayHere API itself
type GatewayError struct {
	Status  int
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payhere: status %d: %s", e.Status, e.Message)
}

// ValidMode reports whether mode is one of the supported payment modes
func ValidMode(mode string) bool {
	return mode == ModeLive || mode == ModeSandbox
}

// Client holds both credential sets and talks to the merchant API
type Client struct {
	live       config.PayHereCredentials
	sandbox    config.PayHereCredentials
	httpClient *http.Client
	tokens     *expirable.LRU[string, *oauth2.Token]
}

// NewClient builds a gateway client. A nil httpClient gets one with the given timeout.
func NewClient(live, sandbox config.PayHereCredentials, httpClient *http.Client, tokenTTL, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if tokenTTL <= 0 {
		tokenTTL = 5 * time.Minute
	}
	return &Client{
		live:       live,
		sandbox:    sandbox,
		httpClient: httpClient,
		tokens:     expirable.NewLRU[string, *oauth2.Token](2, nil, tokenTTL),
	}
}

// Credentials returns the credential set for mode
func (c *Client) Credentials(mode string) (config.PayHereCredentials, error) {
	switch mode {
	case ModeLive:
		return c.live, nil
	case ModeSandbox:
		return c.sandbox, nil
	}
	return config.PayHereCredentials{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

// CredentialsForMerchant picks the credential set whose merchant id matches merchantID.
// When neither matches it falls back to the set of the given mode.
func (c *Client) CredentialsForMerchant(merchantID, fallbackMode string) (config.PayHereCredentials, string, error) {
	merchantID = strings.TrimSpace(merchantID)
	if merchantID != "" {
		if c.live.MerchantID == merchantID {
			return c.live, ModeLive, nil
		}
		if c.sandbox.MerchantID == merchantID {
			return c.sandbox, ModeSandbox, nil
		}
	}
	creds, err := c.Credentials(fallbackMode)
	return creds, fallbackMode, err
}

// AccessToken returns a merchant API token for mode, reusing a cached one while it is valid
func (c *Client) AccessToken(ctx context.Context, mode string) (*oauth2.Token, error) {
	if tok, ok := c.tokens.Get(mode); ok && tok.Valid() {
		return tok, nil
	}

	creds, err := c.Credentials(mode)
	if err != nil {
		return nil, err
	}
	if creds.AppID == "" || creds.AppSecret == "" {
		return nil, ErrMissingCredential
	}

	cc := clientcredentials.Config{
		ClientID:     creds.AppID,
		ClientSecret: creds.AppSecret,
		TokenURL:     strings.TrimRight(creds.BaseURL, "/") + "/merchant/v1/oauth/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tok, err := cc.Token(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to obtain payhere access token: %w", err)
	}
	c.tokens.Add(mode, tok)
	return tok, nil
}

type refundRequest struct {
	PaymentID   string `json:"payment_id"`
	Description string `json:"description"`
}

type apiResponse struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

// RefundResult is what PayHere returns for an accepted refund
type RefundResult struct {
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// Refund asks PayHere to refund a captured payment in full
func (c *Client) Refund(ctx context.Context, mode, gatewayPaymentID, reason string) (*RefundResult, error) {
	if strings.TrimSpace(gatewayPaymentID) == "" {
		return nil, errors.New("gateway payment id is required")
	}
	tok, err := c.AccessToken(ctx, mode)
	if err != nil {
		return nil, err
	}
	creds, _ := c.Credentials(mode)

	body, err := json.Marshal(refundRequest{PaymentID: gatewayPaymentID, Description: reason})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(creds.BaseURL, "/")+"/merchant/v1/payment/refund", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	tok.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payhere refund request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Remove(mode)
	}

	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &GatewayError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	if resp.StatusCode >= 300 || out.Status != 1 {
		utils.LogError("PayHere refund rejected for payment %s: status=%d msg=%s", gatewayPaymentID, out.Status, out.Msg)
		return nil, &GatewayError{Status: out.Status, Message: out.Msg}
	}

	result := &RefundResult{Message: out.Msg}
	if len(out.Data) > 0 && string(out.Data) != "null" {
		result.Data = strings.Trim(string(out.Data), `"`)
	}
	return result, nil
}
