package xendit

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ardikapras/netbill/internal/pkg/env"
	"github.com/google/uuid"
)

const defaultAPIBaseURL = "https://api.xendit.co"

// Client talks to the Xendit invoice API. Authentication is basic auth with
// the API key as username and an empty password.
type Client struct {
	APIKey        string
	CallbackToken string
	APIBaseURL    string

	HTTPClient *http.Client
}

// NewClientFromEnv builds a client from XENDIT_* environment configuration.
func NewClientFromEnv() *Client {
	return &Client{
		APIKey:        strings.TrimSpace(env.GetEnv("XENDIT_API_KEY", "")),
		CallbackToken: strings.TrimSpace(env.GetEnv("XENDIT_CALLBACK_TOKEN", "")),
		APIBaseURL:    strings.TrimSpace(env.GetEnv("XENDIT_API_BASE_URL", defaultAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindGateway, Op: op, Err: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.APIBaseURL, "/")+path, reqBody)
	if err != nil {
		return &Error{Kind: KindGateway, Op: op, Err: err}
	}
	req.SetBasicAuth(c.APIKey, "")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &Error{Kind: KindConnectivity, Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &Error{Kind: KindAuthentication, Op: op, Status: resp.StatusCode, Message: gatewayMessage(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Kind: KindGateway, Op: op, Status: resp.StatusCode, Message: gatewayMessage(raw)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &Error{Kind: KindGateway, Op: op, Message: "malformed gateway response", Err: err}
		}
	}
	return nil
}

func gatewayMessage(raw []byte) string {
	var parsed struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Message != "" {
		if parsed.ErrorCode != "" {
			return fmt.Sprintf("%s: %s", parsed.ErrorCode, parsed.Message)
		}
		return parsed.Message
	}
	return strings.TrimSpace(string(raw))
}

// CreateInvoice creates a payment invoice. The amount is fixed here in whole
// currency units and never recomputed afterwards; ExternalID is our own
// reference, distinct from the invoice id the gateway assigns.
func (c *Client) CreateInvoice(ctx context.Context, params CreateInvoiceParams) (*Invoice, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, &Error{Kind: KindAuthentication, Op: "create-invoice", Message: "XENDIT_API_KEY is not configured"}
	}
	if params.ExternalID == "" {
		return nil, &Error{Kind: KindGateway, Op: "create-invoice", Message: "external id is required"}
	}
	if params.Amount <= 0 {
		return nil, &Error{Kind: KindGateway, Op: "create-invoice", Message: "amount must be positive"}
	}
	if params.Currency == "" {
		params.Currency = "IDR"
	}

	var out Invoice
	if err := c.do(ctx, "create-invoice", http.MethodPost, "/v2/invoices", params, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, &Error{Kind: KindGateway, Op: "create-invoice", Message: "gateway returned empty invoice id"}
	}
	return &out, nil
}

// GetInvoice fetches one invoice by the gateway's invoice id.
func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	var out Invoice
	if err := c.do(ctx, "get-invoice", http.MethodGet, "/v2/invoices/"+invoiceID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBalance returns the merchant account balance.
func (c *Client) GetBalance(ctx context.Context) (int64, error) {
	var out struct {
		Balance int64 `json:"balance"`
	}
	if err := c.do(ctx, "get-balance", http.MethodGet, "/balance", nil, &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

// VerifyCallbackToken checks the x-callback-token header value against the
// configured secret in constant time. An unconfigured secret rejects all
// callbacks rather than accepting them.
func (c *Client) VerifyCallbackToken(token string) bool {
	expected := strings.TrimSpace(c.CallbackToken)
	if expected == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

// GenerateExternalID produces our side's invoice reference.
func GenerateExternalID(prefix string) string {
	if prefix == "" {
		prefix = "INV"
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), uuid.NewString()[:8])
}
