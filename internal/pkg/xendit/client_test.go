package xendit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &Client{
		APIKey:        "xnd_test_key",
		CallbackToken: "cb-token",
		APIBaseURL:    srv.URL,
		HTTPClient:    &http.Client{Timeout: 5 * time.Second},
	}
}

func TestCreateInvoice(t *testing.T) {
	var gotUser string
	var gotParams CreateInvoiceParams
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/invoices" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		gotUser, _, _ = r.BasicAuth()
		_ = json.NewDecoder(r.Body).Decode(&gotParams)
		_ = json.NewEncoder(w).Encode(Invoice{
			ID:         "inv-1",
			ExternalID: gotParams.ExternalID,
			Status:     "PENDING",
			Amount:     gotParams.Amount,
			InvoiceURL: "https://checkout.example/inv-1",
		})
	}))

	invoice, err := client.CreateInvoice(context.Background(), CreateInvoiceParams{
		ExternalID:  "SUB-1756684800000-abcd1234",
		Amount:      150000,
		Description: "Subscription: Home 20Mbps - 30 days",
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if gotUser != "xnd_test_key" {
		t.Errorf("basic auth user = %q", gotUser)
	}
	if gotParams.Currency != "IDR" {
		t.Errorf("currency = %q, want IDR default", gotParams.Currency)
	}
	if invoice.ID != "inv-1" {
		t.Errorf("invoice id = %q", invoice.ID)
	}
}

func TestCreateInvoiceValidation(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("gateway must not be called for invalid params")
	}))

	if _, err := client.CreateInvoice(context.Background(), CreateInvoiceParams{Amount: 1000}); err == nil {
		t.Error("missing external id should fail")
	}
	if _, err := client.CreateInvoice(context.Background(), CreateInvoiceParams{ExternalID: "x", Amount: 0}); err == nil {
		t.Error("zero amount should fail")
	}

	client.APIKey = ""
	_, err := client.CreateInvoice(context.Background(), CreateInvoiceParams{ExternalID: "x", Amount: 1000})
	if !IsAuthentication(err) {
		t.Errorf("error = %v, want authentication kind for missing key", err)
	}
}

func TestCreateInvoiceRejectsEmptyInvoiceID(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Invoice{Status: "PENDING"})
	}))

	_, err := client.CreateInvoice(context.Background(), CreateInvoiceParams{ExternalID: "x", Amount: 1000})
	if err == nil {
		t.Fatal("empty invoice id should fail")
	}
}

func TestCreateInvoiceAuthenticationError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error_code":"INVALID_API_KEY","message":"API key is invalid"}`))
	}))

	_, err := client.CreateInvoice(context.Background(), CreateInvoiceParams{ExternalID: "x", Amount: 1000})
	if !IsAuthentication(err) {
		t.Fatalf("error = %v, want authentication kind", err)
	}
}

func TestCreateInvoiceConnectivityError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := &Client{
		APIKey:     "xnd_test_key",
		APIBaseURL: srv.URL,
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
	}
	srv.Close()

	_, err := client.CreateInvoice(context.Background(), CreateInvoiceParams{ExternalID: "x", Amount: 1000})
	if !IsConnectivity(err) {
		t.Fatalf("error = %v, want connectivity kind", err)
	}
}

func TestVerifyCallbackToken(t *testing.T) {
	client := &Client{CallbackToken: "cb-token"}

	if !client.VerifyCallbackToken("cb-token") {
		t.Error("matching token rejected")
	}
	if client.VerifyCallbackToken("wrong") {
		t.Error("wrong token accepted")
	}
	if client.VerifyCallbackToken("") {
		t.Error("empty token accepted")
	}

	// An unset secret must reject everything instead of accepting everything.
	unset := &Client{}
	if unset.VerifyCallbackToken("") || unset.VerifyCallbackToken("anything") {
		t.Error("unset callback token must reject all deliveries")
	}
}

func TestGenerateExternalID(t *testing.T) {
	pattern := regexp.MustCompile(`^SUB-\d{13}-[0-9a-f]{8}$`)

	a := GenerateExternalID("SUB")
	b := GenerateExternalID("SUB")
	if !pattern.MatchString(a) {
		t.Errorf("external id %q does not match expected shape", a)
	}
	if a == b {
		t.Error("two generated external ids were identical")
	}
}

func TestCallbackPayloadIsPaid(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"PAID", true},
		{"SETTLED", true},
		{"paid", true},
		{" Paid ", true},
		{"EXPIRED", false},
		{"PENDING", false},
		{"", false},
	}
	for _, tt := range tests {
		p := CallbackPayload{Status: tt.status}
		if got := p.IsPaid(); got != tt.want {
			t.Errorf("IsPaid(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
