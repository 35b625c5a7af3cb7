package routeros

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ardikapras/netbill/app/models"
)

const defaultTimeout = 10 * time.Second

// Client talks to a RouterOS device over its REST API with basic auth. It is
// a stateless remote-call facade; all durable state lives on the device.
type Client struct {
	BaseURL  string
	Username string
	Password string

	HTTPClient *http.Client
}

// NewClient builds a client for one device configuration.
func NewClient(cfg *models.RouterConfig) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(cfg.BaseURL(), "/"),
		Username: cfg.Username,
		Password: cfg.Password,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindDevice, Op: op, Err: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+"/rest"+path, reqBody)
	if err != nil {
		return &Error{Kind: KindDevice, Op: op, Err: err}
	}
	req.SetBasicAuth(c.Username, c.Password)
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
		return &Error{Kind: KindAuthentication, Op: op, Status: resp.StatusCode, Message: deviceMessage(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Kind: KindDevice, Op: op, Status: resp.StatusCode, Message: deviceMessage(raw)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &Error{Kind: KindDevice, Op: op, Message: "malformed device response", Err: err}
		}
	}
	return nil
}

// deviceMessage extracts the human-readable part of a RouterOS error body.
func deviceMessage(raw []byte) string {
	var parsed struct {
		Error   int    `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Detail != "" {
			return parsed.Detail
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

func secretsPath(kind ServiceKind) string {
	if kind == ServiceHotspot {
		return "/ip/hotspot/user"
	}
	return "/ppp/secret"
}

func activePath(kind ServiceKind) string {
	if kind == ServiceHotspot {
		return "/ip/hotspot/active"
	}
	return "/ppp/active"
}

func profilesPath(kind ServiceKind) string {
	if kind == ServiceHotspot {
		return "/ip/hotspot/user/profile"
	}
	return "/ppp/profile"
}

// TestConnection probes the device with a lightweight read.
func (c *Client) TestConnection(ctx context.Context) error {
	var out SystemResource
	return c.do(ctx, "test-connection", http.MethodGet, "/system/resource", nil, &out)
}

// GetSystemResource returns the device health snapshot.
func (c *Client) GetSystemResource(ctx context.Context) (*SystemResource, error) {
	var out SystemResource
	if err := c.do(ctx, "system-resource", http.MethodGet, "/system/resource", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSecrets lists device accounts for one service type.
func (c *Client) ListSecrets(ctx context.Context, kind ServiceKind) ([]Secret, error) {
	var out []Secret
	if err := c.do(ctx, "list-secrets", http.MethodGet, secretsPath(kind), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindSecretByName returns the account with the given name, or nil when the
// device has no such entry.
func (c *Client) FindSecretByName(ctx context.Context, kind ServiceKind, name string) (*Secret, error) {
	path := secretsPath(kind) + "?name=" + url.QueryEscape(name)
	var out []Secret
	if err := c.do(ctx, "find-secret", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Name == name {
			return &out[i], nil
		}
	}
	return nil, nil
}

// CreateSecret adds a new device account.
func (c *Client) CreateSecret(ctx context.Context, kind ServiceKind, account Account) (*Secret, error) {
	body := map[string]string{
		"name":     account.Name,
		"password": account.Password,
		"profile":  account.Profile,
	}
	if account.Comment != "" {
		body["comment"] = account.Comment
	}
	if kind == ServicePPPoE {
		body["service"] = "pppoe"
	}

	var out Secret
	if err := c.do(ctx, "create-secret", http.MethodPost, secretsPath(kind), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSecret patches an existing device account in place.
func (c *Client) UpdateSecret(ctx context.Context, kind ServiceKind, id string, account Account) (*Secret, error) {
	body := map[string]string{
		"password": account.Password,
		"profile":  account.Profile,
	}
	if account.Comment != "" {
		body["comment"] = account.Comment
	}

	var out Secret
	if err := c.do(ctx, "update-secret", http.MethodPatch, secretsPath(kind)+"/"+id, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSecret removes a device account.
func (c *Client) DeleteSecret(ctx context.Context, kind ServiceKind, id string) error {
	return c.do(ctx, "delete-secret", http.MethodDelete, secretsPath(kind)+"/"+id, nil, nil)
}

// SetSecretDisabled enables or disables a device account.
func (c *Client) SetSecretDisabled(ctx context.Context, kind ServiceKind, id string, disabled bool) error {
	body := map[string]string{"disabled": "false"}
	if disabled {
		body["disabled"] = "true"
	}
	return c.do(ctx, "set-secret-disabled", http.MethodPatch, secretsPath(kind)+"/"+id, body, nil)
}

// EnsureAccount makes sure an account with account.Name exists with the given
// password and profile. It is safe to call twice with the same name: an
// existing entry is updated in place, and a create that loses a race to a
// concurrent create falls back to the update path.
func (c *Client) EnsureAccount(ctx context.Context, kind ServiceKind, account Account) (*Secret, error) {
	existing, err := c.FindSecretByName(ctx, kind, account.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return c.UpdateSecret(ctx, kind, existing.ID, account)
	}

	created, err := c.CreateSecret(ctx, kind, account)
	if err == nil {
		return created, nil
	}
	if !isAlreadyExists(err) {
		return nil, err
	}

	existing, ferr := c.FindSecretByName(ctx, kind, account.Name)
	if ferr != nil {
		return nil, ferr
	}
	if existing == nil {
		return nil, err
	}
	return c.UpdateSecret(ctx, kind, existing.ID, account)
}

func isAlreadyExists(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindDevice {
		return false
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "already have") || strings.Contains(msg, "already exists")
}

// ListActiveSessions lists live sessions for one service type.
func (c *Client) ListActiveSessions(ctx context.Context, kind ServiceKind) ([]ActiveSession, error) {
	var out []ActiveSession
	if err := c.do(ctx, "list-active", http.MethodGet, activePath(kind), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DisconnectSession drops one live session.
func (c *Client) DisconnectSession(ctx context.Context, kind ServiceKind, id string) error {
	return c.do(ctx, "disconnect-session", http.MethodDelete, activePath(kind)+"/"+id, nil, nil)
}

// ListProfiles lists the service profiles configured on the device.
func (c *Client) ListProfiles(ctx context.Context, kind ServiceKind) ([]Profile, error) {
	var out []Profile
	if err := c.do(ctx, "list-profiles", http.MethodGet, profilesPath(kind), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListQueues lists simple queues (bandwidth control).
func (c *Client) ListQueues(ctx context.Context) ([]SimpleQueue, error) {
	var out []SimpleQueue
	if err := c.do(ctx, "list-queues", http.MethodGet, "/queue/simple", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateQueue adds a simple queue.
func (c *Client) CreateQueue(ctx context.Context, queue SimpleQueue) (*SimpleQueue, error) {
	body := map[string]string{
		"name":   queue.Name,
		"target": queue.Target,
	}
	if queue.MaxLimit != "" {
		body["max-limit"] = queue.MaxLimit
	}
	if queue.Comment != "" {
		body["comment"] = queue.Comment
	}

	var out SimpleQueue
	if err := c.do(ctx, "create-queue", http.MethodPost, "/queue/simple", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateQueue patches an existing simple queue in place.
func (c *Client) UpdateQueue(ctx context.Context, id string, queue SimpleQueue) (*SimpleQueue, error) {
	body := map[string]string{}
	if queue.Name != "" {
		body["name"] = queue.Name
	}
	if queue.Target != "" {
		body["target"] = queue.Target
	}
	if queue.MaxLimit != "" {
		body["max-limit"] = queue.MaxLimit
	}
	if queue.Comment != "" {
		body["comment"] = queue.Comment
	}

	var out SimpleQueue
	if err := c.do(ctx, "update-queue", http.MethodPatch, "/queue/simple/"+id, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteQueue removes a simple queue.
func (c *Client) DeleteQueue(ctx context.Context, id string) error {
	return c.do(ctx, "delete-queue", http.MethodDelete, "/queue/simple/"+id, nil, nil)
}

// GetLogs returns device log lines, optionally filtered by topics.
func (c *Client) GetLogs(ctx context.Context, topics []string) ([]LogEntry, error) {
	path := "/log"
	if len(topics) > 0 {
		path += "?topics=" + url.QueryEscape(strings.Join(topics, ","))
	}
	var out []LogEntry
	if err := c.do(ctx, "get-logs", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetInterfaceTraffic returns per-interface traffic counters.
func (c *Client) GetInterfaceTraffic(ctx context.Context) ([]InterfaceTraffic, error) {
	var out []InterfaceTraffic
	if err := c.do(ctx, "interface-traffic", http.MethodGet, "/interface", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
