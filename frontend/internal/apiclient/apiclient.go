package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	internal_errors "github.com/labportal/portal/shared/errors"
	"github.com/labportal/portal/shared/logger"
)

// APIClient struct handles all communication with the portal REST API.
type APIClient struct {
	BaseURL    string
	HttpClient *http.Client
	// RequestTimeout bounds JSON calls. Multipart uploads are not bounded.
	RequestTimeout time.Duration
}

// New creates a new client for interacting with the portal API.
func New(baseURL string, requestTimeout time.Duration) *APIClient {
	return &APIClient{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		HttpClient:     &http.Client{},
		RequestTimeout: requestTimeout,
	}
}

// Credentials holds the author's access token. The composer refreshes it on every
// request so background saves use the newest token the browser presented.
type Credentials struct {
	mu    sync.RWMutex
	token string
}

func NewCredentials(token string) *Credentials {
	return &Credentials{token: token}
}

func (c *Credentials) Set(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Credentials) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Client is an APIClient acting on behalf of one author.
type Client struct {
	api   *APIClient
	creds *Credentials
}

func (c *APIClient) For(creds *Credentials) *Client {
	return &Client{api: c, creds: creds}
}

// do is the single, unified helper for making API requests.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.api.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create API request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.api.HttpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend unavailable: %w", err)
	}
	return resp, nil
}

// doJSON sends in as JSON (when non-nil) and decodes a 2xx answer into out (when non-nil).
// action names the operation for permission messages.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any, action string) error {
	if c.api.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.api.RequestTimeout)
		defer cancel()
	}

	var body io.Reader
	contentType := ""
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", action, err)
		}
		body = bytes.NewReader(jsonBody)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp, action); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("cannot decode %s response: %w", action, err)
	}
	return nil
}

// checkResponse turns a non-2xx answer into an error. 401 and 403 become PermissionError
// so the composer can say "login required" instead of a generic failure.
func checkResponse(resp *http.Response, action string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &internal_errors.PermissionError{Status: resp.StatusCode, Action: action}
	}

	msg := backendMessage(bodyBytes)
	logger.Log.Debug("portal API rejected request", "action", action, "status", resp.StatusCode, "message", msg)
	return &internal_errors.ErrorWithStatusCode{
		Message:    fmt.Sprintf("failed to %s: %s", action, msg),
		StatusCode: resp.StatusCode,
	}
}

// backendMessage extracts {"error": ...}, {"message": ...} or {"detail": ...}, else the raw text.
func backendMessage(body []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		for _, m := range []string{parsed.Error, parsed.Message, parsed.Detail} {
			if m != "" {
				return m
			}
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "no details"
	}
	return text
}
