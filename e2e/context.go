package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// TestContext holds state between test steps
type TestContext struct {
	BaseURL          string
	AdminToken       string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	// Tokens and sessions are saved under a scenario-local name such as "ana".
	tokens   map[string]string
	sessions map[string]string
	users    map[string]string
}

// NewTestContext creates a new test context
func NewTestContext(baseURL, adminToken string) *TestContext {
	return &TestContext{
		BaseURL:    baseURL,
		AdminToken: adminToken,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		tokens:     map[string]string{},
		sessions:   map[string]string{},
		users:      map[string]string{},
	}
}

// envOr returns the environment value or def when unset.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// POST makes a POST request and stores the response
func (tc *TestContext) POST(path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	return tc.do(http.MethodPost, path, reader, headers)
}

// GET makes a GET request and stores the response
func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(method, path string, body io.Reader, headers map[string]string) error {
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a field from the JSON response
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response", field)
	}
	return value, nil
}

// ResponseContains checks if the response body contains a field or text
func (tc *TestContext) ResponseContains(text string) bool {
	if strings.Contains(string(tc.LastResponseBody), text) {
		return true
	}

	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err == nil {
		if _, ok := data[text]; ok {
			return true
		}
	}
	return false
}

// Getter methods for step package interfaces

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}

func (tc *TestContext) GetAdminToken() string {
	return tc.AdminToken
}

func (tc *TestContext) GetTokenFor(name string) string {
	return tc.tokens[name]
}

func (tc *TestContext) SetTokenFor(name, token string) {
	tc.tokens[name] = token
}

func (tc *TestContext) GetSessionIDFor(name string) string {
	return tc.sessions[name]
}

func (tc *TestContext) SetSessionIDFor(name, sessionID string) {
	tc.sessions[name] = sessionID
}

func (tc *TestContext) GetUserIDFor(name string) string {
	return tc.users[name]
}

func (tc *TestContext) SetUserIDFor(name, userID string) {
	tc.users[name] = userID
}

// SavedTokens lists every token the scenario obtained.
func (tc *TestContext) SavedTokens() []string {
	out := make([]string, 0, len(tc.tokens))
	for _, t := range tc.tokens {
		out = append(out, t)
	}
	return out
}

func (tc *TestContext) GetBaseURL() string {
	return tc.BaseURL
}

func (tc *TestContext) GetHTTPClient() *http.Client {
	return tc.HTTPClient
}
