// Package e2e drives a running kitclaim server over HTTP with godog
// scenarios. Point KITCLAIM_E2E_BASE_URL at the server under test and make
// sure both sides share KITCLAIM_JWT_SIGNING_KEY.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TestContext carries HTTP state across steps within one scenario.
type TestContext struct {
	baseURL    string
	signingKey []byte
	client     *http.Client

	accessToken  string
	userID       string
	userEmail    string
	lastStatus   int
	lastResponse map[string]any
}

func NewTestContext() *TestContext {
	baseURL := os.Getenv("KITCLAIM_E2E_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	signingKey := os.Getenv("KITCLAIM_JWT_SIGNING_KEY")
	if signingKey == "" {
		signingKey = "dev-secret-key-change-in-production"
	}
	return &TestContext{
		baseURL:    baseURL,
		signingKey: []byte(signingKey),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.accessToken = ""
	tc.userID = ""
	tc.userEmail = ""
	tc.lastStatus = 0
	tc.lastResponse = nil
}

// AuthenticateAs mints a short-lived token for a fresh user with the given
// email, the same way the identity provider would.
func (tc *TestContext) AuthenticateAs(email string) error {
	tc.userID = uuid.NewString()
	tc.userEmail = email

	claims := jwt.MapClaims{
		"sub":   tc.userID,
		"email": email,
		"exp":   time.Now().Add(10 * time.Minute).Unix(),
		"iat":   time.Now().Unix(),
		"jti":   uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tc.signingKey)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	tc.accessToken = token
	return nil
}

// POST sends a JSON body with the current bearer token, if any.
func (tc *TestContext) POST(path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, tc.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tc.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.accessToken)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	tc.lastStatus = resp.StatusCode
	tc.lastResponse = nil
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &tc.lastResponse); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (tc *TestContext) LastStatus() int {
	return tc.lastStatus
}

func (tc *TestContext) GetResponseField(field string) (any, error) {
	if tc.lastResponse == nil {
		return nil, fmt.Errorf("no response recorded")
	}
	value, ok := tc.lastResponse[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q", field)
	}
	return value, nil
}
