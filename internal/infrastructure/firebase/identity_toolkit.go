package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already in use")
)

type SignInResult struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	UID          string `json:"localId"`
}

// identityToolkit talks to the Identity Toolkit REST API, which the Admin
// SDK does not cover (password and custom token sign-in).
type identityToolkit struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func newIdentityToolkit(apiKey, baseURL string) *identityToolkit {
	if baseURL == "" {
		baseURL = "https://identitytoolkit.googleapis.com/v1"
		if host := os.Getenv("FIREBASE_AUTH_EMULATOR_HOST"); host != "" {
			baseURL = "http://" + host + "/identitytoolkit.googleapis.com/v1"
		}
	}
	return &identityToolkit{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type toolkitError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (t *identityToolkit) signInWithPassword(ctx context.Context, email, password string) (*SignInResult, error) {
	return t.post(ctx, "accounts:signInWithPassword", map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

func (t *identityToolkit) signInWithCustomToken(ctx context.Context, customToken string) (*SignInResult, error) {
	return t.post(ctx, "accounts:signInWithCustomToken", map[string]interface{}{
		"token":             customToken,
		"returnSecureToken": true,
	})
}

func (t *identityToolkit) post(ctx context.Context, method string, payload map[string]interface{}) (*SignInResult, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("FIREBASE_API_KEY is not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s?key=%s", t.baseURL, method, t.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity toolkit request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var tkErr toolkitError
		_ = json.NewDecoder(resp.Body).Decode(&tkErr)
		switch tkErr.Error.Message {
		case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("identity toolkit %s: status %d: %s", method, resp.StatusCode, tkErr.Error.Message)
	}

	var result SignInResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode identity toolkit response: %w", err)
	}
	return &result, nil
}
