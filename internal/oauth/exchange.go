package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sumire/repoboard/internal/domain"
)

// GitHubTokenURL is GitHub's token endpoint.
const GitHubTokenURL = "https://github.com/login/oauth/access_token"

// DefaultExchangeTimeout bounds the single exchange round trip.
const DefaultExchangeTimeout = 15 * time.Second

// TokenResponse is a successful code exchange result.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
	TokenType   string `json:"token_type"`
}

// Exchanger swaps a one-time authorization code for an access token. The
// confidential client secret lives only here, server-side.
type Exchanger struct {
	clientID     string
	clientSecret string
	endpoint     string
	httpClient   *http.Client
}

// NewExchanger creates an Exchanger against GitHub's token endpoint. A
// non-positive timeout falls back to DefaultExchangeTimeout.
func NewExchanger(clientID, clientSecret string, timeout time.Duration) *Exchanger {
	return NewExchangerWithEndpoint(clientID, clientSecret, GitHubTokenURL, timeout)
}

// NewExchangerWithEndpoint creates an Exchanger against a custom token
// endpoint.
func NewExchangerWithEndpoint(clientID, clientSecret, endpoint string, timeout time.Duration) *Exchanger {
	if timeout <= 0 {
		timeout = DefaultExchangeTimeout
	}
	return &Exchanger{
		clientID:     clientID,
		clientSecret: clientSecret,
		endpoint:     endpoint,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Exchange performs the code-for-token exchange. One request, no retries; a
// transient failure is surfaced and the user restarts the flow.
//
// GitHub reports OAuth failures as {error, error_description} in the body of
// a transport-success response, so the payload shape is validated rather than
// the status code alone. A 200 without an access token is also a failure.
func (e *Exchanger) Exchange(ctx context.Context, code string) (*TokenResponse, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     e.clientID,
		"client_secret": e.clientSecret,
		"code":          code,
	})
	if err != nil {
		return nil, fmt.Errorf("encode exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read exchange response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
		TokenType   string `json:"token_type"`
		Error       string `json:"error"`
		ErrorDesc   string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("decode exchange response: %w", err)
	}

	if tokenResp.Error != "" {
		return nil, &domain.ProviderError{Code: tokenResp.Error, Description: tokenResp.ErrorDesc}
	}
	if tokenResp.AccessToken == "" {
		return nil, domain.ErrNoToken
	}

	return &TokenResponse{
		AccessToken: tokenResp.AccessToken,
		Scope:       tokenResp.Scope,
		TokenType:   tokenResp.TokenType,
	}, nil
}
