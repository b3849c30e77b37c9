package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/vouchd/vouchd/internal/api"
	"github.com/vouchd/vouchd/internal/service"
)

// RequestToken runs the OAuth2 client-credentials flow. clientSecret is the
// opaque signed-identity blob produced by `vouchd secret encode`; scope is
// "{resource}/{scope}".
func (c *Client) RequestToken(
	ctx context.Context,
	clientID, clientSecret, scope string,
) (*service.TokenResponse, string, error) {
	form := url.Values{}
	form.Set("grant_type", service.GrantTypeClientCredentials)
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("scope", scope)

	// the token endpoint speaks form encoding, not JSON, so the JSON
	// helpers don't apply here.
	req, err := http.NewRequestWithContext(ctx, "POST", c.url().
		setPath(api.TokenRoute).
		build(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, correlationFromResponse(resp), fmt.Errorf("connection failed: %w", err)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode >= 400 {
		return nil, correlationFromResponse(resp), parseErrorResponse(resp)
	}

	var result service.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, correlationFromResponse(resp), fmt.Errorf("decoding response: %w", err)
	}

	return &result, correlationFromResponse(resp), nil
}
