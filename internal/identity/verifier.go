// Package identity resolves a caller's principal by relaying their
// pre-signed GetCallerIdentity request to STS. The server never signs this
// request itself: the caller's headers carry a signature computed with the
// caller's own credentials, so a successful STS response proves the caller
// controls them without any key material crossing the wire.
package identity

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vouchd/vouchd/internal/core"
)

// callerIdentityBody must byte-match the body the caller signed, or the
// request hash in the signature will not verify.
const callerIdentityBody = "Action=GetCallerIdentity&Version=2011-06-15"

var _ core.IdentityVerifier = (*Verifier)(nil)

// Verifier relays caller-signed requests to the regional STS endpoints.
// Regional clients are created lazily and shared across requests.
type Verifier struct {
	mu      sync.Mutex
	clients map[string]*regionClient

	// endpointFor overrides the regional endpoint, for tests.
	endpointFor func(region string) string
}

type regionClient struct {
	endpoint string
	http     *http.Client
}

type Option func(*Verifier)

// WithEndpoint overrides the per-region endpoint URL. Tests point this at an
// httptest server.
func WithEndpoint(fn func(region string) string) Option {
	return func(v *Verifier) {
		v.endpointFor = fn
	}
}

func New(opts ...Option) *Verifier {
	v := &Verifier{
		clients: make(map[string]*regionClient),
		endpointFor: func(region string) string {
			return fmt.Sprintf("https://sts.%s.amazonaws.com/", region)
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Resolve sends the "who am I" request for the given region with the
// caller-supplied headers set verbatim and returns the verified ARN.
func (v *Verifier) Resolve(ctx context.Context, region string, headers map[string]string) (string, error) {
	if region == "" {
		return "", fmt.Errorf("%w: region must not be empty", core.ErrValidation)
	}

	client := v.clientFor(region)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.endpoint,
		strings.NewReader(callerIdentityBody))
	if err != nil {
		return "", fmt.Errorf("building caller-identity request: %w", err)
	}

	// Replace the header collection wholesale. The local credential chain
	// must not touch this request; only the caller's signature counts.
	req.Header = make(http.Header, len(headers))
	for k, val := range headers {
		if strings.EqualFold(k, "Host") {
			req.Host = val
			continue
		}
		req.Header.Set(k, val)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	}

	resp, err := client.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: identity service unreachable: %v", core.ErrUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		// Upstream detail is logged, never echoed to the client.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Ctx(ctx).Warn().
			Int("status", resp.StatusCode).
			Str("region", region).
			Str("upstream_body", string(body)).
			Msg("caller identity verification rejected")

		if resp.StatusCode >= 500 {
			return "", fmt.Errorf("%w: identity service returned status %d", core.ErrUnavailable, resp.StatusCode)
		}
		return "", fmt.Errorf("%w: identity service rejected the signature", core.ErrAuthentication)
	}

	var parsed getCallerIdentityResponse
	if err := xml.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: parsing identity response: %v", core.ErrUnavailable, err)
	}
	arn := parsed.Result.Arn
	if arn == "" {
		return "", fmt.Errorf("%w: identity response is missing an ARN", core.ErrUnavailable)
	}
	return arn, nil
}

// clientFor returns the memoized client for a region, creating it on first
// use.
func (v *Verifier) clientFor(region string) *regionClient {
	v.mu.Lock()
	defer v.mu.Unlock()

	if c, ok := v.clients[region]; ok {
		return c
	}
	c := &regionClient{
		endpoint: v.endpointFor(region),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	v.clients[region] = c
	return c
}

type getCallerIdentityResponse struct {
	XMLName xml.Name                `xml:"GetCallerIdentityResponse"`
	Result  getCallerIdentityResult `xml:"GetCallerIdentityResult"`
}

type getCallerIdentityResult struct {
	Arn     string `xml:"Arn"`
	UserID  string `xml:"UserId"`
	Account string `xml:"Account"`
}
