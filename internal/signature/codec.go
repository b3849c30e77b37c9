// Package signature encodes and decodes the opaque client_secret: a
// base64url JSON document carrying the region and the full header set of a
// caller-signed "who am I" request. The secret never contains the caller's
// credentials, only the signature they produced.
package signature

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/textproto"

	"github.com/vouchd/vouchd/internal/core"
)

// Headers that must be present for the relayed request to be verifiable.
const (
	HeaderAuthorization = "Authorization"
	HeaderAmzDate       = "X-Amz-Date"
	HeaderHost          = "Host"
)

// Decode parses an opaque client_secret into its signature form.
func Decode(secret string) (*core.CallerIdentitySignature, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: client_secret must not be empty", core.ErrValidation)
	}
	raw, err := base64.RawURLEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: client_secret is not valid base64url: %v", core.ErrValidation, err)
	}
	var sig core.CallerIdentitySignature
	if err := json.Unmarshal(raw, &sig); err != nil {
		return nil, fmt.Errorf("%w: client_secret does not decode to a signature: %v", core.ErrValidation, err)
	}
	return &sig, nil
}

// Encode is the inverse of Decode, used by clients to build a secret from a
// locally signed request.
func Encode(sig *core.CallerIdentitySignature) (string, error) {
	raw, err := json.Marshal(sig)
	if err != nil {
		return "", fmt.Errorf("marshaling signature: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Validate checks the decoded signature is structurally complete: a region
// and the three signing headers. It does NOT verify the signature itself;
// that happens at the identity service.
func Validate(sig *core.CallerIdentitySignature) error {
	if sig == nil {
		return fmt.Errorf("%w: signature is empty", core.ErrValidation)
	}
	if sig.Region == "" {
		return fmt.Errorf("%w: signature is missing a region", core.ErrValidation)
	}
	present := make(map[string]struct{}, len(sig.Headers))
	for k, v := range sig.Headers {
		if v == "" {
			continue
		}
		present[textproto.CanonicalMIMEHeaderKey(k)] = struct{}{}
	}
	for _, required := range []string{HeaderAuthorization, HeaderAmzDate, HeaderHost} {
		if _, ok := present[textproto.CanonicalMIMEHeaderKey(required)]; !ok {
			return fmt.Errorf("%w: signature is missing the %s header", core.ErrValidation, required)
		}
	}
	return nil
}
