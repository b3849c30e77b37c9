// Package signer mints the access tokens vouchd hands out. Signing keys are
// provisioned per region so they can be rotated independently; key
// management itself lives outside this service.
package signer

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vouchd/vouchd/internal/core"
	"github.com/vouchd/vouchd/internal/names"
)

const (
	issuerClaim   = "vouchd"
	tokenLifetime = 1 * time.Hour
)

// Registry holds one encoder per region.
type Registry struct {
	encoders map[string]core.TokenEncoder
}

// KeyConfig is one per-region signing key, as it appears in the config file.
type KeyConfig struct {
	Region string `yaml:"region" mapstructure:"region"`
	Key    string `yaml:"key" mapstructure:"key"`
}

func NewRegistry(keys []KeyConfig) (*Registry, error) {
	encoders := make(map[string]core.TokenEncoder, len(keys))
	for _, k := range keys {
		if k.Region == "" {
			return nil, fmt.Errorf("signing key with empty region")
		}
		if k.Key == "" {
			return nil, fmt.Errorf("signing key for region %q is empty", k.Region)
		}
		if _, exists := encoders[k.Region]; exists {
			return nil, fmt.Errorf("duplicate signing key for region %q", k.Region)
		}
		encoders[k.Region] = &hmacEncoder{key: []byte(k.Key)}
	}
	return &Registry{encoders: encoders}, nil
}

// GetProvider returns the encoder for a region.
func (r *Registry) GetProvider(region string) (core.TokenEncoder, error) {
	enc, ok := r.encoders[region]
	if !ok {
		return nil, fmt.Errorf("%w: no signing key provisioned for region %q", core.ErrUnavailable, region)
	}
	return enc, nil
}

var _ core.TokenEncoder = (*hmacEncoder)(nil)

type hmacEncoder struct {
	key []byte
}

func (e *hmacEncoder) Encode(_ context.Context, audience, principalID string, scopes, roles []string) (*core.AccessToken, error) {
	if err := names.ValidatePrincipal(principalID); err != nil {
		return nil, err
	}

	now := time.Now()
	exp := now.Add(tokenLifetime)

	claims := jwt.MapClaims{
		"iss":   issuerClaim,
		"aud":   audience,
		"sub":   principalID,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
		"scp":   scopes,
		"roles": roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(e.key)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	return &core.AccessToken{
		Value:       signed,
		TokenType:   "Bearer",
		ExpiresAt:   exp,
		Audience:    audience,
		PrincipalID: principalID,
		Scopes:      scopes,
		Roles:       roles,
	}, nil
}
