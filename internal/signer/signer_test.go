package signer

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/vouchd/vouchd/internal/core"
)

func TestRegistrySelectsRegion(t *testing.T) {
	reg, err := NewRegistry([]KeyConfig{
		{Region: "eu-central-1", Key: "key-eu"},
		{Region: "us-east-1", Key: "key-us"},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if _, err := reg.GetProvider("eu-central-1"); err != nil {
		t.Errorf("GetProvider(eu-central-1) error = %v", err)
	}
	if _, err := reg.GetProvider("ap-south-1"); !errors.Is(err, core.ErrUnavailable) {
		t.Errorf("GetProvider(ap-south-1) error = %v, want core.ErrUnavailable", err)
	}
}

func TestNewRegistryRejectsBadConfig(t *testing.T) {
	cases := [][]KeyConfig{
		{{Region: "", Key: "k"}},
		{{Region: "eu-central-1", Key: ""}},
		{{Region: "eu-central-1", Key: "a"}, {Region: "eu-central-1", Key: "b"}},
	}
	for _, keys := range cases {
		if _, err := NewRegistry(keys); err == nil {
			t.Errorf("NewRegistry(%+v) = nil error, want error", keys)
		}
	}
}

func TestEncodeClaims(t *testing.T) {
	reg, err := NewRegistry([]KeyConfig{{Region: "eu-central-1", Key: "test-signing-key"}})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	enc, _ := reg.GetProvider("eu-central-1")

	token, err := enc.Encode(context.Background(), "api://amber", "arn:test:user/alice",
		[]string{"rbac"}, []string{"rbac.read"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if token.TokenType != "Bearer" {
		t.Errorf("TokenType = %q, want Bearer", token.TokenType)
	}

	parsed, err := jwt.Parse(token.Value, func(t *jwt.Token) (any, error) {
		return []byte("test-signing-key"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("issued token does not verify: %v", err)
	}

	claims := parsed.Claims.(jwt.MapClaims)
	if got := claims["sub"]; got != "arn:test:user/alice" {
		t.Errorf("sub = %v, want arn:test:user/alice", got)
	}
	if got := claims["aud"]; got != "api://amber" {
		t.Errorf("aud = %v, want api://amber", got)
	}
	if diff := cmp.Diff([]any{"rbac.read"}, claims["roles"]); diff != "" {
		t.Errorf("roles mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"rbac"}, claims["scp"]); diff != "" {
		t.Errorf("scp mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeRejectsEmptyPrincipal(t *testing.T) {
	enc := &hmacEncoder{key: []byte("k")}
	if _, err := enc.Encode(context.Background(), "api://amber", "", nil, nil); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Encode() error = %v, want core.ErrValidation", err)
	}
}
