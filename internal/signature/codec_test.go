package signature

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vouchd/vouchd/internal/core"
)

func validSignature() *core.CallerIdentitySignature {
	return &core.CallerIdentitySignature{
		Region: "eu-central-1",
		Headers: map[string]string{
			"Authorization": "AWS4-HMAC-SHA256 Credential=AKIA.../20240101/eu-central-1/sts/aws4_request, SignedHeaders=host;x-amz-date, Signature=abc",
			"X-Amz-Date":    "20240101T000000Z",
			"Host":          "sts.eu-central-1.amazonaws.com",
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := validSignature()

	secret, err := Encode(want)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got, err := Decode(secret)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{name: "empty", secret: ""},
		{name: "not base64", secret: "!!not-base64!!"},
		{name: "not json", secret: base64.RawURLEncoding.EncodeToString([]byte("hello"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.secret)
			if err == nil {
				t.Fatal("Decode() = nil error, want validation error")
			}
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("error should wrap core.ErrValidation, got %v", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		if err := Validate(validSignature()); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})

	t.Run("lowercase header names accepted", func(t *testing.T) {
		sig := validSignature()
		sig.Headers = map[string]string{
			"authorization": "sig",
			"x-amz-date":    "20240101T000000Z",
			"host":          "sts.eu-central-1.amazonaws.com",
		}
		if err := Validate(sig); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})

	t.Run("missing region", func(t *testing.T) {
		sig := validSignature()
		sig.Region = ""
		if err := Validate(sig); !errors.Is(err, core.ErrValidation) {
			t.Errorf("Validate() = %v, want validation error", err)
		}
	})

	for _, header := range []string{"Authorization", "X-Amz-Date", "Host"} {
		t.Run("missing "+header, func(t *testing.T) {
			sig := validSignature()
			delete(sig.Headers, header)
			if err := Validate(sig); !errors.Is(err, core.ErrValidation) {
				t.Errorf("Validate() = %v, want validation error", err)
			}
		})
	}
}
