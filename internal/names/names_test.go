package names

import (
	"errors"
	"testing"

	"github.com/vouchd/vouchd/internal/core"
)

func TestValidateResource(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "uri shaped", input: "api://amber", wantErr: false},
		{name: "plain", input: "billing", wantErr: false},
		{name: "empty", input: "", wantErr: true},
		{name: "hash forbidden", input: "api://a#b", wantErr: true},
		{name: "whitespace forbidden", input: "api://a b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateResource(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateResource(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, core.ErrValidation) {
				t.Errorf("error should wrap core.ErrValidation, got %v", err)
			}
		})
	}
}

func TestValidateScopeAndRole(t *testing.T) {
	for _, valid := range []string{"rbac", "rbac.read", "read_write", "a-b"} {
		if err := ValidateScope(valid); err != nil {
			t.Errorf("ValidateScope(%q) = %v, want nil", valid, err)
		}
		if err := ValidateRole(valid); err != nil {
			t.Errorf("ValidateRole(%q) = %v, want nil", valid, err)
		}
	}
	for _, invalid := range []string{"", "with space", "with/slash", "with#hash"} {
		if err := ValidateScope(invalid); err == nil {
			t.Errorf("ValidateScope(%q) = nil, want error", invalid)
		}
		if err := ValidateRole(invalid); err == nil {
			t.Errorf("ValidateRole(%q) = nil, want error", invalid)
		}
	}
}

func TestSplitScope(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantResource string
		wantScope    string
		wantErr      bool
	}{
		{name: "uri resource", input: "api://amber/rbac", wantResource: "api://amber", wantScope: "rbac"},
		{name: "plain resource", input: "billing/invoices.read", wantResource: "billing", wantScope: "invoices.read"},
		{name: "missing separator", input: "apiamber", wantErr: true},
		{name: "empty scope", input: "api://amber/", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resource, scope, err := SplitScope(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitScope(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if resource != tt.wantResource || scope != tt.wantScope {
				t.Errorf("SplitScope(%q) = (%q, %q), want (%q, %q)",
					tt.input, resource, scope, tt.wantResource, tt.wantScope)
			}
		})
	}
}
