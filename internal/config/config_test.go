package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vouchd.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
store:
  type: dynamodb
  region: eu-central-1
  table: vouchd-rbac
signing_keys:
  - region: eu-central-1
    key: super-secret
  - region: us-east-1
    key: other-secret
rules:
  - name: block-root
    effect: deny
    expr: 'principal contains ":root"'
audit:
  enabled: true
  type: memory
repair:
  interval: 15m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.Type != "dynamodb" {
		t.Errorf("Store.Type = %q, want dynamodb", cfg.Store.Type)
	}
	dynamo, err := cfg.Store.DynamoConfig()
	if err != nil {
		t.Fatalf("DynamoConfig() error = %v", err)
	}
	if dynamo.Region != "eu-central-1" || dynamo.Table != "vouchd-rbac" {
		t.Errorf("DynamoConfig() = %+v", dynamo)
	}

	if got := cfg.AdminSigningRegion; got != "eu-central-1" {
		t.Errorf("AdminSigningRegion defaulted to %q, want eu-central-1", got)
	}
	if got := string(cfg.AdminSigningKey()); got != "super-secret" {
		t.Errorf("AdminSigningKey() = %q", got)
	}
	if cfg.Repair.Interval != 15*time.Minute {
		t.Errorf("Repair.Interval = %v, want 15m", cfg.Repair.Interval)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].Name != "block-root" {
		t.Errorf("Rules = %+v", cfg.Rules)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name:    "missing store type",
			content: "signing_keys:\n  - region: eu-central-1\n    key: k\n",
			wantMsg: "store.type",
		},
		{
			name:    "unknown store type",
			content: "store:\n  type: etcd\nsigning_keys:\n  - region: a\n    key: k\n",
			wantMsg: "unknown store type",
		},
		{
			name:    "dynamodb without table",
			content: "store:\n  type: dynamodb\n  region: eu-central-1\nsigning_keys:\n  - region: a\n    key: k\n",
			wantMsg: "table",
		},
		{
			name:    "no signing keys",
			content: "store:\n  type: memory\n",
			wantMsg: "signing key",
		},
		{
			name:    "admin region without key",
			content: "store:\n  type: memory\nsigning_keys:\n  - region: a\n    key: k\nadmin_signing_region: b\n",
			wantMsg: "admin_signing_region",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load() = nil error, want error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}
