package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/mitchellh/mapstructure"

	"github.com/vouchd/vouchd/internal/policy"
	"github.com/vouchd/vouchd/internal/rbac"
	"github.com/vouchd/vouchd/internal/signer"
)

type Config struct {
	Store       StoreConfig        `yaml:"store"`
	SigningKeys []signer.KeyConfig `yaml:"signing_keys"`
	Rules       []policy.Rule      `yaml:"rules"`
	Audit       AuditConfig        `yaml:"audit"`
	Repair      RepairConfig       `yaml:"repair"`

	// AdminSigningRegion selects which signing key also guards the admin
	// API. Defaults to the first configured key's region.
	AdminSigningRegion string `yaml:"admin_signing_region"`
}

// StoreConfig selects the RBAC store backend. The inline map carries
// backend-specific settings.
type StoreConfig struct {
	Type   string         `yaml:"type"`    // "dynamodb" or "memory"
	Config map[string]any `yaml:",inline"` // capture remaining fields
}

// DynamoConfig decodes the inline backend settings for the dynamodb type.
func (s StoreConfig) DynamoConfig() (rbac.Config, error) {
	var conf rbac.Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   &conf,
	})
	if err != nil {
		return conf, fmt.Errorf("creating decoder for store config: %w", err)
	}
	if err := decoder.Decode(s.Config); err != nil {
		return conf, fmt.Errorf("decoding dynamodb store config: %w", err)
	}
	if conf.Region == "" {
		return conf, fmt.Errorf("dynamodb store requires a region")
	}
	if conf.Table == "" {
		return conf, fmt.Errorf("dynamodb store requires a table")
	}
	return conf, nil
}

// AuditConfig holds configuration for auditing.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Type    string `yaml:"type"` // e.g., "file", "memory"
}

// RepairConfig controls the assignment mirror repair sweep.
type RepairConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Load reads and parses the configuration file at the given path.
// It returns a Config struct or an error if loading/parsing/validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Type {
	case "memory":
	case "dynamodb":
		if _, err := c.Store.DynamoConfig(); err != nil {
			return err
		}
	case "":
		return fmt.Errorf("store.type is required (dynamodb or memory)")
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}

	if len(c.SigningKeys) == 0 {
		return fmt.Errorf("at least one signing key is required")
	}
	regions := make(map[string]struct{}, len(c.SigningKeys))
	for idx, k := range c.SigningKeys {
		if k.Region == "" {
			return fmt.Errorf("signing key at index %d has empty region", idx)
		}
		if k.Key == "" {
			return fmt.Errorf("signing key for region %q is empty", k.Region)
		}
		regions[k.Region] = struct{}{}
	}

	if c.AdminSigningRegion == "" {
		c.AdminSigningRegion = c.SigningKeys[0].Region
	}
	if _, ok := regions[c.AdminSigningRegion]; !ok {
		return fmt.Errorf("admin_signing_region %q has no signing key", c.AdminSigningRegion)
	}

	// rules are validated (and compiled) by policy.New at startup

	if c.Audit.Enabled && c.Audit.Type == "file" && c.Audit.Path == "" {
		return fmt.Errorf("file audit requires a path")
	}

	return nil
}

// AdminSigningKey returns the key guarding the admin API.
func (c *Config) AdminSigningKey() []byte {
	for _, k := range c.SigningKeys {
		if k.Region == c.AdminSigningRegion {
			return []byte(k.Key)
		}
	}
	return nil
}
