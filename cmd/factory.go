package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vouchd/vouchd/internal/cliconfig"
	"github.com/vouchd/vouchd/internal/config"
	"github.com/vouchd/vouchd/pkg/client"
)

type Factory struct {
	// RemoteAddr is the address of the vouchd server to connect to.
	RemoteAddr string

	// ConfigPath points at the server configuration file (store backend,
	// signing keys, issuance rules).
	ConfigPath string
}

func NewFactory() *Factory {
	return &Factory{}
}

// GetClient returns an authenticated HTTP client for remote operations.
func (f *Factory) GetClient() (*client.Client, error) {
	server := f.RemoteAddr // prio 1: command-line flag
	if server == "" {
		server = viper.GetString(VouchdAddrKey) // prio 2: config/env
	}
	if server == "" {
		return nil, fmt.Errorf("server address not configured (use --server or set VOUCHD_ADDR)")
	}

	var token string
	if cfg, err := cliconfig.Load(); err == nil {
		if cred, err := cfg.GetCredential(server); err == nil { // token prio 1: saved credential
			token = cred.Token
		}
	}

	if envToken := os.Getenv("VOUCHD_TOKEN"); envToken != "" { // token prio 2: env var
		token = envToken
	}

	return client.New(server, client.WithAuthToken(token)), nil
}

// ServerAddr resolves the configured server address, preferring the flag.
func (f *Factory) ServerAddr() (string, error) {
	server := f.RemoteAddr
	if server == "" {
		server = viper.GetString(VouchdAddrKey)
	}
	if server == "" {
		return "", fmt.Errorf("server address not configured (use --server or set VOUCHD_ADDR)")
	}
	return server, nil
}

func (f *Factory) bindConfigFlag(flags *pflag.FlagSet) {
	flags.StringVarP(&f.ConfigPath, "config", "c", "", "The vouchd server configuration file to use")
}

func (f *Factory) LoadServerConfig() (*config.Config, error) {
	if f.ConfigPath == "" {
		return nil, fmt.Errorf("config file not specified (use --config)")
	}
	return config.Load(f.ConfigPath)
}
