package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vouchd/vouchd/internal/api"
	"github.com/vouchd/vouchd/internal/audit"
	"github.com/vouchd/vouchd/internal/config"
	"github.com/vouchd/vouchd/internal/core"
	"github.com/vouchd/vouchd/internal/identity"
	"github.com/vouchd/vouchd/internal/policy"
	"github.com/vouchd/vouchd/internal/rbac"
	"github.com/vouchd/vouchd/internal/service"
	"github.com/vouchd/vouchd/internal/signer"
	"github.com/vouchd/vouchd/internal/tasks"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the vouchd server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		cfg, err := f.LoadServerConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		log.Info().Str("type", cfg.Store.Type).Msg("Initializing RBAC store...")
		store, repairable, err := buildStore(cfg)
		if err != nil {
			return fmt.Errorf("building rbac store: %w", err)
		}

		log.Info().Msg("Initializing signing keys...")
		signers, err := signer.NewRegistry(cfg.SigningKeys)
		if err != nil {
			return fmt.Errorf("building signer registry: %w", err)
		}

		policies, err := policy.New(cfg.Rules)
		if err != nil {
			return fmt.Errorf("building policy engine: %w", err)
		}

		auditor, err := buildAuditor(cfg)
		if err != nil {
			return fmt.Errorf("building auditor: %w", err)
		}
		defer func() {
			if err := auditor.Close(); err != nil {
				log.Error().Err(err).Msg("closing auditor")
			}
		}()

		verifier := identity.New()

		manager := tasks.NewManager()
		manager.Register(rbac.RepairTaskName, cfg.Repair.Interval, rbac.RepairTask(repairable))

		tokenService := service.NewTokenService(verifier, store, signers, policies, auditor)
		srv := api.NewServer(tokenService, store, manager, auditor)

		server := &http.Server{
			Addr:    addr,
			Handler: srv.Routes(cfg.AdminSigningKey()),
		}

		go func() {
			log.Info().Msgf("Starting server on %s...", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Server crashed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("Server exited")
		return nil
	},
}

// mirrorRepairer matches the store side the repair sweep needs.
type mirrorRepairer interface {
	RepairMirrors(ctx context.Context) (int, error)
}

func buildStore(cfg *config.Config) (core.RBACStore, mirrorRepairer, error) {
	switch cfg.Store.Type {
	case "memory":
		store := rbac.NewMemoryStore()
		return store, store, nil
	case "dynamodb":
		conf, err := cfg.Store.DynamoConfig()
		if err != nil {
			return nil, nil, err
		}
		store, err := rbac.NewDynamoStore(conf)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}
}

func buildAuditor(cfg *config.Config) (core.Auditor, error) {
	if !cfg.Audit.Enabled {
		return audit.NewNoopAuditor(), nil
	}
	switch cfg.Audit.Type {
	case "file":
		return audit.NewFileAuditor(cfg.Audit.Path)
	case "memory", "":
		return audit.NewInMemoryAuditor(), nil
	default:
		return nil, fmt.Errorf("unknown audit type %q", cfg.Audit.Type)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "address to listen on")
	f.bindConfigFlag(serveCmd.Flags())
	_ = serveCmd.MarkFlagRequired("config")
}
