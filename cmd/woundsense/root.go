package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zatekoja/woundsense/backend/internal/infrastructure/observability"
	"github.com/zatekoja/woundsense/backend/pkg/config"
	"github.com/zatekoja/woundsense/backend/pkg/secrets"
)

// session holds what every command needs once configuration is loaded.
type session struct {
	cfg     *config.Config
	closers []func(context.Context) error
}

func (s *session) onClose(fn func(context.Context) error) {
	s.closers = append(s.closers, fn)
}

func (s *session) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// run wraps a command body so resources opened for it are released even
// when it fails.
func (s *session) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if cerr := s.close(); cerr != nil {
			log.Warn().Err(cerr).Msg("failed to release resources")
		}
		return err
	}
}

func newRootCmd() *cobra.Command {
	s := &session{}

	root := &cobra.Command{
		Use:           "woundsense",
		Short:         "Wound assessment pipeline",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.open(cmd.Context())
		},
	}

	root.AddCommand(
		newAssessCmd(s),
		newBatchCmd(s),
		newHistoryCmd(s),
		newStatsCmd(s),
		newSectionsCmd(),
		newWatchCmd(s),
	)
	return root
}

// open loads secrets and configuration, then starts logging and telemetry.
func (s *session) open(ctx context.Context) error {
	vaultResult, vaultErr := secrets.ApplyVaultSecrets(ctx, secrets.LoadVaultConfigFromEnv())

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	s.cfg = cfg
	observability.InitLogger(cfg.App.ServiceName, cfg.App.Env)

	if vaultErr != nil {
		log.Warn().Err(vaultErr).Msg("failed to load secrets from Vault")
	} else if vaultResult.Enabled {
		log.Info().Str("path", vaultResult.Path).Int("loaded", vaultResult.Loaded).Int("skipped", vaultResult.Skipped).Msg("loaded secrets from Vault")
	}

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			s.onClose(shutdown)
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
