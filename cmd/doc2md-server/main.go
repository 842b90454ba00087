// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for doc2md-server, which accepts document
// uploads on POST /api/convert and replies with their Markdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/doc2md/internal/config"
	"github.com/pdiddy/doc2md/internal/convert"
	"github.com/pdiddy/doc2md/internal/logging"
	"github.com/pdiddy/doc2md/internal/secrets"
	"github.com/pdiddy/doc2md/internal/server"
	"github.com/pdiddy/doc2md/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const defaultLogLevel = "info"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(viper.New()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "doc2md-server:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:   "doc2md-server",
		Short: "Serve document to Markdown conversion over HTTP",
		Long: `doc2md-server accepts a multipart upload (field "file") on POST /api/convert
and replies with {"markdown": "..."}, or {"error": "..."} with a 4xx/5xx status.
GET /healthz reports the configured backend.

Settings come from doc2md.yaml, DOC2MD_* environment variables and a .env file
in the working directory.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("loading .env: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			return runServer(cmd.Context(), v, cfgFile)
		},
	}

	root.PersistentFlags().String("config", "", "config file (default: ./doc2md.yaml or ~/.config/doc2md/doc2md.yaml)")
	root.Flags().String("addr", config.DefaultAddr, "listen address")
	root.Flags().String("backend", string(types.BackendNative), "conversion backend: native, markitdown, markitdown-cli, or service")
	_ = v.BindPFlag("server.addr", root.Flags().Lookup("addr"))
	_ = v.BindPFlag("backend", root.Flags().Lookup("backend"))

	root.AddCommand(newConfigCmd(v))
	return root
}

// newConfigCmd prints the effective configuration as YAML.
func newConfigCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			return writeConfig(cmd.OutOrStdout(), redact(cfg))
		},
	}
}

func writeConfig(w io.Writer, cfg types.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

// redact hides tokens from printed configuration.
func redact(cfg types.Config) types.Config {
	if cfg.Service.Token != "" {
		cfg.Service.Token = "<redacted>"
	}
	if cfg.Server.Token != "" {
		cfg.Server.Token = "<redacted>"
	}
	return cfg
}

func runServer(ctx context.Context, v *viper.Viper, cfgFile string) error {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if used := v.ConfigFileUsed(); used != "" {
		log.Info("using config file", zap.String("path", used))
	}

	s, err := secrets.Load(cfg.SecretsDir, func(name string, err error) {
		log.Warn("skipping unreadable secret", zap.String("name", name), zap.Error(err))
	})
	if err != nil {
		return err
	}
	if keys := s.Keys(); len(keys) > 0 {
		log.Info("loaded secrets", zap.Strings("keys", keys))
	}

	conv, closeConv, err := convert.Build(ctx, cfg, convert.WithLogger(log), convert.WithSecrets(s))
	if err != nil {
		return err
	}
	defer func() {
		if err := closeConv(); err != nil {
			log.Warn("closing converter", zap.Error(err))
		}
	}()

	token := s.Or(cfg.Server.Token, secrets.ServerToken)
	if token == "" {
		log.Warn("no server token configured; /api is unauthenticated")
	}

	gin.SetMode(gin.ReleaseMode)
	return server.New(conv, cfg, token, log, version).Run(ctx)
}
