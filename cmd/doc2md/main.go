// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the doc2md CLI. It converts one
// document to Markdown and prints {"markdown": ...} on stdout, or
// {"error": ...} on stderr with exit status 1.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/doc2md/internal/config"
	"github.com/pdiddy/doc2md/internal/convert"
	"github.com/pdiddy/doc2md/internal/emit"
	"github.com/pdiddy/doc2md/internal/logging"
	"github.com/pdiddy/doc2md/internal/secrets"
	"github.com/pdiddy/doc2md/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI and returns the process exit status. Every failure,
// including flag errors, is reported as a JSON error on stderr.
func execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(viper.New())
	cmd.SetArgs(pathArgs(args))
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		_ = emit.Error(stderr, err)
		return 1
	}
	return 0
}

// pathArgs treats a lone argument that starts with a dash as the input path
// when it names an existing file, so "doc2md -notes.txt" converts the file.
func pathArgs(args []string) []string {
	if len(args) != 1 || !strings.HasPrefix(args[0], "-") || args[0] == "--" {
		return args
	}
	if _, err := os.Stat(args[0]); err != nil {
		return args
	}
	return []string{"--", args[0]}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc2md <path>",
		Short: "Convert a document to Markdown",
		Long: `doc2md converts a single document (text, HTML, CSV, PDF, DOCX, ...) to
Markdown and prints it as {"markdown": "..."} on stdout.

On failure it prints {"error": "..."} on stderr and exits with status 1.
The conversion backend is chosen by configuration: the built-in native
converter, the markitdown container image, a local markitdown binary, or a
remote doc2md-server.

Use "doc2md -- <path>" to pass a path that starts with a dash alongside flags.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			return runConvert(cmd, v, cfgFile, args)
		},
	}
	cmd.SetVersionTemplate("doc2md {{.Version}}\n")

	cmd.Flags().String("config", "", "config file (default: ./doc2md.yaml or ~/.config/doc2md/doc2md.yaml)")
	cmd.Flags().String("backend", string(types.BackendNative), "conversion backend: native, markitdown, markitdown-cli, or service")
	_ = v.BindPFlag("backend", cmd.Flags().Lookup("backend"))

	return cmd
}

func runConvert(cmd *cobra.Command, v *viper.Viper, cfgFile string, args []string) error {
	switch len(args) {
	case 0:
		return &convert.Error{Err: convert.ErrNoInput}
	case 1:
	default:
		return fmt.Errorf("expected exactly one input file, got %d (usage: doc2md <path>)", len(args))
	}
	path := args[0]

	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if used := v.ConfigFileUsed(); used != "" {
		log.Debug("using config file", zap.String("path", used))
	}

	opts := []convert.Option{convert.WithLogger(log)}
	if cfg.Backend == types.BackendService {
		s, err := secrets.Load(cfg.SecretsDir, func(name string, err error) {
			log.Warn("skipping unreadable secret", zap.String("name", name), zap.Error(err))
		})
		if err != nil {
			return err
		}
		opts = append(opts, convert.WithSecrets(s))
	}

	conv, closeConv, err := convert.Build(cmd.Context(), cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeConv(); err != nil {
			log.Warn("closing converter", zap.Error(err))
		}
	}()

	log.Debug("converting", zap.String("path", path), zap.String("backend", string(cfg.Backend)))
	res, err := conv.Convert(cmd.Context(), path)
	if err != nil {
		return err
	}
	return emit.Markdown(cmd.OutOrStdout(), res.Markdown)
}
