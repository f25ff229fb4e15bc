// Package main provides sauce-cli, a command-line front end to the same
// sources the server uses.
//
//	sauce-cli check https://example.com/cat.png --source saucenao --source iqdb
//	sauce-cli sources
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleveque/sauce-service/internal/config"
	"github.com/fleveque/sauce-service/internal/model"
	"github.com/fleveque/sauce-service/internal/service"
	"github.com/fleveque/sauce-service/internal/source"
	"github.com/fleveque/sauce-service/internal/webclient"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	verbose    bool
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:          "sauce-cli",
		Short:        "Reverse image search from the command line",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", os.Getenv("SAUCE_CONFIG_PATH"), "Path to config file")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log source activity to stderr")

	root.AddCommand(checkCmd(flags), sourcesCmd(flags))
	return root
}

func checkCmd(flags *globalFlags) *cobra.Command {
	var (
		names  []string
		asJSON bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "check <image-url>",
		Short: "Search every enabled source (or --source) for an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, flags, args[0], names, asJSON, limit)
		},
	}

	cmd.Flags().StringSliceVarP(&names, "source", "s", nil, "Source to query; repeatable (default: all enabled)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")
	cmd.Flags().IntVar(&limit, "limit", 5, "Matches shown per source; 0 shows all")
	return cmd
}

func runCheck(cmd *cobra.Command, flags *globalFlags, rawURL string, names []string, asJSON bool, limit int) error {
	cfg, logger, err := setup(flags)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// Explicit --source values may name sources that are not enabled in config.
	enabled := cfg.Sources.Enabled
	if len(names) > 0 {
		enabled = names
	}

	client := webclient.NewNetHTTPClient(webclient.Config{
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
	}, nil, logger)

	sources, err := source.NewAll(enabled, cfg.Sources, source.Deps{
		Client:        client,
		Logger:        logger,
		SearchTimeout: cfg.Sources.SearchTimeout,
	})
	if err != nil {
		return err
	}

	svc := service.NewSearchService(sources, nil, nil, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := svc.Search(ctx, rawURL, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
	} else {
		newPrinter(out, limit).report(report)
	}

	if !lo.SomeBy(report.Results, func(r model.SourceResult) bool { return r.OK() }) {
		return errors.New("every source failed")
	}
	return nil
}

func sourcesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List known sources and whether they are enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			newPrinter(cmd.OutOrStdout(), 0).sources(source.Names(), cfg.Sources)
			return nil
		},
	}
}

// setup loads config and builds a console logger. Logs go to stderr at warn
// level unless --verbose is set.
func setup(flags *globalFlags) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	zcfg := zap.NewDevelopmentConfig()
	if !flags.verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	return cfg, logger, nil
}
