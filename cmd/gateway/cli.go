package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/frontgw/internal/config"
	"github.com/vyrodovalexey/frontgw/internal/observability"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath            string
	address               string
	port                  int
	ipv4Only              bool
	ipv6Only              bool
	hsts                  string
	robotsDisableIndexing bool
	logLevel              string
	logFormat             string
	showVersion           bool
}

// runFunc serves the gateway with a resolved configuration.
type runFunc func(ctx context.Context, cfg *config.Config) error

// newRootCommand builds the frontgw command. lookup reads the environment
// and run is called with the resolved configuration.
func newRootCommand(lookup lookupFunc, run runFunc) *cobra.Command {
	flags := &cliFlags{}

	cmd := &cobra.Command{
		Use:   "frontgw",
		Short: "Read-only media gateway",
		Long: `frontgw serves embedded static assets and proxies media from a fixed set
of upstream content hosts. Upstream calls that need it carry an OAuth
bearer token refreshed in the background.

Settings come from built-in defaults, an optional YAML file and then
environment variables and flags, each overriding the previous.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.showVersion {
				printVersion(cmd.OutOrStdout())
				return nil
			}

			cfg, err := resolveConfig(cmd, flags, lookup)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	f := cmd.Flags()
	f.StringVarP(&flags.configPath, "config", "c", "", "Path to the YAML configuration file")
	f.StringVarP(&flags.address, "address", "a", config.DefaultAddress, "Address to listen on")
	f.IntVarP(&flags.port, "port", "p", config.DefaultPort, "Port to listen on")
	f.BoolVarP(&flags.ipv4Only, "ipv4-only", "4", false, "Listen on IPv4 only")
	f.BoolVarP(&flags.ipv6Only, "ipv6-only", "6", false, "Listen on IPv6 only")
	f.StringVarP(&flags.hsts, "hsts", "H", config.DefaultHSTSMaxAge,
		"Strict-Transport-Security max-age in seconds (empty disables the header)")
	f.BoolVar(&flags.robotsDisableIndexing, "robots-disable-indexing", false, "Disallow all crawlers in robots.txt")
	f.StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	f.StringVar(&flags.logFormat, "log-format", "json", "Log format (json, console)")
	f.BoolVarP(&flags.showVersion, "version", "V", false, "Show version information")
	cmd.MarkFlagsMutuallyExclusive("ipv4-only", "ipv6-only")

	return cmd
}

// resolveConfig layers the YAML file, the environment and the flags over
// the defaults and validates the result.
func resolveConfig(cmd *cobra.Command, flags *cliFlags, lookup lookupFunc) (*config.Config, error) {
	changed := cmd.Flags().Changed

	path := flags.configPath
	if !changed("config") {
		path = lookup.getEnvOrDefault(envConfig, "")
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := applyOverrides(cfg, flags, changed, lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverrides copies explicitly set flags, or else present environment
// variables, onto cfg.
func applyOverrides(cfg *config.Config, flags *cliFlags, changed func(string) bool, lookup lookupFunc) error {
	s := &cfg.Server

	switch {
	case changed("address"):
		s.Address = flags.address
	case lookup.isSet(envAddress):
		s.Address = lookup.getEnvOrDefault(envAddress, s.Address)
	}

	switch {
	case changed("port"):
		s.Port = flags.port
	case lookup.isSet(envPort):
		raw, _ := lookup(envPort)
		port, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", envPort, raw, err)
		}
		s.Port = port
	}

	switch {
	case changed("ipv4-only"):
		s.IPv4Only = flags.ipv4Only
	case lookup.isSet(envIPv4Only):
		s.IPv4Only = true
	}

	switch {
	case changed("ipv6-only"):
		s.IPv6Only = flags.ipv6Only
	case lookup.isSet(envIPv6Only):
		s.IPv6Only = true
	}

	switch {
	case changed("hsts"):
		s.HSTSMaxAge = flags.hsts
	case lookup.isSet(envHSTS):
		s.HSTSMaxAge, _ = lookup(envHSTS)
	}

	switch {
	case changed("robots-disable-indexing"):
		s.RobotsDisableIndexing = flags.robotsDisableIndexing
	case lookup.isOn(envRobotsDisableIndexing):
		s.RobotsDisableIndexing = true
	}

	switch {
	case changed("log-level"):
		cfg.Logging.Level = flags.logLevel
	case lookup.isSet(envLogLevel):
		cfg.Logging.Level = lookup.getEnvOrDefault(envLogLevel, cfg.Logging.Level)
	}

	switch {
	case changed("log-format"):
		cfg.Logging.Format = flags.logFormat
	case lookup.isSet(envLogFormat):
		cfg.Logging.Format = lookup.getEnvOrDefault(envLogFormat, cfg.Logging.Format)
	}

	return nil
}

// runGateway builds the application and serves until ctx is cancelled.
func runGateway(ctx context.Context, cfg *config.Config) error {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting frontgw",
		observability.String("version", version),
		observability.String("commit", gitCommit),
	)

	app, err := newApplication(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize gateway", observability.Error(err))
		return err
	}

	return app.run(ctx)
}
