package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"NewsCollector/internal/app"
	"NewsCollector/internal/config"
	"NewsCollector/internal/logging"
)

// Process roles.
const (
	roleAll       = "all"
	roleCollector = "collector"
	rolePublisher = "publisher"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "newscollector",
		Short:         "Incremental news harvester and Telegram republisher",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $NEWS_COLLECTOR_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(newServeCommand(opts), newMigrateCommand(opts))
	return root
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the collector and/or publisher cycles with the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if err := applyRole(&cfg, role); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logging.New(cfg.Logging.Level)
			logger.Info("starting", "role", role, "driver", cfg.Database.Driver, "addr", cfg.HTTP.Addr)

			application, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			return application.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&role, "role", roleAll, "process role: all, collector or publisher")
	return cmd
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if err := app.Migrate(cmd.Context(), cfg); err != nil {
				return err
			}
			logging.New(cfg.Logging.Level).Info("schema is up to date")
			return nil
		},
	}
}

func (o *rootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}

// applyRole narrows the enabled cycles. The all role keeps the configured flags.
func applyRole(cfg *config.Config, role string) error {
	switch role {
	case roleAll:
	case roleCollector:
		cfg.Collector.Enabled = true
		cfg.Publisher.Enabled = false
	case rolePublisher:
		cfg.Collector.Enabled = false
		cfg.Publisher.Enabled = true
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	return nil
}
