package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"statusmon/pkg/api"
	"statusmon/pkg/config"
	"statusmon/pkg/log"
	"statusmon/pkg/server"
	"statusmon/pkg/status"
	"statusmon/pkg/ui"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.1.0"

func main() {
	// Initialize logger first
	_ = log.Logger

	if err := newRootCommand(viper.New()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand builds the CLI. Flags and STATUSMON_* variables are bound to v.
func newRootCommand(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "statusmon",
		Short: "Backend status monitor with offline banner and toast notifications",
		Long: `statusmon polls a backend health endpoint, keeps track of whether the
backend is reachable and serves a page that shows an offline banner and
toast notifications. API calls made through /api/proxy fail fast while
the backend is offline.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	flags := rootCmd.Flags()
	flags.String("config", "statusmon.yaml", "Path to configuration file (YAML)")
	flags.String("base-url", "", "Backend base URL (e.g., http://localhost:8000)")
	flags.String("addr", "", "Listen address")
	flags.Duration("interval", 0, "Interval between health checks")
	flags.String("page", "", "HTML page to serve instead of the built-in one")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-file", "", "Append JSON logs to this file instead of the console")
	flags.Bool("debug", false, "Enable debug logging")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("STATUSMON")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return rootCmd
}

// loadConfig reads the YAML file and applies flag and environment overrides.
func loadConfig(v *viper.Viper) (config.Config, error) {
	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return config.Config{}, err
	}

	if value := v.GetString("base-url"); value != "" {
		cfg.BaseURL = value
	}
	if value := v.GetString("addr"); value != "" {
		cfg.ListenAddr = value
	}
	if value := v.GetDuration("interval"); value > 0 {
		cfg.CheckInterval = value
	}
	if value := v.GetString("page"); value != "" {
		cfg.PagePath = value
	}
	if value := v.GetString("log-level"); value != "" {
		cfg.LogLevel = value
	}
	if value := v.GetString("log-file"); value != "" {
		cfg.LogFile = value
	}
	if v.GetBool("debug") {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Normalize(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// setupLogging applies the log level and, when a log file is configured,
// redirects output to it. The returned closer releases the file.
func setupLogging(cfg config.Config) (io.Closer, error) {
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if cfg.LogFile == "" {
		return io.NopCloser(nil), nil
	}

	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(file)
	return file, nil
}

func run(cfg config.Config) error {
	logFile, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()

	page := ui.DefaultPage()
	if cfg.PagePath != "" {
		loaded, err := ui.LoadPage(cfg.PagePath)
		if err != nil {
			return err
		}
		page = loaded
	}

	log.Info().
		Str("backend", cfg.BaseURL).
		Str("health_path", cfg.HealthPath).
		Dur("interval", cfg.CheckInterval).
		Dur("probe_timeout", cfg.ProbeTimeout).
		Dur("request_timeout", cfg.RequestTimeout).
		Msg("Configured backend")

	flag := status.NewFlag()
	client := api.NewClient(api.Config{
		BaseURL:        cfg.BaseURL,
		HealthPath:     cfg.HealthPath,
		ProbeTimeout:   cfg.ProbeTimeout,
		RequestTimeout: cfg.RequestTimeout,
	}, flag)

	banner := ui.NewBanner(page, ui.BannerOptions{
		Title:     cfg.Banner.Title,
		Message:   cfg.Banner.Message,
		ShowDelay: cfg.Banner.ShowDelay,
		HideDelay: cfg.Banner.HideDelay,
	})
	notifier := ui.NewNotifier(page, ui.ToastOptions{
		ShowDelay: cfg.Toast.ShowDelay,
		HideDelay: cfg.Toast.HideDelay,
	})

	monitor := status.NewMonitor(client, flag, banner)
	srv := server.NewStatusServer(monitor, client, page, notifier, cfg.CheckInterval)
	return srv.Start(cfg.ListenAddr)
}
