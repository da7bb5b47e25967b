package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hnrobert/vanconnect/internal/auth"
	"github.com/hnrobert/vanconnect/internal/config"
	"github.com/hnrobert/vanconnect/internal/dataservice"
	"github.com/hnrobert/vanconnect/internal/logger"
	"github.com/hnrobert/vanconnect/internal/mockapi"
	"github.com/hnrobert/vanconnect/internal/server"
	"github.com/hnrobert/vanconnect/internal/tabstore"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vanconnectd",
		Short: "VanConnect web front end",
		// Running without a subcommand serves the front end.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file (defaults and VANCONNECT_* env apply without it)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the VanConnect pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "mockapi",
		Short: "Serve a development data service backed by a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMockAPI(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vanconnectd %s (%s)\n", version, commit)
		},
	})
	return root
}

// setup loads configuration and starts logging. The returned context is
// cancelled on SIGINT or SIGTERM.
func setup(parent context.Context) (*config.Config, context.Context, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.LogDir != "" {
		if err := logger.Init(cfg.LogDir); err != nil {
			return nil, nil, nil, fmt.Errorf("init logger: %w", err)
		}
	}
	logger.SetDebug(cfg.Debug)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	cleanup := func() {
		stop()
		logger.Close()
	}
	return cfg, ctx, cleanup, nil
}

func runServe(parent context.Context) error {
	cfg, ctx, cleanup, err := setup(parent)
	if err != nil {
		return err
	}
	defer cleanup()

	tabs, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer tabs.Close()

	settings := config.NewStore(cfg.SettingsPath)
	if err := settings.Ensure(); err != nil {
		logger.Warn("settings store %s: %v", cfg.SettingsPath, err)
	}

	app, err := server.NewApp(server.Options{
		Routes:   cfg.Routes,
		API:      dataservice.NewClient(cfg.DataService.BaseURL, cfg.DataService.Timeout),
		Tabs:     tabs,
		Settings: settings,
	})
	if err != nil {
		return err
	}

	logger.Info("vanconnectd %s: data service %s, %s session backend", version, cfg.DataService.BaseURL, cfg.Session.Backend)
	return server.New(server.Config{ListenAddr: cfg.Listen}, app.Handler()).Run(ctx)
}

func openBackend(ctx context.Context, cfg *config.Config) (tabstore.Backend, error) {
	sc := cfg.Session
	switch sc.Backend {
	case config.BackendRedis:
		rdb, err := tabstore.DialRedis(ctx, sc.RedisURL)
		if err != nil {
			return nil, err
		}
		return tabstore.NewRedisBackend(rdb, sc.CookieName, sc.SecureCookie, sc.IdleTTL), nil
	case config.BackendMemory:
		logger.Warn("memory session backend: sessions are lost on restart")
		return tabstore.NewMemoryBackend(sc.CookieName, sc.SecureCookie), nil
	default:
		secret := sc.Secret
		if secret == "" {
			s, err := auth.NewRandomSecretB64(32)
			if err != nil {
				return nil, err
			}
			secret = s
			logger.Warn("session.secret not set; generated an ephemeral one, sessions end on restart")
		}
		return tabstore.NewCookieBackend(sc.CookieName, auth.DecodeSecret(secret), sc.SecureCookie, sc.IdleTTL), nil
	}
}

func runMockAPI(parent context.Context) error {
	cfg, ctx, cleanup, err := setup(parent)
	if err != nil {
		return err
	}
	defer cleanup()

	db := mockapi.NewDB(cfg.MockAPI.DBPath)
	if err := db.Ensure(); err != nil {
		return fmt.Errorf("mock db %s: %w", cfg.MockAPI.DBPath, err)
	}
	logger.Info("Mock data service using %s", cfg.MockAPI.DBPath)
	return server.New(server.Config{ListenAddr: cfg.MockAPI.Listen}, mockapi.New(db).Routes()).Run(ctx)
}
