// ABOUTME: Entry point for the spotifyblob playback bridge
// ABOUTME: Connects to the player's control port and serves it until the connection closes
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spotblob/spotblob/internal/artwork"
	"github.com/spotblob/spotblob/internal/bridge"
	"github.com/spotblob/spotblob/internal/config"
	"github.com/spotblob/spotblob/internal/logging"
	"github.com/spotblob/spotblob/internal/media"
	"github.com/spotblob/spotblob/internal/sdk"
	"github.com/spotblob/spotblob/internal/sdk/localsdk"
	"github.com/spotblob/spotblob/internal/version"
	"github.com/spotblob/spotblob/pkg/protocol"
)

const (
	controlHost  = "127.0.0.1"
	loadDelay    = 50 * time.Millisecond
	artworkLimit = 10 * time.Second
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, logLevel string

	cmd := &cobra.Command{
		Use:          "spotifyblob <port>",
		Short:        "Bridge a local player process to the streaming SDK",
		Long:         "spotifyblob connects to 127.0.0.1:<port>, serves the player's control requests, and exits when that connection closes.",
		Args:         cobra.ExactArgs(1),
		Version:      version.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := parsePort(args[0])
			if err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return run(cmd.Context(), cfg, port)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/spotifyblob/config.toml)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	return cmd
}

// parsePort validates the control port argument
func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return port, nil
}

func run(ctx context.Context, cfg config.Config, port int) error {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting",
		zap.String("version", version.Version),
		zap.Int("port", port),
		zap.String("cache_dir", cfg.CacheDir),
		zap.String("catalog", cfg.Catalog))

	fetcher, err := artwork.New(filepath.Join(cfg.CacheDir, "artwork"), &http.Client{Timeout: artworkLimit}, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ch, err := protocol.Dial(ctx, net.JoinHostPort(controlHost, strconv.Itoa(port)), log)
	if err != nil {
		log.Error("control connection failed", zap.Error(err))
		return err
	}
	defer ch.Close()

	ctrl := bridge.New(bridge.Config{
		NewSession: localsdk.NewFactory(localsdk.Options{
			Catalog:   cfg.Catalog,
			LoadDelay: loadDelay,
			Watch:     true,
			Artwork:   fetcher,
			Logger:    log,
		}),
		Session: sdk.Config{
			CacheLocation:    cfg.CacheDir,
			SettingsLocation: cfg.SettingsDir,
			UserAgent:        version.UserAgent(),
		},
		Media: media.Config{
			Host:          cfg.Media.Host,
			MaxQueueBytes: cfg.Media.MaxQueueBytes,
			MinPercent:    cfg.Media.MinPercent,
			DialTimeout:   cfg.Media.DialTimeout,
		},
		Logger: log,
	}, ch)

	if err := ctrl.Run(ctx); err != nil {
		log.Error("bridge stopped", zap.Error(err))
		return err
	}
	log.Info("bridge stopped")
	return nil
}
