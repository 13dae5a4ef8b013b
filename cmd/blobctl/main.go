// ABOUTME: Entry point for blobctl, a development stand-in for the player process
// ABOUTME: Listens for the bridge, logs in, and plays relayed audio through the speakers
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spotblob/spotblob/internal/logging"
	"github.com/spotblob/spotblob/internal/ui"
	"github.com/spotblob/spotblob/internal/version"
	"github.com/spotblob/spotblob/pkg/audio/output"
)

const defaultTUILog = "blobctl.log"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:          "blobctl",
		Short:        "Drive a spotifyblob bridge from the command line",
		Version:      version.Version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.AddCommand(newListenCmd(&logLevel))
	return root
}

func newListenCmd(logLevel *string) *cobra.Command {
	var opts listenOptions
	var volume int
	var useTUI bool
	var logFile string

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Wait for the bridge on a control port and play a track",
		Long: "listen accepts the bridge's control connection, logs in, and optionally " +
			"searches and plays a track URI. Every message from the bridge is logged.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.user == "" && opts.password != "" {
				return fmt.Errorf("--password needs --user")
			}
			logCfg := logging.Config{Level: *logLevel, File: logFile}
			if useTUI {
				// the TUI owns the terminal
				logCfg.FileOnly = true
				if logCfg.File == "" {
					logCfg.File = defaultTUILog
				}
			}
			log, err := logging.New(logCfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			out := output.NewOto(log)
			out.SetVolume(volume)
			defer out.Close()

			log.Info("blobctl starting", zap.String("version", version.Version))
			if !useTUI {
				return runListen(cmd.Context(), opts, log, out)
			}
			return runWithTUI(cmd.Context(), opts, volume, log, out)
		},
	}
	cmd.Flags().IntVar(&opts.port, "port", 0, "control port the bridge connects to")
	cmd.Flags().IntVar(&opts.mediaPort, "media-port", 0, "port for the audio connection (0 picks one)")
	cmd.Flags().StringVar(&opts.user, "user", "", "username; empty relogs in with stored credentials")
	cmd.Flags().StringVar(&opts.password, "password", "", "password")
	cmd.Flags().StringVar(&opts.play, "play", "", "track URI to play")
	cmd.Flags().StringVar(&opts.search, "search", "", "search query to run after login")
	cmd.Flags().IntVar(&volume, "volume", 100, "playback volume 0-100")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "show a status screen instead of logging to the terminal")
	cmd.Flags().StringVar(&logFile, "log-file", "", "also log to this file; the only sink with --tui (default "+defaultTUILog+")")
	_ = cmd.MarkFlagRequired("port")
	return cmd
}

// runWithTUI runs the listen session behind the status screen. Quitting
// the screen ends the session; the screen stays up after the session
// ends until the user quits.
func runWithTUI(ctx context.Context, opts listenOptions, volume int, log *zap.Logger, out *output.Oto) error {
	controls := ui.NewControls()
	prog := ui.NewProgram(controls, volume)
	opts.status = func(m ui.StatusMsg) { prog.Send(m) }
	opts.pause = controls.Pause

	stop := context.AfterFunc(ctx, prog.Quit)
	defer stop()

	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		defer cancel()
		_, err := prog.Run()
		return err
	})
	g.Go(func() error {
		for {
			select {
			case <-listenCtx.Done():
				return nil
			case <-controls.Quit:
				return nil
			case v := <-controls.Volume:
				log.Debug("volume change", zap.Int("volume", v.Volume), zap.Bool("muted", v.Muted))
				out.SetVolume(v.Volume)
				out.SetMuted(v.Muted)
			}
		}
	})
	g.Go(func() error {
		err := runListen(listenCtx, opts, log, out)
		if err != nil {
			opts.report(ui.StatusMsg{Error: err.Error()})
		}
		return err
	})
	return g.Wait()
}
