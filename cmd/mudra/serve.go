package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/event"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/tray"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start detection and the dashboard",
	Long: `Open the camera, run detection and serve the dashboard.

With --tray a system tray menu is shown as well. Quit from the tray or
press Ctrl-C to stop.`,
	RunE: runServe,
}

var withTray bool

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&withTray, "tray", false, "show a system tray menu")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, st, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithContext(ctx, logger)

	a, err := app.Assemble(cfg, st, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		logger.Info("serving dashboard", zap.String("dir", staticDir))
	}

	srv := server.New(server.Config{
		Controller:        a,
		Frames:            a,
		Store:             st,
		Plugins:           a.Plugins(),
		Dispatches:        a.History(),
		StaticDir:         staticDir,
		BroadcastInterval: cfg.Server.BroadcastInterval,
		Logger:            logger.Named("http"),
	})

	if !withTray {
		return srv.ListenAndServe(ctx, cfg.Server.Addr)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx, cfg.Server.Addr)
	}()
	runTray(ctx, a, cfg, logger)
	stop()
	return <-errCh
}

// runTray blocks on the tray event loop until Quit or ctx is cancelled.
func runTray(ctx context.Context, a *app.App, cfg *config.Config, logger *zap.Logger) {
	t := tray.New(a.IsEnabled())
	t.OnToggle(func(enabled bool) {
		if err := a.SetEnabled(enabled); err != nil {
			logger.Warn("save toggle", zap.Error(err))
		}
	})
	t.OnReset(func() {
		if err := a.ResetChannel(event.Blink); err != nil {
			logger.Warn("reset blink", zap.Error(err))
		}
	})
	t.OnDashboard(func() {
		openBrowser(dashboardURL(cfg.Server.Addr), logger)
	})

	go t.Follow(ctx, time.Second, func() string {
		if last := a.Snapshot().LastAction; last != nil {
			return last.Label
		}
		return ""
	})
	go func() {
		<-ctx.Done()
		t.Stop()
	}()

	t.Run()
}

func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string, logger *zap.Logger) {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", url)
	case "windows":
		c = exec.Command("cmd", "/c", "start", url)
	default:
		c = exec.Command("xdg-open", url)
	}
	if err := c.Start(); err != nil {
		logger.Warn("open browser", zap.String("url", url), zap.Error(err))
	}
}

// findWebDir searches for the dashboard in common locations.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeWebDir := filepath.Join(config.HomeDir(), "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}
