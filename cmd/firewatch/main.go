// Command firewatch polls a camera, raises fire alerts and serves the dashboard API.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"firewatch/internal/app"
	"firewatch/internal/config"
	"firewatch/internal/logger"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newCLI(watch).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "firewatch: %v\n", err)
		os.Exit(1)
	}
}

func newCLI(action cli.ActionFunc) *cli.App {
	return &cli.App{
		Name:            "firewatch",
		Usage:           "household fire detection from a camera feed",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "once", Usage: "process a single frame and exit"},
			&cli.StringFlag{Name: "interval", Usage: "time between frames, \"2s\" or seconds like \"2.0\" (overrides DETECTION_INTERVAL)"},
			&cli.StringFlag{Name: "camera-url", Usage: "camera capture `URL` (overrides CAMERA_URL)"},
			&cli.IntFlag{Name: "port", Usage: "dashboard port (overrides PORT)"},
			&cli.BoolFlag{Name: "mock", Usage: "fake verdicts instead of analysing frames"},
		},
		Action: action,
	}
}

// applyFlags overrides cfg with the flags given on the command line.
func applyFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("interval") {
		interval, err := config.ParseDuration(c.String("interval"))
		if err != nil {
			return fmt.Errorf("--interval: %w", err)
		}
		if interval <= 0 {
			return fmt.Errorf("--interval must be positive, got %s", interval)
		}
		cfg.Interval = interval
	}
	if c.IsSet("camera-url") {
		cfg.CameraURL = c.String("camera-url")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.Bool("mock") {
		cfg.Mock = true
	}
	return nil
}

func watch(c *cli.Context) error {
	cfg := config.Load()
	if err := applyFlags(c, cfg); err != nil {
		return err
	}

	log := logger.NewLogger(cfg)
	defer log.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to start: %v", err)
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Error("Error during shutdown: %v", err)
		}
	}()

	if c.Bool("once") {
		detected, err := application.RunOnce(ctx)
		if err != nil {
			return err
		}
		log.Info("Single frame processed, fire detected: %v", detected)
		return nil
	}

	return application.Run(ctx)
}
