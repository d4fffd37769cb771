package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"firewatch/internal/config"
	"firewatch/internal/logger"
	"firewatch/internal/repository"
	"firewatch/internal/repository/postgres"
	"firewatch/internal/repository/sqlite"
	"firewatch/internal/route"
	"firewatch/internal/service"
	"firewatch/internal/service/ai"
	"firewatch/internal/service/capture"
	"firewatch/internal/service/fire"
	"firewatch/internal/service/notify"
	"firewatch/internal/service/sensor"
	"firewatch/internal/service/storage"
	"firewatch/internal/service/websocket"

	"go.uber.org/multierr"
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	detector   *ai.DetectorService
	estimator  *fire.Estimator
	udpSource  *capture.UDPSource
	localStore *storage.LocalStore
	eventRepo  repository.EventRepository
	hubService *websocket.HubService
	watcher    *service.Watcher
	ingestor   *sensor.Ingestor
	poller     *sensor.Poller
	closers    []io.Closer
}

// NewApp builds every component from cfg. Optional integrations (model, cloud
// bucket, postgres, telegram) are chosen from the configuration.
func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{config: cfg, logger: log}

	var detector fire.ObjectDetector
	if !cfg.Mock {
		a.detector = ai.NewDetectorService(cfg, log)
		a.closers = append(a.closers, a.detector)
		detector = a.detector
	}
	a.estimator = fire.NewEstimator(fire.OptionsFromConfig(cfg), detector, log)
	log.Info("Fire estimator mode: %s", a.estimator.Mode())

	source, err := a.newSource()
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := a.newStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := a.newEventRepository(ctx); err != nil {
		a.Close()
		return nil, err
	}

	notifier, err := a.newNotifier()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.hubService = websocket.NewHubService(log)
	eventLog := repository.NewEventLog(a.eventRepo)
	a.watcher = service.NewWatcher(cfg, source, a.estimator, store, eventLog, notifier, a.hubService, log)

	var checker sensor.FrameChecker
	if cfg.SensorCameraConfirm {
		checker = a.watcher
	}
	a.ingestor = sensor.NewIngestor(sensor.ThresholdsFromConfig(cfg), cfg.SensorNodeID,
		eventLog, notifier, checker, a.hubService, log)
	if cfg.SensorURL != "" {
		a.poller = sensor.NewPoller(cfg.SensorURL, cfg.SensorPollInterval, cfg.CaptureTimeout, a.ingestor, log)
	}

	return a, nil
}

func (a *App) newSource() (service.ImageSource, error) {
	if a.config.CameraUDPAddr != "" {
		src, err := capture.NewUDPSource(a.config.CameraUDPAddr, a.config.CaptureTimeout, a.logger)
		if err != nil {
			return nil, err
		}
		a.udpSource = src
		a.closers = append(a.closers, src)
		return src, nil
	}

	a.logger.Info("Capturing from %s", a.config.CameraURL)
	return capture.NewHTTPSource(a.config.CameraURL, a.config.CaptureTimeout), nil
}

func (a *App) newStore(ctx context.Context) (service.ArtifactStore, error) {
	switch a.config.ArtifactBackend {
	case "gcs":
		store, err := storage.NewGCSStore(ctx, a.config.GCSBucket, a.config.GCSCredentials, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	case "local", "":
		store, err := storage.NewLocalStore(a.config, a.logger)
		if err != nil {
			return nil, err
		}
		a.localStore = store
		return store, nil
	case "none":
		a.logger.Warning("Artifact storage disabled, events will have no image")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown artifact backend %q", a.config.ArtifactBackend)
	}
}

func (a *App) newEventRepository(ctx context.Context) error {
	if a.config.DatabaseURL != "" {
		repo, err := postgres.New(ctx, a.config.DatabaseURL)
		if err != nil {
			return err
		}
		a.eventRepo = repo
		a.closers = append(a.closers, repo)
		a.logger.Info("Event log: postgres")
		return nil
	}

	db, err := sqlite.New(a.config.DatabasePath)
	if err != nil {
		return err
	}
	a.eventRepo = sqlite.NewEventRepository(db)
	a.closers = append(a.closers, db)
	a.logger.Info("Event log: sqlite %s", a.config.DatabasePath)
	return nil
}

func (a *App) newNotifier() (notify.Notifier, error) {
	if a.config.TelegramToken == "" {
		return notify.Nop{}, nil
	}
	if a.config.TelegramChatID == 0 {
		return nil, errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}

	telegram, err := notify.NewTelegramNotifier(a.config.TelegramToken, a.config.TelegramChatID)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Telegram alerts enabled for chat %d", a.config.TelegramChatID)
	return notify.Multi{telegram}, nil
}

// Watcher returns the frame watcher.
func (a *App) Watcher() *service.Watcher {
	return a.watcher
}

// Ingestor returns the sensor reading ingestor.
func (a *App) Ingestor() *sensor.Ingestor {
	return a.ingestor
}

// Handler returns the dashboard HTTP handler.
func (a *App) Handler() http.Handler {
	return route.SetupRoutes(a.config, a.logger, a.watcher, a.ingestor, a.hubService, a.eventRepo, a.localStore)
}

// Run serves the dashboard and watches the camera until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.hubService.Run(ctx)
	if a.udpSource != nil {
		go a.udpSource.Run(ctx)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("🚀 Dashboard listening on http://localhost:%d", a.config.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	if a.poller != nil {
		go func() {
			if err := a.poller.Run(ctx); err != nil {
				a.logger.Error("Sensor poller failed: %v", err)
			}
		}()
	}

	watchErr := make(chan error, 1)
	go func() { watchErr <- a.watcher.Run(ctx) }()

	var err error
	select {
	case err = <-serverErr:
		cancel()
		err = multierr.Append(err, <-watchErr)
	case err = <-watchErr:
		cancel()
	case <-ctx.Done():
		err = <-watchErr
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return multierr.Append(err, server.Shutdown(shutdownCtx))
}

// RunOnce processes a single frame.
func (a *App) RunOnce(ctx context.Context) (bool, error) {
	if a.udpSource != nil {
		listenCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go a.udpSource.Run(listenCtx)
	}
	return a.watcher.ProcessFrame(ctx)
}

// Close releases every component in reverse order of creation.
func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i].Close())
	}
	a.closers = nil
	return err
}
