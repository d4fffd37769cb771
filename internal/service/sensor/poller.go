package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"firewatch/internal/logger"

	"github.com/go-co-op/gocron/v2"
)

// maxPayloadSize bounds a gateway response.
const maxPayloadSize = 64 << 10

// Poller pulls JSON readings from a gateway and feeds them to an Ingestor.
type Poller struct {
	url      string
	interval time.Duration
	client   *http.Client
	ingestor *Ingestor
	logger   *logger.Logger
}

// NewPoller creates a poller for url. A non-positive timeout uses 5 seconds.
func NewPoller(url string, interval, timeout time.Duration, ingestor *Ingestor, logger *logger.Logger) *Poller {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Poller{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: timeout},
		ingestor: ingestor,
		logger:   logger,
	}
}

// Fetch reads one payload from the gateway.
func (p *Poller) Fetch(ctx context.Context) (Reading, error) {
	var reading Reading

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return reading, fmt.Errorf("failed to build sensor request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return reading, fmt.Errorf("failed to fetch readings from %s: %w", p.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return reading, fmt.Errorf("http %d GET %s: %s", resp.StatusCode, p.url, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPayloadSize)).Decode(&reading); err != nil {
		return reading, fmt.Errorf("invalid sensor payload: %w", err)
	}
	return reading, nil
}

// Poll fetches and ingests one reading.
func (p *Poller) Poll(ctx context.Context) (Outcome, error) {
	reading, err := p.Fetch(ctx)
	if err != nil {
		return Outcome{}, err
	}
	return p.ingestor.Ingest(ctx, reading), nil
}

// Run polls every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	if p.interval <= 0 {
		return fmt.Errorf("invalid sensor poll interval %s", p.interval)
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLogger(p.logger.Slog()))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(func() {
			if _, err := p.Poll(ctx); err != nil {
				p.logger.Error("Sensor poll failed: %v", err)
			}
		}),
		gocron.WithName("sensor-poll"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		scheduler.Shutdown()
		return fmt.Errorf("failed to schedule sensor poll: %w", err)
	}

	p.logger.Info("Polling sensors at %s every %s", p.url, p.interval)
	scheduler.Start()

	<-ctx.Done()

	if err := scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	p.logger.Info("Sensor poller stopped")
	return nil
}
