package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	scheduleapi "github.com/kilianp07/fleetplan/api/schedule"
	"github.com/kilianp07/fleetplan/config"
	"github.com/kilianp07/fleetplan/core/schedule"
	"github.com/kilianp07/fleetplan/core/schedule/logging"
	"github.com/kilianp07/fleetplan/infra/airports"
	"github.com/kilianp07/fleetplan/infra/logger"
	"github.com/kilianp07/fleetplan/infra/metrics"
	"github.com/kilianp07/fleetplan/infra/mqtt"
	"github.com/kilianp07/fleetplan/internal/eventbus"
)

// Service wires the schedule manager to its HTTP API and optional sinks.
type Service struct {
	Manager   *schedule.Manager
	cfg       *config.Config
	bus       *eventbus.TypedBus[schedule.PassEvent]
	store     logging.PassStore
	publisher *mqtt.SnapshotPublisher
	influx    *metrics.InfluxSink
	srv       *http.Server
	log       logger.Logger
	wg        sync.WaitGroup
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logger.SetLevel(cfg.Logging.Level)
	logg := logger.New("service")

	types, err := cfg.Catalog()
	if err != nil {
		return nil, fmt.Errorf("types: %w", err)
	}
	locator, err := LoadLocator(cfg.Airports)
	if err != nil {
		return nil, fmt.Errorf("airports: %w", err)
	}
	logg.Infof("airport table: %d airports", locator.Len())
	store, err := logging.NewStore(cfg.PassLog)
	if err != nil {
		return nil, fmt.Errorf("pass log: %w", err)
	}

	manager := schedule.NewManager(types, locator, logger.New("schedule"))
	manager.SetPassStore(store)
	bus := eventbus.NewTyped[schedule.PassEvent]()
	manager.SetEventBus(bus)

	svc := &Service{Manager: manager, cfg: cfg, bus: bus, store: store, log: logg}
	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewSnapshotPublisher(cfg.MQTT)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.publisher = pub
	}
	if cfg.Metrics.Influx.Enabled {
		sink := metrics.NewInfluxSink(cfg.Metrics.Influx)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := sink.Ping(ctx)
		cancel()
		if err != nil {
			logg.Errorf("influx disabled: %v", err)
			sink.Close()
		} else {
			svc.influx = sink
		}
	}
	svc.srv = &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           scheduleapi.NewRouter(manager),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return svc, nil
}

// LoadLocator opens the configured airport database, falling back to the
// built-in table when no CSV is configured.
func LoadLocator(cfg config.AirportsConfig) (*airports.Table, error) {
	if cfg.CSV == "" {
		return airports.Builtin(), nil
	}
	return airports.LoadCSV(cfg.CSV)
}

// Handler returns the API handler.
func (s *Service) Handler() http.Handler { return s.srv.Handler }

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.publisher != nil {
		events := s.bus.Subscribe()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.publisher.Run(ctx, events)
		}()
	}
	if s.influx != nil {
		events := s.bus.Subscribe()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.influx.Run(ctx, events)
		}()
	}
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.Address); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	timeout := time.Duration(s.cfg.HTTP.ShutdownSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Reload applies the type catalog and airport database of cfg to the
// running schedule. Missions that no longer resolve surface as diagnostics
// in the resulting snapshot.
func (s *Service) Reload(ctx context.Context, cfg *config.Config) error {
	types, err := cfg.Catalog()
	if err != nil {
		return fmt.Errorf("types: %w", err)
	}
	locator, err := LoadLocator(cfg.Airports)
	if err != nil {
		return fmt.Errorf("airports: %w", err)
	}
	logger.SetLevel(cfg.Logging.Level)
	snap := s.Manager.Reconfigure(ctx, types, locator)
	s.log.Infof("configuration reloaded: %d types, %d diagnostics", len(types), len(snap.Errors))
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	s.wg.Wait()
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.influx != nil {
		s.influx.Close()
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
