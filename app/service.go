package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/cpipredict/cpi-predictor/api/health"
	"github.com/cpipredict/cpi-predictor/api/middleware"
	"github.com/cpipredict/cpi-predictor/api/predict"
	"github.com/cpipredict/cpi-predictor/config"
	coremetrics "github.com/cpipredict/cpi-predictor/core/metrics"
	"github.com/cpipredict/cpi-predictor/core/prediction"
	"github.com/cpipredict/cpi-predictor/infra/logger"
	"github.com/cpipredict/cpi-predictor/infra/metrics"
	"github.com/cpipredict/cpi-predictor/internal/eventbus"
)

// Service wires the predictor, HTTP routes and metrics sinks together.
type Service struct {
	cfg     *config.Config
	log     logger.Logger
	sink    coremetrics.MetricsSink
	bus     *eventbus.TypedBus[coremetrics.Event]
	handler http.Handler

	stopCollector context.CancelFunc
	collector     *sync.WaitGroup
	closeOnce     sync.Once
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	logg := logger.New("service")

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	bus := eventbus.New[coremetrics.Event]()
	ctx, cancel := context.WithCancel(context.Background())
	collector := metrics.StartEventCollector(ctx, bus, sink, logger.New("metrics"))

	engine := prediction.NewPredictor(prediction.WithSize(cfg.Chart.Width, cfg.Chart.Height))
	svc := &Service{
		cfg:           cfg,
		log:           logg,
		sink:          sink,
		bus:           bus,
		stopCollector: cancel,
		collector:     collector,
	}
	svc.handler = NewRouter(cfg, engine, bus, logger.New("http"))
	return svc, nil
}

// NewRouter builds the HTTP routes around engine. Events are published on
// bus when it is non-nil.
func NewRouter(cfg *config.Config, engine prediction.Engine, bus eventbus.Bus[coremetrics.Event], log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(middleware.CORSOptions{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowCredentials: cfg.CORS.AllowCredentials,
	}))

	opts := []predict.Option{predict.WithLogger(log), predict.WithMaxBodyBytes(cfg.Server.MaxBodyBytes)}
	if bus != nil {
		opts = append(opts, predict.WithBus(bus))
	}
	ph := predict.NewHandler(engine, opts...)
	r.Method(http.MethodPost, "/predict", ph)
	r.Method(http.MethodPost, "/api/predict", ph)
	r.Method(http.MethodGet, "/healthz", health.NewHandler())
	return r
}

// Handler returns the service routes.
func (s *Service) Handler() http.Handler { return s.handler }

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Server.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	if s.cfg.Metrics.HasSink("prometheus") {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddress); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Infof("server stopped")
	return nil
}

// Close drains pending events into the sink and releases it.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.bus.Close()
		s.collector.Wait()
		s.stopCollector()
		if c, ok := s.sink.(interface{ Close() error }); ok {
			err = c.Close()
		}
	})
	return err
}
