// Package service wires config, applog, transport, track.Manager,
// worker.Worker and healthsrv.Server into one process lifecycle: build,
// start, wait for a stop signal, stop with a grace period. Grounded on
// Service/Service.cpp's start/stop/isWorkerThreadRunning shape
// (SPEC_FULL.md §9's "supplemented from original_source").
package service

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/LdDl/ckf-tracker/applog"
	"github.com/LdDl/ckf-tracker/config"
	"github.com/LdDl/ckf-tracker/healthsrv"
	"github.com/LdDl/ckf-tracker/track"
	"github.com/LdDl/ckf-tracker/transport"
	"github.com/LdDl/ckf-tracker/worker"
)

// Name and Version identify the process in the health endpoint's body.
const (
	Name    = "trackerd"
	Version = "0.1.0"
)

// stopGrace bounds how long Run waits for the worker's tick goroutine to
// exit after a stop signal (spec.md §5's "10 s typical" grace period); a
// tick already in progress finishes, no further tick is started.
const stopGrace = 10 * time.Second

// healthShutdownGrace bounds the health server's shutdown.
const healthShutdownGrace = 5 * time.Second

// Service owns the whole ownership tree: Service ⊃ Worker ⊃ Manager, plus
// the sibling health server and transport handle. No back-references.
type Service struct {
	cfg    *config.Config
	log    *applog.Logger
	mgr    *track.Manager
	worker *worker.Worker
	health *healthsrv.Server
	sub    transport.Subscriber
}

// New builds every component from cfg but starts nothing.
func New(cfg *config.Config, log *applog.Logger) (*Service, error) {
	var filter track.Filter
	if cfg.KalmanFilter.UseSquareRoot {
		filter = track.SRCKF{}
	} else {
		filter = track.CKF{}
	}

	newTrackModel := func() track.MotionModel {
		return track.NewConstantAccelerationModel(
			cfg.KalmanFilter.ProcessNoiseStdCA,
			cfg.KalmanFilter.InitialPositionUncertainty,
			cfg.KalmanFilter.InitialVelocityUncertainty,
			cfg.KalmanFilter.InitialAccelerationUncertainty,
		)
	}

	mgr := track.NewManager(track.ManagerConfig{
		AssociationGateDistance: cfg.KalmanFilter.AssociationGateDistance,
		NewTrackGateDistance:    cfg.KalmanFilter.NewTrackGateDistance,
		MeasurementNoiseStd:     cfg.KalmanFilter.MeasurementNoiseStd,
		ConfirmationHits:        cfg.KalmanFilter.ConfirmationHits,
		MaxMissesToDelete:       cfg.KalmanFilter.MaxMissesToDelete,
		NewTrackModel:           newTrackModel,
		Filter:                  filter,
		Logf:                    log.Printf,
	})

	pub, sub, err := buildTransport(cfg.Transport)
	if err != nil {
		return nil, errors.Wrap(err, "service: build transport")
	}

	w := worker.New(worker.Config{
		TickInterval:     time.Duration(cfg.General.WorkerInterval) * time.Millisecond,
		ServiceName:      Name,
		ServiceVersion:   Version,
		Logf:             log.Printf,
	}, mgr, pub)

	if err := sub.Subscribe(w.Ingest); err != nil {
		return nil, errors.Wrap(err, "service: subscribe")
	}

	health := healthsrv.New(healthsrv.Addr(cfg.HealthCheck.Port), Name, Version, w, func() map[string]any {
		return map[string]any{"droppedMeasurements": w.DroppedMeasurements()}
	})

	return &Service{cfg: cfg, log: log, mgr: mgr, worker: w, health: health, sub: sub}, nil
}

func buildTransport(cfg config.Transport) (transport.Publisher, transport.Subscriber, error) {
	switch cfg.Kind {
	case "ndjson":
		conn, err := net.Dial("tcp", cfg.Address)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "dial %q", cfg.Address)
		}
		nd := transport.NewNDJSON(conn)
		return nd, nd, nil
	default:
		lb := transport.NewLoopback()
		return lb, lb, nil
	}
}

// Run starts the worker and health server, blocks until SIGINT/SIGTERM or
// ctx is cancelled, then stops everything with a grace period. A panic
// raised on Run's own goroutine is recovered here and turned into a
// returned error. The tick loop runs on the worker's own goroutine; a panic
// there (worker.tick panics on a non-recoverable manager error) is not
// recovered by Run and terminates the process with a non-zero exit status,
// leaving the restart to the out-of-scope OS service wrapper.
func (s *Service) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("fatal error in tracking pipeline", "panic", r)
			err = errors.Errorf("service: fatal: %v", r)
		}
	}()

	s.worker.Start()

	healthErrCh := make(chan error, 1)
	go func() {
		if serveErr := s.health.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			healthErrCh <- serveErr
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
	case <-ctx.Done():
	case healthErr := <-healthErrCh:
		s.log.Printf("service: health server failed: %v", healthErr)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopGrace)
	defer cancel()
	if stopErr := s.worker.Stop(stopCtx); stopErr != nil {
		s.log.Printf("service: worker stop did not complete cleanly: %v", stopErr)
	}

	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), healthShutdownGrace)
	defer cancel2()
	if shutdownErr := s.health.Shutdown(shutdownCtx); shutdownErr != nil {
		s.log.Printf("service: health server shutdown: %v", shutdownErr)
	}

	return nil
}
