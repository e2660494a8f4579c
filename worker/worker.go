// Package worker implements the time-driven loop that buffers ingested
// measurements, drives a track.Manager, and formats the per-cycle report:
// SPEC_FULL.md §4.5, grounded on Service/Worker.cpp's onMessageReceived/
// onTimeout sequencing and the teacher's predict-then-match tick ordering
// (mot.ByteTracker.MatchObjects).
package worker

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/LdDl/ckf-tracker/track"
	"github.com/LdDl/ckf-tracker/transport"
)

// Config bundles Worker's tunables.
type Config struct {
	TickInterval      time.Duration // default 100ms, SPEC_FULL.md §6 General.workerInterval
	IngestBufferSize  int           // default 256, SPEC_FULL.md §9 added requirement
	TrajectoryHorizon float64       // default 2.0s
	TrajectoryStep    float64       // default 0.5s
	ServiceName       string
	ServiceVersion    string
	Logf              func(format string, args ...any)
}

// Worker owns a track.Manager, a bounded ingest channel, a periodic tick
// source and a heartbeat counter. Ingest, the tick loop and the health
// endpoint's reads of LastHeartbeat/DroppedMeasurements are the roles that
// touch a Worker concurrently; the tick goroutine is the sole mutator of the
// manager (SPEC_FULL.md §5).
type Worker struct {
	cfg       Config
	mgr       *track.Manager
	publisher transport.Publisher

	ingestCh chan []byte
	dropped  atomic.Int64

	heartbeatNano atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Worker. mgr and publisher are owned exclusively by the
// returned Worker for the rest of its lifetime (no back-references, per
// SPEC_FULL.md §9's ownership-tree note).
func New(cfg Config, mgr *track.Manager, publisher transport.Publisher) *Worker {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 100 * time.Millisecond
	}
	if cfg.IngestBufferSize <= 0 {
		cfg.IngestBufferSize = 256
	}
	if cfg.TrajectoryHorizon <= 0 {
		cfg.TrajectoryHorizon = 2.0
	}
	if cfg.TrajectoryStep <= 0 {
		cfg.TrajectoryStep = 0.5
	}
	return &Worker{
		cfg:       cfg,
		mgr:       mgr,
		publisher: publisher,
		ingestCh:  make(chan []byte, cfg.IngestBufferSize),
	}
}

func (w *Worker) logf(format string, args ...any) {
	if w.cfg.Logf != nil {
		w.cfg.Logf(format, args...)
	}
}

// Ingest is the transport's onReceive callback: non-blocking push into the
// bounded buffer, drop-newest with a counter when full (SPEC_FULL.md §9).
func (w *Worker) Ingest(raw []byte) {
	select {
	case w.ingestCh <- raw:
	default:
		w.dropped.Add(1)
		w.logf("worker: ingest buffer full, dropping measurement")
	}
}

// DroppedMeasurements is the running count of measurements dropped because
// the ingest buffer was full; surfaced via the health endpoint's details.
func (w *Worker) DroppedMeasurements() int64 {
	return w.dropped.Load()
}

// LastHeartbeat is the timestamp written at the end of the most recently
// completed tick; zero if no tick has completed yet.
func (w *Worker) LastHeartbeat() time.Time {
	nano := w.heartbeatNano.Load()
	if nano == 0 {
		return time.Time{}
	}
	return time.Unix(0, nano).UTC()
}

// Start launches the tick goroutine. Calling Start twice is a programmer
// error (unchecked, mirrors the teacher's lack of double-start guards).
func (w *Worker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop cancels the tick loop and blocks until it has exited or ctx expires,
// whichever comes first (SPEC_FULL.md §5's grace-period cancellation).
func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

// tick drains the ingest buffer, parses and sorts the batch, advances the
// manager, and publishes a report — exactly the onTimeout sequence of
// Service/Worker.cpp, batched per SPEC_FULL.md §9 rather than per-measurement.
func (w *Worker) tick() {
	defer w.heartbeatNano.Store(time.Now().UnixNano())

	raw := w.drain()
	if len(raw) == 0 {
		return
	}

	batch := make([]track.Measurement, 0, len(raw))
	for _, r := range raw {
		m, err := parseMeasurement(r)
		if err != nil {
			if err != errMissingObserverID {
				w.logf("worker: dropping malformed measurement: %v", err)
			}
			continue
		}
		batch = append(batch, m)
	}
	if len(batch) == 0 {
		return
	}

	sort.Slice(batch, func(i, j int) bool { return batch[i].Timestamp < batch[j].Timestamp })

	latest := batch[len(batch)-1].Timestamp
	if err := w.mgr.PredictTo(latest); err != nil {
		w.logf("worker: fatal error in predictTo: %v", err)
		panic(err)
	}
	if err := w.mgr.ProcessMeasurements(batch); err != nil {
		w.logf("worker: fatal error in processMeasurements: %v", err)
		panic(err)
	}

	w.publish()
}

func (w *Worker) drain() [][]byte {
	var out [][]byte
	for {
		select {
		case b := <-w.ingestCh:
			out = append(out, b)
		default:
			return out
		}
	}
}

func (w *Worker) publish() {
	snapshot := w.mgr.Snapshot()
	tracks := make([]outputTrack, 0, len(snapshot))
	for _, tr := range snapshot {
		if !tr.IsConfirmed() {
			continue
		}
		pos := tr.Position()
		vel := tr.Velocity()
		traj := tr.PredictFutureTrajectory(w.cfg.TrajectoryHorizon, w.cfg.TrajectoryStep)
		future := make([]xyz, len(traj))
		for i, p := range traj {
			future[i] = xyz{X: p[0], Y: p[1], Z: p[2]}
		}
		tracks = append(tracks, outputTrack{
			ID:               tr.ID(),
			Hits:             tr.Hits(),
			Position:         xyz{X: pos[0], Y: pos[1], Z: pos[2]},
			Velocity:         xyz{X: vel[0], Y: vel[1], Z: vel[2]},
			FutureTrajectory: future,
		})
	}
	if len(tracks) == 0 {
		return
	}

	msg := outputMessage{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Tracks:    tracks,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		w.logf("worker: failed to marshal report: %v", err)
		return
	}
	if err := w.publisher.Publish(context.Background(), payload); err != nil {
		w.logf("worker: publish failed: %v", err)
	}
}

var errMissingObserverID = errors.New("worker: missing ObserverId")
