package track

import (
	"errors"
	"math"
	"sort"
	"sync"
)

// ManagerConfig bundles the tunables TrackManager needs; field names mirror
// spec.md/SPEC_FULL.md §6's KalmanFilter.* configuration keys.
type ManagerConfig struct {
	AssociationGateDistance float64 // d_assoc
	NewTrackGateDistance    float64 // d_new
	MeasurementNoiseStd     float64
	ConfirmationHits        int
	MaxMissesToDelete       int

	// NewTrackModel builds the motion model a freshly spawned track uses.
	// Spec.md §4.4 mandates CA for spawned tracks.
	NewTrackModel func() MotionModel
	// Filter is shared by every track (CKF{} or SRCKF{}).
	Filter Filter

	// Logf receives a diagnostic line whenever a per-track filter error is
	// swallowed as a miss; nil is a valid no-op logger.
	Logf func(format string, args ...any)
}

// Manager holds the track map, the next-id counter, the last-processed
// timestamp and the two association/spawn gates. It is the exclusive owner
// of every Track it holds; all mutation flows through its methods.
type Manager struct {
	mu     sync.RWMutex
	cfg    ManagerConfig
	tracks map[int]*Track
	nextID int

	hasPredicted    bool
	lastPredictTime float64
	lastProcessTime float64
}

// NewManager constructs an empty Manager.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		cfg:    cfg,
		tracks: make(map[int]*Track),
	}
}

func (m *Manager) logf(format string, args ...any) {
	if m.cfg.Logf != nil {
		m.cfg.Logf(format, args...)
	}
}

// PredictTo advances every track to timestamp. The first call only records
// the timestamp; subsequent calls compute dt against the previous call and
// predict every track when dt > 0. It never touches the last-processed
// timestamp processMeasurements maintains.
func (m *Manager) PredictTo(timestamp float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasPredicted {
		m.hasPredicted = true
		m.lastPredictTime = timestamp
		return nil
	}
	dt := timestamp - m.lastPredictTime
	m.lastPredictTime = timestamp
	if dt <= 0 {
		return nil
	}

	for _, id := range m.sortedTrackIDsLocked() {
		tr := m.tracks[id]
		if err := tr.predict(dt); err != nil {
			if errors.Is(err, ErrNumericallyUnstable) {
				m.logf("track %d: predict numerically unstable, counting as miss: %v", id, err)
				tr.incrementMisses()
				continue
			}
			return err
		}
	}
	return nil
}

// ProcessMeasurements runs the full per-cycle pipeline: association, update,
// new-track spawn, loss management. A no-op on an empty batch.
func (m *Manager) ProcessMeasurements(batch []Measurement) error {
	if len(batch) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	matches, unmatchedTracks, unmatchedMeas := m.associateLocked(batch)

	matchedIDs := make([]int, 0, len(matches))
	for id := range matches {
		matchedIDs = append(matchedIDs, id)
	}
	sort.Ints(matchedIDs)
	for _, id := range matchedIDs {
		tr, ok := m.tracks[id]
		if !ok {
			// Benign race against deletion: nothing else in this single-
			// threaded pipeline can remove a track mid-cycle, but the
			// check keeps the invariant explicit and cheap.
			m.logf("track %d: update skipped, %v", id, wrapNotFound(id))
			continue
		}
		measIdx := matches[id]
		if err := tr.update(batch[measIdx]); err != nil {
			if errors.Is(err, ErrNumericallyUnstable) {
				m.logf("track %d: update numerically unstable, counting as miss: %v", id, err)
				tr.incrementMisses()
				continue
			}
			return err
		}
	}

	m.spawnNewTracksLocked(batch, matchedIDs, unmatchedMeas)

	for _, id := range unmatchedTracks {
		tr, ok := m.tracks[id]
		if !ok {
			m.logf("track %d: miss skipped, %v", id, wrapNotFound(id))
			continue
		}
		tr.incrementMisses()
		if tr.IsLost() {
			delete(m.tracks, id)
		}
	}

	m.lastProcessTime = batch[len(batch)-1].Timestamp
	return nil
}

// associateLocked performs greedy, per-track nearest-neighbour association
// in deterministic ascending-trackId order. A measurement claimed by one
// track cannot be claimed by another in the same cycle.
func (m *Manager) associateLocked(batch []Measurement) (matches map[int]int, unmatchedTracks []int, unmatchedMeas []int) {
	matches = make(map[int]int)
	claimed := make([]bool, len(batch))

	for _, id := range m.sortedTrackIDsLocked() {
		tr := m.tracks[id]
		pos := tr.Position()

		bestIdx := -1
		bestDist := math.Inf(1)
		for i, meas := range batch {
			if claimed[i] {
				continue
			}
			d := euclidean3(pos, meas.Position)
			if d < bestDist {
				bestDist = d
				bestIdx = i
			}
		}

		if bestIdx >= 0 && bestDist < m.cfg.AssociationGateDistance {
			matches[id] = bestIdx
			claimed[bestIdx] = true
		} else {
			unmatchedTracks = append(unmatchedTracks, id)
		}
	}

	for i, c := range claimed {
		if !c {
			unmatchedMeas = append(unmatchedMeas, i)
		}
	}
	return matches, unmatchedTracks, unmatchedMeas
}

// spawnNewTracksLocked implements §4.4's "new tracks" step. It runs after
// match-driven updates so the "nearby existing track" test uses updated
// positions — the invariant a naive spawn-before-update implementation
// would violate (spec.md scenario S5).
func (m *Manager) spawnNewTracksLocked(batch []Measurement, matchedIDs []int, unmatchedMeas []int) {
	seeds := make([]Measurement, 0, len(unmatchedMeas))
	for _, idx := range unmatchedMeas {
		cand := batch[idx]
		dup := false
		for _, id := range matchedIDs {
			tr, ok := m.tracks[id]
			if !ok {
				continue
			}
			if euclidean3(tr.Position(), cand.Position) < m.cfg.NewTrackGateDistance {
				dup = true
				break
			}
		}
		if !dup {
			seeds = append(seeds, cand)
		}
	}

	// Internal clustering: a seed is absorbed if within d_new of ANY
	// previously accepted seed this cycle (spec.md §9 Open Question 2,
	// resolved toward "any accepted seed" — see DESIGN.md).
	accepted := make([]Measurement, 0, len(seeds))
	for _, s := range seeds {
		absorbed := false
		for _, a := range accepted {
			if euclidean3(a.Position, s.Position) < m.cfg.NewTrackGateDistance {
				absorbed = true
				break
			}
		}
		if !absorbed {
			accepted = append(accepted, s)
		}
	}

	for _, s := range accepted {
		id := m.nextID
		m.nextID++
		model := m.cfg.NewTrackModel()
		m.tracks[id] = newTrack(id, model, m.cfg.Filter, s, m.cfg.MeasurementNoiseStd, m.cfg.ConfirmationHits, m.cfg.MaxMissesToDelete)
	}
}

// Snapshot returns a stable-ordered copy of the current live track set
// (both tentative and confirmed); callers filter by IsConfirmed() for
// external reporting, matching the Worker/Manager split in SPEC_FULL.md §4.
func (m *Manager) Snapshot() []*Track {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Track, 0, len(m.tracks))
	for _, id := range m.sortedTrackIDsLocked() {
		out = append(out, m.tracks[id])
	}
	return out
}

// sortedTrackIDsLocked returns live track ids in ascending order. Callers
// must already hold m.mu (read or write).
func (m *Manager) sortedTrackIDsLocked() []int {
	ids := make([]int, 0, len(m.tracks))
	for id := range m.tracks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
