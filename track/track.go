package track

import "gonum.org/v1/gonum/mat"

// State machine (unchanged): Tentative -> Confirmed -> Deleted, Tentative ->
// Deleted. Deleted tracks are removed from the Manager; no other state is
// visible via Manager.Snapshot for a track whose hits have not yet reached
// confirmationHits and whose misses have already passed maxMissesToDelete.

// Track is one target's estimator and lifecycle counters: it wraps a
// Filter and a MotionModel behind a single state vector/covariance pair.
type Track struct {
	id    int
	model MotionModel
	filter Filter

	x   *mat.VecDense
	cov mat.Matrix // *mat.SymDense for CKF, *mat.TriDense for SR-CKF
	R   *mat.SymDense

	age  int
	hits int
	miss int

	lastUpdateTime float64

	confirmationHits  int
	maxMissesToDelete int
}

// newTrack constructs a track from a single seed measurement: position is
// copied into x's leading 3 components, the remainder is zero, and the
// covariance is seeded from model.InitialCovariance().
func newTrack(id int, model MotionModel, filter Filter, seed Measurement, measurementNoiseStd float64, confirmationHits, maxMissesToDelete int) *Track {
	n := model.StateDim()
	x := mat.NewVecDense(n, nil)
	x.SetVec(0, seed.Position[0])
	x.SetVec(1, seed.Position[1])
	x.SetVec(2, seed.Position[2])

	P0 := model.InitialCovariance()
	cov := initialCovRepr(filter, P0)

	R := mat.NewSymDense(3, nil)
	sigma2 := measurementNoiseStd * measurementNoiseStd
	R.SetSym(0, 0, sigma2)
	R.SetSym(1, 1, sigma2)
	R.SetSym(2, 2, sigma2)

	return &Track{
		id:                id,
		model:             model,
		filter:            filter,
		x:                 x,
		cov:               cov,
		R:                 R,
		age:               0,
		hits:              1,
		miss:              0,
		lastUpdateTime:    seed.Timestamp,
		confirmationHits:  confirmationHits,
		maxMissesToDelete: maxMissesToDelete,
	}
}

// initialCovRepr picks the covariance representation matching the filter:
// SR-CKF carries the Cholesky factor of P0 directly, CKF carries P0 itself.
func initialCovRepr(filter Filter, P0 *mat.SymDense) mat.Matrix {
	if _, ok := filter.(SRCKF); ok {
		L, err := choleskyFactor(P0)
		if err != nil {
			// InitialCovariance is diagonal with positive entries by
			// construction; this can only fail on a misconfigured (zero
			// or negative) uncertainty parameter.
			panic("track: initial covariance is not positive-definite")
		}
		return L
	}
	return P0
}

// ID returns the track's manager-minted, never-reused identifier.
func (t *Track) ID() int { return t.id }

// Age is the number of predicts since birth.
func (t *Track) Age() int { return t.age }

// Hits is the number of successful updates since birth.
func (t *Track) Hits() int { return t.hits }

// Misses is the number of consecutive cycles without a matched measurement.
func (t *Track) Misses() int { return t.miss }

// LastUpdateTime is the timestamp of the most recent update() call.
func (t *Track) LastUpdateTime() float64 { return t.lastUpdateTime }

// Position returns the current position estimate (state components 0..2).
func (t *Track) Position() [3]float64 {
	return [3]float64{t.x.AtVec(0), t.x.AtVec(1), t.x.AtVec(2)}
}

// Velocity returns the current velocity estimate (state components 3..5,
// present in both CV and CA models).
func (t *Track) Velocity() [3]float64 {
	return [3]float64{t.x.AtVec(3), t.x.AtVec(4), t.x.AtVec(5)}
}

// IsConfirmed reports hits >= confirmationHits.
func (t *Track) IsConfirmed() bool { return t.hits >= t.confirmationHits }

// IsLost reports misses > maxMissesToDelete.
func (t *Track) IsLost() bool { return t.miss > t.maxMissesToDelete }

// predict advances the track's state by dt; a no-op for dt <= 0.
func (t *Track) predict(dt float64) error {
	if dt <= 0 {
		return nil
	}
	xNew, covNew, err := t.filter.Predict(t.x, t.cov, t.model, dt, t.id)
	if err != nil {
		return err
	}
	t.x = xNew
	t.cov = covNew
	t.age++
	return nil
}

// update folds a matched measurement into the track's state.
func (t *Track) update(meas Measurement) error {
	z := mat.NewVecDense(3, nil)
	z.SetVec(0, meas.Position[0])
	z.SetVec(1, meas.Position[1])
	z.SetVec(2, meas.Position[2])

	xNew, covNew, err := t.filter.Update(t.x, t.cov, t.model, z, t.R, t.id)
	if err != nil {
		return err
	}
	t.x = xNew
	t.cov = covNew
	t.hits++
	t.miss = 0
	t.lastUpdateTime = meas.Timestamp
	return nil
}

// incrementMisses records a cycle without a matched measurement.
func (t *Track) incrementMisses() { t.miss++ }

// PredictFutureTrajectory iterates the model's pure predict forward from
// the current state without mutating the track, producing
// floor(horizon/step) positions.
func (t *Track) PredictFutureTrajectory(horizon, step float64) [][3]float64 {
	if step <= 0 {
		return nil
	}
	n := int(horizon / step)
	out := make([][3]float64, 0, n)
	x := mat.VecDenseCopyOf(t.x)
	for i := 0; i < n; i++ {
		x = t.model.Predict(x, step)
		out = append(out, [3]float64{x.AtVec(0), x.AtVec(1), x.AtVec(2)})
	}
	return out
}

// covarianceMatrix reconstructs P = cov (CKF) or S*Sᵀ (SR-CKF), used by
// invariant checks and tests.
func (t *Track) covarianceMatrix() *mat.SymDense {
	n := t.model.StateDim()
	if sym, ok := t.cov.(*mat.SymDense); ok {
		return sym
	}
	L := t.cov.(*mat.TriDense)
	var p mat.Dense
	p.Mul(L, L.T())
	return symmetrize(&p, n)
}
