package track

import (
	"math"
	"testing"
)

func seedMeasurement(x, y, z, ts float64) Measurement {
	return Measurement{Position: [3]float64{x, y, z}, Timestamp: ts, ObserverID: 1}
}

func TestNewTrackSeedsPositionAndZeroesRest(t *testing.T) {
	model := NewConstantAccelerationModel(1, 10, 10, 10)
	tr := newTrack(1, model, CKF{}, seedMeasurement(1, 2, 3, 0), 2.0, 3, 5)

	pos := tr.Position()
	if pos != [3]float64{1, 2, 3} {
		t.Errorf("got position %v, want {1 2 3}", pos)
	}
	vel := tr.Velocity()
	if vel != [3]float64{0, 0, 0} {
		t.Errorf("got velocity %v, want zero", vel)
	}
	if tr.Hits() != 1 || tr.Misses() != 0 || tr.Age() != 0 {
		t.Errorf("got hits=%d misses=%d age=%d, want 1,0,0", tr.Hits(), tr.Misses(), tr.Age())
	}
}

func TestTrackLifecycleConfirmAndLose(t *testing.T) {
	model := NewConstantAccelerationModel(1, 10, 10, 10)
	tr := newTrack(1, model, CKF{}, seedMeasurement(0, 0, 0, 0), 2.0, 3, 2)

	if tr.IsConfirmed() {
		t.Fatal("should not be confirmed with only one hit")
	}

	if err := tr.update(seedMeasurement(0, 0, 0, 1)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := tr.update(seedMeasurement(0, 0, 0, 2)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !tr.IsConfirmed() {
		t.Fatalf("expected confirmed after 3 hits, got hits=%d", tr.Hits())
	}

	tr.incrementMisses()
	tr.incrementMisses()
	tr.incrementMisses()
	if !tr.IsLost() {
		t.Fatalf("expected lost after misses exceed maxMissesToDelete=2, got misses=%d", tr.Misses())
	}
}

func TestTrackUpdateResetsMisses(t *testing.T) {
	model := NewConstantAccelerationModel(1, 10, 10, 10)
	tr := newTrack(1, model, CKF{}, seedMeasurement(0, 0, 0, 0), 2.0, 3, 5)
	tr.incrementMisses()
	tr.incrementMisses()
	if tr.Misses() != 2 {
		t.Fatalf("got misses=%d, want 2", tr.Misses())
	}
	if err := tr.update(seedMeasurement(1, 1, 1, 1)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if tr.Misses() != 0 {
		t.Errorf("got misses=%d after update, want 0", tr.Misses())
	}
}

func TestTrackPredictIsNoopForNonPositiveDt(t *testing.T) {
	model := NewConstantAccelerationModel(1, 10, 10, 10)
	tr := newTrack(1, model, CKF{}, seedMeasurement(1, 2, 3, 0), 2.0, 3, 5)
	before := tr.Position()
	if err := tr.predict(0); err != nil {
		t.Fatalf("predict(0): %v", err)
	}
	if err := tr.predict(-1); err != nil {
		t.Fatalf("predict(-1): %v", err)
	}
	after := tr.Position()
	if before != after {
		t.Errorf("position changed on non-positive dt: before=%v after=%v", before, after)
	}
	if tr.Age() != 0 {
		t.Errorf("age advanced on a no-op predict: got %d", tr.Age())
	}
}

func TestPredictFutureTrajectoryDoesNotMutateTrack(t *testing.T) {
	model := NewConstantVelocityModel(1, 10, 5)
	tr := newTrack(1, model, CKF{}, seedMeasurement(0, 0, 0, 0), 2.0, 3, 5)
	if err := tr.update(seedMeasurement(1, 0, 0, 1)); err != nil {
		t.Fatalf("update: %v", err)
	}
	before := tr.Position()

	traj := tr.PredictFutureTrajectory(2.0, 0.5)
	if len(traj) != 4 {
		t.Fatalf("got %d trajectory points, want 4", len(traj))
	}

	after := tr.Position()
	if before != after {
		t.Errorf("trajectory prediction mutated track state: before=%v after=%v", before, after)
	}
}

func TestCovarianceMatrixConsistentAcrossRepresentations(t *testing.T) {
	model := NewConstantVelocityModel(1, 10, 5)
	trCKF := newTrack(1, model, CKF{}, seedMeasurement(0, 0, 0, 0), 2.0, 3, 5)
	trSR := newTrack(1, model, SRCKF{}, seedMeasurement(0, 0, 0, 0), 2.0, 3, 5)

	pCKF := trCKF.covarianceMatrix()
	pSR := trSR.covarianceMatrix()
	for i := 0; i < model.StateDim(); i++ {
		for j := 0; j < model.StateDim(); j++ {
			if math.Abs(pCKF.At(i, j)-pSR.At(i, j)) > 1e-9 {
				t.Errorf("cov[%d][%d]: CKF=%v SRCKF=%v", i, j, pCKF.At(i, j), pSR.At(i, j))
			}
		}
	}
}
