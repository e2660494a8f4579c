package track

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

const eps = 1e-9

func TestConstantVelocityPredict(t *testing.T) {
	m := NewConstantVelocityModel(1.0, 10.0, 10.0)
	x := mat.NewVecDense(6, []float64{0, 0, 0, 1, 2, 3})
	out := m.Predict(x, 2.0)

	want := []float64{2, 4, 6, 1, 2, 3}
	for i, w := range want {
		if math.Abs(out.AtVec(i)-w) > eps {
			t.Errorf("component %d: got %v, want %v", i, out.AtVec(i), w)
		}
	}
}

func TestConstantVelocityObserve(t *testing.T) {
	m := NewConstantVelocityModel(1.0, 10.0, 10.0)
	x := mat.NewVecDense(6, []float64{5, 6, 7, 1, 2, 3})
	z := m.Observe(x)
	if z.Len() != 3 {
		t.Fatalf("observe dim: got %d, want 3", z.Len())
	}
	for i, w := range []float64{5, 6, 7} {
		if math.Abs(z.AtVec(i)-w) > eps {
			t.Errorf("component %d: got %v, want %v", i, z.AtVec(i), w)
		}
	}
}

func TestConstantVelocityProcessNoise(t *testing.T) {
	m := NewConstantVelocityModel(2.0, 10.0, 10.0)
	dt := 0.5
	q := 4.0
	Q := m.ProcessNoise(dt)

	wantPosPos := 0.25 * dt * dt * dt * dt * q
	wantPosVel := 0.5 * dt * dt * dt * q
	wantVelVel := dt * dt * q

	if math.Abs(Q.At(0, 0)-wantPosPos) > eps {
		t.Errorf("pos-pos block: got %v, want %v", Q.At(0, 0), wantPosPos)
	}
	if math.Abs(Q.At(0, 3)-wantPosVel) > eps {
		t.Errorf("pos-vel block: got %v, want %v", Q.At(0, 3), wantPosVel)
	}
	if math.Abs(Q.At(3, 3)-wantVelVel) > eps {
		t.Errorf("vel-vel block: got %v, want %v", Q.At(3, 3), wantVelVel)
	}
	// cross blocks between axes must stay zero
	if Q.At(0, 1) != 0 {
		t.Errorf("expected zero cross-axis term, got %v", Q.At(0, 1))
	}
}

func TestConstantAccelerationPredict(t *testing.T) {
	m := NewConstantAccelerationModel(1.0, 10.0, 10.0, 10.0)
	x := mat.NewVecDense(9, []float64{0, 0, 0, 1, 0, 0, 2, 0, 0})
	dt := 1.0
	out := m.Predict(x, dt)

	wantPos := 0 + 1*dt + 0.5*2*dt*dt
	wantVel := 1 + 2*dt
	wantAcc := 2.0
	if math.Abs(out.AtVec(0)-wantPos) > eps {
		t.Errorf("position: got %v, want %v", out.AtVec(0), wantPos)
	}
	if math.Abs(out.AtVec(3)-wantVel) > eps {
		t.Errorf("velocity: got %v, want %v", out.AtVec(3), wantVel)
	}
	if math.Abs(out.AtVec(6)-wantAcc) > eps {
		t.Errorf("acceleration: got %v, want %v", out.AtVec(6), wantAcc)
	}
}

func TestConstantAccelerationProcessNoise(t *testing.T) {
	m := NewConstantAccelerationModel(3.0, 10.0, 10.0, 10.0)
	dt := 0.25
	q := 9.0
	Q := m.ProcessNoise(dt)

	dt2 := dt * dt
	dt3 := dt2 * dt
	dt4 := dt3 * dt
	dt5 := dt4 * dt

	cases := []struct {
		name string
		row  int
		col  int
		want float64
	}{
		{"pos-pos", 0, 0, dt5 / 20 * q},
		{"pos-vel", 0, 3, dt4 / 8 * q},
		{"pos-acc", 0, 6, dt3 / 6 * q},
		{"vel-vel", 3, 3, dt3 / 3 * q},
		{"vel-acc", 3, 6, dt2 / 2 * q},
		{"acc-acc", 6, 6, dt * q},
	}
	for _, c := range cases {
		got := Q.At(c.row, c.col)
		if math.Abs(got-c.want) > eps {
			t.Errorf("%s block: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestMotionModelDimensions(t *testing.T) {
	cv := NewConstantVelocityModel(1, 1, 1)
	if cv.StateDim() != 6 || cv.MeasurementDim() != 3 {
		t.Errorf("CV dims: got (%d,%d), want (6,3)", cv.StateDim(), cv.MeasurementDim())
	}
	ca := NewConstantAccelerationModel(1, 1, 1, 1)
	if ca.StateDim() != 9 || ca.MeasurementDim() != 3 {
		t.Errorf("CA dims: got (%d,%d), want (9,3)", ca.StateDim(), ca.MeasurementDim())
	}
}

// Predict/Observe must not mutate the input vector (spec.md §8's
// "Predict/observe purity" law).
func TestPredictObservePurity(t *testing.T) {
	m := NewConstantAccelerationModel(1, 1, 1, 1)
	x := mat.NewVecDense(9, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	snapshot := mat.VecDenseCopyOf(x)

	_ = m.Predict(x, 0.1)
	_ = m.Observe(x)

	for i := 0; i < 9; i++ {
		if x.AtVec(i) != snapshot.AtVec(i) {
			t.Errorf("input mutated at %d: got %v, want %v", i, x.AtVec(i), snapshot.AtVec(i))
		}
	}
}
