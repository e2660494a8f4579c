package track

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestSRCKFAndCKFPredictAgree(t *testing.T) {
	model := NewConstantVelocityModel(1.0, 10.0, 5.0)
	x := mat.NewVecDense(6, []float64{0, 0, 0, 1, -1, 0.5})
	P0 := model.InitialCovariance()
	L0, err := choleskyFactor(P0)
	if err != nil {
		t.Fatalf("choleskyFactor: %v", err)
	}

	ckf := CKF{}
	srckf := SRCKF{}

	xCKF, covCKF, err := ckf.Predict(x, P0, model, 0.75, 1)
	if err != nil {
		t.Fatalf("CKF.Predict: %v", err)
	}
	xSR, covSR, err := srckf.Predict(x, L0, model, 0.75, 1)
	if err != nil {
		t.Fatalf("SRCKF.Predict: %v", err)
	}

	for i := 0; i < 6; i++ {
		if math.Abs(xCKF.AtVec(i)-xSR.AtVec(i)) > 1e-6 {
			t.Errorf("mean[%d]: CKF=%v SRCKF=%v", i, xCKF.AtVec(i), xSR.AtVec(i))
		}
	}

	PCKF := covCKF.(*mat.SymDense)
	LSR := covSR.(*mat.TriDense)
	var PSR mat.Dense
	PSR.Mul(LSR, LSR.T())
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			if math.Abs(PCKF.At(i, j)-PSR.At(i, j)) > 1e-6 {
				t.Errorf("cov[%d][%d]: CKF=%v SRCKF=%v", i, j, PCKF.At(i, j), PSR.At(i, j))
			}
		}
	}
}

func TestSRCKFAndCKFUpdateAgree(t *testing.T) {
	model := NewConstantVelocityModel(1.0, 10.0, 5.0)
	x := mat.NewVecDense(6, []float64{0, 0, 0, 0, 0, 0})
	P0 := model.InitialCovariance()
	L0, err := choleskyFactor(P0)
	if err != nil {
		t.Fatalf("choleskyFactor: %v", err)
	}
	R := mat.NewSymDense(3, []float64{4, 0, 0, 0, 4, 0, 0, 0, 4})
	z := mat.NewVecDense(3, []float64{5, -3, 1})

	ckf := CKF{}
	srckf := SRCKF{}

	xCKF, covCKF, err := ckf.Update(x, P0, model, z, R, 1)
	if err != nil {
		t.Fatalf("CKF.Update: %v", err)
	}
	xSR, covSR, err := srckf.Update(x, L0, model, z, R, 1)
	if err != nil {
		t.Fatalf("SRCKF.Update: %v", err)
	}

	for i := 0; i < 6; i++ {
		if math.Abs(xCKF.AtVec(i)-xSR.AtVec(i)) > 1e-5 {
			t.Errorf("mean[%d]: CKF=%v SRCKF=%v", i, xCKF.AtVec(i), xSR.AtVec(i))
		}
	}

	PCKF := covCKF.(*mat.SymDense)
	LSR := covSR.(*mat.TriDense)
	var PSR mat.Dense
	PSR.Mul(LSR, LSR.T())
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			if math.Abs(PCKF.At(i, j)-PSR.At(i, j)) > 1e-5 {
				t.Errorf("cov[%d][%d]: CKF=%v SRCKF=%v", i, j, PCKF.At(i, j), PSR.At(i, j))
			}
		}
	}
}

func TestArrayFactorReproducesSourceGram(t *testing.T) {
	columns := mat.NewDense(2, 4, []float64{
		1, 2, 0.5, -1,
		0, 1, 1.5, 2,
	})
	var want mat.Dense
	want.Mul(columns, columns.T())

	factor := arrayFactor(columns, 2)
	var got mat.Dense
	got.Mul(factor, factor.T())

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if math.Abs(want.At(i, j)-got.At(i, j)) > 1e-9 {
				t.Errorf("gram[%d][%d]: got %v, want %v", i, j, got.At(i, j), want.At(i, j))
			}
		}
	}
}

func TestArrayFactorHasPositiveDiagonal(t *testing.T) {
	columns := mat.NewDense(3, 6, []float64{
		-1, 2, -3, 4, -5, 6,
		1, -2, 3, -4, 5, -6,
		2, -1, 0, 3, -2, 1,
	})
	factor := arrayFactor(columns, 3)
	for i := 0; i < 3; i++ {
		if factor.At(i, i) < 0 {
			t.Errorf("diagonal[%d] negative: %v", i, factor.At(i, i))
		}
	}
}
