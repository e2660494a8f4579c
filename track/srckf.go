package track

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SRCKF is the square-root Cubature Kalman Filter: it carries the
// lower-triangular Cholesky factor S (P = S·Sᵀ) instead of P itself. Predict
// and the innovation factor Szz in Update are built with the QR-based array
// construction, which never subtracts covariances. The covariance downdate
// in Update does not stay in square-root form: it rebuilds S·Sᵀ, subtracts
// K·Pzz·Kᵀ and re-factorises the difference.
type SRCKF struct{}

func (SRCKF) Predict(x *mat.VecDense, cov mat.Matrix, model MotionModel, dt float64, trackID int) (*mat.VecDense, mat.Matrix, error) {
	S := cov.(*mat.TriDense)
	n := model.StateDim()

	pts := cubaturePoints(x, S)
	for i, pt := range pts {
		pts[i] = model.Predict(pt, dt)
	}
	xPred := vecMean(pts, n)
	devs := weightedDeviations(pts, xPred, n)

	Q := model.ProcessNoise(dt)
	sqrtQ, err := choleskyFactor(Q)
	if err != nil {
		return nil, nil, wrapUnstable(trackID, "predict: cholesky of Q failed")
	}

	combined := concatCols(n, devs, mat.DenseCopyOf(sqrtQ))
	LPred := arrayFactor(combined, n)
	return xPred, LPred, nil
}

func (SRCKF) Update(x *mat.VecDense, cov mat.Matrix, model MotionModel, z *mat.VecDense, R *mat.SymDense, trackID int) (*mat.VecDense, mat.Matrix, error) {
	S := cov.(*mat.TriDense)
	n := model.StateDim()
	m := model.MeasurementDim()

	xpts := cubaturePoints(x, S)
	zpts := make([]*mat.VecDense, len(xpts))
	for i, pt := range xpts {
		zpts[i] = model.Observe(pt)
	}
	zPred := vecMean(zpts, m)
	zDevs := weightedDeviations(zpts, zPred, m)

	sqrtR, err := choleskyFactor(R)
	if err != nil {
		return nil, nil, wrapUnstable(trackID, "update: cholesky of R failed")
	}
	zCombined := concatCols(m, zDevs, mat.DenseCopyOf(sqrtR))
	Szz := arrayFactor(zCombined, m)

	Pxz := crossCovariance(xpts, x, zpts, zPred, n, m)

	var PzzDense mat.Dense
	PzzDense.Mul(Szz, Szz.T())
	PzzSym := symmetrize(&PzzDense, m)

	var chol mat.Cholesky
	if !chol.Factorize(PzzSym) {
		return nil, nil, wrapUnstable(trackID, "update: Pzz reconstructed from Szz not PD")
	}
	var PzzInv mat.SymDense
	if err := chol.InverseTo(&PzzInv); err != nil {
		return nil, nil, wrapUnstable(trackID, "update: Pzz not invertible")
	}

	var K mat.Dense
	K.Mul(Pxz, &PzzInv)

	innovation := mat.NewVecDense(m, nil)
	innovation.SubVec(z, zPred)
	correction := mat.NewVecDense(n, nil)
	correction.MulVec(&K, innovation)
	xNew := mat.NewVecDense(n, nil)
	xNew.AddVec(x, correction)

	// Downdate: reconstruct P_old = S·Sᵀ, subtract K·Pzz·Kᵀ (equal to
	// (K·Szz)(K·Szz)ᵀ), symmetrise and re-factorise. This resolves Open
	// Question 3 (see DESIGN.md) toward an exact, checked downdate rather
	// than the source's uncritical QR-of-augmented-matrix construction:
	// choleskyFactor's own re-symmetrise/jitter policy is the explicit
	// check, surfacing ErrNumericallyUnstable when the downdated
	// covariance is not recoverably positive-definite.
	var POld mat.Dense
	POld.Mul(S, S.T())
	var KPzz mat.Dense
	KPzz.Mul(&K, &PzzDense)
	var KPzzKt mat.Dense
	KPzzKt.Mul(&KPzz, K.T())
	var PNewDense mat.Dense
	PNewDense.Sub(&POld, &KPzzKt)
	PNewSym := symmetrize(&PNewDense, n)

	LNew, err := choleskyFactor(PNewSym)
	if err != nil {
		return nil, nil, wrapUnstable(trackID, "update: covariance downdate failed")
	}
	return xNew, LNew, nil
}

// weightedDeviations builds the n x k matrix of √(1/k)-scaled deviations
// from the mean, one column per point — the "weighted-deviation matrix"
// fed into the QR-based array update.
func weightedDeviations(pts []*mat.VecDense, mean *mat.VecDense, dim int) *mat.Dense {
	k := len(pts)
	w := 1 / math.Sqrt(float64(k))
	cols := mat.NewDense(dim, k, nil)
	for idx, p := range pts {
		for r := 0; r < dim; r++ {
			cols.Set(r, idx, w*(p.AtVec(r)-mean.AtVec(r)))
		}
	}
	return cols
}

// concatCols horizontally concatenates same-row-count matrices.
func concatCols(dim int, mats ...*mat.Dense) *mat.Dense {
	total := 0
	for _, mm := range mats {
		_, c := mm.Dims()
		total += c
	}
	out := mat.NewDense(dim, total, nil)
	offset := 0
	for _, mm := range mats {
		_, c := mm.Dims()
		for i := 0; i < dim; i++ {
			for j := 0; j < c; j++ {
				out.Set(i, offset+j, mm.At(i, j))
			}
		}
		offset += c
	}
	return out
}

// arrayFactor implements the QR-based "array" update: given columns (dim x
// k, k >= dim) to combine, form A = columnsᵀ, take R = the upper-triangular
// factor of QR(A), and return Rᵀ (sign-corrected to a positive diagonal) as
// the new Cholesky factor. Rᵀ·R = columns·columnsᵀ regardless of the QR
// implementation's sign convention, since RᵀR is invariant to flipping the
// sign of whole rows of R.
func arrayFactor(columns *mat.Dense, dim int) *mat.TriDense {
	var at mat.Dense
	at.CloneFrom(columns.T())

	var qr mat.QR
	qr.Factorize(&at)
	var rFull mat.Dense
	qr.RTo(&rFull)

	lFull := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			lFull.Set(i, j, rFull.At(j, i))
		}
	}

	tri := mat.NewTriDense(dim, mat.Lower, nil)
	for col := 0; col < dim; col++ {
		sign := 1.0
		if lFull.At(col, col) < 0 {
			sign = -1.0
		}
		for row := col; row < dim; row++ {
			tri.SetTri(row, col, sign*lFull.At(row, col))
		}
	}
	return tri
}
