package track

import "gonum.org/v1/gonum/mat"

// Filter is the predict/update contract shared by CKF and SR-CKF; a Track
// holds one Filter and one MotionModel, feeding its stored covariance
// representation through on every call. cov/returned cov are *mat.SymDense
// for CKF and *mat.TriDense (a Cholesky factor) for SR-CKF — Track never
// inspects the concrete type, it only round-trips whatever its Filter hands
// back.
type Filter interface {
	Predict(x *mat.VecDense, cov mat.Matrix, model MotionModel, dt float64, trackID int) (*mat.VecDense, mat.Matrix, error)
	Update(x *mat.VecDense, cov mat.Matrix, model MotionModel, z *mat.VecDense, R *mat.SymDense, trackID int) (*mat.VecDense, mat.Matrix, error)
}

// CKF is the full-covariance Cubature Kalman Filter.
type CKF struct{}

func (CKF) Predict(x *mat.VecDense, cov mat.Matrix, model MotionModel, dt float64, trackID int) (*mat.VecDense, mat.Matrix, error) {
	P := cov.(*mat.SymDense)
	n := model.StateDim()
	L, err := choleskyFactor(P)
	if err != nil {
		return nil, nil, wrapUnstable(trackID, "predict: cholesky of P failed")
	}

	pts := cubaturePoints(x, L)
	for i, pt := range pts {
		pts[i] = model.Predict(pt, dt)
	}
	xPred := vecMean(pts, n)
	PPred := outerCovariance(pts, xPred, n)

	Q := model.ProcessNoise(dt)
	var sum mat.SymDense
	sum.AddSym(PPred, Q)
	return xPred, &sum, nil
}

func (CKF) Update(x *mat.VecDense, cov mat.Matrix, model MotionModel, z *mat.VecDense, R *mat.SymDense, trackID int) (*mat.VecDense, mat.Matrix, error) {
	P := cov.(*mat.SymDense)
	n := model.StateDim()
	m := model.MeasurementDim()
	L, err := choleskyFactor(P)
	if err != nil {
		return nil, nil, wrapUnstable(trackID, "update: cholesky of P failed")
	}

	xpts := cubaturePoints(x, L)
	zpts := make([]*mat.VecDense, len(xpts))
	for i, pt := range xpts {
		zpts[i] = model.Observe(pt)
	}
	zPred := vecMean(zpts, m)

	Pzz := outerCovariance(zpts, zPred, m)
	var PzzR mat.SymDense
	PzzR.AddSym(Pzz, R)

	Pxz := crossCovariance(xpts, x, zpts, zPred, n, m)

	var chol mat.Cholesky
	if !chol.Factorize(&PzzR) {
		return nil, nil, wrapUnstable(trackID, "update: cholesky of Pzz failed")
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

	var KPzz mat.Dense
	KPzz.Mul(&K, &PzzR)
	var KPzzKt mat.Dense
	KPzzKt.Mul(&KPzz, K.T())

	var PNewDense mat.Dense
	PNewDense.Sub(P, &KPzzKt)
	PNew := symmetrize(&PNewDense, n)

	return xNew, PNew, nil
}
