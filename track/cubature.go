package track

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// cubaturePoints generates the 2n deterministic cubature points for mean x
// and square-root factor L (P = L*Lᵀ): ξᵢ = x + √n·L·eᵢ, ξ_{n+i} = x − √n·L·eᵢ.
// Weights are implicitly equal (1/(2n)), carried by the caller.
func cubaturePoints(x mat.Vector, L mat.Matrix) []*mat.VecDense {
	n := x.Len()
	sqrtN := math.Sqrt(float64(n))
	pts := make([]*mat.VecDense, 2*n)
	col := make([]float64, n)
	for i := 0; i < n; i++ {
		mat.Col(col, i, L)
		plus := mat.NewVecDense(n, nil)
		minus := mat.NewVecDense(n, nil)
		for j := 0; j < n; j++ {
			d := sqrtN * col[j]
			plus.SetVec(j, x.AtVec(j)+d)
			minus.SetVec(j, x.AtVec(j)-d)
		}
		pts[i] = plus
		pts[n+i] = minus
	}
	return pts
}

// vecMean is the arithmetic mean of equally-weighted vectors.
func vecMean(pts []*mat.VecDense, dim int) *mat.VecDense {
	sum := mat.NewVecDense(dim, nil)
	for _, p := range pts {
		sum.AddVec(sum, p)
	}
	mean := mat.NewVecDense(dim, nil)
	mean.ScaleVec(1/float64(len(pts)), sum)
	return mean
}

// outerCovariance returns Σ (pᵢ-mean)(pᵢ-mean)ᵀ / len(pts), symmetrised.
func outerCovariance(pts []*mat.VecDense, mean *mat.VecDense, dim int) *mat.SymDense {
	acc := mat.NewDense(dim, dim, nil)
	diff := mat.NewVecDense(dim, nil)
	var outer mat.Dense
	outer.Reset()
	for _, p := range pts {
		diff.SubVec(p, mean)
		outer.Outer(1, diff, diff)
		acc.Add(acc, &outer)
	}
	acc.Scale(1/float64(len(pts)), acc)
	return symmetrize(acc, dim)
}

// crossCovariance returns Σ (xᵢ-xmean)(zᵢ-zmean)ᵀ / len(xpts).
func crossCovariance(xpts []*mat.VecDense, xmean *mat.VecDense, zpts []*mat.VecDense, zmean *mat.VecDense, n, m int) *mat.Dense {
	acc := mat.NewDense(n, m, nil)
	dx := mat.NewVecDense(n, nil)
	dz := mat.NewVecDense(m, nil)
	var outer mat.Dense
	for i := range xpts {
		dx.SubVec(xpts[i], xmean)
		dz.SubVec(zpts[i], zmean)
		outer.Outer(1, dx, dz)
		acc.Add(acc, &outer)
	}
	acc.Scale(1/float64(len(xpts)), acc)
	return acc
}

// symmetrize averages d with its transpose and returns the result as a
// SymDense, masking the asymmetry that floating-point summation introduces.
func symmetrize(d mat.Matrix, dim int) *mat.SymDense {
	sym := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			sym.SetSym(i, j, (d.At(i, j)+d.At(j, i))/2)
		}
	}
	return sym
}

// choleskyFactor recovers the lower-triangular Cholesky factor of P,
// following the numerical policy of §4.2: re-symmetrise on first failure,
// then retry with trace-adaptive jitter added to the diagonal. Returns
// ErrNumericallyUnstable if P still will not factorise.
func choleskyFactor(P *mat.SymDense) (*mat.TriDense, error) {
	n := P.SymmetricDim()
	var chol mat.Cholesky
	if chol.Factorize(P) {
		var L mat.TriDense
		chol.LTo(&L)
		return &L, nil
	}

	sym := symmetrize(P, n)
	if chol.Factorize(sym) {
		var L mat.TriDense
		chol.LTo(&L)
		return &L, nil
	}

	trace := mat.Trace(sym)
	eps := math.Abs(trace) / float64(n) * 1e-6
	if eps <= 0 {
		eps = 1e-9
	}
	for attempt := 0; attempt < 6; attempt++ {
		jittered := mat.NewSymDense(n, nil)
		jittered.CopySym(sym)
		for i := 0; i < n; i++ {
			jittered.SetSym(i, i, jittered.At(i, i)+eps)
		}
		if chol.Factorize(jittered) {
			var L mat.TriDense
			chol.LTo(&L)
			return &L, nil
		}
		eps *= 10
	}
	return nil, ErrNumericallyUnstable
}
