package track

import "gonum.org/v1/gonum/mat"

// MotionModel is the capability set a Track's filter needs from a motion
// model: state transition, observation projection, process-noise
// covariance as a function of elapsed time and an initial covariance.
// Implementations are stateless relative to any Track instance — all
// tunable parameters are fixed at construction (mirrors the Blob[B]
// generic-capability-set idiom, generalised to a plain interface since
// CKF/SR-CKF need runtime polymorphism across the model a Track holds).
type MotionModel interface {
	StateDim() int
	MeasurementDim() int
	Predict(x mat.Vector, dt float64) *mat.VecDense
	Observe(x mat.Vector) *mat.VecDense
	ProcessNoise(dt float64) *mat.SymDense
	InitialCovariance() *mat.SymDense
}

// setSymBlock writes scale*I3 into the 3x3 block of sym starting at
// (rowOffset, colOffset), relying on SymDense.SetSym to mirror the
// symmetric counterpart automatically.
func setSymBlock(sym *mat.SymDense, rowOffset, colOffset int, scale float64) {
	for i := 0; i < 3; i++ {
		sym.SetSym(rowOffset+i, colOffset+i, scale)
	}
}

// ConstantVelocityModel is the 6-D {position, velocity} motion model with a
// discrete white-noise-acceleration process-noise spectral density.
type ConstantVelocityModel struct {
	sigmaAcc float64
	sigmaPos float64
	sigmaVel float64
}

// NewConstantVelocityModel builds a CV model. sigmaAcc is the white-noise
// acceleration spectral density (σ_acc); sigmaPos/sigmaVel seed the
// initial covariance's position/velocity blocks.
func NewConstantVelocityModel(sigmaAcc, sigmaPos, sigmaVel float64) *ConstantVelocityModel {
	return &ConstantVelocityModel{sigmaAcc: sigmaAcc, sigmaPos: sigmaPos, sigmaVel: sigmaVel}
}

func (m *ConstantVelocityModel) StateDim() int       { return 6 }
func (m *ConstantVelocityModel) MeasurementDim() int { return 3 }

func (m *ConstantVelocityModel) Predict(x mat.Vector, dt float64) *mat.VecDense {
	out := mat.NewVecDense(6, nil)
	for i := 0; i < 3; i++ {
		out.SetVec(i, x.AtVec(i)+x.AtVec(i+3)*dt)
	}
	for i := 3; i < 6; i++ {
		out.SetVec(i, x.AtVec(i))
	}
	return out
}

func (m *ConstantVelocityModel) Observe(x mat.Vector) *mat.VecDense {
	out := mat.NewVecDense(3, nil)
	for i := 0; i < 3; i++ {
		out.SetVec(i, x.AtVec(i))
	}
	return out
}

// ProcessNoise returns Q(dt) = G*Gᵀ*q, G = [½dt²·I3; dt·I3], q = σ²_acc.
func (m *ConstantVelocityModel) ProcessNoise(dt float64) *mat.SymDense {
	q := m.sigmaAcc * m.sigmaAcc
	sym := mat.NewSymDense(6, nil)
	setSymBlock(sym, 0, 0, 0.25*dt*dt*dt*dt*q)
	setSymBlock(sym, 0, 3, 0.5*dt*dt*dt*q)
	setSymBlock(sym, 3, 3, dt*dt*q)
	return sym
}

func (m *ConstantVelocityModel) InitialCovariance() *mat.SymDense {
	sym := mat.NewSymDense(6, nil)
	setSymBlock(sym, 0, 0, m.sigmaPos*m.sigmaPos)
	setSymBlock(sym, 3, 3, m.sigmaVel*m.sigmaVel)
	return sym
}

// ConstantAccelerationModel is the 9-D {position, velocity, acceleration}
// motion model with a discrete white-noise-jerk process-noise spectral
// density.
type ConstantAccelerationModel struct {
	sigmaJerk float64
	sigmaPos  float64
	sigmaVel  float64
	sigmaAcc  float64
}

// NewConstantAccelerationModel builds a CA model. sigmaJerk is the
// white-noise jerk spectral density (σ_jerk); the remaining three seed the
// initial covariance's position/velocity/acceleration blocks.
func NewConstantAccelerationModel(sigmaJerk, sigmaPos, sigmaVel, sigmaAcc float64) *ConstantAccelerationModel {
	return &ConstantAccelerationModel{sigmaJerk: sigmaJerk, sigmaPos: sigmaPos, sigmaVel: sigmaVel, sigmaAcc: sigmaAcc}
}

func (m *ConstantAccelerationModel) StateDim() int       { return 9 }
func (m *ConstantAccelerationModel) MeasurementDim() int { return 3 }

func (m *ConstantAccelerationModel) Predict(x mat.Vector, dt float64) *mat.VecDense {
	out := mat.NewVecDense(9, nil)
	for i := 0; i < 3; i++ {
		p := x.AtVec(i)
		v := x.AtVec(i + 3)
		a := x.AtVec(i + 6)
		out.SetVec(i, p+v*dt+0.5*a*dt*dt)
		out.SetVec(i+3, v+a*dt)
		out.SetVec(i+6, a)
	}
	return out
}

func (m *ConstantAccelerationModel) Observe(x mat.Vector) *mat.VecDense {
	out := mat.NewVecDense(3, nil)
	for i := 0; i < 3; i++ {
		out.SetVec(i, x.AtVec(i))
	}
	return out
}

// ProcessNoise returns the 9x9 white-noise-jerk block matrix: the standard
// dt^5/20, dt^4/8, dt^3/6, dt^3/3, dt^2/2, dt coefficients on the
// position/velocity/acceleration blocks, scaled by σ²_jerk.
func (m *ConstantAccelerationModel) ProcessNoise(dt float64) *mat.SymDense {
	q := m.sigmaJerk * m.sigmaJerk
	dt2 := dt * dt
	dt3 := dt2 * dt
	dt4 := dt3 * dt
	dt5 := dt4 * dt
	sym := mat.NewSymDense(9, nil)
	setSymBlock(sym, 0, 0, dt5/20*q) // pos-pos
	setSymBlock(sym, 0, 3, dt4/8*q)  // pos-vel
	setSymBlock(sym, 0, 6, dt3/6*q)  // pos-acc
	setSymBlock(sym, 3, 3, dt3/3*q)  // vel-vel
	setSymBlock(sym, 3, 6, dt2/2*q)  // vel-acc
	setSymBlock(sym, 6, 6, dt*q)     // acc-acc
	return sym
}

func (m *ConstantAccelerationModel) InitialCovariance() *mat.SymDense {
	sym := mat.NewSymDense(9, nil)
	setSymBlock(sym, 0, 0, m.sigmaPos*m.sigmaPos)
	setSymBlock(sym, 3, 3, m.sigmaVel*m.sigmaVel)
	setSymBlock(sym, 6, 6, m.sigmaAcc*m.sigmaAcc)
	return sym
}
