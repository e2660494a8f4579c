package track

import "math"

// Measurement is an immutable 3D position reading tagged with the wall-clock
// time it was taken and the observer that produced it. Observer id is
// carried as metadata only; it never partitions tracks (see DESIGN.md,
// Open Question 1).
type Measurement struct {
	Position   [3]float64
	Timestamp  float64
	ObserverID int
}

// X, Y, Z are convenience accessors mirroring the Position.{x,y,z} wire shape.
func (m Measurement) X() float64 { return m.Position[0] }
func (m Measurement) Y() float64 { return m.Position[1] }
func (m Measurement) Z() float64 { return m.Position[2] }

func euclidean3(a, b [3]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
