package track

import "github.com/pkg/errors"

// ErrNumericallyUnstable is returned when a filter's covariance
// representation could not be recovered (Cholesky/QR failure surviving
// re-symmetrisation and jitter). Callers should skip the affected
// predict/update and count it as a miss; it is never fatal.
var ErrNumericallyUnstable = errors.New("track: numerically unstable covariance")

// ErrTrackNotFound is returned when an operation references a track id
// that is no longer present in the manager, typically a benign race
// against concurrent deletion.
var ErrTrackNotFound = errors.New("track: not found")

// wrapUnstable attaches a track id to ErrNumericallyUnstable, keeping
// errors.Is(err, ErrNumericallyUnstable) true for callers further up the stack.
func wrapUnstable(trackID int, detail string) error {
	return errors.Wrapf(ErrNumericallyUnstable, "track %d: %s", trackID, detail)
}

// wrapNotFound attaches a track id to ErrTrackNotFound, keeping
// errors.Is(err, ErrTrackNotFound) true for callers further up the stack.
func wrapNotFound(trackID int) error {
	return errors.Wrapf(ErrTrackNotFound, "track %d", trackID)
}
