package worker

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/LdDl/ckf-tracker/track"
)

// inputMessage mirrors the ingested wire shape of SPEC_FULL.md §6:
// { "ObserverId": <int>, "Timestamp": <float>, "Position": {"x","y","z"} }.
// Pointer fields distinguish "absent" from "present and zero".
type inputMessage struct {
	ObserverID *int      `json:"ObserverId"`
	Timestamp  *float64  `json:"Timestamp"`
	Position   *inputXYZ `json:"Position"`
}

type inputXYZ struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

// parseMeasurement decodes raw into a track.Measurement. A missing
// ObserverId returns errMissingObserverID so the caller can drop it
// silently; any other parse/type/completeness error is returned for the
// caller to log before dropping (SPEC_FULL.md §7).
func parseMeasurement(raw []byte) (track.Measurement, error) {
	var msg inputMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return track.Measurement{}, errors.Wrap(err, "worker: parse measurement")
	}
	if msg.ObserverID == nil {
		return track.Measurement{}, errMissingObserverID
	}
	if msg.Timestamp == nil {
		return track.Measurement{}, errors.New("worker: measurement missing Timestamp")
	}
	if msg.Position == nil || msg.Position.X == nil || msg.Position.Y == nil || msg.Position.Z == nil {
		return track.Measurement{}, errors.New("worker: measurement missing Position")
	}
	return track.Measurement{
		Position:   [3]float64{*msg.Position.X, *msg.Position.Y, *msg.Position.Z},
		Timestamp:  *msg.Timestamp,
		ObserverID: *msg.ObserverID,
	}, nil
}

// xyz is the {"x":_, "y":_, "z":_} shape shared by position, velocity and
// future_trajectory entries in the published report.
type xyz struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// outputTrack is one entry of the published report's "tracks" array
// (SPEC_FULL.md §6).
type outputTrack struct {
	ID               int   `json:"id"`
	Hits             int   `json:"hits"`
	Position         xyz   `json:"position"`
	Velocity         xyz   `json:"velocity"`
	FutureTrajectory []xyz `json:"future_trajectory"`
}

// outputMessage is the full per-cycle report published when at least one
// confirmed track exists.
type outputMessage struct {
	Timestamp string        `json:"timestamp"`
	Tracks    []outputTrack `json:"tracks"`
}
