// Package config loads the typed, read-only parameter bundle spec.md §1
// treats as an external collaborator, supplemented per SPEC_FULL.md §6:
// YAML via gopkg.in/yaml.v3 (grounded on machbase-neo-server's use of the
// same library), default-write-back on a missing or unreadable file
// (spec.md §7, mirroring the QSettings default-value idiom used throughout
// original_source/Core/*.cpp).
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// General holds process-wide tunables.
type General struct {
	WorkerInterval int `yaml:"workerInterval"` // ms
}

// HealthCheck holds the health endpoint's tunables.
type HealthCheck struct {
	Port int `yaml:"port"`
}

// KalmanFilter holds every filter/model/association tunable spec.md §6
// names.
type KalmanFilter struct {
	ProcessNoiseStd                float64 `yaml:"processNoiseStd"`    // CV sigma_acc
	ProcessNoiseStdCA              float64 `yaml:"processNoiseStd_CA"` // CA sigma_jerk
	MeasurementNoiseStd            float64 `yaml:"measurementNoiseStd"`
	InitialPositionUncertainty     float64 `yaml:"initialPositionUncertainty"`
	InitialVelocityUncertainty     float64 `yaml:"initialVelocityUncertainty"`
	InitialAccelerationUncertainty float64 `yaml:"initialAccelerationUncertainty"`
	AssociationGateDistance        float64 `yaml:"associationGateDistance"`
	NewTrackGateDistance           float64 `yaml:"newTrackGateDistance"`
	ConfirmationHits                int    `yaml:"confirmationHits"`
	MaxMissesToDelete               int    `yaml:"maxMissesToDelete"`
	UseSquareRoot                   bool   `yaml:"useSquareRoot"` // select SR-CKF over CKF
}

// Logging holds the applog rotating-writer tunables.
type Logging struct {
	Path       string `yaml:"path"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// Transport selects and configures the transport adapter.
type Transport struct {
	Kind    string `yaml:"kind"` // "loopback" or "ndjson"
	Address string `yaml:"address"`
}

// Config is the full, read-only parameter bundle read at startup.
type Config struct {
	General      General      `yaml:"general"`
	HealthCheck  HealthCheck  `yaml:"healthCheck"`
	KalmanFilter KalmanFilter `yaml:"kalmanFilter"`
	Logging      Logging      `yaml:"logging"`
	Transport    Transport    `yaml:"transport"`
}

// Default returns the parameter bundle with every default from spec.md §6.
func Default() *Config {
	return &Config{
		General:     General{WorkerInterval: 100},
		HealthCheck: HealthCheck{Port: 8899},
		KalmanFilter: KalmanFilter{
			ProcessNoiseStd:                5.0,
			ProcessNoiseStdCA:              1.0,
			MeasurementNoiseStd:            2.0,
			InitialPositionUncertainty:     10.0,
			InitialVelocityUncertainty:     10.0,
			InitialAccelerationUncertainty: 10.0,
			AssociationGateDistance:        10.0,
			NewTrackGateDistance:           5.0,
			ConfirmationHits:               3,
			MaxMissesToDelete:              5,
			UseSquareRoot:                  false,
		},
		Logging: Logging{
			Path:       "trackerd.log",
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
			Compress:   true,
		},
		Transport: Transport{Kind: "loopback"},
	}
}

// Load reads path as YAML. If the file is missing or unreadable, Load logs
// at warn via logf (nil-safe), writes Default() to path, and returns it —
// spec.md §7's "Configuration file missing/unreadable — write defaults and
// proceed".
func Load(path string, logf func(format string, args ...any)) *Config {
	warn := func(format string, args ...any) {
		if logf != nil {
			logf(format, args...)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		warn("config: %q unreadable (%v), writing defaults", path, err)
		cfg := Default()
		writeBack(path, cfg, warn)
		return cfg
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		warn("config: %q malformed (%v), writing defaults", path, err)
		cfg = Default()
		writeBack(path, cfg, warn)
		return cfg
	}
	return cfg
}

func writeBack(path string, cfg *Config, warn func(format string, args ...any)) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		warn("config: failed to marshal defaults: %v", err)
		return
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		warn("config: failed to write defaults to %q: %v", path, err)
	}
}
