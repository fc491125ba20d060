// Package verify implements the authenticity verification engine: the
// multi-factor scorer, the fraud-pattern heuristics over a producer's
// recent batches, and the consumer-facing facade that ties token decoding,
// ledger lookup, and scoring together.
package verify

import (
	"time"

	"herbledger/pkg/domain"
)

// Region is a known cultivation area. A GPS fix is plausible when it falls
// within RadiusKM of at least one region's center.
type Region struct {
	Name     string          `json:"name"`
	Center   domain.Location `json:"center"`
	RadiusKM float64         `json:"radius_km"`
}

// Season is an inclusive harvest window expressed in calendar months. A
// window may wrap the year end (e.g. November through February).
type Season struct {
	StartMonth time.Month `json:"start_month"`
	EndMonth   time.Month `json:"end_month"`
}

// Contains reports whether m falls inside the season window.
func (s Season) Contains(m time.Month) bool {
	if s.StartMonth <= s.EndMonth {
		return m >= s.StartMonth && m <= s.EndMonth
	}
	return m >= s.StartMonth || m <= s.EndMonth
}

// Config carries every tunable of the scorer and the pattern heuristics.
// The defaults mirror the demo calibration; revisit them against real
// fraud data before relying on the absolute values.
type Config struct {
	// Status thresholds on the final authenticity score.
	VerifiedThreshold   float64
	SuspiciousThreshold float64

	// Additive penalties, subtracted from a starting score of 1.0.
	HashMismatchPenalty      float64
	ExpiredPenalty           float64
	ImageQualityPenalty      float64
	SpeciesConfidencePenalty float64
	ContaminationPenalty     float64
	OutOfRegionPenalty       float64

	// Signal floors below which the corresponding penalty applies.
	ImageQualityFloor      float64
	SpeciesConfidenceFloor float64

	// Pattern weights, summed into the separate risk score.
	RapidCreationWeight    float64
	GPSJumpWeight          float64
	DuplicateContentWeight float64
	OffSeasonWeight        float64

	// Rapid creation fires above RapidCreationLimit batches within the
	// trailing RapidCreationWindow.
	RapidCreationLimit  int
	RapidCreationWindow time.Duration

	// GPS jump fires when adjacent batches are farther apart than
	// GPSJumpDistanceKM while created less than GPSJumpWindow apart.
	GPSJumpDistanceKM float64
	GPSJumpWindow     time.Duration

	KnownRegions []Region

	// HarvestSeasons maps herb type to its plausible harvest window. Herbs
	// without an entry skip the off-season check.
	HarvestSeasons map[string]Season
}

// DefaultConfig returns the standard calibration and the built-in known
// regions.
func DefaultConfig() Config {
	return Config{
		VerifiedThreshold:   0.8,
		SuspiciousThreshold: 0.5,

		HashMismatchPenalty:      0.4,
		ExpiredPenalty:           0.3,
		ImageQualityPenalty:      0.2,
		SpeciesConfidencePenalty: 0.3,
		ContaminationPenalty:     0.4,
		OutOfRegionPenalty:       0.3,

		ImageQualityFloor:      0.6,
		SpeciesConfidenceFloor: 0.7,

		RapidCreationWeight:    0.7,
		GPSJumpWeight:          0.8,
		DuplicateContentWeight: 0.9,
		OffSeasonWeight:        0.6,

		RapidCreationLimit:  10,
		RapidCreationWindow: 24 * time.Hour,

		GPSJumpDistanceKM: 100,
		GPSJumpWindow:     time.Hour,

		KnownRegions: []Region{
			{Name: "Delhi", Center: domain.Location{Latitude: 28.6139, Longitude: 77.2090}, RadiusKM: 100},
			{Name: "Mumbai", Center: domain.Location{Latitude: 19.0760, Longitude: 72.8777}, RadiusKM: 150},
			{Name: "Chennai", Center: domain.Location{Latitude: 13.0827, Longitude: 80.2707}, RadiusKM: 120},
		},
	}
}
