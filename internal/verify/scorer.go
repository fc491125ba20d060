package verify

import (
	"fmt"
	"time"

	"herbledger/internal/integrity"
	"herbledger/internal/token"
	"herbledger/pkg/domain"
)

// Status classifies the final authenticity score.
type Status string

// Verification statuses, from trusted to rejected.
const (
	StatusVerified   Status = "verified"
	StatusSuspicious Status = "suspicious"
	StatusInvalid    Status = "invalid"
)

// Signals is the externally-supplied evidence bundle. Every field is
// optional; an absent signal skips its sub-check instead of penalizing.
type Signals struct {
	ImageQuality          *float64
	SpeciesConfidence     *float64
	ContaminationDetected *bool
	GPSCoordinates        *domain.Location
	// RecentBatchWindow holds prior batches from the same producer for the
	// pattern heuristics. Order does not matter; the scorer sorts by
	// creation time.
	RecentBatchWindow []domain.Batch
}

// Assessment is the scorer's verdict: the clamped authenticity score with
// its status and warning trail, plus the independent pattern risk score.
type Assessment struct {
	Score     float64  `json:"score"`
	Status    Status   `json:"status"`
	Warnings  []string `json:"warnings"`
	RiskScore float64  `json:"risk_score"`
	Patterns  []string `json:"patterns,omitempty"`
}

// Scorer computes authenticity assessments from a token, the current batch
// state, and the signal bundle.
type Scorer struct {
	cfg   Config
	nowFn func() time.Time
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithConfig replaces the default calibration.
func WithConfig(cfg Config) ScorerOption {
	return func(s *Scorer) {
		s.cfg = cfg
	}
}

// WithNowFunc injects the clock. Intended for deterministic tests.
func WithNowFunc(fn func() time.Time) ScorerOption {
	return func(s *Scorer) {
		if fn != nil {
			s.nowFn = fn
		}
	}
}

// NewScorer constructs a scorer with the default calibration.
func NewScorer(opts ...ScorerOption) *Scorer {
	s := &Scorer{
		cfg:   DefaultConfig(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the scorer's active calibration.
func (s *Scorer) Config() Config {
	return s.cfg
}

// NotFoundAssessment is the fixed verdict for a token referencing an
// unknown batch: no partial scoring is attempted.
func NotFoundAssessment() Assessment {
	return Assessment{
		Score:    0,
		Status:   StatusInvalid,
		Warnings: []string{"batch not found"},
	}
}

// Score evaluates every sub-check in a fixed order so the warning list is
// deterministic: hash match, expiry, image quality, species confidence,
// contamination, GPS plausibility, then the pattern heuristics.
func (s *Scorer) Score(tok token.Token, batch domain.Batch, signals Signals) (Assessment, error) {
	score := 1.0
	var warnings []string

	digest, err := integrity.BatchDigest(batch)
	if err != nil {
		return Assessment{}, fmt.Errorf("recompute integrity hash: %w", err)
	}
	if digest != tok.IntegrityHash {
		score -= s.cfg.HashMismatchPenalty
		warnings = append(warnings, "integrity hash mismatch: batch content changed since token was issued")
	}

	if tok.ExpiresAt.Before(s.nowFn()) {
		score -= s.cfg.ExpiredPenalty
		warnings = append(warnings, "token expired")
	}

	if signals.ImageQuality != nil && *signals.ImageQuality < s.cfg.ImageQualityFloor {
		score -= s.cfg.ImageQualityPenalty
		warnings = append(warnings, fmt.Sprintf("image quality %.2f below threshold %.2f", *signals.ImageQuality, s.cfg.ImageQualityFloor))
	}

	if signals.SpeciesConfidence != nil && *signals.SpeciesConfidence < s.cfg.SpeciesConfidenceFloor {
		score -= s.cfg.SpeciesConfidencePenalty
		warnings = append(warnings, fmt.Sprintf("species confidence %.2f below threshold %.2f", *signals.SpeciesConfidence, s.cfg.SpeciesConfidenceFloor))
	}

	if signals.ContaminationDetected != nil && *signals.ContaminationDetected {
		score -= s.cfg.ContaminationPenalty
		warnings = append(warnings, "contamination detected")
	}

	if signals.GPSCoordinates != nil && !insideKnownRegion(s.cfg.KnownRegions, *signals.GPSCoordinates) {
		score -= s.cfg.OutOfRegionPenalty
		warnings = append(warnings, "gps coordinates outside all known cultivation regions")
	}

	if score < 0 {
		score = 0
	}

	riskScore, patterns := s.detectPatterns(batch, signals.RecentBatchWindow)

	return Assessment{
		Score:     score,
		Status:    s.statusFor(score),
		Warnings:  warnings,
		RiskScore: riskScore,
		Patterns:  patterns,
	}, nil
}

func (s *Scorer) statusFor(score float64) Status {
	switch {
	case score >= s.cfg.VerifiedThreshold:
		return StatusVerified
	case score >= s.cfg.SuspiciousThreshold:
		return StatusSuspicious
	default:
		return StatusInvalid
	}
}
