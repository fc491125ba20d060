package verify

import (
	"sort"

	"herbledger/pkg/domain"
)

// Pattern names reported alongside the risk score.
const (
	PatternRapidCreation    = "rapid_creation"
	PatternGPSJump          = "gps_jump"
	PatternDuplicateContent = "duplicate_content"
	PatternOffSeason        = "off_season"
)

// detectPatterns runs the independent fraud heuristics over the producer's
// recent batch window. Weights of every fired pattern sum into the risk
// score, capped at 1.0. The evaluated batch participates in the window
// whether or not the caller included it.
func (s *Scorer) detectPatterns(batch domain.Batch, window []domain.Batch) (float64, []string) {
	batches := make([]domain.Batch, 0, len(window)+1)
	seen := false
	for _, b := range window {
		if b.BatchID == batch.BatchID {
			seen = true
		}
		batches = append(batches, b)
	}
	if !seen {
		batches = append(batches, batch)
	}
	sort.Slice(batches, func(i, j int) bool {
		return batches[i].CreatedAt.Before(batches[j].CreatedAt)
	})

	var risk float64
	var patterns []string

	if s.rapidCreation(batches) {
		risk += s.cfg.RapidCreationWeight
		patterns = append(patterns, PatternRapidCreation)
	}
	if s.gpsJump(batches) {
		risk += s.cfg.GPSJumpWeight
		patterns = append(patterns, PatternGPSJump)
	}
	if duplicateContent(batches) {
		risk += s.cfg.DuplicateContentWeight
		patterns = append(patterns, PatternDuplicateContent)
	}
	if s.offSeason(batch) {
		risk += s.cfg.OffSeasonWeight
		patterns = append(patterns, PatternOffSeason)
	}

	if risk > 1 {
		risk = 1
	}
	return risk, patterns
}

// rapidCreation fires when more than the configured limit of batches were
// created within the trailing window.
func (s *Scorer) rapidCreation(batches []domain.Batch) bool {
	cutoff := s.nowFn().Add(-s.cfg.RapidCreationWindow)
	count := 0
	for _, b := range batches {
		if !b.CreatedAt.Before(cutoff) {
			count++
		}
	}
	return count > s.cfg.RapidCreationLimit
}

// gpsJump fires when any two temporally-adjacent batches are farther apart
// than the configured distance while created closer together in time than
// the configured window. Batches are already sorted by creation time.
func (s *Scorer) gpsJump(batches []domain.Batch) bool {
	for i := 1; i < len(batches); i++ {
		gap := batches[i].CreatedAt.Sub(batches[i-1].CreatedAt)
		if gap >= s.cfg.GPSJumpWindow {
			continue
		}
		if haversineKM(batches[i-1].Location, batches[i].Location) > s.cfg.GPSJumpDistanceKM {
			return true
		}
	}
	return false
}

// duplicateContent fires when any content reference appears in more than
// one batch in the window.
func duplicateContent(batches []domain.Batch) bool {
	owners := make(map[string]string)
	for _, b := range batches {
		for _, ref := range b.ContentRefs {
			if owner, ok := owners[ref]; ok && owner != b.BatchID {
				return true
			}
			owners[ref] = b.BatchID
		}
	}
	return false
}

// offSeason fires when the herb has a configured harvest season and the
// declared harvest date falls outside it.
func (s *Scorer) offSeason(batch domain.Batch) bool {
	season, ok := s.cfg.HarvestSeasons[batch.HerbType]
	if !ok {
		return false
	}
	return !season.Contains(batch.HarvestDate.Month())
}
