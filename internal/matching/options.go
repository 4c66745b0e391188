package matching

import (
	"math"

	"github.com/medishift/mission-matcher/internal/model"
)

const (
	MinRadiusKm = 1
	MaxRadiusKm = 200

	DefaultLimit = 10
	MinLimit     = 1
	MaxLimit     = 50
)

// Options are the caller-supplied search overrides. Nil means "not provided".
type Options struct {
	// Skills replaces the mission's required skills when non-nil. An empty
	// non-nil slice means "no skill requirement".
	Skills   []string
	RadiusKm *float64
	Limit    *int
}

// EffectiveRadius returns the clamped override, or the mission radius, or
// the default radius. A NaN override counts as absent.
func EffectiveRadius(m *model.Mission, override *float64) float64 {
	if override != nil && !math.IsNaN(*override) {
		return clampFloat(*override, MinRadiusKm, MaxRadiusKm)
	}
	if m != nil && m.RadiusKm > 0 {
		return float64(m.RadiusKm)
	}
	return model.DefaultRadiusKm
}

// EffectiveLimit returns the clamped override or DefaultLimit.
func EffectiveLimit(override *int) int {
	if override == nil {
		return DefaultLimit
	}
	return clampInt(*override, MinLimit, MaxLimit)
}

// EffectiveSkills returns the override when provided, else the mission's
// required skills.
func EffectiveSkills(m *model.Mission, override []string) []string {
	if override != nil {
		return override
	}
	if m == nil {
		return nil
	}
	return m.RequiredSkills
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
