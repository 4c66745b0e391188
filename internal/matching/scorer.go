package matching

import (
	"fmt"
	"math"

	"github.com/medishift/mission-matcher/internal/model"
)

const maxRating = 5.0

// Weights are the points each component can contribute. They must sum to 100.
type Weights struct {
	Distance     int `mapstructure:"distance" json:"distance"`
	Skills       int `mapstructure:"skills" json:"skills"`
	Rating       int `mapstructure:"rating" json:"rating"`
	Experience   int `mapstructure:"experience" json:"experience"`
	Availability int `mapstructure:"availability" json:"availability"`
}

func DefaultWeights() Weights {
	return Weights{
		Distance:     35,
		Skills:       30,
		Rating:       15,
		Experience:   10,
		Availability: 10,
	}
}

func (w Weights) Sum() int {
	return w.Distance + w.Skills + w.Rating + w.Experience + w.Availability
}

func (w Weights) Validate() error {
	for name, v := range map[string]int{
		"distance":     w.Distance,
		"skills":       w.Skills,
		"rating":       w.Rating,
		"experience":   w.Experience,
		"availability": w.Availability,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must not be negative, got %d", name, v)
		}
	}
	if w.Skills == 0 {
		return fmt.Errorf("weight skills must be positive, otherwise skill overlap cannot change the ranking")
	}
	if sum := w.Sum(); sum != 100 {
		return fmt.Errorf("weights must sum to 100, got %d", sum)
	}
	return nil
}

// ScoringPolicy holds the non-weight knobs of the scorer.
type ScoringPolicy struct {
	// UnavailableCap is the highest score an unavailable candidate can get.
	UnavailableCap int `mapstructure:"unavailable-cap"`
	// ExperienceSaturation is the mission count at which experience stops adding points.
	ExperienceSaturation int `mapstructure:"experience-saturation"`
	// NewcomerFloor is the minimum experience sub-score, in [0,1].
	NewcomerFloor float64 `mapstructure:"newcomer-floor"`
}

func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		UnavailableCap:       50,
		ExperienceSaturation: 20,
		NewcomerFloor:        0,
	}
}

func (p ScoringPolicy) Validate() error {
	if p.UnavailableCap < 0 || p.UnavailableCap > 100 {
		return fmt.Errorf("unavailable cap must be within [0,100], got %d", p.UnavailableCap)
	}
	if p.ExperienceSaturation < 1 {
		return fmt.Errorf("experience saturation must be at least 1, got %d", p.ExperienceSaturation)
	}
	if p.NewcomerFloor < 0 || p.NewcomerFloor > 1 {
		return fmt.Errorf("newcomer floor must be within [0,1], got %v", p.NewcomerFloor)
	}
	return nil
}

// Breakdown explains a score. Component values are in [0,1].
type Breakdown struct {
	Distance      float64  `json:"distance"`
	Skills        float64  `json:"skills"`
	Rating        float64  `json:"rating"`
	Experience    float64  `json:"experience"`
	Availability  float64  `json:"availability"`
	MatchedSkills []string `json:"matchedSkills,omitempty"`
	Capped        bool     `json:"capped,omitempty"`
	Score         int      `json:"score"`
}

// Input is everything a score depends on.
type Input struct {
	Mission    *model.Mission
	Candidate  *model.CandidateProfile
	DistanceKm float64
	RadiusKm   float64
	Skills     []string
}

// Scorer computes deterministic match scores.
type Scorer struct {
	weights Weights
	policy  ScoringPolicy
}

func NewScorer(weights Weights, policy ScoringPolicy) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: weights, policy: policy}, nil
}

func (s *Scorer) Weights() Weights { return s.weights }

// Score rates a candidate against a mission using the mission's own radius
// and required skills.
func (s *Scorer) Score(m *model.Mission, c *model.CandidateProfile, distanceKm float64) int {
	return s.Evaluate(Input{
		Mission:    m,
		Candidate:  c,
		DistanceKm: distanceKm,
		RadiusKm:   EffectiveRadius(m, nil),
		Skills:     EffectiveSkills(m, nil),
	}).Score
}

// Evaluate returns the score with its per-component breakdown.
func (s *Scorer) Evaluate(in Input) Breakdown {
	var b Breakdown

	b.Distance = distanceScore(in.DistanceKm, in.RadiusKm)
	b.Skills, b.MatchedSkills = s.skillsScore(in)
	b.Rating = clampFloat(in.Candidate.AverageRating/maxRating, 0, 1)
	b.Experience = s.experienceScore(in.Candidate.TotalMissions)
	if in.Candidate.IsAvailable {
		b.Availability = 1
	}

	w := s.weights
	total := float64(w.Distance)*b.Distance +
		float64(w.Skills)*b.Skills +
		float64(w.Rating)*b.Rating +
		float64(w.Experience)*b.Experience +
		float64(w.Availability)*b.Availability

	score := clampInt(int(math.Round(total)), 0, 100)
	if !in.Candidate.IsAvailable && score > s.policy.UnavailableCap {
		score = s.policy.UnavailableCap
		b.Capped = true
	}
	b.Score = score

	return b
}

func distanceScore(distanceKm, radiusKm float64) float64 {
	if radiusKm <= 0 {
		radiusKm = model.DefaultRadiusKm
	}
	return clampFloat(1-distanceKm/radiusKm, 0, 1)
}

func (s *Scorer) skillsScore(in Input) (float64, []string) {
	var required []string
	if in.Mission != nil {
		required = in.Mission.RequiredDiplomas
	}

	matchedSkills, totalSkills := overlap(in.Skills, newTagSet(in.Candidate.Specialties))
	matchedDiplomas, totalDiplomas := overlap(required, newTagSet(in.Candidate.DiplomaNames()))

	total := totalSkills + totalDiplomas
	if total == 0 {
		return 1, nil
	}

	matched := append(matchedSkills, matchedDiplomas...)
	return float64(len(matched)) / float64(total), matched
}

// experienceScore grows with every completed mission and reaches 1 at the
// saturation count.
func (s *Scorer) experienceScore(totalMissions int) float64 {
	v := 0.0
	if totalMissions > 0 {
		v = math.Log1p(float64(totalMissions)) / math.Log1p(float64(s.policy.ExperienceSaturation))
	}
	return clampFloat(math.Max(v, s.policy.NewcomerFloor), 0, 1)
}

// SkillOverlap returns how many of the required skills the candidate has.
func SkillOverlap(required []string, c *model.CandidateProfile) int {
	matched, _ := overlap(required, newTagSet(c.Specialties))
	return len(matched)
}
