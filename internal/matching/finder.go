// Package matching finds and ranks candidates for a staffing mission.
//
// A search loads the mission, pre-filters the candidate pool with a bounding
// box, runs the step pipeline (coordinates, radius, availability, skills),
// scores the survivors and returns them best first.
package matching

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/medishift/mission-matcher/internal/geo"
	"github.com/medishift/mission-matcher/internal/logger"
	"github.com/medishift/mission-matcher/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MissionReader loads missions. A missing mission is reported with an error
// wrapping model.ErrMissionNotFound.
type MissionReader interface {
	GetMission(ctx context.Context, id string) (*model.Mission, error)
}

// PoolQuery narrows the candidate pool at the data layer. The box is a
// superset of the search circle.
type PoolQuery struct {
	Box           geo.Box
	OnlyAvailable bool
}

// CandidatePool lists candidate profiles.
type CandidatePool interface {
	ListCandidates(ctx context.Context, q PoolQuery) ([]*model.CandidateProfile, error)
}

// FinderPolicy holds the tunable behaviour of the finder.
type FinderPolicy struct {
	ExcludeUnavailable  bool `mapstructure:"exclude-unavailable"`
	RequireSkillOverlap bool `mapstructure:"require-skill-overlap"`
	Workers             int  `mapstructure:"workers"`
}

// CandidateResult is one ranked candidate as exposed to callers.
type CandidateResult struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	FirstName     string          `json:"firstName"`
	LastName      string          `json:"lastName"`
	AvatarURL     string          `json:"avatarUrl,omitempty"`
	Headline      string          `json:"headline,omitempty"`
	Specialties   []string        `json:"specialties"`
	Diplomas      []model.Diploma `json:"diplomas"`
	HourlyRate    float64         `json:"hourlyRate"`
	AverageRating float64         `json:"averageRating"`
	TotalMissions int             `json:"totalMissions"`
	Distance      float64         `json:"distance"`
	MatchScore    int             `json:"matchScore"`
	IsAvailable   bool            `json:"isAvailable"`
	Breakdown     *Breakdown      `json:"breakdown,omitempty"`
}

// Result is the outcome of one search.
type Result struct {
	MissionID    string            `json:"-"`
	Candidates   []CandidateResult `json:"candidates"`
	TotalFound   int               `json:"totalFound"`
	SearchRadius float64           `json:"searchRadius"`
}

type Finder struct {
	missions MissionReader
	pool     CandidatePool
	scorer   *Scorer
	policy   FinderPolicy
	filters  []Filter
	distance DistanceFunc
	logger   *zap.Logger
}

func NewFinder(missions MissionReader, pool CandidatePool, scorer *Scorer, policy FinderPolicy, log *zap.Logger) *Finder {
	if log == nil {
		log = zap.NewNop()
	}
	if policy.Workers <= 0 {
		policy.Workers = runtime.GOMAXPROCS(0)
	}

	filters := []Filter{
		NewCoordinatesFilter(),
		NewRadiusFilter(),
		NewAvailabilityFilter(),
		NewSkillsFilter(1),
	}
	if !policy.ExcludeUnavailable {
		DisableByName(filters, "availability", "exclude-unavailable is off, unavailable candidates are ranked with a capped score")
	}
	if !policy.RequireSkillOverlap {
		DisableByName(filters, "skills", "require-skill-overlap is off, skills only affect the score")
	}

	return &Finder{
		missions: missions,
		pool:     pool,
		scorer:   scorer,
		policy:   policy,
		filters:  filters,
		distance: geo.Distance,
		logger:   log,
	}
}

// Describe reports the pipeline steps and whether they run.
func (f *Finder) Describe() []Status {
	return Describe(f.filters)
}

// FindCandidates returns the ranked shortlist for a mission. It is read-only.
func (f *Finder) FindCandidates(ctx context.Context, missionID string, opts Options) (*Result, error) {
	m, err := f.missions.GetMission(ctx, missionID)
	if err != nil {
		return nil, err
	}

	radius := EffectiveRadius(m, opts.RadiusKm)
	skills := EffectiveSkills(m, opts.Skills)
	limit := EffectiveLimit(opts.Limit)

	log := logger.WithFields(f.logger, logger.MissionFields(m.ID)...)

	if !m.HasCoordinates() {
		log.Warn("mission is not geocoded, cannot search")
		return nil, model.ErrMissionNotGeocoded
	}

	box := geo.BoundingBox(*m.Latitude, *m.Longitude, radius)
	profiles, err := f.pool.ListCandidates(ctx, PoolQuery{Box: box, OnlyAvailable: f.policy.ExcludeUnavailable})
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	log.Info("starting the search",
		zap.Float64("radius_km", radius),
		zap.Strings("skills", skills),
		zap.Int("limit", limit),
		zap.Int("pool", len(profiles)),
	)

	search := &Search{
		Mission:  m,
		RadiusKm: radius,
		Skills:   skills,
		Distance: f.distance,
		Logger:   log,
	}

	candidates, err := RunFilters(ctx, search, f.filters, NewCandidates(profiles))
	if err != nil {
		return nil, err
	}

	if err := f.score(ctx, search, candidates); err != nil {
		return nil, err
	}

	rank(candidates.Items)

	total := candidates.Len()
	items := candidates.Items
	if len(items) > limit {
		items = items[:limit]
	}

	result := &Result{
		MissionID:    m.ID,
		Candidates:   make([]CandidateResult, 0, len(items)),
		TotalFound:   total,
		SearchRadius: radius,
	}
	for _, item := range items {
		result.Candidates = append(result.Candidates, toResult(item))
	}

	log.Info("search finished", zap.Int("total_found", total), zap.Int("returned", len(result.Candidates)))

	return result, nil
}

// score evaluates every candidate concurrently. Each goroutine writes only
// to its own item.
func (f *Finder) score(ctx context.Context, s *Search, c *Candidates) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.policy.Workers)

	for _, item := range c.Items {
		item := item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item.Breakdown = f.scorer.Evaluate(Input{
				Mission:    s.Mission,
				Candidate:  item.Profile,
				DistanceKm: item.DistanceKm,
				RadiusKm:   s.RadiusKm,
				Skills:     s.Skills,
			})
			return nil
		})
	}

	return g.Wait()
}

// rank orders by score desc, then distance asc, then id asc.
func rank(items []*Candidate) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Breakdown.Score != b.Breakdown.Score {
			return a.Breakdown.Score > b.Breakdown.Score
		}
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		return a.Profile.ID < b.Profile.ID
	})
}

func toResult(c *Candidate) CandidateResult {
	p := c.Profile
	breakdown := c.Breakdown
	return CandidateResult{
		ID:            p.ID,
		UserID:        p.UserID,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		AvatarURL:     p.AvatarURL,
		Headline:      p.Headline,
		Specialties:   p.Specialties,
		Diplomas:      p.Diplomas,
		HourlyRate:    p.HourlyRate,
		AverageRating: p.AverageRating,
		TotalMissions: p.TotalMissions,
		Distance:      math.Round(c.DistanceKm*10) / 10,
		MatchScore:    breakdown.Score,
		IsAvailable:   p.IsAvailable,
		Breakdown:     &breakdown,
	}
}
