package matching

import (
	"context"
	"fmt"
	"strconv"

	"github.com/medishift/mission-matcher/internal/model"
	"go.uber.org/zap"
)

// Filter is a single step of the candidate pipeline.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Apply(ctx context.Context, s *Search, c *Candidates) (*Candidates, Step, error)
}

// Step describes the result of executing a pipeline step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// DistanceFunc returns the distance in km between two points.
type DistanceFunc func(lat1, lon1, lat2, lon2 float64) float64

// Search is the resolved state of one search, shared by every step.
type Search struct {
	Mission  *model.Mission
	RadiusKm float64
	Skills   []string
	Distance DistanceFunc
	Logger   *zap.Logger
}

// toggle carries the enabled state shared by all filters.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

func (t *toggle) status(name string, details map[string]string) Status {
	return Status{Name: name, Enabled: !t.disabled, Reason: t.reason, Details: details}
}

type coordinatesFilter struct{ toggle }

// NewCoordinatesFilter drops candidates whose position is unknown.
func NewCoordinatesFilter() Filter { return &coordinatesFilter{} }

func (f *coordinatesFilter) Name() string { return "coordinates" }

func (f *coordinatesFilter) Apply(_ context.Context, s *Search, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	excluded := c.Exclude(func(item *Candidate) bool {
		if !item.Profile.CoordinatesConsistent() {
			s.Logger.Warn("candidate has half-known coordinates", zap.String("candidate_id", item.Profile.ID))
		}
		return !item.Profile.HasCoordinates()
	})
	if len(excluded) > 0 {
		s.Logger.Debug("excluding candidates without coordinates", zap.Strings("excluded_candidates", excluded))
	}

	return c, Step{Initial: initial, Dropped: len(excluded), Left: c.Len()}, nil
}

func (f *coordinatesFilter) Status() Status { return f.status(f.Name(), nil) }

type radiusFilter struct{ toggle }

// NewRadiusFilter computes each candidate's distance to the mission and drops
// those beyond the search radius.
func NewRadiusFilter() Filter { return &radiusFilter{} }

func (f *radiusFilter) Name() string { return "radius" }

func (f *radiusFilter) Apply(_ context.Context, s *Search, c *Candidates) (*Candidates, Step, error) {
	if !s.Mission.HasCoordinates() {
		return c, Step{}, model.ErrMissionNotGeocoded
	}
	if s.Distance == nil {
		return c, Step{}, fmt.Errorf("distance function is required")
	}

	lat, lon := *s.Mission.Latitude, *s.Mission.Longitude
	initial := c.Len()
	excluded := c.Exclude(func(item *Candidate) bool {
		if !item.Profile.HasCoordinates() {
			return true
		}
		item.DistanceKm = s.Distance(lat, lon, *item.Profile.Latitude, *item.Profile.Longitude)
		return item.DistanceKm > s.RadiusKm
	})
	if len(excluded) > 0 {
		s.Logger.Debug("excluding candidates outside the radius",
			zap.Float64("radius_km", s.RadiusKm),
			zap.Int("excluded", len(excluded)),
		)
	}

	return c, Step{Initial: initial, Dropped: len(excluded), Left: c.Len()}, nil
}

func (f *radiusFilter) Status() Status { return f.status(f.Name(), nil) }

type availabilityFilter struct{ toggle }

// NewAvailabilityFilter drops unavailable candidates.
func NewAvailabilityFilter() Filter { return &availabilityFilter{} }

func (f *availabilityFilter) Name() string { return "availability" }

func (f *availabilityFilter) Apply(_ context.Context, s *Search, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	excluded := c.Exclude(func(item *Candidate) bool { return !item.Profile.IsAvailable })
	if len(excluded) > 0 {
		s.Logger.Debug("excluding unavailable candidates", zap.Strings("excluded_candidates", excluded))
	}

	return c, Step{Initial: initial, Dropped: len(excluded), Left: c.Len()}, nil
}

func (f *availabilityFilter) Status() Status { return f.status(f.Name(), nil) }

type skillsFilter struct {
	toggle
	minOverlap int
}

// NewSkillsFilter drops candidates sharing fewer than minOverlap required
// skills. It keeps everyone when no skill is required.
func NewSkillsFilter(minOverlap int) Filter {
	if minOverlap < 1 {
		minOverlap = 1
	}
	return &skillsFilter{minOverlap: minOverlap}
}

func (f *skillsFilter) Name() string { return "skills" }

func (f *skillsFilter) Apply(_ context.Context, s *Search, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	if len(newTagSet(s.Skills)) == 0 {
		return c, Step{Initial: initial, Left: initial}, nil
	}

	excluded := c.Exclude(func(item *Candidate) bool {
		return SkillOverlap(s.Skills, item.Profile) < f.minOverlap
	})
	if len(excluded) > 0 {
		s.Logger.Debug("excluding candidates without the required skills",
			zap.Strings("skills", s.Skills),
			zap.Strings("excluded_candidates", excluded),
		)
	}

	return c, Step{Initial: initial, Dropped: len(excluded), Left: c.Len()}, nil
}

func (f *skillsFilter) Status() Status {
	return f.status(f.Name(), map[string]string{"min_overlap": strconv.Itoa(f.minOverlap)})
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// RunFilters executes the enabled filters in order.
func RunFilters(ctx context.Context, s *Search, steps []Filter, c *Candidates) (*Candidates, error) {
	for _, step := range steps {
		if !step.IsEnabled() {
			s.Logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, s, c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		s.Logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		c = next
	}

	return c, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}
