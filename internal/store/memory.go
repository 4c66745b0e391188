// Package store persists missions and candidate profiles, in PostgreSQL or
// in memory.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/medishift/mission-matcher/internal/matching"
	"github.com/medishift/mission-matcher/internal/model"
)

// Memory is a process-local store. It is safe for concurrent use and returns
// copies, so callers never share state with it.
type Memory struct {
	mu         sync.RWMutex
	missions   map[string]*model.Mission
	candidates map[string]*model.CandidateProfile
}

func NewMemory() *Memory {
	return &Memory{
		missions:   make(map[string]*model.Mission),
		candidates: make(map[string]*model.CandidateProfile),
	}
}

// Fixtures is the on-disk format read by LoadFixtures.
type Fixtures struct {
	Missions   []*model.Mission          `json:"missions"`
	Candidates []*model.CandidateProfile `json:"candidates"`
}

// LoadFixtures builds a Memory store from a JSON fixtures file.
func LoadFixtures(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}

	var f Fixtures
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode fixtures %q: %w", path, err)
	}

	m := NewMemory()
	for _, ms := range f.Missions {
		if ms.Status == "" {
			ms.Status = model.StatusOpen
		}
		m.missions[ms.ID] = cloneMission(ms)
	}
	for _, c := range f.Candidates {
		m.candidates[c.ID] = cloneCandidate(c)
	}

	return m, nil
}

func (m *Memory) GetMission(_ context.Context, id string) (*model.Mission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ms, ok := m.missions[id]
	if !ok {
		return nil, fmt.Errorf("mission %q: %w", id, model.ErrMissionNotFound)
	}
	return cloneMission(ms), nil
}

func (m *Memory) CreateMission(_ context.Context, ms *model.Mission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.missions[ms.ID]; ok {
		return fmt.Errorf("mission %q already exists", ms.ID)
	}
	m.missions[ms.ID] = cloneMission(ms)
	return nil
}

func (m *Memory) TransitionStatus(_ context.Context, id string, change model.StatusChange) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms, ok := m.missions[id]
	if !ok {
		return false, fmt.Errorf("mission %q: %w", id, model.ErrMissionNotFound)
	}
	if ms.Status != change.From {
		return false, nil
	}

	ms.Status = change.To
	ms.UpdatedAt = change.At
	if change.AssignedCandidateID != nil {
		id := *change.AssignedCandidateID
		ms.AssignedCandidateID = &id
	}
	return true, nil
}

func (m *Memory) RecordSearch(_ context.Context, id string, at time.Time, candidatesFound int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms, ok := m.missions[id]
	if !ok {
		return fmt.Errorf("mission %q: %w", id, model.ErrMissionNotFound)
	}
	ms.LastSearchAt = &at
	ms.CandidatesFound = candidatesFound
	return nil
}

func (m *Memory) ListOpenStartedBefore(_ context.Context, t time.Time) ([]*model.Mission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Mission
	for _, ms := range m.missions {
		if ms.Status == model.StatusOpen && ms.StartDate.Before(t) {
			out = append(out, cloneMission(ms))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveCandidate inserts or replaces a candidate profile.
func (m *Memory) SaveCandidate(_ context.Context, c *model.CandidateProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.candidates[c.ID] = cloneCandidate(c)
	return nil
}

// ListCandidates returns located candidates inside the query box, ordered by id.
func (m *Memory) ListCandidates(_ context.Context, q matching.PoolQuery) ([]*model.CandidateProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.CandidateProfile
	for _, c := range m.candidates {
		if !c.HasCoordinates() || !q.Box.Contains(*c.Latitude, *c.Longitude) {
			continue
		}
		if q.OnlyAvailable && !c.IsAvailable {
			continue
		}
		out = append(out, cloneCandidate(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneMission(ms *model.Mission) *model.Mission {
	cp := *ms
	cp.RequiredSkills = append([]string(nil), ms.RequiredSkills...)
	cp.RequiredDiplomas = append([]string(nil), ms.RequiredDiplomas...)
	cp.Latitude = cloneFloat(ms.Latitude)
	cp.Longitude = cloneFloat(ms.Longitude)
	if ms.AssignedCandidateID != nil {
		id := *ms.AssignedCandidateID
		cp.AssignedCandidateID = &id
	}
	cp.EndDate = cloneTime(ms.EndDate)
	cp.LastSearchAt = cloneTime(ms.LastSearchAt)
	return &cp
}

func cloneCandidate(c *model.CandidateProfile) *model.CandidateProfile {
	cp := *c
	cp.Specialties = append([]string(nil), c.Specialties...)
	cp.Diplomas = append([]model.Diploma(nil), c.Diplomas...)
	cp.Latitude = cloneFloat(c.Latitude)
	cp.Longitude = cloneFloat(c.Longitude)
	return &cp
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	return &t
}
