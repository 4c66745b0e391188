//go:build integration

package store

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medishift/mission-matcher/internal/geo"
	"github.com/medishift/mission-matcher/internal/matching"
	"github.com/medishift/mission-matcher/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestStore(t *testing.T) *Postgres {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := NewPostgresPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := NewPostgres(pool)
	require.NoError(t, s.Migrate(ctx))
	return s
}

func testMission() *model.Mission {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Mission{
		ID:             uuid.NewString(),
		ClientID:       "client-1",
		JobTitle:       "Aide-soignant de nuit",
		HourlyRate:     21.5,
		StartDate:      now.Add(24 * time.Hour),
		EndDate:        ptr(now.Add(36 * time.Hour)),
		Address:        "1 place Bellecour",
		City:           "Lyon",
		PostalCode:     "69002",
		Latitude:       ptr(45.7578),
		Longitude:      ptr(4.8320),
		RadiusKm:       30,
		UrgencyLevel:   model.UrgencyHigh,
		RequiredSkills: []string{"gériatrie"},
		Status:         model.StatusOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestPostgresMissionRoundTrip(t *testing.T) {
	s := getTestStore(t)
	ctx := context.Background()

	m := testMission()
	require.NoError(t, s.CreateMission(ctx, m))

	got, err := s.GetMission(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.JobTitle, got.JobTitle)
	assert.Equal(t, model.StatusOpen, got.Status)
	assert.Equal(t, model.UrgencyHigh, got.UrgencyLevel)
	assert.InDelta(t, 45.7578, *got.Latitude, 1e-9)
	assert.Equal(t, []string{"gériatrie"}, got.RequiredSkills)

	_, err = s.GetMission(ctx, uuid.NewString())
	assert.ErrorIs(t, err, model.ErrMissionNotFound)
}

func TestPostgresConcurrentTransitionsApplyOnce(t *testing.T) {
	s := getTestStore(t)
	ctx := context.Background()

	candidateIDs := make([]string, 8)
	for i := range candidateIDs {
		candidateIDs[i] = uuid.NewString()
		require.NoError(t, s.SaveCandidate(ctx, &model.CandidateProfile{ID: candidateIDs[i], UserID: "u", FirstName: "A", LastName: "B"}))
	}

	m := testMission()
	require.NoError(t, s.CreateMission(ctx, m))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for _, id := range candidateIDs {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.TransitionStatus(ctx, m.ID, model.StatusChange{
				From: model.StatusOpen, To: model.StatusAssigned, AssignedCandidateID: &id, At: time.Now().UTC(),
			})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
}

func TestPostgresListCandidates(t *testing.T) {
	s := getTestStore(t)
	ctx := context.Background()

	near := &model.CandidateProfile{
		ID: uuid.NewString(), UserID: "u1", FirstName: "Léa", LastName: "Martin",
		Specialties: []string{"pédiatrie"}, Diplomas: []model.Diploma{{Name: "DE Infirmier", Year: 2018}},
		IsAvailable: true, Latitude: ptr(45.76), Longitude: ptr(4.84),
	}
	far := &model.CandidateProfile{
		ID: uuid.NewString(), UserID: "u2", FirstName: "Jules", LastName: "Petit",
		IsAvailable: true, Latitude: ptr(48.85), Longitude: ptr(2.35),
	}
	require.NoError(t, s.SaveCandidate(ctx, near))
	require.NoError(t, s.SaveCandidate(ctx, far))

	got, err := s.ListCandidates(ctx, matching.PoolQuery{Box: geo.BoundingBox(45.7578, 4.8320, 10)})
	require.NoError(t, err)

	var found *model.CandidateProfile
	for _, c := range got {
		assert.NotEqual(t, far.ID, c.ID)
		if c.ID == near.ID {
			found = c
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, []model.Diploma{{Name: "DE Infirmier", Year: 2018}}, found.Diplomas)
}
