package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/medishift/mission-matcher/internal/matching"
	"github.com/medishift/mission-matcher/internal/mission"
	"github.com/medishift/mission-matcher/internal/model"
	"github.com/medishift/mission-matcher/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ptr[T any](v T) *T { return &v }

type testEnv struct {
	srv   *httptest.Server
	store *store.Memory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.NewMemory()
	scorer, err := matching.NewScorer(matching.DefaultWeights(), matching.DefaultScoringPolicy())
	require.NoError(t, err)

	finder := matching.NewFinder(st, st, scorer, matching.FinderPolicy{}, zap.NewNop())
	missions := mission.NewService(st, nil, nil, zap.NewNop())

	srv := httptest.NewServer(New(finder, missions, zap.NewNop()).Routes())
	t.Cleanup(srv.Close)

	ctx := context.Background()
	start := time.Now().UTC().Add(24 * time.Hour)
	require.NoError(t, st.CreateMission(ctx, &model.Mission{
		ID: "lyon", ClientID: "client-1", Status: model.StatusOpen, StartDate: start, EndDate: ptr(start.Add(8 * time.Hour)),
		Latitude: ptr(45.7578), Longitude: ptr(4.8320), RadiusKm: 20, RequiredSkills: []string{"gériatrie"},
	}))
	require.NoError(t, st.CreateMission(ctx, &model.Mission{
		ID: "nowhere", ClientID: "client-1", Status: model.StatusOpen, StartDate: start, EndDate: ptr(start.Add(8 * time.Hour)),
	}))
	for _, c := range []*model.CandidateProfile{
		{ID: "c-1", FirstName: "Léa", LastName: "Martin", Specialties: []string{"Gériatrie"}, AverageRating: 4.8, TotalMissions: 12, IsAvailable: true, Latitude: ptr(45.7640), Longitude: ptr(4.8357)},
		{ID: "c-2", FirstName: "Hugo", LastName: "Bernard", AverageRating: 4.1, TotalMissions: 3, IsAvailable: true, Latitude: ptr(45.7719), Longitude: ptr(4.8902)},
		{ID: "c-3", FirstName: "Inès", LastName: "Petit", IsAvailable: true, Latitude: ptr(48.8566), Longitude: ptr(2.3522)},
	} {
		require.NoError(t, st.SaveCandidate(ctx, c))
	}

	return &testEnv{srv: srv, store: st}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestFindCandidatesEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/missions/lyon/candidates?limit=5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.EqualValues(t, 2, body["totalFound"])
	assert.EqualValues(t, 20, body["searchRadius"])

	candidates := body["candidates"].([]interface{})
	require.Len(t, candidates, 2)
	first := candidates[0].(map[string]interface{})
	assert.Equal(t, "c-1", first["id"])
	for _, key := range []string{"userId", "firstName", "lastName", "specialties", "diplomas", "hourlyRate", "averageRating", "totalMissions", "distance", "matchScore", "isAvailable"} {
		assert.Contains(t, first, key)
	}
	assert.NotContains(t, first, "latitude")

	m, err := env.store.GetMission(context.Background(), "lyon")
	require.NoError(t, err)
	assert.Equal(t, 2, m.CandidatesFound)
	assert.NotNil(t, m.LastSearchAt)
}

func TestFindCandidatesEndpointOptions(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/missions/lyon/candidates?radiusKm=900&skills=pediatrie,%20urgences", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, matching.MaxRadiusKm, body["searchRadius"])
	assert.EqualValues(t, 2, body["totalFound"])

	resp, body = env.do(t, http.MethodGet, "/missions/lyon/candidates?limit=ten", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "InvalidInput", body["kind"])

	for _, radius := range []string{"NaN", "Inf", "-Inf"} {
		resp, body = env.do(t, http.MethodGet, "/missions/lyon/candidates?radiusKm="+radius, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, radius)
		assert.Equal(t, "InvalidInput", body["kind"], radius)
	}

	m, err := env.store.GetMission(context.Background(), "lyon")
	require.NoError(t, err)
	assert.Equal(t, 2, m.CandidatesFound, "rejected searches keep the last recorded result")
}

func TestFindCandidatesEndpointErrors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/missions/missing/candidates", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NotFound", body["kind"])

	resp, body = env.do(t, http.MethodGet, "/missions/nowhere/candidates", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "PreconditionFailed", body["kind"])
	assert.Contains(t, body["error"], "complete the mission address")
}

func TestCreateMissionEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)

	resp, body := env.do(t, http.MethodPost, "/missions", map[string]interface{}{
		"clientId":       "client-2",
		"jobTitle":       "Aide-soignant",
		"hourlyRate":     18.5,
		"startDate":      start,
		"endDate":        start.Add(10 * time.Hour),
		"address":        "3 rue de la République",
		"city":           "Lyon",
		"postalCode":     "69001",
		"latitude":       45.764,
		"longitude":      4.8357,
		"urgencyLevel":   "CRITICAL",
		"requiredSkills": []string{"gériatrie"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "OPEN", body["status"])
	assert.EqualValues(t, 30, body["radiusKm"])
	assert.Equal(t, false, body["isNightShift"])

	id := body["id"].(string)
	resp, body = env.do(t, http.MethodGet, "/missions/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Aide-soignant", body["jobTitle"])

	resp, body = env.do(t, http.MethodPost, "/missions", map[string]interface{}{"jobTitle": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["fields"])

	resp, _ = env.do(t, http.MethodPost, "/missions", map[string]interface{}{"unknown": true})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAssignAndCancelEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/missions/lyon/assign", map[string]string{"candidateId": "c-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "c-1", body["candidateId"])

	resp, body = env.do(t, http.MethodPost, "/missions/lyon/assign", map[string]string{"candidateId": "c-2"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "InvalidState", body["kind"])

	resp, body = env.do(t, http.MethodPost, "/missions/nowhere/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CANCELLED", body["status"])

	resp, _ = env.do(t, http.MethodPost, "/missions/nowhere/expire", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
