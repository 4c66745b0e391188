package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: KindUnknown},
		{name: "mission not found", err: ErrMissionNotFound, want: KindNotFound},
		{name: "wrapped not geocoded", err: fmt.Errorf("find: %w", ErrMissionNotGeocoded), want: KindPreconditionFailed},
		{name: "invalid state", err: fmt.Errorf("assign: %w", ErrInvalidState), want: KindInvalidState},
		{name: "validation", err: &ValidationError{Fields: []FieldError{{Field: "jobTitle", Message: "required"}}}, want: KindInvalidInput},
		{name: "other", err: fmt.Errorf("boom"), want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	var verr ValidationError
	require.NoError(t, verr.OrNil())

	verr.Add("endDate", "must be after startDate")
	verr.Add("radiusKm", "must be between 1 and 200")

	err := verr.OrNil()
	require.Error(t, err)
	assert.Equal(t, "invalid input: endDate: must be after startDate; radiusKm: must be between 1 and 200", err.Error())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseUrgency(t *testing.T) {
	t.Parallel()

	u, err := ParseUrgency("CRITICAL")
	require.NoError(t, err)
	assert.Equal(t, UrgencyCritical, u)

	_, err = ParseUrgency("critical")
	assert.Error(t, err)
}

func TestCoordinates(t *testing.T) {
	t.Parallel()

	lat, lon := 48.85, 2.35
	m := &Mission{Latitude: &lat}
	assert.False(t, m.HasCoordinates())
	assert.False(t, m.CoordinatesConsistent())

	m.Longitude = &lon
	assert.True(t, m.HasCoordinates())
	assert.True(t, m.CoordinatesConsistent())
	assert.Equal(t, DefaultRadiusKm, m.EffectiveRadiusKm())

	c := &CandidateProfile{}
	assert.False(t, c.HasCoordinates())
	assert.True(t, c.CoordinatesConsistent())
}
