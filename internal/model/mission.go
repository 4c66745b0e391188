// Package model holds the domain types shared by the matching engine, the
// mission lifecycle and the storage layer.
package model

import (
	"fmt"
	"time"
)

// MissionStatus values are the ones allowed by the missions.status CHECK constraint.
type MissionStatus string

const (
	StatusOpen      MissionStatus = "OPEN"
	StatusAssigned  MissionStatus = "ASSIGNED"
	StatusCancelled MissionStatus = "CANCELLED"
	StatusExpired   MissionStatus = "EXPIRED"
)

// UrgencyLevel is informational for ranking.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "LOW"
	UrgencyMedium   UrgencyLevel = "MEDIUM"
	UrgencyHigh     UrgencyLevel = "HIGH"
	UrgencyCritical UrgencyLevel = "CRITICAL"
)

// ParseUrgency converts a raw string to an UrgencyLevel. Matching is case-sensitive.
func ParseUrgency(s string) (UrgencyLevel, error) {
	u := UrgencyLevel(s)
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return u, nil
	}
	return "", fmt.Errorf("unknown urgency level %q", s)
}

// DefaultRadiusKm is used when neither the request nor the mission carries a radius.
const DefaultRadiusKm = 30

// Mission is a staffing request published by a client establishment.
type Mission struct {
	ID               string        `json:"id"`
	ClientID         string        `json:"clientId"`
	JobTitle         string        `json:"jobTitle"`
	Title            string        `json:"title,omitempty"`
	Description      string        `json:"description,omitempty"`
	HourlyRate       float64       `json:"hourlyRate"`
	StartDate        time.Time     `json:"startDate"`
	EndDate          *time.Time    `json:"endDate,omitempty"`
	Address          string        `json:"address"`
	City             string        `json:"city"`
	PostalCode       string        `json:"postalCode"`
	Latitude         *float64      `json:"latitude"`
	Longitude        *float64      `json:"longitude"`
	RadiusKm         int           `json:"radiusKm"`
	IsNightShift     bool          `json:"isNightShift"`
	UrgencyLevel     UrgencyLevel  `json:"urgencyLevel"`
	RequiredSkills   []string      `json:"requiredSkills"`
	RequiredDiplomas []string      `json:"requiredDiplomas"`
	Status           MissionStatus `json:"status"`

	AssignedCandidateID *string    `json:"assignedCandidateId,omitempty"`
	LastSearchAt        *time.Time `json:"lastSearchAt,omitempty"`
	CandidatesFound     int        `json:"candidatesFound"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (m *Mission) HasCoordinates() bool {
	return m.Latitude != nil && m.Longitude != nil
}

// CoordinatesConsistent reports whether latitude and longitude are both
// present or both absent.
func (m *Mission) CoordinatesConsistent() bool {
	return (m.Latitude == nil) == (m.Longitude == nil)
}

// EffectiveRadiusKm returns the mission radius, falling back to DefaultRadiusKm.
func (m *Mission) EffectiveRadiusKm() int {
	if m.RadiusKm > 0 {
		return m.RadiusKm
	}
	return DefaultRadiusKm
}

// IsStarted reports whether the mission start date is before now.
func (m *Mission) IsStarted(now time.Time) bool {
	return m.StartDate.Before(now)
}

// StatusChange is a compare-and-swap status update: it applies only while the
// mission is still in From.
type StatusChange struct {
	From                MissionStatus
	To                  MissionStatus
	AssignedCandidateID *string
	At                  time.Time
}
