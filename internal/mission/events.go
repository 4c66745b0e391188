package mission

import (
	"context"
	"time"

	"github.com/medishift/mission-matcher/internal/model"
)

// Event types published on status changes. The type doubles as the channel name.
const (
	EventMissionCreated   = "EVENT_MISSION_CREATED"
	EventMissionAssigned  = "EVENT_MISSION_ASSIGNED"
	EventMissionCancelled = "EVENT_MISSION_CANCELLED"
	EventMissionExpired   = "EVENT_MISSION_EXPIRED"
)

// Event is a committed mission fact for downstream consumers.
type Event struct {
	Type        string              `json:"type"`
	MissionID   string              `json:"missionId"`
	ClientID    string              `json:"clientId,omitempty"`
	CandidateID string              `json:"candidateId,omitempty"`
	Status      model.MissionStatus `json:"status"`
	OccurredAt  time.Time           `json:"occurredAt"`
}

// Publisher delivers events. Delivery failures never undo a committed change.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Assignment is the committed fact returned by Assign.
type Assignment struct {
	MissionID   string    `json:"missionId"`
	CandidateID string    `json:"candidateId"`
	AssignedAt  time.Time `json:"assignedAt"`
}
