package mission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/medishift/mission-matcher/internal/geo"
	"github.com/medishift/mission-matcher/internal/logger"
	"github.com/medishift/mission-matcher/internal/model"
	"go.uber.org/zap"
)

// DefaultGeocodeTimeout bounds the geocoding done during Create.
const DefaultGeocodeTimeout = 5 * time.Second

// Store persists missions. TransitionStatus must be atomic: it applies the
// change only while the stored status equals change.From and reports
// whether it did.
type Store interface {
	GetMission(ctx context.Context, id string) (*model.Mission, error)
	CreateMission(ctx context.Context, m *model.Mission) error
	TransitionStatus(ctx context.Context, id string, change model.StatusChange) (bool, error)
	RecordSearch(ctx context.Context, id string, at time.Time, candidatesFound int) error
	ListOpenStartedBefore(ctx context.Context, t time.Time) ([]*model.Mission, error)
}

// Service drives missions through their lifecycle.
type Service struct {
	store     Store
	geocoder  geo.Resolver
	publisher Publisher
	validate  *validator.Validate
	logger    *zap.Logger

	// Now is the clock. It defaults to time.Now in UTC.
	Now func() time.Time
	// GeocodeTimeout bounds geocoding in Create.
	GeocodeTimeout time.Duration
}

// NewService returns a Service. A nil geocoder disables geocoding and a nil
// publisher drops events.
func NewService(store Store, geocoder geo.Resolver, publisher Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}

	return &Service{
		store:          store,
		geocoder:       geocoder,
		publisher:      publisher,
		validate:       newValidator(),
		logger:         log,
		Now:            func() time.Time { return time.Now().UTC() },
		GeocodeTimeout: DefaultGeocodeTimeout,
	}
}

// Get returns a mission by id.
func (s *Service) Get(ctx context.Context, id string) (*model.Mission, error) {
	return s.store.GetMission(ctx, id)
}

// Create validates the request, applies defaults, geocodes the address when
// coordinates are missing and stores an OPEN mission. Geocoding failures
// leave the coordinates empty.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.Mission, error) {
	if err := req.Validate(s.validate); err != nil {
		return nil, err
	}

	urgency, err := model.ParseUrgency(req.UrgencyLevel)
	if err != nil {
		return nil, &model.ValidationError{Fields: []model.FieldError{{Field: "urgencyLevel", Message: err.Error()}}}
	}

	now := s.Now()
	m := &model.Mission{
		ID:               uuid.NewString(),
		ClientID:         strings.TrimSpace(req.ClientID),
		JobTitle:         strings.TrimSpace(req.JobTitle),
		Title:            strings.TrimSpace(req.Title),
		Description:      strings.TrimSpace(req.Description),
		HourlyRate:       req.HourlyRate,
		StartDate:        req.StartDate.UTC(),
		Address:          strings.TrimSpace(req.Address),
		City:             strings.TrimSpace(req.City),
		PostalCode:       strings.TrimSpace(req.PostalCode),
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		RadiusKm:         model.DefaultRadiusKm,
		UrgencyLevel:     urgency,
		RequiredSkills:   trimAll(req.RequiredSkills),
		RequiredDiplomas: trimAll(req.RequiredDiplomas),
		Status:           model.StatusOpen,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.RadiusKm != nil {
		m.RadiusKm = *req.RadiusKm
	}
	if req.EndDate != nil {
		end := req.EndDate.UTC()
		m.EndDate = &end
	}
	if req.IsNightShift != nil {
		m.IsNightShift = *req.IsNightShift
	}

	log := logger.WithFields(s.logger, logger.MissionFields(m.ID)...)

	if !m.HasCoordinates() {
		if coords := s.geocode(ctx, &req); coords != nil {
			m.Latitude = &coords.Latitude
			m.Longitude = &coords.Longitude
		} else {
			log.Warn("mission created without coordinates, it cannot be searched until its address is fixed",
				zap.String("address", m.Address),
				zap.String("city", m.City),
				zap.String("postal_code", m.PostalCode),
			)
		}
	}

	if err := s.store.CreateMission(ctx, m); err != nil {
		return nil, fmt.Errorf("create mission: %w", err)
	}

	log.Info("mission created", zap.Bool("geocoded", m.HasCoordinates()), zap.String("urgency", string(m.UrgencyLevel)))
	s.publish(ctx, log, Event{
		Type:       EventMissionCreated,
		MissionID:  m.ID,
		ClientID:   m.ClientID,
		Status:     m.Status,
		OccurredAt: now,
	})

	return m, nil
}

func (s *Service) geocode(ctx context.Context, req *CreateRequest) *geo.Coordinates {
	if s.geocoder == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.GeocodeTimeout)
	defer cancel()

	if coords := s.geocoder.GeocodeAddress(ctx, req.geocodeQuery()); coords != nil {
		return coords
	}
	return s.geocoder.GeocodeCityPostalCode(ctx, req.City, req.PostalCode)
}

// Assign commits candidateID to an OPEN mission. When several assignments
// race, exactly one succeeds and the others get model.ErrInvalidState.
func (s *Service) Assign(ctx context.Context, missionID, candidateID string) (*Assignment, error) {
	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		return nil, &model.ValidationError{Fields: []model.FieldError{{Field: "candidateId", Message: "is required"}}}
	}

	m, err := s.transition(ctx, missionID, model.StatusAssigned, &candidateID, nil)
	if err != nil {
		return nil, err
	}

	a := &Assignment{MissionID: m.ID, CandidateID: candidateID, AssignedAt: m.UpdatedAt}

	log := logger.WithFields(s.logger, logger.AssignmentFields(m.ID, candidateID)...)
	log.Info("mission assigned")
	s.publish(ctx, log, Event{
		Type:        EventMissionAssigned,
		MissionID:   m.ID,
		ClientID:    m.ClientID,
		CandidateID: candidateID,
		Status:      m.Status,
		OccurredAt:  a.AssignedAt,
	})

	return a, nil
}

// Cancel moves an OPEN mission to CANCELLED.
func (s *Service) Cancel(ctx context.Context, missionID string) (*model.Mission, error) {
	m, err := s.transition(ctx, missionID, model.StatusCancelled, nil, nil)
	if err != nil {
		return nil, err
	}

	log := logger.WithFields(s.logger, logger.MissionFields(m.ID)...)
	log.Info("mission cancelled")
	s.publish(ctx, log, Event{Type: EventMissionCancelled, MissionID: m.ID, ClientID: m.ClientID, Status: m.Status, OccurredAt: m.UpdatedAt})

	return m, nil
}

// Expire moves an OPEN mission whose start date has passed to EXPIRED.
func (s *Service) Expire(ctx context.Context, missionID string) (*model.Mission, error) {
	now := s.Now()
	m, err := s.transition(ctx, missionID, model.StatusExpired, nil, func(m *model.Mission) error {
		if !m.IsStarted(now) {
			return fmt.Errorf("mission %s starts at %s: %w", m.ID, m.StartDate.Format(time.RFC3339), model.ErrPreconditionFailed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := logger.WithFields(s.logger, logger.MissionFields(m.ID)...)
	log.Info("mission expired")
	s.publish(ctx, log, Event{Type: EventMissionExpired, MissionID: m.ID, ClientID: m.ClientID, Status: m.Status, OccurredAt: m.UpdatedAt})

	return m, nil
}

// ExpireOverdue expires every OPEN mission whose start date has passed and
// returns how many it expired. Missions changed concurrently are skipped.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	overdue, err := s.store.ListOpenStartedBefore(ctx, s.Now())
	if err != nil {
		return 0, fmt.Errorf("list overdue missions: %w", err)
	}

	var (
		expired int
		errs    []error
	)
	for _, m := range overdue {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		_, err := s.Expire(ctx, m.ID)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, model.ErrInvalidState):
			s.logger.Debug("mission changed during the sweep", zap.String(logger.FieldMissionID, m.ID), zap.Error(err))
		default:
			errs = append(errs, fmt.Errorf("expire %s: %w", m.ID, err))
		}
	}

	return expired, errors.Join(errs...)
}

// RecordSearch stores the outcome of the latest candidate search without
// touching the status.
func (s *Service) RecordSearch(ctx context.Context, missionID string, candidatesFound int) error {
	if err := s.store.RecordSearch(ctx, missionID, s.Now(), candidatesFound); err != nil {
		return fmt.Errorf("record search for %s: %w", missionID, err)
	}
	return nil
}

func (s *Service) transition(ctx context.Context, id string, to model.MissionStatus, candidateID *string, precheck func(*model.Mission) error) (*model.Mission, error) {
	m, err := s.store.GetMission(ctx, id)
	if err != nil {
		return nil, err
	}

	if !IsTransitionAllowed(m.Status, to) {
		return nil, fmt.Errorf("mission %s is %s, cannot move to %s: %w", m.ID, m.Status, to, model.ErrInvalidState)
	}
	if precheck != nil {
		if err := precheck(m); err != nil {
			return nil, err
		}
	}

	change := model.StatusChange{
		From:                m.Status,
		To:                  to,
		AssignedCandidateID: candidateID,
		At:                  s.Now(),
	}
	applied, err := s.store.TransitionStatus(ctx, m.ID, change)
	if err != nil {
		return nil, fmt.Errorf("update mission %s status: %w", m.ID, err)
	}
	if !applied {
		return nil, fmt.Errorf("mission %s changed concurrently, cannot move to %s: %w", m.ID, to, model.ErrInvalidState)
	}

	m.Status = to
	m.UpdatedAt = change.At
	if candidateID != nil {
		m.AssignedCandidateID = candidateID
	}

	return m, nil
}

func (s *Service) publish(ctx context.Context, log *zap.Logger, e Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.Warn("publish event failed", zap.String("type", e.Type), zap.Error(err))
	}
}
