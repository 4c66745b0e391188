package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medishift/mission-matcher/internal/matching"
	"github.com/medishift/mission-matcher/internal/model"
)

//go:embed schema.sql
var schema string

// NewPostgresPool creates and verifies a pgxpool connection pool.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

// Postgres stores missions and candidates in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the tables and indexes when they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const missionColumns = `
	id, client_id, job_title, title, description, hourly_rate, start_date, end_date,
	address, city, postal_code, latitude, longitude, radius_km, is_night_shift,
	urgency_level, required_skills, required_diplomas, status,
	assigned_candidate_id, last_search_at, candidates_found, created_at, updated_at`

func scanMission(row pgx.Row) (*model.Mission, error) {
	var (
		m       model.Mission
		urgency string
		status  string
	)
	err := row.Scan(
		&m.ID, &m.ClientID, &m.JobTitle, &m.Title, &m.Description, &m.HourlyRate, &m.StartDate, &m.EndDate,
		&m.Address, &m.City, &m.PostalCode, &m.Latitude, &m.Longitude, &m.RadiusKm, &m.IsNightShift,
		&urgency, &m.RequiredSkills, &m.RequiredDiplomas, &status,
		&m.AssignedCandidateID, &m.LastSearchAt, &m.CandidatesFound, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.UrgencyLevel = model.UrgencyLevel(urgency)
	m.Status = model.MissionStatus(status)
	return &m, nil
}

func (p *Postgres) GetMission(ctx context.Context, id string) (*model.Mission, error) {
	m, err := scanMission(p.pool.QueryRow(ctx, `SELECT `+missionColumns+` FROM missions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("mission %q: %w", id, model.ErrMissionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getMission: %w", err)
	}
	return m, nil
}

func (p *Postgres) CreateMission(ctx context.Context, m *model.Mission) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO missions (`+missionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		         $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		m.ID, m.ClientID, m.JobTitle, m.Title, m.Description, m.HourlyRate, m.StartDate, m.EndDate,
		m.Address, m.City, m.PostalCode, m.Latitude, m.Longitude, m.RadiusKm, m.IsNightShift,
		string(m.UrgencyLevel), nonNil(m.RequiredSkills), nonNil(m.RequiredDiplomas), string(m.Status),
		m.AssignedCandidateID, m.LastSearchAt, m.CandidatesFound, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("createMission: %w", err)
	}
	return nil
}

// TransitionStatus updates the status only while it still equals change.From.
// The WHERE clause makes the check and the write one atomic statement.
func (p *Postgres) TransitionStatus(ctx context.Context, id string, change model.StatusChange) (bool, error) {
	tag, err := p.pool.Exec(ctx,
		`UPDATE missions
		 SET status = $3,
		     assigned_candidate_id = COALESCE($4, assigned_candidate_id),
		     updated_at = $5
		 WHERE id = $1 AND status = $2`,
		id, string(change.From), string(change.To), change.AssignedCandidateID, change.At,
	)
	if err != nil {
		return false, fmt.Errorf("transitionStatus: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *Postgres) RecordSearch(ctx context.Context, id string, at time.Time, candidatesFound int) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE missions SET last_search_at = $2, candidates_found = $3 WHERE id = $1`,
		id, at, candidatesFound,
	)
	if err != nil {
		return fmt.Errorf("recordSearch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mission %q: %w", id, model.ErrMissionNotFound)
	}
	return nil
}

func (p *Postgres) ListOpenStartedBefore(ctx context.Context, t time.Time) ([]*model.Mission, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+missionColumns+` FROM missions
		 WHERE status = 'OPEN' AND start_date < $1
		 ORDER BY start_date, id`, t)
	if err != nil {
		return nil, fmt.Errorf("listOpenStartedBefore query: %w", err)
	}
	defer rows.Close()

	missions := make([]*model.Mission, 0)
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, fmt.Errorf("listOpenStartedBefore scan: %w", err)
		}
		missions = append(missions, m)
	}
	return missions, rows.Err()
}

// SaveCandidate inserts or replaces a candidate profile.
func (p *Postgres) SaveCandidate(ctx context.Context, c *model.CandidateProfile) error {
	diplomas := c.Diplomas
	if diplomas == nil {
		diplomas = []model.Diploma{}
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO candidate_profiles (
		   id, user_id, first_name, last_name, avatar_url, headline, specialties, diplomas,
		   hourly_rate, average_rating, total_missions, is_available, latitude, longitude)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (id) DO UPDATE SET
		   user_id = EXCLUDED.user_id, first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
		   avatar_url = EXCLUDED.avatar_url, headline = EXCLUDED.headline, specialties = EXCLUDED.specialties,
		   diplomas = EXCLUDED.diplomas, hourly_rate = EXCLUDED.hourly_rate,
		   average_rating = EXCLUDED.average_rating, total_missions = EXCLUDED.total_missions,
		   is_available = EXCLUDED.is_available, latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude`,
		c.ID, c.UserID, c.FirstName, c.LastName, c.AvatarURL, c.Headline, nonNil(c.Specialties), diplomas,
		c.HourlyRate, c.AverageRating, c.TotalMissions, c.IsAvailable, c.Latitude, c.Longitude,
	)
	if err != nil {
		return fmt.Errorf("saveCandidate: %w", err)
	}
	return nil
}

// ListCandidates returns located candidates inside the query box, ordered by id.
func (p *Postgres) ListCandidates(ctx context.Context, q matching.PoolQuery) ([]*model.CandidateProfile, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, user_id, first_name, last_name, avatar_url, headline, specialties, diplomas,
		        hourly_rate, average_rating, total_missions, is_available, latitude, longitude
		 FROM candidate_profiles
		 WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		   AND latitude BETWEEN $1 AND $2
		   AND (NOT $3::boolean OR longitude BETWEEN $4 AND $5)
		   AND (NOT $6::boolean OR is_available)
		 ORDER BY id`,
		q.Box.MinLat, q.Box.MaxLat, q.Box.HasLongitude, q.Box.MinLon, q.Box.MaxLon, q.OnlyAvailable,
	)
	if err != nil {
		return nil, fmt.Errorf("listCandidates query: %w", err)
	}
	defer rows.Close()

	candidates := make([]*model.CandidateProfile, 0)
	for rows.Next() {
		var c model.CandidateProfile
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.AvatarURL, &c.Headline, &c.Specialties, &c.Diplomas,
			&c.HourlyRate, &c.AverageRating, &c.TotalMissions, &c.IsAvailable, &c.Latitude, &c.Longitude,
		); err != nil {
			return nil, fmt.Errorf("listCandidates scan: %w", err)
		}
		candidates = append(candidates, &c)
	}
	return candidates, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
