// Package server exposes candidate search and the mission lifecycle over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/medishift/mission-matcher/internal/logger"
	"github.com/medishift/mission-matcher/internal/matching"
	"github.com/medishift/mission-matcher/internal/mission"
	"github.com/medishift/mission-matcher/internal/model"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Finder runs candidate searches.
type Finder interface {
	FindCandidates(ctx context.Context, missionID string, opts matching.Options) (*matching.Result, error)
}

// Missions is the mission lifecycle.
type Missions interface {
	Create(ctx context.Context, req mission.CreateRequest) (*model.Mission, error)
	Get(ctx context.Context, id string) (*model.Mission, error)
	Assign(ctx context.Context, missionID, candidateID string) (*mission.Assignment, error)
	Cancel(ctx context.Context, missionID string) (*model.Mission, error)
	Expire(ctx context.Context, missionID string) (*model.Mission, error)
	RecordSearch(ctx context.Context, missionID string, candidatesFound int) error
}

type Server struct {
	finder   Finder
	missions Missions
	logger   *zap.Logger
}

func New(finder Finder, missions Missions, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{finder: finder, missions: missions, logger: log}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/missions", func(r chi.Router) {
		r.Post("/", s.createMission)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getMission)
			r.Get("/candidates", s.findCandidates)
			r.Post("/assign", s.assign)
			r.Post("/cancel", s.cancel)
			r.Post("/expire", s.expire)
		})
	})

	return r
}

func (s *Server) createMission(w http.ResponseWriter, r *http.Request) {
	var req mission.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	m, err := s.missions.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) getMission(w http.ResponseWriter, r *http.Request) {
	m, err := s.missions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func (s *Server) findCandidates(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	opts, err := parseSearchOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.finder.FindCandidates(r.Context(), id, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.missions.RecordSearch(r.Context(), id, res.TotalFound); err != nil {
		logger.WithFields(s.logger, logger.MissionFields(id)...).Warn("recording search failed", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, res)
}

type assignRequest struct {
	CandidateID string `json:"candidateId"`
}

func (s *Server) assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	a, err := s.missions.Assign(r.Context(), chi.URLParam(r, "id"), req.CandidateID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	m, err := s.missions.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func (s *Server) expire(w http.ResponseWriter, r *http.Request) {
	m, err := s.missions.Expire(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// parseSearchOptions reads skills, radiusKm and limit. Out-of-range numbers
// are clamped by the finder, non-numeric ones are rejected.
func parseSearchOptions(r *http.Request) (matching.Options, error) {
	var (
		opts matching.Options
		verr model.ValidationError
	)
	q := r.URL.Query()

	if _, ok := q["skills"]; ok {
		opts.Skills = []string{}
		for _, raw := range q["skills"] {
			for _, skill := range strings.Split(raw, ",") {
				if skill = strings.TrimSpace(skill); skill != "" {
					opts.Skills = append(opts.Skills, skill)
				}
			}
		}
	}

	if raw := q.Get("radiusKm"); raw != "" {
		radius, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(radius) || math.IsInf(radius, 0) {
			verr.Add("radiusKm", "must be a number")
		} else {
			opts.RadiusKm = &radius
		}
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			verr.Add("limit", "must be an integer")
		} else {
			opts.Limit = &limit
		}
	}

	return opts, verr.OrNil()
}

func decodeBody(r *http.Request, target interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return &model.ValidationError{Fields: []model.FieldError{{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}}}
	}
	return nil
}

type errorResponse struct {
	Error  string             `json:"error"`
	Kind   string             `json:"kind"`
	Fields []model.FieldError `json:"fields,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := model.KindOf(err)
	status := statusFor(kind)

	resp := errorResponse{Error: err.Error(), Kind: kind.String()}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		resp.Error = "internal error"
	}

	writeJSON(w, status, resp)
}

func statusFor(kind model.Kind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindInvalidInput:
		return http.StatusBadRequest
	case model.KindInvalidState:
		return http.StatusConflict
	case model.KindPreconditionFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
