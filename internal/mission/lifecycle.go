// Package mission owns the mission status machine and the operations that
// move a mission through it.
//
// Valid status graph:
//
//	OPEN ──► ASSIGNED
//	  ├────► CANCELLED
//	  └────► EXPIRED
//
// ASSIGNED, CANCELLED and EXPIRED are terminal.
package mission

import (
	"fmt"

	"github.com/medishift/mission-matcher/internal/model"
)

var validTransitions = map[model.MissionStatus][]model.MissionStatus{
	model.StatusOpen: {model.StatusAssigned, model.StatusCancelled, model.StatusExpired},
}

// ParseStatus converts a raw string to a status. Matching is case-sensitive.
func ParseStatus(s string) (model.MissionStatus, error) {
	st := model.MissionStatus(s)
	switch st {
	case model.StatusOpen, model.StatusAssigned, model.StatusCancelled, model.StatusExpired:
		return st, nil
	}
	return "", fmt.Errorf("unknown mission status %q", s)
}

// IsTransitionAllowed reports whether from → to is permitted.
func IsTransitionAllowed(from, to model.MissionStatus) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s model.MissionStatus) bool {
	_, ok := validTransitions[s]
	return !ok
}
