package matching

import "github.com/medishift/mission-matcher/internal/model"

// Candidate is a profile travelling through the search pipeline.
type Candidate struct {
	Profile    *model.CandidateProfile
	DistanceKm float64
	Breakdown  Breakdown
}

type Candidates struct {
	Items []*Candidate
}

func NewCandidates(profiles []*model.CandidateProfile) *Candidates {
	items := make([]*Candidate, 0, len(profiles))
	for _, p := range profiles {
		if p == nil {
			continue
		}
		items = append(items, &Candidate{Profile: p})
	}
	return &Candidates{Items: items}
}

func (c *Candidates) Len() int {
	return len(c.Items)
}

// Exclude removes every candidate for which drop returns true and returns
// the removed ids.
func (c *Candidates) Exclude(drop func(*Candidate) bool) []string {
	kept := c.Items[:0]
	var excluded []string
	for _, item := range c.Items {
		if drop(item) {
			excluded = append(excluded, item.Profile.ID)
			continue
		}
		kept = append(kept, item)
	}
	for i := len(kept); i < len(c.Items); i++ {
		c.Items[i] = nil
	}
	c.Items = kept
	return excluded
}

func (c *Candidates) IDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.Profile.ID)
	}
	return ids
}
