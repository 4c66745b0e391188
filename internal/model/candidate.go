package model

// Diploma is a credential held by a candidate.
type Diploma struct {
	Name string `json:"name"`
	Year int    `json:"year,omitempty"`
}

// CandidateProfile is a professional who can be matched to missions.
type CandidateProfile struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	AvatarURL     string    `json:"avatarUrl,omitempty"`
	Headline      string    `json:"headline,omitempty"`
	Specialties   []string  `json:"specialties"`
	Diplomas      []Diploma `json:"diplomas"`
	HourlyRate    float64   `json:"hourlyRate"`
	AverageRating float64   `json:"averageRating"`
	TotalMissions int       `json:"totalMissions"`
	IsAvailable   bool      `json:"isAvailable"`
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (c *CandidateProfile) HasCoordinates() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// CoordinatesConsistent reports whether latitude and longitude are both
// present or both absent.
func (c *CandidateProfile) CoordinatesConsistent() bool {
	return (c.Latitude == nil) == (c.Longitude == nil)
}

// DiplomaNames returns the names of the candidate's diplomas.
func (c *CandidateProfile) DiplomaNames() []string {
	names := make([]string, 0, len(c.Diplomas))
	for _, d := range c.Diplomas {
		names = append(names, d.Name)
	}
	return names
}
