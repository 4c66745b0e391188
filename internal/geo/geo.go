// Package geo resolves postal addresses to coordinates through an
// address-geocoding HTTP provider and computes great-circle distances.
//
// Every lookup is fail-soft: provider failures are logged and reported as
// "unknown" (nil coordinates, empty label) instead of errors.
package geo

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL    = "https://api-adresse.data.gouv.fr"
	userAgent = "medishift/mission-matcher"

	// DefaultTimeout bounds a single provider call.
	DefaultTimeout = 3 * time.Second

	minAddressLength = 3
	maxLogBody       = 200
)

// Coordinates is a resolved position. Longitude comes first in provider payloads.
type Coordinates struct {
	Longitude  float64 `json:"longitude"`
	Latitude   float64 `json:"latitude"`
	Label      string  `json:"label,omitempty"`
	City       string  `json:"city,omitempty"`
	PostalCode string  `json:"postalCode,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Resolver is the lookup surface consumed by the mission lifecycle.
type Resolver interface {
	GeocodeAddress(ctx context.Context, address string) *Coordinates
	GeocodeCityPostalCode(ctx context.Context, city, postalCode string) *Coordinates
	ReverseGeocode(ctx context.Context, lon, lat float64) (string, bool)
}

type Client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	// APIKey is sent as a bearer token when the provider requires one.
	APIKey string
}

func New(logger *zap.Logger, timeout time.Duration) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}
