package geo

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	// Properties vary between providers and endpoints, so they are kept raw
	// and decoded into featureProperties.
	Properties map[string]interface{} `json:"properties"`
}

type featureProperties struct {
	Label    string  `json:"label"`
	City     string  `json:"city"`
	Postcode string  `json:"postcode"`
	Score    float64 `json:"score"`
}

var errNoFeatures = errors.New("no features in response")

// GeocodeAddress resolves a free-form address. It returns nil when the
// address is too short, the provider has no match, or the call fails.
func (c *Client) GeocodeAddress(ctx context.Context, address string) *Coordinates {
	address = strings.TrimSpace(address)
	if len([]rune(address)) < minAddressLength {
		c.logger.Warn("address too short to geocode", zap.String("address", address))
		return nil
	}

	q := url.Values{}
	q.Set("q", address)
	q.Set("limit", "1")

	f, err := c.firstFeature(ctx, "/search/", q)
	if err != nil {
		c.logLookupFailure("geocode address", err, zap.String("address", address))
		return nil
	}

	coords, err := f.coordinates()
	if err != nil {
		c.logger.Warn("unusable geocoding feature", zap.String("address", address), zap.Error(err))
		return nil
	}

	c.logger.Debug("address geocoded",
		zap.String("address", address),
		zap.Float64("latitude", coords.Latitude),
		zap.Float64("longitude", coords.Longitude),
		zap.Float64("confidence", coords.Confidence),
	)

	return coords
}

// GeocodeCityPostalCode resolves a "city postalCode" pair.
func (c *Client) GeocodeCityPostalCode(ctx context.Context, city, postalCode string) *Coordinates {
	return c.GeocodeAddress(ctx, strings.TrimSpace(city)+" "+strings.TrimSpace(postalCode))
}

// ReverseGeocode returns the label of the address closest to the point.
func (c *Client) ReverseGeocode(ctx context.Context, lon, lat float64) (string, bool) {
	q := url.Values{}
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))

	f, err := c.firstFeature(ctx, "/reverse/", q)
	if err != nil {
		c.logLookupFailure("reverse geocode", err, zap.Float64("longitude", lon), zap.Float64("latitude", lat))
		return "", false
	}

	props, err := f.properties()
	if err != nil || props.Label == "" {
		c.logger.Warn("reverse geocoding feature has no label", zap.Float64("longitude", lon), zap.Float64("latitude", lat))
		return "", false
	}

	return props.Label, true
}

func (c *Client) firstFeature(ctx context.Context, path string, q url.Values) (*feature, error) {
	var fc featureCollection
	if err := c.getJSON(ctx, path, q, &fc); err != nil {
		return nil, err
	}

	if len(fc.Features) == 0 {
		return nil, errNoFeatures
	}

	return &fc.Features[0], nil
}

// logLookupFailure logs an empty result at warn level and everything else
// (transport, status, decoding) at error level.
func (c *Client) logLookupFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if errors.Is(err, errNoFeatures) {
		c.logger.Warn(op+": no match", fields...)
		return
	}
	c.logger.Error(op+" failed", fields...)
}

func (f *feature) properties() (*featureProperties, error) {
	var props featureProperties
	cfg := &mapstructure.DecoderConfig{
		Result:           &props,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(f.Properties); err != nil {
		return nil, err
	}

	return &props, nil
}

func (f *feature) coordinates() (*Coordinates, error) {
	if len(f.Geometry.Coordinates) < 2 {
		return nil, errors.New("geometry has no coordinates")
	}

	props, err := f.properties()
	if err != nil {
		return nil, err
	}

	return &Coordinates{
		Longitude:  f.Geometry.Coordinates[0],
		Latitude:   f.Geometry.Coordinates[1],
		Label:      props.Label,
		City:       props.City,
		PostalCode: props.Postcode,
		Confidence: props.Score,
	}, nil
}
