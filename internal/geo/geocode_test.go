package geo

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const parisFeature = `{
  "type": "FeatureCollection",
  "features": [{
    "type": "Feature",
    "geometry": {"type": "Point", "coordinates": [2.3522, 48.8566]},
    "properties": {"label": "8 Rue de Rivoli 75004 Paris", "city": "Paris", "postcode": "75004", "score": 0.97}
  }]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) (*Client, *observer.ObservedLogs) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	core, logs := observer.New(zapcore.DebugLevel)
	c := New(zap.New(core), timeout)
	c.APIURL = srv.URL

	return c, logs
}

func TestGeocodeAddress(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "8 rue de Rivoli, Paris" {
			t.Errorf("unexpected q %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "1" {
			t.Errorf("unexpected limit %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("unexpected accept header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(parisFeature))
	}, 0)

	coords := c.GeocodeAddress(context.Background(), "  8 rue de Rivoli, Paris ")
	if coords == nil {
		t.Fatalf("expected coordinates")
	}
	if coords.Latitude != 48.8566 || coords.Longitude != 2.3522 {
		t.Fatalf("unexpected coordinates: %+v", coords)
	}
	if coords.City != "Paris" || coords.PostalCode != "75004" || coords.Confidence != 0.97 {
		t.Fatalf("unexpected properties: %+v", coords)
	}
}

func TestGeocodeAddressGzip(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(parisFeature))
		_ = gz.Close()
	}, 0)

	if coords := c.GeocodeAddress(context.Background(), "Paris"); coords == nil {
		t.Fatalf("expected coordinates from gzip body")
	}
}

func TestGeocodeAddressShortInputSkipsProvider(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c, logs := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(parisFeature))
	}, 0)

	for _, input := range []string{"", "  ", "ab", " a  "} {
		if coords := c.GeocodeAddress(context.Background(), input); coords != nil {
			t.Fatalf("expected nil for %q, got %+v", input, coords)
		}
	}

	if calls.Load() != 0 {
		t.Fatalf("expected no provider calls, got %d", calls.Load())
	}
	if n := logs.FilterLevelExact(zapcore.WarnLevel).Len(); n != 4 {
		t.Fatalf("expected 4 warn logs, got %d", n)
	}
}

func TestGeocodeAddressFailSoft(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		level   zapcore.Level
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			level: zapcore.ErrorLevel,
		},
		{
			name: "no features",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
			},
			level: zapcore.WarnLevel,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"features": [`))
			},
			level: zapcore.ErrorLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, logs := newTestClient(t, tt.handler, 0)
			if coords := c.GeocodeAddress(context.Background(), "1 place Bellecour Lyon"); coords != nil {
				t.Fatalf("expected nil, got %+v", coords)
			}
			if logs.FilterLevelExact(tt.level).Len() != 1 {
				t.Fatalf("expected one %s log, got %v", tt.level, logs.All())
			}
		})
	}
}

func TestGeocodeAddressTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	c, logs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}, 50*time.Millisecond)
	defer close(release)

	start := time.Now()
	if coords := c.GeocodeAddress(context.Background(), "1 place Bellecour Lyon"); coords != nil {
		t.Fatalf("expected nil on timeout")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("lookup was not bounded by the timeout: %s", elapsed)
	}
	if logs.FilterLevelExact(zapcore.ErrorLevel).Len() != 1 {
		t.Fatalf("expected an error log on timeout")
	}
}

func TestGeocodeCityPostalCode(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Lyon 69002" {
			t.Errorf("unexpected q %q", got)
		}
		_, _ = w.Write([]byte(parisFeature))
	}, 0)

	if coords := c.GeocodeCityPostalCode(context.Background(), " Lyon", "69002 "); coords == nil {
		t.Fatalf("expected coordinates")
	}
}

func TestReverseGeocode(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("lon") != "2.3522" || r.URL.Query().Get("lat") != "48.8566" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(parisFeature))
	}, 0)

	label, ok := c.ReverseGeocode(context.Background(), 2.3522, 48.8566)
	if !ok {
		t.Fatalf("expected a label")
	}
	if label != "8 Rue de Rivoli 75004 Paris" {
		t.Fatalf("unexpected label %q", label)
	}
}

func TestReverseGeocodeFailSoft(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, 0)

	label, ok := c.ReverseGeocode(context.Background(), 2.3522, 48.8566)
	if ok || label != "" {
		t.Fatalf("expected unknown label, got %q", label)
	}
}
