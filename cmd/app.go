package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/medishift/mission-matcher/internal/events"
	"github.com/medishift/mission-matcher/internal/geo"
	"github.com/medishift/mission-matcher/internal/logger"
	"github.com/medishift/mission-matcher/internal/matching"
	"github.com/medishift/mission-matcher/internal/mission"
	"github.com/medishift/mission-matcher/internal/model"
	"github.com/medishift/mission-matcher/internal/secrets"
	"github.com/medishift/mission-matcher/internal/store"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// backend is what both store drivers provide.
type backend interface {
	mission.Store
	matching.CandidatePool
	SaveCandidate(ctx context.Context, c *model.CandidateProfile) error
}

type application struct {
	config   *Config
	logger   *zap.Logger
	store    backend
	postgres *store.Postgres
	finder   *matching.Finder
	missions *mission.Service
	closers  []func()
}

// newLogger builds the command logger from the persistent flags.
func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

// newApplication wires the store, event publisher, geocoder, scorer and finder.
func newApplication(ctx context.Context, logger *zap.Logger) (*application, error) {
	config, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}
	if config == nil {
		return nil, errors.New("config is required")
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config.Geocoder == nil {
		config.Geocoder = &GeocoderConfig{}
	}

	a := &application{config: config, logger: logger}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	var (
		publisher mission.Publisher = mission.NopPublisher{}
		resolver  geo.Resolver
	)

	geocoder, err := newGeocoder(config.Geocoder, logger.Named("geocoder"))
	if err != nil {
		a.Close()
		return nil, err
	}
	resolver = geocoder

	if config.Redis != nil && strings.TrimSpace(config.Redis.URL) != "" {
		rdb, err := events.NewRedisClient(ctx, config.Redis.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })

		publisher = events.NewRedisPublisher(rdb, config.Redis.ChannelPrefix, logger.Named("events"))
		resolver = geo.NewCachedResolver(geocoder, rdb, config.Geocoder.CacheTTL, logger.Named("geocoder"))
	} else {
		logger.Info("redis is not configured, mission events are not published and geocoding is not cached")
	}

	mc := config.Matching
	if mc == nil {
		mc = &MatchingConfig{Weights: matching.DefaultWeights(), ScoringPolicy: matching.DefaultScoringPolicy()}
	}

	scorer, err := matching.NewScorer(mc.Weights, mc.ScoringPolicy)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("matching config: %w", err)
	}

	a.finder = matching.NewFinder(a.store, a.store, scorer, mc.FinderPolicy, logger.Named("finder"))
	a.missions = mission.NewService(a.store, resolver, publisher, logger.Named("missions"))

	for _, step := range a.finder.Describe() {
		logger.Debug("finder step", zap.String("name", step.Name), zap.Bool("enabled", step.Enabled), zap.String("reason", step.Reason))
	}

	return a, nil
}

func (a *application) openStore(ctx context.Context) error {
	db := a.config.Database
	if db == nil {
		db = &DatabaseConfig{Driver: "postgres"}
	}

	switch strings.ToLower(strings.TrimSpace(db.Driver)) {
	case "memory":
		if db.Fixtures == "" {
			a.store = store.NewMemory()
			a.logger.Warn("using an empty in-memory store", zap.String("hint", "set database.fixtures to load missions and candidates"))
			return nil
		}

		mem, err := store.LoadFixtures(db.Fixtures)
		if err != nil {
			return err
		}
		a.store = mem
		a.logger.Info("using the in-memory store", zap.String("fixtures", db.Fixtures))
		return nil
	case "", "postgres":
		url, err := secrets.Load(secrets.Source{
			Name:  "database url",
			File:  db.URLFile,
			Env:   "DATABASE_URL",
			Value: db.URL,
		})
		if err != nil {
			return fmt.Errorf("%w (set DATABASE_URL, DATABASE_URL_FILE or database.url)", err)
		}

		pool, err := store.NewPostgresPool(ctx, url)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)

		a.postgres = store.NewPostgres(pool)
		a.store = a.postgres
		return nil
	default:
		return fmt.Errorf("unsupported database driver: %s", db.Driver)
	}
}

func newGeocoder(cfg *GeocoderConfig, logger *zap.Logger) (*geo.Client, error) {
	client := geo.New(logger, cfg.Timeout)
	if cfg.BaseURL != "" {
		client.APIURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.UserAgent != "" {
		client.UserAgent = cfg.UserAgent
	}

	key, err := secrets.LoadOptional(secrets.Source{Name: "geocoder api key", File: cfg.APIKeyFile})
	if err != nil {
		return nil, fmt.Errorf("%w (check geocoder.api-key-file or GEOCODER_API_KEY_FILE)", err)
	}
	client.APIKey = key

	return client, nil
}

// Close releases connections in reverse order.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
