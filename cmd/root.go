package cmd

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/medishift/mission-matcher/internal/geo"
	"github.com/medishift/mission-matcher/internal/matching"
	"github.com/medishift/mission-matcher/internal/mission"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "mission-matcher"
)

type Config struct {
	Database *DatabaseConfig `mapstructure:"database"`
	Redis    *RedisConfig    `mapstructure:"redis"`
	Geocoder *GeocoderConfig `mapstructure:"geocoder"`
	Matching *MatchingConfig `mapstructure:"matching"`
	Sweep    *SweepConfig    `mapstructure:"sweep"`
	Server   *ServerConfig   `mapstructure:"server"`
}

type DatabaseConfig struct {
	// Driver is postgres or memory.
	Driver   string `mapstructure:"driver"`
	URL      string `mapstructure:"url" json:"-"`
	URLFile  string `mapstructure:"url-file"`
	Fixtures string `mapstructure:"fixtures"`
}

type RedisConfig struct {
	URL           string `mapstructure:"url" json:"-"`
	ChannelPrefix string `mapstructure:"channel-prefix"`
}

type GeocoderConfig struct {
	BaseURL    string        `mapstructure:"base-url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	UserAgent  string        `mapstructure:"user-agent"`
	APIKeyFile string        `mapstructure:"api-key-file"`
	CacheTTL   time.Duration `mapstructure:"cache-ttl"`
}

type MatchingConfig struct {
	Weights matching.Weights `mapstructure:"weights"`

	matching.ScoringPolicy `mapstructure:",squash"`
	matching.FinderPolicy  `mapstructure:",squash"`
}

type SweepConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout"`
	WriteTimeout    time.Duration `mapstructure:"write-timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "mission-matcher ranks available care professionals for staffing missions and drives the mission lifecycle",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"database.url-file":     "DATABASE_URL_FILE",
		"redis.url":             "REDIS_URL",
		"geocoder.api-key-file": "GEOCODER_API_KEY_FILE",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is mission-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	weights := matching.DefaultWeights()
	policy := matching.DefaultScoringPolicy()

	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("redis.channel-prefix", "")
	viper.SetDefault("geocoder.timeout", geo.DefaultTimeout)
	viper.SetDefault("geocoder.cache-ttl", geo.DefaultCacheTTL)
	viper.SetDefault("matching.weights.distance", weights.Distance)
	viper.SetDefault("matching.weights.skills", weights.Skills)
	viper.SetDefault("matching.weights.rating", weights.Rating)
	viper.SetDefault("matching.weights.experience", weights.Experience)
	viper.SetDefault("matching.weights.availability", weights.Availability)
	viper.SetDefault("matching.unavailable-cap", policy.UnavailableCap)
	viper.SetDefault("matching.experience-saturation", policy.ExperienceSaturation)
	viper.SetDefault("matching.newcomer-floor", policy.NewcomerFloor)
	viper.SetDefault("sweep.enabled", true)
	viper.SetDefault("sweep.schedule", mission.DefaultSweepSchedule)
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.read-timeout", 10*time.Second)
	viper.SetDefault("server.write-timeout", 30*time.Second)
	viper.SetDefault("server.shutdown-timeout", 15*time.Second)
}

func initConfig() {
	// A missing .env is fine, a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional: every setting has a default or an env var.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
