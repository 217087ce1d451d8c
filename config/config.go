package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"elastic-sentinel/internal/util"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Simulation    SimulationConfig
	Elasticsearch ElasticsearchConfig
	Kafka         KafkaConfig
	TimescaleDB   TimescaleDBConfig
}

type SimulationConfig struct {
	WindowMinutes           int
	LogsPerMinute           int
	IncidentOffsetMinutes   int
	IncidentDurationMinutes int
	BurstMultiplier         int
	DeploymentID            string
	Seed                    int64  // 0 picks a time based seed
	Now                     string // optional RFC3339 or epoch millis; pins the end of the window
}

type ElasticsearchConfig struct {
	URL            string
	APIKey         string
	APIIndex       string
	DBIndex        string
	DeployIndex    string
	FlushBytes     int
	RequestTimeout time.Duration
}

// Kafka mirroring is disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers  []string
	LogTopic string
}

// The ground-truth store is disabled when DSN is empty.
type TimescaleDBConfig struct {
	DSN string
}

func NewConfig() (*Config, error) {
	// Configure Viper to read .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SIMULATOR_WINDOW_MINUTES", 60)
	viper.SetDefault("SIMULATOR_LOGS_PER_MINUTE", 30)
	viper.SetDefault("SIMULATOR_INCIDENT_OFFSET_MINUTES", 30)
	viper.SetDefault("SIMULATOR_INCIDENT_DURATION_MINUTES", 20)
	viper.SetDefault("SIMULATOR_BURST_MULTIPLIER", 3)
	viper.SetDefault("SIMULATOR_DEPLOYMENT_ID", "deploy-82")
	viper.SetDefault("SIMULATOR_SEED", 0)
	viper.SetDefault("SIMULATOR_NOW", "")
	viper.SetDefault("ELASTIC_URL", "http://localhost:9200")
	viper.SetDefault("ELASTIC_API_KEY", "")
	viper.SetDefault("ELASTIC_API_INDEX", "sentinel-api-logs")
	viper.SetDefault("ELASTIC_DB_INDEX", "sentinel-db-logs")
	viper.SetDefault("ELASTIC_DEPLOY_INDEX", "sentinel-deploy-logs")
	viper.SetDefault("ELASTIC_FLUSH_BYTES", 5242880) // 5MB
	viper.SetDefault("ELASTIC_REQUEST_TIMEOUT", "30s")
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_LOG_TOPIC", "sentinel-logs")
	viper.SetDefault("TIMESCALEDB_DSN", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("No .env file loaded, using environment only")
	}

	var config Config

	// --- Simulation ---
	config.Simulation.WindowMinutes = viper.GetInt("SIMULATOR_WINDOW_MINUTES")
	config.Simulation.LogsPerMinute = viper.GetInt("SIMULATOR_LOGS_PER_MINUTE")
	config.Simulation.IncidentOffsetMinutes = viper.GetInt("SIMULATOR_INCIDENT_OFFSET_MINUTES")
	config.Simulation.IncidentDurationMinutes = viper.GetInt("SIMULATOR_INCIDENT_DURATION_MINUTES")
	config.Simulation.BurstMultiplier = viper.GetInt("SIMULATOR_BURST_MULTIPLIER")
	config.Simulation.DeploymentID = viper.GetString("SIMULATOR_DEPLOYMENT_ID")
	config.Simulation.Seed = viper.GetInt64("SIMULATOR_SEED")
	config.Simulation.Now = viper.GetString("SIMULATOR_NOW")

	// --- Elasticsearch ---
	config.Elasticsearch.URL = viper.GetString("ELASTIC_URL")
	config.Elasticsearch.APIKey = viper.GetString("ELASTIC_API_KEY")
	config.Elasticsearch.APIIndex = viper.GetString("ELASTIC_API_INDEX")
	config.Elasticsearch.DBIndex = viper.GetString("ELASTIC_DB_INDEX")
	config.Elasticsearch.DeployIndex = viper.GetString("ELASTIC_DEPLOY_INDEX")
	config.Elasticsearch.FlushBytes = viper.GetInt("ELASTIC_FLUSH_BYTES")
	config.Elasticsearch.RequestTimeout = viper.GetDuration("ELASTIC_REQUEST_TIMEOUT")

	// --- Kafka ---
	config.Kafka.Brokers = splitList(viper.GetString("KAFKA_BROKERS"))
	config.Kafka.LogTopic = viper.GetString("KAFKA_LOG_TOPIC")

	// --- TimescaleDB ---
	config.TimescaleDB.DSN = viper.GetString("TIMESCALEDB_DSN")

	if err := config.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Interface("simulation", config.Simulation).
		Str("elastic_url", config.Elasticsearch.URL).
		Bool("elastic_api_key_set", config.Elasticsearch.APIKey != "").
		Strs("kafka_brokers", config.Kafka.Brokers).
		Bool("timescaledb_enabled", config.TimescaleDB.DSN != "").
		Msg("Config loaded")
	return &config, nil
}

// Validate checks the simulation parameters, including the pinned now, so a bad
// value is rejected before any connection is made. The deployment is placed two minutes
// before the incident, so the incident may not start earlier than minute 2.
func (c *Config) Validate() error {
	s := c.Simulation
	switch {
	case s.WindowMinutes <= 0:
		return fmt.Errorf("%w: window minutes must be positive, got %d", ErrInvalidConfig, s.WindowMinutes)
	case s.LogsPerMinute < 0:
		return fmt.Errorf("%w: logs per minute must not be negative, got %d", ErrInvalidConfig, s.LogsPerMinute)
	case s.BurstMultiplier < 1:
		return fmt.Errorf("%w: burst multiplier must be at least 1, got %d", ErrInvalidConfig, s.BurstMultiplier)
	case s.IncidentOffsetMinutes < 2 || s.IncidentOffsetMinutes >= s.WindowMinutes:
		return fmt.Errorf("%w: incident offset must be in [2, %d), got %d", ErrInvalidConfig, s.WindowMinutes, s.IncidentOffsetMinutes)
	case s.IncidentDurationMinutes < 0:
		return fmt.Errorf("%w: incident duration must not be negative, got %d", ErrInvalidConfig, s.IncidentDurationMinutes)
	case s.DeploymentID == "":
		return fmt.Errorf("%w: deployment id is empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(s.Now) != "" {
		if _, err := util.ParseTimeFlexible(s.Now); err != nil {
			return fmt.Errorf("%w: SIMULATOR_NOW: %w", ErrInvalidConfig, err)
		}
	}

	es := c.Elasticsearch
	if es.URL == "" {
		return fmt.Errorf("%w: elasticsearch url is empty", ErrInvalidConfig)
	}
	if es.APIIndex == "" || es.DBIndex == "" || es.DeployIndex == "" {
		return fmt.Errorf("%w: elasticsearch index names must be set", ErrInvalidConfig)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.LogTopic == "" {
		return fmt.Errorf("%w: kafka brokers set without a log topic", ErrInvalidConfig)
	}
	return nil
}

// Indices returns the destination index names in ingest order: api, db, deploy.
func (c *Config) Indices() []string {
	return []string{c.Elasticsearch.APIIndex, c.Elasticsearch.DBIndex, c.Elasticsearch.DeployIndex}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
