package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"elastic-sentinel/config"
	"elastic-sentinel/internal/elasticsearch"
	"elastic-sentinel/internal/kafka"
	"elastic-sentinel/internal/metrics"
	"elastic-sentinel/internal/service"
	"elastic-sentinel/internal/timescaledb"
)

const runTimeout = 10 * time.Minute

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	app := fx.New(
		fx.NopLogger,
		fx.StartTimeout(runTimeout),
		// Core Dependencies
		fx.Provide(
			NewConfig,
		),
		// Infrastructure Dependencies
		fx.Provide(
			NewElasticsearchClient,
			elasticsearch.NewProvisioner,
			elasticsearch.NewElasticLogStore,
			kafka.NewKafkaRecordProducer,
			timescaledb.ProvideGroundTruthStore,
			metrics.NewRecordExtractor,
			service.NewSimulationService,
		),
		fx.Invoke(RegisterSimulationRun),
	)

	// The simulation runs inside Start; a failure there is fatal.
	startCtx, cancelStart := context.WithTimeout(context.Background(), runTimeout)
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		log.Fatal().Err(err).Msg("Simulation failed")
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Error while releasing clients")
	}
}

func NewConfig() (*config.Config, error) {
	return config.NewConfig()
}

func NewElasticsearchClient(cfg *config.Config) (*elasticsearch.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Elasticsearch.RequestTimeout)
	defer cancel()
	log.Info().Msg("Connecting to Elasticsearch...")
	return elasticsearch.Connect(ctx, cfg)
}

// --- Invoker Functions ---

func RegisterSimulationRun(lc fx.Lifecycle, svc service.SimulationService) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msg("Elastic Sentinel log simulator starting")
			_, err := svc.Run(ctx)
			return err
		},
	})
}
