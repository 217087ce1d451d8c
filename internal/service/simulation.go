package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"elastic-sentinel/config"
	"elastic-sentinel/internal/elasticsearch"
	"elastic-sentinel/internal/kafka"
	"elastic-sentinel/internal/metrics"
	"elastic-sentinel/internal/model"
	"elastic-sentinel/internal/timescaledb"
	"elastic-sentinel/internal/timeline"
	"elastic-sentinel/internal/util"
)

type SourceSummary struct {
	Index     string
	Source    model.Source
	Generated int
	Ingested  int
	Failed    int
}

type Summary struct {
	RunID             string
	Seed              int64
	Window            timeline.Window
	Sources           []SourceSummary
	Mirrored          int
	GroundTruthEvents int
}

type SimulationService interface {
	Run(ctx context.Context) (*Summary, error)
}

type simulationService struct {
	cfg         *config.Config
	provisioner elasticsearch.Provisioner
	store       elasticsearch.LogStore
	producer    kafka.RecordProducer         // nil when mirroring is off
	groundTruth timescaledb.GroundTruthStore // nil when no DSN is set
	extractor   metrics.Extractor
	clock       func() time.Time
}

func NewSimulationService(
	cfg *config.Config,
	provisioner elasticsearch.Provisioner,
	store elasticsearch.LogStore,
	producer kafka.RecordProducer,
	groundTruth timescaledb.GroundTruthStore,
	extractor metrics.Extractor,
) SimulationService {
	return &simulationService{
		cfg:         cfg,
		provisioner: provisioner,
		store:       store,
		producer:    producer,
		groundTruth: groundTruth,
		extractor:   extractor,
		clock:       time.Now,
	}
}

func (s *simulationService) Run(ctx context.Context) (*Summary, error) {
	startTime := time.Now()

	now, err := util.ResolveNow(s.cfg.Simulation.Now, s.clock)
	if err != nil {
		return nil, fmt.Errorf("%w: SIMULATOR_NOW: %w", config.ErrInvalidConfig, err)
	}

	seed := s.cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	summary := &Summary{RunID: uuid.NewString(), Seed: seed}

	log.Info().Strs("indices", s.cfg.Indices()).Msg("Setting up indices...")
	if err := s.provisioner.EnsureIndices(ctx, s.cfg.Indices()...); err != nil {
		return nil, err
	}

	result := timeline.NewController(s.cfg.Simulation, seed).Run(now)
	summary.Window = result.Window
	log.Info().
		Int("window_minutes", s.cfg.Simulation.WindowMinutes).
		Time("base_time", result.Window.Base).
		Time("deployment_at", result.Window.DeploymentTime).
		Time("incident_start", result.Window.IncidentStart).
		Time("incident_end", result.Window.IncidentEnd).
		Int64("seed", seed).
		Msg("Simulated log window")

	batches := []struct {
		index   string
		source  model.Source
		records []model.LogRecord
	}{
		{s.cfg.Elasticsearch.APIIndex, model.SourceAPI, model.Records(result.API)},
		{s.cfg.Elasticsearch.DBIndex, model.SourceDatabase, model.Records(result.DB)},
		{s.cfg.Elasticsearch.DeployIndex, model.SourceDeployment, model.Records(result.Deployments)},
	}

	log.Info().Msg("Ingesting logs into Elasticsearch...")
	for _, b := range batches {
		res, err := s.store.Ingest(ctx, b.index, b.records)
		if err != nil {
			return nil, fmt.Errorf("ingesting into %s: %w", b.index, err)
		}
		if res.Failed() > 0 {
			log.Warn().Str("index", b.index).Int("errors", res.Failed()).Err(res.Errors[0]).Msg("Some documents were rejected")
		}
		log.Info().Str("index", b.index).Int("ingested", res.Succeeded).Msg("Ingested documents")
		summary.Sources = append(summary.Sources, SourceSummary{
			Index:     b.index,
			Source:    b.source,
			Generated: len(b.records),
			Ingested:  res.Succeeded,
			Failed:    res.Failed(),
		})
	}

	if s.producer != nil {
		records := result.Records()
		if err := s.producer.Produce(ctx, records); err != nil {
			log.Warn().Err(err).Msg("Kafka mirror failed, continuing")
		} else {
			summary.Mirrored = len(records)
		}
	}

	if s.groundTruth != nil {
		events := s.groundTruthEvents(result)
		if err := s.groundTruth.StoreMetricEvents(ctx, summary.RunID, events); err != nil {
			log.Warn().Err(err).Msg("Storing ground truth failed, continuing")
		} else {
			summary.GroundTruthEvents = len(events)
		}
	}

	logSummary(summary, time.Since(startTime))
	return summary, nil
}

func (s *simulationService) groundTruthEvents(result *timeline.Result) []model.MetricEvent {
	w := result.Window
	events := s.extractor.IncidentMarkers(w.IncidentStart, w.IncidentEnd, w.DeploymentID)
	for _, record := range result.Records() {
		events = append(events, s.extractor.ExtractMetricEvents(record)...)
	}
	return events
}

func logSummary(summary *Summary, duration time.Duration) {
	ev := log.Info().
		Str("run_id", summary.RunID).
		Time("incident_start", summary.Window.IncidentStart).
		Time("incident_end", summary.Window.IncidentEnd).
		Str("linked_deployment", summary.Window.DeploymentID).
		Int("mirrored", summary.Mirrored).
		Int("ground_truth_events", summary.GroundTruthEvents).
		Dur("duration", duration)
	for _, src := range summary.Sources {
		ev = ev.Int("total_"+string(src.Source), src.Generated)
	}
	ev.Msg("Simulation complete")
}
