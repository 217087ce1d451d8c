package metrics

import (
	"time"

	"github.com/rs/zerolog/log"

	"elastic-sentinel/internal/model"
)

const (
	MetricLogEvent      = "log_event"
	MetricErrorEvent    = "error_event"
	MetricIncidentStart = "incident_start"
	MetricIncidentEnd   = "incident_end"
)

// Extractor turns generated records into ground-truth metric events.
type Extractor interface {
	ExtractMetricEvents(record model.LogRecord) []model.MetricEvent
	IncidentMarkers(start, end time.Time, deploymentID string) []model.MetricEvent
}

type recordExtractor struct{}

func NewRecordExtractor() Extractor {
	return &recordExtractor{}
}

// ExtractMetricEvents emits a log_event for every record and an error_event for
// records whose error flag is set.
func (e *recordExtractor) ExtractMetricEvents(record model.LogRecord) []model.MetricEvent {
	if record == nil {
		return nil
	}

	tags := recordTags(record)
	ts := record.RecordTime()
	source := record.RecordSource()

	events := make([]model.MetricEvent, 0, 2)
	events = append(events, model.MetricEvent{
		Time:       ts,
		MetricName: MetricLogEvent,
		Source:     source,
		Tags:       tags,
	})

	if record.IsErrorRecord() {
		errorTags := make(map[string]string, len(tags)+1)
		for k, v := range tags {
			errorTags[k] = v
		}
		errorTags["error_key"] = errorKey(record)
		events = append(events, model.MetricEvent{
			Time:       ts,
			MetricName: MetricErrorEvent,
			Source:     source,
			Tags:       errorTags,
		})
	}
	log.Trace().Str("source", string(source)).Time("record_time", ts).Int("event_count", len(events)).Msg("Extracted metric events")
	return events
}

// IncidentMarkers records the injected incident window itself.
func (e *recordExtractor) IncidentMarkers(start, end time.Time, deploymentID string) []model.MetricEvent {
	tags := map[string]string{"deployment_id": deploymentID}
	return []model.MetricEvent{
		{Time: start, MetricName: MetricIncidentStart, Source: model.SourceDeployment, Tags: tags},
		{Time: end, MetricName: MetricIncidentEnd, Source: model.SourceDeployment, Tags: tags},
	}
}

func recordTags(record model.LogRecord) map[string]string {
	switch r := record.(type) {
	case model.APILogEntry:
		return map[string]string{"service": r.Service, "endpoint": r.Endpoint, "method": r.Method}
	case model.DBLogEntry:
		return map[string]string{"operation": r.Operation, "table": r.Table}
	case model.DeploymentEvent:
		return map[string]string{"deployment_id": r.DeploymentID, "status": string(r.Status), "version": r.Version}
	default:
		return map[string]string{}
	}
}

func errorKey(record model.LogRecord) string {
	switch r := record.(type) {
	case model.APILogEntry:
		return r.Message
	case model.DBLogEntry:
		return r.Message
	case model.DeploymentEvent:
		return string(r.Status)
	default:
		return "unknown"
	}
}
