package model

import "time"

type Source string

const (
	SourceAPI        Source = "api"
	SourceDatabase   Source = "database"
	SourceDeployment Source = "deployment"
)

// LogRecord is one generated document. The concrete types are APILogEntry,
// DBLogEntry and DeploymentEvent; their JSON form is the backend document.
type LogRecord interface {
	RecordSource() Source
	RecordTime() time.Time
	IsErrorRecord() bool
}

type APILogEntry struct {
	Timestamp  Timestamp `json:"@timestamp"`
	Type       Source    `json:"type"`
	Service    string    `json:"service"`
	Method     string    `json:"method"`
	Endpoint   string    `json:"endpoint"`
	StatusCode int       `json:"status_code"`
	LatencyMs  int       `json:"latency_ms"`
	UserID     string    `json:"user_id"`
	RequestID  string    `json:"request_id"`
	IP         string    `json:"ip"`
	IsError    bool      `json:"is_error"`
	Message    string    `json:"message"`
}

func (e APILogEntry) RecordSource() Source  { return SourceAPI }
func (e APILogEntry) RecordTime() time.Time { return e.Timestamp.Time }
func (e APILogEntry) IsErrorRecord() bool   { return e.IsError }

type DBLogEntry struct {
	Timestamp          Timestamp `json:"@timestamp"`
	Type               Source    `json:"type"`
	Operation          string    `json:"operation"`
	Table              string    `json:"table"`
	QueryTimeMs        int       `json:"query_time_ms"`
	RowsAffected       int       `json:"rows_affected"`
	IsTimeout          bool      `json:"is_timeout"`
	IsError            bool      `json:"is_error"`
	ConnectionPoolSize int       `json:"connection_pool_size"`
	Message            string    `json:"message"`
}

func (e DBLogEntry) RecordSource() Source  { return SourceDatabase }
func (e DBLogEntry) RecordTime() time.Time { return e.Timestamp.Time }
func (e DBLogEntry) IsErrorRecord() bool   { return e.IsError }

type DeploymentStatus string

const (
	DeploymentStarted   DeploymentStatus = "STARTED"
	DeploymentCompleted DeploymentStatus = "COMPLETED"
	DeploymentFailed    DeploymentStatus = "FAILED"
	DeploymentRollback  DeploymentStatus = "ROLLBACK"
)

// IsError reports whether the status marks a broken deployment.
func (s DeploymentStatus) IsError() bool {
	return s == DeploymentFailed || s == DeploymentRollback
}

type DeploymentEvent struct {
	Timestamp    Timestamp        `json:"@timestamp"`
	Type         Source           `json:"type"`
	DeploymentID string           `json:"deployment_id"`
	Status       DeploymentStatus `json:"status"`
	Version      string           `json:"version"`
	TriggeredBy  string           `json:"triggered_by"`
	Environment  string           `json:"environment"`
	Note         string           `json:"note"`
	IsError      bool             `json:"is_error"`
	Message      string           `json:"message"`
}

func (e DeploymentEvent) RecordSource() Source  { return SourceDeployment }
func (e DeploymentEvent) RecordTime() time.Time { return e.Timestamp.Time }
func (e DeploymentEvent) IsErrorRecord() bool   { return e.IsError }

// Records widens a slice of one record type to []LogRecord.
func Records[T LogRecord](in []T) []LogRecord {
	out := make([]LogRecord, len(in))
	for i, r := range in {
		out[i] = r
	}
	return out
}
