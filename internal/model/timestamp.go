package model

import (
	"fmt"
	"time"
)

// TimestampLayout is ISO-8601 with microseconds and a numeric UTC offset (+00:00, never Z).
const TimestampLayout = "2006-01-02T15:04:05.000000-07:00"

// Timestamp serializes as TimestampLayout in UTC.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(TimestampLayout) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("timestamp must be a JSON string, got %s", data)
	}
	parsed, err := time.Parse(time.RFC3339Nano, string(data[1:len(data)-1]))
	if err != nil {
		return err
	}
	t.Time = parsed.UTC()
	return nil
}
