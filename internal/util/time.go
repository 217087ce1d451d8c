package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ParseTimeFlexible accepts RFC3339 (fractional seconds optional), epoch
// milliseconds, or any layout dateparse recognises, and returns the instant in
// UTC. Layouts without a zone are read as UTC.
func ParseTimeFlexible(timeStr string) (time.Time, error) {
	timeStr = strings.TrimSpace(timeStr)
	if t, err := time.Parse(time.RFC3339Nano, timeStr); err == nil {
		return t.UTC(), nil
	}
	if ms, err := strconv.ParseInt(timeStr, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	if t, err := dateparse.ParseIn(timeStr, time.UTC); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time format: %q", timeStr)
}

// ResolveNow returns the pinned instant when raw is set, otherwise clock().
func ResolveNow(raw string, clock func() time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return clock().UTC(), nil
	}
	return ParseTimeFlexible(raw)
}
