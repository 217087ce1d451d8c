package util_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elastic-sentinel/internal/util"
)

func TestParseTimeFlexible(t *testing.T) {
	want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339 utc", "2024-03-01T10:00:00Z", want},
		{"rfc3339 offset", "2024-03-01T17:00:00+07:00", want},
		{"rfc3339 fractional", "2024-03-01T10:00:00.5Z", want.Add(500 * time.Millisecond)},
		{"epoch millis", "1709287200000", want},
		{"surrounding space", " 2024-03-01T10:00:00Z ", want},
		{"zoneless layout", "2024-03-01 10:00:00", want},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := util.ParseTimeFlexible(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	_, err := util.ParseTimeFlexible("garbage")
	assert.Error(t, err)
}

func TestResolveNow(t *testing.T) {
	clock := func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }

	got, err := util.ResolveNow("", clock)
	require.NoError(t, err)
	assert.Equal(t, clock(), got)

	got, err = util.ResolveNow("2024-03-01T10:00:00Z", clock)
	require.NoError(t, err)
	assert.Equal(t, 2024, got.Year())

	_, err = util.ResolveNow("garbage", clock)
	assert.Error(t, err)
}
