package recurrence

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want func() EngineConfig
	}{
		{
			name: "empty input uses defaults",
			yaml: "",
			want: func() EngineConfig { return DefaultEngineConfig },
		},
		{
			name: "preset only",
			yaml: "preset: low-memory\n",
			want: func() EngineConfig { return LowMemoryConfig },
		},
		{
			name: "overrides on a preset",
			yaml: `preset: high-performance
max_expansion_occurrences: 20
cache:
  ttl: 1h
  max_entries: 50
expansion:
  max_occurrences: 10
  max_time_span: 13w
  include_exceptions: false
`,
			want: func() EngineConfig {
				c := HighPerformanceConfig
				c.MaxExpansionOccurrences = 20
				c.CacheConfig.TTL = time.Hour
				c.CacheConfig.MaxEntries = 50
				c.Expansion = ExpansionOptions{
					MaxOccurrences:    10,
					MaxTimeSpan:       13 * 7 * 24 * time.Hour,
					IncludeExceptions: false,
				}
				return c
			},
		},
		{
			name: "cache disabled",
			yaml: "cache:\n  enabled: false\n",
			want: func() EngineConfig {
				c := DefaultEngineConfig
				c.CacheEnabled = false
				return c
			},
		},
		{
			name: "day durations",
			yaml: "expansion:\n  max_time_span: 1d12h\n",
			want: func() EngineConfig {
				c := DefaultEngineConfig
				c.Expansion.MaxTimeSpan = 36 * time.Hour
				return c
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadConfig(strings.NewReader(tt.yaml))
			require.NoError(t, err)
			assert.Equal(t, tt.want(), got)
		})
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{"unknown preset", "preset: turbo\n", "unknown engine config preset"},
		{"unknown field", "cache:\n  size: 3\n", "decode engine config"},
		{"bad duration", "cache:\n  ttl: soon\n", "cache.ttl"},
		{"cache without entries", "cache:\n  max_entries: 0\n", "positive"},
		{"not a mapping", "- 1\n- 2\n", "decode engine config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestNewEngineWithConfig(t *testing.T) {
	engine := NewEngineWithConfig(LowMemoryConfig)
	defer engine.Close()

	assert.Equal(t, LowMemoryConfig, engine.Config())
	_, ok := engine.CacheStats()
	assert.True(t, ok)

	plain := NewEngine()
	assert.Equal(t, DisabledCacheConfig, plain.Config())
	plain.Close()
}
