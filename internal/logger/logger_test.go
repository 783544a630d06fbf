package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		development bool
		wantErr     bool
	}{
		{name: "debug development", level: "debug", development: true},
		{name: "info production", level: "info", development: false},
		{name: "warn production", level: "warn", development: false},
		{name: "error development", level: "error", development: true},
		{name: "invalid level", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := NewLogger(tt.level, tt.development)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, log)
		})
	}
}

func TestNewComponentLogger(t *testing.T) {
	log := NewComponentLogger("driver", "info", true)
	require.NotNil(t, log)

	// Bad level falls back to the default logger rather than failing.
	log = NewComponentLogger("driver", "bogus", true)
	require.NotNil(t, log)
}

func TestNewNopLogger(t *testing.T) {
	log := NewNopLogger()
	require.NotNil(t, log)

	// Should not panic or write anywhere.
	log.Info("discarded")
	log.Errorf("discarded %d", 1)
}

func TestWithComponent(t *testing.T) {
	log := NewNopLogger().WithComponent("store")
	assert.NotNil(t, log)
}

func TestGetDefaultLogger(t *testing.T) {
	log := GetDefaultLogger()
	require.NotNil(t, log)
	assert.Same(t, log, GetDefaultLogger())
}
