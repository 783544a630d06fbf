package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{
			name:     "milliseconds",
			input:    "250ms",
			expected: 250 * time.Millisecond,
			wantErr:  false,
		},
		{
			name:     "seconds",
			input:    "30s",
			expected: 30 * time.Second,
			wantErr:  false,
		},
		{
			name:     "minutes",
			input:    "5m",
			expected: 5 * time.Minute,
			wantErr:  false,
		},
		{
			name:     "complex duration",
			input:    "1h30m45s",
			expected: 1*time.Hour + 30*time.Minute + 45*time.Second,
			wantErr:  false,
		},
		{
			name:     "zero duration",
			input:    "0s",
			expected: 0,
			wantErr:  false,
		},
		{
			name:    "invalid format - no unit",
			input:   "100",
			wantErr: true,
		},
		{
			name:    "invalid format - empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "invalid format - non-numeric",
			input:   "abcs",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, d.Duration)
			}
		})
	}
}

func TestNewDuration(t *testing.T) {
	d := NewDuration(5 * time.Minute)
	assert.Equal(t, 5*time.Minute, d.Duration)
}

func TestDuration_Roundtrip(t *testing.T) {
	t.Run("JSON roundtrip", func(t *testing.T) {
		original := struct {
			Timeout Duration `json:"timeout"`
		}{
			Timeout: NewDuration(5 * time.Minute),
		}

		data, err := json.Marshal(original)
		require.NoError(t, err)

		var decoded struct {
			Timeout Duration `json:"timeout"`
		}
		err = json.Unmarshal(data, &decoded)
		require.NoError(t, err)

		assert.Equal(t, original.Timeout.Duration, decoded.Timeout.Duration)
	})

	t.Run("YAML roundtrip", func(t *testing.T) {
		original := struct {
			Timeout Duration `yaml:"timeout"`
		}{
			Timeout: NewDuration(10 * time.Second),
		}

		data, err := yaml.Marshal(original)
		require.NoError(t, err)

		var decoded struct {
			Timeout Duration `yaml:"timeout"`
		}
		err = yaml.Unmarshal(data, &decoded)
		require.NoError(t, err)

		assert.Equal(t, original.Timeout.Duration, decoded.Timeout.Duration)
	})
}

func TestParseAppID(t *testing.T) {
	id, err := ParseAppID(" 40817421 ")
	require.NoError(t, err)
	assert.Equal(t, uint64(40817421), id)

	_, err = ParseAppID("not-a-number")
	require.Error(t, err)

	assert.Equal(t, "40817421", FormatAppID(40817421))
}
