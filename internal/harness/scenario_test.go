package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "Adds one item"
now: "2024-05-10T12:00:00Z"
steps:
  - op: add_item
    args: { label: Gym, at: "07:00" }
assertions:
  - type: index
    count: 1
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, OpAddItem, s.Steps[0].Op)
	assert.Equal(t, "07:00", s.Steps[0].Args.At)
	assert.Nil(t, s.Steps[0].Expect)
	require.Len(t, s.Assertions, 1)
	require.NotNil(t, s.Assertions[0].Count)
	assert.Equal(t, 1, *s.Assertions[0].Count)
}

func TestParseScenario_UnknownFieldRejected(t *testing.T) {
	_, err := ParseScenario([]byte(minimalScenario + "assertion: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: `description: d
now: "2024-05-10T12:00:00Z"
steps: [{op: sweep}]
assertions: [{type: special_dates}]`,
			want: "name is required",
		},
		{
			name: "bad now",
			yaml: `name: n
description: d
now: yesterday
steps: [{op: sweep}]
assertions: [{type: special_dates}]`,
			want: "now must be an RFC 3339 time",
		},
		{
			name: "unknown timezone",
			yaml: `name: n
description: d
now: "2024-05-10T12:00:00Z"
timezone: Mars/Olympus
steps: [{op: sweep}]
assertions: [{type: special_dates}]`,
			want: "timezone",
		},
		{
			name: "unknown op",
			yaml: `name: n
description: d
now: "2024-05-10T12:00:00Z"
steps: [{op: teleport}]
assertions: [{type: special_dates}]`,
			want: `unknown op "teleport"`,
		},
		{
			name: "advance without duration",
			yaml: `name: n
description: d
now: "2024-05-10T12:00:00Z"
steps: [{op: advance}]
assertions: [{type: special_dates}]`,
			want: "advance needs a duration",
		},
		{
			name: "empty expect",
			yaml: `name: n
description: d
now: "2024-05-10T12:00:00Z"
steps: [{op: sweep, expect: {error: ""}}]
assertions: [{type: special_dates}]`,
			want: "expect: error is required",
		},
		{
			name: "seed not json",
			yaml: `name: n
description: d
now: "2024-05-10T12:00:00Z"
seed: [{collection: meta, key: specialDates, data: "{"}]
assertions: [{type: special_dates}]`,
			want: "data is not valid JSON",
		},
		{
			name: "seed unknown collection",
			yaml: `name: n
description: d
now: "2024-05-10T12:00:00Z"
seed: [{collection: users, key: k, data: "{}"}]
assertions: [{type: special_dates}]`,
			want: `unknown collection "users"`,
		},
		{
			name: "no assertions",
			yaml: `name: n
description: d
now: "2024-05-10T12:00:00Z"
steps: [{op: sweep}]`,
			want: "assertions list is required",
		},
		{
			name: "agenda without date",
			yaml: `name: n
description: d
now: "2024-05-10T12:00:00Z"
steps: [{op: sweep}]
assertions: [{type: agenda}]`,
			want: "date is required for agenda",
		},
		{
			name: "empty totals",
			yaml: `name: n
description: d
now: "2024-05-10T12:00:00Z"
steps: [{op: sweep}]
assertions: [{type: totals}]`,
			want: "totals needs income, expenses or balance",
		},
		{
			name: "unknown assertion",
			yaml: `name: n
description: d
now: "2024-05-10T12:00:00Z"
steps: [{op: sweep}]
assertions: [{type: trace_contains}]`,
			want: `unknown assertion type "trace_contains"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
