package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGolden_EventSync(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/event_sync.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, map[string]int32{"work": 1, "standup": 2}, result.Aliases)
}

func TestMarshalSnapshot_Deterministic(t *testing.T) {
	result := NewResult()
	result.AddTrace(TraceEvent{
		Call:   "get_count",
		UID:    1000,
		Args:   map[string]any{"view": "todo", "book": 1},
		Status: "NONE",
		Result: map[string]any{"count": 2},
	})

	a, err := MarshalSnapshot("s", result)
	require.NoError(t, err)
	b, err := MarshalSnapshot("s", result)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, string(a), `"scenario_name": "s"`)
	assert.Contains(t, string(a), "\"book\": 1,\n")
	assert.Equal(t, byte('\n'), a[len(a)-1])
}
