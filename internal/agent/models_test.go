// File: internal/agent/models_test.go
package agent

import (
	"strings"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStep_MarshalJSON(t *testing.T) {
	step := Step{
		Number:      3,
		Thought:     "click the button",
		Action:      ActionClick,
		Args:        map[string]any{"selector": "#go"},
		Observation: strings.Repeat("a", 800),
		Status:      StepCompleted,
		Screenshot:  []byte{0xff},
		Timestamp:   time.Unix(1700000000, 0),
	}

	data, err := json.Marshal(step)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))

	assert.EqualValues(t, 3, wire["step_number"])
	assert.Equal(t, "click", wire["action"])
	assert.Equal(t, "completed", wire["status"])
	assert.Equal(t, true, wire["has_screenshot"])
	assert.Len(t, wire["observation"], 500, "observation is truncated on the wire")
	assert.NotContains(t, wire, "screenshot", "raw screenshot bytes never serialize")
}

func TestStep_MarshalJSON_Defaults(t *testing.T) {
	data, err := json.Marshal(Step{Number: 1, Status: StepPending})
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, false, wire["has_screenshot"])
	assert.NotNil(t, wire["action_args"], "args serialize as an empty object, not null")
}

func TestResult_MarshalJSON(t *testing.T) {
	result := Result{
		Goal:      "buy milk",
		Success:   true,
		Summary:   "done",
		Steps:     []*Step{{Number: 1, Status: StepCompleted}},
		TotalTime: 1234 * time.Millisecond,
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, "buy milk", wire["goal"])
	assert.Equal(t, true, wire["success"])
	assert.InDelta(t, 1.23, wire["total_time"], 0.001)
	assert.Len(t, wire["steps"], 1)
}
