package rtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventMarshalScenario2(t *testing.T) {
	ev := Event{EventID: 5, End: true, Volume: 10, Duration: 400}
	buf := ev.Marshal()
	assert.Equal(t, []byte{0x05, 0x8A, 0x01, 0x90}, buf)

	parsed, err := UnmarshalEvent(buf)
	require.NoError(t, err)
	assert.Equal(t, ev, parsed)
}

func TestUnmarshalEventWrongLength(t *testing.T) {
	_, err := UnmarshalEvent([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestEventPacketPlanScenario2(t *testing.T) {
	plan := EventPacketPlan{EventID: 5, Volume: 10, TotalDuration: 800, StepDuration: 400}
	events := plan.Events()

	require.Len(t, events, DuplicateCount+1+DuplicateCount)

	for i := 0; i < DuplicateCount; i++ {
		assert.Equal(t, uint16(400), events[i].Duration)
		assert.False(t, events[i].End)
	}

	progressive := events[DuplicateCount]
	assert.Equal(t, uint16(800), progressive.Duration)
	assert.False(t, progressive.End)

	for i := DuplicateCount + 1; i < len(events); i++ {
		assert.Equal(t, uint16(800), events[i].Duration)
		assert.True(t, events[i].End)
	}
}

func TestEventPacketPlanSingleStep(t *testing.T) {
	plan := EventPacketPlan{EventID: 1, TotalDuration: 160, StepDuration: 0}
	events := plan.Events()
	require.Len(t, events, DuplicateCount+DuplicateCount)
	for _, e := range events[:DuplicateCount] {
		assert.Equal(t, uint16(160), e.Duration)
	}
}
