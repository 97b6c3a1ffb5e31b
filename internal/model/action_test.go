package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCanceled.Terminal())
}

func TestValidActionType(t *testing.T) {
	assert.True(t, ValidActionType(ActionPowerOn))
	assert.True(t, ValidActionType(ActionPowerOff))
	assert.True(t, ValidActionType(ActionSetTimer))
	assert.False(t, ValidActionType("defrost"))
	assert.False(t, ValidActionType(""))
}

func TestPayloadRoundTrip(t *testing.T) {
	p := Payload{"minutes": 30, "groupId": "g-1"}
	raw, err := p.Value()
	require.NoError(t, err)

	var out Payload
	require.NoError(t, out.Scan(raw))
	// Numbers come back as float64 after the JSON hop.
	assert.Equal(t, float64(30), out["minutes"])
	assert.Equal(t, "g-1", out["groupId"])
}

func TestPayloadNil(t *testing.T) {
	var p Payload
	raw, err := p.Value()
	require.NoError(t, err)
	assert.Nil(t, raw)

	var out Payload
	require.NoError(t, out.Scan(nil))
	assert.Nil(t, out)
}
