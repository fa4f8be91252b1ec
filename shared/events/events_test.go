package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDataAfterWireRoundTrip(t *testing.T) {
	sent := Event{
		Type:      TransferCompleted,
		Timestamp: time.Now().UTC(),
		Data: TransferCompletedEvent{
			TransferID:       "trf-1",
			Sender:           "Alice",
			Recipient:        "Bob",
			Amount:           2500,
			SenderBalance:    97500,
			RecipientBalance: 102500,
		},
	}
	wire, err := json.Marshal(sent)
	require.NoError(t, err)

	var received Event
	require.NoError(t, json.Unmarshal(wire, &received))

	var data TransferCompletedEvent
	require.NoError(t, DecodeData(received, &data))
	assert.Equal(t, sent.Data, data)
}

func TestDecodeDataRejectsMismatchedShape(t *testing.T) {
	var data AccountRegisteredEvent
	err := DecodeData(Event{Type: AccountRegistered, Data: map[string]any{"initialBalance": "abc"}}, &data)
	assert.Error(t, err)
}
