package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExcludesSender(t *testing.T) {
	assert.True(t, ActionJoin.ExcludesSender())
	assert.True(t, ActionDisconnect.ExcludesSender())
	assert.False(t, ActionMessage.ExcludesSender())
}

func TestJoinPayloadShape(t *testing.T) {
	body, err := NewJoinPayload([]string{"U1", "U2"}).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"join","data":{"activeUserIds":["U1","U2"]}}`, string(body))
}

func TestDisconnectPayloadEmptyMembers(t *testing.T) {
	body, err := NewDisconnectPayload(nil).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"disconnect","data":{"activeUserIds":[]}}`, string(body))
}

func TestMessagePayloadShape(t *testing.T) {
	msg, err := NewMessage("T1", "U1", "hi", "text", "c1", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	body, err := NewMessagePayload([]string{"U1"}, msg).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"action": "message",
		"data": {
			"activeUserIds": ["U1"],
			"messages": {
				"user_id": "U1",
				"content": "hi",
				"content_type": "text",
				"created_at": "2024-05-01T10:00:00.000Z"
			}
		}
	}`, string(body))
}
