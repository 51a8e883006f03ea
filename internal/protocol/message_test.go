package protocol

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValidEnvelope(t *testing.T) {
	in, err := Decode([]byte(`{"method": "login", "payload": {"username": "alice"}}`))
	require.NoError(t, err)
	assert.Equal(t, MethodLogin, in.Method)

	var p LoginPayload
	require.NoError(t, in.DecodePayload(&p))
	assert.Equal(t, "alice", p.Username)
}

func TestDecodeRejectsBadFrames(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `login please`},
		{"empty object", `{}`},
		{"missing method", `{"payload": {"username": "alice"}}`},
		{"wrong method type", `{"method": 42}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestDecodePayloadRejectsMissingUsername(t *testing.T) {
	in, err := Decode([]byte(`{"method": "login", "payload": {}}`))
	require.NoError(t, err)

	var p LoginPayload
	assert.Error(t, in.DecodePayload(&p))
}

func TestDecodePayloadRejectsAbsentPayload(t *testing.T) {
	in, err := Decode([]byte(`{"method": "login"}`))
	require.NoError(t, err)

	var p LoginPayload
	assert.Error(t, in.DecodePayload(&p))
}

func TestEnterGamePayloadRequiresIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid uuid", `{"game_uuid": "8400ae12-4b31-4fb5-a967-401d0b11b5c1"}`, false},
		{"opaque id", `{"game_uuid": "room-42"}`, false},
		{"missing", `{}`, true},
		{"empty", `{"game_uuid": ""}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Inbound{Method: MethodEnterGame, Payload: json.RawMessage(tt.payload)}
			var p EnterGamePayload
			err := in.DecodePayload(&p)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEncodeEnvelope(t *testing.T) {
	data, err := Encode(MsgGameEnter, GameEnterPayload{Index: 1, GameUUID: "abc"})
	require.NoError(t, err)

	var out struct {
		Message string           `json:"message"`
		Payload GameEnterPayload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, MsgGameEnter, out.Message)
	assert.Equal(t, 1, out.Payload.Index)
	assert.Equal(t, "abc", out.Payload.GameUUID)
}

func TestGameChatNullAuthor(t *testing.T) {
	data, err := Encode(MsgGameChat, GameChatPayload{Author: nil, Text: "Game started!"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"author":null`)
}

func TestCloseReason(t *testing.T) {
	assert.JSONEq(t, `{"error": "Wrong initial message"}`, CloseReason("Wrong initial message"))
}
