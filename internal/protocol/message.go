// Package protocol defines the logical message schema spoken between the
// game server and its clients: an envelope tagged with a method (inbound)
// or message (outbound) plus a structured payload.
package protocol

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// Inbound methods.
const (
	MethodLogin     = "login"
	MethodNewGame   = "new_game"
	MethodEnterGame = "enter_game"
	MethodChat      = "chat"
	MethodTurn      = "turn"
	MethodExit      = "exit"
)

// Outbound message tags.
const (
	MsgPlayers      = "players"
	MsgRooms        = "rooms"
	MsgStart        = "start"
	MsgDashboard    = "dashboard"
	MsgPlayerUpdate = "player_update"
	MsgPlayerDelete = "player_delete"
	MsgRoomUpdate   = "room_update"
	MsgRoomDelete   = "room_delete"
	MsgGameEnter    = "game_enter"
	MsgGameStart    = "game_start"
	MsgGameState    = "game_state"
	MsgGameChat     = "game_chat"
	MsgGameStop     = "game_stop"
	MsgError        = "error"
)

// CloseUnsupportedPayload is the WebSocket status code used for every
// server-initiated abnormal closure. The protocol does not distinguish
// failure causes on close.
const CloseUnsupportedPayload = 1007

var validate = validator.New()

// Inbound is a client-to-server envelope. The payload is kept raw until
// the method is known.
type Inbound struct {
	Method  string          `json:"method"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses a raw frame into an Inbound envelope.
//
// Postcondition: Returns the envelope, or an error when the frame is not
// valid JSON or carries no method.
func Decode(data []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return Inbound{}, fmt.Errorf("decoding envelope: %w", err)
	}
	if in.Method == "" {
		return Inbound{}, fmt.Errorf("envelope has no method")
	}
	return in, nil
}

// DecodePayload unmarshals the envelope payload into dst and validates it.
//
// Precondition: dst must be a pointer to a payload struct.
// Postcondition: On success dst holds a validated payload; on failure dst
// contents are unspecified.
func (in Inbound) DecodePayload(dst any) error {
	if len(in.Payload) == 0 {
		return fmt.Errorf("method %s: missing payload", in.Method)
	}
	if err := json.Unmarshal(in.Payload, dst); err != nil {
		return fmt.Errorf("method %s: decoding payload: %w", in.Method, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("method %s: invalid payload: %w", in.Method, err)
	}
	return nil
}

// LoginPayload is the handshake payload. A connection speaks it exactly
// once, before anything else.
type LoginPayload struct {
	Username string `json:"username" validate:"required"`
}

// EnterGamePayload asks to join an existing room by identifier. The
// identifier is opaque here; an unknown one simply matches no room.
type EnterGamePayload struct {
	GameUUID string `json:"game_uuid" validate:"required"`
}

// ChatPayload carries one chat line.
type ChatPayload struct {
	Text string `json:"text"`
}

// TurnPayload places a disc. Coordinates are validated by the board
// engine, not here.
type TurnPayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Outbound is a server-to-client envelope.
type Outbound struct {
	Message string `json:"message"`
	Payload any    `json:"payload"`
}

// Encode marshals an outbound envelope to a wire frame.
func Encode(message string, payload any) ([]byte, error) {
	data, err := json.Marshal(Outbound{Message: message, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", message, err)
	}
	return data, nil
}

// CloseReason builds the JSON body sent with an abnormal closure.
func CloseReason(text string) string {
	data, err := json.Marshal(map[string]string{"error": text})
	if err != nil {
		return `{"error":"closed"}`
	}
	return string(data)
}

// GameEnterPayload tells a player which seat they occupy.
type GameEnterPayload struct {
	Index    int    `json:"index"`
	GameUUID string `json:"game_uuid"`
}

// BoardCell is one cell of a game_state snapshot. Value is -1 for an
// empty cell, otherwise the owning player index.
type BoardCell struct {
	Index int `json:"index"`
	X     int `json:"x"`
	Y     int `json:"y"`
	Value int `json:"value"`
}

// BoardLine is one row of a game_state snapshot.
type BoardLine struct {
	Line   int         `json:"line"`
	Values []BoardCell `json:"values"`
}

// GameStatePayload is the full board snapshot pushed after every
// accepted move and at game start.
type GameStatePayload struct {
	Board []BoardLine `json:"board"`
	Score [2]int      `json:"score"`
	Order int         `json:"order"`
}

// GameChatPayload is a chat line fanned out to both seats. Author is
// null for server notices.
type GameChatPayload struct {
	Author *string `json:"author"`
	Text   string  `json:"text"`
}

// TurnErrorPayload echoes a rejected turn back to its sender.
type TurnErrorPayload struct {
	Type string          `json:"type"`
	Args json.RawMessage `json:"args"`
}

// StartPayload acknowledges a completed login.
type StartPayload struct {
	Username string `json:"username"`
}

// PlayerDeletePayload announces a departed player to the lobby.
type PlayerDeletePayload struct {
	UUID string `json:"uuid"`
}
