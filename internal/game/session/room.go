package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EvilX/reversi/internal/game/board"
	"github.com/EvilX/reversi/internal/protocol"
)

// RoomView is the public view of a room, safe to broadcast to the lobby.
type RoomView struct {
	UUID      string             `json:"uuid"`
	Players   map[string]Profile `json:"players"`
	IsRunning bool               `json:"is_running"`
}

// Room owns one board engine and up to two seated players. Seat indices
// map 1:1 to board player identifiers. A room is open while a seat is
// empty, running while both are filled, and destroyed by the manager
// once both are empty again.
//
// Lock order: Room.mu may be held when calling into Manager; never the
// reverse.
type Room struct {
	// UUID uniquely identifies the room for its lifetime.
	UUID string

	manager *Manager
	logger  *zap.Logger

	mu     sync.Mutex
	seats  [2]*Player
	engine *board.Engine
}

func newRoom(m *Manager, logger *zap.Logger) *Room {
	id := uuid.NewString()
	return &Room{
		UUID:    id,
		manager: m,
		logger:  logger.With(zap.String("room", id)),
		engine:  board.New(),
	}
}

// Connect seats the player and runs their in-room message loop. It does
// not return until that loop exits; Disconnect always runs on exit. A
// room that is already running ignores the call.
//
// Precondition: p must be registered with the manager.
func (r *Room) Connect(ctx context.Context, p *Player) {
	r.mu.Lock()
	if r.runningLocked() {
		r.mu.Unlock()
		return
	}

	seat := 0
	if r.seats[0] != nil {
		seat = 1
	}
	r.seats[seat] = p

	r.sendLocked(p, protocol.MsgGameEnter, protocol.GameEnterPayload{
		Index:    seat,
		GameUUID: r.UUID,
	})
	r.manager.OnRoomChanged(r.viewLocked())
	r.chatLocked(nil, fmt.Sprintf("%s is connected!", p.Username))

	if r.runningLocked() {
		r.logger.Debug("game started",
			zap.String("player0", r.seats[0].Username),
			zap.String("player1", r.seats[1].Username),
		)
		r.engine.Reset()
		r.broadcastLocked(protocol.MsgGameStart, r.viewLocked())
		r.sendStateLocked()
		r.chatLocked(nil, "Game started!")
	}
	r.mu.Unlock()

	r.cycle(ctx, p)
}

// cycle is the per-connection in-room message loop. Any receive failure
// or explicit exit leaves the room.
func (r *Room) cycle(ctx context.Context, p *Player) {
	defer r.Disconnect(p)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		data, err := p.Channel.Receive()
		if err != nil {
			r.logger.Debug("room receive failed",
				zap.String("player", p.Username),
				zap.Error(err),
			)
			return
		}

		in, err := protocol.Decode(data)
		if err != nil {
			r.logger.Error("invalid game message",
				zap.String("player", p.Username),
				zap.Error(err),
			)
			continue
		}
		r.logger.Debug("processing message",
			zap.String("method", in.Method),
			zap.String("player", p.Username),
		)

		switch in.Method {
		case protocol.MethodChat:
			var payload protocol.ChatPayload
			if err := in.DecodePayload(&payload); err != nil {
				r.logger.Error("invalid chat payload", zap.Error(err))
				continue
			}
			r.Chat(p, payload.Text)
		case protocol.MethodTurn:
			r.turn(p, in)
		case protocol.MethodExit:
			return
		}
	}
}

// turn applies one move for the sender's seat. Only honored while the
// game is running; a rejected move is echoed back to the sender alone.
func (r *Room) turn(p *Player, in protocol.Inbound) {
	var payload protocol.TurnPayload
	if err := in.DecodePayload(&payload); err != nil {
		r.logger.Error("invalid turn payload", zap.Error(err))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.runningLocked() {
		return
	}
	seat, ok := r.seatLocked(p)
	if !ok {
		return
	}

	if err := r.engine.ApplyMove(payload.X, payload.Y, seat); err != nil {
		r.sendLocked(p, protocol.MsgError, protocol.TurnErrorPayload{
			Type: "invalid_turn",
			Args: in.Payload,
		})
		return
	}
	r.sendStateLocked()
}

// Chat fans an attributed chat line out to both seats.
func (r *Room) Chat(p *Player, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	author := p.Username
	r.broadcastLocked(protocol.MsgGameChat, protocol.GameChatPayload{
		Author: &author,
		Text:   text,
	})
}

// Disconnect vacates the player's seat, announces the stop, and notifies
// the manager, which destroys the room once both seats are empty. A
// mid-game disconnect ends the game immediately; no winner is recorded.
// Calling it for a player who is not seated is a no-op.
func (r *Room) Disconnect(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seat, ok := r.seatLocked(p)
	if !ok {
		return
	}
	r.seats[seat] = nil

	r.chatLocked(nil, fmt.Sprintf("%s disconnected", p.Username))
	r.broadcastLocked(protocol.MsgGameStop, r.viewLocked())
	r.manager.OnRoomChanged(r.viewLocked())
}

// Contains reports whether the player currently occupies a seat.
func (r *Room) Contains(p *Player) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seatLocked(p)
	return ok
}

// IsRunning reports whether both seats are filled.
func (r *Room) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runningLocked()
}

// IsEmpty reports whether both seats are vacant.
func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seats[0] == nil && r.seats[1] == nil
}

// View returns the room's public view.
func (r *Room) View() RoomView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

func (r *Room) runningLocked() bool {
	return r.seats[0] != nil && r.seats[1] != nil
}

func (r *Room) seatLocked(p *Player) (int, bool) {
	for i, s := range r.seats {
		if s == p {
			return i, true
		}
	}
	return 0, false
}

func (r *Room) viewLocked() RoomView {
	players := make(map[string]Profile, 2)
	for _, s := range r.seats {
		if s != nil {
			players[s.UUID] = s.Profile()
		}
	}
	return RoomView{
		UUID:      r.UUID,
		Players:   players,
		IsRunning: r.runningLocked(),
	}
}

// chatLocked posts a server notice (nil author) or player line to both
// seats.
func (r *Room) chatLocked(author *string, text string) {
	r.broadcastLocked(protocol.MsgGameChat, protocol.GameChatPayload{
		Author: author,
		Text:   text,
	})
}

// sendStateLocked pushes a full board snapshot to both seats.
func (r *Room) sendStateLocked() {
	state := protocol.GameStatePayload{
		Board: make([]protocol.BoardLine, 0, board.SizeX),
		Score: r.engine.Score(),
		Order: r.engine.Order(),
	}
	for x := 0; x < board.SizeX; x++ {
		line := protocol.BoardLine{
			Line:   x,
			Values: make([]protocol.BoardCell, 0, board.SizeY),
		}
		for y := 0; y < board.SizeY; y++ {
			line.Values = append(line.Values, protocol.BoardCell{
				Index: x + y,
				X:     x,
				Y:     y,
				Value: r.engine.Cell(x, y),
			})
		}
		state.Board = append(state.Board, line)
	}
	r.broadcastLocked(protocol.MsgGameState, state)
}

// broadcastLocked delivers an event to both seats, best-effort. A failed
// send is logged only; the dead channel's own receive loop handles the
// disconnect.
func (r *Room) broadcastLocked(message string, payload any) {
	for _, s := range r.seats {
		if s != nil {
			r.sendLocked(s, message, payload)
		}
	}
}

func (r *Room) sendLocked(p *Player, message string, payload any) {
	if err := p.Channel.Send(message, payload); err != nil {
		r.logger.Debug("room send failed",
			zap.String("player", p.Username),
			zap.String("msg", message),
			zap.Error(err),
		)
	}
}
