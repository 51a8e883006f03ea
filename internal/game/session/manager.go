package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/EvilX/reversi/internal/protocol"
)

// Manager is the process-wide registry of connected players and open
// rooms, and the per-connection lobby dispatcher. All methods are safe
// for concurrent use.
//
// Lock order: a Room's mutex may be held when calling Manager methods;
// Manager.mu is never held while calling into a Room.
type Manager struct {
	logger *zap.Logger

	mu      sync.RWMutex
	players map[string]*Player // uuid → player
	rooms   map[string]*Room   // uuid → room
}

// NewManager creates an empty registry.
//
// Precondition: logger must be non-nil.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger:  logger,
		players: make(map[string]*Player),
		rooms:   make(map[string]*Room),
	}
}

// HandleSession drives one connection from handshake to disconnect: a
// single login message, then the lobby loop, from which the player
// enters and leaves rooms. Returns when the channel fails or the
// context is cancelled.
//
// Precondition: ch must be an open channel.
// Postcondition: On return the player (if ever registered) is
// deregistered and their seat, if any, is vacated.
func (m *Manager) HandleSession(ctx context.Context, ch Channel) error {
	player, err := m.handshake(ch)
	if err != nil {
		m.logger.Error("protocol error", zap.Error(err))
		_ = ch.Close(protocol.CloseUnsupportedPayload, protocol.CloseReason("Wrong initial message"))
		return err
	}

	m.lobby(ctx, player)
	return nil
}

// handshake waits for the single login message. On any failure the
// connection is aborted before registration.
func (m *Manager) handshake(ch Channel) (*Player, error) {
	data, err := ch.Receive()
	if err != nil {
		return nil, err
	}

	in, err := protocol.Decode(data)
	if err != nil {
		return nil, err
	}
	if in.Method != protocol.MethodLogin {
		return nil, fmt.Errorf("expected %s, got %q", protocol.MethodLogin, in.Method)
	}

	var payload protocol.LoginPayload
	if err := in.DecodePayload(&payload); err != nil {
		return nil, err
	}

	player := NewPlayer(payload.Username, ch)

	m.mu.Lock()
	m.players[player.UUID] = player
	m.mu.Unlock()

	m.logger.Info("logged in",
		zap.String("username", player.Username),
		zap.String("uuid", player.UUID),
	)
	m.Broadcast(protocol.MsgPlayerUpdate, player.Profile())
	return player, nil
}

// lobby runs the post-login message loop: room discovery on entry, then
// room creation and joining until the channel fails.
func (m *Manager) lobby(ctx context.Context, p *Player) {
	defer m.disconnect(p)

	m.SendTo(p, protocol.MsgPlayers, m.Players())
	m.SendTo(p, protocol.MsgRooms, m.Rooms())
	m.SendTo(p, protocol.MsgStart, protocol.StartPayload{Username: p.Username})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		data, err := p.Channel.Receive()
		if err != nil {
			m.logger.Debug("lobby receive failed",
				zap.String("username", p.Username),
				zap.Error(err),
			)
			return
		}

		in, err := protocol.Decode(data)
		if err != nil {
			m.logger.Error("invalid lobby message",
				zap.String("username", p.Username),
				zap.Error(err),
			)
			return
		}

		switch in.Method {
		case protocol.MethodNewGame:
			room := m.CreateRoom()
			room.Connect(ctx, p)
			m.SendTo(p, protocol.MsgDashboard, struct{}{})
		case protocol.MethodEnterGame:
			var payload protocol.EnterGamePayload
			if err := in.DecodePayload(&payload); err != nil {
				m.logger.Error("invalid enter_game payload",
					zap.String("username", p.Username),
					zap.Error(err),
				)
				return
			}
			if room, ok := m.FindRoom(payload.GameUUID); ok {
				room.Connect(ctx, p)
			}
			m.SendTo(p, protocol.MsgDashboard, struct{}{})
		default:
			m.logger.Debug("ignoring lobby method",
				zap.String("method", in.Method),
				zap.String("username", p.Username),
			)
		}
	}
}

// disconnect runs the full teardown for a player: deregistration,
// best-effort channel close, lobby notification, and room departure.
func (m *Manager) disconnect(p *Player) {
	m.mu.Lock()
	delete(m.players, p.UUID)
	m.mu.Unlock()

	_ = p.Channel.Close(protocol.CloseUnsupportedPayload, protocol.CloseReason("Session ended"))

	m.logger.Info("disconnected",
		zap.String("username", p.Username),
		zap.String("uuid", p.UUID),
	)
	m.Broadcast(protocol.MsgPlayerDelete, protocol.PlayerDeletePayload{UUID: p.UUID})

	for _, room := range m.roomList() {
		if room.Contains(p) {
			room.Disconnect(p)
		}
	}
}

// CreateRoom allocates and registers a new empty room.
func (m *Manager) CreateRoom() *Room {
	room := newRoom(m, m.logger)

	m.mu.Lock()
	m.rooms[room.UUID] = room
	m.mu.Unlock()

	m.logger.Info("room created", zap.String("room", room.UUID))
	return room
}

// FindRoom returns the room with the given identifier.
//
// Postcondition: Returns (room, true) if found, or (nil, false) otherwise.
func (m *Manager) FindRoom(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[id]
	return room, ok
}

// OnRoomChanged reacts to a room membership change. An empty room is
// deregistered and announced deleted; otherwise its updated view is
// broadcast to every player.
func (m *Manager) OnRoomChanged(view RoomView) {
	if len(view.Players) == 0 {
		m.mu.Lock()
		delete(m.rooms, view.UUID)
		m.mu.Unlock()

		m.logger.Info("room destroyed", zap.String("room", view.UUID))
		m.Broadcast(protocol.MsgRoomDelete, view)
		return
	}
	m.Broadcast(protocol.MsgRoomUpdate, view)
}

// Players returns the public profiles of all connected players, keyed
// by player identifier.
func (m *Manager) Players() map[string]Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	players := make(map[string]Profile, len(m.players))
	for id, p := range m.players {
		players[id] = p.Profile()
	}
	return players
}

// Rooms returns the public views of all open rooms, keyed by room
// identifier.
func (m *Manager) Rooms() map[string]RoomView {
	views := make(map[string]RoomView)
	for _, room := range m.roomList() {
		views[room.UUID] = room.View()
	}
	return views
}

// Broadcast delivers an event to every connected player, best-effort.
// A failed delivery is logged and never interrupts the rest.
func (m *Manager) Broadcast(message string, payload any) {
	m.mu.RLock()
	players := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	m.mu.RUnlock()

	for _, p := range players {
		m.SendTo(p, message, payload)
	}
}

// SendTo delivers an event to one player, best-effort.
func (m *Manager) SendTo(p *Player, message string, payload any) {
	if err := p.Channel.Send(message, payload); err != nil {
		m.logger.Debug("send failed",
			zap.String("username", p.Username),
			zap.String("msg", message),
			zap.Error(err),
		)
	}
}

// PlayerCount returns the number of connected players.
func (m *Manager) PlayerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players)
}

// roomList snapshots the registered rooms without holding the lock
// during any subsequent room calls.
func (m *Manager) roomList() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}
