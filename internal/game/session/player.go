// Package session provides the connected-player registry, game rooms,
// and the per-connection lobby dispatch loop for the Reversi server.
package session

import "github.com/google/uuid"

// Channel is the transport-owned bidirectional message pipe for one
// connected user. The registry and rooms only reference a channel; its
// lifecycle belongs to the frontend.
type Channel interface {
	// Receive blocks until the next raw inbound frame arrives.
	Receive() ([]byte, error)
	// Send delivers one outbound envelope.
	Send(message string, payload any) error
	// Close tears the connection down with a status code and a JSON
	// reason body. Best-effort; safe to call more than once.
	Close(code int, reason string) error
}

// Profile is the public view of a player, safe to broadcast to every
// connected user.
type Profile struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
}

// Player is one logged-in connection. A player occupies at most one
// room seat at a time.
type Player struct {
	// UUID uniquely identifies the player for its connection lifetime.
	UUID string
	// Username is the display name from the login handshake.
	Username string
	// Channel is the player's transport pipe (referenced, not owned).
	Channel Channel
}

// NewPlayer creates a Player with a freshly generated identifier.
//
// Precondition: username must be non-empty; ch must be non-nil.
func NewPlayer(username string, ch Channel) *Player {
	return &Player{
		UUID:     uuid.NewString(),
		Username: username,
		Channel:  ch,
	}
}

// Profile returns the player's public view.
func (p *Player) Profile() Profile {
	return Profile{UUID: p.UUID, Username: p.Username}
}
