package state

import (
	"encoding/json"

	"driftpursuit/dynamics/internal/debug"
	"driftpursuit/dynamics/internal/rigidbody"
)

// PlayerSnapshot is the per-entity record inside a world snapshot frame.
type PlayerSnapshot struct {
	ID     string  `json:"id"`
	Kind   string  `json:"kind"`
	RoomID int     `json:"room_id"`
	Team   string  `json:"team"`
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Z      float32 `json:"z"`
	QW     float32 `json:"qw"`
	QX     float32 `json:"qx"`
	QY     float32 `json:"qy"`
	QZ     float32 `json:"qz"`
	Speed  float32 `json:"speed"`
}

// SnapshotData is the payload of a snapshot frame.
type SnapshotData struct {
	Tick    uint64           `json:"tick"`
	Players []PlayerSnapshot `json:"players"`
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// WelcomeMessage greets a freshly spawned player.
type WelcomeMessage struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	RoomID   int    `json:"room_id"`
	Team     string `json:"team"`
}

// EncodeWelcome serializes the welcome frame for one player.
func EncodeWelcome(playerID string, roomID int, team string) ([]byte, error) {
	return json.Marshal(WelcomeMessage{
		Type:     "welcome",
		PlayerID: playerID,
		RoomID:   roomID,
		Team:     team,
	})
}

// EncodeSnapshot builds the world snapshot frame from the registry entities
// and the rigid body world.
func EncodeSnapshot(tick uint64, entities []Entity, world *rigidbody.World) ([]byte, error) {
	players := make([]PlayerSnapshot, 0, len(entities))
	for _, entity := range entities {
		if entity.Body == rigidbody.InvalidHandle {
			// Entities without a physics body yet are skipped, not errors.
			continue
		}
		body := world.Body(entity.Body)
		if body == nil {
			continue
		}
		players = append(players, PlayerSnapshot{
			ID:     entity.ID,
			Kind:   string(entity.Kind),
			RoomID: entity.RoomID,
			Team:   string(entity.Team),
			X:      body.Position.X(),
			Y:      body.Position.Y(),
			Z:      body.Position.Z(),
			QW:     body.Orientation.W,
			QX:     body.Orientation.V.X(),
			QY:     body.Orientation.V.Y(),
			QZ:     body.Orientation.V.Z(),
			Speed:  body.Linvel.Len(),
		})
	}
	return json.Marshal(envelope{Type: "snapshot", Data: SnapshotData{Tick: tick, Players: players}})
}

// EncodeDebug wraps the published overlay in a debug frame.
func EncodeDebug(overlay *debug.Overlay) ([]byte, error) {
	return json.Marshal(envelope{Type: "debug", Data: overlay})
}

// Pong is the static keepalive reply.
var Pong = []byte(`{"type":"pong"}`)
