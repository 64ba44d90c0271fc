package spawn

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Team labels the two sides of a match.
type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// Info is the allocation returned for one joining player.
type Info struct {
	PlayerID string
	RoomID   int
	Team     Team
	Position mgl32.Vec3
}

// Manager balances joining players across teams and hands out spawn positions.
// All players currently share room 0; the room identifier is carried so the
// snapshot schema does not change when multi-room support lands.
type Manager struct {
	mu         sync.Mutex
	teamCounts map[int]map[Team]int
	spawnY     float32
}

// NewManager constructs a spawn manager dropping vehicles from the given height.
func NewManager(spawnHeight float32) *Manager {
	return &Manager{
		teamCounts: make(map[int]map[Team]int),
		spawnY:     spawnHeight,
	}
}

// Allocate assigns a room, team, and spawn position for the player.
func (m *Manager) Allocate(playerID string) Info {
	if m == nil {
		return Info{PlayerID: playerID, Team: TeamRed}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	roomID := 0
	counts := m.teamCounts[roomID]
	if counts == nil {
		counts = make(map[Team]int)
		m.teamCounts[roomID] = counts
	}

	//1.- Join the smaller team; red wins ties.
	team := TeamRed
	if counts[TeamRed] > counts[TeamBlue] {
		team = TeamBlue
	}
	counts[team]++

	//2.- Each team spawns at its own base.
	position := mgl32.Vec3{-5, m.spawnY, 0}
	if team == TeamBlue {
		position = mgl32.Vec3{5, m.spawnY, 0}
	}

	return Info{
		PlayerID: playerID,
		RoomID:   roomID,
		Team:     team,
		Position: position,
	}
}

// Release returns a slot when the player disconnects so balancing stays fair.
func (m *Manager) Release(roomID int, team Team) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if counts := m.teamCounts[roomID]; counts != nil && counts[team] > 0 {
		counts[team]--
	}
}
