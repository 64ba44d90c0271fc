package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"driftpursuit/dynamics/internal/auth"
	configpkg "driftpursuit/dynamics/internal/config"
	"driftpursuit/dynamics/internal/input"
	"driftpursuit/dynamics/internal/logging"
	"driftpursuit/dynamics/internal/pipeline"
	"driftpursuit/dynamics/internal/replay"
	"driftpursuit/dynamics/internal/rigidbody"
	"driftpursuit/dynamics/internal/sim"
	"driftpursuit/dynamics/internal/spawn"
	"driftpursuit/dynamics/internal/state"
	"driftpursuit/dynamics/internal/vehicle"
)

const (
	// writeWait is the deadline for outgoing WebSocket frames.
	writeWait = 10 * time.Second
	// pongWaitMultiplier scales the read deadline from the ping interval.
	pongWaitMultiplier = 2
	// spawnHeight drops fresh vehicles slightly above the ground plane.
	spawnHeight float32 = 1.3
)

// Always allow localhost for dev convenience.
var localHosts = map[string]struct{}{
	"127.0.0.1": {},
	"localhost": {},
	"::1":       {},
}

// inputMessage is the wire format for driver intent frames.
type inputMessage struct {
	Type     string  `json:"type"`
	Seq      uint64  `json:"seq"`
	SentAtMs int64   `json:"sent_at_ms"`
	Preset   string  `json:"preset"`
	Throttle float64 `json:"throttle"`
	Steer    float64 `json:"steer"`
	Brake    float64 `json:"brake"`
	Ascend   float64 `json:"ascend"`
	Pitch    float64 `json:"pitch"`
	Yaw      float64 `json:"yaw"`
	Roll     float64 `json:"roll"`
}

// Server couples the WebSocket gateway with the simulation loop. The engine
// and rigid body world are guarded by engineMu: the simulation loop holds it
// for the duration of each tick and the network goroutines take it briefly for
// spawns, despawns, and control writes.
type Server struct {
	cfg       *configpkg.Config
	log       *logging.Logger
	engineMu  sync.Mutex
	engine    *pipeline.Engine
	registry  *state.Registry
	spawns    *spawn.Manager
	presets   *vehicle.PresetLibrary
	gate      *input.Gate
	validator *input.Validator
	recorder  *replay.Recorder
	verifier  *auth.HMACTokenVerifier
	upgrader  websocket.Upgrader
}

// NewServer wires every subsystem from the loaded configuration.
func NewServer(cfg *configpkg.Config, log *logging.Logger) *Server {
	world := rigidbody.NewWorld()
	srv := &Server{
		cfg:       cfg,
		log:       log,
		engine:    pipeline.NewEngine(world, log),
		registry:  state.NewRegistry(),
		spawns:    spawn.NewManager(spawnHeight),
		presets:   vehicle.NewPresetLibrary(),
		gate:      input.NewGate(input.GateConfig{MaxAge: 2 * time.Second, MinInterval: 2 * time.Millisecond}),
		validator: input.NewValidator(input.DefaultControlConstraints, log),
	}
	srv.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     srv.checkOrigin,
	}
	return srv
}

// checkOrigin admits configured origins plus localhost for development.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	if _, ok := localHosts[host]; ok {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, host) {
			return true
		}
	}
	return len(s.cfg.AllowedOrigins) == 0
}

// newPlayerID creates a random 16-byte identifier represented as hex.
func newPlayerID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err == nil {
		return hex.EncodeToString(buf[:])
	}
	return fmt.Sprintf("%x", time.Now().UnixNano())
}

// handleWS runs one client connection: spawn on connect, input frames in,
// snapshots out, despawn on disconnect.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxClients > 0 && s.registry.ClientCount() >= s.cfg.MaxClients {
		http.Error(w, "server full", http.StatusServiceUnavailable)
		return
	}

	//0.- When session auth is configured, a valid token names the player.
	playerID := newPlayerID()
	if s.verifier != nil {
		claims, err := s.verifier.Verify(r.URL.Query().Get("token"))
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		playerID = claims.Subject
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	conn.SetReadLimit(s.cfg.MaxPayloadBytes)
	log := s.log.With(logging.String("player_id", playerID))

	//1.- Register the broadcast sink before the entity exists so the client
	// observes its own spawn.
	send := make(chan []byte, 64)
	clientID := s.registry.RegisterClient(send)

	//2.- Allocate room, team, and spawn position.
	info := s.spawns.Allocate(playerID)
	preset := s.presets.Get(strings.TrimSpace(r.URL.Query().Get("preset")))

	//3.- Create the chassis and wheel set under the engine lock.
	s.engineMu.Lock()
	handle := s.engine.SpawnVehicle(playerID, preset, info.Position)
	s.engineMu.Unlock()

	s.registry.AddEntity(state.Entity{
		ID:     playerID,
		Kind:   state.KindVehicle,
		RoomID: info.RoomID,
		Team:   info.Team,
		Preset: preset.Name,
		Body:   handle,
	})

	log.Info("player joined",
		logging.String("team", string(info.Team)),
		logging.String("preset", preset.Name),
	)

	if welcome, err := state.EncodeWelcome(playerID, info.RoomID, string(info.Team)); err == nil {
		send <- welcome
	}

	//4.- Writer pump owns the connection's write half.
	done := make(chan struct{})
	go func() {
		defer close(done)
		pingTicker := time.NewTicker(s.cfg.PingInterval)
		defer pingTicker.Stop()
		for {
			select {
			case payload, ok := <-send:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			case <-pingTicker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	//5.- Read loop: keepalives and input frames.
	pongWait := s.cfg.PingInterval * pongWaitMultiplier
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		text := strings.TrimSpace(string(payload))
		if text == "ping" {
			select {
			case send <- state.Pong:
			default:
			}
			continue
		}

		var msg inputMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Debug("bad client frame", logging.Error(err))
			continue
		}
		if msg.Type != "input" {
			continue
		}
		s.applyInput(playerID, &msg)
	}

	//6.- Cleanup on disconnect.
	s.engineMu.Lock()
	s.engine.DespawnVehicle(playerID)
	s.engineMu.Unlock()
	if entity, ok := s.registry.RemoveEntity(playerID); ok {
		s.spawns.Release(entity.RoomID, entity.Team)
	}
	s.registry.UnregisterClient(clientID)
	s.gate.Forget(playerID)
	s.validator.Forget(playerID)
	close(send)
	<-done
	_ = conn.Close()
	log.Info("player disconnected")
}

// applyInput gates, validates, and stores one driver intent frame.
func (s *Server) applyInput(playerID string, msg *inputMessage) {
	frame := input.Frame{ClientID: playerID, SequenceID: msg.Seq}
	if msg.SentAtMs > 0 {
		frame.SentAt = time.UnixMilli(msg.SentAtMs)
	}
	if decision := s.gate.Admit(frame); !decision.Accepted {
		return
	}
	controls := input.Controls{Throttle: msg.Throttle, Brake: msg.Brake, Steer: msg.Steer}
	if decision := s.validator.Validate(playerID, controls); !decision.Accepted {
		return
	}

	s.engineMu.Lock()
	s.engine.ApplyPlayerInput(playerID, vehicle.Controls{
		Throttle: float32(msg.Throttle),
		Steer:    float32(msg.Steer),
		Brake:    float32(msg.Brake),
		Ascend:   float32(msg.Ascend),
		Pitch:    float32(msg.Pitch),
		Yaw:      float32(msg.Yaw),
		Roll:     float32(msg.Roll),
	})
	s.engineMu.Unlock()
}

// tick advances the simulation one fixed step and broadcasts the results.
func (s *Server) tick(step time.Duration) {
	s.engineMu.Lock()
	s.engine.Step(float32(step.Seconds()))
	tickNo := s.engine.Tick()
	entities := s.registry.Entities()
	snapshot, err := state.EncodeSnapshot(tickNo, entities, s.engine.World())
	s.engineMu.Unlock()

	if err != nil {
		s.log.Error("snapshot encode failed", logging.Error(err))
		return
	}

	//1.- Broadcast only when someone is listening; always feed the recorder.
	if s.registry.ClientCount() > 0 {
		s.registry.Broadcast(snapshot)
		if payload, err := state.EncodeDebug(s.engine.DebugSnapshot()); err == nil {
			s.registry.Broadcast(payload)
		}
	}
	s.recorder.ObserveTick(tickNo, len(entities), step)
	s.recorder.ObserveSnapshot(snapshot)
}

func main() {
	cfg, err := configpkg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	srv := NewServer(cfg, log)

	//0.- Optional HMAC session auth for the WebSocket endpoint.
	if cfg.AuthSecret != "" {
		verifier, err := auth.NewHMACTokenVerifier(cfg.AuthSecret, 30*time.Second)
		if err != nil {
			log.Fatal("auth setup failed", logging.Error(err))
		}
		srv.verifier = verifier
	}

	//1.- Optional preset directory extends the embedded default.
	if cfg.PresetDir != "" {
		count, err := srv.presets.LoadDir(cfg.PresetDir)
		if err != nil {
			log.Fatal("preset load failed", logging.Error(err))
		}
		log.Info("presets loaded", logging.Int("count", count), logging.String("dir", cfg.PresetDir))
	}

	//2.- Optional replay recording.
	if cfg.ReplayDir != "" {
		writer, manifest, err := replay.NewWriter(cfg.ReplayDir, "dynamics", time.Now)
		if err != nil {
			log.Fatal("replay writer failed", logging.Error(err))
		}
		srv.recorder = replay.NewRecorder(writer, log)
		defer func() { _ = srv.recorder.Close() }()
		log.Info("replay recording enabled", logging.String("events", manifest.EventsPath))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	//3.- The fixed timestep loop drives the dynamics pipeline.
	loop := sim.NewLoop(cfg.TickRateHz, srv.tick)
	loop.Start(ctx)
	defer loop.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		snapshot := loop.Monitor().Snapshot()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   "ok",
			"ticks":    snapshot.Samples,
			"avg_fps":  snapshot.AverageFPS(),
			"max_tick": snapshot.Max.String(),
		})
	})

	httpServer := &http.Server{Addr: cfg.Address, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("dynamics server listening",
		logging.String("addr", cfg.Address),
		logging.Float64("tick_rate_hz", cfg.TickRateHz),
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server terminated", logging.Error(err))
	}
}
