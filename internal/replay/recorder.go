package replay

import (
	"time"

	"driftpursuit/dynamics/internal/logging"
)

// TickEvent is the per-tick record appended to the event log.
type TickEvent struct {
	Tick       uint64  `json:"tick"`
	Vehicles   int     `json:"vehicles"`
	SimTimeSec float64 `json:"sim_time_sec"`
}

// Recorder couples the writer to the simulation loop. A nil recorder is a
// no-op so the server can run with replays disabled.
type Recorder struct {
	writer *Writer
	log    *logging.Logger
	simSec float64
}

// NewRecorder wraps a writer; pass a nil writer to disable recording.
func NewRecorder(writer *Writer, log *logging.Logger) *Recorder {
	if writer == nil {
		return nil
	}
	if log == nil {
		log = logging.L()
	}
	return &Recorder{writer: writer, log: log}
}

// ObserveTick appends the tick event and advances the simulated clock.
func (r *Recorder) ObserveTick(tick uint64, vehicles int, step time.Duration) {
	if r == nil {
		return
	}
	r.simSec += step.Seconds()
	event := TickEvent{Tick: tick, Vehicles: vehicles, SimTimeSec: r.simSec}
	if err := r.writer.AppendEvent(event); err != nil {
		r.log.Warn("replay event append failed", logging.Error(err))
	}
}

// ObserveSnapshot feeds the broadcast snapshot payload into the frame stream.
func (r *Recorder) ObserveSnapshot(payload []byte) {
	if r == nil || len(payload) == 0 {
		return
	}
	if err := r.writer.AppendFrame(payload); err != nil {
		r.log.Warn("replay frame append failed", logging.Error(err))
	}
}

// Close flushes the underlying writer.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	return r.writer.Close()
}
