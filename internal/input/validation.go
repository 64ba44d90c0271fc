package input

import (
	"fmt"
	"math"
	"sync"

	"driftpursuit/dynamics/internal/logging"
)

// ValidationReason identifies why a control frame was rejected by the validator.
type ValidationReason string

const (
	ValidationReasonNone          ValidationReason = ""
	ValidationReasonThrottleRange ValidationReason = "throttle_range"
	ValidationReasonBrakeRange    ValidationReason = "brake_range"
	ValidationReasonSteerRange    ValidationReason = "steer_range"
	ValidationReasonThrottleDelta ValidationReason = "throttle_delta"
	ValidationReasonBrakeDelta    ValidationReason = "brake_delta"
	ValidationReasonSteerDelta    ValidationReason = "steer_delta"
	ValidationReasonNotFinite     ValidationReason = "not_finite"
)

// Controls captures the analog channels subject to validation.
type Controls struct {
	Throttle float64
	Brake    float64
	Steer    float64
}

// Range defines the inclusive min/max for a floating point channel.
type Range struct {
	Min float64
	Max float64
}

// ControlConstraints configures the validator's range and delta policies.
// Deltas bound the change per accepted frame; zero disables the delta check.
type ControlConstraints struct {
	Throttle      Range
	Brake         Range
	Steer         Range
	ThrottleDelta float64
	BrakeDelta    float64
	SteerDelta    float64
}

// DefaultControlConstraints provides the tuned baseline for production traffic.
var DefaultControlConstraints = ControlConstraints{
	Throttle:      Range{Min: -1, Max: 1},
	Brake:         Range{Min: 0, Max: 1},
	Steer:         Range{Min: -1, Max: 1},
	ThrottleDelta: 2,
	BrakeDelta:    2,
	SteerDelta:    2,
}

// ValidationDecision summarises the result of a Validate call.
type ValidationDecision struct {
	Accepted bool
	Reason   ValidationReason
	Details  string
}

// ValidationCounters aggregates per-client violation statistics.
type ValidationCounters struct {
	Violations map[ValidationReason]uint64 `json:"violations,omitempty"`
}

// Validator enforces control ranges and per-frame delta limits.
type Validator struct {
	mu      sync.Mutex
	cfg     ControlConstraints
	logger  *logging.Logger
	last    map[string]Controls
	metrics map[string]ValidationCounters
}

// NewValidator builds a validator with the supplied constraints.
func NewValidator(cfg ControlConstraints, logger *logging.Logger) *Validator {
	if logger == nil {
		logger = logging.L()
	}
	return &Validator{
		cfg:     cfg,
		logger:  logger,
		last:    make(map[string]Controls),
		metrics: make(map[string]ValidationCounters),
	}
}

// Validate checks one control frame for a client. Rejected frames leave the
// previously accepted controls untouched.
func (v *Validator) Validate(clientID string, controls Controls) ValidationDecision {
	if v == nil {
		return ValidationDecision{Accepted: true}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	//1.- Non-finite values are never allowed to reach the physics loop.
	for _, value := range [3]float64{controls.Throttle, controls.Brake, controls.Steer} {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return v.reject(clientID, ValidationReasonNotFinite, "non-finite control value")
		}
	}

	//2.- Range checks per channel.
	if controls.Throttle < v.cfg.Throttle.Min || controls.Throttle > v.cfg.Throttle.Max {
		return v.reject(clientID, ValidationReasonThrottleRange,
			fmt.Sprintf("throttle %.3f outside [%.1f, %.1f]", controls.Throttle, v.cfg.Throttle.Min, v.cfg.Throttle.Max))
	}
	if controls.Brake < v.cfg.Brake.Min || controls.Brake > v.cfg.Brake.Max {
		return v.reject(clientID, ValidationReasonBrakeRange,
			fmt.Sprintf("brake %.3f outside [%.1f, %.1f]", controls.Brake, v.cfg.Brake.Min, v.cfg.Brake.Max))
	}
	if controls.Steer < v.cfg.Steer.Min || controls.Steer > v.cfg.Steer.Max {
		return v.reject(clientID, ValidationReasonSteerRange,
			fmt.Sprintf("steer %.3f outside [%.1f, %.1f]", controls.Steer, v.cfg.Steer.Min, v.cfg.Steer.Max))
	}

	//3.- Delta checks against the last accepted frame.
	if last, ok := v.last[clientID]; ok {
		if v.cfg.ThrottleDelta > 0 && math.Abs(controls.Throttle-last.Throttle) > v.cfg.ThrottleDelta {
			return v.reject(clientID, ValidationReasonThrottleDelta, "throttle delta too large")
		}
		if v.cfg.BrakeDelta > 0 && math.Abs(controls.Brake-last.Brake) > v.cfg.BrakeDelta {
			return v.reject(clientID, ValidationReasonBrakeDelta, "brake delta too large")
		}
		if v.cfg.SteerDelta > 0 && math.Abs(controls.Steer-last.Steer) > v.cfg.SteerDelta {
			return v.reject(clientID, ValidationReasonSteerDelta, "steer delta too large")
		}
	}

	v.last[clientID] = controls
	return ValidationDecision{Accepted: true}
}

// Forget clears the per-client state when the connection closes.
func (v *Validator) Forget(clientID string) {
	if v == nil || clientID == "" {
		return
	}
	v.mu.Lock()
	delete(v.last, clientID)
	delete(v.metrics, clientID)
	v.mu.Unlock()
}

// Counters returns a copy of the violation counters for the client.
func (v *Validator) Counters(clientID string) ValidationCounters {
	if v == nil {
		return ValidationCounters{}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	stored := v.metrics[clientID]
	out := ValidationCounters{Violations: make(map[ValidationReason]uint64, len(stored.Violations))}
	for reason, count := range stored.Violations {
		out.Violations[reason] = count
	}
	return out
}

func (v *Validator) reject(clientID string, reason ValidationReason, details string) ValidationDecision {
	counters := v.metrics[clientID]
	if counters.Violations == nil {
		counters.Violations = make(map[ValidationReason]uint64)
	}
	counters.Violations[reason]++
	v.metrics[clientID] = counters

	v.logger.Debug("control frame rejected",
		logging.String("client_id", clientID),
		logging.String("reason", string(reason)),
		logging.String("details", details),
	)
	return ValidationDecision{Reason: reason, Details: details}
}
