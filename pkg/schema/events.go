package schema

import (
	"fmt"
	"strings"
)

// Algorithm identifies one of the fixed recursive algorithms the simulator knows.
type Algorithm string

const (
	AlgorithmFactorial Algorithm = "factorial"
	AlgorithmFibonacci Algorithm = "fibonacci"
	AlgorithmHanoi     Algorithm = "hanoi"
)

// Algorithms lists every supported algorithm in catalog order.
var Algorithms = []Algorithm{AlgorithmFactorial, AlgorithmFibonacci, AlgorithmHanoi}

// ParseAlgorithm converts a user-supplied name to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Algorithms {
		if a == known {
			return a, nil
		}
	}
	return "", NewErrorf(ErrCodeValidation, "unknown algorithm %q", s).
		WithDetails(map[string]any{"algorithm": s, "supported": Algorithms})
}

func (a Algorithm) String() string { return string(a) }

// EventKind distinguishes the two entries of the execution log.
type EventKind string

const (
	EventCall   EventKind = "call"
	EventReturn EventKind = "return"
)

// NodeState is the lifecycle state recorded on a call node by the simulator.
type NodeState string

const (
	NodeStateCreated   NodeState = "created"
	NodeStateActive    NodeState = "active"
	NodeStateCompleted NodeState = "completed"
)

// Visibility is the per-step state the player derives for a node.
type Visibility string

const (
	VisibilityHidden    Visibility = "hidden"
	VisibilityPending   Visibility = "pending"
	VisibilityActive    Visibility = "active"
	VisibilityCompleted Visibility = "completed"
)

// EdgePhase tells whether an edge currently represents the call or the return.
type EdgePhase string

const (
	EdgePhaseCall   EdgePhase = "call"
	EdgePhaseReturn EdgePhase = "return"
)

// Theme is the persisted display preference.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme validates a theme name.
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeDark, ThemeLight:
		return Theme(s), nil
	}
	return "", NewError(ErrCodeValidation, fmt.Sprintf("theme must be %q or %q", ThemeDark, ThemeLight))
}

// Stream event types published on the hub.
const (
	EventRunStarted      = "run_started"
	EventRunFailed       = "run_failed"
	EventStepChanged     = "step_changed"
	EventPlaybackStarted = "playback_started"
	EventPlaybackStopped = "playback_stopped"
	EventBreakpointHit   = "breakpoint_hit"
	EventSessionReset    = "session_reset"
	EventSessionExpired  = "session_expired"
)
