// Package status defines connection lifecycle states shared by the live channel
// and the orchestrator.
package status

import "errors"

// TransportState is the lifecycle state of a live connection.
type TransportState string

const (
	StateConnecting TransportState = "connecting"
	StateOpen       TransportState = "open"
	StateClosing    TransportState = "closing"
	StateClosed     TransportState = "closed"
)

// ErrInvalidTransition is returned when a state transition is not allowed.
var ErrInvalidTransition = errors.New("invalid transport state transition")

// String returns the string representation of the state.
func (s TransportState) String() string {
	return string(s)
}

// IsOpen reports whether frames can be written in this state.
func (s TransportState) IsOpen() bool {
	return s == StateOpen
}

// ValidTransitions defines allowed transport state transitions.
var ValidTransitions = map[TransportState][]TransportState{
	StateConnecting: {StateOpen, StateClosed},
	StateOpen:       {StateClosing, StateClosed},
	StateClosing:    {StateClosed},
	StateClosed:     {StateConnecting}, // reconnect
}

// CanTransitionTo checks if a transition from the current state to target is valid.
func (s TransportState) CanTransitionTo(target TransportState) bool {
	validTargets, ok := ValidTransitions[s]
	if !ok {
		return false
	}
	for _, t := range validTargets {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionTo attempts to transition to the target state and returns error if invalid.
func (s TransportState) TransitionTo(target TransportState) (TransportState, error) {
	if !s.CanTransitionTo(target) {
		return s, ErrInvalidTransition
	}
	return target, nil
}

// ConnectionStatus is the user-facing connectivity indicator.
type ConnectionStatus string

const (
	ConnectionConnecting              ConnectionStatus = "connecting"
	ConnectionConnected               ConnectionStatus = "connected"
	ConnectionDisconnected            ConnectionStatus = "disconnected"
	ConnectionPermanentlyDisconnected ConnectionStatus = "permanently_disconnected"
)

// String returns the string representation of the status.
func (c ConnectionStatus) String() string {
	return string(c)
}

// IsTerminal returns true once the supervisor has given up reconnecting.
func (c ConnectionStatus) IsTerminal() bool {
	return c == ConnectionPermanentlyDisconnected
}

// ConnectionStatusFor maps a transport state to the status shown to the user.
func ConnectionStatusFor(s TransportState) ConnectionStatus {
	switch s {
	case StateOpen:
		return ConnectionConnected
	case StateConnecting:
		return ConnectionConnecting
	default:
		return ConnectionDisconnected
	}
}

// ErrorSeverity indicates how an error should be handled.
type ErrorSeverity string

const (
	ErrorSeverityFallback  ErrorSeverity = "fallback"  // Try the next transport or content fallback
	ErrorSeveritySkippable ErrorSeverity = "skippable" // Log and continue
	ErrorSeverityFatal     ErrorSeverity = "fatal"     // Stop processing
)

// AllowsFallback returns true if a fallback path should be taken.
func (s ErrorSeverity) AllowsFallback() bool {
	return s == ErrorSeverityFallback
}
