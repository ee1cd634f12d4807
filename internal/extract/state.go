package extract

import "fmt"

// DayState represents a state of the per-day extraction state machine.
type DayState string

const (
	StateNotStarted   DayState = "not_started"
	StateDayAttempted DayState = "day_attempted"
	StateProbing      DayState = "probing"
	StateHourFallback DayState = "hour_fallback"
	StateDone         DayState = "done"
	StateFailed       DayState = "failed"
)

// ValidateTransition checks if a state transition is valid.
// Returns an error if the transition is not allowed.
func ValidateTransition(from, to DayState) error {
	validTransitions := map[DayState][]DayState{
		StateNotStarted: {
			StateDayAttempted, // every day starts with a full-day attempt
		},
		StateDayAttempted: {
			StateDone,    // full-day fetch succeeded (possibly empty)
			StateProbing, // full-day fetch failed, check if data exists
			StateFailed,  // non-retryable error (authentication)
		},
		StateProbing: {
			StateDone,         // probe found nothing, day skipped as empty
			StateHourFallback, // probe found data, enumerate hours
			StateFailed,       // non-retryable error (authentication)
		},
		StateHourFallback: {
			StateDone,   // all hours attempted
			StateFailed, // non-retryable error (authentication) mid-enumeration
		},
		// Terminal states
		StateDone:   {},
		StateFailed: {},
	}

	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source state: %s", from)
	}

	for _, state := range allowed {
		if state == to {
			return nil
		}
	}

	return fmt.Errorf("invalid state transition from %s to %s", from, to)
}

// IsTerminalState checks if a state is terminal (no further transitions).
func IsTerminalState(state DayState) bool {
	return state == StateDone || state == StateFailed
}
