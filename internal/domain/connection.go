package domain

import (
	"fmt"
	"strings"
	"time"
)

// ConnectionState is the two-state machine driving auto-pause.
type ConnectionState string

const (
	ConnectionActive ConnectionState = "ACTIVE"
	ConnectionPaused ConnectionState = "PAUSED"
)

func (s ConnectionState) String() string { return string(s) }

func (s ConnectionState) IsValid() bool {
	return s == ConnectionActive || s == ConnectionPaused
}

func ParseConnectionStateFromString(s string) (ConnectionState, error) {
	cs := ConnectionState(strings.ToUpper(strings.TrimSpace(s)))
	if !cs.IsValid() {
		return "", fmt.Errorf("%w: invalid connection state %q", ErrValidation, s)
	}
	return cs, nil
}

// PauseThreshold is the consecutive-failure count that pauses a connection.
const PauseThreshold = 10

// ProviderConnection is one provider account on one channel. The only signal
// feeding the ACTIVE->PAUSED transition is ConsecutiveFailures; resuming is
// always an explicit administrative action.
type ProviderConnection struct {
	ID                  string
	Channel             Channel
	Label               string
	State               ConnectionState
	ConsecutiveFailures int
	PausedAt            *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ShouldPause reports whether the failure streak has reached the threshold.
func ShouldPause(consecutiveFailures int) bool {
	return consecutiveFailures >= PauseThreshold
}
