package models

import "time"

// Telemetry diagnostic event types.
const (
	EventConnected    = "CONNECTED"
	EventDisconnected = "DISCONNECTED"
	EventRejected     = "REJECTED"
	EventCommand      = "COMMAND"
)

// TelemetryEvent is a single entry of the diagnostics log.
type TelemetryEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // CONNECTED | DISCONNECTED | REJECTED | COMMAND
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
