package service

import "time"

// LogFilter selects diagnostics events by time range and type.
type LogFilter struct {
	From  time.Time // inclusive; zero means no lower bound
	To    time.Time // inclusive; zero means no upper bound
	Type  string    // "", CONNECTED, DISCONNECTED, REJECTED, COMMAND
	Limit int       // 0 means no limit
}
