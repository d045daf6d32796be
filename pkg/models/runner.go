// Package models defines the core domain types shared by the runner host.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind identifies a supervisor transition.
type EventKind string

const (
	EventStarted        EventKind = "started"
	EventStartFailed    EventKind = "start_failed"
	EventKilledPrevious EventKind = "killed_previous"
	EventStopped        EventKind = "stopped"
	EventStopFailed     EventKind = "stop_failed"
	EventStopNoop       EventKind = "stop_noop"
)

// ValidEventKind checks if a kind is known.
func ValidEventKind(k EventKind) bool {
	switch k {
	case EventStarted, EventStartFailed, EventKilledPrevious, EventStopped, EventStopFailed, EventStopNoop:
		return true
	}
	return false
}

// IsFailure returns true for kinds that report a failed operation.
func (k EventKind) IsFailure() bool {
	return k == EventStartFailed || k == EventStopFailed
}

// Event records one supervisor transition.
type Event struct {
	ID       string    `json:"id"`
	Kind     EventKind `json:"kind"`
	Message  string    `json:"message,omitempty"`
	Error    string    `json:"error,omitempty"`
	PID      int       `json:"pid,omitempty"`
	LaunchID string    `json:"launch_id,omitempty"`
	At       time.Time `json:"at"`
}

// Resources is a point-in-time resource reading of the worker process.
type Resources struct {
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	Threads    int32   `json:"threads"`
}

// RunnerStatus is the externally visible state of the supervised worker.
type RunnerStatus struct {
	Running   bool       `json:"running"`
	PID       int        `json:"pid,omitempty"`
	LaunchID  string     `json:"launch_id,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	Uptime    string     `json:"uptime,omitempty"`
	Resources *Resources `json:"resources,omitempty"`
}

// WithUptime fills Uptime relative to now.
func (s RunnerStatus) WithUptime(now time.Time) RunnerStatus {
	if s.StartedAt != nil {
		s.Uptime = now.Sub(*s.StartedAt).Round(time.Second).String()
	}
	return s
}

// MenuItem is one entry of the tray menu. Separator entries carry no ID.
type MenuItem struct {
	ID        string `json:"id,omitempty"`
	Label     string `json:"label,omitempty"`
	Separator bool   `json:"separator,omitempty"`
}

// Duration is a wrapper around time.Duration for config and JSON marshaling.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler. null leaves the value
// unchanged; anything other than a string is rejected.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"2s\", got %s", b)
	}
	return d.UnmarshalText([]byte(s))
}

// MarshalText implements encoding.TextMarshaler (used by TOML).
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler (used by TOML).
func (d *Duration) UnmarshalText(b []byte) error {
	s := string(b)
	if s == "" {
		*d = 0
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}
