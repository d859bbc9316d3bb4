package models

import "time"

// StatusSnapshot represents the reachability state of the monitored backend.
type StatusSnapshot struct {
	BaseURL       string    `json:"base_url"`
	Online        bool      `json:"online"`
	LastCheck     time.Time `json:"last_check"`
	LastCheckAgo  string    `json:"last_check_ago,omitempty"`
	LastChange    time.Time `json:"last_change"`
	LastError     string    `json:"last_error,omitempty"`
	Latency       int64     `json:"latency_ms"`
	Uptime        string    `json:"uptime,omitempty"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}
