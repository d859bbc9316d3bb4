package models

// Event types pushed to live clients.
const (
	EventStatus = "status"
	EventToast  = "toast"
)

// Event is a message broadcast over the live updates channel.
type Event struct {
	Type   string          `json:"type"`
	Status *StatusSnapshot `json:"status,omitempty"`
	Toast  *Toast          `json:"toast,omitempty"`
}
