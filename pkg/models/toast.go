package models

import "time"

// ToastKind selects the icon and CSS class of a toast.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

const (
	iconSuccess = "✓"
	iconFailure = "✗"
)

// Icon returns the glyph shown next to a toast of this kind.
func (k ToastKind) Icon() string {
	if k == ToastSuccess {
		return iconSuccess
	}
	return iconFailure
}

// Toast is a single ephemeral notification.
type Toast struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Kind    ToastKind `json:"kind"`
	Icon    string    `json:"icon"`
	ShownAt time.Time `json:"shown_at"`
}
