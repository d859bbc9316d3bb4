package ui

import "errors"

// ErrElementNotFound is returned when a required page element is missing.
var ErrElementNotFound = errors.New("element not found")
