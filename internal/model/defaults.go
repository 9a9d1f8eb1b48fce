package model

import "time"

// Shared defaults used by the adapter, the widget and the CLI binaries.
const (
	DefaultMaxPage       = 99999
	DefaultMaxHeight     = "600px"
	DefaultSortDirection = Ascending
	DefaultPageSize      = 25
	DefaultPollInterval  = 500 * time.Millisecond
	DefaultSkin          = "default"
)
