package widget

import (
	"context"

	"github.com/tinytelemetry/sortable-table/internal/model"
)

// Controller is the surface front ends and transports drive. *Registry
// implements it; socketrpc.Client implements it remotely.
type Controller interface {
	Mount(ctx context.Context, key string, p model.Payload) (model.RawResult, error)
	Snapshot(key string) (Snapshot, error)
	Keys() []string
	ClickHeader(key, column string) (model.Event, error)
	Page(key string, action PageAction) (model.Event, error)
	GoTo(key string, n int) (model.Event, error)
}

// Rerunner re-renders the host side of a table after the user interacted
// with it. Servers call it after every interaction when one is set.
type Rerunner interface {
	Rerun(ctx context.Context, key string) error
}

var _ Controller = (*Registry)(nil)
