package duckdb

import "github.com/tinytelemetry/sortable-table/internal/model"

// Type aliases re-export model interfaces and types so consumers that
// import duckdb for these do not need the model package too.
type DatasetStore = model.DatasetStore
type SessionStore = model.SessionStore
type DatasetInfo = model.DatasetInfo

var (
	_ DatasetStore = (*Store)(nil)
	_ SessionStore = (*Store)(nil)
)
