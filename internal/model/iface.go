package model

import "context"

// DatasetInfo describes one dataset available to the host.
type DatasetInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    int64    `json:"rows"`
}

// DatasetStore serves sorted page slices of host datasets.
// Cells come back as raw driver values; formatting is the host's job.
type DatasetStore interface {
	ListDatasets(ctx context.Context) ([]DatasetInfo, error)
	Columns(ctx context.Context, dataset string) ([]string, error)
	RowCount(ctx context.Context, dataset string) (int64, error)
	QueryPage(ctx context.Context, dataset string, sort *SortSpec, offset, limit int) ([][]interface{}, error)
}

// SessionStore persists host state between render cycles.
type SessionStore interface {
	LoadSession(ctx context.Context, id string) (HostState, bool, error)
	SaveSession(ctx context.Context, id string, state HostState) error
}
