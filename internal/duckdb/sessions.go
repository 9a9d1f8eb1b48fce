package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tinytelemetry/sortable-table/internal/model"
)

// LoadSession returns the saved host state for a session id.
// The bool is false when no state was saved yet.
func (s *Store) LoadSession(ctx context.Context, id string) (model.HostState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var (
		st  model.HostState
		dir string
	)
	err := s.db.QueryRowContext(qctx,
		"SELECT sort_column, sort_direction, page, retrigger FROM table_sessions WHERE id = ?", id,
	).Scan(&st.SortColumn, &dir, &st.Page, &st.Retrigger)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewHostState(), false, nil
	}
	if err != nil {
		return model.HostState{}, false, fmt.Errorf("load session %s: %w", id, err)
	}

	st.SortDirection = model.Direction(dir)
	if !st.SortDirection.Valid() {
		st.SortDirection = model.DefaultSortDirection
	}
	return st, true, nil
}

// SaveSession upserts the host state for a session id.
func (s *Store) SaveSession(ctx context.Context, id string, st model.HostState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(qctx,
		`INSERT OR REPLACE INTO table_sessions (id, sort_column, sort_direction, page, retrigger, updated_at)
		 VALUES (?, ?, ?, ?, ?, current_timestamp)`,
		id, st.SortColumn, string(st.SortDirection), st.Page, st.Retrigger)
	if err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}
