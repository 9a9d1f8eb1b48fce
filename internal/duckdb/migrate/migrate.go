// Package migrate keeps the store's schema (dataset catalog, table
// sessions) at the version embedded in the binary.
package migrate

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Step is one embedded schema change.
type Step struct {
	Version  int
	Name     string
	Checksum string
	sql      string
}

// Status reports how far a database is behind the embedded steps.
type Status struct {
	Version int
	Pending []string
}

// Runner applies the embedded steps to one database.
type Runner struct {
	db    *sql.DB
	steps func() ([]Step, error)
}

// NewRunner creates a runner for db.
func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db, steps: embeddedSteps}
}

// embeddedSteps reads NNN_name.sql files in version order.
func embeddedSteps() ([]Step, error) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	steps := make([]Step, 0, len(files))
	seen := make(map[int]string, len(files))
	for _, f := range files {
		name := path.Base(f)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= 0 {
			return nil, fmt.Errorf("migrate: %s: name must start with a positive version", name)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrate: %s and %s share version %d", prev, name, version)
		}
		seen[version] = name

		body, err := migrations.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("migrate: read %s: %w", name, err)
		}
		sum := sha256.Sum256(body)
		steps = append(steps, Step{
			Version:  version,
			Name:     name,
			Checksum: hex.EncodeToString(sum[:8]),
			sql:      string(body),
		})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].Version < steps[j].Version })
	return steps, nil
}

func (r *Runner) ensureLedger(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       VARCHAR NOT NULL,
		checksum   VARCHAR NOT NULL DEFAULT '',
		applied_at TIMESTAMP DEFAULT current_timestamp
	)`)
	return err
}

// applied returns the recorded checksum of every applied version.
func (r *Runner) applied(ctx context.Context) (map[int]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var v int
		var sum string
		if err := rows.Scan(&v, &sum); err != nil {
			return nil, err
		}
		out[v] = sum
	}
	return out, rows.Err()
}

// plan loads the ledger and the embedded steps and returns the steps not
// applied yet. A step whose file changed after it was applied is an error.
func (r *Runner) plan(ctx context.Context) (current int, pending []Step, err error) {
	if err := r.ensureLedger(ctx); err != nil {
		return 0, nil, fmt.Errorf("migrate: ledger: %w", err)
	}
	steps, err := r.steps()
	if err != nil {
		return 0, nil, err
	}
	done, err := r.applied(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("migrate: read ledger: %w", err)
	}
	for v := range done {
		if v > current {
			current = v
		}
	}
	for _, s := range steps {
		sum, ok := done[s.Version]
		if !ok {
			pending = append(pending, s)
			continue
		}
		if sum != "" && sum != s.Checksum {
			return 0, nil, fmt.Errorf("migrate: %s changed after it was applied", s.Name)
		}
	}
	return current, pending, nil
}

// Run applies every pending step, each in its own transaction.
func (r *Runner) Run(ctx context.Context) error {
	_, pending, err := r.plan(ctx)
	if err != nil {
		return err
	}
	for _, s := range pending {
		if err := r.apply(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) apply(ctx context.Context, s Step) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: begin %s: %w", s.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.sql); err != nil {
		return fmt.Errorf("migrate: %s: %w", s.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, checksum) VALUES (?, ?, ?)",
		s.Version, s.Name, s.Checksum); err != nil {
		return fmt.Errorf("migrate: record %s: %w", s.Name, err)
	}
	return tx.Commit()
}

// Status reports the applied version and the names of pending steps.
func (r *Runner) Status(ctx context.Context) (Status, error) {
	current, pending, err := r.plan(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{Version: current}
	for _, s := range pending {
		st.Pending = append(st.Pending, s.Name)
	}
	return st, nil
}
