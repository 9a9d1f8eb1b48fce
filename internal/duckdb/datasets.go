package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tinytelemetry/sortable-table/internal/model"
)

// ErrUnknownDataset is returned when a dataset name is not in the catalog.
var ErrUnknownDataset = errors.New("unknown dataset")

var datasetNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// tableFor maps a dataset name to its backing table.
func tableFor(name string) string {
	return "ds_" + strings.ToLower(name)
}

// quoteIdent quotes an SQL identifier for DuckDB.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteLiteral quotes an SQL string literal for DuckDB.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// readerFor picks the DuckDB table function for a data file by extension.
func readerFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		return "read_csv_auto", nil
	case ".parquet":
		return "read_parquet", nil
	case ".json", ".ndjson", ".jsonl":
		return "read_json_auto", nil
	default:
		return "", fmt.Errorf("unsupported data file %q", path)
	}
}

// ImportFile loads a CSV, Parquet or JSON file into a dataset table,
// replacing any previous dataset of the same name.
func (s *Store) ImportFile(ctx context.Context, name, path string) error {
	if !datasetNameRe.MatchString(name) {
		return fmt.Errorf("invalid dataset name %q", name)
	}
	reader, err := readerFor(path)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	query := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s(%s)",
		quoteIdent(tableFor(name)), reader, quoteLiteral(abs))
	return s.createDataset(ctx, name, abs, query)
}

// SeedDemo creates a deterministic synthetic dataset with n rows.
func (s *Store) SeedDemo(ctx context.Context, name string, n int) error {
	if !datasetNameRe.MatchString(name) {
		return fmt.Errorf("invalid dataset name %q", name)
	}
	if n < 0 {
		n = 0
	}
	query := fmt.Sprintf(`CREATE OR REPLACE TABLE %s AS
SELECT
	i AS id,
	'item-' || lpad(CAST(i AS VARCHAR), 5, '0') AS name,
	CAST((i * 7919) %% 1000 AS DOUBLE) / 10.0 AS score,
	(i * 31) %% 97 AS quantity,
	CASE i %% 3 WHEN 0 THEN 'alpha' WHEN 1 THEN 'beta' ELSE 'gamma' END AS category
FROM range(1, %d) t(i)`, quoteIdent(tableFor(name)), n+1)
	return s.createDataset(ctx, name, "demo", query)
}

func (s *Store) createDataset(ctx context.Context, name, source, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(qctx, nil)
	if err != nil {
		return fmt.Errorf("begin import %s: %w", name, err)
	}
	if _, err := tx.ExecContext(qctx, query); err != nil {
		tx.Rollback()
		return fmt.Errorf("import %s: %w", name, err)
	}
	if _, err := tx.ExecContext(qctx,
		"INSERT OR REPLACE INTO datasets (name, source, table_name) VALUES (?, ?, ?)",
		name, source, tableFor(name)); err != nil {
		tx.Rollback()
		return fmt.Errorf("register %s: %w", name, err)
	}
	return tx.Commit()
}

// ListDatasets returns every registered dataset with its columns and size.
func (s *Store) ListDatasets(ctx context.Context) ([]model.DatasetInfo, error) {
	s.mu.RLock()
	names, err := s.datasetNames(ctx)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	out := make([]model.DatasetInfo, 0, len(names))
	for _, name := range names {
		cols, err := s.Columns(ctx, name)
		if err != nil {
			return nil, err
		}
		rows, err := s.RowCount(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, model.DatasetInfo{Name: name, Columns: cols, Rows: rows})
	}
	return out, nil
}

func (s *Store) datasetNames(ctx context.Context) ([]string, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(qctx, "SELECT name FROM datasets ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// tableName resolves a dataset to its backing table via the catalog.
// Caller must hold s.mu.
func (s *Store) tableName(ctx context.Context, dataset string) (string, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var table string
	err := s.db.QueryRowContext(qctx, "SELECT table_name FROM datasets WHERE name = ?", dataset).Scan(&table)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %q", ErrUnknownDataset, dataset)
	}
	if err != nil {
		return "", fmt.Errorf("lookup dataset %s: %w", dataset, err)
	}
	return table, nil
}

// Columns returns the dataset's column names in table order.
func (s *Store) Columns(ctx context.Context, dataset string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.columns(ctx, dataset)
}

func (s *Store) columns(ctx context.Context, dataset string) ([]string, error) {
	table, err := s.tableName(ctx, dataset)
	if err != nil {
		return nil, err
	}

	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(qctx,
		"SELECT column_name FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position", table)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", dataset, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// RowCount returns the number of rows in the dataset.
func (s *Store) RowCount(ctx context.Context, dataset string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, err := s.tableName(ctx, dataset)
	if err != nil {
		return 0, err
	}

	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var n int64
	if err := s.db.QueryRowContext(qctx, "SELECT COUNT(*) FROM "+quoteIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", dataset, err)
	}
	return n, nil
}

// QueryPage returns one sorted page of the dataset. Unsorted pages keep
// insertion order. The sort column must be one of the dataset's columns.
func (s *Store) QueryPage(ctx context.Context, dataset string, sort *model.SortSpec, offset, limit int) ([][]interface{}, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		return [][]interface{}{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	table, err := s.tableName(ctx, dataset)
	if err != nil {
		return nil, err
	}

	order := "rowid"
	if sort != nil {
		cols, err := s.columns(ctx, dataset)
		if err != nil {
			return nil, err
		}
		if !contains(cols, sort.Column) {
			return nil, fmt.Errorf("%w: dataset %s has no column %q", model.ErrInvalidPayload, dataset, sort.Column)
		}
		dir := "ASC"
		if sort.Direction == model.Descending {
			dir = "DESC"
		}
		order = fmt.Sprintf("%s %s NULLS LAST, rowid", quoteIdent(sort.Column), dir)
	}

	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s LIMIT ? OFFSET ?", quoteIdent(table), order)
	rows, err := s.db.QueryContext(qctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query page of %s: %w", dataset, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := [][]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	return out, rows.Err()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
