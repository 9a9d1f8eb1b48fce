package duckdb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tinytelemetry/sortable-table/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.csv")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

const peopleCSV = `name,age,city
carol,41,Oslo
alice,30,Lima
bob,25,
dave,30,Kyiv
`

func TestImportFileAndCatalog(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ImportFile(ctx, "people", writeCSV(t, peopleCSV)); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}

	cols, err := s.Columns(ctx, "people")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	want := []string{"name", "age", "city"}
	if len(cols) != len(want) {
		t.Fatalf("columns = %v, want %v", cols, want)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("columns = %v, want %v", cols, want)
		}
	}

	n, err := s.RowCount(ctx, "people")
	if err != nil {
		t.Fatalf("RowCount: %v", err)
	}
	if n != 4 {
		t.Fatalf("rows = %d, want 4", n)
	}

	infos, err := s.ListDatasets(ctx)
	if err != nil {
		t.Fatalf("ListDatasets: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "people" || infos[0].Rows != 4 {
		t.Fatalf("ListDatasets = %+v", infos)
	}
}

func TestImportFileRejectsBadInput(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ImportFile(ctx, "bad name", writeCSV(t, peopleCSV)); err == nil {
		t.Fatal("expected error for invalid dataset name")
	}
	if err := s.ImportFile(ctx, "x", "/tmp/data.xlsx"); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestQueryPageUnsortedKeepsInsertionOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.ImportFile(ctx, "people", writeCSV(t, peopleCSV)); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}

	rows, err := s.QueryPage(ctx, "people", nil, 0, 10)
	if err != nil {
		t.Fatalf("QueryPage: %v", err)
	}
	got := firstColumn(t, rows)
	want := []string{"carol", "alice", "bob", "dave"}
	assertStrings(t, got, want)
}

func TestQueryPageSortedAndSliced(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.ImportFile(ctx, "people", writeCSV(t, peopleCSV)); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}

	tests := []struct {
		name   string
		sort   *model.SortSpec
		offset int
		limit  int
		want   []string
	}{
		{"name asc", &model.SortSpec{Column: "name", Direction: model.Ascending}, 0, 10, []string{"alice", "bob", "carol", "dave"}},
		{"name desc", &model.SortSpec{Column: "name", Direction: model.Descending}, 0, 10, []string{"dave", "carol", "bob", "alice"}},
		{"age asc stable ties", &model.SortSpec{Column: "age", Direction: model.Ascending}, 0, 10, []string{"bob", "alice", "dave", "carol"}},
		{"second page", &model.SortSpec{Column: "name", Direction: model.Ascending}, 2, 2, []string{"carol", "dave"}},
		{"nulls last", &model.SortSpec{Column: "city", Direction: model.Ascending}, 0, 10, []string{"dave", "alice", "carol", "bob"}},
		{"past the end", nil, 10, 5, []string{}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rows, err := s.QueryPage(ctx, "people", tc.sort, tc.offset, tc.limit)
			if err != nil {
				t.Fatalf("QueryPage: %v", err)
			}
			assertStrings(t, firstColumn(t, rows), tc.want)
		})
	}
}

func TestQueryPageRejectsUnknownColumnAndDataset(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.ImportFile(ctx, "people", writeCSV(t, peopleCSV)); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}

	_, err := s.QueryPage(ctx, "people", &model.SortSpec{Column: `name"; DROP TABLE datasets; --`, Direction: model.Ascending}, 0, 10)
	if !errors.Is(err, model.ErrInvalidPayload) {
		t.Fatalf("err = %v, want ErrInvalidPayload", err)
	}

	_, err = s.QueryPage(ctx, "missing", nil, 0, 10)
	if !errors.Is(err, ErrUnknownDataset) {
		t.Fatalf("err = %v, want ErrUnknownDataset", err)
	}
}

func TestSeedDemo(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SeedDemo(ctx, "demo", 120); err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	n, err := s.RowCount(ctx, "demo")
	if err != nil {
		t.Fatalf("RowCount: %v", err)
	}
	if n != 120 {
		t.Fatalf("rows = %d, want 120", n)
	}
	rows, err := s.QueryPage(ctx, "demo", &model.SortSpec{Column: "id", Direction: model.Descending}, 0, 1)
	if err != nil {
		t.Fatalf("QueryPage: %v", err)
	}
	if len(rows) != 1 || len(rows[0]) != 5 {
		t.Fatalf("unexpected page %v", rows)
	}
	if id, ok := rows[0][0].(int64); !ok || id != 120 {
		t.Fatalf("top id = %#v, want int64 120", rows[0][0])
	}
}

func TestSessionsRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	st, ok, err := s.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if ok {
		t.Fatal("expected no session yet")
	}
	if st != model.NewHostState() {
		t.Fatalf("fresh state = %+v", st)
	}

	want := model.HostState{SortColumn: "age", SortDirection: model.Descending, Page: 3, Retrigger: true}
	if err := s.SaveSession(ctx, "s1", want); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	want.Page = 4
	if err := s.SaveSession(ctx, "s1", want); err != nil {
		t.Fatalf("SaveSession overwrite: %v", err)
	}

	got, ok, err := s.LoadSession(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("LoadSession: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("session = %+v, want %+v", got, want)
	}
}

func TestOpenOnDisk(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "table.duckdb")
	s, err := Open(context.Background(), Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.SaveSession(context.Background(), "a", model.NewHostState()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	s.Close()

	s2, err := Open(context.Background(), Config{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, ok, err := s2.LoadSession(context.Background(), "a"); err != nil || !ok {
		t.Fatalf("session lost across reopen: ok=%v err=%v", ok, err)
	}
}

func TestOpenWithSettings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tuned.duckdb")
	s, err := Open(ctx, Config{Path: path, Threads: 2, MaxMemory: "256MB"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if s.Path() != path {
		t.Fatalf("Path = %q, want %q", s.Path(), path)
	}
	if s.QueryTimeout != DefaultQueryTimeout {
		t.Fatalf("QueryTimeout = %s, want default", s.QueryTimeout)
	}
	v, err := s.SchemaVersion(ctx)
	if err != nil || v != 2 {
		t.Fatalf("SchemaVersion = %d, %v; want 2", v, err)
	}

	var threads string
	if err := s.db.QueryRowContext(ctx, "SELECT current_setting('threads')::VARCHAR").Scan(&threads); err != nil {
		t.Fatalf("read threads: %v", err)
	}
	if threads != "2" {
		t.Fatalf("threads = %q, want 2", threads)
	}
}

func TestConfigDSN(t *testing.T) {
	t.Parallel()
	tests := []struct {
		cfg  Config
		want string
	}{
		{Config{}, ""},
		{Config{Path: "/tmp/a.duckdb"}, "/tmp/a.duckdb"},
		{Config{Path: "/tmp/a.duckdb", Threads: 4}, "/tmp/a.duckdb?threads=4"},
		{Config{MaxMemory: "1GB", Threads: 1}, "?max_memory=1GB&threads=1"},
	}
	for _, tt := range tests {
		if got := tt.cfg.dsn(); got != tt.want {
			t.Errorf("dsn(%+v) = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}

func firstColumn(t *testing.T, rows [][]interface{}) []string {
	t.Helper()
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if len(r) == 0 {
			t.Fatalf("empty row")
		}
		v, ok := r[0].(string)
		if !ok {
			t.Fatalf("first cell %#v is not a string", r[0])
		}
		out = append(out, v)
	}
	return out
}

func assertStrings(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
