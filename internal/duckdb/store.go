package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/tinytelemetry/sortable-table/internal/duckdb/migrate"
)

// DefaultQueryTimeout bounds every store query unless configured.
const DefaultQueryTimeout = 30 * time.Second

// Config selects the database file and engine settings. An empty Path
// keeps everything in memory.
type Config struct {
	Path         string
	QueryTimeout time.Duration
	// Threads and MaxMemory are passed to DuckDB as-is when set,
	// e.g. 4 and "1GB".
	Threads   int
	MaxMemory string
}

func (c Config) dsn() string {
	q := url.Values{}
	if c.Threads > 0 {
		q.Set("threads", strconv.Itoa(c.Threads))
	}
	if c.MaxMemory != "" {
		q.Set("max_memory", c.MaxMemory)
	}
	if len(q) == 0 {
		return c.Path
	}
	return c.Path + "?" + q.Encode()
}

// Store holds host datasets and table sessions in one DuckDB database.
// Writers take mu exclusively so an import never interleaves with a
// page query over the same catalog row.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	path         string
	QueryTimeout time.Duration
}

// Open opens or creates the database and brings its schema up to date.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("duckdb: %w", err)
		}
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}

	db, err := sql.Open("duckdb", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("duckdb: open %q: %w", cfg.Path, err)
	}
	if err := migrate.NewRunner(db).Run(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: cfg.Path, QueryTimeout: cfg.QueryTimeout}, nil
}

// Path returns the database file, or "" for an in-memory store.
func (s *Store) Path() string { return s.path }

// SchemaVersion returns the applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	st, err := migrate.NewRunner(s.db).Status(ctx)
	if err != nil {
		return 0, err
	}
	return st.Version, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// queryCtx bounds a query by the store's timeout and the caller's context.
func (s *Store) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, s.QueryTimeout)
}
