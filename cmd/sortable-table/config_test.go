package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/sortable-table/internal/model"
)

func TestLoadConfig_AddressResolution(t *testing.T) {
	resetSortableTableEnv(t)

	tests := []struct {
		name         string
		configYAML   string
		wantErr      bool
		wantAPIAddr  string
		errSubstring string
	}{
		{
			name:        "defaults to localhost host",
			configYAML:  `api-port: 3100`,
			wantAPIAddr: "127.0.0.1:3100",
		},
		{
			name: "host applies to derived api address",
			configYAML: `
host: 0.0.0.0
api-port: 3200
`,
			wantAPIAddr: "0.0.0.0:3200",
		},
		{
			name: "explicit address overrides host and port",
			configYAML: `
host: 0.0.0.0
api-port: 3300
api-addr: 10.0.0.5:8888
`,
			wantAPIAddr: "10.0.0.5:8888",
		},
		{
			name:         "invalid port rejected",
			configYAML:   `api-port: 70000`,
			wantErr:      true,
			errSubstring: "invalid api-port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeTempConfig(t, tt.configYAML)
			cfg, err := loadConfig(configPath)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.errSubstring != "" && !strings.Contains(err.Error(), tt.errSubstring) {
					t.Fatalf("error = %q, want substring %q", err.Error(), tt.errSubstring)
				}
				return
			}

			if err != nil {
				t.Fatalf("loadConfig returned error: %v", err)
			}
			if cfg.APIAddr != tt.wantAPIAddr {
				t.Fatalf("APIAddr = %q, want %q", cfg.APIAddr, tt.wantAPIAddr)
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetSortableTableEnv(t)

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg.Bridge != bridgeLocal {
		t.Fatalf("Bridge = %q, want %q", cfg.Bridge, bridgeLocal)
	}
	if cfg.PageSize != model.DefaultPageSize {
		t.Fatalf("PageSize = %d, want %d", cfg.PageSize, model.DefaultPageSize)
	}
	if cfg.QueryTimeout != defaultQueryTimeout {
		t.Fatalf("QueryTimeout = %s", cfg.QueryTimeout)
	}
	if cfg.DemoRows != defaultDemoRows {
		t.Fatalf("DemoRows = %d", cfg.DemoRows)
	}
	if !strings.HasSuffix(cfg.DBPath, "sortable-table.duckdb") {
		t.Fatalf("DBPath = %q", cfg.DBPath)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	resetSortableTableEnv(t)
	t.Setenv("SORTABLE_TABLE_PAGE_SIZE", "7")
	t.Setenv("SORTABLE_TABLE_QUERY_TIMEOUT", "2s")

	cfg, err := loadConfig(writeTempConfig(t, `page-size: 50`))
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg.PageSize != 7 {
		t.Fatalf("PageSize = %d, want 7", cfg.PageSize)
	}
	if cfg.QueryTimeout != 2*time.Second {
		t.Fatalf("QueryTimeout = %s, want 2s", cfg.QueryTimeout)
	}
}

func TestLoadConfig_Bridge(t *testing.T) {
	resetSortableTableEnv(t)

	tests := []struct {
		name         string
		configYAML   string
		wantURL      string
		errSubstring string
	}{
		{
			name: "http bridge defaults to own api",
			configYAML: `
bridge: http
api-port: 3400
`,
			wantURL: "http://127.0.0.1:3400",
		},
		{
			name: "explicit bridge url",
			configYAML: `
bridge: http
bridge-url: http://widgets.internal:9000
`,
			wantURL: "http://widgets.internal:9000",
		},
		{
			name: "http bridge without api or url rejected",
			configYAML: `
bridge: http
api-enabled: false
`,
			errSubstring: "needs api-enabled or bridge-url",
		},
		{
			name:         "unknown bridge rejected",
			configYAML:   `bridge: carrier-pigeon`,
			errSubstring: "invalid bridge",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig(writeTempConfig(t, tt.configYAML))
			if tt.errSubstring != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errSubstring) {
					t.Fatalf("error = %v, want substring %q", err, tt.errSubstring)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadConfig returned error: %v", err)
			}
			if cfg.BridgeURL != tt.wantURL {
				t.Fatalf("BridgeURL = %q, want %q", cfg.BridgeURL, tt.wantURL)
			}
		})
	}
}

func TestLoadConfig_Tables(t *testing.T) {
	resetSortableTableEnv(t)

	cfg, err := loadConfig(writeTempConfig(t, `
page-size: 20
datasets:
  people: ~/data/people.csv
tables:
  - dataset: people
    key: staff
    paginated: false
    column-widths: ["120px", "auto", "30"]
    max-height: 400px
    style: "font-weight: bold"
    formats:
      score: "%.2f"
    tooltips:
      name: "row {row}: {value}"
  - dataset: people
`))
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}

	home, _ := os.UserHomeDir()
	if got := cfg.Datasets["people"]; got != filepath.Join(home, "data", "people.csv") {
		t.Fatalf("dataset path = %q", got)
	}

	boards, err := cfg.dashboardConfigs([]string{"people"})
	if err != nil {
		t.Fatalf("dashboardConfigs: %v", err)
	}
	if len(boards) != 2 {
		t.Fatalf("got %d boards, want 2", len(boards))
	}

	staff := boards[0]
	if staff.Key != "staff" || staff.Paginated || staff.PageSize != 20 {
		t.Fatalf("staff = %+v", staff)
	}
	if len(staff.ColumnWidths) != 3 || staff.ColumnWidths[0] != model.CSSWidth("120px") || staff.ColumnWidths[2] != model.Px(30) {
		t.Fatalf("widths = %+v", staff.ColumnWidths)
	}
	if staff.Formats["score"] != "%.2f" || staff.Tooltips["name"] != "row {row}: {value}" {
		t.Fatalf("formats/tooltips = %v %v", staff.Formats, staff.Tooltips)
	}
	if staff.MaxHeight != "400px" || staff.StyleOverrides != "font-weight: bold" {
		t.Fatalf("staff = %+v", staff)
	}
	if !boards[1].Paginated {
		t.Fatal("tables default to paginated")
	}
}

func TestDashboardConfigs_OnePerDataset(t *testing.T) {
	t.Parallel()

	cfg := appConfig{PageSize: 10}
	boards, err := cfg.dashboardConfigs([]string{"a", "b"})
	if err != nil {
		t.Fatalf("dashboardConfigs: %v", err)
	}
	if len(boards) != 2 || boards[0].Dataset != "a" || boards[1].Dataset != "b" {
		t.Fatalf("boards = %+v", boards)
	}
	if boards[0].PageSize != 10 || !boards[0].Paginated {
		t.Fatalf("board = %+v", boards[0])
	}

	cfg.Tables = []tableConfig{{Key: "orphan"}}
	if _, err := cfg.dashboardConfigs(nil); err == nil {
		t.Fatal("expected error for a table without dataset")
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func resetSortableTableEnv(t *testing.T) {
	t.Helper()

	original := make(map[string]string)
	existed := make(map[string]bool)

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, "SORTABLE_TABLE_") {
			continue
		}
		original[key] = value
		existed[key] = true
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}

	t.Cleanup(func() {
		for key := range existed {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("cleanup unset %s: %v", key, err)
			}
		}
		for key, value := range original {
			if err := os.Setenv(key, value); err != nil {
				t.Fatalf("cleanup restore %s: %v", key, err)
			}
		}
	})
}
