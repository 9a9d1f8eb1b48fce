package main

import (
	"fmt"
	"time"

	"github.com/tinytelemetry/sortable-table/internal/dashboard"
	"github.com/tinytelemetry/sortable-table/internal/model"
)

const (
	defaultBindHost     = "127.0.0.1"
	defaultAPIPort      = 3000
	defaultSkin         = model.DefaultSkin
	defaultQueryTimeout = 30 * time.Second
	defaultDemoRows     = 120
	defaultBridge       = bridgeLocal
)

const (
	bridgeLocal = "local"
	bridgeHTTP  = "http"
)

// tableConfig describes one dashboard table.
type tableConfig struct {
	Dataset   string            `mapstructure:"dataset"`
	Key       string            `mapstructure:"key"`
	PageSize  int               `mapstructure:"page-size"`
	Paginated *bool             `mapstructure:"paginated"`
	Widths    []string          `mapstructure:"column-widths"`
	MaxHeight string            `mapstructure:"max-height"`
	Style     string            `mapstructure:"style"`
	Formats   map[string]string `mapstructure:"formats"`
	Tooltips  map[string]string `mapstructure:"tooltips"`
}

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Host         string            `mapstructure:"host"`
	APIEnabled   bool              `mapstructure:"api-enabled"`
	APIPort      int               `mapstructure:"api-port"`
	APIAddr      string            `mapstructure:"api-addr"`
	AllowOrigins []string          `mapstructure:"allow-origins"`
	SocketPath   string            `mapstructure:"socket-path"`
	DBPath       string            `mapstructure:"db-path"`
	DBThreads    int               `mapstructure:"db-threads"`
	DBMaxMemory  string            `mapstructure:"db-max-memory"`
	Skin         string            `mapstructure:"skin"`
	QueryTimeout time.Duration     `mapstructure:"query-timeout"`
	Datasets     map[string]string `mapstructure:"datasets"`
	DemoRows     int               `mapstructure:"demo-rows"`
	PageSize     int               `mapstructure:"page-size"`
	Tables       []tableConfig     `mapstructure:"tables"`
	Bridge       string            `mapstructure:"bridge"`
	BridgeURL    string            `mapstructure:"bridge-url"`
	SessionID    string            `mapstructure:"session-id"`
	ConfigPath   string            `mapstructure:"-"` // not from config file
	ConfigDir    string            `mapstructure:"-"`
}

// dashboardConfigs turns the table section into dashboard configs. With no
// tables configured every loaded dataset gets one paginated table.
func (c appConfig) dashboardConfigs(datasets []string) ([]dashboard.Config, error) {
	tables := c.Tables
	if len(tables) == 0 {
		for _, name := range datasets {
			tables = append(tables, tableConfig{Dataset: name})
		}
	}

	out := make([]dashboard.Config, 0, len(tables))
	for i, t := range tables {
		if t.Dataset == "" {
			return nil, fmt.Errorf("tables[%d]: dataset is required", i)
		}
		paginated := true
		if t.Paginated != nil {
			paginated = *t.Paginated
		}
		pageSize := t.PageSize
		if pageSize <= 0 {
			pageSize = c.PageSize
		}
		widths := make([]model.ColumnWidth, len(t.Widths))
		for j, w := range t.Widths {
			widths[j] = model.ParseColumnWidth(w)
		}
		out = append(out, dashboard.Config{
			Dataset:        t.Dataset,
			Key:            t.Key,
			PageSize:       pageSize,
			Paginated:      paginated,
			ColumnWidths:   widths,
			MaxHeight:      t.MaxHeight,
			StyleOverrides: t.Style,
			Formats:        t.Formats,
			Tooltips:       t.Tooltips,
		})
	}
	return out, nil
}
