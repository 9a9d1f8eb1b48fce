package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/sortable-table/internal/adapter"
	"github.com/tinytelemetry/sortable-table/internal/dashboard"
	"github.com/tinytelemetry/sortable-table/internal/duckdb"
	"github.com/tinytelemetry/sortable-table/internal/httpbridge"
	"github.com/tinytelemetry/sortable-table/internal/httpserver"
	"github.com/tinytelemetry/sortable-table/internal/model"
	"github.com/tinytelemetry/sortable-table/internal/rendering"
	"github.com/tinytelemetry/sortable-table/internal/socketrpc"
	"github.com/tinytelemetry/sortable-table/internal/theme"
	"github.com/tinytelemetry/sortable-table/internal/widget"
	"golang.org/x/sync/errgroup"
)

const bridgeTimeout = 10 * time.Second

// service is everything runServer starts, in dependency order.
type service struct {
	store    *duckdb.Store
	registry *widget.Registry
	api      *httpserver.Server
	sock     *socketrpc.Server
	host     *dashboard.Host
	watcher  dashboard.Watcher
	datasets []string
	stops    []func()
}

// startService opens the store, loads datasets, renders every dashboard
// once and starts the widget servers.
func startService(ctx context.Context, cfg appConfig, stdin io.Reader) (*service, error) {
	s := &service{registry: widget.NewRegistry()}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	store, err := duckdb.Open(ctx, duckdb.Config{
		Path:         cfg.DBPath,
		QueryTimeout: cfg.QueryTimeout,
		Threads:      cfg.DBThreads,
		MaxMemory:    cfg.DBMaxMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize DuckDB: %w", err)
	}
	s.store = store
	s.stops = append(s.stops, func() { store.Close() })

	plugins := buildDatasetPlugins(DatasetPluginConfig{Files: cfg.Datasets, Stdin: stdin})
	s.datasets, err = loadDatasets(ctx, store, plugins, cfg.DemoRows)
	if err != nil {
		return nil, err
	}

	skin, err := theme.Load(cfg.Skin, cfg.ConfigDir)
	if err != nil {
		log.Printf("server: skin %q: %v (using default)", cfg.Skin, err)
		skin = theme.Default()
	}
	renderer, err := rendering.NewTableRenderer(skin)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize renderer: %w", err)
	}

	var bridge adapter.Bridge = s.registry
	if cfg.Bridge == bridgeHTTP {
		client := httpbridge.New(cfg.BridgeURL, bridgeTimeout)
		bridge = client
		s.watcher = client
	}

	s.host = dashboard.NewHost()
	boards, err := cfg.dashboardConfigs(s.datasets)
	if err != nil {
		return nil, err
	}
	for _, bc := range boards {
		d, err := dashboard.New(bc, store, store, bridge, cfg.SessionID)
		if err != nil {
			return nil, err
		}
		if err := s.host.Add(d); err != nil {
			return nil, err
		}
	}

	// With the in-process bridge every table is mounted before a server
	// listens, so no client sees an empty registry. Over HTTP the host
	// mounts through the API, which reports not ready until that is done.
	if s.watcher == nil {
		if err := s.host.RenderAll(ctx); err != nil {
			return nil, fmt.Errorf("initial render: %w", err)
		}
	}

	if cfg.APIEnabled {
		s.api = httpserver.NewServer(cfg.APIAddr, s.registry, renderer)
		s.api.SetAllowOrigins(cfg.AllowOrigins)
		if s.watcher == nil {
			s.api.SetRerunner(s.host)
		} else {
			s.api.SetReady(false)
		}
		if err := s.api.Start(); err != nil {
			return nil, fmt.Errorf("failed to start API server: %w", err)
		}
		api := s.api
		s.stops = append(s.stops, func() { api.Stop() })
	}

	if s.watcher != nil {
		if err := s.host.RenderAll(ctx); err != nil {
			return nil, fmt.Errorf("initial render: %w", err)
		}
		if s.api != nil {
			s.api.SetReady(true)
		}
	}

	// Over HTTP the host follows the widget's event stream instead of
	// being rerun by the servers.
	sock := socketrpc.NewServer(cfg.SocketPath, s.registry)
	if s.watcher == nil {
		sock.SetRerunner(s.host)
	}
	if err := sock.Start(); err != nil {
		log.Printf("Warning: failed to start socket server: %v", err)
	} else {
		s.sock = sock
		s.stops = append(s.stops, sock.Stop)
	}

	ok = true
	return s, nil
}

// Close stops everything in reverse start order.
func (s *service) Close() {
	for i := len(s.stops) - 1; i >= 0; i-- {
		s.stops[i]()
	}
	s.stops = nil
}

// runServer hosts the dashboards and serves the widget until a signal.
func runServer(cfg appConfig) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	// Signals are handled from the start so an interrupt during startup
	// still unwinds through startService's cleanup.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		cleanupSocket(cfg.SocketPath)
		os.Exit(1)
	}()

	svc, err := startService(ctx, cfg, os.Stdin)
	if err != nil {
		if ctx.Err() != nil {
			log.Printf("server: interrupted during startup: %v", err)
			return nil
		}
		return err
	}
	defer svc.Close()

	printStartupBanner(cfg, svc)

	g, gctx := errgroup.WithContext(ctx)

	if svc.watcher != nil {
		g.Go(func() error {
			return svc.host.Follow(gctx, svc.watcher)
		})
	}

	// Wait for context cancellation (from signal handler) in the errgroup
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("server: errgroup exited with error: %v", err)
	}

	return nil
}

func cleanupSocket(path string) {
	if path != "" {
		os.Remove(path)
	}
}

func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "sortable-table")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logPath := filepath.Join(logDir, "sortable-table.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}

func printStartupBanner(cfg appConfig, svc *service) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := cyan.Bold(true).Render(`
    ╔═╗╔═╗╦═╗╔╦╗╔═╗╔╗ ╦  ╔═╗
    ╚═╗║ ║╠╦╝ ║ ╠═╣╠╩╗║  ║╣
    ╚═╝╚═╝╩╚═ ╩ ╩ ╩╚═╝╩═╝╚═╝`)

	ver := dim.Render("v" + version)

	var lines []string
	lines = append(lines, "")
	lines = append(lines, logo)
	lines = append(lines, "    "+ver)
	lines = append(lines, "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator)
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Widget"))
	lines = append(lines, "")

	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("    %s  HTTP           %s", check, cyan.Render("http://"+cfg.APIAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  HTTP           %s", dot, dim.Render("disabled")))
	}
	if svc.sock != nil {
		lines = append(lines, fmt.Sprintf("    %s  Unix Socket    %s", check, cyan.Render(shortenPath(cfg.SocketPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Unix Socket    %s", dot, dim.Render("unavailable")))
	}
	bridge := cfg.Bridge
	if cfg.Bridge == bridgeHTTP {
		bridge += " " + cfg.BridgeURL
	}
	lines = append(lines, fmt.Sprintf("    %s  Bridge         %s", check, dim.Render(bridge)))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Tables"))
	lines = append(lines, "")
	for _, key := range svc.host.Keys() {
		line := fmt.Sprintf("    %s  %-14s", check, key)
		if cfg.APIEnabled {
			line += " " + dim.Render("http://"+cfg.APIAddr+rendering.BasePath(key))
		}
		lines = append(lines, line)
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Storage"))
	lines = append(lines, "")
	storage := shortenPath(cfg.DBPath)
	if storage == "" {
		storage = "in-memory"
	}
	if v, err := svc.store.SchemaVersion(context.Background()); err == nil {
		storage += fmt.Sprintf(" (schema v%d)", v)
	}
	lines = append(lines, fmt.Sprintf("    %s  Storage        %s", check, dim.Render(storage)))
	lines = append(lines, fmt.Sprintf("    %s  Datasets       %s", check, dim.Render(datasetSummary(context.Background(), svc.store, svc.datasets))))

	lines = append(lines, "")
	lines = append(lines, bold.Render("    Config"))
	lines = append(lines, "")
	if _, err := os.Stat(cfg.ConfigPath); err == nil {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "")
	lines = append(lines, separator)
	lines = append(lines, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"))
	lines = append(lines, "")

	fmt.Println(strings.Join(lines, "\n"))
}

// datasetSummary lists the datasets loaded this run with their row counts.
// It falls back to the bare names when the catalog cannot be read.
func datasetSummary(ctx context.Context, store model.DatasetStore, loaded []string) string {
	infos, err := store.ListDatasets(ctx)
	if err != nil {
		log.Printf("server: list datasets: %v", err)
		return strings.Join(loaded, ", ")
	}
	rows := make(map[string]int64, len(infos))
	for _, info := range infos {
		rows[info.Name] = info.Rows
	}
	parts := make([]string, len(loaded))
	for i, name := range loaded {
		if n, ok := rows[name]; ok {
			parts[i] = fmt.Sprintf("%s (%d rows)", name, n)
		} else {
			parts[i] = name
		}
	}
	return strings.Join(parts, ", ")
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
