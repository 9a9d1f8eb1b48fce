package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tinytelemetry/sortable-table/internal/socketrpc"
	"github.com/tinytelemetry/sortable-table/internal/theme"
	"github.com/tinytelemetry/sortable-table/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var socketPath string
	var table string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/sortable-table/config.yml)")
	flag.StringVar(&socketPath, "socket", "", "override socket path to connect to the sortable-table service")
	flag.StringVar(&table, "table", "", "open this table instance directly")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("Sortable Table TUI - Terminal Widget\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if socketPath != "" {
		cfg.SocketPath = socketPath
	}
	if table != "" {
		cfg.Table = table
	}

	if err := runTUI(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cfg cliConfig) error {
	skin, err := theme.Load(cfg.Skin, cfg.ConfigDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load skin '%s': %v (using default)\n", cfg.Skin, err)
		skin = theme.Default()
	}

	client, err := socketrpc.Dial(cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("cannot connect to sortable-table service at %s: %w\nIs the service running? Start it with: sortable-table", cfg.SocketPath, err)
	}
	defer client.Close()

	styles := tui.NewStyles(skin)
	picker := tui.NewPickerPage(client, styles, cfg.UpdateInterval)
	table := tui.NewTablePage(client, styles, cfg.UpdateInterval)

	var app *tui.App
	if cfg.Table != "" {
		table.Open(cfg.Table)
		app = tui.NewApp(styles, table, picker)
	} else {
		app = tui.NewApp(styles, picker, table)
	}

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
