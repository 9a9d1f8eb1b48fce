package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tinytelemetry/sortable-table/internal/model"
	"github.com/tinytelemetry/sortable-table/internal/socketrpc"

	"github.com/spf13/viper"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/sortable-table/config.yml)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("Sortable Table - Dashboard Host\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := runServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	defaultDBPath := filepath.Join(home, ".local", "share", "sortable-table", "sortable-table.duckdb")

	v := viper.New()
	v.SetEnvPrefix("SORTABLE_TABLE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("host", defaultBindHost)
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("allow-origins", []string{})
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("db-path", defaultDBPath)
	v.SetDefault("db-threads", 0)
	v.SetDefault("db-max-memory", "")
	v.SetDefault("skin", defaultSkin)
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("demo-rows", defaultDemoRows)
	v.SetDefault("page-size", model.DefaultPageSize)
	v.SetDefault("bridge", defaultBridge)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		defaultConfigPath := filepath.Join(home, ".config", "sortable-table", "config.yml")
		v.SetConfigFile(defaultConfigPath)
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	cfg.ConfigDir = filepath.Dir(cfg.ConfigPath)

	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return cfg, fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	if cfg.PageSize <= 0 {
		return cfg, fmt.Errorf("invalid page-size: %d", cfg.PageSize)
	}
	if cfg.DemoRows < 0 {
		return cfg, fmt.Errorf("invalid demo-rows: %d", cfg.DemoRows)
	}
	if cfg.DBThreads < 0 {
		return cfg, fmt.Errorf("invalid db-threads: %d", cfg.DBThreads)
	}
	if cfg.QueryTimeout <= 0 {
		return cfg, fmt.Errorf("invalid query-timeout: %s", cfg.QueryTimeout)
	}

	// Expand ~ in paths
	cfg.DBPath = expandHome(home, cfg.DBPath)
	for name, path := range cfg.Datasets {
		cfg.Datasets[name] = expandHome(home, path)
	}

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.APIPort))
	}

	switch cfg.Bridge {
	case bridgeLocal:
	case bridgeHTTP:
		if !cfg.APIEnabled && cfg.BridgeURL == "" {
			return cfg, fmt.Errorf("bridge http needs api-enabled or bridge-url")
		}
		if cfg.BridgeURL == "" {
			cfg.BridgeURL = "http://" + cfg.APIAddr
		}
	default:
		return cfg, fmt.Errorf("invalid bridge %q: want %s or %s", cfg.Bridge, bridgeLocal, bridgeHTTP)
	}

	return cfg, nil
}

func expandHome(home, path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
