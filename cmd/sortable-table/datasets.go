package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
)

// demoDataset is the dataset seeded when nothing else was loaded.
const demoDataset = "demo"

// datasetImporter is the part of the store the loaders write to.
type datasetImporter interface {
	ImportFile(ctx context.Context, name, path string) error
	SeedDemo(ctx context.Context, name string, n int) error
}

// DatasetPlugin is a small plugin primitive for loading datasets at startup.
type DatasetPlugin interface {
	Name() string
	Enabled() bool
	Load(ctx context.Context, store datasetImporter) error
}

// DatasetPluginConfig defines where datasets come from.
type DatasetPluginConfig struct {
	Files map[string]string
	Stdin io.Reader
}

// buildDatasetPlugins returns one file plugin per configured dataset, in
// name order, followed by the stdin plugin.
func buildDatasetPlugins(cfg DatasetPluginConfig) []DatasetPlugin {
	names := make([]string, 0, len(cfg.Files))
	for name := range cfg.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	plugins := make([]DatasetPlugin, 0, len(names)+1)
	for _, name := range names {
		plugins = append(plugins, fileDatasetPlugin{name: name, path: cfg.Files[name]})
	}
	plugins = append(plugins, stdinDatasetPlugin{in: cfg.Stdin})
	return plugins
}

// loadDatasets runs every enabled plugin and returns the names that loaded.
// When none did, a demo dataset of demoRows rows is seeded instead.
func loadDatasets(ctx context.Context, store datasetImporter, plugins []DatasetPlugin, demoRows int) ([]string, error) {
	var loaded []string
	for _, p := range plugins {
		if !p.Enabled() {
			continue
		}
		if err := p.Load(ctx, store); err != nil {
			log.Printf("datasets: loading %q: %v", p.Name(), err)
			continue
		}
		loaded = append(loaded, p.Name())
	}

	if len(loaded) == 0 && demoRows > 0 {
		if err := store.SeedDemo(ctx, demoDataset, demoRows); err != nil {
			return nil, fmt.Errorf("seed demo dataset: %w", err)
		}
		loaded = append(loaded, demoDataset)
	}
	if len(loaded) == 0 {
		return nil, fmt.Errorf("no datasets loaded")
	}
	return loaded, nil
}

type fileDatasetPlugin struct {
	name string
	path string
}

func (p fileDatasetPlugin) Name() string { return p.name }

func (p fileDatasetPlugin) Enabled() bool { return p.path != "" }

func (p fileDatasetPlugin) Load(ctx context.Context, store datasetImporter) error {
	return store.ImportFile(ctx, p.name, p.path)
}

// stdinDatasetPlugin imports CSV piped into the process as dataset "stdin".
type stdinDatasetPlugin struct {
	in io.Reader
}

func (p stdinDatasetPlugin) Name() string { return "stdin" }

func (p stdinDatasetPlugin) Enabled() bool {
	if p.in == nil {
		return false
	}
	f, ok := p.in.(*os.File)
	if !ok {
		return true
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

func (p stdinDatasetPlugin) Load(ctx context.Context, store datasetImporter) error {
	tmp, err := os.CreateTemp("", "sortable-table-stdin-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, p.in)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("buffer stdin: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("stdin is empty")
	}
	return store.ImportFile(ctx, p.Name(), tmp.Name())
}
