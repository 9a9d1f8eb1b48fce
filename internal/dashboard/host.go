package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/tinytelemetry/sortable-table/internal/model"
	"golang.org/x/sync/errgroup"
)

// Watcher streams interaction events for a widget instance.
// httpbridge.Client and widget.Registry implement it.
type Watcher interface {
	Watch(ctx context.Context, key string) (<-chan model.Event, error)
}

// Host holds every dashboard of one process and routes reruns by key.
type Host struct {
	mu     sync.RWMutex
	boards map[string]*Dashboard
}

// NewHost creates an empty host.
func NewHost() *Host {
	return &Host{boards: make(map[string]*Dashboard)}
}

// Add registers a dashboard. Keys must be unique.
func (h *Host) Add(d *Dashboard) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.boards[d.Key()]; ok {
		return fmt.Errorf("dashboard: duplicate table key %q", d.Key())
	}
	h.boards[d.Key()] = d
	return nil
}

// Keys returns the registered table keys in sorted order.
func (h *Host) Keys() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	keys := make([]string, 0, len(h.boards))
	for k := range h.boards {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (h *Host) board(key string) (*Dashboard, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	d, ok := h.boards[key]
	return d, ok
}

// Rerun runs a cycle for the dashboard owning key. Unknown keys are a
// no-op so widgets mounted by other hosts do not fail interactions.
func (h *Host) Rerun(ctx context.Context, key string) error {
	d, ok := h.board(key)
	if !ok {
		return nil
	}
	return d.Rerun(ctx, key)
}

// RenderAll runs one cycle for every dashboard.
func (h *Host) RenderAll(ctx context.Context) error {
	var errs []error
	for _, key := range h.Keys() {
		d, _ := h.board(key)
		if _, err := d.Cycle(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Follow reruns each dashboard whenever its widget reports an
// interaction, until ctx is done. It is how a host in another process
// than the widget server stays in sync.
func (h *Host) Follow(ctx context.Context, w Watcher) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, key := range h.Keys() {
		key := key
		events, err := w.Watch(ctx, key)
		if err != nil {
			return fmt.Errorf("dashboard: watch %s: %w", key, err)
		}
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case _, ok := <-events:
					if !ok {
						return nil
					}
					if err := h.Rerun(ctx, key); err != nil {
						log.Printf("dashboard: rerun %s: %v", key, err)
					}
				}
			}
		})
	}
	return g.Wait()
}
