package widget

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/tinytelemetry/sortable-table/internal/model"
)

// ErrUnknownKey is returned for interactions on a key that was never mounted.
var ErrUnknownKey = errors.New("unknown table instance")

const subscriberBuffer = 16

// Snapshot is everything a front end needs to draw one table instance.
type Snapshot struct {
	Key        string          `json:"key"`
	Payload    model.Payload   `json:"payload"`
	Revision   uint64          `json:"revision"`
	Page       int             `json:"page"`
	MaxPage    int             `json:"maxPage"`
	Sort       *model.SortSpec `json:"sort"`
	Interacted bool            `json:"interacted"`
}

type instance struct {
	payload    model.Payload
	machine    *Machine
	revision   uint64
	interacted bool
}

// Registry holds one widget instance per instance key. It implements the
// in-process bridge: Mount is what the host's adapter calls.
type Registry struct {
	mu        sync.RWMutex
	instances map[string]*instance
	subs      map[string]map[int]chan model.Event
	nextSubID int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		instances: make(map[string]*instance),
		subs:      make(map[string]map[int]chan model.Event),
	}
}

// Mount installs or refreshes the payload for key and returns the
// widget's current value. Before any interaction the value is the legacy
// page-only shape echoing the page; afterwards it carries the sort too.
func (r *Registry) Mount(ctx context.Context, key string, p model.Payload) (model.RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("%w: empty instance key", model.ErrInvalidPayload)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = clonePayload(p)

	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[key]
	if !ok {
		inst = &instance{payload: p, machine: NewMachine(p), revision: 1}
		r.instances[key] = inst
	} else {
		prev := inst.payload
		syncPage := p.CurrentPage != prev.CurrentPage
		syncSort := !p.Sort().Equal(prev.Sort())
		inst.machine.Sync(p, syncPage, syncSort)
		if !reflect.DeepEqual(prev, p) {
			inst.revision++
		}
		inst.payload = p
	}

	if !inst.interacted {
		return model.PageOnly{Page: inst.machine.Page()}, nil
	}
	ev := inst.machine.Event()
	return model.PageAndSort{Page: ev.Page, Sort: ev.Sort}, nil
}

// Snapshot returns a copy of the instance state for key.
func (r *Registry) Snapshot(key string) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[key]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return Snapshot{
		Key:        key,
		Payload:    clonePayload(inst.payload),
		Revision:   inst.revision,
		Page:       inst.machine.Page(),
		MaxPage:    inst.machine.MaxPage(),
		Sort:       inst.machine.Sort(),
		Interacted: inst.interacted,
	}, nil
}

// Keys lists mounted instance keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.instances))
	for k := range r.instances {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ClickHeader toggles the sort of column on instance key.
func (r *Registry) ClickHeader(key, column string) (model.Event, error) {
	return r.interact(key, func(m *Machine) error { return m.ClickHeader(column) })
}

// Page applies a pagination control on instance key.
func (r *Registry) Page(key string, action PageAction) (model.Event, error) {
	return r.interact(key, func(m *Machine) error {
		m.Apply(action)
		return nil
	})
}

// GoTo moves instance key to page n (clamped).
func (r *Registry) GoTo(key string, n int) (model.Event, error) {
	return r.interact(key, func(m *Machine) error {
		m.GoTo(n)
		return nil
	})
}

func (r *Registry) interact(key string, fn func(m *Machine) error) (model.Event, error) {
	r.mu.Lock()
	inst, ok := r.instances[key]
	if !ok {
		r.mu.Unlock()
		return model.Event{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if err := fn(inst.machine); err != nil {
		r.mu.Unlock()
		return model.Event{}, err
	}
	inst.interacted = true
	ev := inst.machine.Event()
	for _, ch := range r.subs[key] {
		select {
		case ch <- ev:
		default:
		}
	}
	r.mu.Unlock()
	return ev, nil
}

// Subscribe returns a channel receiving every interaction event on key.
// Slow subscribers miss events rather than block the widget. The returned
// func unsubscribes and closes the channel.
func (r *Registry) Subscribe(key string) (<-chan model.Event, func()) {
	ch := make(chan model.Event, subscriberBuffer)

	r.mu.Lock()
	id := r.nextSubID
	r.nextSubID++
	if r.subs[key] == nil {
		r.subs[key] = make(map[int]chan model.Event)
	}
	r.subs[key][id] = ch
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs[key], id)
			if len(r.subs[key]) == 0 {
				delete(r.subs, key)
			}
			r.mu.Unlock()
			close(ch)
		})
	}
}

// Watch is Subscribe bound to ctx: the channel closes once ctx is done.
// The key must already be mounted.
func (r *Registry) Watch(ctx context.Context, key string) (<-chan model.Event, error) {
	r.mu.RLock()
	_, ok := r.instances[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	ch, unsubscribe := r.Subscribe(key)
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return ch, nil
}

func clonePayload(p model.Payload) model.Payload {
	out := p
	out.Data = p.Data.Clone()
	if p.SortColumn != nil {
		col := *p.SortColumn
		out.SortColumn = &col
	}
	out.ColumnWidths = append([]model.ColumnWidth{}, p.ColumnWidths...)
	out.CellTooltips = make(map[string][]string, len(p.CellTooltips))
	for k, v := range p.CellTooltips {
		out.CellTooltips[k] = append([]string{}, v...)
	}
	return out
}
