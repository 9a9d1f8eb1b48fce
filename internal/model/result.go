package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Event is the canonical interaction result handed back to the host.
// Both fields are always serialized; Sort is null when unsorted.
type Event struct {
	Page int       `json:"page"`
	Sort *SortSpec `json:"sort"`
}

// RawResult is the value a bridge returns before normalization.
// It is either PageOnly (the legacy bare page number) or PageAndSort.
type RawResult interface {
	isRawResult()
}

// PageOnly is the legacy result shape: a bare page number.
type PageOnly struct {
	Page int
}

// PageAndSort is the current result shape.
type PageAndSort struct {
	Page int
	Sort *SortSpec
}

func (PageOnly) isRawResult()    {}
func (PageAndSort) isRawResult() {}

// Normalize collapses any raw result into an Event.
func Normalize(r RawResult) Event {
	switch v := r.(type) {
	case PageAndSort:
		return Event{Page: v.Page, Sort: v.Sort}
	case *PageAndSort:
		if v == nil {
			return Event{}
		}
		return Event{Page: v.Page, Sort: v.Sort}
	case PageOnly:
		return Event{Page: v.Page}
	case *PageOnly:
		if v == nil {
			return Event{}
		}
		return Event{Page: v.Page}
	default:
		return Event{}
	}
}

// EncodeRawResult writes the wire form: a bare number for PageOnly,
// an object for PageAndSort.
func EncodeRawResult(r RawResult) ([]byte, error) {
	switch v := r.(type) {
	case PageOnly:
		return json.Marshal(v.Page)
	case PageAndSort:
		return json.Marshal(Event{Page: v.Page, Sort: v.Sort})
	default:
		return nil, fmt.Errorf("encode raw result: unsupported %T", r)
	}
}

// DecodeRawResult parses a bridge response. A bare number is the legacy
// page-only shape; an object must carry "page"; null means the widget has
// not produced a value yet and echoes fallbackPage.
func DecodeRawResult(data []byte, fallbackPage int) (RawResult, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return PageOnly{Page: fallbackPage}, nil
	}
	if trimmed[0] == '{' {
		var wire struct {
			Page *int      `json:"page"`
			Sort *SortSpec `json:"sort"`
		}
		if err := json.Unmarshal(trimmed, &wire); err != nil {
			return nil, fmt.Errorf("decode raw result: %w", err)
		}
		if wire.Page == nil {
			return nil, fmt.Errorf("decode raw result: object without page")
		}
		if wire.Sort != nil && !wire.Sort.Direction.Valid() {
			return nil, fmt.Errorf("decode raw result: unknown sort direction %q", wire.Sort.Direction)
		}
		return PageAndSort{Page: *wire.Page, Sort: wire.Sort}, nil
	}
	var page int
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("decode raw result: %w", err)
	}
	return PageOnly{Page: page}, nil
}
