package socketrpc

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/tinytelemetry/sortable-table/internal/model"
	"github.com/tinytelemetry/sortable-table/internal/widget"
)

func testPayload(t *testing.T) model.Payload {
	t.Helper()
	data, err := model.NewTable([]string{"name", "age"}, [][]string{{"alice", "30"}, {"bob", "25"}})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return model.Payload{
		Data:          data,
		SortDirection: model.Ascending,
		Paginated:     true,
		MaxPage:       5,
		ColumnWidths:  []model.ColumnWidth{},
		MaxHeight:     model.DefaultMaxHeight,
		CellTooltips:  map[string][]string{},
	}
}

func newTestDispatcher(t *testing.T) *Server {
	t.Helper()
	reg := widget.NewRegistry()
	if _, err := reg.Mount(context.Background(), "people", testPayload(t)); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	return NewServer("", reg)
}

type countingRerunner struct {
	mu   sync.Mutex
	keys []string
}

func (r *countingRerunner) Rerun(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return nil
}

func TestDispatch_AllMethods(t *testing.T) {
	t.Parallel()
	srv := newTestDispatcher(t)

	payload, err := json.Marshal(map[string]interface{}{"Key": "other", "Payload": testPayload(t)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	tests := []struct {
		method string
		params string
	}{
		{"Mount", string(payload)},
		{"Snapshot", `{"Key":"people"}`},
		{"Keys", `{}`},
		{"ClickHeader", `{"Key":"people","Column":"age"}`},
		{"Page", `{"Key":"people","Action":"next"}`},
		{"GoTo", `{"Key":"people","Page":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			t.Parallel()
			req := Request{
				JSONRPC: "2.0",
				ID:      1,
				Method:  tt.method,
				Params:  json.RawMessage(tt.params),
			}
			resp := srv.dispatch(req)
			if resp.Error != nil {
				t.Fatalf("dispatch(%s) error: %s", tt.method, resp.Error.Message)
			}
			if resp.Result == nil {
				t.Fatalf("dispatch(%s) returned nil result", tt.method)
			}
			if resp.JSONRPC != "2.0" {
				t.Errorf("JSONRPC = %q, want 2.0", resp.JSONRPC)
			}
			if resp.ID != 1 {
				t.Errorf("ID = %d, want 1", resp.ID)
			}
		})
	}
}

func TestDispatch_MountReturnsLegacyNumberBeforeInteraction(t *testing.T) {
	t.Parallel()
	srv := NewServer("", widget.NewRegistry())

	p := testPayload(t)
	p.CurrentPage = 3
	params, _ := json.Marshal(map[string]interface{}{"Key": "k", "Payload": p})
	resp := srv.dispatch(Request{JSONRPC: "2.0", ID: 1, Method: "Mount", Params: params})
	if resp.Error != nil {
		t.Fatalf("Mount: %s", resp.Error.Message)
	}
	if string(resp.Result) != "3" {
		t.Fatalf("result = %s, want 3", resp.Result)
	}
}

func TestDispatch_MethodNotFound(t *testing.T) {
	t.Parallel()
	srv := newTestDispatcher(t)

	resp := srv.dispatch(Request{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "NonExistentMethod",
		Params:  json.RawMessage(`{}`),
	})
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != -32601 {
		t.Errorf("error code = %d, want -32601", resp.Error.Code)
	}
}

func TestDispatch_InvalidParams(t *testing.T) {
	t.Parallel()
	srv := newTestDispatcher(t)

	tests := []struct {
		name   string
		method string
		params string
	}{
		{"malformed json", "ClickHeader", `not json`},
		{"unknown page action", "Page", `{"Key":"people","Action":"sideways"}`},
		{"invalid payload", "Mount", `{"Key":"bad","Payload":{"data":{"columns":[]},"maxPage":0}}`},
		{"unknown sort column", "ClickHeader", `{"Key":"people","Column":"height"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := srv.dispatch(Request{
				JSONRPC: "2.0",
				ID:      2,
				Method:  tt.method,
				Params:  json.RawMessage(tt.params),
			})
			if resp.Error == nil {
				t.Fatal("expected error")
			}
			if resp.Error.Code != -32602 {
				t.Errorf("error code = %d, want -32602 (invalid params)", resp.Error.Code)
			}
		})
	}
}

func TestDispatch_UnknownKey(t *testing.T) {
	t.Parallel()
	srv := newTestDispatcher(t)

	resp := srv.dispatch(Request{
		JSONRPC: "2.0",
		ID:      3,
		Method:  "Snapshot",
		Params:  json.RawMessage(`{"Key":"nope"}`),
	})
	if resp.Error == nil {
		t.Fatal("expected error for unknown key")
	}
	if resp.Error.Code != -32001 {
		t.Errorf("error code = %d, want -32001", resp.Error.Code)
	}
}

func TestDispatch_PreservesRequestID(t *testing.T) {
	t.Parallel()
	srv := newTestDispatcher(t)

	for _, id := range []int{0, 1, 42, 9999} {
		resp := srv.dispatch(Request{
			JSONRPC: "2.0",
			ID:      id,
			Method:  "Keys",
			Params:  json.RawMessage(`{}`),
		})
		if resp.ID != id {
			t.Errorf("request ID %d: response ID = %d", id, resp.ID)
		}
	}
}

func TestDispatch_RerunsAfterInteraction(t *testing.T) {
	t.Parallel()
	srv := newTestDispatcher(t)
	rr := &countingRerunner{}
	srv.SetRerunner(rr)

	for _, req := range []Request{
		{JSONRPC: "2.0", ID: 1, Method: "Snapshot", Params: json.RawMessage(`{"Key":"people"}`)},
		{JSONRPC: "2.0", ID: 2, Method: "ClickHeader", Params: json.RawMessage(`{"Key":"people","Column":"name"}`)},
		{JSONRPC: "2.0", ID: 3, Method: "Page", Params: json.RawMessage(`{"Key":"people","Action":"last"}`)},
		{JSONRPC: "2.0", ID: 4, Method: "ClickHeader", Params: json.RawMessage(`{"Key":"people","Column":"missing"}`)},
	} {
		srv.dispatch(req)
	}

	rr.mu.Lock()
	defer rr.mu.Unlock()
	if len(rr.keys) != 2 {
		t.Fatalf("reruns = %v, want two (failed interactions do not rerun)", rr.keys)
	}
}
