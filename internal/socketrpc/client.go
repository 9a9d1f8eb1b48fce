package socketrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tinytelemetry/sortable-table/internal/model"
	"github.com/tinytelemetry/sortable-table/internal/widget"
)

var _ widget.Controller = (*Client)(nil)

// Client implements widget.Controller over a Unix domain socket using
// JSON-RPC 2.0. It is also an adapter bridge: hosts in another process
// mount tables through it.
type Client struct {
	conn    net.Conn
	mu      sync.Mutex
	nextID  int
	scanner *bufio.Scanner
	encoder *json.Encoder
}

// Dial connects to the socket RPC server at the given path.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("socketrpc: dial: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	return &Client{
		conn:    conn,
		scanner: scanner,
		encoder: json.NewEncoder(conn),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// call performs a JSON-RPC call and unmarshals the result into dest.
func (c *Client) call(method string, params interface{}, dest interface{}) error {
	return c.callRaw(method, params, func(result json.RawMessage) error {
		if dest == nil {
			return nil
		}
		if err := json.Unmarshal(result, dest); err != nil {
			return fmt.Errorf("socketrpc: unmarshal result: %w", err)
		}
		return nil
	})
}

// callRaw performs a JSON-RPC call and hands the raw result to decode.
func (c *Client) callRaw(method string, params interface{}, decode func(json.RawMessage) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID

	paramsData, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("socketrpc: marshal params: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  paramsData,
	}

	c.conn.SetDeadline(time.Now().Add(30 * time.Second))
	defer c.conn.SetDeadline(time.Time{})

	if err := c.encoder.Encode(req); err != nil {
		return fmt.Errorf("socketrpc: send: %w", err)
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("socketrpc: read: %w", err)
		}
		return fmt.Errorf("socketrpc: connection closed")
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("socketrpc: unmarshal response: %w", err)
	}

	if resp.Error != nil {
		return resp.Error
	}

	return decode(resp.Result)
}

// Mount sends a payload to the remote widget and decodes the raw result.
func (c *Client) Mount(ctx context.Context, key string, p model.Payload) (model.RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw model.RawResult
	err := c.callRaw("Mount", map[string]interface{}{"Key": key, "Payload": p}, func(result json.RawMessage) error {
		r, err := model.DecodeRawResult(result, p.CurrentPage)
		if err != nil {
			return fmt.Errorf("socketrpc: decode mount result: %w", err)
		}
		raw = r
		return nil
	})
	return raw, err
}

func (c *Client) Snapshot(key string) (widget.Snapshot, error) {
	var result widget.Snapshot
	err := c.call("Snapshot", map[string]interface{}{"Key": key}, &result)
	return result, err
}

func (c *Client) Keys() []string {
	var result []string
	if err := c.call("Keys", map[string]interface{}{}, &result); err != nil {
		return nil
	}
	return result
}

func (c *Client) ClickHeader(key, column string) (model.Event, error) {
	var result model.Event
	err := c.call("ClickHeader", map[string]interface{}{"Key": key, "Column": column}, &result)
	return result, err
}

func (c *Client) Page(key string, action widget.PageAction) (model.Event, error) {
	var result model.Event
	err := c.call("Page", map[string]interface{}{"Key": key, "Action": string(action)}, &result)
	return result, err
}

func (c *Client) GoTo(key string, n int) (model.Event, error) {
	var result model.Event
	err := c.call("GoTo", map[string]interface{}{"Key": key, "Page": n}, &result)
	return result, err
}
