// Package httpbridge mounts tables on a remote widget server over HTTP and
// follows their interaction events over a websocket.
package httpbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tinytelemetry/sortable-table/internal/model"
	"github.com/tinytelemetry/sortable-table/internal/widget"
)

const maxErrorBody = 4096

// Client is an adapter bridge backed by a remote httpserver.
type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
}

// New creates a client for the server at baseURL, e.g. http://127.0.0.1:3000.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		dialer:  &websocket.Dialer{HandshakeTimeout: timeout},
	}
}

func (c *Client) componentURL(key, suffix string) string {
	return c.baseURL + "/api/components/" + url.PathEscape(key) + suffix
}

// Mount posts the payload and decodes the widget's raw result.
func (c *Client) Mount(ctx context.Context, key string, p model.Payload) (model.RawResult, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("httpbridge: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.componentURL(key, "/mount"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httpbridge: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpbridge: mount %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpbridge: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, data)
	}

	raw, err := model.DecodeRawResult(data, p.CurrentPage)
	if err != nil {
		return nil, fmt.Errorf("httpbridge: decode mount result: %w", err)
	}
	return raw, nil
}

// statusError turns a non-200 response into an error that wraps the
// matching sentinel.
func statusError(code int, body []byte) error {
	var e struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}

	switch code {
	case http.StatusBadRequest:
		return fmt.Errorf("httpbridge: %w (server: %s)", model.ErrInvalidPayload, msg)
	case http.StatusNotFound:
		return fmt.Errorf("httpbridge: %w (server: %s)", widget.ErrUnknownKey, msg)
	}
	return fmt.Errorf("httpbridge: server returned %d: %s", code, msg)
}

// Watch streams interaction events for key until ctx is done or the
// server closes the stream. The returned channel is closed on exit.
func (c *Client) Watch(ctx context.Context, key string) (<-chan model.Event, error) {
	wsURL, err := toWebsocketURL(c.componentURL(key, "/events"))
	if err != nil {
		return nil, err
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return nil, statusError(resp.StatusCode, data)
		}
		return nil, fmt.Errorf("httpbridge: watch %s: %w", key, err)
	}

	out := make(chan model.Event)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()
	go func() {
		defer close(out)
		defer close(done)
		for {
			var ev model.Event
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("httpbridge: watch %s: %v", key, err)
				}
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func toWebsocketURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("httpbridge: parse url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("httpbridge: unsupported scheme %q", u.Scheme)
	}
	return u.String(), nil
}
