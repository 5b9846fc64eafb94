package reactor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"geofabric/pkg/errs"
	"geofabric/pkg/types"
)

// Conn is one outbound connection to a peer storage node.
type Conn interface {
	Send(ctx context.Context, path string, payload, out any) error
	Close() error
}

// Dialer opens a new Conn to a node. Swappable in tests; defaults to
// httpConn, grounded on pkg/cluster/remote_client.go's HTTPClient.
type Dialer func(types.NodeInfo) (Conn, error)

type httpConn struct {
	baseURL string
	client  *http.Client
}

func dialHTTP(node types.NodeInfo) (Conn, error) {
	return &httpConn{
		baseURL: "http://" + node.Addr(),
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (c *httpConn) Send(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("reactor: marshal request: %w", errs.ErrSerialization)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("reactor: build request to %s: %w", c.baseURL, errs.ErrIO)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("reactor: send to %s: %w", c.baseURL, errs.ErrIO)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reactor: %s replied with status %d: %w", c.baseURL, resp.StatusCode, errs.ErrIO)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("reactor: decode reply from %s: %w", c.baseURL, errs.ErrSerialization)
	}
	return nil
}

func (c *httpConn) Close() error { return nil }

// ConnectionPool caches one Conn per peer address. It is touched only from
// the reactor's goroutine, so it takes no lock of its own. A send that
// fails evicts the cached connection and redials once before reporting
// ErrIO.
type ConnectionPool struct {
	dial  Dialer
	conns map[string]Conn
}

// NewConnectionPool creates a pool using dial to open new connections, or
// dialHTTP if dial is nil.
func NewConnectionPool(dial Dialer) *ConnectionPool {
	if dial == nil {
		dial = dialHTTP
	}
	return &ConnectionPool{dial: dial, conns: make(map[string]Conn)}
}

// Send delivers payload to node at path and decodes the reply into out (if
// non-nil), reusing a cached connection where possible.
func (p *ConnectionPool) Send(ctx context.Context, node types.NodeInfo, path string, payload, out any) error {
	addr := node.Addr()

	conn, ok := p.conns[addr]
	if !ok {
		c, err := p.dial(node)
		if err != nil {
			return fmt.Errorf("reactor: dial %s: %w", addr, errs.ErrIO)
		}
		conn = c
		p.conns[addr] = conn
	}

	if err := conn.Send(ctx, path, payload, out); err == nil {
		return nil
	}

	p.evict(addr)
	retry, err := p.dial(node)
	if err != nil {
		return fmt.Errorf("reactor: redial %s: %w", addr, errs.ErrIO)
	}
	if err := retry.Send(ctx, path, payload, out); err != nil {
		return fmt.Errorf("reactor: send to %s failed after redial: %w", addr, errs.ErrIO)
	}
	p.conns[addr] = retry
	return nil
}

func (p *ConnectionPool) evict(addr string) {
	if c, ok := p.conns[addr]; ok {
		_ = c.Close()
		delete(p.conns, addr)
	}
}

// Close shuts down every cached connection.
func (p *ConnectionPool) Close() error {
	for addr, c := range p.conns {
		_ = c.Close()
		delete(p.conns, addr)
	}
	return nil
}
