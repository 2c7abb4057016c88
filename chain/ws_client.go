package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lattica/lattica/libs/log"
)

const (
	defaultCallTimeout = 30 * time.Second
	defaultDialTimeout = 10 * time.Second
)

// WSClient is a synchronous JSON-RPC 2.0 client over a websocket. Calls are
// serialized on the single connection; the client is safe for use by
// multiple goroutines, though the validator drives it from one.
type WSClient struct {
	address string
	conn    *websocket.Conn
	logger  log.Logger

	mtx    sync.Mutex
	nextID uint64

	callTimeout time.Duration
	dialTimeout time.Duration
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// CallTimeout sets the per-call deadline. Constructor option, not
// goroutine-safe.
func CallTimeout(d time.Duration) func(*WSClient) {
	return func(c *WSClient) { c.callTimeout = d }
}

// DialTimeout sets the websocket handshake deadline. Constructor option, not
// goroutine-safe.
func DialTimeout(d time.Duration) func(*WSClient) {
	return func(c *WSClient) { c.dialTimeout = d }
}

// NewWSClient dials the chain endpoint (a ws:// or wss:// URL) and returns a
// connected client. A dial failure here is fatal for the caller: the daemon
// cannot run without the chain.
func NewWSClient(ctx context.Context, address string, logger log.Logger, options ...func(*WSClient)) (*WSClient, error) {
	c := &WSClient{
		address:     address,
		logger:      logger.With("module", "chain"),
		callTimeout: defaultCallTimeout,
		dialTimeout: defaultDialTimeout,
	}
	for _, option := range options {
		option(c)
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.dialTimeout}
	conn, _, err := dialer.DialContext(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain endpoint %q: %w", address, err)
	}
	c.conn = conn

	return c, nil
}

// Close closes the websocket connection.
func (c *WSClient) Close() error {
	return c.conn.Close()
}

// call performs one request/response round-trip and unmarshals the result
// into out (which may be nil for calls without a result payload).
func (c *WSClient) call(ctx context.Context, method string, params, out interface{}) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.nextID++
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID,
		Method:  method,
		Params:  params,
	}

	deadline := time.Now().Add(c.callTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("%s: failed to write request: %w", method, err)
	}

	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return err
	}

	// Read until the response matching our id arrives. Anything else on the
	// connection (stale responses from a timed-out call) is dropped.
	for {
		var resp rpcResponse
		if err := c.conn.ReadJSON(&resp); err != nil {
			return fmt.Errorf("%s: failed to read response: %w", method, err)
		}
		if resp.ID != req.ID {
			c.logger.Debug("dropping mismatched rpc response", "want", req.ID, "got", resp.ID)
			continue
		}
		if resp.Error != nil {
			return fmt.Errorf("%s: %w", method, resp.Error)
		}
		if out != nil {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("%s: failed to decode result: %w", method, err)
			}
		}
		return nil
	}
}

// Neurons implements Client.
func (c *WSClient) Neurons(ctx context.Context, netuid uint16) ([]Neuron, error) {
	var neurons []Neuron
	params := map[string]interface{}{"netuid": netuid}
	if err := c.call(ctx, "neurons", params, &neurons); err != nil {
		return nil, err
	}
	return neurons, nil
}

// BlockNumber implements Client.
func (c *WSClient) BlockNumber(ctx context.Context) (uint64, error) {
	var block uint64
	if err := c.call(ctx, "block_number", nil, &block); err != nil {
		return 0, err
	}
	return block, nil
}

// SetWeights implements Client.
func (c *WSClient) SetWeights(ctx context.Context, netuid uint16, weights []Weight, versionKey uint64) error {
	params := map[string]interface{}{
		"netuid":      netuid,
		"weights":     weights,
		"version_key": versionKey,
	}
	return c.call(ctx, "set_weights", params, nil)
}
