// Package rpcengine talks to a virtual-tree engine in another process over
// JSON-RPC 2.0, with messages framed by Content-Length headers.
//
// The protocol has two methods, both answered with {templates, edits}:
//
//	vdom/initialBatch    no params
//	vdom/dispatchEvent   {name, id}
package rpcengine

import (
	"context"
	"encoding/json"
	"io"
	"os/exec"

	"github.com/sourcegraph/jsonrpc2"

	"src.vbridge.sh/pkg/logutil"
	"src.vbridge.sh/pkg/reconcile"
	"src.vbridge.sh/pkg/vdom"
)

var logger = logutil.GetLogger("[engine/rpc] ")

// Method names.
const (
	MethodInitialBatch  = "vdom/initialBatch"
	MethodDispatchEvent = "vdom/dispatchEvent"
)

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
)

func newConn(ctx context.Context, rwc io.ReadWriteCloser, h jsonrpc2.Handler) *jsonrpc2.Conn {
	return jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}), h)
}

// Client is an engine reached over a connection. It implements
// reconcile.Engine.
type Client struct {
	conn *jsonrpc2.Conn
}

var _ reconcile.Engine = (*Client)(nil)

// NewClient starts a client on a connection. The engine cannot call methods of
// the client.
func NewClient(ctx context.Context, rwc io.ReadWriteCloser) *Client {
	return &Client{newConn(ctx, rwc, routingHandler(nil))}
}

// InitialBatch calls vdom/initialBatch.
func (c *Client) InitialBatch(ctx context.Context) (vdom.Mutations, error) {
	var m vdom.Mutations
	err := c.conn.Call(ctx, MethodInitialBatch, nil, &m)
	return m, err
}

// DispatchEvent calls vdom/dispatchEvent.
func (c *Client) DispatchEvent(ctx context.Context, ev vdom.Event) (vdom.Mutations, error) {
	var m vdom.Mutations
	err := c.conn.Call(ctx, MethodDispatchEvent, ev, &m)
	return m, err
}

// Done returns a channel that is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.conn.DisconnectNotify() }

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }

// Command is a Client whose engine runs in a child process, connected to its
// standard input and output.
type Command struct {
	*Client
	cmd *exec.Cmd
}

// Start starts the engine command.
func Start(ctx context.Context, name string, args ...string) (*Command, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	in, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	out, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	logutil.Log(logger, "engine started", logutil.Fields{"cmd": name, "pid": cmd.Process.Pid})
	return &Command{NewClient(ctx, transport{in, out}), cmd}, nil
}

// Close closes the connection and waits for the engine to exit.
func (c *Command) Close() error {
	c.Client.Close()
	return c.cmd.Wait()
}

type transport struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (c transport) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c transport) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c transport) Close() error {
	if err := c.out.Close(); err != nil {
		c.in.Close()
		return err
	}
	return c.in.Close()
}

// Serve exposes an engine on a connection, until the peer disconnects or ctx is
// done. Requests are handled one at a time.
func Serve(ctx context.Context, rwc io.ReadWriteCloser, e reconcile.Engine) error {
	conn := newConn(ctx, rwc, routingHandler(map[string]method{
		MethodInitialBatch: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return e.InitialBatch(ctx)
		},
		MethodDispatchEvent: func(ctx context.Context, params json.RawMessage) (any, error) {
			var ev vdom.Event
			if err := json.Unmarshal(params, &ev); err != nil || ev.Name == "" {
				return nil, errInvalidParams
			}
			return e.DispatchEvent(ctx, ev)
		},
	}))
	select {
	case <-conn.DisconnectNotify():
		return nil
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	}
}

// ServeStdio serves an engine on the standard input and output of the process.
func ServeStdio(ctx context.Context, stdin io.ReadCloser, stdout io.WriteCloser, e reconcile.Engine) error {
	return Serve(ctx, transport{stdin, stdout}, e)
}

type method func(context.Context, json.RawMessage) (any, error)

func routingHandler(methods map[string]method) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		fn, ok := methods[req.Method]
		if !ok {
			logutil.Log(logger, "unknown method", logutil.Fields{"method": req.Method})
			return nil, errMethodNotFound
		}
		var params json.RawMessage
		if req.Params != nil {
			params = *req.Params
		}
		return fn(ctx, params)
	})
}
