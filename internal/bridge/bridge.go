// Package bridge implements the Cluster Transport Bridge (component H of
// SPEC_FULL.md): when a Route-Endpoint-Address isn't present in the local
// Routing-System, the bridge forwards the encoded frame to a peer
// process's bridge, which re-delivers it into that peer's local
// Routing-System. This is an enrichment beyond the in-process core
// (spec.md §1 scopes the core to a single process); it exists to give a
// concrete home to the teacher's and the retrieval pack's remaining
// networking dependencies (gorilla/websocket, nats-io/nats.go), grounded
// on tinode/chat's ClusterNode/net-rpc call-and-response design in
// cluster.go.
package bridge

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"

	"github.com/kprice/routefabric/internal/address"
	"github.com/kprice/routefabric/internal/message"
	"github.com/kprice/routefabric/internal/receiveresult"
	"github.com/kprice/routefabric/internal/routing"
)

// ErrNoPeer is returned when Forward is asked to reach an address with no
// registered peer.
var ErrNoPeer = errors.New("bridge: no peer registered for address")

// ErrAddressNotFound names the case where the target address isn't
// present in the serving side's local routing system. Serve does not
// return it: it answers that case with an unhandled response, which
// Forward reports as a default HandleResult and a nil error.
var ErrAddressNotFound = errors.New("bridge: address not found locally")

// Transport is the wire-level contract a concrete bridge backend
// (wsbridge, natsbridge) must satisfy: a blocking request/response call
// to a named peer, and a server loop that answers inbound requests.
type Transport interface {
	// Request sends envelope to peer and blocks for its response.
	Request(ctx context.Context, peer string, envelope []byte) ([]byte, error)
	// Serve runs until ctx is done, invoking handle for every inbound
	// envelope and sending back whatever bytes it returns.
	Serve(ctx context.Context, handle func(ctx context.Context, envelope []byte) []byte) error
	Close() error
}

// envelope is the gob-encoded request crossing the wire.
type envelope struct {
	TargetAddr address.Address
	TargetNode address.NodeID
	Frames     [][]byte
}

// response is the gob-encoded reply crossing the wire.
type response struct {
	Handled bool
	Frames  [][]byte
	Error   string
}

// Bridge wires a Transport onto a local routing.System: outbound calls
// look up the owning peer in a static directory and forward; inbound
// calls re-deliver into the local system exactly as a local Endpoint.Send
// would.
type Bridge struct {
	transport Transport
	sys       *routing.System

	mu        sync.RWMutex
	directory map[address.Address]string
}

// New builds a Bridge over transport and sys. sys is consulted on Serve
// to re-deliver inbound forwards into the right local cluster.
func New(transport Transport, sys *routing.System) *Bridge {
	return &Bridge{transport: transport, sys: sys, directory: make(map[address.Address]string)}
}

// RegisterPeer records that addr is owned by the process reachable as
// peer (a Transport-specific name: a websocket URL, a NATS subject
// prefix, etc).
func (b *Bridge) RegisterPeer(addr address.Address, peer string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.directory[addr] = peer
}

func (b *Bridge) peerFor(addr address.Address) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.directory[addr]
	return p, ok
}

// Forward serializes msg and asks the peer owning targetAddr to deliver
// it, blocking for the remote handler's result the same way a local Send
// would.
func (b *Bridge) Forward(ctx context.Context, targetAddr address.Address, targetNode address.NodeID, msg *message.Message) (message.HandleResult, error) {
	peer, ok := b.peerFor(targetAddr)
	if !ok {
		return message.HandleResult{}, ErrNoPeer
	}

	env := envelope{TargetAddr: targetAddr, TargetNode: targetNode, Frames: msg.Frames()}
	encoded, err := gobEncode(env)
	if err != nil {
		return message.HandleResult{}, fmt.Errorf("bridge: encode envelope: %w", err)
	}

	respBytes, err := b.transport.Request(ctx, peer, encoded)
	if err != nil {
		return message.HandleResult{}, fmt.Errorf("bridge: request to %s: %w", peer, err)
	}

	var resp response
	if err := gobDecode(respBytes, &resp); err != nil {
		return message.HandleResult{}, fmt.Errorf("bridge: decode response: %w", err)
	}
	if resp.Error != "" {
		return message.HandleResult{}, errors.New(resp.Error)
	}
	if !resp.Handled {
		return message.HandleResult{}, nil
	}
	out := message.FromFrames(resp.Frames)
	top, _ := out.Pop()
	var data message.DispatchResult
	if len(top) > 0 {
		_ = gobDecode(top, &data)
	}
	return message.Handled(message.RouteMessage[message.DispatchResult]{Msg: out, Val: data}), nil
}

// Serve answers inbound requests by re-delivering them into the local
// routing system and blocking for the local handler's result, the way
// tinode/chat's Cluster.TopicMaster RPC handler blocks for the topic
// master's reply before returning to the proxy (cluster.go).
func (b *Bridge) Serve(ctx context.Context) error {
	return b.transport.Serve(ctx, func(reqCtx context.Context, envBytes []byte) []byte {
		var env envelope
		if err := gobDecode(envBytes, &env); err != nil {
			resp, _ := gobEncode(response{Error: err.Error()})
			return resp
		}

		cluster, ok := b.sys.Cluster(env.TargetAddr)
		if !ok {
			resp, _ := gobEncode(response{})
			return resp
		}

		msg := message.FromFrames(env.Frames)
		rr := receiveresult.New(msg, env.TargetAddr, reqCtx)
		if !cluster.Deliver(env.TargetNode, rr) {
			resp, _ := gobEncode(response{})
			return resp
		}

		completion, err := rr.Wait(reqCtx)
		if err != nil {
			resp, _ := gobEncode(response{Error: err.Error()})
			return resp
		}
		if completion.Outcome != receiveresult.Result || !completion.HandleResult.Handled {
			resp, _ := gobEncode(response{})
			return resp
		}

		var frames [][]byte
		var valFrame []byte
		if completion.HandleResult.RouteMessage.Msg != nil {
			frames = completion.HandleResult.RouteMessage.Msg.Frames()
		}
		valFrame, _ = gobEncodeBytes(completion.HandleResult.RouteMessage.Val)
		frames = append(append([][]byte{}, frames...), valFrame)

		resp, _ := gobEncode(response{Handled: true, Frames: frames})
		return resp
	})
}

// Close releases the underlying transport.
func (b *Bridge) Close() error {
	return b.transport.Close()
}

func gobEncode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobEncodeBytes(v interface{}) ([]byte, error) {
	return gobEncode(v)
}

func gobDecode(b []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}
