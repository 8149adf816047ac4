// Package wsbridge implements bridge.Transport over a direct node-to-node
// websocket connection, mirroring tinode/chat's ClusterNode design in
// cluster.go: one persistent connection per peer, redialed on the next
// Request after it drops (up to five attempts, a fixed delay apart), and
// a call/response correlation layer on top of what
// would otherwise be a bare duplex stream (tinode uses net/rpc for that
// correlation; this repo uses gorilla/websocket directly end to end,
// since gorilla/websocket — not net/rpc — is the teacher dependency this
// component exists to exercise).
package wsbridge

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// defaultReconnect mirrors cluster.go's defaultClusterReconnect.
const defaultReconnect = 200 * time.Millisecond

// Transport is a gorilla/websocket-backed bridge.Transport. One Transport
// serves inbound connections (for Serve) and dials outbound connections
// to named peers on demand (for Request), caching and reconnecting them
// the way cluster.go's ClusterNode does.
type Transport struct {
	listenAddr string
	upgrader   websocket.Upgrader

	mu    sync.Mutex
	peers map[string]*peerConn

	nextID uint64

	serveOnce sync.Once
	closed    chan struct{}
}

// New builds a Transport that listens on listenAddr (used only if Serve
// is called) and dials peers by URL (e.g. "ws://host:port/bridge") on
// first use.
func New(listenAddr string) *Transport {
	return &Transport{
		listenAddr: listenAddr,
		upgrader:   websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		peers:      make(map[string]*peerConn),
		closed:     make(chan struct{}),
	}
}

type pending struct {
	resp chan []byte
	err  chan error
}

type peerConn struct {
	mu           sync.Mutex
	url          string
	conn         *websocket.Conn
	connected    bool
	reconnecting bool

	pendingMu sync.Mutex
	pendingM  map[uint64]pending
}

// Request implements bridge.Transport.
func (t *Transport) Request(ctx context.Context, peer string, envelope []byte) ([]byte, error) {
	pc := t.peerConn(peer)
	if err := pc.ensureConnected(ctx); err != nil {
		return nil, err
	}

	id := atomic.AddUint64(&t.nextID, 1)
	p := pending{resp: make(chan []byte, 1), err: make(chan error, 1)}
	pc.pendingMu.Lock()
	pc.pendingM[id] = p
	pc.pendingMu.Unlock()
	defer func() {
		pc.pendingMu.Lock()
		delete(pc.pendingM, id)
		pc.pendingMu.Unlock()
	}()

	frame := encodeFrame(id, false, envelope)
	pc.mu.Lock()
	err := pc.conn.WriteMessage(websocket.BinaryMessage, frame)
	pc.mu.Unlock()
	if err != nil {
		pc.markDisconnected()
		return nil, fmt.Errorf("wsbridge: write to %s: %w", peer, err)
	}

	select {
	case resp := <-p.resp:
		return resp, nil
	case err := <-p.err:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Serve implements bridge.Transport: accepts inbound connections on
// listenAddr and answers requests with handle.
func (t *Transport) Serve(ctx context.Context, handle func(ctx context.Context, envelope []byte) []byte) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/bridge", func(w http.ResponseWriter, r *http.Request) {
		conn, err := t.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("wsbridge: upgrade failed: %v", err)
			return
		}
		go t.serveConn(ctx, conn, handle)
	})

	srv := &http.Server{Addr: t.listenAddr, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		_ = srv.Close()
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (t *Transport) serveConn(ctx context.Context, conn *websocket.Conn, handle func(context.Context, []byte) []byte) {
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		id, isResponse, payload, err := decodeFrame(data)
		if err != nil || isResponse {
			continue
		}
		go func() {
			out := handle(ctx, payload)
			resp := encodeFrame(id, true, out)
			_ = conn.WriteMessage(websocket.BinaryMessage, resp)
		}()
	}
}

func (t *Transport) peerConn(peer string) *peerConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	pc, ok := t.peers[peer]
	if !ok {
		pc = &peerConn{url: peer, pendingM: make(map[uint64]pending)}
		t.peers[peer] = pc
	}
	return pc
}

func (pc *peerConn) ensureConnected(ctx context.Context) error {
	pc.mu.Lock()
	if pc.connected {
		pc.mu.Unlock()
		return nil
	}
	if pc.reconnecting {
		// Avoid parallel reconnection threads (cluster.go:202-206): another
		// goroutine already owns the dial attempt for this peer.
		pc.mu.Unlock()
		return fmt.Errorf("wsbridge: dial %s already in progress", pc.url)
	}
	pc.reconnecting = true
	pc.mu.Unlock()

	defer func() {
		pc.mu.Lock()
		pc.reconnecting = false
		pc.mu.Unlock()
	}()

	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, pc.url, nil)
		if err == nil {
			pc.mu.Lock()
			pc.conn = conn
			pc.connected = true
			pc.mu.Unlock()
			go pc.readLoop()
			return nil
		}
		lastErr = err
		select {
		case <-time.After(defaultReconnect):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("wsbridge: dial %s: %w", pc.url, lastErr)
}

func (pc *peerConn) readLoop() {
	for {
		pc.mu.Lock()
		conn := pc.conn
		pc.mu.Unlock()
		if conn == nil {
			return
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			pc.markDisconnected()
			return
		}
		id, isResponse, payload, err := decodeFrame(data)
		if err != nil || !isResponse {
			continue
		}
		pc.pendingMu.Lock()
		p, ok := pc.pendingM[id]
		pc.pendingMu.Unlock()
		if ok {
			p.resp <- payload
		}
	}
}

func (pc *peerConn) markDisconnected() {
	pc.mu.Lock()
	pc.connected = false
	if pc.conn != nil {
		pc.conn.Close()
		pc.conn = nil
	}
	pc.mu.Unlock()
}

// Close shuts down every cached peer connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, pc := range t.peers {
		pc.markDisconnected()
	}
	return nil
}

// encodeFrame/decodeFrame implement a tiny correlation header: 8-byte id,
// 1-byte is-response flag, then the payload.
func encodeFrame(id uint64, isResponse bool, payload []byte) []byte {
	out := make([]byte, 9+len(payload))
	binary.BigEndian.PutUint64(out[:8], id)
	if isResponse {
		out[8] = 1
	}
	copy(out[9:], payload)
	return out
}

func decodeFrame(data []byte) (id uint64, isResponse bool, payload []byte, err error) {
	if len(data) < 9 {
		return 0, false, nil, errors.New("wsbridge: short frame")
	}
	id = binary.BigEndian.Uint64(data[:8])
	isResponse = data[8] != 0
	payload = data[9:]
	return id, isResponse, payload, nil
}
