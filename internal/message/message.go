// Package message implements the wire-agnostic message stack and the
// route-message envelope types that ride on top of it. The design mirrors
// NetMQ/axon-style multi-frame messages: a message is a stack of opaque
// byte frames, and routing metadata is pushed on top of the payload frame
// the way tinode/chat's ServerComMessage carries routing fields (rcptto,
// sessFrom) alongside the payload without touching it.
package message

import (
	"bytes"
	"errors"
)

// ErrEmpty is returned by Pop on a message with no frames.
var ErrEmpty = errors.New("message: no frames to pop")

// Message is an ordered stack of opaque byte frames. The invariant is:
// push(frame) then pop() == (frame, original_message).
type Message struct {
	frames [][]byte
}

// New builds a message whose single frame is payload.
func New(payload []byte) *Message {
	return &Message{frames: [][]byte{payload}}
}

// Empty builds a message with no frames.
func Empty() *Message {
	return &Message{}
}

// FromFrames builds a message whose frame stack is exactly frames,
// bottom-to-top. Used by internal/bridge to reconstruct a Message
// received from a peer process.
func FromFrames(frames [][]byte) *Message {
	return &Message{frames: frames}
}

// Frames returns the message's frame stack, bottom-to-top. Used by
// internal/bridge to serialize a Message for a peer process.
func (m *Message) Frames() [][]byte {
	return m.frames
}

// Push adds frame on top of the stack.
func (m *Message) Push(frame []byte) {
	m.frames = append(m.frames, frame)
}

// Pop removes and returns the top frame.
func (m *Message) Pop() ([]byte, error) {
	if len(m.frames) == 0 {
		return nil, ErrEmpty
	}
	top := m.frames[len(m.frames)-1]
	m.frames = m.frames[:len(m.frames)-1]
	return top, nil
}

// Peek returns the top frame without removing it.
func (m *Message) Peek() ([]byte, error) {
	if len(m.frames) == 0 {
		return nil, ErrEmpty
	}
	return m.frames[len(m.frames)-1], nil
}

// Len reports how many frames remain.
func (m *Message) Len() int {
	return len(m.frames)
}

// Clone makes a deep copy so concurrent readers (e.g. a publish fan-out
// sending the same logical message to many endpoints) never share a
// backing array.
func (m *Message) Clone() *Message {
	out := &Message{frames: make([][]byte, len(m.frames))}
	for i, f := range m.frames {
		cp := make([]byte, len(f))
		copy(cp, f)
		out.frames[i] = cp
	}
	return out
}

// Reader returns a streaming reader over the top frame.
func (m *Message) Reader() (*bytes.Reader, error) {
	top, err := m.Peek()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(top), nil
}

// Writer returns a streaming writer that, on Close, pushes its accumulated
// bytes as a new top frame.
func (m *Message) Writer() *FrameWriter {
	return &FrameWriter{msg: m}
}

// FrameWriter accumulates bytes and pushes them as a single frame when
// closed.
type FrameWriter struct {
	buf bytes.Buffer
	msg *Message
}

func (w *FrameWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

// Close pushes the accumulated bytes onto the message as a new top frame.
func (w *FrameWriter) Close() error {
	w.msg.Push(w.buf.Bytes())
	return nil
}
