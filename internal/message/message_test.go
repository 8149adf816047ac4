package message

import "testing"

func TestPushPopRoundTrip(t *testing.T) {
	m := New([]byte("payload"))
	m.Push([]byte("envelope"))

	top, err := m.Pop()
	if err != nil {
		t.Fatalf("Pop() error = %v", err)
	}
	if string(top) != "envelope" {
		t.Fatalf("Pop() = %q, want %q", top, "envelope")
	}

	top, err = m.Pop()
	if err != nil {
		t.Fatalf("Pop() error = %v", err)
	}
	if string(top) != "payload" {
		t.Fatalf("Pop() = %q, want %q", top, "payload")
	}

	if _, err := m.Pop(); err != ErrEmpty {
		t.Fatalf("Pop() on empty message error = %v, want ErrEmpty", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := New([]byte("payload"))
	clone := m.Clone()

	clone.Push([]byte("extra"))

	if m.Len() != 1 {
		t.Fatalf("original message mutated by push onto clone, Len() = %d", m.Len())
	}
	if clone.Len() != 2 {
		t.Fatalf("clone.Len() = %d, want 2", clone.Len())
	}
}

func TestFrameWriterPushesOneFrame(t *testing.T) {
	m := Empty()
	w := m.Writer()
	_, _ = w.Write([]byte("hel"))
	_, _ = w.Write([]byte("lo"))
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	top, err := m.Pop()
	if err != nil {
		t.Fatalf("Pop() error = %v", err)
	}
	if string(top) != "hello" {
		t.Fatalf("Pop() = %q, want %q", top, "hello")
	}
}

func TestFromFramesAndFrames(t *testing.T) {
	frames := [][]byte{[]byte("a"), []byte("b")}
	m := FromFrames(frames)
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	got := m.Frames()
	if string(got[0]) != "a" || string(got[1]) != "b" {
		t.Fatalf("Frames() = %v, want %v", got, frames)
	}
}
