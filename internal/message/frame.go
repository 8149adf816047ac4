package message

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/kprice/routefabric/internal/address"
	"github.com/kprice/routefabric/internal/route"
)

// ErrMalformedFrame is returned by DecodeFrame when the bytes don't parse
// as a routing frame (spec.md §7, kind Malformed-Frame).
var ErrMalformedFrame = fmt.Errorf("message: malformed routing frame")

// Frame is the routing envelope pushed on top of a payload message before
// it crosses an endpoint send, per spec.md §4.F.1 and the bit-exact layout
// in §6.
type Frame struct {
	Publish       bool
	LocalDispatch bool
	RemoteScope   address.Scope
	LocalScope    address.Scope
	Route         route.Route
}

// EncodeFrame serializes f per spec.md §6: two bool bytes, then
// remote-scope, then local-scope (sender's own naming, not yet reversed),
// then the route string. All integers are little-endian.
func EncodeFrame(f Frame) []byte {
	var buf bytes.Buffer
	writeBool(&buf, f.Publish)
	writeBool(&buf, f.LocalDispatch)
	writeScope(&buf, f.RemoteScope)
	writeScope(&buf, f.LocalScope)
	writeString(&buf, string(f.Route))
	return buf.Bytes()
}

// DecodeFrame parses the bytes written by EncodeFrame. Per spec.md
// §4.F.1's asymmetric scope reversal, the two scope fields read off the
// wire in the sender's (remote, local) order are swapped into the
// receiver's (local, remote) fields: what the sender called "remote" is
// the receiver's "local," and vice versa — "local" always means "this
// side."
func DecodeFrame(b []byte) (Frame, error) {
	r := bytes.NewReader(b)
	var f Frame
	var err error
	if f.Publish, err = readBool(r); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.LocalDispatch, err = readBool(r); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	senderRemote, err := readScope(r)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	senderLocal, err := readScope(r)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	// Reversal: sender's local-scope becomes this side's remote-scope and
	// vice versa.
	f.LocalScope = senderRemote
	f.RemoteScope = senderLocal
	routeStr, err := readString(r)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	f.Route = route.Route(routeStr)
	return f, nil
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func readBool(r *bytes.Reader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func writeBytesWithLen(buf *bytes.Buffer, b []byte) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

func readBytesWithLen(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := readFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	out := make([]byte, n)
	if _, err := readFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func readFull(r *bytes.Reader, out []byte) (int, error) {
	total := 0
	for total < len(out) {
		n, err := r.Read(out[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, fmt.Errorf("short read")
		}
	}
	return total, nil
}

func writeString(buf *bytes.Buffer, s string) {
	writeBytesWithLen(buf, []byte(s))
}

func readString(r *bytes.Reader) (string, error) {
	b, err := readBytesWithLen(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// writeScope serializes a scope as (address-len u32, address bytes,
// node-id-len u32, node-id bytes, seq i64), per spec.md §6.
func writeScope(buf *bytes.Buffer, s address.Scope) {
	writeBytesWithLen(buf, []byte(s.Address))
	writeBytesWithLen(buf, []byte(s.Node))
	var seqBuf [8]byte
	binary.LittleEndian.PutUint64(seqBuf[:], uint64(s.Seq))
	buf.Write(seqBuf[:])
}

func readScope(r *bytes.Reader) (address.Scope, error) {
	addrBytes, err := readBytesWithLen(r)
	if err != nil {
		return address.Scope{}, err
	}
	nodeBytes, err := readBytesWithLen(r)
	if err != nil {
		return address.Scope{}, err
	}
	var seqBuf [8]byte
	if _, err := readFull(r, seqBuf[:]); err != nil {
		return address.Scope{}, err
	}
	seq := int64(binary.LittleEndian.Uint64(seqBuf[:]))
	return address.Scope{
		Address: address.Address(addrBytes),
		Node:    address.NodeID(nodeBytes),
		Seq:     seq,
	}, nil
}
