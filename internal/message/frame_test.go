package message

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kprice/routefabric/internal/address"
	"github.com/kprice/routefabric/internal/route"
)

func TestEncodeDecodeFrameSwapsScopes(t *testing.T) {
	senderRemote := address.Scope{Address: "billing", Node: address.NodeIDFromUint64(7), Seq: 3}
	senderLocal := address.Scope{Address: "orders", Node: address.NodeIDFromUint64(1), Seq: 9}

	f := Frame{
		Publish:       true,
		LocalDispatch: false,
		RemoteScope:   senderRemote,
		LocalScope:    senderLocal,
		Route:         route.Route("orders.created"),
	}

	decoded, err := DecodeFrame(EncodeFrame(f))
	if err != nil {
		t.Fatalf("DecodeFrame() error = %v", err)
	}

	// The receiver's local-scope is the sender's remote-scope, and vice
	// versa: "local" always means "this side." want is the full decoded
	// Frame we expect, scopes already swapped, so a single structural diff
	// catches any field drift instead of four separate manual checks.
	want := Frame{
		Publish:       f.Publish,
		LocalDispatch: f.LocalDispatch,
		RemoteScope:   senderLocal,
		LocalScope:    senderRemote,
		Route:         f.Route,
	}
	if diff := cmp.Diff(want, decoded); diff != "" {
		t.Fatalf("DecodeFrame(EncodeFrame(f)) mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeFrameMalformed(t *testing.T) {
	if _, err := DecodeFrame([]byte{1}); err == nil {
		t.Fatalf("expected an error decoding a truncated frame")
	}
}

func TestDecodeFrameEmpty(t *testing.T) {
	if _, err := DecodeFrame(nil); err == nil {
		t.Fatalf("expected an error decoding an empty frame")
	}
}
