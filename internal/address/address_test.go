package address

import "testing"

func TestRouteCompatibleIgnoresSeq(t *testing.T) {
	a := Scope{Address: "orders", Node: NodeIDFromUint64(1), Seq: 1}
	b := Scope{Address: "orders", Node: NodeIDFromUint64(1), Seq: 42}

	if !a.RouteCompatible(b) {
		t.Fatalf("expected scopes differing only in Seq to be route-compatible")
	}
	if a.Equal(b) {
		t.Fatalf("Equal should distinguish scopes with different Seq")
	}
}

func TestRouteCompatibleRequiresSameAddressAndNode(t *testing.T) {
	base := Scope{Address: "orders", Node: NodeIDFromUint64(1), Seq: 1}

	cases := []struct {
		name  string
		other Scope
	}{
		{"different address", Scope{Address: "billing", Node: NodeIDFromUint64(1), Seq: 1}},
		{"different node", Scope{Address: "orders", Node: NodeIDFromUint64(2), Seq: 1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if base.RouteCompatible(c.other) {
				t.Fatalf("expected scopes to be route-incompatible")
			}
		})
	}
}

func TestNoScopeIsZeroValue(t *testing.T) {
	if !NoScope.IsNoScope() {
		t.Fatalf("NoScope must report IsNoScope")
	}
	if !(Scope{}).IsNoScope() {
		t.Fatalf("the zero Scope must report IsNoScope")
	}
}

func TestNodeIDFromUint64Distinct(t *testing.T) {
	a := NodeIDFromUint64(1)
	b := NodeIDFromUint64(2)
	if a == b {
		t.Fatalf("expected distinct node ids for distinct counters")
	}
	if a.IsDefault() || b.IsDefault() {
		t.Fatalf("a counter-derived node id must not equal the default sentinel")
	}
}

func TestUnknownAddress(t *testing.T) {
	if !Unknown.IsUnknown() {
		t.Fatalf("Unknown must report IsUnknown")
	}
	if Address("orders").IsUnknown() {
		t.Fatalf("a non-empty address must not report IsUnknown")
	}
}
