package legal

import (
	"go/token"
	"testing"

	"github.com/andrewarchi/netlegal/netlist"
)

func TestEnqueue(t *testing.T) {
	nl := netlist.New("test")
	ctx := New(nl, nil, nil, nil)
	ops := []netlist.Op{netlist.Add, netlist.Minus, netlist.Multiply, netlist.SPRAM, netlist.DPRAM}
	for _, op := range ops {
		ctx.Enqueue(nl.NewNode(op, op.String(), token.NoPos))
	}
	if len(ctx.AddList) != 2 || len(ctx.MultiplyList) != 1 || len(ctx.MemoryList) != 2 {
		t.Errorf("lists = %d add, %d multiply, %d memory", len(ctx.AddList), len(ctx.MultiplyList), len(ctx.MemoryList))
	}
	defer func() {
		if r := recover(); r == nil {
			t.Error("enqueue of a gate did not panic")
		}
	}()
	ctx.Enqueue(nl.NewNode(netlist.And, "and", token.NoPos))
}

func TestChainReport(t *testing.T) {
	nl := netlist.New("test")
	ctx := New(nl, nil, nil, nil)
	ctx.RecordChain(nl.NewNode(netlist.Minus, "sub", token.NoPos), 12, 4, false)
	ctx.RecordChain(nl.NewNode(netlist.Add, "add", token.NoPos), 8, 2, true)
	if got, want := ctx.ChainReport(), "minus sub: 12 bits in 4 blocks\nadd add: 8 bits in 2 blocks and a soft tail\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
