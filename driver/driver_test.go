package driver

import (
	"bytes"
	"go/token"
	"strings"
	"testing"

	"github.com/andrewarchi/netlegal/arch"
	"github.com/andrewarchi/netlegal/config"
	"github.com/andrewarchi/netlegal/diag"
	"github.com/andrewarchi/netlegal/legal"
	"github.com/andrewarchi/netlegal/netlist"
	"github.com/andrewarchi/netlegal/sim"
	"github.com/pkg/errors"
)

type design struct {
	nl         *netlist.Netlist
	a, b       netlist.SignalList
	prod, sum  []*netlist.Node
	addr, data netlist.SignalList
	we         netlist.SignalList
	out        []*netlist.Node
}

// newDesign builds a multiplier, a subtractor and a RAM side by side.
func newDesign() *design {
	nl := netlist.New("top")
	d := &design{nl: nl}
	d.a = nl.NewInputBus("a", 8)
	d.b = nl.NewInputBus("b", 6)
	mul := nl.NewOperator(netlist.Multiply, "mul", token.NoPos,
		[]netlist.SignalList{d.a, d.b}, []string{"a", "b"}, []int{14}, []string{"out"})
	d.prod = nl.NewOutputBus("p", mul.OutputPort(0))
	sub := nl.NewOperator(netlist.Minus, "sub", token.NoPos,
		[]netlist.SignalList{d.a, d.b}, []string{"a", "b"}, []int{8}, []string{"out"})
	d.sum = nl.NewOutputBus("s", sub.OutputPort(0))

	d.addr = nl.NewInputBus("addr", 5)
	d.data = nl.NewInputBus("data", 4)
	d.we = nl.NewInputBus("we", 1)
	ram := nl.NewOperator(netlist.SPRAM, "ram", token.NoPos,
		[]netlist.SignalList{d.addr, d.data, d.we, nl.NewInputBus("clk", 1)},
		[]string{"addr", "data", "we", "clk"}, []int{4}, []string{"out"})
	d.out = nl.NewOutputBus("q", ram.OutputPort(0))
	return d
}

func smallArch() *arch.Arch {
	a := arch.Default()
	a.Multiplier = &arch.MultiplierModel{Name: "mult", SizeA: 4, SizeB: 4, SizeOut: 8}
	a.SPRAM.MaxAddrWidth = 3
	return a
}

func TestRun(t *testing.T) {
	d := newDesign()
	var log bytes.Buffer
	ctx := legal.New(d.nl, smallArch(), nil, diag.NewReporter(&log))
	ctx.Debug = true
	Collect(ctx)
	if len(ctx.MultiplyList) != 1 || len(ctx.AddList) != 1 || len(ctx.MemoryList) != 1 {
		t.Fatalf("collected %d multipliers, %d adders and %d memories",
			len(ctx.MultiplyList), len(ctx.AddList), len(ctx.MemoryList))
	}
	stats, err := Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	census := d.nl.Census()
	for _, op := range []netlist.Op{netlist.Add, netlist.Minus, netlist.Multiply} {
		if census[op] != 0 {
			t.Errorf("%d %v nodes left", census[op], op)
		}
	}
	if census[netlist.SPRAM] != 4 || census[netlist.HardMultiplier] != 4 {
		t.Errorf("census = %v, want 4 rams and 4 multipliers", census)
	}
	if len(ctx.AddList)+len(ctx.MultiplyList)+len(ctx.MemoryList) != 0 {
		t.Error("work-lists not drained")
	}
	if stats.Subtractors.Count != 1 || stats.Adders.Count == 0 {
		t.Errorf("stats = %v", stats)
	}
	if len(ctx.Chains) == 0 {
		t.Error("no chains recorded")
	}
	if !strings.Contains(log.String(), "pass done") {
		t.Errorf("missing pass log:\n%s", log.String())
	}

	s, err := sim.New(d.nl)
	if err != nil {
		t.Fatal(err)
	}
	for x := uint64(0); x < 256; x += 7 {
		for y := uint64(0); y < 64; y += 5 {
			s.SetUint64(d.a, x)
			s.SetUint64(d.b, y)
			s.Eval()
			if got := s.Uint64(d.prod); got != x*y {
				t.Errorf("%d * %d = %d", x, y, got)
			}
			if got, want := s.Uint64(d.sum), (x-y)&0xff; got != want {
				t.Errorf("%d - %d = %d, want %d", x, y, got, want)
			}
		}
	}
	for addr := uint64(0); addr < 32; addr++ {
		s.SetUint64(d.addr, addr)
		s.SetUint64(d.data, addr&0xf^0x5)
		s.SetUint64(d.we, 1)
		s.Step()
	}
	s.SetUint64(d.we, 0)
	for addr := uint64(0); addr < 32; addr++ {
		s.SetUint64(d.addr, addr)
		s.Eval()
		if got, want := s.Uint64(d.out), addr&0xf^0x5; got != want {
			t.Errorf("word %d = %d, want %d", addr, got, want)
		}
	}
}

func TestRunError(t *testing.T) {
	d := newDesign()
	opts := config.Default()
	opts.SplitMemoryDepth = 9
	ctx := legal.New(d.nl, smallArch(), opts, nil)
	Collect(ctx)
	_, err := Run(ctx)
	if err == nil || !diag.IsFatal(err) {
		t.Fatalf("got %v, want fatal error", err)
	}
	if de, ok := errors.Cause(err).(*diag.Error); !ok || de.Kind != diag.Unsupported || de.Node != "ram" {
		t.Errorf("got %v, want unsupported error on ram", err)
	}
	if !strings.HasPrefix(err.Error(), "memory pass: ") {
		t.Errorf("error %q not attributed to the memory pass", err)
	}
}

func TestRecoverInvariant(t *testing.T) {
	d := newDesign()
	ctx := legal.New(d.nl, smallArch(), nil, nil)
	Collect(ctx)
	broken := []pass{{
		"broken",
		func(ctx *legal.Context) *[]*netlist.Node { return &ctx.AddList },
		func(ctx *legal.Context, node *netlist.Node) error {
			ctx.Netlist.FreeNode(node)
			return nil
		},
	}}
	_, err := run(ctx, broken)
	if _, ok := errors.Cause(err).(*netlist.InvariantError); !ok {
		t.Fatalf("got %v, want invariant error", err)
	}
	if !diag.IsFatal(err) {
		t.Error("invariant error not fatal")
	}
}
