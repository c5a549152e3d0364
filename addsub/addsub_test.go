package addsub

import (
	"go/token"
	"math/rand"
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
	ctx  *legal.Context
	a, b netlist.SignalList
	y    []*netlist.Node
	node *netlist.Node
}

func hardArch(size int) *arch.Arch {
	return &arch.Arch{Adder: &arch.AdderModel{
		Name: "adder", SizeA: size, SizeB: size, SizeCin: 1, SizeCout: 1, SizeSumout: size,
	}}
}

// newDesign builds op over inputs of widths wa and wb (wb = 0 for a
// unary minus) into an output of width wo.
func newDesign(op netlist.Op, wa, wb, wo int, a *arch.Arch, opts *config.Options) *design {
	nl := netlist.New("test")
	d := &design{ctx: legal.New(nl, a, opts, nil)}
	d.a = nl.NewInputBus("a", wa)
	ins := []netlist.SignalList{d.a}
	names := []string{"a"}
	if wb != 0 {
		d.b = nl.NewInputBus("b", wb)
		ins = append(ins, d.b)
		names = append(names, "b")
	}
	d.node = nl.NewOperator(op, "op", token.NoPos, ins, names, []int{wo}, []string{"out"})
	d.y = nl.NewOutputBus("y", d.node.OutputPort(0))
	return d
}

func (d *design) legalize(t *testing.T) *sim.Sim {
	t.Helper()
	if err := Legalize(d.ctx, d.node); err != nil {
		t.Fatal(err)
	}
	nl := d.ctx.Netlist
	if err := nl.Check(); err != nil {
		t.Fatal(err)
	}
	census := nl.Census()
	if census[netlist.Add] != 0 || census[netlist.Minus] != 0 {
		t.Fatalf("operator left after legalization: %v", census)
	}
	s, err := sim.New(nl)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func (d *design) run(s *sim.Sim, x, y uint64) uint64 {
	s.SetUint64(d.a, x)
	if d.b != nil {
		s.SetUint64(d.b, y)
	}
	s.Eval()
	return s.Uint64(d.y)
}

func TestChainExhaustive(t *testing.T) {
	opts := config.Default()
	opts.MinThresholdAdder = 2
	tests := []struct {
		Op       netlist.Op
		Out      int
		Hard     int
		Expected func(x, y uint64) uint64
	}{
		{netlist.Add, 8, 2, func(x, y uint64) uint64 { return (x + y) & 0xff }},
		{netlist.Add, 9, 2, func(x, y uint64) uint64 { return x + y }},
		{netlist.Minus, 8, 2, func(x, y uint64) uint64 { return (x - y) & 0xff }},
	}
	for i, test := range tests {
		d := newDesign(test.Op, 8, 8, test.Out, hardArch(4), opts)
		s := d.legalize(t)
		if len(d.ctx.Chains) != 1 || d.ctx.Chains[0].Blocks != test.Hard || !d.ctx.Chains[0].Soft || d.ctx.Chains[0].Width != 8 {
			t.Errorf("test %d: chains = %v, want one chain of %d blocks and a soft tail over 8 bits", i, d.ctx.Chains, test.Hard)
		}
		if n := d.ctx.Netlist.Census()[netlist.HardAdder]; n != test.Hard {
			t.Errorf("test %d: %d hard adders, want %d", i, n, test.Hard)
		}
		for x := uint64(0); x < 256; x++ {
			for y := uint64(0); y < 256; y++ {
				if got, want := d.run(s, x, y), test.Expected(x, y); got != want {
					t.Fatalf("test %d: %v %d, %d = %d, want %d", i, test.Op, x, y, got, want)
				}
			}
		}
	}
}

func TestCarryInGlobal(t *testing.T) {
	opts := config.Default()
	opts.AdderCinGlobal = true
	d := newDesign(netlist.Minus, 8, 8, 8, hardArch(4), opts)
	s := d.legalize(t)
	if d.ctx.Chains[0].Blocks != 2 || d.ctx.Chains[0].Soft {
		t.Errorf("chain = %v, want 2 hard blocks", d.ctx.Chains[0])
	}
	nl := d.ctx.Netlist
	for _, node := range nl.Nodes() {
		if node.Op != netlist.HardAdder {
			continue
		}
		if !node.Subtract {
			t.Errorf("%s not marked as subtraction", node.Name)
		}
		if cin := node.Inputs[node.InputPortStart(2)]; cin.DriverNode() != nil && nl.IsConstNode(cin.DriverNode()) && cin.Net != nl.One {
			t.Errorf("%s carry-in on %v, want vcc", node.Name, cin.Net)
		}
	}
	for x := uint64(0); x < 256; x += 3 {
		for y := uint64(0); y < 256; y++ {
			if got, want := d.run(s, x, y), (x-y)&0xff; got != want {
				t.Fatalf("%d - %d = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestFixedHardAdder(t *testing.T) {
	opts := config.Default()
	opts.FixedHardAdder = true
	d := newDesign(netlist.Add, 6, 5, 6, hardArch(4), opts)
	s := d.legalize(t)
	nl := d.ctx.Netlist
	padded := 0
	for _, node := range nl.Nodes() {
		if node.Op != netlist.HardAdder {
			continue
		}
		if node.InputPortSizes[0] != 4 {
			t.Errorf("%s truncated to %d bits", node.Name, node.InputPortSizes[0])
		}
		for _, pin := range node.Inputs {
			if pin.Net == nl.PadNet && pin.Mapping != "cin" {
				padded++
			}
		}
	}
	if padded != 2 {
		t.Errorf("%d padded operand bits, want 2", padded)
	}
	for x := uint64(0); x < 64; x++ {
		for y := uint64(0); y < 32; y++ {
			if got, want := d.run(s, x, y), (x+y)&63; got != want {
				t.Fatalf("%d + %d = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestUnaryMinus(t *testing.T) {
	for _, a := range []*arch.Arch{hardArch(4), {}} {
		d := newDesign(netlist.Minus, 6, 0, 7, a, nil)
		s := d.legalize(t)
		for x := uint64(0); x < 64; x++ {
			if got, want := d.run(s, x, 0), -x&127; got != want {
				t.Errorf("-%d = %d, want %d", x, got, want)
			}
		}
	}
}

func TestSoftTopologies(t *testing.T) {
	tables := []arch.SoftLogicTable{
		nil,
		{{Width: 64, Topology: arch.Ripple, BlockSize: 3}},
		{{Width: 64, Topology: arch.CarrySelect, BlockSize: 2}},
		{{Width: 2, Topology: arch.Ripple, BlockSize: 2}, {Width: 64, Topology: arch.BECCarrySelect, BlockSize: 3}},
	}
	for i, table := range tables {
		for _, op := range []netlist.Op{netlist.Add, netlist.Minus} {
			d := newDesign(op, 7, 4, 8, &arch.Arch{SoftLogic: table}, nil)
			s := d.legalize(t)
			if n := d.ctx.Netlist.Census()[netlist.HardAdder]; n != 0 {
				t.Errorf("test %d: %d hard adders in soft logic", i, n)
			}
			for x := uint64(0); x < 128; x++ {
				for y := uint64(0); y < 16; y++ {
					want := x + y
					if op == netlist.Minus {
						want = (x - y) & 0xff
					}
					if got := d.run(s, x, y); got != want {
						t.Fatalf("test %d: %v %d, %d = %d, want %d", i, op, x, y, got, want)
					}
				}
			}
		}
	}
}

func TestUnknownTopology(t *testing.T) {
	a := &arch.Arch{SoftLogic: arch.SoftLogicTable{{Width: 8, Topology: "kogge_stone", BlockSize: 4}}}
	d := newDesign(netlist.Add, 4, 4, 4, a, nil)
	err := Legalize(d.ctx, d.node)
	if err == nil {
		t.Fatal("expected error")
	}
	de, ok := errors.Cause(err).(*diag.Error)
	if !ok || de.Kind != diag.Unsupported || de.Node != "op" {
		t.Errorf("got %v, want unsupported error on op", err)
	}
}

func TestWideRandom(t *testing.T) {
	opts := config.Default()
	opts.MinThresholdAdder = 3
	r := rand.New(rand.NewSource(1))
	for _, op := range []netlist.Op{netlist.Add, netlist.Minus} {
		d := newDesign(op, 40, 33, 41, hardArch(6), opts)
		s := d.legalize(t)
		mask := uint64(1)<<41 - 1
		for i := 0; i < 2000; i++ {
			x, y := r.Uint64()&(1<<40-1), r.Uint64()&(1<<33-1)
			want := (x + y) & mask
			if op == netlist.Minus {
				want = (x - y) & mask
			}
			if got := d.run(s, x, y); got != want {
				t.Fatalf("%v %d, %d = %d, want %d", op, x, y, got, want)
			}
		}
	}
}
