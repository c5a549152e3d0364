package multiply

import (
	"go/token"
	"math/bits"
	"math/rand"
	"testing"

	"github.com/andrewarchi/netlegal/addsub"
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

func newDesign(wa, wb, wo int, a *arch.Arch, opts *config.Options) *design {
	nl := netlist.New("test")
	d := &design{ctx: legal.New(nl, a, opts, nil)}
	d.a = nl.NewInputBus("a", wa)
	d.b = nl.NewInputBus("b", wb)
	d.node = nl.NewOperator(netlist.Multiply, "mul", token.NoPos,
		[]netlist.SignalList{d.a, d.b}, []string{"a", "b"}, []int{wo}, []string{"out"})
	d.y = nl.NewOutputBus("y", d.node.OutputPort(0))
	return d
}

func hardArch(sa, sb int) *arch.Arch {
	return &arch.Arch{
		Adder:      &arch.AdderModel{Name: "adder", SizeA: 4, SizeB: 4, SizeCin: 1, SizeCout: 1, SizeSumout: 4},
		Multiplier: &arch.MultiplierModel{Name: "mult", SizeA: sa, SizeB: sb, SizeOut: sa + sb},
	}
}

// legalize lowers the multiplier and the adders it queued.
func (d *design) legalize(t *testing.T) (*lowering, *sim.Sim) {
	t.Helper()
	l, err := legalize(d.ctx, d.node)
	if err != nil {
		t.Fatal(err)
	}
	for len(d.ctx.AddList) != 0 {
		node := d.ctx.AddList[0]
		d.ctx.AddList = d.ctx.AddList[1:]
		if err := addsub.Legalize(d.ctx, node); err != nil {
			t.Fatal(err)
		}
	}
	nl := d.ctx.Netlist
	if err := nl.Check(); err != nil {
		t.Fatal(err)
	}
	census := nl.Census()
	if census[netlist.Multiply] != 0 || census[netlist.Add] != 0 {
		t.Fatalf("operators left after legalization: %v", census)
	}
	s, err := sim.New(nl)
	if err != nil {
		t.Fatal(err)
	}
	return l, s
}

func (d *design) run(s *sim.Sim, x, y uint64) uint64 {
	s.SetUint64(d.a, x)
	s.SetUint64(d.b, y)
	s.Eval()
	return s.Uint64(d.y)
}

func TestQuadrants(t *testing.T) {
	d := newDesign(8, 8, 16, hardArch(4, 4), nil)
	_, s := d.legalize(t)
	if n := d.ctx.Netlist.Census()[netlist.HardMultiplier]; n != 4 {
		t.Errorf("%d hard multipliers, want 4", n)
	}
	for x := uint64(0); x < 256; x++ {
		for y := uint64(0); y < 256; y++ {
			if got := d.run(s, x, y); got != x*y {
				t.Fatalf("%d * %d = %d", x, y, got)
			}
		}
	}
}

func TestQuadrantsTruncated(t *testing.T) {
	d := newDesign(9, 7, 10, hardArch(4, 3), nil)
	_, s := d.legalize(t)
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		x, y := uint64(r.Intn(512)), uint64(r.Intn(128))
		if got, want := d.run(s, x, y), x*y&1023; got != want {
			t.Fatalf("%d * %d = %d, want %d", x, y, got, want)
		}
	}
}

func TestSplitOneOperand(t *testing.T) {
	for _, swap := range []bool{false, true} {
		wa, wb := 12, 4
		if swap {
			wa, wb = wb, wa
		}
		d := newDesign(wa, wb, 16, hardArch(8, 8), nil)
		_, s := d.legalize(t)
		if n := d.ctx.Netlist.Census()[netlist.HardMultiplier]; n != 2 {
			t.Errorf("%d hard multipliers, want 2", n)
		}
		for x := uint64(0); x < 1<<uint(wa); x += 3 {
			for y := uint64(0); y < 1<<uint(wb); y++ {
				if got := d.run(s, x, y); got != x*y {
					t.Fatalf("%d * %d = %d", x, y, got)
				}
			}
		}
	}
}

func TestFixedPadding(t *testing.T) {
	opts := config.Default()
	opts.FixedHardMultiplier = true
	opts.MultPadding = config.PadDontCare
	d := newDesign(3, 2, 5, hardArch(4, 4), opts)
	_, s := d.legalize(t)
	nl := d.ctx.Netlist
	for _, node := range nl.Nodes() {
		if node.Op != netlist.HardMultiplier {
			continue
		}
		if node.InputPortSizes[0] != 4 || node.InputPortSizes[1] != 4 || node.Model != "mult" {
			t.Errorf("%s not mapped to the full geometry", nl.FormatNode(node))
		}
		padded := 0
		for _, pin := range node.Inputs {
			if pin.Net == nl.PadNet {
				padded++
			}
		}
		if padded != 3 {
			t.Errorf("%d padded operand bits, want 3", padded)
		}
	}
	for x := uint64(0); x < 8; x++ {
		for y := uint64(0); y < 4; y++ {
			if got := d.run(s, x, y); got != x*y {
				t.Errorf("%d * %d = %d", x, y, got)
			}
		}
	}
}

func TestAndRow(t *testing.T) {
	d := newDesign(5, 1, 8, hardArch(4, 4), nil)
	_, s := d.legalize(t)
	census := d.ctx.Netlist.Census()
	if census[netlist.HardMultiplier] != 0 || census[netlist.And] != 5 {
		t.Errorf("census = %v, want 5 and gates", census)
	}
	for x := uint64(0); x < 32; x++ {
		for y := uint64(0); y < 2; y++ {
			if got := d.run(s, x, y); got != x*y {
				t.Errorf("%d * %d = %d", x, y, got)
			}
		}
	}
}

func TestSoftTree(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for w := 2; w <= 16; w++ {
		d := newDesign(w, w, 2*w, &arch.Arch{}, nil)
		l, s := d.legalize(t)
		if want := bits.Len(uint(w - 1)); l.depth != want {
			t.Errorf("width %d: tree depth %d, want %d", w, l.depth, want)
		}
		mask := uint64(1)<<uint(w) - 1
		if w <= 10 && !(testing.Short() && w > 6) {
			for x := uint64(0); x <= mask; x++ {
				for y := uint64(0); y <= mask; y++ {
					if got := d.run(s, x, y); got != x*y {
						t.Fatalf("width %d: %d * %d = %d", w, x, y, got)
					}
				}
			}
			continue
		}
		for i := 0; i < 10000; i++ {
			x, y := r.Uint64()&mask, r.Uint64()&mask
			if got := d.run(s, x, y); got != x*y {
				t.Fatalf("width %d: %d * %d = %d", w, x, y, got)
			}
		}
	}
}

func TestSoftUnequalWidths(t *testing.T) {
	d := newDesign(3, 9, 10, &arch.Arch{}, nil)
	l, s := d.legalize(t)
	if l.depth != 2 {
		t.Errorf("tree depth %d, want 2", l.depth)
	}
	for x := uint64(0); x < 8; x++ {
		for y := uint64(0); y < 512; y++ {
			if got, want := d.run(s, x, y), x*y&1023; got != want {
				t.Fatalf("%d * %d = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestSoftSingleBitMultiplicand(t *testing.T) {
	d := newDesign(1, 4, 5, &arch.Arch{}, nil)
	l := &lowering{ctx: d.ctx, nl: d.ctx.Netlist, b: d.ctx.Netlist.BuilderFor(d.node), node: d.node}
	_, err := l.soft(d.node.InputPort(0), d.node.InputPort(1), 5)
	de, ok := errors.Cause(err).(*diag.Error)
	if !ok || de.Kind != diag.Unsupported {
		t.Errorf("got %v, want unsupported error", err)
	}
}
