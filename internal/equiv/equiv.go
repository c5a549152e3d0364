// Package equiv proves a legalized netlist equivalent to a reference
// arithmetic function. The netlist and the reference are encoded in
// one and-inverter graph, and a miter of their outputs is handed to the
// gini SAT solver: an unsatisfiable miter proves equivalence, and a
// model is a counterexample.
//
package equiv // import "github.com/andrewarchi/netlegal/internal/equiv"

import (
	"strings"

	"github.com/andrewarchi/netlegal/netlist"
	"github.com/andrewarchi/netlegal/sim"
	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Counterexample holds the input values, one per bus, for which the
// netlist and the reference disagree.
type Counterexample struct {
	Inputs []*uint256.Int
}

func (cex *Counterexample) String() string {
	vals := make([]string, len(cex.Inputs))
	for i, v := range cex.Inputs {
		vals[i] = v.ToBig().String()
	}
	return strings.Join(vals, ", ")
}

// Reference builds the expected output bits from the input buses.
type Reference func(c *logic.C, ins [][]z.Lit, width int) []z.Lit

// ProveAdd proves that outs computes a + b modulo 2^len(outs).
func ProveAdd(nl *netlist.Netlist, a, b netlist.SignalList, outs []*netlist.Node) (*Counterexample, error) {
	return Prove(nl, []netlist.SignalList{a, b}, outs, func(c *logic.C, ins [][]z.Lit, width int) []z.Lit {
		return add(c, ins[0], ins[1], c.F, width)
	})
}

// ProveSub proves that outs computes a - b modulo 2^len(outs). An empty
// a gives negation.
func ProveSub(nl *netlist.Netlist, a, b netlist.SignalList, outs []*netlist.Node) (*Counterexample, error) {
	return Prove(nl, []netlist.SignalList{a, b}, outs, func(c *logic.C, ins [][]z.Lit, width int) []z.Lit {
		inv := make([]z.Lit, width)
		for i := range inv {
			inv[i] = bit(c, ins[1], i).Not()
		}
		return add(c, ins[0], inv, c.T, width)
	})
}

// ProveMul proves that outs computes a * b modulo 2^len(outs).
func ProveMul(nl *netlist.Netlist, a, b netlist.SignalList, outs []*netlist.Node) (*Counterexample, error) {
	return Prove(nl, []netlist.SignalList{a, b}, outs, func(c *logic.C, ins [][]z.Lit, width int) []z.Lit {
		return mul(c, ins[0], ins[1], width)
	})
}

// Prove checks the outputs of nl against ref over every value of the
// input buses. It returns nil when they are equivalent. The netlist
// must be combinational and free of unlegalized operators.
func Prove(nl *netlist.Netlist, buses []netlist.SignalList, outs []*netlist.Node, ref Reference) (*Counterexample, error) {
	c := logic.NewC()
	lits, err := encode(nl, c)
	if err != nil {
		return nil, err
	}
	ins := make([][]z.Lit, len(buses))
	for i, bus := range buses {
		ins[i] = make([]z.Lit, len(bus))
		for j, sig := range bus {
			ins[i][j] = lits.pin(sig)
		}
	}
	want := ref(c, ins, len(outs))
	diffs := make([]z.Lit, len(outs))
	for i, out := range outs {
		diffs[i] = c.Xor(lits.pin(out.Inputs[0]), want[i])
	}
	miter := c.Ors(diffs...)

	g := gini.New()
	c.ToCnf(g)
	g.Assume(miter)
	switch g.Solve() {
	case -1:
		return nil, nil
	case 1:
		cex := &Counterexample{Inputs: make([]*uint256.Int, len(ins))}
		for i, bus := range ins {
			v := new(uint256.Int)
			for j, m := range bus {
				if g.Value(m) {
					v.Or(v, new(uint256.Int).Lsh(uint256.NewInt(1), uint(j)))
				}
			}
			cex.Inputs[i] = v
		}
		return cex, nil
	}
	return nil, errors.New("equiv: solver gave up")
}

// lits maps net IDs to literals.
type lits struct {
	c    *logic.C
	nets []z.Lit
}

// pin returns the literal of the net a signal stands for. Undriven
// signals read as false.
func (l *lits) pin(sig *netlist.Pin) z.Lit {
	if sig == nil || sig.Net == nil || l.nets[sig.Net.ID] == z.LitNull {
		return l.c.F
	}
	return l.nets[sig.Net.ID]
}

func (l *lits) port(node *netlist.Node, p int) []z.Lit {
	bus := node.InputPort(p)
	ms := make([]z.Lit, len(bus))
	for i, sig := range bus {
		ms[i] = l.pin(sig)
	}
	return ms
}

func (l *lits) set(node *netlist.Node, slot int, m z.Lit) {
	if slot < len(node.Outputs) {
		if out := node.Outputs[slot]; out != nil && out.Net != nil {
			l.nets[out.Net.ID] = m
		}
	}
}

// encode builds the combinational logic of nl in c in level order. The
// pad constant encodes as false, matching the simulator.
func encode(nl *netlist.Netlist, c *logic.C) (*lits, error) {
	order, err := sim.Levelize(nl)
	if err != nil {
		return nil, errors.Wrap(err, "equiv")
	}
	l := &lits{c: c, nets: make([]z.Lit, nl.NumNets())}
	for _, node := range order {
		switch node.Op {
		case netlist.Input:
			l.set(node, 0, c.Lit())
		case netlist.Output:
		case netlist.GND, netlist.Pad:
			l.set(node, 0, c.F)
		case netlist.VCC:
			l.set(node, 0, c.T)
		case netlist.Buf:
			l.set(node, 0, l.pin(node.Inputs[0]))
		case netlist.Not:
			l.set(node, 0, l.pin(node.Inputs[0]).Not())
		case netlist.And, netlist.Nand:
			m := c.Ands(l.port(node, 0)...)
			if node.Op == netlist.Nand {
				m = m.Not()
			}
			l.set(node, 0, m)
		case netlist.Or, netlist.Nor:
			m := c.Ors(l.port(node, 0)...)
			if node.Op == netlist.Nor {
				m = m.Not()
			}
			l.set(node, 0, m)
		case netlist.Xor, netlist.Xnor:
			m := c.F
			for _, in := range l.port(node, 0) {
				m = c.Xor(m, in)
			}
			if node.Op == netlist.Xnor {
				m = m.Not()
			}
			l.set(node, 0, m)
		case netlist.Mux2:
			sel, data := l.port(node, 0), l.port(node, 1)
			l.set(node, 0, c.Choice(sel[0], data[1], data[0]))
		case netlist.SelectMux:
			sel, data := l.port(node, 0), l.port(node, 1)
			terms := make([]z.Lit, len(sel))
			for i := range sel {
				terms[i] = c.And(sel[i], data[i])
			}
			l.set(node, 0, c.Ors(terms...))
		case netlist.HardAdder:
			n := node.OutputPortSizes[1]
			cin := l.port(node, 2)
			sum := add(c, l.port(node, 0), l.port(node, 1), cin[0], n+1)
			l.set(node, 0, sum[n])
			for i := 0; i < n; i++ {
				l.set(node, 1+i, sum[i])
			}
		case netlist.HardMultiplier:
			prod := mul(c, l.port(node, 0), l.port(node, 1), node.OutputPortSizes[0])
			for i, m := range prod {
				l.set(node, i, m)
			}
		default:
			return nil, errors.Errorf("equiv: cannot encode %v node %s", node.Op, node.Name)
		}
	}
	return l, nil
}

func bit(c *logic.C, x []z.Lit, i int) z.Lit {
	if i < len(x) {
		return x[i]
	}
	return c.F
}

// add returns x + y + cin over width bits with zero-extended operands.
func add(c *logic.C, x, y []z.Lit, cin z.Lit, width int) []z.Lit {
	sum := make([]z.Lit, width)
	carry := cin
	for i := range sum {
		a, b := bit(c, x, i), bit(c, y, i)
		p := c.Xor(a, b)
		sum[i] = c.Xor(p, carry)
		carry = c.Or(c.And(a, b), c.And(carry, p))
	}
	return sum
}

// mul returns x * y over width bits by shift and add.
func mul(c *logic.C, x, y []z.Lit, width int) []z.Lit {
	acc := make([]z.Lit, width)
	for i := range acc {
		acc[i] = c.F
	}
	for j := 0; j < len(y) && j < width; j++ {
		row := make([]z.Lit, width)
		for i := range row {
			row[i] = c.F
			if i >= j {
				row[i] = c.And(bit(c, x, i-j), y[j])
			}
		}
		acc = add(c, acc, row, c.F, width)
	}
	return acc
}
