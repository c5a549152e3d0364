package addsub

import (
	"github.com/andrewarchi/netlegal/arch"
	"github.com/andrewarchi/netlegal/diag"
	"github.com/andrewarchi/netlegal/legal"
	"github.com/andrewarchi/netlegal/netlist"
)

// SoftAdd builds x + y + cin in soft logic and returns the sum bits and
// the carry-out. The operands are split into slices whose size and
// topology come from the soft logic table, looked up by the remaining
// width. Consumed signals follow the Place rules of the kernel.
func SoftAdd(ctx *legal.Context, b *netlist.Builder, node *netlist.Node, x, y netlist.SignalList, cin *netlist.Pin) (netlist.SignalList, *netlist.Pin, error) {
	if len(x) != len(y) {
		return nil, nil, ctx.Errorf(diag.Invariant, node, "soft adder operands of %d and %d bits", len(x), len(y))
	}
	sum := make(netlist.SignalList, 0, len(x))
	carry := cin
	for start := 0; start < len(x); {
		rem := len(x) - start
		e := ctx.Arch.SoftLogic.Lookup(rem)
		size := e.BlockSize
		if size <= 0 || size > rem {
			size = rem
		}
		xs, ys := x[start:start+size], y[start:start+size]
		var s netlist.SignalList
		switch e.Topology {
		case arch.Ripple:
			s, carry = ripple(b, xs, ys, carry)
		case arch.CarrySelect:
			s, carry = carrySelect(b, xs, ys, carry)
		case arch.BECCarrySelect:
			s, carry = becCarrySelect(b, xs, ys, carry)
		default:
			return nil, nil, ctx.Errorf(diag.Unsupported, node, "unknown soft logic topology %q for %d bits", e.Topology, rem)
		}
		sum = append(sum, s...)
		start += size
	}
	return sum, carry, nil
}

// constant returns the value of a signal on the constant 0 or 1 net.
func constant(nl *netlist.Netlist, sig *netlist.Pin) (v, ok bool) {
	switch sig.Net {
	case nl.Zero:
		return false, true
	case nl.One:
		return true, true
	}
	return false, false
}

// ripple builds a ripple-carry chain of full adders, reduced to half
// adders while the carry is a known constant.
func ripple(b *netlist.Builder, x, y netlist.SignalList, c *netlist.Pin) (netlist.SignalList, *netlist.Pin) {
	nl := b.Netlist()
	sum := make(netlist.SignalList, len(x))
	for i := range x {
		if v, ok := constant(nl, c); ok {
			nl.ReleaseSignals(netlist.SignalList{c})
			if v {
				sum[i], c = b.Xnor(x[i], y[i]), b.Or(x[i], y[i])
			} else {
				sum[i], c = b.Xor(x[i], y[i]), b.And(x[i], y[i])
			}
			continue
		}
		p := b.Xor(x[i], y[i])
		sum[i] = b.Xor(p, c)
		c = b.Or(b.And(x[i], y[i]), b.And(c, p))
	}
	return sum, c
}

// carrySelect builds the slice for both carry-in values and selects
// the result with the real carry.
func carrySelect(b *netlist.Builder, x, y netlist.SignalList, c *netlist.Pin) (netlist.SignalList, *netlist.Pin) {
	if _, ok := constant(b.Netlist(), c); ok {
		return ripple(b, x, y, c)
	}
	s0, c0 := ripple(b, x, y, b.Zero())
	s1, c1 := ripple(b, x, y, b.One())
	return selectCarry(b, c, s0, c0, s1, c1)
}

// becCarrySelect builds the slice for carry-in 0 and derives the
// carry-in 1 result with a binary excess-1 converter: s1 = s0 + 1.
func becCarrySelect(b *netlist.Builder, x, y netlist.SignalList, c *netlist.Pin) (netlist.SignalList, *netlist.Pin) {
	if _, ok := constant(b.Netlist(), c); ok {
		return ripple(b, x, y, c)
	}
	s0, c0 := ripple(b, x, y, b.Zero())
	s1 := make(netlist.SignalList, len(s0))
	s1[0] = b.Not(s0[0])
	ones := s0[0]
	for i := 1; i < len(s0); i++ {
		s1[i] = b.Xor(s0[i], ones)
		ones = b.And(ones, s0[i])
	}
	c1 := b.Or(c0, ones)
	return selectCarry(b, c, s0, c0, s1, c1)
}

func selectCarry(b *netlist.Builder, c *netlist.Pin, s0 netlist.SignalList, c0 *netlist.Pin, s1 netlist.SignalList, c1 *netlist.Pin) (netlist.SignalList, *netlist.Pin) {
	sum := make(netlist.SignalList, len(s0))
	for i := range sum {
		sum[i] = b.Mux2(c, s0[i], s1[i])
	}
	return sum, b.Mux2(c, c0, c1)
}
