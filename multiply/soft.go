package multiply

import (
	"github.com/andrewarchi/netlegal/diag"
	"github.com/andrewarchi/netlegal/netlist"
	"github.com/andrewarchi/netlegal/shift"
)

// row is a partial product with the bit position of its first bit.
type row struct {
	bits  netlist.SignalList
	shift int
}

// soft builds the partial product matrix of the narrower operand, the
// multiplicand, against the other and reduces its rows pairwise with a
// balanced tree of adders.
func (l *lowering) soft(a, b netlist.SignalList, width int) (netlist.SignalList, error) {
	mcand, mplier := a, b
	if len(b) < len(a) {
		mcand, mplier = b, a
	}
	if len(mcand) < 2 {
		return nil, l.ctx.Errorf(diag.Unsupported, l.node, "soft multiplier with %d-bit multiplicand", len(mcand))
	}

	var rows []row
	for i, m := range mcand {
		if i >= width {
			break
		}
		n := len(mplier)
		if i+n > width {
			n = width - i
		}
		bits := make(netlist.SignalList, n)
		for j := range bits {
			bits[j] = l.b.And(m, mplier[j])
		}
		rows = append(rows, row{bits, i})
	}

	depth := 0
	for len(rows) > 1 {
		depth++
		next := make([]row, 0, (len(rows)+1)/2)
		for k := 0; k < len(rows); k += 2 {
			if k+1 == len(rows) {
				next = append(next, rows[k])
				break
			}
			next = append(next, l.addRows(rows[k], rows[k+1], width))
		}
		rows = next
	}
	if depth > l.depth {
		l.depth = depth
	}
	return shift.Resize(l.b, rows[0].bits, width), nil
}

// addRows sums two rows, r0 starting below r1. The bits of r0 below the
// start of r1 pass through; the rest are added to r1 in an adder one
// bit wider than its widest operand, capped at the result width.
func (l *lowering) addRows(r0, r1 row, width int) row {
	d := r1.shift - r0.shift
	low, high := r0.bits, netlist.SignalList(nil)
	if d < len(r0.bits) {
		low, high = r0.bits[:d], r0.bits[d:]
	}
	low = shift.Resize(l.b, low, d)
	n := len(high)
	if len(r1.bits) > n {
		n = len(r1.bits)
	}
	n++
	if n > width-r1.shift {
		n = width - r1.shift
	}
	return row{low.Concat(l.add(high, r1.bits, n)), r0.shift}
}
