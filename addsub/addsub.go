// Package addsub legalizes addition and subtraction operators into
// chains of hard adder blocks or into soft logic.
//
// A chain places bit i of the operands at chain position i+offset.
// Unless the first carry-in is tied to a global constant, position 0
// is a carry generator: its operands are both 0 for addition or both 1
// for subtraction, so its carry-out seeds the chain regardless of its
// own carry-in, which is left on the pad net. Subtraction adds the
// inverted second operand.
//
package addsub // import "github.com/andrewarchi/netlegal/addsub"

import (
	"github.com/andrewarchi/netlegal/diag"
	"github.com/andrewarchi/netlegal/legal"
	"github.com/andrewarchi/netlegal/netlist"
)

// operands holds the resolved bit sources of an addition x + y + cin
// over width bits, where y is already inverted for subtraction.
type operands struct {
	b     *netlist.Builder
	x, y  netlist.SignalList
	sub   bool
	width int
}

func (ops *operands) xbit(i int) *netlist.Pin {
	if i < len(ops.x) && ops.x[i] != nil {
		return ops.x[i]
	}
	return ops.b.Zero()
}

func (ops *operands) ybit(i int) *netlist.Pin {
	if i < len(ops.y) && ops.y[i] != nil {
		if ops.sub {
			return ops.b.Not(ops.y[i])
		}
		return ops.y[i]
	}
	return ops.b.Bit(ops.sub)
}

// Legalize replaces an Add or Minus node with a hard adder chain, or
// with soft logic when the device has no hard adder or the effective
// width is below min_threshold_adder. A Minus node with a single
// operand computes its negation.
func Legalize(ctx *legal.Context, node *netlist.Node) error {
	nl := ctx.Netlist
	if node.Op != netlist.Add && node.Op != netlist.Minus {
		return ctx.Errorf(diag.Invariant, node, "not an adder: %v", node.Op)
	}
	if len(node.InputPortSizes) == 0 || len(node.InputPortSizes) > 2 || len(node.OutputPortSizes) != 1 {
		return ctx.Errorf(diag.Invariant, node, "adder with %d inputs and %d outputs",
			len(node.InputPortSizes), len(node.OutputPortSizes))
	}
	b := nl.BuilderFor(node)
	ops := &operands{b: b, sub: node.Op == netlist.Minus, x: node.InputPort(0)}
	if len(node.InputPortSizes) == 2 {
		ops.y = node.InputPort(1)
	} else if ops.sub {
		ops.x, ops.y = nil, ops.x
	}
	outs := node.OutputPort(0)
	o := len(outs)
	widest := len(ops.x)
	if len(ops.y) > widest {
		widest = len(ops.y)
	}

	// An addition into a wider output takes the next bit from the final
	// carry-out. Subtraction borrows through the full output width.
	ops.width = o
	topCarry := false
	if !ops.sub && o > widest {
		ops.width, topCarry = widest, true
	}

	nl.Retire(node)
	var res netlist.SignalList
	var err error
	switch m := ctx.Arch.Adder; {
	case ops.width == 0:
	case m == nil || ops.width < ctx.Options.MinThresholdAdder:
		res, err = softOperator(ctx, node, ops, topCarry)
	default:
		res, err = hardChain(ctx, node, ops, topCarry)
	}
	if err != nil {
		return err
	}
	for i, orig := range outs {
		if orig == nil {
			continue
		}
		if i < len(res) {
			nl.Drive(orig, res[i])
		} else {
			nl.Drive(orig, b.Zero())
		}
	}
	nl.ReleaseSignals(res)
	nl.ReleaseInputs(node)
	if err := nl.CheckReplaced(node); err != nil {
		return ctx.Errorf(diag.Invariant, node, "%v", err)
	}
	nl.FreeNode(node)
	return nil
}

func softOperator(ctx *legal.Context, node *netlist.Node, ops *operands, topCarry bool) (netlist.SignalList, error) {
	x := make(netlist.SignalList, ops.width)
	y := make(netlist.SignalList, ops.width)
	for i := range x {
		x[i], y[i] = ops.xbit(i), ops.ybit(i)
	}
	sum, cout, err := SoftAdd(ctx, ops.b, node, x, y, ops.b.Bit(ops.sub))
	if err != nil {
		return nil, err
	}
	if topCarry {
		return append(sum, cout), nil
	}
	ctx.Netlist.ReleaseSignals(netlist.SignalList{cout})
	return sum, nil
}

// hardChain builds the carry chain and returns the result bits.
func hardChain(ctx *legal.Context, node *netlist.Node, ops *operands, topCarry bool) (netlist.SignalList, error) {
	nl, b, opts := ctx.Netlist, ops.b, ctx.Options
	m := ctx.Arch.Adder
	size := m.SizeA
	offset := 1
	if opts.AdderCinGlobal {
		offset = 0
	}
	// A padded final block cannot source the carry-out, so extend the
	// chain over the whole output instead.
	if topCarry && opts.FixedHardAdder && (ops.width+offset)%size != 0 {
		ops.width = node.OutputPortSizes[0]
		topCarry = false
	}
	total := ops.width + offset
	count := (total + size - 1) / size
	rem := total - (count-1)*size
	softTail := !opts.FixedHardAdder && count > 1 && rem < opts.MinThresholdAdder

	res := make(netlist.SignalList, ops.width, ops.width+1)
	var carry *netlist.Pin
	for k := 0; k < count; k++ {
		start := k * size
		if k == count-1 && softTail {
			n := total - start
			x := make(netlist.SignalList, n)
			y := make(netlist.SignalList, n)
			for j := range x {
				x[j], y[j] = ops.xbit(start+j-offset), ops.ybit(start+j-offset)
			}
			sum, cout, err := SoftAdd(ctx, b, node, x, y, carry)
			if err != nil {
				return nil, err
			}
			copy(res[start-offset:], sum)
			carry = cout
			break
		}
		width := size
		if k == count-1 && !opts.FixedHardAdder {
			width = rem
		}
		block := b.Block(netlist.HardAdder, []int{width, width, 1}, []string{"a", "b", "cin"},
			[]int{1, width}, []string{"cout", "sumout"})
		block.Model = m.Name
		block.Subtract = ops.sub
		for j := 0; j < width; j++ {
			var x, y *netlist.Pin
			switch p := start + j; {
			case p < offset:
				x, y = b.Bit(ops.sub), b.Bit(ops.sub)
			case p < total:
				x, y = ops.xbit(p-offset), ops.ybit(p-offset)
				res[p-offset] = block.Outputs[1+j]
			default:
				x, y = b.PadPin(), b.PadPin()
			}
			nl.Place(x, block, j)
			nl.Place(y, block, width+j)
		}
		switch {
		case k != 0:
		case offset == 0:
			carry = b.Bit(ops.sub)
		default:
			carry = b.PadPin()
		}
		nl.Place(carry, block, 2*width)
		carry = block.Outputs[0]
	}
	hard := count
	if softTail {
		hard--
	}
	ctx.RecordChain(node, ops.width, hard, softTail)
	ctx.Printw("adder chain", "node", node.Name, "width", ops.width, "blocks", hard, "soft_tail", softTail)
	if topCarry {
		return append(res, carry), nil
	}
	return res, nil
}
