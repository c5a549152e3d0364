// Package multiply legalizes multiplication operators into hard
// multipliers, splitting operands wider than the hard geometry, or
// into an AND-gate partial product matrix reduced by a balanced adder
// tree.
//
// Partial sums are created as Add operator nodes and pushed on the add
// work-list of the context, to be legalized after all multipliers.
//
package multiply // import "github.com/andrewarchi/netlegal/multiply"

import (
	"github.com/andrewarchi/netlegal/config"
	"github.com/andrewarchi/netlegal/diag"
	"github.com/andrewarchi/netlegal/legal"
	"github.com/andrewarchi/netlegal/netlist"
	"github.com/andrewarchi/netlegal/shift"
)

type lowering struct {
	ctx   *legal.Context
	nl    *netlist.Netlist
	b     *netlist.Builder
	node  *netlist.Node
	adds  []*netlist.Node
	depth int // Deepest soft adder tree
	hard  int // Hard multipliers created
}

// Legalize replaces a Multiply node with logic computing the unsigned
// product of its operands modulo 2^width of its output.
func Legalize(ctx *legal.Context, node *netlist.Node) error {
	_, err := legalize(ctx, node)
	return err
}

func legalize(ctx *legal.Context, node *netlist.Node) (*lowering, error) {
	nl := ctx.Netlist
	if node.Op != netlist.Multiply || len(node.InputPortSizes) != 2 || len(node.OutputPortSizes) != 1 {
		return nil, ctx.Errorf(diag.Invariant, node, "malformed multiplier %v with %d inputs and %d outputs",
			node.Op, len(node.InputPortSizes), len(node.OutputPortSizes))
	}
	l := &lowering{ctx: ctx, nl: nl, b: nl.BuilderFor(node), node: node}
	a, b := node.InputPort(0), node.InputPort(1)
	for _, pin := range a.Concat(b) {
		if pin == nil {
			return nil, ctx.Errorf(diag.Invariant, node, "multiplier operand slot unpopulated")
		}
	}
	outs := node.OutputPort(0)
	nl.Retire(node)
	res, err := l.product(a, b, len(outs))
	if err != nil {
		return nil, err
	}
	for i, orig := range outs {
		switch {
		case orig == nil:
		case i < len(res):
			nl.Drive(orig, res[i])
		default:
			nl.Drive(orig, l.b.Zero())
		}
	}
	nl.ReleaseSignals(res)
	nl.ReleaseInputs(node)
	if err := nl.CheckReplaced(node); err != nil {
		return nil, ctx.Errorf(diag.Invariant, node, "%v", err)
	}
	for _, add := range l.adds {
		if err := nl.CheckComplete(add); err != nil {
			return nil, ctx.Errorf(diag.Invariant, node, "%v", err)
		}
	}
	nl.FreeNode(node)
	ctx.Printw("multiply", "node", node.Name, "hard", l.hard, "adders", len(l.adds), "tree_depth", l.depth)
	return l, nil
}

// product returns the product of a and b truncated to width bits. The
// result has at most len(a)+len(b) bits; higher bits are zero.
func (l *lowering) product(a, b netlist.SignalList, width int) (netlist.SignalList, error) {
	if len(a)+len(b) < width {
		width = len(a) + len(b)
	}
	if len(a) == 0 || len(b) == 0 || width <= 0 {
		l.nl.ReleaseSignals(a)
		l.nl.ReleaseSignals(b)
		return nil, nil
	}
	narrow := len(a)
	if len(b) < narrow {
		narrow = len(b)
	}
	m := l.ctx.Arch.Multiplier
	switch {
	case narrow == 1:
		return l.andRow(a, b, width), nil
	case m == nil || narrow < l.ctx.Options.MinHardMultiplier:
		return l.soft(a, b, width)
	case len(a) > m.SizeA && len(b) > m.SizeB:
		return l.quadrants(a, b, width)
	case len(a) > m.SizeA:
		return l.split(a, b, m.SizeA, width)
	case len(b) > m.SizeB:
		return l.split(b, a, m.SizeB, width)
	}
	return l.hardMultiplier(a, b, width), nil
}

// andRow multiplies by a single bit.
func (l *lowering) andRow(a, b netlist.SignalList, width int) netlist.SignalList {
	if len(a) == 1 {
		a, b = b, a
	}
	if width > len(a) {
		width = len(a)
	}
	res := make(netlist.SignalList, width)
	for i := range res {
		res[i] = l.b.And(a[i], b[0])
	}
	l.nl.ReleaseSignals(a[width:])
	return res
}

// add creates an Add operator of x and y into width bits and queues
// it for legalization.
func (l *lowering) add(x, y netlist.SignalList, width int) netlist.SignalList {
	node := l.nl.NewOperator(netlist.Add, l.nl.UniqueName(l.b.Base), l.node.Pos,
		[]netlist.SignalList{x, y}, []string{"a", "b"}, []int{width}, []string{"out"})
	l.ctx.Enqueue(node)
	l.adds = append(l.adds, node)
	return node.OutputPort(0)
}

// quadrants splits both operands at the hard geometry. The products of
// the low halves and of the high halves occupy disjoint bit ranges and
// are concatenated; the two cross products are summed and then added
// into the middle.
func (l *lowering) quadrants(a, b netlist.SignalList, width int) (netlist.SignalList, error) {
	m := l.ctx.Arch.Multiplier
	sa, sb := m.SizeA, m.SizeB
	a0, a1 := a[:sa], a[sa:]
	b0, b1 := b[:sb], b[sb:]

	p00, err := l.product(a0, b0, width)
	if err != nil {
		return nil, err
	}
	concat := shift.Resize(l.b, p00, sa+sb)
	if width > sa+sb {
		p11, err := l.product(a1, b1, width-sa-sb)
		if err != nil {
			return nil, err
		}
		concat = concat.Concat(p11)
	}
	concat = shift.Resize(l.b, concat, width)

	s := sa
	if sb < s {
		s = sb
	}
	if width <= s {
		return concat, nil
	}
	p01, err := l.product(a0, b1, width-sb)
	if err != nil {
		return nil, err
	}
	p10, err := l.product(a1, b0, width-sa)
	if err != nil {
		return nil, err
	}
	t01 := shift.Left(l.b, p01, sb-s, width-s)
	t10 := shift.Left(l.b, p10, sa-s, width-s)
	cross := l.add(t01, t10, width-s)
	return l.add(concat, shift.Left(l.b, cross, s, width), width), nil
}

// split splits the oversized operand x at size into two partial
// products with y, combined by one add.
func (l *lowering) split(x, y netlist.SignalList, size, width int) (netlist.SignalList, error) {
	p0, err := l.product(x[:size], y, width)
	if err != nil {
		return nil, err
	}
	if width <= size {
		return p0, nil
	}
	p1, err := l.product(x[size:], y, width-size)
	if err != nil {
		return nil, err
	}
	return l.add(shift.Resize(l.b, p0, width), shift.Left(l.b, p1, size, width), width), nil
}

// hardMultiplier maps operands that fit the hard geometry. The block
// is shrunk to the operands unless fixed_hard_multiplier is set, in
// which case the operands are padded according to mult_padding.
func (l *lowering) hardMultiplier(a, b netlist.SignalList, width int) netlist.SignalList {
	m, opts := l.ctx.Arch.Multiplier, l.ctx.Options
	wa, wb := len(a), len(b)
	if opts.FixedHardMultiplier {
		wa, wb = m.SizeA, m.SizeB
	}
	block := l.b.Block(netlist.HardMultiplier, []int{wa, wb}, []string{"a", "b"}, []int{wa + wb}, []string{"out"})
	block.Model = m.Name
	for i := 0; i < wa; i++ {
		l.nl.Place(l.operandBit(a, i), block, i)
	}
	for i := 0; i < wb; i++ {
		l.nl.Place(l.operandBit(b, i), block, wa+i)
	}
	l.hard++
	return block.OutputPort(0).Slice(0, width)
}

func (l *lowering) operandBit(x netlist.SignalList, i int) *netlist.Pin {
	if i < len(x) {
		return x[i]
	}
	if l.ctx.Options.MultPadding == config.PadDontCare {
		return l.b.PadPin()
	}
	return l.b.Zero()
}
