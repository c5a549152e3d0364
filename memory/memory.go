// Package memory legalizes single and dual-port RAM nodes: it splits
// them by depth and width to fit the hard RAM geometry and pads the
// leaves, or expands them into decoder and flip-flop based soft RAM.
//
package memory // import "github.com/andrewarchi/netlegal/memory"

import (
	"github.com/andrewarchi/netlegal/arch"
	"github.com/andrewarchi/netlegal/config"
	"github.com/andrewarchi/netlegal/diag"
	"github.com/andrewarchi/netlegal/legal"
	"github.com/andrewarchi/netlegal/netlist"
)

// MaxSoftAddrWidth is the widest address expanded into soft RAM.
const MaxSoftAddrWidth = 16

// portSet names the ports of one access port of a RAM.
type portSet struct {
	addr, data, we, out string
}

func portSets(op netlist.Op) []portSet {
	if op == netlist.DPRAM {
		return []portSet{
			{"addr1", "data1", "we1", "out1"},
			{"addr2", "data2", "we2", "out2"},
		}
	}
	return []portSet{{"addr", "data", "we", "out"}}
}

// access holds the signals of one access port. Out is only set at the
// top level, where it holds the original output pins.
type access struct {
	addr, data netlist.SignalList
	we         *netlist.Pin
	out        netlist.SignalList
}

// ram is a memory under construction.
type ram struct {
	ports []access
	clk   *netlist.Pin
}

func (r *ram) addrWidth() int { return len(r.ports[0].addr) }
func (r *ram) dataWidth() int { return len(r.ports[0].data) }

type lowering struct {
	ctx   *legal.Context
	nl    *netlist.Netlist
	b     *netlist.Builder
	node  *netlist.Node
	model *arch.MemoryModel

	soft         bool
	depth, width int // split targets in address and data bits
	leaves       int
	floating     netlist.SignalList
}

// Legalize replaces a SPRAM or DPRAM node with hard RAM leaves that fit
// the device geometry, or with soft RAM.
func Legalize(ctx *legal.Context, node *netlist.Node) error {
	_, err := legalize(ctx, node)
	return err
}

func legalize(ctx *legal.Context, node *netlist.Node) (*lowering, error) {
	if !node.Op.IsMemory() {
		return nil, ctx.Errorf(diag.Invariant, node, "legalizing %v node as memory", node.Op)
	}
	nl := ctx.Netlist
	l := &lowering{ctx: ctx, nl: nl, b: nl.BuilderFor(node), node: node, model: ctx.Arch.SPRAM}
	if node.Op == netlist.DPRAM {
		l.model = ctx.Arch.DPRAM
	}
	r, err := l.read()
	if err != nil {
		return nil, err
	}
	l.soft = l.useSoft(r)
	if l.soft {
		if r.addrWidth() > MaxSoftAddrWidth {
			return nil, ctx.Errorf(diag.Unsupported, node, "soft memory of %d address bits exceeds %d",
				r.addrWidth(), MaxSoftAddrWidth)
		}
	} else if err := l.targets(); err != nil {
		return nil, err
	}

	nl.Retire(node)
	res := l.build(r)
	for k, acc := range r.ports {
		for j, orig := range acc.out {
			if orig != nil {
				nl.Drive(orig, res[k][j])
			}
		}
	}
	nl.ReleaseInputs(node)
	nl.ReleaseSignals(l.floating)
	if err := nl.CheckReplaced(node); err != nil {
		return nil, ctx.Errorf(diag.Invariant, node, "%v", err)
	}
	nl.FreeNode(node)
	ctx.Printw("memory legalized", "node", node.Name, "op", node.Op,
		"depth", r.addrWidth(), "width", r.dataWidth(), "soft", l.soft, "leaves", l.leaves)
	return l, nil
}

// read locates the ports of the node by name and normalizes their
// widths. Undriven inputs are tied to ground with a warning.
func (l *lowering) read() (*ram, error) {
	node := l.node
	r := &ram{}
	clk, err := l.findPort(node.InputPortNames, "clk")
	if err != nil {
		return nil, err
	}
	if node.InputPortSizes[clk] != 1 {
		return nil, l.ctx.Errorf(diag.Unsupported, node, "clk port has %d bits", node.InputPortSizes[clk])
	}
	r.clk = node.InputPort(clk)[0]

	sets := portSets(node.Op)
	for _, set := range sets {
		addr, err := l.findPort(node.InputPortNames, set.addr)
		if err != nil {
			return nil, err
		}
		data, err := l.findPort(node.InputPortNames, set.data)
		if err != nil {
			return nil, err
		}
		we, err := l.findPort(node.InputPortNames, set.we)
		if err != nil {
			return nil, err
		}
		out, err := l.findPort(node.OutputPortNames, set.out)
		if err != nil {
			return nil, err
		}
		if node.InputPortSizes[we] != 1 {
			return nil, l.ctx.Errorf(diag.Unsupported, node, "%s port has %d bits", set.we, node.InputPortSizes[we])
		}
		acc := access{
			addr: node.InputPort(addr),
			data: node.InputPort(data),
			we:   node.InputPort(we)[0],
			out:  node.OutputPort(out),
		}
		switch d, o := len(acc.data), len(acc.out); {
		case o > d:
			if err := l.ctx.Warnf(node, "%s port has %d bits but %s has %d; extra outputs tied to pad",
				set.out, o, set.data, d); err != nil {
				return nil, err
			}
			for _, pin := range acc.out[d:] {
				if pin != nil {
					l.nl.Drive(pin, l.b.PadPin())
				}
			}
			acc.out = acc.out[:d]
		case d > o:
			if err := l.ctx.Warnf(node, "%s port has %d bits but %s has %d; extra data left unconnected",
				set.data, d, set.out, o); err != nil {
				return nil, err
			}
			acc.data = acc.data[:o]
		}
		r.ports = append(r.ports, acc)
	}
	if len(r.ports) == 2 {
		p0, p1 := r.ports[0], r.ports[1]
		if len(p0.addr) != len(p1.addr) || len(p0.data) != len(p1.data) {
			return nil, l.ctx.Errorf(diag.Unsupported, node, "ports differ in geometry: %dx%d and %dx%d",
				len(p0.addr), len(p0.data), len(p1.addr), len(p1.data))
		}
	}

	if r.clk, err = l.tie(r.clk, "clk", 0); err != nil {
		return nil, err
	}
	for k := range r.ports {
		acc, set := &r.ports[k], sets[k]
		for i := range acc.addr {
			if acc.addr[i], err = l.tie(acc.addr[i], set.addr, i); err != nil {
				return nil, err
			}
		}
		for i := range acc.data {
			if acc.data[i], err = l.tie(acc.data[i], set.data, i); err != nil {
				return nil, err
			}
		}
		if acc.we, err = l.tie(acc.we, set.we, 0); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (l *lowering) findPort(names []string, name string) (int, error) {
	port := -1
	for i, n := range names {
		if n != name {
			continue
		}
		if port != -1 {
			return -1, l.ctx.Errorf(diag.Ambiguous, l.node, "port %s bound twice", name)
		}
		port = i
	}
	if port == -1 {
		return -1, l.ctx.Errorf(diag.Unsupported, l.node, "missing %s port", name)
	}
	return port, nil
}

// tie replaces an undriven input with a ground pin.
func (l *lowering) tie(sig *netlist.Pin, port string, i int) (*netlist.Pin, error) {
	if sig.Driven() {
		return sig, nil
	}
	if err := l.ctx.Warnf(l.node, "%s[%d] is undriven; tied to ground", port, i); err != nil {
		return nil, err
	}
	if sig != nil {
		l.nl.Release(sig)
	}
	zero := l.b.Zero()
	l.floating = append(l.floating, zero)
	return zero, nil
}

// useSoft reports whether the memory is built in soft logic. Thresholds
// of zero are unset; with both unset only a missing model selects soft
// logic.
func (l *lowering) useSoft(r *ram) bool {
	if l.model == nil {
		return true
	}
	opts := l.ctx.Options
	depth, width := opts.SoftLogicMemoryDepthThreshold, opts.SoftLogicMemoryWidthThreshold
	if depth == 0 && width == 0 {
		return false
	}
	a := r.addrWidth()
	return (depth == 0 || a < 62 && 1<<uint(a) <= depth) &&
		(width == 0 || r.dataWidth() <= width)
}

func (l *lowering) targets() error {
	m, opts := l.model, l.ctx.Options
	l.depth = config.Resolve(opts.SplitMemoryDepth, m.MinAddrWidth, m.MaxAddrWidth)
	l.width = config.Resolve(opts.SplitMemoryWidth, m.MinDataWidth, m.DataWidth)
	switch {
	case l.depth > m.MaxAddrWidth:
		return l.ctx.Errorf(diag.Unsupported, l.node, "split depth of %d address bits exceeds %s bound of %d",
			l.depth, m.Name, m.MaxAddrWidth)
	case l.width > m.DataWidth:
		return l.ctx.Errorf(diag.Unsupported, l.node, "split width of %d bits exceeds %s bound of %d",
			l.width, m.Name, m.DataWidth)
	case l.depth < 0 || l.width < 1:
		return l.ctx.Errorf(diag.Unsupported, l.node, "invalid split geometry of %d address and %d data bits",
			l.depth, l.width)
	}
	return nil
}

// build constructs r and returns the output signals of each port.
func (l *lowering) build(r *ram) []netlist.SignalList {
	switch {
	case l.soft:
		return l.softRAM(r)
	case r.addrWidth() > l.depth:
		return l.splitDepth(r)
	case r.dataWidth() > l.width:
		return l.splitWidth(r)
	}
	return l.hard(r)
}

// splitDepth peels the address MSB of every port. The upper half is
// written when the MSB is set and the lower half otherwise; reads are
// merged by a mux on the MSB.
func (l *lowering) splitDepth(r *ram) []netlist.SignalList {
	hi, lo := &ram{clk: r.clk}, &ram{clk: r.clk}
	msbs := make(netlist.SignalList, len(r.ports))
	for k, acc := range r.ports {
		msb := acc.addr.MSB()
		addr := acc.addr[:len(acc.addr)-1]
		msbs[k] = msb
		hi.ports = append(hi.ports, access{addr: addr, data: acc.data, we: l.b.And(acc.we, msb)})
		lo.ports = append(lo.ports, access{addr: addr, data: acc.data, we: l.b.And(acc.we, l.b.Not(msb))})
	}
	out1 := l.build(hi)
	out0 := l.build(lo)
	res := make([]netlist.SignalList, len(r.ports))
	for k := range res {
		res[k] = make(netlist.SignalList, len(out0[k]))
		for j := range res[k] {
			res[k][j] = l.b.Mux2(msbs[k], out0[k][j], out1[k][j])
		}
	}
	return res
}

// splitWidth partitions the data ports into chunks of the target width.
// The last chunk is built first so that it takes the original pins.
func (l *lowering) splitWidth(r *ram) []netlist.SignalList {
	w := r.dataWidth()
	n := (w + l.width - 1) / l.width
	res := make([]netlist.SignalList, len(r.ports))
	for k := range res {
		res[k] = make(netlist.SignalList, w)
	}
	for i := n - 1; i >= 0; i-- {
		lo, hi := i*l.width, min((i+1)*l.width, w)
		sub := &ram{clk: r.clk}
		for _, acc := range r.ports {
			sub.ports = append(sub.ports, access{addr: acc.addr, data: acc.data[lo:hi], we: acc.we})
		}
		for k, out := range l.build(sub) {
			copy(res[k][lo:hi], out)
		}
	}
	return res
}

// hard maps r onto one hard RAM, padding the address with ground and
// the data with the pad constant up to the model geometry.
func (l *lowering) hard(r *ram) []netlist.SignalList {
	m := l.model
	a, w := max(r.addrWidth(), m.MinAddrWidth), m.DataWidth
	sets := portSets(l.node.Op)
	var inSizes []int
	var inNames []string
	for _, set := range sets {
		inSizes, inNames = append(inSizes, a), append(inNames, set.addr)
	}
	for _, set := range sets {
		inSizes, inNames = append(inSizes, w), append(inNames, set.data)
	}
	for _, set := range sets {
		inSizes, inNames = append(inSizes, 1), append(inNames, set.we)
	}
	inSizes, inNames = append(inSizes, 1), append(inNames, "clk")
	outSizes := make([]int, len(sets))
	outNames := make([]string, len(sets))
	for k, set := range sets {
		outSizes[k], outNames[k] = w, set.out
	}

	node := l.b.Block(l.node.Op, inSizes, inNames, outSizes, outNames)
	node.Model = m.Name
	res := make([]netlist.SignalList, len(sets))
	for k, set := range sets {
		acc := r.ports[k]
		l.place(node, set.addr, acc.addr, l.b.Zero)
		l.place(node, set.data, acc.data, l.b.PadPin)
		l.place(node, set.we, netlist.SignalList{acc.we}, nil)
		res[k] = node.OutputPort(k).Slice(0, r.dataWidth())
	}
	l.place(node, "clk", netlist.SignalList{r.clk}, nil)
	l.leaves++
	return res
}

// place fills the named input port of node with sigs, padding the
// remaining slots with pins from pad.
func (l *lowering) place(node *netlist.Node, port string, sigs netlist.SignalList, pad func() *netlist.Pin) {
	p := node.FindInputPort(port)
	start := node.InputPortStart(p)
	for i := 0; i < node.InputPortSizes[p]; i++ {
		if i < len(sigs) {
			l.nl.Place(sigs[i], node, start+i)
		} else {
			l.nl.Place(pad(), node, start+i)
		}
	}
}
