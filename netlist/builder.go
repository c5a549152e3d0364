package netlist

import (
	"fmt"
	"go/token"
)

// Builder assists in constructing replacement logic for a node. Created
// nodes are named after Base and carry Pos for diagnostics.
type Builder struct {
	nl   *Netlist
	Base string
	Pos  token.Pos
}

// NewBuilder constructs a builder naming nodes after base.
func (nl *Netlist) NewBuilder(base string, pos token.Pos) *Builder {
	return &Builder{nl: nl, Base: base, Pos: pos}
}

// BuilderFor constructs a builder naming nodes after an existing node.
func (nl *Netlist) BuilderFor(node *Node) *Builder {
	return nl.NewBuilder(node.Name, node.Pos)
}

// Netlist returns the netlist being built.
func (b *Builder) Netlist() *Netlist { return b.nl }

// Node creates a bare node of op with no ports.
func (b *Builder) Node(op Op) *Node {
	return b.nl.NewNode(op, b.nl.UniqueName(b.Base), b.Pos)
}

// Zero returns a floating pin on the constant 0 net.
func (b *Builder) Zero() *Pin { return b.nl.Const(b.nl.Zero) }

// One returns a floating pin on the constant 1 net.
func (b *Builder) One() *Pin { return b.nl.Const(b.nl.One) }

// PadPin returns a floating pin on the don't care net.
func (b *Builder) PadPin() *Pin { return b.nl.Const(b.nl.PadNet) }

// Bit returns a floating pin on the constant net for v.
func (b *Builder) Bit(v bool) *Pin {
	if v {
		return b.One()
	}
	return b.Zero()
}

// Gate creates a gate with one input port holding ins and a single
// output driving a fresh net. It returns the output pin.
func (b *Builder) Gate(op Op, ins ...*Pin) *Pin {
	node := b.Node(op)
	switch op {
	case Mux2:
		if len(ins) != 3 {
			panic(fmt.Sprintf("netlist: mux2 needs 3 inputs, got %d", len(ins)))
		}
		node.AddInputPort(1, "sel")
		node.AddInputPort(2, "data")
	case SelectMux:
		if len(ins)%2 != 0 {
			panic(fmt.Sprintf("netlist: selmux needs paired inputs, got %d", len(ins)))
		}
		node.AddInputPort(len(ins)/2, "sel")
		node.AddInputPort(len(ins)/2, "data")
	default:
		node.AddInputPort(len(ins), "in")
	}
	for i, in := range ins {
		b.nl.Place(in, node, i)
	}
	return b.output(node, 0, "out")
}

func (b *Builder) output(node *Node, slot int, name string) *Pin {
	if len(node.Outputs) <= slot {
		node.AddOutputPort(1, name)
	}
	out := b.nl.NewPin(fmt.Sprintf("%s.%s", node.Name, name))
	b.nl.AttachOutput(node, slot, out)
	b.nl.AddDriver(b.nl.NewNet(node.Name), out)
	return out
}

// Not returns NOT x.
func (b *Builder) Not(x *Pin) *Pin { return b.Gate(Not, x) }

// And returns the conjunction of xs.
func (b *Builder) And(xs ...*Pin) *Pin { return b.Gate(And, xs...) }

// Or returns the disjunction of xs.
func (b *Builder) Or(xs ...*Pin) *Pin { return b.Gate(Or, xs...) }

// Xor returns the parity of xs.
func (b *Builder) Xor(xs ...*Pin) *Pin { return b.Gate(Xor, xs...) }

// Xnor returns the inverted parity of xs.
func (b *Builder) Xnor(xs ...*Pin) *Pin { return b.Gate(Xnor, xs...) }

// Mux2 returns d1 when sel is 1 and d0 otherwise.
func (b *Builder) Mux2(sel, d0, d1 *Pin) *Pin { return b.Gate(Mux2, sel, d0, d1) }

// SelectMux returns the OR over i of sel[i] AND data[i]. The select
// lines are expected to be one-hot.
func (b *Builder) SelectMux(sel, data SignalList) *Pin {
	if len(sel) != len(data) {
		panic(fmt.Sprintf("netlist: selmux with %d selects and %d data", len(sel), len(data)))
	}
	return b.Gate(SelectMux, sel.Concat(data)...)
}

// FF creates a flip-flop clocked by clk with an empty data slot, so
// that feedback logic can be built from its output before the data
// input is placed with SetD.
func (b *Builder) FF(clk *Pin) (*Node, *Pin) {
	node := b.Node(FF)
	node.AddInputPort(1, "d")
	node.AddInputPort(1, "clk")
	if clk != nil {
		b.nl.Place(clk, node, 1)
	}
	return node, b.output(node, 0, "q")
}

// SetD places the data input of a flip-flop made by FF.
func (b *Builder) SetD(ff *Node, d *Pin) { b.nl.Place(d, ff, 0) }

// Block creates a node of op with the given input and output port
// sizes and names. Input slots are left empty; every output slot gets
// a pin driving a fresh net.
func (b *Builder) Block(op Op, inSizes []int, inNames []string, outSizes []int, outNames []string) *Node {
	node := b.Node(op)
	for i, size := range inSizes {
		node.AddInputPort(size, inNames[i])
	}
	for i, size := range outSizes {
		start := node.AddOutputPort(size, outNames[i])
		for j := 0; j < size; j++ {
			out := b.nl.NewPin(fmt.Sprintf("%s.%s[%d]", node.Name, outNames[i], j))
			b.nl.AttachOutput(node, start+j, out)
			b.nl.AddDriver(b.nl.NewNet(out.Name), out)
		}
	}
	return node
}

// NewInputBus adds width top-level input nodes named name[i] and
// returns their output pins, least significant first.
func (nl *Netlist) NewInputBus(name string, width int) SignalList {
	bus := make(SignalList, width)
	for i := range bus {
		node := nl.NewNode(Input, fmt.Sprintf("%s[%d]", name, i), token.NoPos)
		node.AddOutputPort(1, name)
		pin := nl.NewPin(node.Name)
		nl.AttachOutput(node, 0, pin)
		nl.AddDriver(nl.NewNet(node.Name), pin)
		nl.Inputs = append(nl.Inputs, node)
		bus[i] = pin
	}
	return bus
}

// NewOutputBus adds width top-level output nodes named name[i] reading
// the signals in bus and returns the output nodes.
func (nl *Netlist) NewOutputBus(name string, bus SignalList) []*Node {
	nodes := make([]*Node, len(bus))
	for i, sig := range bus {
		node := nl.NewNode(Output, fmt.Sprintf("%s[%d]", name, i), token.NoPos)
		node.AddInputPort(1, name)
		nl.Place(sig, node, 0)
		nl.Outputs = append(nl.Outputs, node)
		nodes[i] = node
	}
	return nodes
}

// NewOperator creates an operator node reading the given input buses
// and driving outWidths fresh output nets per output port. It returns
// the node; its outputs can be read with OutputPort.
func (nl *Netlist) NewOperator(op Op, name string, pos token.Pos, ins []SignalList, inNames []string, outWidths []int, outNames []string) *Node {
	node := nl.NewNode(op, name, pos)
	for i, bus := range ins {
		start := node.AddInputPort(len(bus), inNames[i])
		for j, sig := range bus {
			if sig != nil {
				nl.Place(sig, node, start+j)
			}
		}
	}
	for i, width := range outWidths {
		start := node.AddOutputPort(width, outNames[i])
		for j := 0; j < width; j++ {
			pin := nl.NewPin(fmt.Sprintf("%s.%s[%d]", name, outNames[i], j))
			nl.AttachOutput(node, start+j, pin)
			nl.AddDriver(nl.NewNet(pin.Name), pin)
		}
	}
	return node
}
