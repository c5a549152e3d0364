// Package netlist implements the gate-level graph shared by the
// legalization passes: nodes, pins, nets and signal lists.
//
// Passes never touch the internals of a node, pin or net directly;
// every mutation goes through the kernel methods on Netlist, which keep
// the slot, driver and fanout arrays consistent.
//
package netlist // import "github.com/andrewarchi/netlegal/netlist"

import (
	"fmt"
	"go/token"
)

// Netlist is a graph of operator nodes joined by nets. Nodes, pins and
// nets are owned by the netlist and addressed by stable IDs; removal
// tombstones an entity rather than reusing its ID.
type Netlist struct {
	Name string
	Fset *token.FileSet

	nodes []*Node
	pins  []*Pin
	nets  []*Net

	GND, VCC, Pad     *Node // Reserved constant drivers
	Zero, One, PadNet *Net  // Nets driven by GND, VCC and Pad
	Inputs, Outputs   []*Node
	stamp             uint32
	uniq              int
}

// Node is a single operator or gate instance.
type Node struct {
	ID   int
	Name string
	Op   Op
	Pos  token.Pos // Originating source position, if any

	Inputs          []*Pin // Input slots; nil when empty
	InputPortSizes  []int
	InputPortNames  []string
	Outputs         []*Pin // Output slots; nil when empty
	OutputPortSizes []int
	OutputPortNames []string

	Model    string // Hard block model name once mapped
	Subtract bool   // HardAdder produced from a subtraction
	Stamp    uint32 // Traversal generation of the last visit
	Removed  bool

	retiring bool
}

// Pin is the endpoint of a wire on one side.
type Pin struct {
	ID       int
	Name     string
	Mapping  string // Port role such as "addr", "data" or "we1"
	Type     PinType
	Node     *Node // Owning node; nil while floating
	Slot     int
	Net      *Net
	NetIndex int // Index in Net.Fanouts or Net.Drivers

	freed bool
}

// Net is a wire with a small set of drivers and an ordered fanout.
type Net struct {
	ID      int
	Name    string
	Drivers []*Pin
	Fanouts []*Pin
	Removed bool
}

// PinType is the role of a pin.
type PinType uint8

// Pin roles. A pin has no role until it is attached to a slot or net.
const (
	Unset PinType = iota
	InputPin
	OutputPin
)

// New constructs an empty netlist with its reserved constant nodes.
func New(name string) *Netlist {
	nl := &Netlist{Name: name, Fset: token.NewFileSet()}
	nl.GND, nl.Zero = nl.newConst(GND, "gnd")
	nl.VCC, nl.One = nl.newConst(VCC, "vcc")
	nl.Pad, nl.PadNet = nl.newConst(Pad, "pad")
	return nl
}

func (nl *Netlist) newConst(op Op, name string) (*Node, *Net) {
	node := nl.NewNode(op, name, token.NoPos)
	node.AddOutputPort(1, name)
	pin := nl.NewPin(name)
	nl.AttachOutput(node, 0, pin)
	net := nl.NewNet(name + "_net")
	nl.AddDriver(net, pin)
	return node, net
}

// NewNode allocates a node with no ports.
func (nl *Netlist) NewNode(op Op, name string, pos token.Pos) *Node {
	node := &Node{ID: len(nl.nodes), Name: name, Op: op, Pos: pos}
	nl.nodes = append(nl.nodes, node)
	return node
}

// NewPin allocates a floating pin with no role.
func (nl *Netlist) NewPin(name string) *Pin {
	pin := &Pin{ID: len(nl.pins), Name: name, Slot: -1, NetIndex: -1}
	nl.pins = append(nl.pins, pin)
	return pin
}

// NewNet allocates a net with no drivers or fanout.
func (nl *Netlist) NewNet(name string) *Net {
	net := &Net{ID: len(nl.nets), Name: name}
	nl.nets = append(nl.nets, net)
	return net
}

// UniqueName returns base suffixed with a counter unique within the
// netlist.
func (nl *Netlist) UniqueName(base string) string {
	nl.uniq++
	return fmt.Sprintf("%s~%d", base, nl.uniq)
}

// Nodes returns the live nodes in allocation order.
func (nl *Netlist) Nodes() []*Node {
	nodes := make([]*Node, 0, len(nl.nodes))
	for _, node := range nl.nodes {
		if !node.Removed {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// Nets returns the live nets in allocation order.
func (nl *Netlist) Nets() []*Net {
	nets := make([]*Net, 0, len(nl.nets))
	for _, net := range nl.nets {
		if !net.Removed {
			nets = append(nets, net)
		}
	}
	return nets
}

// Node returns the node with the given ID, including tombstones.
func (nl *Netlist) Node(id int) *Node { return nl.nodes[id] }

// NumNodes returns the number of node IDs allocated.
func (nl *Netlist) NumNodes() int { return len(nl.nodes) }

// NumNets returns the number of net IDs allocated.
func (nl *Netlist) NumNets() int { return len(nl.nets) }

// NextStamp starts a new traversal generation. A node is visited in
// the current traversal when its Stamp equals the returned value.
func (nl *Netlist) NextStamp() uint32 {
	nl.stamp++
	return nl.stamp
}

// Visit marks the node for traversal generation stamp and returns
// whether it was unvisited.
func (node *Node) Visit(stamp uint32) bool {
	if node.Stamp == stamp {
		return false
	}
	node.Stamp = stamp
	return true
}

// IsConst returns whether the net is one of the reserved constant nets.
func (nl *Netlist) IsConst(net *Net) bool {
	return net == nl.Zero || net == nl.One || net == nl.PadNet
}

// IsConstNode returns whether the node is a reserved constant driver.
func (nl *Netlist) IsConstNode(node *Node) bool {
	return node == nl.GND || node == nl.VCC || node == nl.Pad
}

// Position returns the resolved source position of a node.
func (nl *Netlist) Position(node *Node) token.Position {
	if node == nil || !node.Pos.IsValid() {
		return token.Position{}
	}
	return nl.Fset.Position(node.Pos)
}

// AddInputPort appends an input port of size empty slots and returns
// the index of its first slot.
func (node *Node) AddInputPort(size int, name string) int {
	start := len(node.Inputs)
	node.InputPortSizes = append(node.InputPortSizes, size)
	node.InputPortNames = append(node.InputPortNames, name)
	node.Inputs = append(node.Inputs, make([]*Pin, size)...)
	return start
}

// AddOutputPort appends an output port of size empty slots and returns
// the index of its first slot.
func (node *Node) AddOutputPort(size int, name string) int {
	start := len(node.Outputs)
	node.OutputPortSizes = append(node.OutputPortSizes, size)
	node.OutputPortNames = append(node.OutputPortNames, name)
	node.Outputs = append(node.Outputs, make([]*Pin, size)...)
	return start
}

// InputPortStart returns the first slot of input port p.
func (node *Node) InputPortStart(p int) int { return portStart(node.InputPortSizes, p) }

// OutputPortStart returns the first slot of output port p.
func (node *Node) OutputPortStart(p int) int { return portStart(node.OutputPortSizes, p) }

func portStart(sizes []int, p int) int {
	start := 0
	for i := 0; i < p; i++ {
		start += sizes[i]
	}
	return start
}

// InputPort returns a copy of the slots of input port p.
func (node *Node) InputPort(p int) SignalList {
	start := node.InputPortStart(p)
	return append(SignalList(nil), node.Inputs[start:start+node.InputPortSizes[p]]...)
}

// OutputPort returns a copy of the slots of output port p.
func (node *Node) OutputPort(p int) SignalList {
	start := node.OutputPortStart(p)
	return append(SignalList(nil), node.Outputs[start:start+node.OutputPortSizes[p]]...)
}

// FindInputPort returns the index of the input port with the given
// name, or -1.
func (node *Node) FindInputPort(name string) int {
	for i, n := range node.InputPortNames {
		if n == name {
			return i
		}
	}
	return -1
}

// FindOutputPort returns the index of the output port with the given
// name, or -1.
func (node *Node) FindOutputPort(name string) int {
	for i, n := range node.OutputPortNames {
		if n == name {
			return i
		}
	}
	return -1
}

// NumInputPins returns the number of occupied input slots.
func (node *Node) NumInputPins() int { return countPins(node.Inputs) }

// NumOutputPins returns the number of occupied output slots.
func (node *Node) NumOutputPins() int { return countPins(node.Outputs) }

func countPins(slots []*Pin) int {
	n := 0
	for _, pin := range slots {
		if pin != nil {
			n++
		}
	}
	return n
}

// DriverNode returns the node driving the net of an input pin, or nil.
func (pin *Pin) DriverNode() *Node {
	if pin == nil || pin.Net == nil || len(pin.Net.Drivers) == 0 {
		return nil
	}
	return pin.Net.Drivers[0].Node
}

// Driven returns whether the pin's net has a driver.
func (pin *Pin) Driven() bool {
	return pin != nil && pin.Net != nil && len(pin.Net.Drivers) != 0
}

func (node *Node) String() string {
	if node == nil {
		return "<nil>"
	}
	return node.Name
}

func (pin *Pin) String() string {
	if pin == nil {
		return "<nil>"
	}
	if pin.Node != nil {
		return fmt.Sprintf("%s.%d", pin.Node.Name, pin.Slot)
	}
	return pin.Name
}

func (net *Net) String() string {
	if net == nil {
		return "<nil>"
	}
	return net.Name
}

func (typ PinType) String() string {
	switch typ {
	case InputPin:
		return "input"
	case OutputPin:
		return "output"
	}
	return "unset"
}
