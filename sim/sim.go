// Package sim is a zero-delay bit-level simulator for netlists. It
// evaluates combinational nodes in levelized order and updates
// flip-flops and RAMs on a single implicit clock.
//
// Constant pad nets simulate as 0. Unconnected inputs read 0.
//
package sim // import "github.com/andrewarchi/netlegal/sim"

import (
	"strings"

	"github.com/andrewarchi/netlegal/internal/bitset"
	"github.com/andrewarchi/netlegal/internal/digraph"
	"github.com/andrewarchi/netlegal/netlist"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// MaxBusWidth is the widest port that arithmetic operators and RAM
// words may have.
const MaxBusWidth = 256

// Sim holds the net values and sequential state of a netlist.
type Sim struct {
	nl    *netlist.Netlist
	order []*netlist.Node
	vals  bitset.Bitset
	mems  map[*netlist.Node]map[uint64]*uint256.Int
}

// New levelizes the netlist and constructs a simulator with every net
// and memory word at 0.
func New(nl *netlist.Netlist) (*Sim, error) {
	order, err := Levelize(nl)
	if err != nil {
		return nil, err
	}
	for _, node := range order {
		if err := checkWidths(node); err != nil {
			return nil, err
		}
	}
	s := &Sim{
		nl:    nl,
		order: order,
		vals:  bitset.NewBitset(nl.NumNets()),
		mems:  make(map[*netlist.Node]map[uint64]*uint256.Int),
	}
	s.Eval()
	return s, nil
}

func checkWidths(node *netlist.Node) error {
	switch node.Op {
	case netlist.Add, netlist.Minus, netlist.Multiply, netlist.HardMultiplier, netlist.SPRAM, netlist.DPRAM:
		for i, size := range node.InputPortSizes {
			if size > MaxBusWidth {
				return errors.Errorf("sim: %s port %s is %d bits wide", node.Name, node.InputPortNames[i], size)
			}
		}
		for i, size := range node.OutputPortSizes {
			if size > MaxBusWidth {
				return errors.Errorf("sim: %s port %s is %d bits wide", node.Name, node.OutputPortNames[i], size)
			}
		}
	}
	return nil
}

// Levelize orders the live nodes so that every node follows the
// drivers of its combinational inputs. Flip-flop inputs and the
// synchronous ports of RAMs break the ordering; RAM reads are
// asynchronous, so RAM addresses do not. A combinational loop is an
// error.
func Levelize(nl *netlist.Netlist) ([]*netlist.Node, error) {
	g := make(digraph.Digraph, nl.NumNodes())
	for _, node := range nl.Nodes() {
		for _, pin := range node.Inputs {
			if pin == nil || pin.Net == nil || !combinational(node, pin) {
				continue
			}
			for _, driver := range pin.Net.Drivers {
				if driver.Node != nil {
					g.AddEdge(driver.Node.ID, node.ID)
				}
			}
		}
	}
	if cycles := g.Cycles(); len(cycles) != 0 {
		names := make([]string, len(cycles[0]))
		for i, id := range cycles[0] {
			names[i] = nl.Node(id).Name
		}
		return nil, errors.Errorf("sim: combinational loop through %s", strings.Join(names, ", "))
	}
	var order []*netlist.Node
	for _, id := range g.TopoOrder() {
		if node := nl.Node(id); !node.Removed {
			order = append(order, node)
		}
	}
	return order, nil
}

func combinational(node *netlist.Node, pin *netlist.Pin) bool {
	switch node.Op {
	case netlist.FF:
		return false
	case netlist.SPRAM, netlist.DPRAM:
		return strings.HasPrefix(pin.Mapping, "addr")
	}
	return true
}

// Netlist returns the simulated netlist.
func (s *Sim) Netlist() *netlist.Netlist { return s.nl }

// Net returns the value of a net. Nets allocated after New read 0
// until they are set.
func (s *Sim) Net(net *netlist.Net) bool {
	if net == nil {
		return false
	}
	s.vals = s.vals.Grow(net.ID + 1)
	return s.vals.Test(net.ID)
}

func (s *Sim) setNet(net *netlist.Net, v bool) {
	if net != nil {
		s.vals = s.vals.Grow(net.ID + 1)
		s.vals.Put(net.ID, v)
	}
}

func (s *Sim) pin(pin *netlist.Pin) bool {
	return pin != nil && s.Net(pin.Net)
}

// SetBus assigns v to the nets of a bus, least significant bit first,
// such as the pins returned by NewInputBus. Call Eval to propagate.
func (s *Sim) SetBus(bus netlist.SignalList, v *uint256.Int) {
	for i, pin := range bus {
		if pin != nil {
			s.setNet(pin.Net, bit(v, i))
		}
	}
}

// SetUint64 assigns v to the nets of a bus.
func (s *Sim) SetUint64(bus netlist.SignalList, v uint64) {
	s.SetBus(bus, uint256.NewInt(v))
}

// ReadBus returns the value on the nets of a bus.
func (s *Sim) ReadBus(bus netlist.SignalList) *uint256.Int {
	v := new(uint256.Int)
	for i, pin := range bus {
		if s.pin(pin) {
			setBit(v, i)
		}
	}
	return v
}

// Read returns the value read by a list of output nodes.
func (s *Sim) Read(outputs []*netlist.Node) *uint256.Int {
	v := new(uint256.Int)
	for i, node := range outputs {
		if len(node.Inputs) != 0 && s.pin(node.Inputs[0]) {
			setBit(v, i)
		}
	}
	return v
}

// Uint64 returns the low 64 bits read by a list of output nodes.
func (s *Sim) Uint64(outputs []*netlist.Node) uint64 {
	return s.Read(outputs).Uint64()
}

func bit(v *uint256.Int, i int) bool {
	if i >= MaxBusWidth {
		return false
	}
	return v[i/64]>>(uint(i)%64)&1 != 0
}

func setBit(v *uint256.Int, i int) {
	if i < MaxBusWidth {
		v[i/64] |= 1 << (uint(i) % 64)
	}
}

func truncate(v *uint256.Int, width int) *uint256.Int {
	if width >= MaxBusWidth {
		return v
	}
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(width))
	mask.SubUint64(mask, 1)
	return v.And(v, mask)
}

func (s *Sim) readPort(node *netlist.Node, p int) *uint256.Int {
	return s.ReadBus(node.InputPort(p))
}

func (s *Sim) writePort(node *netlist.Node, p int, v *uint256.Int) {
	for i, pin := range node.OutputPort(p) {
		if pin != nil {
			s.setNet(pin.Net, bit(v, i))
		}
	}
}

// Eval propagates values through the combinational logic.
func (s *Sim) Eval() {
	for _, node := range s.order {
		s.eval(node)
	}
}

func (s *Sim) eval(node *netlist.Node) {
	switch node.Op {
	case netlist.Input, netlist.Output, netlist.FF:
	case netlist.GND, netlist.Pad:
		s.setOut(node, false)
	case netlist.VCC:
		s.setOut(node, true)
	case netlist.Buf:
		s.setOut(node, s.pin(node.Inputs[0]))
	case netlist.Not:
		s.setOut(node, !s.pin(node.Inputs[0]))
	case netlist.And, netlist.Nand:
		v := true
		for _, pin := range node.Inputs {
			v = v && s.pin(pin)
		}
		s.setOut(node, v != (node.Op == netlist.Nand))
	case netlist.Or, netlist.Nor:
		v := false
		for _, pin := range node.Inputs {
			v = v || s.pin(pin)
		}
		s.setOut(node, v != (node.Op == netlist.Nor))
	case netlist.Xor, netlist.Xnor:
		v := false
		for _, pin := range node.Inputs {
			v = v != s.pin(pin)
		}
		s.setOut(node, v != (node.Op == netlist.Xnor))
	case netlist.Mux2:
		if s.pin(node.Inputs[0]) {
			s.setOut(node, s.pin(node.Inputs[2]))
		} else {
			s.setOut(node, s.pin(node.Inputs[1]))
		}
	case netlist.SelectMux:
		n := node.InputPortSizes[0]
		v := false
		for i := 0; i < n; i++ {
			v = v || s.pin(node.Inputs[i]) && s.pin(node.Inputs[n+i])
		}
		s.setOut(node, v)
	case netlist.Add, netlist.Minus, netlist.Multiply:
		s.evalOperator(node)
	case netlist.HardAdder:
		s.evalAdder(node)
	case netlist.HardMultiplier:
		v := new(uint256.Int).Mul(s.readPort(node, 0), s.readPort(node, 1))
		s.writePort(node, 0, v)
	case netlist.SPRAM, netlist.DPRAM:
		s.evalRead(node)
	default:
		panic(errors.Errorf("sim: unsupported op %v at %s", node.Op, node.Name))
	}
}

func (s *Sim) setOut(node *netlist.Node, v bool) {
	if len(node.Outputs) != 0 && node.Outputs[0] != nil {
		s.setNet(node.Outputs[0].Net, v)
	}
}

func (s *Sim) evalOperator(node *netlist.Node) {
	a := s.readPort(node, 0)
	v := new(uint256.Int)
	switch {
	case node.Op == netlist.Multiply:
		v.Mul(a, s.readPort(node, 1))
	case node.Op == netlist.Add:
		v.Set(a)
		if len(node.InputPortSizes) > 1 {
			v.Add(v, s.readPort(node, 1))
		}
	case len(node.InputPortSizes) > 1:
		v.Sub(a, s.readPort(node, 1))
	default:
		v.Neg(a)
	}
	s.writePort(node, 0, truncate(v, node.OutputPortSizes[0]))
}

// evalAdder ripples a + b + cin through the width of sumout.
func (s *Sim) evalAdder(node *netlist.Node) {
	a, b := node.InputPort(0), node.InputPort(1)
	c := s.pin(node.Inputs[node.InputPortStart(2)])
	sum := node.OutputPort(1)
	for i, out := range sum {
		var x, y bool
		if i < len(a) {
			x = s.pin(a[i])
		}
		if i < len(b) {
			y = s.pin(b[i])
		}
		if out != nil {
			s.setNet(out.Net, x != y != c)
		}
		c = x && y || c && (x != y)
	}
	if cout := node.Outputs[0]; cout != nil {
		s.setNet(cout.Net, c)
	}
}
