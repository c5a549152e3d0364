package sim

import (
	"github.com/andrewarchi/netlegal/netlist"
	"github.com/holiman/uint256"
)

// memPort is one access port of a RAM.
type memPort struct {
	addr, data, we int // input port indexes
	out            int // output port index
}

func memPorts(node *netlist.Node) []memPort {
	if node.Op == netlist.DPRAM {
		return []memPort{
			{node.FindInputPort("addr1"), node.FindInputPort("data1"), node.FindInputPort("we1"), node.FindOutputPort("out1")},
			{node.FindInputPort("addr2"), node.FindInputPort("data2"), node.FindInputPort("we2"), node.FindOutputPort("out2")},
		}
	}
	return []memPort{{node.FindInputPort("addr"), node.FindInputPort("data"), node.FindInputPort("we"), node.FindOutputPort("out")}}
}

func (s *Sim) port(node *netlist.Node, p int) *uint256.Int {
	if p < 0 {
		return new(uint256.Int)
	}
	return s.readPort(node, p)
}

func (s *Sim) word(node *netlist.Node, addr *uint256.Int) *uint256.Int {
	if w, ok := s.mems[node][addr.Uint64()]; ok {
		return new(uint256.Int).Set(w)
	}
	return new(uint256.Int)
}

func (s *Sim) evalRead(node *netlist.Node) {
	for _, p := range memPorts(node) {
		if p.out >= 0 {
			s.writePort(node, p.out, s.word(node, s.port(node, p.addr)))
		}
	}
}

type memWrite struct {
	node *netlist.Node
	addr uint64
	data *uint256.Int
}

// Step applies one clock edge: every flip-flop loads its data input and
// every enabled RAM port writes its data word, port 1 before port 2.
// Values are sampled before any state changes, then the combinational
// logic is evaluated again.
func (s *Sim) Step() {
	s.Eval()
	type ffLoad struct {
		q *netlist.Net
		v bool
	}
	var loads []ffLoad
	var writes []memWrite
	for _, node := range s.order {
		switch node.Op {
		case netlist.FF:
			if q := node.Outputs[0]; q != nil {
				loads = append(loads, ffLoad{q.Net, s.pin(node.Inputs[0])})
			}
		case netlist.SPRAM, netlist.DPRAM:
			for _, p := range memPorts(node) {
				if p.we < 0 || !s.pin(node.Inputs[node.InputPortStart(p.we)]) {
					continue
				}
				writes = append(writes, memWrite{node, s.port(node, p.addr).Uint64(), s.port(node, p.data)})
			}
		}
	}
	for _, l := range loads {
		s.setNet(l.q, l.v)
	}
	for _, w := range writes {
		words := s.mems[w.node]
		if words == nil {
			words = make(map[uint64]*uint256.Int)
			s.mems[w.node] = words
		}
		words[w.addr] = w.data
	}
	s.Eval()
}

// Word returns the stored word of a RAM node at an address.
func (s *Sim) Word(node *netlist.Node, addr uint64) *uint256.Int {
	return s.word(node, uint256.NewInt(addr))
}
