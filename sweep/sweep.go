// Package sweep removes logic that cannot affect a top-level output and
// gathers carry-chain statistics on the way.
//
package sweep // import "github.com/andrewarchi/netlegal/sweep"

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/andrewarchi/netlegal/netlist"
	"golang.org/x/tools/container/intsets"
)

// ChainStats summarizes the carry chains of one kind.
type ChainStats struct {
	Count   int
	Longest int
	logSum  float64
}

func (c *ChainStats) add(length int) {
	c.Count++
	if length > c.Longest {
		c.Longest = length
	}
	c.logSum += math.Log(float64(length))
}

// GeoMean returns the geometric mean of the chain lengths, or 0 with no
// chains. It is computed from the sum of logs.
func (c ChainStats) GeoMean() float64 {
	if c.Count == 0 {
		return 0
	}
	return math.Exp(c.logSum / float64(c.Count))
}

func (c ChainStats) String() string {
	return fmt.Sprintf("%d chains, longest %d, geometric mean %.2f", c.Count, c.Longest, c.GeoMean())
}

// Stats is the result of a sweep.
type Stats struct {
	Removed     int
	Adders      ChainStats
	Subtractors ChainStats
}

func (s *Stats) String() string {
	return fmt.Sprintf("removed %d nodes\nadders: %v\nsubtractors: %v\n", s.Removed, s.Adders, s.Subtractors)
}

// Sweep removes every node that is neither a top-level input nor a
// reserved constant and cannot reach a top-level output. It returns the
// number of removed nodes and the statistics of the surviving hard
// adder chains.
func Sweep(nl *netlist.Netlist) *Stats {
	live := mark(nl, runtime.GOMAXPROCS(0))
	dead, stats := propagate(nl, live)
	for _, node := range nl.Nodes() {
		if !live.Has(node.ID) && node.Op != netlist.Input && !nl.IsConstNode(node) {
			dead.Insert(node.ID)
		}
	}
	var ids []int
	for _, id := range dead.AppendTo(nil) {
		if node := nl.Node(id); !node.Removed {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		nl.ReleaseInputs(nl.Node(id))
	}
	for _, id := range ids {
		node := nl.Node(id)
		nl.ReleaseOutputs(node)
		nl.FreeNode(node)
	}
	stats.Removed = len(ids)
	return stats
}

// mark walks backward from every top-level output and returns the IDs
// of the nodes visited. Roots are shared among workers, each with its
// own set; the sets are merged by union. Constant drivers end a walk.
func mark(nl *netlist.Netlist, workers int) *intsets.Sparse {
	if workers < 1 {
		workers = 1
	}
	roots := make(chan *netlist.Node)
	sets := make([]intsets.Sparse, workers)
	var wg sync.WaitGroup
	for i := range sets {
		wg.Add(1)
		go func(set *intsets.Sparse) {
			defer wg.Done()
			for root := range roots {
				walkBack(nl, root, set)
			}
		}(&sets[i])
	}
	for _, root := range nl.Outputs {
		if !root.Removed {
			roots <- root
		}
	}
	close(roots)
	wg.Wait()

	var live intsets.Sparse
	for i := range sets {
		live.UnionWith(&sets[i])
	}
	return &live
}

func walkBack(nl *netlist.Netlist, root *netlist.Node, set *intsets.Sparse) {
	if !set.Insert(root.ID) {
		return
	}
	stack := []*netlist.Node{root}
	for len(stack) != 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, pin := range node.Inputs {
			if pin == nil || pin.Net == nil || nl.IsConst(pin.Net) {
				continue
			}
			for _, driver := range pin.Net.Drivers {
				if driver.Node != nil && set.Insert(driver.Node.ID) {
					stack = append(stack, driver.Node)
				}
			}
		}
	}
}

// propagate walks forward from the top-level inputs and the constant
// drivers. A node missing from live is dead, and so is everything it
// drives. Hard adders whose carry-in is a constant start a chain,
// which is measured while the walk passes.
func propagate(nl *netlist.Netlist, live *intsets.Sparse) (*intsets.Sparse, *Stats) {
	var seen, dead intsets.Sparse
	stats := &Stats{}
	var queue []*netlist.Node
	push := func(node *netlist.Node, removed bool) {
		if removed {
			if dead.Insert(node.ID) {
				seen.Insert(node.ID)
				queue = append(queue, node)
			}
			return
		}
		if seen.Insert(node.ID) {
			queue = append(queue, node)
		}
	}
	push(nl.GND, false)
	push(nl.VCC, false)
	push(nl.Pad, false)
	for _, node := range nl.Inputs {
		if !node.Removed {
			push(node, false)
		}
	}
	for len(queue) != 0 {
		node := queue[0]
		queue = queue[1:]
		removed := dead.Has(node.ID)
		if !removed && !live.Has(node.ID) && node.Op != netlist.Input && !nl.IsConstNode(node) {
			dead.Insert(node.ID)
			removed = true
		}
		if !removed && chainStart(nl, node) {
			n := chainLength(node, &dead, live)
			if node.Subtract {
				stats.Subtractors.add(n)
			} else {
				stats.Adders.add(n)
			}
		}
		for _, out := range node.Outputs {
			if out == nil || out.Net == nil {
				continue
			}
			for _, pin := range out.Net.Fanouts {
				if pin.Node != nil {
					push(pin.Node, removed)
				}
			}
		}
	}
	return &dead, stats
}

func chainStart(nl *netlist.Netlist, node *netlist.Node) bool {
	if node.Op != netlist.HardAdder {
		return false
	}
	cin := carryIn(node)
	return cin != nil && cin.Net != nil && nl.IsConst(cin.Net)
}

func carryIn(node *netlist.Node) *netlist.Pin {
	p := node.FindInputPort("cin")
	if p < 0 {
		return nil
	}
	return node.Inputs[node.InputPortStart(p)]
}

// chainLength follows carry-out to carry-in links from the first block
// of a chain until a removed node or the end of the chain.
func chainLength(node *netlist.Node, dead, live *intsets.Sparse) int {
	n := 0
	for node != nil {
		n++
		cout := node.Outputs[node.OutputPortStart(node.FindOutputPort("cout"))]
		var next *netlist.Node
		if cout != nil && cout.Net != nil {
			for _, pin := range cout.Net.Fanouts {
				if m := pin.Node; m != nil && m.Op == netlist.HardAdder && carryIn(m) == pin &&
					live.Has(m.ID) && !dead.Has(m.ID) {
					next = m
					break
				}
			}
		}
		node = next
	}
	return n
}
