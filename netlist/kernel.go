package netlist

import (
	"fmt"
	"strings"
)

// InvariantError is given when a kernel call would break a structural
// invariant of the graph. It indicates a bug in a pass, not bad input.
type InvariantError struct {
	Node *Node
	Pin  *Pin
	Net  *Net
	Msg  string
}

func (err *InvariantError) Error() string {
	var b strings.Builder
	b.WriteString("netlist: ")
	b.WriteString(err.Msg)
	if err.Node != nil {
		fmt.Fprintf(&b, " (node %s)", err.Node.Name)
	}
	if err.Pin != nil {
		fmt.Fprintf(&b, " (pin %s)", err.Pin)
	}
	if err.Net != nil {
		fmt.Fprintf(&b, " (net %s)", err.Net.Name)
	}
	return b.String()
}

func violation(node *Node, pin *Pin, net *Net, format string, args ...interface{}) {
	panic(&InvariantError{node, pin, net, fmt.Sprintf(format, args...)})
}

// AttachInput attaches pin to an empty input slot of node. The pin's
// mapping becomes the name of the port holding the slot.
func (nl *Netlist) AttachInput(node *Node, slot int, pin *Pin) {
	nl.checkAttach(node, slot, pin, InputPin)
	if node.Inputs[slot] != nil {
		violation(node, pin, nil, "input slot %d occupied", slot)
	}
	pin.Type = InputPin
	pin.Node, pin.Slot = node, slot
	pin.Mapping = portName(node.InputPortSizes, node.InputPortNames, slot)
	node.Inputs[slot] = pin
}

// AttachOutput attaches pin to an empty output slot of node.
func (nl *Netlist) AttachOutput(node *Node, slot int, pin *Pin) {
	nl.checkAttach(node, slot, pin, OutputPin)
	if node.Outputs[slot] != nil {
		violation(node, pin, nil, "output slot %d occupied", slot)
	}
	pin.Type = OutputPin
	pin.Node, pin.Slot = node, slot
	pin.Mapping = portName(node.OutputPortSizes, node.OutputPortNames, slot)
	node.Outputs[slot] = pin
}

func (nl *Netlist) checkAttach(node *Node, slot int, pin *Pin, typ PinType) {
	switch {
	case pin.freed:
		violation(node, pin, nil, "attaching freed pin")
	case node.Removed:
		violation(node, pin, nil, "attaching pin to removed node")
	case pin.Node != nil:
		violation(node, pin, nil, "pin already owned by %s", pin.Node.Name)
	case pin.Type != Unset && pin.Type != typ:
		violation(node, pin, nil, "%s pin in %s slot", pin.Type, typ)
	}
	slots := node.Inputs
	if typ == OutputPin {
		slots = node.Outputs
	}
	if slot < 0 || slot >= len(slots) {
		violation(node, pin, nil, "%s slot %d out of range [0, %d)", typ, slot, len(slots))
	}
}

func portName(sizes []int, names []string, slot int) string {
	for i, size := range sizes {
		if slot < size {
			return names[i]
		}
		slot -= size
	}
	return ""
}

// Detach removes pin from its owner's slot without touching its net.
func (nl *Netlist) Detach(pin *Pin) {
	node := pin.Node
	if node == nil {
		return
	}
	slots := node.Inputs
	if pin.Type == OutputPin {
		slots = node.Outputs
	}
	if slots[pin.Slot] != pin {
		violation(node, pin, nil, "pin not in its recorded slot %d", pin.Slot)
	}
	slots[pin.Slot] = nil
	pin.Node, pin.Slot = nil, -1
}

// AddDriver attaches pin as a driver of net.
func (nl *Netlist) AddDriver(net *Net, pin *Pin) {
	if pin.Net != nil {
		violation(pin.Node, pin, net, "pin already on net %s", pin.Net.Name)
	}
	if pin.Type == InputPin {
		violation(pin.Node, pin, net, "input pin as net driver")
	}
	if net.Removed {
		violation(pin.Node, pin, net, "driving removed net")
	}
	pin.Type = OutputPin
	pin.Net = net
	pin.NetIndex = len(net.Drivers)
	net.Drivers = append(net.Drivers, pin)
}

// AddFanout attaches pin to the end of the fanout of net.
func (nl *Netlist) AddFanout(net *Net, pin *Pin) {
	if pin.Net != nil {
		violation(pin.Node, pin, net, "pin already on net %s", pin.Net.Name)
	}
	if pin.Type == OutputPin {
		violation(pin.Node, pin, net, "output pin as net fanout")
	}
	if net.Removed {
		violation(pin.Node, pin, net, "fanout on removed net")
	}
	pin.Type = InputPin
	pin.Net = net
	pin.NetIndex = len(net.Fanouts)
	net.Fanouts = append(net.Fanouts, pin)
}

// RemoveFanout removes an input pin from its net's fanout, compacting
// and re-indexing the remainder.
func (nl *Netlist) RemoveFanout(pin *Pin) {
	net := pin.Net
	if net == nil {
		return
	}
	if pin.NetIndex < 0 || pin.NetIndex >= len(net.Fanouts) || net.Fanouts[pin.NetIndex] != pin {
		violation(pin.Node, pin, net, "fanout index %d out of sync", pin.NetIndex)
	}
	copy(net.Fanouts[pin.NetIndex:], net.Fanouts[pin.NetIndex+1:])
	net.Fanouts = net.Fanouts[:len(net.Fanouts)-1]
	for i := pin.NetIndex; i < len(net.Fanouts); i++ {
		net.Fanouts[i].NetIndex = i
	}
	pin.Net, pin.NetIndex = nil, -1
}

// RemoveDriver removes an output pin from its net's drivers.
func (nl *Netlist) RemoveDriver(pin *Pin) {
	net := pin.Net
	if net == nil {
		return
	}
	if pin.NetIndex < 0 || pin.NetIndex >= len(net.Drivers) || net.Drivers[pin.NetIndex] != pin {
		violation(pin.Node, pin, net, "driver index %d out of sync", pin.NetIndex)
	}
	copy(net.Drivers[pin.NetIndex:], net.Drivers[pin.NetIndex+1:])
	net.Drivers = net.Drivers[:len(net.Drivers)-1]
	for i := pin.NetIndex; i < len(net.Drivers); i++ {
		net.Drivers[i].NetIndex = i
	}
	pin.Net, pin.NetIndex = nil, -1
}

// Connect wires output slot srcSlot of src to input slot dstSlot of
// dst. The net is allocated when the source is undriven; otherwise a
// new fanout pin is added to the existing net.
func (nl *Netlist) Connect(src *Node, srcSlot int, dst *Node, dstSlot int) {
	out := src.Outputs[srcSlot]
	if out == nil {
		out = nl.NewPin(fmt.Sprintf("%s.out%d", src.Name, srcSlot))
		nl.AttachOutput(src, srcSlot, out)
	}
	if out.Net == nil {
		nl.AddDriver(nl.NewNet(nl.UniqueName(src.Name)), out)
	}
	in := dst.Inputs[dstSlot]
	if in == nil {
		in = nl.NewPin(fmt.Sprintf("%s.in%d", dst.Name, dstSlot))
		nl.AttachInput(dst, dstSlot, in)
	} else if in.Net != nil {
		violation(dst, in, in.Net, "input slot %d already connected", dstSlot)
	}
	nl.AddFanout(out.Net, in)
}

// Remap moves pin from its current owner's slot to a slot of node
// without touching its net membership.
func (nl *Netlist) Remap(pin *Pin, node *Node, slot int) {
	typ := pin.Type
	nl.Detach(pin)
	if typ == OutputPin {
		nl.AttachOutput(node, slot, pin)
	} else {
		nl.AttachInput(node, slot, pin)
	}
}

// Combine merges net a into net b. The fanout of b is kept in order,
// the fanout of a is appended, and the drivers of a become drivers of
// b. Net a is tombstoned. Merging a net with itself means the splice
// closed a combinational loop.
func (nl *Netlist) Combine(a, b *Net) {
	if a == b {
		violation(nil, nil, a, "combinational loop: net combined with itself")
	}
	for len(a.Drivers) != 0 {
		pin := a.Drivers[len(a.Drivers)-1]
		nl.RemoveDriver(pin)
		nl.AddDriver(b, pin)
	}
	for len(a.Fanouts) != 0 {
		pin := a.Fanouts[0]
		nl.RemoveFanout(pin)
		nl.AddFanout(b, pin)
	}
	nl.FreeNet(a)
}

// FreePin tombstones a pin that is attached to neither node nor net.
func (nl *Netlist) FreePin(pin *Pin) {
	if pin.Node != nil || pin.Net != nil {
		violation(pin.Node, pin, pin.Net, "freeing attached pin")
	}
	pin.freed = true
}

// FreeNet tombstones a net with no drivers or fanout.
func (nl *Netlist) FreeNet(net *Net) {
	if len(net.Drivers) != 0 || len(net.Fanouts) != 0 {
		violation(nil, nil, net, "freeing net with %d drivers and %d fanouts", len(net.Drivers), len(net.Fanouts))
	}
	net.Removed = true
}

// FreeNode tombstones a node and its port arrays. Every pin must have
// been remapped or freed first.
func (nl *Netlist) FreeNode(node *Node) {
	for _, pin := range node.Inputs {
		if pin != nil {
			violation(node, pin, pin.Net, "freeing node with attached input pin")
		}
	}
	for _, pin := range node.Outputs {
		if pin != nil {
			violation(node, pin, pin.Net, "freeing node with attached output pin")
		}
	}
	node.Inputs, node.Outputs = nil, nil
	node.InputPortSizes, node.OutputPortSizes = nil, nil
	node.InputPortNames, node.OutputPortNames = nil, nil
	node.Removed = true
	node.retiring = false
}

// Retire marks a node as being replaced. Pins still owned by a retiring
// node are moved, not copied, by Place.
func (nl *Netlist) Retire(node *Node) { node.retiring = true }

// Retiring returns whether the node has been retired.
func (node *Node) Retiring() bool { return node.retiring }

// Release detaches an input pin from its slot and net and frees it.
func (nl *Netlist) Release(pin *Pin) {
	if pin == nil {
		return
	}
	if pin.Type == OutputPin {
		violation(pin.Node, pin, pin.Net, "releasing output pin")
	}
	nl.RemoveFanout(pin)
	nl.Detach(pin)
	nl.FreePin(pin)
}

// ReleaseInputs releases every input pin still attached to node.
func (nl *Netlist) ReleaseInputs(node *Node) {
	for _, pin := range node.Inputs {
		nl.Release(pin)
	}
}

// Tap returns a new floating input pin on the net of a signal. The
// signal may be a driver or an input pin; an undriven output gets a
// fresh net.
func (nl *Netlist) Tap(sig *Pin) *Pin {
	net := sig.Net
	if net == nil {
		if sig.Type != OutputPin {
			violation(sig.Node, sig, nil, "tapping unconnected input pin")
		}
		net = nl.NewNet(nl.UniqueName(sig.Name))
		nl.AddDriver(net, sig)
	}
	pin := nl.NewPin(sig.Name)
	nl.AddFanout(net, pin)
	return pin
}

// Const returns a new floating input pin on net, usually one of the
// reserved constant nets.
func (nl *Netlist) Const(net *Net) *Pin {
	pin := nl.NewPin(net.Name)
	nl.AddFanout(net, pin)
	return pin
}

// Place puts a signal into input slot of dst. A floating pin or a pin
// owned by a retiring node is moved; a pin owned elsewhere or a driver
// is copied as a new fanout pin on the same net.
func (nl *Netlist) Place(sig *Pin, dst *Node, slot int) *Pin {
	switch {
	case sig == nil:
		violation(dst, nil, nil, "placing nil signal in slot %d", slot)
	case sig.freed:
		violation(dst, sig, nil, "placing freed pin")
	case sig.Type == OutputPin:
		sig = nl.Tap(sig)
		nl.AttachInput(dst, slot, sig)
	case sig.Node == nil:
		nl.AttachInput(dst, slot, sig)
	case sig.Node.retiring:
		nl.Remap(sig, dst, slot)
	default:
		pin := nl.NewPin(sig.Name)
		nl.AttachInput(dst, slot, pin)
		if sig.Net != nil {
			nl.AddFanout(sig.Net, pin)
		}
		sig = pin
	}
	return sig
}

// Splice makes orig, an output pin of a retiring node or a floating
// output, take over the slot of repl, an output of a new node. The
// fanout of repl's net moves to orig's net and repl is freed.
func (nl *Netlist) Splice(orig, repl *Pin) {
	if orig.Type != OutputPin || repl.Type != OutputPin {
		violation(repl.Node, repl, nil, "splicing non-output pins")
	}
	node, slot := repl.Node, repl.Slot
	if node == nil {
		violation(nil, repl, nil, "splicing floating replacement")
	}
	if net := repl.Net; net != nil {
		nl.RemoveDriver(repl)
		if orig.Net == nil {
			nl.AddDriver(net, orig)
		} else {
			for len(net.Fanouts) != 0 {
				pin := net.Fanouts[0]
				nl.RemoveFanout(pin)
				nl.AddFanout(orig.Net, pin)
			}
			nl.FreeNet(net)
		}
	}
	nl.Detach(repl)
	nl.FreePin(repl)
	nl.Remap(orig, node, slot)
}

// Drive makes the fanout of output pin orig read sig instead. When sig
// is an unshared driver of a new node, orig takes its place (Splice);
// otherwise orig's net is combined into sig's net and orig is freed.
func (nl *Netlist) Drive(orig, sig *Pin) {
	if sig.freed {
		violation(orig.Node, sig, nil, "driving from freed pin")
	}
	if sig.Type == OutputPin && sig.Node != nil && !sig.Node.retiring && sig.Node != orig.Node &&
		!nl.IsConstNode(sig.Node) {
		nl.Splice(orig, sig)
		return
	}
	net := sig.Net
	if net == nil {
		net = nl.Tap(sig).Net
		nl.Release(net.Fanouts[len(net.Fanouts)-1])
	}
	nl.TieOutput(orig, net)
	if sig.Type == InputPin && sig.Floating() {
		nl.Release(sig)
	}
}

// TieOutput moves the fanout of output pin orig onto net and frees
// orig. It is used to tie results to the reserved constant nets.
func (nl *Netlist) TieOutput(orig *Pin, net *Net) {
	if orig.Type != OutputPin {
		violation(orig.Node, orig, net, "tying non-output pin")
	}
	if old := orig.Net; old != nil {
		nl.RemoveDriver(orig)
		if len(old.Drivers) != 0 {
			violation(orig.Node, orig, old, "tied net has other drivers")
		}
		nl.Combine(old, net)
	}
	nl.Detach(orig)
	nl.FreePin(orig)
}

// ReleaseOutputs frees the unconnected output pins of node. A connected
// output pin must be remapped instead; finding one is a violation.
func (nl *Netlist) ReleaseOutputs(node *Node) {
	for _, pin := range node.Outputs {
		if pin == nil {
			continue
		}
		if pin.Net != nil && len(pin.Net.Fanouts) != 0 {
			violation(node, pin, pin.Net, "dropping connected output pin")
		}
		if net := pin.Net; net != nil {
			nl.RemoveDriver(pin)
			if len(net.Drivers) == 0 {
				nl.FreeNet(net)
			}
		}
		nl.Detach(pin)
		nl.FreePin(pin)
	}
}
