package netlist

// Check validates the structural invariants of the graph: every
// occupied slot holds a pin that records it, every pin on a net sits at
// its recorded index, fanout pins belong to live nodes, and only the
// reserved constant nets are shared by more than one driver. It returns
// the first violation found.
func (nl *Netlist) Check() error {
	for _, node := range nl.nodes {
		if node.Removed {
			continue
		}
		if err := checkSlots(node, node.Inputs, node.InputPortSizes, InputPin); err != nil {
			return err
		}
		if err := checkSlots(node, node.Outputs, node.OutputPortSizes, OutputPin); err != nil {
			return err
		}
	}
	for _, net := range nl.nets {
		if net.Removed {
			continue
		}
		if len(net.Drivers) > 1 && !nl.IsConst(net) {
			return &InvariantError{Net: net, Msg: "net has multiple drivers"}
		}
		for i, pin := range net.Drivers {
			if pin.Net != net || pin.NetIndex != i || pin.Type != OutputPin || pin.freed {
				return &InvariantError{Node: pin.Node, Pin: pin, Net: net, Msg: "driver out of sync with net"}
			}
		}
		for i, pin := range net.Fanouts {
			if pin.Net != net || pin.NetIndex != i || pin.Type != InputPin || pin.freed {
				return &InvariantError{Node: pin.Node, Pin: pin, Net: net, Msg: "fanout out of sync with net"}
			}
			if pin.Node != nil && pin.Node.Removed {
				return &InvariantError{Node: pin.Node, Pin: pin, Net: net, Msg: "fanout pin owned by removed node"}
			}
		}
	}
	for _, pin := range nl.pins {
		if pin.freed {
			continue
		}
		if pin.Net != nil && pin.Net.Removed {
			return &InvariantError{Node: pin.Node, Pin: pin, Net: pin.Net, Msg: "pin on removed net"}
		}
	}
	return nil
}

func checkSlots(node *Node, slots []*Pin, sizes []int, typ PinType) *InvariantError {
	total := 0
	for _, size := range sizes {
		total += size
	}
	if total != len(slots) {
		return &InvariantError{Node: node, Msg: "port sizes do not match slot count"}
	}
	for i, pin := range slots {
		if pin == nil {
			continue
		}
		switch {
		case pin.freed:
			return &InvariantError{Node: node, Pin: pin, Msg: "freed pin in slot"}
		case pin.Node != node || pin.Slot != i:
			return &InvariantError{Node: node, Pin: pin, Msg: "pin records a different slot"}
		case pin.Type != typ:
			return &InvariantError{Node: node, Pin: pin, Msg: "pin role does not match slot"}
		}
	}
	return nil
}

// CheckReplaced verifies that a node being replaced has no pin left in
// any slot, so that it can be freed.
func (nl *Netlist) CheckReplaced(node *Node) error {
	for _, pin := range node.Inputs {
		if pin != nil {
			return &InvariantError{Node: node, Pin: pin, Msg: "input pin not remapped"}
		}
	}
	for _, pin := range node.Outputs {
		if pin != nil {
			return &InvariantError{Node: node, Pin: pin, Msg: "output pin not remapped"}
		}
	}
	return nil
}

// CheckComplete verifies that every slot of node holds a pin and that
// every input pin is on a net.
func (nl *Netlist) CheckComplete(node *Node) error {
	for i, pin := range node.Inputs {
		if pin == nil || pin.Net == nil {
			return &InvariantError{Node: node, Pin: pin, Msg: "input slot unpopulated: " + portName(node.InputPortSizes, node.InputPortNames, i)}
		}
	}
	for i, pin := range node.Outputs {
		if pin == nil {
			return &InvariantError{Node: node, Msg: "output slot unpopulated: " + portName(node.OutputPortSizes, node.OutputPortNames, i)}
		}
	}
	return nil
}
