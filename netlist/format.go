package netlist

import (
	"fmt"
	"strings"
)

// String lists the live nodes of the netlist, one per line, with the
// nets read by each input slot and driven by each output slot.
func (nl *Netlist) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "netlist %s\n", nl.Name)
	for _, node := range nl.Nodes() {
		b.WriteString("    ")
		b.WriteString(nl.FormatNode(node))
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatNode formats a node as name = op(inputs) -> (outputs).
func (nl *Netlist) FormatNode(node *Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s = %v", node.Name, node.Op)
	if node.Model != "" {
		fmt.Fprintf(&b, "<%s>", node.Model)
	}
	b.WriteByte('(')
	writePorts(&b, node.Inputs, node.InputPortSizes, node.InputPortNames)
	b.WriteString(") -> (")
	writePorts(&b, node.Outputs, node.OutputPortSizes, node.OutputPortNames)
	b.WriteByte(')')
	if pos := nl.Position(node); pos.IsValid() {
		fmt.Fprintf(&b, " ; %v", pos)
	}
	return b.String()
}

func writePorts(b *strings.Builder, slots []*Pin, sizes []int, names []string) {
	slot := 0
	for i, size := range sizes {
		if i != 0 {
			b.WriteString(", ")
		}
		b.WriteString(names[i])
		b.WriteString(":[")
		for j := 0; j < size; j++ {
			if j != 0 {
				b.WriteByte(' ')
			}
			pin := slots[slot]
			switch {
			case pin == nil:
				b.WriteByte('_')
			case pin.Net == nil:
				b.WriteByte('-')
			default:
				b.WriteString(pin.Net.Name)
			}
			slot++
		}
		b.WriteByte(']')
	}
}

// DotDigraph creates a graph of the netlist in the Graphviz DOT format.
// Nodes are boxes and each net is drawn as edges from its driver to its
// fanout.
func (nl *Netlist) DotDigraph() string {
	var b strings.Builder
	b.WriteString("digraph {\n")
	b.WriteString("  node [fontname=\"Helvetica\"];\n")
	for _, node := range nl.Nodes() {
		shape := "box"
		switch node.Op {
		case Input, Output:
			shape = "plaintext"
		case GND, VCC, Pad:
			shape = "point"
		}
		fmt.Fprintf(&b, "  n%d[label=\"%s\\n%v\" shape=%s];\n", node.ID, node.Name, node.Op, shape)
	}
	b.WriteByte('\n')
	for _, net := range nl.Nets() {
		for _, driver := range net.Drivers {
			if driver.Node == nil {
				continue
			}
			for _, fanout := range net.Fanouts {
				if fanout.Node == nil {
					continue
				}
				fmt.Fprintf(&b, "  n%d -> n%d[label=\"%s\"];\n", driver.Node.ID, fanout.Node.ID, fanout.Mapping)
			}
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// Census counts the live nodes of each op.
func (nl *Netlist) Census() map[Op]int {
	census := make(map[Op]int)
	for _, node := range nl.Nodes() {
		census[node.Op]++
	}
	return census
}
