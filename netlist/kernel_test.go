package netlist

import (
	"go/token"
	"strings"
	"testing"
)

func newGate(nl *Netlist, op Op, name string, ins, outs int) *Node {
	node := nl.NewNode(op, name, token.NoPos)
	node.AddInputPort(ins, "in")
	node.AddOutputPort(outs, "out")
	return node
}

func TestConnect(t *testing.T) {
	nl := New("test")
	a := newGate(nl, Not, "a", 1, 1)
	b := newGate(nl, Not, "b", 1, 1)
	c := newGate(nl, Not, "c", 1, 1)
	nl.Connect(a, 0, b, 0)
	nl.Connect(a, 0, c, 0)

	net := a.Outputs[0].Net
	if net == nil {
		t.Fatal("connect did not allocate a net")
	}
	if len(net.Drivers) != 1 || net.Drivers[0] != a.Outputs[0] {
		t.Errorf("driver = %v, want a output", net.Drivers)
	}
	if len(net.Fanouts) != 2 || net.Fanouts[0] != b.Inputs[0] || net.Fanouts[1] != c.Inputs[0] {
		t.Errorf("fanout = %v, want [b c]", net.Fanouts)
	}
	if err := nl.Check(); err != nil {
		t.Error(err)
	}
}

func TestRemoveFanoutReindexes(t *testing.T) {
	nl := New("test")
	src := newGate(nl, Buf, "src", 1, 1)
	var sinks []*Node
	for i := 0; i < 4; i++ {
		sink := newGate(nl, Buf, "sink", 1, 1)
		nl.Connect(src, 0, sink, 0)
		sinks = append(sinks, sink)
	}
	net := src.Outputs[0].Net
	nl.RemoveFanout(sinks[1].Inputs[0])
	if len(net.Fanouts) != 3 {
		t.Fatalf("fanout length = %d, want 3", len(net.Fanouts))
	}
	for i, pin := range net.Fanouts {
		if pin.NetIndex != i {
			t.Errorf("fanout %d has index %d", i, pin.NetIndex)
		}
	}
	if net.Fanouts[1] != sinks[2].Inputs[0] {
		t.Errorf("fanout 1 = %v, want sink 2", net.Fanouts[1])
	}
	nl.Release(sinks[1].Inputs[0])
	if err := nl.Check(); err != nil {
		t.Error(err)
	}
}

func TestRemapKeepsNet(t *testing.T) {
	nl := New("test")
	src := newGate(nl, Buf, "src", 1, 1)
	old := newGate(nl, Buf, "old", 1, 1)
	dst := newGate(nl, And, "dst", 2, 1)
	nl.Connect(src, 0, old, 0)
	pin := old.Inputs[0]
	net := pin.Net

	nl.Remap(pin, dst, 1)
	if old.Inputs[0] != nil {
		t.Error("old slot still holds the pin")
	}
	if dst.Inputs[1] != pin || pin.Node != dst || pin.Slot != 1 {
		t.Errorf("pin not attached to dst slot 1: %v", pin)
	}
	if pin.Net != net || net.Fanouts[pin.NetIndex] != pin {
		t.Error("remap changed net membership")
	}
	if err := nl.Check(); err != nil {
		t.Error(err)
	}
}

func TestAttachRoleChecked(t *testing.T) {
	nl := New("test")
	node := newGate(nl, Not, "n", 1, 1)
	out := nl.NewPin("out")
	nl.AttachOutput(node, 0, out)
	other := newGate(nl, Not, "m", 1, 1)
	nl.Detach(out)
	checkPanic(t, "netlist: output pin in input slot (node m) (pin out)", func() {
		nl.AttachInput(other, 0, out)
	})
	checkPanic(t, "netlist: input slot 3 out of range [0, 1) (node m) (pin p)", func() {
		nl.AttachInput(other, 3, nl.NewPin("p"))
	})
}

func TestPinRoles(t *testing.T) {
	nl := New("test")
	in := nl.NewInputBus("in", 1)
	sink := newGate(nl, Not, "n", 1, 1)
	nl.Connect(in[0].Node, 0, sink, 0)
	out := nl.NewOutputBus("y", sink.OutputPort(0))

	tests := []struct {
		Pin  *Pin
		Type PinType
		Role string
	}{
		{in[0], OutputPin, "output"},
		{sink.Inputs[0], InputPin, "input"},
		{sink.Outputs[0], OutputPin, "output"},
		{out[0].Inputs[0], InputPin, "input"},
		{nl.NewPin("free"), Unset, "unset"},
	}
	for i, test := range tests {
		if test.Pin.Type != test.Type || test.Pin.Type.String() != test.Role {
			t.Errorf("test %d: pin %v role %v, want %s", i, test.Pin, test.Pin.Type, test.Role)
		}
	}
	if in[0].Node.Op != Input || out[0].Op != Output {
		t.Errorf("bus ops = %v, %v, want input, output", in[0].Node.Op, out[0].Op)
	}
}

func TestReleaseSignalsFloating(t *testing.T) {
	nl := New("test")
	in := nl.NewInputBus("in", 1)
	sink := newGate(nl, Buf, "b", 1, 1)
	nl.Connect(in[0].Node, 0, sink, 0)
	tap := nl.Tap(in[0])
	if !tap.Floating() {
		t.Fatal("tap is not floating")
	}
	nl.ReleaseSignals(SignalList{in[0], sink.Inputs[0], tap, nil})
	if !tap.Freed() || tap.Floating() {
		t.Error("floating tap not released")
	}
	if in[0].Freed() || sink.Inputs[0].Freed() {
		t.Error("owned pins released")
	}
	if n := len(in[0].Net.Fanouts); n != 1 {
		t.Errorf("fanout = %d, want 1", n)
	}
	if err := nl.Check(); err != nil {
		t.Error(err)
	}
}

func TestCombine(t *testing.T) {
	nl := New("test")
	a := newGate(nl, Buf, "a", 1, 1)
	b := newGate(nl, Buf, "b", 1, 1)
	x := newGate(nl, Buf, "x", 1, 1)
	y := newGate(nl, Buf, "y", 1, 1)
	nl.Connect(a, 0, x, 0)
	nl.Connect(b, 0, y, 0)
	netA, netB := a.Outputs[0].Net, b.Outputs[0].Net

	nl.RemoveDriver(b.Outputs[0])
	nl.Combine(netA, netB)
	if !netA.Removed {
		t.Error("net a not removed")
	}
	if len(netB.Drivers) != 1 || netB.Drivers[0] != a.Outputs[0] {
		t.Errorf("drivers = %v, want a", netB.Drivers)
	}
	if len(netB.Fanouts) != 2 || netB.Fanouts[0] != y.Inputs[0] || netB.Fanouts[1] != x.Inputs[0] {
		t.Errorf("fanouts = %v, want [y x]", netB.Fanouts)
	}

	checkPanic(t, "netlist: combinational loop: net combined with itself (net "+netB.Name+")", func() {
		nl.Combine(netB, netB)
	})
}

func TestPlaceMovesThenCopies(t *testing.T) {
	nl := New("test")
	bus := nl.NewInputBus("a", 1)
	op := nl.NewOperator(Add, "op", token.NoPos, []SignalList{bus}, []string{"a"}, []int{1}, []string{"out"})
	orig := op.Inputs[0]
	nl.Retire(op)

	b := nl.NewBuilder("op", token.NoPos)
	g1 := b.Not(orig)
	g2 := b.Not(orig)
	if g1.Node.Inputs[0] != orig {
		t.Error("first use did not move the original pin")
	}
	copied := g2.Node.Inputs[0]
	if copied == orig || copied.Net != orig.Net {
		t.Error("second use did not copy onto the same net")
	}
	nl.Drive(op.Outputs[0], g1)
	nl.ReleaseOutputs(op)
	nl.FreeNode(op)
	if !op.Removed {
		t.Error("operator not removed")
	}
	if err := nl.Check(); err != nil {
		t.Error(err)
	}
}

func TestDrive(t *testing.T) {
	nl := New("test")
	a := nl.NewInputBus("a", 2)
	op := nl.NewOperator(Buf, "op", token.NoPos, []SignalList{a}, []string{"a"}, []int{3}, []string{"out"})
	outs := nl.NewOutputBus("y", op.OutputPort(0))
	nl.Retire(op)
	orig := op.OutputPort(0)
	ins := op.InputPort(0)

	b := nl.BuilderFor(op)
	g := b.Not(ins[0])
	gNode := g.Node
	nl.Drive(orig[0], g)
	nl.Drive(orig[1], ins[1])
	nl.Drive(orig[2], b.Zero())
	nl.ReleaseInputs(op)
	if err := nl.CheckReplaced(op); err != nil {
		t.Fatal(err)
	}
	nl.FreeNode(op)

	if got := outs[0].Inputs[0].DriverNode(); got != gNode {
		t.Errorf("y[0] driven by %v, want %v", got, gNode)
	}
	if got := outs[1].Inputs[0].DriverNode(); got != a[1].Node {
		t.Errorf("y[1] driven by %v, want %v", got, a[1].Node)
	}
	if got := outs[2].Inputs[0].Net; got != nl.Zero {
		t.Errorf("y[2] on %v, want zero net", got)
	}
	if err := nl.Check(); err != nil {
		t.Error(err)
	}
}

func TestFreeNodeWithPins(t *testing.T) {
	nl := New("test")
	a := nl.NewInputBus("a", 1)
	op := nl.NewOperator(Buf, "op", token.NoPos, []SignalList{a}, []string{"a"}, []int{1}, []string{"out"})
	checkPanic(t, "netlist: freeing node with attached input pin (node op) (pin op.0) (net a[0])", func() {
		nl.FreeNode(op)
	})
}

func TestCheckDetectsMultipleDrivers(t *testing.T) {
	nl := New("test")
	a := newGate(nl, Buf, "a", 1, 1)
	b := newGate(nl, Buf, "b", 1, 1)
	c := newGate(nl, Buf, "c", 1, 1)
	nl.Connect(a, 0, c, 0)
	out := nl.NewPin("b.out")
	nl.AttachOutput(b, 0, out)
	nl.AddDriver(a.Outputs[0].Net, out)
	err := nl.Check()
	if err == nil || !strings.Contains(err.Error(), "multiple drivers") {
		t.Errorf("check = %v, want multiple drivers", err)
	}
}

func TestFormat(t *testing.T) {
	nl := New("fmt")
	a := nl.NewInputBus("a", 1)
	b := nl.NewBuilder("g", token.NoPos)
	nl.NewOutputBus("y", SignalList{b.Not(a[0])})
	s := nl.String()
	if !strings.Contains(s, "= not(in:[a[0]]) -> (out:[") {
		t.Errorf("unexpected listing:\n%s", s)
	}
	dot := nl.DotDigraph()
	if !strings.HasPrefix(dot, "digraph {\n") || !strings.Contains(dot, "->") {
		t.Errorf("unexpected dot:\n%s", dot)
	}
}

func checkPanic(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Errorf("expected panic %q", want)
			return
		}
		var got string
		switch r := r.(type) {
		case error:
			got = r.Error()
		case string:
			got = r
		}
		if got != want {
			t.Errorf("panic = %q, want %q", got, want)
		}
	}()
	fn()
}
