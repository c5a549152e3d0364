package netlist

// Op is the kind of operation of a node.
type Op uint8

// Operation kinds. The set is closed; passes switch over it
// exhaustively and panic on anything else.
const (
	Illegal Op = iota

	Input  // Top-level input bit
	Output // Top-level output bit

	GND // Constant 0
	VCC // Constant 1
	Pad // Don't care; simulates as 0

	Buf
	Not
	And
	Or
	Xor
	Nand
	Nor
	Xnor

	Mux2      // sel, d0, d1
	SelectMux // sel[n], data[n]; OR of sel_i AND data_i
	FF        // d, clk

	Add
	Minus
	Multiply
	SPRAM
	DPRAM

	HardAdder      // a, b, cin -> cout, sumout
	HardMultiplier // a, b -> out
)

// IsGate returns whether the op is a basic logic gate.
func (op Op) IsGate() bool {
	switch op {
	case Buf, Not, And, Or, Xor, Nand, Nor, Xnor, Mux2, SelectMux:
		return true
	}
	return false
}

// IsMemory returns whether the op is a RAM.
func (op Op) IsMemory() bool { return op == SPRAM || op == DPRAM }

// IsSequential returns whether the op holds state across clock edges.
func (op Op) IsSequential() bool { return op == FF || op == SPRAM || op == DPRAM }

func (op Op) String() string {
	switch op {
	case Input:
		return "input"
	case Output:
		return "output"
	case GND:
		return "gnd"
	case VCC:
		return "vcc"
	case Pad:
		return "pad"
	case Buf:
		return "buf"
	case Not:
		return "not"
	case And:
		return "and"
	case Or:
		return "or"
	case Xor:
		return "xor"
	case Nand:
		return "nand"
	case Nor:
		return "nor"
	case Xnor:
		return "xnor"
	case Mux2:
		return "mux2"
	case SelectMux:
		return "selmux"
	case FF:
		return "ff"
	case Add:
		return "add"
	case Minus:
		return "minus"
	case Multiply:
		return "multiply"
	case SPRAM:
		return "spram"
	case DPRAM:
		return "dpram"
	case HardAdder:
		return "adder"
	case HardMultiplier:
		return "multiplier"
	}
	return "illegal"
}
