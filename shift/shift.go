// Package shift generates constant shifts as rewirings of a signal
// list. No logic is created; shifted-in bits read the constant nets.
//
package shift // import "github.com/andrewarchi/netlegal/shift"

import (
	"github.com/andrewarchi/netlegal/netlist"
	"github.com/pkg/errors"
)

// Kind is the direction and kind of a shift.
type Kind uint8

// Shift kinds.
const (
	LeftLogical Kind = iota
	LeftArith
	RightLogical
	RightArith
)

func (k Kind) String() string {
	switch k {
	case LeftLogical:
		return "shl"
	case LeftArith:
		return "sal"
	case RightLogical:
		return "shr"
	case RightArith:
		return "sar"
	}
	return "illegal"
}

// Shift returns in shifted by s bits as a list of width bits and
// consumes in: floating input pins of in that are not carried into the
// result are released. Vacated bits are zero-extended, except that an
// arithmetic right shift of a signed value replicates the most
// significant bit of in.
func Shift(b *netlist.Builder, in netlist.SignalList, s int, kind Kind, width int, signed bool) (netlist.SignalList, error) {
	if s < 0 {
		return nil, errors.Errorf("shift: negative amount %d", s)
	}
	if width < 0 {
		return nil, errors.Errorf("shift: negative width %d", width)
	}
	nl := b.Netlist()
	out := make(netlist.SignalList, width)
	used := make([]bool, len(in))
	take := func(i int) *netlist.Pin {
		if in[i] == nil {
			return b.Zero()
		}
		if used[i] {
			return nl.Tap(in[i])
		}
		used[i] = true
		return in[i]
	}

	switch kind {
	case LeftLogical, LeftArith:
		for i := range out {
			if j := i - s; j >= 0 && j < len(in) {
				out[i] = take(j)
			} else {
				out[i] = b.Zero()
			}
		}
	case RightLogical, RightArith:
		extend := kind == RightArith && signed && len(in) != 0
		for i := range out {
			switch j := i + s; {
			case j < len(in):
				out[i] = take(j)
			case extend:
				out[i] = take(len(in) - 1)
			default:
				out[i] = b.Zero()
			}
		}
	default:
		return nil, errors.Errorf("shift: unsupported kind %v", kind)
	}

	for i, pin := range in {
		if !used[i] && pin != nil {
			nl.ReleaseSignals(netlist.SignalList{pin})
		}
	}
	return out, nil
}

// Left returns in shifted left by s bits into a list of width bits.
func Left(b *netlist.Builder, in netlist.SignalList, s, width int) netlist.SignalList {
	out, err := Shift(b, in, s, LeftLogical, width, false)
	if err != nil {
		panic(err)
	}
	return out
}

// Resize returns in truncated or zero-extended to width bits.
func Resize(b *netlist.Builder, in netlist.SignalList, width int) netlist.SignalList {
	return Left(b, in, 0, width)
}
