// Package arch describes the hard blocks offered by a target device and
// the soft-logic policy used when no hard block applies.
//
package arch // import "github.com/andrewarchi/netlegal/arch"

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Arch is the set of hard-block models of a device. A nil model means
// the device has no such block and the operator is built in soft logic.
type Arch struct {
	Adder      *AdderModel
	Multiplier *MultiplierModel
	SPRAM      *MemoryModel
	DPRAM      *MemoryModel
	SoftLogic  SoftLogicTable
}

// AdderModel is the geometry of a carry-chained hard adder.
type AdderModel struct {
	Name       string
	SizeA      int
	SizeB      int
	SizeCin    int
	SizeCout   int
	SizeSumout int
}

// MultiplierModel is the geometry of a hard multiplier.
type MultiplierModel struct {
	Name    string
	SizeA   int
	SizeB   int
	SizeOut int
}

// MemoryModel is the geometry of a hard RAM. Address widths are in
// bits; DataWidth is the declared word width of every data port.
type MemoryModel struct {
	Name         string
	MinAddrWidth int
	MaxAddrWidth int
	MinDataWidth int
	DataWidth    int
}

// Default returns a device with a 4-bit carry-chain adder, an 18x18
// multiplier and 32-bit wide RAMs of up to 2^15 words.
func Default() *Arch {
	return &Arch{
		Adder: &AdderModel{
			Name:  "adder",
			SizeA: 4, SizeB: 4, SizeCin: 1, SizeCout: 1, SizeSumout: 4,
		},
		Multiplier: &MultiplierModel{Name: "multiply", SizeA: 18, SizeB: 18, SizeOut: 36},
		SPRAM: &MemoryModel{
			Name:         "single_port_ram",
			MinAddrWidth: 1, MaxAddrWidth: 15,
			MinDataWidth: 1, DataWidth: 32,
		},
		DPRAM: &MemoryModel{
			Name:         "dual_port_ram",
			MinAddrWidth: 1, MaxAddrWidth: 14,
			MinDataWidth: 1, DataWidth: 32,
		},
	}
}

// Validate checks that every model has a usable geometry.
func (a *Arch) Validate() error {
	if m := a.Adder; m != nil {
		switch {
		case m.SizeA <= 0 || m.SizeB <= 0:
			return errors.Errorf("arch: adder %s has empty operand", m.Name)
		case m.SizeA != m.SizeB || m.SizeSumout != m.SizeA:
			return errors.Errorf("arch: adder %s operands and sum differ in width: a=%d b=%d sumout=%d",
				m.Name, m.SizeA, m.SizeB, m.SizeSumout)
		case m.SizeCin != 1 || m.SizeCout != 1:
			return errors.Errorf("arch: adder %s carry must be 1 bit", m.Name)
		}
	}
	if m := a.Multiplier; m != nil {
		if m.SizeA <= 0 || m.SizeB <= 0 || m.SizeOut != m.SizeA+m.SizeB {
			return errors.Errorf("arch: multiplier %s has bad geometry %dx%d->%d",
				m.Name, m.SizeA, m.SizeB, m.SizeOut)
		}
	}
	for _, m := range []*MemoryModel{a.SPRAM, a.DPRAM} {
		if m == nil {
			continue
		}
		if m.MinAddrWidth < 0 || m.MaxAddrWidth < m.MinAddrWidth ||
			m.MinDataWidth <= 0 || m.DataWidth < m.MinDataWidth {
			return errors.Errorf("arch: memory %s has bad geometry", m.Name)
		}
	}
	return a.SoftLogic.Validate()
}

// SoftLogicEntry selects a topology and block size for adders of up to
// Width bits.
type SoftLogicEntry struct {
	Width     int
	Topology  string
	BlockSize int
}

// Soft adder topologies.
const (
	Ripple         = "default"
	CarrySelect    = "csla"
	BECCarrySelect = "bec_csla"
)

// SoftLogicTable maps a requested adder width to a soft topology.
type SoftLogicTable []SoftLogicEntry

// Lookup returns the entry with the smallest width at least the
// requested width, or the widest entry when none is wide enough. An
// empty table selects a ripple adder over the full width.
func (t SoftLogicTable) Lookup(width int) SoftLogicEntry {
	if len(t) == 0 {
		return SoftLogicEntry{Width: width, Topology: Ripple, BlockSize: width}
	}
	best := -1
	widest := 0
	for i, e := range t {
		if e.Width >= width && (best == -1 || e.Width < t[best].Width) {
			best = i
		}
		if e.Width > t[widest].Width {
			widest = i
		}
	}
	if best == -1 {
		best = widest
	}
	return t[best]
}

// Validate checks entry widths and block sizes. Topology names are
// checked where they are used, so that an unknown name is reported
// against the node being built.
func (t SoftLogicTable) Validate() error {
	for _, e := range t {
		if e.Width <= 0 || e.BlockSize < 0 {
			return errors.Errorf("arch: soft logic entry %d:%s:%d out of range", e.Width, e.Topology, e.BlockSize)
		}
	}
	return nil
}

// ParseSoftLogicTable parses a comma-separated list of
// width:topology:blocksize entries, such as "8:csla:4,16:bec_csla:4".
func ParseSoftLogicTable(s string) (SoftLogicTable, error) {
	var t SoftLogicTable
	if strings.TrimSpace(s) == "" {
		return t, nil
	}
	for _, field := range strings.Split(s, ",") {
		parts := strings.Split(strings.TrimSpace(field), ":")
		if len(parts) != 3 {
			return nil, errors.Errorf("arch: soft logic entry %q is not width:topology:blocksize", field)
		}
		width, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, errors.Wrapf(err, "arch: soft logic entry %q", field)
		}
		size, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, errors.Wrapf(err, "arch: soft logic entry %q", field)
		}
		t = append(t, SoftLogicEntry{Width: width, Topology: parts[1], BlockSize: size})
	}
	sort.Slice(t, func(i, j int) bool { return t[i].Width < t[j].Width })
	return t, t.Validate()
}
