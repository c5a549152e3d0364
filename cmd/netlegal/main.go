package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"

	"github.com/andrewarchi/netlegal/arch"
	"github.com/andrewarchi/netlegal/config"
	"github.com/andrewarchi/netlegal/diag"
	"github.com/andrewarchi/netlegal/driver"
	"github.com/andrewarchi/netlegal/internal/equiv"
	"github.com/andrewarchi/netlegal/legal"
	"github.com/andrewarchi/netlegal/netlist"
	"github.com/andrewarchi/netlegal/sim"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

const usage = `netlegal [flags]

Builds a design of a single operator, legalizes it for the target
device and reports the resulting netlist and carry-chain statistics.

Flags:`

// settings is the option bag filled by repeated -set key=value flags.
type settings map[string]string

func (s settings) String() string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key+"="+s[key])
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func (s settings) Set(kv string) error {
	i := strings.IndexByte(kv, '=')
	if i <= 0 {
		return errors.Errorf("option %q is not key=value", kv)
	}
	s[kv[:i]] = kv[i+1:]
	return nil
}

type options struct {
	op                string
	wa, wb, wo        int
	addr, data        int
	softLogic         string
	noHard            bool
	list, dot, verify bool
	sim               int
	vectors           string
	seed              int64
	debug, werror     bool
	settings          settings
}

func main() {
	var o options
	o.settings = make(settings)
	flag.StringVar(&o.op, "op", "add", "operator: add, sub, neg, mul, ram or dpram")
	flag.IntVar(&o.wa, "a", 8, "width of operand a")
	flag.IntVar(&o.wb, "b", 8, "width of operand b")
	flag.IntVar(&o.wo, "out", 0, "output width; 0 selects the full result width")
	flag.IntVar(&o.addr, "addr", 6, "memory address width")
	flag.IntVar(&o.data, "data", 8, "memory data width")
	flag.StringVar(&o.softLogic, "softlogic", "", "soft logic table as width:topology:size,...")
	flag.BoolVar(&o.noHard, "nohard", false, "target a device without hard blocks")
	flag.BoolVar(&o.list, "list", false, "print the legalized netlist")
	flag.BoolVar(&o.dot, "dot", false, "print the legalized netlist in DOT format")
	flag.BoolVar(&o.verify, "verify", false, "prove the arithmetic result with a SAT solver")
	flag.IntVar(&o.sim, "sim", 0, "simulate `n` random vectors against a reference")
	flag.StringVar(&o.vectors, "vectors", "", "write the simulated vectors to `file`")
	flag.Int64Var(&o.seed, "seed", 1, "random seed for simulation")
	flag.BoolVar(&o.debug, "debug", false, "check the netlist after every pass")
	flag.BoolVar(&o.werror, "Werror", false, "treat warnings as errors")
	flag.Var(o.settings, "set", "legalization option as `key=value`; may be repeated")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(&o); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(o *options) error {
	opts, err := config.Parse(o.settings)
	if err != nil {
		return err
	}
	a := arch.Default()
	if o.noHard {
		a = &arch.Arch{}
	}
	if o.softLogic != "" {
		if a.SoftLogic, err = arch.ParseSoftLogicTable(o.softLogic); err != nil {
			return err
		}
	}
	if err := a.Validate(); err != nil {
		return err
	}

	d, err := newDesign(o)
	if err != nil {
		return err
	}
	report := diag.NewReporter(os.Stderr)
	report.WarningsAsErrors = o.werror
	ctx := legal.New(d.nl, a, opts, report)
	ctx.Debug = o.debug
	driver.Collect(ctx)
	stats, err := driver.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Print(stats)
	fmt.Print(ctx.ChainReport())
	fmt.Println(census(d.nl))
	if o.list {
		fmt.Print(d.nl)
	}
	if o.dot {
		fmt.Print(d.nl.DotDigraph())
	}
	if o.verify {
		if err := d.verify(); err != nil {
			return err
		}
	}
	if o.sim > 0 {
		if err := d.simulate(o.sim, o.seed, o.vectors); err != nil {
			return err
		}
	}
	return nil
}

func census(nl *netlist.Netlist) string {
	counts := nl.Census()
	ops := make([]netlist.Op, 0, len(counts))
	for op := range counts {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	var b strings.Builder
	for i, op := range ops {
		if i != 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%v=%d", op, counts[op])
	}
	return b.String()
}

// design is a single operator between top-level buses.
type design struct {
	op     string
	memory bool // ins holds addr, data and we of each port
	nl     *netlist.Netlist
	ins    []netlist.SignalList
	outs   [][]*netlist.Node
}

func newDesign(o *options) (*design, error) {
	nl := netlist.New(o.op)
	f := nl.Fset.AddFile("<"+o.op+">", -1, 1)
	pos := f.Pos(0)
	d := &design{op: o.op, nl: nl}
	switch o.op {
	case "add", "sub", "neg", "mul":
		if o.wa <= 0 || o.wb <= 0 && o.op != "neg" {
			return nil, errors.Errorf("operand widths %d and %d must be positive", o.wa, o.wb)
		}
		d.ins = append(d.ins, nl.NewInputBus("a", o.wa))
		if o.op != "neg" {
			d.ins = append(d.ins, nl.NewInputBus("b", o.wb))
		}
		width, op := o.wo, netlist.Add
		switch o.op {
		case "add":
			width = defaultWidth(width, max(o.wa, o.wb)+1)
		case "sub":
			width, op = defaultWidth(width, max(o.wa, o.wb)), netlist.Minus
		case "neg":
			width, op = defaultWidth(width, o.wa), netlist.Minus
		case "mul":
			width, op = defaultWidth(width, o.wa+o.wb), netlist.Multiply
		}
		names := []string{"a", "b"}[:len(d.ins)]
		node := nl.NewOperator(op, o.op, pos, d.ins, names, []int{width}, []string{"out"})
		d.outs = append(d.outs, nl.NewOutputBus("y", node.OutputPort(0)))
	case "ram", "dpram":
		if o.addr <= 0 || o.data <= 0 {
			return nil, errors.Errorf("memory geometry %dx%d must be positive", o.addr, o.data)
		}
		d.memory = true
		op, suffixes := netlist.SPRAM, []string{""}
		if o.op == "dpram" {
			op, suffixes = netlist.DPRAM, []string{"1", "2"}
		}
		var ins []netlist.SignalList
		var names []string
		for _, role := range []string{"addr", "data", "we"} {
			for _, s := range suffixes {
				width := o.addr
				switch role {
				case "data":
					width = o.data
				case "we":
					width = 1
				}
				bus := nl.NewInputBus(role+s, width)
				ins, names = append(ins, bus), append(names, role+s)
			}
		}
		ins, names = append(ins, nl.NewInputBus("clk", 1)), append(names, "clk")
		for k := range suffixes {
			for r := 0; r < 3; r++ {
				d.ins = append(d.ins, ins[r*len(suffixes)+k])
			}
		}
		outWidths, outNames := make([]int, len(suffixes)), make([]string, len(suffixes))
		for k, s := range suffixes {
			outWidths[k], outNames[k] = o.data, "out"+s
		}
		node := nl.NewOperator(op, o.op, pos, ins, names, outWidths, outNames)
		for k, s := range suffixes {
			d.outs = append(d.outs, nl.NewOutputBus("q"+s, node.OutputPort(k)))
		}
	default:
		return nil, errors.Errorf("unknown operator %q", o.op)
	}
	return d, nil
}

func defaultWidth(width, full int) int {
	if width > 0 {
		return width
	}
	return full
}

func (d *design) verify() error {
	var cex *equiv.Counterexample
	var err error
	y := d.outs[0]
	switch d.op {
	case "add":
		cex, err = equiv.ProveAdd(d.nl, d.ins[0], d.ins[1], y)
	case "sub":
		cex, err = equiv.ProveSub(d.nl, d.ins[0], d.ins[1], y)
	case "neg":
		cex, err = equiv.ProveSub(d.nl, nil, d.ins[0], y)
	case "mul":
		cex, err = equiv.ProveMul(d.nl, d.ins[0], d.ins[1], y)
	default:
		return errors.Errorf("cannot prove %s: not combinational", d.op)
	}
	if err != nil {
		return err
	}
	if cex != nil {
		return errors.Errorf("%s is not equivalent: counterexample %v", d.op, cex)
	}
	fmt.Println("verified")
	return nil
}

func randomWord(r *rand.Rand, width int) *uint256.Int {
	v := uint256.NewInt(0)
	for i := range v {
		v[i] = r.Uint64()
	}
	return mask(v, width)
}

func mask(v *uint256.Int, width int) *uint256.Int {
	if width >= sim.MaxBusWidth {
		return v
	}
	m := new(uint256.Int).Lsh(uint256.NewInt(1), uint(width))
	m.SubUint64(m, 1)
	return v.And(v, m)
}

func (d *design) reference(in []*uint256.Int, width int) *uint256.Int {
	v := new(uint256.Int)
	switch d.op {
	case "add":
		v.Add(in[0], in[1])
	case "sub":
		v.Sub(in[0], in[1])
	case "neg":
		v.Neg(in[0])
	case "mul":
		v.Mul(in[0], in[1])
	}
	return mask(v, width)
}

// simulate drives n random vectors through the legalized netlist and
// compares each response with a reference model. Memories are checked
// against a flat word map written port by port.
func (d *design) simulate(n int, seed int64, file string) error {
	s, err := sim.New(d.nl)
	if err != nil {
		return err
	}
	r := rand.New(rand.NewSource(seed))
	var widths []int
	for _, bus := range d.ins {
		widths = append(widths, len(bus))
	}
	for _, out := range d.outs {
		widths = append(widths, len(out))
	}
	vectors := make([][]*uint256.Int, 0, n)
	words := make(map[uint64]*uint256.Int)
	for i := 0; i < n; i++ {
		vec := make([]*uint256.Int, 0, len(widths))
		for _, bus := range d.ins {
			v := randomWord(r, len(bus))
			s.SetBus(bus, v)
			vec = append(vec, v)
		}
		s.Eval()
		for k, out := range d.outs {
			got := s.Read(out)
			var want *uint256.Int
			if d.memory {
				want = words[vec[3*k].Uint64()]
				if want == nil {
					want = new(uint256.Int)
				}
			} else {
				want = d.reference(vec, len(out))
			}
			if !got.Eq(want) {
				return errors.Errorf("vector %d: port %d read %s, want %s", i, k, got.Hex(), want.Hex())
			}
			vec = append(vec, got)
		}
		if d.memory {
			s.Step()
			for k := range d.outs {
				if vec[3*k+2].Uint64() != 0 {
					words[vec[3*k].Uint64()] = vec[3*k+1]
				}
			}
		}
		vectors = append(vectors, vec)
	}
	fmt.Printf("simulated %d vectors\n", n)
	if file == "" {
		return nil
	}
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err := sim.EncodeVectors(f, widths, vectors); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
