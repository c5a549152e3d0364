// Package driver runs the legalization passes of one compilation: it
// drains the work-lists of a context through the legalizers and then
// sweeps the dead logic they leave behind.
//
package driver // import "github.com/andrewarchi/netlegal/driver"

import (
	"github.com/andrewarchi/netlegal/addsub"
	"github.com/andrewarchi/netlegal/legal"
	"github.com/andrewarchi/netlegal/memory"
	"github.com/andrewarchi/netlegal/multiply"
	"github.com/andrewarchi/netlegal/netlist"
	"github.com/andrewarchi/netlegal/sweep"
	"github.com/pkg/errors"
)

type pass struct {
	name     string
	list     func(ctx *legal.Context) *[]*netlist.Node
	legalize func(ctx *legal.Context, node *netlist.Node) error
}

// Multipliers push their partial sums on the add list, so adders run
// last.
var passes = []pass{
	{"memory", func(ctx *legal.Context) *[]*netlist.Node { return &ctx.MemoryList }, memory.Legalize},
	{"multiply", func(ctx *legal.Context) *[]*netlist.Node { return &ctx.MultiplyList }, multiply.Legalize},
	{"addsub", func(ctx *legal.Context) *[]*netlist.Node { return &ctx.AddList }, addsub.Legalize},
}

// Collect enqueues every live operator and memory node of the netlist
// on the work-lists of ctx.
func Collect(ctx *legal.Context) {
	for _, node := range ctx.Netlist.Nodes() {
		switch node.Op {
		case netlist.Add, netlist.Minus, netlist.Multiply, netlist.SPRAM, netlist.DPRAM:
			ctx.Enqueue(node)
		}
	}
}

// Run legalizes every node on the work-lists of ctx and sweeps the
// netlist. A kernel invariant violation is returned as an error rather
// than a panic.
func Run(ctx *legal.Context) (*sweep.Stats, error) {
	return run(ctx, passes)
}

func run(ctx *legal.Context, passes []pass) (stats *sweep.Stats, err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*netlist.InvariantError)
			if !ok {
				panic(r)
			}
			stats, err = nil, errors.Wrap(ie, "legalization aborted")
		}
	}()
	for _, p := range passes {
		list := p.list(ctx)
		n := 0
		for len(*list) != 0 {
			node := (*list)[0]
			*list = (*list)[1:]
			if node.Removed {
				continue
			}
			if err := p.legalize(ctx, node); err != nil {
				return nil, errors.Wrapf(err, "%s pass", p.name)
			}
			n++
		}
		ctx.Printw("pass done", "pass", p.name, "nodes", n)
		if err := check(ctx, p.name); err != nil {
			return nil, err
		}
	}
	stats = sweep.Sweep(ctx.Netlist)
	ctx.Printw("sweep done", "removed", stats.Removed,
		"adder_chains", stats.Adders.Count, "longest_adder", stats.Adders.Longest,
		"subtractor_chains", stats.Subtractors.Count, "longest_subtractor", stats.Subtractors.Longest)
	if err := check(ctx, "sweep"); err != nil {
		return nil, err
	}
	return stats, nil
}

func check(ctx *legal.Context, pass string) error {
	if !ctx.Debug {
		return nil
	}
	if err := ctx.Netlist.Check(); err != nil {
		return errors.Wrapf(err, "after %s pass", pass)
	}
	return nil
}
