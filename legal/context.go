// Package legal holds the state shared by the legalization passes of a
// single compilation.
//
package legal // import "github.com/andrewarchi/netlegal/legal"

import (
	"fmt"
	"strings"

	"github.com/andrewarchi/netlegal/arch"
	"github.com/andrewarchi/netlegal/config"
	"github.com/andrewarchi/netlegal/diag"
	"github.com/andrewarchi/netlegal/netlist"
	"github.com/nikandfor/tlog"
)

// Context owns the work-lists and statistics of one legalization run.
// Passes receive it explicitly; there is no package-level state.
type Context struct {
	Netlist *netlist.Netlist
	Arch    *arch.Arch
	Options *config.Options
	Report  *diag.Reporter
	Log     *tlog.Logger
	Debug   bool // Check the netlist after every pass

	AddList      []*netlist.Node
	MultiplyList []*netlist.Node
	MemoryList   []*netlist.Node

	Chains []ChainInfo
}

// ChainInfo describes one legalized arithmetic chain.
type ChainInfo struct {
	Op     netlist.Op
	Name   string
	Width  int
	Blocks int  // Hard blocks
	Soft   bool // Final slice built in soft logic
}

func (c ChainInfo) String() string {
	s := fmt.Sprintf("%s %s: %d bits in %d blocks", c.Op, c.Name, c.Width, c.Blocks)
	if c.Soft {
		s += " and a soft tail"
	}
	return s
}

// New constructs a context. Nil options and reporter are replaced by
// defaults; a nil architecture has no hard blocks.
func New(nl *netlist.Netlist, a *arch.Arch, opts *config.Options, report *diag.Reporter) *Context {
	if a == nil {
		a = &arch.Arch{}
	}
	if opts == nil {
		opts = config.Default()
	}
	if report == nil {
		report = &diag.Reporter{}
	}
	return &Context{Netlist: nl, Arch: a, Options: opts, Report: report, Log: report.Logger}
}

// Enqueue appends a node to the work-list for its op.
func (ctx *Context) Enqueue(node *netlist.Node) {
	switch node.Op {
	case netlist.Add, netlist.Minus:
		ctx.AddList = append(ctx.AddList, node)
	case netlist.Multiply:
		ctx.MultiplyList = append(ctx.MultiplyList, node)
	case netlist.SPRAM, netlist.DPRAM:
		ctx.MemoryList = append(ctx.MemoryList, node)
	default:
		panic(fmt.Errorf("legal: no work-list for %v node %s", node.Op, node.Name))
	}
}

// Errorf constructs a fatal diagnostic for node.
func (ctx *Context) Errorf(kind diag.Kind, node *netlist.Node, format string, args ...interface{}) error {
	return diag.Errorf(kind, ctx.Netlist, node, format, args...)
}

// Warnf reports a warning for node. A non-nil result means warnings
// are treated as errors and the pass must stop.
func (ctx *Context) Warnf(node *netlist.Node, format string, args ...interface{}) error {
	return ctx.Report.Warnf(ctx.Netlist, node, format, args...)
}

// Printw logs a message with key/value pairs when a logger is set.
func (ctx *Context) Printw(msg string, kvs ...interface{}) {
	if ctx.Log != nil {
		ctx.Log.Printw(msg, kvs...)
	}
}

// RecordChain records a legalized chain of hard blocks, optionally
// ending in a soft slice.
func (ctx *Context) RecordChain(node *netlist.Node, width, blocks int, soft bool) {
	ctx.Chains = append(ctx.Chains, ChainInfo{Op: node.Op, Name: node.Name, Width: width, Blocks: blocks, Soft: soft})
}

// ChainReport lists the recorded chains, one per line.
func (ctx *Context) ChainReport() string {
	var b strings.Builder
	for _, c := range ctx.Chains {
		b.WriteString(c.String())
		b.WriteByte('\n')
	}
	return b.String()
}
