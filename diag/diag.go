// Package diag reports legalization errors and warnings against the
// nodes that caused them.
//
package diag // import "github.com/andrewarchi/netlegal/diag"

import (
	"fmt"
	"go/token"
	"io"
	"strings"

	"github.com/andrewarchi/netlegal/netlist"
	"github.com/nikandfor/tlog"
	"github.com/pkg/errors"
)

// Kind classifies a diagnostic.
type Kind uint8

// Diagnostic kinds.
const (
	Invariant   Kind = iota // Bug in a pass; aborts
	Unsupported             // Configuration the device cannot serve; aborts
	Ambiguous               // Inconsistent node from the front-end; aborts
	Warning                 // Recoverable; a fallback was applied
)

func (k Kind) String() string {
	switch k {
	case Invariant:
		return "internal error"
	case Unsupported:
		return "unsupported"
	case Ambiguous:
		return "ambiguous"
	case Warning:
		return "warning"
	}
	return "unknown"
}

// Error is a diagnostic carrying the offending node and its source
// position.
type Error struct {
	Kind Kind
	Node string
	Pos  token.Position
	Msg  string
}

func (err *Error) Error() string {
	var b strings.Builder
	if err.Pos.IsValid() {
		b.WriteString(err.Pos.String())
		b.WriteString(": ")
	}
	b.WriteString(err.Kind.String())
	if err.Node != "" {
		fmt.Fprintf(&b, ": %s", err.Node)
	}
	b.WriteString(": ")
	b.WriteString(err.Msg)
	return b.String()
}

// Errorf constructs a diagnostic for node.
func Errorf(kind Kind, nl *netlist.Netlist, node *netlist.Node, format string, args ...interface{}) *Error {
	err := &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
	if node != nil {
		err.Node = node.Name
		err.Pos = nl.Position(node)
	}
	return err
}

// IsFatal returns whether err, possibly wrapped, aborts legalization.
// Every error other than a warning diagnostic is fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if d, ok := errors.Cause(err).(*Error); ok {
		return d.Kind != Warning
	}
	return true
}

// Reporter collects warnings and logs them.
type Reporter struct {
	Logger           *tlog.Logger
	WarningsAsErrors bool
	Warnings         []*Error
}

// NewReporter constructs a reporter logging to w in console format. A
// nil writer discards the log.
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		return &Reporter{}
	}
	return &Reporter{Logger: NewLogger(w)}
}

// NewLogger constructs a logger writing human-readable lines to w.
func NewLogger(w io.Writer) *tlog.Logger {
	return tlog.New(tlog.NewConsoleWriter(w, tlog.LstdFlags))
}

// Warnf records a warning for node. It returns the warning as an error
// only when warnings are treated as errors; otherwise the caller
// applies its fallback and continues.
func (r *Reporter) Warnf(nl *netlist.Netlist, node *netlist.Node, format string, args ...interface{}) error {
	w := Errorf(Warning, nl, node, format, args...)
	r.Warnings = append(r.Warnings, w)
	if r.Logger != nil {
		r.Logger.Printw("warning", "node", w.Node, "pos", w.Pos.String(), "msg", w.Msg)
	}
	if r.WarningsAsErrors {
		return w
	}
	return nil
}
