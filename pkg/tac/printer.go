package tac

import (
	"fmt"
	"io"
)

// Printer dumps a quadruple stream in a human-readable form
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new TAC printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintQuads prints one quadruple per line. Function and label markers
// are outdented so the stream reads like a listing.
func (p *Printer) PrintQuads(quads []Quad) {
	for _, q := range quads {
		switch q.Op {
		case OpFunction:
			fmt.Fprintf(p.w, "%s:\n", q.Arg1)
		case OpLabel:
			fmt.Fprintf(p.w, "%s:\n", q.Arg1)
		default:
			fmt.Fprintf(p.w, "    %s\n", q)
		}
	}
}
