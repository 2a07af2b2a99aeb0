package asm

import (
	"fmt"
	"io"
)

// Printer outputs RV64 assembly in GNU as syntax
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new assembly printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram outputs an entire program. Directives and labels start
// in column zero; instructions are indented.
func (p *Printer) PrintProgram(prog *Program) {
	for _, line := range prog.Lines {
		switch l := line.(type) {
		case Directive:
			fmt.Fprintf(p.w, "%s\n", l.Text)
		case Label:
			fmt.Fprintf(p.w, "%s:\n", l.Name)
		case Instr:
			fmt.Fprintf(p.w, "    %s\n", l)
		case Comment:
			fmt.Fprintf(p.w, "    # %s\n", l.Text)
		}
	}
}
