// Package asmgen transforms the TAC stream into RV64 assembly. Each
// function gets a fixed 64-byte frame: ra and s0 are saved at the top,
// named variables take 8-byte slots growing down from -16(s0).
package asmgen

import (
	"fmt"
	"strconv"

	"github.com/mwilner/tern-cc/pkg/asm"
	"github.com/mwilner/tern-cc/pkg/tac"
)

const (
	frameSize = 64
	firstSlot = -16
)

// Options controls program-level output
type Options struct {
	// Freestanding prepends a _start stub that sets up a stack,
	// calls main, and issues the exit syscall, instead of relying on
	// the host C runtime.
	Freestanding bool
}

// binaryInstr maps three-operand TAC opcodes to RV64 mnemonics
var binaryInstr = map[string]string{
	"+":  "add",
	"-":  "sub",
	"*":  "mul",
	"/":  "div",
	"%":  "rem",
	"&":  "and",
	"|":  "or",
	"^":  "xor",
	"<<": "sll",
	">>": "srl",
}

// TransformProgram translates the quadruple stream into assembly
func TransformProgram(quads []tac.Quad, opts Options) *asm.Program {
	t := &transformer{
		prog: &asm.Program{},
		regs: NewRegAllocator(),
	}

	t.prog.Add(asm.Directive{Text: ".text"})
	t.prog.Add(asm.Directive{Text: ".globl main"})
	t.prog.Add(asm.Directive{Text: ".type main, @function"})
	if opts.Freestanding {
		t.emitStartStub()
	}

	for _, q := range quads {
		t.transform(q)
	}

	if opts.Freestanding {
		t.emitStackSection()
	}
	return t.prog
}

type transformer struct {
	prog       *asm.Program
	regs       *RegAllocator
	offsets    map[string]int
	cursor     int
	paramCount int
	argCount   int
}

// resetFunction clears all per-function state
func (t *transformer) resetFunction() {
	t.regs.Reset()
	t.offsets = make(map[string]int)
	t.cursor = firstSlot
	t.paramCount = 0
	t.argCount = 0
}

// slot returns the stack offset of a named variable, allocating an
// 8-byte slot below the saved registers on first sight.
func (t *transformer) slot(name string) int {
	if off, ok := t.offsets[name]; ok {
		return off
	}
	off := t.cursor
	t.cursor -= 8
	t.offsets[name] = off
	return off
}

func (t *transformer) transform(q tac.Quad) {
	switch q.Op {
	case tac.OpFunction:
		t.resetFunction()
		t.prog.Add(asm.Label{Name: q.Arg1})
		t.emitPrologue()
	case tac.OpReturn:
		t.prog.Ins("mv", "a0", t.regs.Reg(q.Arg1))
		t.emitEpilogue()
	case tac.OpLi:
		t.prog.Ins("li", t.regs.Reg(q.Result), q.Arg1)
	case tac.OpLoad:
		t.prog.Ins("ld", t.regs.Reg(q.Result), mem(t.slot(q.Arg1), "s0"))
	case tac.OpStore:
		t.prog.Ins("sd", t.regs.Reg(q.Arg1), mem(t.slot(q.Result), "s0"))
	case tac.OpMove:
		t.prog.Ins("mv", t.regs.Reg(q.Result), t.regs.Reg(q.Arg1))
	case "==":
		rd := t.regs.Reg(q.Result)
		t.prog.Ins("sub", rd, t.regs.Reg(q.Arg1), t.regs.Reg(q.Arg2))
		t.prog.Ins("seqz", rd, rd)
	case "!=":
		rd := t.regs.Reg(q.Result)
		t.prog.Ins("sub", rd, t.regs.Reg(q.Arg1), t.regs.Reg(q.Arg2))
		t.prog.Ins("snez", rd, rd)
	case "<":
		t.prog.Ins("slt", t.regs.Reg(q.Result), t.regs.Reg(q.Arg1), t.regs.Reg(q.Arg2))
	case ">":
		t.prog.Ins("slt", t.regs.Reg(q.Result), t.regs.Reg(q.Arg2), t.regs.Reg(q.Arg1))
	case "<=":
		rd := t.regs.Reg(q.Result)
		t.prog.Ins("slt", rd, t.regs.Reg(q.Arg2), t.regs.Reg(q.Arg1))
		t.prog.Ins("xori", rd, rd, "1")
	case ">=":
		rd := t.regs.Reg(q.Result)
		t.prog.Ins("slt", rd, t.regs.Reg(q.Arg1), t.regs.Reg(q.Arg2))
		t.prog.Ins("xori", rd, rd, "1")
	case tac.OpComp:
		t.prog.Ins("not", t.regs.Reg(q.Result), t.regs.Reg(q.Arg1))
	case tac.OpNeg:
		t.prog.Ins("neg", t.regs.Reg(q.Result), t.regs.Reg(q.Arg1))
	case tac.OpSeq:
		t.prog.Ins("seqz", t.regs.Reg(q.Result), t.regs.Reg(q.Arg1))
	case tac.OpBeqz:
		t.prog.Ins("beqz", t.regs.Reg(q.Arg1), q.Arg2)
	case tac.OpBnez:
		t.prog.Ins("bnez", t.regs.Reg(q.Arg1), q.Arg2)
	case tac.OpBeq:
		t.prog.Ins("beq", t.regs.Reg(q.Arg1), t.regs.Reg(q.Arg2), q.Result)
	case tac.OpBne:
		t.prog.Ins("bne", t.regs.Reg(q.Arg1), t.regs.Reg(q.Arg2), q.Result)
	case "blt":
		t.prog.Ins("blt", t.regs.Reg(q.Arg1), t.regs.Reg(q.Arg2), q.Result)
	case "bgt":
		t.prog.Ins("blt", t.regs.Reg(q.Arg2), t.regs.Reg(q.Arg1), q.Result)
	case "bge":
		t.prog.Ins("bge", t.regs.Reg(q.Arg1), t.regs.Reg(q.Arg2), q.Result)
	case "ble":
		t.prog.Ins("bge", t.regs.Reg(q.Arg2), t.regs.Reg(q.Arg1), q.Result)
	case tac.OpJmp:
		t.prog.Ins("j", q.Result)
	case tac.OpLabel:
		t.prog.Add(asm.Label{Name: q.Arg1})
	case tac.OpCall:
		t.prog.Ins("call", q.Arg1)
		if q.Result != "" {
			t.prog.Ins("mv", t.regs.Reg(q.Result), "a0")
		}
		// The next call site stages its arguments from a0 again.
		t.argCount = 0
	case tac.OpArg:
		t.prog.Ins("mv", argReg(t.argCount), t.regs.Reg(q.Arg1))
		t.argCount++
	case tac.OpParam:
		t.prog.Ins("sd", argReg(t.paramCount), mem(t.slot(q.Arg1), "s0"))
		t.paramCount++
	case tac.OpExpr:
		// Value already computed; nothing to keep.
	default:
		if mnemonic, ok := binaryInstr[q.Op]; ok {
			t.prog.Ins(mnemonic, t.regs.Reg(q.Result), t.regs.Reg(q.Arg1), t.regs.Reg(q.Arg2))
			return
		}
		t.prog.Add(asm.Comment{Text: fmt.Sprintf("unhandled op %q", q.Op)})
	}
}

func mem(offset int, base string) string {
	return strconv.Itoa(offset) + "(" + base + ")"
}

func argReg(n int) string {
	return fmt.Sprintf("a%d", n%tempRegCount)
}

func (t *transformer) emitPrologue() {
	t.prog.Ins("addi", "sp", "sp", strconv.Itoa(-frameSize))
	t.prog.Ins("sd", "ra", mem(frameSize-8, "sp"))
	t.prog.Ins("sd", "s0", mem(frameSize-16, "sp"))
	t.prog.Ins("addi", "s0", "sp", strconv.Itoa(frameSize))
}

func (t *transformer) emitEpilogue() {
	t.prog.Ins("ld", "ra", mem(frameSize-8, "sp"))
	t.prog.Ins("ld", "s0", mem(frameSize-16, "sp"))
	t.prog.Ins("addi", "sp", "sp", strconv.Itoa(frameSize))
	t.prog.Ins("ret")
}

// emitStartStub emits a freestanding entry point: set up a stack, call
// main, then exit with main's return value.
func (t *transformer) emitStartStub() {
	t.prog.Add(asm.Directive{Text: ".globl _start"})
	t.prog.Add(asm.Label{Name: "_start"})
	t.prog.Ins("la", "sp", "stack_top")
	t.prog.Ins("call", "main")
	t.prog.Ins("li", "a7", "93")
	t.prog.Ins("ecall")
}

// emitStackSection reserves the freestanding stack in .bss
func (t *transformer) emitStackSection() {
	t.prog.Add(asm.Directive{Text: ".section .bss"})
	t.prog.Add(asm.Directive{Text: ".align 12"})
	t.prog.Add(asm.Label{Name: "stack_bottom"})
	t.prog.Add(asm.Directive{Text: ".skip 4096"})
	t.prog.Add(asm.Label{Name: "stack_top"})
}
