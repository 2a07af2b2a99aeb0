package asmgen

import (
	"strings"
	"testing"

	"github.com/mwilner/tern-cc/pkg/asm"
	"github.com/mwilner/tern-cc/pkg/tac"
)

func render(t *testing.T, quads []tac.Quad, opts Options) string {
	t.Helper()
	var sb strings.Builder
	asm.NewPrinter(&sb).PrintProgram(TransformProgram(quads, opts))
	return sb.String()
}

func TestFunctionFrame(t *testing.T) {
	quads := []tac.Quad{
		{Op: "function", Arg1: "main"},
		{Op: "li", Arg1: "42", Result: "t0"},
		{Op: "RETURN", Arg1: "t0"},
	}

	want := `.text
.globl main
.type main, @function
main:
    addi sp, sp, -64
    sd ra, 56(sp)
    sd s0, 48(sp)
    addi s0, sp, 64
    li t0, 42
    mv a0, t0
    ld ra, 56(sp)
    ld s0, 48(sp)
    addi sp, sp, 64
    ret
`
	got := render(t, quads, Options{})
	if got != want {
		t.Errorf("output mismatch\n--- want ---\n%s--- got ---\n%s", want, got)
	}
}

func TestStackSlotAssignment(t *testing.T) {
	quads := []tac.Quad{
		{Op: "function", Arg1: "main"},
		{Op: "li", Arg1: "1", Result: "t0"},
		{Op: "store", Arg1: "t0", Result: "x"},
		{Op: "li", Arg1: "2", Result: "t1"},
		{Op: "store", Arg1: "t1", Result: "y"},
		{Op: "li", Arg1: "3", Result: "t2"},
		{Op: "store", Arg1: "t2", Result: "x"},
		{Op: "load", Arg1: "y", Result: "t3"},
		{Op: "RETURN", Arg1: "t3"},
	}

	got := render(t, quads, Options{})

	// First-seen variables take -16, -24, ...; a second store to x
	// reuses its slot.
	for _, want := range []string{
		"sd t0, -16(s0)",
		"sd t1, -24(s0)",
		"sd t2, -16(s0)",
		"ld t3, -24(s0)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
}

func TestSlotsAreEightByteAligned(t *testing.T) {
	tr := &transformer{regs: NewRegAllocator()}
	tr.resetFunction()

	names := []string{"a", "b", "c", "d", "e"}
	for _, name := range names {
		off := tr.slot(name)
		if off%8 != 0 {
			t.Errorf("slot for %s = %d, not 8-byte aligned", name, off)
		}
		if off > -16 {
			t.Errorf("slot for %s = %d, overlaps the saved registers", name, off)
		}
	}
}

func TestComparisonLowering(t *testing.T) {
	tests := []struct {
		name string
		op   string
		want []string
	}{
		{
			name: "equality goes through sub and seqz",
			op:   "==",
			want: []string{"sub t2, t0, t1", "seqz t2, t2"},
		},
		{
			name: "inequality goes through sub and snez",
			op:   "!=",
			want: []string{"sub t2, t0, t1", "snez t2, t2"},
		},
		{
			name: "less than",
			op:   "<",
			want: []string{"slt t2, t0, t1"},
		},
		{
			name: "greater than swaps operands",
			op:   ">",
			want: []string{"slt t2, t1, t0"},
		},
		{
			name: "less or equal inverts swapped slt",
			op:   "<=",
			want: []string{"slt t2, t1, t0", "xori t2, t2, 1"},
		},
		{
			name: "greater or equal inverts slt",
			op:   ">=",
			want: []string{"slt t2, t0, t1", "xori t2, t2, 1"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			quads := []tac.Quad{
				{Op: "function", Arg1: "main"},
				{Op: "li", Arg1: "1", Result: "t0"},
				{Op: "li", Arg1: "2", Result: "t1"},
				{Op: tc.op, Arg1: "t0", Arg2: "t1", Result: "t2"},
				{Op: "RETURN", Arg1: "t2"},
			}
			got := render(t, quads, Options{})
			last := -1
			for _, want := range tc.want {
				idx := strings.Index(got, want)
				if idx < 0 {
					t.Fatalf("output missing %q\n%s", want, got)
				}
				if idx < last {
					t.Fatalf("%q out of order\n%s", want, got)
				}
				last = idx
			}
		})
	}
}

func TestBinaryOps(t *testing.T) {
	ops := map[string]string{
		"+": "add", "-": "sub", "*": "mul", "/": "div", "%": "rem",
		"&": "and", "|": "or", "^": "xor", "<<": "sll", ">>": "srl",
	}
	for op, mnemonic := range ops {
		quads := []tac.Quad{
			{Op: "function", Arg1: "main"},
			{Op: "li", Arg1: "6", Result: "t0"},
			{Op: "li", Arg1: "3", Result: "t1"},
			{Op: op, Arg1: "t0", Arg2: "t1", Result: "t2"},
			{Op: "RETURN", Arg1: "t2"},
		}
		got := render(t, quads, Options{})
		if !strings.Contains(got, mnemonic+" t2, t0, t1") {
			t.Errorf("op %q: expected %q in output\n%s", op, mnemonic+" t2, t0, t1", got)
		}
	}
}

func TestBranchAgainstZeroUsesZeroRegister(t *testing.T) {
	quads := []tac.Quad{
		{Op: "function", Arg1: "main"},
		{Op: "li", Arg1: "1", Result: "t0"},
		{Op: "beq", Arg1: "t0", Arg2: "0", Result: "L1"},
		{Op: "label", Arg1: "L1"},
		{Op: "RETURN", Arg1: "t0"},
	}

	got := render(t, quads, Options{})
	if !strings.Contains(got, "beq t0, zero, L1") {
		t.Errorf("expected comparison against the zero register\n%s", got)
	}
}

func TestReversedBranches(t *testing.T) {
	quads := []tac.Quad{
		{Op: "function", Arg1: "main"},
		{Op: "li", Arg1: "1", Result: "t0"},
		{Op: "li", Arg1: "2", Result: "t1"},
		{Op: "bgt", Arg1: "t0", Arg2: "t1", Result: "L1"},
		{Op: "ble", Arg1: "t0", Arg2: "t1", Result: "L2"},
		{Op: "label", Arg1: "L1"},
		{Op: "label", Arg1: "L2"},
		{Op: "RETURN", Arg1: "t0"},
	}

	got := render(t, quads, Options{})
	if !strings.Contains(got, "blt t1, t0, L1") {
		t.Errorf("bgt should emit blt with swapped operands\n%s", got)
	}
	if !strings.Contains(got, "bge t1, t0, L2") {
		t.Errorf("ble should emit bge with swapped operands\n%s", got)
	}
}

func TestParamsSpillFromArgumentRegisters(t *testing.T) {
	quads := []tac.Quad{
		{Op: "function", Arg1: "add"},
		{Op: "param", Arg1: "a"},
		{Op: "param", Arg1: "b"},
		{Op: "load", Arg1: "a", Result: "t0"},
		{Op: "load", Arg1: "b", Result: "t1"},
		{Op: "+", Arg1: "t0", Arg2: "t1", Result: "t2"},
		{Op: "RETURN", Arg1: "t2"},
	}

	got := render(t, quads, Options{})
	for _, want := range []string{
		"sd a0, -16(s0)",
		"sd a1, -24(s0)",
		"ld t0, -16(s0)",
		"ld t1, -24(s0)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
}

func TestArgumentRegistersResetBetweenCalls(t *testing.T) {
	quads := []tac.Quad{
		{Op: "function", Arg1: "main"},
		{Op: "li", Arg1: "1", Result: "t0"},
		{Op: "arg", Arg1: "t0"},
		{Op: "call", Arg1: "f", Result: "t1"},
		{Op: "li", Arg1: "2", Result: "t2"},
		{Op: "arg", Arg1: "t2"},
		{Op: "call", Arg1: "f", Result: "t3"},
		{Op: "RETURN", Arg1: "t3"},
	}

	got := render(t, quads, Options{})
	for _, want := range []string{"mv a0, t0", "mv a0, t2"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected both calls to stage their argument in a0, missing %q\n%s", want, got)
		}
	}
	if strings.Contains(got, "mv a1,") {
		t.Errorf("second call leaked into a1\n%s", got)
	}
}

func TestCallMovesResultFromA0(t *testing.T) {
	quads := []tac.Quad{
		{Op: "function", Arg1: "main"},
		{Op: "call", Arg1: "f", Result: "t0"},
		{Op: "RETURN", Arg1: "t0"},
	}

	got := render(t, quads, Options{})
	callIdx := strings.Index(got, "call f")
	mvIdx := strings.Index(got, "mv t0, a0")
	if callIdx < 0 || mvIdx < 0 || mvIdx < callIdx {
		t.Errorf("expected 'call f' followed by 'mv t0, a0'\n%s", got)
	}
}

func TestFreestandingStub(t *testing.T) {
	quads := []tac.Quad{
		{Op: "function", Arg1: "main"},
		{Op: "li", Arg1: "0", Result: "t0"},
		{Op: "RETURN", Arg1: "t0"},
	}

	got := render(t, quads, Options{Freestanding: true})
	for _, want := range []string{
		".globl _start",
		"_start:",
		"la sp, stack_top",
		"call main",
		"li a7, 93",
		"ecall",
		".section .bss",
		".skip 4096",
		"stack_top:",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("freestanding output missing %q\n%s", want, got)
		}
	}

	hosted := render(t, quads, Options{})
	if strings.Contains(hosted, "_start") {
		t.Errorf("hosted output should not contain the _start stub\n%s", hosted)
	}
}

func TestPerFunctionStateResets(t *testing.T) {
	quads := []tac.Quad{
		{Op: "function", Arg1: "f"},
		{Op: "li", Arg1: "1", Result: "t0"},
		{Op: "store", Arg1: "t0", Result: "x"},
		{Op: "load", Arg1: "x", Result: "t1"},
		{Op: "RETURN", Arg1: "t1"},
		{Op: "function", Arg1: "main"},
		{Op: "li", Arg1: "2", Result: "t2"},
		{Op: "store", Arg1: "t2", Result: "y"},
		{Op: "load", Arg1: "y", Result: "t3"},
		{Op: "RETURN", Arg1: "t3"},
	}

	got := render(t, quads, Options{})

	// y is main's first variable, so it lands on -16 even though f
	// already used that slot for x; t2 is main's first temporary and
	// maps to register t0.
	mainIdx := strings.Index(got, "main:")
	mainBody := got[mainIdx:]
	if !strings.Contains(mainBody, "sd t0, -16(s0)") {
		t.Errorf("per-function state did not reset\n%s", got)
	}
}
