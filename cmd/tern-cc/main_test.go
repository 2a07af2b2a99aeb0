package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// resetFlags restores flag package state between CLI invocations
func resetFlags() {
	dTokens = false
	dAST = false
	dTAC = false
	outputPath = "aprog.S"
	freestanding = false
}

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.c")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}
	return path
}

// runCLI executes the root command in-process and returns stdout,
// stderr, and the execution error.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(normalizeFlags(args))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCompileWritesAssembly(t *testing.T) {
	src := writeSource(t, "int main(void) { return 42; }")
	outPath := filepath.Join(t.TempDir(), "out.S")

	_, errOut, err := runCLI(t, "-o", outPath, src)
	if err != nil {
		t.Fatalf("compile failed: %v\nStderr: %s", err, errOut)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	asm := string(data)
	for _, want := range []string{".text", ".globl main", "main:", "li t0, 42", "mv a0, t0", "ret"} {
		if !strings.Contains(asm, want) {
			t.Errorf("assembly missing %q\n%s", want, asm)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"parse error", "int main(void) { return 1 }", "unexpected"},
		{"lex error", "int main(void) { return 1 $ 2; }", "unexpected"},
		{"resolve error", "int main(void) { return x; }", "undeclared variable 'x'"},
		{"control flow error", "int main(void) { break; }", "break statement outside loop"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := writeSource(t, tc.source)
			outPath := filepath.Join(t.TempDir(), "out.S")

			_, errOut, err := runCLI(t, "-o", outPath, src)
			if err == nil {
				t.Fatalf("expected failure for %q", tc.source)
			}
			if !strings.Contains(errOut, tc.want) {
				t.Errorf("stderr %q does not contain %q", errOut, tc.want)
			}
			if _, statErr := os.Stat(outPath); statErr == nil {
				t.Errorf("output file should not exist after a failed compile")
			}
		})
	}
}

func TestMissingInputFile(t *testing.T) {
	_, errOut, err := runCLI(t, filepath.Join(t.TempDir(), "nope.c"))
	if err == nil {
		t.Fatal("expected an error for a missing input file")
	}
	if !strings.Contains(errOut, "error reading") {
		t.Errorf("stderr %q does not mention the read failure", errOut)
	}
}

func TestNoArgsShowsHelp(t *testing.T) {
	out, _, err := runCLI(t)
	if err != nil {
		t.Fatalf("no-argument invocation should not fail: %v", err)
	}
	if !strings.Contains(out, "tern-cc") {
		t.Errorf("expected help output, got %q", out)
	}
}

func TestDumpTokens(t *testing.T) {
	src := writeSource(t, "int main(void) { return 42; }")

	out, errOut, err := runCLI(t, "--dtokens", src)
	if err != nil {
		t.Fatalf("dtokens failed: %v\nStderr: %s", err, errOut)
	}
	for _, want := range []string{`IDENT "main"`, `NUM "42"`, "return", "EOF"} {
		if !strings.Contains(out, want) {
			t.Errorf("token dump missing %q\n%s", want, out)
		}
	}
}

func TestDumpAST(t *testing.T) {
	src := writeSource(t, "int main(void) { int x = 1; return x + 2; }")

	out, errOut, err := runCLI(t, "--dast", src)
	if err != nil {
		t.Fatalf("dast failed: %v\nStderr: %s", err, errOut)
	}
	for _, want := range []string{"int main(void)", "int x = 1;", "return"} {
		if !strings.Contains(out, want) {
			t.Errorf("AST dump missing %q\n%s", want, out)
		}
	}
}

func TestDumpTAC(t *testing.T) {
	src := writeSource(t, "int main(void) { return 2 + 3; }")

	out, errOut, err := runCLI(t, "--dtac", src)
	if err != nil {
		t.Fatalf("dtac failed: %v\nStderr: %s", err, errOut)
	}
	for _, want := range []string{"main:", "t0 = li 2", "t1 = li 3", "t2 = t0 + t1"} {
		if !strings.Contains(out, want) {
			t.Errorf("TAC dump missing %q\n%s", want, out)
		}
	}
}

func TestFreestandingOutput(t *testing.T) {
	src := writeSource(t, "int main(void) { return 0; }")
	outPath := filepath.Join(t.TempDir(), "out.S")

	_, errOut, err := runCLI(t, "--freestanding", "-o", outPath, src)
	if err != nil {
		t.Fatalf("compile failed: %v\nStderr: %s", err, errOut)
	}

	data, _ := os.ReadFile(outPath)
	for _, want := range []string{"_start:", "la sp, stack_top", "li a7, 93", "ecall", ".section .bss"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("freestanding assembly missing %q", want)
		}
	}
}

func TestNormalizeFlags(t *testing.T) {
	got := normalizeFlags([]string{"-dtac", "-o", "out.S", "--dast", "file.c"})
	want := []string{"--dtac", "-o", "out.S", "--dast", "file.c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("normalizeFlags = %v, want %v", got, want)
	}
}
