package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mwilner/tern-cc/pkg/asm"
	"github.com/mwilner/tern-cc/pkg/asmgen"
	"github.com/mwilner/tern-cc/pkg/cabs"
	"github.com/mwilner/tern-cc/pkg/lexer"
	"github.com/mwilner/tern-cc/pkg/parser"
	"github.com/mwilner/tern-cc/pkg/resolve"
	"github.com/mwilner/tern-cc/pkg/tac"
	"github.com/mwilner/tern-cc/pkg/tacgen"
)

var version = "0.1.0"

// Debug flags for dumping intermediate representations
var (
	dTokens bool
	dAST    bool
	dTAC    bool
)

// Output options
var (
	outputPath   string
	freestanding bool
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// debugFlagNames lists the debug flags that accept single-dash style
var debugFlagNames = []string{"dtokens", "dast", "dtac"}

// normalizeFlags converts single-dash debug flags like -dtac to --dtac
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tern-cc [file]",
		Short: "tern-cc compiles a C subset to RV64 assembly",
		Long: `tern-cc is a single-pass compiler for a restricted C subset.
It scans, parses, resolves, and lowers one source file to three-address
code, then emits 64-bit RISC-V assembly for an external assembler.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			filename := args[0]

			if dTokens {
				return doTokens(filename, out, errOut)
			}
			if dAST {
				return doAST(filename, out, errOut)
			}
			if dTAC {
				return doTAC(filename, out, errOut)
			}
			return doCompile(filename, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().BoolVar(&dTokens, "dtokens", false, "Dump the token stream")
	rootCmd.Flags().BoolVar(&dAST, "dast", false, "Dump the AST after parsing")
	rootCmd.Flags().BoolVar(&dTAC, "dtac", false, "Dump the three-address code after lowering")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "aprog.S", "Write assembly to this path")
	rootCmd.Flags().BoolVar(&freestanding, "freestanding", false,
		"Emit a _start stub and stack instead of relying on the C runtime")

	return rootCmd
}

// fprintDiag writes one diagnostic line, in red when the stream is a
// terminal.
func fprintDiag(w io.Writer, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(w, "\x1b[31m%s\x1b[0m\n", msg)
		return
	}
	fmt.Fprintln(w, msg)
}

// parseFile reads and parses a source file, returning the AST
func parseFile(filename string, errOut io.Writer) (*cabs.Program, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		fprintDiag(errOut, "tern-cc: error reading %s: %v", filename, err)
		return nil, err
	}

	p := parser.New(lexer.New(string(content)))
	program := p.ParseProgram()

	if len(p.Errors()) > 0 {
		for _, e := range p.Errors() {
			fprintDiag(errOut, "%s: %s", filename, e)
		}
		return nil, fmt.Errorf("parsing failed")
	}
	return program, nil
}

// lowerFile runs the front half of the pipeline: parse, resolve, lower
func lowerFile(filename string, errOut io.Writer) ([]tac.Quad, error) {
	program, err := parseFile(filename, errOut)
	if err != nil {
		return nil, err
	}

	if err := resolve.ResolveProgram(program); err != nil {
		fprintDiag(errOut, "%s: %v", filename, err)
		return nil, err
	}

	quads, err := tacgen.TranslateProgram(program)
	if err != nil {
		fprintDiag(errOut, "%s: %v", filename, err)
		return nil, err
	}
	return quads, nil
}

// doTokens scans the file and dumps one token per line
func doTokens(filename string, out, errOut io.Writer) error {
	content, err := os.ReadFile(filename)
	if err != nil {
		fprintDiag(errOut, "tern-cc: error reading %s: %v", filename, err)
		return err
	}

	l := lexer.New(string(content))
	for {
		tok := l.NextToken()
		if tok.Literal != "" && tok.Type.String() != tok.Literal {
			fmt.Fprintf(out, "%d: %s %q\n", tok.Line, tok.Type, tok.Literal)
		} else {
			fmt.Fprintf(out, "%d: %s\n", tok.Line, tok.Type)
		}
		if tok.Type == lexer.TokenEOF {
			return nil
		}
	}
}

// doAST parses the file and dumps the AST as C-like source
func doAST(filename string, out, errOut io.Writer) error {
	program, err := parseFile(filename, errOut)
	if err != nil {
		return err
	}
	cabs.NewPrinter(out).PrintProgram(program)
	return nil
}

// doTAC lowers the file and dumps the quadruple stream
func doTAC(filename string, out, errOut io.Writer) error {
	quads, err := lowerFile(filename, errOut)
	if err != nil {
		return err
	}
	tac.NewPrinter(out).PrintQuads(quads)
	return nil
}

// doCompile runs the full pipeline and writes the assembly file
func doCompile(filename string, errOut io.Writer) error {
	quads, err := lowerFile(filename, errOut)
	if err != nil {
		return err
	}

	prog := asmgen.TransformProgram(quads, asmgen.Options{Freestanding: freestanding})

	outFile, err := os.Create(outputPath)
	if err != nil {
		fprintDiag(errOut, "tern-cc: error creating %s: %v", outputPath, err)
		return err
	}
	defer outFile.Close()

	asm.NewPrinter(outFile).PrintProgram(prog)
	return nil
}
