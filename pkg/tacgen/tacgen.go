// Package tacgen lowers the resolved AST into a flat sequence of
// three-address quadruples.
package tacgen

import (
	"fmt"

	"github.com/mwilner/tern-cc/pkg/cabs"
	"github.com/mwilner/tern-cc/pkg/tac"
)

// Context carries the lowering state for one compilation unit: the
// quadruple stream, the shared name counter, and the control-transfer
// label stacks. Temporaries (t<N>) and labels (L<N>) draw from the same
// counter, so an N is never reused across the unit.
type Context struct {
	quads          []tac.Quad
	next           int
	breakLabels    []string
	continueLabels []string
}

// NewContext creates an empty lowering context
func NewContext() *Context {
	return &Context{}
}

func (c *Context) newTemp() string {
	name := fmt.Sprintf("t%d", c.next)
	c.next++
	return name
}

func (c *Context) newLabel() string {
	name := fmt.Sprintf("L%d", c.next)
	c.next++
	return name
}

func (c *Context) emit(op, arg1, arg2, result string) {
	c.quads = append(c.quads, tac.New(op, arg1, arg2, result))
}

// pushLoop registers the branch targets for a loop body: continue jumps
// to cont, break jumps to brk.
func (c *Context) pushLoop(cont, brk string) {
	c.continueLabels = append(c.continueLabels, cont)
	c.breakLabels = append(c.breakLabels, brk)
}

func (c *Context) popLoop() {
	c.continueLabels = c.continueLabels[:len(c.continueLabels)-1]
	c.breakLabels = c.breakLabels[:len(c.breakLabels)-1]
}

// pushSwitch registers the break target for a switch body. Continue is
// untouched: a continue inside a switch belongs to the enclosing loop.
func (c *Context) pushSwitch(brk string) {
	c.breakLabels = append(c.breakLabels, brk)
}

func (c *Context) popSwitch() {
	c.breakLabels = c.breakLabels[:len(c.breakLabels)-1]
}

// breakTarget returns the innermost break label. Loops and switches
// share one stack, so break always exits the innermost construct.
func (c *Context) breakTarget() (string, bool) {
	if len(c.breakLabels) == 0 {
		return "", false
	}
	return c.breakLabels[len(c.breakLabels)-1], true
}

func (c *Context) continueTarget() (string, bool) {
	if len(c.continueLabels) == 0 {
		return "", false
	}
	return c.continueLabels[len(c.continueLabels)-1], true
}

// TranslateProgram lowers every defined function in the program.
// Prototypes produce no code.
func TranslateProgram(prog *cabs.Program) ([]tac.Quad, error) {
	c := NewContext()
	for _, fn := range prog.Functions {
		if fn.Body == nil {
			continue
		}
		if err := c.lowerFunction(fn); err != nil {
			return nil, err
		}
	}
	return c.quads, nil
}

// lowerFunction emits the function marker, one param quad per parameter
// so the emitter spills argument registers to stack slots, then the body.
func (c *Context) lowerFunction(fn *cabs.FuncDecl) error {
	c.emit(tac.OpFunction, fn.Name, "", "")
	for _, param := range fn.Params {
		c.emit(tac.OpParam, param, "", "")
	}
	for _, item := range fn.Body.Items {
		if err := c.lowerBlockItem(item); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) lowerBlockItem(item cabs.BlockItem) error {
	switch it := item.(type) {
	case *cabs.VarDecl:
		if it.Init == nil {
			return nil
		}
		value, err := c.lowerExpr(it.Init)
		if err != nil {
			return err
		}
		c.emit(tac.OpStore, value, "", it.Name)
		return nil
	case *cabs.FuncDecl:
		// Local prototype; nothing to lower.
		return nil
	case cabs.Stmt:
		return c.lowerStmt(it)
	default:
		return fmt.Errorf("unknown block item %T", item)
	}
}
