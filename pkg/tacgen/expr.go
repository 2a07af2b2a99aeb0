package tacgen

import (
	"fmt"
	"strconv"

	"github.com/mwilner/tern-cc/pkg/cabs"
	"github.com/mwilner/tern-cc/pkg/tac"
)

// lowerExpr emits code computing the expression and returns the name of
// the temporary holding its result.
func (c *Context) lowerExpr(expr cabs.Expr) (string, error) {
	switch e := expr.(type) {
	case *cabs.Constant:
		tmp := c.newTemp()
		c.emit(tac.OpLi, strconv.FormatInt(e.Value, 10), "", tmp)
		return tmp, nil
	case *cabs.Variable:
		tmp := c.newTemp()
		c.emit(tac.OpLoad, e.Name, "", tmp)
		return tmp, nil
	case *cabs.Unary:
		return c.lowerUnary(e)
	case *cabs.Binary:
		if e.Op == cabs.OpAnd || e.Op == cabs.OpOr {
			return c.lowerShortCircuit(e)
		}
		left, err := c.lowerExpr(e.Left)
		if err != nil {
			return "", err
		}
		right, err := c.lowerExpr(e.Right)
		if err != nil {
			return "", err
		}
		tmp := c.newTemp()
		c.emit(e.Op.String(), left, right, tmp)
		return tmp, nil
	case *cabs.Assign:
		return c.lowerAssign(e)
	case *cabs.CompoundAssign:
		return c.lowerCompoundAssign(e)
	case *cabs.Conditional:
		return c.lowerConditional(e)
	case *cabs.Call:
		return c.lowerCall(e)
	default:
		return "", fmt.Errorf("unknown expression %T", expr)
	}
}

func (c *Context) lowerUnary(e *cabs.Unary) (string, error) {
	operand, err := c.lowerExpr(e.Expr)
	if err != nil {
		return "", err
	}
	tmp := c.newTemp()
	switch e.Op {
	case cabs.OpNeg:
		c.emit(tac.OpNeg, operand, "", tmp)
	case cabs.OpBitNot:
		c.emit(tac.OpComp, operand, "", tmp)
	case cabs.OpNot:
		// Logical not is set-if-equal-to-zero.
		c.emit(tac.OpSeq, operand, "0", tmp)
	default:
		return "", fmt.Errorf("unknown unary operator %s", e.Op)
	}
	return tmp, nil
}

// lowerShortCircuit lowers && and ||. The right operand is skipped when
// the left already decides the outcome; otherwise the right operand's
// value becomes the result, as in the two-armed form
//
//	a && b: if (!a) 0 else b
//	a || b: if (a) 1 else b
func (c *Context) lowerShortCircuit(e *cabs.Binary) (string, error) {
	left, err := c.lowerExpr(e.Left)
	if err != nil {
		return "", err
	}

	falseLabel := c.newLabel()
	trueLabel := c.newLabel()
	endLabel := c.newLabel()
	tmp := c.newTemp()

	if e.Op == cabs.OpAnd {
		c.emit(tac.OpBeq, left, "0", falseLabel)
	} else {
		c.emit(tac.OpBne, left, "0", trueLabel)
	}

	right, err := c.lowerExpr(e.Right)
	if err != nil {
		return "", err
	}
	c.emit(tac.OpMove, right, "", tmp)
	c.emit(tac.OpJmp, "", "", endLabel)

	c.emit(tac.OpLabel, falseLabel, "", "")
	c.emit(tac.OpLi, "0", "", tmp)
	c.emit(tac.OpJmp, "", "", endLabel)

	c.emit(tac.OpLabel, trueLabel, "", "")
	c.emit(tac.OpLi, "1", "", tmp)

	c.emit(tac.OpLabel, endLabel, "", "")
	return tmp, nil
}

// assignTarget extracts the variable name an assignment writes to
func assignTarget(target cabs.Expr) (string, error) {
	v, ok := target.(*cabs.Variable)
	if !ok {
		return "", fmt.Errorf("assignment target must be a variable, got %T", target)
	}
	return v.Name, nil
}

// lowerAssign stores the value into the target's slot. The store
// quadruple carries the value in arg1 and the destination name in
// result; the assignment's own value is the stored temporary.
func (c *Context) lowerAssign(e *cabs.Assign) (string, error) {
	name, err := assignTarget(e.Target)
	if err != nil {
		return "", err
	}
	value, err := c.lowerExpr(e.Value)
	if err != nil {
		return "", err
	}
	c.emit(tac.OpStore, value, "", name)
	return value, nil
}

func (c *Context) lowerCompoundAssign(e *cabs.CompoundAssign) (string, error) {
	name, err := assignTarget(e.Target)
	if err != nil {
		return "", err
	}
	current := c.newTemp()
	c.emit(tac.OpLoad, name, "", current)

	value, err := c.lowerExpr(e.Value)
	if err != nil {
		return "", err
	}

	result := c.newTemp()
	c.emit(e.Op.String(), current, value, result)
	c.emit(tac.OpStore, result, "", name)
	return result, nil
}

func (c *Context) lowerConditional(e *cabs.Conditional) (string, error) {
	cond, err := c.lowerExpr(e.Cond)
	if err != nil {
		return "", err
	}

	falseLabel := c.newLabel()
	endLabel := c.newLabel()
	tmp := c.newTemp()

	c.emit(tac.OpBeqz, cond, falseLabel, "")

	thenValue, err := c.lowerExpr(e.Then)
	if err != nil {
		return "", err
	}
	c.emit(tac.OpMove, thenValue, "", tmp)
	c.emit(tac.OpJmp, "", "", endLabel)

	c.emit(tac.OpLabel, falseLabel, "", "")
	elseValue, err := c.lowerExpr(e.Else)
	if err != nil {
		return "", err
	}
	c.emit(tac.OpMove, elseValue, "", tmp)

	c.emit(tac.OpLabel, endLabel, "", "")
	return tmp, nil
}

// lowerCall evaluates every argument before any argument-register move,
// so a nested call cannot clobber registers already staged.
func (c *Context) lowerCall(e *cabs.Call) (string, error) {
	args := make([]string, 0, len(e.Args))
	for _, arg := range e.Args {
		tmp, err := c.lowerExpr(arg)
		if err != nil {
			return "", err
		}
		args = append(args, tmp)
	}
	for _, tmp := range args {
		c.emit(tac.OpArg, tmp, "", "")
	}
	result := c.newTemp()
	c.emit(tac.OpCall, e.Name, "", result)
	return result, nil
}
