package tacgen

import (
	"fmt"

	"github.com/mwilner/tern-cc/pkg/cabs"
	"github.com/mwilner/tern-cc/pkg/tac"
)

func (c *Context) lowerStmt(stmt cabs.Stmt) error {
	switch s := stmt.(type) {
	case *cabs.ExprStmt:
		tmp, err := c.lowerExpr(s.Expr)
		if err != nil {
			return err
		}
		c.emit(tac.OpExpr, tmp, "", "")
		return nil
	case *cabs.Return:
		tmp, err := c.lowerExpr(s.Expr)
		if err != nil {
			return err
		}
		c.emit(tac.OpReturn, tmp, "", "")
		return nil
	case *cabs.Null:
		return nil
	case *cabs.Block:
		for _, item := range s.Items {
			if err := c.lowerBlockItem(item); err != nil {
				return err
			}
		}
		return nil
	case *cabs.If:
		return c.lowerIf(s)
	case *cabs.While:
		return c.lowerWhile(s)
	case *cabs.DoWhile:
		return c.lowerDoWhile(s)
	case *cabs.For:
		return c.lowerFor(s)
	case *cabs.Break:
		target, ok := c.breakTarget()
		if !ok {
			return fmt.Errorf("break statement outside loop or switch")
		}
		c.emit(tac.OpJmp, "", "", target)
		return nil
	case *cabs.Continue:
		target, ok := c.continueTarget()
		if !ok {
			return fmt.Errorf("continue statement outside loop")
		}
		c.emit(tac.OpJmp, "", "", target)
		return nil
	case *cabs.Switch:
		return c.lowerSwitch(s)
	default:
		return fmt.Errorf("unknown statement %T", stmt)
	}
}

func (c *Context) lowerIf(s *cabs.If) error {
	cond, err := c.lowerExpr(s.Cond)
	if err != nil {
		return err
	}

	if s.Else == nil {
		endLabel := c.newLabel()
		c.emit(tac.OpBeqz, cond, endLabel, "")
		if err := c.lowerStmt(s.Then); err != nil {
			return err
		}
		c.emit(tac.OpLabel, endLabel, "", "")
		return nil
	}

	elseLabel := c.newLabel()
	endLabel := c.newLabel()
	c.emit(tac.OpBeqz, cond, elseLabel, "")
	if err := c.lowerStmt(s.Then); err != nil {
		return err
	}
	c.emit(tac.OpJmp, "", "", endLabel)
	c.emit(tac.OpLabel, elseLabel, "", "")
	if err := c.lowerStmt(s.Else); err != nil {
		return err
	}
	c.emit(tac.OpLabel, endLabel, "", "")
	return nil
}

func (c *Context) lowerWhile(s *cabs.While) error {
	startLabel := c.newLabel()
	endLabel := c.newLabel()

	c.emit(tac.OpLabel, startLabel, "", "")
	cond, err := c.lowerExpr(s.Cond)
	if err != nil {
		return err
	}
	c.emit(tac.OpBeqz, cond, endLabel, "")

	c.pushLoop(startLabel, endLabel)
	err = c.lowerStmt(s.Body)
	c.popLoop()
	if err != nil {
		return err
	}

	c.emit(tac.OpJmp, "", "", startLabel)
	c.emit(tac.OpLabel, endLabel, "", "")
	return nil
}

func (c *Context) lowerDoWhile(s *cabs.DoWhile) error {
	startLabel := c.newLabel()
	condLabel := c.newLabel()
	endLabel := c.newLabel()

	c.emit(tac.OpLabel, startLabel, "", "")

	c.pushLoop(condLabel, endLabel)
	err := c.lowerStmt(s.Body)
	c.popLoop()
	if err != nil {
		return err
	}

	c.emit(tac.OpLabel, condLabel, "", "")
	cond, err := c.lowerExpr(s.Cond)
	if err != nil {
		return err
	}
	c.emit(tac.OpBnez, cond, startLabel, "")
	c.emit(tac.OpLabel, endLabel, "", "")
	return nil
}

func (c *Context) lowerFor(s *cabs.For) error {
	if err := c.lowerBlockItem(s.Init); err != nil {
		return err
	}

	startLabel := c.newLabel()
	incLabel := c.newLabel()
	endLabel := c.newLabel()

	c.emit(tac.OpLabel, startLabel, "", "")
	cond, err := c.lowerExpr(s.Cond)
	if err != nil {
		return err
	}
	c.emit(tac.OpBeqz, cond, endLabel, "")

	c.pushLoop(incLabel, endLabel)
	err = c.lowerStmt(s.Body)
	c.popLoop()
	if err != nil {
		return err
	}

	c.emit(tac.OpLabel, incLabel, "", "")
	if _, err := c.lowerExpr(s.Step); err != nil {
		return err
	}
	c.emit(tac.OpJmp, "", "", startLabel)
	c.emit(tac.OpLabel, endLabel, "", "")
	return nil
}

// lowerSwitch compares the scrutinee against each case value in order,
// then jumps to the matching arm, the default arm, or past the switch.
// Arms fall through: no jump is inserted between consecutive bodies.
func (c *Context) lowerSwitch(s *cabs.Switch) error {
	scrutinee, err := c.lowerExpr(s.Scrutinee)
	if err != nil {
		return err
	}

	caseLabels := make([]string, len(s.Cases))
	for i := range s.Cases {
		caseLabels[i] = c.newLabel()
	}
	defaultLabel := ""
	if s.HasDefault {
		defaultLabel = c.newLabel()
	}
	endLabel := c.newLabel()

	for i, arm := range s.Cases {
		value, err := c.lowerExpr(arm.Value)
		if err != nil {
			return err
		}
		c.emit(tac.OpBeq, scrutinee, value, caseLabels[i])
	}
	if s.HasDefault {
		c.emit(tac.OpJmp, "", "", defaultLabel)
	} else {
		c.emit(tac.OpJmp, "", "", endLabel)
	}

	c.pushSwitch(endLabel)
	defer c.popSwitch()

	for i, arm := range s.Cases {
		c.emit(tac.OpLabel, caseLabels[i], "", "")
		for _, body := range arm.Body {
			if err := c.lowerStmt(body); err != nil {
				return err
			}
		}
	}
	if s.HasDefault {
		c.emit(tac.OpLabel, defaultLabel, "", "")
		for _, body := range s.Default {
			if err := c.lowerStmt(body); err != nil {
				return err
			}
		}
	}

	c.emit(tac.OpLabel, endLabel, "", "")
	return nil
}
