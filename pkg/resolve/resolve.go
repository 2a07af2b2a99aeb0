// Package resolve validates declarations and uses with lexically scoped
// symbol tables. It walks the AST top-down and fails on the first
// semantic error; the tree itself is left unchanged, so resolving twice
// is a no-op.
package resolve

import (
	"fmt"

	"github.com/mwilner/tern-cc/pkg/cabs"
)

// ResolveProgram checks every function in the program
func ResolveProgram(prog *cabs.Program) error {
	r := &resolver{symtab: NewSymbolTable()}
	for _, fn := range prog.Functions {
		if err := r.resolveFuncDecl(fn); err != nil {
			return err
		}
	}
	return nil
}

type resolver struct {
	symtab *SymbolTable
}

func (r *resolver) resolveFuncDecl(fn *cabs.FuncDecl) error {
	if err := r.symtab.DeclareFunc(fn.Name, fn.Params, fn.Body != nil); err != nil {
		return err
	}
	if fn.Body == nil {
		return nil
	}

	r.symtab.EnterScope()
	defer r.symtab.ExitScope()

	for _, param := range fn.Params {
		if param == fn.Name {
			return fmt.Errorf("parameter '%s' conflicts with function name", param)
		}
		if !r.symtab.Declare(param) {
			return fmt.Errorf("duplicate parameter '%s' in function '%s'", param, fn.Name)
		}
	}

	for _, item := range fn.Body.Items {
		if err := r.resolveBlockItem(item); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) resolveBlockItem(item cabs.BlockItem) error {
	switch it := item.(type) {
	case *cabs.VarDecl:
		// The name is declared before the initializer is resolved,
		// so `int x = x;` resolves against the new declaration.
		if !r.symtab.Declare(it.Name) {
			return fmt.Errorf("redeclaration of variable '%s'", it.Name)
		}
		if it.Init != nil {
			return r.resolveExpr(it.Init)
		}
		return nil
	case *cabs.FuncDecl:
		return r.resolveFuncDecl(it)
	case cabs.Stmt:
		return r.resolveStmt(it)
	default:
		return fmt.Errorf("unknown block item %T", item)
	}
}

func (r *resolver) resolveStmt(stmt cabs.Stmt) error {
	switch s := stmt.(type) {
	case *cabs.ExprStmt:
		return r.resolveExpr(s.Expr)
	case *cabs.Return:
		return r.resolveExpr(s.Expr)
	case *cabs.Null:
		return nil
	case *cabs.Block:
		r.symtab.EnterScope()
		defer r.symtab.ExitScope()
		for _, item := range s.Items {
			if err := r.resolveBlockItem(item); err != nil {
				return err
			}
		}
		return nil
	case *cabs.If:
		if err := r.resolveExpr(s.Cond); err != nil {
			return err
		}
		if err := r.resolveScoped(s.Then); err != nil {
			return err
		}
		if s.Else != nil {
			return r.resolveScoped(s.Else)
		}
		return nil
	case *cabs.While:
		if err := r.resolveExpr(s.Cond); err != nil {
			return err
		}
		return r.resolveScoped(s.Body)
	case *cabs.DoWhile:
		if err := r.resolveScoped(s.Body); err != nil {
			return err
		}
		return r.resolveExpr(s.Cond)
	case *cabs.For:
		// One outer scope covers init, cond, step, and body.
		r.symtab.EnterScope()
		defer r.symtab.ExitScope()
		if err := r.resolveBlockItem(s.Init); err != nil {
			return err
		}
		if err := r.resolveExpr(s.Cond); err != nil {
			return err
		}
		if err := r.resolveExpr(s.Step); err != nil {
			return err
		}
		return r.resolveStmt(s.Body)
	case *cabs.Break, *cabs.Continue:
		return nil
	case *cabs.Switch:
		if err := r.resolveExpr(s.Scrutinee); err != nil {
			return err
		}
		r.symtab.EnterScope()
		defer r.symtab.ExitScope()
		for _, c := range s.Cases {
			if err := r.resolveExpr(c.Value); err != nil {
				return err
			}
			for _, body := range c.Body {
				if err := r.resolveStmt(body); err != nil {
					return err
				}
			}
		}
		for _, body := range s.Default {
			if err := r.resolveStmt(body); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown statement %T", stmt)
	}
}

// resolveScoped resolves a control statement body in its own scope
func (r *resolver) resolveScoped(stmt cabs.Stmt) error {
	r.symtab.EnterScope()
	defer r.symtab.ExitScope()
	return r.resolveStmt(stmt)
}

func (r *resolver) resolveExpr(expr cabs.Expr) error {
	switch e := expr.(type) {
	case *cabs.Constant:
		return nil
	case *cabs.Variable:
		if !r.symtab.Resolve(e.Name) {
			return fmt.Errorf("undeclared variable '%s'", e.Name)
		}
		return nil
	case *cabs.Unary:
		return r.resolveExpr(e.Expr)
	case *cabs.Binary:
		if err := r.resolveExpr(e.Left); err != nil {
			return err
		}
		return r.resolveExpr(e.Right)
	case *cabs.Assign:
		if err := r.resolveExpr(e.Target); err != nil {
			return err
		}
		return r.resolveExpr(e.Value)
	case *cabs.CompoundAssign:
		if err := r.resolveExpr(e.Target); err != nil {
			return err
		}
		return r.resolveExpr(e.Value)
	case *cabs.Conditional:
		if err := r.resolveExpr(e.Cond); err != nil {
			return err
		}
		if err := r.resolveExpr(e.Then); err != nil {
			return err
		}
		return r.resolveExpr(e.Else)
	case *cabs.Call:
		sig, ok := r.symtab.LookupFunc(e.Name)
		if !ok {
			return fmt.Errorf("call to unknown function '%s'", e.Name)
		}
		if len(sig.Params) != len(e.Args) {
			return fmt.Errorf("function '%s' takes %d arguments, got %d",
				e.Name, len(sig.Params), len(e.Args))
		}
		for _, arg := range e.Args {
			if err := r.resolveExpr(arg); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown expression %T", expr)
	}
}
