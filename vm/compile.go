package vm

import (
	"sort"

	"github.com/chazu/starling/compiler"
)

// ---------------------------------------------------------------------------
// defcompile: ahead-of-time method checking
// ---------------------------------------------------------------------------

// execDefcompile compiles method bodies without running them, surfacing
// name, member, and access errors early. Bare defcompile covers every class
// and function of the current script; a qualified form targets one class or
// one method. Compiling an already compiled method is a no-op.
func (e *Engine) execDefcompile(fr *frame, s *compiler.DefcompileStmt) *ScriptError {
	script := fr.script.Name

	if s.Class == "" {
		for _, cl := range fr.script.Classes {
			if err := e.compileClass(cl, script); err != nil {
				return err
			}
		}
		// sorted so the first error reported is stable across runs
		names := make([]string, 0, len(fr.script.Funcs))
		for name := range fr.script.Funcs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := e.compileMethod(nil, fr.script.Funcs[name], script); err != nil {
				return err
			}
		}
		return nil
	}

	cl := e.classes.Lookup(s.Class)
	if cl == nil {
		return errf(ErrClassNotFound, script, s.Line, "cannot find class %s", s.Class)
	}
	if s.Method == "" {
		return e.compileClass(cl, script)
	}
	m := cl.FindMethod(s.Method)
	if m == nil {
		m = cl.FindClassMethod(s.Method)
	}
	if m == nil && s.Method == "new" {
		m = cl.NewMethod
	}
	if m == nil {
		return errf(ErrMethodNotFound, script, s.Line,
			"method %s not found in class %s", s.Method, s.Class)
	}
	return e.compileMethod(cl, m, script)
}

// CompileAll compiles every registered class, in registration order. The
// host calls this when the project manifest requests ahead-of-time checking.
func (e *Engine) CompileAll() *ScriptError {
	for _, name := range e.classes.order {
		cl := e.classes.byName[name]
		if err := e.compileClass(cl, cl.Script); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) compileClass(cl *Class, script string) *ScriptError {
	if cl.Interface {
		return nil
	}
	for _, m := range cl.Methods {
		if m.DefClass != cl {
			continue
		}
		if err := e.compileMethod(cl, m, script); err != nil {
			return err
		}
	}
	for _, m := range cl.ClassMethods {
		if err := e.compileMethod(cl, m, script); err != nil {
			return err
		}
	}
	if cl.NewMethod != nil {
		if err := e.compileMethod(cl, cl.NewMethod, script); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) compileMethod(cl *Class, m *Method, script string) *ScriptError {
	if m.Compiled || m.Abstract || m.Body == nil {
		return nil
	}
	cc := &compileCtx{
		engine: e,
		cls:    cl,
		method: m,
		script: script,
		names:  make(map[string]bool),
	}
	for _, p := range m.Params {
		cc.names[p.Name] = true
	}
	if err := cc.checkBody(m.Body); err != nil {
		return err
	}
	m.Compiled = true
	e.log.Debugf("compiled %s", m.Name)
	return nil
}

// compileCtx tracks the names visible while checking one method body.
type compileCtx struct {
	engine *Engine
	cls    *Class
	method *Method
	script string
	names  map[string]bool
}

func (cc *compileCtx) checkBody(body []compiler.Stmt) *ScriptError {
	for _, stmt := range body {
		if err := cc.checkStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (cc *compileCtx) checkStmt(stmt compiler.Stmt) *ScriptError {
	switch s := stmt.(type) {
	case *compiler.VarDeclStmt:
		if s.Init != nil {
			if err := cc.checkExpr(s.Init); err != nil {
				return err
			}
		}
		cc.names[s.Name] = true
		return nil
	case *compiler.AssignStmt:
		if err := cc.checkAssignTarget(s.Target); err != nil {
			return err
		}
		return cc.checkExpr(s.Value)
	case *compiler.ExprStmt:
		return cc.checkExpr(s.X)
	case *compiler.ReturnStmt:
		if s.Value != nil {
			return cc.checkExpr(s.Value)
		}
		return nil
	case *compiler.IfStmt:
		if err := cc.checkExpr(s.Cond); err != nil {
			return err
		}
		if err := cc.checkBody(s.Then); err != nil {
			return err
		}
		for i := range s.ElseIfs {
			if err := cc.checkExpr(s.ElseIfs[i].Cond); err != nil {
				return err
			}
			if err := cc.checkBody(s.ElseIfs[i].Body); err != nil {
				return err
			}
		}
		return cc.checkBody(s.Else)
	case *compiler.WhileStmt:
		if err := cc.checkExpr(s.Cond); err != nil {
			return err
		}
		return cc.checkBody(s.Body)
	case *compiler.TryStmt:
		if err := cc.checkBody(s.Body); err != nil {
			return err
		}
		if s.CatchVar != "" {
			cc.names[s.CatchVar] = true
		}
		if err := cc.checkBody(s.Catch); err != nil {
			return err
		}
		return cc.checkBody(s.Finally)
	case *compiler.ThrowStmt:
		return cc.checkExpr(s.Value)
	case *compiler.EchoStmt:
		for _, arg := range s.Args {
			if err := cc.checkExpr(arg); err != nil {
				return err
			}
		}
		return nil
	case *compiler.LockStmt:
		return cc.checkExpr(s.Target)
	default:
		return nil
	}
}

// checkAssignTarget validates writes to this.member at compile time: the
// member must exist and must be writable outside construction unless the
// method is the constructor.
func (cc *compileCtx) checkAssignTarget(target compiler.Expr) *ScriptError {
	mem, ok := target.(*compiler.MemberExpr)
	if !ok {
		return cc.checkExpr(target)
	}
	if _, isThis := mem.X.(*compiler.ThisExpr); !isThis || cc.cls == nil {
		return cc.checkExpr(target)
	}
	m := cc.cls.FindMember(mem.Name)
	if m == nil {
		return errf(ErrVariableNotFound, cc.script, mem.Line,
			"variable %s not found in class %s", mem.Name, cc.cls.Name)
	}
	if cc.method.Name != "new" {
		if m.Const {
			return errf(ErrConstWrite, cc.script, mem.Line,
				"cannot change const variable %s", m.Name)
		}
		if m.Final {
			return errf(ErrFinalWrite, cc.script, mem.Line,
				"cannot change final variable %s", m.Name)
		}
	}
	return nil
}

func (cc *compileCtx) checkExpr(expr compiler.Expr) *ScriptError {
	switch x := expr.(type) {
	case *compiler.Ident:
		return cc.checkIdent(x)
	case *compiler.ThisExpr:
		if cc.cls == nil || cc.method.Static {
			return errf(ErrUndefined, cc.script, x.Line,
				"this is only valid inside an object method")
		}
		return nil
	case *compiler.SuperExpr:
		if cc.cls == nil || cc.cls.Extends == nil {
			return errf(ErrSyntax, cc.script, x.Line,
				"super requires a parent class")
		}
		return nil
	case *compiler.MemberExpr:
		if _, isThis := x.X.(*compiler.ThisExpr); isThis && cc.cls != nil {
			if cc.method.Static {
				return errf(ErrUndefined, cc.script, x.Line,
					"this is only valid inside an object method")
			}
			if cc.cls.FindMember(x.Name) == nil && cc.cls.FindMethod(x.Name) == nil {
				return errf(ErrVariableNotFound, cc.script, x.Line,
					"variable %s not found in class %s", x.Name, cc.cls.Name)
			}
			return nil
		}
		return cc.checkExpr(x.X)
	case *compiler.IndexExpr:
		if err := cc.checkExpr(x.X); err != nil {
			return err
		}
		return cc.checkExpr(x.Index)
	case *compiler.CallExpr:
		if err := cc.checkCallTarget(x.Fn); err != nil {
			return err
		}
		for _, a := range x.Args {
			if err := cc.checkExpr(a); err != nil {
				return err
			}
		}
		return nil
	case *compiler.BinaryExpr:
		if err := cc.checkExpr(x.L); err != nil {
			return err
		}
		return cc.checkExpr(x.R)
	case *compiler.UnaryExpr:
		return cc.checkExpr(x.X)
	case *compiler.ListLit:
		for _, el := range x.Elems {
			if err := cc.checkExpr(el); err != nil {
				return err
			}
		}
		return nil
	case *compiler.DictLit:
		for _, v := range x.Values {
			if err := cc.checkExpr(v); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

// checkCallTarget is checkExpr relaxed for a call head: a bare identifier
// may also name a builtin, a sibling method, or a script function.
func (cc *compileCtx) checkCallTarget(fn compiler.Expr) *ScriptError {
	id, ok := fn.(*compiler.Ident)
	if !ok {
		if mem, isMem := fn.(*compiler.MemberExpr); isMem {
			if _, isSuper := mem.X.(*compiler.SuperExpr); isSuper {
				return cc.checkExpr(mem.X)
			}
			return cc.checkExpr(mem.X)
		}
		return cc.checkExpr(fn)
	}
	if builtins[id.Name] != nil {
		return nil
	}
	if cc.cls != nil {
		if cc.cls.FindMethod(id.Name) != nil || cc.cls.FindClassMethod(id.Name) != nil {
			return nil
		}
	}
	return cc.checkIdent(id)
}

func (cc *compileCtx) checkIdent(x *compiler.Ident) *ScriptError {
	if cc.names[x.Name] {
		return nil
	}
	if cc.cls != nil {
		for cl := cc.cls; cl != nil; cl = cl.Extends {
			if cl.FindClassMember(x.Name) != nil {
				return nil
			}
		}
	}
	st := cc.engine.scripts[cc.script]
	if st != nil {
		if _, ok := st.Globals[x.Name]; ok {
			return nil
		}
		if _, ok := st.Funcs[x.Name]; ok {
			return nil
		}
	}
	if cc.engine.classes.Lookup(x.Name) != nil {
		return nil
	}
	return errf(ErrUndefined, cc.script, x.Line,
		"variable %s is not declared", x.Name)
}
