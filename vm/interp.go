package vm

import (
	"strings"

	"github.com/chazu/starling/compiler"
)

// ---------------------------------------------------------------------------
// Tree-walking interpreter
// ---------------------------------------------------------------------------

// frame is one activation: a method, function, or the script's global
// scope. A global frame aliases the script's Globals map so assignments
// persist.
type frame struct {
	script *ScriptState
	cls    *Class  // class whose method is executing, nil at script level
	self   *Object // receiver, nil in static and script contexts
	vars   map[string]Value
	consts map[string]bool
	global bool
}

func (e *Engine) globalFrame(st *ScriptState) *frame {
	return &frame{script: st, vars: st.Globals, global: true}
}

func (e *Engine) methodFrame(cls *Class, self *Object) *frame {
	return &frame{
		script: e.Script(cls.Script),
		cls:    cls,
		self:   self,
		vars:   make(map[string]Value),
	}
}

func (e *Engine) classInitFrame(cls *Class) *frame {
	return &frame{
		script: e.Script(cls.Script),
		cls:    cls,
		vars:   make(map[string]Value),
	}
}

// define binds a new local, retaining the value.
func (fr *frame) define(name string, v Value) {
	retain(v)
	if old, ok := fr.vars[name]; ok {
		release(old)
	}
	fr.vars[name] = v
}

// drop releases all locals at frame exit. Global frames keep theirs.
func (fr *frame) drop() {
	if fr.global {
		return
	}
	for name, v := range fr.vars {
		release(v)
		delete(fr.vars, name)
	}
}

// discard frees a borrowed temporary whose refcount never rose above zero.
func discard(v Value) {
	switch v.Kind {
	case KindList:
		if v.List != nil && v.List.refcount == 0 {
			freeList(v.List)
		}
	case KindDict:
		if v.Dict != nil && v.Dict.refcount == 0 {
			freeDict(v.Dict)
		}
	case KindObject:
		if v.Obj != nil && v.Obj.refcount == 0 {
			freeObject(v.Obj)
		}
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// execTopStmt runs one script-level statement.
func (e *Engine) execTopStmt(st *ScriptState, stmt compiler.Stmt) *ScriptError {
	fr := e.globalFrame(st)
	ret, err := e.execStmt(fr, stmt)
	if err != nil {
		return err
	}
	if ret != nil {
		return errf(ErrSyntax, st.Name, stmt.Pos(), "return outside a function")
	}
	return nil
}

// execBody runs a statement list. A non-nil first result is the value of a
// return statement that unwinds the body.
func (e *Engine) execBody(fr *frame, body []compiler.Stmt) (*Value, *ScriptError) {
	for _, stmt := range body {
		ret, err := e.execStmt(fr, stmt)
		if err != nil || ret != nil {
			return ret, err
		}
	}
	return nil, nil
}

func (e *Engine) execStmt(fr *frame, stmt compiler.Stmt) (*Value, *ScriptError) {
	switch s := stmt.(type) {
	case *compiler.VarDeclStmt:
		return nil, e.execVarDecl(fr, s)
	case *compiler.AssignStmt:
		return nil, e.execAssign(fr, s)
	case *compiler.ExprStmt:
		v, err := e.eval(fr, s.X)
		if err != nil {
			return nil, err
		}
		discard(v)
		return nil, nil
	case *compiler.ReturnStmt:
		v := NullValue
		if s.Value != nil {
			ev, err := e.eval(fr, s.Value)
			if err != nil {
				return nil, err
			}
			v = ev
		}
		return &v, nil
	case *compiler.IfStmt:
		cond, err := e.eval(fr, s.Cond)
		if err != nil {
			return nil, err
		}
		if cond.Truthy() {
			return e.execBody(fr, s.Then)
		}
		for i := range s.ElseIfs {
			ec, err := e.eval(fr, s.ElseIfs[i].Cond)
			if err != nil {
				return nil, err
			}
			if ec.Truthy() {
				return e.execBody(fr, s.ElseIfs[i].Body)
			}
		}
		return e.execBody(fr, s.Else)
	case *compiler.WhileStmt:
		for {
			cond, err := e.eval(fr, s.Cond)
			if err != nil {
				return nil, err
			}
			if !cond.Truthy() {
				return nil, nil
			}
			ret, err := e.execBody(fr, s.Body)
			if err != nil || ret != nil {
				return ret, err
			}
		}
	case *compiler.TryStmt:
		return e.execTry(fr, s)
	case *compiler.ThrowStmt:
		v, err := e.eval(fr, s.Value)
		if err != nil {
			return nil, err
		}
		return nil, errf(ErrException, fr.script.Name, s.Line, "%s", v.String())
	case *compiler.EchoStmt:
		var parts []string
		for _, arg := range s.Args {
			v, err := e.eval(fr, arg)
			if err != nil {
				return nil, err
			}
			parts = append(parts, v.String())
			discard(v)
		}
		e.Echo(strings.Join(parts, " "))
		return nil, nil
	case *compiler.LockStmt:
		return nil, e.execLock(fr, s)
	case *compiler.DefcompileStmt:
		return nil, e.execDefcompile(fr, s)
	default:
		return nil, errf(ErrSyntax, fr.script.Name, stmt.Pos(), "unexpected statement")
	}
}

func (e *Engine) execVarDecl(fr *frame, s *compiler.VarDeclStmt) *ScriptError {
	var declared *Type
	if s.Type != nil {
		t, err := e.resolveType(s.Type, fr.script.Name)
		if err != nil {
			return err
		}
		declared = t
	}
	v := NullValue
	if s.Init != nil {
		ev, err := e.eval(fr, s.Init)
		if err != nil {
			return err
		}
		v = ev
	} else if declared != nil {
		v = defaultForType(declared)
	}
	if declared != nil && !declared.matches(v) {
		return errf(ErrTypeMismatch, fr.script.Name, s.Line,
			"variable %s: expected %s but got %s", s.Name, declared, TypeOf(v))
	}
	// a null assigned to an object-typed variable becomes a typed null
	// object so later access reports null-object errors
	if declared != nil && declared.Kind == TypeObject && v.Kind == KindNull {
		v = NullObject(declared.Class)
	}
	fr.define(s.Name, v)
	if s.Const {
		if fr.consts == nil {
			fr.consts = make(map[string]bool)
		}
		fr.consts[s.Name] = true
		lockValue(v, true)
	}
	return nil
}

func (e *Engine) execTry(fr *frame, s *compiler.TryStmt) (*Value, *ScriptError) {
	ret, err := e.execBody(fr, s.Body)
	if err != nil && s.HasCatch {
		if s.CatchVar != "" {
			fr.define(s.CatchVar, NewString(err.Error()))
		}
		ret, err = e.execBody(fr, s.Catch)
	}
	if len(s.Finally) > 0 {
		fret, ferr := e.execBody(fr, s.Finally)
		if ferr != nil {
			return nil, ferr
		}
		if fret != nil {
			return fret, nil
		}
	}
	return ret, err
}

func (e *Engine) execLock(fr *frame, s *compiler.LockStmt) *ScriptError {
	// locking the receiver itself is accepted and changes nothing
	if _, isThis := s.Target.(*compiler.ThisExpr); isThis {
		return nil
	}

	var v Value
	if mem, ok := s.Target.(*compiler.MemberExpr); ok {
		recv, err := e.eval(fr, mem.X)
		if err != nil {
			return err
		}
		var m *Member
		switch recv.Kind {
		case KindObject:
			if recv.Obj == nil {
				return errf(ErrNullObject, fr.script.Name, s.Line, "using a null object")
			}
			if m = recv.Obj.Class().FindMember(mem.Name); m != nil {
				v = recv.Obj.Slot(m.Slot)
			}
		case KindClass:
			if m = recv.Class.FindClassMember(mem.Name); m != nil {
				v = recv.Class.ClassVars[m.Slot]
			}
		}
		if m == nil {
			return errf(ErrVariableNotFound, fr.script.Name, s.Line,
				"variable %s not found", mem.Name)
		}
		if m.Access == AccessReadOnly {
			return errf(ErrLockInvalid, fr.script.Name, s.Line,
				"cannot lock read-only variable %s", mem.Name)
		}
	} else {
		var err *ScriptError
		v, err = e.eval(fr, s.Target)
		if err != nil {
			return err
		}
	}

	switch v.Kind {
	case KindList, KindDict, KindObject:
		if s.Lock {
			lockValue(v, true)
		} else {
			unlockValue(v, true)
		}
		return nil
	default:
		return errf(ErrLockInvalid, fr.script.Name, s.Line,
			"lockvar needs a list, dict, or object")
	}
}

// ---------------------------------------------------------------------------
// Assignment
// ---------------------------------------------------------------------------

func (e *Engine) execAssign(fr *frame, s *compiler.AssignStmt) *ScriptError {
	rhs, err := e.eval(fr, s.Value)
	if err != nil {
		return err
	}
	if s.Op != compiler.TokenAssign {
		old, err := e.eval(fr, s.Target)
		if err != nil {
			return err
		}
		rhs, err = e.applyBinary(compoundOp(s.Op), old, rhs, fr.script.Name, s.Line)
		if err != nil {
			return err
		}
	}

	switch t := s.Target.(type) {
	case *compiler.Ident:
		return e.assignIdent(fr, t.Name, rhs, s.Line)
	case *compiler.MemberExpr:
		return e.assignMember(fr, t, rhs)
	case *compiler.IndexExpr:
		return e.assignIndex(fr, t, rhs)
	default:
		return errf(ErrSyntax, fr.script.Name, s.Line, "cannot assign to this expression")
	}
}

func compoundOp(op compiler.TokenType) compiler.TokenType {
	switch op {
	case compiler.TokenPlusEq:
		return compiler.TokenPlus
	case compiler.TokenMinusEq:
		return compiler.TokenMinus
	case compiler.TokenConcatEq:
		return compiler.TokenConcat
	default:
		return op
	}
}

func (e *Engine) assignIdent(fr *frame, name string, v Value, line int) *ScriptError {
	if _, ok := fr.vars[name]; ok {
		if fr.consts[name] {
			return errf(ErrConstWrite, fr.script.Name, line,
				"cannot change const variable %s", name)
		}
		fr.define(name, v)
		return nil
	}
	// bare-name class variable, walking the lineage
	if fr.cls != nil {
		for cl := fr.cls; cl != nil; cl = cl.Extends {
			if m := cl.FindClassMember(name); m != nil {
				return e.writeClassVar(fr, cl, m, v, line)
			}
		}
	}
	if !fr.global {
		if _, ok := fr.script.Globals[name]; ok {
			old := fr.script.Globals[name]
			retain(v)
			fr.script.Globals[name] = v
			release(old)
			return nil
		}
	}
	return errf(ErrUndefined, fr.script.Name, line, "variable %s is not declared", name)
}

func (e *Engine) writeClassVar(fr *frame, cl *Class, m *Member, v Value, line int) *ScriptError {
	if err := checkMemberWrite(fr.cls, nil, m, fr.script.Name, line); err != nil {
		return err
	}
	if !m.Type.matches(v) {
		return errf(ErrTypeMismatch, fr.script.Name, line,
			"class variable %s: expected %s but got %s", m.Name, m.Type, TypeOf(v))
	}
	old := cl.ClassVars[m.Slot]
	retain(v)
	cl.ClassVars[m.Slot] = v
	release(old)
	return nil
}

func (e *Engine) assignMember(fr *frame, t *compiler.MemberExpr, v Value) *ScriptError {
	recv, err := e.eval(fr, t.X)
	if err != nil {
		return err
	}
	script, line := fr.script.Name, t.Line

	switch recv.Kind {
	case KindNull:
		return errf(ErrNullObject, script, line, "using a null object")
	case KindObject:
		if recv.Obj == nil {
			return errf(ErrNullObject, script, line, "using a null object")
		}
		cl := recv.Obj.class
		mem := cl.FindMember(t.Name)
		if mem == nil {
			if cv := cl.FindAnyMember(t.Name); cv != nil {
				if fr.cls != nil && canSeeProtected(fr.cls, cv.DefClass) {
					return e.writeClassVar(fr, cv.DefClass, cv, v, line)
				}
				return errf(ErrClassQualifier, script, line,
					"cannot access class variable %s through an object", t.Name)
			}
			return errf(ErrVariableNotFound, script, line,
				"variable %s not found in class %s", t.Name, cl.Name)
		}
		if err := checkMemberWrite(fr.cls, recv.Obj, mem, script, line); err != nil {
			return err
		}
		if err := checkSlotLock(recv.Obj.slots[mem.Slot], t.Name, script, line); err != nil {
			return err
		}
		if !mem.Type.matches(v) {
			return errf(ErrTypeMismatch, script, line,
				"variable %s: expected %s but got %s", t.Name, mem.Type, TypeOf(v))
		}
		recv.Obj.SetSlot(mem.Slot, v)
		return nil
	case KindClass:
		m := recv.Class.FindClassMember(t.Name)
		if m == nil {
			if recv.Class.FindMember(t.Name) != nil {
				return errf(ErrObjectQualifier, script, line,
					"cannot access object variable %s through class %s", t.Name, recv.Class.Name)
			}
			return errf(ErrVariableNotFound, script, line,
				"class variable %s not found in class %s", t.Name, recv.Class.Name)
		}
		return e.writeClassVar(fr, recv.Class, m, v, line)
	case KindDict:
		if recv.Dict == nil {
			return errf(ErrNullObject, script, line, "using a null dict")
		}
		if recv.Dict.locked {
			return errf(ErrLocked, script, line, "dict is locked")
		}
		if old, ok := recv.Dict.Get(t.Name); ok {
			release(old)
		}
		retain(v)
		recv.Dict.Set(t.Name, v)
		return nil
	default:
		return errf(ErrWrongType, script, line, "cannot assign to member of a %s", recv.TypeName())
	}
}

func (e *Engine) assignIndex(fr *frame, t *compiler.IndexExpr, v Value) *ScriptError {
	recv, err := e.eval(fr, t.X)
	if err != nil {
		return err
	}
	idx, err := e.eval(fr, t.Index)
	if err != nil {
		return err
	}
	script, line := fr.script.Name, t.Line

	switch recv.Kind {
	case KindList:
		if recv.List == nil {
			return errf(ErrNullObject, script, line, "using a null list")
		}
		if recv.List.locked {
			return errf(ErrLocked, script, line, "list is locked")
		}
		if idx.Kind != KindNumber {
			return errf(ErrWrongType, script, line, "list index must be a number")
		}
		i, ok := normalizeIndex(idx.Num, len(recv.List.Items))
		if !ok {
			return errf(ErrIndexRange, script, line, "list index out of range: %d", idx.Num)
		}
		release(recv.List.Items[i])
		retain(v)
		recv.List.Items[i] = v
		return nil
	case KindDict:
		if recv.Dict == nil {
			return errf(ErrNullObject, script, line, "using a null dict")
		}
		if recv.Dict.locked {
			return errf(ErrLocked, script, line, "dict is locked")
		}
		if idx.Kind != KindString {
			return errf(ErrWrongType, script, line, "dict key must be a string")
		}
		if old, ok := recv.Dict.Get(idx.Str); ok {
			release(old)
		}
		retain(v)
		recv.Dict.Set(idx.Str, v)
		return nil
	default:
		return errf(ErrWrongType, script, line, "cannot index a %s", recv.TypeName())
	}
}

// normalizeIndex resolves a possibly negative index against length n.
func normalizeIndex(i int64, n int) (int, bool) {
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, false
	}
	return int(i), true
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (e *Engine) eval(fr *frame, expr compiler.Expr) (Value, *ScriptError) {
	switch x := expr.(type) {
	case *compiler.NumberLit:
		return NewNumber(x.Value), nil
	case *compiler.FloatLit:
		return NewFloat(x.Value), nil
	case *compiler.StringLit:
		return NewString(x.Value), nil
	case *compiler.BoolLit:
		return NewBool(x.Value), nil
	case *compiler.NullLit:
		return NullValue, nil
	case *compiler.NoneLit:
		return NoneValue, nil
	case *compiler.ListLit:
		l := NewList()
		for _, el := range x.Elems {
			v, err := e.eval(fr, el)
			if err != nil {
				discard(NewListValue(l))
				return NullValue, err
			}
			retain(v)
			l.Items = append(l.Items, v)
		}
		return NewListValue(l), nil
	case *compiler.DictLit:
		d := NewDict()
		for i, key := range x.Keys {
			v, err := e.eval(fr, x.Values[i])
			if err != nil {
				discard(NewDictValue(d))
				return NullValue, err
			}
			retain(v)
			d.Set(key, v)
		}
		return NewDictValue(d), nil
	case *compiler.Ident:
		return e.evalIdent(fr, x)
	case *compiler.ThisExpr:
		if fr.self == nil {
			return NullValue, errf(ErrUndefined, fr.script.Name, x.Line,
				"this is only valid inside an object method")
		}
		return NewObjectValue(fr.self), nil
	case *compiler.SuperExpr:
		return NullValue, errf(ErrSyntax, fr.script.Name, x.Line,
			"super must be followed by a method call")
	case *compiler.MemberExpr:
		return e.evalMember(fr, x)
	case *compiler.IndexExpr:
		return e.evalIndex(fr, x)
	case *compiler.CallExpr:
		return e.evalCall(fr, x)
	case *compiler.BinaryExpr:
		return e.evalBinary(fr, x)
	case *compiler.UnaryExpr:
		return e.evalUnary(fr, x)
	default:
		return NullValue, errf(ErrSyntax, fr.script.Name, expr.Pos(), "unexpected expression")
	}
}

func (e *Engine) evalIdent(fr *frame, x *compiler.Ident) (Value, *ScriptError) {
	if v, ok := fr.vars[x.Name]; ok {
		return v, nil
	}
	if fr.cls != nil {
		for cl := fr.cls; cl != nil; cl = cl.Extends {
			if m := cl.FindClassMember(x.Name); m != nil {
				if err := checkMemberRead(fr.cls, m, fr.script.Name, x.Line); err != nil {
					return NullValue, err
				}
				return cl.ClassVars[m.Slot], nil
			}
		}
	}
	if !fr.global {
		if v, ok := fr.script.Globals[x.Name]; ok {
			return v, nil
		}
	}
	if fn, ok := fr.script.Funcs[x.Name]; ok {
		return NewFuncValue(&FuncRef{Method: fn, Script: fr.script.Name}), nil
	}
	if cl := e.classes.Lookup(x.Name); cl != nil {
		return NewClassValue(cl), nil
	}
	return NullValue, errf(ErrUndefined, fr.script.Name, x.Line,
		"variable %s is not declared", x.Name)
}

func (e *Engine) evalMember(fr *frame, x *compiler.MemberExpr) (Value, *ScriptError) {
	recv, err := e.eval(fr, x.X)
	if err != nil {
		return NullValue, err
	}
	script, line := fr.script.Name, x.Line

	switch recv.Kind {
	case KindNull:
		return NullValue, errf(ErrNullObject, script, line, "using a null object")
	case KindObject:
		if recv.Obj == nil {
			return NullValue, errf(ErrNullObject, script, line, "using a null object")
		}
		cl := recv.Obj.class
		if mem := cl.FindMember(x.Name); mem != nil {
			if err := checkMemberRead(fr.cls, mem, script, line); err != nil {
				return NullValue, err
			}
			return recv.Obj.slots[mem.Slot], nil
		}
		if m := cl.FindMethod(x.Name); m != nil {
			// access is checked where the funcref is taken
			if err := checkMethodAccess(fr.cls, m, script, line); err != nil {
				return NullValue, err
			}
			ref := &FuncRef{Method: m, Receiver: recv.Obj, Class: cl}
			return NewFuncValue(ref), nil
		}
		if m := cl.FindAnyMember(x.Name); m != nil {
			// class variables through an object pass only inside methods
			// of the declaring class or a descendant
			if fr.cls != nil && canSeeProtected(fr.cls, m.DefClass) {
				return m.DefClass.ClassVars[m.Slot], nil
			}
			return NullValue, errf(ErrClassQualifier, script, line,
				"cannot access class variable %s through an object", x.Name)
		}
		return NullValue, errf(ErrVariableNotFound, script, line,
			"variable %s not found in class %s", x.Name, cl.Name)
	case KindClass:
		cl := recv.Class
		if m := cl.FindClassMember(x.Name); m != nil {
			if err := checkMemberRead(fr.cls, m, script, line); err != nil {
				return NullValue, err
			}
			return cl.ClassVars[m.Slot], nil
		}
		if m := cl.FindClassMethod(x.Name); m != nil {
			if err := checkMethodAccess(fr.cls, m, script, line); err != nil {
				return NullValue, err
			}
			return NewFuncValue(&FuncRef{Method: m, Class: cl}), nil
		}
		if x.Name == "new" && cl.NewMethod != nil {
			return NewFuncValue(&FuncRef{Method: cl.NewMethod, Class: cl}), nil
		}
		if cl.FindMember(x.Name) != nil {
			return NullValue, errf(ErrObjectQualifier, script, line,
				"cannot access object variable %s through class %s", x.Name, cl.Name)
		}
		return NullValue, errf(ErrVariableNotFound, script, line,
			"class variable %s not found in class %s", x.Name, cl.Name)
	case KindDict:
		if recv.Dict == nil {
			return NullValue, errf(ErrNullObject, script, line, "using a null dict")
		}
		if v, ok := recv.Dict.Get(x.Name); ok {
			return v, nil
		}
		return NullValue, errf(ErrKeyNotFound, script, line, "key not found: %s", x.Name)
	default:
		return NullValue, errf(ErrWrongType, script, line,
			"cannot access member %s of a %s", x.Name, recv.TypeName())
	}
}

func (e *Engine) evalIndex(fr *frame, x *compiler.IndexExpr) (Value, *ScriptError) {
	recv, err := e.eval(fr, x.X)
	if err != nil {
		return NullValue, err
	}
	idx, err := e.eval(fr, x.Index)
	if err != nil {
		return NullValue, err
	}
	script, line := fr.script.Name, x.Line

	switch recv.Kind {
	case KindList:
		if recv.List == nil {
			return NullValue, errf(ErrNullObject, script, line, "using a null list")
		}
		if idx.Kind != KindNumber {
			return NullValue, errf(ErrWrongType, script, line, "list index must be a number")
		}
		i, ok := normalizeIndex(idx.Num, len(recv.List.Items))
		if !ok {
			return NullValue, errf(ErrIndexRange, script, line,
				"list index out of range: %d", idx.Num)
		}
		return recv.List.Items[i], nil
	case KindDict:
		if recv.Dict == nil {
			return NullValue, errf(ErrNullObject, script, line, "using a null dict")
		}
		if idx.Kind != KindString {
			return NullValue, errf(ErrWrongType, script, line, "dict key must be a string")
		}
		v, ok := recv.Dict.Get(idx.Str)
		if !ok {
			return NullValue, errf(ErrKeyNotFound, script, line, "key not found: %s", idx.Str)
		}
		return v, nil
	case KindString:
		if idx.Kind != KindNumber {
			return NullValue, errf(ErrWrongType, script, line, "string index must be a number")
		}
		runes := []rune(recv.Str)
		i, ok := normalizeIndex(idx.Num, len(runes))
		if !ok {
			return NullValue, errf(ErrIndexRange, script, line,
				"string index out of range: %d", idx.Num)
		}
		return NewString(string(runes[i])), nil
	default:
		return NullValue, errf(ErrWrongType, script, line, "cannot index a %s", recv.TypeName())
	}
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

func (e *Engine) evalCall(fr *frame, x *compiler.CallExpr) (Value, *ScriptError) {
	script, line := fr.script.Name, x.Line

	if mem, ok := x.Fn.(*compiler.MemberExpr); ok {
		// super.method()
		if _, isSuper := mem.X.(*compiler.SuperExpr); isSuper {
			return e.evalSuperCall(fr, mem, x.Args)
		}
		recv, err := e.eval(fr, mem.X)
		if err != nil {
			return NullValue, err
		}
		switch recv.Kind {
		case KindNull:
			return NullValue, errf(ErrNullObject, script, line, "using a null object")
		case KindObject:
			if recv.Obj == nil {
				return NullValue, errf(ErrNullObject, script, line, "using a null object")
			}
			cl := recv.Obj.class
			if m := cl.FindMethod(mem.Name); m != nil {
				if err := checkMethodAccess(fr.cls, m, script, line); err != nil {
					return NullValue, err
				}
				args, err := e.evalArgs(fr, x.Args)
				if err != nil {
					return NullValue, err
				}
				return e.callMethod(m, recv.Obj, args, script, line)
			}
			// a member holding a funcref is callable too
			if memDecl := cl.FindMember(mem.Name); memDecl != nil {
				fv, err := e.evalMember(fr, mem)
				if err != nil {
					return NullValue, err
				}
				return e.callValue(fr, fv, x.Args, script, line)
			}
			// class methods through an object expression dispatch only from
			// methods of the declaring class or a descendant
			for anc := cl; anc != nil; anc = anc.Extends {
				m := anc.FindClassMethod(mem.Name)
				if m == nil {
					continue
				}
				if fr.cls == nil || !canSeeProtected(fr.cls, m.DefClass) {
					return NullValue, errf(ErrClassQualifier, script, line,
						"cannot call class method %s through an object", mem.Name)
				}
				if err := checkMethodAccess(fr.cls, m, script, line); err != nil {
					return NullValue, err
				}
				args, err := e.evalArgs(fr, x.Args)
				if err != nil {
					return NullValue, err
				}
				return e.callStatic(m, m.DefClass, args, script, line)
			}
			return NullValue, errf(ErrMethodNotFound, script, line,
				"method %s not found in class %s", mem.Name, cl.Name)
		case KindClass:
			cl := recv.Class
			if mem.Name == "new" {
				args, err := e.evalArgs(fr, x.Args)
				if err != nil {
					return NullValue, err
				}
				v, ierr := e.Instantiate(cl, args, script, line)
				if ierr != nil {
					return NullValue, ierr
				}
				// hand the caller a borrowed reference
				if v.Obj != nil {
					v.Obj.refcount--
				}
				return v, nil
			}
			if m := cl.FindClassMethod(mem.Name); m != nil {
				if err := checkMethodAccess(fr.cls, m, script, line); err != nil {
					return NullValue, err
				}
				args, err := e.evalArgs(fr, x.Args)
				if err != nil {
					return NullValue, err
				}
				return e.callStatic(m, cl, args, script, line)
			}
			if cl.FindMethod(mem.Name) != nil {
				return NullValue, errf(ErrObjectQualifier, script, line,
					"cannot call object method %s through class %s", mem.Name, cl.Name)
			}
			return NullValue, errf(ErrMethodNotFound, script, line,
				"class method %s not found in class %s", mem.Name, cl.Name)
		case KindDict:
			fv, err := e.evalMember(fr, mem)
			if err != nil {
				return NullValue, err
			}
			return e.callValue(fr, fv, x.Args, script, line)
		default:
			return NullValue, errf(ErrWrongType, script, line,
				"cannot call %s on a %s", mem.Name, recv.TypeName())
		}
	}

	if id, ok := x.Fn.(*compiler.Ident); ok {
		if fn, found := builtins[id.Name]; found {
			args, err := e.evalArgs(fr, x.Args)
			if err != nil {
				return NullValue, err
			}
			return fn(e, fr, args, script, line)
		}
		// bare method name inside a class body
		if fr.cls != nil {
			if m := fr.cls.FindClassMethod(id.Name); m != nil && m.DefClass == fr.cls {
				args, err := e.evalArgs(fr, x.Args)
				if err != nil {
					return NullValue, err
				}
				return e.callStatic(m, fr.cls, args, script, line)
			}
			if fr.self != nil {
				if m := fr.cls.FindMethod(id.Name); m != nil {
					args, err := e.evalArgs(fr, x.Args)
					if err != nil {
						return NullValue, err
					}
					return e.callMethod(m, fr.self, args, script, line)
				}
			}
		}
		if fn, ok := fr.script.Funcs[id.Name]; ok {
			args, err := e.evalArgs(fr, x.Args)
			if err != nil {
				return NullValue, err
			}
			return e.callFunc(fn, args, fr.script, script, line)
		}
	}

	fv, err := e.eval(fr, x.Fn)
	if err != nil {
		return NullValue, err
	}
	return e.callValue(fr, fv, x.Args, script, line)
}

func (e *Engine) evalSuperCall(fr *frame, mem *compiler.MemberExpr, argExprs []compiler.Expr) (Value, *ScriptError) {
	script, line := fr.script.Name, mem.Line
	if fr.cls == nil || fr.self == nil {
		return NullValue, errf(ErrSyntax, script, line,
			"super is only valid inside an object method")
	}
	parent := fr.cls.Extends
	if parent == nil {
		return NullValue, errf(ErrSyntax, script, line,
			"class %s has no parent class", fr.cls.Name)
	}
	m := parent.FindMethod(mem.Name)
	if m == nil && mem.Name == "new" {
		m = parent.NewMethod
	}
	if m == nil {
		return NullValue, errf(ErrMethodNotFound, script, line,
			"method %s not found in class %s", mem.Name, parent.Name)
	}
	if err := checkMethodAccess(fr.cls, m, script, line); err != nil {
		return NullValue, err
	}
	args, err := e.evalArgs(fr, argExprs)
	if err != nil {
		return NullValue, err
	}
	if mem.Name == "new" {
		// parent constructor runs against the current object
		return NullValue, e.runConstructor(parent, fr.self, m, args, script, line)
	}
	// static dispatch to the parent's implementation
	return e.invokeMethod(m, m.DefClass, fr.self, args, script, line)
}

func (e *Engine) evalArgs(fr *frame, exprs []compiler.Expr) ([]Value, *ScriptError) {
	args := make([]Value, 0, len(exprs))
	for _, a := range exprs {
		v, err := e.eval(fr, a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

// callValue invokes a first-class function value.
func (e *Engine) callValue(fr *frame, fv Value, argExprs []compiler.Expr, script string, line int) (Value, *ScriptError) {
	if fv.Kind == KindClass {
		return NullValue, errf(ErrNotCallable, script, line,
			"class %s is not callable; use %s.new()", fv.Class.Name, fv.Class.Name)
	}
	if fv.Kind != KindFunc || fv.Func == nil {
		return NullValue, errf(ErrNotCallable, script, line,
			"a %s is not callable", fv.TypeName())
	}
	args, err := e.evalArgs(fr, argExprs)
	if err != nil {
		return NullValue, err
	}
	return e.CallRef(fv.Func, args, script, line)
}

// CallRef invokes a funcref. A bound reference dispatches on its stored
// receiver without rechecking access; that was done when it was taken.
func (e *Engine) CallRef(ref *FuncRef, args []Value, script string, line int) (Value, *ScriptError) {
	m := ref.Method
	switch {
	case ref.Receiver != nil:
		return e.callMethod(m, ref.Receiver, args, script, line)
	case m.DefClass != nil && m.Name == "new":
		v, err := e.Instantiate(ref.Class, args, script, line)
		if err != nil {
			return NullValue, err
		}
		if v.Obj != nil {
			v.Obj.refcount--
		}
		return v, nil
	case m.Static:
		return e.callStatic(m, ref.Class, args, script, line)
	case m.DefClass == nil:
		return e.callFunc(m, args, e.Script(ref.Script), script, line)
	default:
		return NullValue, errf(ErrNotCallable, script, line,
			"method %s needs an object", m.Name)
	}
}

// callMethod dispatches a bound instance method on the receiver's dynamic
// class.
func (e *Engine) callMethod(m *Method, self *Object, args []Value, script string, line int) (Value, *ScriptError) {
	// virtual dispatch: the receiver's class may override m
	impl := self.class.Methods[m.Index]
	return e.invokeMethod(impl, impl.DefClass, self, args, script, line)
}

func (e *Engine) callStatic(m *Method, cl *Class, args []Value, script string, line int) (Value, *ScriptError) {
	fr := e.classInitFrame(m.DefClass)
	return e.run(fr, m, args, script, line)
}

func (e *Engine) callFunc(m *Method, args []Value, st *ScriptState, script string, line int) (Value, *ScriptError) {
	fr := &frame{script: st, vars: make(map[string]Value)}
	return e.run(fr, m, args, script, line)
}

func (e *Engine) invokeMethod(m *Method, defClass *Class, self *Object, args []Value, script string, line int) (Value, *ScriptError) {
	fr := e.methodFrame(defClass, self)
	return e.run(fr, m, args, script, line)
}

// run binds parameters and executes a method or function body, checking
// arity and return type.
func (e *Engine) run(fr *frame, m *Method, args []Value, script string, line int) (Value, *ScriptError) {
	result := NullValue
	defer func() {
		// The result must survive frame teardown: locals may hold its only
		// reference. Retain across drop, then hand it back borrowed.
		retain(result)
		fr.drop()
		releaseLater(result)
	}()

	fixed := len(m.Params)
	if m.Variadic {
		fixed--
	}
	if len(args) < m.MinArgs() {
		return NullValue, errf(ErrArgumentCount, script, line,
			"%s: expected at least %d arguments, got %d", m.Name, m.MinArgs(), len(args))
	}
	if !m.Variadic && len(args) > fixed {
		return NullValue, errf(ErrArgumentCount, script, line,
			"%s: expected at most %d arguments, got %d", m.Name, fixed, len(args))
	}

	for i := 0; i < fixed; i++ {
		p := m.Params[i]
		var v Value
		switch {
		case i < len(args) && args[i].Kind != KindNone:
			v = args[i]
		case p.Default != nil:
			dv, err := e.eval(fr, p.Default)
			if err != nil {
				return NullValue, err
			}
			v = dv
		default:
			v = defaultForType(p.Type)
		}
		if p.Type != nil && !p.Type.matches(v) {
			return NullValue, errf(ErrArgumentType, script, line,
				"%s: argument %d: expected %s but got %s", m.Name, i+1, p.Type, TypeOf(v))
		}
		fr.define(p.Name, v)
	}
	if m.Variadic {
		rest := NewList()
		for _, v := range args[min(fixed, len(args)):] {
			retain(v)
			rest.Items = append(rest.Items, v)
		}
		fr.define(m.Params[fixed].Name, NewListValue(rest))
	}

	ret, err := e.execBody(fr, m.Body)
	if err != nil {
		return NullValue, err
	}
	if ret != nil {
		result = *ret
	}
	if m.Return != nil && m.Return.Kind != TypeVoid && !m.Return.matches(result) {
		got := TypeOf(result)
		result = NullValue
		return NullValue, errf(ErrWrongType, script, line,
			"%s: expected return of %s but got %s", m.Name, m.Return, got)
	}
	return result, nil
}

// releaseLater balances the retain in run: the value stays borrowed for
// the caller, who retains it again if it stores it.
func releaseLater(v Value) {
	switch v.Kind {
	case KindList:
		if v.List != nil {
			v.List.refcount--
		}
	case KindDict:
		if v.Dict != nil {
			v.Dict.refcount--
		}
	case KindObject:
		if v.Obj != nil {
			v.Obj.refcount--
		}
	}
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

func (e *Engine) evalBinary(fr *frame, x *compiler.BinaryExpr) (Value, *ScriptError) {
	// short-circuit forms first
	switch x.Op {
	case compiler.TokenAnd:
		l, err := e.eval(fr, x.L)
		if err != nil {
			return NullValue, err
		}
		if !l.Truthy() {
			return FalseValue, nil
		}
		r, err := e.eval(fr, x.R)
		if err != nil {
			return NullValue, err
		}
		return NewBool(r.Truthy()), nil
	case compiler.TokenOr:
		l, err := e.eval(fr, x.L)
		if err != nil {
			return NullValue, err
		}
		if l.Truthy() {
			return TrueValue, nil
		}
		r, err := e.eval(fr, x.R)
		if err != nil {
			return NullValue, err
		}
		return NewBool(r.Truthy()), nil
	}

	l, err := e.eval(fr, x.L)
	if err != nil {
		return NullValue, err
	}
	r, err := e.eval(fr, x.R)
	if err != nil {
		return NullValue, err
	}
	return e.applyBinary(x.Op, l, r, fr.script.Name, x.Line)
}

func (e *Engine) applyBinary(op compiler.TokenType, l, r Value, script string, line int) (Value, *ScriptError) {
	switch op {
	case compiler.TokenEq:
		return NewBool(l.Equals(r)), nil
	case compiler.TokenNe:
		return NewBool(!l.Equals(r)), nil
	case compiler.TokenIs:
		return NewBool(l.Identical(r)), nil
	case compiler.TokenIsnot:
		return NewBool(!l.Identical(r)), nil
	case compiler.TokenConcat:
		return NewString(l.String() + r.String()), nil
	case compiler.TokenLt, compiler.TokenGt, compiler.TokenLe, compiler.TokenGe:
		return compareOrdered(op, l, r, script, line)
	}

	// arithmetic
	if l.Kind == KindList && r.Kind == KindList && op == compiler.TokenPlus {
		out := NewList()
		for _, v := range l.List.Items {
			retain(v)
			out.Items = append(out.Items, v)
		}
		for _, v := range r.List.Items {
			retain(v)
			out.Items = append(out.Items, v)
		}
		return NewListValue(out), nil
	}
	if !isNumeric(l) || !isNumeric(r) {
		return NullValue, errf(ErrWrongType, script, line,
			"operator needs numbers, got %s and %s", l.TypeName(), r.TypeName())
	}
	if l.Kind == KindFloat || r.Kind == KindFloat {
		a, b := l.AsFloat(), r.AsFloat()
		switch op {
		case compiler.TokenPlus:
			return NewFloat(a + b), nil
		case compiler.TokenMinus:
			return NewFloat(a - b), nil
		case compiler.TokenStar:
			return NewFloat(a * b), nil
		case compiler.TokenSlash:
			if b == 0 {
				return NullValue, errf(ErrDivideByZero, script, line, "division by zero")
			}
			return NewFloat(a / b), nil
		}
	}
	a, b := l.Num, r.Num
	switch op {
	case compiler.TokenPlus:
		return NewNumber(a + b), nil
	case compiler.TokenMinus:
		return NewNumber(a - b), nil
	case compiler.TokenStar:
		return NewNumber(a * b), nil
	case compiler.TokenSlash:
		if b == 0 {
			return NullValue, errf(ErrDivideByZero, script, line, "division by zero")
		}
		return NewNumber(a / b), nil
	case compiler.TokenPercent:
		if b == 0 {
			return NullValue, errf(ErrDivideByZero, script, line, "division by zero")
		}
		return NewNumber(a % b), nil
	}
	return NullValue, errf(ErrSyntax, script, line, "unsupported operator")
}

func compareOrdered(op compiler.TokenType, l, r Value, script string, line int) (Value, *ScriptError) {
	var cmp int
	switch {
	case isNumeric(l) && isNumeric(r):
		a, b := l.AsFloat(), r.AsFloat()
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	case l.Kind == KindString && r.Kind == KindString:
		cmp = strings.Compare(l.Str, r.Str)
	default:
		return NullValue, errf(ErrWrongType, script, line,
			"cannot compare %s with %s", l.TypeName(), r.TypeName())
	}
	switch op {
	case compiler.TokenLt:
		return NewBool(cmp < 0), nil
	case compiler.TokenGt:
		return NewBool(cmp > 0), nil
	case compiler.TokenLe:
		return NewBool(cmp <= 0), nil
	default:
		return NewBool(cmp >= 0), nil
	}
}

func isNumeric(v Value) bool {
	return v.Kind == KindNumber || v.Kind == KindFloat
}

func (e *Engine) evalUnary(fr *frame, x *compiler.UnaryExpr) (Value, *ScriptError) {
	v, err := e.eval(fr, x.X)
	if err != nil {
		return NullValue, err
	}
	switch x.Op {
	case compiler.TokenBang:
		return NewBool(!v.Truthy()), nil
	case compiler.TokenMinus:
		switch v.Kind {
		case KindNumber:
			return NewNumber(-v.Num), nil
		case KindFloat:
			return NewFloat(-v.Flt), nil
		}
		return NullValue, errf(ErrWrongType, fr.script.Name, x.Line,
			"unary minus needs a number, got %s", v.TypeName())
	default:
		return NullValue, errf(ErrSyntax, fr.script.Name, x.Line, "unsupported operator")
	}
}
