package vm

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/starling/compiler"
)

// ---------------------------------------------------------------------------
// Engine
// ---------------------------------------------------------------------------

// Engine holds the class registry, script state, and the live-object list
// for the cycle collector. One engine runs one session; it is not safe for
// concurrent use.
type Engine struct {
	log     commonlog.Logger
	classes *ClassTable
	scripts map[string]*ScriptState

	// Messages accumulates echo output in order.
	Messages []string

	// objects is a sentinel heading the doubly linked list of all live
	// objects, newest first.
	objects Object
	copyID  uint32
}

// ClassTable is the global class registry, keyed by class name.
type ClassTable struct {
	byName map[string]*Class
	order  []string
}

// Lookup returns the class registered under name, or nil.
func (t *ClassTable) Lookup(name string) *Class {
	return t.byName[name]
}

// Names returns registered class names in registration order.
func (t *ClassTable) Names() []string {
	return append([]string(nil), t.order...)
}

func (t *ClassTable) add(cl *Class) {
	if _, ok := t.byName[cl.Name]; !ok {
		t.order = append(t.order, cl.Name)
	}
	t.byName[cl.Name] = cl
}

func (t *ClassTable) remove(name string) {
	if _, ok := t.byName[name]; !ok {
		return
	}
	delete(t.byName, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// ScriptState is the per-script namespace: its globals, functions, and the
// classes it declared.
type ScriptState struct {
	Name    string
	Globals map[string]Value
	Funcs   map[string]*Method
	Classes []*Class
}

// NewEngine creates an empty engine.
func NewEngine() *Engine {
	e := &Engine{
		log:     commonlog.GetLogger("starling.vm"),
		classes: &ClassTable{byName: make(map[string]*Class)},
		scripts: make(map[string]*ScriptState),
	}
	e.objects.next = &e.objects
	e.objects.prev = &e.objects
	return e
}

// Classes exposes the registry.
func (e *Engine) Classes() *ClassTable { return e.classes }

// Script returns the state for a script, creating it on first use.
func (e *Engine) Script(name string) *ScriptState {
	st := e.scripts[name]
	if st == nil {
		st = &ScriptState{
			Name:    name,
			Globals: make(map[string]Value),
			Funcs:   make(map[string]*Method),
		}
		e.scripts[name] = st
	}
	return st
}

// ExecScript parses and executes source as the named script. Class and
// function declarations register; top-level statements run in order. An
// uncaught error is appended to the message list as well as returned.
func (e *Engine) ExecScript(name, source string) *ScriptError {
	if err := e.execScript(name, source); err != nil {
		e.Messages = append(e.Messages, err.Error())
		return err
	}
	return nil
}

func (e *Engine) execScript(name, source string) *ScriptError {
	p := compiler.NewParser(name, source)
	script := p.Parse()
	if errs := p.Errors(); len(errs) > 0 {
		return &ScriptError{Kind: ErrSyntax, Script: name, Message: errs[0]}
	}

	st := e.Script(name)
	e.log.Debugf("executing script %s (%d statements)", name, len(script.Stmts))

	for _, stmt := range script.Stmts {
		switch d := stmt.(type) {
		case *compiler.ClassDecl:
			cl, err := e.RegisterClass(d, name)
			if err != nil {
				return err
			}
			if cl != nil {
				st.Classes = append(st.Classes, cl)
			}
		case *compiler.FuncDecl:
			m, err := e.defineFunc(d, name)
			if err != nil {
				return err
			}
			st.Funcs[d.Name] = m
		default:
			if err := e.execTopStmt(st, d); err != nil {
				return err
			}
		}
	}
	return nil
}

// EvalExpr parses and evaluates a single expression in the named script's
// global scope.
func (e *Engine) EvalExpr(script, src string) (Value, *ScriptError) {
	p := compiler.NewParser(script, src)
	expr := p.ParseExpr()
	if errs := p.Errors(); len(errs) > 0 {
		return NullValue, &ScriptError{Kind: ErrSyntax, Script: script, Message: errs[0]}
	}
	fr := e.globalFrame(e.Script(script))
	return e.eval(fr, expr)
}

// Echo appends a rendered message, mirroring it to the debug log.
func (e *Engine) Echo(msg string) {
	e.Messages = append(e.Messages, msg)
	e.log.Debugf("echo: %s", msg)
}

// defineFunc turns a script-level def into a Method with no class.
func (e *Engine) defineFunc(d *compiler.FuncDecl, script string) (*Method, *ScriptError) {
	m := &Method{Name: d.Name, Body: d.Body, Variadic: d.Variadic}
	var err *ScriptError
	m.Params, err = e.resolveParams(d.Params, script)
	if err != nil {
		return nil, err
	}
	if d.Return != nil {
		m.Return, err = e.resolveType(d.Return, script)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (e *Engine) resolveParams(params []compiler.Param, script string) ([]*Param, *ScriptError) {
	out := make([]*Param, 0, len(params))
	for i := range params {
		p := &params[i]
		rp := &Param{Name: p.Name, IsMember: p.IsMember}
		if p.Type != nil {
			t, err := e.resolveType(p.Type, script)
			if err != nil {
				return nil, err
			}
			rp.Type = t
		} else {
			rp.Type = AnyType
		}
		if p.Default != nil {
			rp.HasDflt = true
			rp.Default = p.Default
		}
		out = append(out, rp)
	}
	return out, nil
}

// allocObject creates an instance with default slots and links it into the
// live-object list.
func (e *Engine) allocObject(cl *Class) *Object {
	o := &Object{class: cl, slots: make([]Value, len(cl.Members))}
	o.next = e.objects.next
	o.prev = &e.objects
	e.objects.next.prev = o
	e.objects.next = o
	return o
}

// LiveObjects counts the objects currently on the allocation list.
func (e *Engine) LiveObjects() int {
	n := 0
	for o := e.objects.next; o != &e.objects; o = o.next {
		n++
	}
	return n
}

func (e *Engine) String() string {
	return fmt.Sprintf("Engine(%d classes, %d scripts)", len(e.classes.byName), len(e.scripts))
}
