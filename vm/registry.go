package vm

import (
	"strings"
	"unicode"

	"github.com/chazu/starling/compiler"
)

// ---------------------------------------------------------------------------
// Class registration
// ---------------------------------------------------------------------------

// RegisterClass validates a parsed class or interface declaration and adds
// it to the registry. Re-declaring a class with byte-identical source is a
// no-op returning (nil, nil); any other redefinition is an error.
func (e *Engine) RegisterClass(d *compiler.ClassDecl, script string) (*Class, *ScriptError) {
	if err := checkClassName(d.Name, script, d.Line); err != nil {
		return nil, err
	}

	if prev := e.classes.Lookup(d.Name); prev != nil {
		if prev.Text == d.Text {
			e.log.Debugf("class %s reloaded unchanged", d.Name)
			return nil, nil
		}
		return nil, errf(ErrClassRedefined, script, d.Line,
			"class %s already defined with a different body", d.Name)
	}

	cl := &Class{
		Name:      d.Name,
		Interface: d.IsInterface,
		Abstract:  d.Abstract,
		Script:    script,
		Line:      d.Line,
		Text:      d.Text,
		itfIndex:  make(map[*Class]*itfTables),
	}

	if err := e.resolveHeritage(cl, d, script); err != nil {
		return nil, err
	}

	// The name goes in before the body is built so that members and
	// parameters can declare the class's own type. Rolled back on error.
	e.classes.add(cl)
	if err := e.buildClassBody(cl, d, script); err != nil {
		e.classes.remove(cl.Name)
		return nil, err
	}

	e.log.Infof("registered %s %s (%d members, %d methods)",
		declWord(cl), cl.Name, len(cl.Members), len(cl.Methods))
	return cl, nil
}

// buildClassBody runs the body-level registration steps: members, methods,
// abstract and conformance checks, constructor synthesis, class variables.
func (e *Engine) buildClassBody(cl *Class, d *compiler.ClassDecl, script string) *ScriptError {
	if err := e.buildMembers(cl, d, script); err != nil {
		return err
	}
	if err := e.buildMethods(cl, d, script); err != nil {
		return err
	}
	if err := e.checkAbstractMethods(cl, script, d.Line); err != nil {
		return err
	}
	if err := e.checkConformance(cl, script, d.Line); err != nil {
		return err
	}
	if !cl.Interface && cl.NewMethod == nil {
		synthesizeConstructor(cl)
	}
	return e.initClassVars(cl)
}

func declWord(cl *Class) string {
	if cl.Interface {
		return "interface"
	}
	return "class"
}

// checkClassName enforces the naming rules: an uppercase first letter and
// no reserved double-underscore prefix.
func checkClassName(name, script string, line int) *ScriptError {
	if name == "" || !unicode.IsUpper(rune(name[0])) {
		return errf(ErrInvalidClassName, script, line,
			"class name must start with an uppercase letter: %s", name)
	}
	for _, r := range name {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return errf(ErrInvalidClassName, script, line,
				"invalid character in class name: %s", name)
		}
	}
	return nil
}

// resolveHeritage resolves the extends and implements clauses.
func (e *Engine) resolveHeritage(cl *Class, d *compiler.ClassDecl, script string) *ScriptError {
	for i, name := range d.Extends {
		parent := e.classes.Lookup(name)
		if parent == nil {
			return errf(ErrClassNotFound, script, d.Line, "cannot find class %s", name)
		}
		if parent.Interface != cl.Interface {
			return errf(ErrCannotExtend, script, d.Line,
				"%s %s cannot extend %s %s", declWord(cl), cl.Name, declWord(parent), name)
		}
		if !cl.Interface && i > 0 {
			return errf(ErrCannotExtend, script, d.Line,
				"class %s can extend only one class", cl.Name)
		}
		for a := parent; a != nil; a = a.Extends {
			if a.Name == cl.Name {
				return errf(ErrExtendsCycle, script, d.Line,
					"class %s extends itself through %s", cl.Name, name)
			}
		}
		if cl.Interface && i > 0 {
			// interfaces may extend several interfaces; fold the extras
			// into Impls so conformance walks them
			cl.Impls = append(cl.Impls, parent)
			continue
		}
		cl.Extends = parent
	}

	for _, name := range d.Implements {
		itf := e.classes.Lookup(name)
		if itf == nil {
			return errf(ErrInterfaceNotFound, script, d.Line, "cannot find interface %s", name)
		}
		if !itf.Interface {
			return errf(ErrNotAnInterface, script, d.Line, "%s is not an interface", name)
		}
		cl.addImpl(itf)
	}
	// parent interfaces of declared interfaces are implemented too
	for _, itf := range cl.Impls {
		for sup := itf.Extends; sup != nil; sup = sup.Extends {
			cl.addImpl(sup)
		}
		for _, sup := range itf.Impls {
			cl.addImpl(sup)
		}
	}
	return nil
}

func (c *Class) addImpl(itf *Class) {
	for _, have := range c.Impls {
		if have == itf {
			return
		}
	}
	c.Impls = append(c.Impls, itf)
}

// buildMembers lays out the object slots (inherited first) and the class
// variables, rejecting duplicates. Names are compared with the protected
// underscore stripped: a member _x collides with a member x anywhere in the
// lineage.
func (e *Engine) buildMembers(cl *Class, d *compiler.ClassDecl, script string) *ScriptError {
	if cl.Extends != nil {
		cl.Members = append(cl.Members, cl.Extends.Members...)
	}

	for _, md := range d.Members {
		if strings.HasPrefix(md.Name, "__") {
			return errf(ErrReservedName, script, md.Line,
				"cannot use reserved name: %s", md.Name)
		}
		if err := e.checkDuplicateName(cl, md.Name, script, md.Line); err != nil {
			return err
		}
		m := &Member{
			Name:     md.Name,
			Access:   accessFor(md.Name, md.Public),
			Static:   md.Static,
			Final:    md.Final,
			Const:    md.Const,
			Init:     md.Init,
			DefClass: cl,
		}
		if md.Type != nil {
			t, err := e.resolveType(md.Type, script)
			if err != nil {
				return err
			}
			m.Type = t
		} else if md.Init != nil {
			m.Type = inferLiteralType(md.Init)
		} else {
			m.Type = AnyType
		}
		if md.Init == nil && md.Type == nil {
			return errf(ErrTypeMismatch, script, md.Line,
				"variable %s needs a type or an initializer", md.Name)
		}
		if m.Static {
			m.Slot = len(cl.ClassMembers)
			cl.ClassMembers = append(cl.ClassMembers, m)
		} else {
			m.Slot = len(cl.Members)
			cl.Members = append(cl.Members, m)
		}
	}
	return nil
}

// checkDuplicateName rejects a declared name that collides, underscore
// folded, with any member or method already visible in the class.
func (e *Engine) checkDuplicateName(cl *Class, name, script string, line int) *ScriptError {
	folded := foldName(name)
	for _, m := range cl.Members {
		if foldName(m.Name) == folded {
			return errf(ErrDuplicateVariable, script, line,
				"variable %s conflicts with %s in class %s", name, m.Name, m.DefClass.Name)
		}
	}
	for _, m := range cl.ClassMembers {
		if foldName(m.Name) == folded {
			return errf(ErrDuplicateVariable, script, line,
				"variable %s conflicts with class variable %s", name, m.Name)
		}
	}
	for _, m := range cl.Methods {
		if foldName(m.Name) == folded {
			return errf(ErrDuplicateMethod, script, line,
				"%s conflicts with method %s in class %s", name, m.Name, m.DefClass.Name)
		}
	}
	for _, m := range cl.ClassMethods {
		if foldName(m.Name) == folded {
			return errf(ErrDuplicateMethod, script, line,
				"%s conflicts with class method %s", name, m.Name)
		}
	}
	return nil
}

// buildMethods fills the vtable: the parent's methods first, overrides
// replaced in place so indexes stay stable, new methods appended.
func (e *Engine) buildMethods(cl *Class, d *compiler.ClassDecl, script string) *ScriptError {
	if cl.Extends != nil {
		cl.Methods = append([]*Method(nil), cl.Extends.Methods...)
	}

	for _, md := range d.Methods {
		m := &Method{
			Name:     md.Name,
			Access:   accessFor(md.Name, false),
			Static:   md.Static,
			Abstract: md.Abstract || cl.Interface,
			Variadic: md.Variadic,
			DefClass: cl,
		}
		if md.HasBody {
			m.Body = md.Body
		}
		var err *ScriptError
		m.Params, err = e.resolveParams(md.Params, script)
		if err != nil {
			return err
		}
		if md.Return != nil {
			m.Return, err = e.resolveType(md.Return, script)
			if err != nil {
				return err
			}
		}

		if m.Name == "new" {
			if err := e.checkConstructor(cl, m, script, md.Line); err != nil {
				return err
			}
			cl.NewMethod = m
			continue
		}

		for _, p := range m.Params {
			if p.IsMember {
				return errf(ErrShorthandInvalid, script, md.Line,
					"this.%s parameter is only allowed in new()", p.Name)
			}
		}

		// name must not collide with a member
		if err := e.checkMethodName(cl, m, script, md.Line); err != nil {
			return err
		}

		if m.Static {
			cl.ClassMethods = append(cl.ClassMethods, m)
			continue
		}

		if over := cl.FindMethod(m.Name); over != nil {
			if over.DefClass == cl {
				return errf(ErrDuplicateMethod, script, md.Line,
					"method %s defined twice in class %s", m.Name, cl.Name)
			}
			if over.Access != m.Access {
				return errf(ErrAccessMismatch, script, md.Line,
					"method %s is %s in class %s", m.Name, over.Access, over.DefClass.Name)
			}
			if !over.SameSignature(m) {
				return errf(ErrSignatureMismatch, script, md.Line,
					"method %s: expected %s but got %s", m.Name, over.Signature(), m.Signature())
			}
			m.Index = over.Index
			cl.Methods[over.Index] = m
			continue
		}
		m.Index = len(cl.Methods)
		cl.Methods = append(cl.Methods, m)
	}
	return nil
}

// checkMethodName rejects a method whose folded name collides with a
// visible variable, or with a same-class method of the other storage kind.
func (e *Engine) checkMethodName(cl *Class, m *Method, script string, line int) *ScriptError {
	folded := foldName(m.Name)
	for _, v := range cl.Members {
		if foldName(v.Name) == folded {
			return errf(ErrDuplicateVariable, script, line,
				"method %s conflicts with variable %s in class %s", m.Name, v.Name, v.DefClass.Name)
		}
	}
	for _, v := range cl.ClassMembers {
		if foldName(v.Name) == folded {
			return errf(ErrDuplicateVariable, script, line,
				"method %s conflicts with class variable %s", m.Name, v.Name)
		}
	}
	for _, other := range cl.ClassMethods {
		if foldName(other.Name) == folded {
			return errf(ErrDuplicateMethod, script, line,
				"method %s defined twice in class %s", m.Name, cl.Name)
		}
	}
	if m.Static {
		if other := cl.FindMethod(m.Name); other != nil && other.DefClass == cl {
			return errf(ErrDuplicateMethod, script, line,
				"method %s defined twice in class %s", m.Name, cl.Name)
		}
	}
	return nil
}

// checkConstructor validates a declared new() method.
func (e *Engine) checkConstructor(cl *Class, m *Method, script string, line int) *ScriptError {
	if cl.Interface {
		return errf(ErrConstructorInvalid, script, line,
			"interface %s cannot declare new()", cl.Name)
	}
	if m.Static {
		return errf(ErrConstructorInvalid, script, line, "new() cannot be static")
	}
	if m.Abstract {
		return errf(ErrConstructorInvalid, script, line, "new() cannot be abstract")
	}
	if cl.Abstract {
		return errf(ErrConstructorInvalid, script, line,
			"abstract class %s cannot declare new()", cl.Name)
	}
	if stmt := returnWithValue(m.Body); stmt != nil {
		return errf(ErrConstructorInvalid, script, stmt.Line,
			"new() cannot return a value")
	}
	if m.Return != nil && m.Return.Kind != TypeVoid {
		if m.Return.Kind != TypeObject || m.Return.Class != cl {
			return errf(ErrConstructorInvalid, script, line,
				"new() cannot declare a return type")
		}
	}
	for _, p := range m.Params {
		if p.IsMember {
			mem := cl.FindMember(p.Name)
			if mem == nil {
				return errf(ErrShorthandInvalid, script, line,
					"this.%s does not name an object variable", p.Name)
			}
			if p.Default != nil {
				if _, isNone := p.Default.(*compiler.NoneLit); !isNone {
					return errf(ErrShorthandInvalid, script, line,
						"this.%s may only default to none", p.Name)
				}
			}
			if p.Type == AnyType {
				p.Type = mem.Type
			}
			continue
		}
		if cl.FindMember(p.Name) != nil {
			return errf(ErrArgShadowsMember, script, line,
				"argument %s shadows object variable %s", p.Name, p.Name)
		}
	}
	return nil
}

// returnWithValue finds the first return statement carrying a value
// anywhere in body, including nested blocks.
func returnWithValue(body []compiler.Stmt) *compiler.ReturnStmt {
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *compiler.ReturnStmt:
			if s.Value != nil {
				return s
			}
		case *compiler.IfStmt:
			if r := returnWithValue(s.Then); r != nil {
				return r
			}
			for i := range s.ElseIfs {
				if r := returnWithValue(s.ElseIfs[i].Body); r != nil {
					return r
				}
			}
			if r := returnWithValue(s.Else); r != nil {
				return r
			}
		case *compiler.WhileStmt:
			if r := returnWithValue(s.Body); r != nil {
				return r
			}
		case *compiler.TryStmt:
			if r := returnWithValue(s.Body); r != nil {
				return r
			}
			if r := returnWithValue(s.Catch); r != nil {
				return r
			}
			if r := returnWithValue(s.Finally); r != nil {
				return r
			}
		}
	}
	return nil
}

// checkAbstractMethods requires a concrete class to implement every
// abstract method left in its vtable.
func (e *Engine) checkAbstractMethods(cl *Class, script string, line int) *ScriptError {
	if cl.Interface || cl.Abstract {
		return nil
	}
	for _, m := range cl.Methods {
		if m.Abstract {
			return errf(ErrAbstractMissing, script, line,
				"abstract method %s.%s is not implemented", m.DefClass.Name, m.Name)
		}
	}
	return nil
}

// initClassVars evaluates the static initializers into ClassVars.
func (e *Engine) initClassVars(cl *Class) *ScriptError {
	cl.ClassVars = make([]Value, len(cl.ClassMembers))
	for i, m := range cl.ClassMembers {
		if m.Init == nil {
			cl.ClassVars[i] = defaultForType(m.Type)
			continue
		}
		fr := e.classInitFrame(cl)
		v, err := e.eval(fr, m.Init)
		if err != nil {
			return err
		}
		if !m.Type.matches(v) {
			return errf(ErrTypeMismatch, cl.Script, cl.Line,
				"class variable %s: expected %s but got %s", m.Name, m.Type, TypeOf(v))
		}
		retain(v)
		cl.ClassVars[i] = v
		if m.Const {
			lockValue(v, true)
		}
	}
	return nil
}

// inferLiteralType derives a declared type from an initializer expression
// when no explicit type is given.
func inferLiteralType(expr compiler.Expr) *Type {
	switch expr.(type) {
	case *compiler.NumberLit:
		return NumberType
	case *compiler.FloatLit:
		return FloatType
	case *compiler.StringLit:
		return StringType
	case *compiler.BoolLit:
		return BoolType
	case *compiler.ListLit:
		return NewListType(AnyType)
	case *compiler.DictLit:
		return NewDictType(AnyType)
	default:
		return AnyType
	}
}

// defaultForType is the zero value a slot takes before its initializer or
// constructor runs.
func defaultForType(t *Type) Value {
	switch t.Kind {
	case TypeBool:
		return FalseValue
	case TypeNumber:
		return ZeroValue
	case TypeFloat:
		return NewFloat(0)
	case TypeString:
		return NewString("")
	case TypeObject:
		return NullObject(t.Class)
	default:
		return NullValue
	}
}
