package vm

import (
	"strings"

	"github.com/chazu/starling/compiler"
)

// ---------------------------------------------------------------------------
// Classes, members, methods
// ---------------------------------------------------------------------------

// Access is the access level of a member variable.
type Access uint8

const (
	// AccessReadOnly is the default: readable everywhere, writable only by
	// methods of the declaring class.
	AccessReadOnly Access = iota
	// AccessPublic members are readable and writable everywhere.
	AccessPublic
	// AccessProtected members (underscore prefix) are accessible only from
	// methods of the declaring class and its subclasses.
	AccessProtected
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessProtected:
		return "protected"
	default:
		return "read-only"
	}
}

// Member describes one declared variable of a class: an object slot, or a
// class variable when Static is set.
type Member struct {
	Name    string
	Access  Access
	Static  bool
	Final   bool
	Const   bool
	Type    *Type
	Init    compiler.Expr // nil when only a type was declared

	// DefClass is the class whose declaration introduced the member.
	// Inherited slots keep the ancestor as their defining class.
	DefClass *Class

	// Slot is the object slot index for instance members, or the index
	// into DefClass.ClassVars for static members.
	Slot int
}

// Method describes one method of a class or interface.
type Method struct {
	Name     string
	Access   Access
	Static   bool
	Abstract bool
	Params   []*Param
	Variadic bool
	Return   *Type

	// Body is the parsed statement list; nil for interface and abstract
	// methods.
	Body []compiler.Stmt

	// DefClass is the class whose declaration supplied the implementation.
	DefClass *Class

	// Index is the vtable slot for instance methods. Overrides reuse the
	// overridden method's index so interface dispatch stays stable.
	Index int

	// Compiled is set once defcompile has checked the body.
	Compiled bool
}

// Param is one method parameter.
type Param struct {
	Name     string
	Type     *Type
	HasDflt  bool
	Default  compiler.Expr
	IsMember bool // declared with the this.name shorthand
}

// Signature renders the method's type for mismatch diagnostics.
func (m *Method) Signature() string {
	var b strings.Builder
	b.WriteString("func(")
	for i, p := range m.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if m.Variadic && i == len(m.Params)-1 {
			b.WriteString("...")
		}
		b.WriteString(p.Type.String())
		if p.HasDflt {
			b.WriteString("?")
		}
	}
	b.WriteString(")")
	if m.Return != nil && m.Return.Kind != TypeVoid {
		b.WriteString(": ")
		b.WriteString(m.Return.String())
	}
	return b.String()
}

// SameSignature reports whether two methods have exactly matching types,
// arity, optionality, and variadic flag. Parameter names are not compared.
func (m *Method) SameSignature(o *Method) bool {
	if len(m.Params) != len(o.Params) || m.Variadic != o.Variadic {
		return false
	}
	for i := range m.Params {
		if m.Params[i].HasDflt != o.Params[i].HasDflt {
			return false
		}
		if !m.Params[i].Type.Equal(o.Params[i].Type) {
			return false
		}
	}
	mr, or := m.Return, o.Return
	if mr == nil {
		mr = VoidType
	}
	if or == nil {
		or = VoidType
	}
	return mr.Equal(or)
}

// MinArgs returns the number of mandatory parameters.
func (m *Method) MinArgs() int {
	n := 0
	for _, p := range m.Params {
		if !p.HasDflt && !(m.Variadic && p == m.Params[len(m.Params)-1]) {
			n++
		}
	}
	return n
}

// Class is a registered class or interface. Members and Methods include
// the inherited entries: parent slots come first so a subclass object can
// be viewed through any ancestor's layout.
type Class struct {
	Name      string
	Interface bool
	Abstract  bool
	Extends   *Class
	Impls     []*Class // declared interfaces, transitively closed

	// Members are the object slots in layout order (parent first). Each
	// entry is shared with the defining class.
	Members []*Member

	// Methods is the instance vtable (parent order preserved, overrides
	// replaced in place, new methods appended).
	Methods []*Method

	// ClassMembers and ClassMethods are the static declarations of this
	// class only; they are not inherited.
	ClassMembers []*Member
	ClassMethods []*Method

	// ClassVars holds the current values of ClassMembers, parallel by
	// Slot index.
	ClassVars []Value

	// NewMethod is the constructor, declared or synthesized. It lives
	// outside the vtable.
	NewMethod *Method

	// Script and Line locate the declaration for error reporting.
	Script string
	Line   int

	// Text is the source slice of the declaration, used to detect
	// byte-identical redefinition on script reload.
	Text string

	// itfIndex maps each implemented interface to per-interface member
	// and method index tables (interface index -> class index).
	itfIndex map[*Class]*itfTables
}

type itfTables struct {
	members []int
	methods []int
}

// FindMember looks up an instance member by name.
func (c *Class) FindMember(name string) *Member {
	for _, m := range c.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// FindMethod looks up an instance method by name in the vtable.
func (c *Class) FindMethod(name string) *Method {
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// FindClassMember looks up a static member declared on this class only.
func (c *Class) FindClassMember(name string) *Member {
	for _, m := range c.ClassMembers {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// FindClassMethod looks up a static method declared on this class only.
func (c *Class) FindClassMethod(name string) *Method {
	for _, m := range c.ClassMethods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// FindAnyMember resolves name as an instance member, or as a class member
// walking up the extends chain (bare-name class variable access sees
// ancestors' class variables).
func (c *Class) FindAnyMember(name string) *Member {
	if m := c.FindMember(name); m != nil {
		return m
	}
	for cl := c; cl != nil; cl = cl.Extends {
		if m := cl.FindClassMember(name); m != nil {
			return m
		}
	}
	return nil
}

// InstanceOf reports whether c is target, extends it, or implements it
// (directly or through an ancestor or super-interface).
func (c *Class) InstanceOf(target *Class) bool {
	if target == nil {
		return false
	}
	for cl := c; cl != nil; cl = cl.Extends {
		if cl == target {
			return true
		}
		for _, itf := range cl.Impls {
			if itf == target || itf.extendsInterface(target) {
				return true
			}
		}
		if cl.Interface && cl.extendsInterface(target) {
			return true
		}
	}
	return false
}

func (c *Class) extendsInterface(target *Class) bool {
	for itf := c.Extends; itf != nil; itf = itf.Extends {
		if itf == target {
			return true
		}
	}
	return false
}

// ItfIndex returns the index tables translating itf's member and method
// positions into c's layout, or nil when c does not implement itf.
func (c *Class) ItfIndex(itf *Class) (members, methods []int) {
	t := c.itfIndex[itf]
	if t == nil {
		return nil, nil
	}
	return t.members, t.methods
}

// foldName strips underscores for duplicate detection: a protected member
// "_x" collides with a member "x".
func foldName(name string) string {
	return strings.TrimPrefix(name, "_")
}

// accessFor derives the access level from a declaration's name and
// public flag. Callers have already rejected public + underscore.
func accessFor(name string, public bool) Access {
	if strings.HasPrefix(name, "_") {
		return AccessProtected
	}
	if public {
		return AccessPublic
	}
	return AccessReadOnly
}
