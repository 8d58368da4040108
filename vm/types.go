package vm

import (
	"strings"

	"github.com/chazu/starling/compiler"
)

// ---------------------------------------------------------------------------
// Declared types
// ---------------------------------------------------------------------------

// TypeKind enumerates the declared type constructors.
type TypeKind uint8

const (
	TypeAny TypeKind = iota
	TypeVoid
	TypeBool
	TypeNumber
	TypeFloat
	TypeString
	TypeList
	TypeDict
	TypeFunc
	TypeObject // object of a specific class or interface
)

// Type is a declared (annotation) type. Types are immutable after creation
// and compared structurally; conformance checking requires exact equality,
// no co- or contravariance.
type Type struct {
	Kind     TypeKind
	Elem     *Type   // list/dict element type
	Params   []*Type // func parameter types
	Return   *Type   // func return type
	Variadic bool
	Class    *Class // for TypeObject
}

// Singleton types for the simple kinds.
var (
	AnyType    = &Type{Kind: TypeAny}
	VoidType   = &Type{Kind: TypeVoid}
	BoolType   = &Type{Kind: TypeBool}
	NumberType = &Type{Kind: TypeNumber}
	FloatType  = &Type{Kind: TypeFloat}
	StringType = &Type{Kind: TypeString}
)

// NewListType returns a list<elem> type.
func NewListType(elem *Type) *Type {
	return &Type{Kind: TypeList, Elem: elem}
}

// NewDictType returns a dict<elem> type.
func NewDictType(elem *Type) *Type {
	return &Type{Kind: TypeDict, Elem: elem}
}

// NewObjectType returns the type of instances of cl.
func NewObjectType(cl *Class) *Type {
	return &Type{Kind: TypeObject, Class: cl}
}

// Equal reports whether two declared types are structurally identical.
// Signature and conformance checks use exact matching.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind || t.Variadic != o.Variadic {
		return false
	}
	switch t.Kind {
	case TypeList, TypeDict:
		te, oe := t.Elem, o.Elem
		if te == nil {
			te = AnyType
		}
		if oe == nil {
			oe = AnyType
		}
		return te.Equal(oe)
	case TypeFunc:
		if len(t.Params) != len(o.Params) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equal(o.Params[i]) {
				return false
			}
		}
		tr, or := t.Return, o.Return
		if tr == nil {
			tr = VoidType
		}
		if or == nil {
			or = VoidType
		}
		return tr.Equal(or)
	case TypeObject:
		return t.Class == o.Class
	default:
		return true
	}
}

// String renders the type in source form.
func (t *Type) String() string {
	if t == nil {
		return "any"
	}
	switch t.Kind {
	case TypeAny:
		return "any"
	case TypeVoid:
		return "void"
	case TypeBool:
		return "bool"
	case TypeNumber:
		return "number"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeList:
		return "list<" + t.Elem.String() + ">"
	case TypeDict:
		return "dict<" + t.Elem.String() + ">"
	case TypeFunc:
		var sb strings.Builder
		sb.WriteString("func(")
		for i, p := range t.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.String())
		}
		if t.Variadic {
			if len(t.Params) > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("...")
		}
		sb.WriteString(")")
		if t.Return != nil && t.Return.Kind != TypeVoid {
			sb.WriteString(": " + t.Return.String())
		}
		return sb.String()
	case TypeObject:
		if t.Class == nil {
			return "object"
		}
		return "object<" + t.Class.Name + ">"
	default:
		return "any"
	}
}

// resolveType resolves a parsed type annotation against the registered
// classes. A nil annotation resolves to any.
func (e *Engine) resolveType(texpr *compiler.TypeExpr, script string) (*Type, *ScriptError) {
	if texpr == nil {
		return AnyType, nil
	}
	switch texpr.Name {
	case "any":
		return AnyType, nil
	case "void":
		return VoidType, nil
	case "bool":
		return BoolType, nil
	case "number":
		return NumberType, nil
	case "float":
		return FloatType, nil
	case "string":
		return StringType, nil
	case "list", "dict":
		elem, err := e.resolveType(texpr.Elem, script)
		if err != nil {
			return nil, err
		}
		if texpr.Name == "list" {
			return NewListType(elem), nil
		}
		return NewDictType(elem), nil
	case "func":
		t := &Type{Kind: TypeFunc, Variadic: texpr.Variadic}
		for _, p := range texpr.Params {
			pt, err := e.resolveType(p, script)
			if err != nil {
				return nil, err
			}
			t.Params = append(t.Params, pt)
		}
		ret, err := e.resolveType(texpr.Return, script)
		if err != nil {
			return nil, err
		}
		t.Return = ret
		return t, nil
	default:
		cl := e.classes.Lookup(texpr.Name)
		if cl == nil {
			return nil, errf(ErrClassNotFound, script, texpr.Line,
				"class name not found: %s", texpr.Name)
		}
		return NewObjectType(cl), nil
	}
}

// TypeOf returns the runtime type of a value.
func TypeOf(v Value) *Type {
	switch v.Kind {
	case KindBool:
		return BoolType
	case KindNumber:
		return NumberType
	case KindFloat:
		return FloatType
	case KindString:
		return StringType
	case KindList:
		return NewListType(AnyType)
	case KindDict:
		return NewDictType(AnyType)
	case KindObject:
		if v.Class != nil {
			return NewObjectType(v.Class)
		}
		if v.Obj != nil {
			return NewObjectType(v.Obj.class)
		}
		return &Type{Kind: TypeObject}
	case KindFunc:
		return &Type{Kind: TypeFunc}
	default:
		return AnyType
	}
}

// matches reports whether runtime value v is acceptable where type t is
// declared. any accepts everything; null is acceptable for the nullable
// kinds; an object value matches a class or interface type when its class
// satisfies it.
func (t *Type) matches(v Value) bool {
	if t == nil || t.Kind == TypeAny {
		return true
	}
	switch t.Kind {
	case TypeBool:
		return v.Kind == KindBool
	case TypeNumber:
		return v.Kind == KindNumber
	case TypeFloat:
		return v.Kind == KindFloat || v.Kind == KindNumber
	case TypeString:
		return v.Kind == KindString
	case TypeList:
		return v.Kind == KindList || v.Kind == KindNull
	case TypeDict:
		return v.Kind == KindDict || v.Kind == KindNull
	case TypeFunc:
		return v.Kind == KindFunc || v.Kind == KindNull
	case TypeObject:
		if v.Kind == KindNull {
			return true
		}
		if v.Kind != KindObject {
			return false
		}
		if v.Obj == nil {
			return true // null object of any class
		}
		if t.Class == nil {
			return true
		}
		return v.Obj.class.InstanceOf(t.Class)
	default:
		return true
	}
}
