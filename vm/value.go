package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Runtime values
// ---------------------------------------------------------------------------

// ValueKind enumerates the runtime value kinds.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindNone           // the "no value supplied" sentinel
	KindBool
	KindNumber
	KindFloat
	KindString
	KindList
	KindDict
	KindObject
	KindClass
	KindFunc
)

// Value is a Starling runtime value. Only the field matching Kind is
// meaningful. A KindObject value with a nil Obj is the null object; its
// Class field, when set, records the static class the null was typed with.
type Value struct {
	Kind  ValueKind
	Bool  bool
	Num   int64
	Flt   float64
	Str   string
	List  *List
	Dict  *Dict
	Obj   *Object
	Class *Class
	Func  *FuncRef
}

// Predefined values.
var (
	NullValue  = Value{Kind: KindNull}
	NoneValue  = Value{Kind: KindNone}
	TrueValue  = Value{Kind: KindBool, Bool: true}
	FalseValue = Value{Kind: KindBool, Bool: false}
	ZeroValue  = Value{Kind: KindNumber}
)

// NewBool creates a bool value.
func NewBool(b bool) Value {
	if b {
		return TrueValue
	}
	return FalseValue
}

// NewNumber creates an integer value.
func NewNumber(n int64) Value { return Value{Kind: KindNumber, Num: n} }

// NewFloat creates a float value.
func NewFloat(f float64) Value { return Value{Kind: KindFloat, Flt: f} }

// NewString creates a string value.
func NewString(s string) Value { return Value{Kind: KindString, Str: s} }

// NewListValue wraps a List.
func NewListValue(l *List) Value { return Value{Kind: KindList, List: l} }

// NewDictValue wraps a Dict.
func NewDictValue(d *Dict) Value { return Value{Kind: KindDict, Dict: d} }

// NewObjectValue wraps an object instance.
func NewObjectValue(o *Object) Value {
	return Value{Kind: KindObject, Obj: o, Class: o.class}
}

// NullObject returns the null object typed with class cl (cl may be nil).
func NullObject(cl *Class) Value {
	return Value{Kind: KindObject, Obj: nil, Class: cl}
}

// NewClassValue wraps a class.
func NewClassValue(cl *Class) Value { return Value{Kind: KindClass, Class: cl} }

// NewFuncValue wraps a function reference.
func NewFuncValue(f *FuncRef) Value { return Value{Kind: KindFunc, Func: f} }

// IsNull reports whether v is null or a null object.
func (v Value) IsNull() bool {
	return v.Kind == KindNull || (v.Kind == KindObject && v.Obj == nil)
}

// Truthy reports the condition value of v.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNull, KindNone:
		return false
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num != 0
	case KindFloat:
		return v.Flt != 0
	case KindString:
		return v.Str != ""
	case KindList:
		return v.List != nil && len(v.List.Items) > 0
	case KindDict:
		return v.Dict != nil && len(v.Dict.keys) > 0
	case KindObject:
		return v.Obj != nil
	default:
		return true
	}
}

// ---------------------------------------------------------------------------
// Lists and dicts
// ---------------------------------------------------------------------------

// List is a mutable ordered collection. The lock flag makes the collection
// itself immutable; items may hold further containers with their own locks.
type List struct {
	Items    []Value
	refcount int32
	locked   bool
}

// NewList creates a list from items.
func NewList(items ...Value) *List {
	return &List{Items: items}
}

// Locked reports whether the list is locked against mutation.
func (l *List) Locked() bool { return l.locked }

// Dict is a mutable ordered string-keyed collection. Insertion order is
// preserved for rendering stability.
type Dict struct {
	keys     []string
	items    map[string]Value
	refcount int32
	locked   bool
}

// NewDict creates an empty dict.
func NewDict() *Dict {
	return &Dict{items: make(map[string]Value)}
}

// Locked reports whether the dict is locked against mutation.
func (d *Dict) Locked() bool { return d.locked }

// Get returns the value for key.
func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.items[key]
	return v, ok
}

// Set stores key = value, preserving first-insertion order.
func (d *Dict) Set(key string, v Value) {
	if _, ok := d.items[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.items[key] = v
}

// Delete removes key.
func (d *Dict) Delete(key string) {
	if _, ok := d.items[key]; !ok {
		return
	}
	delete(d.items, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string { return d.keys }

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// ---------------------------------------------------------------------------
// Locking
// ---------------------------------------------------------------------------

// lockValue locks the containers reachable from v. With deep set, the walk
// recurses through nested lists, dicts, and object slots.
func lockValue(v Value, deep bool) {
	setLocked(v, deep, true, nil)
}

// unlockValue unlocks the containers reachable from v.
func unlockValue(v Value, deep bool) {
	setLocked(v, deep, false, nil)
}

// setLocked flips the lock flag on v and, when deep, on every container
// reachable from it. seen keeps cyclic graphs from recursing forever.
func setLocked(v Value, deep, locked bool, seen map[any]bool) {
	switch v.Kind {
	case KindList:
		if v.List == nil {
			return
		}
		v.List.locked = locked
		if !deep {
			return
		}
		if seen == nil {
			seen = make(map[any]bool)
		}
		if seen[v.List] {
			return
		}
		seen[v.List] = true
		for _, item := range v.List.Items {
			setLocked(item, true, locked, seen)
		}
	case KindDict:
		if v.Dict == nil {
			return
		}
		v.Dict.locked = locked
		if !deep {
			return
		}
		if seen == nil {
			seen = make(map[any]bool)
		}
		if seen[v.Dict] {
			return
		}
		seen[v.Dict] = true
		for _, k := range v.Dict.keys {
			setLocked(v.Dict.items[k], true, locked, seen)
		}
	case KindObject:
		if v.Obj == nil || !deep {
			return
		}
		if seen == nil {
			seen = make(map[any]bool)
		}
		if seen[v.Obj] {
			return
		}
		seen[v.Obj] = true
		for _, slot := range v.Obj.slots {
			setLocked(slot, true, locked, seen)
		}
	}
}

// ---------------------------------------------------------------------------
// Equality
// ---------------------------------------------------------------------------

// Equals reports deep structural equality. Objects of the same class
// compare slot by slot; number and float compare numerically.
func (v Value) Equals(other Value) bool {
	return v.equals(other, nil)
}

// visitPair keys the containers already being compared, so that cyclic
// graphs terminate: a pair reached again while still under comparison is
// taken as equal.
type visitPair struct{ a, b any }

func (v Value) equals(other Value, seen map[visitPair]bool) bool {
	if v.Kind != other.Kind {
		// numeric cross-kind comparison
		if (v.Kind == KindNumber && other.Kind == KindFloat) ||
			(v.Kind == KindFloat && other.Kind == KindNumber) {
			return v.AsFloat() == other.AsFloat()
		}
		// null equals a null object
		if v.Kind == KindNull && other.Kind == KindObject {
			return other.Obj == nil
		}
		if v.Kind == KindObject && other.Kind == KindNull {
			return v.Obj == nil
		}
		return false
	}

	switch v.Kind {
	case KindNull, KindNone:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindNumber:
		return v.Num == other.Num
	case KindFloat:
		return v.Flt == other.Flt
	case KindString:
		return v.Str == other.Str
	case KindList:
		if v.List == other.List {
			return true
		}
		if v.List == nil || other.List == nil {
			return false
		}
		if len(v.List.Items) != len(other.List.Items) {
			return false
		}
		if seen == nil {
			seen = make(map[visitPair]bool)
		}
		k := visitPair{v.List, other.List}
		if seen[k] {
			return true
		}
		seen[k] = true
		for i := range v.List.Items {
			if !v.List.Items[i].equals(other.List.Items[i], seen) {
				return false
			}
		}
		return true
	case KindDict:
		if v.Dict == other.Dict {
			return true
		}
		if v.Dict == nil || other.Dict == nil {
			return false
		}
		if v.Dict.Len() != other.Dict.Len() {
			return false
		}
		if seen == nil {
			seen = make(map[visitPair]bool)
		}
		pk := visitPair{v.Dict, other.Dict}
		if seen[pk] {
			return true
		}
		seen[pk] = true
		for _, k := range v.Dict.keys {
			ov, ok := other.Dict.Get(k)
			if !ok || !v.Dict.items[k].equals(ov, seen) {
				return false
			}
		}
		return true
	case KindObject:
		if v.Obj == other.Obj {
			// includes two null objects; null objects of compatible
			// classes are equal
			if v.Obj == nil {
				return nullClassesCompatible(v.Class, other.Class)
			}
			return true
		}
		if v.Obj == nil || other.Obj == nil {
			return false
		}
		if v.Obj.class != other.Obj.class {
			return false
		}
		if seen == nil {
			seen = make(map[visitPair]bool)
		}
		k := visitPair{v.Obj, other.Obj}
		if seen[k] {
			return true
		}
		seen[k] = true
		for i := range v.Obj.slots {
			if !v.Obj.slots[i].equals(other.Obj.slots[i], seen) {
				return false
			}
		}
		return true
	case KindClass:
		return v.Class == other.Class
	case KindFunc:
		if v.Func == other.Func {
			return true
		}
		if v.Func == nil || other.Func == nil {
			return false
		}
		return v.Func.Method == other.Func.Method &&
			v.Func.Receiver == other.Func.Receiver &&
			v.Func.Class == other.Func.Class
	default:
		return false
	}
}

// nullClassesCompatible reports whether two null objects' static classes
// are the same or related.
func nullClassesCompatible(a, b *Class) bool {
	if a == nil || b == nil || a == b {
		return true
	}
	return a.InstanceOf(b) || b.InstanceOf(a)
}

// Identical reports allocation identity ("is" / "isnot"). For the
// non-allocated kinds it falls back to plain equality.
func (v Value) Identical(other Value) bool {
	switch {
	case v.Kind == KindList && other.Kind == KindList:
		return v.List == other.List
	case v.Kind == KindDict && other.Kind == KindDict:
		return v.Dict == other.Dict
	case v.Kind == KindObject && other.Kind == KindObject:
		return v.Obj == other.Obj
	case v.IsNull() && other.IsNull():
		return true
	default:
		return v.Equals(other)
	}
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

// AsFloat converts a numeric value to float64.
func (v Value) AsFloat() float64 {
	if v.Kind == KindFloat {
		return v.Flt
	}
	return float64(v.Num)
}

// String renders the value for display: top-level strings are unquoted,
// nested strings are quoted. Classes render as "class Name" and objects as
// "object of Name {member: value, ...}" in declaration order.
func (v Value) String() string {
	return v.render(false)
}

// Quoted renders the value the way it appears inside a container.
func (v Value) Quoted() string {
	return v.render(true)
}

func (v Value) render(quote bool) string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindNone:
		return "none"
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindNumber:
		return strconv.FormatInt(v.Num, 10)
	case KindFloat:
		s := strconv.FormatFloat(v.Flt, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case KindString:
		if quote {
			return "'" + strings.ReplaceAll(v.Str, "'", "''") + "'"
		}
		return v.Str
	case KindList:
		if v.List == nil {
			return "[]"
		}
		var parts []string
		for _, item := range v.List.Items {
			parts = append(parts, item.render(true))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindDict:
		if v.Dict == nil {
			return "{}"
		}
		var parts []string
		for _, k := range v.Dict.keys {
			parts = append(parts, k+": "+v.Dict.items[k].render(true))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindObject:
		if v.Obj == nil {
			name := ""
			if v.Class != nil {
				name = " of " + v.Class.Name
			}
			return "object" + name + " (null)"
		}
		return v.Obj.String()
	case KindClass:
		if v.Class == nil {
			return "class"
		}
		return "class " + v.Class.Name
	case KindFunc:
		if v.Func == nil {
			return "function"
		}
		return v.Func.String()
	default:
		return fmt.Sprintf("<kind %d>", v.Kind)
	}
}

// TypeName returns the scripting-level type name of the value, as reported
// by the typename() builtin.
func (v Value) TypeName() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list<any>"
	case KindDict:
		return "dict<any>"
	case KindObject:
		cl := v.Class
		if v.Obj != nil {
			cl = v.Obj.class
		}
		if cl == nil {
			return "object<Unknown>"
		}
		return "object<" + cl.Name + ">"
	case KindClass:
		if v.Class == nil {
			return "class"
		}
		return "class<" + v.Class.Name + ">"
	case KindFunc:
		return "func"
	default:
		return "unknown"
	}
}

// DiffDicts renders the entries of two dicts after dropping keys whose
// values compare equal. Used for diagnostic messages only; entries holding
// objects are compared as wholes, not recursed into.
func DiffDicts(exp, got *Dict) (string, string) {
	expOut := NewDict()
	gotOut := NewDict()
	for _, k := range exp.keys {
		gv, ok := got.Get(k)
		if ok && exp.items[k].Equals(gv) {
			continue
		}
		expOut.Set(k, exp.items[k])
	}
	for _, k := range got.keys {
		ev, ok := exp.Get(k)
		if ok && got.items[k].Equals(ev) {
			continue
		}
		gotOut.Set(k, got.items[k])
	}
	return NewDictValue(expOut).String(), NewDictValue(gotOut).String()
}
