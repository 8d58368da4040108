package vm

// ---------------------------------------------------------------------------
// Function references
// ---------------------------------------------------------------------------

// FuncRef is a first-class reference to a method or script function. Bound
// object methods carry their receiver; class (static) methods carry the
// class they were taken from.
type FuncRef struct {
	Method   *Method
	Receiver *Object // non-nil for bound object methods
	Class    *Class  // defining class for static methods, receiver class otherwise

	// Script names a script-level function when Method describes one that
	// is not attached to a class.
	Script string
}

// Bound reports whether the reference carries a receiver.
func (f *FuncRef) Bound() bool { return f.Receiver != nil }

func (f *FuncRef) String() string {
	if f.Method == nil {
		return "function"
	}
	name := f.Method.Name
	if f.Class != nil {
		name = f.Class.Name + "." + name
	}
	return "function('" + name + "')"
}
