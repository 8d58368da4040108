package vm

// ---------------------------------------------------------------------------
// Member access control
// ---------------------------------------------------------------------------

// canSeeProtected reports whether code compiled in class ctx may touch a
// protected member defined by def: the defining class and its subclasses.
func canSeeProtected(ctx, def *Class) bool {
	for cl := ctx; cl != nil; cl = cl.Extends {
		if cl == def {
			return true
		}
	}
	return false
}

// checkMemberRead enforces read access. ctx is the class whose method is
// executing, or nil for script-level code.
func checkMemberRead(ctx *Class, mem *Member, script string, line int) *ScriptError {
	if mem.Access != AccessProtected {
		return nil
	}
	if ctx != nil && canSeeProtected(ctx, mem.DefClass) {
		return nil
	}
	return errf(ErrProtectedAccess, script, line,
		"cannot access protected variable %s in class %s", mem.Name, mem.DefClass.Name)
}

// checkMethodAccess enforces access for calling a method or taking a
// funcref to it. Protection is checked where the reference is taken, not
// where it is eventually invoked.
func checkMethodAccess(ctx *Class, m *Method, script string, line int) *ScriptError {
	if m.Access != AccessProtected {
		return nil
	}
	if ctx != nil && canSeeProtected(ctx, m.DefClass) {
		return nil
	}
	return errf(ErrProtectedAccess, script, line,
		"cannot access protected method %s in class %s", m.Name, m.DefClass.Name)
}

// checkMemberWrite enforces write access. obj is the instance being
// written, or nil for a class variable. Final and const members accept
// writes only while their object is under construction, from the declaring
// class.
func checkMemberWrite(ctx *Class, obj *Object, mem *Member, script string, line int) *ScriptError {
	constructing := obj != nil && obj.constructing

	// the construction window is open to the declaring class only: other
	// code handed the object mid-construction still cannot write these
	if mem.Const && !(constructing && ctx == mem.DefClass) {
		return errf(ErrConstWrite, script, line,
			"cannot change const variable %s", mem.Name)
	}
	if mem.Final && !(constructing && ctx == mem.DefClass) {
		return errf(ErrFinalWrite, script, line,
			"cannot change final variable %s", mem.Name)
	}

	switch mem.Access {
	case AccessPublic:
		return nil
	case AccessProtected:
		if ctx != nil && canSeeProtected(ctx, mem.DefClass) {
			return nil
		}
		return errf(ErrProtectedAccess, script, line,
			"cannot access protected variable %s in class %s", mem.Name, mem.DefClass.Name)
	default:
		// read-only outside the declaring class's own methods
		if ctx == mem.DefClass {
			return nil
		}
		return errf(ErrReadOnlyWrite, script, line,
			"variable %s in class %s is not writable here", mem.Name, mem.DefClass.Name)
	}
}

// checkSlotLock rejects writes to a slot whose current value was locked
// with lockvar or by const construction.
func checkSlotLock(v Value, name, script string, line int) *ScriptError {
	locked := false
	switch v.Kind {
	case KindList:
		locked = v.List != nil && v.List.locked
	case KindDict:
		locked = v.Dict != nil && v.Dict.locked
	}
	if locked {
		return errf(ErrLocked, script, line, "%s is locked", name)
	}
	return nil
}
