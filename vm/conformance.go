package vm

// ---------------------------------------------------------------------------
// Interface conformance
// ---------------------------------------------------------------------------

// checkConformance verifies that a class provides every variable and method
// of each interface it implements, with exactly matching types, signatures,
// and access levels, and builds the index tables that translate interface
// positions into the class layout. Inherited members and methods satisfy an
// interface the same as declared ones.
func (e *Engine) checkConformance(cl *Class, script string, line int) *ScriptError {
	if cl.Interface {
		return nil
	}
	for _, itf := range cl.Impls {
		tables := &itfTables{
			members: make([]int, len(itf.Members)),
			methods: make([]int, len(itf.Methods)),
		}
		for i, want := range itf.Members {
			have := cl.FindMember(want.Name)
			if have == nil {
				return errf(ErrVariableNotImplemented, script, line,
					"variable %s of interface %s is not implemented by class %s",
					want.Name, itf.Name, cl.Name)
			}
			if !have.Type.Equal(want.Type) {
				return errf(ErrTypeMismatch, script, line,
					"variable %s: interface %s declares %s but class %s declares %s",
					want.Name, itf.Name, want.Type, cl.Name, have.Type)
			}
			if have.Access != want.Access {
				return errf(ErrAccessMismatch, script, line,
					"variable %s is %s in interface %s but %s in class %s",
					want.Name, want.Access, itf.Name, have.Access, cl.Name)
			}
			tables.members[i] = have.Slot
		}
		for i, want := range itf.Methods {
			have := cl.FindMethod(want.Name)
			if have == nil {
				return errf(ErrMethodNotImplemented, script, line,
					"method %s of interface %s is not implemented by class %s",
					want.Name, itf.Name, cl.Name)
			}
			if !have.SameSignature(want) {
				return errf(ErrSignatureMismatch, script, line,
					"method %s: interface %s declares %s but class %s declares %s",
					want.Name, itf.Name, want.Signature(), cl.Name, have.Signature())
			}
			tables.methods[i] = have.Index
		}
		cl.itfIndex[itf] = tables
	}
	return nil
}
