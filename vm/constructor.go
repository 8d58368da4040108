package vm

// ---------------------------------------------------------------------------
// Constructor synthesis and instantiation
// ---------------------------------------------------------------------------

// synthesizeConstructor adds the default new() to a class that declares
// none: one optional this.member parameter per object variable, in slot
// order, each defaulting to none so that an omitted argument leaves the
// member's declared initializer in place.
func synthesizeConstructor(cl *Class) {
	m := &Method{
		Name:     "new",
		Access:   AccessPublic,
		DefClass: cl,
		Return:   NewObjectType(cl),
	}
	for _, mem := range cl.Members {
		m.Params = append(m.Params, &Param{
			Name:     mem.Name,
			Type:     mem.Type,
			IsMember: true,
			HasDflt:  true,
			// Default left nil: a synthesized parameter with no supplied
			// argument keeps the member's initializer value.
		})
	}
	cl.NewMethod = m
}

// Instantiate allocates an object of cl and runs its constructor with the
// given arguments. The returned value is retained for the caller.
func (e *Engine) Instantiate(cl *Class, args []Value, script string, line int) (Value, *ScriptError) {
	if cl.Interface {
		return NullValue, errf(ErrAbstractInstantiate, script, line,
			"cannot create an object of interface %s", cl.Name)
	}
	if cl.Abstract {
		return NullValue, errf(ErrAbstractInstantiate, script, line,
			"cannot create an object of abstract class %s", cl.Name)
	}

	obj := e.allocObject(cl)
	obj.refcount = 1
	obj.constructing = true

	// declared initializers first, in slot order
	for i, mem := range cl.Members {
		var v Value
		if mem.Init != nil {
			fr := e.methodFrame(cl, obj)
			ev, err := e.eval(fr, mem.Init)
			if err != nil {
				obj.constructing = false
				release(NewObjectValue(obj))
				return NullValue, err
			}
			v = ev
		} else {
			v = defaultForType(mem.Type)
		}
		retain(v)
		obj.slots[i] = v
	}

	ctor := cl.NewMethod
	if err := e.runConstructor(cl, obj, ctor, args, script, line); err != nil {
		obj.constructing = false
		release(NewObjectValue(obj))
		return NullValue, err
	}
	obj.constructing = false

	// const members are deep locked once construction completes
	for i, mem := range cl.Members {
		if mem.Const {
			lockValue(obj.slots[i], true)
		}
	}
	return NewObjectValue(obj), nil
}

// runConstructor binds arguments (member shorthand parameters assign
// straight into slots) and executes the constructor body.
func (e *Engine) runConstructor(cl *Class, obj *Object, ctor *Method, args []Value, script string, line int) *ScriptError {
	if len(args) > len(ctor.Params) && !ctor.Variadic {
		return errf(ErrArgumentCount, script, line,
			"new %s: expected at most %d arguments, got %d", cl.Name, len(ctor.Params), len(args))
	}
	if len(args) < ctor.MinArgs() {
		return errf(ErrArgumentCount, script, line,
			"new %s: expected at least %d arguments, got %d", cl.Name, ctor.MinArgs(), len(args))
	}

	fr := e.methodFrame(cl, obj)
	defer fr.drop()
	for i, p := range ctor.Params {
		var v Value
		supplied := i < len(args)
		switch {
		case supplied && args[i].Kind != KindNone:
			v = args[i]
		case p.Default != nil:
			dv, err := e.eval(fr, p.Default)
			if err != nil {
				return err
			}
			if dv.Kind == KindNone && p.IsMember {
				// defaulting to none keeps the slot's initializer value
				continue
			}
			v = dv
		default:
			// none argument or omitted: member parameters keep the slot's
			// initializer value
			if p.IsMember {
				continue
			}
			v = defaultForType(p.Type)
		}
		if p.Type != nil && !p.Type.matches(v) {
			return errf(ErrArgumentType, script, line,
				"new %s: argument %d: expected %s but got %s", cl.Name, i+1, p.Type, TypeOf(v))
		}
		if p.IsMember {
			mem := cl.FindMember(p.Name)
			obj.SetSlot(mem.Slot, v)
			continue
		}
		fr.define(p.Name, v)
	}

	if ctor.Body == nil {
		return nil
	}
	_, err := e.execBody(fr, ctor.Body)
	return err
}
