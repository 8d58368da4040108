package vm

// ---------------------------------------------------------------------------
// Builtin functions
// ---------------------------------------------------------------------------

type builtinFunc func(e *Engine, fr *frame, args []Value, script string, line int) (Value, *ScriptError)

var builtins map[string]builtinFunc

func init() {
	builtins = map[string]builtinFunc{
		"string":         builtinString,
		"len":            builtinLen,
		"empty":          builtinEmpty,
		"add":            builtinAdd,
		"keys":           builtinKeys,
		"values":         builtinValues,
		"has_key":        builtinHasKey,
		"instanceof":     builtinInstanceof,
		"typename":       builtinTypename,
		"garbagecollect": builtinGarbageCollect,
	}
}

func wantArgs(name string, args []Value, minimum, maximum int, script string, line int) *ScriptError {
	if len(args) < minimum || (maximum >= 0 && len(args) > maximum) {
		return errf(ErrArgumentCount, script, line,
			"%s: wrong number of arguments: %d", name, len(args))
	}
	return nil
}

func builtinString(e *Engine, fr *frame, args []Value, script string, line int) (Value, *ScriptError) {
	if err := wantArgs("string", args, 1, 1, script, line); err != nil {
		return NullValue, err
	}
	return NewString(args[0].String()), nil
}

func builtinLen(e *Engine, fr *frame, args []Value, script string, line int) (Value, *ScriptError) {
	if err := wantArgs("len", args, 1, 1, script, line); err != nil {
		return NullValue, err
	}
	v := args[0]
	switch v.Kind {
	case KindString:
		return NewNumber(int64(len([]rune(v.Str)))), nil
	case KindList:
		if v.List == nil {
			return ZeroValue, nil
		}
		return NewNumber(int64(len(v.List.Items))), nil
	case KindDict:
		if v.Dict == nil {
			return ZeroValue, nil
		}
		return NewNumber(int64(v.Dict.Len())), nil
	default:
		return NullValue, errf(ErrWrongType, script, line,
			"len: cannot take the length of a %s", v.TypeName())
	}
}

func builtinEmpty(e *Engine, fr *frame, args []Value, script string, line int) (Value, *ScriptError) {
	if err := wantArgs("empty", args, 1, 1, script, line); err != nil {
		return NullValue, err
	}
	return NewBool(!args[0].Truthy()), nil
}

func builtinAdd(e *Engine, fr *frame, args []Value, script string, line int) (Value, *ScriptError) {
	if err := wantArgs("add", args, 2, 2, script, line); err != nil {
		return NullValue, err
	}
	if args[0].Kind != KindList || args[0].List == nil {
		return NullValue, errf(ErrWrongType, script, line, "add: first argument must be a list")
	}
	if args[0].List.locked {
		return NullValue, errf(ErrLocked, script, line, "add: list is locked")
	}
	retain(args[1])
	args[0].List.Items = append(args[0].List.Items, args[1])
	return args[0], nil
}

func builtinKeys(e *Engine, fr *frame, args []Value, script string, line int) (Value, *ScriptError) {
	if err := wantArgs("keys", args, 1, 1, script, line); err != nil {
		return NullValue, err
	}
	if args[0].Kind != KindDict || args[0].Dict == nil {
		return NullValue, errf(ErrWrongType, script, line, "keys: argument must be a dict")
	}
	out := NewList()
	for _, k := range args[0].Dict.Keys() {
		out.Items = append(out.Items, NewString(k))
	}
	return NewListValue(out), nil
}

func builtinValues(e *Engine, fr *frame, args []Value, script string, line int) (Value, *ScriptError) {
	if err := wantArgs("values", args, 1, 1, script, line); err != nil {
		return NullValue, err
	}
	if args[0].Kind != KindDict || args[0].Dict == nil {
		return NullValue, errf(ErrWrongType, script, line, "values: argument must be a dict")
	}
	out := NewList()
	for _, k := range args[0].Dict.Keys() {
		v, _ := args[0].Dict.Get(k)
		retain(v)
		out.Items = append(out.Items, v)
	}
	return NewListValue(out), nil
}

func builtinHasKey(e *Engine, fr *frame, args []Value, script string, line int) (Value, *ScriptError) {
	if err := wantArgs("has_key", args, 2, 2, script, line); err != nil {
		return NullValue, err
	}
	if args[0].Kind != KindDict || args[0].Dict == nil {
		return NullValue, errf(ErrWrongType, script, line, "has_key: first argument must be a dict")
	}
	if args[1].Kind != KindString {
		return NullValue, errf(ErrWrongType, script, line, "has_key: key must be a string")
	}
	_, ok := args[0].Dict.Get(args[1].Str)
	return NewBool(ok), nil
}

// builtinInstanceof reports whether an object is an instance of any of the
// given classes or interfaces. A null object is an instance of nothing.
func builtinInstanceof(e *Engine, fr *frame, args []Value, script string, line int) (Value, *ScriptError) {
	if err := wantArgs("instanceof", args, 2, -1, script, line); err != nil {
		return NullValue, err
	}
	obj := args[0]
	if obj.Kind != KindObject {
		return NullValue, errf(ErrWrongType, script, line,
			"instanceof: first argument must be an object, got %s", obj.TypeName())
	}
	if obj.Obj == nil {
		return FalseValue, nil
	}
	for _, cv := range args[1:] {
		if cv.Kind != KindClass {
			return NullValue, errf(ErrWrongType, script, line,
				"instanceof: expected a class, got %s", cv.TypeName())
		}
		if obj.Obj.class.InstanceOf(cv.Class) {
			return TrueValue, nil
		}
	}
	return FalseValue, nil
}

func builtinTypename(e *Engine, fr *frame, args []Value, script string, line int) (Value, *ScriptError) {
	if err := wantArgs("typename", args, 1, 1, script, line); err != nil {
		return NullValue, err
	}
	return NewString(args[0].TypeName()), nil
}

func builtinGarbageCollect(e *Engine, fr *frame, args []Value, script string, line int) (Value, *ScriptError) {
	if err := wantArgs("garbagecollect", args, 0, 0, script, line); err != nil {
		return NullValue, err
	}
	freed := e.CollectGarbage()
	return NewNumber(int64(freed)), nil
}
