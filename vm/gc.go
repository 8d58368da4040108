package vm

// ---------------------------------------------------------------------------
// Cycle collection
// ---------------------------------------------------------------------------

// CollectGarbage frees objects kept alive only by reference cycles.
// Reference counting reclaims everything else as it goes; this walk marks
// what is reachable from the roots (script globals and class variables) and
// sweeps the rest of the allocation list. Collection is a top-level safe
// point: values held only in an executing frame are roots of that frame and
// must not rely on surviving a collection triggered inside it.
func (e *Engine) CollectGarbage() int {
	e.copyID++
	id := e.copyID
	visited := make(map[interface{}]bool)

	for _, st := range e.scripts {
		for _, v := range st.Globals {
			e.mark(v, id, visited)
		}
	}
	for _, name := range e.classes.order {
		cl := e.classes.byName[name]
		for _, v := range cl.ClassVars {
			e.mark(v, id, visited)
		}
	}

	var condemned []*Object
	for o := e.objects.next; o != &e.objects; o = o.next {
		if o.copyID != id {
			condemned = append(condemned, o)
		}
	}
	if len(condemned) == 0 {
		return 0
	}

	inCycle := make(map[*Object]bool, len(condemned))
	for _, o := range condemned {
		inCycle[o] = true
	}
	for _, o := range condemned {
		slots := o.slots
		o.slots = nil
		unlinkObject(o)
		for _, v := range slots {
			// references between condemned objects are dropped without a
			// release so the cascade cannot free them twice
			if v.Kind == KindObject && inCycle[v.Obj] {
				continue
			}
			release(v)
		}
	}
	e.log.Infof("garbage collection freed %d objects", len(condemned))
	return len(condemned)
}

// mark flags every object reachable from v with the current copy ID.
// Lists and dicts are tracked in visited so self-referential containers
// terminate.
func (e *Engine) mark(v Value, id uint32, visited map[interface{}]bool) {
	switch v.Kind {
	case KindObject:
		if v.Obj == nil || v.Obj.copyID == id {
			return
		}
		v.Obj.copyID = id
		for _, slot := range v.Obj.slots {
			e.mark(slot, id, visited)
		}
	case KindList:
		if v.List == nil || visited[v.List] {
			return
		}
		visited[v.List] = true
		for _, item := range v.List.Items {
			e.mark(item, id, visited)
		}
	case KindDict:
		if v.Dict == nil || visited[v.Dict] {
			return
		}
		visited[v.Dict] = true
		for _, k := range v.Dict.Keys() {
			item, _ := v.Dict.Get(k)
			e.mark(item, id, visited)
		}
	case KindFunc:
		if v.Func != nil && v.Func.Receiver != nil {
			e.mark(NewObjectValue(v.Func.Receiver), id, visited)
		}
	}
}
