package vm

import "strings"

// ---------------------------------------------------------------------------
// Object instances
// ---------------------------------------------------------------------------

// Object is a live instance. Slots are laid out base-class-first, parallel
// to its class's Members slice, so an ancestor's methods index the same
// array unchanged.
type Object struct {
	class *Class
	slots []Value

	refcount int32
	copyID   uint32

	// constructing is set while new() runs; it relaxes the final/const
	// write checks for the constructor body.
	constructing bool

	// prev/next link all live objects so the cycle collector can sweep
	// unreached ones.
	prev, next *Object
}

// Class returns the object's dynamic class.
func (o *Object) Class() *Class { return o.class }

// Slot returns the value in slot i.
func (o *Object) Slot(i int) Value { return o.slots[i] }

// SetSlot stores v in slot i, adjusting refcounts.
func (o *Object) SetSlot(i int, v Value) {
	old := o.slots[i]
	retain(v)
	o.slots[i] = v
	release(old)
}

// String renders the object as "object of Name {member: value, ...}" in
// declaration order.
func (o *Object) String() string {
	var b strings.Builder
	b.WriteString("object of ")
	b.WriteString(o.class.Name)
	b.WriteString(" {")
	for i, m := range o.class.Members {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(m.Name)
		b.WriteString(": ")
		b.WriteString(o.slots[i].render(true))
	}
	b.WriteString("}")
	return b.String()
}

// ---------------------------------------------------------------------------
// Reference counting
// ---------------------------------------------------------------------------

// retain increments the refcount of the container held by v, if any.
func retain(v Value) {
	switch v.Kind {
	case KindList:
		if v.List != nil {
			v.List.refcount++
		}
	case KindDict:
		if v.Dict != nil {
			v.Dict.refcount++
		}
	case KindObject:
		if v.Obj != nil {
			v.Obj.refcount++
		}
	case KindFunc:
		if v.Func != nil && v.Func.Receiver != nil {
			v.Func.Receiver.refcount++
		}
	}
}

// release decrements the refcount of the container held by v and frees it
// when no references remain.
func release(v Value) {
	switch v.Kind {
	case KindList:
		if v.List != nil {
			v.List.refcount--
			if v.List.refcount <= 0 {
				freeList(v.List)
			}
		}
	case KindDict:
		if v.Dict != nil {
			v.Dict.refcount--
			if v.Dict.refcount <= 0 {
				freeDict(v.Dict)
			}
		}
	case KindObject:
		if v.Obj != nil {
			v.Obj.refcount--
			if v.Obj.refcount <= 0 {
				freeObject(v.Obj)
			}
		}
	case KindFunc:
		if v.Func != nil && v.Func.Receiver != nil {
			recv := v.Func.Receiver
			recv.refcount--
			if recv.refcount <= 0 {
				freeObject(recv)
			}
		}
	}
}

func freeList(l *List) {
	items := l.Items
	l.Items = nil
	for _, item := range items {
		release(item)
	}
}

func freeDict(d *Dict) {
	keys, items := d.keys, d.items
	d.keys, d.items = nil, nil
	for _, k := range keys {
		release(items[k])
	}
}

func freeObject(o *Object) {
	slots := o.slots
	o.slots = nil
	for _, slot := range slots {
		release(slot)
	}
	unlinkObject(o)
}

// unlinkObject removes o from the live-object list.
func unlinkObject(o *Object) {
	if o.prev != nil {
		o.prev.next = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	}
	o.prev, o.next = nil, nil
}
