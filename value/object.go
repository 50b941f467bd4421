package value

// NewObject allocates a fresh object value with the given prototype.
func (h *Heap) NewObject(proto ValueID) ValueID {
	id := h.New(Object)
	v := h.Get(id)
	v.Obj = newObj()
	v.Proto = proto
	return id
}

// NewFunction allocates a function value: an object (so it can carry
// properties like `.length`/`.prototype`) plus function-specific info.
func (h *Heap) NewFunction(info *FuncInfo) ValueID {
	id := h.New(Object)
	v := h.Get(id)
	v.Obj = newObj()
	v.Proto = h.FunctionProto
	v.Func = info
	return id
}

// GetAttr implements LOAD_ATTR's lookup order: own slot first, then the
// weak __proto__ chain (§4.3, §4.4).
func (h *Heap) GetAttr(obj ValueID, name string) (ValueID, bool) {
	cur := obj
	for cur != NilID {
		v := h.Get(cur)
		if v == nil {
			return NilID, false
		}
		if v.Obj != nil {
			if id, ok := v.Obj.Props[name]; ok {
				return id, true
			}
		}
		cur = v.Proto
	}
	return NilID, false
}

// SetAttr implements STORE_ATTR: always creates/overwrites the direct
// slot on obj, never walking the prototype chain.
func (h *Heap) SetAttr(obj ValueID, name string, val ValueID) {
	v := h.Get(obj)
	if v == nil || v.Obj == nil {
		return
	}
	v.Obj.Props[name] = val
}
