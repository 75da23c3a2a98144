package llvm

// convert reconciles a value of representation from with representation
// to. Scalars use the matching conversion instruction; everything else goes
// through memory: the value is stored into a slot wide enough for both and
// reloaded as the target shape. Same-width bitcasts are only used between
// vectors.
func (fe *funcEmitter) convert(val, from, to string, signed bool) (string, error) {
	switch {
	case from == to:
		return val, nil
	case to == "":
		return "", nil
	case from == "" || val == "":
		return zeroValue(to), nil
	}
	op := ""
	switch {
	case isIntRepr(from) && isIntRepr(to):
		fb, tb := intBits(from), intBits(to)
		switch {
		case fb > tb:
			op = "trunc"
		case signed && fb > 1:
			op = "sext"
		default:
			op = "zext"
		}
	case from == reprPtr && isIntRepr(to):
		op = "ptrtoint"
	case isIntRepr(from) && to == reprPtr:
		op = "inttoptr"
	case isFloatRepr(from) && isFloatRepr(to) && floatBits(from) != floatBits(to):
		op = "fpext"
		if floatBits(from) > floatBits(to) {
			op = "fptrunc"
		}
	case isIntRepr(from) && isFloatRepr(to):
		op = "uitofp"
		if signed {
			op = "sitofp"
		}
	case isFloatRepr(from) && isIntRepr(to):
		op = "fptoui"
		if signed {
			op = "fptosi"
		}
	case isVectorRepr(from) && isVectorRepr(to) && sameSize(from, to):
		op = "bitcast"
	}
	if op != "" {
		tmp := fe.nextTemp()
		fe.line("%s = %s %s %s to %s", tmp, op, from, val, to)
		return tmp, nil
	}
	return fe.spill(val, from, to)
}

func sameSize(a, b string) bool {
	sa, _, okA := reprSizeAlign(a)
	sb, _, okB := reprSizeAlign(b)
	return okA && okB && sa == sb
}

// spill reinterprets val through a stack slot sized for the wider of the two
// shapes, so the reload never reads past the store.
func (fe *funcEmitter) spill(val, from, to string) (string, error) {
	if _, _, ok := reprSizeAlign(from); !ok {
		return "", errorf(ErrInternal, "cannot size `%s` to convert it to `%s`", from, to)
	}
	if _, _, ok := reprSizeAlign(to); !ok {
		return "", errorf(ErrInternal, "cannot size `%s` to convert `%s` into it", to, from)
	}
	slot := fe.alloca(widerRepr(from, to))
	fe.line("store %s %s, ptr %s", from, val, slot)
	return fe.load(to, slot), nil
}
