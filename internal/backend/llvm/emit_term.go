package llvm

import (
	"fmt"

	"github.com/Chic-lang/Chic-sub009/internal/mir"
)

func (fe *funcEmitter) emitTerminator(term *mir.Terminator) error {
	switch term.Kind {
	case mir.TermReturn:
		return fe.emitReturn()
	case mir.TermGoto:
		fe.line("br label %%bb%d", term.Goto.Target)
		return nil
	case mir.TermSwitchInt:
		return fe.emitSwitch(&term.SwitchInt)
	case mir.TermCall:
		if err := fe.emitCall(&term.Call); err != nil {
			return err
		}
		fe.emitContinuation(&term.Call)
		return nil
	case mir.TermPanic:
		fe.emitPanic(term.Panic.Code)
		return nil
	case mir.TermUnreachable:
		fe.line("unreachable")
		return nil
	}
	return errorf(ErrInternal, "terminator kind %s", term.Kind)
}

func (fe *funcEmitter) emitReturn() error {
	sig := fe.sig
	switch {
	case sig.HasSret(), sig.Ret == "void":
		fe.line("ret void")
		return nil
	case fe.ret == mir.NoLocalID:
		fe.line("ret %s %s", sig.Ret, zeroValue(sig.Ret))
		return nil
	}
	s, err := fe.slot(fe.ret)
	if err != nil {
		return err
	}
	if s.addr == "" {
		fe.line("ret %s %s", sig.Ret, zeroValue(sig.Ret))
		return nil
	}
	if sig.RetCoerce != "" {
		// the slot is at least as wide as the coerced shape
		fe.line("ret %s %s", sig.RetCoerce, fe.load(sig.RetCoerce, s.addr))
		return nil
	}
	v := fe.load(s.repr, s.addr)
	v, err = fe.convert(v, s.repr, sig.Ret, isSignedType(s.ty))
	if err != nil {
		return err
	}
	fe.line("ret %s %s", sig.Ret, v)
	return nil
}

func (fe *funcEmitter) emitSwitch(sw *mir.SwitchIntTerm) error {
	v, repr, err := fe.operand(&sw.Discr, "")
	if err != nil {
		return err
	}
	if repr == reprPtr {
		v, err = fe.convert(v, repr, fe.wordRepr(), false)
		if err != nil {
			return err
		}
		repr = fe.wordRepr()
	}
	if !isIntRepr(repr) {
		return errorf(ErrInternal, "switch on `%s`", repr)
	}
	if len(sw.Cases) == 0 {
		fe.line("br label %%bb%d", sw.Otherwise)
		return nil
	}
	fe.line("switch %s %s, label %%bb%d [", repr, v, sw.Otherwise)
	for _, c := range sw.Cases {
		fmt.Fprintf(&fe.buf, "    %s %d, label %%bb%d\n", repr, c.Value, c.Target)
	}
	fe.line("]")
	return nil
}

// emitContinuation leaves a call block. With an unwind edge the runtime's
// pending-exception flag picks the successor.
func (fe *funcEmitter) emitContinuation(call *mir.CallTerm) {
	if call.Unwind == nil {
		fe.line("br label %%bb%d", call.Target)
		return
	}
	fe.useRuntime("chic_rt_has_pending_exception")
	flag := fe.nextTemp()
	fe.line("%s = call i32 @chic_rt_has_pending_exception()", flag)
	cond := fe.nextTemp()
	fe.line("%s = icmp ne i32 %s, 0", cond, flag)
	fe.line("br i1 %s, label %%bb%d, label %%bb%d", cond, *call.Unwind, call.Target)
}
