package llvm

import (
	"fmt"
	"strings"

	"github.com/Chic-lang/Chic-sub009/internal/abi"
	"github.com/Chic-lang/Chic-sub009/internal/mir"
	"github.com/Chic-lang/Chic-sub009/internal/types"
)

// localSlot is the storage of one MIR local.
type localSlot struct {
	ty    types.Type
	repr  string
	known bool
	// storage is the alloca type; empty when addr is a parameter or the
	// local is zero-sized.
	storage string
	addr    string
	// byRef marks a reference-mode parameter: the slot holds the address of
	// the value rather than the value.
	byRef bool
}

type funcEmitter struct {
	e           *moduleEmitter
	f           *mir.Func
	sig         *Signature
	buf         strings.Builder
	scratch     strings.Builder
	tmpID       int
	inlineBlock int
	locals      []localSlot
	ret         mir.LocalID
	externs     map[string]*Signature
	span        uint64
}

func newFuncEmitter(e *moduleEmitter, f *mir.Func, sig *Signature, span uint64) *funcEmitter {
	return &funcEmitter{
		e:       e,
		f:       f,
		sig:     sig,
		ret:     mir.NoLocalID,
		externs: make(map[string]*Signature),
		span:    span,
	}
}

func (fe *funcEmitter) emit() (string, error) {
	ret, err := fe.f.ReturnLocal()
	if err != nil {
		return "", wrapError(ErrInternal, err, "return slot")
	}
	fe.ret = ret
	if err := fe.inferLocals(); err != nil {
		return "", err
	}
	if err := fe.emitEntry(); err != nil {
		return "", err
	}
	entry := fe.buf.String()
	fe.buf.Reset()
	for i := range fe.f.Blocks {
		bb := &fe.f.Blocks[i]
		fmt.Fprintf(&fe.buf, "bb%d:\n", bb.ID)
		for j := range bb.Stmts {
			if err := fe.emitStmt(&bb.Stmts[j]); err != nil {
				return "", fmt.Errorf("bb%d stmt %d: %w", bb.ID, j, err)
			}
		}
		if err := fe.emitTerminator(&bb.Term); err != nil {
			return "", fmt.Errorf("bb%d %s: %w", bb.ID, bb.Term.Kind, err)
		}
	}

	var out strings.Builder
	out.WriteString(fe.sig.Header())
	out.WriteString("\nentry:\n")
	out.WriteString(entry)
	out.WriteString(fe.scratch.String())
	if len(fe.f.Blocks) > 0 {
		fmt.Fprintf(&out, "  br label %%bb%d\n", fe.f.Blocks[0].ID)
	}
	out.WriteString(fe.buf.String())
	out.WriteString("}\n")
	return out.String(), nil
}

// emitEntry allocates every local and spills incoming arguments. Scratch
// slots requested while emitting blocks are appended to the entry block
// afterwards, followed by the branch into the first MIR block.
func (fe *funcEmitter) emitEntry() error {
	off := fe.sig.paramOffset()
	for i := range fe.locals {
		id, err := mir.LocalIndex(i)
		if err != nil {
			return wrapError(ErrInternal, err, "local %d", i)
		}
		s := &fe.locals[i]
		l := &fe.f.Locals[i]
		switch {
		case id == fe.ret:
			if fe.sig.HasSret() {
				s.addr = "%arg0"
				continue
			}
			if s.repr == "" {
				continue
			}
			s.storage = s.repr
			if c := fe.sig.RetCoerce; c != "" {
				s.storage = widerRepr(s.repr, c)
			}
			s.addr = fmt.Sprintf("%%l%d", i)
			fe.line("%s = alloca %s", s.addr, s.storage)
			if fe.f.Kind == mir.FuncTestcase && fe.f.Ret.IsUnit() {
				fe.line("store %s 0, ptr %s", s.repr, s.addr)
			}
		case l.Kind == mir.LocalArg:
			k := l.ArgIndex
			arg := fmt.Sprintf("%%arg%d", k+off)
			switch {
			case s.byRef:
				s.storage = reprPtr
				s.addr = fmt.Sprintf("%%l%d", i)
				fe.line("%s = alloca ptr", s.addr)
				fe.line("store ptr %s, ptr %s", arg, s.addr)
			case fe.sig.passOf(k) != abi.PassDirect:
				s.addr = arg
			case s.repr == "":
			default:
				param := fe.sig.ParamRepr(k)
				s.storage = widerRepr(widerRepr(s.repr, param), fe.sig.rawParam(k))
				s.addr = fmt.Sprintf("%%l%d", i)
				fe.line("%s = alloca %s", s.addr, s.storage)
				fe.line("store %s %s, ptr %s", param, arg, s.addr)
			}
		default:
			if s.repr == "" {
				continue
			}
			s.storage = s.repr
			s.addr = fmt.Sprintf("%%l%d", i)
			fe.line("%s = alloca %s", s.addr, s.storage)
		}
	}
	return nil
}

// widerRepr returns whichever of a and b occupies more bytes.
func widerRepr(a, b string) string {
	sa, _, okA := reprSizeAlign(a)
	sb, _, okB := reprSizeAlign(b)
	if okA && okB && sb > sa {
		return b
	}
	return a
}

func (fe *funcEmitter) line(format string, args ...any) {
	fe.buf.WriteString("  ")
	fmt.Fprintf(&fe.buf, format, args...)
	fe.buf.WriteByte('\n')
}

func (fe *funcEmitter) label(name string) {
	fe.buf.WriteString(name)
	fe.buf.WriteString(":\n")
}

func (fe *funcEmitter) nextTemp() string {
	fe.tmpID++
	return fmt.Sprintf("%%t%d", fe.tmpID)
}

func (fe *funcEmitter) nextInlineBlock() string {
	fe.inlineBlock++
	return fmt.Sprintf("bb.inline%d", fe.inlineBlock)
}

func (fe *funcEmitter) wordRepr() string {
	return fmt.Sprintf("i%d", fe.e.target.WordBits())
}

func (fe *funcEmitter) slot(id mir.LocalID) (*localSlot, error) {
	if id < 0 || int(id) >= len(fe.locals) {
		return nil, errorf(ErrInternal, "local %d out of range", id)
	}
	return &fe.locals[id], nil
}

// use records a callee that needs a declaration.
func (fe *funcEmitter) use(sig *Signature) {
	if sig != nil && sig.Symbol != "" {
		fe.externs[sig.Symbol] = sig
	}
}

func (fe *funcEmitter) useRuntime(name string) *Signature {
	sig := runtimeSigs[name]
	fe.use(sig)
	return sig
}

// alloca reserves a scratch slot in the entry block, so a slot requested
// inside a loop is allocated once per call of the function.
func (fe *funcEmitter) alloca(repr string) string {
	tmp := fe.nextTemp()
	fmt.Fprintf(&fe.scratch, "  %s = alloca %s\n", tmp, repr)
	return tmp
}

func (fe *funcEmitter) load(repr, addr string) string {
	tmp := fe.nextTemp()
	fe.line("%s = load %s, ptr %s", tmp, repr, addr)
	return tmp
}

// fieldPtr offsets base by off bytes. Offset zero is the base itself.
func (fe *funcEmitter) fieldPtr(base string, off int) string {
	if off == 0 {
		return base
	}
	tmp := fe.nextTemp()
	fe.line("%s = getelementptr inbounds i8, ptr %s, i64 %d", tmp, base, off)
	return tmp
}

// emitPanic calls the runtime panic entry and terminates the block.
func (fe *funcEmitter) emitPanic(code int32) {
	fe.useRuntime("chic_rt_panic")
	tmp := fe.nextTemp()
	fe.line("%s = call i32 @chic_rt_panic(i32 %d)", tmp, code)
	fe.line("unreachable")
}
