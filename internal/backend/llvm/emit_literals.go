package llvm

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Chic-lang/Chic-sub009/internal/mir"
)

// stringPool interns every string literal of a module before emission.
// After build it is read-only.
type stringPool struct {
	index map[string]int
	lits  []string
}

func buildStringPool(mod *mir.Module) *stringPool {
	seen := make(map[string]struct{})
	visit := func(op *mir.Operand) {
		if op.Kind == mir.OperandConst && op.Const.Kind == mir.ConstStr && op.Const.Str != "" {
			seen[op.Const.Str] = struct{}{}
		}
	}
	for i := range mod.Funcs {
		forEachOperand(&mod.Funcs[i], visit)
	}
	p := &stringPool{index: make(map[string]int, len(seen))}
	for s := range seen {
		p.lits = append(p.lits, s)
	}
	slices.Sort(p.lits)
	for i, s := range p.lits {
		p.index[s] = i
	}
	return p
}

// value returns the `{ ptr, i64 }` constant for s.
func (p *stringPool) value(s string) (string, error) {
	if s == "" {
		return "{ ptr null, i64 0 }", nil
	}
	idx, ok := p.index[s]
	if !ok {
		return "", errorf(ErrInternal, "string literal %q missing from pool", s)
	}
	return fmt.Sprintf("{ ptr @.str.%d, i64 %d }", idx, len(s)), nil
}

func (p *stringPool) emit(sb *strings.Builder) {
	for i, s := range p.lits {
		fmt.Fprintf(sb, "@.str.%d = private unnamed_addr constant [%d x i8] %s\n", i, len(s), byteLiteral([]byte(s)))
	}
	if len(p.lits) > 0 {
		sb.WriteByte('\n')
	}
}

// byteLiteral renders data as an LLVM c"..." literal, escaping quotes,
// backslashes and non-printable bytes as \XX.
func byteLiteral(data []byte) string {
	var sb strings.Builder
	sb.WriteString("c\"")
	for _, b := range data {
		if b >= 0x20 && b < 0x7f && b != '"' && b != '\\' {
			sb.WriteByte(b)
			continue
		}
		fmt.Fprintf(&sb, "\\%02X", b)
	}
	sb.WriteByte('"')
	return sb.String()
}

// forEachOperand visits every operand of f's body.
func forEachOperand(f *mir.Func, visit func(*mir.Operand)) {
	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		for si := range b.Stmts {
			st := &b.Stmts[si]
			if st.Kind != mir.StmtAssign {
				continue
			}
			rv := &st.Assign.Value
			switch rv.Kind {
			case mir.RvalueUse:
				visit(&rv.Use)
			case mir.RvalueBinary:
				visit(&rv.Binary.L)
				visit(&rv.Binary.R)
			case mir.RvalueUnary:
				visit(&rv.Unary.Operand)
			case mir.RvalueCast:
				visit(&rv.Cast.Operand)
			}
		}
		switch b.Term.Kind {
		case mir.TermCall:
			visit(&b.Term.Call.Func)
			for ai := range b.Term.Call.Args {
				visit(&b.Term.Call.Args[ai])
			}
		case mir.TermSwitchInt:
			visit(&b.Term.SwitchInt.Discr)
		}
	}
}
