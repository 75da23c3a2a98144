package llvm

import (
	"context"
	"strings"
	"testing"

	"github.com/Chic-lang/Chic-sub009/internal/layout"
	"github.com/Chic-lang/Chic-sub009/internal/mir"
	"github.com/Chic-lang/Chic-sub009/internal/types"
)

var (
	tyInt    = types.Named("int")
	tyLong   = types.Named("long")
	tyDouble = types.Named("double")
)

func newTestModule(funcs ...mir.Func) *mir.Module {
	return &mir.Module{Name: "test", Funcs: funcs}
}

func structLayout(name string, size, align int, fields ...layout.Field) layout.TypeLayout {
	return layout.TypeLayout{Name: name, Kind: layout.KindStruct, Size: size, Align: align, Fields: fields}
}

func field(name string, ty types.Type, off int) layout.Field {
	return layout.Field{Name: name, Type: ty, Offset: off}
}

// bigLayout is a 40-byte value type, too large for registers on every
// supported target.
func bigLayout() layout.TypeLayout {
	return structLayout("Demo::Big", 40, 8,
		field("a", tyLong, 0), field("b", tyLong, 8), field("c", tyLong, 16),
		field("d", tyLong, 24), field("e", tyLong, 32))
}

const bigRepr = "{ i64, i64, i64, i64, i64 }"

func local(kind mir.LocalKind, ty types.Type) mir.Local {
	return mir.Local{Kind: kind, Type: ty}
}

func arg(idx int, ty types.Type) mir.Local {
	return mir.Local{Kind: mir.LocalArg, Type: ty, ArgIndex: idx}
}

func ret() mir.Terminator { return mir.Terminator{Kind: mir.TermReturn} }

func gotoBlock(id mir.BlockID) mir.Terminator {
	return mir.Terminator{Kind: mir.TermGoto, Goto: mir.GotoTerm{Target: id}}
}

func block(id mir.BlockID, term mir.Terminator, stmts ...mir.Statement) mir.Block {
	return mir.Block{ID: id, Stmts: stmts, Term: term}
}

func callTerm(callee mir.Operand, dest *mir.Place, target mir.BlockID, args ...mir.Operand) mir.Terminator {
	return mir.Terminator{Kind: mir.TermCall, Call: mir.CallTerm{Func: callee, Args: args, Dest: dest, Target: target}}
}

func placeRef(id mir.LocalID) *mir.Place {
	p := mir.LocalPlace(id)
	return &p
}

func copyOf(id mir.LocalID) mir.Operand { return mir.Copy(mir.LocalPlace(id)) }

func emitTest(t *testing.T, mod *mir.Module) *Output {
	t.Helper()
	out, err := EmitModule(context.Background(), mod, layout.X86_64LinuxGNU(), Options{Jobs: 1, ErasePlaceholders: true})
	if err != nil {
		t.Fatalf("EmitModule: %v", err)
	}
	return out
}

func funcText(t *testing.T, out *Output, name string) string {
	t.Helper()
	for _, f := range out.Functions {
		if f.Name == name {
			if f.Err != nil {
				t.Fatalf("%s: %v", name, f.Err)
			}
			return f.Text
		}
	}
	t.Fatalf("function %s not emitted", name)
	return ""
}

func mustContain(t *testing.T, text string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(text, w) {
			t.Errorf("missing %q in:\n%s", w, text)
		}
	}
}

func testMapper(t *testing.T, ls ...layout.TypeLayout) *TypeMapper {
	t.Helper()
	b := layout.NewBuilder(layout.X86_64LinuxGNU())
	if err := b.AddAll(ls); err != nil {
		t.Fatalf("AddAll: %v", err)
	}
	return NewTypeMapper(b.Freeze(), true)
}
