package llvm

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/Chic-lang/Chic-sub009/internal/layout"
	"github.com/Chic-lang/Chic-sub009/internal/mir"
	"github.com/Chic-lang/Chic-sub009/internal/types"
)

func body(name string, ret types.Type, locals []mir.Local, blocks ...mir.Block) mir.Func {
	f := mir.Func{Name: name, Ret: ret, Locals: locals, Blocks: blocks}
	for _, l := range locals {
		if l.Kind == mir.LocalArg {
			f.Params = append(f.Params, mir.Param{Type: l.Type})
		}
	}
	return f
}

func assign(dst mir.LocalID, rv mir.Rvalue) mir.Statement {
	return mir.Assign(mir.LocalPlace(dst), rv)
}

func use(op mir.Operand) mir.Rvalue { return mir.Use(op) }

// emitErr runs EmitModule expecting a failure and returns the backend error.
func emitErr(t *testing.T, mod *mir.Module) (*Output, *Error) {
	t.Helper()
	out, err := EmitModule(context.Background(), mod, layout.X86_64LinuxGNU(), Options{Jobs: 1, ErasePlaceholders: true})
	if err == nil {
		t.Fatalf("expected an error, got module:\n%s", out.Text)
	}
	var be *Error
	if !errors.As(err, &be) {
		t.Fatalf("error %v is not a backend error", err)
	}
	return out, be
}

func TestFixedArrayIndexChecksBeforeAddressing(t *testing.T) {
	f := body("Demo::Third", tyInt,
		[]mir.Local{local(mir.LocalReturn, tyInt), arg(0, types.Array(tyInt, 4)), local(mir.LocalVar, tyLong)},
		block(0, ret(),
			assign(2, use(mir.IntConst(2, tyLong))),
			mir.Assign(mir.LocalPlace(0), use(mir.Copy(mir.LocalPlace(1).Index(2)))),
		),
	)
	out := emitTest(t, newTestModule(f))
	text := funcText(t, out, "Demo::Third")
	mustContain(t, text,
		"icmp uge i64 %t1, 4",
		"call i32 @chic_rt_panic(i32 8194)",
		"bb.inline2:",
		"mul i64 %t1, 4",
		"getelementptr inbounds i8, ptr %l1, i64 %t4",
		"ret i32",
	)
	br := strings.Index(text, "br i1")
	if mul := strings.Index(text, "mul i64"); mul < br {
		t.Errorf("element offset computed before the bounds branch:\n%s", text)
	}
	if gep := strings.Index(text, "getelementptr"); gep < br {
		t.Errorf("address computed before the bounds branch:\n%s", text)
	}
	panicAt := strings.Index(text, "@chic_rt_panic")
	if next := text[panicAt:]; !strings.Contains(next[:strings.Index(next, "bb.inline2:")], "unreachable") {
		t.Errorf("panic edge does not end in unreachable:\n%s", text)
	}
	mustContain(t, out.Text, "declare i32 @chic_rt_panic(i32)")
}

func TestStringIndexUsesCharStride(t *testing.T) {
	f := body("Demo::CharAt", types.Named("char"),
		[]mir.Local{local(mir.LocalReturn, types.Named("char")), arg(0, types.StringType()), arg(1, tyInt)},
		block(0, ret(),
			mir.Assign(mir.LocalPlace(0), use(mir.Copy(mir.LocalPlace(1).Index(2)))),
		),
	)
	text := funcText(t, emitTest(t, newTestModule(f)), "Demo::CharAt")
	mustContain(t, text,
		"%l1 = alloca { ptr, i64, i64 }",
		"sext i32 %t1 to i64",
		"call i32 @chic_rt_panic(i32 8197)",
		"load i16, ptr %t",
	)
	if !regexp.MustCompile(`mul i64 %t\d+, 2\n`).MatchString(text) {
		t.Errorf("missing 2-byte stride:\n%s", text)
	}
}

func TestStrAndVecIndexCodes(t *testing.T) {
	byteTy := types.Named("byte")
	cases := []struct {
		name string
		seq  types.Type
		elem types.Type
		code string
	}{
		{"Demo::StrAt", types.Str(), byteTy, "i32 8198"},
		{"Demo::VecAt", types.Vec(tyLong), tyLong, "i32 8193"},
		{"Demo::SpanAt", types.Span(tyInt), tyInt, "i32 8195"},
		{"Demo::RoSpanAt", types.ReadOnlySpan(tyInt), tyInt, "i32 8196"},
	}
	for _, tc := range cases {
		f := body(tc.name, tc.elem,
			[]mir.Local{local(mir.LocalReturn, tc.elem), arg(0, tc.seq), arg(1, tyLong)},
			block(0, ret(), mir.Assign(mir.LocalPlace(0), use(mir.Copy(mir.LocalPlace(1).Index(2))))),
		)
		text := funcText(t, emitTest(t, newTestModule(f)), tc.name)
		mustContain(t, text, "call i32 @chic_rt_panic("+tc.code+")")
	}
}

func TestIndexThroughPointerLoadsContainer(t *testing.T) {
	f := body("Demo::Peek", tyLong,
		[]mir.Local{local(mir.LocalReturn, tyLong), arg(0, types.Pointer(types.Vec(tyLong), false)), arg(1, tyLong)},
		block(0, ret(), mir.Assign(mir.LocalPlace(0), use(mir.Copy(mir.LocalPlace(1).Deref().Index(2))))),
	)
	text := funcText(t, emitTest(t, newTestModule(f)), "Demo::Peek")
	mustContain(t, text, "load ptr, ptr %l1", "call i32 @chic_rt_panic(i32 8193)", "mul i64 %t2, 8")
}

func TestNarrowingStoreTruncates(t *testing.T) {
	f := body("Demo::Narrow", tyInt,
		[]mir.Local{local(mir.LocalReturn, tyInt), arg(0, tyLong)},
		block(0, ret(), assign(0, use(copyOf(1)))),
	)
	text := funcText(t, emitTest(t, newTestModule(f)), "Demo::Narrow")
	mustContain(t, text,
		"define i32 @Demo__Narrow(i64 %arg0) {",
		"%t1 = load i64, ptr %l1",
		"%t2 = trunc i64 %t1 to i32",
		"store i32 %t2, ptr %l0",
	)
}

func TestSignednessPicksInstructions(t *testing.T) {
	uintTy := types.Named("uint")
	bin := func(op mir.BinOp, l, r mir.LocalID) mir.Rvalue {
		return mir.Rvalue{Kind: mir.RvalueBinary, Binary: mir.BinaryOp{Op: op, L: copyOf(l), R: copyOf(r)}}
	}
	f := body("Demo::Div", types.Unit(),
		[]mir.Local{
			local(mir.LocalReturn, types.Unit()),
			arg(0, tyInt), arg(1, uintTy),
			local(mir.LocalVar, tyInt), local(mir.LocalVar, uintTy), local(mir.LocalVar, types.Named("bool")),
			local(mir.LocalVar, tyDouble),
		},
		block(0, ret(),
			assign(3, bin(mir.BinDiv, 1, 1)),
			assign(4, bin(mir.BinShr, 2, 2)),
			assign(5, bin(mir.BinLt, 2, 2)),
			assign(6, mir.Rvalue{Kind: mir.RvalueCast, Cast: mir.CastOp{Operand: copyOf(1), To: tyDouble}}),
			assign(6, mir.Rvalue{Kind: mir.RvalueUnary, Unary: mir.UnaryOp{Op: mir.UnNeg, Operand: copyOf(6)}}),
			assign(5, mir.Rvalue{Kind: mir.RvalueUnary, Unary: mir.UnaryOp{Op: mir.UnNot, Operand: copyOf(5)}}),
		),
	)
	text := funcText(t, emitTest(t, newTestModule(f)), "Demo::Div")
	mustContain(t, text,
		"sdiv i32",
		"lshr i32",
		"icmp ult i32",
		"zext i1 %t",
		"sitofp i32",
		"fneg double",
		"xor i8 %t",
		"ret void",
	)
	if !strings.Contains(text, ", 1\n") {
		t.Errorf("bool not should xor with 1:\n%s", text)
	}
}

func TestInferenceFillsUnknownLocals(t *testing.T) {
	unknown := types.Unknown()
	f := body("Demo::Chain", tyLong,
		[]mir.Local{
			local(mir.LocalReturn, tyLong), arg(0, tyLong),
			local(mir.LocalTemp, unknown), local(mir.LocalTemp, unknown), local(mir.LocalTemp, unknown),
			local(mir.LocalTemp, unknown),
		},
		block(0, gotoBlock(1),
			assign(4, use(copyOf(3))),
			assign(3, use(copyOf(2))),
		),
		block(1, ret(),
			assign(2, use(copyOf(1))),
			assign(0, use(copyOf(4))),
		),
	)
	f.Locals = append(f.Locals, local(mir.LocalTemp, unknown))
	f.Blocks[0].Stmts = append(f.Blocks[0].Stmts, assign(6, use(mir.BoolConst(true))))
	text := funcText(t, emitTest(t, newTestModule(f)), "Demo::Chain")
	mustContain(t, text,
		"%l2 = alloca i64",
		"%l3 = alloca i64",
		"%l4 = alloca i64",
		"%l5 = alloca i64",
		"%l6 = alloca i8",
		"br label %bb0",
	)
}

func TestEmissionIsDeterministicAcrossJobs(t *testing.T) {
	var funcs []mir.Func
	for _, name := range []string{"Demo::A", "Demo::B", "Demo::C", "Demo::D", "Demo::E", "Demo::F"} {
		funcs = append(funcs, body(name, tyInt,
			[]mir.Local{local(mir.LocalReturn, tyInt), arg(0, tyLong), local(mir.LocalTemp, types.Unknown())},
			block(0, ret(),
				assign(2, use(copyOf(1))),
				assign(0, use(copyOf(2))),
			),
		))
	}
	funcs = append(funcs, body("Demo::Caller", types.Unit(),
		[]mir.Local{local(mir.LocalReturn, types.Unit()), local(mir.LocalVar, tyInt)},
		block(0, callTerm(mir.Symbol("Demo::C"), placeRef(1), 1, mir.IntConst(7, tyLong))),
		block(1, ret()),
	))
	var first string
	for _, jobs := range []int{1, 8, 3} {
		out, err := EmitModule(context.Background(), newTestModule(funcs...), layout.X86_64LinuxGNU(), Options{Jobs: jobs})
		if err != nil {
			t.Fatalf("jobs=%d: %v", jobs, err)
		}
		if first == "" {
			first = out.Text
			continue
		}
		if out.Text != first {
			t.Fatalf("jobs=%d output differs:\n%s\n---\n%s", jobs, out.Text, first)
		}
	}
}

func TestDecimalResultShapePropagates(t *testing.T) {
	const result = "{ i32, [12 x i8], i128, i32, [12 x i8] }"
	unknown := types.Unknown()
	f := body("Demo::AddDecimals", types.Unit(),
		[]mir.Local{local(mir.LocalReturn, types.Unit()), local(mir.LocalTemp, unknown), local(mir.LocalTemp, unknown)},
		block(0, callTerm(mir.Symbol("Std::Numeric::Decimal::Intrinsics::Add"), placeRef(1), 1)),
		block(1, ret(), assign(2, use(copyOf(1)))),
	)
	text := funcText(t, emitTest(t, newTestModule(f)), "Demo::AddDecimals")
	mustContain(t, text,
		"%l1 = alloca "+result,
		"%l2 = alloca "+result,
		"store "+result+" zeroinitializer, ptr %l1",
	)
}

func TestDecimalResultAssembledFieldByField(t *testing.T) {
	const result = "{ i32, [12 x i8], i128, i32, [12 x i8] }"
	unknown := types.Unknown()
	money := types.Named("Demo::Money")
	f := body("Demo::Build", types.Unit(),
		[]mir.Local{
			local(mir.LocalReturn, types.Unit()),
			local(mir.LocalTemp, unknown),
			local(mir.LocalTemp, unknown),
			local(mir.LocalVar, money),
			local(mir.LocalTemp, unknown),
		},
		block(0, callTerm(mir.Symbol("Std::Numeric::Decimal::Intrinsics::Add"), placeRef(1), 1)),
		block(1, ret(),
			mir.Assign(mir.LocalPlace(2).FieldNamed("Status"), use(mir.IntConst(0, tyInt))),
			mir.Assign(mir.LocalPlace(2).FieldNamed("Variant"), use(mir.IntConst(1, tyInt))),
			mir.Assign(mir.LocalPlace(3).FieldNamed("Value"), use(mir.IntConst(5, tyLong))),
			assign(4, use(copyOf(2))),
		),
	)
	mod := newTestModule(f)
	mod.Layouts = []layout.TypeLayout{structLayout("Demo::Money", 8, 8, field("Value", tyLong, 0))}
	text := funcText(t, emitTest(t, mod), "Demo::Build")
	mustContain(t, text,
		"%l2 = alloca "+result,
		"%l4 = alloca "+result,
		"store i32 0, ptr %l2",
		"getelementptr inbounds i8, ptr %l2, i64 32",
		"%l3 = alloca { i64 }",
	)
}

func TestDecimalRuntimeResultFollowsCopies(t *testing.T) {
	const result = "{ i32, { i32, i32, i32, i32 } }"
	unknown := types.Unknown()
	f := body("Demo::Total", types.Unit(),
		[]mir.Local{local(mir.LocalReturn, types.Unit()), local(mir.LocalTemp, unknown), local(mir.LocalTemp, unknown)},
		block(0, callTerm(mir.Symbol("Std::Numeric::Decimal::chic_rt_decimal_weighted_sum"), placeRef(1), 1)),
		block(1, ret(), assign(2, use(mir.Move(mir.LocalPlace(1))))),
	)
	text := funcText(t, emitTest(t, newTestModule(f)), "Demo::Total")
	mustContain(t, text,
		"%l1 = alloca "+result,
		"%l2 = alloca "+result,
	)
}

func TestDecimalRuntimeResultIgnoresFieldWrites(t *testing.T) {
	unknown := types.Unknown()
	f := body("Demo::Partial", types.Unit(),
		[]mir.Local{local(mir.LocalReturn, types.Unit()), local(mir.LocalTemp, unknown), local(mir.LocalTemp, unknown)},
		block(0, callTerm(mir.Symbol("Std::Numeric::Decimal::chic_rt_decimal_weighted_sum"), placeRef(1), 1)),
		block(1, ret(), mir.Assign(mir.LocalPlace(2).FieldNamed("Status"), use(mir.IntConst(0, tyInt)))),
	)
	_, be := emitErr(t, newTestModule(f))
	if be.Func != "Demo::Partial" || be.Kind != ErrMissingLayout {
		t.Errorf("error = %s in %q, want %s", be.Kind, be.Func, ErrMissingLayout)
	}
}

func TestScratchSlotsLiveInEntryBlock(t *testing.T) {
	big := types.Named("Demo::Big")
	pass := decl("Demo::Pass", big, big)
	pass.Abi = "C"
	loop := body("Demo::Loop", types.Unit(),
		[]mir.Local{local(mir.LocalReturn, types.Unit()), local(mir.LocalVar, big), local(mir.LocalVar, big)},
		block(0, callTerm(mir.Symbol("Demo::Pass"), placeRef(2), 1, copyOf(1))),
		block(1, gotoBlock(0)),
	)
	mod := newTestModule(pass, loop)
	mod.Layouts = []layout.TypeLayout{bigLayout()}
	text := funcText(t, emitTest(t, mod), "Demo::Loop")
	entry, blocks, ok := strings.Cut(text, "\nbb0:\n")
	if !ok {
		t.Fatalf("no bb0 label:\n%s", text)
	}
	if strings.Contains(blocks, "alloca") {
		t.Errorf("alloca emitted outside the entry block:\n%s", text)
	}
	if strings.Count(entry, "alloca "+bigRepr) != 3 {
		t.Errorf("expected two locals and one byval slot in entry:\n%s", entry)
	}
	if !strings.HasSuffix(entry, "br label %bb0") {
		t.Errorf("entry block should end by branching to bb0:\n%s", entry)
	}
}

func TestCallerReusesDestinationAsReturnBuffer(t *testing.T) {
	big := types.Named("Demo::Big")
	pass := decl("Demo::Pass", big, big)
	pass.Abi = "C"
	caller := body("Demo::Caller", types.Unit(),
		[]mir.Local{local(mir.LocalReturn, types.Unit()), local(mir.LocalVar, big), local(mir.LocalVar, big)},
		block(0, callTerm(mir.Symbol("Demo::Pass"), placeRef(2), 1, copyOf(1))),
		block(1, ret()),
	)
	mod := newTestModule(pass, caller)
	mod.Layouts = []layout.TypeLayout{bigLayout()}
	out := emitTest(t, mod)
	text := funcText(t, out, "Demo::Caller")
	mustContain(t, text,
		"%l2 = alloca "+bigRepr,
		"call void @Demo__Pass(ptr sret("+bigRepr+") align 8 %l2, ptr byval("+bigRepr+") align 8 %t",
	)
	if strings.Count(text, "alloca "+bigRepr) != 3 {
		t.Errorf("expected two locals and one byval copy:\n%s", text)
	}
	mustContain(t, out.Text, "declare void @Demo__Pass(ptr sret("+bigRepr+") align 8, ptr byval("+bigRepr+") align 8)")
}

func TestCalleeWithSretStoresThroughHiddenArgument(t *testing.T) {
	big := types.Named("Demo::Big")
	f := body("Demo::Make", big,
		[]mir.Local{local(mir.LocalReturn, big), arg(0, tyLong)},
		block(0, ret(), mir.Assign(mir.LocalPlace(0).FieldNamed("c"), use(copyOf(1)))),
	)
	f.Abi = "C"
	mod := newTestModule(f)
	mod.Layouts = []layout.TypeLayout{bigLayout()}
	text := funcText(t, emitTest(t, mod), "Demo::Make")
	mustContain(t, text,
		"define void @Demo__Make(ptr sret("+bigRepr+") align 8 %arg0, i64 %arg1) {",
		"getelementptr inbounds i8, ptr %arg0, i64 16",
		"ret void",
	)
}

func TestCoercedReturnLoadsRegisterShape(t *testing.T) {
	pair := structLayout("Demo::Pair", 12, 4, field("a", tyInt, 0), field("b", tyInt, 4), field("c", tyInt, 8))
	f := body("Demo::MakePair", types.Named("Demo::Pair"),
		[]mir.Local{local(mir.LocalReturn, types.Named("Demo::Pair")), arg(0, tyInt)},
		block(0, ret(), mir.Assign(mir.LocalPlace(0).Field(1), use(copyOf(1)))),
	)
	f.Abi = "C"
	mod := newTestModule(f)
	mod.Layouts = []layout.TypeLayout{pair}
	text := funcText(t, emitTest(t, mod), "Demo::MakePair")
	mustContain(t, text,
		"define { i64, i32 } @Demo__MakePair(i32 %arg0) {",
		"%l0 = alloca { i64, i32 }",
		"load { i64, i32 }, ptr %l0",
		"ret { i64, i32 } %t",
	)
}

func TestUnwindEdgeChecksPendingException(t *testing.T) {
	unwind := mir.BlockID(2)
	call := callTerm(mir.Symbol("Demo::Work"), nil, 1)
	call.Call.Unwind = &unwind
	f := body("Demo::Guarded", types.Unit(),
		[]mir.Local{local(mir.LocalReturn, types.Unit())},
		block(0, call),
		block(1, ret()),
		block(2, mir.Terminator{Kind: mir.TermPanic, Panic: mir.PanicTerm{Code: 0x3001}}),
	)
	out := emitTest(t, newTestModule(decl("Demo::Work", types.Unit()), f))
	text := funcText(t, out, "Demo::Guarded")
	mustContain(t, text,
		"call void @Demo__Work()",
		"%t1 = call i32 @chic_rt_has_pending_exception()",
		"%t2 = icmp ne i32 %t1, 0",
		"br i1 %t2, label %bb2, label %bb1",
		"call i32 @chic_rt_panic(i32 12289)",
	)
	mustContain(t, out.Text,
		"declare i32 @chic_rt_has_pending_exception()",
		"declare void @Demo__Work()",
	)
}

func TestSwitchLowering(t *testing.T) {
	sw := mir.Terminator{Kind: mir.TermSwitchInt, SwitchInt: mir.SwitchIntTerm{
		Discr:     copyOf(1),
		Cases:     []mir.SwitchCase{{Value: 0, Target: 1}, {Value: 7, Target: 2}},
		Otherwise: 3,
	}}
	f := body("Demo::Pick", tyInt,
		[]mir.Local{local(mir.LocalReturn, tyInt), arg(0, tyInt)},
		block(0, sw),
		block(1, ret(), assign(0, use(mir.IntConst(10, tyInt)))),
		block(2, ret(), assign(0, use(mir.IntConst(20, tyInt)))),
		block(3, mir.Terminator{Kind: mir.TermUnreachable}),
	)
	text := funcText(t, emitTest(t, newTestModule(f)), "Demo::Pick")
	mustContain(t, text,
		"switch i32 %t1, label %bb3 [\n    i32 0, label %bb1\n    i32 7, label %bb2\n  ]",
		"store i32 20, ptr %l0",
		"unreachable",
	)
}

func TestUnresolvedCalleeStoresZero(t *testing.T) {
	f := body("Demo::Sentinel", types.Unit(),
		[]mir.Local{local(mir.LocalReturn, types.Unit()), local(mir.LocalVar, tyInt)},
		block(0, callTerm(mir.Symbol("Demo::Nowhere"), placeRef(1), 1, mir.IntConst(3, tyInt))),
		block(1, ret()),
	)
	text := funcText(t, emitTest(t, newTestModule(f)), "Demo::Sentinel")
	mustContain(t, text, "store i32 0, ptr %l1", "br label %bb1")
	if strings.Contains(text, "Nowhere") {
		t.Errorf("unresolved callee should not be referenced:\n%s", text)
	}
}

func TestFailedCalleeSignatureIsAnError(t *testing.T) {
	f := body("Demo::UsesBroken", types.Unit(),
		[]mir.Local{local(mir.LocalReturn, types.Unit()), local(mir.LocalVar, tyInt)},
		block(0, callTerm(mir.Symbol("Demo::Broken"), nil, 1, copyOf(1))),
		block(1, ret()),
	)
	fine := body("Demo::Fine", tyInt,
		[]mir.Local{local(mir.LocalReturn, tyInt)},
		block(0, ret(), assign(0, use(mir.IntConst(1, tyInt)))),
	)
	mod := newTestModule(decl("Demo::Broken", types.Unit(), types.Named("Demo::Widget")), f, fine)
	out, be := emitErr(t, mod)
	if be.Kind != ErrMissingSignature || be.Func != "Demo::UsesBroken" {
		t.Errorf("error = %s (%s) in %q", be, be.Kind, be.Func)
	}
	if !strings.Contains(out.Text, "define i32 @Demo__Fine()") {
		t.Errorf("healthy function missing from partial output:\n%s", out.Text)
	}
	if strings.Contains(out.Text, "@Demo__UsesBroken") {
		t.Errorf("failed function should be left out:\n%s", out.Text)
	}
}

func traitCall(callee string, slot, slots int) mir.Terminator {
	term := callTerm(mir.Symbol(callee), placeRef(0), 1, copyOf(1))
	term.Call.Dispatch = mir.Dispatch{Kind: mir.DispatchTrait, Trait: "Demo::IShape", Slot: slot, SlotCount: slots}
	return term
}

func measure(term mir.Terminator) mir.Func {
	return body("Demo::Measure", tyDouble,
		[]mir.Local{local(mir.LocalReturn, tyDouble), arg(0, types.TraitObject("Demo::IShape"))},
		block(0, term),
		block(1, ret()),
	)
}

func TestTraitCallStructuralFallback(t *testing.T) {
	area := decl("Demo::Circle::Area", tyDouble, types.Pointer(types.Named("Demo::Circle"), false))
	text := funcText(t, emitTest(t, newTestModule(area, measure(traitCall("Demo::IShape::Area", 0, 2)))), "Demo::Measure")
	mustContain(t, text,
		"%t1 = load { ptr, ptr }, ptr %l1",
		"%t2 = extractvalue { ptr, ptr } %t1, 0",
		"%t3 = extractvalue { ptr, ptr } %t1, 1",
		"%t4 = getelementptr inbounds [2 x ptr], ptr %t3, i64 0, i64 0",
		"%t5 = load ptr, ptr %t4",
		"%t6 = call double %t5(ptr %t2)",
		"store double %t6, ptr %l0",
	)
}

func TestTraitCallWithoutCandidateFails(t *testing.T) {
	_, be := emitErr(t, newTestModule(measure(traitCall("Demo::IShape::Area", 0, 2))))
	if be.Kind != ErrMissingSignature {
		t.Errorf("kind = %s, want %s", be.Kind, ErrMissingSignature)
	}
	_, be = emitErr(t, newTestModule(measure(traitCall("Demo::IShape::Area", 2, 2))))
	if be.Kind != ErrMissingLayout {
		t.Errorf("slot past the table: kind = %s", be.Kind)
	}
}

func TestTraitCallWithKnownImpl(t *testing.T) {
	area := decl("Demo::Circle::Area", tyDouble, types.Pointer(types.Named("Demo::Circle"), false))
	term := traitCall("Demo::Circle::Area", 0, 1)
	term.Call.Dispatch.Impl = "Demo::Circle"
	mod := newTestModule(area, measure(term))
	mod.TraitVTables = []mir.TraitVTable{{
		Trait: "Demo::IShape", Impl: "Demo::Circle",
		Slots: []mir.VTableSlot{{Method: "Area", Impl: "Demo::Circle::Area"}},
	}}
	out := emitTest(t, mod)
	mustContain(t, out.Text, "@__chic_trait_vtable_Demo__IShape__Demo__Circle = constant [1 x ptr] [ptr @Demo__Circle__Area]")
	mustContain(t, funcText(t, out, "Demo::Measure"),
		"getelementptr inbounds [1 x ptr], ptr @__chic_trait_vtable_Demo__IShape__Demo__Circle, i64 0, i64 0",
		"call double %t",
	)
}

func classModule(slot int) *mir.Module {
	base := types.Named("Demo::Base")
	speak := decl("Demo::Base::Speak", tyInt, base)
	term := callTerm(mir.Symbol("Demo::Base::Speak"), placeRef(0), 1, copyOf(1))
	term.Call.Dispatch = mir.Dispatch{Kind: mir.DispatchVirtual, Slot: slot, SlotCount: 1, BaseOwner: "Demo::Base"}
	talk := body("Demo::Talk", tyInt,
		[]mir.Local{local(mir.LocalReturn, tyInt), arg(0, base)},
		block(0, term),
		block(1, ret()),
	)
	mod := newTestModule(speak, talk)
	vt := 0
	mod.Layouts = []layout.TypeLayout{{
		Name: "Demo::Base", Kind: layout.KindClass, Size: 16, Align: 8, VTableOffset: &vt,
		Fields: []layout.Field{field("vtable", types.Pointer(types.Named("byte"), false), 0), field("n", tyInt, 8)},
	}}
	mod.ClassVTables = []mir.ClassVTable{{
		Type:  "Demo::Base",
		Slots: []mir.VTableSlot{{Method: "Speak", Impl: "Demo::Base::Speak"}},
	}}
	return mod
}

func TestVirtualCallThroughBaseTable(t *testing.T) {
	out := emitTest(t, classModule(0))
	mustContain(t, out.Text,
		"@__chic_vtable_Demo__Base = constant [1 x ptr] [ptr @Demo__Base__Speak]",
		"declare i32 @Demo__Base__Speak(ptr)",
	)
	mustContain(t, funcText(t, out, "Demo::Talk"),
		"%t1 = getelementptr inbounds [1 x ptr], ptr @__chic_vtable_Demo__Base, i64 0, i64 0",
		"%t2 = load ptr, ptr %t1",
		"call i32 %t2(ptr %t3)",
	)
}

func TestVirtualCallSlotOutOfRange(t *testing.T) {
	_, be := emitErr(t, classModule(4))
	if be.Kind != ErrMissingLayout {
		t.Errorf("kind = %s, want %s", be.Kind, ErrMissingLayout)
	}
}

func TestVirtualCallThroughObjectHeader(t *testing.T) {
	mod := classModule(0)
	talk := &mod.Funcs[1]
	talk.Blocks[0].Term.Call.Dispatch.BaseOwner = ""
	text := funcText(t, emitTest(t, mod), "Demo::Talk")
	mustContain(t, text,
		"%t1 = load ptr, ptr %l1",
		"%t2 = load ptr, ptr %t1",
		"getelementptr inbounds [1 x ptr], ptr %t2, i64 0, i64 0",
	)
}

func TestClosureCallPassesContextFirst(t *testing.T) {
	fnTy := types.Func(types.FnType{Params: []types.Type{tyInt}, Ret: tyInt})
	term := callTerm(copyOf(1), placeRef(0), 1, copyOf(2))
	term.Call.Dispatch.Kind = mir.DispatchIndirect
	f := body("Demo::Apply", tyInt,
		[]mir.Local{local(mir.LocalReturn, tyInt), arg(0, fnTy), arg(1, tyInt)},
		block(0, term),
		block(1, ret()),
	)
	text := funcText(t, emitTest(t, newTestModule(f)), "Demo::Apply")
	mustContain(t, text,
		"%t1 = load ptr, ptr %l1",
		"%t2 = getelementptr inbounds i8, ptr %l1, i64 8",
		"%t3 = load ptr, ptr %t2",
		"call i32 %t1(ptr %t3, i32 %t4)",
	)
}

func TestForeignFunctionPointerCall(t *testing.T) {
	fnTy := types.Func(types.FnType{Params: []types.Type{tyInt}, Ret: tyLong, Abi: "C"})
	term := callTerm(copyOf(1), placeRef(0), 1, mir.IntConst(5, tyInt))
	term.Call.Dispatch.Kind = mir.DispatchIndirect
	f := body("Demo::CallC", tyLong,
		[]mir.Local{local(mir.LocalReturn, tyLong), arg(0, fnTy)},
		block(0, term),
		block(1, ret()),
	)
	text := funcText(t, emitTest(t, newTestModule(f)), "Demo::CallC")
	mustContain(t, text,
		"define i64 @Demo__CallC(ptr %arg0) {",
		"%t1 = load ptr, ptr %l1",
		"%t2 = call i64 %t1(i32 5)",
	)
}

func TestVariadicCallPromotesExtras(t *testing.T) {
	printf := decl("Demo::Native::printf", tyInt, types.Pointer(types.Named("byte"), false))
	printf.Abi = "C"
	printf.Variadic = true
	printf.Extern = &mir.ExternSpec{}
	f := body("Demo::Log", types.Unit(),
		[]mir.Local{local(mir.LocalReturn, types.Unit()), arg(0, types.Pointer(types.Named("byte"), false)),
			arg(1, types.Named("float")), arg(2, types.Named("short"))},
		block(0, callTerm(mir.Symbol("Demo::Native::printf"), nil, 1, copyOf(1), copyOf(2), copyOf(3))),
		block(1, ret()),
	)
	out := emitTest(t, newTestModule(printf, f))
	mustContain(t, funcText(t, out, "Demo::Log"),
		"fpext float %t2 to double",
		"sext i16 %t4 to i32",
		"call i32 (ptr, ...) @printf(ptr %t1, double %t3, i32 %t5)",
	)
	mustContain(t, out.Text, "declare i32 @printf(ptr, ...)")
}

func TestRuntimeFallbackCall(t *testing.T) {
	f := body("Demo::Bail", types.Unit(),
		[]mir.Local{local(mir.LocalReturn, types.Unit()), local(mir.LocalVar, tyInt)},
		block(0, callTerm(mir.Symbol("Std::Runtime::chic_rt_abort"), placeRef(1), 1, mir.IntConst(2, tyInt))),
		block(1, ret()),
	)
	out := emitTest(t, newTestModule(f))
	mustContain(t, funcText(t, out, "Demo::Bail"), "%t1 = call i32 @chic_rt_abort(i32 2)", "store i32 %t1, ptr %l1")
	mustContain(t, out.Text, "declare i32 @chic_rt_abort(i32)")
}

func TestArityMismatchIsReported(t *testing.T) {
	f := body("Demo::Short", types.Unit(),
		[]mir.Local{local(mir.LocalReturn, types.Unit())},
		block(0, callTerm(mir.Symbol("Demo::Math::Add"), nil, 1, mir.IntConst(1, tyInt))),
		block(1, ret()),
	)
	_, be := emitErr(t, newTestModule(decl("Demo::Math::Add", tyInt, tyInt, tyInt), f))
	if be.Kind != ErrArity {
		t.Errorf("kind = %s, want %s", be.Kind, ErrArity)
	}
}
