package llvm

import (
	"strings"
	"testing"

	"github.com/Chic-lang/Chic-sub009/internal/mir"
	"github.com/Chic-lang/Chic-sub009/internal/types"
)

func libraryDecl(name string, spec mir.ExternSpec) mir.Func {
	f := decl(name, tyDouble, tyDouble)
	f.Extern = &spec
	return f
}

func TestLazyLibraryBindingStub(t *testing.T) {
	sqrt := libraryDecl("Demo::Native::sqrt", mir.ExternSpec{Library: "libm.so.6"})
	caller := body("Demo::Root", tyDouble,
		[]mir.Local{local(mir.LocalReturn, tyDouble), arg(0, tyDouble)},
		block(0, callTerm(mir.Symbol("Demo::Native::sqrt"), placeRef(0), 1, copyOf(1))),
		block(1, ret()),
	)
	out := emitTest(t, newTestModule(sqrt, caller))
	mustContain(t, out.Text,
		"%chic_ffi_descriptor = type { ptr, ptr, i32, i32, i1 }",
		`@.chic_ffi_lib_Demo__Native__sqrt = private unnamed_addr constant [10 x i8] c"libm.so.6\00"`,
		`@.chic_ffi_sym_Demo__Native__sqrt = private unnamed_addr constant [5 x i8] c"sqrt\00"`,
		"@__chic_ffi_desc_Demo__Native__sqrt = private constant %chic_ffi_descriptor { ptr @.chic_ffi_lib_Demo__Native__sqrt, ptr @.chic_ffi_sym_Demo__Native__sqrt, i32 0, i32 1, i1 0 }",
		"define double @Demo__Native__sqrt(double %arg0) {",
		"%ffi_ptr = call ptr @chic_rt_ffi_resolve(ptr @__chic_ffi_desc_Demo__Native__sqrt)",
		"br label %ffi_invoke",
		"%ffi_result = call double %ffi_ptr(double %arg0)",
		"ret double %ffi_result",
		"declare ptr @chic_rt_ffi_resolve(ptr)",
	)
	mustContain(t, funcText(t, out, "Demo::Root"), "call double @Demo__Native__sqrt(double %t1)")
	if strings.Contains(out.Text, "declare double @Demo__Native__sqrt") {
		t.Errorf("stubbed binding must not also be declared:\n%s", out.Text)
	}
	if strings.Contains(out.Text, "llvm.global_ctors") {
		t.Errorf("lazy binding registered a constructor:\n%s", out.Text)
	}
}

func TestEagerOptionalBinding(t *testing.T) {
	cos := libraryDecl("Demo::Native::Cos", mir.ExternSpec{
		Library:  "libm.so.6",
		Alias:    "cos",
		Binding:  mir.BindEager,
		Optional: true,
	})
	out := emitTest(t, newTestModule(cos))
	mustContain(t, out.Text,
		"@__chic_ffi_desc_Demo__Native__Cos = private constant %chic_ffi_descriptor { ptr @.chic_ffi_lib_Demo__Native__Cos, ptr @.chic_ffi_sym_Demo__Native__Cos, i32 0, i32 2, i1 1 }",
		`c"cos\00"`,
		"define double @Demo__Native__Cos(double %arg0) {",
		"%ffi_missing = icmp eq ptr %ffi_ptr, null",
		"br i1 %ffi_missing, label %ffi_optional, label %ffi_invoke",
		"ffi_optional:\n  ret double 0.0",
		"define internal void @__chic_ffi_eager_init() {",
		"%r0 = call i32 @chic_rt_ffi_eager_resolve(ptr @__chic_ffi_desc_Demo__Native__Cos)",
		"@llvm.global_ctors = appending global [1 x { i32, ptr, ptr }] [{ i32, ptr, ptr } { i32 65535, ptr @__chic_ffi_eager_init, ptr null }]",
		"declare i32 @chic_rt_ffi_eager_resolve(ptr)",
	)
}

func TestVoidOptionalBindingReturnsVoid(t *testing.T) {
	f := decl("Demo::Native::Beep", types.Unit())
	f.Extern = &mir.ExternSpec{Library: "libbeep.so", Optional: true, Convention: "stdcall"}
	out := emitTest(t, newTestModule(f))
	mustContain(t, out.Text,
		"i32 2, i32 1, i1 1 }",
		"ffi_optional:\n  ret void",
		"call void %ffi_ptr()",
	)
}

func TestVariadicLibraryBindingFails(t *testing.T) {
	f := decl("Demo::Native::printf", tyInt, types.Pointer(types.Named("byte"), false))
	f.Variadic = true
	f.Extern = &mir.ExternSpec{Library: "libc.so.6"}
	out, be := emitErr(t, newTestModule(f))
	if be.Func != "Demo::Native::printf" {
		t.Errorf("error names %q", be.Func)
	}
	if strings.Contains(out.Text, "chic_ffi_desc") {
		t.Errorf("variadic binding should not get a descriptor:\n%s", out.Text)
	}
}

func TestConventionTags(t *testing.T) {
	cases := map[string]uint32{"": 0, "C": 0, "c": 0, "system": 1, "StdCall": 2, "fastcall": 3, "vectorcall": 4}
	for conv, want := range cases {
		if got := conventionTag(conv); got != want {
			t.Errorf("conventionTag(%q) = %d, want %d", conv, got, want)
		}
	}
	if conventionTag("Thiscall") != conventionTag("thiscall") {
		t.Error("unknown conventions should hash case-insensitively")
	}
}
