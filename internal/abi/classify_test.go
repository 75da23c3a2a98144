package abi

import (
	"testing"

	"github.com/Chic-lang/Chic-sub009/internal/layout"
	"github.com/Chic-lang/Chic-sub009/internal/types"
)

func newTable(t *testing.T, target layout.Target) *layout.Table {
	t.Helper()
	b := layout.NewBuilder(target)
	ls := []layout.TypeLayout{
		{
			Name: "Demo::Big", Kind: layout.KindStruct, Size: 40, Align: 8,
			Fields: []layout.Field{
				{Name: "a", Type: types.Named("long"), Offset: 0},
				{Name: "b", Type: types.Named("long"), Offset: 8},
				{Name: "c", Type: types.Named("long"), Offset: 16},
				{Name: "d", Type: types.Named("long"), Offset: 24},
				{Name: "e", Type: types.Named("long"), Offset: 32},
			},
		},
		{
			Name: "Demo::Pair", Kind: layout.KindStruct, Size: 12, Align: 4,
			Fields: []layout.Field{
				{Name: "a", Type: types.Named("int"), Offset: 0},
				{Name: "b", Type: types.Named("int"), Offset: 4},
				{Name: "c", Type: types.Named("int"), Offset: 8},
			},
		},
		{
			Name: "Demo::Small", Kind: layout.KindStruct, Size: 8, Align: 4,
			Fields: []layout.Field{
				{Name: "a", Type: types.Named("int"), Offset: 0},
				{Name: "b", Type: types.Named("int"), Offset: 4},
			},
		},
		{
			Name: "Demo::Rgb", Kind: layout.KindStruct, Size: 3, Align: 1,
			Fields: []layout.Field{
				{Name: "r", Type: types.Named("byte"), Offset: 0},
				{Name: "g", Type: types.Named("byte"), Offset: 1},
				{Name: "b", Type: types.Named("byte"), Offset: 2},
			},
		},
		{
			Name: "Demo::Packed", Kind: layout.KindStruct, Size: 5, Align: 1, Packed: true,
			Fields: []layout.Field{
				{Name: "tag", Type: types.Named("byte"), Offset: 0},
				{Name: "value", Type: types.Named("int"), Offset: 1},
			},
		},
		{
			Name: "Demo::Vec3", Kind: layout.KindStruct, Size: 12, Align: 4,
			Fields: []layout.Field{
				{Name: "x", Type: types.Named("float"), Offset: 0},
				{Name: "y", Type: types.Named("float"), Offset: 4},
				{Name: "z", Type: types.Named("float"), Offset: 8},
			},
		},
		{
			Name: "Demo::Quad", Kind: layout.KindStruct, Size: 32, Align: 8,
			Fields: []layout.Field{
				{Name: "a", Type: types.Named("double"), Offset: 0},
				{Name: "inner", Type: types.Named("Demo::Duo"), Offset: 8},
				{Name: "d", Type: types.Named("double"), Offset: 24},
			},
		},
		{
			Name: "Demo::Duo", Kind: layout.KindStruct, Size: 16, Align: 8,
			Fields: []layout.Field{
				{Name: "b", Type: types.Named("double"), Offset: 0},
				{Name: "c", Type: types.Named("double"), Offset: 8},
			},
		},
		{Name: "Demo::Mode", Kind: layout.KindEnum, Size: 4},
	}
	if err := b.AddAll(ls); err != nil {
		t.Fatalf("layouts: %v", err)
	}
	return b.Freeze()
}

func cfn(ret types.Type, params ...types.Type) *types.FnType {
	return &types.FnType{Params: params, Ret: ret, Abi: types.AbiC}
}

func TestLargeStructIsByValAndSret(t *testing.T) {
	tbl := newTable(t, layout.X86_64LinuxGNU())
	big := types.Named("Demo::Big")
	sig, err := Classify(cfn(big, big), tbl)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if sig.Params[0].Pass != PassByVal || sig.Params[0].Align != 8 {
		t.Fatalf("param = %+v, want byval align 8", sig.Params[0])
	}
	if sig.Ret.Kind != ReturnSret || sig.Ret.Align != 8 {
		t.Fatalf("ret = %+v, want sret", sig.Ret)
	}
	if sig.ParamOffset() != 1 {
		t.Fatalf("sret must shift params by one")
	}
}

func TestCoercionShapes(t *testing.T) {
	cases := []struct {
		name   string
		target layout.Target
		ty     string
		pass   PassKind
		coerce string
	}{
		{"sysv small", layout.X86_64LinuxGNU(), "Demo::Small", PassDirect, "i64"},
		{"sysv pair", layout.X86_64LinuxGNU(), "Demo::Pair", PassDirect, "{ i64, i32 }"},
		{"sysv rgb", layout.X86_64LinuxGNU(), "Demo::Rgb", PassDirect, "i24"},
		{"sysv misaligned", layout.X86_64LinuxGNU(), "Demo::Packed", PassByVal, ""},
		{"aarch64 pair", layout.Aarch64LinuxGNU(), "Demo::Pair", PassDirect, "[2 x i64]"},
		{"aarch64 hfa", layout.Aarch64LinuxGNU(), "Demo::Vec3", PassDirect, ""},
		{"aarch64 nested hfa", layout.Aarch64LinuxGNU(), "Demo::Quad", PassDirect, ""},
		{"aarch64 big", layout.Aarch64LinuxGNU(), "Demo::Big", PassPtr, ""},
		{"windows small", layout.X86_64Windows(), "Demo::Small", PassDirect, "i64"},
		{"windows pair", layout.X86_64Windows(), "Demo::Pair", PassByVal, ""},
		{"windows rgb", layout.X86_64Windows(), "Demo::Rgb", PassByVal, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tbl := newTable(t, tc.target)
			sig, err := Classify(cfn(types.Unit(), types.Named(tc.ty)), tbl)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			p := sig.Params[0]
			if p.Pass != tc.pass || p.Coerce != tc.coerce {
				t.Fatalf("got pass=%s coerce=%q, want pass=%s coerce=%q", p.Pass, p.Coerce, tc.pass, tc.coerce)
			}
		})
	}
}

func TestScalarsAndReferenceModes(t *testing.T) {
	tbl := newTable(t, layout.X86_64LinuxGNU())
	fn := &types.FnType{
		Params: []types.Type{types.Named("int"), types.Named("Demo::Mode"), types.Named("Demo::Small"), types.Named("Demo::Big")},
		Modes:  []types.ParamMode{types.ModeValue, types.ModeValue, types.ModeRef, types.ModeOut},
		Ret:    types.Named("Demo::Small"),
		Abi:    types.AbiC,
	}
	sig, err := Classify(fn, tbl)
	if err != nil {
		t.Fatal(err)
	}
	want := []PassKind{PassDirect, PassDirect, PassPtr, PassPtr}
	for i, p := range sig.Params {
		if p.Pass != want[i] {
			t.Errorf("param %d pass = %s, want %s", i, p.Pass, want[i])
		}
		if p.Coerce != "" {
			t.Errorf("param %d unexpected coercion %q", i, p.Coerce)
		}
	}
	if sig.Ret.Kind != ReturnDirect || sig.Ret.Coerce != "i64" {
		t.Fatalf("ret = %+v", sig.Ret)
	}
}

func TestMissingLayoutIsError(t *testing.T) {
	tbl := newTable(t, layout.X86_64LinuxGNU())
	if _, err := Classify(cfn(types.Unit(), types.Named("Demo::Ghost")), tbl); err == nil {
		t.Fatalf("expected missing layout error")
	}
}

func TestNonCSignatureRejected(t *testing.T) {
	tbl := newTable(t, layout.X86_64LinuxGNU())
	if _, err := Classify(&types.FnType{Ret: types.Unit()}, tbl); err == nil {
		t.Fatalf("expected error for chic ABI")
	}
	if _, err := Classify(&types.FnType{Ret: types.Unit(), Abi: "stdcall"}, tbl); err == nil {
		t.Fatalf("expected error for unsupported extern ABI")
	}
}

func TestClassificationIsDeterministic(t *testing.T) {
	tbl := newTable(t, layout.X86_64LinuxGNU())
	fn := cfn(types.Named("Demo::Pair"), types.Named("Demo::Big"), types.Named("Demo::Pair"))
	first, err := Classify(fn, tbl)
	if err != nil {
		t.Fatal(err)
	}
	for n := 0; n < 5; n++ {
		again, err := Classify(fn, tbl)
		if err != nil {
			t.Fatal(err)
		}
		for i := range first.Params {
			if first.Params[i].Pass != again.Params[i].Pass || first.Params[i].Coerce != again.Params[i].Coerce {
				t.Fatalf("param %d classification changed", i)
			}
		}
	}
}
