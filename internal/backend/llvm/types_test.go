package llvm

import (
	"errors"
	"testing"

	"github.com/Chic-lang/Chic-sub009/internal/layout"
	"github.com/Chic-lang/Chic-sub009/internal/types"
)

func TestMapScalarsAndWrappers(t *testing.T) {
	m := testMapper(t)
	cases := []struct {
		ty   types.Type
		want string
	}{
		{tyInt, "i32"},
		{types.Named("ulong"), "i64"},
		{types.Named("bool"), "i8"},
		{types.Named("char"), "i16"},
		{types.Named("decimal"), "i128"},
		{types.Named("float"), "float"},
		{types.Named("half"), "half"},
		{types.Named("bf16"), "bfloat"},
		{types.Named("quad"), "fp128"},
		{types.Named("f32x4"), "<4 x float>"},
		{types.Pointer(tyInt, true), "ptr"},
		{types.Nullable(tyInt), "ptr"},
		{types.TraitObject("Demo::IShape"), "{ ptr, ptr }"},
		{types.Array(tyInt, 4), "[4 x i32]"},
		{types.Vector(types.Named("i16"), 8), "<8 x i16>"},
		{types.Str(), "{ ptr, i64 }"},
		{types.Unit(), ""},
	}
	for _, tc := range cases {
		got, err := m.Map(tc.ty)
		if err != nil {
			t.Errorf("Map(%s): %v", tc.ty, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Map(%s) = %q, want %q", tc.ty, got, tc.want)
		}
	}
}

func TestMapStructPaddingMatchesLayout(t *testing.T) {
	m := testMapper(t,
		structLayout("Demo::Padded", 16, 8, field("flag", types.Named("byte"), 0), field("value", tyLong, 8)),
		structLayout("Demo::Tail", 12, 4, field("x", tyInt, 0), field("y", types.Named("short"), 4)),
		structLayout("Demo::Packed", 5, 1, field("tag", types.Named("byte"), 0), field("value", tyInt, 1)),
	)
	cases := []struct {
		name string
		want string
		size int
	}{
		{"Demo::Padded", "{ i8, [7 x i8], i64 }", 16},
		{"Demo::Tail", "{ i32, i16, [6 x i8] }", 12},
		{"Demo::Packed", "<{ i8, i32 }>", 5},
	}
	for _, tc := range cases {
		got, err := m.Map(types.Named(tc.name))
		if err != nil {
			t.Fatalf("Map(%s): %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("Map(%s) = %q, want %q", tc.name, got, tc.want)
		}
		size, _, ok := reprSizeAlign(got)
		if !ok || size != tc.size {
			t.Errorf("%s: representation size %d (ok=%v), layout size %d", tc.name, size, ok, tc.size)
		}
	}
}

func TestMapSelfReferenceBecomesPointer(t *testing.T) {
	m := testMapper(t,
		structLayout("Demo::Node", 16, 8, field("value", tyInt, 0), field("next", types.Named("Demo::Node"), 8)),
		structLayout("Demo::A", 16, 8, field("b", types.Named("Demo::B"), 0)),
		structLayout("Demo::B", 16, 8, field("n", tyLong, 0), field("a", types.Named("Demo::A"), 8)),
	)
	got, err := m.Map(types.Named("Demo::Node"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "{ i32, [4 x i8], ptr }"; got != want {
		t.Errorf("Node = %q, want %q", got, want)
	}
	got, err = m.Map(types.Named("Demo::A"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "{ { i64, ptr } }"; got != want {
		t.Errorf("A = %q, want %q", got, want)
	}
	// a second call sees a fresh visiting set
	again, _ := m.Map(types.Named("Demo::Node"))
	if want := "{ i32, [4 x i8], ptr }"; again != want {
		t.Errorf("Node again = %q, want %q", again, want)
	}
}

func TestMapErrors(t *testing.T) {
	m := testMapper(t,
		layout.TypeLayout{Name: "Demo::Bits", Kind: layout.KindUnion, Size: 8, Align: 8,
			Views: []layout.View{{Name: "i", Type: tyLong}, {Name: "f", Type: tyDouble}}},
		structLayout("Demo::Pair", 8, 4, field("a", tyInt, 0), field("b", tyInt, 4)),
	)
	cases := []struct {
		ty   types.Type
		kind ErrorKind
	}{
		{types.Named("Demo::Bits"), ErrUnionType},
		{types.Vector(types.Named("Demo::Pair"), 4), ErrSimdElement},
		{types.Named("Demo::Widget"), ErrUnknownType},
		{types.Unknown(), ErrUnknownType},
	}
	for _, tc := range cases {
		_, err := m.Map(tc.ty)
		var be *Error
		if !errors.As(err, &be) {
			t.Errorf("Map(%s): expected backend error, got %v", tc.ty, err)
			continue
		}
		if be.Kind != tc.kind {
			t.Errorf("Map(%s): kind %s, want %s", tc.ty, be.Kind, tc.kind)
		}
	}
}

func TestPlaceholderErasure(t *testing.T) {
	b := layout.NewBuilder(layout.X86_64LinuxGNU())
	tbl := b.Freeze()
	erase := NewTypeMapper(tbl, true)
	strict := NewTypeMapper(tbl, false)
	for _, name := range []string{"T", "TItem", "IComparable"} {
		got, err := erase.Map(types.Named(name))
		if err != nil || got != "ptr" {
			t.Errorf("erasing Map(%s) = %q, %v", name, got, err)
		}
		if _, err := strict.Map(types.Named(name)); err == nil {
			t.Errorf("strict Map(%s) should fail", name)
		}
	}
}
