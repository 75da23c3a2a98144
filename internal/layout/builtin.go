package layout

import "github.com/Chic-lang/Chic-sub009/internal/types"

// Names of the runtime container layouts seeded into every table.
const (
	BuiltinStr             = "str"
	BuiltinString          = "string"
	BuiltinVec             = "Std::Collections::Vec"
	BuiltinSpan            = "Std::Span::Span"
	BuiltinSpanPtr         = "Std::Runtime::Collections::SpanPtr"
	BuiltinReadOnlySpanPtr = "Std::Runtime::Collections::ReadOnlySpanPtr"
	BuiltinClosure         = "Std::Runtime::Closure"

	DecimalIntrinsicResult = "Std::Numeric::Decimal::DecimalIntrinsicResult"
	DecimalRuntimeCall     = "Std::Numeric::Decimal::DecimalRuntimeCall"
	DecimalBits            = "Std::Numeric::Decimal::DecimalBits"
)

func word(t Target) types.Type {
	if t.PtrSize == 4 {
		return types.Named("u32")
	}
	return types.Named("usize")
}

func rawPtr() types.Type { return types.Pointer(types.Named("byte"), true) }

func spanLayout(name string, t Target) TypeLayout {
	w := t.PtrSize
	return TypeLayout{
		Name: name, Kind: KindStruct, Size: 6 * w, Align: t.PtrAlign,
		Fields: []Field{
			{Name: "data", Type: rawPtr(), Offset: 0},
			{Name: "data_size", Type: word(t), Offset: w},
			{Name: "data_align", Type: word(t), Offset: 2 * w},
			{Name: "len", Type: word(t), Offset: 3 * w},
			{Name: "elem_size", Type: word(t), Offset: 4 * w},
			{Name: "elem_align", Type: word(t), Offset: 5 * w},
		},
	}
}

func builtinLayouts(t Target) []TypeLayout {
	w := t.PtrSize
	return []TypeLayout{
		{
			Name: BuiltinStr, Kind: KindStruct, Size: 2 * w, Align: t.PtrAlign,
			Fields: []Field{
				{Name: "ptr", Type: rawPtr(), Offset: 0},
				{Name: "len", Type: word(t), Offset: w},
			},
		},
		{
			Name: BuiltinString, Kind: KindStruct, Size: 3 * w, Align: t.PtrAlign,
			Fields: []Field{
				{Name: "ptr", Type: rawPtr(), Offset: 0},
				{Name: "len", Type: word(t), Offset: w},
				{Name: "cap", Type: word(t), Offset: 2 * w},
			},
		},
		{
			Name: BuiltinVec, Kind: KindStruct, Size: 6 * w, Align: t.PtrAlign,
			Fields: []Field{
				{Name: "ptr", Type: rawPtr(), Offset: 0},
				{Name: "len", Type: word(t), Offset: w},
				{Name: "cap", Type: word(t), Offset: 2 * w},
				{Name: "elem_size", Type: word(t), Offset: 3 * w},
				{Name: "elem_align", Type: word(t), Offset: 4 * w},
				{Name: "drop", Type: rawPtr(), Offset: 5 * w},
			},
		},
		spanLayout(BuiltinSpan, t),
		spanLayout(BuiltinSpanPtr, t),
		spanLayout(BuiltinReadOnlySpanPtr, t),
		{
			Name: BuiltinClosure, Kind: KindStruct, Size: 6 * w, Align: t.PtrAlign,
			Fields: []Field{
				{Name: "invoke", Type: rawPtr(), Offset: 0},
				{Name: "context", Type: rawPtr(), Offset: w},
				{Name: "drop_glue", Type: rawPtr(), Offset: 2 * w},
				{Name: "type_id", Type: types.Named("u64"), Offset: 3 * w},
				{Name: "env_size", Type: word(t), Offset: 4 * w},
				{Name: "env_align", Type: word(t), Offset: 5 * w},
			},
		},
		{
			Name: DecimalIntrinsicResult, Kind: KindStruct, Size: 48, Align: 16,
			Fields: []Field{
				{Name: "Status", Type: types.Named("int"), Offset: 0},
				{Name: "Value", Type: types.Named("decimal"), Offset: 16},
				{Name: "Variant", Type: types.Named("int"), Offset: 32},
			},
		},
		{
			Name: DecimalBits, Kind: KindStruct, Size: 16, Align: 4,
			Fields: []Field{
				{Name: "lo", Type: types.Named("uint"), Offset: 0},
				{Name: "mid", Type: types.Named("uint"), Offset: 4},
				{Name: "hi", Type: types.Named("uint"), Offset: 8},
				{Name: "flags", Type: types.Named("uint"), Offset: 12},
			},
		},
		{
			Name: DecimalRuntimeCall, Kind: KindStruct, Size: 20, Align: 4,
			Fields: []Field{
				{Name: "Status", Type: types.Named("int"), Offset: 0},
				{Name: "Value", Type: types.Named(DecimalBits), Offset: 4},
			},
		},
	}
}
