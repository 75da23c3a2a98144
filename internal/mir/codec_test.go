package mir

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/Chic-lang/Chic-sub009/internal/types"
)

const sampleYAML = `
name: demo
entry: Demo::Main
layouts:
  - name: Demo::Point
    kind: struct
    size: 8
    align: 4
    fields:
      - {name: x, type: {kind: named, name: int}, offset: 0}
      - {name: y, type: {kind: named, name: int}, offset: 4}
funcs:
  - name: Demo::Main
    ret: {kind: named, name: int}
    locals:
      - {kind: return, type: {kind: named, name: int}}
      - {name: p, kind: local, type: {kind: named, name: Demo::Point}}
    blocks:
      - id: 0
        stmts:
          - kind: assign
            assign:
              place: {local: 0}
              value:
                kind: use
                use:
                  kind: copy
                  place:
                    local: 1
                    proj: [{kind: field_named, name: y}]
        term: {kind: return}
`

func TestDecodeYAMLModule(t *testing.T) {
	m, err := Decode(strings.NewReader(sampleYAML), FormatYAML)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.Entry != "Demo::Main" || len(m.Funcs) != 1 || len(m.Layouts) != 1 {
		t.Fatalf("unexpected module shape: %+v", m)
	}
	fn := m.Funcs[0]
	if fn.Locals[0].Kind != LocalReturn {
		t.Fatalf("local 0 kind = %s", fn.Locals[0].Kind)
	}
	if fn.Locals[1].Type.Kind != types.KindNamed || fn.Locals[1].Type.Name != "Demo::Point" {
		t.Fatalf("local 1 type = %v", fn.Locals[1].Type)
	}
	stmt := fn.Blocks[0].Stmts[0]
	src := stmt.Assign.Value.Use.Place
	if src.Local != 1 || len(src.Proj) != 1 || src.Proj[0].Kind != ProjFieldNamed || src.Proj[0].Name != "y" {
		t.Fatalf("projection decoded wrong: %+v", src)
	}
	if fn.Blocks[0].Term.Kind != TermReturn {
		t.Fatalf("terminator = %s", fn.Blocks[0].Term.Kind)
	}
}

func TestDecodeYAMLRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader("name: x\nfunctions: []\n"), FormatYAML)
	if err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestMsgpackRoundTrip(t *testing.T) {
	m, err := Decode(strings.NewReader(sampleYAML), FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, m, FormatMsgpack); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := Decode(&buf, FormatMsgpack)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if back.Funcs[0].Name != "Demo::Main" || back.Layouts[0].Fields[1].Offset != 4 {
		t.Fatalf("round trip lost data: %+v", back)
	}
	if back.Funcs[0].Blocks[0].Stmts[0].Assign.Value.Use.Place.Proj[0].Name != "y" {
		t.Fatalf("round trip lost projection")
	}
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]Format{"a.yaml": FormatYAML, "b.YML": FormatYAML, "c.mpk": FormatMsgpack, "d.json": FormatJSON}
	for path, want := range cases {
		got, err := FormatFromPath(path)
		if err != nil || got != want {
			t.Errorf("FormatFromPath(%q) = %v, %v", path, got, err)
		}
	}
	if _, err := FormatFromPath("x.txt"); err == nil {
		t.Fatalf("expected error for .txt")
	}
}

func TestTerminatorSuccessors(t *testing.T) {
	unwind := BlockID(3)
	term := Terminator{Kind: TermCall, Call: CallTerm{Target: 2, Unwind: &unwind}}
	got := term.Successors()
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Fatalf("Successors = %v", got)
	}
}

func TestLocalIndexRejectsOverflow(t *testing.T) {
	id, err := LocalIndex(7)
	if err != nil || id != 7 {
		t.Fatalf("LocalIndex(7) = %d, %v", id, err)
	}
	if strconv.IntSize == 64 {
		past := math.MaxInt32
		past++
		if id, err := LocalIndex(past); err == nil || id != NoLocalID {
			t.Fatalf("LocalIndex(%d) = %d, %v", past, id, err)
		}
	}
	f := Func{Locals: []Local{{Kind: LocalArg}, {Kind: LocalReturn}}}
	if ret, err := f.ReturnLocal(); err != nil || ret != 1 {
		t.Fatalf("ReturnLocal = %d, %v", ret, err)
	}
	if ret, err := (&Func{}).ReturnLocal(); err != nil || ret != NoLocalID {
		t.Fatalf("ReturnLocal without slot = %d, %v", ret, err)
	}
}
