package driver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Chic-lang/Chic-sub009/internal/diag"
	"github.com/Chic-lang/Chic-sub009/internal/observ"
)

const moduleYAML = `
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

const brokenFunc = `
  - name: Demo::Bad
    ret: {kind: named, name: int}
    locals:
      - {kind: return, type: {kind: named, name: int}}
      - {name: w, kind: local, type: {kind: named, name: Demo::Widget}}
    blocks:
      - id: 0
        term: {kind: return}
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadInputs(t *testing.T, module, config string) *Inputs {
	t.Helper()
	dir := t.TempDir()
	mod := writeFile(t, dir, "demo.mir.yaml", module)
	cfg := writeFile(t, dir, ConfigFile, config)
	in, err := LoadInputs(context.Background(), mod, cfg)
	if err != nil {
		t.Fatalf("LoadInputs: %v", err)
	}
	return in
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ConfigFile, "[target]\narch = \"aarch64\"\n[emit]\njobs = 4\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Target.Arch != "aarch64" || cfg.Target.OS != "linux" || cfg.Emit.Jobs != 4 {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.Emit.ErasePlaceholders || cfg.Trace.Level != "off" {
		t.Errorf("defaults lost: %+v", cfg)
	}
	target, err := cfg.TargetDesc()
	if err != nil || target.Triple() != "aarch64-unknown-linux-gnu" {
		t.Errorf("target = %v, %v", target.Triple(), err)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"unknown key": "[emit]\nthreads = 2\n",
		"negative":    "[emit]\njobs = -1\n",
		"syntax":      "[emit\n",
	}
	for name, body := range cases {
		path := writeFile(t, dir, name+".toml", body)
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
	if _, err := LoadConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("explicit missing config should fail")
	}
}

func TestFindConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	want := writeFile(t, root, ConfigFile, "")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	got, ok, err := FindConfig(nested)
	if err != nil || !ok || got != want {
		t.Errorf("FindConfig = %q, %v, %v", got, ok, err)
	}
}

func TestLoadInputsClassifiesFailures(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, ConfigFile, "")
	cases := []struct {
		path string
		code diag.Code
	}{
		{filepath.Join(dir, "absent.yaml"), diag.IOReadFailed},
		{writeFile(t, dir, "bad.yaml", "name: x\nfunctions: []\n"), diag.IODecodeFailed},
		{writeFile(t, dir, "demo.txt", "name: x\n"), diag.IODecodeFailed},
	}
	for _, tc := range cases {
		_, err := LoadInputs(context.Background(), tc.path, cfg)
		var inErr *InputError
		if !errors.As(err, &inErr) {
			t.Errorf("%s: error %v is not an input error", tc.path, err)
			continue
		}
		if inErr.Code != tc.code {
			t.Errorf("%s: code %s, want %s", tc.path, inErr.Code.ID(), tc.code.ID())
		}
		if d := ErrorDiagnostic(err); d.Code != tc.code || d.Severity != diag.SevError {
			t.Errorf("%s: diagnostic %v", tc.path, d)
		}
	}
}

func TestCompileEmitsModule(t *testing.T) {
	in := loadInputs(t, moduleYAML, "[emit]\nmodule_name = \"app\"\n")
	res, err := Compile(context.Background(), in, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK() {
		t.Fatalf("diagnostics: %v", res.Bag.Items())
	}
	for _, want := range []string{
		"; ModuleID = 'app'",
		`target triple = "x86_64-unknown-linux-gnu"`,
		"define i32 @__chic_program_main() {",
	} {
		if !strings.Contains(res.Output.Text, want) {
			t.Errorf("missing %q in:\n%s", want, res.Output.Text)
		}
	}
}

func TestCompileReportsFunctionFailures(t *testing.T) {
	in := loadInputs(t, moduleYAML+brokenFunc, "")
	res, err := Compile(context.Background(), in, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.OK() || res.Bag.Len() != 1 {
		t.Fatalf("expected one diagnostic, got %v", res.Bag.Items())
	}
	d := res.Bag.Items()[0]
	if d.Code != diag.CGUnknownType || d.Func != "Demo::Bad" {
		t.Errorf("diagnostic = %v", d)
	}
	if !strings.Contains(res.Output.Text, "@__chic_program_main") {
		t.Error("healthy function was not emitted")
	}
	if strings.Contains(res.Output.Text, "Demo__Bad") {
		t.Error("failed function left partial IR")
	}
}

func TestCompileUnknownTarget(t *testing.T) {
	in := loadInputs(t, moduleYAML, "[target]\narch = \"riscv64\"\n")
	res, err := Compile(context.Background(), in, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Output != nil || res.Bag.Len() != 1 || res.Bag.Items()[0].Code != diag.LayUnknownTarget {
		t.Errorf("result = %+v", res.Bag.Items())
	}
}

func TestCompileTimings(t *testing.T) {
	in := loadInputs(t, moduleYAML, "")
	timer := observ.NewTimer()
	res, err := Compile(context.Background(), in, Options{Timer: timer, MaxDiagnostics: 1})
	if err != nil {
		t.Fatal(err)
	}
	names := make(map[string]bool)
	for _, p := range timer.Report().Phases {
		names[p.Name] = true
	}
	for _, want := range []string{"layouts", "signatures", "vtables", "strings", "assemble"} {
		if !names[want] {
			t.Errorf("phase %q not timed: %v", want, names)
		}
	}
	items := res.Bag.Items()
	if len(items) != 1 || items[0].Severity != diag.SevInfo || !strings.Contains(items[0].Notes[0].Msg, `"phases"`) {
		t.Errorf("timing diagnostic = %+v", items)
	}
}

func TestInspectTables(t *testing.T) {
	in := loadInputs(t, moduleYAML+brokenFunc, "")
	sigs, err := Signatures(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(sigs) != 2 || sigs[0].Name != "Demo::Bad" || sigs[1].Symbol != "__chic_program_main" {
		t.Fatalf("rows = %+v", sigs)
	}
	if sigs[1].Decl != "declare i32 @__chic_program_main()" {
		t.Errorf("decl = %q", sigs[1].Decl)
	}
	var buf bytes.Buffer
	if err := WriteMsgpack(&buf, sigs); err != nil {
		t.Fatal(err)
	}
	var back []SignatureRow
	if err := msgpack.Unmarshal(buf.Bytes(), &back); err != nil || len(back) != 2 {
		t.Fatalf("msgpack dump unreadable: %v", err)
	}

	rows, err := Types(in)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, r := range rows {
		if r.Name == "Demo::Point" {
			found = true
			if r.Repr != "{ i32, i32 }" || r.Size != 8 || r.Kind != "struct" {
				t.Errorf("Demo::Point row = %+v", r)
			}
		}
	}
	if !found {
		t.Errorf("Demo::Point missing from %+v", rows)
	}
}
