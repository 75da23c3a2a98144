package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/Chic-lang/Chic-sub009/internal/driver"
)

func TestTableAlignsByDisplayWidth(t *testing.T) {
	tbl := sigsTable([]driver.SignatureRow{
		{Name: "Demo::Größe", Symbol: "Demo__Gru00F6u00DFe", Decl: "declare i32 @Demo__Gru00F6u00DFe()"},
		{Name: "Demo::Main", Symbol: "__chic_program_main", Decl: "declare void @__chic_program_main()"},
		{Name: "Demo::Bad", Error: "CG4001: unknown type"},
	})
	var buf bytes.Buffer
	if err := tbl.write(&buf, false); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	col := func(line, cell string) int {
		return runewidth.StringWidth(line[:strings.Index(line, cell)])
	}
	want := col(lines[0], "SIGNATURE")
	if got := col(lines[1], "i32 @"); got != want {
		t.Errorf("row 1 signature at %d, header at %d:\n%s", got, want, buf.String())
	}
	if got := col(lines[2], "void @"); got != want {
		t.Errorf("row 2 signature at %d, header at %d", got, want)
	}
	if !strings.Contains(lines[3], "CG4001: unknown type") {
		t.Errorf("error row = %q", lines[3])
	}
}

func TestTypesTable(t *testing.T) {
	tbl := typesTable([]driver.TypeRow{{Name: "Demo::Point", Kind: "struct", Size: 8, Align: 4, Repr: "{ i32, i32 }"}})
	var buf bytes.Buffer
	if err := tbl.write(&buf, false); err != nil {
		t.Fatal(err)
	}
	if got := strings.Fields(strings.Split(buf.String(), "\n")[1]); strings.Join(got, " ") != "Demo::Point struct 8 4 { i32, i32 }" {
		t.Errorf("row = %q", got)
	}
}

func TestApplyOverridesOnlyChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.Flags().String("target-arch", "", "")
	cmd.Flags().String("target-os", "", "")
	cmd.Flags().String("trace-level", "", "")
	cmd.Flags().Int("jobs", 0, "")
	if err := cmd.ParseFlags([]string{"--target-arch", "aarch64", "--jobs", "3"}); err != nil {
		t.Fatal(err)
	}
	cfg := driver.DefaultConfig()
	cfg.Target.OS = "macos"
	if err := applyOverrides(cmd, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Target.Arch != "aarch64" || cfg.Target.OS != "macos" || cfg.Emit.Jobs != 3 || cfg.Trace.Level != "off" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestColorEnabled(t *testing.T) {
	for mode, want := range map[string]bool{"on": true, "off": false, "never": false} {
		got, err := colorEnabled(mode)
		if err != nil || got != want {
			t.Errorf("colorEnabled(%q) = %v, %v", mode, got, err)
		}
	}
	if _, err := colorEnabled("sometimes"); err == nil {
		t.Error("invalid mode accepted")
	}
}
