package observ

import (
	"strings"
	"testing"
	"time"

	"github.com/Chic-lang/Chic-sub009/internal/trace"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	start := time.Now()
	tm.Record("layouts", start, 2*time.Millisecond, "ok")
	tm.Record("signatures", start, 3*time.Millisecond, "")
	r := tm.Report()
	if len(r.Phases) != 2 || r.TotalMS != 5 {
		t.Fatalf("report = %+v", r)
	}
	lines := strings.Split(strings.TrimSpace(tm.Summary()), "\n")
	want := [][]string{
		{"timings:"},
		{"layouts", "2.00", "ms", "//", "ok"},
		{"signatures", "3.00", "ms"},
		{"total", "5.00", "ms"},
	}
	if len(lines) != len(want) {
		t.Fatalf("summary has %d lines:\n%s", len(lines), tm.Summary())
	}
	for i, line := range lines {
		if got := strings.Fields(line); strings.Join(got, " ") != strings.Join(want[i], " ") {
			t.Errorf("line %d = %q", i, line)
		}
	}
	// the duration column is aligned
	if strings.Index(lines[1], "2.00") != strings.Index(lines[3], "5.00") {
		t.Errorf("columns not aligned:\n%s", tm.Summary())
	}
}

func TestTimerEndOutOfRange(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("decode")
	tm.End(idx+5, "ignored")
	tm.End(idx, "done")
	if r := tm.Report(); r.Phases[0].Note != "done" {
		t.Errorf("note = %q", r.Phases[0].Note)
	}
}

func TestCollectorRecordsPhaseSpans(t *testing.T) {
	tm := NewTimer()
	c := NewPhaseCollector(tm)
	sp := trace.Begin(c, trace.ScopePhase, "vtables", 0)
	fn := trace.Begin(c, trace.ScopeFunction, "Demo::Main", sp.ID())
	fn.End("ok")
	sp.End("ok")
	r := tm.Report()
	if len(r.Phases) != 1 || r.Phases[0].Name != "vtables" || r.Phases[0].Note != "ok" {
		t.Errorf("phases = %+v", r.Phases)
	}
}
