package driver

import (
	"encoding/json"
	"fmt"

	"github.com/Chic-lang/Chic-sub009/internal/diag"
	"github.com/Chic-lang/Chic-sub009/internal/observ"
)

type timingPayload struct {
	Path    string               `json:"path,omitempty"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// appendTimingDiagnostic records the phase report as an info diagnostic
// whose note carries the JSON payload. It always fits, even in a full bag.
func appendTimingDiagnostic(bag *diag.Bag, report observ.Report, path string) {
	if bag == nil {
		return
	}
	payload := timingPayload{Path: path, TotalMS: report.TotalMS, Phases: report.Phases}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	entry := diag.New(diag.SevInfo, diag.CGInfo, "", fmt.Sprintf("timings: total %.2f ms", report.TotalMS)).
		WithNote(string(data))
	if bag.Cap() <= 0 || bag.Len() < bag.Cap() {
		bag.Add(entry)
		return
	}
	overflow := diag.NewBag(1)
	overflow.Add(entry)
	bag.Merge(overflow)
}
