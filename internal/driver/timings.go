package driver

import (
	"encoding/json"
	"fmt"

	"memlint/internal/diag"
	"memlint/internal/observ"
)

type timingPayload struct {
	Path    string               `json:"path,omitempty"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// appendTimingFinding attaches an informational per-file timing entry.
// The machine-readable payload rides in a note, so --format=json can
// carry it without a dedicated field.
func appendTimingFinding(bag *diag.Bag, path string, report observ.Report) {
	if bag == nil {
		return
	}
	payload := timingPayload{
		Path:    path,
		TotalMS: report.TotalMS,
		Phases:  report.Phases,
	}

	msg := fmt.Sprintf("timings: total %.2f ms", payload.TotalMS)
	if path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, path)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	entry := diag.Finding{
		Severity: diag.SevInfo,
		Code:     diag.ObsTimings,
		Message:  msg,
		Notes: []diag.Note{
			{Msg: string(data)},
		},
	}

	if bag.Add(entry) {
		return
	}
	overflow := diag.NewBag(bag.Len() + 1)
	overflow.Add(entry)
	bag.Merge(overflow)
}
