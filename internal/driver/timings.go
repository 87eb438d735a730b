package driver

import (
	"fmt"
	"strings"

	"bibcheck/internal/diag"
	"bibcheck/internal/observ"
)

// appendTimingDiagnostic adds an ObsTimings message summarising report.
// It is kept even when the bag is full.
func appendTimingDiagnostic(bag *diag.Bag, path string, report observ.Report) {
	if bag == nil {
		return
	}
	parts := make([]string, 0, len(report.Phases))
	for _, p := range report.Phases {
		parts = append(parts, fmt.Sprintf("%s %.2f ms", p.Name, p.DurationMS))
	}
	detail := fmt.Sprintf("total %.2f ms", report.TotalMS)
	if len(parts) > 0 {
		detail += " (" + strings.Join(parts, ", ") + ")"
	}
	if path != "" {
		detail = path + ": " + detail
	}

	msg := diag.NewGlobal(diag.ObsTimings, detail)
	if bag.Add(msg) {
		return
	}
	overflow := diag.NewBag(1)
	overflow.Add(msg)
	bag.Merge(overflow)
}
