package diag

// FixKind tags an issue with the automated correction that can address it.
type FixKind uint8

const (
	FixNone FixKind = iota
	FixRegenerateKey
	FixCleanKey
	FixNormalizeMonth
	FixNormalizePages
	FixUnescapeHTML
	FixNormalizeNFC
	FixNormalizeNames
	FixEscapeAmpersand
)

var fixKindNames = [...]string{
	FixNone:            "none",
	FixRegenerateKey:   "regenerate-key",
	FixCleanKey:        "clean-key",
	FixNormalizeMonth:  "normalize-month",
	FixNormalizePages:  "normalize-pages",
	FixUnescapeHTML:    "unescape-html",
	FixNormalizeNFC:    "normalize-nfc",
	FixNormalizeNames:  "normalize-names",
	FixEscapeAmpersand: "escape-ampersand",
}

func (k FixKind) String() string {
	if int(k) < len(fixKindNames) {
		return fixKindNames[k]
	}
	return "unknown"
}

// FixApplicability indicates how confident an automated fix is.
type FixApplicability uint8

const (
	FixApplicabilityAlwaysSafe FixApplicability = iota
	FixApplicabilitySafeWithHeuristics
	FixApplicabilityManualReview
)

func (a FixApplicability) String() string {
	switch a {
	case FixApplicabilityAlwaysSafe:
		return "always-safe"
	case FixApplicabilitySafeWithHeuristics:
		return "safe-with-heuristics"
	case FixApplicabilityManualReview:
		return "manual-review"
	default:
		return "unknown"
	}
}

// Applicability returns the confidence of kind.
func (k FixKind) Applicability() FixApplicability {
	switch k {
	case FixNormalizeMonth, FixNormalizePages, FixNormalizeNFC, FixCleanKey:
		return FixApplicabilityAlwaysSafe
	case FixUnescapeHTML, FixEscapeAmpersand, FixRegenerateKey:
		return FixApplicabilitySafeWithHeuristics
	default:
		return FixApplicabilityManualReview
	}
}
