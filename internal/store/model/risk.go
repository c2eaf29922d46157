package model

import "strings"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// NormalizeSeverity lower-cases and trims s. It does not check that the result is a known level.
func NormalizeSeverity(s string) Severity {
	return Severity(strings.ToLower(strings.TrimSpace(s)))
}

func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Risk is one categorized finding of the risk analysis. It only exists inside a job result.
type Risk struct {
	Category string `json:"category"`
	Severity string `json:"severity"`
	Reason   string `json:"reason"`
}

type RiskList []Risk

// HasSeverity reports whether any risk carries severity s after normalization.
func (l RiskList) HasSeverity(s Severity) bool {
	for _, r := range l {
		if NormalizeSeverity(r.Severity) == s {
			return true
		}
	}
	return false
}
