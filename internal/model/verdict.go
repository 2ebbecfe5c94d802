package model

import (
	"fmt"
	"strings"
)

// Verdict is the three-valued classifier outcome for one (statement, fragment) pair
type Verdict string

const (
	VerdictTrue    Verdict = "true"    // Fragment explicitly confirms the statement
	VerdictFalse   Verdict = "false"   // Fragment explicitly contradicts the statement
	VerdictUnclear Verdict = "unclear" // No relevant information; absence is never contradiction
)

// ParseVerdict validates an oracle-supplied verdict string. Out-of-vocabulary
// values are a protocol violation and return an error.
func ParseVerdict(s string) (Verdict, error) {
	switch Verdict(strings.ToLower(strings.TrimSpace(s))) {
	case VerdictTrue:
		return VerdictTrue, nil
	case VerdictFalse:
		return VerdictFalse, nil
	case VerdictUnclear:
		return VerdictUnclear, nil
	default:
		return "", fmt.Errorf("invalid verdict %q (expected true, false or unclear)", s)
	}
}

// Judgment pairs a verdict with its provenance: which candidate it concerns,
// which fragment produced it, and the oracle's justification.
type Judgment struct {
	Letter        string  `json:"letter"`
	SourceURL     string  `json:"source_url"`
	Verdict       Verdict `json:"verdict"`
	Justification string  `json:"justification"`
}
