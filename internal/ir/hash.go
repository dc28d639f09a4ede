package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainSummary is the domain prefix for run summary digests.
// The version suffix allows a future change of encoding.
const DomainSummary = "fixrun/summary/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalSummary returns the canonical JSON encoding of a summary.
// The RunID is excluded: two runs over identical fixtures encode identically.
func CanonicalSummary(s *RunSummary) ([]byte, error) {
	data, err := MarshalCanonical(SummaryMap(s))
	if err != nil {
		return nil, fmt.Errorf("CanonicalSummary: failed to marshal: %w", err)
	}
	return data, nil
}

// SummaryDigest computes a content digest of a summary.
func SummaryDigest(s *RunSummary) (string, error) {
	data, err := CanonicalSummary(s)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainSummary, data), nil
}

// SummaryMap converts a summary to the generic form MarshalCanonical accepts.
func SummaryMap(s *RunSummary) map[string]any {
	fixtures := make([]any, len(s.Fixtures))
	for i := range s.Fixtures {
		fixtures[i] = ReportMap(&s.Fixtures[i])
	}
	return map[string]any{
		"total":    s.Total,
		"passed":   s.Passed,
		"failed":   s.Failed,
		"complete": s.Complete,
		"fixtures": fixtures,
	}
}

// ReportMap converts a fixture report to the generic canonical form.
func ReportMap(r *FixtureReport) map[string]any {
	assertions := make([]any, len(r.Assertions))
	for i, a := range r.Assertions {
		assertions[i] = AssertionMap(a)
	}
	return map[string]any{
		"fixture_id": r.FixtureID,
		"sealed":     r.Sealed,
		"assertions": assertions,
	}
}

// AssertionMap converts an assertion result to the generic canonical form.
func AssertionMap(a AssertionResult) map[string]any {
	m := map[string]any{
		"fixture_id": a.FixtureID,
		"name":       a.Name,
		"passed":     a.Passed,
	}
	if a.Message != "" {
		m["message"] = a.Message
	}
	if a.Synthetic {
		m["synthetic"] = true
	}
	return m
}
