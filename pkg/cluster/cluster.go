package cluster

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/result"
)

// FallbackLabel is the cluster label for failures with no extractable
// error signature. Such failures are never dropped; they form their
// own cluster.
const FallbackLabel = "Unclassified failure"

// Cluster groups failed tests sharing a normalized error signature.
type Cluster struct {
	ID        string               `json:"id"`
	Label     string               `json:"label"`
	Signature string               `json:"signature"`
	Tests     []*result.TestResult `json:"tests"`
	Count     int                  `json:"count"`
}

var (
	// errorTypeRe captures a leading error-type token such as
	// "TimeoutError:" or "Error:".
	errorTypeRe = regexp.MustCompile(`^\s*((?:[A-Z][a-z]*)*(?:Error|Exception))\b`)

	// Volatile substrings replaced during normalization.
	hexIDRe      = regexp.MustCompile(`\b[0-9a-fA-F]{8,}\b`)
	numberRe     = regexp.MustCompile(`\b\d+(?:\.\d+)?(?:ms|s|px)?\b`)
	quotedRe     = regexp.MustCompile(`"[^"]*"|'[^']*'`)
	selectorRe   = regexp.MustCompile("`[^`]*`")
	whiteSpaceRe = regexp.MustCompile(`\s+`)
)

// Build partitions the given failed tests into clusters by error
// signature, ordered by member count descending. Ties keep
// first-occurrence order. Every failed test lands in exactly one
// cluster.
func Build(failed []*result.TestResult) []Cluster {
	type bucket struct {
		label string
		sig   string
		tests []*result.TestResult
		first int
	}

	buckets := make(map[string]*bucket)
	order := make([]string, 0, len(failed))

	for i, r := range failed {
		if r == nil || !r.DidFail() {
			continue
		}

		label, sig := Signature(r)

		b, ok := buckets[sig]
		if !ok {
			b = &bucket{label: label, sig: sig, first: i}
			buckets[sig] = b
			order = append(order, sig)
		}

		b.tests = append(b.tests, r)
	}

	clusters := make([]Cluster, 0, len(buckets))

	for _, sig := range order {
		b := buckets[sig]
		clusters = append(clusters, Cluster{
			Label:     b.label,
			Signature: b.sig,
			Tests:     b.tests,
			Count:     len(b.tests),
		})
	}

	// Largest clusters first; SliceStable keeps first-occurrence order
	// for equal sizes.
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Count > clusters[j].Count
	})

	for i := range clusters {
		clusters[i].ID = fmt.Sprintf("cluster-%d", i+1)
	}

	return clusters
}

// Signature derives the cluster label and normalized signature for a
// failing test. A timed-out test without error text is classified as a
// timeout; other failures without error text fall back to the generic
// label.
func Signature(r *result.TestResult) (label, sig string) {
	errText := strings.TrimSpace(r.Error)
	if errText == "" {
		if r.Status == result.StatusTimedOut {
			return "TimeoutError", "TimeoutError"
		}

		return FallbackLabel, "unclassified"
	}

	// Only the first line carries the error shape; stack frames vary
	// per test.
	firstLine := errText
	if idx := strings.IndexByte(errText, '\n'); idx >= 0 {
		firstLine = errText[:idx]
	}

	label = FallbackLabel
	if m := errorTypeRe.FindStringSubmatch(firstLine); m != nil {
		label = m[1]
	} else if r.Status == result.StatusTimedOut {
		label = "TimeoutError"
	}

	sig = normalize(firstLine)
	if sig == "" {
		sig = "unclassified"
	}

	if label != FallbackLabel {
		sig = label + ": " + sig
	}

	return label, sig
}

// normalize strips volatile substrings so unrelated-looking failures
// with the same structural shape collapse into one signature.
func normalize(line string) string {
	line = errorTypeRe.ReplaceAllString(line, "")
	line = strings.TrimPrefix(strings.TrimSpace(line), ":")
	line = quotedRe.ReplaceAllString(line, "<str>")
	line = selectorRe.ReplaceAllString(line, "<sel>")
	line = hexIDRe.ReplaceAllString(line, "<id>")
	line = numberRe.ReplaceAllString(line, "<n>")
	line = whiteSpaceRe.ReplaceAllString(line, " ")

	return strings.TrimSpace(line)
}
