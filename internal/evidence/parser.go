package evidence

import (
	"regexp"
	"strconv"
	"strings"
)

// Outcome classifies a parse attempt over a transcript.
type Outcome int

const (
	// OutcomeAbsent means no marker of the expected shape was found.
	OutcomeAbsent Outcome = iota

	// OutcomeFound means the marker was found and parsed cleanly.
	OutcomeFound

	// OutcomeAmbiguous means a marker was found but its payload contradicts
	// its claim. Ambiguity is resolved pessimistically by callers.
	OutcomeAmbiguous
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeAmbiguous:
		return "ambiguous"
	default:
		return "absent"
	}
}

// BoolSignal is a parsed pass/fail style marker with optional free-text
// evidence.
type BoolSignal struct {
	Outcome  Outcome
	Value    bool
	Evidence string
}

// ReviewSignal is the parsed review report: claimed counts plus the
// itemized findings that could actually be extracted.
type ReviewSignal struct {
	Outcome       Outcome
	CriticalCount int
	AdvisoryCount int
	Critical      []string
	Advisory      []string
}

// Marker regexes. Workers emit one marker per line; matching is
// case-insensitive on the key and tolerant of surrounding prose.
var (
	testsPassedRe   = regexp.MustCompile(`(?im)^\s*TESTS_PASSED:\s*(true|false)\s*$`)
	testEvidenceRe  = regexp.MustCompile(`(?im)^\s*TEST_EVIDENCE:\s*(.+)$`)
	newTestsRe      = regexp.MustCompile(`(?im)^\s*NEW_TESTS_WRITTEN:\s*(true|false)\s*$`)
	newTestEvidRe   = regexp.MustCompile(`(?im)^\s*NEW_TEST_EVIDENCE:\s*(.+)$`)
	criticalCountRe = regexp.MustCompile(`(?im)^\s*CRITICAL_COUNT:\s*(\d+)\s*$`)
	advisoryCountRe = regexp.MustCompile(`(?im)^\s*ADVISORY_COUNT:\s*(\d+)\s*$`)
	criticalItemRe  = regexp.MustCompile(`(?im)^\s*CRITICAL:\s*(.+)$`)
	advisoryItemRe  = regexp.MustCompile(`(?im)^\s*ADVISORY:\s*(.+)$`)
	filesModifiedRe = regexp.MustCompile(`(?im)^\s*FILES_MODIFIED:\s*(.+)$`)
)

// ParseTestSignal extracts the test pass/fail marker and its evidence.
// When the same marker appears more than once, the last occurrence wins:
// a worker that re-ran its tests reports the final state last.
func ParseTestSignal(output string) BoolSignal {
	return parseBool(output, testsPassedRe, testEvidenceRe)
}

// ParseNewTestSignal extracts the new-test marker: whether the worker added
// new assertions rather than merely re-running pre-existing ones.
func ParseNewTestSignal(output string) BoolSignal {
	return parseBool(output, newTestsRe, newTestEvidRe)
}

func parseBool(output string, markerRe, evidenceRe *regexp.Regexp) BoolSignal {
	matches := markerRe.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return BoolSignal{Outcome: OutcomeAbsent}
	}
	last := matches[len(matches)-1]

	sig := BoolSignal{
		Outcome: OutcomeFound,
		Value:   strings.EqualFold(last[1], "true"),
	}
	if ev := evidenceRe.FindStringSubmatch(output); ev != nil {
		sig.Evidence = strings.TrimSpace(ev[1])
	}
	return sig
}

// ParseReviewSignal extracts the review report.
//
// The count markers are the structured contract: with no CRITICAL_COUNT
// marker at all the result is absent, regardless of any stray CRITICAL:
// lines, because counts are what distinguish a concluded review from
// incidental prose. A count claiming N>0 criticals with zero itemized
// findings is ambiguous; the caller synthesizes a blocking placeholder.
func ParseReviewSignal(output string) ReviewSignal {
	countMatch := criticalCountRe.FindStringSubmatch(output)
	if countMatch == nil {
		return ReviewSignal{Outcome: OutcomeAbsent}
	}

	sig := ReviewSignal{Outcome: OutcomeFound}
	sig.CriticalCount, _ = strconv.Atoi(countMatch[1])
	if adv := advisoryCountRe.FindStringSubmatch(output); adv != nil {
		sig.AdvisoryCount, _ = strconv.Atoi(adv[1])
	}

	for _, m := range criticalItemRe.FindAllStringSubmatch(output, -1) {
		sig.Critical = append(sig.Critical, strings.TrimSpace(m[1]))
	}
	for _, m := range advisoryItemRe.FindAllStringSubmatch(output, -1) {
		sig.Advisory = append(sig.Advisory, strings.TrimSpace(m[1]))
	}

	if sig.CriticalCount > 0 && len(sig.Critical) == 0 {
		sig.Outcome = OutcomeAmbiguous
	}
	return sig
}

// ParseFilesModified extracts the comma-separated list of paths the worker
// reported touching, if any.
func ParseFilesModified(output string) []string {
	m := filesModifiedRe.FindStringSubmatch(output)
	if m == nil {
		return nil
	}
	var files []string
	for _, f := range strings.Split(m[1], ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}

// HasAnySignal reports whether the transcript contains any parseable marker
// at all, including failure markers. A completion with zero signals from an
// implementation-class worker is the crash-detection trigger.
func HasAnySignal(output string) bool {
	return testsPassedRe.MatchString(output) ||
		newTestsRe.MatchString(output) ||
		criticalCountRe.MatchString(output) ||
		advisoryCountRe.MatchString(output) ||
		filesModifiedRe.MatchString(output)
}
