// Package sanitize is the first stage of the trust pipeline: it strips or
// flags prompt-injection patterns in free-text messages, computes a bounded
// risk score, and extracts candidate order references. It never fails;
// malformed input degrades to an empty sanitized text plus a warning.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultMaxLength bounds general inputs; PromptContextMaxLength bounds
	// text embedded into the model prompt context.
	DefaultMaxLength       = 2000
	PromptContextMaxLength = 500

	// DefaultBlockThreshold is the risk score at or above which callers
	// reject the message before any model call.
	DefaultBlockThreshold = 70

	// FilterMarker replaces suspicious spans in the sanitized text.
	FilterMarker = "[FILTERED]"
)

// Result is the outcome of one sanitization pass. Derived per call, never
// persisted. RiskScore grows monotonically with warning and pattern-match
// counts and never exceeds 100.
type Result struct {
	SanitizedText string
	Warnings      []string
	RiskScore     int
}

// suspiciousPatterns are filtered out of the text. Each match is replaced
// with FilterMarker and recorded as a warning.
var suspiciousPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"instruction_override", regexp.MustCompile(`(?i)\b(?:ignore|disregard|forget)\s+(?:all\s+)?(?:previous|prior|above|earlier)\s+(?:instructions?|prompts?|rules|directives)\b`)},
	{"role_injection", regexp.MustCompile(`(?i)\byou\s+are\s+now\s+(?:a|an|the)\b`)},
	{"role_injection", regexp.MustCompile(`(?i)\bact\s+as\s+(?:a|an|the)\b`)},
	{"role_injection", regexp.MustCompile(`(?i)\b(?:system|assistant|developer)\s*:\s*`)},
	{"template_injection", regexp.MustCompile(`\{\{[^}]*\}\}`)},
	{"variable_injection", regexp.MustCompile(`\$\{[^}]*\}`)},
	{"script_injection", regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)},
	{"script_injection", regexp.MustCompile(`(?i)javascript\s*:`)},
	{"event_handler_injection", regexp.MustCompile(`(?i)\bon(?:click|load|error|mouseover|focus|submit)\s*=`)},
}

// injectionKeywords are flagged, not filtered: a hit records a warning but
// leaves the text intact so the synthesizer still sees the user's words.
var injectionKeywords = []string{
	"jailbreak",
	"system prompt",
	"developer mode",
	"pretend you",
	"reveal your instructions",
	"bypass safety",
	"override instructions",
	"do anything now",
}

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	spaceRunRe   = regexp.MustCompile(`[ \t]{2,}`)
	newlineRunRe = regexp.MustCompile(`\n{3,}`)
	trailingWSRe = regexp.MustCompile(`[ \t]+\n`)
)

// Sanitize cleans raw input and scores its risk. maxLength <= 0 uses
// DefaultMaxLength. The length-based component of the risk score is computed
// on the pre-truncation length so oversized payloads stay visible in the
// score after truncation.
func Sanitize(raw string, maxLength int) Result {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	if strings.TrimSpace(raw) == "" {
		return Result{
			SanitizedText: "",
			Warnings:      []string{"invalid input: empty message"},
			RiskScore:     clampRisk(15),
		}
	}

	var warnings []string
	originalLen := len(raw)
	text := raw

	if len(text) > maxLength {
		text = text[:maxLength]
		warnings = append(warnings, fmt.Sprintf("input truncated to %d characters", maxLength))
	}

	patternMatches := 0
	for _, p := range suspiciousPatterns {
		matches := p.re.FindAllString(text, -1)
		if len(matches) == 0 {
			continue
		}
		text = p.re.ReplaceAllString(text, FilterMarker)
		patternMatches += len(matches)
		for range matches {
			warnings = append(warnings, "suspicious pattern filtered: "+p.name)
		}
	}

	keywordHits := 0
	var found []string
	lower := strings.ToLower(text)
	for _, kw := range injectionKeywords {
		if strings.Contains(lower, kw) {
			keywordHits++
			found = append(found, kw)
		}
	}
	if keywordHits > 0 {
		warnings = append(warnings, "injection keywords detected: "+strings.Join(found, ", "))
	}

	text = normalizeWhitespace(stripHTML(text))

	risk := lengthRisk(originalLen) +
		15*len(warnings) +
		25*patternMatches +
		min(30, 10*keywordHits)

	return Result{
		SanitizedText: text,
		Warnings:      warnings,
		RiskScore:     clampRisk(risk),
	}
}

// ShouldBlock is the caller-level decision to reject input outright.
// threshold <= 0 uses DefaultBlockThreshold.
func ShouldBlock(riskScore, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultBlockThreshold
	}
	return riskScore >= threshold
}

func lengthRisk(n int) int {
	switch {
	case n > 2000:
		return 30
	case n > 1000:
		return 10
	default:
		return 0
	}
}

func stripHTML(s string) string {
	return htmlTagRe.ReplaceAllString(s, "")
}

func normalizeWhitespace(s string) string {
	s = trailingWSRe.ReplaceAllString(s, "\n")
	s = newlineRunRe.ReplaceAllString(s, "\n\n")
	s = spaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func clampRisk(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
