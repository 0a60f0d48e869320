package sanitize

import (
	"regexp"
	"strings"
)

// MaxOrderRefs caps how many distinct order references one message may carry.
// More than that reads as ambiguous, not as a batch request.
const MaxOrderRefs = 3

// ExtractResult holds candidate order references found in sanitized text.
// IsValid is false when zero or more than MaxOrderRefs distinct references
// were found, signalling an ambiguous message.
type ExtractResult struct {
	OrderIDs []string
	IsValid  bool
}

// referencePatterns are tried in order. Patterns with a capture group
// contribute the group; the others contribute the whole match.
var referencePatterns = []*regexp.Regexp{
	// Prefixed alphanumeric-dash codes: ORD-2024-001, AB-12345
	regexp.MustCompile(`\b[A-Za-z]{2,5}-[A-Za-z0-9]{2,12}(?:-[A-Za-z0-9]{2,12}){0,2}\b`),
	// Prefix immediately followed by digits: ORD123456, PO20240001
	regexp.MustCompile(`(?i)\b(?:ORD|ORDER|ODR|PO|INV|TRK)\d{4,12}\b`),
	// Hash-prefixed codes: #A1B2-C3
	regexp.MustCompile(`#([A-Za-z0-9][A-Za-z0-9-]{3,19})\b`),
	// "order <code>" phrasing
	regexp.MustCompile(`(?i)\border\s+(?:number\s+|id\s+|#\s*)?([A-Za-z0-9][A-Za-z0-9-]{3,19})\b`),
	// Bare 5-10 digit numbers
	regexp.MustCompile(`\b\d{5,10}\b`),
}

// commonWords are frequent English tokens the looser patterns can pick up.
// Everything here is compared uppercase.
var commonWords = map[string]bool{
	"ORDER": true, "NUMBER": true, "CANCEL": true, "STATUS": true,
	"TRACK": true, "REFUND": true, "PLEASE": true, "WHERE": true,
	"ABOUT": true, "TODAY": true, "THANKS": true, "HELLO": true,
}

// ExtractOrderIDs scans sanitized text for order-reference tokens, uppercases
// and deduplicates them, and drops tokens that are common words, too short,
// too long, or digit-free.
func ExtractOrderIDs(text string) ExtractResult {
	seen := make(map[string]bool)
	var ids []string

	for _, re := range referencePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			candidate := m[0]
			if len(m) > 1 && m[1] != "" {
				candidate = m[1]
			}
			id := strings.ToUpper(strings.TrimSpace(candidate))
			if !plausibleOrderRef(id) || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		return ExtractResult{OrderIDs: []string{}, IsValid: false}
	}
	if len(ids) > MaxOrderRefs {
		return ExtractResult{OrderIDs: ids[:MaxOrderRefs], IsValid: false}
	}
	return ExtractResult{OrderIDs: ids, IsValid: true}
}

func plausibleOrderRef(id string) bool {
	if len(id) < 4 || len(id) > 20 {
		return false
	}
	if commonWords[id] {
		return false
	}
	// A reference without a single digit is almost always prose.
	return strings.ContainsAny(id, "0123456789")
}
