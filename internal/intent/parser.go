package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Parse failures are typed so the caller can distinguish "the model returned
// prose" from "the model returned JSON we refuse to trust". Either way the
// caller substitutes the safe fallback intent; it never guesses an action.
var (
	ErrNoStructuredOutput = errors.New("no structured output found in model response")
	ErrInvalidIntent      = errors.New("model response failed intent validation")
)

// parseStrategy is one way of locating a JSON document inside raw model
// output. Strategies are tried in order; the first one that yields
// syntactically valid JSON wins and later strategies are not consulted.
type parseStrategy struct {
	name    string
	extract func(raw string) (string, bool)
}

var (
	fencedJSONRe    = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	fencedGenericRe = regexp.MustCompile("(?s)```\\s*(.*?)```")
)

var parseStrategies = []parseStrategy{
	{
		name: "whole_text",
		extract: func(raw string) (string, bool) {
			trimmed := strings.TrimSpace(raw)
			if strings.HasPrefix(trimmed, "{") {
				return trimmed, true
			}
			return "", false
		},
	},
	{
		name: "fenced_json_block",
		extract: func(raw string) (string, bool) {
			if m := fencedJSONRe.FindStringSubmatch(raw); m != nil {
				return strings.TrimSpace(m[1]), true
			}
			return "", false
		},
	},
	{
		name: "fenced_generic_block",
		extract: func(raw string) (string, bool) {
			if m := fencedGenericRe.FindStringSubmatch(raw); m != nil {
				return strings.TrimSpace(m[1]), true
			}
			return "", false
		},
	},
}

// intentSchema enforces the structural contract: action from the closed
// enum, message present and non-empty. Everything else is tolerated and
// normalized in code (confidence clamping, confirmation default) because a
// sloppy-but-safe field should not discard an otherwise valid intent.
const intentSchemaJSON = `{
  "type": "object",
  "required": ["action", "message"],
  "properties": {
    "action": {
      "type": "string",
      "enum": [
        "order_cancellation", "status_check", "list_orders", "refund_status",
        "track_order", "track_specific_order", "cancel_orders",
        "confirm_cancellation", "cancel_abort", "general_inquiry",
        "clarification_needed", "error"
      ]
    },
    "message": {"type": "string", "minLength": 1}
  }
}`

var intentSchema = gojsonschema.NewStringLoader(intentSchemaJSON)

// rawIntent tolerates null, absent, and wrongly-typed optional fields.
type rawIntent struct {
	Action               string `json:"action"`
	OrderID              any    `json:"orderId"`
	ProductName          any    `json:"productName"`
	Confidence           any    `json:"confidence"`
	Message              string `json:"message"`
	RequiresConfirmation any    `json:"requiresConfirmation"`
}

// ParseIntent extracts and validates a StructuredIntent from raw model
// output. The first strategy producing syntactically valid JSON wins; schema
// or enum failures on that document are hard errors, not a reason to try the
// next strategy.
func ParseIntent(raw string) (*StructuredIntent, error) {
	candidate, strategyName, ok := extractJSON(raw)
	if !ok {
		return nil, ErrNoStructuredOutput
	}

	result, err := gojsonschema.Validate(intentSchema, gojsonschema.NewStringLoader(candidate))
	if err != nil {
		return nil, fmt.Errorf("%w: schema check via %s: %v", ErrInvalidIntent, strategyName, err)
	}
	if !result.Valid() {
		var reasons []string
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidIntent, strings.Join(reasons, "; "))
	}

	var parsed rawIntent
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidIntent, err)
	}

	action, err := ParseActionKind(parsed.Action)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}

	return &StructuredIntent{
		Action:               action,
		OrderID:              optionalString(parsed.OrderID),
		ProductName:          optionalString(parsed.ProductName),
		Confidence:           ClampConfidence(numberOrDefault(parsed.Confidence, 0.5)),
		Message:              parsed.Message,
		RequiresConfirmation: confirmationDefault(parsed.RequiresConfirmation),
	}, nil
}

func extractJSON(raw string) (candidate, strategy string, ok bool) {
	for _, s := range parseStrategies {
		doc, found := s.extract(raw)
		if !found {
			continue
		}
		if json.Valid([]byte(doc)) {
			return doc, s.name, true
		}
	}
	return "", "", false
}

func optionalString(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func numberOrDefault(v any, fallback float64) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return fallback
}

// confirmationDefault is conservative: confirmation is required unless the
// model explicitly said false.
func confirmationDefault(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}
