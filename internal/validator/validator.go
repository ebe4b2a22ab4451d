// Package validator screens interviewer responses before they reach the
// candidate. It rejects scripted answer coaching, immigration or legal
// advice, and fabricated concrete facts. All checks are rule based.
package validator

import (
	"regexp"
	"strings"
)

// Result describes the outcome of validating one response.
type Result struct {
	Valid           bool   `json:"valid"`
	Reason          string `json:"reason,omitempty"`
	BlockedCategory string `json:"blocked_category,omitempty"`
}

// rules pairs each blocked category with its detection patterns and the
// reason reported when a pattern matches. Categories are checked in order.
var rules = []struct {
	category string
	reason   string
	patterns []*regexp.Regexp
}{
	{
		category: "scripted_answer",
		reason:   "Response contains scripted answer coaching",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?:you\s+should\s+say|say\s+(?:this|exactly)|tell\s+(?:them|the\s+officer))\s+["']`),
			regexp.MustCompile(`here'?s?\s+(?:a\s+)?(?:the\s+)?(?:perfect|ideal|best|model)\s+answer`),
			regexp.MustCompile(`memorize|repeat\s+after\s+me|copy\s+this`),
			regexp.MustCompile(`the\s+(?:correct|right|perfect)\s+answer\s+is`),
			regexp.MustCompile(`(?:just\s+say|simply\s+say|you\s+can\s+say)\s*:\s*["']`),
		},
	},
	{
		category: "legal_advice",
		reason:   "Response contains immigration or legal advice",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`you\s+(?:should|can|could)\s+(?:apply\s+for|get|obtain)\s+(?:a\s+)?(?:green\s+card|permanent\s+residenc|citizenship|pr\b|work\s+permit)`),
			regexp.MustCompile(`(?:legal(?:ly)?|law)\s+(?:you\s+)?(?:can|should|are\s+(?:allowed|entitled))`),
			regexp.MustCompile(`hire\s+(?:a\s+|an\s+)?(?:lawyer|attorney|immigration\s+consultant)`),
			regexp.MustCompile(`(?:immigration|visa)\s+(?:law|regulation|rule)\s+(?:says|states|allows|permits)`),
			regexp.MustCompile(`under\s+(?:section|title|act|ina)\s+\d`),
			regexp.MustCompile(`i\s+(?:guarantee|promise|assure)\s+(?:you(?:'ll)?|that)\s+(?:your\s+)?visa\s+(?:will|would)\s+be\s+(?:approved|granted)`),
		},
	},
	{
		category: "hallucination",
		reason:   "Response contains potentially fabricated specific facts",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`the\s+(?:visa\s+)?(?:fee|cost)\s+is\s+(?:exactly\s+)?\$?\d{1,3}(?:,\d{3})*`),
			regexp.MustCompile(`(?:processing|wait)\s+time\s+is\s+(?:exactly\s+)?\d+\s+(?:days|weeks|months)`),
			regexp.MustCompile(`(?:the\s+)?(?:success|approval|acceptance)\s+rate\s+is\s+\d+%`),
			regexp.MustCompile(`according\s+to\s+(?:my|our)\s+(?:data|records|statistics)`),
			regexp.MustCompile(`(?:the|this)\s+(?:embassy|consulate)\s+(?:always|never)\s+(?:approves|rejects|asks)`),
		},
	},
}

// fallbacks holds the safe replacement line per blocked category.
var fallbacks = map[string]string{
	"scripted_answer": "I cannot provide you with a scripted answer. " +
		"Let me help you understand what the officer is looking for, " +
		"and you can formulate your own authentic response.",
	"legal_advice": "I am not able to provide immigration or legal advice. " +
		"For specific visa rules and regulations, please consult " +
		"the official embassy website or a licensed immigration consultant.",
	"hallucination": "Let me rephrase that without specific figures. " +
		"For exact fees, processing times, or statistics, " +
		"please check the official embassy or government website.",
}

// Validate screens a response against all rule tables. The first matching
// rule wins.
func Validate(text string) Result {
	lower := strings.ToLower(text)
	for _, rule := range rules {
		for _, p := range rule.patterns {
			if p.MatchString(lower) {
				return Result{Reason: rule.reason, BlockedCategory: rule.category}
			}
		}
	}
	return Result{Valid: true}
}

// SafeFallback returns the replacement line for a blocked category.
func SafeFallback(blockedCategory string) string {
	if line, ok := fallbacks[blockedCategory]; ok {
		return line
	}
	return "Let me rephrase my response."
}
