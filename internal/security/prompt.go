// Package security validates driver-supplied text before it reaches
// the model. The master dialog forwards free-form cabin messages into
// a tool-equipped session, so obvious injection attempts are rejected
// at the boundary.
package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxMessageLen bounds one driver message in runes.
const MaxMessageLen = 2000

var (
	// ErrMessageTooLong indicates the message exceeds MaxMessageLen.
	ErrMessageTooLong = errors.New("message too long")

	// ErrInjectionDetected indicates the message matched an injection pattern.
	ErrInjectionDetected = errors.New("prompt injection detected")
)

// PromptInjectionResult contains details about detected injection attempts.
type PromptInjectionResult struct {
	Safe     bool     // True if no injection patterns detected
	Patterns []string // List of detected patterns (empty if safe)
}

// PromptValidator detects potential prompt injection attempts.
//
// Note: No filter is perfect. This catches common patterns but
// sophisticated attacks may bypass detection; the system prompt and
// the bounded tool surface are the real containment. Homoglyph
// substitutions in particular are not detected.
type PromptValidator struct {
	patterns []*regexp.Regexp
}

// NewPromptValidator creates a PromptValidator with default patterns.
func NewPromptValidator() *PromptValidator {
	patterns := []string{
		// System prompt override attempts
		`(?i)ignore\s+(all\s+)?(previous|above|prior)\s+(instructions?|prompts?|rules?)`,
		`(?i)disregard\s+(all\s+)?(previous|above|prior)\s+(instructions?|prompts?)`,
		`(?i)forget\s+(all\s+)?(previous|above|prior)\s+(instructions?|context)`,
		`(?i)override\s+(all\s+)?(previous|above|prior)\s+(instructions?|rules?)`,

		// Role-playing attacks
		`(?i)^(pretend|act|behave|imagine)\s+(you\s+are|to\s+be|as\s+if|like)`,
		`(?i)^you\s+are\s+now\s+a`,
		`(?i)^from\s+now\s+on,?\s+you\s+(are|will|must)`,

		// Instruction injection
		`(?i)^\s*(important|critical|urgent|system)\s*:\s*`,
		`(?i)^new\s+(instruction|task|rule)\s*:`,
		`(?i)^admin\s*(mode|override|command)\s*:`,

		// Delimiter manipulation (trying to escape context)
		`(?i)\]\s*\[\s*(system|assistant|instruction)`,
		`(?i)</?(system|instruction|prompt)>`,
		`(?i)---+\s*(system|new\s+instruction)`,

		// Jailbreak attempts
		`(?i)do\s+anything\s+now`,
		`(?i)jailbreak`,
		`(?i)bypass\s+(safety|filter|restrictions?)`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			compiled = append(compiled, re)
		}
	}

	return &PromptValidator{patterns: compiled}
}

// Validate checks input for prompt injection patterns.
func (v *PromptValidator) Validate(input string) PromptInjectionResult {
	normalized := normalizeInput(input)

	var detected []string
	for _, re := range v.patterns {
		if re.MatchString(normalized) {
			detected = append(detected, re.String())
		}
	}

	return PromptInjectionResult{
		Safe:     len(detected) == 0,
		Patterns: detected,
	}
}

// IsSafe reports whether no injection patterns were detected.
func (v *PromptValidator) IsSafe(input string) bool {
	return v.Validate(input).Safe
}

// CheckMessage is the full gate for one driver message: length bound
// first, then injection patterns. Returns nil when the message may be
// forwarded to the model.
func (v *PromptValidator) CheckMessage(input string) error {
	if utf8.RuneCountInString(input) > MaxMessageLen {
		return fmt.Errorf("%w: %d runes (max %d)",
			ErrMessageTooLong, utf8.RuneCountInString(input), MaxMessageLen)
	}
	if res := v.Validate(input); !res.Safe {
		return fmt.Errorf("%w: %d pattern(s) matched", ErrInjectionDetected, len(res.Patterns))
	}
	return nil
}

// normalizeInput prepares input for pattern matching: strips zero-width
// and combining characters that could evade detection and collapses
// whitespace runs.
func normalizeInput(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsSpace(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
