package intent

import (
	"regexp"
	"strings"
)

var (
	fenceRe         = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// extractJSON slices the first plausible JSON object out of a model reply.
// Fenced blocks win over bare braces since models often narrate around them.
func extractJSON(response string) string {
	if m := fenceRe.FindStringSubmatch(response); m != nil {
		response = m[1]
	}

	startIdx := strings.Index(response, "{")
	if startIdx == -1 {
		return ""
	}
	endIdx := strings.LastIndex(response, "}")
	if endIdx > startIdx {
		return response[startIdx : endIdx+1]
	}
	// No closing brace at all. Return the tail and let repairJSON balance it.
	return response[startIdx:]
}

// repairJSON fixes the two malformations small models actually produce:
// trailing commas and truncated output with unbalanced brackets. Anything
// beyond that is not worth guessing at.
func repairJSON(s string) string {
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return balanceBrackets(s)
}

func balanceBrackets(s string) string {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				stack = append(stack, ch)
			}
		case '}', ']':
			if !inString && len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if inString {
		s += `"`
	}
	var b strings.Builder
	b.WriteString(s)
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}
