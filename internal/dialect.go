package internal

import (
	"regexp"
	"strings"
)

const codeFence = "```"

var (
	literalTokenPattern = regexp.MustCompile(`\b(None|True|False)\b`)
	bracketListPattern  = regexp.MustCompile(`\[(.*?)\]`)

	literalTokens = map[string]string{
		"None":  "null",
		"True":  "true",
		"False": "false",
	}
)

// ConvertDictLiteral rewrites a Python-style dict or list literal into JSON
// text: single quotes become double quotes and the bare None/True/False
// tokens become null/true/false. It does not validate the result, and quotes
// inside string values (e.g. "it's") are converted too, which leaves invalid
// JSON for the caller's parser to reject.
func ConvertDictLiteral(s string) string {
	s = strings.ReplaceAll(s, "'", `"`)
	return literalTokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		return literalTokens[tok]
	})
}

// unwrapQuoted removes one pair of enclosing double quotes
func unwrapQuoted(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}

// trimEdgeQuotes removes at most one leading and one trailing double quote, independently
func trimEdgeQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}

func stripCodeFences(s string) string {
	return strings.ReplaceAll(s, codeFence, "")
}

func stripQuoteChars(s string) string {
	return strings.NewReplacer(`'`, "", `"`, "").Replace(s)
}

// extractBracketList returns the comma-separated items between the first "["
// and the next "]". Items are trimmed and stripped of quote characters.
func extractBracketList(s string) []string {
	m := bracketListPattern.FindStringSubmatch(s)
	if m == nil || m[1] == "" {
		return nil
	}
	parts := strings.Split(m[1], ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		items = append(items, stripQuoteChars(strings.TrimSpace(p)))
	}
	return items
}
