// Package jsonx extracts JSON values embedded in free-form model output.
//
// Model responses wrap their JSON payload in prose, markdown fences, or both.
// The scan here is deliberately best-effort: strip fences, then slice from the
// first opening delimiter to the last closing one. It assumes the only braces
// or brackets in the text belong to the intended envelope, which holds for the
// prompt contracts this repository uses.
package jsonx

import "strings"

// ExtractObject returns the substring from the first '{' to the last '}'.
// ok is false when no plausible object envelope exists.
func ExtractObject(text string) (string, bool) {
	text = stripFences(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ExtractArray returns the substring from the first '[' to the last ']'.
// ok is false when no plausible array envelope exists.
func ExtractArray(text string) (string, bool) {
	text = stripFences(text)
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// stripFences removes a leading markdown code fence and its closing fence.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}

// NormalizeResult applies the canonical result-string normalization: every
// tab becomes a single space. Tabs cannot survive into the TSV exports.
func NormalizeResult(s string) string {
	return strings.ReplaceAll(s, "\t", " ")
}
