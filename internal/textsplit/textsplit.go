// Package textsplit breaks file content into chunks along blank-line
// boundaries, falling back to a fixed-size window for content with no
// natural paragraph breaks. It is an ambient utility the ingest
// pipeline depends on but that spec.md treats as an external
// collaborator.
package textsplit

import "strings"

// DefaultMaxChars bounds a single chunk's size when no paragraph break
// is found within it.
const DefaultMaxChars = 2000

// Split breaks text into an ordered list of chunk bodies. Paragraphs
// (runs separated by one or more blank lines) become individual chunks;
// a paragraph longer than maxChars is further split on maxChars-sized
// windows, preferring the last whitespace boundary.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var out []string
	for _, para := range splitParagraphs(text) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= maxChars {
			out = append(out, para)
			continue
		}
		out = append(out, splitFixedWindow(para, maxChars)...)
	}
	return out
}

func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	raw := strings.Split(normalized, "\n\n")
	paragraphs := make([]string, 0, len(raw))
	for _, p := range raw {
		if strings.TrimSpace(p) != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

func splitFixedWindow(text string, maxChars int) []string {
	var parts []string
	for len(text) > maxChars {
		cut := maxChars
		if idx := strings.LastIndexAny(text[:maxChars], " \t\n"); idx > maxChars/2 {
			cut = idx
		}
		parts = append(parts, strings.TrimSpace(text[:cut]))
		text = text[cut:]
	}
	if strings.TrimSpace(text) != "" {
		parts = append(parts, strings.TrimSpace(text))
	}
	return parts
}
