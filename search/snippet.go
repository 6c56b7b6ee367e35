package search

import "strings"

const snippetRadius = 8

// Snippet extracts a short window of the document's text around the first
// query token hit. Text that fits entirely is returned as is; otherwise the
// window is marked with ellipses.
func Snippet(query []string, text string) string {
	words := strings.Fields(text)
	if len(words) <= 2*snippetRadius {
		return text
	}

	want := make(map[string]bool, len(query))
	for _, q := range query {
		want[q] = true
	}
	hit := -1
	for i, w := range words {
		if want[strings.ToLower(strings.Trim(w, ".,;:!?\"'()"))] {
			hit = i
			break
		}
	}
	if hit < 0 {
		hit = 0
	}

	start := hit - snippetRadius
	if start < 0 {
		start = 0
	}
	end := hit + snippetRadius
	if end > len(words) {
		end = len(words)
	}

	var sb strings.Builder
	if start > 0 {
		sb.WriteString("... ")
	}
	sb.WriteString(strings.Join(words[start:end], " "))
	if end < len(words) {
		sb.WriteString(" ...")
	}
	return sb.String()
}
