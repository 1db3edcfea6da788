// Package strategy provides the built-in parsing strategies: plain text,
// native PDF text extraction, and office-document conversion.
package strategy

import "strings"

// countElements counts the non-empty lines of extracted content, the unit
// used for quality scoring.
func countElements(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
