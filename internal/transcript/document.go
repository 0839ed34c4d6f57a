// Package transcript turns per-segment transcription results into one
// ordered meeting transcript.
package transcript

import (
	"sort"
	"strings"
)

// fragmentDivider separates consecutive fragments in the rendered output.
var fragmentDivider = strings.Repeat("─", 70)

// Fragment is the transcription of one audio segment.
type Fragment struct {
	// Ordinal is the 1-based position of the segment in the recording.
	Ordinal int
	Text    string
}

// Document is the ordered collection of fragments for one meeting.
type Document struct {
	Fragments []Fragment
}

// Render concatenates the fragment texts in ordinal order with a visible
// divider between consecutive fragments. No divider precedes the first
// fragment. Fragments are re-sorted by ordinal, so callers may collect
// them in any order.
func (d Document) Render() string {
	fragments := append([]Fragment(nil), d.Fragments...)
	sort.Slice(fragments, func(i, j int) bool {
		return fragments[i].Ordinal < fragments[j].Ordinal
	})

	var builder strings.Builder
	for i, fragment := range fragments {
		if i > 0 {
			builder.WriteString("\n\n")
			builder.WriteString(fragmentDivider)
			builder.WriteString("\n\n")
		}
		builder.WriteString(strings.TrimSpace(fragment.Text))
	}
	return builder.String()
}
