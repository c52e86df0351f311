// Package format splits the agent's raw answer into the user-facing reply
// and its embedded sarcastic asides, then renders channel-appropriate markup.
package format

import (
	"fmt"
	"regexp"
	"strings"
)

// Style selects how extracted asides are rendered. The two historical
// entry points drifted apart here, so both variants are kept as explicit
// options instead of guessing one canonical look.
type Style int

const (
	// StyleLine renders each aside as a single emphasized line prefixed
	// with a thought-bubble marker (Telegram/Discord Markdown).
	StyleLine Style = iota
	// StyleParagraph renders each aside as its own italicized paragraph
	// (WhatsApp formatting).
	StyleParagraph
)

var asidePattern = regexp.MustCompile(`(?s)<sarcasm>(.*?)</sarcasm>`)

// Split separates the primary answer from the asides, preserving aside
// order. The primary answer has the delimited segments removed and is
// trimmed; asides come back trimmed, empty ones dropped.
func Split(raw string) (answer string, asides []string) {
	matches := asidePattern.FindAllStringSubmatch(raw, -1)
	for _, m := range matches {
		remark := strings.TrimSpace(m[1])
		if remark != "" {
			asides = append(asides, remark)
		}
	}
	answer = strings.TrimSpace(asidePattern.ReplaceAllString(raw, ""))
	return answer, asides
}

// Render produces the deliverable message: the primary answer followed by
// each aside in original order, emphasized per the given style. Input with
// no aside markers comes back trimmed and otherwise unchanged.
func Render(raw string, style Style) string {
	answer, asides := Split(raw)
	if len(asides) == 0 {
		return answer
	}

	var b strings.Builder
	b.WriteString(answer)
	for _, remark := range asides {
		switch style {
		case StyleParagraph:
			b.WriteString(fmt.Sprintf("\n\n_%s_", remark))
		default:
			b.WriteString(fmt.Sprintf("\n\n💭 _%s_", remark))
		}
	}
	return b.String()
}
