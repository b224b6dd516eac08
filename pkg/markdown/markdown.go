// Package markdown is a minimal, safe markdown-ish renderer. Intentionally
// conservative: escapes all input first and supports only a small subset of
// block and inline forms.
package markdown

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	codeBlockRe  = regexp.MustCompile("(?s)```\n?(.*?)\n?```")
	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
	boldRe       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe     = regexp.MustCompile(`\*([^*]+)\*`)
	listItemRe   = regexp.MustCompile(`(?m)^\s*[-*+]\s+(.*)$`)
	listGroupRe  = regexp.MustCompile(`((?:<li>(?s:.*?)</li>)+)`)
	headingRes   = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^######\s+(.*)$`),
		regexp.MustCompile(`(?m)^#####\s+(.*)$`),
		regexp.MustCompile(`(?m)^####\s+(.*)$`),
		regexp.MustCompile(`(?m)^###\s+(.*)$`),
		regexp.MustCompile(`(?m)^##\s+(.*)$`),
		regexp.MustCompile(`(?m)^#\s+(.*)$`),
	}
	paragraphRe  = regexp.MustCompile(`\n\n+`)
	blockStartRe = regexp.MustCompile(`(?i)^\s*<(h\d|ul|pre|p)`)

	escaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
)

// Render converts raw note text into safe HTML.
func Render(src string) string {
	text := escaper.Replace(src)

	// Code blocks come out first so later passes cannot touch their contents;
	// they are restored verbatim at the end, newlines intact.
	var blocks []string
	text = codeBlockRe.ReplaceAllStringFunc(text, func(m string) string {
		inner := codeBlockRe.FindStringSubmatch(m)[1]
		blocks = append(blocks, "<pre><code>"+inner+"</code></pre>")
		return fmt.Sprintf("\x00%d\x00", len(blocks)-1)
	})

	text = inlineCodeRe.ReplaceAllString(text, "<code>$1</code>")

	for i, re := range headingRes {
		level := 6 - i
		text = re.ReplaceAllString(text, fmt.Sprintf("<h%d>$1</h%d>", level, level))
	}

	text = boldRe.ReplaceAllString(text, "<strong>$1</strong>")
	text = italicRe.ReplaceAllString(text, "<em>$1</em>")

	text = listItemRe.ReplaceAllString(text, "<li>$1</li>")
	text = strings.ReplaceAll(text, "</li>\n<li>", "</li><li>")
	text = listGroupRe.ReplaceAllString(text, "<ul>$1</ul>")

	text = paragraphRe.ReplaceAllString(text, "</p><p>")
	text = strings.ReplaceAll(text, "\n", "<br>")

	for i, b := range blocks {
		text = strings.Replace(text, fmt.Sprintf("\x00%d\x00", i), b, 1)
	}

	if !blockStartRe.MatchString(text) {
		text = "<p>" + text + "</p>"
	}
	return text
}
