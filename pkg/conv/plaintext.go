package conv

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/inbucket/html2text"
	"github.com/microcosm-cc/bluemonday"
)

var (
	extensions  = parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	htmlFlags   = html.CommonFlags
	blockPolicy = bluemonday.NewPolicy()
	bulletRe    = regexp.MustCompile(`^\s*(?:[*\-+•]|\d+[.)])\s+`)
)

func init() {
	// Keep only block structure; inline emphasis, links and code lose their tags
	// but keep their text.
	blockPolicy.AllowElements("p", "br", "ul", "ol", "li")
}

// PlainText renders model output into speakable text: markdown markup, HTML,
// list bullets and emoji are removed, and paragraphs are separated by a blank line.
func PlainText(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}

	p := parser.NewWithExtensions(extensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})
	rendered := markdown.Render(p.Parse([]byte(md)), renderer)

	sanitized := blockPolicy.SanitizeBytes(rendered)

	text, err := html2text.FromString(string(sanitized), html2text.Options{OmitLinks: true})
	if err != nil {
		// html2text only fails on malformed HTML; the sanitized stripped form is good enough.
		text = bluemonday.StrictPolicy().Sanitize(string(sanitized))
	}

	var paragraphs []string
	for _, line := range strings.Split(text, "\n") {
		line = bulletRe.ReplaceAllString(line, "")
		line = collapseSpaces(StripEmoji(line))
		if line != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

// StripEmoji drops pictographs, dingbats, skin-tone modifiers and joiners.
func StripEmoji(s string) string {
	return strings.Map(func(r rune) rune {
		if isEmoji(r) {
			return -1
		}
		return r
	}, s)
}

func isEmoji(r rune) bool {
	switch {
	case r == 0x200D, r == 0xFE0F, r == 0x20E3:
		return true
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	}
	return unicode.Is(unicode.So, r) && r > 0xFF
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
