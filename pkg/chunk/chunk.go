// Package chunk splits text into sentence-sized pieces and bounds them by
// tokenizer length.
package chunk

import (
	"strings"
	"sync"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const (
	encodingName = "cl100k_base"

	// runesPerToken approximates token length when the encoding is unavailable.
	runesPerToken = 4
)

var (
	bound     bounder
	boundOnce sync.Once
)

func init() {
	// Encodings ship embedded in the loader module; nothing is downloaded.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// bounder measures and cuts text in tokens.
type bounder interface {
	count(text string) int
	// split cuts text into consecutive pieces of at most maxTokens each.
	split(text string, maxTokens int) []string
}

var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true, '．': true, '…': true,
}

var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true, "st": true,
	"sr": true, "jr": true, "vs": true, "etc": true, "e.g": true, "i.e": true,
}

// Sentences splits text into sentences. A sentence longer than maxTokens is cut
// into token-bounded pieces; maxTokens <= 0 disables the bound.
func Sentences(text string, maxTokens int) []string {
	return sentences(text, maxTokens, getBounder())
}

// Truncate returns the longest token prefix of text that fits maxTokens.
func Truncate(text string, maxTokens int) string {
	return truncate(text, maxTokens, getBounder())
}

func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return getBounder().count(text)
}

func sentences(text string, maxTokens int, b bounder) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var out []string
	for _, sentence := range splitSentences(text) {
		if maxTokens <= 0 || b.count(sentence) <= maxTokens {
			out = append(out, sentence)
			continue
		}
		for _, piece := range b.split(sentence, maxTokens) {
			if piece = strings.TrimSpace(piece); piece != "" {
				out = append(out, piece)
			}
		}
	}
	return out
}

func truncate(text string, maxTokens int, b bounder) string {
	if maxTokens <= 0 || text == "" || b.count(text) <= maxTokens {
		return text
	}
	return b.split(text, maxTokens)[0]
}

type tiktokenBounder struct {
	enc *tiktoken.Tiktoken
}

func (b tiktokenBounder) count(text string) int {
	return len(b.enc.Encode(text, nil, nil))
}

func (b tiktokenBounder) split(text string, maxTokens int) []string {
	tokens := b.enc.Encode(text, nil, nil)

	var pieces []string
	for i := 0; i < len(tokens); i += maxTokens {
		end := min(i+maxTokens, len(tokens))
		pieces = append(pieces, b.enc.Decode(tokens[i:end]))
	}
	return pieces
}

// runeBounder counts runesPerToken runes as one token.
type runeBounder struct{}

func (runeBounder) count(text string) int {
	n := len([]rune(text))
	return (n + runesPerToken - 1) / runesPerToken
}

// split prefers to cut after the last space inside each window.
func (runeBounder) split(text string, maxTokens int) []string {
	runes := []rune(text)
	size := maxTokens * runesPerToken

	var pieces []string
	for len(runes) > 0 {
		if len(runes) <= size {
			pieces = append(pieces, string(runes))
			break
		}
		cut := size
		for i := size; i > 0; i-- {
			if unicode.IsSpace(runes[i-1]) {
				cut = i
				break
			}
		}
		pieces = append(pieces, string(runes[:cut]))
		runes = runes[cut:]
	}
	return pieces
}

func splitSentences(text string) []string {
	var sentences []string

	for _, para := range splitParagraphs(text) {
		var current strings.Builder
		runes := []rune(para)

		for i, r := range runes {
			current.WriteRune(r)

			if !sentenceEnders[r] {
				continue
			}
			// "3.5" stays together; a boundary needs space, end or CJK next.
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) || isCJK(runes[i+1]) {
				if r == '.' && i+1 < len(runes) && isAbbreviation(lastWord(current.String())) {
					continue
				}
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}

		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
	}

	if len(sentences) == 0 && text != "" {
		return []string{text}
	}
	return sentences
}

func lastWord(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexFunc(s, unicode.IsSpace); idx >= 0 {
		s = s[idx+1:]
	}
	return strings.TrimSuffix(s, ".")
}

// isAbbreviation matches titles like "Dr" and dotted initials like "U.S.A".
func isAbbreviation(word string) bool {
	if word == "" {
		return false
	}
	if abbreviations[strings.ToLower(word)] {
		return true
	}
	for _, part := range strings.Split(word, ".") {
		r := []rune(part)
		if len(r) != 1 || !unicode.IsUpper(r[0]) {
			return false
		}
	}
	return true
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n\n")

	var result []string
	for _, p := range parts {
		// soft wraps inside a paragraph
		p = strings.ReplaceAll(p, "\n", " ")
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func getBounder() bounder {
	boundOnce.Do(func() {
		bound = newBounder(func() (*tiktoken.Tiktoken, error) {
			return tiktoken.GetEncoding(encodingName)
		})
	})
	return bound
}

// newBounder falls back to rune counting when the encoding cannot be loaded.
func newBounder(load func() (*tiktoken.Tiktoken, error)) bounder {
	enc, err := load()
	if err != nil || enc == nil {
		return runeBounder{}
	}
	return tiktokenBounder{enc: enc}
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
