// Package chunker splits document text into bounded, word-aligned passages.
//
// Split is deterministic: the same text and bound always produce the same
// sequence, so a stored chunk index can be resolved against re-split text.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultSize is the chunk bound, in characters, used for indexing and retrieval.
const DefaultSize = 1500

// Split collapses whitespace runs, then greedily packs words into chunks of at
// most maxChars characters. Words are never broken; a word longer than
// maxChars becomes a chunk of its own.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultSize
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var (
		chunks []string
		buf    strings.Builder
		bufLen int
	)
	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)
		if bufLen > 0 && bufLen+1+wordLen > maxChars {
			chunks = append(chunks, buf.String())
			buf.Reset()
			bufLen = 0
		}
		if bufLen > 0 {
			buf.WriteByte(' ')
			bufLen++
		}
		buf.WriteString(word)
		bufLen += wordLen
	}
	if bufLen > 0 {
		chunks = append(chunks, buf.String())
	}

	return chunks
}

// Normalize returns text with whitespace runs collapsed to single spaces.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
