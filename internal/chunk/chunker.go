// Package chunk splits raw fetched text into bounded, semantically coherent
// fragments. Paragraphs are merged until each chunk falls inside a target
// size band; sentences are never split.
package chunk

import (
	"regexp"
	"strings"
)

// Chunker splits text into chunks within a character size band
type Chunker struct {
	minSize int
	maxSize int
}

// NewChunker creates a chunker with the given size band.
func NewChunker(minSize, maxSize int) *Chunker {
	if minSize <= 0 {
		minSize = 2_000
	}
	if maxSize <= minSize {
		maxSize = minSize * 4
	}
	return &Chunker{minSize: minSize, maxSize: maxSize}
}

var (
	reSpaces     = regexp.MustCompile(`[ \t]+`)
	reBlankLines = regexp.MustCompile(`\n{3,}`)
	// Sentence terminator followed by whitespace and an upper-case or digit start.
	reSentenceEnd = regexp.MustCompile(`([.!?])\s+([A-Z0-9"(])`)
)

// Split breaks text into chunks on paragraph boundaries. Adjacent paragraphs
// are merged until a chunk reaches the size band; an undersized trailing
// chunk is merged backward into the previous one rather than emitted, since
// small fragments carry low evidentiary value.
func (c *Chunker) Split(text string) []string {
	text = Clean(text)
	if text == "" {
		return nil
	}

	var units []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) > c.maxSize {
			units = append(units, c.splitOversized(para)...)
		} else {
			units = append(units, para)
		}
	}
	if len(units) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	size := 0

	for _, unit := range units {
		if size > 0 && size+len(unit) > c.maxSize {
			chunks = append(chunks, strings.Join(current, "\n\n"))
			current = nil
			size = 0
		}
		current = append(current, unit)
		size += len(unit)
	}

	if len(current) > 0 {
		tail := strings.Join(current, "\n\n")
		if len(tail) < c.minSize && len(chunks) > 0 {
			chunks[len(chunks)-1] = chunks[len(chunks)-1] + "\n\n" + tail
		} else {
			chunks = append(chunks, tail)
		}
	}

	return chunks
}

// splitOversized breaks a paragraph larger than the band into sentence
// groups no larger than maxSize.
func (c *Chunker) splitOversized(para string) []string {
	sentences := Sentences(para)

	var groups []string
	var current []string
	size := 0

	for _, s := range sentences {
		if size > 0 && size+len(s) > c.maxSize {
			groups = append(groups, strings.Join(current, " "))
			current = nil
			size = 0
		}
		current = append(current, s)
		size += len(s)
	}
	if len(current) > 0 {
		groups = append(groups, strings.Join(current, " "))
	}

	return groups
}

// Sentences splits text on sentence terminators. A sentence that exceeds any
// size limit is still returned whole; callers must tolerate that.
func Sentences(text string) []string {
	marked := reSentenceEnd.ReplaceAllString(text, "$1\x00$2")
	parts := strings.Split(marked, "\x00")

	var sentences []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// Clean normalizes whitespace without destroying paragraph boundaries.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = reSpaces.ReplaceAllString(text, " ")
	text = reBlankLines.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
