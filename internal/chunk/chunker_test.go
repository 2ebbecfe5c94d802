package chunk

import (
	"strings"
	"testing"
)

// paragraph builds a paragraph of roughly n characters out of full sentences.
func paragraph(n int) string {
	sentence := "The quick brown fox jumps over the lazy dog near the river. "
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(sentence)
	}
	return strings.TrimSpace(b.String())
}

func TestChunker_Empty(t *testing.T) {
	c := NewChunker(2000, 8000)

	if got := c.Split(""); got != nil {
		t.Errorf("Expected nil for empty input, got %v", got)
	}
	if got := c.Split("   \n\n  \n"); got != nil {
		t.Errorf("Expected nil for blank input, got %v", got)
	}
}

func TestChunker_SingleSmallParagraph(t *testing.T) {
	c := NewChunker(2000, 8000)

	chunks := c.Split("A short paragraph about a rare disease.")
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
}

func TestChunker_MergesParagraphsIntoBand(t *testing.T) {
	c := NewChunker(2000, 8000)

	text := strings.Join([]string{
		paragraph(3000),
		paragraph(3000),
		paragraph(3000),
		paragraph(3000),
	}, "\n\n")

	chunks := c.Split(text)

	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 8000 {
			t.Errorf("Chunk %d exceeds max size: %d", i, len(chunk))
		}
		if len(chunk) < 2000 {
			t.Errorf("Chunk %d below min size: %d", i, len(chunk))
		}
	}
}

func TestChunker_TrailingChunkMergedBackward(t *testing.T) {
	c := NewChunker(2000, 8000)

	// The second paragraph does not fit into the first chunk and would be
	// emitted undersized; it must be folded into the previous chunk instead.
	text := paragraph(7500) + "\n\n" + paragraph(1000)

	chunks := c.Split(text)

	if len(chunks) != 1 {
		t.Fatalf("Expected trailing chunk merged backward, got %d chunks", len(chunks))
	}
}

func TestChunker_OversizedParagraphSplitsOnSentences(t *testing.T) {
	c := NewChunker(2000, 8000)

	chunks := c.Split(paragraph(20000))

	if len(chunks) < 2 {
		t.Fatalf("Expected oversized paragraph to split, got %d chunks", len(chunks))
	}
	for i, chunk := range chunks {
		trimmed := strings.TrimSpace(chunk)
		if !strings.HasSuffix(trimmed, ".") {
			t.Errorf("Chunk %d does not end on a sentence boundary: %q", i, trimmed[len(trimmed)-20:])
		}
	}
}

func TestSentences(t *testing.T) {
	text := "First sentence here. Second one follows! Is this the third? Yes."
	got := Sentences(text)

	want := []string{
		"First sentence here.",
		"Second one follows!",
		"Is this the third?",
		"Yes.",
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d sentences, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestClean(t *testing.T) {
	text := "A  line\twith   spaces\r\n\r\n\r\n\r\nNext paragraph"
	got := Clean(text)

	if strings.Contains(got, "\t") || strings.Contains(got, "  ") {
		t.Errorf("Expected collapsed whitespace, got %q", got)
	}
	if !strings.Contains(got, "\n\n") {
		t.Errorf("Expected paragraph boundary preserved, got %q", got)
	}
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("Expected blank runs collapsed, got %q", got)
	}
}
