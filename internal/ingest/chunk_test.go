package ingest

import (
	"strings"
	"testing"
)

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	chunks := Chunk("one paragraph", 100, 10)
	if len(chunks) != 1 || chunks[0] != "one paragraph" {
		t.Errorf("chunks = %v, want single chunk", chunks)
	}
}

func TestChunk_SplitsOnParagraphs(t *testing.T) {
	text := "first paragraph\n\nsecond paragraph\n\nthird paragraph"
	chunks := Chunk(text, 35, 5)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2: %v", len(chunks), chunks)
	}
	for i, c := range chunks {
		if len(c) > 35 {
			t.Errorf("chunks[%d] length %d exceeds max 35", i, len(c))
		}
	}
}

func TestChunk_OversizedParagraph(t *testing.T) {
	text := strings.Repeat("x", 250)
	chunks := Chunk(text, 100, 20)
	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want at least 3", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 100 {
			t.Errorf("chunks[%d] length %d exceeds max 100", i, len(c))
		}
	}
	// Overlap: the second chunk starts before the first ends.
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total <= 250 {
		t.Errorf("total chunk length %d suggests no overlap", total)
	}
}

func TestChunk_OverlapAtLeastMaxLen(t *testing.T) {
	// overlap >= maxLen must be clamped, not left to stall the
	// hard-split loop on oversized paragraphs.
	text := strings.Repeat("a", 300)
	for _, overlap := range []int{100, 150} {
		chunks := Chunk(text, 100, overlap)
		if len(chunks) < 3 {
			t.Fatalf("overlap %d: got %d chunks, want at least 3", overlap, len(chunks))
		}
		for i, c := range chunks {
			if len(c) > 100 {
				t.Errorf("overlap %d: chunks[%d] length %d exceeds max 100", overlap, i, len(c))
			}
		}
	}
}

func TestChunk_EmptyText(t *testing.T) {
	if chunks := Chunk("   \n\n  ", 100, 10); len(chunks) != 0 {
		t.Errorf("chunks = %v, want none", chunks)
	}
}

func TestChunk_Defaults(t *testing.T) {
	chunks := Chunk("hello", 0, -1)
	if len(chunks) != 1 {
		t.Errorf("chunks = %v, want one", chunks)
	}
}
