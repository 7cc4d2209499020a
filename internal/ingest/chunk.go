package ingest

import "strings"

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 100
)

// Chunk splits text into pieces of at most maxLen runes, preferring
// paragraph boundaries, with overlap runes carried between adjacent
// chunks. Pass 0 for either to use the defaults.
func Chunk(text string, maxLen, overlap int) []string {
	if maxLen <= 0 {
		maxLen = defaultChunkSize
	}
	if overlap < 0 {
		overlap = defaultChunkOverlap
	}
	// The hard-split step below is maxLen-overlap; keep it positive.
	if overlap >= maxLen {
		overlap = maxLen / 10
	}

	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var cur strings.Builder

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
	}

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		// Oversized paragraph: hard-split by runes with overlap.
		if len([]rune(p)) > maxLen {
			flush()
			runes := []rune(p)
			for start := 0; start < len(runes); start += maxLen - overlap {
				end := start + maxLen
				if end > len(runes) {
					end = len(runes)
				}
				chunks = append(chunks, strings.TrimSpace(string(runes[start:end])))
				if end == len(runes) {
					break
				}
			}
			continue
		}

		if cur.Len() > 0 && cur.Len()+len(p)+2 > maxLen {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(p)
	}
	flush()

	return chunks
}
