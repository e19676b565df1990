package chunking

import "strings"

// Splitter produces retrieval-sized chunks. Paragraphs are packed together
// up to ChunkSize so statutory sections stay whole where possible; oversized
// paragraphs fall back to a sliding rune window with Overlap carried between
// windows.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	out := make([]string, 0, len(paragraphs))
	var current strings.Builder
	flush := func() {
		if chunk := strings.TrimSpace(current.String()); chunk != "" {
			out = append(out, chunk)
		}
		current.Reset()
	}

	for _, paragraph := range paragraphs {
		if len([]rune(paragraph)) > s.ChunkSize {
			flush()
			out = append(out, s.window(paragraph)...)
			continue
		}
		if current.Len() > 0 && len([]rune(current.String()))+len([]rune(paragraph))+2 > s.ChunkSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
	}
	flush()
	return out
}

func (s *Splitter) window(text string) []string {
	runes := []rune(text)
	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := min(start+s.ChunkSize, len(runes))
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

func splitParagraphs(text string) []string {
	blocks := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	out := make([]string, 0, len(blocks))
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block != "" {
			out = append(out, block)
		}
	}
	return out
}
