package app

import "strings"

var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// TextSplitter cuts text on the coarsest separator that keeps pieces under
// size runes, falling back to finer ones, and merges neighbouring pieces into
// chunks that share up to overlap runes.
type TextSplitter struct {
	size       int
	overlap    int
	separators []string
}

func NewTextSplitter(size, overlap int) *TextSplitter {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &TextSplitter{size: size, overlap: overlap, separators: defaultSeparators}
}

func (s *TextSplitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *TextSplitter) split(text string, separators []string) []string {
	sep := ""
	var rest []string
	for i, cand := range separators {
		if cand == "" || strings.Contains(text, cand) {
			sep = cand
			rest = separators[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
	} else {
		pieces = strings.SplitAfter(text, sep)
	}

	var (
		chunks []string
		small  []string
	)
	for _, p := range pieces {
		if runeLen(p) <= s.size {
			small = append(small, p)
			continue
		}
		if len(small) > 0 {
			chunks = append(chunks, s.merge(small)...)
			small = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, s.merge(splitRunes(p))...)
		} else {
			chunks = append(chunks, s.split(p, rest)...)
		}
	}
	if len(small) > 0 {
		chunks = append(chunks, s.merge(small)...)
	}
	return chunks
}

func (s *TextSplitter) merge(pieces []string) []string {
	var (
		chunks []string
		window []string
		total  int
	)
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.size && len(window) > 0 {
			if c := strings.TrimSpace(strings.Join(window, "")); c != "" {
				chunks = append(chunks, c)
			}
			for len(window) > 0 && (total > s.overlap || total+n > s.size) {
				total -= runeLen(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += n
	}
	if c := strings.TrimSpace(strings.Join(window, "")); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func runeLen(s string) int {
	return len([]rune(s))
}
