package breakpoint

// greedy fills lines left to right. A unit that does not fit closes the
// current line and opens the next one; punctuation always stays with the
// content before it. A unit wider than the limit gets a line of its own.
// Protected spans arrive as single units, so they are placed by fit like a
// word and never split. A line exceeds maxLen only when it holds one unit
// or when standalone punctuation trails it.
func greedy(units []Unit, maxLen int) []Line {
	var (
		lines []Line
		b     lineBuilder
	)
	for _, u := range units {
		if b.empty() || u.Punct || b.widthWith(u) <= maxLen {
			b.add(u)
			continue
		}
		lines = append(lines, b.line())
		b.reset()
		b.add(u)
	}
	if !b.empty() {
		lines = append(lines, b.line())
	}
	return lines
}

// capLines merges trailing lines until at most limit remain.
func capLines(lines []Line, limit int) []Line {
	if limit < 1 {
		limit = 1
	}
	for len(lines) > limit {
		last := len(lines) - 1
		merged := append(append([]Unit{}, lines[last-1].Units...), lines[last].Units...)
		lines[last-1] = NewLine(merged)
		lines = lines[:last]
	}
	return lines
}

// pairLines groups consecutive lines into blocks of at most two.
func pairLines(lines []Line) []Block {
	blocks := make([]Block, 0, (len(lines)+1)/2)
	for i := 0; i < len(lines); i += 2 {
		end := min(i+2, len(lines))
		group := make([]Line, end-i)
		copy(group, lines[i:end])
		blocks = append(blocks, Block{Lines: group})
	}
	return blocks
}
