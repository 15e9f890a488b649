package breakpoint

import (
	"subreflow/internal/annotate"
)

// discourse splits a phrase that is too wide for one line at a discourse
// boundary, recursing into either half while it is still too wide.
// Punctuation glued to the end of a segment does not count against the limit,
// matching greedy.
func discourse(units []Unit, maxLen int) []Line {
	if len(units) <= 1 || contentWidth(units) <= maxLen {
		return []Line{NewLine(units)}
	}
	split := discourseSplit(units, maxLen)
	if split >= len(units) {
		return []Line{NewLine(units)}
	}
	head := discourse(units[:split], maxLen)
	return append(head, discourse(units[split:], maxLen)...)
}

// contentWidth is the width of units without trailing punctuation.
func contentWidth(units []Unit) int {
	end := len(units)
	for end > 1 && units[end-1].Punct {
		end--
	}
	return Width(units[:end])
}

// discourseSplit returns k in [1, len(units)) so that units[:k] is the first
// segment. A conjunction candidate ends the first segment unless the next
// unit is a pronoun, verb or adverb, in which case the conjunction opens the
// second. The most balanced candidate wins.
func discourseSplit(units []Unit, maxLen int) int {
	minHead := maxLen / 4
	best, bestScore := 0, -1
	for k := 1; k < len(units); k++ {
		if units[k-1].POS != annotate.POSCoordConj {
			continue
		}
		split := k
		if shiftsEarlier(units[k]) {
			split = k - 1
		}
		split = gluePunct(units, split)
		if split < 1 || split >= len(units) {
			continue
		}
		if Width(units[:split]) < minHead {
			continue
		}
		score := abs(Width(units[:split]) - Width(units[split:]))
		if bestScore < 0 || score < bestScore {
			best, bestScore = split, score
		}
	}
	if best > 0 {
		return best
	}

	// Last whitespace boundary inside the limit, otherwise the first one.
	split := 1
	for k := 1; k < len(units); k++ {
		if Width(units[:k]) > maxLen {
			break
		}
		split = k
	}
	return gluePunct(units, split)
}

func shiftsEarlier(u Unit) bool {
	switch u.POS {
	case annotate.POSPronoun, annotate.POSVerb, annotate.POSAdverb:
		return true
	}
	return false
}

// gluePunct moves punctuation that would open the second segment, a comma
// included, onto the end of the first. The result may be len(units).
func gluePunct(units []Unit, split int) int {
	for split > 0 && split < len(units) && units[split].Punct {
		split++
	}
	return split
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
