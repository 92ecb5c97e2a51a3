package transcribe

import (
	"strings"
	"unicode"
)

// Score compares a transcript against a reference text.
type Score struct {
	// WER is (Substitutions + Insertions + Deletions) / RefWords.
	WER           float64
	Substitutions int
	Insertions    int
	Deletions     int
	RefWords      int
}

// alignCell is one entry of the word alignment table.
type alignCell struct {
	cost, subs, ins, dels int
}

func (c alignCell) with(subs, ins, dels int) alignCell {
	return alignCell{
		cost: c.cost + subs + ins + dels,
		subs: c.subs + subs,
		ins:  c.ins + ins,
		dels: c.dels + dels,
	}
}

// ScoreTranscript computes the word error rate of hypothesis against
// reference, ignoring case and punctuation. An empty reference scores zero.
func ScoreTranscript(reference, hypothesis string) Score {
	ref := words(reference)
	hyp := words(hypothesis)
	if len(ref) == 0 {
		return Score{}
	}

	// Two rolling rows; each cell carries its own edit counts so no
	// backtrace is needed.
	prev := make([]alignCell, len(hyp)+1)
	cur := make([]alignCell, len(hyp)+1)
	for j := 1; j <= len(hyp); j++ {
		prev[j] = prev[j-1].with(0, 1, 0)
	}

	for i := 1; i <= len(ref); i++ {
		cur[0] = prev[0].with(0, 0, 1)
		for j := 1; j <= len(hyp); j++ {
			var best alignCell
			if ref[i-1] == hyp[j-1] {
				best = prev[j-1]
			} else {
				best = prev[j-1].with(1, 0, 0)
			}
			if del := prev[j].with(0, 0, 1); del.cost < best.cost {
				best = del
			}
			if ins := cur[j-1].with(0, 1, 0); ins.cost < best.cost {
				best = ins
			}
			cur[j] = best
		}
		prev, cur = cur, prev
	}

	last := prev[len(hyp)]
	return Score{
		WER:           float64(last.cost) / float64(len(ref)),
		Substitutions: last.subs,
		Insertions:    last.ins,
		Deletions:     last.dels,
		RefWords:      len(ref),
	}
}

// words lowercases s, drops punctuation and splits on whitespace.
func words(s string) []string {
	return strings.Fields(strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s))
}
