package hooks

import (
	"math"
	"sort"
	"strings"
)

// impactKeywords are tokens whose presence marks a lexically loaded
// moment. Mixed English/Indonesian set matching the audience the
// pipeline targets.
var impactKeywords = map[string]struct{}{
	"shocking": {},
	"secret":   {},
	"mistake":  {},
	"truth":    {},
	"viral":    {},
	"insane":   {},
	"gila":     {},
	"rahasia":  {},
	"penting":  {},
	"jangan":   {},
}

const windowSec = 5.0

// Word is one transcript token with its spoken time range.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// LLMHook is a provider-suggested engaging range with its scores.
type LLMHook struct {
	Start         float64 `json:"start"`
	End           float64 `json:"end"`
	SemanticScore float64 `json:"semantic_score"`
	EmotionScore  float64 `json:"emotion_score"`
	Confidence    float64 `json:"confidence"`
	Reason        string  `json:"reason"`
}

// Candidate is a hook that passed the viral-score threshold.
type Candidate struct {
	Start       float64
	End         float64
	ViralScore  int
	SpeechSpike bool
	Reason      string
}

type window struct {
	start, end float64
	rate       float64
	keyword    float64
}

// Score combines provider hooks with speech-rate and keyword signals
// into a ranked candidate list, non-ascending in viral score.
func Score(words []Word, llmHooks []LLMHook, maxClips, minViralScore int) []Candidate {
	if maxClips <= 0 || len(llmHooks) == 0 {
		return nil
	}
	windows := buildWindows(words)
	baseline, spread := rateBaseline(windows)
	spikeThreshold := baseline + math.Max(0.2, spread)

	var out []Candidate
	for _, hook := range llmHooks {
		if hook.End <= hook.Start {
			continue
		}
		emotion := clamp01(hook.EmotionScore)
		semantic := clamp01(hook.SemanticScore)

		spike := false
		keywordSum, keywordN := 0.0, 0
		for _, w := range windows {
			if w.end <= hook.Start || w.start >= hook.End {
				continue
			}
			if w.rate > spikeThreshold {
				spike = true
			}
			keywordSum += w.keyword
			keywordN++
		}
		keywordScore := 0.0
		if keywordN > 0 {
			keywordScore = clamp01(keywordSum / float64(keywordN))
		}

		spikeVal := 0.0
		if spike {
			spikeVal = 1.0
		}
		viral := int(math.Floor((0.30*emotion + 0.25*semantic + 0.25*spikeVal + 0.20*keywordScore) * 100))
		if viral < 0 {
			viral = 0
		}
		if viral > 100 {
			viral = 100
		}
		if viral < minViralScore {
			continue
		}
		out = append(out, Candidate{
			Start:       hook.Start,
			End:         hook.End,
			ViralScore:  viral,
			SpeechSpike: spike,
			Reason:      hook.Reason,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ViralScore > out[j].ViralScore
	})
	if len(out) > maxClips {
		out = out[:maxClips]
	}
	return out
}

func buildWindows(words []Word) []window {
	if len(words) == 0 {
		return nil
	}
	minStart, maxEnd := words[0].Start, words[0].End
	for _, w := range words[1:] {
		if w.Start < minStart {
			minStart = w.Start
		}
		if w.End > maxEnd {
			maxEnd = w.End
		}
	}
	if maxEnd <= minStart {
		return nil
	}

	var out []window
	for start := minStart; start < maxEnd; start += windowSec {
		end := start + windowSec
		if end > maxEnd {
			end = maxEnd
		}
		count, hits := 0, 0
		for _, w := range words {
			if w.Start < start || w.Start >= end {
				continue
			}
			count++
			if _, ok := impactKeywords[normalizeToken(w.Word)]; ok {
				hits++
			}
		}
		win := window{start: start, end: end}
		if dur := end - start; dur > 0 {
			win.rate = float64(count) / dur
		}
		if count > 0 {
			win.keyword = float64(hits) / float64(count)
		}
		out = append(out, win)
	}
	return out
}

// rateBaseline returns the mean speech rate and its population
// standard deviation across all windows.
func rateBaseline(windows []window) (mean, pstdev float64) {
	if len(windows) == 0 {
		return 0, 0
	}
	for _, w := range windows {
		mean += w.rate
	}
	mean /= float64(len(windows))
	var variance float64
	for _, w := range windows {
		d := w.rate - mean
		variance += d * d
	}
	variance /= float64(len(windows))
	return mean, math.Sqrt(variance)
}

func normalizeToken(token string) string {
	return strings.Trim(strings.ToLower(token), `.,!?"'()[]{}`)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
