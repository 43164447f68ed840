package botdetect

import (
	"math"
	"strings"
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Weights are the sub-score weights; they sum to 1 so the final score stays
// in [0,100]. Heuristic values, kept tunable rather than hard-coded.
type Weights struct {
	Frequency  float64
	Repetition float64
	Complexity float64
	Burst      float64
	Username   float64
	Similarity float64
}

func DefaultWeights() Weights {
	return Weights{
		Frequency:  0.25,
		Repetition: 0.20,
		Complexity: 0.15,
		Burst:      0.15,
		Username:   0.15,
		Similarity: 0.10,
	}
}

// SimilarityFunc maps two strings to a similarity ratio in [0,1]. The
// algorithm is substitutable; the default is Sørensen–Dice.
type SimilarityFunc func(a, b string) float64

// DiceSimilarity is the default SimilarityFunc.
func DiceSimilarity(a, b string) float64 {
	return strutil.Similarity(a, b, metrics.NewSorensenDice())
}

const (
	burstWindow    = 10 * time.Second
	burstThreshold = 5
	minMessages    = 3
)

// Scorer computes bot scores from behavior records. Pure: scoring the same
// record twice yields the same result. Rescoring cadence is caller policy.
type Scorer struct {
	Weights    Weights
	Similarity SimilarityFunc
	Patterns   *PatternSet
}

func NewScorer(patterns *PatternSet) *Scorer {
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	return &Scorer{
		Weights:    DefaultWeights(),
		Similarity: DiceSimilarity,
		Patterns:   patterns,
	}
}

// Score computes the weighted bot score and its classification. Records
// with fewer than three messages score 0/human.
func (s *Scorer) Score(r *Record) (int, Classification) {
	if r == nil || r.TotalMessages < minMessages {
		return 0, Human
	}

	w := s.Weights
	var score float64

	// 1. Message frequency: near-constant intervals look automated.
	if len(r.Intervals) > 1 {
		switch dev := stddev(r.Intervals); {
		case dev < 2:
			score += w.Frequency * 100
		case dev < 5:
			score += w.Frequency * 70
		case dev < 10:
			score += w.Frequency * 40
		default:
			score += w.Frequency * 10
		}
	}

	// 2. Content repetition.
	uniqueRatio := float64(r.UniqueCount()) / float64(r.TotalMessages)
	score += w.Repetition * (1 - uniqueRatio) * 100

	// 3. Pairwise message similarity.
	switch sim := s.averageSimilarity(r.Messages); {
	case sim > 0.8:
		score += w.Similarity * 100
	case sim > 0.6:
		score += w.Similarity * 70
	case sim > 0.4:
		score += w.Similarity * 40
	}

	// 4. Generic username shape.
	if s.Patterns.Match(r.Username) {
		score += w.Username * 100
	}

	// 5. Text complexity; low complexity is an inverse signal.
	switch avg := averageComplexity(r.Messages); {
	case avg < 1:
		score += w.Complexity * 100
	case avg < 2:
		score += w.Complexity * 60
	case avg < 3:
		score += w.Complexity * 30
	}

	// 6. Message bursts.
	if hasBurst(r.Timestamps, burstWindow, burstThreshold) {
		score += w.Burst * 80
	}

	final := int(math.Round(score))
	if final > 100 {
		final = 100
	}
	if final < 0 {
		final = 0
	}
	return final, Classify(final)
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(len(values)))
}

// averageSimilarity is the mean over all C(n,2) message pairs. O(n²) in the
// retained history, which the tracker caps.
func (s *Scorer) averageSimilarity(messages []string) float64 {
	if len(messages) < 2 {
		return 0
	}
	sim := s.Similarity
	if sim == nil {
		sim = DiceSimilarity
	}
	var total float64
	var pairs int
	for i := 0; i < len(messages); i++ {
		for j := i + 1; j < len(messages); j++ {
			total += sim(messages[i], messages[j])
			pairs++
		}
	}
	return total / float64(pairs)
}

// textComplexity combines lexical diversity, average word length and
// message length into one signal.
func textComplexity(message string) float64 {
	words := strings.Fields(strings.TrimSpace(message))
	if len(words) == 0 {
		return 0
	}
	unique := make(map[string]struct{}, len(words))
	var lengths int
	for _, word := range words {
		unique[word] = struct{}{}
		lengths += len(word)
	}
	avgWordLen := float64(lengths) / float64(len(words))
	return float64(len(unique)) / float64(len(words)) *
		(avgWordLen / 5) *
		(float64(len(words)) / 3)
}

func averageComplexity(messages []string) float64 {
	if len(messages) == 0 {
		return 0
	}
	var total float64
	for _, m := range messages {
		total += textComplexity(m)
	}
	return total / float64(len(messages))
}

// hasBurst reports whether any timestamp has at least threshold timestamps
// (itself included) within a trailing window, scanning contiguously until
// the first gap exceeding the window.
func hasBurst(timestamps []time.Time, window time.Duration, threshold int) bool {
	if len(timestamps) < threshold {
		return false
	}
	for i := range timestamps {
		inWindow := 1
		for j := i + 1; j < len(timestamps); j++ {
			if timestamps[j].Sub(timestamps[i]) > window {
				break
			}
			inWindow++
		}
		if inWindow >= threshold {
			return true
		}
	}
	return false
}
