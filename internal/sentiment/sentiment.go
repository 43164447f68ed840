package sentiment

import (
	"strconv"

	"github.com/jonreiter/govader"
)

// Label is the coarse polarity bucket for one message.
type Label string

const (
	Positive Label = "positive"
	Neutral  Label = "neutral"
	Negative Label = "negative"
)

// Analyzer wraps the VADER scorer behind the polarity contract the engine
// needs: free text in, label plus signed score out.
type Analyzer struct {
	vader *govader.SentimentIntensityAnalyzer
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{vader: govader.NewSentimentIntensityAnalyzer()}
}

// Analyze scores one message. The compound score is in [-1, 1]; zero maps
// to neutral.
func (a *Analyzer) Analyze(text string) (Label, float64) {
	score := a.vader.PolarityScores(text).Compound
	switch {
	case score > 0:
		return Positive, score
	case score < 0:
		return Negative, score
	default:
		return Neutral, score
	}
}

// Stats is the running distribution over all analyzed messages.
type Stats struct {
	Positive   int64
	Neutral    int64
	Negative   int64
	TotalScore float64
	Analyzed   int64
}

// Record folds one labeled message into the distribution.
func (s *Stats) Record(label Label, score float64) {
	switch label {
	case Positive:
		s.Positive++
	case Negative:
		s.Negative++
	default:
		s.Neutral++
	}
	s.TotalScore += score
	s.Analyzed++
}

// Update is the wire form of the distribution with pre-formatted
// percentages.
type Update struct {
	Positive        int64  `json:"positive"`
	Neutral         int64  `json:"neutral"`
	Negative        int64  `json:"negative"`
	AverageScore    string `json:"averageScore"`
	PositivePercent string `json:"positivePercent"`
	NeutralPercent  string `json:"neutralPercent"`
	NegativePercent string `json:"negativePercent"`
}

func (s *Stats) Snapshot() Update {
	u := Update{
		Positive:        s.Positive,
		Neutral:         s.Neutral,
		Negative:        s.Negative,
		AverageScore:    "0",
		PositivePercent: "0",
		NeutralPercent:  "0",
		NegativePercent: "0",
	}
	if s.Analyzed == 0 {
		return u
	}
	total := float64(s.Analyzed)
	u.AverageScore = strconv.FormatFloat(s.TotalScore/total, 'f', 2, 64)
	u.PositivePercent = strconv.FormatFloat(float64(s.Positive)/total*100, 'f', 1, 64)
	u.NeutralPercent = strconv.FormatFloat(float64(s.Neutral)/total*100, 'f', 1, 64)
	u.NegativePercent = strconv.FormatFloat(float64(s.Negative)/total*100, 'f', 1, 64)
	return u
}
