package sentiment

import (
	"strings"

	"github.com/aura-webinar/feedbackhub/internal/models"
)

// Input carries every field a policy may look at.
type Input struct {
	Message         string
	Rating          int
	FavoriteSession string
	Improvement     string
}

// Policy maps feedback content to a sentiment label.
type Policy interface {
	Classify(in Input) models.Sentiment
}

// Word lists used by the message form.
var (
	PositiveWords = []string{"great", "excellent", "amazing", "wonderful", "fantastic", "love", "perfect", "awesome", "best", "good"}
	NegativeWords = []string{"bad", "terrible", "awful", "poor", "worst", "hate", "disappointed", "useless", "boring", "horrible"}
)

// Extended word lists used to break ties on middle ratings.
var (
	ExtendedPositiveWords = append(append([]string{}, PositiveWords...),
		"helpful", "insightful", "inspiring", "enjoyed", "informative", "engaging", "brilliant", "nice", "useful", "interesting")
	ExtendedNegativeWords = append(append([]string{}, NegativeWords...),
		"confusing", "slow", "crowded", "noisy", "messy", "rushed", "waste", "unclear", "dull", "annoying")
)

// Keyword classifies the message text by counting list words it contains.
type Keyword struct {
	Positive []string
	Negative []string
}

// NewKeyword returns the keyword policy with the default word lists.
func NewKeyword() Keyword {
	return Keyword{Positive: PositiveWords, Negative: NegativeWords}
}

// Classify implements Policy over Input.Message.
func (k Keyword) Classify(in Input) models.Sentiment {
	return k.score(in.Message)
}

func (k Keyword) score(text string) models.Sentiment {
	lower := strings.ToLower(text)
	p := countHits(lower, k.Positive)
	n := countHits(lower, k.Negative)
	switch {
	case p > n:
		return models.SentimentPositive
	case n > p:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// countHits counts distinct words contained in text. Duplicate list entries count once.
func countHits(text string, words []string) int {
	seen := make(map[string]struct{}, len(words))
	hits := 0
	for _, w := range words {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if strings.Contains(text, w) {
			hits++
		}
	}
	return hits
}

// RatingWeighted short-circuits on high and low ratings and falls back to keywords at 3.
type RatingWeighted struct {
	Keywords Keyword
}

// NewRatingWeighted returns the rating policy with the extended word lists.
func NewRatingWeighted() RatingWeighted {
	return RatingWeighted{Keywords: Keyword{Positive: ExtendedPositiveWords, Negative: ExtendedNegativeWords}}
}

// textSeparator joins improvement and favorite session before matching.
const textSeparator = " "

// Classify implements Policy.
func (r RatingWeighted) Classify(in Input) models.Sentiment {
	if in.Rating >= 4 {
		return models.SentimentPositive
	}
	if in.Rating <= 2 {
		return models.SentimentNegative
	}
	return r.Keywords.score(SurveyText(in))
}

// SurveyText is the text the keyword policy sees when it classifies a survey.
func SurveyText(in Input) string {
	return in.Improvement + textSeparator + in.FavoriteSession
}

// SurveyKeyword classifies survey submissions by their text only, ignoring the rating.
type SurveyKeyword struct {
	Keywords Keyword
}

// Classify implements Policy.
func (s SurveyKeyword) Classify(in Input) models.Sentiment {
	return s.Keywords.score(SurveyText(in))
}

// ForSurvey resolves the configured survey policy name. Unknown names fall back to rating.
func ForSurvey(name string) Policy {
	if strings.EqualFold(name, "keyword") {
		return SurveyKeyword{Keywords: NewRatingWeighted().Keywords}
	}
	return NewRatingWeighted()
}
