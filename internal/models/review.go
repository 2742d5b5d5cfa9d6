package models

import "time"

// Sentiment is the classification label attached to a review at creation time.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Valid reports whether s is one of the three known labels.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// TopicOther is the topic that requires OtherTopic to be filled in.
const TopicOther = "Other"

// Topics is the catalog offered by the event survey form.
var Topics = []string{
	"AI & ML",
	"Cloud Computing",
	"Android & Flutter",
	"Web & Frontend",
	"Women Techmakers",
	"Startups & Product",
	TopicOther,
}

// Review is a classified feedback submission. It is never mutated after creation.
// Name/Message are set by the message form; Rating through OtherTopic by the event survey.
type Review struct {
	ID    string `json:"id"`
	Email string `json:"email"`

	Name    string `json:"name,omitempty"`
	Message string `json:"message,omitempty"`

	Rating          int      `json:"rating,omitempty"`
	FavoriteSession string   `json:"favorite_session,omitempty"`
	Improvement     string   `json:"improvement,omitempty"`
	Topics          []string `json:"topics,omitempty"`
	OtherTopic      string   `json:"other_topic,omitempty"`

	Sentiment Sentiment `json:"sentiment"`
	Timestamp time.Time `json:"timestamp"`
}

// IsPositive reports whether the review belongs to the positive subset.
func (r Review) IsPositive() bool {
	return r.Sentiment == SentimentPositive
}

// DisplayTopics returns Topics with "Other" replaced by OtherTopic when one was given.
func (r Review) DisplayTopics() []string {
	out := make([]string, 0, len(r.Topics))
	for _, t := range r.Topics {
		if t == TopicOther && r.OtherTopic != "" {
			out = append(out, r.OtherTopic)
			continue
		}
		out = append(out, t)
	}
	return out
}

// FilterMode selects which reviews the dashboard displays.
type FilterMode string

const (
	FilterAll      FilterMode = "all"
	FilterPositive FilterMode = "positive"
)

// Valid reports whether m is a known filter mode.
func (m FilterMode) Valid() bool {
	return m == FilterAll || m == FilterPositive
}
