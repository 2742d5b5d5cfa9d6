package reviews

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aura-webinar/feedbackhub/internal/models"
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision. Timestamps finer than a
// millisecond do not survive a round trip; collectors truncate before storing.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// TimestampPrecision is the resolution preserved by the codec.
const TimestampPrecision = time.Millisecond

// record is the persisted shape of one review. Keys are camelCase so blobs written by
// the browser client stay readable.
type record struct {
	ID              string   `json:"id"`
	Email           string   `json:"email"`
	Name            string   `json:"name,omitempty"`
	Message         string   `json:"message,omitempty"`
	Rating          int      `json:"rating,omitempty"`
	FavoriteSession string   `json:"favoriteSession,omitempty"`
	Improvement     string   `json:"improvement,omitempty"`
	Topics          []string `json:"topics,omitempty"`
	OtherTopic      string   `json:"otherTopic,omitempty"`
	Sentiment       string   `json:"sentiment"`
	Timestamp       string   `json:"timestamp"`
}

// EncodeTimestamp renders t in TimestampLayout.
func EncodeTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// DecodeTimestamp parses any RFC 3339 timestamp, with or without fractional seconds.
func DecodeTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// Encode serializes the collection in order.
func Encode(list []models.Review) ([]byte, error) {
	recs := make([]record, 0, len(list))
	for _, r := range list {
		recs = append(recs, record{
			ID:              r.ID,
			Email:           r.Email,
			Name:            r.Name,
			Message:         r.Message,
			Rating:          r.Rating,
			FavoriteSession: r.FavoriteSession,
			Improvement:     r.Improvement,
			Topics:          r.Topics,
			OtherTopic:      r.OtherTopic,
			Sentiment:       string(r.Sentiment),
			Timestamp:       EncodeTimestamp(r.Timestamp),
		})
	}
	body, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("marshal reviews: %w", err)
	}
	return body, nil
}

// Decode parses a blob written by Encode. Any malformed record fails the whole blob.
func Decode(blob []byte) ([]models.Review, error) {
	var recs []record
	if err := json.Unmarshal(blob, &recs); err != nil {
		return nil, fmt.Errorf("unmarshal reviews: %w", err)
	}
	out := make([]models.Review, 0, len(recs))
	for i, rec := range recs {
		ts, err := DecodeTimestamp(rec.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("review %d: %w", i, err)
		}
		s := models.Sentiment(rec.Sentiment)
		if !s.Valid() {
			return nil, fmt.Errorf("review %d: unknown sentiment %q", i, rec.Sentiment)
		}
		out = append(out, models.Review{
			ID:              rec.ID,
			Email:           rec.Email,
			Name:            rec.Name,
			Message:         rec.Message,
			Rating:          rec.Rating,
			FavoriteSession: rec.FavoriteSession,
			Improvement:     rec.Improvement,
			Topics:          rec.Topics,
			OtherTopic:      rec.OtherTopic,
			Sentiment:       s,
			Timestamp:       ts,
		})
	}
	return out, nil
}
