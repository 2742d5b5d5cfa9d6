// Package collector validates feedback forms, classifies them and appends the result to the store.
package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/aura-webinar/feedbackhub/internal/metrics"
	"github.com/aura-webinar/feedbackhub/internal/models"
	"github.com/aura-webinar/feedbackhub/internal/reviews"
	"github.com/aura-webinar/feedbackhub/internal/sentiment"
)

const (
	FormMessage = "message"
	FormSurvey  = "survey"
)

const (
	msgMissingFields = "Please fill in all required fields"
	msgMissingOther  = "Please specify the other topic"
	msgRatingRange   = "Rating must be between 1 and 5"
)

// ValidationError reports the first field that blocked a submission. Nothing is stored.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// MessageForm is the free-text form: name, email and a message.
type MessageForm struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// SurveyForm is the event survey.
type SurveyForm struct {
	Email           string   `json:"email"`
	Rating          int      `json:"rating"`
	FavoriteSession string   `json:"favorite_session"`
	Improvement     string   `json:"improvement"`
	Topics          []string `json:"topics"`
	OtherTopic      string   `json:"other_topic"`
}

// Appender is the store operation the collector needs.
type Appender interface {
	Append(ctx context.Context, r models.Review) error
}

// Collector turns forms into stored reviews.
type Collector struct {
	store   Appender
	clock   clockwork.Clock
	message sentiment.Policy
	survey  sentiment.Policy
	logger  *zap.Logger
}

// NewCollector creates a collector. A nil surveyPolicy selects the rating-weighted policy.
func NewCollector(store Appender, clock clockwork.Clock, surveyPolicy sentiment.Policy, logger *zap.Logger) *Collector {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if surveyPolicy == nil {
		surveyPolicy = sentiment.NewRatingWeighted()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		store:   store,
		clock:   clock,
		message: sentiment.NewKeyword(),
		survey:  surveyPolicy,
		logger:  logger,
	}
}

// SubmitMessage validates and stores a message form.
func (c *Collector) SubmitMessage(ctx context.Context, f MessageForm) (models.Review, error) {
	if err := validateMessage(f); err != nil {
		metrics.ValidationFailuresTotal.WithLabelValues(FormMessage, err.Field).Inc()
		return models.Review{}, err
	}
	r := models.Review{
		Name:    f.Name,
		Email:   f.Email,
		Message: f.Message,
	}
	r.Sentiment = c.message.Classify(sentiment.Input{Message: f.Message})
	return c.persist(ctx, FormMessage, r)
}

// SubmitSurvey validates and stores an event survey.
func (c *Collector) SubmitSurvey(ctx context.Context, f SurveyForm) (models.Review, error) {
	topics := uniqueTopics(f.Topics)
	if err := validateSurvey(f, topics); err != nil {
		metrics.ValidationFailuresTotal.WithLabelValues(FormSurvey, err.Field).Inc()
		return models.Review{}, err
	}
	r := models.Review{
		Email:           f.Email,
		Rating:          f.Rating,
		FavoriteSession: f.FavoriteSession,
		Improvement:     f.Improvement,
		Topics:          topics,
	}
	if hasTopic(topics, models.TopicOther) {
		r.OtherTopic = f.OtherTopic
	}
	r.Sentiment = c.survey.Classify(sentiment.Input{
		Rating:          f.Rating,
		FavoriteSession: f.FavoriteSession,
		Improvement:     f.Improvement,
	})
	return c.persist(ctx, FormSurvey, r)
}

func (c *Collector) persist(ctx context.Context, form string, r models.Review) (models.Review, error) {
	r.ID = newID()
	r.Timestamp = c.clock.Now().UTC().Truncate(reviews.TimestampPrecision)
	if err := c.store.Append(ctx, r); err != nil {
		c.logger.Error("store review", zap.String("form", form), zap.String("id", r.ID), zap.Error(err))
		return models.Review{}, fmt.Errorf("store review: %w", err)
	}
	metrics.SubmissionsTotal.WithLabelValues(form, string(r.Sentiment)).Inc()
	c.logger.Info("feedback collected",
		zap.String("form", form),
		zap.String("id", r.ID),
		zap.String("sentiment", string(r.Sentiment)),
	)
	return r, nil
}

// newID returns a time-ordered UUID (v7), falling back to a random one.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func validateMessage(f MessageForm) *ValidationError {
	switch {
	case blank(f.Name):
		return &ValidationError{Field: "name", Message: msgMissingFields}
	case blank(f.Email):
		return &ValidationError{Field: "email", Message: msgMissingFields}
	case blank(f.Message):
		return &ValidationError{Field: "message", Message: msgMissingFields}
	}
	return nil
}

func validateSurvey(f SurveyForm, topics []string) *ValidationError {
	switch {
	case blank(f.Email):
		return &ValidationError{Field: "email", Message: msgMissingFields}
	case f.Rating == 0:
		return &ValidationError{Field: "rating", Message: msgMissingFields}
	case f.Rating < 1 || f.Rating > 5:
		return &ValidationError{Field: "rating", Message: msgRatingRange}
	case blank(f.FavoriteSession):
		return &ValidationError{Field: "favorite_session", Message: msgMissingFields}
	case blank(f.Improvement):
		return &ValidationError{Field: "improvement", Message: msgMissingFields}
	case len(topics) == 0:
		return &ValidationError{Field: "topics", Message: msgMissingFields}
	case hasTopic(topics, models.TopicOther) && blank(f.OtherTopic):
		return &ValidationError{Field: "other_topic", Message: msgMissingOther}
	}
	return nil
}

// uniqueTopics drops blanks and duplicates, keeping first-seen order.
func uniqueTopics(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		if blank(t) {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func hasTopic(topics []string, want string) bool {
	for _, t := range topics {
		if t == want {
			return true
		}
	}
	return false
}
