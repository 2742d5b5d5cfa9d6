package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/feedbackhub/internal/models"
	"github.com/aura-webinar/feedbackhub/internal/reviews"
	"github.com/aura-webinar/feedbackhub/internal/sentiment"
	"github.com/aura-webinar/feedbackhub/pkg/kv"
)

type mockAppender struct {
	mu       sync.Mutex
	appended []models.Review
	err      error
}

func (m *mockAppender) Append(_ context.Context, r models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.appended = append(m.appended, r)
	return nil
}

func (m *mockAppender) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.appended)
}

var submittedAt = time.Date(2025, 11, 8, 17, 45, 12, 987654321, time.UTC)

func newTestCollector(store Appender) *Collector {
	return NewCollector(store, clockwork.NewFakeClockAt(submittedAt), nil, nil)
}

func validSurvey() SurveyForm {
	return SurveyForm{
		Email:           "a@b.com",
		Rating:          5,
		FavoriteSession: "Talk X",
		Improvement:     "more snacks",
		Topics:          []string{"AI & ML"},
	}
}

func TestSubmitSurvey_PositiveExample(t *testing.T) {
	store := &mockAppender{}
	c := newTestCollector(store)

	r, err := c.SubmitSurvey(context.Background(), validSurvey())
	require.NoError(t, err)

	assert.Equal(t, models.SentimentPositive, r.Sentiment)
	assert.Equal(t, "a@b.com", r.Email)
	assert.Equal(t, []string{"AI & ML"}, r.Topics)
	assert.Equal(t, submittedAt.Truncate(time.Millisecond), r.Timestamp)
	id, err := uuid.Parse(r.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	require.Equal(t, 1, store.calls())
	assert.Equal(t, r, store.appended[0])
}

func TestSubmitSurvey_NegativeExample(t *testing.T) {
	c := newTestCollector(&mockAppender{})
	f := validSurvey()
	f.Rating = 3
	f.FavoriteSession = "fine"
	f.Improvement = "it was terrible and boring"

	r, err := c.SubmitSurvey(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, models.SentimentNegative, r.Sentiment)
}

func TestSubmitSurvey_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SurveyForm)
		field  string
		msg    string
	}{
		{"missing email", func(f *SurveyForm) { f.Email = "" }, "email", msgMissingFields},
		{"blank email", func(f *SurveyForm) { f.Email = "   " }, "email", msgMissingFields},
		{"missing rating", func(f *SurveyForm) { f.Rating = 0 }, "rating", msgMissingFields},
		{"rating too high", func(f *SurveyForm) { f.Rating = 6 }, "rating", msgRatingRange},
		{"negative rating", func(f *SurveyForm) { f.Rating = -1 }, "rating", msgRatingRange},
		{"missing favorite session", func(f *SurveyForm) { f.FavoriteSession = "" }, "favorite_session", msgMissingFields},
		{"missing improvement", func(f *SurveyForm) { f.Improvement = "" }, "improvement", msgMissingFields},
		{"no topics", func(f *SurveyForm) { f.Topics = nil }, "topics", msgMissingFields},
		{"only blank topics", func(f *SurveyForm) { f.Topics = []string{" "} }, "topics", msgMissingFields},
		{"other without text", func(f *SurveyForm) { f.Topics = []string{"Other"} }, "other_topic", msgMissingOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockAppender{}
			c := newTestCollector(store)
			f := validSurvey()
			tt.mutate(&f)

			_, err := c.SubmitSurvey(context.Background(), f)
			require.Error(t, err)
			assert.True(t, IsValidation(err))

			var v *ValidationError
			require.ErrorAs(t, err, &v)
			assert.Equal(t, tt.field, v.Field)
			assert.Equal(t, tt.msg, v.Message)
			assert.Equal(t, 0, store.calls(), "nothing stored on validation failure")
		})
	}
}

func TestSubmitSurvey_OtherTopic(t *testing.T) {
	c := newTestCollector(&mockAppender{})

	f := validSurvey()
	f.Topics = []string{"Other", "AI & ML", "Other"}
	f.OtherTopic = "Rust"
	r, err := c.SubmitSurvey(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, []string{"Other", "AI & ML"}, r.Topics)
	assert.Equal(t, "Rust", r.OtherTopic)

	f = validSurvey()
	f.OtherTopic = "ignored"
	r, err = c.SubmitSurvey(context.Background(), f)
	require.NoError(t, err)
	assert.Empty(t, r.OtherTopic)
}

func TestSubmitSurvey_KeywordPolicyIgnoresRating(t *testing.T) {
	c := NewCollector(&mockAppender{}, clockwork.NewFakeClock(), sentiment.ForSurvey("keyword"), nil)
	f := validSurvey()
	f.Improvement = "the wifi was awful"

	r, err := c.SubmitSurvey(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, models.SentimentNegative, r.Sentiment)
}

func TestSubmitMessage(t *testing.T) {
	store := &mockAppender{}
	c := newTestCollector(store)

	r, err := c.SubmitMessage(context.Background(), MessageForm{Name: "Ada", Email: "ada@b.com", Message: "Great event, loved it"})
	require.NoError(t, err)
	assert.Equal(t, models.SentimentPositive, r.Sentiment)
	assert.Equal(t, "Ada", r.Name)
	assert.Zero(t, r.Rating)

	_, err = c.SubmitMessage(context.Background(), MessageForm{Name: "Ada", Email: "ada@b.com"})
	var v *ValidationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "message", v.Field)
	assert.Equal(t, 1, store.calls())
}

func TestSubmit_StoreErrorPropagates(t *testing.T) {
	c := newTestCollector(&mockAppender{err: errors.New("redis down")})
	_, err := c.SubmitSurvey(context.Background(), validSurvey())
	require.Error(t, err)
	assert.False(t, IsValidation(err))
}

func TestSubmit_IDsAreUniqueInStore(t *testing.T) {
	ctx := context.Background()
	store := reviews.NewStore(kv.NewMemory("a"), reviews.DefaultKey, nil, nil)
	c := newTestCollector(store)

	for i := 0; i < 5; i++ {
		_, err := c.SubmitSurvey(ctx, validSurvey())
		require.NoError(t, err)
	}
	list := store.Load(ctx)
	require.Len(t, list, 5)
	seen := map[string]bool{}
	for _, r := range list {
		assert.False(t, seen[r.ID])
		seen[r.ID] = true
	}
}
