package survey

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/case-framework/survey-engine/pkg/docstore"
	"github.com/case-framework/survey-engine/pkg/survey/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu        sync.Mutex
	surveys   map[string]types.Survey
	questions map[string][]types.Question
	hits      int
}

func newMapCache() *mapCache {
	return &mapCache{surveys: map[string]types.Survey{}, questions: map[string][]types.Question{}}
}

func (c *mapCache) GetSurvey(_ context.Context, id string) (*types.Survey, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.surveys[id]
	if ok {
		c.hits++
	}
	return &s, ok
}

func (c *mapCache) SetSurvey(_ context.Context, s types.Survey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.surveys[s.ID] = s
}

func (c *mapCache) GetQuestions(_ context.Context, id string) ([]types.Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	qs, ok := c.questions[id]
	if ok {
		c.hits++
	}
	return qs, ok
}

func (c *mapCache) SetQuestions(_ context.Context, id string, qs []types.Question) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.questions[id] = qs
}

func newTestRepository(t *testing.T, opts ...RepositoryOption) *Repository {
	t.Helper()
	gw := docstore.NewGateway(docstore.NewMemoryStore())
	return NewRepository(gw, opts...)
}

func seedSurvey(t *testing.T, r *Repository) {
	t.Helper()
	ctx := context.Background()
	require.True(t, r.Gateway().CreateDocument(ctx, types.COLLECTION_NAME_SURVEYS, types.Survey{
		Title: types.Text("en", "Feedback", "es", "Opiniones"),
	}, "s1").OK())
	for _, q := range []types.Question{
		{SurveyID: "s1", OrderIndex: 2, QuestionType: types.QUESTION_TYPE_CHECKBOX, QuestionText: types.Plain("third")},
		{SurveyID: "s1", OrderIndex: 0, QuestionType: types.QUESTION_TYPE_SINGLE_LINE, QuestionText: types.Plain("first")},
		{SurveyID: "other", OrderIndex: 1, QuestionType: types.QUESTION_TYPE_SINGLE_LINE, QuestionText: types.Plain("foreign")},
		{SurveyID: "s1", OrderIndex: 1, QuestionType: types.QUESTION_TYPE_MULTI_LINE, QuestionText: types.Plain("second")},
	} {
		require.True(t, r.Gateway().CreateDocument(ctx, types.COLLECTION_NAME_QUESTIONS, q, "").OK())
	}
}

func TestGetSurveyAndQuestions(t *testing.T) {
	r := newTestRepository(t)
	seedSurvey(t, r)
	ctx := context.Background()

	s := r.GetSurvey(ctx, "s1")
	require.True(t, s.OK())
	assert.Equal(t, "s1", s.Value.ID)
	v, _ := s.Value.Title.Get("es")
	assert.Equal(t, "Opiniones", v)

	qs := r.GetSurveyQuestions(ctx, "s1")
	require.True(t, qs.OK())
	texts := []string{}
	for _, q := range qs.Value {
		texts = append(texts, q.QuestionText.PlainValue())
	}
	assert.Equal(t, []string{"first", "second", "third"}, texts)

	assert.True(t, r.GetSurvey(ctx, "missing").NotFound())
	empty := r.GetSurveyQuestions(ctx, "missing")
	assert.True(t, empty.OK())
	assert.Empty(t, empty.Value)
}

func TestDefinitionCacheIsReadThrough(t *testing.T) {
	cache := newMapCache()
	r := newTestRepository(t, WithDefinitionCache(cache))
	seedSurvey(t, r)
	ctx := context.Background()

	require.True(t, r.GetSurvey(ctx, "s1").OK())
	require.True(t, r.GetSurveyQuestions(ctx, "s1").OK())
	assert.Equal(t, 0, cache.hits)

	require.True(t, r.GetSurvey(ctx, "s1").OK())
	qs := r.GetSurveyQuestions(ctx, "s1")
	require.True(t, qs.OK())
	assert.Len(t, qs.Value, 3)
	assert.Equal(t, 2, cache.hits)
}

func TestSaveAnswerTwiceKeepsOneDocument(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	first := r.SaveAnswer(ctx, "sess", "q1", types.TextAnswer("one"))
	require.True(t, first.OK())
	second := r.SaveAnswer(ctx, "sess", "q1", types.TextAnswer("two"))
	require.True(t, second.OK())
	assert.Equal(t, first.Value.ID, second.Value.ID)

	answers := r.GetSessionAnswers(ctx, "sess")
	require.True(t, answers.OK())
	require.Len(t, answers.Value, 1)
	require.NotNil(t, answers.Value[0].AnswerText)
	assert.Equal(t, "two", *answers.Value[0].AnswerText)
	assert.Nil(t, answers.Value[0].AnswerOptions)
	assert.False(t, answers.Value[0].SubmittedAt.IsZero())
}

func TestBatchSaveAnswers(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	res := r.BatchSaveAnswers(ctx, "sess", map[string]types.AnswerValue{
		"q1": types.TextAnswer("a"),
		"q2": types.OptionsAnswer([]string{"x", "y"}),
	})
	require.True(t, res.OK())
	assert.Equal(t, 2, res.Value)

	answers := r.GetSessionAnswers(ctx, "sess")
	require.True(t, answers.OK())
	byQuestion := map[string]types.Answer{}
	for _, a := range answers.Value {
		byQuestion[a.QuestionID] = a
	}
	v, ok := byQuestion["q2"].Value()
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, v.Options)
}

func TestResponseSessionLifecycle(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	gw := docstore.NewGateway(docstore.NewMemoryStore(), docstore.WithClock(func() time.Time { return now }))
	r := NewRepository(gw)
	ctx := context.Background()

	created := r.CreateResponseSession(ctx, types.ResponseSession{
		ID:        "sess",
		SurveyID:  "s1",
		Language:  "es",
		UserAgent: "test-agent",
		Metadata:  types.SessionMetadata{Timezone: "Europe/Madrid", URLParams: map[string]string{"survey": "s1"}},
	})
	require.True(t, created.OK())
	assert.Equal(t, "sess", created.Value.ID)
	assert.True(t, now.Equal(created.Value.CreatedAt))
	assert.Nil(t, created.Value.Referrer)

	require.True(t, r.MarkSessionCompleted(ctx, "sess").Value)

	got := r.GetResponseSession(ctx, "sess")
	require.True(t, got.OK())
	assert.True(t, got.Value.IsComplete)
	require.NotNil(t, got.Value.CompletedAt)
	assert.True(t, now.Equal(*got.Value.CompletedAt))
	assert.Equal(t, "s1", got.Value.Metadata.URLParams["survey"])

	assert.False(t, r.MarkSessionCompleted(ctx, "missing").Value)
}
