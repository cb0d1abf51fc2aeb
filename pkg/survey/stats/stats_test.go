package stats

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

func newTestAggregator(t *testing.T, now time.Time) (*Aggregator, *docstore.Gateway) {
	t.Helper()
	gw := docstore.NewGateway(docstore.NewMemoryStore(), docstore.WithClock(func() time.Time { return now }))
	return NewAggregator(gw), gw
}

func TestCompletionRate(t *testing.T) {
	tests := []struct {
		completed int64
		total     int64
		want      float64
	}{
		{completed: 0, total: 0, want: 0},
		{completed: 1, total: 1, want: 100},
		{completed: 1, total: 3, want: 33.33},
		{completed: 2, total: 3, want: 66.67},
		{completed: 0, total: 5, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompletionRate(tt.completed, tt.total))
	}
}

func TestStatsID(t *testing.T) {
	assert.Equal(t, "survey1_2024-01-01", StatsID("survey1", "2024-01-01"))
	assert.Equal(t, "2024-01-01", DateOf(time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)))
	assert.Len(t, Today(), len(DATE_FORMAT))
}

func TestLastDays(t *testing.T) {
	now := time.Date(2024, 3, 1, 23, 30, 0, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, []string{"2024-03-01"}, LastDays(now, 0))
	assert.Equal(t, []string{"2024-02-28", "2024-02-29", "2024-03-01"}, LastDays(now, 3))
}

func TestFirstSessionCreatesRecord(t *testing.T) {
	a, _ := newTestAggregator(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	require.True(t, a.IncrementSurveyStats(ctx, "survey1", "es"))

	res := a.GetStats(ctx, "survey1", "2024-01-01")
	require.True(t, res.OK())
	assert.Equal(t, "survey1_2024-01-01", res.Value.ID)
	assert.Equal(t, "survey1", res.Value.SurveyID)
	assert.Equal(t, "2024-01-01", res.Value.Date)
	assert.Equal(t, int64(1), res.Value.TotalSessions)
	assert.Equal(t, int64(0), res.Value.CompletedSessions)
	assert.Equal(t, float64(0), res.Value.CompletionRate)
	assert.Equal(t, map[string]int64{"es": 1}, res.Value.LanguageBreakdown)
}

func TestConcurrentSessionsAreAllCounted(t *testing.T) {
	a, _ := newTestAggregator(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lang := "en"
			if i%5 == 0 {
				lang = "fr"
			}
			a.IncrementSurveyStats(ctx, "s", lang)
		}(i)
	}
	wg.Wait()

	res := a.GetStats(ctx, "s", "2024-01-01")
	require.True(t, res.OK())
	assert.Equal(t, int64(25), res.Value.TotalSessions)
	assert.Equal(t, map[string]int64{"en": 20, "fr": 5}, res.Value.LanguageBreakdown)
}

func TestRecordCompletion(t *testing.T) {
	a, _ := newTestAggregator(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	assert.False(t, a.RecordCompletion(ctx, "s"), "no record for today")
	assert.True(t, a.GetStats(ctx, "s", "2024-01-01").NotFound())

	for i := 0; i < 3; i++ {
		require.True(t, a.IncrementSurveyStats(ctx, "s", "en"))
	}
	require.True(t, a.RecordCompletion(ctx, "s"))

	res := a.GetStats(ctx, "s", "2024-01-01")
	require.True(t, res.OK())
	assert.Equal(t, int64(1), res.Value.CompletedSessions)
	assert.Equal(t, 33.33, res.Value.CompletionRate)

	require.True(t, a.IncrementSurveyStats(ctx, "s", "en"))
	res = a.GetStats(ctx, "s", "2024-01-01")
	require.True(t, res.OK())
	assert.Equal(t, float64(25), res.Value.CompletionRate)
}

func TestLanguageKeySanitizing(t *testing.T) {
	assert.Equal(t, "es", languageKey("es"))
	assert.Equal(t, UNKNOWN_LANGUAGE, languageKey(""))
	assert.Equal(t, UNKNOWN_LANGUAGE, languageKey("e.s"))
	assert.Equal(t, UNKNOWN_LANGUAGE, languageKey("$where"))
}

func TestReconcile(t *testing.T) {
	day := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := day.Add(d)
		return &ts
	}
	clock := day
	gw := docstore.NewGateway(docstore.NewMemoryStore(), docstore.WithClock(func() time.Time { return clock }))
	a := NewAggregator(gw)
	ctx := context.Background()

	sessions := map[string]types.ResponseSession{
		"sess-a": {SurveyID: "s", Language: "en", IsComplete: true, CompletedAt: at(time.Hour)},
		"sess-b": {SurveyID: "s", Language: "es"},
		// completed after midnight, counted on the next day
		"sess-c": {SurveyID: "s", Language: "es", IsComplete: true, CompletedAt: at(16*time.Hour + 5*time.Minute)},
		"sess-d": {SurveyID: "other", Language: "en", IsComplete: true, CompletedAt: at(time.Hour)},
	}
	for id, s := range sessions {
		require.True(t, gw.CreateDocument(ctx, types.COLLECTION_NAME_RESPONSE_SESSIONS, s, id).OK())
	}

	// started the day before, completed on this day
	clock = day.Add(-8*time.Hour - 10*time.Minute)
	late := types.ResponseSession{SurveyID: "s", Language: "en", IsComplete: true, CompletedAt: at(-7*time.Hour - 50*time.Minute)}
	require.True(t, gw.CreateDocument(ctx, types.COLLECTION_NAME_RESPONSE_SESSIONS, late, "sess-late").OK())

	clock = day.Add(24 * time.Hour)
	require.True(t, gw.CreateDocument(ctx, types.COLLECTION_NAME_RESPONSE_SESSIONS, types.ResponseSession{SurveyID: "s", Language: "en"}, "next-day").OK())

	// an under-counted record as left by racing writers
	clock = day
	require.True(t, a.IncrementSurveyStats(ctx, "s", "en"))

	res := a.Reconcile(ctx, "s", "2024-01-01")
	require.True(t, res.OK())
	assert.Equal(t, int64(3), res.Value.TotalSessions)
	assert.Equal(t, int64(2), res.Value.CompletedSessions)
	assert.Equal(t, 66.67, res.Value.CompletionRate)
	assert.Equal(t, map[string]int64{"en": 1, "es": 2}, res.Value.LanguageBreakdown)

	next := a.Reconcile(ctx, "s", "2024-01-02")
	require.True(t, next.OK())
	assert.Equal(t, int64(1), next.Value.TotalSessions)
	assert.Equal(t, int64(1), next.Value.CompletedSessions)

	before := a.Reconcile(ctx, "s", "2023-12-31")
	require.True(t, before.OK())
	assert.Equal(t, int64(1), before.Value.TotalSessions)
	assert.Equal(t, int64(0), before.Value.CompletedSessions)

	empty := a.Reconcile(ctx, "s", "2023-12-30")
	assert.True(t, empty.NotFound())

	assert.True(t, a.Reconcile(ctx, "s", "not-a-date").Failed())
}
