package stats

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/case-framework/survey-engine/pkg/docstore"
	"github.com/case-framework/survey-engine/pkg/survey/types"
	"go.mongodb.org/mongo-driver/bson"
)

const DATE_FORMAT = "2006-01-02"

const UNKNOWN_LANGUAGE = "unknown"

// Aggregator keeps one counter document per survey and UTC day.
type Aggregator struct {
	gateway *docstore.Gateway
}

func NewAggregator(gateway *docstore.Gateway) *Aggregator {
	return &Aggregator{gateway: gateway}
}

func StatsID(surveyID string, date string) string {
	return fmt.Sprintf("%s_%s", surveyID, date)
}

// Today is the current UTC date in stats id form.
func Today() string {
	return DateOf(time.Now())
}

func DateOf(t time.Time) string {
	return t.UTC().Format(DATE_FORMAT)
}

// LastDays lists the n UTC dates ending with the day of now, oldest first.
// n below one counts as one.
func LastDays(now time.Time, n int) []string {
	if n < 1 {
		n = 1
	}
	dates := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		dates = append(dates, DateOf(now.AddDate(0, 0, -i)))
	}
	return dates
}

// CompletionRate is completed/total as a percentage rounded to two decimals,
// 0 when total is 0.
func CompletionRate(completed int64, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*100*100) / 100
}

// languageKey keeps a language code usable as a document field name.
func languageKey(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" || strings.ContainsAny(lang, ".$") {
		return UNKNOWN_LANGUAGE
	}
	return lang
}

// IncrementSurveyStats counts a new session for today in the given language.
// Failures are logged and reported as false; they never reach the respondent.
func (a *Aggregator) IncrementSurveyStats(ctx context.Context, surveyID string, lang string) bool {
	date := DateOf(a.gateway.Now())
	res := a.gateway.IncrementDocument(ctx, types.COLLECTION_NAME_SURVEY_STATS, StatsID(surveyID, date),
		bson.D{
			{Key: "total_sessions", Value: int64(1)},
			{Key: "language_breakdown." + languageKey(lang), Value: int64(1)},
		},
		bson.D{
			{Key: "survey_id", Value: surveyID},
			{Key: "date", Value: date},
			{Key: "completed_sessions", Value: int64(0)},
			{Key: "completion_rate", Value: float64(0)},
		},
		true,
	)
	if !res.OK() {
		slog.Error("failed to increment survey stats", slog.String("surveyID", surveyID), slog.String("date", date), slog.String("error", res.Message()))
		return false
	}
	a.refreshCompletionRate(ctx, res.Value)
	return true
}

// RecordCompletion counts a completed session for today and recomputes the
// completion rate. Without a record for today nothing is written.
func (a *Aggregator) RecordCompletion(ctx context.Context, surveyID string) bool {
	date := DateOf(a.gateway.Now())
	res := a.gateway.IncrementDocument(ctx, types.COLLECTION_NAME_SURVEY_STATS, StatsID(surveyID, date),
		bson.D{{Key: "completed_sessions", Value: int64(1)}},
		nil,
		false,
	)
	if res.NotFound() {
		slog.Warn("no stats record to record completion in", slog.String("surveyID", surveyID), slog.String("date", date))
		return false
	}
	if !res.OK() {
		slog.Error("failed to record survey completion", slog.String("surveyID", surveyID), slog.String("date", date), slog.String("error", res.Message()))
		return false
	}
	return a.refreshCompletionRate(ctx, res.Value)
}

func (a *Aggregator) refreshCompletionRate(ctx context.Context, doc docstore.Document) bool {
	var current types.SurveyStats
	if err := doc.Decode(&current); err != nil {
		slog.Error("unreadable stats record", slog.String("id", doc.ID), slog.String("error", err.Error()))
		return false
	}
	rate := CompletionRate(current.CompletedSessions, current.TotalSessions)
	if rate == current.CompletionRate {
		return true
	}
	res := a.gateway.UpdateDocument(ctx, types.COLLECTION_NAME_SURVEY_STATS, doc.ID, bson.D{{Key: "completion_rate", Value: rate}})
	if !res.Value {
		slog.Error("failed to update completion rate", slog.String("id", doc.ID), slog.String("error", res.Message()))
	}
	return res.Value
}

func (a *Aggregator) GetStats(ctx context.Context, surveyID string, date string) docstore.Result[types.SurveyStats] {
	return docstore.Decode[types.SurveyStats](a.gateway.GetDocument(ctx, types.COLLECTION_NAME_SURVEY_STATS, StatsID(surveyID, date)))
}

// Reconcile recomputes the record of one day from the response sessions,
// repairing counts lost to concurrent writers. Sessions count on the day they
// were created and completions on the day they completed, as the live
// counters do. A day without activity and without a record is left alone.
func (a *Aggregator) Reconcile(ctx context.Context, surveyID string, date string) docstore.Result[types.SurveyStats] {
	start, err := time.ParseInLocation(DATE_FORMAT, date, time.UTC)
	if err != nil {
		return docstore.Failed(types.SurveyStats{}, fmt.Errorf("invalid stats date %q: %w", date, err))
	}
	end := start.Add(24 * time.Hour)

	sessions := docstore.DecodeAll[types.ResponseSession](a.gateway.GetDocuments(ctx,
		types.COLLECTION_NAME_RESPONSE_SESSIONS,
		[]docstore.Condition{
			docstore.Where("survey_id", docstore.OP_EQUAL, surveyID),
			docstore.Where("created_at", docstore.OP_GREATER_OR_EQUAL, start),
			docstore.Where("created_at", docstore.OP_LESS, end),
		},
		"", "",
	))
	if !sessions.OK() {
		return docstore.Failed(types.SurveyStats{}, sessions.Err)
	}

	completed := docstore.DecodeAll[types.ResponseSession](a.gateway.GetDocuments(ctx,
		types.COLLECTION_NAME_RESPONSE_SESSIONS,
		[]docstore.Condition{
			docstore.Where("survey_id", docstore.OP_EQUAL, surveyID),
			docstore.Where("completed_at", docstore.OP_GREATER_OR_EQUAL, start),
			docstore.Where("completed_at", docstore.OP_LESS, end),
		},
		"", "",
	))
	if !completed.OK() {
		return docstore.Failed(types.SurveyStats{}, completed.Err)
	}

	recomputed := types.SurveyStats{
		SurveyID:          surveyID,
		Date:              date,
		LanguageBreakdown: map[string]int64{},
	}
	for _, s := range sessions.Value {
		recomputed.TotalSessions++
		recomputed.LanguageBreakdown[languageKey(s.Language)]++
	}
	for _, s := range completed.Value {
		if s.IsComplete {
			recomputed.CompletedSessions++
		}
	}
	recomputed.CompletionRate = CompletionRate(recomputed.CompletedSessions, recomputed.TotalSessions)

	existing := a.GetStats(ctx, surveyID, date)
	if existing.Failed() {
		return existing
	}
	if existing.NotFound() && recomputed.TotalSessions == 0 && recomputed.CompletedSessions == 0 {
		return existing
	}

	res := docstore.Decode[types.SurveyStats](a.gateway.CreateDocument(ctx, types.COLLECTION_NAME_SURVEY_STATS, recomputed, StatsID(surveyID, date)))
	if res.OK() {
		slog.Info("survey stats reconciled",
			slog.String("surveyID", surveyID),
			slog.String("date", date),
			slog.Int64("total", recomputed.TotalSessions),
			slog.Int64("completed", recomputed.CompletedSessions),
		)
	}
	return res
}
