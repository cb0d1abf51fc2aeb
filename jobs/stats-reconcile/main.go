package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/case-framework/survey-engine/pkg/survey/stats"
	"github.com/case-framework/survey-engine/pkg/utils"
)

const DEFAULT_RECONCILE_TIMEOUT = 2 * time.Minute

func main() {
	slog.Info("Starting stats reconcile job")
	start := time.Now()
	defer func() {
		if err := documentDBService.Close(); err != nil {
			slog.Error("Error closing Survey DB connection", slog.String("error", err.Error()))
		}
	}()

	dates := datesToReconcile(time.Now(), conf.ReconcileConfig.Dates, conf.ReconcileConfig.DaysBack)
	timeout := utils.ParseDurationOrDefault(conf.ReconcileConfig.Timeout, DEFAULT_RECONCILE_TIMEOUT)

	counter := 0
	for _, surveyID := range conf.SurveyIDs {
		slog.Debug("Start reconciling stats for survey", slog.String("surveyID", surveyID), slog.Int("days", len(dates)))
		for _, date := range dates {
			if reconcile(surveyID, date, timeout) {
				counter++
			}
		}
	}

	slog.Info("Stats reconcile job completed", slog.Int("updatedRecords", counter), slog.String("duration", time.Since(start).String()))
}

func reconcile(surveyID string, date string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res := statsAggregator.Reconcile(ctx, surveyID, date)
	switch {
	case res.NotFound():
		slog.Debug("No sessions to reconcile", slog.String("surveyID", surveyID), slog.String("date", date))
		return false
	case res.Failed():
		slog.Error("Failed to reconcile stats", slog.String("surveyID", surveyID), slog.String("date", date), slog.String("error", res.Message()))
		return false
	}
	return true
}

// datesToReconcile returns the configured dates, or the last daysBack UTC
// days ending today, oldest first. Malformed dates are skipped.
func datesToReconcile(now time.Time, configured []string, daysBack int) []string {
	if len(configured) > 0 {
		dates := make([]string, 0, len(configured))
		for _, d := range configured {
			if _, err := time.Parse(stats.DATE_FORMAT, d); err != nil {
				slog.Warn("Skipping malformed date", slog.String("date", d))
				continue
			}
			dates = append(dates, d)
		}
		return dates
	}

	return stats.LastDays(now, daysBack)
}
