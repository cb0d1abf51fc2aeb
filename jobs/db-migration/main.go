package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/case-framework/survey-engine/pkg/survey"
)

func main() {
	defer closeConnections()

	dropIndexes()

	createIndexes()

	getIndexes()

	importSurveys()
}

func dropIndexes() {
	switch conf.TaskConfigs.DropIndexes {
	case DropIndexesModeAll:
		documentDBService.DropIndexes(true)
	case DropIndexesModeDefaults:
		documentDBService.DropIndexes(false)
	}
}

func createIndexes() {
	if !conf.TaskConfigs.CreateIndexes {
		return
	}
	if err := documentDBService.CreateDefaultIndexes(); err != nil {
		slog.Error("Error creating default indexes", slog.String("error", err.Error()))
	}
}

func getIndexes() {
	if !conf.TaskConfigs.GetIndexes {
		return
	}
	indexes, err := documentDBService.ListIndexes()
	if err != nil {
		slog.Error("Error listing indexes", slog.String("error", err.Error()))
		return
	}
	for collection, names := range indexes {
		slog.Info("Indexes", slog.String("collection", collection), slog.String("indexes", strings.Join(names, ",")))
	}
}

func importSurveys() {
	for _, path := range conf.TaskConfigs.ImportSurveys {
		start := time.Now()
		def, err := survey.LoadDefinitionFile(path)
		if err != nil {
			slog.Error("Error reading survey definition", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		res := repository.ImportSurvey(ctx, def)
		cancel()
		if !res.OK() {
			slog.Error("Error importing survey", slog.String("path", path), slog.String("surveyID", def.Survey.ID), slog.String("error", res.Message()))
			continue
		}
		slog.Info("Survey definition imported", slog.String("path", path), slog.String("surveyID", def.Survey.ID), slog.Int("questions", res.Value), slog.String("duration", time.Since(start).String()))
	}
}

func closeConnections() {
	if definitionCache != nil {
		if err := definitionCache.Close(); err != nil {
			slog.Error("Error closing Redis connection", slog.String("error", err.Error()))
		}
	}
	if err := documentDBService.Close(); err != nil {
		slog.Error("Error closing Survey DB connection", slog.String("error", err.Error()))
	}
}
