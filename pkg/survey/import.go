package survey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/case-framework/survey-engine/pkg/docstore"
	"github.com/case-framework/survey-engine/pkg/survey/types"
)

// LoadDefinitionFile reads a JSON survey definition.
func LoadDefinitionFile(path string) (types.SurveyDefinition, error) {
	var def types.SurveyDefinition
	data, err := os.ReadFile(path)
	if err != nil {
		return def, err
	}
	if err := json.Unmarshal(data, &def); err != nil {
		return def, fmt.Errorf("parse %s: %w", path, err)
	}
	return def, nil
}

// ImportSurvey writes a survey and its questions, overwriting documents with
// the same ids. Questions without an id get "<surveyID>_q<n>". Stored
// questions missing from the definition are kept and reported in the log.
// The value is the number of questions written.
func (r *Repository) ImportSurvey(ctx context.Context, def types.SurveyDefinition) docstore.Result[int] {
	surveyID := def.Survey.ID
	if surveyID == "" {
		return docstore.Failed(0, errors.New("survey id missing"))
	}

	existing := r.GetSurveyQuestions(ctx, surveyID)

	if res := r.gateway.CreateDocument(ctx, types.COLLECTION_NAME_SURVEYS, def.Survey, surveyID); !res.OK() {
		return docstore.Failed(0, res.Err)
	}

	questions := make([]types.Question, len(def.Questions))
	imported := map[string]bool{}
	for i, q := range def.Questions {
		q.SurveyID = surveyID
		if q.ID == "" {
			q.ID = fmt.Sprintf("%s_q%d", surveyID, i+1)
		}
		if res := r.gateway.CreateDocument(ctx, types.COLLECTION_NAME_QUESTIONS, q, q.ID); !res.OK() {
			slog.Error("failed to import question", slog.String("surveyID", surveyID), slog.String("questionID", q.ID), slog.String("error", res.Message()))
			return docstore.Failed(i, res.Err)
		}
		questions[i] = q
		imported[q.ID] = true
	}

	for _, q := range existing.Value {
		if !imported[q.ID] {
			slog.Warn("stored question not in imported definition", slog.String("surveyID", surveyID), slog.String("questionID", q.ID))
		}
	}

	if r.cache != nil {
		sort.SliceStable(questions, func(i, j int) bool { return questions[i].OrderIndex < questions[j].OrderIndex })
		r.cache.SetSurvey(ctx, def.Survey)
		r.cache.SetQuestions(ctx, surveyID, questions)
	}
	slog.Info("survey imported", slog.String("surveyID", surveyID), slog.Int("questions", len(questions)))
	return docstore.Ok(len(questions))
}
