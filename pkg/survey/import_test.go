package survey

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/case-framework/survey-engine/pkg/survey/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const definitionJSON = `{
  "survey": {
    "id": "feedback",
    "title": {"en": "Feedback", "es": "Opiniones"},
    "thankYouMessage": "Thanks!"
  },
  "questions": [
    {"id": "name", "questionType": "single_line", "required": true, "orderIndex": 1,
     "questionText": {"en": "Your name?"}, "validationRules": {"maxLength": 40}},
    {"questionType": "checkbox", "orderIndex": 0,
     "questionText": "Pick some", "options": {"en": ["a", "b"], "es": ["x", "y"]}}
  ]
}`

func TestLoadDefinitionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	require.NoError(t, os.WriteFile(path, []byte(definitionJSON), 0o600))

	def, err := LoadDefinitionFile(path)
	require.NoError(t, err)
	assert.Equal(t, "feedback", def.Survey.ID)
	require.Len(t, def.Questions, 2)
	require.NotNil(t, def.Questions[0].ValidationRules.MaxLength)
	assert.Equal(t, 40, *def.Questions[0].ValidationRules.MaxLength)

	_, err = LoadDefinitionFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	broken := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"survey":`), 0o600))
	_, err = LoadDefinitionFile(broken)
	assert.Error(t, err)
}

func TestImportSurvey(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	r := newTestRepository(t, WithDefinitionCache(cache))

	path := filepath.Join(t.TempDir(), "feedback.json")
	require.NoError(t, os.WriteFile(path, []byte(definitionJSON), 0o600))
	def, err := LoadDefinitionFile(path)
	require.NoError(t, err)

	res := r.ImportSurvey(ctx, def)
	require.True(t, res.OK(), res.Message())
	assert.Equal(t, 2, res.Value)

	cached, ok := cache.GetQuestions(ctx, "feedback")
	require.True(t, ok)
	assert.Equal(t, "feedback_q2", cached[0].ID)
	assert.Equal(t, "name", cached[1].ID)

	fresh := NewRepository(r.Gateway())
	questions := fresh.GetSurveyQuestions(ctx, "feedback")
	require.True(t, questions.OK())
	require.Len(t, questions.Value, 2)
	assert.Equal(t, "feedback_q2", questions.Value[0].ID)
	assert.Equal(t, "feedback", questions.Value[0].SurveyID)

	def.Survey.Title = types.Plain("Feedback 2")
	require.True(t, r.ImportSurvey(ctx, def).OK())
	s := fresh.GetSurvey(ctx, "feedback")
	require.True(t, s.OK())
	assert.Equal(t, "Feedback 2", s.Value.Title.PlainValue())
	assert.Len(t, fresh.GetSurveyQuestions(ctx, "feedback").Value, 2, "re-import overwrites")
}

func TestImportSurveyWithoutID(t *testing.T) {
	r := newTestRepository(t)
	res := r.ImportSurvey(context.Background(), types.SurveyDefinition{})
	assert.True(t, res.Failed())
}
