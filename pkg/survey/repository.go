package survey

import (
	"context"
	"sort"

	"github.com/case-framework/survey-engine/pkg/docstore"
	"github.com/case-framework/survey-engine/pkg/survey/types"
	"go.mongodb.org/mongo-driver/bson"
)

// DefinitionCache keeps survey definitions close to the engine. Survey and
// question documents never change while respondents take the survey.
type DefinitionCache interface {
	GetSurvey(ctx context.Context, surveyID string) (*types.Survey, bool)
	SetSurvey(ctx context.Context, survey types.Survey)
	GetQuestions(ctx context.Context, surveyID string) ([]types.Question, bool)
	SetQuestions(ctx context.Context, surveyID string, questions []types.Question)
}

type Repository struct {
	gateway *docstore.Gateway
	cache   DefinitionCache
}

type RepositoryOption func(*Repository)

func WithDefinitionCache(cache DefinitionCache) RepositoryOption {
	return func(r *Repository) {
		r.cache = cache
	}
}

func NewRepository(gateway *docstore.Gateway, opts ...RepositoryOption) *Repository {
	r := &Repository{gateway: gateway}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) Gateway() *docstore.Gateway {
	return r.gateway
}

func (r *Repository) GetSurvey(ctx context.Context, surveyID string) docstore.Result[types.Survey] {
	if r.cache != nil {
		if s, ok := r.cache.GetSurvey(ctx, surveyID); ok {
			return docstore.Ok(*s)
		}
	}
	res := docstore.Decode[types.Survey](r.gateway.GetDocument(ctx, types.COLLECTION_NAME_SURVEYS, surveyID))
	if res.OK() && r.cache != nil {
		r.cache.SetSurvey(ctx, res.Value)
	}
	return res
}

// GetSurveyQuestions returns the questions of a survey by ascending
// order_index.
func (r *Repository) GetSurveyQuestions(ctx context.Context, surveyID string) docstore.Result[[]types.Question] {
	if r.cache != nil {
		if qs, ok := r.cache.GetQuestions(ctx, surveyID); ok {
			return docstore.Ok(qs)
		}
	}
	res := docstore.DecodeAll[types.Question](r.gateway.GetDocuments(ctx,
		types.COLLECTION_NAME_QUESTIONS,
		[]docstore.Condition{docstore.Where("survey_id", docstore.OP_EQUAL, surveyID)},
		"order_index", docstore.SORT_ASC,
	))
	if !res.OK() {
		return res
	}
	// stores may break order_index ties differently
	sort.SliceStable(res.Value, func(i, j int) bool {
		return res.Value[i].OrderIndex < res.Value[j].OrderIndex
	})
	if r.cache != nil && len(res.Value) > 0 {
		r.cache.SetQuestions(ctx, surveyID, res.Value)
	}
	return res
}

// CreateResponseSession writes the session at its caller supplied id,
// overwriting any document already stored there.
func (r *Repository) CreateResponseSession(ctx context.Context, session types.ResponseSession) docstore.Result[types.ResponseSession] {
	id := session.ID
	session.ID = ""
	return docstore.Decode[types.ResponseSession](r.gateway.CreateDocument(ctx, types.COLLECTION_NAME_RESPONSE_SESSIONS, session, id))
}

func (r *Repository) GetResponseSession(ctx context.Context, sessionID string) docstore.Result[types.ResponseSession] {
	return docstore.Decode[types.ResponseSession](r.gateway.GetDocument(ctx, types.COLLECTION_NAME_RESPONSE_SESSIONS, sessionID))
}

func (r *Repository) UpdateResponseSession(ctx context.Context, sessionID string, fields bson.D) docstore.Result[bool] {
	return r.gateway.UpdateDocument(ctx, types.COLLECTION_NAME_RESPONSE_SESSIONS, sessionID, fields)
}

// MarkSessionCompleted flags the session complete with the gateway's clock as
// completion time.
func (r *Repository) MarkSessionCompleted(ctx context.Context, sessionID string) docstore.Result[bool] {
	return r.UpdateResponseSession(ctx, sessionID, bson.D{
		{Key: "is_complete", Value: true},
		{Key: "completed_at", Value: r.gateway.Now()},
	})
}

// SaveAnswer stores the answer of one question in one session. There is at
// most one answer document per (session, question); saving again replaces
// its value.
func (r *Repository) SaveAnswer(ctx context.Context, sessionID string, questionID string, value types.AnswerValue) docstore.Result[types.Answer] {
	text, options := value.StoredFields()
	return docstore.Decode[types.Answer](r.gateway.UpsertDocument(ctx,
		types.COLLECTION_NAME_ANSWERS,
		[]docstore.Condition{
			docstore.Where("session_id", docstore.OP_EQUAL, sessionID),
			docstore.Where("question_id", docstore.OP_EQUAL, questionID),
		},
		bson.D{
			{Key: "answer_text", Value: text},
			{Key: "answer_options", Value: options},
			{Key: "submitted_at", Value: r.gateway.Now()},
		},
		bson.D{
			{Key: "session_id", Value: sessionID},
			{Key: "question_id", Value: questionID},
		},
	))
}

// BatchSaveAnswers saves every answer in question id order and stops at the
// first failure. The value is the number of answers saved.
func (r *Repository) BatchSaveAnswers(ctx context.Context, sessionID string, answers map[string]types.AnswerValue) docstore.Result[int] {
	questionIDs := make([]string, 0, len(answers))
	for id := range answers {
		questionIDs = append(questionIDs, id)
	}
	sort.Strings(questionIDs)

	saved := 0
	for _, questionID := range questionIDs {
		res := r.SaveAnswer(ctx, sessionID, questionID, answers[questionID])
		if !res.OK() {
			return docstore.Failed(saved, res.Err)
		}
		saved++
	}
	return docstore.Ok(saved)
}

func (r *Repository) GetSessionAnswers(ctx context.Context, sessionID string) docstore.Result[[]types.Answer] {
	return docstore.DecodeAll[types.Answer](r.gateway.GetDocuments(ctx,
		types.COLLECTION_NAME_ANSWERS,
		[]docstore.Condition{docstore.Where("session_id", docstore.OP_EQUAL, sessionID)},
		"", "",
	))
}
