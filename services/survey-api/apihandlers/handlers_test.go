package apihandlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/case-framework/survey-engine/pkg/docstore"
	"github.com/case-framework/survey-engine/pkg/survey"
	"github.com/case-framework/survey-engine/pkg/survey/session"
	"github.com/case-framework/survey-engine/pkg/survey/stats"
	"github.com/case-framework/survey-engine/pkg/survey/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "stats-key"

type testAPI struct {
	router   *gin.Engine
	registry *session.Registry
	repo     *survey.Repository
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	day := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	gw := docstore.NewGateway(docstore.NewMemoryStore(), docstore.WithClock(func() time.Time { return day }))
	repo := survey.NewRepository(gw)
	agg := stats.NewAggregator(gw)
	registry := session.NewRegistry(func() *session.Engine {
		return session.NewEngine(repo, agg, session.WithAutoSaveDelay(10*time.Millisecond))
	}, time.Minute)

	ctx := context.Background()
	require.True(t, gw.CreateDocument(ctx, types.COLLECTION_NAME_SURVEYS, types.Survey{
		Title: types.Text("en", "Feedback", "es", "Opiniones"),
	}, "s1").OK())
	require.True(t, gw.CreateDocument(ctx, types.COLLECTION_NAME_QUESTIONS, types.Question{
		SurveyID:     "s1",
		QuestionType: types.QUESTION_TYPE_SINGLE_LINE,
		Required:     true,
		OrderIndex:   0,
		QuestionText: types.Text("en", "Your name?", "es", "¿Tu nombre?"),
	}, "q1").OK())
	require.True(t, gw.CreateDocument(ctx, types.COLLECTION_NAME_QUESTIONS, types.Question{
		SurveyID:     "s1",
		QuestionType: types.QUESTION_TYPE_CHECKBOX,
		OrderIndex:   1,
		QuestionText: types.Plain("Pick some"),
		Options:      types.Plain([]string{"a", "b"}),
	}, "q2").OK())

	router := gin.New()
	v1 := router.Group("/v1")
	h := NewHTTPHandler(registry, repo, agg, "")
	h.AddLanguageAPI(v1)
	h.AddSurveySessionAPI(v1)
	h.AddSurveyStatsAPI(v1, []string{testAPIKey})

	return &testAPI{router: router, registry: registry, repo: repo}
}

func (a *testAPI) do(t *testing.T, method string, path string, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) session.Snapshot {
	t.Helper()
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap), w.Body.String())
	return snap
}

func TestSurveySessionFlow(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/v1/sessions", `{"surveyId":"s1","sessionId":"sess1","lang":"es-MX","client":{"windowWidth":800}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap := decodeSnapshot(t, w)
	assert.Equal(t, session.STATE_LANDING, snap.State)
	assert.Equal(t, "Opiniones", snap.Title)
	assert.Equal(t, "es", snap.Language)

	w = api.do(t, http.MethodPost, "/v1/sessions/sess1/start", "")
	require.Equal(t, http.StatusOK, w.Code)
	snap = decodeSnapshot(t, w)
	require.NotNil(t, snap.CurrentQuestion)
	assert.Equal(t, "¿Tu nombre?", snap.CurrentQuestion.Text)

	w = api.do(t, http.MethodPost, "/v1/sessions/sess1/next", "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	snap = decodeSnapshot(t, w)
	assert.Equal(t, []string{"Este campo es obligatorio"}, snap.ValidationErrors["q1"])

	w = api.do(t, http.MethodPut, "/v1/sessions/sess1/answers/q1", `{"value":"Ana"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeSnapshot(t, w).CanProceed)

	w = api.do(t, http.MethodPost, "/v1/sessions/sess1/next", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decodeSnapshot(t, w).CurrentIndex)

	w = api.do(t, http.MethodPut, "/v1/sessions/sess1/answers/q2", `{"value":["a","b"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"a", "b"}, decodeSnapshot(t, w).Answers["q2"].Options)

	w = api.do(t, http.MethodPost, "/v1/sessions/sess1/complete", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, session.STATE_THANK_YOU, decodeSnapshot(t, w).State)

	answers := api.repo.GetSessionAnswers(context.Background(), "sess1")
	require.True(t, answers.OK())
	assert.Len(t, answers.Value, 2)

	w = api.do(t, http.MethodGet, "/v1/surveys/s1/stats?date=2024-01-01", "", "Api-Key", testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)
	var st types.SurveyStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, int64(1), st.TotalSessions)
	assert.Equal(t, int64(1), st.CompletedSessions)
	assert.Equal(t, float64(100), st.CompletionRate)
	assert.Equal(t, map[string]int64{"es": 1}, st.LanguageBreakdown)
}

func TestInitializeSessionErrors(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/v1/sessions", `{"sessionId":"sess1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/v1/sessions", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/v1/sessions", `{"surveyId":"missing","sessionId":"sess1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Survey not found or no longer available"}`, w.Body.String())
	assert.Equal(t, 0, api.registry.Len())

	w = api.do(t, http.MethodPost, "/v1/sessions", `{"surveyId":"s1","sessionId":"../sess1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid survey or session id"}`, w.Body.String())
	assert.Equal(t, 0, api.registry.Len())
}

func TestInitializeSessionDefaults(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/v1/sessions", `{"surveyId":"s1"}`, "Accept-Language", "de-CH, en;q=0.5", "User-Agent", "agent/1.0")
	require.Equal(t, http.StatusOK, w.Code)
	snap := decodeSnapshot(t, w)
	assert.Len(t, snap.SessionID, 36)
	assert.Equal(t, "de", snap.Language)

	stored := api.repo.GetResponseSession(context.Background(), snap.SessionID)
	require.True(t, stored.OK())
	assert.Equal(t, "agent/1.0", stored.Value.UserAgent)
}

func TestSessionNavigationEndpoints(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/v1/sessions/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/v1/sessions", `{"surveyId":"s1","sessionId":"sess1"}`).Code)

	w = api.do(t, http.MethodPost, "/v1/sessions/sess1/next", "")
	assert.Equal(t, http.StatusConflict, w.Code, "not started yet")

	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/v1/sessions/sess1/start", "").Code)
	assert.Equal(t, http.StatusConflict, api.do(t, http.MethodPost, "/v1/sessions/sess1/start", "").Code)
	assert.Equal(t, http.StatusConflict, api.do(t, http.MethodPost, "/v1/sessions/sess1/previous", "").Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPost, "/v1/sessions/sess1/goto/x", "").Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPost, "/v1/sessions/sess1/goto/5", "").Code)

	w = api.do(t, http.MethodPost, "/v1/sessions/sess1/goto/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, decodeSnapshot(t, w).Progress)

	w = api.do(t, http.MethodPost, "/v1/sessions/sess1/previous", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decodeSnapshot(t, w).CurrentIndex)

	w = api.do(t, http.MethodPut, "/v1/sessions/sess1/answers/q9", `{"value":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodPut, "/v1/sessions/sess1/language", `{"lang":"fr"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fr", decodeSnapshot(t, w).Language)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPut, "/v1/sessions/sess1/language", `{"lang":"tlh"}`).Code)

	w = api.do(t, http.MethodPost, "/v1/sessions/sess1/complete", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decodeSnapshot(t, w).ValidationErrors, "q1")

	w = api.do(t, http.MethodPost, "/v1/sessions/sess1/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/v1/sessions/sess1", "").Code)
}

func TestCloseSessionWritesPendingAnswers(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/v1/sessions", `{"surveyId":"s1","sessionId":"sess1"}`).Code)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/v1/sessions/sess1/start", "").Code)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPut, "/v1/sessions/sess1/answers/q1", `{"value":"Ana"}`).Code)

	require.Equal(t, http.StatusOK, api.do(t, http.MethodDelete, "/v1/sessions/sess1", "").Code)
	assert.Equal(t, 0, api.registry.Len())

	answers := api.repo.GetSessionAnswers(context.Background(), "sess1")
	require.True(t, answers.OK())
	require.Len(t, answers.Value, 1)
	assert.Equal(t, "Ana", *answers.Value[0].AnswerText)
}

func TestStatsEndpoints(t *testing.T) {
	api := newTestAPI(t)

	assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodGet, "/v1/surveys/s1/stats?date=2024-01-01", "").Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/v1/surveys/s1/stats?date=01/01/2024", "", "Api-Key", testAPIKey).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/v1/surveys/s1/stats?date=2024-01-01", "", "Api-Key", testAPIKey).Code)

	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/v1/sessions", `{"surveyId":"s1","sessionId":"sess1","lang":"fr"}`).Code)

	w := api.do(t, http.MethodPost, "/v1/surveys/s1/stats/reconcile?date=2024-01-01", "", "Api-Key", testAPIKey)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var st types.SurveyStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, int64(1), st.TotalSessions)
	assert.Equal(t, map[string]int64{"fr": 1}, st.LanguageBreakdown)

	w = api.do(t, http.MethodPost, "/v1/surveys/s1/stats/reconcile?date=2023-12-31", "", "Api-Key", testAPIKey)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLanguagesEndpoint(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/v1/languages?lang=ar", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Active    string `json:"active"`
		Direction string `json:"direction"`
		Languages []struct {
			Code     string `json:"code"`
			IsActive bool   `json:"isActive"`
		} `json:"languages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ar", body.Active)
	assert.Equal(t, "rtl", body.Direction)
	require.Len(t, body.Languages, 12)
	assert.Equal(t, "en", body.Languages[0].Code)

	w = api.do(t, http.MethodGet, "/v1/languages", "", "Accept-Language", "ja")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ja", body.Active)
}

func TestWatchSession(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/v1/sessions", `{"surveyId":"s1","sessionId":"sess1"}`).Code)

	server := httptest.NewServer(api.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/v1/sessions/sess1/watch", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	var event, data string
	for data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		}
	}
	assert.Equal(t, "session", event)

	var stored types.ResponseSession
	require.NoError(t, json.Unmarshal([]byte(data), &stored))
	assert.Equal(t, "sess1", stored.ID)
	assert.Equal(t, "s1", stored.SurveyID)
	assert.False(t, stored.IsComplete)
}
