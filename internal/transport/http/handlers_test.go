package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pyvlad/quizzz-spa/internal/app"
	"github.com/pyvlad/quizzz-spa/internal/domain"
	"github.com/pyvlad/quizzz-spa/internal/infra/memory"
	"github.com/pyvlad/quizzz-spa/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var roundStart = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type apiFixture struct {
	server  *httptest.Server
	service *app.Service
	round   domain.Round
	tour    domain.Tournament
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:          1,
		Name:        "Capitals",
		IsFinalized: true,
		AuthorID:    10,
		CommunityID: 1,
		Questions: []domain.Question{
			{
				ID:          11,
				Text:        "Capital of France?",
				Explanation: "Paris has been the capital since 987.",
				Options: []domain.Option{
					{ID: 111, Text: "Paris", IsCorrect: true},
					{ID: 112, Text: "Lyon"},
				},
			},
			{
				ID:   12,
				Text: "Capital of Italy?",
				Options: []domain.Option{
					{ID: 121, Text: "Milan"},
					{ID: 122, Text: "Rome", IsCorrect: true},
				},
			},
		},
	}
}

// spareQuiz is a finalized quiz by ben that no round uses.
func spareQuiz() domain.Quiz {
	q := sampleQuiz()
	q.ID, q.Name, q.AuthorID = 2, "Capitals again", 20
	q.TimeCreated = roundStart.Add(-time.Hour)
	for i := range q.Questions {
		q.Questions[i].ID += 10
		for j := range q.Questions[i].Options {
			q.Questions[i].Options[j].ID += 100
		}
	}
	return q
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	store.PutUser(domain.User{ID: 10, Username: "ann"})
	store.PutUser(domain.User{ID: 20, Username: "ben"})

	now := roundStart.Add(5 * time.Minute)
	reg := prometheus.NewRegistry()
	loader := memory.NewStaticQuizLoader(sampleQuiz(), spareQuiz())
	repo := memory.NewQuizRepository(loader, time.Minute)
	service := app.NewService(store, store, repo, store,
		app.WithClock(func() time.Time { return now }),
		app.WithMetrics(metrics.New(reg)),
		app.WithQuizCatalog(loader),
	)

	f := &apiFixture{service: service}
	f.server = httptest.NewServer(NewRouter(service, nil, reg))
	t.Cleanup(f.server.Close)

	var tour domain.Tournament
	f.do(t, http.MethodPost, "/api/communities/1/tournaments", 10, `{"name":"Spring cup","is_active":true}`, http.StatusCreated, &tour)
	f.tour = tour

	body := `{"quiz_id":1,"start_time":"2024-03-01T10:00:00Z","finish_time":"2024-03-01T11:00:00Z"}`
	f.do(t, http.MethodPost, "/api/tournaments/"+strconv.FormatInt(tour.ID, 10)+"/rounds", 10, body, http.StatusCreated, &f.round)
	return f
}

func (f *apiFixture) roundPath(suffix string) string {
	return "/api/rounds/" + strconv.FormatInt(f.round.ID, 10) + suffix
}

// do sends a request as userID (0 sends no identity) and decodes the response into out.
func (f *apiFixture) do(t *testing.T, method, path string, userID int64, body string, wantStatus int, out any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	if userID != 0 {
		req.Header.Set(UserHeader, strconv.FormatInt(userID, 10))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, "body: %s", raw)
	if out != nil {
		require.NoError(t, json.Unmarshal(raw, out))
	}
}

func TestPlayFlowOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	var quiz map[string]any
	f.do(t, http.MethodPost, f.roundPath("/start"), 20, "", http.StatusOK, &quiz)
	questions := quiz["questions"].([]any)
	require.Len(t, questions, 2)
	option := questions[0].(map[string]any)["options"].([]any)[0].(map[string]any)
	_, leaked := option["is_correct"]
	assert.False(t, leaked, "correctness must not be sent to players")

	var summary map[string]any
	f.do(t, http.MethodPost, f.roundPath("/submit"), 20,
		`{"answers":[{"question_id":11,"option_id":111},{"question_id":12,"option_id":null}]}`,
		http.StatusOK, &summary)
	assert.EqualValues(t, 1, summary["result"])
	assert.Equal(t, true, summary["is_submitted"])

	var errBody errorBody
	f.do(t, http.MethodPost, f.roundPath("/submit"), 20, `{"answers":[]}`, http.StatusBadRequest, &errBody)
	assert.Equal(t, "already_played", errBody.Code)

	var review map[string]any
	f.do(t, http.MethodGet, f.roundPath("/review"), 20, "", http.StatusOK, &review)
	assert.EqualValues(t, 1, review["play_count"])
	choices := review["choices_by_question_id"].(map[string]any)
	assert.EqualValues(t, 1, choices["11"].(map[string]any)["111"])
	assert.EqualValues(t, 1, choices["12"].(map[string]any)["null"])

	var standings []map[string]any
	f.do(t, http.MethodGet, f.roundPath("/standings"), 20, "", http.StatusOK, &standings)
	require.Len(t, standings, 1)
	assert.Equal(t, "ben", standings[0]["user"])
	assert.EqualValues(t, 1, standings[0]["points"])
}

func TestAuthorReviewHasEmptyPlay(t *testing.T) {
	f := newAPIFixture(t)

	var review map[string]any
	f.do(t, http.MethodGet, f.roundPath("/review"), 10, "", http.StatusOK, &review)
	assert.Equal(t, map[string]any{}, review["play"])
	assert.Equal(t, []any{}, review["play_answers"])
	assert.Equal(t, "ann", review["author"].(map[string]any)["username"])
}

func TestErrorMapping(t *testing.T) {
	f := newAPIFixture(t)

	cases := []struct {
		name   string
		method string
		path   string
		user   int64
		body   string
		status int
		code   string
	}{
		{"missing identity", http.MethodPost, f.roundPath("/start"), 0, "", http.StatusUnauthorized, "unauthenticated"},
		{"self play", http.MethodPost, f.roundPath("/start"), 10, "", http.StatusBadRequest, "self_play"},
		{"unknown round", http.MethodPost, "/api/rounds/999/start", 20, "", http.StatusNotFound, "round_not_found"},
		{"submit without start", http.MethodPost, f.roundPath("/submit"), 20, `{"answers":[]}`, http.StatusNotFound, "play_not_found"},
		{"review without start", http.MethodGet, f.roundPath("/review"), 20, "", http.StatusNotFound, "play_not_found"},
		{"malformed id", http.MethodGet, "/api/rounds/abc/review", 20, "", http.StatusNotFound, "not_found"},
		{"unknown user", http.MethodPost, f.roundPath("/start"), 99, "", http.StatusNotFound, "user_not_found"},
		{"unknown tournament update", http.MethodPut, "/api/tournaments/999", 10, `{"name":"x"}`, http.StatusNotFound, "tournament_not_found"},
		{"unknown round update", http.MethodPut, "/api/rounds/999", 10,
			`{"quiz_id":2,"start_time":"2024-03-01T10:00:00Z","finish_time":"2024-03-01T11:00:00Z"}`, http.StatusNotFound, "round_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body errorBody
			f.do(t, tc.method, tc.path, tc.user, tc.body, tc.status, &body)
			assert.Equal(t, tc.code, body.Code)
			assert.NotEmpty(t, body.Detail)
		})
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newAPIFixture(t)
	f.do(t, http.MethodPost, f.roundPath("/start"), 20, "", http.StatusOK, nil)

	var body errorBody
	f.do(t, http.MethodPost, f.roundPath("/submit"), 20, `{}`, http.StatusBadRequest, &body)
	assert.Equal(t, "answers_missing", body.Code)

	f.do(t, http.MethodPost, f.roundPath("/submit"), 20, `{"answers":[{"question_id":11,"option_id":122}]}`, http.StatusBadRequest, &body)
	assert.Equal(t, "option_mismatch", body.Code)

	f.do(t, http.MethodGet, f.roundPath("/review"), 20, "", http.StatusForbidden, &body)
	assert.Equal(t, "not_finished", body.Code)
}

func TestTournamentEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	tourPath := "/api/tournaments/" + strconv.FormatInt(f.tour.ID, 10)

	var listed []domain.Tournament
	f.do(t, http.MethodGet, "/api/communities/1/tournaments", 20, "", http.StatusOK, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, "Spring cup", listed[0].Name)

	var rounds []map[string]any
	f.do(t, http.MethodGet, tourPath+"/rounds", 20, "", http.StatusOK, &rounds)
	require.Len(t, rounds, 1)
	assert.Equal(t, "current", rounds[0]["status"])
	assert.Nil(t, rounds[0]["user_play_id"])

	var body errorBody
	f.do(t, http.MethodPost, tourPath+"/rounds", 10,
		`{"quiz_id":1,"start_time":"2024-03-02T10:00:00Z","finish_time":"2024-03-02T11:00:00Z"}`,
		http.StatusBadRequest, &body)
	assert.Equal(t, "quiz_already_scheduled", body.Code)

	f.do(t, http.MethodPost, "/api/communities/1/tournaments", 10, `{"name":"  "}`, http.StatusBadRequest, &body)
	assert.Equal(t, "invalid_tournament", body.Code)

	f.do(t, http.MethodDelete, f.roundPath(""), 10, "", http.StatusNoContent, nil)
	f.do(t, http.MethodGet, f.roundPath("/standings"), 10, "", http.StatusNotFound, &body)
	assert.Equal(t, "round_not_found", body.Code)

	var standings []any
	f.do(t, http.MethodGet, tourPath+"/standings", 10, "", http.StatusOK, &standings)
	assert.Empty(t, standings)
}

func TestTournamentUpdateAndDelete(t *testing.T) {
	f := newAPIFixture(t)
	tourPath := "/api/tournaments/" + strconv.FormatInt(f.tour.ID, 10)
	f.do(t, http.MethodPost, f.roundPath("/start"), 20, "", http.StatusOK, nil)

	var updated domain.Tournament
	f.do(t, http.MethodPut, tourPath, 10, `{"name":"Summer cup","is_active":false}`, http.StatusOK, &updated)
	assert.Equal(t, "Summer cup", updated.Name)
	assert.False(t, updated.IsActive)

	var body errorBody
	f.do(t, http.MethodPut, tourPath, 10, `{"name":""}`, http.StatusBadRequest, &body)
	assert.Equal(t, "invalid_tournament", body.Code)

	f.do(t, http.MethodDelete, tourPath, 10, "", http.StatusNoContent, nil)
	f.do(t, http.MethodGet, tourPath, 10, "", http.StatusNotFound, &body)
	assert.Equal(t, "tournament_not_found", body.Code)
	f.do(t, http.MethodGet, f.roundPath(""), 20, "", http.StatusNotFound, &body)
	assert.Equal(t, "round_not_found", body.Code)
}

func TestRoundGetAndUpdate(t *testing.T) {
	f := newAPIFixture(t)

	var listing map[string]any
	f.do(t, http.MethodGet, f.roundPath(""), 20, "", http.StatusOK, &listing)
	assert.Equal(t, "current", listing["status"])
	assert.EqualValues(t, 1, listing["quiz"].(map[string]any)["id"])
	assert.Equal(t, false, listing["is_author"])

	var body errorBody
	f.do(t, http.MethodPut, f.roundPath(""), 10,
		`{"quiz_id":2,"start_time":"2024-03-01T11:00:00Z","finish_time":"2024-03-01T10:00:00Z"}`,
		http.StatusBadRequest, &body)
	assert.Equal(t, "invalid_round_window", body.Code)

	var round domain.Round
	f.do(t, http.MethodPut, f.roundPath(""), 10,
		`{"quiz_id":2,"start_time":"2024-03-01T10:00:00Z","finish_time":"2024-03-01T12:00:00Z"}`,
		http.StatusOK, &round)
	assert.EqualValues(t, 2, round.QuizID)
	assert.Equal(t, f.round.ID, round.ID)

	// ben wrote the new quiz, so he may no longer play the round.
	f.do(t, http.MethodPost, f.roundPath("/start"), 20, "", http.StatusBadRequest, &body)
	assert.Equal(t, "self_play", body.Code)
}

func TestQuizPoolEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	var pool []map[string]any
	f.do(t, http.MethodGet, "/api/communities/1/quiz-pool", 20, "", http.StatusOK, &pool)
	require.Len(t, pool, 1)
	assert.EqualValues(t, 2, pool[0]["id"])
	assert.Equal(t, "ben", pool[0]["user"].(map[string]any)["username"])

	f.do(t, http.MethodDelete, f.roundPath(""), 10, "", http.StatusNoContent, nil)
	f.do(t, http.MethodGet, "/api/communities/1/quiz-pool", 20, "", http.StatusOK, &pool)
	require.Len(t, pool, 2)
	assert.EqualValues(t, 2, pool[0]["id"])
	assert.EqualValues(t, 1, pool[1]["id"])
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPIFixture(t)
	f.do(t, http.MethodPost, f.roundPath("/start"), 20, "", http.StatusOK, nil)

	resp, err := http.Get(f.server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), `quizzz_plays_started_total{created="true"} 1`)
}
