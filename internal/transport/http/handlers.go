package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pyvlad/quizzz-spa/internal/app"
	"github.com/pyvlad/quizzz-spa/internal/domain"
)

// UserHeader carries the authenticated caller id, set by the fronting auth layer.
const UserHeader = "X-User-ID"

type ctxKey struct{}

// Handler serves the JSON API on top of app.Service.
type Handler struct {
	service *app.Service
	logger  *slog.Logger
}

func NewHandler(service *app.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

var errUnauthenticated = errors.New("authentication credentials were not provided")

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.Header.Get(UserHeader), 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusUnauthorized, errorBody{Detail: errUnauthenticated.Error(), Code: "unauthenticated"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxKey{}).(int64)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the status and stable code of err's kind.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code, kind := domain.Classify(err)
	status := http.StatusInternalServerError
	detail := "internal server error"
	switch kind {
	case domain.KindNotFound:
		status, detail = http.StatusNotFound, err.Error()
	case domain.KindValidation:
		status, detail = http.StatusBadRequest, err.Error()
	case domain.KindForbidden:
		status, detail = http.StatusForbidden, err.Error()
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Detail: detail, Code: code})
}

func badRequest(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Detail: detail, Code: "bad_request"})
}

// pathID parses a positive integer URL parameter, answering 404 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "not found", Code: "not_found"})
		return 0, false
	}
	return id, true
}

type tournamentRequest struct {
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

func (h *Handler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	communityID, ok := pathID(w, r, "community_id")
	if !ok {
		return
	}
	var req tournamentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	t, err := h.service.CreateTournament(r.Context(), communityID, req.Name, req.IsActive)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	communityID, ok := pathID(w, r, "community_id")
	if !ok {
		return
	}
	list, err := h.service.ListTournaments(r.Context(), communityID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, ok := pathID(w, r, "tournament_id")
	if !ok {
		return
	}
	t, err := h.service.GetTournament(r.Context(), tournamentID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) UpdateTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, ok := pathID(w, r, "tournament_id")
	if !ok {
		return
	}
	var req tournamentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	t, err := h.service.UpdateTournament(r.Context(), tournamentID, req.Name, req.IsActive)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, ok := pathID(w, r, "tournament_id")
	if !ok {
		return
	}
	if err := h.service.DeleteTournament(r.Context(), tournamentID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListQuizPool(w http.ResponseWriter, r *http.Request) {
	communityID, ok := pathID(w, r, "community_id")
	if !ok {
		return
	}
	pool, err := h.service.ListQuizPool(r.Context(), communityID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

func (h *Handler) TournamentStandings(w http.ResponseWriter, r *http.Request) {
	tournamentID, ok := pathID(w, r, "tournament_id")
	if !ok {
		return
	}
	standings, err := h.service.TournamentStandings(r.Context(), tournamentID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

func (h *Handler) ListRounds(w http.ResponseWriter, r *http.Request) {
	tournamentID, ok := pathID(w, r, "tournament_id")
	if !ok {
		return
	}
	rounds, err := h.service.ListRounds(r.Context(), userID(r), tournamentID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

type roundRequest struct {
	QuizID     int64     `json:"quiz_id"`
	StartTime  time.Time `json:"start_time"`
	FinishTime time.Time `json:"finish_time"`
}

func (h *Handler) CreateRound(w http.ResponseWriter, r *http.Request) {
	tournamentID, ok := pathID(w, r, "tournament_id")
	if !ok {
		return
	}
	var req roundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	round, err := h.service.CreateRound(r.Context(), tournamentID, req.QuizID, req.StartTime, req.FinishTime)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, round)
}

func (h *Handler) GetRound(w http.ResponseWriter, r *http.Request) {
	roundID, ok := pathID(w, r, "round_id")
	if !ok {
		return
	}
	listing, err := h.service.GetRound(r.Context(), userID(r), roundID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *Handler) UpdateRound(w http.ResponseWriter, r *http.Request) {
	roundID, ok := pathID(w, r, "round_id")
	if !ok {
		return
	}
	var req roundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	round, err := h.service.UpdateRound(r.Context(), roundID, req.QuizID, req.StartTime, req.FinishTime)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (h *Handler) DeleteRound(w http.ResponseWriter, r *http.Request) {
	roundID, ok := pathID(w, r, "round_id")
	if !ok {
		return
	}
	if err := h.service.DeleteRound(r.Context(), roundID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RoundStandings(w http.ResponseWriter, r *http.Request) {
	roundID, ok := pathID(w, r, "round_id")
	if !ok {
		return
	}
	standings, err := h.service.RoundStandings(r.Context(), roundID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

func (h *Handler) StartRound(w http.ResponseWriter, r *http.Request) {
	roundID, ok := pathID(w, r, "round_id")
	if !ok {
		return
	}
	quiz, err := h.service.StartRound(r.Context(), userID(r), roundID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

type submitRequest struct {
	Answers          []domain.AnswerSubmission `json:"answers"`
	ClientStartTime  *time.Time                `json:"client_start_time"`
	ClientFinishTime *time.Time                `json:"client_finish_time"`
}

func (h *Handler) SubmitRound(w http.ResponseWriter, r *http.Request) {
	roundID, ok := pathID(w, r, "round_id")
	if !ok {
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	summary, err := h.service.SubmitRound(r.Context(), userID(r), roundID, domain.Submission{
		Answers:          req.Answers,
		ClientStartTime:  req.ClientStartTime,
		ClientFinishTime: req.ClientFinishTime,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) ReviewRound(w http.ResponseWriter, r *http.Request) {
	roundID, ok := pathID(w, r, "round_id")
	if !ok {
		return
	}
	review, err := h.service.ReviewRound(r.Context(), userID(r), roundID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}
