package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/pyvlad/quizzz-spa/internal/app"
)

type WSHandler struct {
	service  *app.Service
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.Service, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeStandings upgrades to a websocket and streams tournament standings until
// the client goes away.
func (h *WSHandler) ServeStandings(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := strconv.ParseInt(chi.URLParam(r, "tournament_id"), 10, 64)
	if err != nil || tournamentID <= 0 {
		http.Error(w, "invalid tournament id", http.StatusBadRequest)
		return
	}

	// Subscribe before upgrading so an unknown tournament is still a plain HTTP error.
	updates, cancel, err := h.service.SubscribeStandings(r.Context(), tournamentID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		// Inbound frames are ignored; reading surfaces the close handshake.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[app.StandingsUpdate]{Type: "standings", Payload: update}); err != nil {
				h.logger.WarnContext(r.Context(), "ws write failed", "tournament_id", tournamentID, "error", err)
				return
			}
		case <-readerDone:
			return
		}
	}
}
