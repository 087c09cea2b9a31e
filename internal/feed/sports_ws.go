package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/oddsarb/internal/domain"
	"github.com/alanyoungcy/oddsarb/internal/state"
)

// SportsServer accepts websocket connections from the external odds parser
// and folds its push messages into shared state. Messages without a match id
// or both team names are dropped.
type SportsServer struct {
	addr      string
	state     *state.State
	snapshots *SnapshotWriter
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

func NewSportsServer(addr string, st *state.State, snapshots *SnapshotWriter, logger *slog.Logger) *SportsServer {
	return &SportsServer{
		addr:      addr,
		state:     st,
		snapshots: snapshots,
		logger:    logger.With(slog.String("component", "sports_feed")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The parser runs on the same host; no origin policy needed.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run serves until the context is cancelled.
func (s *SportsServer) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWS)

	srv := &http.Server{Addr: s.addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("sports feed listening", slog.String("addr", s.addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *SportsServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()
	s.logger.Info("odds parser connected", slog.String("remote", conn.RemoteAddr().String()))
	defer s.logger.Info("odds parser disconnected", slog.String("remote", conn.RemoteAddr().String()))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Error("feed read error", slog.String("error", err.Error()))
			}
			return
		}
		s.HandleMessage(message)
	}
}

// HandleMessage validates and applies one raw feed message.
func (s *SportsServer) HandleMessage(message []byte) {
	var ev domain.SportsEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		s.logger.Debug("malformed feed message dropped", slog.String("error", err.Error()))
		return
	}
	if ev.MatchID == "" || ev.HomeName == "" || ev.AwayName == "" {
		return
	}
	ev.Match = ev.HomeName + " vs " + ev.AwayName
	s.state.UpsertSportsEvent(ev)

	var raw map[string]any
	_ = json.Unmarshal(message, &raw)
	s.state.RecordSportsSample(domain.FeedSample{
		Timestamp: time.Now().UTC(),
		Source:    "sports",
		Data:      raw,
	})
	if s.snapshots != nil {
		s.snapshots.WriteThrottled("sports_events", s.state.SportsEvents())
	}
}
