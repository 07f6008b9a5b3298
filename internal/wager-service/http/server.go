package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/prop-parlay-platform/internal/settlement/model"
	"github.com/radieske/prop-parlay-platform/internal/settlement/payout"
	"github.com/radieske/prop-parlay-platform/internal/wager-service/dto"
	"github.com/radieske/prop-parlay-platform/internal/wager-service/placement"
	"github.com/radieske/prop-parlay-platform/internal/wager-service/repo"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Store junta as leituras de prop/aposta com as escritas do wager-service
type Store interface {
	PropsByIDs(ctx context.Context, ids []string) (map[string]model.Prop, error)
	GetWager(ctx context.Context, id string) (model.Wager, error)
	CreateUser(ctx context.Context, userID, username string) (bool, error)
	CreateWager(ctx context.Context, w *model.Wager) (newBalance int64, err error)
	Balance(ctx context.Context, userID string) (int64, error)
	ListWagersByUser(ctx context.Context, userID string, limit int) ([]model.Wager, error)
}

type Leaderboard interface {
	Top(ctx context.Context, limit int) ([]repo.LeaderboardRow, error)
}

type Publisher interface {
	PublishWagerPlaced(ctx context.Context, w model.Wager) error
}

// Server expõe a API pública de apostas
type Server struct {
	log   *zap.Logger
	store Store
	board Leaderboard
	publ  Publisher
	now   func() time.Time

	OnPlaced   func(playType string) // métricas
	OnRejected func(reason string)   // métricas
}

func NewServer(log *zap.Logger, s Store, b Leaderboard, p Publisher) *Server {
	return &Server{log: log, store: s, board: b, publ: p, now: time.Now}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/users", s.createUser)
	r.Get("/v1/users/{id}/balance", s.balance)
	r.Get("/v1/users/{id}/wagers", s.listWagers)
	r.Post("/v1/wagers", s.placeWager)
	r.Get("/v1/wagers/{id}", s.getWager)
	r.Get("/v1/leaderboard", s.leaderboard)
	return r
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.UserID == "" || req.Username == "" {
		writeError(w, http.StatusBadRequest, "userId and username required")
		return
	}

	created, err := s.store.CreateUser(r.Context(), req.UserID, req.Username)
	if err != nil {
		s.log.Error("create user failed", zap.String("userId", req.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, dto.UserResponse{UserID: req.UserID, Created: created})
}

func (s *Server) placeWager(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceWagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}

	pr := placement.Request{
		UserID:     req.UserID,
		PlayType:   model.PlayType(req.PlayType),
		StakeCents: req.StakeCents,
	}
	ids := make([]string, 0, len(req.Legs))
	for _, l := range req.Legs {
		pr.Legs = append(pr.Legs, placement.LegRequest{PropID: l.PropID, Side: model.Side(l.Side)})
		ids = append(ids, l.PropID)
	}

	props, err := s.store.PropsByIDs(r.Context(), ids)
	if err != nil {
		s.log.Error("read props failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// 1) Regras de montagem + estado das props; trava a linha de cada perna
	legs, err := placement.Validate(pr, props, s.now())
	if err != nil {
		s.rejected(placement.Reason(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// 2) Pagamento máximo fica fixo desde já
	maxPayout, ok := payout.MaxPayout(pr.PlayType, len(legs), pr.StakeCents)
	if !ok {
		s.rejected("not_offered")
		writeError(w, http.StatusBadRequest, placement.ErrPlayNotOffered.Error())
		return
	}

	wager := model.Wager{
		UserID:         req.UserID,
		Legs:           legs,
		StakeCents:     req.StakeCents,
		PlayType:       pr.PlayType,
		MaxPayoutCents: maxPayout,
	}

	// 3) Débito + inserção na mesma transação
	newBalance, err := s.store.CreateWager(r.Context(), &wager)
	switch {
	case errors.Is(err, repo.ErrInsufficientFunds):
		s.rejected("insufficient_funds")
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, repo.ErrWalletNotFound):
		s.rejected("unknown_user")
		writeError(w, http.StatusNotFound, "user not found")
		return
	case err != nil:
		s.log.Error("create wager failed", zap.String("userId", req.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// 4) Evento é informativo; a aposta já está gravada
	if err := s.publ.PublishWagerPlaced(r.Context(), wager); err != nil {
		s.log.Warn("publish wager_placed failed", zap.String("wagerId", wager.ID), zap.Error(err))
	}
	if s.OnPlaced != nil {
		s.OnPlaced(string(wager.PlayType))
	}
	s.log.Info("wager placed",
		zap.String("wagerId", wager.ID),
		zap.String("userId", wager.UserID),
		zap.String("playType", string(wager.PlayType)),
		zap.Int("legs", len(wager.Legs)),
		zap.Int64("stakeCents", wager.StakeCents),
	)

	writeJSON(w, http.StatusCreated, dto.PlaceWagerResponse{
		WagerResponse: dto.FromWager(wager),
		NewBalance:    newBalance,
	})
}

func (s *Server) getWager(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wager, err := s.store.GetWager(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		s.log.Error("get wager failed", zap.String("wagerId", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, dto.FromWager(wager))
}

func (s *Server) listWagers(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	ws, err := s.store.ListWagersByUser(r.Context(), userID, limitParam(r))
	if err != nil {
		s.log.Error("list wagers failed", zap.String("userId", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]dto.WagerResponse, 0, len(ws))
	for _, wg := range ws {
		out = append(out, dto.FromWager(wg))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	bal, err := s.store.Balance(r.Context(), userID)
	if errors.Is(err, repo.ErrWalletNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		s.log.Error("balance failed", zap.String("userId", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, dto.BalanceResponse{UserID: userID, BalanceCents: bal})
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.board.Top(r.Context(), limitParam(r))
	if err != nil {
		s.log.Error("leaderboard failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) rejected(reason string) {
	if s.OnRejected != nil {
		s.OnRejected(reason)
	}
}

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
