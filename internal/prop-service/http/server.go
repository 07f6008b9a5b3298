package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/prop-parlay-platform/internal/prop-service/dto"
	"github.com/radieske/prop-parlay-platform/internal/prop-service/repo"
	"github.com/radieske/prop-parlay-platform/internal/settlement/model"
)

type Repo interface {
	Create(ctx context.Context, p *model.Prop) error
	ListVisible(ctx context.Context) ([]model.Prop, error)
	Hide(ctx context.Context, id string) error
	UpdateResult(ctx context.Context, id string, r repo.Result) (model.Prop, error)
}

type Publisher interface {
	PublishPropResult(ctx context.Context, p model.Prop) error
}

// Server expõe a administração das props e o lançamento de resultados
type Server struct {
	log  *zap.Logger
	repo Repo
	publ Publisher

	OnResult func() // métricas
}

func NewServer(log *zap.Logger, r Repo, p Publisher) *Server {
	return &Server{log: log, repo: r, publ: p}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/props", s.createProp)
	r.Get("/v1/props", s.listProps)
	r.Post("/v1/props/{id}/hide", s.hideProp)
	r.Put("/v1/props/{id}/result", s.postResult)
	return r
}

func (s *Server) createProp(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if strings.TrimSpace(req.Player) == "" || req.Team == "" || req.Opponent == "" || req.Stat == "" {
		writeError(w, http.StatusBadRequest, "player, team, opponent and stat required")
		return
	}
	if req.Line < 0 || req.GameTime.IsZero() {
		writeError(w, http.StatusBadRequest, "invalid line or game_time")
		return
	}

	p := model.Prop{
		Player:   strings.TrimSpace(req.Player),
		Team:     req.Team,
		Opponent: req.Opponent,
		Stat:     req.Stat,
		Line:     req.Line,
		GameTime: req.GameTime.UTC(),
	}
	if err := s.repo.Create(r.Context(), &p); err != nil {
		s.log.Error("create prop failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.log.Info("prop created", zap.String("propId", p.ID), zap.String("player", p.Player), zap.Float64("line", p.Line))
	writeJSON(w, http.StatusCreated, dto.FromProp(p))
}

func (s *Server) listProps(w http.ResponseWriter, r *http.Request) {
	props, err := s.repo.ListVisible(r.Context())
	if err != nil {
		s.log.Error("list props failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]dto.PropResponse, 0, len(props))
	for _, p := range props {
		out = append(out, dto.FromProp(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) hideProp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.repo.Hide(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		s.log.Error("hide prop failed", zap.String("propId", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// postResult grava o resultado e publica prop_results, que dispara a liquidação
func (s *Server) postResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.PostResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.ActualScore != nil && *req.ActualScore < 0 {
		writeError(w, http.StatusBadRequest, "actualScore must not be negative")
		return
	}

	p, err := s.repo.UpdateResult(r.Context(), id, repo.Result{
		ActualScore:  req.ActualScore,
		RefundStatus: req.RefundStatus,
		GameComplete: req.GameComplete,
	})
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		s.log.Error("update result failed", zap.String("propId", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// resultado já está gravado; se o evento se perder a varredura do worker liquida depois
	if err := s.publ.PublishPropResult(r.Context(), p); err != nil {
		s.log.Warn("publish prop_results failed", zap.String("propId", id), zap.Error(err))
	}
	if s.OnResult != nil {
		s.OnResult()
	}
	s.log.Info("prop result posted",
		zap.String("propId", id),
		zap.Bool("gameComplete", p.GameComplete),
		zap.Bool("refund", p.RefundStatus),
	)
	writeJSON(w, http.StatusOK, dto.FromProp(p))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
