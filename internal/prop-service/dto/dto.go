package dto

import (
	"time"

	"github.com/radieske/prop-parlay-platform/internal/settlement/model"
)

type CreatePropRequest struct {
	Player   string    `json:"player"`
	Team     string    `json:"team"`
	Opponent string    `json:"opponent"`
	Stat     string    `json:"stat"` // "Points", "Rebounds", "3PM", ...
	Line     float64   `json:"line"`
	GameTime time.Time `json:"game_time"`
}

type PostResultRequest struct {
	ActualScore  *float64 `json:"actualScore"`
	RefundStatus bool     `json:"refundStatus"`
	GameComplete bool     `json:"gameComplete"`
}

type PropResponse struct {
	PropID       string    `json:"propId"`
	Player       string    `json:"player"`
	Team         string    `json:"team"`
	Opponent     string    `json:"opponent"`
	Stat         string    `json:"stat"`
	Line         float64   `json:"line"`
	GameTime     time.Time `json:"game_time"`
	Hidden       bool      `json:"hidden"`
	ActualScore  *float64  `json:"actualScore,omitempty"`
	RefundStatus bool      `json:"refundStatus"`
	GameComplete bool      `json:"gameComplete"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func FromProp(p model.Prop) PropResponse {
	return PropResponse{
		PropID:       p.ID,
		Player:       p.Player,
		Team:         p.Team,
		Opponent:     p.Opponent,
		Stat:         p.Stat,
		Line:         p.Line,
		GameTime:     p.GameTime,
		Hidden:       p.Hidden,
		ActualScore:  p.ActualScore,
		RefundStatus: p.RefundStatus,
		GameComplete: p.GameComplete,
		UpdatedAt:    p.UpdatedAt,
	}
}
