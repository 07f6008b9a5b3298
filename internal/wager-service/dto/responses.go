package dto

import (
	"time"

	"github.com/radieske/prop-parlay-platform/internal/settlement/model"
	"github.com/radieske/prop-parlay-platform/internal/settlement/payout"
)

type UserResponse struct {
	UserID  string `json:"userId"`
	Created bool   `json:"created"`
}

type LegResponse struct {
	PropID  string  `json:"propId"`
	Side    string  `json:"side"`
	Line    float64 `json:"line"`
	Outcome string  `json:"outcome,omitempty"`
}

type WagerResponse struct {
	WagerID        string        `json:"wagerId"`
	UserID         string        `json:"userId"`
	PlayType       string        `json:"play_type"`
	StakeCents     int64         `json:"stake_cents"`
	MaxPayoutCents int64         `json:"max_payout_cents"`
	Multiplier     float64       `json:"multiplier"` // de "todas certas"
	Status         string        `json:"status"`
	EffectiveLegs  int           `json:"effective_legs,omitempty"`
	PayoutCents    int64         `json:"payout_cents"`
	Legs           []LegResponse `json:"legs"`
	CreatedAt      time.Time     `json:"created_at"`
	SettledAt      *time.Time    `json:"settled_at,omitempty"`
}

type PlaceWagerResponse struct {
	WagerResponse
	NewBalance int64 `json:"new_balance"`
}

type BalanceResponse struct {
	UserID       string `json:"userId"`
	BalanceCents int64  `json:"balance_cents"`
}

func FromWager(w model.Wager) WagerResponse {
	out := WagerResponse{
		WagerID:        w.ID,
		UserID:         w.UserID,
		PlayType:       string(w.PlayType),
		StakeCents:     w.StakeCents,
		MaxPayoutCents: w.MaxPayoutCents,
		Status:         string(w.Status),
		EffectiveLegs:  w.EffectiveLegs,
		PayoutCents:    w.PayoutCents,
		CreatedAt:      w.CreatedAt,
		SettledAt:      w.SettledAt,
		Legs:           make([]LegResponse, 0, len(w.Legs)),
	}
	if m, ok := payout.Lookup(w.PlayType, len(w.Legs), len(w.Legs)); ok {
		out.Multiplier = m.Float()
	}
	for _, l := range w.Legs {
		out.Legs = append(out.Legs, LegResponse{
			PropID:  l.PropID,
			Side:    string(l.Side),
			Line:    l.Line,
			Outcome: string(l.Outcome),
		})
	}
	return out
}
