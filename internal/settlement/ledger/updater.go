package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/prop-parlay-platform/internal/settlement/grading"
	"github.com/radieske/prop-parlay-platform/internal/settlement/model"
)

// Settler grava a liquidação numa única transação: troca o status de pending
// (compare-and-swap), escreve as pernas e credita o saldo. applied=false quando
// a aposta já não estava pending.
type Settler interface {
	Settle(ctx context.Context, s model.Settlement) (applied bool, err error)
}

// Updater aplica uma Decision exatamente uma vez por aposta.
// Não faz retry: falhas de store voltam para quem chamou.
type Updater struct {
	log   *zap.Logger
	store Settler
}

func NewUpdater(log *zap.Logger, store Settler) *Updater {
	return &Updater{log: log, store: store}
}

// Apply retorna true quando esta chamada efetivamente liquidou a aposta.
// Aposta já terminal ou decisão não gradável são no-op silenciosos.
func (u *Updater) Apply(ctx context.Context, w model.Wager, d grading.Decision) (bool, error) {
	if w.Status.Terminal() {
		u.log.Debug("wager already settled, skipping", zap.String("wagerId", w.ID), zap.String("status", string(w.Status)))
		return false, nil
	}
	if !d.Gradable() {
		return false, nil
	}
	if len(d.Outcomes) != len(w.Legs) {
		return false, fmt.Errorf("wager %s: %d outcomes for %d legs", w.ID, len(d.Outcomes), len(w.Legs))
	}

	s := model.Settlement{
		WagerID:       w.ID,
		UserID:        w.UserID,
		Status:        d.Verdict.Status(),
		Outcomes:      d.Outcomes,
		EffectiveLegs: d.EffectiveLegs,
	}
	switch d.Verdict {
	case grading.Won:
		s.CreditCents = d.Payout
	case grading.Refunded:
		s.CreditCents = w.StakeCents
	}

	applied, err := u.store.Settle(ctx, s)
	if err != nil {
		return false, fmt.Errorf("settle wager %s: %w", w.ID, err)
	}
	if !applied {
		// outro gatilho chegou antes; a transação dele já creditou
		u.log.Debug("wager settled concurrently, skipping", zap.String("wagerId", w.ID))
		return false, nil
	}

	u.log.Info("wager settled",
		zap.String("wagerId", w.ID),
		zap.String("userId", w.UserID),
		zap.String("status", string(s.Status)),
		zap.Int("effectiveLegs", s.EffectiveLegs),
		zap.Int("hits", d.Hits),
		zap.Int64("creditCents", s.CreditCents),
	)
	return true, nil
}
