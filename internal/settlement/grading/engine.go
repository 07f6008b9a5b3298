// Package grading decide o resultado de uma aposta a partir de um snapshot das props.
//
// Grade é uma função pura: não lê nem escreve em store, não bloqueia e devolve
// sempre a mesma Decision para o mesmo (aposta, props).
package grading

import (
	"errors"
	"fmt"

	"github.com/radieske/prop-parlay-platform/internal/settlement/model"
	"github.com/radieske/prop-parlay-platform/internal/settlement/payout"
)

var (
	ErrUnknownProp      = errors.New("leg references unknown prop")
	ErrInvalidLegCount  = errors.New("invalid leg count")
	ErrUnsupportedPlay  = errors.New("play type not offered for leg count")
	ErrInvalidLegSide   = errors.New("invalid leg side")
	ErrNonPositiveStake = errors.New("stake must be positive")
)

type Verdict int

const (
	NotGradable Verdict = iota // alguma prop ainda não terminou
	Won
	Lost
	Refunded
)

func (v Verdict) String() string {
	switch v {
	case Won:
		return "won"
	case Lost:
		return "lost"
	case Refunded:
		return "refunded"
	default:
		return "not_gradable"
	}
}

// Status mapeia o veredito para o status persistido; NotGradable continua pending
func (v Verdict) Status() model.WagerStatus {
	switch v {
	case Won:
		return model.StatusWon
	case Lost:
		return model.StatusLost
	case Refunded:
		return model.StatusRefunded
	default:
		return model.StatusPending
	}
}

// Decision é o resultado do grading. Outcomes segue a ordem das pernas e é
// preenchido sempre que a aposta é gradável, inclusive em Lost.
type Decision struct {
	Verdict       Verdict
	Outcomes      []model.Outcome
	EffectiveLegs int
	Hits          int
	Misses        int
	Voids         int
	// Payout é o valor a creditar: pagamento (Won), stake (Refunded), 0 nos demais
	Payout int64
}

// Gradable indica se a decisão deve ser aplicada
func (d Decision) Gradable() bool { return d.Verdict != NotGradable }

// Grade aplica o gate de completude e as regras de cada perna e de pagamento.
// Erros aqui são de consistência dos dados (prop inexistente, aposta malformada),
// nunca de "ainda não dá pra liquidar".
func Grade(w model.Wager, props map[string]model.Prop) (Decision, error) {
	if err := validate(w); err != nil {
		return Decision{}, fmt.Errorf("wager %s: %w", w.ID, err)
	}

	legProps := make([]model.Prop, len(w.Legs))
	for i, leg := range w.Legs {
		p, ok := props[leg.PropID]
		if !ok {
			return Decision{}, fmt.Errorf("wager %s leg %d prop %s: %w", w.ID, i, leg.PropID, ErrUnknownProp)
		}
		legProps[i] = p
	}

	// gate de completude: nenhuma perna é avaliada enquanto algum jogo não terminou
	for _, p := range legProps {
		if !p.GameComplete {
			return Decision{Verdict: NotGradable}, nil
		}
		// jogo encerrado mas placar ainda não lançado: espera o próximo evento
		if !p.RefundStatus && p.ActualScore == nil {
			return Decision{Verdict: NotGradable}, nil
		}
	}

	d := Decision{Outcomes: make([]model.Outcome, len(w.Legs))}
	for i, leg := range w.Legs {
		o := legOutcome(leg, legProps[i])
		d.Outcomes[i] = o
		switch o {
		case model.OutcomeHit:
			d.Hits++
		case model.OutcomeMiss:
			d.Misses++
		case model.OutcomeVoid:
			d.Voids++
		}
	}
	d.EffectiveLegs = len(w.Legs) - d.Voids

	if d.EffectiveLegs == 0 {
		d.Verdict = Refunded
		d.Payout = w.StakeCents
		return d, nil
	}

	switch w.PlayType {
	case model.Power:
		// nunca paga parcial; o valor é o capturado na criação da aposta
		if d.Hits == d.EffectiveLegs {
			d.Verdict = Won
			d.Payout = w.MaxPayoutCents
		} else {
			d.Verdict = Lost
		}
	case model.Flex:
		// o veredito vem da tabela; o arredondamento pode zerar o crédito de stakes mínimos
		if m, ok := payout.FlexMultiplier(d.EffectiveLegs, d.Hits); ok && m > 0 {
			d.Verdict = Won
			d.Payout = payout.Apply(w.StakeCents, m)
		} else {
			d.Verdict = Lost
		}
	}

	return d, nil
}

// legOutcome: prop anulada -> void; empate com a linha é miss para os dois lados
func legOutcome(leg model.Leg, p model.Prop) model.Outcome {
	if p.RefundStatus {
		return model.OutcomeVoid
	}
	score := *p.ActualScore
	switch leg.Side {
	case model.Over:
		if score > leg.Line {
			return model.OutcomeHit
		}
	case model.Under:
		if score < leg.Line {
			return model.OutcomeHit
		}
	}
	return model.OutcomeMiss
}

func validate(w model.Wager) error {
	n := len(w.Legs)
	if n < payout.MinLegs || n > payout.MaxLegs {
		return fmt.Errorf("%w: %d", ErrInvalidLegCount, n)
	}
	if !payout.Offered(w.PlayType, n) {
		return fmt.Errorf("%w: %s with %d legs", ErrUnsupportedPlay, w.PlayType, n)
	}
	if w.StakeCents <= 0 {
		return ErrNonPositiveStake
	}
	for i, leg := range w.Legs {
		if !leg.Side.Valid() {
			return fmt.Errorf("%w: leg %d %q", ErrInvalidLegSide, i, leg.Side)
		}
	}
	return nil
}
