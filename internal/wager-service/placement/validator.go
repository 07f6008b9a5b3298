// Package placement valida um pedido de aposta contra o estado atual das props
// e devolve as pernas com a linha travada.
package placement

import (
	"errors"
	"fmt"
	"time"

	"github.com/radieske/prop-parlay-platform/internal/settlement/model"
	"github.com/radieske/prop-parlay-platform/internal/settlement/payout"
)

var (
	ErrInvalidPlayType  = errors.New("invalid play type")
	ErrNonPositiveStake = errors.New("stake must be positive")
	ErrLegCount         = errors.New("parlay must have between 2 and 6 legs")
	ErrPlayNotOffered   = errors.New("play type not offered for leg count")
	ErrInvalidSide      = errors.New("side must be over or under")
	ErrPropNotFound     = errors.New("prop not found")
	ErrPropUnavailable  = errors.New("prop is not available")
	ErrPropClosed       = errors.New("prop game already started")
	ErrDuplicatePlayer  = errors.New("each leg must be a different player")
	ErrSingleTeam       = errors.New("legs must span at least two teams")
)

type LegRequest struct {
	PropID string
	Side   model.Side
}

type Request struct {
	UserID     string
	PlayType   model.PlayType
	StakeCents int64
	Legs       []LegRequest
}

// Validate checa as regras estruturais e o estado de cada prop em now.
// As pernas devolvidas carregam a linha da prop neste instante.
func Validate(req Request, props map[string]model.Prop, now time.Time) ([]model.Leg, error) {
	if !req.PlayType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlayType, req.PlayType)
	}
	if req.StakeCents <= 0 {
		return nil, ErrNonPositiveStake
	}
	n := len(req.Legs)
	if n < payout.MinLegs || n > payout.MaxLegs {
		return nil, fmt.Errorf("%w: got %d", ErrLegCount, n)
	}
	if !payout.Offered(req.PlayType, n) {
		return nil, fmt.Errorf("%w: %s with %d legs", ErrPlayNotOffered, req.PlayType, n)
	}

	legs := make([]model.Leg, 0, n)
	players := make(map[string]struct{}, n)
	teams := make(map[string]struct{}, n)

	for i, lr := range req.Legs {
		if !lr.Side.Valid() {
			return nil, fmt.Errorf("%w: leg %d", ErrInvalidSide, i)
		}
		p, ok := props[lr.PropID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPropNotFound, lr.PropID)
		}
		if p.Hidden {
			return nil, fmt.Errorf("%w: %s", ErrPropUnavailable, p.ID)
		}
		if p.GameComplete || !p.GameTime.After(now) {
			return nil, fmt.Errorf("%w: %s", ErrPropClosed, p.ID)
		}
		if _, dup := players[p.Player]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.Player)
		}
		players[p.Player] = struct{}{}
		teams[p.Team] = struct{}{}

		legs = append(legs, model.Leg{PropID: p.ID, Side: lr.Side, Line: p.Line})
	}

	if len(teams) < 2 {
		return nil, ErrSingleTeam
	}
	return legs, nil
}

// Reason é o rótulo de métrica para uma rejeição
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidPlayType):
		return "play_type"
	case errors.Is(err, ErrNonPositiveStake):
		return "stake"
	case errors.Is(err, ErrLegCount):
		return "leg_count"
	case errors.Is(err, ErrPlayNotOffered):
		return "not_offered"
	case errors.Is(err, ErrInvalidSide):
		return "side"
	case errors.Is(err, ErrPropNotFound):
		return "prop_not_found"
	case errors.Is(err, ErrPropUnavailable):
		return "prop_hidden"
	case errors.Is(err, ErrPropClosed):
		return "prop_closed"
	case errors.Is(err, ErrDuplicatePlayer):
		return "duplicate_player"
	case errors.Is(err, ErrSingleTeam):
		return "single_team"
	default:
		return "other"
	}
}

// IsValidation indica erro do pedido (400) e não de infraestrutura
func IsValidation(err error) bool { return Reason(err) != "other" }
