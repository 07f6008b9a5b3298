// Package payout contém as tabelas fixas de multiplicadores Power e Flex.
//
// Multiplicadores são guardados em centésimos (3750 = 37.5x) para que o cálculo
// do pagamento seja feito só com inteiros sobre centavos.
package payout

import "github.com/radieske/prop-parlay-platform/internal/settlement/model"

// Multiplier em centésimos: 225 = 2.25x
type Multiplier int64

const (
	MinLegs = 2
	MaxLegs = 6
)

// power[n] é o multiplicador de "todas certas" para n pernas; zero = não oferecido
var power = [MaxLegs + 1]Multiplier{
	2: 300,
	3: 500,
	4: 1000,
	5: 2000,
	6: 3750,
}

// flex[n][erros] para n pernas; zero = sem pagamento
var flex = [MaxLegs + 1][3]Multiplier{
	3: {225, 125, 0},
	4: {500, 150, 0},
	5: {1000, 200, 40},
	6: {2500, 200, 40},
}

// Float converte para exibição (ex.: 2.25)
func (m Multiplier) Float() float64 { return float64(m) / 100 }

// PowerMultiplier só existe para "todas certas"
func PowerMultiplier(legs int) (Multiplier, bool) {
	if legs < MinLegs || legs > MaxLegs {
		return 0, false
	}
	m := power[legs]
	return m, m > 0
}

// FlexMultiplier aceita até dois erros dependendo do tamanho
func FlexMultiplier(legs, hits int) (Multiplier, bool) {
	if legs < MinLegs || legs > MaxLegs || hits < 0 || hits > legs {
		return 0, false
	}
	misses := legs - hits
	if misses >= len(flex[legs]) {
		return 0, false
	}
	m := flex[legs][misses]
	return m, m > 0
}

// Lookup resolve (play, pernas efetivas, acertos) -> multiplicador; false = sem pagamento
func Lookup(play model.PlayType, legs, hits int) (Multiplier, bool) {
	switch play {
	case model.Power:
		if hits != legs {
			return 0, false
		}
		return PowerMultiplier(legs)
	case model.Flex:
		return FlexMultiplier(legs, hits)
	default:
		return 0, false
	}
}

// Offered indica se o tipo de jogo pode ser oferecido para essa quantidade de pernas
func Offered(play model.PlayType, legs int) bool {
	_, ok := Lookup(play, legs, legs)
	return ok
}

// Apply calcula stake × multiplicador, arredondando meio centavo para cima
func Apply(stakeCents int64, m Multiplier) int64 {
	return (stakeCents*int64(m) + 50) / 100
}

// MaxPayout é o pagamento de "todas certas", capturado na criação da aposta
func MaxPayout(play model.PlayType, legs int, stakeCents int64) (int64, bool) {
	m, ok := Lookup(play, legs, legs)
	if !ok {
		return 0, false
	}
	return Apply(stakeCents, m), true
}
