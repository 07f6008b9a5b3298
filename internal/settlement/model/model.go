package model

import "time"

// Side é o lado escolhido pelo usuário na perna
type Side string

const (
	Over  Side = "over"
	Under Side = "under"
)

func (s Side) Valid() bool { return s == Over || s == Under }

// Outcome é preenchido só na liquidação; vazio enquanto a aposta está pendente
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeHit  Outcome = "hit"
	OutcomeMiss Outcome = "miss"
	OutcomeVoid Outcome = "void"
)

type PlayType string

const (
	Power PlayType = "power"
	Flex  PlayType = "flex"
)

func (p PlayType) Valid() bool { return p == Power || p == Flex }

type WagerStatus string

const (
	StatusPending  WagerStatus = "pending"
	StatusWon      WagerStatus = "won"
	StatusLost     WagerStatus = "lost"
	StatusRefunded WagerStatus = "refunded"
)

// Terminal indica que a aposta já foi liquidada e não muda mais
func (s WagerStatus) Terminal() bool {
	return s == StatusWon || s == StatusLost || s == StatusRefunded
}

// Prop é uma linha de desempenho de um jogador num jogo.
// ActualScore só tem significado com GameComplete=true; Refund anula a prop mesmo com placar.
type Prop struct {
	ID           string
	Player       string
	Team         string
	Opponent     string
	Stat         string // "Points", "Rebounds", "3PM", ...
	Line         float64
	GameTime     time.Time
	Hidden       bool
	ActualScore  *float64
	RefundStatus bool
	GameComplete bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Leg guarda a linha travada no momento da aposta; edições posteriores da prop não a afetam
type Leg struct {
	PropID  string
	Side    Side
	Line    float64
	Outcome Outcome
}

// Wager é o parlay persistido. Valores monetários em centavos.
type Wager struct {
	ID             string
	UserID         string
	Legs           []Leg
	StakeCents     int64
	PlayType       PlayType
	MaxPayoutCents int64
	Status         WagerStatus
	EffectiveLegs  int
	PayoutCents    int64
	CreatedAt      time.Time
	SettledAt      *time.Time
}

// PropIDs retorna os ids das props das pernas, na ordem das pernas
func (w Wager) PropIDs() []string {
	ids := make([]string, len(w.Legs))
	for i, l := range w.Legs {
		ids[i] = l.PropID
	}
	return ids
}

// Settlement é a escrita atômica da liquidação: status, pernas, effective legs e crédito
type Settlement struct {
	WagerID       string
	UserID        string
	Status        WagerStatus
	Outcomes      []Outcome // mesma ordem de Wager.Legs
	EffectiveLegs int
	CreditCents   int64 // payout (won) ou stake (refunded); 0 em lost
}
