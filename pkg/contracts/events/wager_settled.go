package events

import "time"

// Evento emitido pelo settlement-worker quando uma aposta sai de pending.
type WagerSettled struct {
	WagerID       string    `json:"wager_id"`
	UserID        string    `json:"user_id"`
	Status        string    `json:"status"` // "won" | "lost" | "refunded"
	EffectiveLegs int       `json:"effective_legs"`
	Hits          int       `json:"hits"`
	CreditCents   int64     `json:"credit_cents"`
	Ts            time.Time `json:"ts"`
}
