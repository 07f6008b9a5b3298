package events

import "time"

// Evento publicado no tópico "prop_results" sempre que o resultado de uma prop muda.
// É o gatilho da liquidação; o worker relê a prop do banco, o payload é informativo.
type PropResultPosted struct {
	PropID       string    `json:"prop_id"`
	ActualScore  *float64  `json:"actual_score,omitempty"`
	RefundStatus bool      `json:"refund_status"`
	GameComplete bool      `json:"game_complete"`
	UpdatedAt    time.Time `json:"updated_at"`
}
