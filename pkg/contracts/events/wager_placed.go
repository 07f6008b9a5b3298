package events

type WagerLeg struct {
	PropID string  `json:"prop_id"`
	Side   string  `json:"side"` // "over" | "under"
	Line   float64 `json:"line"` // linha travada no momento da aposta
}

type WagerPlaced struct {
	WagerID        string     `json:"wager_id"`
	UserID         string     `json:"user_id"`
	PlayType       string     `json:"play_type"` // "power" | "flex"
	StakeCents     int64      `json:"stake_cents"`
	MaxPayoutCents int64      `json:"max_payout_cents"`
	Legs           []WagerLeg `json:"legs"`
	TsUnixMs       int64      `json:"ts_unix_ms"`
}
