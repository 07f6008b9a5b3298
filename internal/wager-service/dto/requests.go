package dto

type CreateUserRequest struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type LegRequest struct {
	PropID string `json:"propId"`
	Side   string `json:"side"` // "over" | "under"
}

type PlaceWagerRequest struct {
	UserID     string       `json:"userId"`
	PlayType   string       `json:"play_type"` // "power" | "flex"
	StakeCents int64        `json:"stake_cents"`
	Legs       []LegRequest `json:"legs"`
}
