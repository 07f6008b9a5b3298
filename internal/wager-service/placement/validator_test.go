package placement

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/prop-parlay-platform/internal/settlement/model"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func board() map[string]model.Prop {
	tonight := now.Add(6 * time.Hour)
	return map[string]model.Prop{
		"tatum":   {ID: "tatum", Player: "Jayson Tatum", Team: "BOS", Line: 27.5, GameTime: tonight},
		"brown":   {ID: "brown", Player: "Jaylen Brown", Team: "BOS", Line: 22.5, GameTime: tonight},
		"adebayo": {ID: "adebayo", Player: "Bam Adebayo", Team: "MIA", Line: 9.5, GameTime: tonight},
		"herro":   {ID: "herro", Player: "Tyler Herro", Team: "MIA", Line: 3.5, GameTime: tonight},
		"hidden":  {ID: "hidden", Player: "Jimmy Butler", Team: "MIA", Line: 20.5, GameTime: tonight, Hidden: true},
		"started": {ID: "started", Player: "Kristaps Porzingis", Team: "BOS", Line: 18.5, GameTime: now.Add(-time.Minute)},
		"final":   {ID: "final", Player: "Derrick White", Team: "BOS", Line: 12.5, GameTime: tonight, GameComplete: true},
		"dupe":    {ID: "dupe", Player: "Jayson Tatum", Team: "BOS", Line: 8.5, Stat: "Rebounds", GameTime: tonight},
	}
}

func req(play model.PlayType, ids ...string) Request {
	r := Request{UserID: "u-1", PlayType: play, StakeCents: 1000}
	for _, id := range ids {
		r.Legs = append(r.Legs, LegRequest{PropID: id, Side: model.Over})
	}
	return r
}

func TestValidate_LocksLines(t *testing.T) {
	legs, err := Validate(req(model.Power, "tatum", "adebayo"), board(), now)
	require.NoError(t, err)
	assert.Equal(t, []model.Leg{
		{PropID: "tatum", Side: model.Over, Line: 27.5},
		{PropID: "adebayo", Side: model.Over, Line: 9.5},
	}, legs)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"bad play type", req("parlay", "tatum", "adebayo"), ErrInvalidPlayType},
		{"one leg", req(model.Power, "tatum"), ErrLegCount},
		{"seven legs", req(model.Power, "tatum", "brown", "adebayo", "herro", "hidden", "started", "final"), ErrLegCount},
		{"flex with two legs", req(model.Flex, "tatum", "adebayo"), ErrPlayNotOffered},
		{"unknown prop", req(model.Power, "tatum", "ghost"), ErrPropNotFound},
		{"hidden prop", req(model.Power, "tatum", "hidden"), ErrPropUnavailable},
		{"game started", req(model.Power, "adebayo", "started"), ErrPropClosed},
		{"game complete", req(model.Power, "adebayo", "final"), ErrPropClosed},
		{"same player twice", req(model.Power, "tatum", "dupe", "adebayo"), ErrDuplicatePlayer},
		{"single team", req(model.Power, "tatum", "brown"), ErrSingleTeam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.req, board(), now)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestValidate_StakeAndSide(t *testing.T) {
	r := req(model.Power, "tatum", "adebayo")
	r.StakeCents = 0
	_, err := Validate(r, board(), now)
	assert.ErrorIs(t, err, ErrNonPositiveStake)

	r = req(model.Power, "tatum", "adebayo")
	r.Legs[1].Side = "sideways"
	_, err = Validate(r, board(), now)
	assert.ErrorIs(t, err, ErrInvalidSide)
}

func TestReason(t *testing.T) {
	assert.Equal(t, "single_team", Reason(ErrSingleTeam))
	assert.Equal(t, "prop_closed", Reason(fmt.Errorf("x: %w", ErrPropClosed)))
	assert.Equal(t, "other", Reason(fmt.Errorf("db down")))
	assert.False(t, IsValidation(fmt.Errorf("db down")))
}
