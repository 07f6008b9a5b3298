package repo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/prop-parlay-platform/internal/settlement/model"
)

func newMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func wonSettlement() model.Settlement {
	return model.Settlement{
		WagerID:       "w-1",
		UserID:        "u-1",
		Status:        model.StatusWon,
		Outcomes:      []model.Outcome{model.OutcomeHit, model.OutcomeVoid, model.OutcomeHit},
		EffectiveLegs: 2,
		CreditCents:   5000,
	}
}

func TestSettle_WonWritesEverythingInOneTx(t *testing.T) {
	p, mock := newMock(t)
	s := wonSettlement()

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE wagers")).
		WithArgs("w-1", "won", 2, int64(5000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	for i, o := range s.Outcomes {
		mock.ExpectExec(q("UPDATE wager_legs SET outcome")).
			WithArgs("w-1", i, string(o)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectQuery(q("UPDATE wallets SET balance_cents = balance_cents + $1")).
		WithArgs(int64(5000), "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("wallet-1"))
	mock.ExpectExec(q("INSERT INTO wallet_ledger")).
		WithArgs("wallet-1", "PAYOUT", int64(5000), "settle:w-1", "w-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	applied, err := p.Settle(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettle_RefundUsesRefundOperation(t *testing.T) {
	p, mock := newMock(t)
	s := model.Settlement{
		WagerID:     "w-2",
		UserID:      "u-1",
		Status:      model.StatusRefunded,
		Outcomes:    []model.Outcome{model.OutcomeVoid, model.OutcomeVoid},
		CreditCents: 1000,
	}

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE wagers")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE wager_legs")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE wager_legs")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("UPDATE wallets")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("wallet-1"))
	mock.ExpectExec(q("INSERT INTO wallet_ledger")).
		WithArgs("wallet-1", "REFUND", int64(1000), "settle:w-2", "w-2").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	applied, err := p.Settle(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettle_LostSkipsWallet(t *testing.T) {
	p, mock := newMock(t)
	s := model.Settlement{
		WagerID:       "w-3",
		UserID:        "u-1",
		Status:        model.StatusLost,
		Outcomes:      []model.Outcome{model.OutcomeHit, model.OutcomeMiss},
		EffectiveLegs: 2,
	}

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE wagers")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE wager_legs")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE wager_legs")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := p.Settle(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettle_AlreadySettledRollsBack(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE wagers")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	applied, err := p.Settle(context.Background(), wonSettlement())
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettle_WalletFailureRollsBackStatus(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE wagers")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE wager_legs")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE wager_legs")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE wager_legs")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("UPDATE wallets")).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	applied, err := p.Settle(context.Background(), wonSettlement())
	assert.Error(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettle_MissingWallet(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE wagers")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE wager_legs")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE wager_legs")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE wager_legs")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("UPDATE wallets")).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := p.Settle(context.Background(), wonSettlement())
	assert.ErrorIs(t, err, ErrWalletNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

const (
	wagerID      = "7d3c1a52-5b0e-4f4e-9a61-0c2f8e1b9a10"
	otherWagerID = "7d3c1a52-5b0e-4f4e-9a61-0c2f8e1b9a11"
	propA        = "2b9f6c1e-1111-4c3a-8d2e-5f7a9b0c1d01"
	propB        = "2b9f6c1e-1111-4c3a-8d2e-5f7a9b0c1d02"
	propC        = "2b9f6c1e-1111-4c3a-8d2e-5f7a9b0c1d03"
	propMissing  = "2b9f6c1e-1111-4c3a-8d2e-5f7a9b0c1dff"
)

func TestGetWager(t *testing.T) {
	p, mock := newMock(t)
	created := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("FROM wagers WHERE id = $1")).
		WithArgs(wagerID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "stake_cents", "play_type", "max_payout_cents", "status",
			"effective_legs", "payout_cents", "created_at", "settled_at",
		}).AddRow(wagerID, "u-1", int64(1000), "flex", int64(2250), "pending", nil, int64(0), created, nil))
	mock.ExpectQuery(q("FROM wager_legs WHERE wager_id = $1")).
		WithArgs(wagerID).
		WillReturnRows(sqlmock.NewRows([]string{"prop_id", "side", "line", "outcome"}).
			AddRow(propA, "over", 24.5, nil).
			AddRow(propB, "under", 7.5, nil).
			AddRow(propC, "over", 1.5, nil))

	w, err := p.GetWager(context.Background(), wagerID)
	require.NoError(t, err)

	assert.Equal(t, model.Flex, w.PlayType)
	assert.Equal(t, model.StatusPending, w.Status)
	assert.Nil(t, w.SettledAt)
	require.Len(t, w.Legs, 3)
	assert.Equal(t, model.Leg{PropID: propB, Side: model.Under, Line: 7.5}, w.Legs[1])
	assert.Equal(t, []string{propA, propB, propC}, w.PropIDs())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetWager_NotFound(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectQuery(q("FROM wagers")).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := p.GetWager(context.Background(), otherWagerID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMalformedIDsNeverReachPostgres(t *testing.T) {
	p, mock := newMock(t)

	_, err := p.GetWager(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	props, err := p.PropsByIDs(context.Background(), []string{"p-1", "'; drop"})
	require.NoError(t, err)
	assert.Empty(t, props)

	ids, err := p.PendingWagerIDsByProp(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Empty(t, ids)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPropsByIDs(t *testing.T) {
	p, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(q("FROM props WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "player", "team", "opponent", "stat", "line", "game_time", "hidden",
			"actual_score", "refund_status", "game_complete", "created_at", "updated_at",
		}).
			AddRow(propA, "Jayson Tatum", "BOS", "MIA", "Points", 27.5, now, false, 31.0, false, true, now, now).
			AddRow(propB, "Bam Adebayo", "MIA", "BOS", "Rebounds", 9.5, now, false, nil, false, false, now, now))

	props, err := p.PropsByIDs(context.Background(), []string{propA, propB, propMissing, "garbage"})
	require.NoError(t, err)

	require.Len(t, props, 2)
	require.NotNil(t, props[propA].ActualScore)
	assert.Equal(t, 31.0, *props[propA].ActualScore)
	assert.True(t, props[propA].GameComplete)
	assert.Nil(t, props[propB].ActualScore)
	_, ok := props[propMissing]
	assert.False(t, ok)
}

func TestPendingWagerIDsByProp(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectQuery(q("SELECT DISTINCT w.id")).
		WithArgs(propA).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(wagerID).AddRow(otherWagerID))

	ids, err := p.PendingWagerIDsByProp(context.Background(), propA)
	require.NoError(t, err)
	assert.Equal(t, []string{wagerID, otherWagerID}, ids)
}

func TestPendingWagerIDs_KeysetPage(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectQuery(q("WHERE w.status = 'pending' AND w.id::text > $1")).
		WithArgs("w-3", 500).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("w-4").AddRow("w-9"))

	ids, err := p.PendingWagerIDs(context.Background(), "w-3", 500)
	require.NoError(t, err)
	assert.Equal(t, []string{"w-4", "w-9"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingWagerIDs_SkipsOpenGames(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectQuery(q("WHERE l.wager_id = w.id AND NOT pr.game_complete")).
		WithArgs("", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	ids, err := p.PendingWagerIDs(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
