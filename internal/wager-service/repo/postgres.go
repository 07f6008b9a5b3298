package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/radieske/prop-parlay-platform/internal/settlement/model"
	srepo "github.com/radieske/prop-parlay-platform/internal/settlement/repo"
)

// StartingBalanceCents é o saldo de boas-vindas de todo usuário novo
const StartingBalanceCents int64 = 100_00

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = srepo.ErrNotFound
	ErrWalletNotFound    = srepo.ErrWalletNotFound
)

// LeaderboardRow é o lucro acumulado de um usuário nas apostas já liquidadas
type LeaderboardRow struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	ProfitCents int64  `json:"profit_cents"`
	Wins        int    `json:"wins"`
	Settled     int    `json:"settled"`
}

// Postgres implementa as escritas do wager-service (usuário, aposta + débito) e
// as consultas de saldo, histórico e ranking
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// CreateUser cria usuário e carteira com o saldo inicial. Idempotente por userID:
// chamar de novo não recredita.
func (p *Postgres) CreateUser(ctx context.Context, userID, username string) (created bool, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO users(id, username) VALUES($1,$2) ON CONFLICT (id) DO NOTHING`, userID, username)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	walletID := uuid.NewString()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallets(id, user_id, balance_cents, version) VALUES($1,$2,$3,1)`,
		walletID, userID, StartingBalanceCents); err != nil {
		return false, err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_ledger(wallet_id, operation_type, amount_cents, description) VALUES($1,'CREDIT',$2,'signup')`,
		walletID, StartingBalanceCents); err != nil {
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// CreateWager debita o stake e grava aposta + pernas na mesma transação.
// Preenche w.ID, w.Status e w.CreatedAt e devolve o novo saldo.
func (p *Postgres) CreateWager(ctx context.Context, w *model.Wager) (newBalance int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// lock pessimista na carteira: duas apostas simultâneas não gastam o mesmo saldo
	var (
		walletID string
		balance  int64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, balance_cents FROM wallets WHERE user_id=$1 FOR UPDATE`, w.UserID).Scan(&walletID, &balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("user %s: %w", w.UserID, ErrWalletNotFound)
	}
	if err != nil {
		return 0, err
	}
	if balance < w.StakeCents {
		return 0, ErrInsufficientFunds
	}

	if err = tx.QueryRowContext(ctx, `
		UPDATE wallets SET balance_cents = balance_cents - $1, version = version + 1
		WHERE id=$2
		RETURNING balance_cents`, w.StakeCents, walletID).Scan(&newBalance); err != nil {
		return 0, err
	}

	w.ID = uuid.NewString()
	w.Status = model.StatusPending
	w.CreatedAt = time.Now().UTC()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO wagers(id, user_id, stake_cents, play_type, max_payout_cents, status, payout_cents, created_at)
		VALUES($1,$2,$3,$4,$5,'pending',0,$6)`,
		w.ID, w.UserID, w.StakeCents, string(w.PlayType), w.MaxPayoutCents, w.CreatedAt); err != nil {
		return 0, err
	}

	for i, l := range w.Legs {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO wager_legs(wager_id, position, prop_id, side, line)
			VALUES($1,$2,$3,$4,$5)`,
			w.ID, i, l.PropID, string(l.Side), l.Line); err != nil {
			return 0, err
		}
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_ledger(wallet_id, operation_type, amount_cents, description, related_wager_id)
		VALUES($1,'STAKE',$2,$3,$4)`,
		walletID, w.StakeCents, "stake:"+w.ID, w.ID); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Balance devolve o saldo atual do usuário
func (p *Postgres) Balance(ctx context.Context, userID string) (int64, error) {
	var bal int64
	err := p.db.QueryRowContext(ctx, `SELECT balance_cents FROM wallets WHERE user_id=$1`, userID).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("user %s: %w", userID, ErrWalletNotFound)
	}
	return bal, err
}

// ListWagersByUser devolve as apostas do usuário, mais recentes primeiro, com as pernas
func (p *Postgres) ListWagersByUser(ctx context.Context, userID string, limit int) ([]model.Wager, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, stake_cents, play_type, max_payout_cents, status,
		       effective_legs, payout_cents, created_at, settled_at
		FROM wagers WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out   []model.Wager
		ids   []string
		index = map[string]int{}
	)
	for rows.Next() {
		var (
			w         model.Wager
			effective sql.NullInt32
			settledAt sql.NullTime
		)
		if err := rows.Scan(&w.ID, &w.UserID, &w.StakeCents, &w.PlayType, &w.MaxPayoutCents, &w.Status,
			&effective, &w.PayoutCents, &w.CreatedAt, &settledAt); err != nil {
			return nil, err
		}
		w.EffectiveLegs = int(effective.Int32)
		if settledAt.Valid {
			t := settledAt.Time
			w.SettledAt = &t
		}
		index[w.ID] = len(out)
		ids = append(ids, w.ID)
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	legRows, err := p.db.QueryContext(ctx, `
		SELECT wager_id, prop_id, side, line, outcome
		FROM wager_legs WHERE wager_id = ANY($1)
		ORDER BY wager_id, position`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer legRows.Close()
	for legRows.Next() {
		var (
			wagerID string
			l       model.Leg
			outcome sql.NullString
		)
		if err := legRows.Scan(&wagerID, &l.PropID, &l.Side, &l.Line, &outcome); err != nil {
			return nil, err
		}
		l.Outcome = model.Outcome(outcome.String)
		if i, ok := index[wagerID]; ok {
			out[i].Legs = append(out[i].Legs, l)
		}
	}
	return out, legRows.Err()
}

// Leaderboard soma (pagamento - stake) das apostas ganhas e perdidas; reembolso é neutro
func (p *Postgres) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT u.id, u.username,
		       COALESCE(SUM(w.payout_cents - w.stake_cents) FILTER (WHERE w.status IN ('won','lost')), 0) AS profit,
		       COUNT(w.id) FILTER (WHERE w.status = 'won') AS wins,
		       COUNT(w.id) FILTER (WHERE w.status IN ('won','lost')) AS settled
		FROM users u
		LEFT JOIN wagers w ON w.user_id = u.id
		GROUP BY u.id, u.username
		ORDER BY profit DESC, u.username
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardRow
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.UserID, &r.Username, &r.ProfitCents, &r.Wins, &r.Settled); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
