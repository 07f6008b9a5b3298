package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/radieske/prop-parlay-platform/internal/settlement/model"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrWalletNotFound = errors.New("wallet not found")
)

// Postgres implementa as leituras e a escrita atômica da liquidação
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// PendingWagerIDsByProp lista as apostas pending que têm alguma perna na prop
func (p *Postgres) PendingWagerIDsByProp(ctx context.Context, propID string) ([]string, error) {
	if !isUUID(propID) {
		return nil, nil
	}
	const q = `
		SELECT DISTINCT w.id
		FROM wagers w
		JOIN wager_legs l ON l.wager_id = w.id
		WHERE l.prop_id = $1 AND w.status = 'pending'
		ORDER BY w.id`
	return p.queryIDs(ctx, q, propID)
}

// PendingWagerIDs pagina as apostas pending por id (keyset, after="" na primeira
// página). Só devolve candidatas sem perna em jogo aberto; perna com prop
// inexistente não é filtrada para o erro continuar visível.
func (p *Postgres) PendingWagerIDs(ctx context.Context, after string, limit int) ([]string, error) {
	const q = `
		SELECT w.id
		FROM wagers w
		WHERE w.status = 'pending' AND w.id::text > $1
		  AND NOT EXISTS (
		      SELECT 1 FROM wager_legs l
		      JOIN props pr ON pr.id = l.prop_id
		      WHERE l.wager_id = w.id AND NOT pr.game_complete)
		ORDER BY w.id::text
		LIMIT $2`
	return p.queryIDs(ctx, q, after, limit)
}

func (p *Postgres) queryIDs(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GetWager carrega a aposta e as pernas na ordem original
func (p *Postgres) GetWager(ctx context.Context, id string) (model.Wager, error) {
	if !isUUID(id) {
		return model.Wager{}, fmt.Errorf("wager %s: %w", id, ErrNotFound)
	}
	var (
		w         model.Wager
		effective sql.NullInt32
		settledAt sql.NullTime
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, stake_cents, play_type, max_payout_cents, status,
		       effective_legs, payout_cents, created_at, settled_at
		FROM wagers WHERE id = $1`, id).Scan(
		&w.ID, &w.UserID, &w.StakeCents, &w.PlayType, &w.MaxPayoutCents, &w.Status,
		&effective, &w.PayoutCents, &w.CreatedAt, &settledAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Wager{}, fmt.Errorf("wager %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Wager{}, err
	}
	w.EffectiveLegs = int(effective.Int32)
	if settledAt.Valid {
		t := settledAt.Time
		w.SettledAt = &t
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT prop_id, side, line, outcome
		FROM wager_legs WHERE wager_id = $1
		ORDER BY position`, id)
	if err != nil {
		return model.Wager{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			l       model.Leg
			outcome sql.NullString
		)
		if err := rows.Scan(&l.PropID, &l.Side, &l.Line, &outcome); err != nil {
			return model.Wager{}, err
		}
		l.Outcome = model.Outcome(outcome.String)
		w.Legs = append(w.Legs, l)
	}
	return w, rows.Err()
}

// PropsByIDs devolve o snapshot das props pedidas; ids ausentes simplesmente não aparecem
func (p *Postgres) PropsByIDs(ctx context.Context, ids []string) (map[string]model.Prop, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	out := make(map[string]model.Prop, len(valid))
	if len(valid) == 0 {
		return out, nil
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, player, team, opponent, stat, line, game_time, hidden,
		       actual_score, refund_status, game_complete, created_at, updated_at
		FROM props WHERE id = ANY($1)`, pq.Array(valid))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pr     model.Prop
			actual sql.NullFloat64
		)
		if err := rows.Scan(&pr.ID, &pr.Player, &pr.Team, &pr.Opponent, &pr.Stat, &pr.Line,
			&pr.GameTime, &pr.Hidden, &actual, &pr.RefundStatus, &pr.GameComplete,
			&pr.CreatedAt, &pr.UpdatedAt); err != nil {
			return nil, err
		}
		if actual.Valid {
			v := actual.Float64
			pr.ActualScore = &v
		}
		out[pr.ID] = pr
	}
	return out, rows.Err()
}

// Settle troca o status (só se ainda pending), grava as pernas e credita a carteira
// na mesma transação. Se qualquer passo falhar nada é gravado.
func (p *Postgres) Settle(ctx context.Context, s model.Settlement) (bool, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	// compare-and-swap: só um gatilho consegue sair de pending
	res, err := tx.ExecContext(ctx, `
		UPDATE wagers
		SET status = $2, effective_legs = $3, payout_cents = $4, settled_at = NOW()
		WHERE id = $1 AND status = 'pending'`,
		s.WagerID, string(s.Status), s.EffectiveLegs, s.CreditCents)
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

	for i, o := range s.Outcomes {
		if _, err = tx.ExecContext(ctx,
			`UPDATE wager_legs SET outcome = $3 WHERE wager_id = $1 AND position = $2`,
			s.WagerID, i, string(o)); err != nil {
			return false, err
		}
	}

	if s.CreditCents > 0 {
		var walletID string
		// incremento atômico no próprio banco serializa pagamentos concorrentes ao mesmo usuário
		err = tx.QueryRowContext(ctx, `
			UPDATE wallets SET balance_cents = balance_cents + $1, version = version + 1
			WHERE user_id = $2
			RETURNING id`, s.CreditCents, s.UserID).Scan(&walletID)
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("user %s: %w", s.UserID, ErrWalletNotFound)
		}
		if err != nil {
			return false, err
		}

		op := "PAYOUT"
		if s.Status == model.StatusRefunded {
			op = "REFUND"
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO wallet_ledger(wallet_id, operation_type, amount_cents, description, related_wager_id)
			VALUES($1,$2,$3,$4,$5)`,
			walletID, op, s.CreditCents, "settle:"+s.WagerID, s.WagerID); err != nil {
			return false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// isUUID: id malformado não existe em coluna UUID; consultar faria o Postgres
// falhar com erro de sintaxe em vez de "não encontrado"
func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
