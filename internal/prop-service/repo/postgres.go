package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/prop-parlay-platform/internal/settlement/model"
)

var ErrNotFound = errors.New("prop not found")

const propColumns = `id, player, team, opponent, stat, line, game_time, hidden,
	actual_score, refund_status, game_complete, created_at, updated_at`

// Result é o que o admin lança quando o jogo anda ou termina
type Result struct {
	ActualScore  *float64
	RefundStatus bool
	GameComplete bool
}

// Postgres é dono da tabela props. Props nunca são apagadas, só escondidas.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Create(ctx context.Context, pr *model.Prop) error {
	pr.ID = uuid.NewString()
	now := time.Now().UTC()
	pr.CreatedAt, pr.UpdatedAt = now, now

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO props(id, player, team, opponent, stat, line, game_time, hidden,
		                  refund_status, game_complete, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,false,false,false,$8,$8)`,
		pr.ID, pr.Player, pr.Team, pr.Opponent, pr.Stat, pr.Line, pr.GameTime, now)
	return err
}

// ListVisible devolve as props não escondidas, jogo mais próximo primeiro
func (p *Postgres) ListVisible(ctx context.Context) ([]model.Prop, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+propColumns+`
		FROM props
		WHERE hidden = false
		ORDER BY game_time, player`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Prop
	for rows.Next() {
		pr, err := scanProp(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (p *Postgres) Hide(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("prop %s: %w", id, ErrNotFound)
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE props SET hidden = true, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("prop %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateResult grava placar/anulação/fim de jogo e devolve a prop atualizada
func (p *Postgres) UpdateResult(ctx context.Context, id string, r Result) (model.Prop, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Prop{}, fmt.Errorf("prop %s: %w", id, ErrNotFound)
	}
	var score sql.NullFloat64
	if r.ActualScore != nil {
		score = sql.NullFloat64{Float64: *r.ActualScore, Valid: true}
	}
	row := p.db.QueryRowContext(ctx, `
		UPDATE props
		SET actual_score = $2, refund_status = $3, game_complete = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+propColumns,
		id, score, r.RefundStatus, r.GameComplete)

	pr, err := scanProp(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Prop{}, fmt.Errorf("prop %s: %w", id, ErrNotFound)
	}
	return pr, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProp(s scanner) (model.Prop, error) {
	var (
		pr     model.Prop
		actual sql.NullFloat64
	)
	if err := s.Scan(&pr.ID, &pr.Player, &pr.Team, &pr.Opponent, &pr.Stat, &pr.Line,
		&pr.GameTime, &pr.Hidden, &actual, &pr.RefundStatus, &pr.GameComplete,
		&pr.CreatedAt, &pr.UpdatedAt); err != nil {
		return model.Prop{}, err
	}
	if actual.Valid {
		v := actual.Float64
		pr.ActualScore = &v
	}
	return pr, nil
}
