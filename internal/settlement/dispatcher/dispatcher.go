// Package dispatcher transforma um evento de resultado de prop em tarefas
// independentes de liquidação, uma por aposta afetada.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/prop-parlay-platform/internal/settlement/grading"
	"github.com/radieske/prop-parlay-platform/internal/settlement/lock"
	"github.com/radieske/prop-parlay-platform/internal/settlement/model"
)

const (
	defaultConcurrency = 8
	defaultSweepLimit  = 500
)

// Store são as leituras que a liquidação precisa
type Store interface {
	PendingWagerIDsByProp(ctx context.Context, propID string) ([]string, error)
	PendingWagerIDs(ctx context.Context, after string, limit int) ([]string, error)
	GetWager(ctx context.Context, id string) (model.Wager, error)
	PropsByIDs(ctx context.Context, ids []string) (map[string]model.Prop, error)
}

// Applier é o ledger.Updater
type Applier interface {
	Apply(ctx context.Context, w model.Wager, d grading.Decision) (bool, error)
}

// Dispatcher coordena ler -> gradear -> aplicar por aposta, sob lock da aposta
type Dispatcher struct {
	log         *zap.Logger
	store       Store
	ledger      Applier
	locker      lock.Locker
	concurrency int
	sweepLimit  int

	OnSettled func(w model.Wager, d grading.Decision) // métricas + evento wager_settled
	OnSkipped func(reason string)                     // "not_gradable" | "already_settled"
	OnError   func(stage string)                      // métricas por fase
	OnLatency func(d time.Duration)
}

type Option func(*Dispatcher)

// WithConcurrency limita quantas apostas são liquidadas ao mesmo tempo por evento
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

func WithSweepLimit(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.sweepLimit = n
		}
	}
}

func New(log *zap.Logger, store Store, ledger Applier, locker lock.Locker, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		log:         log,
		store:       store,
		ledger:      ledger,
		locker:      locker,
		concurrency: defaultConcurrency,
		sweepLimit:  defaultSweepLimit,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandlePropResult liquida todas as apostas pending que usam a prop.
// Cada aposta é uma tarefa isolada; o erro de uma não impede as outras.
func (d *Dispatcher) HandlePropResult(ctx context.Context, propID string) error {
	ids, err := d.store.PendingWagerIDsByProp(ctx, propID)
	if err != nil {
		d.onError("read_wagers")
		return fmt.Errorf("pending wagers for prop %s: %w", propID, err)
	}
	d.log.Debug("prop result fan-out", zap.String("propId", propID), zap.Int("wagers", len(ids)))
	return d.settleAll(ctx, ids)
}

// Sweep reprocessa todas as apostas pending, uma página de sweepLimit por vez;
// cobre eventos perdidos ou que falharam. Apostas presas (prop inexistente)
// não impedem o avanço do cursor.
func (d *Dispatcher) Sweep(ctx context.Context) error {
	var (
		after string
		total int
		errs  []error
	)
	for {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		ids, err := d.store.PendingWagerIDs(ctx, after, d.sweepLimit)
		if err != nil {
			d.onError("read_wagers")
			errs = append(errs, fmt.Errorf("pending wagers after %q: %w", after, err))
			break
		}
		total += len(ids)
		if err := d.settleAll(ctx, ids); err != nil {
			errs = append(errs, err)
		}
		if len(ids) < d.sweepLimit {
			break
		}
		after = ids[len(ids)-1]
	}
	d.log.Debug("sweep", zap.Int("wagers", total))
	return errors.Join(errs...)
}

func (d *Dispatcher) settleAll(ctx context.Context, ids []string) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(d.concurrency)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := d.SettleWager(ctx, id); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// SettleWager relê a aposta já com o lock, então dois gatilhos vindos de pernas
// diferentes nunca veem "pending" ao mesmo tempo.
func (d *Dispatcher) SettleWager(ctx context.Context, wagerID string) error {
	start := time.Now()

	unlock, err := d.locker.Lock(ctx, "wager:"+wagerID)
	if err != nil {
		d.onError("lock")
		return fmt.Errorf("lock wager %s: %w", wagerID, err)
	}
	defer unlock()

	w, err := d.store.GetWager(ctx, wagerID)
	if err != nil {
		d.onError("read_wager")
		return fmt.Errorf("read wager %s: %w", wagerID, err)
	}
	if w.Status.Terminal() {
		d.onSkipped("already_settled")
		return nil
	}

	props, err := d.store.PropsByIDs(ctx, w.PropIDs())
	if err != nil {
		d.onError("read_props")
		return fmt.Errorf("read props for wager %s: %w", wagerID, err)
	}

	dec, err := grading.Grade(w, props)
	if err != nil {
		// inconsistência de dados: não tenta liquidar, sobe para o chamador
		d.onError("grade")
		d.log.Error("wager cannot be graded", zap.String("wagerId", wagerID), zap.Error(err))
		return err
	}
	if !dec.Gradable() {
		d.onSkipped("not_gradable")
		return nil
	}

	applied, err := d.ledger.Apply(ctx, w, dec)
	if err != nil {
		d.onError("apply")
		return err
	}
	if !applied {
		d.onSkipped("already_settled")
		return nil
	}

	if d.OnLatency != nil {
		d.OnLatency(time.Since(start))
	}
	if d.OnSettled != nil {
		d.OnSettled(w, dec)
	}
	return nil
}

func (d *Dispatcher) onError(stage string) {
	if d.OnError != nil {
		d.OnError(stage)
	}
}

func (d *Dispatcher) onSkipped(reason string) {
	if d.OnSkipped != nil {
		d.OnSkipped(reason)
	}
}
