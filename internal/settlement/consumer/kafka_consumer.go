package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/prop-parlay-platform/internal/settlement/grading"
	"github.com/radieske/prop-parlay-platform/pkg/contracts/events"
)

const (
	defaultRetries = 3
	defaultBackoff = 300 * time.Millisecond
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Handler é o dispatcher de liquidação
type Handler interface {
	HandlePropResult(ctx context.Context, propID string) error
}

// Processor consome prop_results e dispara a liquidação das apostas afetadas.
// Falhas transitórias são retentadas; esgotadas as tentativas a mensagem vai pra DLQ
// e a varredura periódica acaba liquidando depois.
type Processor struct {
	Log     *zap.Logger
	Reader  MessageReader
	Handler Handler
	DLQ     MessageWriter // opcional

	Retries int
	Backoff time.Duration

	OnConsumed   func()       // métricas (counter++)
	OnHandled    func()       // métricas
	OnDeadLetter func()       // métricas
	OnError      func(string) // métricas por fase
}

// Run inicia o loop de consumo; só retorna quando o contexto é cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.onError("read")
			if !sleep(ctx, 500*time.Millisecond) {
				return ctx.Err()
			}
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		p.process(ctx, m)
	}
}

func (p *Processor) process(ctx context.Context, m kafka.Message) {
	var ev events.PropResultPosted
	if err := json.Unmarshal(m.Value, &ev); err != nil || ev.PropID == "" {
		p.Log.Warn("invalid message", zap.ByteString("key", m.Key), zap.Error(err))
		p.onError("decode")
		return
	}

	err := p.handle(ctx, ev.PropID)
	if err == nil {
		if p.OnHandled != nil {
			p.OnHandled()
		}
		return
	}
	if ctx.Err() != nil {
		return
	}

	p.Log.Error("prop result failed", zap.String("propId", ev.PropID), zap.Error(err))
	p.deadLetter(ctx, m, err)
}

// handle tenta até Retries vezes com backoff linear.
// Erro de consistência do grading não melhora com retry.
func (p *Processor) handle(ctx context.Context, propID string) error {
	retries := p.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	err := p.Handler.HandlePropResult(ctx, propID)
	for i := 0; err != nil && i < retries; i++ {
		if permanent(err) {
			return err
		}
		p.onError("settle")
		p.Log.Warn("settlement retry", zap.String("propId", propID), zap.Int("attempt", i+1), zap.Error(err))
		if !sleep(ctx, time.Duration(i+1)*backoff) {
			return ctx.Err()
		}
		err = p.Handler.HandlePropResult(ctx, propID)
	}
	return err
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, cause error) {
	if p.DLQ == nil {
		return
	}
	msg := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: []kafka.Header{
			{Key: "error", Value: []byte(cause.Error())},
		},
		Time: time.Now(),
	}
	if err := p.DLQ.WriteMessages(ctx, msg); err != nil {
		p.Log.Error("dlq write failed", zap.Error(err))
		p.onError("dlq")
		return
	}
	if p.OnDeadLetter != nil {
		p.OnDeadLetter()
	}
}

func (p *Processor) onError(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

func permanent(err error) bool {
	return errors.Is(err, grading.ErrUnknownProp) ||
		errors.Is(err, grading.ErrInvalidLegCount) ||
		errors.Is(err, grading.ErrUnsupportedPlay) ||
		errors.Is(err, grading.ErrInvalidLegSide) ||
		errors.Is(err, grading.ErrNonPositiveStake)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
