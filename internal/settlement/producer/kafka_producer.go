package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/prop-parlay-platform/internal/settlement/grading"
	"github.com/radieske/prop-parlay-platform/internal/settlement/model"
	"github.com/radieske/prop-parlay-platform/pkg/contracts/events"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaPublisher struct {
	Writer MessageWriter
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

// PublishWagerSettled usa o id da aposta como chave: eventos da mesma aposta ficam na mesma partição
func (p *KafkaPublisher) PublishWagerSettled(ctx context.Context, w model.Wager, d grading.Decision) error {
	e := events.WagerSettled{
		WagerID:       w.ID,
		UserID:        w.UserID,
		Status:        string(d.Verdict.Status()),
		EffectiveLegs: d.EffectiveLegs,
		Hits:          d.Hits,
		CreditCents:   d.Payout,
		Ts:            time.Now().UTC(),
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(w.ID), Value: b})
}
