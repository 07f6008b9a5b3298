package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

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

func (p *KafkaPublisher) PublishWagerPlaced(ctx context.Context, w model.Wager) error {
	e := events.WagerPlaced{
		WagerID:        w.ID,
		UserID:         w.UserID,
		PlayType:       string(w.PlayType),
		StakeCents:     w.StakeCents,
		MaxPayoutCents: w.MaxPayoutCents,
		TsUnixMs:       time.Now().UnixMilli(),
	}
	for _, l := range w.Legs {
		e.Legs = append(e.Legs, events.WagerLeg{PropID: l.PropID, Side: string(l.Side), Line: l.Line})
	}
	b, _ := json.Marshal(e)
	return p.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(w.ID), Value: b})
}
