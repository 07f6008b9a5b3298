package producer

import (
	"context"
	"encoding/json"

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

// PublishPropResult dispara a liquidação das apostas que usam a prop
func (p *KafkaPublisher) PublishPropResult(ctx context.Context, pr model.Prop) error {
	e := events.PropResultPosted{
		PropID:       pr.ID,
		ActualScore:  pr.ActualScore,
		RefundStatus: pr.RefundStatus,
		GameComplete: pr.GameComplete,
		UpdatedAt:    pr.UpdatedAt,
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(pr.ID), Value: b})
}
