package producer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/prop-parlay-platform/internal/settlement/model"
	"github.com/radieske/prop-parlay-platform/pkg/contracts/events"
)

type captureWriter struct{ msgs []kafka.Message }

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func TestPublishPropResult_KeyedByProp(t *testing.T) {
	cw := &captureWriter{}
	score := 8.0
	err := NewKafkaPublisher(cw).PublishPropResult(context.Background(),
		model.Prop{ID: "p-7", ActualScore: &score, GameComplete: true})
	require.NoError(t, err)

	require.Len(t, cw.msgs, 1)
	assert.Equal(t, []byte("p-7"), cw.msgs[0].Key)

	var e events.PropResultPosted
	require.NoError(t, json.Unmarshal(cw.msgs[0].Value, &e))
	assert.Equal(t, "p-7", e.PropID)
	assert.True(t, e.GameComplete)
	require.NotNil(t, e.ActualScore)
	assert.Equal(t, 8.0, *e.ActualScore)
}
