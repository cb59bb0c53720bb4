package kafka

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumer_HealthTracksLoopLiveness(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	c := NewConsumerWithConfig(ConsumerConfig{
		Brokers:       []string{"localhost:1"},
		Topic:         "sensor-readings",
		ConsumerGroup: "sage-consumer",
	}, logger, func(context.Context, *IncomingMessage) error { return nil })

	// Not healthy until the consume loop is running.
	assert.False(t, c.Health())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))
	assert.True(t, c.Health())

	require.NoError(t, c.Stop())
	assert.False(t, c.Health())
}
