package kafka

import (
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/bohdanadamenko/mini-time-tracker/internal/logger"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func TestProducer_SendMessage(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, NewConfig())
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, "time-entries", msg.Topic)

		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "42", string(key))

		value, err := msg.Value.Encode()
		require.NoError(t, err)
		var event testEvent
		require.NoError(t, json.Unmarshal(value, &event))
		assert.Equal(t, testEvent{ID: "evt-1", Type: "entry.created"}, event)
		return nil
	})

	producer := NewProducerWithClient(mockProducer, "time-entries", logger.NewWithWriter(io.Discard, true))

	err := producer.SendMessage("42", testEvent{ID: "evt-1", Type: "entry.created"})
	require.NoError(t, err)
	require.NoError(t, producer.Close())
}

func TestProducer_SendMessage_BrokerError(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, NewConfig())
	mockProducer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	producer := NewProducerWithClient(mockProducer, "time-entries", logger.NewWithWriter(io.Discard, true))

	err := producer.SendMessage("1", testEvent{ID: "evt-2"})
	assert.True(t, errors.Is(err, sarama.ErrNotLeaderForPartition))
	require.NoError(t, producer.Close())
}

func TestProducer_SendMessage_Unencodable(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, NewConfig())
	producer := NewProducerWithClient(mockProducer, "time-entries", logger.NewWithWriter(io.Discard, true))

	err := producer.SendMessage("1", make(chan int))
	assert.Error(t, err)
	require.NoError(t, producer.Close())
}

func TestNewConfig(t *testing.T) {
	config := NewConfig()

	assert.Equal(t, sarama.WaitForAll, config.Producer.RequiredAcks)
	assert.True(t, config.Producer.Return.Successes)
	assert.Equal(t, 5, config.Producer.Retry.Max)
	assert.NoError(t, config.Validate())
}
