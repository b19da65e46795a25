package messaging_test

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/bohdanadamenko/mini-time-tracker/internal/health"
	"github.com/bohdanadamenko/mini-time-tracker/internal/logger"
	"github.com/bohdanadamenko/mini-time-tracker/internal/messaging"
	"github.com/bohdanadamenko/mini-time-tracker/testing/testnats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The app registers the producer as a readiness dependency.
var _ health.Checker = (*messaging.Producer)(nil)

func TestProducer_Shared(t *testing.T) {
	natsContainer := testnats.SetupSharedNATS(t)
	defer natsContainer.Cleanup(t)

	log := logger.NewWithWriter(io.Discard, true)

	t.Run("SendMessage", func(t *testing.T) {
		messages := natsContainer.Subscribe(t, "entries.events")

		producer, err := messaging.NewProducer(natsContainer.URL, "entries.events", log)
		require.NoError(t, err)
		defer producer.Close()

		require.NoError(t, producer.HealthCheck())

		err = producer.SendMessage("7", map[string]interface{}{"type": "entry.deleted", "id": "evt-7"})
		require.NoError(t, err)

		select {
		case msg := <-messages:
			assert.Equal(t, "7", msg.Header.Get(messaging.KeyHeader))

			var payload map[string]interface{}
			require.NoError(t, json.Unmarshal(msg.Data, &payload))
			assert.Equal(t, "entry.deleted", payload["type"])
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for message")
		}
	})

	t.Run("ClosedProducer", func(t *testing.T) {
		producer, err := messaging.NewProducer(natsContainer.URL, "entries.events", log)
		require.NoError(t, err)

		require.NoError(t, producer.Close())
		assert.Eventually(t, func() bool { return producer.HealthCheck() != nil }, 2*time.Second, 20*time.Millisecond)
	})
}

func TestNewProducer_Unreachable(t *testing.T) {
	_, err := messaging.NewProducer("nats://127.0.0.1:1", "entries.events", logger.NewWithWriter(io.Discard, true))
	assert.Error(t, err)
}
