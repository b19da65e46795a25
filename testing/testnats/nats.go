package testnats

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const clientPort = "4222/tcp"

var (
	shared    *NATSContainer
	sharedErr error
	startOnce sync.Once
)

// NATSContainer is a nats-server shared by every test of the binary.
type NATSContainer struct {
	Container testcontainers.Container
	URL       string
}

// SetupSharedNATS starts the server on first use. A failed start fails every
// caller, not only the first one.
func SetupSharedNATS(t *testing.T) *NATSContainer {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping NATS integration test in short mode")
	}

	startOnce.Do(func() {
		shared, sharedErr = start(context.Background())
	})
	require.NoError(t, sharedErr, "failed to start NATS container")
	return shared
}

func start(ctx context.Context) (*NATSContainer, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			ExposedPorts: []string{clientPort},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort(clientPort),
				wait.ForLog("Server is ready"),
			).WithDeadline(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return nil, err
	}

	endpoint, err := container.PortEndpoint(ctx, clientPort, "nats")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to resolve NATS endpoint: %w", err)
	}

	return &NATSContainer{Container: container, URL: endpoint}, nil
}

func (nc *NATSContainer) Cleanup(t *testing.T) {
	t.Helper()

	if nc.Container != nil {
		if err := nc.Container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
}

// Connect opens a client connection closed at the end of the test.
func (nc *NATSContainer) Connect(t *testing.T) *nats.Conn {
	t.Helper()

	conn, err := nats.Connect(nc.URL, nats.Name(t.Name()), nats.Timeout(5*time.Second))
	require.NoError(t, err)

	t.Cleanup(conn.Close)
	return conn
}

// Subscribe buffers every message published on subject for the rest of the test.
func (nc *NATSContainer) Subscribe(t *testing.T, subject string) <-chan *nats.Msg {
	t.Helper()

	conn := nc.Connect(t)
	ch := make(chan *nats.Msg, 64)
	_, err := conn.ChanSubscribe(subject, ch)
	require.NoError(t, err)
	require.NoError(t, conn.Flush())

	return ch
}
