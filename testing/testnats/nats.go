// Package testnats runs a throwaway NATS server for producer tests and
// captures what the service publishes.
package testnats

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const image = "nats:2.10-alpine"

var (
	server     *Server
	serverOnce sync.Once
	serverErr  error
)

type Server struct {
	Container testcontainers.Container
	URL       string
}

// Shared starts one NATS server per test binary and reuses it afterwards.
func Shared(t *testing.T) *Server {
	t.Helper()

	serverOnce.Do(func() {
		server, serverErr = start(context.Background())
	})
	require.NoError(t, serverErr, "nats container failed to start")
	return server
}

func start(ctx context.Context) (*Server, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, err
	}

	endpoint, err := container.PortEndpoint(ctx, "4222/tcp", "nats")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &Server{Container: container, URL: endpoint}, nil
}

// Captured is one message received on a captured subject.
type Captured struct {
	Key  string
	Data []byte
}

// Decode unmarshals the JSON payload into v.
func (c Captured) Decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(c.Data, v))
}

// Capture subscribes to subject on a fresh connection and buffers every
// message until the test ends.
type Capture struct {
	sub *nats.Subscription
}

func (s *Server) Capture(t *testing.T, subject string) *Capture {
	t.Helper()

	conn, err := nats.Connect(s.URL, nats.Name(t.Name()))
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	sub, err := conn.SubscribeSync(subject)
	require.NoError(t, err)
	require.NoError(t, conn.Flush())

	return &Capture{sub: sub}
}

// Next waits for the next message or fails the test after timeout.
func (c *Capture) Next(t *testing.T, timeout time.Duration) Captured {
	t.Helper()

	msg, err := c.sub.NextMsg(timeout)
	require.NoError(t, err, "no message on %s", c.sub.Subject)

	var key string
	if msg.Header != nil {
		key = msg.Header.Get("Message-Key")
	}
	return Captured{Key: key, Data: msg.Data}
}
