package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/fleetplan/core/schedule"
)

// TestSnapshotPublisherIntegration publishes a pass snapshot through a real
// Mosquitto broker.
func TestSnapshotPublisherIntegration(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "eclipse-mosquitto:1.6",
			ExposedPorts: []string{"1883/tcp"},
			WaitingFor:   wait.ForListeningPort("1883/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "1883")
	require.NoError(t, err)
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())

	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("fleetplan-sub"))
	var tok paho.Token
	for i := 0; i < 5; i++ {
		tok = sub.Connect()
		if tok.Wait() && tok.Error() == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	require.NoError(t, tok.Error())
	defer sub.Disconnect(100)

	msgs := make(chan []byte, 1)
	tok = sub.Subscribe("fleetplan/schedule", 1, func(_ paho.Client, m paho.Message) {
		msgs <- m.Payload()
	})
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())

	pub, err := NewSnapshotPublisher(Config{Enabled: true, Broker: broker, ClientID: "fleetplan-pub", QoS: 1})
	require.NoError(t, err)
	defer pub.Close()

	ev := schedule.PassEvent{
		ID:     "pass-1",
		Reason: "mission 1 created",
		Time:   time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		Snapshot: schedule.Snapshot{
			Fleet:  []schedule.AircraftView{{Registration: "N1", Type: "CJ3", MaxPax: 6}},
			Errors: []string{},
		},
	}
	require.NoError(t, pub.Publish(ctx, ev))

	select {
	case payload := <-msgs:
		var got SnapshotMessage
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, "pass-1", got.Pass)
		assert.Equal(t, "mission 1 created", got.Reason)
		require.Len(t, got.Fleet, 1)
		assert.Equal(t, "N1", got.Fleet[0].Registration)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for snapshot")
	}
}
