package mqtt

import (
	"context"
	"encoding/json"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/fleetplan/core/schedule"
	"github.com/kilianp07/fleetplan/infra/logger"
)

// SnapshotMessage is the JSON payload published after each pass.
type SnapshotMessage struct {
	Pass     string                  `json:"pass"`
	Reason   string                  `json:"reason"`
	Time     time.Time               `json:"time"`
	Fleet    []schedule.AircraftView `json:"fleet"`
	Schedule []schedule.MissionView  `json:"schedule"`
	Errors   []string                `json:"errors"`
	Ferry    schedule.FerrySummary   `json:"ferry"`
}

// SnapshotPublisher forwards pass events to a broker topic.
type SnapshotPublisher struct {
	cli        pahoClient
	topic      string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

// NewSnapshotPublisher connects to the broker described by cfg.
func NewSnapshotPublisher(cfg Config) (*SnapshotPublisher, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	opts.OnConnect = func(paho.Client) { log.Infof("MQTT connected to %s", cfg.Broker) }
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &SnapshotPublisher{
		cli:        c,
		topic:      cfg.Topic,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
	}, nil
}

// Publish sends the snapshot carried by ev, retrying with exponential
// backoff until ctx is done.
func (p *SnapshotPublisher) Publish(ctx context.Context, ev schedule.PassEvent) error {
	payload, err := json.Marshal(SnapshotMessage{
		Pass:     ev.ID,
		Reason:   ev.Reason,
		Time:     ev.Time,
		Fleet:    ev.Snapshot.Fleet,
		Schedule: ev.Snapshot.Schedule,
		Errors:   ev.Snapshot.Errors,
		Ferry:    ev.Snapshot.Ferry,
	})
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(p.topic, p.qos, p.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.log.Debugf("published pass %s to %s", ev.ID, p.topic)
			return nil
		}
		p.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.backoff * time.Duration(1<<attempt)):
			}
		}
	}
	return publishErr
}

// Run publishes every event received on events until ctx is done or the
// channel is closed.
func (p *SnapshotPublisher) Run(ctx context.Context, events <-chan schedule.PassEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := p.Publish(ctx, ev); err != nil {
				p.log.Errorf("snapshot %s dropped: %v", ev.ID, err)
			}
		}
	}
}

// Close gracefully closes the MQTT connection.
func (p *SnapshotPublisher) Close() {
	if p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
