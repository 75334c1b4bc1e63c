package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
)

// Broker runs an embedded MQTT broker and talks to it through the inline
// client, so no network round trip is needed for the bridge's own traffic.
type Broker struct {
	server *mochi.Server
	addr   string
	logger *slog.Logger

	mu     sync.Mutex
	nextID int
}

func NewBroker(addr string, logger *slog.Logger) *Broker {
	server := mochi.New(&mochi.Options{
		InlineClient: true,
		Logger:       logger.With("component", "mqtt-broker"),
	})

	return &Broker{
		server: server,
		addr:   addr,
		logger: logger,
		nextID: 1,
	}
}

func (b *Broker) Subscribe(filter string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.server.Subscribe(filter, b.nextID, func(_ *mochi.Client, _ packets.Subscription, pk packets.Packet) {
		handler(pk.TopicName, pk.Payload)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", filter, err)
	}
	b.nextID++
	return nil
}

func (b *Broker) Start(ctx context.Context) error {
	// Clients on the LAN are trusted like the Hue endpoint is.
	if err := b.server.AddHook(new(auth.AllowHook), nil); err != nil {
		return fmt.Errorf("adding auth hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{ID: "tcp", Address: b.addr})
	if err := b.server.AddListener(tcp); err != nil {
		return fmt.Errorf("adding mqtt listener: %w", err)
	}

	if err := b.server.Serve(); err != nil {
		return fmt.Errorf("serving mqtt: %w", err)
	}

	b.logger.Info("embedded mqtt broker started", "addr", b.addr)
	return nil
}

func (b *Broker) Publish(_ context.Context, topic string, payload []byte, retain bool) error {
	if err := b.server.Publish(topic, payload, retain, 0); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

func (b *Broker) Close() error {
	return b.server.Close()
}
