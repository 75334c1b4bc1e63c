// Package mqtt mirrors the virtual devices onto an MQTT broker and accepts
// state changes published to it, either through an embedded broker or an
// external one.
package mqtt

import "context"

// Handler receives messages for a subscribed topic filter.
type Handler func(topic string, payload []byte)

// Bus is the subset of MQTT the bridge needs. Subscriptions are registered
// before Start so they survive reconnects.
type Bus interface {
	Subscribe(filter string, handler Handler) error
	Start(ctx context.Context) error
	Publish(ctx context.Context, topic string, payload []byte, retain bool) error
	Close() error
}
