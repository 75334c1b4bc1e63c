package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
)

const (
	keepAlive         = 20
	disconnectTimeout = 5 * time.Second
)

type ClientConfig struct {
	URL      string
	ClientID string
	Username string
	Password string
}

// Client connects to an external broker. The connection is re-established
// in the background and subscriptions are renewed on every connect.
type Client struct {
	cfg    ClientConfig
	router *paho.StandardRouter
	logger *slog.Logger

	mu      sync.RWMutex
	filters []string
	cm      *autopaho.ConnectionManager
}

func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		router: paho.NewStandardRouter(),
		logger: logger,
	}
}

func (c *Client) Subscribe(filter string, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cm != nil {
		return errors.New("subscribe after start")
	}
	c.filters = append(c.filters, filter)
	c.router.RegisterHandler(filter, func(p *paho.Publish) {
		handler(p.Topic, p.Payload)
	})
	return nil
}

func (c *Client) Start(ctx context.Context) error {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("parsing broker url: %w", err)
	}

	cfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{u},
		KeepAlive:                     keepAlive,
		CleanStartOnInitialConnection: true,
		ConnectUsername:               c.cfg.Username,
		OnConnectionUp:                c.onConnectionUp,
		OnConnectError: func(err error) {
			c.logger.Warn("mqtt connection attempt failed", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: c.cfg.ClientID,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					c.router.Route(pr.Packet.Packet())
					return true, nil
				},
			},
			OnClientError: func(err error) {
				c.logger.Warn("mqtt client error", "error", err)
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				c.logger.Warn("mqtt server requested disconnect", "reason_code", d.ReasonCode)
			},
		},
	}

	if c.cfg.Password != "" {
		cfg.ConnectPassword = []byte(c.cfg.Password)
	}

	cm, err := autopaho.NewConnection(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.cfg.URL, err)
	}

	c.mu.Lock()
	c.cm = cm
	c.mu.Unlock()
	return nil
}

func (c *Client) onConnectionUp(cm *autopaho.ConnectionManager, _ *paho.Connack) {
	c.logger.Info("mqtt connection up", "url", c.cfg.URL)

	c.mu.RLock()
	subs := make([]paho.SubscribeOptions, 0, len(c.filters))
	for _, filter := range c.filters {
		subs = append(subs, paho.SubscribeOptions{Topic: filter, QoS: 1})
	}
	c.mu.RUnlock()

	if len(subs) == 0 {
		return
	}
	if _, err := cm.Subscribe(context.Background(), &paho.Subscribe{Subscriptions: subs}); err != nil {
		c.logger.Error("mqtt subscribe failed", "error", err)
	}
}

// AwaitConnection blocks until the broker connection is up or ctx is done.
func (c *Client) AwaitConnection(ctx context.Context) error {
	c.mu.RLock()
	cm := c.cm
	c.mu.RUnlock()

	if cm == nil {
		return errors.New("await before start")
	}
	return cm.AwaitConnection(ctx)
}

func (c *Client) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	c.mu.RLock()
	cm := c.cm
	c.mu.RUnlock()

	if cm == nil {
		return errors.New("publish before start")
	}

	_, err := cm.Publish(ctx, &paho.Publish{
		QoS:     1,
		Topic:   topic,
		Payload: payload,
		Retain:  retain,
	})
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.RLock()
	cm := c.cm
	c.mu.RUnlock()

	if cm == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := cm.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnecting from %s: %w", c.cfg.URL, err)
	}
	return nil
}
