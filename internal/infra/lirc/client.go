// Package lirc talks to the Linux Infrared Remote Control daemon over its
// command socket and uses it to transmit remote-control codes.
package lirc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"tv-bridge/internal/infra"
)

const (
	defaultReplyTimeout = 10 * time.Second

	// indicatorIdle is the liveness indicator level before the first retry.
	indicatorIdle = false
)

// Client is a synchronous lircd client. One command is in flight at a time;
// the socket is dialled lazily and redialled after an I/O error.
type Client struct {
	dial    func(ctx context.Context) (net.Conn, error)
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// NewUnix creates a client for lircd's Unix socket, usually /run/lirc/lircd.
func NewUnix(path string, logger *slog.Logger) *Client {
	return newClient(func(ctx context.Context) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", path)
	}, logger)
}

// NewTCP creates a client for lircd listening on host:port.
func NewTCP(addr string, logger *slog.Logger) *Client {
	return newClient(func(ctx context.Context) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "tcp", addr)
	}, logger)
}

func newClient(dial func(ctx context.Context) (net.Conn, error), logger *slog.Logger) *Client {
	return &Client{
		dial:    dial,
		logger:  logger,
		timeout: defaultReplyTimeout,
	}
}

// Connect waits for lircd to answer a VERSION command and returns the daemon
// version. Every failed attempt flips the liveness indicator and logs it.
func (c *Client) Connect(ctx context.Context, retry infra.RetryConfig) (string, error) {
	indicator := infra.NewIndicator(indicatorIdle)
	retry.OnRetry = func(attempt int, err error) {
		c.logger.Warn("lircd not reachable, retrying",
			"attempt", attempt,
			"indicator", indicator.Toggle(),
			"error", err,
		)
	}

	var version string
	err := infra.WithRetry(ctx, retry, func() error {
		reply, err := c.SendCommand(ctx, Version{})
		if err != nil {
			return err
		}
		if len(reply.Data) > 0 {
			version = reply.Data[0]
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("connecting to lircd: %w", err)
	}

	return version, nil
}

// SendCommand writes one command and waits for its reply packet.
func (c *Client) SendCommand(ctx context.Context, cmd Command) (Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConn(ctx); err != nil {
		return Reply{}, err
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		c.closeConn()
		return Reply{}, fmt.Errorf("setting deadline: %w", err)
	}

	args := cmd.EncodeCommand()
	raw := strings.Join(args, " ") + "\n"
	if _, err := io.WriteString(c.conn, raw); err != nil {
		c.closeConn()
		return Reply{}, fmt.Errorf("writing to lircd socket: %w", err)
	}

	reply, err := c.readReply(ctx, args[0])
	if err != nil {
		return reply, err
	}
	if !reply.Success {
		return reply, ErrUnsuccessfulCommand
	}
	return reply, nil
}

func (c *Client) readReply(ctx context.Context, name string) (Reply, error) {
	var parser replyParser

	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			c.closeConn()
			return Reply{}, fmt.Errorf("reading from lircd socket: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")

		done, err := parser.feed(line)
		if errors.Is(err, errNotReply) {
			c.logger.DebugContext(ctx, "ignoring lircd broadcast", "line", line)
			continue
		}
		if err != nil {
			// The stream is out of sync; start over on a fresh connection.
			c.closeConn()
			return Reply{}, err
		}
		if !done {
			continue
		}

		reply := parser.reply
		if reply.Command == "SIGHUP" {
			c.logger.InfoContext(ctx, "lircd has been reloaded")
			continue
		}
		if fields := strings.Fields(reply.Command); len(fields) == 0 || fields[0] != name {
			return reply, fmt.Errorf("unexpected reply command: %q", reply.Command)
		}
		return reply, nil
	}
}

func (c *Client) ensureConn(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("cannot dial lircd connection: %w", err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

func (c *Client) closeConn() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = nil
	c.reader = nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("closing lircd connection: %w", err)
	}
	return nil
}
