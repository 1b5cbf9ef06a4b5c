// Package playout talks to the playout automation over its TCP command
// socket: pushing finished breaks, managing the track counter, and watching
// for pushed breaks going to air.
package playout

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hermesradio/hermes/internal/config"
	"github.com/hermesradio/hermes/internal/observability"
	"github.com/hermesradio/hermes/internal/pipeline/core"
)

// Client speaks the playout line protocol: one command per write, response
// lines until an END marker. Commands are serialized over a single
// connection; a protocol or IO error tears the connection down and the next
// command reconnects.
type Client struct {
	cfg    config.PlayoutConfig
	logger *slog.Logger

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// NewClient creates a playout client. No connection is made until the first
// command.
func NewClient(cfg config.PlayoutConfig, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: observability.WithComponent(logger, "playout"),
	}
}

// send runs one command and returns the response body (the lines before
// END, joined with newlines).
func (c *Client) send(ctx context.Context, cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected(ctx); err != nil {
		return "", err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	} else {
		_ = c.conn.SetDeadline(time.Now().Add(c.cfg.CommandTimeout))
	}

	if _, err := fmt.Fprintf(c.conn, "%s\n", cmd); err != nil {
		c.teardown()
		return "", fmt.Errorf("writing %q: %w", cmd, err)
	}

	var lines []string
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			c.teardown()
			return "", fmt.Errorf("reading response to %q: %w", cmd, err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "END" {
			break
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n"), nil
}

// ensureConnected dials the playout socket if the connection is down.
// Callers hold the mutex.
func (c *Client) ensureConnected(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	dialer := net.Dialer{Timeout: c.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Address())
	if err != nil {
		return fmt.Errorf("connecting to playout at %s: %w", c.cfg.Address(), err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.logger.Debug("playout connected", slog.String("address", c.cfg.Address()))
	return nil
}

// teardown drops the connection so the next command reconnects. Callers
// hold the mutex.
func (c *Client) teardown() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.reader = nil
}

// PushBreak enqueues a finished break file on the breaks queue. Playout
// plays it at the next track boundary.
func (c *Client) PushBreak(ctx context.Context, path string) error {
	_, err := c.send(ctx, "breaks.push "+path)
	return err
}

// PushSting enqueues a sting on the stings queue, which interrupts the
// current track immediately.
func (c *Client) PushSting(ctx context.Context, path string) error {
	_, err := c.send(ctx, "stings.push "+path)
	return err
}

// ResetCounter zeroes the tracks-since-last-break counter.
func (c *Client) ResetCounter(ctx context.Context) error {
	_, err := c.send(ctx, "hermes.reset_counter")
	return err
}

// TrackCount returns the tracks-since-last-break counter.
func (c *Client) TrackCount(ctx context.Context) (int, error) {
	resp, err := c.send(ctx, "hermes.track_count")
	if err != nil {
		return 0, err
	}
	count, err := strconv.Atoi(strings.TrimSpace(resp))
	if err != nil {
		return 0, fmt.Errorf("unexpected track_count response %q", resp)
	}
	return count, nil
}

// Skip skips the currently playing track.
func (c *Client) Skip(ctx context.Context) error {
	_, err := c.send(ctx, "hermes.skip")
	return err
}

// Heartbeat checks that the playout system answers commands.
func (c *Client) Heartbeat(ctx context.Context) error {
	_, err := c.send(ctx, "version")
	return err
}

// Close drops the connection. The client remains usable; the next command
// reconnects.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardown()
	return nil
}

// Ensure Client satisfies the pipeline contract.
var _ core.Playout = (*Client)(nil)
