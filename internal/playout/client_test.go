package playout

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermesradio/hermes/internal/config"
)

// fakePlayout is an in-process line-protocol server. Each command gets the
// canned response lines followed by END; unknown commands get a bare END.
type fakePlayout struct {
	listener net.Listener

	mu        sync.Mutex
	responses map[string][]string
	commands  []string
	conns     []net.Conn
	dropNext  bool
	stallNext bool
}

func newFakePlayout(t *testing.T) *fakePlayout {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakePlayout{
		listener:  listener,
		responses: make(map[string][]string),
	}
	go f.serve()
	t.Cleanup(func() { _ = listener.Close() })
	return f
}

func (f *fakePlayout) serve() {
	for {
		conn, err := f.listener.Accept()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conns = append(f.conns, conn)
		f.mu.Unlock()
		go f.handle(conn)
	}
}

func (f *fakePlayout) handle(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimSpace(line)

		f.mu.Lock()
		f.commands = append(f.commands, cmd)
		drop := f.dropNext
		stall := f.stallNext
		f.dropNext = false
		f.stallNext = false
		lines := f.responses[cmd]
		f.mu.Unlock()

		if drop {
			return
		}
		if stall {
			continue
		}
		for _, l := range lines {
			if _, err := conn.Write([]byte(l + "\n")); err != nil {
				return
			}
		}
		if _, err := conn.Write([]byte("END\n")); err != nil {
			return
		}
	}
}

func (f *fakePlayout) respond(cmd string, lines ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmd] = lines
}

func (f *fakePlayout) dropNextCommand() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropNext = true
}

func (f *fakePlayout) stallNextCommand() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stallNext = true
}

// shutdown stops accepting and severs every live connection.
func (f *fakePlayout) shutdown() {
	_ = f.listener.Close()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conns {
		_ = c.Close()
	}
}

func (f *fakePlayout) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func (f *fakePlayout) clientConfig() config.PlayoutConfig {
	_, portStr, _ := net.SplitHostPort(f.listener.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return config.PlayoutConfig{
		Host:           "127.0.0.1",
		Port:           port,
		ConnectTimeout: time.Second,
		CommandTimeout: time.Second,
		PollInterval:   10 * time.Millisecond,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestClient_PushBreak(t *testing.T) {
	f := newFakePlayout(t)
	c := NewClient(f.clientConfig(), testLogger())
	defer c.Close()

	require.NoError(t, c.PushBreak(context.Background(), "/media/breaks/abc.mp3"))
	assert.Equal(t, []string{"breaks.push /media/breaks/abc.mp3"}, f.received())
}

func TestClient_CommandsReuseOneConnection(t *testing.T) {
	f := newFakePlayout(t)
	f.respond("hermes.track_count", "3")
	c := NewClient(f.clientConfig(), testLogger())
	defer c.Close()

	require.NoError(t, c.PushSting(context.Background(), "/assets/stings/station_id.mp3"))
	require.NoError(t, c.ResetCounter(context.Background()))
	require.NoError(t, c.Skip(context.Background()))
	require.NoError(t, c.Heartbeat(context.Background()))

	count, err := c.TrackCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.Equal(t, []string{
		"stings.push /assets/stings/station_id.mp3",
		"hermes.reset_counter",
		"hermes.skip",
		"version",
		"hermes.track_count",
	}, f.received())
}

func TestClient_TrackCountRejectsGarbage(t *testing.T) {
	f := newFakePlayout(t)
	f.respond("hermes.track_count", "not a number")
	c := NewClient(f.clientConfig(), testLogger())
	defer c.Close()

	_, err := c.TrackCount(context.Background())
	assert.ErrorContains(t, err, "unexpected track_count response")
}

func TestClient_ReconnectsAfterDroppedConnection(t *testing.T) {
	f := newFakePlayout(t)
	c := NewClient(f.clientConfig(), testLogger())
	defer c.Close()

	require.NoError(t, c.ResetCounter(context.Background()))

	// The server eats the next command and closes; the command fails and
	// the one after it rides a fresh connection.
	f.dropNextCommand()
	require.Error(t, c.ResetCounter(context.Background()))
	require.NoError(t, c.ResetCounter(context.Background()))

	assert.Len(t, f.received(), 3)
}

func TestClient_ConnectFailure(t *testing.T) {
	f := newFakePlayout(t)
	cfg := f.clientConfig()
	require.NoError(t, f.listener.Close())

	c := NewClient(cfg, testLogger())
	err := c.PushBreak(context.Background(), "/media/breaks/abc.mp3")
	assert.ErrorContains(t, err, "connecting to playout")
}

func TestClient_RespectsContextDeadline(t *testing.T) {
	f := newFakePlayout(t)
	// The server reads the command but never answers: the read blocks
	// until the context deadline trips it.
	f.stallNextCommand()
	c := NewClient(f.clientConfig(), testLogger())
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := c.Heartbeat(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
