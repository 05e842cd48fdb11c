package bulb

import (
	"context"
	"log/slog"
	"math/rand"
	"net"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"
)

// MusicConn is the connection a bulb opens back to us in music mode. Commands
// sent over it are neither acknowledged nor rate limited by the bulb.
type MusicConn struct {
	client *Client
	conn   net.Conn
	logger *slog.Logger

	mu        sync.Mutex
	lastID    int
	closeOnce sync.Once
}

// RandomMusicPort picks a listener port in [base, base+span).
func RandomMusicPort(rng *rand.Rand, base, span int) uint16 {
	if span <= 0 {
		return uint16(base)
	}
	return uint16(base + rng.Intn(span))
}

// EnableMusicMode asks the bulb to connect back to port on the local address
// used for the control connection and waits for it.
func (c *Client) EnableMusicMode(ctx context.Context, port uint16) (*MusicConn, error) {
	host, _, err := net.SplitHostPort(c.conn.LocalAddr().String())
	if err != nil {
		return nil, eris.Wrap(err, "invalid local address")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		return nil, eris.Wrap(err, "failed to start music mode listener")
	}
	defer ln.Close()

	if _, err := c.execute(ctx, "set_music", 1, host, port); err != nil {
		return nil, err
	}

	accepted := make(chan net.Conn, 1)
	acceptErr := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- conn
	}()

	select {
	case conn := <-accepted:
		c.logger.Info("music mode enabled", slog.Int("port", int(port)))
		return &MusicConn{client: c, conn: conn, logger: c.logger}, nil
	case err := <-acceptErr:
		return nil, eris.Wrap(err, "failed to accept connection from bulb")
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "waiting for bulb music connection")
	}
}

// SetHSV implements Setter without waiting for a reply.
func (m *MusicConn) SetHSV(_ context.Context, hue uint16, saturation, value uint8, duration int) error {
	params, err := hsvFlow(hue, saturation, value, duration)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID++
	cmd := newCommand(m.lastID, "start_cf", params...)
	line, err := cmd.String()
	if err != nil {
		return err
	}
	if _, err := m.conn.Write([]byte(line)); err != nil {
		return eris.Wrap(err, "failed to write music mode command")
	}
	return nil
}

// Close drops the music connection and switches music mode off.
func (m *MusicConn) Close(ctx context.Context) error {
	var err error
	m.closeOnce.Do(func() {
		m.conn.Close()
		if _, cmdErr := m.client.execute(ctx, "set_music", 0); cmdErr != nil {
			err = cmdErr
			return
		}
		m.logger.Info("music mode disabled")
	})
	return err
}
