// Package bulb mirrors the console's ambient light onto a LAN smart bulb.
package bulb

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/crazy3lf/colorconv"
	"github.com/rotisserie/eris"

	"github.com/cybre/vinylviz/internal/utils"
)

const (
	// DefaultPort is the bulb's control port.
	DefaultPort = 55443

	lineEnding = "\r\n"
)

var (
	// ErrBrightnessInvalid is returned for brightness outside 1..100.
	ErrBrightnessInvalid = eris.New("brightness must be between 1 and 100")
	// ErrClosed is returned for commands on a closed client.
	ErrClosed = eris.New("bulb connection closed")
)

// Effect selects how the bulb transitions to a new state.
type Effect string

const (
	Sudden Effect = "sudden"
	Smooth Effect = "smooth"
)

// ParseAddress accepts "ip" or "ip:port".
func ParseAddress(address string) (netip.AddrPort, error) {
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, strconv.Itoa(DefaultPort))
	}
	addr, err := netip.ParseAddrPort(address)
	if err != nil {
		return netip.AddrPort{}, eris.Wrap(err, "failed to parse bulb address")
	}
	return addr, nil
}

// Client sends commands over a single TCP connection and matches replies by id.
type Client struct {
	addr    netip.AddrPort
	conn    net.Conn
	timeout time.Duration
	logger  *slog.Logger

	writeMu sync.Mutex
	lastID  int

	pendingMu sync.Mutex
	pending   map[int]chan commandResult
	closed    chan struct{}
	closeOnce sync.Once
}

// Dial connects to the bulb at address.
func Dial(ctx context.Context, address string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		return nil, eris.Wrap(err, "failed to connect to bulb")
	}
	return newClient(addr, conn, timeout, logger), nil
}

func newClient(addr netip.AddrPort, conn net.Conn, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		addr:    addr,
		conn:    conn,
		timeout: timeout,
		logger:  logger.With(slog.String("bulb", addr.String())),
		pending: make(map[int]chan commandResult),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Addr returns the bulb's address.
func (c *Client) Addr() netip.AddrPort { return c.addr }

// Close drops the connection and fails any outstanding commands.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

// TurnOn powers the bulb on.
func (c *Client) TurnOn(ctx context.Context, effect Effect, duration int) error {
	_, err := c.execute(ctx, "set_power", "on", effect, duration)
	return err
}

// SetBrightness sets brightness in percent.
func (c *Client) SetBrightness(ctx context.Context, brightness uint8, effect Effect, duration int) error {
	if brightness < 1 || brightness > 100 {
		return eris.Wrap(ErrBrightnessInvalid, "failed to set brightness")
	}
	_, err := c.execute(ctx, "set_bright", brightness, effect, duration)
	return err
}

// SetRGB sets the colour.
func (c *Client) SetRGB(ctx context.Context, r, g, b uint8, effect Effect, duration int) error {
	_, err := c.execute(ctx, "set_rgb", utils.RGBToInt(r, g, b), effect, duration)
	return err
}

// SetHSV sets colour and brightness in one command.
func (c *Client) SetHSV(ctx context.Context, hue uint16, saturation, value uint8, duration int) error {
	params, err := hsvFlow(hue, saturation, value, duration)
	if err != nil {
		return err
	}
	_, err = c.execute(ctx, "start_cf", params...)
	return err
}

// hsvFlow builds a single-step colour flow; set_hsv cannot change brightness.
func hsvFlow(hue uint16, saturation, value uint8, duration int) ([]any, error) {
	red, green, blue, err := colorconv.HSVToRGB(float64(hue%360), float64(saturation)/100.0, 1)
	if err != nil {
		return nil, eris.Wrap(err, "failed to convert HSV to RGB")
	}
	rgb := utils.RGBToInt(red, green, blue)
	value = utils.Clamp(value, 1, 100)
	return []any{1, 1, fmt.Sprintf("%d, 1, %d, %d", max(duration, 50), rgb, value)}, nil
}

// Properties reads named properties.
func (c *Client) Properties(ctx context.Context, names ...string) (map[string]string, error) {
	params := make([]any, len(names))
	for i, n := range names {
		params[i] = n
	}
	values, err := c.execute(ctx, "get_prop", params...)
	if err != nil {
		return nil, err
	}
	props := make(map[string]string, len(names))
	for i, n := range names {
		if i < len(values) {
			props[n] = values[i]
		}
	}
	return props, nil
}

func (c *Client) execute(ctx context.Context, method string, params ...any) ([]string, error) {
	select {
	case <-c.closed:
		return nil, ErrClosed
	default:
	}

	c.writeMu.Lock()
	c.lastID++
	cmd := newCommand(c.lastID, method, params...)
	line, err := cmd.String()
	if err != nil {
		c.writeMu.Unlock()
		return nil, err
	}

	reply := make(chan commandResult, 1)
	c.pendingMu.Lock()
	c.pending[cmd.ID] = reply
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, cmd.ID)
		c.pendingMu.Unlock()
	}()

	c.logger.Debug("executing command", slog.Int("id", cmd.ID), slog.String("method", method), slog.Any("params", cmd.Params))
	_, err = c.conn.Write([]byte(line))
	c.writeMu.Unlock()
	if err != nil {
		return nil, eris.Wrap(err, "failed to write command to connection")
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case result := <-reply:
		if result.Error != nil {
			return nil, eris.Wrapf(result.Error, "failed to execute command %s (%v)", cmd.Method, cmd.Params)
		}
		values := result.values()
		if len(values) == 1 && values[0] == "ok" {
			return nil, nil
		}
		return values, nil
	case <-timer.C:
		return nil, eris.Errorf("command %s timed out", method)
	case <-c.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, eris.Wrapf(ctx.Err(), "failed to execute command %s", method)
	}
}

func (c *Client) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var result commandResult
		if err := json.Unmarshal([]byte(line), &result); err != nil {
			c.logger.Warn("failed to decode bulb message", slog.String("json", line), slog.Any("error", err))
			continue
		}
		if result.ID == nil {
			c.logger.Debug("bulb notification", slog.String("method", result.Method))
			continue
		}
		c.pendingMu.Lock()
		reply, ok := c.pending[*result.ID]
		c.pendingMu.Unlock()
		if ok {
			select {
			case reply <- result:
			default:
			}
		}
	}
	if err := scanner.Err(); err != nil && !eris.Is(err, net.ErrClosed) {
		c.logger.Warn("bulb connection read failed", slog.Any("error", err))
	}
	c.Close()
}
