package transport

import (
	"bytes"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybre/vinylviz/internal/console"
	"github.com/cybre/vinylviz/internal/render"
	"github.com/cybre/vinylviz/internal/settings"
)

func testFrame(seq uint64, at time.Time) console.Frame {
	dl := render.NewDisplayList(40, 30)
	dl.Clear()
	dl.FillRect(0, 0, 10, 10, color.NRGBA{R: 255, A: 255})
	return console.Frame{
		Seq:     seq,
		At:      at,
		Display: dl,
		Style:   settings.PlotBars,
		Stats:   console.Stats{BPM: 128, EnergyPercent: 40},
		Timeline: console.Timeline{
			Known:   true,
			Percent: 25,
			Elapsed: "0:30",
			Total:   "2:00",
			Title:   "Intro",
		},
	}
}

func TestFramePNGUnavailableBeforeFirstFrame(t *testing.T) {
	s := NewServer("127.0.0.1:0", 0, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/frame.png", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFramePNGRendersLatestDisplayList(t *testing.T) {
	s := NewServer("127.0.0.1:0", 0, nil)
	s.Publish(testFrame(1, time.Now()))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/frame.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())

	r, g, _, _ := img.At(5, 5).RGBA()
	assert.Greater(t, r>>8, uint32(200))
	assert.Less(t, g>>8, uint32(50))
}

func TestWebSocketReceivesFrames(t *testing.T) {
	s := NewServer("127.0.0.1:0", 0, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx := t.Context()
	go s.broadcastLoop(ctx)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	s.Publish(testFrame(9, time.Now()))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got struct {
		Seq     uint64 `json:"seq"`
		Style   string `json:"style"`
		Display struct {
			Width float64  `json:"width"`
			Ops   []wireOp `json:"ops"`
		} `json:"display"`
		Stats    console.Stats `json:"stats"`
		Timeline timelineMsg   `json:"timeline"`
	}
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, uint64(9), got.Seq)
	assert.Equal(t, "bars", got.Style)
	assert.Equal(t, 40.0, got.Display.Width)
	assert.Len(t, got.Display.Ops, 2)
	assert.Equal(t, 128, got.Stats.BPM)
	assert.Equal(t, "2:00", got.Timeline.Total)
}

type wireOp struct {
	Kind string `json:"k"`
}

func TestPublishRateLimited(t *testing.T) {
	s := NewServer("127.0.0.1:0", 50*time.Millisecond, nil)
	// Publish only enqueues when someone is listening.
	s.clients[nil] = struct{}{}

	base := time.Now()
	s.Publish(testFrame(1, base))
	s.Publish(testFrame(2, base.Add(10*time.Millisecond)))
	s.Publish(testFrame(3, base.Add(60*time.Millisecond)))

	require.Len(t, s.broadcast, 2)
	assert.Equal(t, uint64(1), (<-s.broadcast).Seq)
	assert.Equal(t, uint64(3), (<-s.broadcast).Seq)
}

func TestPublishDropsWhenBacklogged(t *testing.T) {
	s := NewServer("127.0.0.1:0", 0, nil)
	s.clients[nil] = struct{}{}

	base := time.Now()
	for i := range broadcastBuffer + 5 {
		s.Publish(testFrame(uint64(i), base.Add(time.Duration(i)*time.Millisecond)))
	}
	assert.Len(t, s.broadcast, broadcastBuffer)
}

func TestWebSocketClientDisconnect(t *testing.T) {
	s := NewServer("127.0.0.1:0", 0, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp.Body != nil {
		io.Copy(io.Discard, resp.Body)
	}
	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return s.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}
