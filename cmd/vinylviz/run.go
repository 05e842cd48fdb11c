package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/cybre/vinylviz/internal/bulb"
	"github.com/cybre/vinylviz/internal/capture"
	"github.com/cybre/vinylviz/internal/config"
	"github.com/cybre/vinylviz/internal/console"
	"github.com/cybre/vinylviz/internal/dsp"
	"github.com/cybre/vinylviz/internal/lights"
	"github.com/cybre/vinylviz/internal/playback"
	"github.com/cybre/vinylviz/internal/scheduler"
	"github.com/cybre/vinylviz/internal/settings"
	"github.com/cybre/vinylviz/internal/transport"
	"github.com/cybre/vinylviz/internal/ui"
)

const (
	timeUpdateInterval = 250 * time.Millisecond
	// tapWindows is how many analysis windows the tap keeps.
	tapWindows = 4
)

func setupLogger(debug, tui bool) *slog.Logger {
	logOutput := os.Stdout
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	if tui && !debug {
		logLevel = slog.LevelWarn
	}
	if tui {
		logOutput = os.Stderr
	}

	logger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	return logger
}

func runConsole(ctx context.Context, cfg *config.Config, files []string) error {
	tui := !cfg.Headless && ui.IsInteractiveTerminal()
	logger := setupLogger(cfg.Debug, tui)
	for _, name := range cfg.Overrides {
		logger.Debug("environment override applied", slog.String("var", name))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store := settings.NewStore(cfg.RenderSettings(), cfg.Preset(), cfg.Mixer())
	tap := dsp.NewTap(cfg.Audio.FFTSize * tapWindows)
	analyser := dsp.NewAnalyser(tap, cfg.AnalyserOptions())

	fxRng := rand.New(rand.NewSource(time.Now().UnixNano()))
	trackRng := rand.New(rand.NewSource(time.Now().UnixNano() + 1))

	g, gctx := errgroup.WithContext(ctx)

	var (
		source   console.PlaybackSource
		controls ui.Transport
		ctrl     *playback.Controller
	)

	if cfg.Audio.LineIn {
		terminate, err := capture.Initialize()
		if err != nil {
			return err
		}
		defer terminate()

		device, err := pickInputDevice(cfg.Audio.InputDevice, tui)
		if err != nil {
			return err
		}
		source = liveSource{title: device.Name}
		g.Go(func() error {
			return capture.Run(gctx, logger, tap, capture.Options{DeviceIndex: device.Index})
		})
	} else {
		engine := playback.NewEngine(cfg.Audio.OutputSampleRate, tap)
		output := openOutput(engine, cfg, logger)
		ctrl = playback.NewController(engine, output, playback.NewPlaylist(trackRng), playback.OpenFile, playback.NewBus(), logger)
		defer func() {
			if err := ctrl.Close(); err != nil {
				logger.Warn("failed to close playback", slog.Any("error", err))
			}
		}()
		source = ctrl
		controls = ctrl
		g.Go(func() error {
			return ctrl.Run(gctx, timeUpdateInterval)
		})
	}

	pipeline := console.NewPipeline(analyser, store, source, console.Options{
		Width:    float64(cfg.Render.Width),
		Height:   float64(cfg.Render.Height),
		Geometry: lights.DefaultGeometry(),
	}, fxRng, fxRng, logger)
	con := console.New(pipeline, scheduler.NewFPSTicker(cfg.Render.FPS), store, logger)

	if ctrl != nil {
		con.Bind(ctrl.Bus(), ctrl)
	} else {
		controls = liveTransport{scheduler: con.Scheduler}
		con.Scheduler.Play()
	}

	if cfg.Transport.Listen != "" {
		srv := transport.NewServer(cfg.Transport.Listen, cfg.Transport.PublishInterval, logger)
		pipeline.AddSink(srv)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	if cfg.Bulb.Address != "" {
		if sink, closeBulb, err := connectBulb(gctx, cfg.Bulb, logger); err != nil {
			logger.Warn("bulb unavailable, continuing without it", slog.Any("error", err))
		} else {
			defer closeBulb()
			pipeline.AddSink(sink)
			g.Go(func() error {
				return sink.Run(gctx)
			})
		}
	}

	if tui {
		view := ui.NewConsole(store, controls, cancel)
		pipeline.AddSink(view)
		g.Go(func() error {
			defer cancel()
			return view.Run(gctx)
		})
	} else {
		stats := newStatsLogger(logger)
		pipeline.AddSink(stats)
		g.Go(func() error {
			return stats.Run(gctx)
		})
	}

	g.Go(func() error {
		return con.Run(gctx)
	})

	if ctrl != nil {
		if len(files) == 0 {
			logger.Warn("no audio files given; nothing to play")
		}
		ctrl.Add(files...)
	}

	if err := g.Wait(); err != nil && !eris.Is(err, context.Canceled) {
		logger.Error("console stopped", slog.Any("error", err))
		return err
	}
	return nil
}

// openOutput prefers the system audio device and falls back to a paced
// null output so the console still runs without one.
func openOutput(engine *playback.Engine, cfg *config.Config, logger *slog.Logger) playback.Output {
	if !cfg.Audio.NullOutput {
		out, err := playback.NewOtoOutput(engine, cfg.Audio.OutputSampleRate)
		if err == nil {
			return out
		}
		logger.Warn("audio device unavailable, playing silently", slog.Any("error", err))
	}
	return playback.NewClockOutput(engine, cfg.Audio.OutputSampleRate, 10*time.Millisecond)
}

func pickInputDevice(index int, tui bool) (capture.Device, error) {
	devices, err := capture.InputDevices()
	if err != nil {
		return capture.Device{}, err
	}
	if len(devices) == 0 {
		return capture.Device{}, eris.New("no input devices available")
	}

	if index >= 0 {
		for _, d := range devices {
			if d.Index == index {
				return d, nil
			}
		}
		return capture.Device{}, eris.Errorf("invalid device index %d", index)
	}

	initial := capture.DefaultIndex(devices)
	if !tui {
		return devices[initial], nil
	}

	options := make([]ui.Option, len(devices))
	for i, d := range devices {
		options[i] = ui.Option{Label: d.Label()}
	}
	choice, err := ui.RunPicker("Select an audio input device", options, initial)
	if err != nil && !eris.Is(err, ui.ErrNoInteractiveTTY) {
		return capture.Device{}, err
	}
	return devices[choice], nil
}

func connectBulb(ctx context.Context, cfg config.BulbConfig, logger *slog.Logger) (*bulb.AmbientSink, func(), error) {
	client, err := bulb.Dial(ctx, cfg.Address, cfg.DialTimeout, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using bulb", slog.String("addr", client.Addr().String()))

	if err := client.TurnOn(ctx, bulb.Smooth, 250); err != nil {
		logger.Warn("failed to turn on bulb", slog.Any("error", err))
	}

	var setter bulb.Setter = client
	closeBulb := func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to disconnect from bulb", slog.Any("error", err))
		}
	}

	if cfg.MusicMode {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		port := bulb.RandomMusicPort(rng, cfg.MusicPortBase, cfg.MusicPortSpan)
		music, err := client.EnableMusicMode(ctx, port)
		if err != nil {
			logger.Warn("music mode unavailable, using rate-limited commands", slog.Any("error", err))
		} else {
			setter = music
			closeClient := closeBulb
			closeBulb = func() {
				if err := music.Close(context.Background()); err != nil {
					logger.Warn("failed to disable music mode", slog.Any("error", err))
				}
				closeClient()
			}
		}
	}

	return bulb.NewAmbientSink(setter, cfg.CommandSpacing, logger), closeBulb, nil
}
