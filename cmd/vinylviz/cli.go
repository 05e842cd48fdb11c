package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cybre/vinylviz/internal/capture"
	"github.com/cybre/vinylviz/internal/config"
)

type runtimeOptions struct {
	configPath string
	debug      bool
	headless   bool
	listen     string
	bulbAddr   string
	lineIn     bool
	device     int
	fps        int
	effect     string
	plot       string
}

func newRootCmd() *cobra.Command {
	var opts runtimeOptions

	rootCmd := &cobra.Command{
		Use:           "vinylviz [files...]",
		Short:         "Audio-reactive visual console",
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runConsole(cmd.Context(), cfg, args)
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	bindFlags(rootCmd.PersistentFlags(), &opts)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "devices",
		Short: "List audio input devices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			terminate, err := capture.Initialize()
			if err != nil {
				return err
			}
			defer terminate()

			devices, err := capture.InputDevices()
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no input devices available")
				return nil
			}
			for _, d := range devices {
				fmt.Fprintln(cmd.OutOrStdout(), d.Label())
			}
			return nil
		},
	})

	return rootCmd
}

func bindFlags(flags *pflag.FlagSet, opts *runtimeOptions) {
	flags.StringVar(&opts.configPath, "config", "", "config file (default ./"+config.DefaultPath+" when present)")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.BoolVar(&opts.headless, "headless", false, "run without the terminal UI")
	flags.StringVar(&opts.listen, "listen", "", "serve websocket frames and /frame.png on this address")
	flags.StringVar(&opts.bulbAddr, "bulb", "", "mirror the ambient light to a bulb (ip[:port], default port 55443)")
	flags.BoolVar(&opts.lineIn, "line-in", false, "visualise an input device instead of files")
	flags.IntVar(&opts.device, "device", -1, "input device index for --line-in (leave blank to choose interactively)")
	flags.IntVar(&opts.fps, "fps", 0, "render rate in frames per second")
	flags.StringVar(&opts.effect, "effect", "", "initial effect preset (neon, fire, electric, cyber, default)")
	flags.StringVar(&opts.plot, "plot", "", "initial plot type (wave, bars, circle, dual)")
}

// loadConfig reads the config file, then lets explicitly set flags win.
func loadConfig(cmd *cobra.Command, opts runtimeOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, opts, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid flags")
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, opts runtimeOptions, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("debug") {
		cfg.Debug = opts.debug
	}
	if changed("headless") {
		cfg.Headless = opts.headless
	}
	if changed("listen") {
		cfg.Transport.Listen = opts.listen
	}
	if changed("bulb") {
		cfg.Bulb.Address = opts.bulbAddr
	}
	if changed("line-in") {
		cfg.Audio.LineIn = opts.lineIn
	}
	if changed("device") {
		cfg.Audio.InputDevice = opts.device
	}
	if changed("fps") {
		cfg.Render.FPS = opts.fps
	}
	if changed("effect") {
		cfg.Render.Effect = opts.effect
	}
	if changed("plot") {
		cfg.Render.PlotType = opts.plot
	}
}
